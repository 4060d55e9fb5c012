// Package store persists bot configuration and runtime state as two JSON
// collections using crash-safe atomic file replacement (write to .tmp,
// then rename) so a crash mid-save never leaves a corrupt file on disk.
package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"polymarket-mm/pkg/types"
)

// Store persists BotConfig and BotRuntime records under dir/config and
// dir/state respectively. All operations are mutex-protected.
type Store struct {
	dir string
	mu  sync.Mutex
}

// Open creates a store backed by dir, creating the config/state
// subdirectories if they don't already exist.
func Open(dir string) (*Store, error) {
	for _, sub := range []string{"config", "state"} {
		if err := os.MkdirAll(filepath.Join(dir, sub), 0o755); err != nil {
			return nil, fmt.Errorf("create store dir: %w", err)
		}
	}
	return &Store{dir: dir}, nil
}

// Close is a no-op for file-based storage.
func (s *Store) Close() error { return nil }

// SaveConfig atomically persists a bot's configuration.
func (s *Store) SaveConfig(cfg types.BotConfig) error {
	return s.writeJSON(s.configPath(cfg.BotID), cfg)
}

// LoadConfig returns nil, nil if no config exists for botID.
func (s *Store) LoadConfig(botID string) (*types.BotConfig, error) {
	var cfg types.BotConfig
	ok, err := s.readJSON(s.configPath(botID), &cfg)
	if err != nil || !ok {
		return nil, err
	}
	return &cfg, nil
}

// ListConfigs returns every persisted bot config, sorted by BotID.
func (s *Store) ListConfigs() ([]types.BotConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	entries, err := os.ReadDir(filepath.Join(s.dir, "config"))
	if err != nil {
		return nil, fmt.Errorf("list configs: %w", err)
	}

	var out []types.BotConfig
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.dir, "config", e.Name()))
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", e.Name(), err)
		}
		var cfg types.BotConfig
		if err := json.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", e.Name(), err)
		}
		out = append(out, cfg)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].BotID < out[j].BotID })
	return out, nil
}

// SaveRuntime atomically persists a bot's runtime state.
func (s *Store) SaveRuntime(state types.BotRuntime) error {
	return s.writeJSON(s.statePath(state.BotID), state)
}

// LoadRuntime returns nil, nil if no runtime state exists for botID.
func (s *Store) LoadRuntime(botID string) (*types.BotRuntime, error) {
	var state types.BotRuntime
	ok, err := s.readJSON(s.statePath(botID), &state)
	if err != nil || !ok {
		return nil, err
	}
	return &state, nil
}

// Delete removes a bot's records. Runtime state is removed before config
// so a crash mid-delete never leaves an orphaned runtime record pointing
// at a config that no longer exists.
func (s *Store) Delete(botID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := removeIfExists(s.statePathLocked(botID)); err != nil {
		return fmt.Errorf("delete runtime state: %w", err)
	}
	if err := removeIfExists(s.configPathLocked(botID)); err != nil {
		return fmt.Errorf("delete config: %w", err)
	}
	return nil
}

func removeIfExists(path string) error {
	err := os.Remove(path)
	if err != nil && !os.IsNotExist(err) {
		return err
	}
	return nil
}

func (s *Store) configPath(botID string) string { return s.configPathLocked(botID) }
func (s *Store) statePath(botID string) string  { return s.statePathLocked(botID) }

func (s *Store) configPathLocked(botID string) string {
	return filepath.Join(s.dir, "config", botID+".json")
}

func (s *Store) statePathLocked(botID string) string {
	return filepath.Join(s.dir, "state", botID+".json")
}

func (s *Store) writeJSON(path string, v interface{}) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("marshal: %w", err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o600); err != nil {
		return fmt.Errorf("write: %w", err)
	}
	return os.Rename(tmp, path)
}

func (s *Store) readJSON(path string, v interface{}) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}
		return false, fmt.Errorf("read: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return false, fmt.Errorf("unmarshal: %w", err)
	}
	return true, nil
}
