package store

import (
	"testing"
	"time"

	"polymarket-mm/pkg/types"
)

func TestSaveAndLoadConfig(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	cfg := types.BotConfig{BotID: "bot-1", Symbol: "BTC", Leverage: 3, Enabled: true, CreatedAt: time.Now().UTC()}
	if err := s.SaveConfig(cfg); err != nil {
		t.Fatalf("SaveConfig: %v", err)
	}

	loaded, err := s.LoadConfig("bot-1")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded == nil {
		t.Fatal("LoadConfig returned nil")
	}
	if loaded.Symbol != "BTC" || loaded.Leverage != 3 {
		t.Errorf("loaded = %+v, want Symbol=BTC Leverage=3", loaded)
	}
}

func TestLoadConfigMissing(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	loaded, err := s.LoadConfig("nonexistent")
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil for missing config, got %+v", loaded)
	}
}

func TestListConfigsSortedByID(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SaveConfig(types.BotConfig{BotID: "bot-b"})
	_ = s.SaveConfig(types.BotConfig{BotID: "bot-a"})

	list, err := s.ListConfigs()
	if err != nil {
		t.Fatalf("ListConfigs: %v", err)
	}
	if len(list) != 2 || list[0].BotID != "bot-a" || list[1].BotID != "bot-b" {
		t.Errorf("ListConfigs() = %+v, want sorted [bot-a bot-b]", list)
	}
}

func TestSaveAndLoadRuntime(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	rt := types.BotRuntime{BotID: "bot-1", State: types.BotRunning, StartedAt: time.Now().UTC()}
	if err := s.SaveRuntime(rt); err != nil {
		t.Fatalf("SaveRuntime: %v", err)
	}

	loaded, err := s.LoadRuntime("bot-1")
	if err != nil {
		t.Fatalf("LoadRuntime: %v", err)
	}
	if loaded == nil || loaded.State != types.BotRunning {
		t.Errorf("loaded = %+v, want State=RUNNING", loaded)
	}
}

func TestDeleteRemovesConfigAndRuntime(t *testing.T) {
	t.Parallel()
	dir := t.TempDir()

	s, err := Open(dir)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer s.Close()

	_ = s.SaveConfig(types.BotConfig{BotID: "bot-1"})
	_ = s.SaveRuntime(types.BotRuntime{BotID: "bot-1"})

	if err := s.Delete("bot-1"); err != nil {
		t.Fatalf("Delete: %v", err)
	}

	cfg, _ := s.LoadConfig("bot-1")
	rt, _ := s.LoadRuntime("bot-1")
	if cfg != nil || rt != nil {
		t.Errorf("Delete left records behind: cfg=%+v rt=%+v", cfg, rt)
	}
}
