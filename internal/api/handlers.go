package api

import (
	"encoding/json"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"
	"polymarket-mm/internal/config"
)

// Handlers holds all HTTP handler dependencies.
type Handlers struct {
	provider StatusProvider
	cfg      config.Config
	bus      *EventBus
	logger   *slog.Logger
}

// NewHandlers creates a new handlers instance.
func NewHandlers(provider StatusProvider, cfg config.Config, bus *EventBus, logger *slog.Logger) *Handlers {
	return &Handlers{
		provider: provider,
		cfg:      cfg,
		bus:      bus,
		logger:   logger.With("component", "api-handlers"),
	}
}

// HandleHealth returns a simple health check response.
func (h *Handlers) HandleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]string{"status": "ok"})
}

// HandleSnapshot returns the aggregate dashboard state across every bot.
func (h *Handlers) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	snapshot := BuildSnapshot(h.provider, h.cfg)

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(snapshot); err != nil {
		h.logger.Error("failed to encode snapshot", "error", err)
		http.Error(w, "internal error", http.StatusInternalServerError)
		return
	}
}

// HandleBotSnapshot returns a single bot's status by ID, looked up from
// the path's {bot_id} segment. 404s if no bot with that ID is registered.
func (h *Handlers) HandleBotSnapshot(w http.ResponseWriter, r *http.Request) {
	botID := r.PathValue("bot_id")

	for _, s := range h.provider.List() {
		if s.BotID == botID {
			w.Header().Set("Content-Type", "application/json")
			if err := json.NewEncoder(w).Encode(NewBotStatus(s)); err != nil {
				h.logger.Error("failed to encode bot status", "error", err, "bot_id", botID)
				http.Error(w, "internal error", http.StatusInternalServerError)
			}
			return
		}
	}
	http.Error(w, "bot not found", http.StatusNotFound)
}

// HandleWebSocket upgrades the connection and registers a new dashboard
// client on the event bus. A "bot_id" query parameter scopes the client's
// feed to that bot's fill/state/breaker events; omitted, the client sees
// every bot.
func (h *Handlers) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	upgrader := websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(req *http.Request) bool {
			return isOriginAllowed(req.Header.Get("Origin"), h.cfg.API, req.Host)
		},
	}

	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Error("websocket upgrade failed", "error", err)
		return
	}

	botFilter := r.URL.Query().Get("bot_id")
	client := NewClient(h.bus, conn, botFilter)

	snapshot := BuildSnapshot(h.provider, h.cfg)
	evt := DashboardEvent{Type: "snapshot", Data: snapshot}

	data, err := json.Marshal(evt)
	if err != nil {
		h.logger.Error("failed to marshal initial snapshot", "error", err)
		return
	}

	select {
	case client.send <- data:
	default:
		h.logger.Warn("failed to send initial snapshot to client", "bot_filter", botFilter)
	}
}

// isOriginAllowed enforces the dashboard's CORS policy for WebSocket
// upgrades: an explicit allow-list wins outright, otherwise same-host and
// loopback origins are trusted and everything else is rejected.
func isOriginAllowed(origin string, cfg config.APIServerConfig, reqHost string) bool {
	if origin == "" {
		// Non-browser clients often omit Origin; keep this path functional.
		return true
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}

	normalized := normalizeOrigin(originURL.Scheme, originURL.Host)
	if normalized == "" {
		return false
	}

	if len(cfg.AllowedOrigins) > 0 {
		for _, allowed := range cfg.AllowedOrigins {
			u, err := url.Parse(allowed)
			if err != nil {
				continue
			}
			if normalized == normalizeOrigin(u.Scheme, u.Host) {
				return true
			}
		}
		return false
	}

	host := strings.ToLower(originURL.Hostname())
	if host == "localhost" || host == "127.0.0.1" || host == "::1" {
		return true
	}

	reqHostname := normalizeHost(reqHost)
	return reqHostname != "" && host == reqHostname
}

func normalizeOrigin(scheme, host string) string {
	if scheme == "" || host == "" {
		return ""
	}
	return strings.ToLower(scheme) + "://" + strings.ToLower(host)
}

func normalizeHost(hostport string) string {
	hostport = strings.TrimSpace(hostport)
	if hostport == "" {
		return ""
	}
	if host, _, err := net.SplitHostPort(hostport); err == nil {
		return strings.ToLower(host)
	}
	return strings.ToLower(hostport)
}
