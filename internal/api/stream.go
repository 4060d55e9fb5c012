package api

import (
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// EventBus fans DashboardEvents out to every connected dashboard client,
// optionally narrowing each client's feed to a single bot. A client that
// subscribed to one bot never sees another bot's fill/state events, but
// global events (snapshot rebroadcasts, BotID left empty) still reach
// everyone.
type EventBus struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan DashboardEvent
	mu         sync.RWMutex
	logger     *slog.Logger
}

// Client is one connected WebSocket dashboard viewer. botFilter, if
// non-empty, restricts delivery to events carrying that BotID (plus any
// event with no BotID at all).
type Client struct {
	bus       *EventBus
	conn      *websocket.Conn
	send      chan []byte
	botFilter string
}

// NewEventBus creates an event bus with no subscribers.
func NewEventBus(logger *slog.Logger) *EventBus {
	return &EventBus{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan DashboardEvent, 256),
		logger:     logger.With("component", "ws-bus"),
	}
}

// Run starts the bus's main loop (should be called in a goroutine).
func (b *EventBus) Run() {
	for {
		select {
		case client := <-b.register:
			b.mu.Lock()
			b.clients[client] = true
			b.mu.Unlock()
			b.logger.Info("dashboard client connected", "count", len(b.clients), "bot_filter", client.botFilter)

		case client := <-b.unregister:
			b.mu.Lock()
			if _, ok := b.clients[client]; ok {
				delete(b.clients, client)
				close(client.send)
			}
			b.mu.Unlock()
			b.logger.Info("dashboard client disconnected", "count", len(b.clients))

		case evt := <-b.broadcast:
			data, err := json.Marshal(evt)
			if err != nil {
				b.logger.Error("failed to marshal event", "error", err, "type", evt.Type)
				continue
			}
			b.mu.RLock()
			for client := range b.clients {
				if !client.wants(evt) {
					continue
				}
				select {
				case client.send <- data:
				default:
					// client can't keep up, drop it rather than block the bus
					close(client.send)
					delete(b.clients, client)
				}
			}
			b.mu.RUnlock()
		}
	}
}

// wants reports whether evt should be delivered to c, honoring c's bot
// filter. Events with no BotID (aggregate snapshots) always pass through.
func (c *Client) wants(evt DashboardEvent) bool {
	if c.botFilter == "" || evt.BotID == "" {
		return true
	}
	return evt.BotID == c.botFilter
}

// BroadcastEvent enqueues evt for fan-out, stamping Timestamp if the
// caller left it zero.
func (b *EventBus) BroadcastEvent(evt DashboardEvent) {
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now()
	}

	select {
	case b.broadcast <- evt:
	default:
		b.logger.Warn("broadcast channel full, dropping event", "type", evt.Type, "bot_id", evt.BotID)
	}
}

// BroadcastSnapshot wraps snapshot in a "snapshot"-typed DashboardEvent
// and fans it out to every subscriber regardless of bot filter.
func (b *EventBus) BroadcastSnapshot(snapshot DashboardSnapshot) {
	b.BroadcastEvent(DashboardEvent{Type: "snapshot", Data: snapshot})
}

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512 * 1024 // 512 KB
)

// writePump pumps messages from the bus to the websocket connection.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				// bus closed the channel
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}

			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump pumps messages from the websocket connection to the bus. The
// dashboard is read-only, so any inbound frame is discarded -- this pump
// exists only to detect disconnects and service pongs.
func (c *Client) readPump() {
	defer func() {
		c.bus.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, _, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.bus.logger.Error("websocket error", "error", err)
			}
			break
		}
	}
}

// NewClient registers conn with bus, scoping its feed to botFilter (empty
// string subscribes to every bot), and starts its read/write pumps.
func NewClient(bus *EventBus, conn *websocket.Conn, botFilter string) *Client {
	client := &Client{
		bus:       bus,
		conn:      conn,
		send:      make(chan []byte, 256),
		botFilter: botFilter,
	}

	client.bus.register <- client

	go client.writePump()
	go client.readPump()

	return client
}
