// Package feed consumes a venue's market-data WebSocket and turns its
// wire messages into the venue-agnostic types.MarketEvent stream the
// trading engine drives on. Reconnection logic is shared across venues;
// wire decoding is injected so perp and predict feeds can each speak
// their own JSON shape.
package feed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"polymarket-mm/pkg/types"
)

const (
	pingInterval     = 50 * time.Second
	readTimeout      = 90 * time.Second
	maxReconnectWait = 30 * time.Second
	writeTimeout     = 10 * time.Second
	eventBufferSize  = 256
)

// Decoder turns one raw WebSocket frame into a market event. ok is false
// for frames that carry no tradable event (pings, acks, informational
// messages) and should be silently dropped.
type Decoder func(raw []byte) (evt types.MarketEvent, ok bool, err error)

// Feed manages a single WebSocket connection with automatic reconnect
// and re-subscription. On every reconnect it calls OnResync before
// resubscribing, so the caller can discard any order-book state that may
// now be stale -- the resubscribe plus a fresh snapshot fetch from the
// REST client is the resync barrier.
type Feed struct {
	url     string
	decode  Decoder
	logger  *slog.Logger
	OnResync func()

	connMu sync.Mutex
	conn   *websocket.Conn

	subscribedMu sync.RWMutex
	subscribed   map[string]bool

	events chan types.MarketEvent
}

// New creates a feed against url, decoding frames with decode.
func New(url string, decode Decoder, logger *slog.Logger) *Feed {
	return &Feed{
		url:        url,
		decode:     decode,
		logger:     logger.With("component", "feed"),
		subscribed: make(map[string]bool),
		events:     make(chan types.MarketEvent, eventBufferSize),
	}
}

// Next implements engine.DataProvider, letting a live Feed drive the
// engine's tick loop directly.
func (f *Feed) Next(ctx context.Context) (types.MarketEvent, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case evt := <-f.events:
		return evt, nil
	}
}

// Events exposes the raw channel for consumers that want it directly
// (e.g. to fan events into both the engine and an order book mirror).
func (f *Feed) Events() <-chan types.MarketEvent { return f.events }

// Subscribe adds symbols to track, sending a subscribe frame if the
// feed is currently connected, and replaying it on every reconnect.
func (f *Feed) Subscribe(symbols []string) error {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		f.subscribed[s] = true
	}
	f.subscribedMu.Unlock()
	return f.writeSubscribe(symbols)
}

// Unsubscribe removes symbols from the tracked set.
func (f *Feed) Unsubscribe(symbols []string) {
	f.subscribedMu.Lock()
	for _, s := range symbols {
		delete(f.subscribed, s)
	}
	f.subscribedMu.Unlock()
}

// Run connects and maintains the connection with exponential backoff
// (1s doubling to a 30s cap) until ctx is cancelled.
func (f *Feed) Run(ctx context.Context) error {
	backoff := time.Second

	for {
		err := f.connectAndRead(ctx)
		if ctx.Err() != nil {
			return ctx.Err()
		}

		f.logger.Warn("feed disconnected, reconnecting", "error", err, "backoff", backoff)

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(backoff):
		}

		backoff *= 2
		if backoff > maxReconnectWait {
			backoff = maxReconnectWait
		}
	}
}

// Close closes the underlying connection, if any.
func (f *Feed) Close() error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn != nil {
		return f.conn.Close()
	}
	return nil
}

func (f *Feed) connectAndRead(ctx context.Context) error {
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, f.url, nil)
	if err != nil {
		return fmt.Errorf("dial: %w", err)
	}

	f.connMu.Lock()
	f.conn = conn
	f.connMu.Unlock()
	defer func() {
		f.connMu.Lock()
		conn.Close()
		f.conn = nil
		f.connMu.Unlock()
	}()

	// Resync barrier: any book mirror the caller keeps must be treated
	// as invalid until it resnapshots, since events in flight during the
	// disconnect are gone for good.
	if f.OnResync != nil {
		f.OnResync()
	}

	f.subscribedMu.RLock()
	ids := make([]string, 0, len(f.subscribed))
	for id := range f.subscribed {
		ids = append(ids, id)
	}
	f.subscribedMu.RUnlock()
	if len(ids) > 0 {
		if err := f.writeSubscribe(ids); err != nil {
			return fmt.Errorf("resubscribe: %w", err)
		}
	}

	f.logger.Info("feed connected")

	pingCtx, pingCancel := context.WithCancel(ctx)
	defer pingCancel()
	go f.pingLoop(pingCtx)

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		conn.SetReadDeadline(time.Now().Add(readTimeout))
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return fmt.Errorf("read: %w", err)
		}

		evt, ok, err := f.decode(msg)
		if err != nil {
			f.logger.Error("decode frame", "error", err)
			continue
		}
		if !ok {
			continue
		}

		select {
		case f.events <- evt:
		default:
			f.logger.Warn("event channel full, dropping event", "symbol", evt.EventSymbol())
		}
	}
}

func (f *Feed) pingLoop(ctx context.Context) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := f.writeMessage(websocket.TextMessage, []byte("PING")); err != nil {
				f.logger.Warn("ping failed", "error", err)
				return
			}
		}
	}
}

type subscribeMsg struct {
	Operation string   `json:"operation"`
	Symbols   []string `json:"symbols"`
}

func (f *Feed) writeSubscribe(symbols []string) error {
	return f.writeJSON(subscribeMsg{Operation: "subscribe", Symbols: symbols})
}

var errNotConnected = errors.New("feed: not connected")

func (f *Feed) writeJSON(v interface{}) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return errNotConnected
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteJSON(v)
}

func (f *Feed) writeMessage(msgType int, data []byte) error {
	f.connMu.Lock()
	defer f.connMu.Unlock()
	if f.conn == nil {
		return errNotConnected
	}
	f.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return f.conn.WriteMessage(msgType, data)
}
