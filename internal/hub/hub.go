// Package hub is the WebSocket push channel: it tracks connected display clients and fans
// every broadcast out to them.
package hub

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/preston-bernstein/scoreboard-feed-service/internal/domain/games"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/logging"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/metrics"
	"github.com/preston-bernstein/scoreboard-feed-service/internal/sinks"
)

const defaultBroadcastBuffer = 64

// Events pushed alongside the gameUpdate broadcast.
const (
	EventStatusUpdate = "statusUpdate"
	EventLogUpdate    = "logUpdate"
)

var (
	// ErrBufferFull is returned by Publish when the hub loop has fallen behind.
	ErrBufferFull = errors.New("hub broadcast buffer full")
	// ErrStopped is returned once Run has exited.
	ErrStopped = errors.New("hub stopped")
)

// Config wires a Hub.
type Config struct {
	// Snapshot supplies the current games sent to a client as soon as it connects.
	Snapshot        func() []games.Game
	ClientBuffer    int
	BroadcastBuffer int
	Logger          *slog.Logger
	Metrics         *metrics.Recorder
}

// Hub maintains the set of active clients and broadcasts messages to them.
type Hub struct {
	clients   map[*Client]struct{}
	clientsMu sync.RWMutex

	register   chan *Client
	unregister chan *Client
	broadcast  chan []byte
	done       chan struct{}
	runOnce    sync.Once

	snapshot     func() []games.Game
	clientBuffer int
	upgrader     websocket.Upgrader
	logger       *slog.Logger
	metrics      *metrics.Recorder
	now          func() time.Time
}

// New constructs a Hub. Call Run before serving connections.
func New(cfg Config) *Hub {
	size := cfg.BroadcastBuffer
	if size <= 0 {
		size = defaultBroadcastBuffer
	}
	return &Hub{
		clients:      make(map[*Client]struct{}),
		register:     make(chan *Client),
		unregister:   make(chan *Client),
		broadcast:    make(chan []byte, size),
		done:         make(chan struct{}),
		snapshot:     cfg.Snapshot,
		clientBuffer: cfg.ClientBuffer,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Display clients are served from other origins.
			CheckOrigin: func(*http.Request) bool { return true },
		},
		logger:  logging.Component(cfg.Logger, "hub"),
		metrics: cfg.Metrics,
		now:     time.Now,
	}
}

// Run processes registrations and broadcasts until ctx is done, then disconnects every client.
func (h *Hub) Run(ctx context.Context) {
	ran := false
	h.runOnce.Do(func() { ran = true })
	if !ran {
		return
	}
	defer close(h.done)
	logging.Info(h.logger, "hub started")

	for {
		select {
		case <-ctx.Done():
			h.shutdown()
			return
		case c := <-h.register:
			h.registerClient(c)
		case c := <-h.unregister:
			h.unregisterClient(c)
		case payload := <-h.broadcast:
			h.fanOut(payload)
		}
	}
}

// Done is closed once Run has exited.
func (h *Hub) Done() <-chan struct{} {
	return h.done
}

func (h *Hub) Name() string { return "websocket" }

// Publish queues msg for every connected client without blocking.
func (h *Hub) Publish(_ context.Context, msg sinks.Message) error {
	if h.stopped() {
		return ErrStopped
	}
	payload, err := msg.Encode()
	if err != nil {
		return err
	}
	return h.enqueue(msg.Event, payload)
}

// envelope mirrors sinks.Message for events that do not carry games.
type envelope struct {
	Event     string `json:"event"`
	Data      any    `json:"data"`
	Timestamp int64  `json:"timestamp"`
}

// PublishEvent queues an arbitrary event for every connected client without blocking.
func (h *Hub) PublishEvent(_ context.Context, event string, data any) error {
	if h.stopped() {
		return ErrStopped
	}
	payload, err := json.Marshal(envelope{Event: event, Data: data, Timestamp: h.now().UnixMilli()})
	if err != nil {
		return fmt.Errorf("encode %s: %w", event, err)
	}
	return h.enqueue(event, payload)
}

func (h *Hub) enqueue(event string, payload []byte) error {
	select {
	case h.broadcast <- payload:
		return nil
	default:
		logging.Warn(h.logger, "broadcast buffer full, dropping message", "event", event)
		return ErrBufferFull
	}
}

func (h *Hub) stopped() bool {
	select {
	case <-h.done:
		return true
	default:
		return false
	}
}

// Register adds a client; it is a no-op once the hub has stopped.
func (h *Hub) Register(c *Client) bool {
	select {
	case h.register <- c:
		return true
	case <-h.done:
		return false
	}
}

// Unregister removes a client; it is a no-op once the hub has stopped.
func (h *Hub) Unregister(c *Client) {
	select {
	case h.unregister <- c:
	case <-h.done:
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.clientsMu.RLock()
	defer h.clientsMu.RUnlock()
	return len(h.clients)
}

// ServeHTTP upgrades the request to a WebSocket subscription.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	select {
	case <-h.done:
		http.Error(w, ErrStopped.Error(), http.StatusServiceUnavailable)
		return
	default:
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		logging.Warn(h.logger, "websocket upgrade failed", "error", err)
		return
	}

	c := newClient(uuid.NewString(), conn, h, h.clientBuffer)
	if !h.Register(c) {
		_ = conn.Close()
		return
	}
	go c.writePump()
	go c.readPump()
}

func (h *Hub) registerClient(c *Client) {
	h.clientsMu.Lock()
	h.clients[c] = struct{}{}
	total := len(h.clients)
	h.clientsMu.Unlock()

	h.metrics.RecordSubscribers(1)
	logging.Info(h.logger, "client connected", logging.FieldClientID, c.ID, logging.FieldCount, total)

	if h.snapshot == nil {
		return
	}
	payload, err := sinks.NewMessage(h.snapshot(), h.now()).Encode()
	if err != nil {
		logging.Error(h.logger, "snapshot encode failed", err, logging.FieldClientID, c.ID)
		return
	}
	c.trySend(payload)
}

func (h *Hub) unregisterClient(c *Client) {
	h.clientsMu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	total := len(h.clients)
	h.clientsMu.Unlock()

	if ok {
		h.metrics.RecordSubscribers(-1)
		logging.Info(h.logger, "client disconnected", logging.FieldClientID, c.ID, logging.FieldCount, total)
	}
}

func (h *Hub) fanOut(payload []byte) {
	h.clientsMu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.clientsMu.RUnlock()

	for _, c := range clients {
		if !c.trySend(payload) {
			logging.Warn(h.logger, "client buffer full, disconnecting", logging.FieldClientID, c.ID)
			h.unregisterClient(c)
		}
	}
}

func (h *Hub) shutdown() {
	h.clientsMu.Lock()
	n := len(h.clients)
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
	}
	h.clientsMu.Unlock()

	if n > 0 {
		h.metrics.RecordSubscribers(-n)
	}
	logging.Info(h.logger, "hub stopped", logging.FieldCount, n)
}
