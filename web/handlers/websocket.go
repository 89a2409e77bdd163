package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/url"
	"path"
	"sync"
	"time"

	"go.uber.org/zap"
	"nhooyr.io/websocket" //nolint:staticcheck // TODO: migrate to github.com/coder/websocket

	"github.com/mangomango3x/Discord-fact-check/internal/detector"
	"github.com/mangomango3x/Discord-fact-check/internal/logging"
)

// Envelope is the frame sent to feed subscribers.
type Envelope struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// AlertHub fans alerts out to connected websocket clients. It implements
// detector.AlertSink.
type AlertHub struct {
	clients    map[clientInterface]bool
	broadcast  chan interface{}
	register   chan clientInterface
	unregister chan clientInterface
	mu         sync.RWMutex
	ctx        context.Context
	cancel     context.CancelFunc

	originPatterns []string
	logger         *zap.Logger
}

// clientInterface allows for both real clients and mock clients.
type clientInterface interface {
	getSendChannel() chan []byte
	close()
}

// Client represents a WebSocket connection.
type Client struct {
	hub  *AlertHub
	conn *websocket.Conn //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	send chan []byte
}

func (c *Client) getSendChannel() chan []byte {
	return c.send
}

func (c *Client) close() {
	if c.conn != nil {
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}
}

// NewAlertHub creates a hub. originPatterns are host patterns (path.Match
// syntax) accepted in the Origin header besides the request's own host.
func NewAlertHub(originPatterns []string, logger *zap.Logger) *AlertHub {
	ctx, cancel := context.WithCancel(context.Background())
	return &AlertHub{
		clients:        make(map[clientInterface]bool),
		broadcast:      make(chan interface{}, 256),
		register:       make(chan clientInterface),
		unregister:     make(chan clientInterface),
		ctx:            ctx,
		cancel:         cancel,
		originPatterns: originPatterns,
		logger:         logging.OrNop(logger),
	}
}

// Run starts the hub's message processing loop.
func (h *AlertHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("alert feed client connected", zap.Int("clients", count))

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client.getSendChannel())
			}
			count := len(h.clients)
			h.mu.Unlock()
			h.logger.Debug("alert feed client disconnected", zap.Int("clients", count))

		case message := <-h.broadcast:
			data, err := json.Marshal(message)
			if err != nil {
				h.logger.Error("alert feed: marshal failed", zap.Error(err))
				continue
			}

			// Full lock: slow clients are dropped from the map.
			h.mu.Lock()
			for client := range h.clients {
				sendChan := client.getSendChannel()
				select {
				case sendChan <- data:
				default:
					close(sendChan)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()

		case <-h.ctx.Done():
			return
		}
	}
}

// Stop gracefully shuts down the hub.
func (h *AlertHub) Stop() {
	h.cancel()

	h.mu.Lock()
	for client := range h.clients {
		close(client.getSendChannel())
		client.close()
	}
	h.clients = make(map[clientInterface]bool)
	h.mu.Unlock()
}

// Broadcast sends a message to all connected clients. It never blocks;
// when the queue is full the message is dropped.
func (h *AlertHub) Broadcast(message interface{}) {
	select {
	case h.broadcast <- message:
	default:
		h.logger.Warn("alert feed: broadcast queue full, dropping message")
	}
}

// Publish implements detector.AlertSink.
func (h *AlertHub) Publish(alert detector.Alert) {
	h.Broadcast(Envelope{Type: "alert", Data: alert})
}

// Register adds a client to the hub.
func (h *AlertHub) Register(client clientInterface) {
	select {
	case h.register <- client:
	case <-h.ctx.Done():
	}
}

// Unregister removes a client from the hub.
func (h *AlertHub) Unregister(client clientInterface) {
	select {
	case h.unregister <- client:
	case <-h.ctx.Done():
	}
}

// ServeHTTP handles WebSocket upgrade requests.
func (h *AlertHub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if origin := r.Header.Get("Origin"); origin != "" && !h.originAllowed(origin, r.Host) {
		http.Error(w, "Forbidden: invalid origin", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{ //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		OriginPatterns: h.originPatterns,
	})
	if err != nil {
		h.logger.Warn("alert feed: upgrade failed", zap.Error(err))
		return
	}

	client := &Client{
		hub:  h,
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.Register(client)

	go client.writePump()
	go client.readPump()
}

func (h *AlertHub) originAllowed(origin, host string) bool {
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if u.Host == host {
		return true
	}
	for _, pattern := range h.originPatterns {
		if ok, _ := path.Match(pattern, u.Host); ok {
			return true
		}
	}
	return false
}

// writePump sends messages to the WebSocket connection.
func (c *Client) writePump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}()

	for message := range c.send {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		err := c.conn.Write(ctx, websocket.MessageText, message) //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
		cancel()

		if err != nil {
			c.hub.logger.Debug("alert feed: write failed", zap.Error(err))
			return
		}
	}
}

// readPump drains client frames to detect disconnection. The feed is
// one-way.
func (c *Client) readPump() {
	defer func() {
		c.hub.Unregister(c)
		_ = c.conn.Close(websocket.StatusNormalClosure, "") //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
	}()

	for {
		if _, _, err := c.conn.Read(c.hub.ctx); err != nil { //nolint:staticcheck // TODO: migrate to github.com/coder/websocket
			return
		}
	}
}

// MockClient is a mock client for testing.
type MockClient struct {
	SendChan chan []byte
}

func (m *MockClient) getSendChannel() chan []byte {
	return m.SendChan
}

func (m *MockClient) close() {}
