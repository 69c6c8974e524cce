// Package preview pushes the working content document to live-preview
// clients over WebSocket.
package preview

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	content "github.com/goliatone/go-content"
	"github.com/gorilla/websocket"
)

const writeTimeout = 5 * time.Second

// Source provides the document and its changes. *content.Editor satisfies it.
type Source interface {
	GetDocument() content.Document
	Subscribe(fn func(content.Document)) func()
}

// Message is what clients receive.
type Message struct {
	Type     string          `json:"type"`
	Document json.RawMessage `json:"document,omitempty"`
}

// Option configures a Hub.
type Option func(*Hub)

// WithLogger reports upgrade and write failures.
func WithLogger(logger content.Logger) Option {
	return func(h *Hub) {
		if logger != nil {
			h.logger = logger
		}
	}
}

// WithCheckOrigin restricts which origins may connect. All origins are
// accepted by default.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(h *Hub) {
		h.upgrader.CheckOrigin = check
	}
}

// Hub serves /ws for live clients and /document for one-off reads.
type Hub struct {
	source      Source
	logger      content.Logger
	upgrader    websocket.Upgrader
	unsubscribe func()

	mu      sync.Mutex
	clients []*wsClient
	closed  bool
}

type wsClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

// NewHub subscribes to source and returns a hub broadcasting its changes.
func NewHub(source Source, opts ...Option) *Hub {
	h := &Hub{
		source: source,
		logger: content.LoggerFunc(nil),
		upgrader: websocket.Upgrader{
			CheckOrigin: func(r *http.Request) bool { return true },
		},
	}
	for _, opt := range opts {
		if opt != nil {
			opt(h)
		}
	}
	h.unsubscribe = source.Subscribe(h.Broadcast)
	return h
}

func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/ws":
		h.handleWebSocket(w, r)
	case "/document":
		data, err := h.source.GetDocument().MarshalJSON()
		if err != nil {
			http.Error(w, "document unavailable", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(data)
	default:
		http.NotFound(w, r)
	}
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.clients)
}

// Broadcast sends doc to every connected client.
func (h *Hub) Broadcast(doc content.Document) {
	msg, err := encode(doc)
	if err != nil {
		h.log(content.LevelError, "encode preview document", err)
		return
	}
	h.mu.Lock()
	clients := append([]*wsClient(nil), h.clients...)
	h.mu.Unlock()

	for _, c := range clients {
		if err := c.write(msg); err != nil {
			h.log(content.LevelWarn, "preview write failed", err)
		}
	}
}

// Close stops following the source and disconnects every client.
func (h *Hub) Close() error {
	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		return nil
	}
	h.closed = true
	clients := h.clients
	h.clients = nil
	h.mu.Unlock()

	h.unsubscribe()
	for _, c := range clients {
		c.conn.Close()
	}
	return nil
}

func (h *Hub) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log(content.LevelWarn, "websocket upgrade", err)
		return
	}
	client := &wsClient{conn: conn}

	h.mu.Lock()
	if h.closed {
		h.mu.Unlock()
		conn.Close()
		return
	}
	h.clients = append(h.clients, client)
	h.mu.Unlock()

	defer func() {
		conn.Close()
		h.remove(client)
	}()

	msg, err := encode(h.source.GetDocument())
	if err != nil {
		h.log(content.LevelError, "encode preview document", err)
		return
	}
	if err := client.write(msg); err != nil {
		return
	}

	// Clients only listen; reading keeps control frames flowing and notices
	// disconnects.
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (h *Hub) remove(client *wsClient) {
	h.mu.Lock()
	defer h.mu.Unlock()
	for i, c := range h.clients {
		if c == client {
			h.clients = append(h.clients[:i], h.clients[i+1:]...)
			return
		}
	}
}

func (h *Hub) log(level content.LogLevel, message string, err error) {
	h.logger.Log(content.LogEvent{Level: level, Message: message, Err: err, Time: time.Now()})
}

func (c *wsClient) write(msg []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, msg)
}

func encode(doc content.Document) ([]byte, error) {
	data, err := doc.MarshalJSON()
	if err != nil {
		return nil, err
	}
	return json.Marshal(Message{Type: "document", Document: data})
}
