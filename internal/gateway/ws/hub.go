package ws

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/coder/websocket"

	"github.com/dohr-michael/dbtsel/internal/events"
)

// RequestHandler answers a request frame for a session.
type RequestHandler func(ctx context.Context, sessionID string, method Method, params json.RawMessage) (any, error)

// Client represents a connected WebSocket client bound to one session.
type Client struct {
	conn      *websocket.Conn
	send      chan []byte
	events    <-chan events.Event
	sessionID string
	hub       *Hub
}

// Hub manages WebSocket clients. Each client receives the events of its own
// session only.
type Hub struct {
	mu      sync.RWMutex
	clients map[*Client]struct{}
	bus     *events.Bus
	handle  RequestHandler
}

// NewHub creates a new WebSocket hub connected to an event bus.
func NewHub(bus *events.Bus, handle RequestHandler) *Hub {
	return &Hub{
		clients: make(map[*Client]struct{}),
		bus:     bus,
		handle:  handle,
	}
}

// register adds a client to the hub.
func (h *Hub) register(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
	slog.Info("ws client connected", "session", c.sessionID, "clients", len(h.clients))
}

// unregister removes a client from the hub.
func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		slog.Info("ws client disconnected", "session", c.sessionID, "clients", len(h.clients))
	}
}

// ServeSession handles a WebSocket upgrade for sessionID and manages the
// client lifecycle.
func (h *Hub) ServeSession(w http.ResponseWriter, r *http.Request, sessionID string) {
	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Allow any origin for dev
	})
	if err != nil {
		slog.Error("ws accept", "error", err)
		return
	}

	ch, unsubscribe := h.bus.SubscribeSession(sessionID, 64)
	defer unsubscribe()

	client := &Client{
		conn:      conn,
		send:      make(chan []byte, 256),
		events:    ch,
		sessionID: sessionID,
		hub:       h,
	}

	h.register(client)

	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()
	go client.writePump(ctx)
	client.readPump(ctx)
}

// readPump reads frames from the WS connection and dispatches them.
func (c *Client) readPump(ctx context.Context) {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close(websocket.StatusNormalClosure, "")
	}()

	for {
		_, data, err := c.conn.Read(ctx)
		if err != nil {
			if websocket.CloseStatus(err) != -1 {
				slog.Debug("ws read closed", "status", websocket.CloseStatus(err))
			} else {
				slog.Debug("ws read error", "error", err)
			}
			return
		}

		frame, err := UnmarshalFrame(data)
		if err != nil {
			slog.Error("ws unmarshal frame", "error", err)
			continue
		}

		c.handleFrame(ctx, frame)
	}
}

// handleFrame processes an incoming WS frame.
func (c *Client) handleFrame(ctx context.Context, frame Frame) {
	if frame.Type != FrameTypeRequest {
		slog.Debug("ws unknown frame type", "type", frame.Type)
		return
	}
	method := Method(frame.Method)
	if !method.Valid() {
		c.reply(frame.ID, false, nil, "unknown method "+strconv.Quote(frame.Method))
		return
	}
	payload, err := c.hub.handle(ctx, c.sessionID, method, frame.Params)
	if err != nil {
		c.reply(frame.ID, false, nil, err.Error())
		return
	}
	c.reply(frame.ID, true, payload, "")
}

// writePump writes session events and queued responses to the connection.
func (c *Client) writePump(ctx context.Context) {
	for {
		select {
		case e, ok := <-c.events:
			if !ok {
				return
			}
			f, err := NewEventFrame(string(e.Type), e.SessionID, e)
			if err != nil {
				slog.Error("marshal event frame", "error", err)
				continue
			}
			data, err := MarshalFrame(f)
			if err != nil {
				slog.Error("marshal frame", "error", err)
				continue
			}
			if err := c.conn.Write(ctx, websocket.MessageText, data); err != nil {
				return
			}
		case msg := <-c.send:
			if err := c.conn.Write(ctx, websocket.MessageText, msg); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

func (c *Client) reply(id string, ok bool, payload any, errMsg string) {
	f, err := NewResponseFrame(id, ok, payload, errMsg)
	if err != nil {
		slog.Error("marshal response frame", "error", err)
		return
	}
	data, err := MarshalFrame(f)
	if err != nil {
		return
	}
	select {
	case c.send <- data:
	default:
		// Client too slow, skip
	}
}

// Close shuts down all client connections.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close(websocket.StatusGoingAway, "server shutdown")
		delete(h.clients, c)
	}
}

// CloseSession disconnects the clients bound to sessionID and returns how
// many were closed. The close handshakes finish in the background.
func (h *Hub) CloseSession(sessionID string) int {
	h.mu.Lock()
	var closing []*Client
	for c := range h.clients {
		if c.sessionID == sessionID {
			closing = append(closing, c)
			delete(h.clients, c)
		}
	}
	h.mu.Unlock()

	for _, c := range closing {
		go c.conn.Close(websocket.StatusNormalClosure, "session closed")
	}
	return len(closing)
}

// Clients returns the number of connected clients.
func (h *Hub) Clients() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
