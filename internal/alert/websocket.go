package alert

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/coder/websocket"
)

// writeTimeout bounds how long a single client's broadcast write may take
// before it's treated as dead and dropped.
const writeTimeout = 5 * time.Second

// WebsocketAdapter fans out alerts to every currently-connected websocket
// client. It's the one concrete DeliveryAdapter this module ships; the
// dashboard consuming it is out of scope.
type WebsocketAdapter struct {
	logger *slog.Logger

	mu    sync.Mutex
	conns map[*websocket.Conn]struct{}
}

// NewWebsocketAdapter constructs an adapter with no connected clients yet.
func NewWebsocketAdapter(logger *slog.Logger) *WebsocketAdapter {
	return &WebsocketAdapter{
		logger: logger,
		conns:  make(map[*websocket.Conn]struct{}),
	}
}

// Handler upgrades an incoming HTTP request to a websocket connection and
// keeps it registered for broadcast until the client disconnects.
func (w *WebsocketAdapter) Handler(rw http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(rw, r, nil)
	if err != nil {
		w.logger.Warn("websocket accept failed", "error", err)
		return
	}

	w.register(c)
	defer w.unregister(c)

	// The connection is read-only from the client's perspective; block on
	// reads purely to detect close/disconnect.
	for {
		if _, _, err := c.Read(r.Context()); err != nil {
			c.Close(websocket.StatusNormalClosure, "")
			return
		}
	}
}

func (w *WebsocketAdapter) register(c *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.conns[c] = struct{}{}
}

func (w *WebsocketAdapter) unregister(c *websocket.Conn) {
	w.mu.Lock()
	defer w.mu.Unlock()
	delete(w.conns, c)
}

// Deliver broadcasts alert as JSON to every connected client. A client that
// fails to accept the write within writeTimeout is dropped; one slow or dead
// client never blocks delivery to the others.
func (w *WebsocketAdapter) Deliver(a Alert) error {
	payload, err := json.Marshal(a)
	if err != nil {
		return err
	}

	w.mu.Lock()
	targets := make([]*websocket.Conn, 0, len(w.conns))
	for c := range w.conns {
		targets = append(targets, c)
	}
	w.mu.Unlock()

	for _, c := range targets {
		ctx, cancel := context.WithTimeout(context.Background(), writeTimeout)
		err := c.Write(ctx, websocket.MessageText, payload)
		cancel()
		if err != nil {
			w.logger.Warn("websocket client write failed, dropping", "error", err)
			c.Close(websocket.StatusInternalError, "write failed")
			w.unregister(c)
		}
	}

	return nil
}
