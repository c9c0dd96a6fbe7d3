package server

import (
	"context"
	"net/http"
	"net/url"
	"sync"
	"time"

	"github.com/coder/websocket"

	"github.com/srcserve/srcserve/internal/logging"
)

const (
	// Time allowed to write a message to a client.
	writeWait = 10 * time.Second

	// Send pings to clients with this period.
	pingPeriod = 54 * time.Second
)

// reloadMessage is broadcast to connected clients after a change batch.
var reloadMessage = []byte(`{"type":"reload"}`)

// ReloadHub fans reload notifications out to connected websocket clients.
type ReloadHub struct {
	allowedOrigins map[string]struct{}
	clients        map[*websocket.Conn]chan []byte
	mutex          sync.RWMutex
	logger         logging.Logger
}

// NewReloadHub creates a hub accepting connections from the given
// origin hosts. Origins without a port match any port on that host.
func NewReloadHub(allowedOrigins []string, logger logging.Logger) *ReloadHub {
	origins := make(map[string]struct{}, len(allowedOrigins))
	for _, origin := range allowedOrigins {
		origins[origin] = struct{}{}
	}

	return &ReloadHub{
		allowedOrigins: origins,
		clients:        make(map[*websocket.Conn]chan []byte),
		logger:         logger.WithComponent("reload"),
	}
}

// HandleWebSocket upgrades the request and serves the client until it
// disconnects or the request context ends.
func (h *ReloadHub) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	if !h.checkOrigin(r) {
		http.Error(w, "origin not allowed", http.StatusForbidden)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		InsecureSkipVerify: true, // Origin already validated above.
	})
	if err != nil {
		h.logger.Warn(r.Context(), err, "websocket upgrade failed")
		return
	}

	send := make(chan []byte, 16)
	h.mutex.Lock()
	h.clients[conn] = send
	count := len(h.clients)
	h.mutex.Unlock()
	h.logger.Debug(r.Context(), "client connected", "clients", count)

	defer func() {
		h.mutex.Lock()
		delete(h.clients, conn)
		h.mutex.Unlock()
		conn.Close(websocket.StatusNormalClosure, "")
	}()

	h.serveClient(r.Context(), conn, send)
}

func (h *ReloadHub) serveClient(ctx context.Context, conn *websocket.Conn, send chan []byte) {
	// Reads are drained so control frames get processed; clients are not
	// expected to send data.
	readDone := make(chan struct{})
	go func() {
		defer close(readDone)
		for {
			if _, _, err := conn.Read(ctx); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingPeriod)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-readDone:
			return
		case message := <-send:
			writeCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Write(writeCtx, websocket.MessageText, message)
			cancel()
			if err != nil {
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, writeWait)
			err := conn.Ping(pingCtx)
			cancel()
			if err != nil {
				return
			}
		}
	}
}

// Broadcast queues a reload notification for every connected client.
// Slow clients are skipped rather than blocking the caller.
func (h *ReloadHub) Broadcast() {
	h.mutex.RLock()
	defer h.mutex.RUnlock()

	for _, send := range h.clients {
		select {
		case send <- reloadMessage:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *ReloadHub) ClientCount() int {
	h.mutex.RLock()
	defer h.mutex.RUnlock()
	return len(h.clients)
}

// checkOrigin validates the Origin header against the allowed list.
func (h *ReloadHub) checkOrigin(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return false
	}

	originURL, err := url.Parse(origin)
	if err != nil {
		return false
	}
	if originURL.Scheme != "http" && originURL.Scheme != "https" {
		return false
	}

	if _, ok := h.allowedOrigins[originURL.Host]; ok {
		return true
	}
	if _, ok := h.allowedOrigins[originURL.Hostname()]; ok {
		return true
	}
	return false
}
