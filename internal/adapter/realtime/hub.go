// Package realtime pushes per-user events (new messages, booking updates, tier
// changes) to open websocket connections on this instance.
package realtime

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"sync"

	"github.com/CerisonAutomation/FYKBEST-sub001/internal/adapter/metrics"
	"github.com/CerisonAutomation/FYKBEST-sub001/internal/domain"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/jonboulle/clockwork"
)

const MaxConnectionsPerUser = 5

var (
	ErrTooManyConnections = errors.New("too many realtime connections")
	ErrHubClosed          = errors.New("realtime hub closed")
)

type Hub struct {
	mu       sync.Mutex
	conns    map[uuid.UUID]map[*clientWriter]struct{}
	total    int
	maxTotal int
	closed   bool

	upgrader websocket.Upgrader
	clock    clockwork.Clock
	metrics  *metrics.RealtimeMetrics
}

var _ domain.Notifier = (*Hub)(nil)

// NewHub creates a hub. maxTotal <= 0 disables the global connection cap; m may be nil.
func NewHub(checkOrigin func(*http.Request) bool, maxTotal int, m *metrics.RealtimeMetrics, clock clockwork.Clock) *Hub {
	return &Hub{
		conns:    make(map[uuid.UUID]map[*clientWriter]struct{}),
		maxTotal: maxTotal,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 4096,
			CheckOrigin:     checkOrigin,
		},
		clock:   clock,
		metrics: m,
	}
}

// Serve upgrades the request and blocks until the connection closes.
// Limits are checked before the upgrade so rejected clients get a plain HTTP error.
func (h *Hub) Serve(w http.ResponseWriter, r *http.Request, userID uuid.UUID) error {
	if err := h.admit(userID); err != nil {
		return err
	}

	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.release()
		return fmt.Errorf("websocket upgrade: %w", err)
	}

	cw := newClientWriter(conn, h.clock)
	if !h.register(userID, cw) {
		cw.stop()
		h.release()
		return ErrHubClosed
	}
	slog.Debug("Realtime client connected", "user_id", userID)

	cw.readUntilClosed()

	h.unregister(userID, cw)
	cw.stop()
	slog.Debug("Realtime client disconnected", "user_id", userID)
	return nil
}

// admit reserves a connection slot.
func (h *Hub) admit(userID uuid.UUID) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return ErrHubClosed
	}
	if len(h.conns[userID]) >= MaxConnectionsPerUser {
		return ErrTooManyConnections
	}
	if h.maxTotal > 0 && h.total >= h.maxTotal {
		return ErrTooManyConnections
	}
	h.total++
	return nil
}

func (h *Hub) release() {
	h.mu.Lock()
	h.total--
	h.mu.Unlock()
}

func (h *Hub) register(userID uuid.UUID, cw *clientWriter) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.closed {
		return false
	}
	set, ok := h.conns[userID]
	if !ok {
		set = make(map[*clientWriter]struct{})
		h.conns[userID] = set
	}
	set[cw] = struct{}{}
	if h.metrics != nil {
		h.metrics.ActiveConnections.Inc()
	}
	return true
}

func (h *Hub) unregister(userID uuid.UUID, cw *clientWriter) {
	h.mu.Lock()
	defer h.mu.Unlock()

	set := h.conns[userID]
	if _, ok := set[cw]; !ok {
		return
	}
	delete(set, cw)
	if len(set) == 0 {
		delete(h.conns, userID)
	}
	h.total--
	if h.metrics != nil {
		h.metrics.ActiveConnections.Dec()
	}
}

// Publish queues ev on every connection of userID. It never blocks: a
// connection whose buffer is full misses the event.
func (h *Hub) Publish(userID uuid.UUID, ev domain.RealtimeEvent) {
	msg, err := json.Marshal(ev)
	if err != nil {
		slog.Error("Failed to marshal realtime event", "type", ev.Type, "error", err)
		return
	}

	h.mu.Lock()
	writers := make([]*clientWriter, 0, len(h.conns[userID]))
	for cw := range h.conns[userID] {
		writers = append(writers, cw)
	}
	h.mu.Unlock()

	for _, cw := range writers {
		if cw.enqueue(msg) {
			if h.metrics != nil {
				h.metrics.EventsPublished.WithLabelValues(ev.Type).Inc()
			}
			continue
		}
		if h.metrics != nil {
			h.metrics.EventsDropped.Inc()
		}
		slog.Warn("Realtime event dropped", "user_id", userID, "type", ev.Type)
	}
}

func (h *Hub) Connections(userID uuid.UUID) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns[userID])
}

// IsOnline reports whether the user has at least one open connection here.
func (h *Hub) IsOnline(userID uuid.UUID) bool {
	return h.Connections(userID) > 0
}

// Close sends a close frame to every connection and rejects new ones.
func (h *Hub) Close() {
	h.mu.Lock()
	h.closed = true
	var writers []*clientWriter
	for _, set := range h.conns {
		for cw := range set {
			writers = append(writers, cw)
		}
	}
	h.mu.Unlock()

	for _, cw := range writers {
		cw.stopGraceful("server shutting down")
	}
}
