package notify

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"service-dispatch/internal/logx"
)

// ErrNotConnected means the courier has no live websocket session.
var ErrNotConnected = errors.New("courier not connected")

const writeTimeout = 5 * time.Second

// Registry tracks one live websocket session per courier.
type Registry struct {
	mu    sync.RWMutex
	conns map[int64]*websocket.Conn
	log   logx.Logger
}

// NewRegistry creates an empty session registry.
func NewRegistry(log logx.Logger) *Registry {
	return &Registry{
		conns: make(map[int64]*websocket.Conn),
		log:   log,
	}
}

// Register stores the courier's session, closing any previous one.
func (r *Registry) Register(courierID int64, conn *websocket.Conn) {
	r.mu.Lock()
	prev := r.conns[courierID]
	r.conns[courierID] = conn
	r.mu.Unlock()

	if prev != nil {
		_ = prev.Close()
		r.log.Debug("replaced websocket session", logx.Int64("courier_id", courierID))
	}
}

// Unregister drops the session, but only if conn is still the current one.
func (r *Registry) Unregister(courierID int64, conn *websocket.Conn) {
	r.mu.Lock()
	if r.conns[courierID] == conn {
		delete(r.conns, courierID)
	}
	r.mu.Unlock()
}

// Push sends the message over the courier's session. A write failure drops
// the session so the next push falls back to the notification topic.
func (r *Registry) Push(_ context.Context, courierID int64, msg Message) error {
	r.mu.RLock()
	conn := r.conns[courierID]
	r.mu.RUnlock()

	if conn == nil {
		return ErrNotConnected
	}

	_ = conn.SetWriteDeadline(time.Now().Add(writeTimeout))
	if err := conn.WriteJSON(msg); err != nil {
		r.Unregister(courierID, conn)
		_ = conn.Close()
		return err
	}
	return nil
}

// Connected reports whether the courier currently has a session.
func (r *Registry) Connected(courierID int64) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.conns[courierID] != nil
}
