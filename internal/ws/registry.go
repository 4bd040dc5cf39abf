package ws

import (
	"context"
	"net/http"
	"sync"

	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/pkg/wire"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

// EventHandler receives every decoded inbound frame.
type EventHandler func(connID string, env wire.Envelope)

// DisconnectHandler runs after a connection is removed from the
// registry.
type DisconnectHandler func(connID string)

// Registry tracks live connections and implements the Sender side of
// the matchmaking and match packages.
type Registry struct {
	mu    sync.RWMutex
	conns map[string]*Conn

	onEvent      EventHandler
	onDisconnect DisconnectHandler
}

func NewRegistry() *Registry {
	return &Registry{conns: make(map[string]*Conn)}
}

// OnEvent installs the inbound frame handler. Must be set before the
// registry starts accepting connections.
func (r *Registry) OnEvent(h EventHandler) { r.onEvent = h }

// OnDisconnect installs the disconnect hook.
func (r *Registry) OnDisconnect(h DisconnectHandler) { r.onDisconnect = h }

// ServeHTTP upgrades the request and runs the connection's read loop
// until the peer goes away.
func (r *Registry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	sock, err := websocket.Accept(w, req, &websocket.AcceptOptions{
		// Public matchmaking service: any origin may connect.
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		obslog.L().Warn("ws_accept_error", zap.Error(err))
		return
	}

	c := newConn(uuid.NewString(), sock)
	r.register(c)
	obslog.L().Info("ws_connected", zap.String("conn_id", c.id))

	ctx := req.Context()
	go c.writeLoop(context.WithoutCancel(ctx))
	r.readLoop(ctx, c)

	r.unregister(c)
	c.shutdown(websocket.StatusNormalClosure, "")
	obslog.L().Info("ws_disconnected", zap.String("conn_id", c.id))
	if r.onDisconnect != nil {
		r.onDisconnect(c.id)
	}
}

func (r *Registry) readLoop(ctx context.Context, c *Conn) {
	for {
		var env wire.Envelope
		if err := wsjson.Read(ctx, c.sock, &env); err != nil {
			return
		}
		if env.Event == "" {
			continue
		}
		if r.onEvent != nil {
			r.onEvent(c.id, env)
		}
	}
}

// Send queues an event for the connection. It reports whether the
// connection is currently registered; a full egress buffer still
// counts as delivered-to-live.
func (r *Registry) Send(connID, event string, payload any) bool {
	r.mu.RLock()
	c, ok := r.conns[connID]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	c.enqueue(wire.OutEnvelope{Event: event, Data: payload})
	return true
}

// IsLive reports whether the connection is registered.
func (r *Registry) IsLive(connID string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.conns[connID]
	return ok
}

// Len reports the number of live connections.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

func (r *Registry) register(c *Conn) {
	r.mu.Lock()
	r.conns[c.id] = c
	r.mu.Unlock()
}

func (r *Registry) unregister(c *Conn) {
	r.mu.Lock()
	delete(r.conns, c.id)
	r.mu.Unlock()
}
