package ws

import (
	"context"
	"sync"
	"time"

	"github.com/backgammon-arena/server/internal/obslog"
	"github.com/backgammon-arena/server/pkg/wire"
	"go.uber.org/zap"
	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const (
	sendBuffer   = 64
	writeTimeout = 5 * time.Second
)

// Conn is one live client connection. Outbound frames go through the
// buffered egress channel so senders never block on a slow peer.
type Conn struct {
	id   string
	sock *websocket.Conn

	egress    chan wire.OutEnvelope
	closeOnce sync.Once
	closed    chan struct{}
}

func newConn(id string, sock *websocket.Conn) *Conn {
	return &Conn{
		id:     id,
		sock:   sock,
		egress: make(chan wire.OutEnvelope, sendBuffer),
		closed: make(chan struct{}),
	}
}

// ID returns the connection id assigned at accept time.
func (c *Conn) ID() string { return c.id }

func (c *Conn) enqueue(env wire.OutEnvelope) bool {
	select {
	case <-c.closed:
		return false
	default:
	}
	select {
	case c.egress <- env:
		return true
	default:
		// A full buffer means the peer stopped draining; drop the
		// frame rather than stall every other match on this process.
		obslog.L().Warn("ws_egress_full", zap.String("conn_id", c.id), zap.String("event", env.Event))
		return false
	}
}

func (c *Conn) writeLoop(ctx context.Context) {
	for {
		select {
		case <-c.closed:
			return
		case env := <-c.egress:
			wctx, cancel := context.WithTimeout(ctx, writeTimeout)
			err := wsjson.Write(wctx, c.sock, env)
			cancel()
			if err != nil {
				c.shutdown(websocket.StatusGoingAway, "write failure")
				return
			}
		}
	}
}

func (c *Conn) shutdown(code websocket.StatusCode, reason string) {
	c.closeOnce.Do(func() {
		close(c.closed)
		_ = c.sock.Close(code, reason)
	})
}
