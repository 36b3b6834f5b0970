package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"navalwar/internal/app"
	"navalwar/internal/domain"

	"github.com/gorilla/websocket"
	"github.com/heroiclabs/nakama-common/runtime"
	"golang.org/x/time/rate"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 8192
	sendQueueSize  = 64
)

var ErrSendQueueFull = errors.New("send queue full")

// frame is the {type, data} envelope written to the socket.
type frame struct {
	Type app.EventKind `json:"type"`
	Data any           `json:"data"`
}

// client is one websocket seated in a match. It implements app.Conn.
type client struct {
	id      string
	player  domain.Player
	conn    *websocket.Conn
	session *app.Session
	limiter *rate.Limiter
	logger  runtime.Logger

	send      chan app.Event
	closeOnce sync.Once
}

func (c *client) ID() string            { return c.id }
func (c *client) Player() domain.Player { return c.player }

// Send queues ev for the write pump and drops it when the client is too slow.
// The session calls it under its lock, and close only runs after Detach.
func (c *client) Send(ev app.Event) error {
	select {
	case c.send <- ev:
		return nil
	default:
		return ErrSendQueueFull
	}
}

func (c *client) close() {
	c.closeOnce.Do(func() { close(c.send) })
}

// readPump decodes incoming frames and hands them to the session until the socket fails.
func (c *client) readPump(ctx context.Context) {
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				c.logger.Warn("conn %s: read failed: %v", c.id, err)
			}
			return
		}
		if !c.limiter.Allow() {
			c.session.Reject(c, "", app.ErrRateLimited)
			continue
		}
		action, err := app.DecodeEnvelope(raw)
		if err != nil {
			c.session.Reject(c, action.Kind, err)
			continue
		}
		if err := c.session.Handle(ctx, c, action); err != nil {
			c.logger.Debug("conn %s: %s rejected: %v", c.id, action.Kind, err)
		}
	}
}

// writePump drains the send queue and keeps the connection alive with pings.
func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case ev, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			data, err := json.Marshal(frame{Type: ev.Kind, Data: ev.Payload})
			if err != nil {
				c.logger.Error("conn %s: failed to encode %s: %v", c.id, ev.Kind, err)
				continue
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
