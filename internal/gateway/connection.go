package gateway

import (
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// Connection is one WebSocket client. It implements game.Conn.
type Connection struct {
	id       string
	username string
	conn     *websocket.Conn
	send     chan []byte
	manager  *Manager

	connectedAt time.Time
	closed      atomic.Bool
}

// ID returns the connection identifier, which doubles as the player id.
func (c *Connection) ID() string {
	return c.id
}

// Username returns the display name supplied at connect time.
func (c *Connection) Username() string {
	return c.username
}

// Connected reports whether the transport is still up.
func (c *Connection) Connected() bool {
	return !c.closed.Load()
}

func (c *Connection) close() {
	if c.closed.CompareAndSwap(false, true) && c.conn != nil {
		c.conn.Close()
	}
}

// writePump sends queued frames and periodic pings to the client.
func (c *Connection) writePump() {
	ticker := time.NewTicker(c.manager.config.PingInterval)
	defer func() {
		ticker.Stop()
		c.close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if !ok {
				// Manager closed the channel.
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("write failed")
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.config.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				log.Debug().Err(err).Str("connection_id", c.id).Msg("ping failed")
				return
			}
		}
	}
}

// readPump reads client frames and dispatches them until the connection
// drops, then runs disconnect reconciliation.
func (c *Connection) readPump() {
	defer func() {
		c.close()
		c.manager.unregister(c)
		c.manager.router.HandleDisconnect(c)
	}()

	c.conn.SetReadLimit(c.manager.config.MaxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				log.Warn().Err(err).Str("connection_id", c.id).Msg("unexpected close")
			}
			return
		}
		c.manager.router.Dispatch(c, message)
		c.conn.SetReadDeadline(time.Now().Add(c.manager.config.ReadTimeout))
	}
}
