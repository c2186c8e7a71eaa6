package relay

import (
	"errors"
	"log/slog"
	"time"

	"github.com/gorilla/websocket"

	"github.com/typewire-dev/typewire/pkg/protocol"
	"github.com/typewire-dev/typewire/pkg/telemetry"
)

// conn is one WebSocket connection to the hub.
type conn struct {
	id   string
	ws   *websocket.Conn
	hub  *Hub
	send chan []byte // closed by the hub

	// Owned by the hub's Run goroutine.
	participant uint32
	hasID       bool

	logger *slog.Logger
}

// enqueue queues frame without blocking and reports whether it fit.
// Only the hub calls enqueue.
func (c *conn) enqueue(frame []byte) bool {
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

// readLoop parses client frames and hands them to the hub until the
// connection fails. It then tells the hub, behind the frames already sent.
func (c *conn) readLoop() {
	defer func() {
		select {
		case c.hub.inbound <- inbound{conn: c, closed: true}:
		case <-c.hub.done:
		}
	}()

	c.ws.SetReadLimit(int64(c.hub.cfg.MaxFrameSize))
	for {
		mt, msg, err := c.ws.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err,
				websocket.CloseGoingAway,
				websocket.CloseAbnormalClosure,
				websocket.CloseNormalClosure) {
				c.logger.Warn("read error", "error", err)
			}
			return
		}
		if mt != websocket.BinaryMessage {
			continue
		}

		cf, err := protocol.ParseClientFrame(msg)
		if err != nil {
			reason := telemetry.DropMalformed
			if errors.Is(err, protocol.ErrUnknownTag) {
				reason = telemetry.DropUnknownTag
			}
			c.hub.metrics.RecordDropped(reason)
			c.logger.Debug("client frame dropped", "error", err)
			continue
		}

		select {
		case c.hub.inbound <- inbound{conn: c, frame: cf}:
		case <-c.hub.done:
			return
		}
	}
}

// writeLoop drains the send queue. When the hub closes the queue it sends a
// close message and closes the connection.
func (c *conn) writeLoop() {
	defer c.ws.Close()

	timeout := c.hub.cfg.WriteTimeout
	for frame := range c.send {
		c.ws.SetWriteDeadline(time.Now().Add(timeout))
		if err := c.ws.WriteMessage(websocket.BinaryMessage, frame); err != nil {
			c.logger.Debug("write error", "error", err)
			return
		}
	}

	c.ws.WriteControl(
		websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
		time.Now().Add(time.Second),
	)
}
