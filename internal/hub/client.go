package hub

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// Client is one websocket connection of an identity.
type Client struct {
	hub      *Hub
	conn     *websocket.Conn
	id       string
	identity string
	send     chan []byte

	// alive is set by every pong and cleared by every probe.
	alive    atomic.Bool
	admitted atomic.Bool
	once     sync.Once
	log      *logrus.Entry
}

func newClient(h *Hub, conn *websocket.Conn, id, identity string) *Client {
	c := &Client{
		hub:      h,
		conn:     conn,
		id:       id,
		identity: identity,
		send:     make(chan []byte, h.opts.SendBuffer),
		log:      logrus.WithFields(logrus.Fields{"conn_id": id, "identity": identity}),
	}
	c.alive.Store(true)
	return c
}

// ID returns the connection id.
func (c *Client) ID() string { return c.id }

// Identity returns the identity the connection was admitted for.
func (c *Client) Identity() string { return c.identity }

// Run starts the read and write pumps.
func (c *Client) Run() {
	go c.WritePump()
	go c.ReadPump()
}

// ReadPump hands every text frame to the room, in order, until the
// connection fails. It then unregisters the client.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
		c.log.Debug("read pump exited")
	}()

	c.conn.SetReadLimit(c.hub.opts.MaxMessageSize)
	c.conn.SetPongHandler(func(string) error {
		c.alive.Store(true)
		return nil
	})

	for {
		messageType, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseNoStatusReceived) {
				c.log.WithError(err).Warn("websocket read error")
			} else {
				c.log.Debug("websocket closed")
			}
			return
		}
		if messageType != websocket.TextMessage {
			c.log.Debugf("ignoring non-text message type %d", messageType)
			continue
		}
		if err := c.hub.room.Handle(c.id, message); err != nil {
			c.log.WithError(err).Debug("event not applied")
		}
	}
}

// WritePump writes queued messages to the connection until the hub closes
// the send channel or a write fails.
func (c *Client) WritePump() {
	defer func() {
		c.conn.Close()
		c.log.Debug("write pump exited")
	}()

	for message := range c.send {
		_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
			c.log.WithError(err).Warn("failed to write message to websocket")
			return
		}
	}
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
}

// terminate sends a close frame and drops the connection. The read pump
// notices and unregisters the client.
func (c *Client) terminate(reason string) {
	c.once.Do(func() {
		msg := websocket.FormatCloseMessage(websocket.CloseNormalClosure, reason)
		_ = c.conn.WriteControl(websocket.CloseMessage, msg, time.Now().Add(writeWait))
		_ = c.conn.Close()
		c.log.WithField("reason", reason).Info("connection terminated")
	})
}
