// Package hub is the websocket transport of the room. It keeps one Client
// per open connection, fans encoded events out to them without blocking and
// probes connections for liveness.
package hub

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

const (
	// Time allowed to write a message to the peer.
	writeWait = 10 * time.Second

	defaultSendBuffer     = 256
	defaultMaxMessageSize = 4096
)

// Room is the part of the room the transport drives.
type Room interface {
	Admit(ctx context.Context, connID, identity string)
	Remove(connID string)
	Handle(connID string, raw []byte) error
	Logout(identity string) []string
}

// Options tunes a Hub. Zero values use the defaults.
type Options struct {
	SendBuffer     int
	MaxMessageSize int64
}

// Hub maintains the set of open clients. It implements room.Broadcaster.
type Hub struct {
	room Room
	opts Options

	// clients is guarded by mu. Sends happen under the read lock and a
	// client's send channel is only closed under the write lock.
	clients map[string]*Client
	mu      sync.RWMutex

	log *logrus.Entry
}

// NewHub returns a hub driving room.
func NewHub(room Room, opts Options) *Hub {
	if room == nil {
		panic("hub: room cannot be nil")
	}
	if opts.SendBuffer <= 0 {
		opts.SendBuffer = defaultSendBuffer
	}
	if opts.MaxMessageSize <= 0 {
		opts.MaxMessageSize = defaultMaxMessageSize
	}
	return &Hub{
		room:    room,
		opts:    opts,
		clients: make(map[string]*Client),
		log:     logrus.WithField("component", "hub"),
	}
}

// Serve registers an upgraded connection for identity, admits it to the
// room and starts its pumps. It returns once the init snapshot is queued.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, identity string) *Client {
	client := newClient(h, conn, uuid.NewString(), identity)
	h.register(client)
	h.room.Admit(ctx, client.id, identity)
	client.Run()
	return client
}

func (h *Hub) register(client *Client) {
	h.mu.Lock()
	h.clients[client.id] = client
	n := len(h.clients)
	h.mu.Unlock()
	h.log.WithFields(logrus.Fields{
		"conn_id":  client.id,
		"identity": client.identity,
		"clients":  n,
	}).Info("client registered")
}

// unregister removes client and tells the room. Safe to call twice.
func (h *Hub) unregister(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client.id]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client.id)
	close(client.send)
	h.mu.Unlock()

	h.room.Remove(client.id)
	h.log.WithFields(logrus.Fields{"conn_id": client.id, "identity": client.identity}).Info("client unregistered")
}

// deliver queues msg on client without blocking. Callers hold mu.
func (h *Hub) deliver(client *Client, msg []byte) {
	select {
	case client.send <- msg:
	default:
		h.log.WithFields(logrus.Fields{
			"conn_id":  client.id,
			"identity": client.identity,
		}).Warn("client send channel full, dropping message")
	}
}

// Send queues msg for one connection. The first message a client receives
// is its init snapshot; from then on it also receives broadcasts.
func (h *Hub) Send(connID string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	client, ok := h.clients[connID]
	if !ok {
		return
	}
	client.admitted.Store(true)
	h.deliver(client, msg)
}

// Broadcast queues msg for every admitted connection except exceptConnID.
func (h *Hub) Broadcast(msg []byte, exceptConnID string) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for id, client := range h.clients {
		if id == exceptConnID || !client.admitted.Load() {
			continue
		}
		h.deliver(client, msg)
	}
}

// SendToIdentity queues msg for every admitted connection of identity.
func (h *Hub) SendToIdentity(identity string, msg []byte) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, client := range h.clients {
		if client.identity == identity && client.admitted.Load() {
			h.deliver(client, msg)
		}
	}
}

// Probe checks every client once. A client that has not answered the
// previous probe's ping is closed; the rest are marked pending and pinged.
func (h *Hub) Probe() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	deadline := time.Now().Add(writeWait)
	closed := 0
	for _, c := range clients {
		if !c.alive.Swap(false) {
			c.terminate("liveness probe unanswered")
			closed++
			continue
		}
		if err := c.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
			h.log.WithError(err).WithField("conn_id", c.id).Debug("ping failed")
		}
	}
	if closed > 0 {
		h.log.WithField("closed", closed).Info("closed unresponsive clients")
	}
}

// RunProbe calls Probe every interval until ctx is cancelled.
func (h *Hub) RunProbe(ctx context.Context, interval time.Duration) error {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			h.Probe()
		}
	}
}

// Close closes the given connections. Their read pumps unregister them.
func (h *Hub) Close(connIDs ...string) {
	h.mu.RLock()
	var targets []*Client
	for _, id := range connIDs {
		if c, ok := h.clients[id]; ok {
			targets = append(targets, c)
		}
	}
	h.mu.RUnlock()
	for _, c := range targets {
		c.terminate("closed by server")
	}
}

// Disconnect closes every connection of identity, e.g. on logout.
func (h *Hub) Disconnect(identity string) {
	h.Close(h.room.Logout(identity)...)
}

// Shutdown closes every open connection.
func (h *Hub) Shutdown() {
	h.mu.RLock()
	ids := make([]string, 0, len(h.clients))
	for id := range h.clients {
		ids = append(ids, id)
	}
	h.mu.RUnlock()
	h.Close(ids...)
}

// Len reports the number of open connections.
func (h *Hub) Len() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}
