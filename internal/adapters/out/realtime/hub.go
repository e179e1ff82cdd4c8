// Package realtime pushes lifecycle messages to websocket subscribers. Hub keeps the
// connections of this instance; PostgresFanout relays every publish through
// LISTEN/NOTIFY so that all instances' hubs see it.
package realtime

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"orderflow/internal/core/ports"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10

	// DefaultSendBuffer is how many messages may queue for one slow client before it
	// is disconnected.
	DefaultSendBuffer = 64
)

type client struct {
	conn  *websocket.Conn
	topic string
	send  chan []byte
	once  sync.Once
}

func (c *client) close() {
	c.once.Do(func() { close(c.send) })
}

// Hub tracks websocket clients by topic.
type Hub struct {
	mu         sync.RWMutex
	topics     map[string]map[*client]struct{}
	sendBuffer int
	logger     *slog.Logger
}

func NewHub(sendBuffer int, logger *slog.Logger) *Hub {
	if sendBuffer < 1 {
		sendBuffer = DefaultSendBuffer
	}
	return &Hub{
		topics:     map[string]map[*client]struct{}{},
		sendBuffer: sendBuffer,
		logger:     logger.With("component", "realtime_hub"),
	}
}

// Publish queues message for every client of topic on this instance. A client whose
// queue is full is dropped.
func (h *Hub) Publish(_ context.Context, topic string, message []byte) error {
	h.mu.RLock()
	var slow []*client
	for c := range h.topics[topic] {
		select {
		case c.send <- message:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow subscriber", "topic", topic)
		h.unregister(c)
	}
	return nil
}

// Subscribers reports how many clients listen on topic.
func (h *Hub) Subscribers(topic string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.topics[topic])
}

// Serve attaches conn to topic and blocks until the client goes away or ctx ends.
// Clients only receive; anything they send is discarded.
func (h *Hub) Serve(ctx context.Context, conn *websocket.Conn, topic string) {
	c := &client{conn: conn, topic: topic, send: make(chan []byte, h.sendBuffer)}
	h.register(c)
	defer h.unregister(c)

	done := make(chan struct{})
	go func() {
		defer close(done)
		h.writePump(c)
	}()

	stop := context.AfterFunc(ctx, func() { h.unregister(c) })
	defer stop()

	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}

	h.unregister(c)
	<-done
}

func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
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

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	clients, ok := h.topics[c.topic]
	if !ok {
		clients = map[*client]struct{}{}
		h.topics[c.topic] = clients
	}
	clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	if clients, ok := h.topics[c.topic]; ok {
		delete(clients, c)
		if len(clients) == 0 {
			delete(h.topics, c.topic)
		}
	}
	h.mu.Unlock()
	c.close()
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	var all []*client
	for _, clients := range h.topics {
		for c := range clients {
			all = append(all, c)
		}
	}
	h.topics = map[string]map[*client]struct{}{}
	h.mu.Unlock()

	for _, c := range all {
		c.close()
	}
}

var _ ports.RealtimeBroadcaster = (*Hub)(nil)
