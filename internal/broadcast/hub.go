package broadcast

import (
	"encoding/json"
	"log/slog"
	"sync"

	"github.com/memescope/aggregator/internal/model"
)

// Conn is a live client connection the hub can deliver to.
type Conn interface {
	// ID uniquely identifies the connection for the hub's lifetime.
	ID() string

	// Send delivers one serialized envelope. A non-nil error marks the
	// connection dead.
	Send(data []byte) error

	// Close tears the connection down.
	Close() error
}

// HubStats reports current registry sizes.
type HubStats struct {
	Connections   int
	Topics        int
	Subscriptions int
}

// Hub is the subscription registry and broadcaster.
type Hub struct {
	logger *slog.Logger

	mu          sync.RWMutex
	connections map[string]Conn                // conn ID → connection
	topicSubs   map[string]map[string]Conn     // topic → conn ID → connection
	connTopics  map[string]map[string]struct{} // conn ID → topics
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	if logger == nil {
		logger = slog.Default()
	}
	return &Hub{
		logger:      logger,
		connections: make(map[string]Conn),
		topicSubs:   make(map[string]map[string]Conn),
		connTopics:  make(map[string]map[string]struct{}),
	}
}

// Connect adds a connection to the active set.
func (h *Hub) Connect(conn Conn) {
	h.mu.Lock()
	h.connections[conn.ID()] = conn
	h.mu.Unlock()

	h.logger.Debug("connection registered", "conn_id", conn.ID())
}

// Disconnect removes a connection from the active set and from every topic.
// Safe to call multiple times.
func (h *Hub) Disconnect(conn Conn) {
	id := conn.ID()

	h.mu.Lock()
	_, known := h.connections[id]
	delete(h.connections, id)
	for topic := range h.connTopics[id] {
		delete(h.topicSubs[topic], id)
		if len(h.topicSubs[topic]) == 0 {
			delete(h.topicSubs, topic)
		}
	}
	delete(h.connTopics, id)
	h.mu.Unlock()

	if known {
		h.logger.Debug("connection removed", "conn_id", id)
	}
}

// Subscribe adds conn to a topic's subscriber set, creating the topic on
// first use. Subscribing to the same topic twice is a no-op.
func (h *Hub) Subscribe(conn Conn, topic string) {
	id := conn.ID()

	h.mu.Lock()
	defer h.mu.Unlock()

	// Only tracked connections may subscribe.
	if _, ok := h.connections[id]; !ok {
		return
	}

	if h.topicSubs[topic] == nil {
		h.topicSubs[topic] = make(map[string]Conn)
	}
	h.topicSubs[topic][id] = conn

	if h.connTopics[id] == nil {
		h.connTopics[id] = make(map[string]struct{})
	}
	h.connTopics[id][topic] = struct{}{}
}

// Unsubscribe removes conn from a topic's subscriber set.
func (h *Hub) Unsubscribe(conn Conn, topic string) {
	id := conn.ID()

	h.mu.Lock()
	defer h.mu.Unlock()

	delete(h.topicSubs[topic], id)
	if len(h.topicSubs[topic]) == 0 {
		delete(h.topicSubs, topic)
	}
	delete(h.connTopics[id], topic)
}

// Publish delivers the envelope to every connection subscribed to topic at
// call time. Failed receivers are disconnected after delivery completes.
func (h *Hub) Publish(topic string, env *model.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal envelope", "type", env.Type, "error", err)
		return
	}

	// Snapshot the subscriber set so sends run without the lock and
	// concurrent (un)subscribes cannot corrupt iteration.
	h.mu.RLock()
	targets := make([]Conn, 0, len(h.topicSubs[topic]))
	for _, conn := range h.topicSubs[topic] {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	h.deliver(targets, data, env.Type, topic)
}

// PublishAll delivers the envelope to every active connection regardless of
// topic membership.
func (h *Hub) PublishAll(env *model.Envelope) {
	data, err := json.Marshal(env)
	if err != nil {
		h.logger.Error("marshal envelope", "type", env.Type, "error", err)
		return
	}

	h.mu.RLock()
	targets := make([]Conn, 0, len(h.connections))
	for _, conn := range h.connections {
		targets = append(targets, conn)
	}
	h.mu.RUnlock()

	h.deliver(targets, data, env.Type, "*")
}

func (h *Hub) deliver(targets []Conn, data []byte, eventType, topic string) {
	var dead []Conn
	for _, conn := range targets {
		if err := conn.Send(data); err != nil {
			h.logger.Warn("delivery failed, pruning connection",
				"conn_id", conn.ID(),
				"topic", topic,
				"error", err,
			)
			dead = append(dead, conn)
		}
	}

	for _, conn := range dead {
		h.Disconnect(conn)
		conn.Close()
	}

	if len(targets) > 0 {
		h.logger.Debug("envelope published",
			"type", eventType,
			"topic", topic,
			"delivered", len(targets)-len(dead),
			"pruned", len(dead),
		)
	}
}

// Stats returns current registry sizes.
func (h *Hub) Stats() HubStats {
	h.mu.RLock()
	defer h.mu.RUnlock()

	subs := 0
	for _, conns := range h.topicSubs {
		subs += len(conns)
	}

	return HubStats{
		Connections:   len(h.connections),
		Topics:        len(h.topicSubs),
		Subscriptions: subs,
	}
}

// CloseAll disconnects and closes every active connection, used at shutdown.
func (h *Hub) CloseAll() {
	h.mu.RLock()
	conns := make([]Conn, 0, len(h.connections))
	for _, conn := range h.connections {
		conns = append(conns, conn)
	}
	h.mu.RUnlock()

	for _, conn := range conns {
		h.Disconnect(conn)
		conn.Close()
	}
}
