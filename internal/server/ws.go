package server

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"github.com/memescope/aggregator/internal/model"
)

const wsWriteTimeout = 5 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// The read API is open; so is the stream.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsConn adapts a gorilla websocket connection to broadcast.Conn.
type wsConn struct {
	id   string
	conn *websocket.Conn

	// Serializes writes; the hub and the subscribe ack path both send.
	writeMu sync.Mutex
}

func newWSConn(conn *websocket.Conn) *wsConn {
	return &wsConn{
		id:   uuid.NewString(),
		conn: conn,
	}
}

func (c *wsConn) ID() string { return c.id }

func (c *wsConn) Send(data []byte) error {
	c.writeMu.Lock()
	defer c.writeMu.Unlock()

	c.conn.SetWriteDeadline(time.Now().Add(wsWriteTimeout))
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

func (c *wsConn) Close() error {
	return c.conn.Close()
}

// clientMessage is what subscribers send us.
type clientMessage struct {
	Type  string `json:"type"`
	Topic string `json:"topic"`
}

// handleWebSocket upgrades the connection and runs its read loop.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	raw, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}

	conn := newWSConn(raw)
	s.hub.Connect(conn)
	s.logger.Debug("websocket client connected", "conn_id", conn.ID())

	defer func() {
		s.hub.Disconnect(conn)
		conn.Close()
		s.logger.Debug("websocket client disconnected", "conn_id", conn.ID())
	}()

	for {
		_, data, err := raw.ReadMessage()
		if err != nil {
			return
		}

		var msg clientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			// Ignore unparseable frames; the stream stays open.
			continue
		}

		switch msg.Type {
		case "subscribe":
			topic := msg.Topic
			if topic == "" {
				topic = model.TopicTokens
			}
			s.hub.Subscribe(conn, topic)

			ack, _ := json.Marshal(map[string]string{
				"type":  model.EventSubConfirmed,
				"topic": topic,
			})
			if err := conn.Send(ack); err != nil {
				return
			}

		case "unsubscribe":
			if msg.Topic != "" {
				s.hub.Unsubscribe(conn, msg.Topic)
			}
		}
	}
}
