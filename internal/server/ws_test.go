package server

import (
	"encoding/json"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"github.com/memescope/aggregator/internal/model"
)

func dialWS(t *testing.T, s *Server) *websocket.Conn {
	t.Helper()

	srv := httptest.NewServer(s.httpSrv.Handler)
	t.Cleanup(srv.Close)

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/v1/ws"
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readJSON(t *testing.T, conn *websocket.Conn, v any) {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	_, data, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("read: %v", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		t.Fatalf("decode %q: %v", data, err)
	}
}

func TestWebSocket_SubscribeAck(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialWS(t, s)

	err := conn.WriteJSON(map[string]string{"type": "subscribe", "topic": model.TopicPrices})
	if err != nil {
		t.Fatalf("write: %v", err)
	}

	var ack struct {
		Type  string `json:"type"`
		Topic string `json:"topic"`
	}
	readJSON(t, conn, &ack)
	if ack.Type != model.EventSubConfirmed || ack.Topic != model.TopicPrices {
		t.Errorf("ack = %+v, want %s/%s", ack, model.EventSubConfirmed, model.TopicPrices)
	}
}

func TestWebSocket_SubscribeDefaultsToTokens(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialWS(t, s)

	conn.WriteJSON(map[string]string{"type": "subscribe"})

	var ack struct {
		Topic string `json:"topic"`
	}
	readJSON(t, conn, &ack)
	if ack.Topic != model.TopicTokens {
		t.Errorf("default topic = %q, want %q", ack.Topic, model.TopicTokens)
	}
}

func TestWebSocket_ReceivesPublishedEnvelope(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialWS(t, s)

	conn.WriteJSON(map[string]string{"type": "subscribe", "topic": model.TopicTokens})

	var ack map[string]string
	readJSON(t, conn, &ack) // drain the subscription ack

	tokens := []*model.TokenSnapshot{{Address: "A1", Name: "Alpha"}}
	s.hub.Publish(model.TopicTokens, model.TokenUpdateEnvelope(tokens))

	var env struct {
		Type string `json:"type"`
		Data struct {
			Tokens []*model.TokenSnapshot `json:"tokens"`
		} `json:"data"`
	}
	readJSON(t, conn, &env)
	if env.Type != model.EventTokenUpdate {
		t.Errorf("type = %q, want %q", env.Type, model.EventTokenUpdate)
	}
	if len(env.Data.Tokens) != 1 || env.Data.Tokens[0].Address != "A1" {
		t.Errorf("data = %+v, want [A1]", env.Data.Tokens)
	}
}

func TestWebSocket_UnsubscribeStopsDelivery(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialWS(t, s)

	conn.WriteJSON(map[string]string{"type": "subscribe", "topic": model.TopicPrices})
	var ack map[string]string
	readJSON(t, conn, &ack)

	conn.WriteJSON(map[string]string{"type": "unsubscribe", "topic": model.TopicPrices})

	// The read loop processes messages in order; wait for the unsubscribe
	// to land before publishing.
	deadline := time.Now().Add(2 * time.Second)
	for s.hub.Stats().Subscriptions != 0 {
		if time.Now().After(deadline) {
			t.Fatal("unsubscribe never processed")
		}
		time.Sleep(10 * time.Millisecond)
	}

	s.hub.Publish(model.TopicPrices, model.PriceUpdateEnvelope(nil))

	conn.SetReadDeadline(time.Now().Add(200 * time.Millisecond))
	if _, _, err := conn.ReadMessage(); err == nil {
		t.Error("received envelope after unsubscribe")
	}
}

func TestWebSocket_DisconnectCleansUp(t *testing.T) {
	s, _ := newTestServer(t)
	conn := dialWS(t, s)

	conn.WriteJSON(map[string]string{"type": "subscribe", "topic": model.TopicTokens})
	var ack map[string]string
	readJSON(t, conn, &ack)

	if got := s.hub.Stats().Connections; got != 1 {
		t.Fatalf("connections = %d, want 1", got)
	}

	conn.Close()

	deadline := time.Now().Add(2 * time.Second)
	for {
		stats := s.hub.Stats()
		if stats.Connections == 0 && stats.Subscriptions == 0 {
			return
		}
		if time.Now().After(deadline) {
			t.Fatalf("stats = %+v, want empty after close", stats)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
