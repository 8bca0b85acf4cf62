package ws

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"
)

type frame struct {
	Tick uint64 `json:"tick"`
}

func dial(t *testing.T, b *Broadcaster) *websocket.Conn {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(b.Handle))
	t.Cleanup(srv.Close)

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}
	u.Scheme = "ws"
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		if resp != nil {
			resp.Body.Close()
		}
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	t.Cleanup(func() {
		conn.Close()
		if resp != nil {
			resp.Body.Close()
		}
	})
	return conn
}

func readFrame(t *testing.T, conn *websocket.Conn) frame {
	t.Helper()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	_, payload, err := conn.ReadMessage()
	if err != nil {
		t.Fatalf("failed to read frame: %v", err)
	}
	var f frame
	if err := json.Unmarshal(payload, &f); err != nil {
		t.Fatalf("failed to decode frame %s: %v", payload, err)
	}
	return f
}

func waitForSubscribers(t *testing.T, b *Broadcaster, n int) {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for b.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, b.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestNewSubscriberReceivesLastFrame(t *testing.T) {
	b := NewBroadcaster(HandlerConfig{})
	if err := b.Publish(frame{Tick: 7}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	conn := dial(t, b)
	if got := readFrame(t, conn); got.Tick != 7 {
		t.Fatalf("expected greeting tick 7, got %d", got.Tick)
	}
}

func TestPublishFansOutToSubscribers(t *testing.T) {
	b := NewBroadcaster(HandlerConfig{})
	first := dial(t, b)
	second := dial(t, b)
	waitForSubscribers(t, b, 2)

	if err := b.Publish(frame{Tick: 3}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}
	for _, conn := range []*websocket.Conn{first, second} {
		if got := readFrame(t, conn); got.Tick != 3 {
			t.Fatalf("expected tick 3, got %d", got.Tick)
		}
	}
}

func TestClientDisconnectRemovesSubscriber(t *testing.T) {
	b := NewBroadcaster(HandlerConfig{})
	conn := dial(t, b)
	waitForSubscribers(t, b, 1)

	conn.WriteMessage(websocket.CloseMessage, websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
	conn.Close()
	waitForSubscribers(t, b, 0)
}

func TestCloseDisconnectsSubscribers(t *testing.T) {
	b := NewBroadcaster(HandlerConfig{})
	conn := dial(t, b)
	waitForSubscribers(t, b, 1)

	b.Close()
	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	if _, _, err := conn.ReadMessage(); !websocket.IsCloseError(err, websocket.CloseNormalClosure) {
		t.Fatalf("expected normal closure, got %v", err)
	}
	if err := b.Publish(frame{Tick: 1}); err != nil {
		t.Fatalf("publish after close failed: %v", err)
	}
}
