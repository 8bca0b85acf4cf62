package net

import (
	"encoding/json"
	"io"
	"log"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"
	"time"

	"github.com/gorilla/websocket"

	"mine-and-die/agent/internal/agent"
	"mine-and-die/agent/internal/net/ws"
	"mine-and-die/agent/internal/observability"
)

type fixedSource struct {
	snap agent.Snapshot
}

func (s fixedSource) Snapshot() agent.Snapshot {
	return s.snap
}

func quietLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func TestHealthzReportsOK(t *testing.T) {
	handler := NewHTTPHandler(fixedSource{}, HTTPHandlerConfig{Logger: quietLogger()})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if body := resp.Body.String(); body != "ok" {
		t.Fatalf("expected body ok, got %q", body)
	}
}

func TestStatusReturnsSnapshot(t *testing.T) {
	source := fixedSource{snap: agent.Snapshot{Tick: 42, Stack: []string{"Root", "Gather(7)"}}}
	handler := NewHTTPHandler(source, HTTPHandlerConfig{Logger: quietLogger(), Broadcaster: ws.NewBroadcaster(ws.HandlerConfig{})})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/status", nil))

	if resp.Code != http.StatusOK {
		t.Fatalf("expected status 200 OK, got %d", resp.Code)
	}
	if contentType := resp.Header().Get("Content-Type"); contentType != "application/json" {
		t.Fatalf("expected Content-Type application/json, got %q", contentType)
	}

	var payload statusPayload
	if err := json.Unmarshal(resp.Body.Bytes(), &payload); err != nil {
		t.Fatalf("failed to decode status payload: %v", err)
	}
	if payload.Status != "ok" || payload.Agent.Tick != 42 {
		t.Fatalf("unexpected payload %+v", payload)
	}
	if len(payload.Agent.Stack) != 2 || payload.Agent.Stack[1] != "Gather(7)" {
		t.Fatalf("expected stack to round trip, got %v", payload.Agent.Stack)
	}
}

func TestStatusRejectsWrites(t *testing.T) {
	handler := NewHTTPHandler(fixedSource{}, HTTPHandlerConfig{Logger: quietLogger()})

	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, httptest.NewRequest(http.MethodPost, "/status", nil))

	if resp.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected status 405, got %d", resp.Code)
	}
}

func TestWebsocketStreamsPublishedSnapshots(t *testing.T) {
	broadcaster := ws.NewBroadcaster(ws.HandlerConfig{Logger: quietLogger()})
	defer broadcaster.Close()
	handler := NewHTTPHandler(fixedSource{}, HTTPHandlerConfig{Logger: quietLogger(), Broadcaster: broadcaster})

	srv := httptest.NewServer(handler)
	defer srv.Close()

	if err := broadcaster.Publish(agent.Snapshot{Tick: 5}); err != nil {
		t.Fatalf("publish failed: %v", err)
	}

	u, err := url.Parse(srv.URL)
	if err != nil {
		t.Fatalf("failed to parse server url: %v", err)
	}
	u.Scheme = "ws"
	u.Path = "/ws"
	conn, resp, err := websocket.DefaultDialer.Dial(u.String(), nil)
	if err != nil {
		t.Fatalf("failed to open websocket connection: %v", err)
	}
	defer conn.Close()
	defer resp.Body.Close()

	conn.SetReadDeadline(time.Now().Add(5 * time.Second))
	var snap agent.Snapshot
	if err := conn.ReadJSON(&snap); err != nil {
		t.Fatalf("failed to read snapshot: %v", err)
	}
	if snap.Tick != 5 {
		t.Fatalf("expected tick 5, got %d", snap.Tick)
	}
}

func TestPprofFollowsObservabilityConfig(t *testing.T) {
	off := NewHTTPHandler(fixedSource{}, HTTPHandlerConfig{Logger: quietLogger()})
	resp := httptest.NewRecorder()
	off.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusNotFound {
		t.Fatalf("expected pprof to be disabled, got %d", resp.Code)
	}

	on := NewHTTPHandler(fixedSource{}, HTTPHandlerConfig{
		Logger:        quietLogger(),
		Observability: observability.Config{EnablePprofTrace: true},
	})
	resp = httptest.NewRecorder()
	on.ServeHTTP(resp, httptest.NewRequest(http.MethodGet, "/debug/pprof/", nil))
	if resp.Code != http.StatusOK {
		t.Fatalf("expected pprof index, got %d", resp.Code)
	}
}
