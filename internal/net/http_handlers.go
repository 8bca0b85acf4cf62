// Package net serves the agent's status surface over HTTP.
package net

import (
	"encoding/json"
	"log"
	nethttp "net/http"
	"time"

	"mine-and-die/agent/internal/agent"
	"mine-and-die/agent/internal/net/ws"
	"mine-and-die/agent/internal/observability"
)

// SnapshotSource yields the most recent agent snapshot.
type SnapshotSource interface {
	Snapshot() agent.Snapshot
}

type HTTPHandlerConfig struct {
	Logger        *log.Logger
	Broadcaster   *ws.Broadcaster
	Observability observability.Config
}

type statusPayload struct {
	Status      string         `json:"status"`
	ServerTime  int64          `json:"serverTime"`
	Subscribers int            `json:"subscribers"`
	Agent       agent.Snapshot `json:"agent"`
}

func NewHTTPHandler(source SnapshotSource, cfg HTTPHandlerConfig) nethttp.Handler {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}

	mux := nethttp.NewServeMux()

	mux.HandleFunc("/healthz", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		w.Header().Set("Content-Type", "text/plain")
		w.Write([]byte("ok"))
	})

	mux.HandleFunc("/status", func(w nethttp.ResponseWriter, r *nethttp.Request) {
		if r.Method != nethttp.MethodGet {
			httpError(w, "method not allowed", nethttp.StatusMethodNotAllowed)
			return
		}
		payload := statusPayload{
			Status:     "ok",
			ServerTime: time.Now().UnixMilli(),
			Agent:      source.Snapshot(),
		}
		if cfg.Broadcaster != nil {
			payload.Subscribers = cfg.Broadcaster.Subscribers()
		}
		data, err := json.Marshal(payload)
		if err != nil {
			logger.Printf("failed to encode status: %v", err)
			httpError(w, "failed to encode", nethttp.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write(data)
	})

	if cfg.Broadcaster != nil {
		mux.HandleFunc("/ws", cfg.Broadcaster.Handle)
	}

	if observability.Register(mux, cfg.Observability) {
		logger.Printf("pprof handlers enabled under /debug/pprof/")
	}

	return mux
}

func httpError(w nethttp.ResponseWriter, msg string, code int) {
	nethttp.Error(w, msg, code)
}
