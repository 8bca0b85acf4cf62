// Package observability holds opt-in debugging surfaces for the status server.
package observability

import (
	"net/http"
	"net/http/pprof"
)

// Config captures opt-in observability toggles that wire into the server.
type Config struct {
	EnablePprofTrace bool
}

// Register mounts the pprof handlers on mux when enabled and reports
// whether it did.
func Register(mux *http.ServeMux, cfg Config) bool {
	if !cfg.EnablePprofTrace {
		return false
	}
	mux.HandleFunc("/debug/pprof/", pprof.Index)
	mux.HandleFunc("/debug/pprof/cmdline", pprof.Cmdline)
	mux.HandleFunc("/debug/pprof/profile", pprof.Profile)
	mux.HandleFunc("/debug/pprof/symbol", pprof.Symbol)
	mux.HandleFunc("/debug/pprof/trace", pprof.Trace)
	return true
}
