// Package app wires configuration, logging, the agent and its status server
// into one supervised process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"mine-and-die/agent/internal/agent"
	"mine-and-die/agent/internal/config"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/locations"
	"mine-and-die/agent/internal/locations/sqlitestore"
	servernet "mine-and-die/agent/internal/net"
	"mine-and-die/agent/internal/net/ws"
	"mine-and-die/agent/internal/observability"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	loggingSinks "mine-and-die/agent/logging/sinks"
)

const shutdownTimeout = 5 * time.Second

// Run drives the agent against the demo world and serves its status until
// ctx is cancelled or a component fails.
func Run(ctx context.Context, cfg config.Config, logger telemetry.Logger) error {
	if logger == nil {
		logger = telemetry.WrapLogger(log.Default())
	}

	fallbackLogger := log.Default()
	if provider, ok := logger.(interface{ StandardLogger() *log.Logger }); ok {
		if candidate := provider.StandardLogger(); candidate != nil {
			fallbackLogger = candidate
		}
	}

	traceID := uuid.NewString()
	router, err := newRouter(cfg.Logging, traceID, fallbackLogger)
	if err != nil {
		return fmt.Errorf("failed to construct logging router: %w", err)
	}
	defer func() {
		if cerr := router.Close(context.Background()); cerr != nil {
			logger.Printf("failed to close logging router: %v", cerr)
		}
	}()

	backend, closeBackend, err := openBackend(ctx, cfg.Locations)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := closeBackend(); cerr != nil {
			logger.Printf("failed to close locations backend: %v", cerr)
		}
	}()

	agentCfg, err := AgentConfig(cfg)
	if err != nil {
		return fmt.Errorf("agent config: %w", err)
	}

	world := NewDemoWorld(cfg.Demo)
	a, err := agent.New(agentCfg, agent.Deps{
		Host:      world,
		Clock:     env.NewSystemClock(),
		Publisher: router,
		Metrics:   telemetry.NewCounters(),
		Logger:    logger,
		Backend:   backend,
	})
	if err != nil {
		return fmt.Errorf("failed to build agent: %w", err)
	}

	broadcaster := ws.NewBroadcaster(ws.HandlerConfig{Logger: fallbackLogger})
	throttle := rate.NewLimiter(rate.Every(cfg.Status.BroadcastInterval), 1)
	loop := agent.NewLoop(a, cfg.Loop.TickInterval,
		agent.WithBeforeTick(world.Advance),
		agent.WithSnapshotHook(func(snap agent.Snapshot) {
			if !throttle.Allow() {
				return
			}
			if err := broadcaster.Publish(snap); err != nil {
				logger.Printf("failed to publish snapshot: %v", err)
			}
		}),
	)

	handler := servernet.NewHTTPHandler(a, servernet.HTTPHandlerConfig{
		Logger:        fallbackLogger,
		Broadcaster:   broadcaster,
		Observability: observability.Config{EnablePprofTrace: cfg.Status.Pprof},
	})
	srv := &http.Server{Addr: cfg.Status.Addr, Handler: handler}

	logger.Printf("agent run %s on map %d, status on %s", traceID, cfg.Demo.MapID, srv.Addr)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return loop.Run(gctx)
	})
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server failed: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		broadcaster.Close()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})
	runErr := g.Wait()

	closeCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := a.Close(closeCtx); err != nil {
		runErr = errors.Join(runErr, fmt.Errorf("close agent: %w", err))
	}
	return runErr
}

func newRouter(cfg config.LoggingConfig, traceID string, fallback *log.Logger) (*logging.Router, error) {
	logConfig := logging.DefaultConfig()
	logConfig.EnabledSinks = cfg.Sinks
	logConfig.BufferSize = cfg.BufferSize
	logConfig.MinimumSeverity = logging.ParseSeverity(cfg.MinSeverity)
	logConfig.JSON = logging.JSONConfig{FilePath: cfg.JSONPath, FlushInterval: cfg.FlushInterval}
	logConfig.TraceID = traceID
	logConfig.Fields = map[string]any{"run": traceID}

	var sinks []logging.NamedSink
	if logConfig.HasSink("console") {
		sinks = append(sinks, logging.NamedSink{Name: "console", Sink: loggingSinks.NewConsole(os.Stdout)})
	}
	if logConfig.HasSink("json") {
		file, err := os.OpenFile(logConfig.JSON.FilePath, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return nil, fmt.Errorf("open json log %s: %w", logConfig.JSON.FilePath, err)
		}
		sinks = append(sinks, logging.NamedSink{Name: "json", Sink: loggingSinks.NewJSON(file, logConfig.JSON.FlushInterval)})
	}
	return logging.NewRouter(logConfig, logging.SystemClock{}, fallback, sinks)
}

func openBackend(ctx context.Context, cfg config.LocationsConfig) (locations.Backend, func() error, error) {
	switch cfg.Backend {
	case "sqlite":
		backend, err := sqlitestore.Open(ctx, cfg.Path)
		if err != nil {
			return nil, nil, fmt.Errorf("open locations database: %w", err)
		}
		return backend, backend.Close, nil
	default:
		return locations.NewMemoryBackend(), func() error { return nil }, nil
	}
}
