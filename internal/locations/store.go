package locations

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"time"

	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	loclog "mine-and-die/agent/logging/locations"
)

const (
	DefaultFlushInterval = 30 * time.Second
	DefaultDedupeRadius  = 3.0
)

// Config tunes a Store.
type Config struct {
	FlushInterval time.Duration
	DedupeRadius  float64
}

type mapEntry struct {
	locs  []Location
	dirty bool
}

// Store caches per-map locations in memory. A map is loaded from the backend
// on first access and written back when dirty.
type Store struct {
	cfg       Config
	backend   Backend
	pub       logging.Publisher
	metrics   telemetry.Metrics
	maps      map[uint32]*mapEntry
	lastFlush time.Duration
	tick      uint64
}

func NewStore(cfg Config, backend Backend, pub logging.Publisher, metrics telemetry.Metrics) *Store {
	if cfg.FlushInterval <= 0 {
		cfg.FlushInterval = DefaultFlushInterval
	}
	if cfg.DedupeRadius < 0 {
		cfg.DedupeRadius = 0
	}
	if backend == nil {
		backend = NewMemoryBackend()
	}
	return &Store{
		cfg:     cfg,
		backend: backend,
		pub:     logging.OrNop(pub),
		metrics: telemetry.OrNop(metrics),
		maps:    make(map[uint32]*mapEntry),
	}
}

// SetTick stamps subsequently published events.
func (s *Store) SetTick(tick uint64) {
	s.tick = tick
}

func (s *Store) entry(ctx context.Context, mapID uint32) (*mapEntry, error) {
	if e, ok := s.maps[mapID]; ok {
		return e, nil
	}
	locs, err := s.backend.Load(ctx, mapID)
	if err != nil && !errors.Is(err, ErrUnknownMap) {
		loclog.LoadFailed(ctx, s.pub, s.tick, loclog.FailurePayload{MapID: mapID, Error: err.Error()})
		return nil, fmt.Errorf("load map %d: %w", mapID, err)
	}
	e := &mapEntry{locs: locs}
	s.maps[mapID] = e
	return e, nil
}

// Add records loc unless an entry of the same kind sits within the dedupe
// radius. It reports whether the location was new.
func (s *Store) Add(ctx context.Context, mapID uint32, loc Location) (bool, error) {
	e, err := s.entry(ctx, mapID)
	if err != nil {
		return false, err
	}
	for _, existing := range e.locs {
		if existing.Kind == loc.Kind && geom.Within(existing.Position, loc.Position, s.cfg.DedupeRadius) {
			return false, nil
		}
	}
	e.locs = append(e.locs, loc)
	e.dirty = true
	loclog.LocationRecorded(ctx, s.pub, s.tick, loclog.LocationPayload{
		MapID: mapID,
		Kind:  string(loc.Kind),
		X:     loc.Position.X,
		Y:     loc.Position.Y,
		Z:     loc.Position.Z,
	})
	return true, nil
}

// Locations returns the map's entries, filtered to kinds when given.
func (s *Store) Locations(ctx context.Context, mapID uint32, kinds ...Kind) ([]Location, error) {
	e, err := s.entry(ctx, mapID)
	if err != nil {
		return nil, err
	}
	out := make([]Location, 0, len(e.locs))
	for _, loc := range e.locs {
		if len(kinds) == 0 || slices.Contains(kinds, loc.Kind) {
			out = append(out, loc)
		}
	}
	return out, nil
}

// Dirty reports whether the map has unsaved entries.
func (s *Store) Dirty(mapID uint32) bool {
	e, ok := s.maps[mapID]
	return ok && e.dirty
}

// MaybeFlush saves dirty maps once per flush interval of agent time.
func (s *Store) MaybeFlush(ctx context.Context, now time.Duration) error {
	if now-s.lastFlush < s.cfg.FlushInterval {
		return nil
	}
	s.lastFlush = now
	return s.Flush(ctx)
}

// Flush saves every dirty map. Maps that fail stay dirty for the next flush.
func (s *Store) Flush(ctx context.Context) error {
	ids := make([]uint32, 0, len(s.maps))
	for id, e := range s.maps {
		if e.dirty {
			ids = append(ids, id)
		}
	}
	slices.Sort(ids)

	var errs []error
	for _, id := range ids {
		e := s.maps[id]
		if err := s.backend.Save(ctx, id, e.locs); err != nil {
			loclog.FlushFailed(ctx, s.pub, s.tick, loclog.FailurePayload{MapID: id, Error: err.Error()})
			errs = append(errs, fmt.Errorf("save map %d: %w", id, err))
			continue
		}
		e.dirty = false
		s.metrics.Add(telemetry.MetricFlushes, 1)
	}
	return errors.Join(errs...)
}
