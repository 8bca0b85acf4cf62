// Package locations persists discovered points of interest per map.
package locations

import (
	"context"
	"errors"
	"sync"

	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

// ErrUnknownMap reports that a backend holds nothing for a map.
var ErrUnknownMap = errors.New("locations: unknown map")

// Kind classifies a stored location.
type Kind string

const (
	KindHerb     Kind = "herb"
	KindOre      Kind = "ore"
	KindTreasure Kind = "treasure"
	KindHotspot  Kind = "hotspot"
)

// KindForResources maps resource flags onto a location kind.
func KindForResources(flags env.ResourceFlags) (Kind, bool) {
	switch {
	case flags.Has(env.ResourceHerb):
		return KindHerb, true
	case flags.Has(env.ResourceOre):
		return KindOre, true
	case flags.Has(env.ResourceTreasure):
		return KindTreasure, true
	default:
		return "", false
	}
}

// Location is one stored point.
type Location struct {
	Kind     Kind      `json:"kind"`
	Position geom.Vec3 `json:"position"`
	Note     string    `json:"note,omitempty"`
}

// Backend loads and saves the locations of one map at a time.
type Backend interface {
	Load(ctx context.Context, mapID uint32) ([]Location, error)
	Save(ctx context.Context, mapID uint32, locs []Location) error
}

// MemoryBackend keeps saved maps in process memory.
type MemoryBackend struct {
	mu    sync.Mutex
	maps  map[uint32][]Location
	saves int
}

func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{maps: make(map[uint32][]Location)}
}

func (b *MemoryBackend) Load(_ context.Context, mapID uint32) ([]Location, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	locs, ok := b.maps[mapID]
	if !ok {
		return nil, ErrUnknownMap
	}
	return append([]Location(nil), locs...), nil
}

func (b *MemoryBackend) Save(_ context.Context, mapID uint32, locs []Location) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.maps[mapID] = append([]Location(nil), locs...)
	b.saves++
	return nil
}

// Saves reports how many Save calls succeeded.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}
