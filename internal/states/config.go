// Package states holds the concrete behavior states the agent pushes.
package states

import (
	"time"

	"mine-and-die/agent/internal/locations"
)

// Config tunes every state.
type Config struct {
	InteractRange     float64
	MoveTolerance     float64
	StallTicks        int
	AttackInterval    time.Duration
	GatherTimeout     time.Duration
	LootTimeout       time.Duration
	KillTimeout       time.Duration
	BlacklistDuration time.Duration
	Search            SearchConfig
}

// SearchConfig tunes destination selection for Search.
type SearchConfig struct {
	ArriveRadius    float64
	RevisitCooldown time.Duration
	Timeout         time.Duration
	Kinds           []locations.Kind
	Seed            int64
}

func DefaultConfig() Config {
	return Config{
		InteractRange:     4.5,
		MoveTolerance:     1,
		StallTicks:        30,
		AttackInterval:    1500 * time.Millisecond,
		GatherTimeout:     30 * time.Second,
		LootTimeout:       15 * time.Second,
		KillTimeout:       time.Minute,
		BlacklistDuration: 2 * time.Minute,
		Search: SearchConfig{
			ArriveRadius:    3,
			RevisitCooldown: 5 * time.Minute,
			Timeout:         2 * time.Minute,
			Seed:            1,
		},
	}
}
