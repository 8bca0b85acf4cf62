package states

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"mine-and-die/agent/internal/behavior"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/locations"
)

// Search roams between stored locations until the planner has something to
// do. Destinations are picked at random among reachable locations that were
// not visited within the revisit cooldown; a destination reached with
// nothing actionable is abandoned and another one rolled.
type Search struct {
	behavior.StateTimer
	cfg      *Config
	rng      *rand.Rand
	visited  map[geom.Vec3]time.Duration
	dest     *locations.Location
	approach approach

	exhausted bool
}

// NewSearch builds a Search whose visit history survives re-pushes.
func NewSearch(cfg *Config) *Search {
	return &Search{
		StateTimer: behavior.StateTimer{MaxStateTime: cfg.Search.Timeout},
		cfg:        cfg,
		rng:        rand.New(rand.NewSource(cfg.Search.Seed)),
		visited:    make(map[geom.Vec3]time.Duration),
	}
}

// Prepare clears per-activation state before the search is pushed again.
func (s *Search) Prepare() {
	s.dest = nil
	s.exhausted = false
	s.approach.reset()
}

// Destination reports the location being walked to.
func (s *Search) Destination() (locations.Location, bool) {
	if s.dest == nil {
		return locations.Location{}, false
	}
	return *s.dest, true
}

// Candidates lists reachable locations not visited recently.
func (s *Search) Candidates(ctx *behavior.Context) []locations.Location {
	if ctx.Locations == nil {
		return nil
	}
	locs, err := ctx.Locations.Locations(context.Background(), ctx.Cache.MapID(), s.cfg.Search.Kinds...)
	if err != nil {
		return nil
	}
	local, ok := ctx.Local()
	if !ok {
		return nil
	}
	now := ctx.Now()
	out := make([]locations.Location, 0, len(locs))
	for _, loc := range locs {
		if at, seen := s.visited[loc.Position]; seen && now-at < s.cfg.Search.RevisitCooldown {
			continue
		}
		if geom.Within(local.Position, loc.Position, s.cfg.Search.ArriveRadius) {
			continue
		}
		if ctx.Navigator != nil && !ctx.Navigator.PathExists(local.Position, loc.Position) {
			continue
		}
		out = append(out, loc)
	}
	return out
}

func (s *Search) roll(ctx *behavior.Context) bool {
	candidates := s.Candidates(ctx)
	if len(candidates) == 0 {
		return false
	}
	pick := candidates[s.rng.Intn(len(candidates))]
	s.dest = &pick
	s.approach.reset()
	return true
}

func (s *Search) Tick(ctx *behavior.Context) {
	if s.dest == nil && !s.roll(ctx) {
		s.exhausted = true
		return
	}
	arrived, err := s.approach.step(ctx, s.cfg, s.dest.Position, s.cfg.Search.ArriveRadius)
	if err != nil || s.approach.stalled(s.cfg.StallTicks) || arrived {
		s.visited[s.dest.Position] = ctx.Now()
		s.dest = nil
	}
}

func (s *Search) Complete(ctx *behavior.Context) bool {
	if s.exhausted || ctx.InCombat() {
		return true
	}
	if ctx.Planner != nil {
		if _, ok := ctx.Planner.NextTask(); ok {
			return true
		}
	}
	return ctx.TimedOut(s)
}

func (s *Search) String() string {
	if s.dest == nil {
		return "Search"
	}
	return fmt.Sprintf("Search(%s %.0f,%.0f)", s.dest.Kind, s.dest.Position.X, s.dest.Position.Y)
}
