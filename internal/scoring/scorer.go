// Package scoring ranks candidate targets and turns the rankings into tasks.
package scoring

import (
	"context"
	"slices"
	"time"

	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/telemetry"
	"mine-and-die/agent/logging"
	scorelog "mine-and-die/agent/logging/scoring"
)

// Role changes how nearby friendlies and hostiles weigh on a candidate.
type Role uint8

const (
	RoleDamage Role = iota
	RoleTank
	RoleHealer
)

func (r Role) String() string {
	switch r {
	case RoleTank:
		return "tank"
	case RoleHealer:
		return "healer"
	default:
		return "damage"
	}
}

// ParseRole maps a configured name onto a Role, defaulting to damage.
func ParseRole(name string) Role {
	switch name {
	case "tank":
		return RoleTank
	case "healer":
		return RoleHealer
	default:
		return RoleDamage
	}
}

// DensityWeights scores each friendly and hostile entity near a candidate.
type DensityWeights struct {
	Friendly float64
	Hostile  float64
}

// Weights are the terms of the scoring sum.
type Weights struct {
	Base float64
	// Proximity scales the closeness term for threats; non-threats get
	// Proximity*NonThreatProximity.
	Proximity          float64
	NonThreatProximity float64
	HealthDeficit      float64
	Density            map[Role]DensityWeights

	TargetingSelfBonus float64
	MutualTargetBonus  float64
	ObjectiveBonus     float64

	RiskMultiplier float64
	RiskPenalty    float64
}

// DefaultWeights mirrors the tuning shipped with the agent.
func DefaultWeights() Weights {
	return Weights{
		Base:               1000,
		Proximity:          100,
		NonThreatProximity: 0.5,
		HealthDeficit:      50,
		Density: map[Role]DensityWeights{
			RoleDamage: {Friendly: 2, Hostile: 2},
			RoleTank:   {Friendly: 1, Hostile: 3},
			RoleHealer: {Friendly: 4, Hostile: 2},
		},
		TargetingSelfBonus: 150,
		MutualTargetBonus:  100,
		ObjectiveBonus:     300,
		RiskMultiplier:     1.5,
		RiskPenalty:        1000,
	}
}

const (
	DefaultMaxRange      = 60.0
	DefaultDensityRadius = 20.0
	DefaultInterval      = 5 * time.Second
)

// Config tunes a UnitScorer.
type Config struct {
	Weights       Weights
	MaxRange      float64
	DensityRadius float64
	// Interval is the minimum agent clock time between recomputes. Zero
	// selects DefaultInterval; a negative value recomputes on every Update.
	Interval      time.Duration
}

func (c Config) withDefaults() Config {
	if c.MaxRange <= 0 {
		c.MaxRange = DefaultMaxRange
	}
	if c.DensityRadius <= 0 {
		c.DensityRadius = DefaultDensityRadius
	}
	if c.Interval == 0 {
		c.Interval = DefaultInterval
	}
	if c.Weights.Base == 0 && c.Weights.Density == nil {
		c.Weights = DefaultWeights()
	}
	if c.Weights.Density == nil {
		c.Weights.Density = DefaultWeights().Density
	}
	return c
}

// Context is the agent state the scorer evaluates candidates against.
type Context struct {
	Self      env.EntityID
	Position  geom.Vec3
	Role      Role
	InCombat  bool
	TargetID  env.EntityID
	Blacklist env.Blacklist
	Tick      uint64
}

// UnitSource yields units keyed by identifier; the entity cache and views
// both satisfy it.
type UnitSource interface {
	Units() map[env.EntityID]*entity.Entity
}

// ObjectSource yields game objects keyed by identifier.
type ObjectSource interface {
	Objects() map[env.EntityID]*entity.Entity
}

// Breakdown itemises a candidate's score.
type Breakdown struct {
	Base        float64
	Proximity   float64
	Health      float64
	Friendly    float64
	Hostile     float64
	Situational float64
	Penalty     float64
}

// Total sums the terms.
func (b Breakdown) Total() float64 {
	return b.Base + b.Proximity + b.Health + b.Friendly + b.Hostile + b.Situational - b.Penalty
}

// Candidate is a scored unit.
type Candidate struct {
	ID        env.EntityID
	Score     float64
	Breakdown Breakdown
}

// UnitScorer picks the best unit from a source at a throttled cadence.
type UnitScorer struct {
	cfg      Config
	source   UnitSource
	density  UnitSource
	throttle *Throttle
	pub      logging.Publisher
	metrics  telemetry.Metrics

	best   Candidate
	ok     bool
	ranked []Candidate
}

// NewUnitScorer scores units from source; density counts neighbours from
// the density source, usually the whole cache.
func NewUnitScorer(cfg Config, source, density UnitSource, pub logging.Publisher, metrics telemetry.Metrics) *UnitScorer {
	cfg = cfg.withDefaults()
	if density == nil {
		density = source
	}
	return &UnitScorer{
		cfg:      cfg,
		source:   source,
		density:  density,
		throttle: NewThrottle(cfg.Interval),
		pub:      logging.OrNop(pub),
		metrics:  telemetry.OrNop(metrics),
	}
}

// Update recomputes the ranking when the throttle allows and reports
// whether it ran.
func (s *UnitScorer) Update(now time.Duration, ctx Context) bool {
	if !s.throttle.Allow(now) {
		return false
	}
	s.Recompute(ctx)
	return true
}

// Recompute ranks candidates immediately, bypassing the throttle. Candidates
// are enumerated in ascending identifier order and only a strictly higher
// score displaces the leader, so ties go to the lowest identifier.
func (s *UnitScorer) Recompute(ctx Context) {
	s.metrics.Add(telemetry.MetricScorerRuns, 1)
	previous, hadPrevious := s.best, s.ok

	units := s.source.Units()
	ids := make([]env.EntityID, 0, len(units))
	for id := range units {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	neighbours := sortedEntities(s.density.Units())
	s.ranked = s.ranked[:0]
	s.ok = false
	for _, id := range ids {
		e := units[id]
		if !s.eligible(ctx, e) {
			continue
		}
		b := s.score(ctx, e, neighbours)
		c := Candidate{ID: id, Score: b.Total(), Breakdown: b}
		s.ranked = append(s.ranked, c)
		if !s.ok || c.Score > s.best.Score {
			s.best = c
			s.ok = true
		}
	}
	if !s.ok {
		s.best = Candidate{}
		return
	}
	if !hadPrevious || previous.ID != s.best.ID {
		scorelog.BestUnitChanged(context.Background(), s.pub, ctx.Tick,
			logging.Ref(logging.EntityKindUnit, uint64(s.best.ID)),
			scorelog.BestUnitPayload{Score: s.best.Score, Candidates: len(s.ranked), Penalized: s.best.Breakdown.Penalty > 0})
	}
}

// BestUnit returns the last computed winner.
func (s *UnitScorer) BestUnit() (Candidate, bool) {
	return s.best, s.ok
}

// Ranked returns the last computed candidates in enumeration order.
func (s *UnitScorer) Ranked() []Candidate {
	return slices.Clone(s.ranked)
}

// Invalidate lets the next Update recompute regardless of the throttle.
func (s *UnitScorer) Invalidate() {
	s.throttle.Reset()
}

func (s *UnitScorer) eligible(ctx Context, e *entity.Entity) bool {
	if e == nil || !e.IsUnit() || e.ID == ctx.Self || e.Dead() {
		return false
	}
	if ctx.Blacklist != nil && ctx.Blacklist.Contains(e.ID) {
		return false
	}
	return geom.Within(ctx.Position, e.Position, s.cfg.MaxRange)
}

// Score evaluates one candidate against the density source.
func (s *UnitScorer) Score(ctx Context, e *entity.Entity) Breakdown {
	return s.score(ctx, e, sortedEntities(s.density.Units()))
}

func (s *UnitScorer) score(ctx Context, e *entity.Entity, neighbours []*entity.Entity) Breakdown {
	w := s.cfg.Weights
	b := Breakdown{Base: w.Base}

	dist := geom.Distance(ctx.Position, e.Position)
	closeness := geom.Clamp(1-dist/s.cfg.MaxRange, 0, 1)
	targetsSelf := ctx.Self != 0 && e.Unit.TargetID == ctx.Self
	threat := e.Hostile() && (targetsSelf || e.Unit.InCombat)
	if threat {
		b.Proximity = w.Proximity * closeness
	} else {
		b.Proximity = w.Proximity * w.NonThreatProximity * closeness
	}

	b.Health = w.HealthDeficit * (1 - e.HealthFraction())

	friendly, hostile := 0, 0
	for _, n := range neighbours {
		if n.ID == e.ID || n.ID == ctx.Self || n.Dead() {
			continue
		}
		if !geom.Within(e.Position, n.Position, s.cfg.DensityRadius) {
			continue
		}
		switch {
		case n.Friendly():
			friendly++
		case n.Hostile():
			hostile++
		}
	}
	dw := w.Density[ctx.Role]
	b.Friendly = float64(friendly) * dw.Friendly
	b.Hostile = float64(hostile) * dw.Hostile

	if targetsSelf {
		b.Situational += w.TargetingSelfBonus
		if ctx.TargetID == e.ID {
			b.Situational += w.MutualTargetBonus
		}
	}
	if e.Unit.ObjectiveCarrier {
		b.Situational += w.ObjectiveBonus
	}

	if b.Hostile > b.Friendly*w.RiskMultiplier {
		b.Penalty = w.RiskPenalty
	}
	return b
}

func sortedEntities(units map[env.EntityID]*entity.Entity) []*entity.Entity {
	out := make([]*entity.Entity, 0, len(units))
	for _, e := range units {
		out = append(out, e)
	}
	slices.SortFunc(out, func(a, b *entity.Entity) int {
		switch {
		case a.ID < b.ID:
			return -1
		case a.ID > b.ID:
			return 1
		default:
			return 0
		}
	})
	return out
}
