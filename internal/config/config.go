// Package config resolves the agent's typed configuration once at startup.
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"slices"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"mine-and-die/agent/internal/telemetry"
)

// ErrInvalid wraps every validation failure.
var ErrInvalid = errors.New("config: invalid")

type Config struct {
	Loop      LoopConfig      `yaml:"loop" json:"loop"`
	Cache     CacheConfig     `yaml:"cache" json:"cache"`
	Scoring   ScoringConfig   `yaml:"scoring" json:"scoring"`
	Tasks     TasksConfig     `yaml:"tasks" json:"tasks"`
	Search    SearchConfig    `yaml:"search" json:"search"`
	Views     []ViewConfig    `yaml:"views" json:"views,omitempty"`
	Locations LocationsConfig `yaml:"locations" json:"locations"`
	Logging   LoggingConfig   `yaml:"logging" json:"logging"`
	Status    StatusConfig    `yaml:"status" json:"status"`
	Demo      DemoConfig      `yaml:"demo" json:"demo"`
}

type LoopConfig struct {
	TickInterval time.Duration `yaml:"tickInterval" json:"tickInterval" jsonschema:"description=Agent tick period in nanoseconds"`
	// RescanTicks is how often views re-admit cache entries that started
	// matching after creation (corpses turning lootable).
	RescanTicks int    `yaml:"rescanTicks" json:"rescanTicks"`
	Role        string `yaml:"role" json:"role" jsonschema:"enum=damage,enum=tank,enum=healer"`
}

type CacheConfig struct {
	ScanRadius       float64 `yaml:"scanRadius" json:"scanRadius"`
	LineOfSightRange float64 `yaml:"lineOfSightRange" json:"lineOfSightRange"`
	EyeHeight        float64 `yaml:"eyeHeight" json:"eyeHeight"`
}

type DensityWeights struct {
	Friendly float64 `yaml:"friendly" json:"friendly"`
	Hostile  float64 `yaml:"hostile" json:"hostile"`
}

type ScoringConfig struct {
	Interval           time.Duration             `yaml:"interval" json:"interval"`
	MaxRange           float64                   `yaml:"maxRange" json:"maxRange"`
	DensityRadius      float64                   `yaml:"densityRadius" json:"densityRadius"`
	Base               float64                   `yaml:"base" json:"base"`
	Proximity          float64                   `yaml:"proximity" json:"proximity"`
	NonThreatProximity float64                   `yaml:"nonThreatProximity" json:"nonThreatProximity"`
	HealthDeficit      float64                   `yaml:"healthDeficit" json:"healthDeficit"`
	Roles              map[string]DensityWeights `yaml:"roles" json:"roles"`
	TargetingSelfBonus float64                   `yaml:"targetingSelfBonus" json:"targetingSelfBonus"`
	MutualTargetBonus  float64                   `yaml:"mutualTargetBonus" json:"mutualTargetBonus"`
	ObjectiveBonus     float64                   `yaml:"objectiveBonus" json:"objectiveBonus"`
	RiskMultiplier     float64                   `yaml:"riskMultiplier" json:"riskMultiplier"`
	RiskPenalty        float64                   `yaml:"riskPenalty" json:"riskPenalty"`

	PlannerInterval time.Duration `yaml:"plannerInterval" json:"plannerInterval"`
	GatherBase      float64       `yaml:"gatherBase" json:"gatherBase"`
	LootBase        float64       `yaml:"lootBase" json:"lootBase"`
	HuntWhenIdle    bool          `yaml:"huntWhenIdle" json:"huntWhenIdle"`
}

type TasksConfig struct {
	InteractRange     float64       `yaml:"interactRange" json:"interactRange"`
	MoveTolerance     float64       `yaml:"moveTolerance" json:"moveTolerance"`
	StallTicks        int           `yaml:"stallTicks" json:"stallTicks"`
	AttackInterval    time.Duration `yaml:"attackInterval" json:"attackInterval"`
	GatherTimeout     time.Duration `yaml:"gatherTimeout" json:"gatherTimeout"`
	LootTimeout       time.Duration `yaml:"lootTimeout" json:"lootTimeout"`
	KillTimeout       time.Duration `yaml:"killTimeout" json:"killTimeout"`
	BlacklistDuration time.Duration `yaml:"blacklistDuration" json:"blacklistDuration"`
	// Resources lists the node kinds the harvest view admits.
	Resources []string `yaml:"resources" json:"resources" jsonschema:"enum=herb,enum=ore,enum=treasure"`
}

type SearchConfig struct {
	ArriveRadius    float64       `yaml:"arriveRadius" json:"arriveRadius"`
	RevisitCooldown time.Duration `yaml:"revisitCooldown" json:"revisitCooldown"`
	Timeout         time.Duration `yaml:"timeout" json:"timeout"`
	Kinds           []string      `yaml:"kinds" json:"kinds,omitempty"`
	Seed            int64         `yaml:"seed" json:"seed"`
}

// ViewConfig declares an expression-filtered view. Unit and Object are
// expr-lang sources evaluated per entity; an empty source rejects the family.
type ViewConfig struct {
	Name   string `yaml:"name" json:"name"`
	Unit   string `yaml:"unit" json:"unit,omitempty"`
	Object string `yaml:"object" json:"object,omitempty"`
}

type LocationsConfig struct {
	Backend       string        `yaml:"backend" json:"backend" jsonschema:"enum=memory,enum=sqlite"`
	Path          string        `yaml:"path" json:"path,omitempty"`
	FlushInterval time.Duration `yaml:"flushInterval" json:"flushInterval"`
	DedupeRadius  float64       `yaml:"dedupeRadius" json:"dedupeRadius"`
}

type LoggingConfig struct {
	Sinks         []string      `yaml:"sinks" json:"sinks" jsonschema:"enum=console,enum=json"`
	BufferSize    int           `yaml:"bufferSize" json:"bufferSize"`
	MinSeverity   string        `yaml:"minSeverity" json:"minSeverity" jsonschema:"enum=debug,enum=info,enum=warn,enum=error"`
	JSONPath      string        `yaml:"jsonPath" json:"jsonPath,omitempty"`
	FlushInterval time.Duration `yaml:"flushInterval" json:"flushInterval"`
}

type StatusConfig struct {
	Addr              string        `yaml:"addr" json:"addr"`
	BroadcastInterval time.Duration `yaml:"broadcastInterval" json:"broadcastInterval"`
	Pprof             bool          `yaml:"pprof" json:"pprof" jsonschema:"description=Mount net/http/pprof under /debug/pprof/"`
}

// DemoConfig shapes the simulated world the agent binary runs against.
type DemoConfig struct {
	Seed     int64   `yaml:"seed" json:"seed"`
	Nodes    int     `yaml:"nodes" json:"nodes"`
	Hostiles int     `yaml:"hostiles" json:"hostiles"`
	Radius   float64 `yaml:"radius" json:"radius"`
	MapID    uint32  `yaml:"mapId" json:"mapId"`
}

func Default() Config {
	return Config{
		Loop: LoopConfig{
			TickInterval: 100 * time.Millisecond,
			RescanTicks:  10,
			Role:         "damage",
		},
		Cache: CacheConfig{
			ScanRadius:       100,
			LineOfSightRange: 60,
			EyeHeight:        2,
		},
		Scoring: ScoringConfig{
			Interval:           5 * time.Second,
			MaxRange:           60,
			DensityRadius:      20,
			Base:               1000,
			Proximity:          100,
			NonThreatProximity: 0.5,
			HealthDeficit:      50,
			Roles: map[string]DensityWeights{
				"damage": {Friendly: 2, Hostile: 2},
				"tank":   {Friendly: 1, Hostile: 3},
				"healer": {Friendly: 4, Hostile: 2},
			},
			TargetingSelfBonus: 150,
			MutualTargetBonus:  100,
			ObjectiveBonus:     300,
			RiskMultiplier:     1.5,
			RiskPenalty:        1000,
			PlannerInterval:    time.Second,
			GatherBase:         500,
			LootBase:           600,
		},
		Tasks: TasksConfig{
			InteractRange:     4.5,
			MoveTolerance:     1,
			StallTicks:        30,
			AttackInterval:    1500 * time.Millisecond,
			GatherTimeout:     30 * time.Second,
			LootTimeout:       15 * time.Second,
			KillTimeout:       time.Minute,
			BlacklistDuration: 2 * time.Minute,
			Resources:         []string{"herb", "ore"},
		},
		Search: SearchConfig{
			ArriveRadius:    3,
			RevisitCooldown: 5 * time.Minute,
			Timeout:         2 * time.Minute,
			Seed:            1,
		},
		Locations: LocationsConfig{
			Backend:       "memory",
			FlushInterval: 30 * time.Second,
			DedupeRadius:  3,
		},
		Logging: LoggingConfig{
			Sinks:         []string{"console"},
			BufferSize:    512,
			MinSeverity:   "info",
			FlushInterval: 2 * time.Second,
		},
		Status: StatusConfig{
			Addr:              ":8080",
			BroadcastInterval: time.Second,
		},
		Demo: DemoConfig{
			Seed:     7,
			Nodes:    12,
			Hostiles: 4,
			Radius:   60,
			MapID:    1,
		},
	}
}

// LoadDotEnv loads the given .env files into the process environment.
// Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if err := godotenv.Load(paths...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return fmt.Errorf("load env file: %w", err)
	}
	return nil
}

// Load reads the YAML file at path over the defaults, applies environment
// overrides and validates the result. An empty path skips the file.
func Load(path string, logger telemetry.Logger) (Config, error) {
	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := Decode(data, &cfg); err != nil {
			return Config{}, fmt.Errorf("parse config %s: %w", path, err)
		}
	}
	ApplyEnv(&cfg, logger)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Decode strictly unmarshals YAML into cfg, keeping fields the document
// does not mention.
func Decode(data []byte, cfg *Config) error {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return err
	}
	return nil
}

// ApplyEnv overrides selected fields from AGENT_* variables. Malformed
// values are reported and ignored.
func ApplyEnv(cfg *Config, logger telemetry.Logger) {
	if logger == nil {
		logger = telemetry.LoggerFunc(func(string, ...any) {})
	}
	durationVar := func(name string, dst *time.Duration) {
		if raw := os.Getenv(name); raw != "" {
			if value, err := time.ParseDuration(raw); err == nil {
				*dst = value
			} else {
				logger.Printf("invalid %s=%q: %v", name, raw, err)
			}
		}
	}
	stringVar := func(name string, dst *string) {
		if raw := os.Getenv(name); raw != "" {
			*dst = raw
		}
	}

	durationVar("AGENT_TICK_INTERVAL", &cfg.Loop.TickInterval)
	durationVar("AGENT_SCORING_INTERVAL", &cfg.Scoring.Interval)
	stringVar("AGENT_ROLE", &cfg.Loop.Role)
	stringVar("AGENT_STATUS_ADDR", &cfg.Status.Addr)
	stringVar("AGENT_LOCATIONS_BACKEND", &cfg.Locations.Backend)
	stringVar("AGENT_LOCATIONS_PATH", &cfg.Locations.Path)
	stringVar("AGENT_LOG_MIN_SEVERITY", &cfg.Logging.MinSeverity)
	stringVar("AGENT_LOG_JSON_PATH", &cfg.Logging.JSONPath)

	if raw := os.Getenv("AGENT_SEARCH_SEED"); raw != "" {
		if value, err := strconv.ParseInt(raw, 10, 64); err == nil {
			cfg.Search.Seed = value
		} else {
			logger.Printf("invalid AGENT_SEARCH_SEED=%q: %v", raw, err)
		}
	}
	boolVar := func(name string, dst *bool) {
		if raw := os.Getenv(name); raw != "" {
			if value, err := strconv.ParseBool(raw); err == nil {
				*dst = value
			} else {
				logger.Printf("invalid %s=%q: %v", name, raw, err)
			}
		}
	}
	boolVar("AGENT_HUNT_WHEN_IDLE", &cfg.Scoring.HuntWhenIdle)
	boolVar("AGENT_ENABLE_PPROF", &cfg.Status.Pprof)
}

var (
	roles      = []string{"damage", "tank", "healer"}
	backends   = []string{"memory", "sqlite"}
	sinkNames  = []string{"console", "json"}
	severities = []string{"debug", "info", "warn", "warning", "error"}
	resources  = []string{"herb", "ore", "treasure"}
	kinds      = []string{"herb", "ore", "treasure", "hotspot"}
)

// Validate reports every problem at once; each wraps ErrInvalid.
func (c Config) Validate() error {
	var errs []error
	fail := func(format string, args ...any) {
		errs = append(errs, fmt.Errorf("%w: "+format, append([]any{ErrInvalid}, args...)...))
	}
	positive := func(name string, d time.Duration) {
		if d <= 0 {
			fail("%s must be positive", name)
		}
	}
	positiveFloat := func(name string, v float64) {
		if v <= 0 {
			fail("%s must be positive", name)
		}
	}

	positive("loop.tickInterval", c.Loop.TickInterval)
	if c.Loop.RescanTicks < 0 {
		fail("loop.rescanTicks must not be negative")
	}
	if !slices.Contains(roles, c.Loop.Role) {
		fail("loop.role %q is not one of %v", c.Loop.Role, roles)
	}

	positiveFloat("cache.scanRadius", c.Cache.ScanRadius)
	positiveFloat("cache.lineOfSightRange", c.Cache.LineOfSightRange)

	positive("scoring.interval", c.Scoring.Interval)
	positive("scoring.plannerInterval", c.Scoring.PlannerInterval)
	positiveFloat("scoring.maxRange", c.Scoring.MaxRange)
	positiveFloat("scoring.densityRadius", c.Scoring.DensityRadius)
	if c.Scoring.RiskMultiplier < 0 {
		fail("scoring.riskMultiplier must not be negative")
	}
	for role := range c.Scoring.Roles {
		if !slices.Contains(roles, role) {
			fail("scoring.roles has unknown role %q", role)
		}
	}

	positiveFloat("tasks.interactRange", c.Tasks.InteractRange)
	positive("tasks.gatherTimeout", c.Tasks.GatherTimeout)
	positive("tasks.lootTimeout", c.Tasks.LootTimeout)
	positive("tasks.killTimeout", c.Tasks.KillTimeout)
	positive("tasks.attackInterval", c.Tasks.AttackInterval)
	for _, r := range c.Tasks.Resources {
		if !slices.Contains(resources, r) {
			fail("tasks.resources has unknown resource %q", r)
		}
	}

	positiveFloat("search.arriveRadius", c.Search.ArriveRadius)
	positive("search.timeout", c.Search.Timeout)
	for _, k := range c.Search.Kinds {
		if !slices.Contains(kinds, k) {
			fail("search.kinds has unknown kind %q", k)
		}
	}

	seen := make(map[string]bool, len(c.Views))
	for i, v := range c.Views {
		switch {
		case v.Name == "":
			fail("views[%d] has no name", i)
		case seen[v.Name]:
			fail("views[%d] duplicates name %q", i, v.Name)
		}
		seen[v.Name] = true
	}

	if !slices.Contains(backends, c.Locations.Backend) {
		fail("locations.backend %q is not one of %v", c.Locations.Backend, backends)
	}
	if c.Locations.Backend == "sqlite" && c.Locations.Path == "" {
		fail("locations.path is required for the sqlite backend")
	}
	positive("locations.flushInterval", c.Locations.FlushInterval)

	if c.Status.Addr == "" {
		fail("status.addr must not be empty")
	}
	positive("status.broadcastInterval", c.Status.BroadcastInterval)

	for _, s := range c.Logging.Sinks {
		if !slices.Contains(sinkNames, s) {
			fail("logging.sinks has unknown sink %q", s)
		}
	}
	if !slices.Contains(severities, c.Logging.MinSeverity) {
		fail("logging.minSeverity %q is not one of %v", c.Logging.MinSeverity, severities)
	}
	if slices.Contains(c.Logging.Sinks, "json") && c.Logging.JSONPath == "" {
		fail("logging.jsonPath is required for the json sink")
	}

	return errors.Join(errs...)
}
