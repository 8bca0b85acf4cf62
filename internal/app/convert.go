package app

import (
	"fmt"

	"mine-and-die/agent/internal/agent"
	"mine-and-die/agent/internal/config"
	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/locations"
	"mine-and-die/agent/internal/scoring"
	"mine-and-die/agent/internal/states"
)

var resourceFlags = map[string]env.ResourceFlags{
	"herb":     env.ResourceHerb,
	"ore":      env.ResourceOre,
	"treasure": env.ResourceTreasure,
}

// AgentConfig maps the file configuration onto the agent's typed knobs.
func AgentConfig(cfg config.Config) (agent.Config, error) {
	var resources env.ResourceFlags
	for _, name := range cfg.Tasks.Resources {
		flag, ok := resourceFlags[name]
		if !ok {
			return agent.Config{}, fmt.Errorf("unknown resource %q", name)
		}
		resources |= flag
	}

	density := make(map[scoring.Role]scoring.DensityWeights, len(cfg.Scoring.Roles))
	for name, w := range cfg.Scoring.Roles {
		density[scoring.ParseRole(name)] = scoring.DensityWeights{Friendly: w.Friendly, Hostile: w.Hostile}
	}

	kinds := make([]locations.Kind, 0, len(cfg.Search.Kinds))
	for _, k := range cfg.Search.Kinds {
		kinds = append(kinds, locations.Kind(k))
	}

	views := make([]agent.ExprView, 0, len(cfg.Views))
	for _, v := range cfg.Views {
		views = append(views, agent.ExprView{Name: v.Name, Unit: v.Unit, Object: v.Object})
	}

	sc := cfg.Scoring
	return agent.Config{
		Role:        scoring.ParseRole(cfg.Loop.Role),
		RescanTicks: cfg.Loop.RescanTicks,
		Resources:   resources,
		Cache: entity.Config{
			ScanRadius:       cfg.Cache.ScanRadius,
			LineOfSightRange: cfg.Cache.LineOfSightRange,
			EyeHeight:        cfg.Cache.EyeHeight,
		},
		Scoring: scoring.Config{
			Weights: scoring.Weights{
				Base:               sc.Base,
				Proximity:          sc.Proximity,
				NonThreatProximity: sc.NonThreatProximity,
				HealthDeficit:      sc.HealthDeficit,
				Density:            density,
				TargetingSelfBonus: sc.TargetingSelfBonus,
				MutualTargetBonus:  sc.MutualTargetBonus,
				ObjectiveBonus:     sc.ObjectiveBonus,
				RiskMultiplier:     sc.RiskMultiplier,
				RiskPenalty:        sc.RiskPenalty,
			},
			MaxRange:      sc.MaxRange,
			DensityRadius: sc.DensityRadius,
			Interval:      sc.Interval,
		},
		Planner: scoring.PlannerConfig{
			Interval:     sc.PlannerInterval,
			MaxRange:     sc.MaxRange,
			GatherBase:   sc.GatherBase,
			LootBase:     sc.LootBase,
			HuntWhenIdle: sc.HuntWhenIdle,
		},
		States: states.Config{
			InteractRange:     cfg.Tasks.InteractRange,
			MoveTolerance:     cfg.Tasks.MoveTolerance,
			StallTicks:        cfg.Tasks.StallTicks,
			AttackInterval:    cfg.Tasks.AttackInterval,
			GatherTimeout:     cfg.Tasks.GatherTimeout,
			LootTimeout:       cfg.Tasks.LootTimeout,
			KillTimeout:       cfg.Tasks.KillTimeout,
			BlacklistDuration: cfg.Tasks.BlacklistDuration,
			Search: states.SearchConfig{
				ArriveRadius:    cfg.Search.ArriveRadius,
				RevisitCooldown: cfg.Search.RevisitCooldown,
				Timeout:         cfg.Search.Timeout,
				Kinds:           kinds,
				Seed:            cfg.Search.Seed,
			},
		},
		Locations: locations.Config{
			FlushInterval: cfg.Locations.FlushInterval,
			DedupeRadius:  cfg.Locations.DedupeRadius,
		},
		Views: views,
	}, nil
}
