package view

import (
	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
)

// Harvestable tracks game objects offering any resource in mask.
func Harvestable(mask env.ResourceFlags) Predicate {
	return Funcs{
		Object: func(e *entity.Entity) bool {
			return e.Harvestable(mask) && !e.Object.InUse
		},
	}
}

// Lootable tracks corpses that still carry loot.
func Lootable() Predicate {
	return Funcs{
		Unit: func(e *entity.Entity) bool {
			return e.Lootable()
		},
	}
}

// HostilePlayers tracks living hostile players.
func HostilePlayers() Predicate {
	return Funcs{
		Unit: func(e *entity.Entity) bool {
			return e.Kind == env.KindPlayer && !e.Dead() && e.Hostile()
		},
	}
}

// HostileUnits tracks living hostile units and players.
func HostileUnits() Predicate {
	return Funcs{
		Unit: func(e *entity.Entity) bool {
			return !e.Dead() && e.Hostile()
		},
	}
}
