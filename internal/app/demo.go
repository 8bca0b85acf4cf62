package app

import (
	"fmt"
	"math"
	"math/rand"

	"mine-and-die/agent/internal/config"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
	"mine-and-die/agent/internal/simenv"
)

const demoLocalID env.EntityID = 1

var demoNodes = []struct {
	name      string
	resources env.ResourceFlags
}{
	{"Peacebloom", env.ResourceHerb},
	{"Copper Vein", env.ResourceOre},
	{"Silverleaf", env.ResourceHerb},
	{"Tin Vein", env.ResourceOre},
	{"Battered Chest", env.ResourceTreasure},
}

// NewDemoWorld seeds a simulated map with resource nodes and hostile units
// scattered around the agent's spawn at the origin.
func NewDemoWorld(cfg config.DemoConfig) *simenv.World {
	world := simenv.New(simenv.Options{MapID: cfg.MapID}, demoLocalID, geom.Vec3{})
	rng := rand.New(rand.NewSource(cfg.Seed))
	radius := cfg.Radius
	if radius <= 0 {
		radius = 60
	}

	next := demoLocalID + 1
	for i := 0; i < cfg.Nodes; i++ {
		node := demoNodes[i%len(demoNodes)]
		world.AddObject(next, node.name, scatter(rng, radius), node.resources)
		next++
	}
	for i := 0; i < cfg.Hostiles; i++ {
		world.AddUnit(next, env.KindUnit, fmt.Sprintf("Kobold %d", i+1), scatter(rng, radius), env.UnitInfo{
			Health:    100,
			HealthMax: 100,
			Reaction:  env.ReactionHostile,
		})
		next++
	}
	return world
}

func scatter(rng *rand.Rand, radius float64) geom.Vec3 {
	angle := rng.Float64() * 2 * math.Pi
	dist := math.Sqrt(rng.Float64()) * radius
	return geom.Vec3{X: math.Cos(angle) * dist, Y: math.Sin(angle) * dist}
}
