package view

import (
	"fmt"

	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"

	"mine-and-die/agent/internal/entity"
	"mine-and-die/agent/internal/env"
	"mine-and-die/agent/internal/geom"
)

// ExprEnv is the variable set visible to view expressions, e.g.
// `Hostile && !Dead && Distance < 40` or `Herb || Ore`.
type ExprEnv struct {
	ID       uint64
	Kind     string
	Name     string
	Distance float64

	Health        float64
	HealthMax     float64
	HealthPct     float64
	Reaction      int
	Hostile       bool
	Friendly      bool
	Dead          bool
	Casting       bool
	Channeling    bool
	InCombat      bool
	Lootable      bool
	InLineOfSight bool

	Herb     bool
	Ore      bool
	Treasure bool
	InUse    bool
}

// ExprPredicate evaluates compiled expressions against cache entities. An
// empty expression rejects that family. Evaluation errors reject the entity
// and are retained in LastError.
type ExprPredicate struct {
	cache   *entity.Cache
	unit    *vm.Program
	object  *vm.Program
	lastErr error
}

// CompileExpr compiles the unit and object expressions. cache supplies the
// local agent for the Distance variable and may be nil.
func CompileExpr(cache *entity.Cache, unitExpr, objectExpr string) (*ExprPredicate, error) {
	p := &ExprPredicate{cache: cache}
	var err error
	if p.unit, err = compile(unitExpr); err != nil {
		return nil, fmt.Errorf("unit expression %q: %w", unitExpr, err)
	}
	if p.object, err = compile(objectExpr); err != nil {
		return nil, fmt.Errorf("object expression %q: %w", objectExpr, err)
	}
	return p, nil
}

func compile(source string) (*vm.Program, error) {
	if source == "" {
		return nil, nil
	}
	return expr.Compile(source, expr.Env(ExprEnv{}), expr.AsBool())
}

func (p *ExprPredicate) FilterUnit(e *entity.Entity) bool {
	return p.run(p.unit, e)
}

func (p *ExprPredicate) FilterGameObject(e *entity.Entity) bool {
	return p.run(p.object, e)
}

// LastError returns the most recent evaluation error.
func (p *ExprPredicate) LastError() error {
	return p.lastErr
}

func (p *ExprPredicate) run(program *vm.Program, e *entity.Entity) bool {
	if program == nil || e == nil {
		return false
	}
	out, err := expr.Run(program, p.envFor(e))
	if err != nil {
		p.lastErr = err
		return false
	}
	matched, ok := out.(bool)
	return ok && matched
}

func (p *ExprPredicate) envFor(e *entity.Entity) ExprEnv {
	out := ExprEnv{
		ID:   uint64(e.ID),
		Kind: e.Kind.String(),
		Name: e.Name,
	}
	if p.cache != nil {
		if local, ok := p.cache.Local(); ok {
			out.Distance = geom.Distance(local.Position, e.Position)
		}
	}
	if e.IsUnit() {
		u := e.Unit
		out.Health = u.Health
		out.HealthMax = u.HealthMax
		out.HealthPct = e.HealthFraction() * 100
		out.Reaction = int(u.Reaction)
		out.Hostile = u.Reaction.Hostile()
		out.Friendly = u.Reaction.Friendly()
		out.Dead = u.Dead
		out.Casting = u.Casting
		out.Channeling = u.Channeling
		out.InCombat = u.InCombat
		out.Lootable = u.Lootable
		out.InLineOfSight = u.InLineOfSight
	}
	if e.IsObject() {
		o := e.Object
		out.Herb = o.Resources.Has(env.ResourceHerb)
		out.Ore = o.Resources.Has(env.ResourceOre)
		out.Treasure = o.Resources.Has(env.ResourceTreasure)
		out.InUse = o.InUse
	}
	return out
}
