package interp

import (
	"github.com/timmeromberg/anima-sub000/internal/ast"
	animaotel "github.com/timmeromberg/anima-sub000/internal/otel"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

// instantiate builds a live agent from its declaration: constructor
// parameters bind like entity fields, then the declared sections run in
// order against the agent's private context environment.
func (in *Interp) instantiate(t *value.AgentType, call value.Call, callerEnv *value.Env) (value.Value, error) {
	decl := t.Decl
	ctx := t.Env.Child()

	a := &value.Agent{
		Type:     t,
		ID:       newAgentID(),
		Ctx:      ctx,
		Methods:  map[string]*value.Function{},
		Handlers: map[string]*value.Function{},
		Boundary: &value.Boundary{MaxToolCalls: -1},
	}
	if err := ctx.Define("this", value.Of(a), false); err != nil {
		return value.Value{}, err
	}
	if err := in.bindParams(decl.Params, call, ctx, callerEnv, decl.Name); err != nil {
		return value.Value{}, err
	}

	for _, st := range decl.Context {
		r, err := in.execStmt(st, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if r.kind != ctrlNormal {
			return value.Value{}, value.Runtimef("%s not permitted in an agent context section", r.kind)
		}
	}

	// Tools are declared surface, not behavior: each registers a stub that
	// errors until a host connects an implementation.
	for _, tool := range decl.Tools {
		name := tool.Name
		ctx.DefineOrUpdate(name, value.Of(&value.Builtin{
			Name: name,
			Fn: func(value.Call) (value.Value, error) {
				return value.Value{}, value.Runtimef("tool %q is not connected", name)
			},
		}), false)
	}

	if decl.Boundaries != nil {
		for _, assign := range decl.Boundaries.Assigns {
			v, err := in.evalValue(assign.Value, ctx)
			if err != nil {
				return value.Value{}, err
			}
			ctx.DefineOrUpdate(assign.Name, v, false)
			if assign.Name == "maxToolCalls" {
				n, ok := v.Data.(value.Int)
				if !ok {
					return value.Value{}, value.Typef("maxToolCalls must be a number, got %s", v.Data.TypeName())
				}
				a.Boundary.MaxToolCalls = int(n.V)
			}
		}
		a.Boundary.Can = append(a.Boundary.Can, decl.Boundaries.Can...)
		a.Boundary.Cannot = append(a.Boundary.Cannot, decl.Boundaries.Cannot...)
	}

	for _, m := range decl.Methods {
		fn := &value.Function{Name: m.Name, Params: m.Params, Body: m.Body, Env: ctx}
		a.Methods[m.Name] = fn
		ctx.DefineOrUpdate(m.Name, value.Of(fn), false)
	}

	for _, h := range decl.Handlers {
		a.Handlers[h.Event] = &value.Function{
			Name:   "on" + h.Event,
			Params: []ast.Param{{Name: "event"}},
			Body:   h.Body,
			Env:    ctx,
		}
	}

	for _, st := range decl.Team {
		r, err := in.execStmt(st, ctx)
		if err != nil {
			return value.Value{}, err
		}
		if r.kind != ctrlNormal {
			return value.Value{}, value.Runtimef("%s not permitted in an agent team section", r.kind)
		}
		if member, ok := r.val.Data.(*value.Agent); ok {
			a.Team = append(a.Team, member)
		}
	}

	in.log.Debug().
		Str("agent", a.ID).
		Str("type", decl.Name).
		Int("budget", a.Boundary.MaxToolCalls).
		Func(animaotel.LogTraceFields(in.ctx)).
		Msg("agent instantiated")
	return value.Of(a), nil
}

// evalDelegate runs a block against a target agent's context, charging its
// tool-call budget first. The counter only increases; once it exceeds the
// budget every later delegation fails, and the body never runs.
func (in *Interp) evalDelegate(e *ast.DelegateExpr, env *value.Env) (result, error) {
	tv, err := in.evalValue(e.Target, env)
	if err != nil {
		return result{}, err
	}
	a, ok := tv.Data.(*value.Agent)
	if !ok {
		return result{}, value.Typef("cannot delegate to %s", tv.Data.TypeName())
	}

	if b := a.Boundary; b.MaxToolCalls >= 0 {
		b.ToolCalls++
		if b.ToolCalls > b.MaxToolCalls {
			return result{}, value.Runtimef("agent %s exceeded its tool-call budget of %d",
				a.TypeName(), b.MaxToolCalls)
		}
	}

	in.log.Debug().Str("agent", a.ID).Int("toolCalls", a.Boundary.ToolCalls).
		Func(animaotel.LogTraceFields(in.ctx)).Msg("delegation")
	return in.execBlock(e.Body, a.Ctx.Child())
}

// evalEmit dispatches an event to the nearest `this` agent. The event's type
// name comes from an entity's type, a text value's content, or the value's
// kind; without a matching handler, emission is a silent no-op.
func (in *Interp) evalEmit(e *ast.EmitExpr, env *value.Env) (result, error) {
	ev, err := in.evalValue(e.Value, env)
	if err != nil {
		return result{}, err
	}

	var name string
	switch d := ev.Data.(type) {
	case *value.Entity:
		name = d.TypeName()
	case value.Text:
		name = d.V
	default:
		name = d.TypeName()
	}

	this, err := env.Get("this")
	if err != nil {
		return normal(value.NewUnit()), nil
	}
	a, ok := this.Data.(*value.Agent)
	if !ok {
		return normal(value.NewUnit()), nil
	}
	handler, ok := a.Handlers[name]
	if !ok {
		return normal(value.NewUnit()), nil
	}

	in.log.Debug().Str("agent", a.ID).Str("event", name).Msg("event dispatch")
	if _, err := in.callFunction(handler, value.Call{Args: []value.Value{ev}}, env); err != nil {
		return result{}, err
	}
	return normal(value.NewUnit()), nil
}

func (in *Interp) evalSpawn(e *ast.SpawnExpr, env *value.Env) (result, error) {
	r, err := in.evalCall(e.Call, env)
	if err != nil || r.kind != ctrlNormal {
		return r, err
	}
	if _, ok := r.val.Data.(*value.Agent); !ok {
		return result{}, value.Typef("spawn requires an agent type, got %s", r.val.Data.TypeName())
	}
	return r, nil
}

// evalParallel runs the block's statements sequentially in declaration order
// and collects their values into a list. There is no real concurrency in
// this runtime; the construct is structured-but-sequential.
func (in *Interp) evalParallel(e *ast.ParallelExpr, env *value.Env) (result, error) {
	scope := env.Child()
	results := make([]value.Value, 0, len(e.Body.Stmts))
	for _, st := range e.Body.Stmts {
		r, err := in.execStmt(st, scope)
		if err != nil {
			return result{}, err
		}
		if r.kind != ctrlNormal {
			return r, nil
		}
		results = append(results, r.val)
	}
	return normal(value.NewList(results, false)), nil
}
