package interp

import (
	"github.com/timmeromberg/anima-sub000/internal/ast"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

// evalValue evaluates an expression that must complete normally: a control
// signal escaping here is a malformed program.
func (in *Interp) evalValue(e ast.Expr, env *value.Env) (value.Value, error) {
	r, err := in.evalExpr(e, env)
	if err != nil {
		return value.Value{}, err
	}
	if r.kind != ctrlNormal {
		return value.Value{}, value.Runtimef("%s not permitted here", r.kind)
	}
	return r.val, nil
}

func (in *Interp) evalCall(e *ast.CallExpr, env *value.Env) (result, error) {
	// Member-call receivers are evaluated once, before the arguments, so
	// safe navigation can skip both member resolution and argument
	// evaluation on a null receiver.
	var callee value.Value
	if mem, ok := e.Callee.(*ast.MemberExpr); ok {
		recv, err := in.evalValue(mem.Recv, env)
		if err != nil {
			return result{}, err
		}
		if mem.Safe {
			if _, isNull := recv.Data.(value.Null); isNull {
				return normal(value.NewNull()), nil
			}
		}
		callee, err = in.member(recv, mem.Name, env)
		if err != nil {
			return result{}, err
		}
	} else {
		var err error
		callee, err = in.evalValue(e.Callee, env)
		if err != nil {
			return result{}, err
		}
	}

	call := value.Call{}
	for _, a := range e.Args {
		v, err := in.evalValue(a.Value, env)
		if err != nil {
			return result{}, err
		}
		if a.Name != "" {
			if call.Named == nil {
				call.Named = map[string]value.Value{}
			}
			call.Named[a.Name] = v
		} else {
			call.Args = append(call.Args, v)
		}
	}

	out, err := in.invoke(callee, call, env)
	if err != nil {
		return result{}, err
	}
	return normal(out), nil
}

// invoke dispatches a call on any callable value. Calling an entity type
// constructs an instance; calling an agent type instantiates an agent. A
// confidence annotation on the callee carries through to the call's result.
func (in *Interp) invoke(callee value.Value, call value.Call, callerEnv *value.Env) (value.Value, error) {
	out, err := in.invokeBare(callee.Data, call, callerEnv)
	if err != nil {
		return value.Value{}, err
	}
	if !callee.Certain() {
		out = value.WithConfidence(out, callee.Conf)
	}
	return out, nil
}

func (in *Interp) invokeBare(d value.Data, call value.Call, callerEnv *value.Env) (value.Value, error) {
	switch d := d.(type) {
	case *value.Builtin:
		return d.Fn(call)
	case *value.Function:
		return in.callFunction(d, call, callerEnv)
	case *value.EntityType:
		return in.construct(d, call, callerEnv)
	case *value.AgentType:
		return in.instantiate(d, call, callerEnv)
	}
	return value.Value{}, value.Typef("%s is not callable", d.TypeName())
}

// callFunction binds parameters in a fresh child of the closure environment
// and evaluates the body. A return signal produces the call's result;
// otherwise the body's trailing expression value does.
func (in *Interp) callFunction(fn *value.Function, call value.Call, callerEnv *value.Env) (value.Value, error) {
	scope := fn.Env.Child()
	return in.callFunctionIn(fn, call, scope, callerEnv)
}

// callFunctionWithThis is callFunction with a receiver bound to `this`,
// used for extension-function dispatch.
func (in *Interp) callFunctionWithThis(fn *value.Function, call value.Call, this value.Value, callerEnv *value.Env) (value.Value, error) {
	scope := fn.Env.Child()
	if err := scope.Define("this", this, false); err != nil {
		return value.Value{}, err
	}
	return in.callFunctionIn(fn, call, scope, callerEnv)
}

func (in *Interp) callFunctionIn(fn *value.Function, call value.Call, scope, callerEnv *value.Env) (value.Value, error) {
	if err := in.bindParams(fn.Params, call, scope, callerEnv, fn.Name); err != nil {
		return value.Value{}, err
	}
	r, err := in.execBlock(fn.Body, scope)
	if err != nil {
		return value.Value{}, err
	}
	switch r.kind {
	case ctrlReturn, ctrlNormal:
		return r.val, nil
	}
	return value.Value{}, value.Runtimef("%s escaped function body", r.kind)
}

// bindParams resolves each declared parameter: a named argument wins over a
// positional one, a positional one over the default expression (evaluated in
// the caller's environment); a missing required argument is an error. Excess
// and unknown arguments are errors too.
func (in *Interp) bindParams(params []ast.Param, call value.Call, scope, callerEnv *value.Env, name string) error {
	if name == "" {
		name = "<lambda>"
	}
	if len(call.Args) > len(params) {
		return value.Runtimef("%s expects at most %d arguments, got %d", name, len(params), len(call.Args))
	}
	for arg := range call.Named {
		known := false
		for _, p := range params {
			if p.Name == arg {
				known = true
				break
			}
		}
		if !known {
			return value.Runtimef("%s has no parameter %q", name, arg)
		}
	}

	for i, p := range params {
		if v, ok := call.Named[p.Name]; ok {
			if err := scope.Define(p.Name, v, false); err != nil {
				return err
			}
			continue
		}
		if i < len(call.Args) {
			if err := scope.Define(p.Name, call.Args[i], false); err != nil {
				return err
			}
			continue
		}
		if p.Default != nil {
			v, err := in.evalValue(p.Default, callerEnv)
			if err != nil {
				return err
			}
			if err := scope.Define(p.Name, v, false); err != nil {
				return err
			}
			continue
		}
		return value.Runtimef("missing argument %q in call to %s", p.Name, name)
	}
	return nil
}

// invokeCallback runs a user-supplied callable with positional arguments;
// the shared entry point for every higher-order collection operation.
func (in *Interp) invokeCallback(fn value.Value, args ...value.Value) (value.Value, error) {
	return in.invoke(fn, value.Call{Args: args}, in.global)
}
