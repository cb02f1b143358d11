package interp

import (
	"github.com/timmeromberg/anima-sub000/internal/ast"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

func (in *Interp) evalMember(e *ast.MemberExpr, env *value.Env) (result, error) {
	recv, err := in.evalValue(e.Recv, env)
	if err != nil {
		return result{}, err
	}
	if e.Safe {
		if _, isNull := recv.Data.(value.Null); isNull {
			return normal(value.NewNull()), nil
		}
	}
	v, err := in.member(recv, e.Name, env)
	if err != nil {
		return result{}, err
	}
	return normal(v), nil
}

// member resolves name on recv. An annotated receiver first offers the
// reserved confidence accessors; any other member resolves against the bare
// value and the result is re-annotated with the receiver's confidence, so
// propagation survives arbitrary member chains.
func (in *Interp) member(recv value.Value, name string, env *value.Env) (value.Value, error) {
	if !recv.Certain() {
		if v, ok := in.confidentMember(recv, name); ok {
			return v, nil
		}
		bare := value.Of(recv.Data)
		out, err := in.member(bare, name, env)
		if err != nil {
			return value.Value{}, err
		}
		return reannotate(out, recv.Conf), nil
	}

	if v, ok, err := in.dataMember(recv, name, env); ok || err != nil {
		return v, err
	}

	// Extension functions, keyed by receiver type name with a fallback to
	// an entity's sealed parent.
	typeName := recv.Data.TypeName()
	fn, ok := in.lookupExtension(typeName, name)
	if !ok {
		if ent, isEnt := recv.Data.(*value.Entity); isEnt && ent.ParentName() != "" {
			fn, ok = in.lookupExtension(ent.ParentName(), name)
		}
	}
	if ok {
		this := recv
		ext := fn
		return value.Of(&value.Builtin{
			Name: typeName + "." + name,
			Fn: func(call value.Call) (value.Value, error) {
				return in.callFunctionWithThis(ext, call, this, env)
			},
		}), nil
	}

	// Certain values still answer the confidence accessors.
	switch name {
	case "confidence":
		return value.NewFloat(1), nil
	case "value":
		return recv, nil
	}

	return value.Value{}, value.Runtimef("%s has no member %q", typeName, name)
}

func (in *Interp) dataMember(recv value.Value, name string, env *value.Env) (value.Value, bool, error) {
	switch d := recv.Data.(type) {
	case value.Text:
		return in.textMember(d, name)
	case *value.List:
		return in.listMember(d, name)
	case *value.Map:
		return in.mapMember(d, name)
	case value.Int, value.Float:
		return in.numberMember(recv.Data, name)
	case *value.Entity:
		return in.entityMember(d, name, env)
	case *value.Agent:
		return in.agentMember(d, name)
	}
	return value.Value{}, false, nil
}

// confidentMember serves the reserved accessors of an annotated value.
func (in *Interp) confidentMember(recv value.Value, name string) (value.Value, bool) {
	bare := value.Of(recv.Data)
	switch name {
	case "confidence":
		return value.NewFloat(recv.Conf), true
	case "value":
		return bare, true
	case "unwrap":
		return value.Of(&value.Builtin{Name: "unwrap", Fn: func(value.Call) (value.Value, error) {
			return bare, nil
		}}), true
	case "decompose":
		return value.Of(&value.Builtin{Name: "decompose", Fn: func(value.Call) (value.Value, error) {
			return value.NewList([]value.Value{bare, value.NewFloat(recv.Conf)}, false), nil
		}}), true
	case "toString":
		return value.Of(&value.Builtin{Name: "toString", Fn: func(value.Call) (value.Value, error) {
			return value.NewText(value.Display(recv)), nil
		}}), true
	}
	return value.Value{}, false
}

// reannotate re-applies a receiver confidence to a member result. Bound
// callables defer the annotation to their eventual call result.
func reannotate(out value.Value, conf float64) value.Value {
	if b, ok := out.Data.(*value.Builtin); ok {
		inner := b.Fn
		return value.Of(&value.Builtin{Name: b.Name, Fn: func(call value.Call) (value.Value, error) {
			v, err := inner(call)
			if err != nil {
				return value.Value{}, err
			}
			return value.WithConfidence(v, conf), nil
		}})
	}
	return value.WithConfidence(out, conf)
}

func (in *Interp) entityMember(ent *value.Entity, name string, env *value.Env) (value.Value, bool, error) {
	if v, ok := ent.Fields[name]; ok {
		return v, true, nil
	}
	if name == "copy" {
		e := ent
		return value.Of(&value.Builtin{Name: ent.TypeName() + ".copy", Fn: func(call value.Call) (value.Value, error) {
			return in.copyEntity(e, call)
		}}), true, nil
	}
	return value.Value{}, false, nil
}

func (in *Interp) agentMember(a *value.Agent, name string) (value.Value, bool, error) {
	if m, ok := a.Methods[name]; ok {
		return value.Of(m), true, nil
	}
	switch name {
	case "id":
		return value.NewText(a.ID), true, nil
	case "toolCalls":
		return value.NewInt(int64(a.Boundary.ToolCalls)), true, nil
	}
	if v, err := a.Ctx.Get(name); err == nil {
		return v, true, nil
	}
	return value.Value{}, false, nil
}

// ---- indexing ----

func (in *Interp) evalIndex(e *ast.IndexExpr, env *value.Env) (result, error) {
	recv, err := in.evalValue(e.Recv, env)
	if err != nil {
		return result{}, err
	}
	idx, err := in.evalValue(e.Index, env)
	if err != nil {
		return result{}, err
	}

	out, err := indexValue(recv.Data, idx)
	if err != nil {
		return result{}, err
	}
	if !recv.Certain() {
		out = value.WithConfidence(out, recv.Conf)
	}
	return normal(out), nil
}

// indexValue resolves v[idx]. Out-of-range list/text indices and missing map
// keys yield null rather than erroring.
func indexValue(d value.Data, idx value.Value) (value.Value, error) {
	switch d := d.(type) {
	case *value.List:
		i, ok := idx.Data.(value.Int)
		if !ok {
			return value.Value{}, value.Typef("list index must be a number, got %s", idx.Data.TypeName())
		}
		if i.V < 0 || i.V >= int64(len(d.Elems)) {
			return value.NewNull(), nil
		}
		return d.Elems[i.V], nil
	case value.Text:
		i, ok := idx.Data.(value.Int)
		if !ok {
			return value.Value{}, value.Typef("text index must be a number, got %s", idx.Data.TypeName())
		}
		runes := []rune(d.V)
		if i.V < 0 || i.V >= int64(len(runes)) {
			return value.NewNull(), nil
		}
		return value.NewText(string(runes[i.V])), nil
	case *value.Map:
		if v, ok := d.Get(value.Key(idx)); ok {
			return v, nil
		}
		return value.NewNull(), nil
	}
	return value.Value{}, value.Typef("cannot index %s", d.TypeName())
}

// ---- assignment targets ----

func (in *Interp) assignIndex(target *ast.IndexExpr, v value.Value, env *value.Env) error {
	recv, err := in.evalValue(target.Recv, env)
	if err != nil {
		return err
	}
	idx, err := in.evalValue(target.Index, env)
	if err != nil {
		return err
	}

	switch d := recv.Data.(type) {
	case *value.List:
		if !d.Mutable {
			return value.Runtimef("cannot assign into an immutable list")
		}
		i, ok := idx.Data.(value.Int)
		if !ok {
			return value.Typef("list index must be a number, got %s", idx.Data.TypeName())
		}
		if i.V < 0 || i.V >= int64(len(d.Elems)) {
			return value.Runtimef("list index %d out of range (size %d)", i.V, len(d.Elems))
		}
		d.Elems[i.V] = v
		return nil
	case *value.Map:
		if !d.Mutable {
			return value.Runtimef("cannot assign into an immutable map")
		}
		d.Put(value.Key(idx), v)
		return nil
	}
	return value.Typef("cannot index-assign %s", recv.Data.TypeName())
}

func (in *Interp) assignMember(target *ast.MemberExpr, v value.Value, env *value.Env) error {
	recv, err := in.evalValue(target.Recv, env)
	if err != nil {
		return err
	}

	switch d := recv.Data.(type) {
	case *value.Entity:
		if _, ok := d.Fields[target.Name]; !ok {
			return value.Runtimef("%s has no field %q", d.TypeName(), target.Name)
		}
		if !d.Mutable[target.Name] {
			return value.Immutablef("field %q of %s is immutable", target.Name, d.TypeName())
		}
		d.Fields[target.Name] = v
		return nil
	case *value.Agent:
		return d.Ctx.Set(target.Name, v)
	}
	return value.Typef("cannot assign member on %s", recv.Data.TypeName())
}
