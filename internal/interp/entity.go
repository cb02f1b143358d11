package interp

import (
	"github.com/timmeromberg/anima-sub000/internal/value"
)

// construct builds an entity instance. Field values resolve named argument
// first, then positional by declaration index, then the field's default
// expression evaluated in the caller's environment. Every invariant body
// then runs with the fields in scope; a false result aborts construction.
func (in *Interp) construct(t *value.EntityType, call value.Call, callerEnv *value.Env) (value.Value, error) {
	decl := t.Decl
	if len(call.Args) > len(decl.Fields) {
		return value.Value{}, value.Runtimef("%s expects at most %d fields, got %d",
			decl.Name, len(decl.Fields), len(call.Args))
	}
	for arg := range call.Named {
		if !hasField(t, arg) {
			return value.Value{}, value.Runtimef("%s has no field %q", decl.Name, arg)
		}
	}

	ent := &value.Entity{
		Type:    t,
		Order:   make([]string, 0, len(decl.Fields)),
		Fields:  map[string]value.Value{},
		Mutable: map[string]bool{},
	}
	for i, f := range decl.Fields {
		ent.Order = append(ent.Order, f.Name)
		ent.Mutable[f.Name] = f.Mutable

		if v, ok := call.Named[f.Name]; ok {
			ent.Fields[f.Name] = v
			continue
		}
		if i < len(call.Args) {
			ent.Fields[f.Name] = call.Args[i]
			continue
		}
		if f.Default != nil {
			v, err := in.evalValue(f.Default, callerEnv)
			if err != nil {
				return value.Value{}, err
			}
			ent.Fields[f.Name] = v
			continue
		}
		return value.Value{}, value.Runtimef("missing field %q in %s", f.Name, decl.Name)
	}

	if err := in.checkInvariants(ent); err != nil {
		return value.Value{}, err
	}
	return value.Of(ent), nil
}

func hasField(t *value.EntityType, name string) bool {
	for _, f := range t.Decl.Fields {
		if f.Name == name {
			return true
		}
	}
	return false
}

// checkInvariants runs each invariant body in a scope binding every field
// directly plus `this` for the instance under construction.
func (in *Interp) checkInvariants(ent *value.Entity) error {
	for _, inv := range ent.Type.Decl.Invariants {
		scope := ent.Type.Env.Child()
		for _, name := range ent.Order {
			if err := scope.Define(name, ent.Fields[name], false); err != nil {
				return err
			}
		}
		if err := scope.Define("this", value.Of(ent), false); err != nil {
			return err
		}
		r, err := in.execBlock(inv, scope)
		if err != nil {
			return err
		}
		if r.kind != ctrlNormal {
			return value.Runtimef("%s not permitted in an invariant", r.kind)
		}
		if b, ok := r.val.Data.(value.Bool); ok && !b.V {
			return value.Runtimef("invariant violated for %s", ent.TypeName())
		}
	}
	return nil
}

// copyEntity clones ent, overriding only named arguments and re-running the
// invariants against the new field values.
func (in *Interp) copyEntity(ent *value.Entity, call value.Call) (value.Value, error) {
	if len(call.Args) > 0 {
		return value.Value{}, value.Runtimef("copy accepts named arguments only")
	}
	for arg := range call.Named {
		if _, ok := ent.Fields[arg]; !ok {
			return value.Value{}, value.Runtimef("%s has no field %q", ent.TypeName(), arg)
		}
	}

	dup := &value.Entity{
		Type:    ent.Type,
		Order:   append([]string(nil), ent.Order...),
		Fields:  map[string]value.Value{},
		Mutable: map[string]bool{},
	}
	for _, name := range ent.Order {
		dup.Mutable[name] = ent.Mutable[name]
		if v, ok := call.Named[name]; ok {
			dup.Fields[name] = v
		} else {
			dup.Fields[name] = ent.Fields[name]
		}
	}
	if err := in.checkInvariants(dup); err != nil {
		return value.Value{}, err
	}
	return value.Of(dup), nil
}
