package value

// binding pairs a stored value with its declared mutability.
type binding struct {
	v       Value
	mutable bool
}

// Env is one lexical scope. Lookups walk the parent chain; definitions are
// always local.
type Env struct {
	parent   *Env
	bindings map[string]binding
}

// NewEnv creates a root environment.
func NewEnv() *Env {
	return &Env{bindings: map[string]binding{}}
}

// Child creates a scope whose parent is e.
func (e *Env) Child() *Env {
	return &Env{parent: e, bindings: map[string]binding{}}
}

// Get resolves name through the parent chain.
func (e *Env) Get(name string) (Value, error) {
	for s := e; s != nil; s = s.parent {
		if b, ok := s.bindings[name]; ok {
			return b.v, nil
		}
	}
	return Value{}, Namef("undefined identifier %q", name)
}

// Has reports whether name resolves anywhere in the chain.
func (e *Env) Has(name string) bool {
	for s := e; s != nil; s = s.parent {
		if _, ok := s.bindings[name]; ok {
			return true
		}
	}
	return false
}

// Set reassigns the nearest existing binding.
func (e *Env) Set(name string, v Value) error {
	for s := e; s != nil; s = s.parent {
		if b, ok := s.bindings[name]; ok {
			if !b.mutable {
				return Immutablef("cannot reassign immutable binding %q", name)
			}
			s.bindings[name] = binding{v: v, mutable: true}
			return nil
		}
	}
	return Namef("undefined identifier %q", name)
}

// Define creates a binding in this scope only. Redeclaring a name already
// defined in this scope is an error; shadowing an outer binding is not.
func (e *Env) Define(name string, v Value, mutable bool) error {
	if _, ok := e.bindings[name]; ok {
		return Runtimef("%q is already declared in this scope", name)
	}
	e.bindings[name] = binding{v: v, mutable: mutable}
	return nil
}

// DefineOrUpdate creates or silently overwrites a binding in this scope.
// Used for top-level function and type registration, where redefinition is
// allowed.
func (e *Env) DefineOrUpdate(name string, v Value, mutable bool) {
	e.bindings[name] = binding{v: v, mutable: mutable}
}
