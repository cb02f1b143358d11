// Package value defines the Anima runtime value model: the closed set of
// bare data variants, the confidence annotation carried alongside every
// value, lexical environments, and the runtime error taxonomy.
package value

import (
	"github.com/timmeromberg/anima-sub000/internal/ast"
)

// Value is the evaluator's currency: a bare variant plus a confidence scalar.
// Confidence lives next to the data rather than as a wrapper variant, so a
// confident value can never wrap another confident value. Conf is always in
// [0,1]; 1 means no annotation.
type Value struct {
	Data Data
	Conf float64
}

// Data is one bare runtime variant. The set is closed: every variant is
// declared in this package.
type Data interface {
	// TypeName is the runtime type name used for `is` checks, extension
	// dispatch and diagnostics.
	TypeName() string
}

// Of lifts a bare variant into a Value with full confidence.
func Of(d Data) Value { return Value{Data: d, Conf: 1} }

// WithConfidence attaches conf to v's data, clamping into [0,1]. Any
// existing annotation is discarded: the new confidence replaces it.
func WithConfidence(v Value, conf float64) Value {
	if conf < 0 {
		conf = 0
	} else if conf > 1 {
		conf = 1
	}
	return Value{Data: v.Data, Conf: conf}
}

// Certain reports whether v carries no confidence annotation.
func (v Value) Certain() bool { return v.Conf >= 1 }

// ---- primitives ----

type Int struct{ V int64 }

type Float struct{ V float64 }

type Text struct{ V string }

type Bool struct{ V bool }

type Null struct{}

// Unit is the result of statements and of functions that fall off the end of
// their body.
type Unit struct{}

func (Int) TypeName() string   { return "Number" }
func (Float) TypeName() string { return "Number" }
func (Text) TypeName() string  { return "Text" }
func (Bool) TypeName() string  { return "Bool" }
func (Null) TypeName() string  { return "Null" }
func (Unit) TypeName() string  { return "Unit" }

// Convenience constructors used throughout the evaluator.
func NewInt(v int64) Value     { return Of(Int{V: v}) }
func NewFloat(v float64) Value { return Of(Float{V: v}) }
func NewText(v string) Value   { return Of(Text{V: v}) }
func NewBool(v bool) Value     { return Of(Bool{V: v}) }
func NewNull() Value           { return Of(Null{}) }
func NewUnit() Value           { return Of(Unit{}) }

// ---- collections ----

// List is an ordered sequence. Mutation methods check Mutable.
type List struct {
	Elems   []Value
	Mutable bool
}

func (*List) TypeName() string { return "List" }

func NewList(elems []Value, mutable bool) Value {
	return Of(&List{Elems: elems, Mutable: mutable})
}

// Map preserves insertion order of keys. Keys are the canonical display form
// of the key value.
type Map struct {
	Keys    []string
	Items   map[string]Value
	Mutable bool
}

func (*Map) TypeName() string { return "Map" }

func NewMap(mutable bool) *Map {
	return &Map{Items: map[string]Value{}, Mutable: mutable}
}

// Get looks a key up; ok is false when absent.
func (m *Map) Get(key string) (Value, bool) {
	v, ok := m.Items[key]
	return v, ok
}

// Put inserts or updates a key. Insertion order is preserved; updating an
// existing key keeps its original position.
func (m *Map) Put(key string, v Value) {
	if _, exists := m.Items[key]; !exists {
		m.Keys = append(m.Keys, key)
	}
	m.Items[key] = v
}

// Delete removes a key; reports whether it was present.
func (m *Map) Delete(key string) bool {
	if _, exists := m.Items[key]; !exists {
		return false
	}
	delete(m.Items, key)
	for i, k := range m.Keys {
		if k == key {
			m.Keys = append(m.Keys[:i], m.Keys[i+1:]...)
			break
		}
	}
	return true
}

// ---- callables ----

// Function is a user-declared function or lambda with its captured
// environment.
type Function struct {
	Name   string // empty for lambdas
	Params []ast.Param
	Body   *ast.Block
	Env    *Env
}

func (*Function) TypeName() string { return "Function" }

// Call carries the evaluated arguments of one invocation.
type Call struct {
	Args  []Value
	Named map[string]Value
}

// BuiltinFn is a host-implemented callable.
type BuiltinFn func(call Call) (Value, error)

type Builtin struct {
	Name string
	Fn   BuiltinFn
}

func (*Builtin) TypeName() string { return "Builtin" }

// ---- entities ----

// EntityType is the constructor value produced by an entity declaration.
type EntityType struct {
	Decl *ast.EntityDecl
	Env  *Env
}

func (t *EntityType) TypeName() string { return "EntityType" }

// Entity is a constructed instance. Order fixes the declared field order,
// used for destructuring and display.
type Entity struct {
	Type    *EntityType
	Order   []string
	Fields  map[string]Value
	Mutable map[string]bool
}

func (e *Entity) TypeName() string { return e.Type.Decl.Name }

// ParentName is the declared sealed parent, or empty.
func (e *Entity) ParentName() string { return e.Type.Decl.Parent }

// ---- agents ----

// Boundary is an agent's declared resource record. MaxToolCalls below zero
// means no budget was declared. Can and Cannot hold raw rule text; they are
// recorded, not enforced.
type Boundary struct {
	MaxToolCalls int
	ToolCalls    int
	Can          []string
	Cannot       []string
}

// AgentType is the constructor value produced by an agent declaration.
type AgentType struct {
	Decl *ast.AgentDecl
	Env  *Env
}

func (t *AgentType) TypeName() string { return "AgentType" }

// Agent is a live instance: private context, methods, handlers and boundary.
type Agent struct {
	Type     *AgentType
	ID       string
	Ctx      *Env
	Methods  map[string]*Function
	Handlers map[string]*Function
	Boundary *Boundary
	Team     []*Agent
}

func (a *Agent) TypeName() string { return a.Type.Decl.Name }

// ---- truthiness ----

// Truthy implements the language's truthiness rule: false only for boolean
// false, null, unit, zero numbers and empty text/list/map. Confidence does
// not affect truthiness.
func Truthy(v Value) bool {
	switch d := v.Data.(type) {
	case Bool:
		return d.V
	case Null, Unit:
		return false
	case Int:
		return d.V != 0
	case Float:
		return d.V != 0
	case Text:
		return d.V != ""
	case *List:
		return len(d.Elems) > 0
	case *Map:
		return len(d.Keys) > 0
	default:
		return true
	}
}
