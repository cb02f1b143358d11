// Package interp is the Anima evaluator: a tree-walking interpreter over
// internal/ast that propagates confidence annotations through computation
// and hosts the entity and agent runtimes.
package interp

import (
	"context"
	"io"
	"os"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"

	"github.com/timmeromberg/anima-sub000/internal/ast"
	"github.com/timmeromberg/anima-sub000/internal/llm"
	"github.com/timmeromberg/anima-sub000/internal/memory"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

var tracer = otel.Tracer("anima/interp")

// extKey identifies an extension function: receiver type name plus method
// name, resolved at registration time.
type extKey struct {
	typeName string
	method   string
}

// Interp evaluates programs. One Interp owns one global environment; it is
// not safe for concurrent use.
type Interp struct {
	global *value.Env
	ext    map[extKey]*value.Function

	mem    memory.Store
	llm    llm.Provider
	stdout io.Writer
	log    zerolog.Logger

	// ctx is the host context for the duration of Run, consulted by
	// builtins that call out to memory or the LLM adapter.
	ctx context.Context
}

// Option configures an Interp.
type Option func(*Interp)

// WithMemory wires a memory store behind the remember/recall builtins.
func WithMemory(store memory.Store) Option {
	return func(in *Interp) { in.mem = store }
}

// WithLLM wires a semantic adapter behind generate/similarity and the
// NL-typed text members.
func WithLLM(p llm.Provider) Option {
	return func(in *Interp) { in.llm = p }
}

// WithStdout redirects print/println output.
func WithStdout(w io.Writer) Option {
	return func(in *Interp) { in.stdout = w }
}

// WithLogger attaches a structured logger.
func WithLogger(log zerolog.Logger) Option {
	return func(in *Interp) { in.log = log }
}

// New creates an interpreter with the builtin functions installed.
func New(opts ...Option) *Interp {
	in := &Interp{
		global: value.NewEnv(),
		ext:    map[extKey]*value.Function{},
		stdout: os.Stdout,
		log:    zerolog.Nop(),
		ctx:    context.Background(),
	}
	for _, opt := range opts {
		opt(in)
	}
	in.installBuiltins()
	return in
}

// GlobalEnv exposes the top-level environment for embedding and tests.
func (in *Interp) GlobalEnv() *value.Env { return in.global }

// RegisterBuiltin injects a host callable before running a program.
func (in *Interp) RegisterBuiltin(name string, fn value.BuiltinFn) {
	in.global.DefineOrUpdate(name, value.Of(&value.Builtin{Name: name, Fn: fn}), false)
}

// Run evaluates prog in the global environment. If the program declares a
// zero-argument callable named main, it is invoked after the top level
// finishes, and its result becomes Run's result.
func (in *Interp) Run(ctx context.Context, prog *ast.Program) (value.Value, error) {
	ctx, span := tracer.Start(ctx, "interp.run")
	defer span.End()
	in.ctx = ctx

	last := value.NewUnit()
	for _, st := range prog.Stmts {
		r, err := in.execStmt(st, in.global)
		if err != nil {
			return value.Value{}, err
		}
		if r.kind != ctrlNormal {
			return value.Value{}, value.Runtimef("%s outside of its enclosing construct", r.kind)
		}
		last = r.val
	}

	main, err := in.global.Get("main")
	if err != nil {
		return last, nil
	}
	fn, ok := main.Data.(*value.Function)
	if !ok || len(fn.Params) != 0 {
		return last, nil
	}
	in.log.Debug().Msg("invoking main")
	return in.callFunction(fn, value.Call{}, in.global)
}

// RegisterExtension records fn for member-call dispatch on typeName.
func (in *Interp) RegisterExtension(typeName, method string, fn *value.Function) {
	in.ext[extKey{typeName: typeName, method: method}] = fn
}

func (in *Interp) lookupExtension(typeName, method string) (*value.Function, bool) {
	fn, ok := in.ext[extKey{typeName: typeName, method: method}]
	return fn, ok
}

func newAgentID() string {
	return "agt_" + uuid.New().String()[:12]
}
