package interp

import (
	"fmt"
	"strings"

	"github.com/timmeromberg/anima-sub000/internal/memory"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

func (in *Interp) installBuiltins() {
	in.RegisterBuiltin("print", func(call value.Call) (value.Value, error) {
		fmt.Fprint(in.stdout, displayAll(call.Args))
		return value.NewUnit(), nil
	})
	in.RegisterBuiltin("println", func(call value.Call) (value.Value, error) {
		fmt.Fprintln(in.stdout, displayAll(call.Args))
		return value.NewUnit(), nil
	})
	in.RegisterBuiltin("confident", func(call value.Call) (value.Value, error) {
		if err := wantArgs("confident", call, 2); err != nil {
			return value.Value{}, err
		}
		conf, ok := toFloat(call.Args[1].Data)
		if !ok {
			return value.Value{}, value.Typef("confidence must be numeric, got %s", call.Args[1].Data.TypeName())
		}
		return value.WithConfidence(call.Args[0], conf), nil
	})
	in.RegisterBuiltin("typeOf", func(call value.Call) (value.Value, error) {
		if err := wantArgs("typeOf", call, 1); err != nil {
			return value.Value{}, err
		}
		return value.NewText(call.Args[0].Data.TypeName()), nil
	})

	in.installMemoryBuiltins()
	in.installSemanticBuiltins()
}

func (in *Interp) installMemoryBuiltins() {
	in.RegisterBuiltin("remember", func(call value.Call) (value.Value, error) {
		if in.mem == nil {
			return value.Value{}, value.Runtimef("remember requires a memory store")
		}
		if len(call.Args) < 2 || len(call.Args) > 3 {
			return value.Value{}, value.Runtimef("remember expects key, value and optional tier")
		}
		key, ok := call.Args[0].Data.(value.Text)
		if !ok {
			return value.Value{}, value.Typef("memory key must be text, got %s", call.Args[0].Data.TypeName())
		}
		tier := memory.TierSession
		if len(call.Args) == 3 {
			t, ok := call.Args[2].Data.(value.Text)
			if !ok {
				return value.Value{}, value.Typef("memory tier must be text")
			}
			parsed, err := memory.ParseTier(t.V)
			if err != nil {
				return value.Value{}, value.Runtimef("%v", err)
			}
			tier = parsed
		}
		if err := in.mem.Store(in.ctx, key.V, value.Key(call.Args[1]), tier); err != nil {
			return value.Value{}, value.Runtimef("remember failed: %v", err)
		}
		return value.NewUnit(), nil
	})

	in.RegisterBuiltin("recall", func(call value.Call) (value.Value, error) {
		if in.mem == nil {
			return value.Value{}, value.Runtimef("recall requires a memory store")
		}
		if len(call.Args) < 1 || len(call.Args) > 2 {
			return value.Value{}, value.Runtimef("recall expects a query and an optional limit")
		}
		query, ok := call.Args[0].Data.(value.Text)
		if !ok {
			return value.Value{}, value.Typef("recall query must be text")
		}
		limit := 5
		if len(call.Args) == 2 {
			n, ok := call.Args[1].Data.(value.Int)
			if !ok {
				return value.Value{}, value.Typef("recall limit must be a number")
			}
			limit = int(n.V)
		}
		entries, err := in.mem.Recall(in.ctx, query.V, limit)
		if err != nil {
			return value.Value{}, value.Runtimef("recall failed: %v", err)
		}
		out := make([]value.Value, len(entries))
		for i, e := range entries {
			out[i] = value.NewText(e.Value)
		}
		return value.NewList(out, false), nil
	})

	in.RegisterBuiltin("memoryGet", func(call value.Call) (value.Value, error) {
		if in.mem == nil {
			return value.Value{}, value.Runtimef("memoryGet requires a memory store")
		}
		if err := wantArgs("memoryGet", call, 1); err != nil {
			return value.Value{}, err
		}
		key, ok := call.Args[0].Data.(value.Text)
		if !ok {
			return value.Value{}, value.Typef("memory key must be text")
		}
		entry, found, err := in.mem.Get(in.ctx, key.V)
		if err != nil {
			return value.Value{}, value.Runtimef("memoryGet failed: %v", err)
		}
		if !found {
			return value.NewNull(), nil
		}
		return value.NewText(entry.Value), nil
	})

	in.RegisterBuiltin("forget", func(call value.Call) (value.Value, error) {
		if in.mem == nil {
			return value.Value{}, value.Runtimef("forget requires a memory store")
		}
		if err := wantArgs("forget", call, 1); err != nil {
			return value.Value{}, err
		}
		key, ok := call.Args[0].Data.(value.Text)
		if !ok {
			return value.Value{}, value.Typef("memory key must be text")
		}
		if err := in.mem.Forget(in.ctx, key.V); err != nil {
			return value.Value{}, value.Runtimef("forget failed: %v", err)
		}
		return value.NewUnit(), nil
	})
}

func (in *Interp) installSemanticBuiltins() {
	in.RegisterBuiltin("generate", func(call value.Call) (value.Value, error) {
		if in.llm == nil {
			return value.Value{}, value.Runtimef("generate requires a semantic adapter")
		}
		if err := wantArgs("generate", call, 1); err != nil {
			return value.Value{}, err
		}
		prompt, ok := call.Args[0].Data.(value.Text)
		if !ok {
			return value.Value{}, value.Typef("generate prompt must be text")
		}
		out, err := in.llm.Generate(in.ctx, prompt.V)
		if err != nil {
			return value.Value{}, value.Runtimef("generate failed: %v", err)
		}
		return value.NewText(out), nil
	})

	in.RegisterBuiltin("similarity", func(call value.Call) (value.Value, error) {
		if in.llm == nil {
			return value.Value{}, value.Runtimef("similarity requires a semantic adapter")
		}
		if err := wantArgs("similarity", call, 2); err != nil {
			return value.Value{}, err
		}
		a, ok1 := call.Args[0].Data.(value.Text)
		b, ok2 := call.Args[1].Data.(value.Text)
		if !ok1 || !ok2 {
			return value.Value{}, value.Typef("similarity expects two text arguments")
		}
		score, err := in.llm.Similarity(in.ctx, a.V, b.V)
		if err != nil {
			return value.Value{}, value.Runtimef("similarity failed: %v", err)
		}
		return value.NewFloat(score), nil
	})
}

func displayAll(args []value.Value) string {
	parts := make([]string, len(args))
	for i, a := range args {
		parts[i] = value.Display(a)
	}
	return strings.Join(parts, " ")
}
