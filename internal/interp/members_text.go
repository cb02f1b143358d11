package interp

import (
	"strconv"
	"strings"

	"github.com/timmeromberg/anima-sub000/internal/value"
)

func (in *Interp) textMember(t value.Text, name string) (value.Value, bool, error) {
	s := t.V
	switch name {
	case "length":
		return value.NewInt(int64(len([]rune(s)))), true, nil

	case "isEmpty":
		return bound("Text.isEmpty", func(call value.Call) (value.Value, error) {
			if err := wantArgs("isEmpty", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewBool(s == ""), nil
		})
	case "uppercase":
		return bound("Text.uppercase", func(call value.Call) (value.Value, error) {
			if err := wantArgs("uppercase", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewText(strings.ToUpper(s)), nil
		})
	case "lowercase":
		return bound("Text.lowercase", func(call value.Call) (value.Value, error) {
			if err := wantArgs("lowercase", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewText(strings.ToLower(s)), nil
		})
	case "trim":
		return bound("Text.trim", func(call value.Call) (value.Value, error) {
			if err := wantArgs("trim", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewText(strings.TrimSpace(s)), nil
		})
	case "reversed":
		return bound("Text.reversed", func(call value.Call) (value.Value, error) {
			if err := wantArgs("reversed", call, 0); err != nil {
				return value.Value{}, err
			}
			runes := []rune(s)
			for i, j := 0, len(runes)-1; i < j; i, j = i+1, j-1 {
				runes[i], runes[j] = runes[j], runes[i]
			}
			return value.NewText(string(runes)), nil
		})
	case "contains", "startsWith", "endsWith", "indexOf":
		op := name
		return bound("Text."+op, func(call value.Call) (value.Value, error) {
			if err := wantArgs(op, call, 1); err != nil {
				return value.Value{}, err
			}
			arg, ok := call.Args[0].Data.(value.Text)
			if !ok {
				return value.Value{}, value.Typef("%s expects text, got %s", op, call.Args[0].Data.TypeName())
			}
			switch op {
			case "contains":
				return value.NewBool(strings.Contains(s, arg.V)), nil
			case "startsWith":
				return value.NewBool(strings.HasPrefix(s, arg.V)), nil
			case "endsWith":
				return value.NewBool(strings.HasSuffix(s, arg.V)), nil
			default:
				return value.NewInt(int64(strings.Index(s, arg.V))), nil
			}
		})
	case "split":
		return bound("Text.split", func(call value.Call) (value.Value, error) {
			if err := wantArgs("split", call, 1); err != nil {
				return value.Value{}, err
			}
			sep, ok := call.Args[0].Data.(value.Text)
			if !ok {
				return value.Value{}, value.Typef("split expects text, got %s", call.Args[0].Data.TypeName())
			}
			parts := strings.Split(s, sep.V)
			out := make([]value.Value, len(parts))
			for i, p := range parts {
				out[i] = value.NewText(p)
			}
			return value.NewList(out, false), nil
		})
	case "replace":
		return bound("Text.replace", func(call value.Call) (value.Value, error) {
			if err := wantArgs("replace", call, 2); err != nil {
				return value.Value{}, err
			}
			old, ok1 := call.Args[0].Data.(value.Text)
			repl, ok2 := call.Args[1].Data.(value.Text)
			if !ok1 || !ok2 {
				return value.Value{}, value.Typef("replace expects two text arguments")
			}
			return value.NewText(strings.ReplaceAll(s, old.V, repl.V)), nil
		})
	case "substring":
		return bound("Text.substring", func(call value.Call) (value.Value, error) {
			if len(call.Args) < 1 || len(call.Args) > 2 || len(call.Named) != 0 {
				return value.Value{}, value.Runtimef("substring expects 1 or 2 arguments")
			}
			runes := []rune(s)
			start, ok := call.Args[0].Data.(value.Int)
			if !ok {
				return value.Value{}, value.Typef("substring start must be a number")
			}
			end := int64(len(runes))
			if len(call.Args) == 2 {
				e, ok := call.Args[1].Data.(value.Int)
				if !ok {
					return value.Value{}, value.Typef("substring end must be a number")
				}
				end = e.V
			}
			lo, hi := clampRange(start.V, end, int64(len(runes)))
			return value.NewText(string(runes[lo:hi])), nil
		})
	case "repeat":
		return bound("Text.repeat", func(call value.Call) (value.Value, error) {
			if err := wantArgs("repeat", call, 1); err != nil {
				return value.Value{}, err
			}
			n, ok := call.Args[0].Data.(value.Int)
			if !ok || n.V < 0 {
				return value.Value{}, value.Typef("repeat expects a non-negative number")
			}
			return value.NewText(strings.Repeat(s, int(n.V))), nil
		})
	case "padStart", "padEnd":
		op := name
		return bound("Text."+op, func(call value.Call) (value.Value, error) {
			if len(call.Args) < 1 || len(call.Args) > 2 || len(call.Named) != 0 {
				return value.Value{}, value.Runtimef("%s expects 1 or 2 arguments", op)
			}
			width, ok := call.Args[0].Data.(value.Int)
			if !ok {
				return value.Value{}, value.Typef("%s width must be a number", op)
			}
			pad := " "
			if len(call.Args) == 2 {
				p, ok := call.Args[1].Data.(value.Text)
				if !ok || p.V == "" {
					return value.Value{}, value.Typef("%s pad must be non-empty text", op)
				}
				pad = p.V
			}
			out := s
			for int64(len([]rune(out))) < width.V {
				if op == "padStart" {
					out = pad + out
				} else {
					out += pad
				}
			}
			return value.NewText(out), nil
		})
	case "toInt":
		return bound("Text.toInt", func(call value.Call) (value.Value, error) {
			if err := wantArgs("toInt", call, 0); err != nil {
				return value.Value{}, err
			}
			n, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
			if err != nil {
				return value.NewNull(), nil
			}
			return value.NewInt(n), nil
		})
	case "toFloat":
		return bound("Text.toFloat", func(call value.Call) (value.Value, error) {
			if err := wantArgs("toFloat", call, 0); err != nil {
				return value.Value{}, err
			}
			f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
			if err != nil {
				return value.NewNull(), nil
			}
			return value.NewFloat(f), nil
		})

	case "summarize", "clarify", "entities":
		op := name
		return bound("Text."+op, func(call value.Call) (value.Value, error) {
			if err := wantArgs(op, call, 0); err != nil {
				return value.Value{}, err
			}
			return in.semanticTextOp(op, s)
		})
	}
	return value.Value{}, false, nil
}

// semanticTextOp delegates the NL-typed text members to the configured
// adapter. These never sit on the hot evaluation path for ordinary values.
func (in *Interp) semanticTextOp(op, s string) (value.Value, error) {
	if in.llm == nil {
		return value.Value{}, value.Runtimef("%s requires a semantic adapter", op)
	}
	var prompt string
	switch op {
	case "summarize":
		prompt = "Summarize the following text in one sentence:\n\n" + s
	case "clarify":
		prompt = "Rewrite the following text to be clearer and unambiguous:\n\n" + s
	case "entities":
		prompt = "List the named entities in the following text, one per line:\n\n" + s
	}
	out, err := in.llm.Generate(in.ctx, prompt)
	if err != nil {
		return value.Value{}, value.Runtimef("%s failed: %v", op, err)
	}
	if op != "entities" {
		return value.NewText(strings.TrimSpace(out)), nil
	}
	var elems []value.Value
	for _, line := range strings.Split(out, "\n") {
		line = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(line), "-"))
		if line != "" {
			elems = append(elems, value.NewText(line))
		}
	}
	return value.NewList(elems, false), nil
}

// clampRange clamps [lo,hi) into [0,n).
func clampRange(lo, hi, n int64) (int64, int64) {
	if lo < 0 {
		lo = 0
	}
	if hi > n {
		hi = n
	}
	if lo > hi {
		lo = hi
	}
	return lo, hi
}
