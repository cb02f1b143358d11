package interp

import (
	"sort"
	"strings"

	"github.com/timmeromberg/anima-sub000/internal/value"
)

func bound(name string, fn value.BuiltinFn) (value.Value, bool, error) {
	return value.Of(&value.Builtin{Name: name, Fn: fn}), true, nil
}

func wantArgs(name string, call value.Call, n int) error {
	if len(call.Args) != n || len(call.Named) != 0 {
		return value.Runtimef("%s expects %d argument(s), got %d", name, n, len(call.Args)+len(call.Named))
	}
	return nil
}

func (in *Interp) listMember(l *value.List, name string) (value.Value, bool, error) {
	switch name {
	case "size":
		return value.NewInt(int64(len(l.Elems))), true, nil

	case "isEmpty":
		return bound("List.isEmpty", func(call value.Call) (value.Value, error) {
			if err := wantArgs("isEmpty", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewBool(len(l.Elems) == 0), nil
		})
	case "first":
		return bound("List.first", func(call value.Call) (value.Value, error) {
			if err := wantArgs("first", call, 0); err != nil {
				return value.Value{}, err
			}
			if len(l.Elems) == 0 {
				return value.Value{}, value.Runtimef("first on an empty list")
			}
			return l.Elems[0], nil
		})
	case "last":
		return bound("List.last", func(call value.Call) (value.Value, error) {
			if err := wantArgs("last", call, 0); err != nil {
				return value.Value{}, err
			}
			if len(l.Elems) == 0 {
				return value.Value{}, value.Runtimef("last on an empty list")
			}
			return l.Elems[len(l.Elems)-1], nil
		})
	case "add":
		return bound("List.add", func(call value.Call) (value.Value, error) {
			if err := wantArgs("add", call, 1); err != nil {
				return value.Value{}, err
			}
			if !l.Mutable {
				return value.Value{}, value.Runtimef("cannot add to an immutable list")
			}
			l.Elems = append(l.Elems, call.Args[0])
			return value.NewUnit(), nil
		})
	case "remove":
		return bound("List.remove", func(call value.Call) (value.Value, error) {
			if err := wantArgs("remove", call, 1); err != nil {
				return value.Value{}, err
			}
			if !l.Mutable {
				return value.Value{}, value.Runtimef("cannot remove from an immutable list")
			}
			for i, e := range l.Elems {
				if value.Equal(e, call.Args[0]) {
					l.Elems = append(l.Elems[:i], l.Elems[i+1:]...)
					return value.NewBool(true), nil
				}
			}
			return value.NewBool(false), nil
		})
	case "contains":
		return bound("List.contains", func(call value.Call) (value.Value, error) {
			if err := wantArgs("contains", call, 1); err != nil {
				return value.Value{}, err
			}
			for _, e := range l.Elems {
				if value.Equal(e, call.Args[0]) {
					return value.NewBool(true), nil
				}
			}
			return value.NewBool(false), nil
		})
	case "indexOf":
		return bound("List.indexOf", func(call value.Call) (value.Value, error) {
			if err := wantArgs("indexOf", call, 1); err != nil {
				return value.Value{}, err
			}
			for i, e := range l.Elems {
				if value.Equal(e, call.Args[0]) {
					return value.NewInt(int64(i)), nil
				}
			}
			return value.NewInt(-1), nil
		})

	case "filter":
		return bound("List.filter", func(call value.Call) (value.Value, error) {
			if err := wantArgs("filter", call, 1); err != nil {
				return value.Value{}, err
			}
			var out []value.Value
			for _, e := range l.Elems {
				keep, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				if value.Truthy(keep) {
					out = append(out, e)
				}
			}
			return value.NewList(out, false), nil
		})
	case "map":
		return bound("List.map", func(call value.Call) (value.Value, error) {
			if err := wantArgs("map", call, 1); err != nil {
				return value.Value{}, err
			}
			out := make([]value.Value, 0, len(l.Elems))
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				out = append(out, v)
			}
			return value.NewList(out, false), nil
		})
	case "flatMap":
		return bound("List.flatMap", func(call value.Call) (value.Value, error) {
			if err := wantArgs("flatMap", call, 1); err != nil {
				return value.Value{}, err
			}
			var out []value.Value
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				if inner, ok := v.Data.(*value.List); ok {
					out = append(out, inner.Elems...)
				} else {
					out = append(out, v)
				}
			}
			return value.NewList(out, false), nil
		})
	case "forEach":
		return bound("List.forEach", func(call value.Call) (value.Value, error) {
			if err := wantArgs("forEach", call, 1); err != nil {
				return value.Value{}, err
			}
			for _, e := range l.Elems {
				if _, err := in.invokeCallback(call.Args[0], e); err != nil {
					return value.Value{}, err
				}
			}
			return value.NewUnit(), nil
		})
	case "sortedBy":
		return bound("List.sortedBy", func(call value.Call) (value.Value, error) {
			if err := wantArgs("sortedBy", call, 1); err != nil {
				return value.Value{}, err
			}
			type keyed struct {
				elem value.Value
				key  value.Value
			}
			pairs := make([]keyed, len(l.Elems))
			for i, e := range l.Elems {
				k, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				pairs[i] = keyed{elem: e, key: k}
			}
			var sortErr error
			sort.SliceStable(pairs, func(i, j int) bool {
				c, err := orderData(pairs[i].key.Data, pairs[j].key.Data)
				if err != nil && sortErr == nil {
					sortErr = err
				}
				return c < 0
			})
			if sortErr != nil {
				return value.Value{}, sortErr
			}
			out := make([]value.Value, len(pairs))
			for i, p := range pairs {
				out[i] = p.elem
			}
			return value.NewList(out, false), nil
		})
	case "reduce":
		return bound("List.reduce", func(call value.Call) (value.Value, error) {
			if err := wantArgs("reduce", call, 1); err != nil {
				return value.Value{}, err
			}
			if len(l.Elems) == 0 {
				return value.Value{}, value.Runtimef("reduce on an empty list")
			}
			acc := l.Elems[0]
			for _, e := range l.Elems[1:] {
				v, err := in.invokeCallback(call.Args[0], acc, e)
				if err != nil {
					return value.Value{}, err
				}
				acc = v
			}
			return acc, nil
		})
	case "fold":
		return bound("List.fold", func(call value.Call) (value.Value, error) {
			if err := wantArgs("fold", call, 2); err != nil {
				return value.Value{}, err
			}
			acc := call.Args[0]
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[1], acc, e)
				if err != nil {
					return value.Value{}, err
				}
				acc = v
			}
			return acc, nil
		})
	case "any", "all", "none":
		op := name
		return bound("List."+op, func(call value.Call) (value.Value, error) {
			if err := wantArgs(op, call, 1); err != nil {
				return value.Value{}, err
			}
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				if value.Truthy(v) {
					return value.NewBool(op == "any"), nil
				}
			}
			return value.NewBool(op != "any"), nil
		})
	case "find":
		return bound("List.find", func(call value.Call) (value.Value, error) {
			if err := wantArgs("find", call, 1); err != nil {
				return value.Value{}, err
			}
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				if value.Truthy(v) {
					return e, nil
				}
			}
			return value.NewNull(), nil
		})
	case "count":
		return bound("List.count", func(call value.Call) (value.Value, error) {
			if len(call.Args) == 0 {
				return value.NewInt(int64(len(l.Elems))), nil
			}
			if err := wantArgs("count", call, 1); err != nil {
				return value.Value{}, err
			}
			var n int64
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				if value.Truthy(v) {
					n++
				}
			}
			return value.NewInt(n), nil
		})
	case "sumOf":
		return bound("List.sumOf", func(call value.Call) (value.Value, error) {
			if err := wantArgs("sumOf", call, 1); err != nil {
				return value.Value{}, err
			}
			var sum float64
			integral := true
			for _, e := range l.Elems {
				v, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				f, ok := toFloat(v.Data)
				if !ok {
					return value.Value{}, value.Typef("sumOf callback must return a number, got %s", v.Data.TypeName())
				}
				if _, isInt := v.Data.(value.Int); !isInt {
					integral = false
				}
				sum += f
			}
			if integral {
				return value.NewInt(int64(sum)), nil
			}
			return value.NewFloat(sum), nil
		})

	case "distinct":
		return bound("List.distinct", func(call value.Call) (value.Value, error) {
			if err := wantArgs("distinct", call, 0); err != nil {
				return value.Value{}, err
			}
			var out []value.Value
			for _, e := range l.Elems {
				seen := false
				for _, o := range out {
					if value.Equal(e, o) {
						seen = true
						break
					}
				}
				if !seen {
					out = append(out, e)
				}
			}
			return value.NewList(out, false), nil
		})
	case "reversed":
		return bound("List.reversed", func(call value.Call) (value.Value, error) {
			if err := wantArgs("reversed", call, 0); err != nil {
				return value.Value{}, err
			}
			out := make([]value.Value, len(l.Elems))
			for i, e := range l.Elems {
				out[len(l.Elems)-1-i] = e
			}
			return value.NewList(out, false), nil
		})
	case "joinToString":
		return bound("List.joinToString", func(call value.Call) (value.Value, error) {
			sep := ", "
			if len(call.Args) == 1 {
				s, ok := call.Args[0].Data.(value.Text)
				if !ok {
					return value.Value{}, value.Typef("joinToString separator must be text")
				}
				sep = s.V
			} else if len(call.Args) > 1 {
				return value.Value{}, value.Runtimef("joinToString expects at most 1 argument")
			}
			parts := make([]string, len(l.Elems))
			for i, e := range l.Elems {
				parts[i] = value.Display(e)
			}
			return value.NewText(strings.Join(parts, sep)), nil
		})
	case "zip":
		return bound("List.zip", func(call value.Call) (value.Value, error) {
			if err := wantArgs("zip", call, 1); err != nil {
				return value.Value{}, err
			}
			other, ok := call.Args[0].Data.(*value.List)
			if !ok {
				return value.Value{}, value.Typef("zip expects a list, got %s", call.Args[0].Data.TypeName())
			}
			n := len(l.Elems)
			if len(other.Elems) < n {
				n = len(other.Elems)
			}
			out := make([]value.Value, 0, n)
			for i := 0; i < n; i++ {
				out = append(out, value.NewList([]value.Value{l.Elems[i], other.Elems[i]}, false))
			}
			return value.NewList(out, false), nil
		})
	case "take", "drop":
		op := name
		return bound("List."+op, func(call value.Call) (value.Value, error) {
			if err := wantArgs(op, call, 1); err != nil {
				return value.Value{}, err
			}
			num, ok := call.Args[0].Data.(value.Int)
			if !ok {
				return value.Value{}, value.Typef("%s expects a number, got %s", op, call.Args[0].Data.TypeName())
			}
			n := int(num.V)
			if n < 0 {
				n = 0
			}
			if n > len(l.Elems) {
				n = len(l.Elems)
			}
			if op == "take" {
				return value.NewList(append([]value.Value(nil), l.Elems[:n]...), false), nil
			}
			return value.NewList(append([]value.Value(nil), l.Elems[n:]...), false), nil
		})
	case "associateBy":
		return bound("List.associateBy", func(call value.Call) (value.Value, error) {
			if err := wantArgs("associateBy", call, 1); err != nil {
				return value.Value{}, err
			}
			m := value.NewMap(false)
			for _, e := range l.Elems {
				k, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				m.Put(value.Key(k), e)
			}
			return value.Of(m), nil
		})
	case "groupBy":
		return bound("List.groupBy", func(call value.Call) (value.Value, error) {
			if err := wantArgs("groupBy", call, 1); err != nil {
				return value.Value{}, err
			}
			m := value.NewMap(false)
			for _, e := range l.Elems {
				k, err := in.invokeCallback(call.Args[0], e)
				if err != nil {
					return value.Value{}, err
				}
				key := value.Key(k)
				group, ok := m.Get(key)
				if !ok {
					group = value.NewList(nil, true)
					m.Put(key, group)
				}
				gl := group.Data.(*value.List)
				gl.Elems = append(gl.Elems, e)
			}
			return value.Of(m), nil
		})
	}
	return value.Value{}, false, nil
}
