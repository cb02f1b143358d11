package interp

import (
	"github.com/timmeromberg/anima-sub000/internal/value"
)

func (in *Interp) mapMember(m *value.Map, name string) (value.Value, bool, error) {
	switch name {
	case "size":
		return value.NewInt(int64(len(m.Keys))), true, nil
	case "keys":
		out := make([]value.Value, len(m.Keys))
		for i, k := range m.Keys {
			out[i] = value.NewText(k)
		}
		return value.NewList(out, false), true, nil
	case "values":
		out := make([]value.Value, len(m.Keys))
		for i, k := range m.Keys {
			out[i] = m.Items[k]
		}
		return value.NewList(out, false), true, nil
	case "entries":
		return in.mapEntries(m), true, nil

	case "isEmpty":
		return bound("Map.isEmpty", func(call value.Call) (value.Value, error) {
			if err := wantArgs("isEmpty", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewBool(len(m.Keys) == 0), nil
		})
	case "containsKey":
		return bound("Map.containsKey", func(call value.Call) (value.Value, error) {
			if err := wantArgs("containsKey", call, 1); err != nil {
				return value.Value{}, err
			}
			_, ok := m.Get(value.Key(call.Args[0]))
			return value.NewBool(ok), nil
		})
	case "getOrDefault":
		return bound("Map.getOrDefault", func(call value.Call) (value.Value, error) {
			if err := wantArgs("getOrDefault", call, 2); err != nil {
				return value.Value{}, err
			}
			if v, ok := m.Get(value.Key(call.Args[0])); ok {
				return v, nil
			}
			return call.Args[1], nil
		})
	case "put":
		return bound("Map.put", func(call value.Call) (value.Value, error) {
			if err := wantArgs("put", call, 2); err != nil {
				return value.Value{}, err
			}
			if !m.Mutable {
				return value.Value{}, value.Runtimef("cannot put into an immutable map")
			}
			m.Put(value.Key(call.Args[0]), call.Args[1])
			return value.NewUnit(), nil
		})
	case "remove":
		return bound("Map.remove", func(call value.Call) (value.Value, error) {
			if err := wantArgs("remove", call, 1); err != nil {
				return value.Value{}, err
			}
			if !m.Mutable {
				return value.Value{}, value.Runtimef("cannot remove from an immutable map")
			}
			return value.NewBool(m.Delete(value.Key(call.Args[0]))), nil
		})
	case "toList":
		return bound("Map.toList", func(call value.Call) (value.Value, error) {
			if err := wantArgs("toList", call, 0); err != nil {
				return value.Value{}, err
			}
			return in.mapEntries(m), nil
		})
	case "filter":
		return bound("Map.filter", func(call value.Call) (value.Value, error) {
			if err := wantArgs("filter", call, 1); err != nil {
				return value.Value{}, err
			}
			out := value.NewMap(false)
			for _, k := range m.Keys {
				keep, err := in.invokeCallback(call.Args[0], in.newEntry(value.NewText(k), m.Items[k]))
				if err != nil {
					return value.Value{}, err
				}
				if value.Truthy(keep) {
					out.Put(k, m.Items[k])
				}
			}
			return value.Of(out), nil
		})
	case "map":
		return bound("Map.map", func(call value.Call) (value.Value, error) {
			if err := wantArgs("map", call, 1); err != nil {
				return value.Value{}, err
			}
			out := make([]value.Value, 0, len(m.Keys))
			for _, k := range m.Keys {
				v, err := in.invokeCallback(call.Args[0], in.newEntry(value.NewText(k), m.Items[k]))
				if err != nil {
					return value.Value{}, err
				}
				out = append(out, v)
			}
			return value.NewList(out, false), nil
		})
	case "forEach":
		return bound("Map.forEach", func(call value.Call) (value.Value, error) {
			if err := wantArgs("forEach", call, 1); err != nil {
				return value.Value{}, err
			}
			for _, k := range m.Keys {
				if _, err := in.invokeCallback(call.Args[0], in.newEntry(value.NewText(k), m.Items[k])); err != nil {
					return value.Value{}, err
				}
			}
			return value.NewUnit(), nil
		})
	}
	return value.Value{}, false, nil
}

func (in *Interp) mapEntries(m *value.Map) value.Value {
	out := make([]value.Value, len(m.Keys))
	for i, k := range m.Keys {
		out[i] = in.newEntry(value.NewText(k), m.Items[k])
	}
	return value.NewList(out, false)
}
