package value

// Equal implements the language's equality: cross-kind numeric comparison,
// deep comparison for lists, maps and entities, and identity for callables
// and agents. Confidence annotations are ignored on both sides.
func Equal(a, b Value) bool {
	return equalData(a.Data, b.Data)
}

func equalData(a, b Data) bool {
	switch x := a.(type) {
	case Int:
		switch y := b.(type) {
		case Int:
			return x.V == y.V
		case Float:
			return float64(x.V) == y.V
		}
		return false
	case Float:
		switch y := b.(type) {
		case Int:
			return x.V == float64(y.V)
		case Float:
			return x.V == y.V
		}
		return false
	case Text:
		y, ok := b.(Text)
		return ok && x.V == y.V
	case Bool:
		y, ok := b.(Bool)
		return ok && x.V == y.V
	case Null:
		_, ok := b.(Null)
		return ok
	case Unit:
		_, ok := b.(Unit)
		return ok
	case *List:
		y, ok := b.(*List)
		if !ok || len(x.Elems) != len(y.Elems) {
			return false
		}
		for i := range x.Elems {
			if !Equal(x.Elems[i], y.Elems[i]) {
				return false
			}
		}
		return true
	case *Map:
		y, ok := b.(*Map)
		if !ok || len(x.Keys) != len(y.Keys) {
			return false
		}
		for _, k := range x.Keys {
			yv, present := y.Items[k]
			if !present || !Equal(x.Items[k], yv) {
				return false
			}
		}
		return true
	case *Entity:
		y, ok := b.(*Entity)
		if !ok || x.Type.Decl.Name != y.Type.Decl.Name || len(x.Order) != len(y.Order) {
			return false
		}
		for _, name := range x.Order {
			if !Equal(x.Fields[name], y.Fields[name]) {
				return false
			}
		}
		return true
	default:
		// Callables, types and agents compare by identity.
		return a == b
	}
}
