package value

import (
	"fmt"
	"strconv"
	"strings"
)

// Display renders v canonically: the form used for string interpolation, map
// key canonicalization and REPL echoing. A confidence annotation is shown as
// a `~c` suffix; certain values render bare.
func Display(v Value) string {
	s := displayData(v.Data)
	if !v.Certain() {
		return s + " ~" + formatFloat(v.Conf)
	}
	return s
}

// Key canonicalizes v into a map key. Confidence is ignored for keying.
func Key(v Value) string { return displayData(v.Data) }

func displayData(d Data) string {
	switch d := d.(type) {
	case Int:
		return strconv.FormatInt(d.V, 10)
	case Float:
		return formatFloat(d.V)
	case Text:
		return d.V
	case Bool:
		return strconv.FormatBool(d.V)
	case Null:
		return "null"
	case Unit:
		return "unit"
	case *List:
		parts := make([]string, len(d.Elems))
		for i, e := range d.Elems {
			parts[i] = Display(e)
		}
		return "[" + strings.Join(parts, ", ") + "]"
	case *Map:
		parts := make([]string, len(d.Keys))
		for i, k := range d.Keys {
			parts[i] = k + ": " + Display(d.Items[k])
		}
		return "{" + strings.Join(parts, ", ") + "}"
	case *Function:
		if d.Name != "" {
			return "fun " + d.Name
		}
		return "fun <lambda>"
	case *Builtin:
		return "builtin " + d.Name
	case *EntityType:
		return "entity " + d.Decl.Name
	case *Entity:
		parts := make([]string, len(d.Order))
		for i, name := range d.Order {
			parts[i] = name + "=" + Display(d.Fields[name])
		}
		return d.Type.Decl.Name + "(" + strings.Join(parts, ", ") + ")"
	case *AgentType:
		return "agent " + d.Decl.Name
	case *Agent:
		return fmt.Sprintf("agent %s<%s>", d.Type.Decl.Name, d.ID)
	default:
		return fmt.Sprintf("%v", d)
	}
}

// formatFloat renders floats without exponent noise for ordinary magnitudes.
func formatFloat(f float64) string {
	s := strconv.FormatFloat(f, 'f', -1, 64)
	if len(s) > 24 {
		return strconv.FormatFloat(f, 'g', -1, 64)
	}
	return s
}
