package interp

import (
	"math"

	"github.com/timmeromberg/anima-sub000/internal/value"
)

func (in *Interp) numberMember(d value.Data, name string) (value.Value, bool, error) {
	f, _ := toFloat(d)
	_, isInt := d.(value.Int)

	switch name {
	case "toInt":
		return bound("Number.toInt", func(call value.Call) (value.Value, error) {
			if err := wantArgs("toInt", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewInt(int64(f)), nil
		})
	case "toFloat":
		return bound("Number.toFloat", func(call value.Call) (value.Value, error) {
			if err := wantArgs("toFloat", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewFloat(f), nil
		})
	case "toString":
		return bound("Number.toString", func(call value.Call) (value.Value, error) {
			if err := wantArgs("toString", call, 0); err != nil {
				return value.Value{}, err
			}
			return value.NewText(value.Display(value.Of(d))), nil
		})
	case "abs":
		return bound("Number.abs", func(call value.Call) (value.Value, error) {
			if err := wantArgs("abs", call, 0); err != nil {
				return value.Value{}, err
			}
			if isInt {
				n := d.(value.Int).V
				if n < 0 {
					n = -n
				}
				return value.NewInt(n), nil
			}
			return value.NewFloat(math.Abs(f)), nil
		})
	case "round", "floor", "ceil":
		op := name
		return bound("Number."+op, func(call value.Call) (value.Value, error) {
			if err := wantArgs(op, call, 0); err != nil {
				return value.Value{}, err
			}
			switch op {
			case "round":
				return value.NewInt(int64(math.Round(f))), nil
			case "floor":
				return value.NewInt(int64(math.Floor(f))), nil
			default:
				return value.NewInt(int64(math.Ceil(f))), nil
			}
		})
	}
	return value.Value{}, false, nil
}
