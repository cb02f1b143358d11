package interp

import (
	"math"

	"github.com/timmeromberg/anima-sub000/internal/ast"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

func toFloat(d value.Data) (float64, bool) {
	switch d := d.(type) {
	case value.Int:
		return float64(d.V), true
	case value.Float:
		return d.V, true
	}
	return 0, false
}

func isText(d value.Data) bool {
	_, ok := d.(value.Text)
	return ok
}

// evalBinary implements the strict binary operators. Operands evaluate left
// to right; the result confidence is the product of the operand confidences.
// && and || short-circuit and combine confidence by min/max over the
// operands that actually ran.
func (in *Interp) evalBinary(e *ast.BinaryExpr, env *value.Env) (result, error) {
	if e.Op == "&&" || e.Op == "||" {
		return in.evalLogical(e, env)
	}

	lr, err := in.evalExpr(e.Left, env)
	if err != nil || lr.kind != ctrlNormal {
		return lr, err
	}
	rr, err := in.evalExpr(e.Right, env)
	if err != nil || rr.kind != ctrlNormal {
		return rr, err
	}

	out, err := applyBinary(e.Op, lr.val.Data, rr.val.Data)
	if err != nil {
		return result{}, err
	}
	return normal(value.WithConfidence(out, lr.val.Conf*rr.val.Conf)), nil
}

func applyBinary(op string, l, r value.Data) (value.Value, error) {
	switch op {
	case "==":
		return value.NewBool(equalBare(l, r)), nil
	case "!=":
		return value.NewBool(!equalBare(l, r)), nil
	case "+":
		if isText(l) || isText(r) {
			return value.NewText(value.Key(value.Of(l)) + value.Key(value.Of(r))), nil
		}
		return arith(op, l, r)
	case "-", "*", "/", "%":
		return arith(op, l, r)
	case "<", ">", "<=", ">=":
		return compare(op, l, r)
	}
	return value.Value{}, value.Runtimef("unsupported operator %q", op)
}

func equalBare(l, r value.Data) bool {
	return value.Equal(value.Of(l), value.Of(r))
}

func arith(op string, l, r value.Data) (value.Value, error) {
	li, lInt := l.(value.Int)
	ri, rInt := r.(value.Int)

	// Integer arithmetic stays integral except for /, which always
	// promotes to float.
	if lInt && rInt && op != "/" {
		switch op {
		case "+":
			return value.NewInt(li.V + ri.V), nil
		case "-":
			return value.NewInt(li.V - ri.V), nil
		case "*":
			return value.NewInt(li.V * ri.V), nil
		case "%":
			if ri.V == 0 {
				return value.Value{}, value.Runtimef("division by zero")
			}
			return value.NewInt(li.V % ri.V), nil
		}
	}

	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	if !lok || !rok {
		return value.Value{}, value.Typef("cannot apply %q to %s and %s", op, l.TypeName(), r.TypeName())
	}
	switch op {
	case "+":
		return value.NewFloat(lf + rf), nil
	case "-":
		return value.NewFloat(lf - rf), nil
	case "*":
		return value.NewFloat(lf * rf), nil
	case "/":
		if rf == 0 {
			return value.Value{}, value.Runtimef("division by zero")
		}
		return value.NewFloat(lf / rf), nil
	case "%":
		if rf == 0 {
			return value.Value{}, value.Runtimef("division by zero")
		}
		return value.NewFloat(math.Mod(lf, rf)), nil
	}
	return value.Value{}, value.Runtimef("unsupported operator %q", op)
}

// orderData orders two numerics or two texts; anything else is a type error.
// Shared by the comparison operators and sortedBy.
func orderData(l, r value.Data) (int, error) {
	lf, lok := toFloat(l)
	rf, rok := toFloat(r)
	switch {
	case lok && rok:
		switch {
		case lf < rf:
			return -1, nil
		case lf > rf:
			return 1, nil
		}
		return 0, nil
	case isText(l) && isText(r):
		ls, rs := l.(value.Text).V, r.(value.Text).V
		switch {
		case ls < rs:
			return -1, nil
		case ls > rs:
			return 1, nil
		}
		return 0, nil
	}
	return 0, value.Typef("cannot compare %s and %s", l.TypeName(), r.TypeName())
}

func compare(op string, l, r value.Data) (value.Value, error) {
	cmp, err := orderData(l, r)
	if err != nil {
		return value.Value{}, err
	}
	switch op {
	case "<":
		return value.NewBool(cmp < 0), nil
	case ">":
		return value.NewBool(cmp > 0), nil
	case "<=":
		return value.NewBool(cmp <= 0), nil
	case ">=":
		return value.NewBool(cmp >= 0), nil
	}
	return value.Value{}, value.Runtimef("unsupported comparison %q", op)
}

func (in *Interp) evalLogical(e *ast.BinaryExpr, env *value.Env) (result, error) {
	lr, err := in.evalExpr(e.Left, env)
	if err != nil || lr.kind != ctrlNormal {
		return lr, err
	}
	l := lr.val

	if e.Op == "&&" {
		if !value.Truthy(l) {
			// Short-circuit: the unevaluated operand contributes nothing.
			return normal(l), nil
		}
		rr, err := in.evalExpr(e.Right, env)
		if err != nil || rr.kind != ctrlNormal {
			return rr, err
		}
		return normal(value.WithConfidence(rr.val, math.Min(l.Conf, rr.val.Conf))), nil
	}

	if value.Truthy(l) {
		return normal(l), nil
	}
	rr, err := in.evalExpr(e.Right, env)
	if err != nil || rr.kind != ctrlNormal {
		return rr, err
	}
	return normal(value.WithConfidence(rr.val, math.Max(l.Conf, rr.val.Conf))), nil
}

func (in *Interp) evalUnary(e *ast.UnaryExpr, env *value.Env) (result, error) {
	or, err := in.evalExpr(e.Operand, env)
	if err != nil || or.kind != ctrlNormal {
		return or, err
	}
	v := or.val

	switch e.Op {
	case "-":
		switch d := v.Data.(type) {
		case value.Int:
			return normal(value.WithConfidence(value.NewInt(-d.V), v.Conf)), nil
		case value.Float:
			return normal(value.WithConfidence(value.NewFloat(-d.V), v.Conf)), nil
		}
		return result{}, value.Typef("cannot negate %s", v.Data.TypeName())
	case "!":
		// Truthiness flips; confidence is preserved, not inverted.
		return normal(value.WithConfidence(value.NewBool(!value.Truthy(v)), v.Conf)), nil
	}
	return result{}, value.Runtimef("unsupported unary operator %q", e.Op)
}

// evalPostfix implements i++ / i--: integer identifiers only, yielding the
// old value and reassigning in place.
func (in *Interp) evalPostfix(e *ast.PostfixExpr, env *value.Env) (result, error) {
	id, ok := e.Operand.(*ast.Ident)
	if !ok {
		return result{}, value.Typef("%s requires an identifier operand", e.Op)
	}
	old, err := env.Get(id.Name)
	if err != nil {
		return result{}, err
	}
	n, ok := old.Data.(value.Int)
	if !ok {
		return result{}, value.Typef("%s requires an integer, %q is %s", e.Op, id.Name, old.Data.TypeName())
	}
	delta := int64(1)
	if e.Op == "--" {
		delta = -1
	}
	if err := env.Set(id.Name, value.WithConfidence(value.NewInt(n.V+delta), old.Conf)); err != nil {
		return result{}, err
	}
	return normal(old), nil
}
