package interp

import (
	"errors"
	"strings"

	"github.com/timmeromberg/anima-sub000/internal/ast"
	"github.com/timmeromberg/anima-sub000/internal/value"
)

// ctrlKind distinguishes normal completion from the control-flow signals.
// Signals are plain results threaded upward, not errors: a user-level catch
// can never observe them.
type ctrlKind int

const (
	ctrlNormal ctrlKind = iota
	ctrlReturn
	ctrlBreak
	ctrlContinue
)

func (k ctrlKind) String() string {
	switch k {
	case ctrlReturn:
		return "return"
	case ctrlBreak:
		return "break"
	case ctrlContinue:
		return "continue"
	}
	return "normal"
}

// result is the outcome of evaluating one node.
type result struct {
	kind ctrlKind
	val  value.Value
}

func normal(v value.Value) result { return result{kind: ctrlNormal, val: v} }

// evalExpr evaluates an expression, attaching the node's source position to
// any structured error that lacks one.
func (in *Interp) evalExpr(e ast.Expr, env *value.Env) (result, error) {
	r, err := in.evalExpr0(e, env)
	if err != nil {
		var verr *value.Error
		if errors.As(err, &verr) {
			pos := e.Pos()
			return r, verr.WithPos(pos.Line, pos.Col)
		}
	}
	return r, err
}

func (in *Interp) evalExpr0(e ast.Expr, env *value.Env) (result, error) {
	switch e := e.(type) {
	case *ast.IntLit:
		return normal(value.NewInt(e.Value)), nil
	case *ast.FloatLit:
		return normal(value.NewFloat(e.Value)), nil
	case *ast.StrLit:
		return normal(value.NewText(e.Value)), nil
	case *ast.BoolLit:
		return normal(value.NewBool(e.Value)), nil
	case *ast.NullLit:
		return normal(value.NewNull()), nil
	case *ast.InterpStr:
		return in.evalInterp(e, env)
	case *ast.ListLit:
		return in.evalListLit(e, env)
	case *ast.MapLit:
		return in.evalMapLit(e, env)
	case *ast.Ident:
		v, err := env.Get(e.Name)
		if err != nil {
			return result{}, err
		}
		return normal(v), nil
	case *ast.LambdaLit:
		fn := &value.Function{Params: e.Params, Body: e.Body, Env: env}
		return normal(value.Of(fn)), nil
	case *ast.CallExpr:
		return in.evalCall(e, env)
	case *ast.MemberExpr:
		return in.evalMember(e, env)
	case *ast.IndexExpr:
		return in.evalIndex(e, env)
	case *ast.BinaryExpr:
		return in.evalBinary(e, env)
	case *ast.UnaryExpr:
		return in.evalUnary(e, env)
	case *ast.PostfixExpr:
		return in.evalPostfix(e, env)
	case *ast.ConfidenceExpr:
		return in.evalConfidence(e, env)
	case *ast.IfExpr:
		return in.evalIf(e, env)
	case *ast.WhenExpr:
		return in.evalWhen(e, env)
	case *ast.DelegateExpr:
		return in.evalDelegate(e, env)
	case *ast.SpawnExpr:
		return in.evalSpawn(e, env)
	case *ast.ParallelExpr:
		return in.evalParallel(e, env)
	case *ast.EmitExpr:
		return in.evalEmit(e, env)
	}
	return result{}, value.Runtimef("unsupported expression %T", e)
}

// execStmt executes one statement. Declarations yield unit; expression
// statements yield their expression's value so blocks can produce values.
func (in *Interp) execStmt(st ast.Stmt, env *value.Env) (result, error) {
	r, err := in.execStmt0(st, env)
	if err != nil {
		var verr *value.Error
		if errors.As(err, &verr) {
			pos := st.Pos()
			return r, verr.WithPos(pos.Line, pos.Col)
		}
	}
	return r, err
}

func (in *Interp) execStmt0(st ast.Stmt, env *value.Env) (result, error) {
	switch st := st.(type) {
	case *ast.VarDecl:
		return in.execVarDecl(st, env)
	case *ast.FunDecl:
		fn := &value.Function{Name: st.Name, Params: st.Params, Body: st.Body, Env: env}
		if st.Receiver != "" {
			in.RegisterExtension(st.Receiver, st.Name, fn)
		} else {
			env.DefineOrUpdate(st.Name, value.Of(fn), false)
		}
		return normal(value.NewUnit()), nil
	case *ast.EntityDecl:
		env.DefineOrUpdate(st.Name, value.Of(&value.EntityType{Decl: st, Env: env}), false)
		return normal(value.NewUnit()), nil
	case *ast.AgentDecl:
		env.DefineOrUpdate(st.Name, value.Of(&value.AgentType{Decl: st, Env: env}), false)
		return normal(value.NewUnit()), nil
	case *ast.AssignStmt:
		return in.execAssign(st, env)
	case *ast.ReturnStmt:
		v := value.NewUnit()
		if st.Value != nil {
			r, err := in.evalExpr(st.Value, env)
			if err != nil || r.kind != ctrlNormal {
				return r, err
			}
			v = r.val
		}
		return result{kind: ctrlReturn, val: v}, nil
	case *ast.BreakStmt:
		return result{kind: ctrlBreak, val: value.NewUnit()}, nil
	case *ast.ContinueStmt:
		return result{kind: ctrlContinue, val: value.NewUnit()}, nil
	case *ast.WhileStmt:
		return in.execWhile(st, env)
	case *ast.ForStmt:
		return in.execFor(st, env)
	case *ast.TryStmt:
		return in.execTry(st, env)
	case *ast.ExprStmt:
		return in.evalExpr(st.E, env)
	}
	return result{}, value.Runtimef("unsupported statement %T", st)
}

// execBlock runs stmts in env. The block's value is the value of its last
// expression statement, or unit.
func (in *Interp) execBlock(b *ast.Block, env *value.Env) (result, error) {
	last := value.NewUnit()
	for _, st := range b.Stmts {
		r, err := in.execStmt(st, env)
		if err != nil {
			return result{}, err
		}
		if r.kind != ctrlNormal {
			return r, nil
		}
		last = r.val
	}
	return normal(last), nil
}

func (in *Interp) execVarDecl(st *ast.VarDecl, env *value.Env) (result, error) {
	r, err := in.evalExpr(st.Value, env)
	if err != nil || r.kind != ctrlNormal {
		return r, err
	}
	if len(st.Names) == 1 {
		if err := env.Define(st.Names[0], r.val, st.Mutable); err != nil {
			return result{}, err
		}
		return normal(value.NewUnit()), nil
	}

	// Destructuring binds names in the entity's declared field order.
	ent, ok := r.val.Data.(*value.Entity)
	if !ok {
		return result{}, value.Typef("cannot destructure %s", r.val.Data.TypeName())
	}
	if len(st.Names) > len(ent.Order) {
		return result{}, value.Runtimef("cannot destructure %d fields from %s (has %d)",
			len(st.Names), ent.TypeName(), len(ent.Order))
	}
	for i, name := range st.Names {
		if err := env.Define(name, ent.Fields[ent.Order[i]], st.Mutable); err != nil {
			return result{}, err
		}
	}
	return normal(value.NewUnit()), nil
}

func (in *Interp) execAssign(st *ast.AssignStmt, env *value.Env) (result, error) {
	r, err := in.evalExpr(st.Value, env)
	if err != nil || r.kind != ctrlNormal {
		return r, err
	}
	v := r.val

	switch target := st.Target.(type) {
	case *ast.Ident:
		if err := env.Set(target.Name, v); err != nil {
			return result{}, err
		}
	case *ast.IndexExpr:
		if err := in.assignIndex(target, v, env); err != nil {
			return result{}, err
		}
	case *ast.MemberExpr:
		if err := in.assignMember(target, v, env); err != nil {
			return result{}, err
		}
	default:
		return result{}, value.Runtimef("invalid assignment target")
	}
	return normal(value.NewUnit()), nil
}

func (in *Interp) execWhile(st *ast.WhileStmt, env *value.Env) (result, error) {
	for {
		cr, err := in.evalExpr(st.Cond, env)
		if err != nil || cr.kind != ctrlNormal {
			return cr, err
		}
		if !value.Truthy(cr.val) {
			return normal(value.NewUnit()), nil
		}
		br, err := in.execBlock(st.Body, env.Child())
		if err != nil {
			return result{}, err
		}
		switch br.kind {
		case ctrlBreak:
			return normal(value.NewUnit()), nil
		case ctrlReturn:
			return br, nil
		}
	}
}

func (in *Interp) execFor(st *ast.ForStmt, env *value.Env) (result, error) {
	ir, err := in.evalExpr(st.Iter, env)
	if err != nil || ir.kind != ctrlNormal {
		return ir, err
	}

	var items []value.Value
	switch d := ir.val.Data.(type) {
	case *value.List:
		items = d.Elems
	case *value.Map:
		items = make([]value.Value, 0, len(d.Keys))
		for _, k := range d.Keys {
			items = append(items, in.newEntry(value.NewText(k), d.Items[k]))
		}
	case value.Text:
		for _, r := range d.V {
			items = append(items, value.NewText(string(r)))
		}
	default:
		return result{}, value.Typef("cannot iterate %s", ir.val.Data.TypeName())
	}

	for _, item := range items {
		scope := env.Child()
		if err := scope.Define(st.Var, item, false); err != nil {
			return result{}, err
		}
		br, err := in.execBlock(st.Body, scope)
		if err != nil {
			return result{}, err
		}
		switch br.kind {
		case ctrlBreak:
			return normal(value.NewUnit()), nil
		case ctrlReturn:
			return br, nil
		}
	}
	return normal(value.NewUnit()), nil
}

// execTry runs the body, matching thrown errors against catch clauses.
// Control-flow signals bypass catch matching but still run finally. An error
// raised inside finally supersedes the body's outcome.
func (in *Interp) execTry(st *ast.TryStmt, env *value.Env) (result, error) {
	r, err := in.execBlock(st.Body, env.Child())

	if err != nil && len(st.Catches) > 0 {
		// Matching is untyped: the first clause catches everything.
		clause := st.Catches[0]
		scope := env.Child()
		var verr *value.Error
		msg := err.Error()
		if errors.As(err, &verr) {
			msg = verr.Msg
		}
		if derr := scope.Define(clause.Name, value.NewText(msg), false); derr != nil {
			return result{}, derr
		}
		r, err = in.execBlock(clause.Body, scope)
	}

	if st.Finally != nil {
		fr, ferr := in.execBlock(st.Finally, env.Child())
		if ferr != nil {
			return result{}, ferr
		}
		if fr.kind != ctrlNormal {
			return fr, nil
		}
	}
	if err != nil {
		return result{}, err
	}
	if r.kind != ctrlNormal {
		return r, nil
	}
	return normal(r.val), nil
}

func (in *Interp) evalInterp(e *ast.InterpStr, env *value.Env) (result, error) {
	var sb strings.Builder
	for _, part := range e.Parts {
		r, err := in.evalExpr(part, env)
		if err != nil || r.kind != ctrlNormal {
			return r, err
		}
		sb.WriteString(value.Display(r.val))
	}
	return normal(value.NewText(sb.String())), nil
}

func (in *Interp) evalListLit(e *ast.ListLit, env *value.Env) (result, error) {
	elems := make([]value.Value, 0, len(e.Elems))
	for _, el := range e.Elems {
		r, err := in.evalExpr(el, env)
		if err != nil || r.kind != ctrlNormal {
			return r, err
		}
		elems = append(elems, r.val)
	}
	return normal(value.NewList(elems, e.Mutable)), nil
}

func (in *Interp) evalMapLit(e *ast.MapLit, env *value.Env) (result, error) {
	m := value.NewMap(e.Mutable)
	for _, entry := range e.Entries {
		kr, err := in.evalExpr(entry.Key, env)
		if err != nil || kr.kind != ctrlNormal {
			return kr, err
		}
		vr, err := in.evalExpr(entry.Value, env)
		if err != nil || vr.kind != ctrlNormal {
			return vr, err
		}
		m.Put(value.Key(kr.val), vr.val)
	}
	return normal(value.Of(m)), nil
}

func (in *Interp) evalConfidence(e *ast.ConfidenceExpr, env *value.Env) (result, error) {
	vr, err := in.evalExpr(e.Value, env)
	if err != nil || vr.kind != ctrlNormal {
		return vr, err
	}
	cr, err := in.evalExpr(e.Conf, env)
	if err != nil || cr.kind != ctrlNormal {
		return cr, err
	}
	conf, ok := toFloat(cr.val.Data)
	if !ok {
		return result{}, value.Typef("confidence must be numeric, got %s", cr.val.Data.TypeName())
	}
	return normal(value.WithConfidence(vr.val, conf)), nil
}

func (in *Interp) evalIf(e *ast.IfExpr, env *value.Env) (result, error) {
	cr, err := in.evalExpr(e.Cond, env)
	if err != nil || cr.kind != ctrlNormal {
		return cr, err
	}
	if value.Truthy(cr.val) {
		return in.execBlock(e.Then, env.Child())
	}
	switch alt := e.Else.(type) {
	case nil:
		return normal(value.NewUnit()), nil
	case *ast.Block:
		return in.execBlock(alt, env.Child())
	case *ast.IfExpr:
		return in.evalIf(alt, env)
	}
	return result{}, value.Runtimef("malformed else branch")
}

func (in *Interp) evalWhen(e *ast.WhenExpr, env *value.Env) (result, error) {
	var subject value.Value
	haveSubject := e.Subject != nil
	if haveSubject {
		sr, err := in.evalExpr(e.Subject, env)
		if err != nil || sr.kind != ctrlNormal {
			return sr, err
		}
		subject = sr.val
	}

	for _, br := range e.Branches {
		matched := false
		switch {
		case br.Else:
			matched = true
		case br.IsType != "":
			if !haveSubject {
				return result{}, value.Typef("is %s requires a when subject", br.IsType)
			}
			matched = matchesType(subject, br.IsType)
		default:
			for _, cond := range br.Conds {
				cr, err := in.evalExpr(cond, env)
				if err != nil || cr.kind != ctrlNormal {
					return cr, err
				}
				if haveSubject {
					matched = value.Equal(subject, cr.val)
				} else {
					matched = value.Truthy(cr.val)
				}
				if matched {
					break
				}
			}
		}
		if matched {
			return in.execBlock(br.Body, env.Child())
		}
	}
	return normal(value.NewUnit()), nil
}

// matchesType implements `is` checks: built-in kind names, entity type
// names, sealed-parent membership, and Confident for annotated values.
func matchesType(v value.Value, name string) bool {
	if name == "Confident" {
		return !v.Certain()
	}
	if v.Data.TypeName() == name {
		return true
	}
	if ent, ok := v.Data.(*value.Entity); ok {
		return ent.ParentName() == name
	}
	return false
}

var entryDecl = &ast.EntityDecl{
	Name:   "Entry",
	Fields: []ast.FieldDecl{{Name: "key"}, {Name: "value"}},
}

// newEntry materializes one map entry as a two-field record so iteration and
// destructuring see key before value.
func (in *Interp) newEntry(key, val value.Value) value.Value {
	return value.Of(&value.Entity{
		Type:    &value.EntityType{Decl: entryDecl, Env: in.global},
		Order:   []string{"key", "value"},
		Fields:  map[string]value.Value{"key": key, "value": val},
		Mutable: map[string]bool{},
	})
}
