package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/timmeromberg/anima-sub000/internal/ast"
)

func parseOne(t *testing.T, src string) ast.Stmt {
	t.Helper()
	prog, err := Parse(src)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 1)
	return prog.Stmts[0]
}

func exprOf(t *testing.T, src string) ast.Expr {
	t.Helper()
	first := parseOne(t, src)
	st, ok := first.(*ast.ExprStmt)
	require.True(t, ok, "expected expression statement, got %T", first)
	return st.E
}

func TestValDecl(t *testing.T) {
	decl, ok := parseOne(t, `val name = "Ada"`).(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, []string{"name"}, decl.Names)
	assert.False(t, decl.Mutable)
	str, ok := decl.Value.(*ast.StrLit)
	require.True(t, ok)
	assert.Equal(t, "Ada", str.Value)
}

func TestVarDeclWithAnnotation(t *testing.T) {
	decl, ok := parseOne(t, `var count: Number = 1_000`).(*ast.VarDecl)
	require.True(t, ok)
	assert.True(t, decl.Mutable)
	num, ok := decl.Value.(*ast.IntLit)
	require.True(t, ok)
	assert.Equal(t, int64(1000), num.Value)
	assert.Equal(t, "1_000", num.Raw)
}

func TestDestructuringDecl(t *testing.T) {
	decl, ok := parseOne(t, `val (x, y) = point`).(*ast.VarDecl)
	require.True(t, ok)
	assert.Equal(t, []string{"x", "y"}, decl.Names)
}

func TestOperatorPrecedence(t *testing.T) {
	e := exprOf(t, `1 + 2 * 3 == 7 && flag`)
	and, ok := e.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "&&", and.Op)
	eq, ok := and.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "==", eq.Op)
	sum, ok := eq.Left.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "+", sum.Op)
	prod, ok := sum.Right.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "*", prod.Op)
}

func TestConfidenceBindsLoosest(t *testing.T) {
	e := exprOf(t, `a || b ~ 0.8`)
	ce, ok := e.(*ast.ConfidenceExpr)
	require.True(t, ok, "expected ConfidenceExpr, got %T", e)
	or, ok := ce.Value.(*ast.BinaryExpr)
	require.True(t, ok)
	assert.Equal(t, "||", or.Op)
	conf, ok := ce.Conf.(*ast.FloatLit)
	require.True(t, ok)
	assert.InDelta(t, 0.8, conf.Value, 1e-9)
}

func TestUnaryAndPostfix(t *testing.T) {
	e := exprOf(t, `!done`)
	ue, ok := e.(*ast.UnaryExpr)
	require.True(t, ok)
	assert.Equal(t, "!", ue.Op)

	e = exprOf(t, `i++`)
	pe, ok := e.(*ast.PostfixExpr)
	require.True(t, ok)
	assert.Equal(t, "++", pe.Op)
}

func TestCallWithNamedArgs(t *testing.T) {
	e := exprOf(t, `greet("Ada", loud = true)`)
	call, ok := e.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	assert.Empty(t, call.Args[0].Name)
	assert.Equal(t, "loud", call.Args[1].Name)
}

func TestTrailingLambda(t *testing.T) {
	e := exprOf(t, `nums.map { it * 2 }`)
	call, ok := e.(*ast.CallExpr)
	require.True(t, ok)
	member, ok := call.Callee.(*ast.MemberExpr)
	require.True(t, ok)
	assert.Equal(t, "map", member.Name)
	require.Len(t, call.Args, 1)
	lam, ok := call.Args[0].Value.(*ast.LambdaLit)
	require.True(t, ok)
	require.Len(t, lam.Params, 1)
	assert.Equal(t, "it", lam.Params[0].Name)
}

func TestTrailingLambdaAfterParens(t *testing.T) {
	e := exprOf(t, `nums.fold(0) { acc, n -> acc + n }`)
	call, ok := e.(*ast.CallExpr)
	require.True(t, ok)
	require.Len(t, call.Args, 2)
	lam, ok := call.Args[1].Value.(*ast.LambdaLit)
	require.True(t, ok)
	require.Len(t, lam.Params, 2)
	assert.Equal(t, "acc", lam.Params[0].Name)
	assert.Equal(t, "n", lam.Params[1].Name)
}

func TestSafeNavigation(t *testing.T) {
	e := exprOf(t, `user?.name`)
	member, ok := e.(*ast.MemberExpr)
	require.True(t, ok)
	assert.True(t, member.Safe)
	assert.Equal(t, "name", member.Name)
}

func TestMapVersusLambda(t *testing.T) {
	m, ok := exprOf(t, `{"a": 1, "b": 2}`).(*ast.MapLit)
	require.True(t, ok)
	require.Len(t, m.Entries, 2)
	assert.False(t, m.Mutable)

	empty, ok := exprOf(t, `{}`).(*ast.MapLit)
	require.True(t, ok)
	assert.Empty(t, empty.Entries)

	lam, ok := exprOf(t, `{ x -> x }`).(*ast.LambdaLit)
	require.True(t, ok)
	assert.Equal(t, "x", lam.Params[0].Name)
}

func TestMutableCollections(t *testing.T) {
	lst, ok := exprOf(t, `mutable [1, 2]`).(*ast.ListLit)
	require.True(t, ok)
	assert.True(t, lst.Mutable)

	m, ok := exprOf(t, `mutable {"k": 1}`).(*ast.MapLit)
	require.True(t, ok)
	assert.True(t, m.Mutable)
}

func TestStringInterpolation(t *testing.T) {
	e := exprOf(t, `"sum is ${a + b}!"`)
	is, ok := e.(*ast.InterpStr)
	require.True(t, ok)
	require.Len(t, is.Parts, 3)
	head, ok := is.Parts[0].(*ast.StrLit)
	require.True(t, ok)
	assert.Equal(t, "sum is ", head.Value)
	_, ok = is.Parts[1].(*ast.BinaryExpr)
	assert.True(t, ok)
	tail, ok := is.Parts[2].(*ast.StrLit)
	require.True(t, ok)
	assert.Equal(t, "!", tail.Value)
}

func TestIfElseChain(t *testing.T) {
	e := exprOf(t, `if (a) { 1 } else if (b) { 2 } else { 3 }`)
	ie, ok := e.(*ast.IfExpr)
	require.True(t, ok)
	nested, ok := ie.Else.(*ast.IfExpr)
	require.True(t, ok)
	_, ok = nested.Else.(*ast.Block)
	assert.True(t, ok)
}

func TestWhenBranches(t *testing.T) {
	e := exprOf(t, `when (x) {
		is Text -> "text"
		1, 2 -> "small"
		else -> "other"
	}`)
	we, ok := e.(*ast.WhenExpr)
	require.True(t, ok)
	require.NotNil(t, we.Subject)
	require.Len(t, we.Branches, 3)
	assert.Equal(t, "Text", we.Branches[0].IsType)
	assert.Len(t, we.Branches[1].Conds, 2)
	assert.True(t, we.Branches[2].Else)
}

func TestWhenWithoutSubject(t *testing.T) {
	e := exprOf(t, `when {
		score > 90 -> "A"
		else -> "B"
	}`)
	we, ok := e.(*ast.WhenExpr)
	require.True(t, ok)
	assert.Nil(t, we.Subject)
	require.Len(t, we.Branches, 2)
}

func TestExtensionFun(t *testing.T) {
	decl, ok := parseOne(t, `fun Text.shout() { this.uppercase() }`).(*ast.FunDecl)
	require.True(t, ok)
	assert.Equal(t, "Text", decl.Receiver)
	assert.Equal(t, "shout", decl.Name)
}

func TestFunDefaults(t *testing.T) {
	decl, ok := parseOne(t, `fun greet(name, greeting = "hello") { greeting + name }`).(*ast.FunDecl)
	require.True(t, ok)
	require.Len(t, decl.Params, 2)
	assert.Nil(t, decl.Params[0].Default)
	assert.NotNil(t, decl.Params[1].Default)
}

func TestEntityDecl(t *testing.T) {
	decl, ok := parseOne(t, `entity Account : Asset {
		val owner
		var balance = 0
		invariant { balance >= 0 }
	}`).(*ast.EntityDecl)
	require.True(t, ok)
	assert.Equal(t, "Account", decl.Name)
	assert.Equal(t, "Asset", decl.Parent)
	require.Len(t, decl.Fields, 2)
	assert.False(t, decl.Fields[0].Mutable)
	assert.True(t, decl.Fields[1].Mutable)
	require.Len(t, decl.Invariants, 1)
}

func TestAgentDecl(t *testing.T) {
	decl, ok := parseOne(t, `agent Researcher(topic) {
		context {
			var notes = []
		}
		tools {
			search(query)
			fetch(url)
		}
		boundaries {
			maxToolCalls = 5
			can { read public sources }
			cannot { write anywhere }
		}
		fun summarize() {
			"notes: ${notes}"
		}
		on Finding {
			notes.add(event)
		}
	}`).(*ast.AgentDecl)
	require.True(t, ok)
	assert.Equal(t, "Researcher", decl.Name)
	require.Len(t, decl.Params, 1)
	assert.Len(t, decl.Context, 1)
	require.Len(t, decl.Tools, 2)
	assert.Equal(t, []string{"query"}, decl.Tools[0].Params)
	require.NotNil(t, decl.Boundaries)
	require.Len(t, decl.Boundaries.Assigns, 1)
	assert.Equal(t, "maxToolCalls", decl.Boundaries.Assigns[0].Name)
	assert.Equal(t, []string{"read public sources"}, decl.Boundaries.Can)
	assert.Equal(t, []string{"write anywhere"}, decl.Boundaries.Cannot)
	require.Len(t, decl.Methods, 1)
	require.Len(t, decl.Handlers, 1)
	assert.Equal(t, "Finding", decl.Handlers[0].Event)
}

func TestDelegateSpawnEmit(t *testing.T) {
	de, ok := exprOf(t, `delegate(helper) { search("x") }`).(*ast.DelegateExpr)
	require.True(t, ok)
	require.NotNil(t, de.Target)

	se, ok := exprOf(t, `spawn Helper("x")`).(*ast.SpawnExpr)
	require.True(t, ok)
	require.Len(t, se.Call.Args, 1)

	ee, ok := exprOf(t, `emit(Finding("data"))`).(*ast.EmitExpr)
	require.True(t, ok)
	require.NotNil(t, ee.Value)
}

func TestLoopsAndControlFlow(t *testing.T) {
	prog, err := Parse(`
		for (n in nums) {
			if (n == 0) { continue }
			if (n > 10) { break }
		}
		while (busy) {
			tick()
		}
	`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 2)
	_, ok := prog.Stmts[0].(*ast.ForStmt)
	assert.True(t, ok)
	_, ok = prog.Stmts[1].(*ast.WhileStmt)
	assert.True(t, ok)
}

func TestTryCatchFinally(t *testing.T) {
	st, ok := parseOne(t, `try {
		risky()
	} catch (e) {
		report(e)
	} finally {
		cleanup()
	}`).(*ast.TryStmt)
	require.True(t, ok)
	require.Len(t, st.Catches, 1)
	assert.Equal(t, "e", st.Catches[0].Name)
	require.NotNil(t, st.Finally)
}

func TestAssignTargets(t *testing.T) {
	prog, err := Parse(`
		x = 1
		items[0] = 2
		user.name = "Ada"
	`)
	require.NoError(t, err)
	require.Len(t, prog.Stmts, 3)
	for _, st := range prog.Stmts {
		_, ok := st.(*ast.AssignStmt)
		assert.True(t, ok, "expected AssignStmt, got %T", st)
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{
		`val = 1`,
		`fun () {}`,
		`entity {`,
		`1 = 2`,
		`if x { 1 }`,
	}
	for _, src := range cases {
		_, err := Parse(src)
		assert.Error(t, err, "source: %s", src)
	}
}

func TestErrorCarriesPosition(t *testing.T) {
	_, err := Parse("val x =\n  @")
	require.Error(t, err)
	var perr *Error
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 2, perr.Line)
}
