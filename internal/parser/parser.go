// Package parser builds internal/ast trees from Anima source text.
//
// It is a hand-written recursive-descent / Pratt parser. The whole token
// stream is lexed up front so the parser can look arbitrarily far ahead when
// disambiguating map literals from lambdas and can slice raw source text for
// boundary rule bodies.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/timmeromberg/anima-sub000/internal/ast"
	"github.com/timmeromberg/anima-sub000/internal/lexer"
)

// Error is a parse failure with its source position.
type Error struct {
	Msg  string
	Line int
	Col  int
}

func (e *Error) Error() string {
	return fmt.Sprintf("parse error at %d:%d: %s", e.Line, e.Col, e.Msg)
}

// Precedence levels, lowest first.
const (
	precLowest = iota
	precConf   // ~
	precOr     // ||
	precAnd    // &&
	precEq     // == !=
	precCmp    // < > <= >=
	precSum    // + -
	precProd   // * / %
	precUnary  // ! -x
)

var precedences = map[lexer.TokenType]int{
	lexer.TILDE: precConf,
	lexer.OR:    precOr,
	lexer.AND:   precAnd,
	lexer.EQ:    precEq, lexer.NEQ: precEq,
	lexer.LT: precCmp, lexer.GT: precCmp, lexer.LTE: precCmp, lexer.GTE: precCmp,
	lexer.PLUS: precSum, lexer.MINUS: precSum,
	lexer.STAR: precProd, lexer.SLASH: precProd, lexer.PERCENT: precProd,
}

// Parser consumes a fully lexed token slice. The lexer is retained for its
// raw source slices.
type Parser struct {
	lx   *lexer.Lexer
	toks []lexer.Token
	i    int

	// noLambda suppresses trailing-lambda attachment while parsing headers
	// like `if (...)` conditions, where the following `{` is a block.
	noLambda bool
}

// New creates a parser over src.
func New(src string) *Parser {
	lx := lexer.New(src)
	var toks []lexer.Token
	for {
		t := lx.Next()
		toks = append(toks, t)
		if t.Type == lexer.EOF {
			break
		}
	}
	return &Parser{lx: lx, toks: toks}
}

// Parse parses a whole program.
func Parse(src string) (*ast.Program, error) {
	return New(src).Program()
}

func (p *Parser) cur() lexer.Token  { return p.toks[p.i] }
func (p *Parser) peek() lexer.Token { return p.at(1) }

func (p *Parser) at(off int) lexer.Token {
	j := p.i + off
	if j >= len(p.toks) {
		return p.toks[len(p.toks)-1] // EOF
	}
	return p.toks[j]
}

func (p *Parser) next() lexer.Token {
	t := p.cur()
	if p.i < len(p.toks)-1 {
		p.i++
	}
	return t
}

func (p *Parser) expect(tt lexer.TokenType) (lexer.Token, error) {
	if p.cur().Type != tt {
		return p.cur(), p.errf("expected %q, found %q", tt, p.cur().Literal)
	}
	return p.next(), nil
}

func (p *Parser) errf(format string, args ...any) error {
	t := p.cur()
	return &Error{Msg: fmt.Sprintf(format, args...), Line: t.Line, Col: t.Col}
}

func (p *Parser) pos() ast.Position {
	return ast.Position{Line: p.cur().Line, Col: p.cur().Col}
}

func (p *Parser) skipSemis() {
	for p.cur().Type == lexer.SEMI {
		p.next()
	}
}

// Program parses statements until EOF.
func (p *Parser) Program() (*ast.Program, error) {
	prog := &ast.Program{}
	setPos(prog, p.cur())
	for p.cur().Type != lexer.EOF {
		p.skipSemis()
		if p.cur().Type == lexer.EOF {
			break
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		prog.Stmts = append(prog.Stmts, st)
	}
	return prog, nil
}

// ---- statements ----

func (p *Parser) parseStmt() (ast.Stmt, error) {
	switch p.cur().Type {
	case lexer.VAL, lexer.VAR:
		return p.parseVarDecl()
	case lexer.FUN:
		return p.parseFunDecl()
	case lexer.ENTITY:
		return p.parseEntityDecl()
	case lexer.AGENT:
		return p.parseAgentDecl()
	case lexer.WHILE:
		return p.parseWhile()
	case lexer.FOR:
		return p.parseFor()
	case lexer.TRY:
		return p.parseTry()
	case lexer.RETURN:
		t := p.next()
		ret := &ast.ReturnStmt{}
		setPos(ret, t)
		if startsExpr(p.cur().Type) {
			v, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			ret.Value = v
		}
		return ret, nil
	case lexer.BREAK:
		t := p.next()
		st := &ast.BreakStmt{}
		setPos(st, t)
		return st, nil
	case lexer.CONTINUE:
		t := p.next()
		st := &ast.ContinueStmt{}
		setPos(st, t)
		return st, nil
	}

	t := p.cur()
	e, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	if p.cur().Type == lexer.ASSIGN {
		switch e.(type) {
		case *ast.Ident, *ast.IndexExpr, *ast.MemberExpr:
		default:
			return nil, p.errf("invalid assignment target")
		}
		p.next()
		v, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		st := &ast.AssignStmt{Target: e, Value: v}
		setPos(st, t)
		return st, nil
	}
	st := &ast.ExprStmt{E: e}
	setPos(st, t)
	return st, nil
}

func (p *Parser) parseVarDecl() (ast.Stmt, error) {
	t := p.next() // val | var
	decl := &ast.VarDecl{Mutable: t.Type == lexer.VAR}
	setPos(decl, t)

	if p.cur().Type == lexer.LPAREN {
		p.next()
		for {
			name, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			decl.Names = append(decl.Names, name.Literal)
			if p.cur().Type != lexer.COMMA {
				break
			}
			p.next()
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	} else {
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		decl.Names = []string{name.Literal}
		if p.cur().Type == lexer.COLON { // optional type annotation, ignored
			p.next()
			if _, err := p.expect(lexer.IDENT); err != nil {
				return nil, err
			}
		}
	}
	if _, err := p.expect(lexer.ASSIGN); err != nil {
		return nil, err
	}
	v, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	decl.Value = v
	return decl, nil
}

func (p *Parser) parseFunDecl() (*ast.FunDecl, error) {
	t := p.next() // fun
	decl := &ast.FunDecl{}
	setPos(decl, t)
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	if p.cur().Type == lexer.DOT { // extension: fun Text.shout()
		p.next()
		decl.Receiver = name.Literal
		name, err = p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
	}
	decl.Name = name.Literal
	params, err := p.parseParams()
	if err != nil {
		return nil, err
	}
	decl.Params = params
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	decl.Body = body
	return decl, nil
}

func (p *Parser) parseParams() ([]ast.Param, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var params []ast.Param
	for p.cur().Type != lexer.RPAREN {
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		par := ast.Param{Name: name.Literal}
		if p.cur().Type == lexer.COLON { // optional annotation, ignored
			p.next()
			if _, err := p.expect(lexer.IDENT); err != nil {
				return nil, err
			}
		}
		if p.cur().Type == lexer.ASSIGN {
			p.next()
			def, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			par.Default = def
		}
		params = append(params, par)
		if p.cur().Type == lexer.COMMA {
			p.next()
		}
	}
	p.next() // )
	return params, nil
}

func (p *Parser) parseEntityDecl() (*ast.EntityDecl, error) {
	t := p.next() // entity
	decl := &ast.EntityDecl{}
	setPos(decl, t)
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decl.Name = name.Literal
	if p.cur().Type == lexer.COLON {
		p.next()
		parent, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		decl.Parent = parent.Literal
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		switch p.cur().Type {
		case lexer.VAL, lexer.VAR:
			mut := p.next().Type == lexer.VAR
			fname, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			f := ast.FieldDecl{Name: fname.Literal, Mutable: mut}
			if p.cur().Type == lexer.COLON {
				p.next()
				if _, err := p.expect(lexer.IDENT); err != nil {
					return nil, err
				}
			}
			if p.cur().Type == lexer.ASSIGN {
				p.next()
				def, err := p.parseExpr(precLowest)
				if err != nil {
					return nil, err
				}
				f.Default = def
			}
			decl.Fields = append(decl.Fields, f)
		case lexer.INVARIANT:
			p.next()
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			decl.Invariants = append(decl.Invariants, body)
		default:
			return nil, p.errf("unexpected %q in entity body", p.cur().Literal)
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseAgentDecl() (*ast.AgentDecl, error) {
	t := p.next() // agent
	decl := &ast.AgentDecl{}
	setPos(decl, t)
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	decl.Name = name.Literal
	if p.cur().Type == lexer.LPAREN {
		params, err := p.parseParams()
		if err != nil {
			return nil, err
		}
		decl.Params = params
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		switch p.cur().Type {
		case lexer.CONTEXT:
			p.next()
			blk, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			decl.Context = append(decl.Context, blk.Stmts...)
		case lexer.TOOLS:
			p.next()
			tools, err := p.parseToolsSection()
			if err != nil {
				return nil, err
			}
			decl.Tools = append(decl.Tools, tools...)
		case lexer.BOUNDS:
			p.next()
			b, err := p.parseBoundaries()
			if err != nil {
				return nil, err
			}
			decl.Boundaries = b
		case lexer.FUN:
			m, err := p.parseFunDecl()
			if err != nil {
				return nil, err
			}
			decl.Methods = append(decl.Methods, m)
		case lexer.ON:
			p.next()
			ev, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			decl.Handlers = append(decl.Handlers, ast.HandlerDecl{Event: ev.Literal, Body: body})
		case lexer.TEAM:
			p.next()
			blk, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			decl.Team = append(decl.Team, blk.Stmts...)
		default:
			return nil, p.errf("unexpected %q in agent body", p.cur().Literal)
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return decl, nil
}

func (p *Parser) parseToolsSection() ([]ast.ToolDecl, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	var tools []ast.ToolDecl
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		td := ast.ToolDecl{Name: name.Literal}
		if p.cur().Type == lexer.LPAREN {
			p.next()
			for p.cur().Type != lexer.RPAREN {
				pn, err := p.expect(lexer.IDENT)
				if err != nil {
					return nil, err
				}
				td.Params = append(td.Params, pn.Literal)
				if p.cur().Type == lexer.COMMA {
					p.next()
				}
			}
			p.next()
		}
		tools = append(tools, td)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return tools, nil
}

func (p *Parser) parseBoundaries() (*ast.BoundaryDecl, error) {
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	b := &ast.BoundaryDecl{}
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		switch p.cur().Type {
		case lexer.CAN, lexer.CANNOT:
			isCan := p.next().Type == lexer.CAN
			raw, err := p.captureRawBlock()
			if err != nil {
				return nil, err
			}
			if isCan {
				b.Can = append(b.Can, raw)
			} else {
				b.Cannot = append(b.Cannot, raw)
			}
		case lexer.IDENT:
			name := p.next()
			if _, err := p.expect(lexer.ASSIGN); err != nil {
				return nil, err
			}
			v, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			b.Assigns = append(b.Assigns, ast.BoundaryAssign{Name: name.Literal, Value: v})
		default:
			return nil, p.errf("unexpected %q in boundaries", p.cur().Literal)
		}
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return b, nil
}

// captureRawBlock consumes a brace-delimited region and returns its verbatim
// source text. Used for can/cannot rule bodies, which are recorded unparsed.
func (p *Parser) captureRawBlock() (string, error) {
	open, err := p.expect(lexer.LBRACE)
	if err != nil {
		return "", err
	}
	depth := 1
	for depth > 0 {
		t := p.cur()
		if t.Type == lexer.EOF {
			return "", p.errf("unterminated rule block")
		}
		if t.Type == lexer.LBRACE {
			depth++
		} else if t.Type == lexer.RBRACE {
			depth--
		}
		p.next()
		if depth == 0 {
			return strings.TrimSpace(p.lx.Slice(open.Off+1, t.Off)), nil
		}
	}
	return "", p.errf("unterminated rule block")
}

func (p *Parser) parseWhile() (ast.Stmt, error) {
	t := p.next()
	st := &ast.WhileStmt{}
	setPos(st, t)
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	st.Cond = cond
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st.Body = body
	return st, nil
}

func (p *Parser) parseFor() (ast.Stmt, error) {
	t := p.next()
	st := &ast.ForStmt{}
	setPos(st, t)
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.IDENT)
	if err != nil {
		return nil, err
	}
	st.Var = name.Literal
	if _, err := p.expect(lexer.IN); err != nil {
		return nil, err
	}
	iter, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	st.Iter = iter
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st.Body = body
	return st, nil
}

func (p *Parser) parseTry() (ast.Stmt, error) {
	t := p.next()
	st := &ast.TryStmt{}
	setPos(st, t)
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	st.Body = body
	for p.cur().Type == lexer.CATCH {
		p.next()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		name, err := p.expect(lexer.IDENT)
		if err != nil {
			return nil, err
		}
		if p.cur().Type == lexer.COLON { // optional error type, ignored
			p.next()
			if _, err := p.expect(lexer.IDENT); err != nil {
				return nil, err
			}
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		cbody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.Catches = append(st.Catches, ast.CatchClause{Name: name.Literal, Body: cbody})
	}
	if p.cur().Type == lexer.FINALLY {
		p.next()
		fbody, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		st.Finally = fbody
	}
	return st, nil
}

func (p *Parser) parseBlock() (*ast.Block, error) {
	t, err := p.expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	blk := &ast.Block{}
	setPos(blk, t)
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		if p.cur().Type == lexer.RBRACE {
			break
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		blk.Stmts = append(blk.Stmts, st)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return blk, nil
}

// ---- expressions ----

func (p *Parser) parseExpr(prec int) (ast.Expr, error) {
	left, err := p.parseUnary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		tp, ok := precedences[t.Type]
		if !ok || tp <= prec {
			return left, nil
		}
		p.next()
		if t.Type == lexer.TILDE {
			conf, err := p.parseExpr(tp)
			if err != nil {
				return nil, err
			}
			ce := &ast.ConfidenceExpr{Value: left, Conf: conf}
			setPos(ce, t)
			left = ce
			continue
		}
		right, err := p.parseExpr(tp)
		if err != nil {
			return nil, err
		}
		be := &ast.BinaryExpr{Op: string(t.Type), Left: left, Right: right}
		setPos(be, t)
		left = be
	}
}

func (p *Parser) parseUnary() (ast.Expr, error) {
	t := p.cur()
	if t.Type == lexer.BANG || t.Type == lexer.MINUS {
		p.next()
		operand, err := p.parseUnary()
		if err != nil {
			return nil, err
		}
		ue := &ast.UnaryExpr{Op: string(t.Type), Operand: operand}
		setPos(ue, t)
		return ue, nil
	}
	return p.parsePostfix()
}

func (p *Parser) parsePostfix() (ast.Expr, error) {
	e, err := p.parsePrimary()
	if err != nil {
		return nil, err
	}
	for {
		t := p.cur()
		switch t.Type {
		case lexer.DOT, lexer.SAFEDOT:
			p.next()
			name, err := p.memberName()
			if err != nil {
				return nil, err
			}
			me := &ast.MemberExpr{Recv: e, Name: name, Safe: t.Type == lexer.SAFEDOT}
			setPos(me, t)
			e = me
		case lexer.LPAREN:
			args, err := p.parseArgs()
			if err != nil {
				return nil, err
			}
			ce := &ast.CallExpr{Callee: e, Args: args}
			setPos(ce, t)
			e = ce
		case lexer.LBRACKET:
			p.next()
			idx, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			if _, err := p.expect(lexer.RBRACKET); err != nil {
				return nil, err
			}
			ie := &ast.IndexExpr{Recv: e, Index: idx}
			setPos(ie, t)
			e = ie
		case lexer.INCR, lexer.DECR:
			p.next()
			pe := &ast.PostfixExpr{Op: string(t.Type), Operand: e}
			setPos(pe, t)
			e = pe
		case lexer.LBRACE:
			// Trailing lambda: f { ... } or f(x) { ... } normalizes to an
			// ordinary positional argument.
			if p.noLambda || p.looksLikeMap() {
				return e, nil
			}
			switch e.(type) {
			case *ast.Ident, *ast.MemberExpr, *ast.CallExpr:
			default:
				return e, nil
			}
			lam, err := p.parseLambda()
			if err != nil {
				return nil, err
			}
			if call, ok := e.(*ast.CallExpr); ok {
				call.Args = append(call.Args, ast.Arg{Value: lam})
			} else {
				ce := &ast.CallExpr{Callee: e, Args: []ast.Arg{{Value: lam}}}
				setPos(ce, t)
				e = ce
			}
		default:
			return e, nil
		}
	}
}

// memberName accepts identifiers plus the few keywords that double as member
// names (a confident value's `value`, a map's `entries`, ...).
func (p *Parser) memberName() (string, error) {
	t := p.cur()
	if t.Type == lexer.IDENT || isKeywordMember(t.Type) {
		p.next()
		return t.Literal, nil
	}
	return "", p.errf("expected member name, found %q", t.Literal)
}

func isKeywordMember(tt lexer.TokenType) bool {
	switch tt {
	case lexer.CAN, lexer.CANNOT, lexer.ON, lexer.TEAM, lexer.CONTEXT, lexer.TOOLS:
		return true
	}
	return false
}

func (p *Parser) parseArgs() ([]ast.Arg, error) {
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	var args []ast.Arg
	for p.cur().Type != lexer.RPAREN {
		var a ast.Arg
		if p.cur().Type == lexer.IDENT && p.peek().Type == lexer.ASSIGN {
			a.Name = p.next().Literal
			p.next() // =
		}
		v, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		a.Value = v
		args = append(args, a)
		if p.cur().Type == lexer.COMMA {
			p.next()
		}
	}
	p.next() // )
	return args, nil
}

func (p *Parser) parsePrimary() (ast.Expr, error) {
	t := p.cur()
	switch t.Type {
	case lexer.INT:
		p.next()
		raw := strings.ReplaceAll(t.Literal, "_", "")
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, p.errf("invalid integer literal %q", t.Literal)
		}
		lit := &ast.IntLit{Value: v, Raw: t.Literal}
		setPos(lit, t)
		return lit, nil
	case lexer.FLOAT:
		p.next()
		raw := strings.ReplaceAll(t.Literal, "_", "")
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, p.errf("invalid float literal %q", t.Literal)
		}
		lit := &ast.FloatLit{Value: v}
		setPos(lit, t)
		return lit, nil
	case lexer.STRING:
		p.next()
		return p.stringExpr(t)
	case lexer.TRUE, lexer.FALSE:
		p.next()
		lit := &ast.BoolLit{Value: t.Type == lexer.TRUE}
		setPos(lit, t)
		return lit, nil
	case lexer.NULL:
		p.next()
		lit := &ast.NullLit{}
		setPos(lit, t)
		return lit, nil
	case lexer.IDENT:
		p.next()
		id := &ast.Ident{Name: t.Literal}
		setPos(id, t)
		return id, nil
	case lexer.LPAREN:
		p.next()
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		return e, nil
	case lexer.LBRACKET:
		return p.parseListLit(false)
	case lexer.MUTABLE:
		p.next()
		switch p.cur().Type {
		case lexer.LBRACKET:
			return p.parseListLit(true)
		case lexer.LBRACE:
			return p.parseMapLit(true)
		}
		return nil, p.errf("expected collection literal after mutable")
	case lexer.LBRACE:
		if p.looksLikeMap() {
			return p.parseMapLit(false)
		}
		return p.parseLambda()
	case lexer.IF:
		return p.parseIf()
	case lexer.WHEN:
		return p.parseWhen()
	case lexer.DELEGATE:
		return p.parseDelegate()
	case lexer.SPAWN:
		return p.parseSpawn()
	case lexer.PARALLEL:
		p.next()
		body, err := p.parseBlock()
		if err != nil {
			return nil, err
		}
		pe := &ast.ParallelExpr{Body: body}
		setPos(pe, t)
		return pe, nil
	case lexer.EMIT:
		p.next()
		if _, err := p.expect(lexer.LPAREN); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
		ee := &ast.EmitExpr{Value: v}
		setPos(ee, t)
		return ee, nil
	}
	return nil, p.errf("unexpected token %q", t.Literal)
}

// looksLikeMap reports whether the `{` at the cursor opens a map literal:
// `{}` or `{ key: ... }` where key is a string, number or identifier token.
func (p *Parser) looksLikeMap() bool {
	if p.cur().Type != lexer.LBRACE {
		return false
	}
	if p.peek().Type == lexer.RBRACE {
		return true
	}
	k := p.peek().Type
	if k == lexer.STRING || k == lexer.INT || k == lexer.IDENT {
		return p.at(2).Type == lexer.COLON
	}
	return false
}

func (p *Parser) parseListLit(mutable bool) (ast.Expr, error) {
	t, err := p.expect(lexer.LBRACKET)
	if err != nil {
		return nil, err
	}
	lit := &ast.ListLit{Mutable: mutable}
	setPos(lit, t)
	for p.cur().Type != lexer.RBRACKET {
		e, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		lit.Elems = append(lit.Elems, e)
		if p.cur().Type == lexer.COMMA {
			p.next()
		}
	}
	p.next() // ]
	return lit, nil
}

func (p *Parser) parseMapLit(mutable bool) (ast.Expr, error) {
	t, err := p.expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	lit := &ast.MapLit{Mutable: mutable}
	setPos(lit, t)
	for p.cur().Type != lexer.RBRACE {
		var key ast.Expr
		kt := p.cur()
		switch kt.Type {
		case lexer.STRING:
			p.next()
			k := &ast.StrLit{Value: kt.Literal}
			setPos(k, kt)
			key = k
		case lexer.INT:
			p.next()
			raw := strings.ReplaceAll(kt.Literal, "_", "")
			v, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return nil, p.errf("invalid map key %q", kt.Literal)
			}
			k := &ast.IntLit{Value: v, Raw: kt.Literal}
			setPos(k, kt)
			key = k
		case lexer.IDENT:
			// Bare identifier keys are shorthand for their name.
			p.next()
			k := &ast.StrLit{Value: kt.Literal}
			setPos(k, kt)
			key = k
		default:
			return nil, p.errf("invalid map key %q", kt.Literal)
		}
		if _, err := p.expect(lexer.COLON); err != nil {
			return nil, err
		}
		v, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		lit.Entries = append(lit.Entries, ast.MapEntry{Key: key, Value: v})
		if p.cur().Type == lexer.COMMA {
			p.next()
		}
	}
	p.next() // }
	return lit, nil
}

func (p *Parser) parseLambda() (ast.Expr, error) {
	t, err := p.expect(lexer.LBRACE)
	if err != nil {
		return nil, err
	}
	lam := &ast.LambdaLit{}
	setPos(lam, t)

	// `{ a, b -> ... }` declares parameters; otherwise a single implicit `it`.
	if p.hasLambdaArrow() {
		for {
			name, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			lam.Params = append(lam.Params, ast.Param{Name: name.Literal})
			if p.cur().Type != lexer.COMMA {
				break
			}
			p.next()
		}
		if _, err := p.expect(lexer.ARROW); err != nil {
			return nil, err
		}
	} else {
		lam.Params = []ast.Param{{Name: "it"}}
	}

	body := &ast.Block{}
	setPos(body, t)
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		if p.cur().Type == lexer.RBRACE {
			break
		}
		st, err := p.parseStmt()
		if err != nil {
			return nil, err
		}
		body.Stmts = append(body.Stmts, st)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	lam.Body = body
	return lam, nil
}

// hasLambdaArrow checks for `ident (, ident)* ->` at the cursor.
func (p *Parser) hasLambdaArrow() bool {
	j := 0
	for {
		if p.at(j).Type != lexer.IDENT {
			return false
		}
		j++
		switch p.at(j).Type {
		case lexer.ARROW:
			return true
		case lexer.COMMA:
			j++
		default:
			return false
		}
	}
}

func (p *Parser) parseIf() (ast.Expr, error) {
	t := p.next() // if
	ie := &ast.IfExpr{}
	setPos(ie, t)
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	ie.Cond = cond
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	then, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	ie.Then = then
	if p.cur().Type == lexer.ELSE {
		p.next()
		if p.cur().Type == lexer.IF {
			els, err := p.parseIf()
			if err != nil {
				return nil, err
			}
			ie.Else = els.(*ast.IfExpr)
		} else {
			els, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			ie.Else = els
		}
	}
	return ie, nil
}

func (p *Parser) parseWhen() (ast.Expr, error) {
	t := p.next() // when
	we := &ast.WhenExpr{}
	setPos(we, t)
	if p.cur().Type == lexer.LPAREN {
		p.next()
		subj, err := p.parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		we.Subject = subj
		if _, err := p.expect(lexer.RPAREN); err != nil {
			return nil, err
		}
	}
	if _, err := p.expect(lexer.LBRACE); err != nil {
		return nil, err
	}
	for p.cur().Type != lexer.RBRACE && p.cur().Type != lexer.EOF {
		p.skipSemis()
		var br ast.WhenBranch
		switch p.cur().Type {
		case lexer.IS:
			p.next()
			tn, err := p.expect(lexer.IDENT)
			if err != nil {
				return nil, err
			}
			br.IsType = tn.Literal
		case lexer.ELSE:
			p.next()
			br.Else = true
		default:
			for {
				c, err := p.parseExpr(precLowest)
				if err != nil {
					return nil, err
				}
				br.Conds = append(br.Conds, c)
				if p.cur().Type != lexer.COMMA {
					break
				}
				p.next()
			}
		}
		if _, err := p.expect(lexer.ARROW); err != nil {
			return nil, err
		}
		if p.cur().Type == lexer.LBRACE && !p.looksLikeMap() {
			body, err := p.parseBlock()
			if err != nil {
				return nil, err
			}
			br.Body = body
		} else {
			bt := p.cur()
			e, err := p.parseExpr(precLowest)
			if err != nil {
				return nil, err
			}
			es := &ast.ExprStmt{E: e}
			setPos(es, bt)
			body := &ast.Block{Stmts: []ast.Stmt{es}}
			setPos(body, bt)
			br.Body = body
		}
		we.Branches = append(we.Branches, br)
	}
	if _, err := p.expect(lexer.RBRACE); err != nil {
		return nil, err
	}
	return we, nil
}

func (p *Parser) parseDelegate() (ast.Expr, error) {
	t := p.next() // delegate
	de := &ast.DelegateExpr{}
	setPos(de, t)
	if _, err := p.expect(lexer.LPAREN); err != nil {
		return nil, err
	}
	target, err := p.parseExpr(precLowest)
	if err != nil {
		return nil, err
	}
	de.Target = target
	if _, err := p.expect(lexer.RPAREN); err != nil {
		return nil, err
	}
	body, err := p.parseBlock()
	if err != nil {
		return nil, err
	}
	de.Body = body
	return de, nil
}

func (p *Parser) parseSpawn() (ast.Expr, error) {
	t := p.next() // spawn
	saved := p.noLambda
	p.noLambda = true
	e, err := p.parsePostfix()
	p.noLambda = saved
	if err != nil {
		return nil, err
	}
	call, ok := e.(*ast.CallExpr)
	if !ok {
		if id, isIdent := e.(*ast.Ident); isIdent {
			call = &ast.CallExpr{Callee: id}
			setPos(call, t)
		} else {
			return nil, p.errf("spawn requires an agent constructor call")
		}
	}
	se := &ast.SpawnExpr{Call: call}
	setPos(se, t)
	return se, nil
}

// stringExpr turns a STRING token into a StrLit, or an InterpStr when the
// body contains `${...}` segments. Each segment is parsed with a fresh parser.
func (p *Parser) stringExpr(t lexer.Token) (ast.Expr, error) {
	s := t.Literal
	if !strings.Contains(s, "${") {
		lit := &ast.StrLit{Value: s}
		setPos(lit, t)
		return lit, nil
	}
	is := &ast.InterpStr{}
	setPos(is, t)
	for len(s) > 0 {
		idx := strings.Index(s, "${")
		if idx < 0 {
			lit := &ast.StrLit{Value: s}
			setPos(lit, t)
			is.Parts = append(is.Parts, lit)
			break
		}
		if idx > 0 {
			lit := &ast.StrLit{Value: s[:idx]}
			setPos(lit, t)
			is.Parts = append(is.Parts, lit)
		}
		s = s[idx+2:]
		depth := 1
		end := -1
		for i := 0; i < len(s); i++ {
			switch s[i] {
			case '{':
				depth++
			case '}':
				depth--
				if depth == 0 {
					end = i
				}
			}
			if end >= 0 {
				break
			}
		}
		if end < 0 {
			return nil, &Error{Msg: "unterminated interpolation", Line: t.Line, Col: t.Col}
		}
		inner, err := New(s[:end]).parseExpr(precLowest)
		if err != nil {
			return nil, err
		}
		is.Parts = append(is.Parts, inner)
		s = s[end+1:]
	}
	return is, nil
}

func startsExpr(tt lexer.TokenType) bool {
	switch tt {
	case lexer.INT, lexer.FLOAT, lexer.STRING, lexer.TRUE, lexer.FALSE,
		lexer.NULL, lexer.IDENT, lexer.LPAREN, lexer.LBRACKET, lexer.LBRACE,
		lexer.BANG, lexer.MINUS, lexer.IF, lexer.WHEN, lexer.DELEGATE,
		lexer.SPAWN, lexer.PARALLEL, lexer.EMIT, lexer.MUTABLE:
		return true
	}
	return false
}

// setPos stores a token's position on a node.
func setPos(n interface{ SetPos(ast.Position) }, t lexer.Token) {
	n.SetPos(ast.Position{Line: t.Line, Col: t.Col})
}
