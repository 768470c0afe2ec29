package tablegen

import (
	"go/ast"
	"go/token"
	"strings"
)

const (
	precUnary   = token.UnaryPrec
	precPrimary = token.UnaryPrec + 1
)

// goCode is a lowered Go expression together with its binding strength and,
// when known, its type.
type goCode struct {
	src  string
	prec int
	typ  string
}

// operand renders c for use where an operand of at least prec is required.
func (c goCode) operand(prec int) string {
	if c.prec < prec {
		return "(" + c.src + ")"
	}
	return c.src
}

type binaryOp struct {
	tok   token.Token
	nary  bool // left-associative over two or more operands
	unary token.Token
}

var binaryOps = map[string]binaryOp{
	"+":   {tok: token.ADD, nary: true, unary: token.ADD},
	"-":   {tok: token.SUB, nary: true, unary: token.SUB},
	"*":   {tok: token.MUL, nary: true},
	"/":   {tok: token.QUO, nary: true},
	"%":   {tok: token.REM, nary: true},
	"&":   {tok: token.AND, nary: true},
	"|":   {tok: token.OR, nary: true},
	"^":   {tok: token.XOR, nary: true, unary: token.XOR},
	"&^":  {tok: token.AND_NOT, nary: true},
	"<<":  {tok: token.SHL},
	">>":  {tok: token.SHR},
	"==":  {tok: token.EQL},
	"!=":  {tok: token.NEQ},
	"<":   {tok: token.LSS},
	"<=":  {tok: token.LEQ},
	">":   {tok: token.GTR},
	">=":  {tok: token.GEQ},
	"and": {tok: token.LAND, nary: true},
	"or":  {tok: token.LOR, nary: true},
	"not": {unary: token.NOT},
}

func isOperator(name string) bool {
	_, ok := binaryOps[name]
	return ok
}

// lowerExpr turns a term into Go expression source. want is the expected
// Go type, or "" when the context doesn't know it; tables and arrays
// require it.
func (g *generator) lowerExpr(t term, want string) goCode {
	switch v := t.(type) {
	case number:
		if v.value < 0 {
			return goCode{src: v.String(), prec: precUnary}
		}
		return goCode{src: v.String(), prec: precPrimary}
	case float:
		if v.value < 0 {
			return goCode{src: v.String(), prec: precUnary}
		}
		return goCode{src: v.String(), prec: precPrimary}
	case str, boolean:
		return goCode{src: v.String(), prec: precPrimary}
	case symbol:
		return g.lowerSymbol(v)
	case goExpr:
		return goCode{src: strings.TrimSpace(v.src), prec: goPrecedence(parseGo(v.src, v))}
	case *list:
		return g.lowerList(v, want)
	}
	fail(ErrShape, t, "unexpected term %s", t)
	return goCode{}
}

func (g *generator) lowerSymbol(s symbol) goCode {
	switch {
	case isOperator(s.name):
		fail(ErrShape, s, "operator %s can't be used as a value", s.name)
	case isIterKeyword(s.name), isFormKeyword(s.name):
		fail(ErrShape, s, "%s can't be used as a value", s.name)
	case s.isMacroRef():
		fail(ErrShape, s, "macro %s can only be called or used as a fold combiner", s.name)
	}
	if v, ok := g.scope.lookup(s.name); ok && g.inlineConsts {
		return g.lowerExpr(number{v, s.pos}, "")
	}
	for _, part := range strings.Split(s.name, ".") {
		if !token.IsIdentifier(part) {
			fail(ErrShape, s, "%s is not a Go identifier", s.name)
		}
	}
	return goCode{src: s.name, prec: precPrimary}
}

func isFormKeyword(name string) bool {
	switch name {
	case keywordPackage, keywordImport, keywordDefconst, keywordDefmacro, keywordDefvar, keywordDefun,
		keywordTable, keywordArray, keywordFold, keywordAs, keywordIndex:
		return true
	}
	return false
}

func goPrecedence(e ast.Expr) int {
	switch v := e.(type) {
	case *ast.BinaryExpr:
		return v.Op.Precedence()
	case *ast.UnaryExpr, *ast.StarExpr:
		return precUnary
	default:
		return precPrimary
	}
}

func (g *generator) lowerList(l *list, want string) goCode {
	if len(l.items) == 0 {
		fail(ErrShape, l, "empty form")
	}
	switch h := l.items[0].(type) {
	case symbol:
		switch {
		case h.name == keywordTable:
			return g.lowerTable(l, want)
		case h.name == keywordArray:
			return g.lowerArray(l, want)
		case h.name == keywordFold:
			return g.lowerFold(l, want)
		case h.name == keywordAs:
			if len(l.items) != 3 {
				fail(ErrShape, l, "as takes TYPE EXPR, got %s", l)
			}
			return g.lowerExpr(l.items[2], g.parseType(l.items[1]))
		case h.name == keywordIndex:
			if len(l.items) != 3 {
				fail(ErrShape, l, "index takes COLLECTION KEY, got %s", l)
			}
			x := g.lowerExpr(l.items[1], "")
			k := g.lowerExpr(l.items[2], "")
			return goCode{src: x.operand(precPrimary) + "[" + k.src + "]", prec: precPrimary}
		case isOperator(h.name):
			return g.lowerOperator(h, l)
		case h.isMacroRef():
			return g.lowerMacroCall(h, l.args(), l, want)
		case isIterKeyword(h.name) || isFormKeyword(h.name):
			fail(ErrShape, l, "%s form is not allowed here", h.name)
		}
	case number, float, str, boolean:
		fail(ErrShape, l, "%s is not callable", h)
	}
	return g.lowerCall(l)
}

func (g *generator) lowerCall(l *list) goCode {
	fn := g.lowerExpr(l.items[0], "")
	args := make([]string, 0, len(l.items)-1)
	for _, a := range l.args() {
		args = append(args, g.lowerExpr(a, "").src)
	}
	return goCode{src: fn.operand(precPrimary) + "(" + strings.Join(args, ", ") + ")", prec: precPrimary}
}

func (g *generator) lowerOperator(h symbol, l *list) goCode {
	op := binaryOps[h.name]
	args := l.args()

	if len(args) == 1 && op.unary != token.ILLEGAL {
		x := g.lowerExpr(args[0], "").operand(precUnary)
		if x[0] == op.unary.String()[0] {
			x = "(" + x + ")" // keep - -x from becoming --x
		}
		return goCode{src: op.unary.String() + x, prec: precUnary}
	}
	if op.tok == token.ILLEGAL {
		fail(ErrShape, l, "%s takes exactly one operand, got %d", h.name, len(args))
	}
	if len(args) < 2 || (!op.nary && len(args) != 2) {
		want := "two"
		if op.nary {
			want = "at least two"
		}
		fail(ErrShape, l, "%s takes %s operands, got %d", h.name, want, len(args))
	}

	prec := op.tok.Precedence()
	acc := g.lowerExpr(args[0], "").operand(prec)
	for _, a := range args[1:] {
		acc += " " + op.tok.String() + " " + g.lowerExpr(a, "").operand(prec+1)
	}
	return goCode{src: acc, prec: prec}
}
