package tablegen

import (
	"go/ast"
	"go/token"
	"go/types"
	"strconv"
)

// parseType reads a result type: a bare name such as int, or {Go type}.
func (g *generator) parseType(t term) string {
	switch v := t.(type) {
	case symbol:
		g.lowerSymbol(v)
		return v.name
	case goExpr:
		return types.ExprString(parseGo(v.src, v))
	}
	fail(ErrType, t, "expected a type name or {Go type}, got %s", t)
	return ""
}

// sliceElem returns the element type of the slice type typ.
func sliceElem(typ string, at term) string {
	if typ == "" {
		fail(ErrType, at, "table needs a result type; wrap it in (as {[]T} ...) or declare it with defvar/defun")
	}
	a, ok := parseGo(typ, at).(*ast.ArrayType)
	if !ok || a.Len != nil {
		fail(ErrType, at, "table dimension needs a slice type, got %s", typ)
	}
	return types.ExprString(a.Elt)
}

// arrayDim splits the array type typ into its length and element type.
// The length is -1 for [...]T.
func (g *generator) arrayDim(typ string, at term) (int64, string) {
	if typ == "" {
		fail(ErrType, at, "array needs a result type; wrap it in (as {[...]T} ...) or declare it with defvar/defun")
	}
	a, ok := parseGo(typ, at).(*ast.ArrayType)
	if !ok || a.Len == nil {
		fail(ErrType, at, "array dimension needs an array type, got %s", typ)
	}
	switch l := a.Len.(type) {
	case *ast.Ellipsis:
		return -1, types.ExprString(a.Elt)
	case *ast.BasicLit:
		if l.Kind == token.INT {
			n, err := strconv.ParseInt(l.Value, 0, 64)
			if err == nil {
				return n, types.ExprString(a.Elt)
			}
		}
	case *ast.Ident:
		if n, ok := g.scope.lookup(l.Name); ok {
			return n, types.ExprString(a.Elt)
		}
	}
	fail(ErrType, at, "array length in %s must be an integer, a defconst name or ...", typ)
	return 0, ""
}
