package tablegen

import (
	"go/ast"
	"go/parser"
	"go/token"
	"sort"
	"strings"

	"golang.org/x/tools/go/ast/astutil"
)

// parseGo parses a Go expression chunk and fails with a diagnostic at the
// chunk's position when it isn't valid.
func parseGo(src string, at term) ast.Expr {
	e, err := parser.ParseExpr(src)
	if err != nil {
		fail(ErrSyntax, at, "invalid Go expression {%s}: %v", src, err)
	}
	return e
}

// substituteGo replaces free uses of the identifiers in repl by the given Go
// source. Field selectors (the Sel of x.Sel) and identifiers declared inside
// function literals are left alone. Replacements that aren't primary
// expressions are parenthesized.
func substituteGo(src string, repl map[string]goCode, at term) string {
	fset := token.NewFileSet()
	e, err := parser.ParseExprFrom(fset, "", src, 0)
	if err != nil {
		fail(ErrSyntax, at, "invalid Go expression {%s}: %v", src, err)
	}

	type edit struct {
		offset int
		length int
		text   string
	}
	var edits []edit
	shadowed := map[string]int{}

	astutil.Apply(e, func(c *astutil.Cursor) bool {
		switch n := c.Node().(type) {
		case *ast.FuncLit:
			for _, name := range funcLitNames(n) {
				shadowed[name]++
			}
		case *ast.Ident:
			if sel, ok := c.Parent().(*ast.SelectorExpr); ok && sel.Sel == n {
				return true
			}
			r, ok := repl[n.Name]
			if !ok || shadowed[n.Name] > 0 {
				return true
			}
			text := r.src
			if r.prec < precPrimary {
				text = "(" + text + ")"
			}
			edits = append(edits, edit{fset.Position(n.Pos()).Offset, len(n.Name), text})
		}
		return true
	}, func(c *astutil.Cursor) bool {
		if n, ok := c.Node().(*ast.FuncLit); ok {
			for _, name := range funcLitNames(n) {
				shadowed[name]--
			}
		}
		return true
	})

	sort.Slice(edits, func(i, j int) bool { return edits[i].offset > edits[j].offset })
	res := src
	for _, ed := range edits {
		res = res[:ed.offset] + ed.text + res[ed.offset+ed.length:]
	}
	return res
}

// funcLitNames lists the parameter and result names a function literal
// declares.
func funcLitNames(f *ast.FuncLit) []string {
	var names []string
	for _, fl := range []*ast.FieldList{f.Type.Params, f.Type.Results} {
		if fl == nil {
			continue
		}
		for _, field := range fl.List {
			for _, n := range field.Names {
				names = append(names, n.Name)
			}
		}
	}
	return names
}

// substitute replaces symbols named in repl throughout t. Nested tables and
// arrays that rebind one of the names are rejected rather than silently
// shadowed.
func (g *generator) substitute(t term, repl map[string]term) term {
	switch v := t.(type) {
	case symbol:
		if r, ok := repl[v.name]; ok {
			return r
		}
		return v
	case goExpr:
		code := map[string]goCode{}
		for name, r := range repl {
			if strings.Contains(v.src, name) {
				code[name] = g.lowerExpr(r, "")
			}
		}
		return goExpr{substituteGo(v.src, code, v), v.pos}
	case *list:
		if h, ok := v.head(); ok && (h.name == keywordTable || h.name == keywordArray) {
			for _, s := range v.items[min(2, len(v.items)):] {
				if sl, ok := s.(*list); ok {
					if b, ok := sl.head(); ok {
						if _, clash := repl[b.name]; clash {
							fail(ErrShape, b, "binder %s shadows an enclosing binder or macro parameter", b.name)
						}
					}
				}
			}
		}
		res := &list{pos: v.pos, items: make([]term, len(v.items))}
		for i, it := range v.items {
			res.items[i] = g.substitute(it, repl)
		}
		return res
	default:
		return t
	}
}
