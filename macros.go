package tablegen

import (
	"go/token"
)

// maxMacroDepth stops runaway self-expanding macros.
const maxMacroDepth = 64

type macro struct {
	name     string
	params   []string
	template term
}

// defineMacro registers (defmacro NAME (PARAM...) TEMPLATE). A later
// definition replaces an earlier one with the same name, so sources may
// override the standard macros.
func (g *generator) defineMacro(l *list) {
	args := l.args()
	if len(args) != 3 {
		fail(ErrShape, l, "defmacro takes NAME (PARAM...) TEMPLATE, got %s", l)
	}
	name, ok := args[0].(symbol)
	if !ok || !token.IsIdentifier(name.name) {
		fail(ErrShape, args[0], "macro name must be an identifier, got %s", args[0])
	}
	params, ok := args[1].(*list)
	if !ok {
		fail(ErrShape, args[1], "macro parameters must be a list, got %s", args[1])
	}
	m := macro{name: name.name, template: args[2]}
	seen := map[string]bool{}
	for _, p := range params.items {
		ps, ok := p.(symbol)
		if !ok || !token.IsIdentifier(ps.name) || ps.name == keywordDiscard {
			fail(ErrShape, p, "macro parameter must be an identifier, got %s", p)
		}
		if seen[ps.name] {
			fail(ErrShape, p, "duplicate macro parameter %s", ps.name)
		}
		seen[ps.name] = true
		m.params = append(m.params, ps.name)
	}
	g.macrosByName[m.name] = m
	g.logger.Debug("macro defined", "name", m.name, "params", len(m.params))
}

// expandMacro substitutes args into the template of the macro ref names.
// The argument terms are inserted unevaluated, so a parameter used twice
// evaluates its argument twice.
func (g *generator) expandMacro(ref symbol, args []term, at term) term {
	m, ok := g.macrosByName[ref.macroName()]
	if !ok {
		fail(ErrUndefined, ref, "unknown macro %s", ref.name)
	}
	if len(args) != len(m.params) {
		fail(ErrShape, at, "macro %s takes %d arguments, got %d", ref.name, len(m.params), len(args))
	}
	repl := make(map[string]term, len(args))
	for i, p := range m.params {
		repl[p] = args[i]
	}
	return g.substitute(m.template, repl)
}

func (g *generator) lowerMacroCall(ref symbol, args []term, at term, want string) goCode {
	if g.macroDepth >= maxMacroDepth {
		fail(ErrShape, at, "macro %s expands too deeply", ref.name)
	}
	g.macroDepth++
	defer func() { g.macroDepth-- }()
	return g.lowerExpr(g.expandMacro(ref, args, at), want)
}
