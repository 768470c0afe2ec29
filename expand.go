package tablegen

import (
	"fmt"
	"go/token"
	"strconv"
	"strings"
)

// codeWriter accumulates generated statements.
type codeWriter struct {
	b      strings.Builder
	indent int
}

func (w *codeWriter) line(format string, args ...any) *codeWriter {
	w.b.WriteString(strings.Repeat("\t", w.indent))
	fmt.Fprintf(&w.b, format, args...)
	w.b.WriteByte('\n')
	return w
}

func (w *codeWriter) open(format string, args ...any) *codeWriter {
	w.line(format+" {", args...)
	w.indent++
	return w
}

func (w *codeWriter) close() *codeWriter {
	w.indent--
	return w.line("}")
}

func (w *codeWriter) String() string {
	return w.b.String()
}

// reservedPrefix starts every generated name. The reader rejects source
// names with it, so temporaries never capture user identifiers.
const reservedPrefix = "__"

func (g *generator) newTemp(prefix string) string {
	g.autoIncrementTempID++
	return reservedPrefix + prefix + strconv.Itoa(g.autoIncrementTempID)
}

// enter opens a scope for Go variables declared by the code being generated.
func (g *generator) enter() *scope {
	g.scope = newScope(g.scope)
	return g.scope
}

func (g *generator) leave() {
	g.scope = g.scope.parentScope
}

// parseTable splits (table BODY SPEC...) into the body and canonical specs.
func parseTable(l *list) (term, []iterSpec) {
	args := l.args()
	if len(args) == 0 {
		fail(ErrShape, l, "table needs a body expression")
	}
	specs := make([]iterSpec, 0, len(args)-1)
	for _, s := range args[1:] {
		specs = append(specs, parseSpec(s))
	}
	return args[0], specs
}

// lowerTable lowers a table used as an expression. With no specs it is the
// body itself; otherwise the loops are wrapped in a function literal called
// in place.
func (g *generator) lowerTable(l *list, want string) goCode {
	body, specs := parseTable(l)
	if len(specs) == 0 {
		return g.lowerExpr(body, want)
	}
	w := &codeWriter{indent: 1}
	res := g.emitTable(w, body, specs, want, l)
	return goCode{
		src:  "func() " + want + " {\n" + w.String() + "\treturn " + res + "\n}()",
		prec: precPrimary,
		typ:  want,
	}
}

// emitTable writes the loops for specs and returns the Go expression that
// holds the result. specs[0] becomes the outermost loop; the body is
// evaluated once per innermost iteration and nowhere else.
func (g *generator) emitTable(w *codeWriter, body term, specs []iterSpec, want string, at term) string {
	if len(specs) == 0 {
		return g.lowerExpr(body, want).src
	}
	elem := sliceElem(want, at)
	acc := g.newTemp("tbl")
	g.logger.Debug("expanding table dimension", "acc", acc, "binder", specs[0].binder, "iterable", specs[0].iter.kind.String())

	w.line("%s := make(%s, 0)", acc, want)
	typ := g.openLoop(w, specs[0])
	if !specs[0].discarded() {
		g.enter().vars[specs[0].binder] = typ
		defer g.leave()
	}
	inner := g.emitTable(w, body, specs[1:], elem, at)
	w.line("%s = append(%s, %s)", acc, acc, inner)
	w.close()
	return acc
}

// openLoop writes the for statement header for one spec and returns the Go
// type of its binder, "" when it isn't known. Discarded binders either use a
// range clause without variables or a generated counter the body can't name.
func (g *generator) openLoop(w *codeWriter, s iterSpec) string {
	it := s.iter
	switch it.kind {
	case iterCount:
		n := g.bound(it.end)
		if s.discarded() {
			w.open("for range %s", n.src)
		} else {
			w.open("for %s := range %s", s.binder, n.src)
		}
		return n.goType()
	case iterSeq:
		src := g.lowerExpr(it.expr, "").src
		if s.discarded() {
			w.open("for range %s", src)
		} else {
			w.open("for %s := range %s", s.binder, src)
		}
	case iterEach:
		src := g.lowerExpr(it.expr, "").src
		if s.discarded() {
			w.open("for range %s", src)
		} else {
			w.open("for _, %s := range %s", s.binder, src)
		}
	case iterRange:
		return g.openRangeLoop(w, s)
	}
	return ""
}

// loopBound is a lowered range bound. Untyped bounds are integer constants;
// the others carry their Go type when the generator knows it.
type loopBound struct {
	goCode
	untyped bool
}

func (g *generator) bound(t term) loopBound {
	b := loopBound{goCode: g.lowerExpr(t, "")}
	if _, ok := tryConst(t, g.scope); ok {
		b.untyped = true
		return b
	}
	if e, ok := t.(goExpr); ok {
		if _, ok := foldGoConst(e.src); ok {
			b.untyped = true
			return b
		}
	}
	if s, ok := t.(symbol); ok {
		b.typ, _ = g.scope.typeOf(s.name)
	}
	return b
}

func (b loopBound) goType() string {
	if b.untyped {
		return "int"
	}
	return b.typ
}

// foreign reports whether b may have a type other than int, the type an
// untyped constant takes in a short variable declaration.
func (b loopBound) foreign() bool {
	return !b.untyped && b.typ != "int"
}

// openRangeLoop writes the loop for (range START END STRIDE). The binder
// takes the type of START. An untyped START instead takes the type of a
// typed bound: that bound is hoisted and the binder starts at
// bound - bound + START.
func (g *generator) openRangeLoop(w *codeWriter, s iterSpec) string {
	it := s.iter
	x := s.binder
	if s.discarded() {
		x = g.newTemp("i")
	}
	start := loopBound{goCode: goCode{src: "1", prec: precPrimary}, untyped: true}
	if it.start != nil {
		start = g.bound(it.start)
	}
	end := g.bound(it.end)

	post := x + "++"
	descending := false
	var stride *loopBound
	if it.stride != nil {
		if k, ok := tryConst(it.stride, g.scope); ok {
			switch {
			case k > 0 && k != 1:
				post = fmt.Sprintf("%s += %d", x, k)
			case k < 0:
				post = fmt.Sprintf("%s -= %d", x, -k)
				descending = true
			case k == 0:
				fail(ErrShape, it.stride, "range stride must not be zero")
			}
		} else {
			b := g.bound(it.stride)
			stride = &b
		}
	}

	mixed := (start.untyped || end.untyped) &&
		(start.foreign() || end.foreign() || (stride != nil && stride.foreign()))
	hoist := mixed && start.untyped

	names, values := []string{x}, []string{start.src}
	var hoisted, hoistedValues []string
	declare := func(name string, b loopBound) {
		if hoist {
			hoisted, hoistedValues = append(hoisted, name), append(hoistedValues, b.src)
		} else {
			names, values = append(names, name), append(values, b.src)
		}
	}

	hi := end.operand(token.EQL.Precedence() + 1)
	anchor, typ := "", start.goType()
	if !mixed || !end.untyped {
		hi = g.newTemp("hi")
		declare(hi, end)
		if end.foreign() {
			anchor, typ = hi, end.typ
		}
	}
	cond := fmt.Sprintf("%s <= %s", x, hi)
	if descending {
		cond = fmt.Sprintf("%s >= %s", x, hi)
	}
	if stride != nil {
		// The sign of a dynamic stride picks the continuation test.
		step := g.newTemp("step")
		declare(step, *stride)
		if anchor == "" && stride.foreign() {
			anchor, typ = step, stride.typ
		}
		cond = fmt.Sprintf("(%s >= 0 && %s <= %s) || (%s < 0 && %s >= %s)", step, x, hi, step, x, hi)
		post = fmt.Sprintf("%s += %s", x, step)
	}

	if hoist {
		w.line("%s := %s", strings.Join(hoisted, ", "), strings.Join(hoistedValues, ", "))
		values[0] = anchor + " - " + anchor
		if start.src != "0" {
			values[0] += " + " + start.operand(token.ADD.Precedence()+1)
		}
	} else if !start.untyped {
		typ = start.typ
	}
	w.open("for %s := %s; %s; %s", strings.Join(names, ", "), strings.Join(values, ", "), cond, post)
	return typ
}

// lowerArray expands (array BODY CSPEC...) into a fully unrolled composite
// literal. Every bound is evaluated now, so the literal's dimensions are
// constants.
func (g *generator) lowerArray(l *list, want string) goCode {
	args := l.args()
	if len(args) == 0 {
		fail(ErrShape, l, "array needs a body expression")
	}
	specs := make([]constSpec, 0, len(args)-1)
	for _, s := range args[1:] {
		specs = append(specs, parseConstSpec(s))
	}
	if len(specs) == 0 {
		return g.lowerExpr(args[0], want)
	}
	budget := int64(maxArrayElements)
	lit := g.unroll(args[0], specs, newScope(g.scope), want, l, &budget)
	return goCode{src: lit.typ + lit.elems, prec: precPrimary, typ: lit.typ}
}

type arrayLit struct {
	typ   string // resolved type, lengths filled in
	elems string // "{...}" for arrays, the value for scalars
}

func (g *generator) unroll(body term, specs []constSpec, env *scope, want string, at term, budget *int64) arrayLit {
	if len(specs) == 0 {
		repl := map[string]term{}
		for cur := env; cur != g.scope; cur = cur.parentScope {
			for name, v := range cur.values {
				if _, inner := repl[name]; !inner {
					repl[name] = number{v, body.position()}
				}
			}
		}
		b := body
		if len(repl) > 0 {
			b = g.substitute(body, repl)
		}
		if v, ok := tryConst(b, g.scope); ok {
			return arrayLit{typ: want, elems: strconv.FormatInt(v, 10)}
		}
		c := g.lowerExpr(b, want)
		if _, ok := b.(goExpr); ok {
			if v, ok := foldGoConst(c.src); ok {
				return arrayLit{typ: want, elems: v}
			}
		}
		if c.typ == "" {
			c.typ = want
		}
		return arrayLit{typ: c.typ, elems: c.src}
	}

	s := specs[0]
	start, stride := int64(1), int64(1)
	if s.start != nil {
		start = evalConst(s.start, env)
	}
	if s.stride != nil {
		stride = evalConst(s.stride, env)
	}
	end := evalConst(s.end, env)
	n, ok := strideLength(start, end, stride)
	if !ok {
		fail(ErrLength, s.at, "start %d, end %d and stride %d don't give a positive length", start, end, stride)
	}
	if n > *budget {
		fail(ErrLength, s.at, "array has more than %d elements", maxArrayElements)
	}
	*budget -= n

	declared, elemType := g.arrayDim(want, at)
	if declared >= 0 && declared != n {
		fail(ErrLength, s.at, "array type %s declares length %d, range gives %d", want, declared, n)
	}

	var (
		elems    []string
		resolved string
	)
	for i := int64(0); i < n; i++ {
		child := newScope(env)
		if s.binder != "" {
			child.values[s.binder] = start + i*stride
		}
		lit := g.unroll(body, specs[1:], child, elemType, at, budget)
		if i == 0 {
			resolved = lit.typ
		} else if lit.typ != resolved {
			fail(ErrLength, s.at, "ragged array: element %d has type %s, element 0 has %s", i, lit.typ, resolved)
		}
		elems = append(elems, lit.elems)
	}
	return arrayLit{
		typ:   "[" + strconv.FormatInt(n, 10) + "]" + resolved,
		elems: "{" + strings.Join(elems, ", ") + "}",
	}
}

// lowerFold expands (fold COMBINER SEED (OPERAND...)) into the left fold
// COMBINER(...COMBINER(COMBINER(SEED, o1), o2)..., on). With no operands it
// is SEED. A plain name is called as a Go function, NAME! expands a macro
// inline and an operator combines infix.
func (g *generator) lowerFold(l *list, want string) goCode {
	args := l.args()
	if len(args) != 3 {
		fail(ErrShape, l, "fold takes COMBINER SEED (OPERAND...), got %s", l)
	}
	comb, seed := args[0], args[1]
	operands, ok := args[2].(*list)
	if !ok {
		fail(ErrShape, args[2], "fold operands must be a list, got %s", args[2])
	}
	switch c := comb.(type) {
	case symbol:
		if c.isMacroRef() {
			m, ok := g.macrosByName[c.macroName()]
			if !ok {
				fail(ErrUndefined, c, "unknown macro %s", c.name)
			}
			if len(m.params) != 2 {
				fail(ErrShape, c, "fold combiner %s must take two arguments, takes %d", c.name, len(m.params))
			}
		} else if isOperator(c.name) && binaryOps[c.name].tok.Precedence() == 0 {
			fail(ErrShape, c, "%s is not a binary operator", c.name)
		}
	case goExpr:
	case *list:
	default:
		fail(ErrShape, comb, "fold combiner must be a function, NAME! macro, operator or {Go}, got %s", comb)
	}

	acc := seed
	for _, o := range operands.items {
		acc = &list{pos: o.position(), items: []term{comb, acc, o}}
	}
	g.logger.Debug("expanding fold", "combiner", comb.String(), "operands", len(operands.items))
	return g.lowerExpr(acc, want)
}
