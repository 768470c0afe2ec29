package tablegen

import (
	"strconv"
	"strings"
)

type SExpressions []term

// term is a node produced by the reader. Every term remembers the offset of
// its first rune in the source text so diagnostics can point at it.
type term interface {
	position() int
	String() string
}

type symbol struct {
	name string
	pos  int
}

func (s symbol) position() int {
	return s.pos
}

func (s symbol) String() string {
	return s.name
}

// isMacroRef reports whether the symbol carries the macro marker (`name!`).
func (s symbol) isMacroRef() bool {
	return len(s.name) > 1 && strings.HasSuffix(s.name, "!")
}

func (s symbol) macroName() string {
	return strings.TrimSuffix(s.name, "!")
}

type str struct {
	value string
	pos   int
}

func (s str) position() int {
	return s.pos
}

func (s str) String() string {
	return strconv.Quote(s.value)
}

type number struct {
	value int64
	pos   int
}

func (n number) position() int {
	return n.pos
}

func (n number) String() string {
	return strconv.FormatInt(n.value, 10)
}

type float struct {
	value float64
	pos   int
}

func (f float) position() int {
	return f.pos
}

func (f float) String() string {
	s := strconv.FormatFloat(f.value, 'g', -1, 64)
	if !strings.ContainsAny(s, ".eE") {
		s += ".0"
	}
	return s
}

type boolean struct {
	value bool
	pos   int
}

func (b boolean) position() int {
	return b.pos
}

func (b boolean) String() string {
	return strconv.FormatBool(b.value)
}

// goExpr is raw Go source embedded with `{...}`.
type goExpr struct {
	src string
	pos int
}

func (g goExpr) position() int {
	return g.pos
}

func (g goExpr) String() string {
	return "{" + g.src + "}"
}

type list struct {
	items []term
	pos   int
}

func (l *list) position() int {
	return l.pos
}

func (l *list) String() string {
	var res []string
	for _, it := range l.items {
		res = append(res, it.String())
	}
	return "(" + strings.Join(res, " ") + ")"
}

// head returns the leading symbol of the list, if any.
func (l *list) head() (symbol, bool) {
	if len(l.items) == 0 {
		return symbol{}, false
	}
	s, ok := l.items[0].(symbol)
	return s, ok
}

func (l *list) args() []term {
	if len(l.items) == 0 {
		return nil
	}
	return l.items[1:]
}
