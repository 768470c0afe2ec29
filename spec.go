package tablegen

import (
	"go/token"
)

type iterKind int

const (
	iterRange iterKind = iota // inclusive numeric range with optional stride
	iterCount                 // n iterations, binder 0..n-1
	iterEach                  // values of a slice, array, map or string
	iterSeq                   // single-value range: iter.Seq, channel, integer
)

func (k iterKind) String() string {
	switch k {
	case iterRange:
		return keywordRange
	case iterCount:
		return keywordCount
	case iterEach:
		return keywordEach
	case iterSeq:
		return keywordSeq
	default:
		return "unknown"
	}
}

// iterable is the canonical form of everything that may follow a binder.
type iterable struct {
	kind   iterKind
	start  term // iterRange only, nil means 1
	end    term // iterRange bound, iterCount count
	stride term // iterRange only, nil means 1
	expr   term // iterEach, iterSeq
	at     term
}

// iterSpec is one dimension of a table. An empty binder means the element
// value is discarded.
type iterSpec struct {
	binder string
	iter   iterable
	at     term
}

func (s iterSpec) discarded() bool {
	return s.binder == ""
}

// constSpec is one dimension of a constant array.
type constSpec struct {
	binder string
	start  term
	end    term
	stride term
	at     term
}

func isIterKeyword(name string) bool {
	switch name {
	case keywordRange, keywordCount, keywordEach, keywordSeq:
		return true
	}
	return false
}

// parseSpec recognises the four surface shapes of an iteration spec and
// returns the canonical binder/iterable pair:
//
//	(x ITER)  named binder
//	(_ ITER)  discarded binder
//	(ITER)    bracketed bare iterable
//	ITER      bare iterable
func parseSpec(t term) iterSpec {
	l, ok := t.(*list)
	if !ok {
		return iterSpec{iter: parseIterable(t), at: t}
	}
	h, hasHead := l.head()
	switch {
	case hasHead && isIterKeyword(h.name):
		return iterSpec{iter: parseIterable(l), at: t}
	case len(l.items) == 1:
		return iterSpec{iter: parseIterable(l.items[0]), at: t}
	case len(l.items) == 2 && hasHead:
		binder := h.name
		if binder == keywordDiscard {
			binder = ""
		} else {
			checkBinder(h)
		}
		return iterSpec{binder: binder, iter: parseIterable(l.items[1]), at: t}
	default:
		fail(ErrShape, t, "iteration spec must be (binder iterable), (_ iterable), (iterable) or iterable, got %s", t)
		return iterSpec{}
	}
}

func parseIterable(t term) iterable {
	switch v := t.(type) {
	case number:
		return iterable{kind: iterCount, end: v, at: t}
	case symbol:
		if isIterKeyword(v.name) || v.name == keywordDiscard {
			fail(ErrShape, t, "%s is not an iterable", v.name)
		}
		return iterable{kind: iterEach, expr: v, at: t}
	case goExpr:
		return iterable{kind: iterEach, expr: v, at: t}
	case *list:
		h, ok := v.head()
		if !ok {
			break
		}
		args := v.args()
		switch h.name {
		case keywordRange:
			switch len(args) {
			case 1:
				return iterable{kind: iterRange, end: args[0], at: t}
			case 2:
				return iterable{kind: iterRange, start: args[0], end: args[1], at: t}
			case 3:
				return iterable{kind: iterRange, start: args[0], end: args[1], stride: args[2], at: t}
			}
			fail(ErrShape, t, "range takes END, START END or START END STRIDE, got %d arguments", len(args))
		case keywordCount:
			if len(args) != 1 {
				fail(ErrShape, t, "count takes exactly one argument, got %d", len(args))
			}
			return iterable{kind: iterCount, end: args[0], at: t}
		case keywordEach, keywordSeq:
			if len(args) != 1 {
				fail(ErrShape, t, "%s takes exactly one argument, got %d", h.name, len(args))
			}
			kind := iterEach
			if h.name == keywordSeq {
				kind = iterSeq
			}
			return iterable{kind: kind, expr: args[0], at: t}
		}
	}
	fail(ErrShape, t, "expected an iterable: (range ...), (count n), (each e), (seq e), a number, a name or {go}, got %s", t)
	return iterable{}
}

// parseConstSpec reads (x END), (x START END) or (x START END STRIDE).
// Omitted START and STRIDE default to 1.
func parseConstSpec(t term) constSpec {
	l, ok := t.(*list)
	if !ok {
		fail(ErrShape, t, "array spec must be (binder end), (binder start end) or (binder start end stride), got %s", t)
	}
	h, ok := l.head()
	if !ok || len(l.items) < 2 || len(l.items) > 4 {
		fail(ErrShape, t, "array spec must be (binder end), (binder start end) or (binder start end stride), got %s", t)
	}
	spec := constSpec{at: t}
	if h.name != keywordDiscard {
		checkBinder(h)
		spec.binder = h.name
	}
	args := l.args()
	switch len(args) {
	case 1:
		spec.end = args[0]
	case 2:
		spec.start, spec.end = args[0], args[1]
	case 3:
		spec.start, spec.end, spec.stride = args[0], args[1], args[2]
	}
	return spec
}

func checkBinder(s symbol) {
	if isIterKeyword(s.name) {
		fail(ErrShape, s, "%s is an iterable keyword and can't be a binder", s.name)
	}
	if !token.IsIdentifier(s.name) {
		fail(ErrShape, s, "binder %q is not a Go identifier", s.name)
	}
}
