package tablegen

import (
	"go/constant"
	"go/token"
	"go/types"
	"math"

	"golang.org/x/exp/constraints"
)

// maxArrayElements bounds the total size of an unrolled constant array.
const maxArrayElements = 1 << 16

// scope maps names to generation-time integer values. Nested scopes shadow
// their parents. Go variables (function parameters and table binders) are
// recorded in vars with their type, "" when it isn't known; they hide
// constants of the same name.
type scope struct {
	parentScope *scope
	values      map[string]int64
	vars        map[string]string
}

func newScope(parent *scope) *scope {
	return &scope{parentScope: parent, values: map[string]int64{}, vars: map[string]string{}}
}

func (s *scope) lookup(name string) (int64, bool) {
	for cur := s; cur != nil; cur = cur.parentScope {
		if v, ok := cur.values[name]; ok {
			return v, true
		}
		if _, ok := cur.vars[name]; ok {
			return 0, false
		}
	}
	return 0, false
}

// typeOf returns the Go type of the variable name.
func (s *scope) typeOf(name string) (string, bool) {
	for cur := s; cur != nil; cur = cur.parentScope {
		if _, ok := cur.values[name]; ok {
			return "", false
		}
		if typ, ok := cur.vars[name]; ok {
			return typ, true
		}
	}
	return "", false
}

// tryConst evaluates t as an integer constant. It reports false for any term
// that isn't built from integers, known names and + - * / %.
func tryConst(t term, env *scope) (res int64, ok bool) {
	defer func() {
		if rec := recover(); rec != nil {
			res, ok = 0, false
		}
	}()
	return evalConst(t, env), true
}

// evalConst evaluates t as an integer constant or fails with a diagnostic.
func evalConst(t term, env *scope) int64 {
	switch v := t.(type) {
	case number:
		return v.value
	case symbol:
		if val, ok := env.lookup(v.name); ok {
			return val
		}
		fail(ErrUndefined, t, "%s is not a constant", v.name)
	case *list:
		h, ok := v.head()
		if !ok {
			break
		}
		args := v.args()
		if len(args) == 0 {
			break
		}
		vals := make([]int64, len(args))
		for i, a := range args {
			vals[i] = evalConst(a, env)
		}
		switch h.name {
		case "+", "-", "*", "/", "%":
			if h.name == "-" && len(vals) == 1 {
				return checked(t, 0, vals[0], "-")
			}
			acc := vals[0]
			for _, x := range vals[1:] {
				acc = checked(t, acc, x, h.name)
			}
			return acc
		}
	}
	fail(ErrShape, t, "%s is not a constant integer expression", t)
	return 0
}

func checked(at term, a, b int64, op string) int64 {
	var (
		res int64
		ok  bool
	)
	switch op {
	case "+":
		res, ok = addInt(a, b)
	case "-":
		res, ok = subInt(a, b)
	case "*":
		res, ok = mulInt(a, b)
	case "/", "%":
		if b == 0 {
			fail(ErrShape, at, "division by zero in %s", at)
		}
		if a == math.MinInt64 && b == -1 {
			break
		}
		if op == "/" {
			res, ok = a/b, true
		} else {
			res, ok = a%b, true
		}
	}
	if !ok {
		fail(ErrShape, at, "integer overflow in %s", at)
	}
	return res
}

func addInt[T constraints.Signed](a, b T) (T, bool) {
	c := a + b
	return c, (c > a) == (b > 0)
}

func subInt[T constraints.Signed](a, b T) (T, bool) {
	c := a - b
	return c, (c < a) == (b > 0)
}

func mulInt[T constraints.Signed](a, b T) (T, bool) {
	if a == 0 || b == 0 {
		return 0, true
	}
	c := a * b
	return c, c/b == a && !(b == -1 && a == minOf[T]())
}

func minOf[T constraints.Signed]() T {
	var x T
	x = ^x // -1
	for x*2 < 0 {
		x *= 2
	}
	return x
}

// strideLength returns the number of elements start, start+stride, ... that
// satisfy the continuation test chosen by the sign of stride: ascending
// (x <= end) for a positive stride, descending (x >= end) for a negative one.
// A zero stride or a stride pointing away from end yields no sensible length.
func strideLength[T constraints.Signed](start, end, stride T) (T, bool) {
	switch {
	case stride == 0:
		return 0, false
	case stride > 0 && start > end:
		return 0, false
	case stride < 0 && start < end:
		return 0, false
	}
	diff, ok := subInt(end, start)
	if !ok {
		return 0, false
	}
	n := diff/stride + 1
	return n, n > 0
}

// foldGoConst evaluates a Go expression that uses only constants and
// returns its integer value. Expressions naming anything outside the
// universe scope are not folded.
func foldGoConst(src string) (string, bool) {
	tv, err := types.Eval(token.NewFileSet(), nil, token.NoPos, src)
	if err != nil || tv.Value == nil || tv.Value.Kind() != constant.Int {
		return "", false
	}
	return tv.Value.ExactString(), true
}
