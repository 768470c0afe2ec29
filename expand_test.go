package tablegen

import (
	"go/ast"
	"go/constant"
	"go/parser"
	"go/token"
	"go/types"
	"strings"
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTableScenarios(t *testing.T) {
	t.Run("NestedBinders", func(t *testing.T) {
		out := expand(t, "(table (* x y) (x (range 1 2)) (y (range 1 x)))", "[][]int")
		require.Equal(t, []string{"x", "y"}, loops(t, out))
		require.Equal(t, "x * y", innermostAppend(t, out))
		require.Contains(t, out, "for y, __hi4 := 1, x; y <= __hi4; y++ {")
	})

	t.Run("IgnoredInnerIndex", func(t *testing.T) {
		out := expand(t, "(table {fmt.Sprint(x)} (x (count 2)) 3)", "[][]string")
		require.Equal(t, []string{"x", "_"}, loops(t, out))
		require.Equal(t, "fmt.Sprint(x)", innermostAppend(t, out))
		require.Contains(t, out, "for x := range 2 {")
		require.Contains(t, out, "for range 3 {")
	})

	t.Run("ThreeDimensions", func(t *testing.T) {
		out := expand(t, "(table (* x y), (x (range 1 9)), (y (range 1 x)), 5,)", "[][][]int")
		require.Equal(t, []string{"x", "y", "_"}, loops(t, out))
		require.Equal(t, "x * y", innermostAppend(t, out))
	})
}

func TestTableBaseCase(t *testing.T) {
	for _, code := range []string{"(table (f))", "(table (f),)"} {
		out := expand(t, code, "")
		require.Equal(t, "f()", out, code)
	}
}

func TestTableGrouping(t *testing.T) {
	for _, group := range [][]string{
		{
			"(table (f) 3)",
			"(table (f) 3,)",
			"(table (f) (3))",
			"(table (f) (_ 3))",
			"(table (f) (count 3))",
			"(table (f) (_ (count 3)))",
			"(table (f) ((count 3)))",
		},
		{
			"(table (f) xs)",
			"(table (f) (xs))",
			"(table (f) (_ xs))",
			"(table (f) (each xs))",
			"(table (f) {xs})",
		},
		{
			"(table (f) (range 3))",
			"(table (f) ((range 3)))",
			"(table (f) (_ (range 3)))",
		},
	} {
		first := expand(t, group[0], "[]int")
		require.Equal(t, "f()", innermostAppend(t, first))
		for _, code := range group[1:] {
			require.Equal(t, first, expand(t, code, "[]int"), code)
		}
	}
}

func TestTableLoops(t *testing.T) {
	for _, tc := range []struct {
		name   string
		code   string
		header string
	}{
		{
			name:   "range",
			code:   "(table x (x (range 2 5)))",
			header: "for x, __hi2 := 2, 5; x <= __hi2; x++ {",
		},
		{
			name:   "rangeFromOne",
			code:   "(table x (x (range 5)))",
			header: "for x, __hi2 := 1, 5; x <= __hi2; x++ {",
		},
		{
			name:   "rangeDescending",
			code:   "(table x (x (range 10 0 -2)))",
			header: "for x, __hi2 := 10, 0; x >= __hi2; x -= 2 {",
		},
		{
			name:   "rangeStride",
			code:   "(table x (x (range 0 10 3)))",
			header: "for x, __hi2 := 0, 10; x <= __hi2; x += 3 {",
		},
		{
			name:   "rangeConstStride",
			code:   "(defconst S 2) (table x (x (range 0 10 S)))",
			header: "for x, __hi2 := 0, 10; x <= __hi2; x += 2 {",
		},
		{
			name:   "rangeConstBound",
			code:   "(defconst N 4) (table x (x (range N)))",
			header: "for x, __hi2 := 1, 4; x <= __hi2; x++ {",
		},
		{
			name:   "rangeDynamicStride",
			code:   "(table x (x (range 0 n s)))",
			header: "for x := __hi2 - __hi2; (",
		},
		{
			name:   "discardedRange",
			code:   "(table 0 (_ (range a b)))",
			header: "for __i2, __hi3 := a, b; __i2 <= __hi3; __i2++ {",
		},
		{
			name:   "count",
			code:   "(table x (x (count n)))",
			header: "for x := range n {",
		},
		{
			name:   "seq",
			code:   "(table x (x (seq values)))",
			header: "for x := range values {",
		},
		{
			name:   "each",
			code:   "(table x (x xs))",
			header: "for _, x := range xs {",
		},
		{
			name:   "eachGo",
			code:   "(table x (x {m[k]}))",
			header: "for _, x := range m[k] {",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			out := expand(t, tc.code, "[]int")
			require.Contains(t, out, tc.header)
			require.Contains(t, out, "__tbl1 := make([]int, 0)")
		})
	}
}

// Generated names never capture a source name that looks like one.
func TestTableTempNames(t *testing.T) {
	out := expand(t, "(table i2 (_ (range 3)))", "[]int")
	require.Equal(t, []string{"__i2"}, loops(t, out))
	require.Equal(t, "i2", innermostAppend(t, out))

	_, err := ExpandExpr("(table __i2 (_ (range 3)))", "[]int")
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, ErrSyntax), err.Error())
}

// A binder hides a defconst of the same name inside its table.
func TestTableShadowedConst(t *testing.T) {
	out := expand(t, "(defconst K 2) (table x (K (range 3)) (x (range 0 10 K)))", "[][]int")
	require.Contains(t, out, "for x, __hi4, __step5 := 0, 10, K;")
	require.NotContains(t, out, "x += 2")

	out = expand(t, "(defconst K 2) (table K (K (range 3)))", "[]int")
	require.Equal(t, "K", innermostAppend(t, out))

	out = expand(t, "(defconst K 2) (f K (as {[]int} (table K (K (range 3)))))", "")
	require.True(t, strings.HasPrefix(out, "f(2, func() []int {"), out)

	_, err := ExpandExpr("(defconst K 2) (table (array 0 (_ K)) (K (range 3)))", "[][1]int")
	require.Error(t, err)
	require.True(t, errorx.IsOfType(err, ErrUndefined), err.Error())
}

func TestTableNesting(t *testing.T) {
	out := expand(t, "(table (table (* x y) (y 3)) (x 2))", "[][]int")
	require.Equal(t, []string{"x"}, loops(t, out))
	require.Contains(t, out, "func() []int {")

	out = expand(t, "(f (as {[]int} (table x (x 2))))", "")
	require.Contains(t, out, "f(func() []int {")
}

func TestTableErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		typ  string
		kind *errorx.Type
		msg  string
	}{
		{name: "noType", code: "(table x (x 3))", kind: ErrType, msg: "needs a result type"},
		{name: "notSlice", code: "(table x (x 3))", typ: "int", kind: ErrType, msg: "needs a slice type"},
		{name: "arrayType", code: "(table x (x 3))", typ: "[3]int", kind: ErrType, msg: "needs a slice type"},
		{name: "tooShallow", code: "(table x (x 3) (y 3))", typ: "[]int", kind: ErrType, msg: "needs a slice type"},
		{name: "noBody", code: "(table)", typ: "[]int", kind: ErrShape, msg: "needs a body"},
		{name: "threeItemSpec", code: "(table x (x 1 2))", typ: "[]int", kind: ErrShape, msg: "iteration spec must be"},
		{name: "rangeArity", code: "(table x (range 1 2 3 4))", typ: "[]int", kind: ErrShape, msg: "range takes"},
		{name: "eachArity", code: "(table x (x (each)))", typ: "[]int", kind: ErrShape, msg: "each takes exactly one"},
		{name: "stringIterable", code: `(table x "s")`, typ: "[]int", kind: ErrShape, msg: "expected an iterable"},
		{name: "discardIterable", code: "(table x (_ _))", typ: "[]int", kind: ErrShape, msg: "_ is not an iterable"},
		{name: "badBinder", code: "(table x (x.y 3))", typ: "[]int", kind: ErrShape, msg: "not a Go identifier"},
		{name: "keywordBinder", code: "(table x (range (range 3)))", typ: "[]int", kind: ErrShape, msg: "not allowed here"},
		{name: "zeroStride", code: "(table x (x (range 0 10 0)))", typ: "[]int", kind: ErrShape, msg: "stride must not be zero"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpandExpr(tc.code, tc.typ)
			require.Error(t, err)
			require.True(t, errorx.IsOfType(err, tc.kind), err.Error())
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestArray(t *testing.T) {
	for _, tc := range []struct {
		name   string
		code   string
		typ    string
		result string
	}{
		{name: "stride", code: "(array x (x 2 4 1))", typ: "[...]int", result: "[3]int{2, 3, 4}"},
		{name: "endOnly", code: "(array x (x 3))", typ: "[...]int", result: "[3]int{1, 2, 3}"},
		{name: "startEnd", code: "(array x (x 2 3))", typ: "[...]int", result: "[2]int{2, 3}"},
		{name: "descending", code: "(array x (x 4 2 -1))", typ: "[...]int", result: "[3]int{4, 3, 2}"},
		{name: "unevenStride", code: "(array x (x 1 10 4))", typ: "[...]int", result: "[3]int{1, 5, 9}"},
		{name: "declaredLength", code: "(array x (x 3))", typ: "[3]int", result: "[3]int{1, 2, 3}"},
		{name: "constLength", code: "(defconst N 3) (array x (x N))", typ: "[N]int", result: "[3]int{1, 2, 3}"},
		{name: "grid", code: "(array (* x y) (x 2) (y 3))", typ: "[...][...]int", result: "[2][3]int{{1, 2, 3}, {2, 4, 6}}"},
		{name: "constBound", code: "(defconst N 3) (array (* x 10) (x N))", typ: "[...]int", result: "[3]int{10, 20, 30}"},
		{name: "boundExpr", code: "(array x (x (+ 1 1) (* 2 3) 2))", typ: "[...]int", result: "[3]int{2, 4, 6}"},
		{name: "call", code: "(array (f x) (x 2))", typ: "[...]int", result: "[2]int{f(1), f(2)}"},
		{name: "goBody", code: "(array {x * x} (x 3))", typ: "[...]int", result: "[3]int{1, 4, 9}"},
		{name: "discarded", code: "(array 7 (_ 2))", typ: "[...]int", result: "[2]int{7, 7}"},
		{name: "negative", code: "(array (- x) (x 2))", typ: "[...]int", result: "[2]int{-1, -2}"},
		{name: "innerUsesOuter", code: "(array y (x 2) (y x (+ x 1)))", typ: "[...][...]int", result: "[2][2]int{{1, 2}, {2, 3}}"},
		{name: "noSpecs", code: "(array 5)", typ: "int", result: "5"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.result, expand(t, tc.code, tc.typ))
		})
	}
}

func TestArrayErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		typ  string
		kind *errorx.Type
	}{
		{name: "ascendingStrideDescendingRange", code: "(array x (x 4 2 1))", typ: "[...]int", kind: ErrLength},
		{name: "descendingStrideAscendingRange", code: "(array x (x 2 4 -1))", typ: "[...]int", kind: ErrLength},
		{name: "zeroStride", code: "(array x (x 1 3 0))", typ: "[...]int", kind: ErrLength},
		{name: "empty", code: "(array x (x 0))", typ: "[...]int", kind: ErrLength},
		{name: "declaredMismatch", code: "(array x (x 3))", typ: "[4]int", kind: ErrLength},
		{name: "ragged", code: "(array y (x 2) (y x))", typ: "[...][...]int", kind: ErrLength},
		{name: "tooLarge", code: "(array 0 (x 100000))", typ: "[...]int", kind: ErrLength},
		{name: "notConstant", code: "(array x (x n))", typ: "[...]int", kind: ErrUndefined},
		{name: "sliceType", code: "(array x (x 3))", typ: "[]int", kind: ErrType},
		{name: "noType", code: "(array x (x 3))", typ: "", kind: ErrType},
		{name: "bareSpec", code: "(array x x)", typ: "[...]int", kind: ErrShape},
		{name: "shadowingTable", code: "(array (table y (y 2)) (y 2))", typ: "[...][]int", kind: ErrShape},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpandExpr(tc.code, tc.typ)
			require.Error(t, err)
			require.True(t, errorx.IsOfType(err, tc.kind), err.Error())
		})
	}
}

func TestFold(t *testing.T) {
	for _, tc := range []struct {
		name   string
		code   string
		result string
	}{
		{name: "function", code: "(fold add 1 (2))", result: "add(1, 2)"},
		{name: "functionChain", code: "(fold f 1 (2 3))", result: "f(f(1, 2), 3)"},
		{name: "noOperands", code: "(fold f 1 ())", result: "1"},
		{name: "trailingSeparator", code: "(fold f 1 (2, 3,))", result: "f(f(1, 2), 3)"},
		{name: "macro", code: "(defmacro add (a b) (+ a b 1)) (fold add! 1 (2))", result: "1 + 2 + 1"},
		{name: "operator", code: "(fold - 10 (1 2 3))", result: "10 - 1 - 2 - 3"},
		{name: "stdMacro", code: "(fold sub! 10 (1 2 3))", result: "10 - 1 - 2 - 3"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.result, expand(t, tc.code, ""))
		})
	}
}

func TestFoldValues(t *testing.T) {
	assert.EqualValues(t, 4, evalInt(t, expand(t, "(defmacro add (a b) (+ a b 1)) (fold add! 1 (2))", "")))
	assert.EqualValues(t, 6, evalInt(t, expand(t, "(fold add! 1 (2 3))", "")))
	assert.EqualValues(t, 10, evalInt(t, expand(t, "(fold / 100 (2 5))", "")))
	assert.EqualValues(t, 24, evalInt(t, expand(t, "(fold mul! 1 (2 3 4))", "")))

	// Only a left fold gives ((10-1)-2)-3 for a non-commutative combiner.
	sub := evalInt(t, expand(t, "(fold sub! 10 (1 2 3))", ""))
	assert.EqualValues(t, ((10-1)-2)-3, sub)
	assert.NotEqualValues(t, 10-(1-(2-3)), sub)
}

func TestFoldGoCombiner(t *testing.T) {
	out := expand(t, "(fold {func(a, b int) int { return a - b }} 10 (1 2))", "")
	_, err := parser.ParseExpr(out)
	require.NoError(t, err)
	require.Contains(t, out, "(10, 1), 2)")
}

func TestFoldErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		kind *errorx.Type
	}{
		{name: "unaryMacro", code: "(fold sq! 0 (1))", kind: ErrShape},
		{name: "unknownMacro", code: "(fold nope! 1 (2))", kind: ErrUndefined},
		{name: "operandsNotList", code: "(fold f 1 2)", kind: ErrShape},
		{name: "missingOperands", code: "(fold f 1)", kind: ErrShape},
		{name: "unaryOperator", code: "(fold not true (false))", kind: ErrShape},
		{name: "numberCombiner", code: "(fold 1 1 (2))", kind: ErrShape},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpandExpr(tc.code, "")
			require.Error(t, err)
			require.True(t, errorx.IsOfType(err, tc.kind), err.Error())
		})
	}
}

func TestMacros(t *testing.T) {
	assert.EqualValues(t, 42, evalInt(t, expand(t, "(inc! 41)", "")))
	assert.EqualValues(t, 9, evalInt(t, expand(t, "(sq! (+ 1 2))", "")))
	assert.EqualValues(t, 3, evalInt(t, expand(t, "(max! 3 (+ 1 1))", "")))
	assert.EqualValues(t, 12, evalInt(t, expand(t, "(defmacro twice (x) {x + x}) (twice! (* 2 3))", "")))
	assert.EqualValues(t, 3, evalInt(t, expand(t, "(defmacro inc (a) (+ a 2)) (inc! 1)", "")))

	// Arguments are inserted unevaluated.
	assert.Equal(t, "f() * f()", expand(t, "(sq! (f))", ""))
	// Field selectors and function literal parameters keep their names.
	assert.Equal(t, "p.x", expand(t, "(defmacro field (x) {x.x}) (field! p)", ""))
	assert.Equal(t, "func(x int) int { return x }(5)", expand(t, "(defmacro k (x) {func(x int) int { return x }(x)}) (k! 5)", ""))
}

func TestMacroErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		kind *errorx.Type
		msg  string
	}{
		{name: "arity", code: "(inc! 1 2)", kind: ErrShape, msg: "takes 1 arguments, got 2"},
		{name: "unknown", code: "(nope! 1)", kind: ErrUndefined, msg: "unknown macro nope!"},
		{name: "recursive", code: "(defmacro loop (a) (loop! a)) (loop! 1)", kind: ErrShape, msg: "expands too deeply"},
		{name: "asValue", code: "(f inc!)", kind: ErrShape, msg: "can only be called"},
		{name: "duplicateParam", code: "(defmacro m (a a) a) (m! 1 2)", kind: ErrShape, msg: "duplicate macro parameter"},
		{name: "badParams", code: "(defmacro m a a) (m! 1)", kind: ErrShape, msg: "parameters must be a list"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpandExpr(tc.code, "")
			require.Error(t, err)
			require.True(t, errorx.IsOfType(err, tc.kind), err.Error())
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestExpressions(t *testing.T) {
	for _, tc := range []struct {
		code  string
		value int64
	}{
		{code: "(+ 1 (* 2 3))", value: 7},
		{code: "(* (+ 1 2) 3)", value: 9},
		{code: "(- 10 (- 4 3))", value: 9},
		{code: "(- 10 4 3)", value: 3},
		{code: "(- 5)", value: -5},
		{code: "(- (- 5))", value: 5},
		{code: "(% 7 (<< 1 2))", value: 3},
		{code: "(defconst N (* 2 3)) (+ N 1)", value: 7},
		{code: "(+ {2 * 3} 1)", value: 7},
		{code: "(* {2 + 3} 2)", value: 10},
	} {
		t.Run(tc.code, func(t *testing.T) {
			require.Equal(t, tc.value, evalInt(t, expand(t, tc.code, "")))
		})
	}

	assert.Equal(t, "true && !false", expand(t, "(and true (not false))", ""))
	assert.Equal(t, "xs[2]", expand(t, "(index xs 2)", ""))
	assert.Equal(t, `f("a", 1.5, true)`, expand(t, `(f "a" 1.5 true)`, ""))
	assert.Equal(t, "fmt.Sprint(x)", expand(t, "(fmt.Sprint x)", ""))
	assert.Equal(t, "2.0", expand(t, "2.0", ""))
}

func TestExpressionErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		kind *errorx.Type
	}{
		{name: "unaryMul", code: "(* 1)", kind: ErrShape},
		{name: "ternaryLess", code: "(< 1 2 3)", kind: ErrShape},
		{name: "binaryNot", code: "(not 1 2)", kind: ErrShape},
		{name: "emptyForm", code: "()", kind: ErrShape},
		{name: "numberCall", code: "(1 2)", kind: ErrShape},
		{name: "badGo", code: "{1 +}", kind: ErrSyntax},
		{name: "operatorValue", code: "(f +)", kind: ErrShape},
		{name: "iterableAsValue", code: "(range 3)", kind: ErrShape},
		{name: "badIdentifier", code: "(f x.1)", kind: ErrShape},
		{name: "duplicateConst", code: "(defconst N 1) (defconst N 2) N", kind: ErrShape},
		{name: "divisionByZero", code: "(defconst N (/ 1 0)) N", kind: ErrShape},
		{name: "overflow", code: "(defconst N (* 9223372036854775807 2)) N", kind: ErrShape},
		{name: "undefinedConst", code: "(defconst N (+ M 1)) N", kind: ErrUndefined},
		{name: "tableBeforeExpr", code: "(table 1 2) 3", kind: ErrShape},
		{name: "nothing", code: "; only a comment", kind: ErrShape},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := ExpandExpr(tc.code, "")
			require.Error(t, err)
			require.True(t, errorx.IsOfType(err, tc.kind), err.Error())
		})
	}
}

func expand(t *testing.T, code, typ string) string {
	t.Helper()
	out, err := ExpandExpr(code, typ)
	require.NoError(t, err, code)
	return out
}

// evalInt evaluates a constant Go expression.
func evalInt(t *testing.T, src string) int64 {
	t.Helper()
	tv, err := types.Eval(token.NewFileSet(), nil, token.NoPos, src)
	require.NoError(t, err, src)
	require.NotNil(t, tv.Value, src)
	v, ok := constant.Int64Val(tv.Value)
	require.True(t, ok, src)
	return v
}

// loops returns the variables of the nested loops inside a generated
// function literal, outermost first. "_" is a range clause without
// variables.
func loops(t *testing.T, src string) []string {
	t.Helper()
	var res []string
	for body := tableBody(t, src); body != nil; {
		var next *ast.BlockStmt
		for _, st := range body.List {
			switch s := st.(type) {
			case *ast.ForStmt:
				res = append(res, s.Init.(*ast.AssignStmt).Lhs[0].(*ast.Ident).Name)
				next = s.Body
			case *ast.RangeStmt:
				switch {
				case s.Value != nil:
					res = append(res, s.Value.(*ast.Ident).Name)
				case s.Key != nil:
					res = append(res, s.Key.(*ast.Ident).Name)
				default:
					res = append(res, "_")
				}
				next = s.Body
			}
		}
		body = next
	}
	return res
}

// innermostAppend returns the value appended in the innermost loop and
// checks it is the only statement there.
func innermostAppend(t *testing.T, src string) string {
	t.Helper()
	var inner *ast.BlockStmt
	for body := tableBody(t, src); body != nil; {
		inner = body
		var next *ast.BlockStmt
		for _, st := range body.List {
			switch s := st.(type) {
			case *ast.ForStmt:
				next = s.Body
			case *ast.RangeStmt:
				next = s.Body
			}
		}
		body = next
	}
	require.Len(t, inner.List, 1, src)
	call := inner.List[0].(*ast.AssignStmt).Rhs[0].(*ast.CallExpr)
	require.Equal(t, "append", call.Fun.(*ast.Ident).Name)
	return types.ExprString(call.Args[1])
}

func tableBody(t *testing.T, src string) *ast.BlockStmt {
	t.Helper()
	e, err := parser.ParseExpr(src)
	require.NoError(t, err, src)
	call, ok := e.(*ast.CallExpr)
	require.True(t, ok, src)
	lit, ok := call.Fun.(*ast.FuncLit)
	require.True(t, ok, src)
	return lit.Body
}
