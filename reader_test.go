package tablegen

import (
	"testing"

	"github.com/joomcode/errorx"
	"github.com/stretchr/testify/require"
)

func TestRead(t *testing.T) {
	for _, tc := range []struct {
		name   string
		code   string
		result string
	}{
		{
			name:   "list",
			code:   "(table x (x (range 1 3)))",
			result: "(table x (x (range 1 3)))",
		},
		{
			name:   "trailingSeparator",
			code:   "(table 1 3,)",
			result: "(table 1 3)",
		},
		{
			name:   "separators",
			code:   "(table x, (x 2), 3,)",
			result: "(table x (x 2) 3)",
		},
		{
			name:   "goChunk",
			code:   `(table {fmt.Sprintf("{%d}", x)} (x 2))`,
			result: `(table {fmt.Sprintf("{%d}", x)} (x 2))`,
		},
		{
			name:   "nestedBraces",
			code:   "{[]int{1, 2}}",
			result: "{[]int{1, 2}}",
		},
		{
			name:   "runeAndRawLiterals",
			code:   "{f('}', `}`)}",
			result: "{f('}', `}`)}",
		},
		{
			name:   "comment",
			code:   "; header\n(fold add! 1 (2)) ; trailing",
			result: "(fold add! 1 (2))",
		},
		{
			name:   "numbers",
			code:   "(- -3 +4 0x10 1.5)",
			result: "(- -3 4 16 1.5)",
		},
		{
			name:   "strings",
			code:   `(f "a\"b" true)`,
			result: `(f "a\"b" true)`,
		},
		{
			name:   "empty",
			code:   "()",
			result: "()",
		},
	} {
		t.Run(tc.name, func(t *testing.T) {
			res, err := Read(tc.code)
			require.NoError(t, err)
			require.Len(t, res, 1)
			require.Equal(t, tc.result, res[0].String())
		})
	}
}

func TestReadPositions(t *testing.T) {
	res, err := Read("(table\n  x (x 2))")
	require.NoError(t, err)
	l := res[0].(*list)
	require.Equal(t, 0, l.position())
	require.Equal(t, 9, l.items[1].position())
	require.Equal(t, 11, l.items[2].position())
}

func TestReadErrors(t *testing.T) {
	for _, tc := range []struct {
		name string
		code string
		msg  string
	}{
		{name: "doubleSeparator", code: "(a,,)", msg: "separator must follow a list element"},
		{name: "leadingSeparator", code: "(, a)", msg: "separator must follow a list element"},
		{name: "topLevelSeparator", code: "(a),", msg: "separator outside of a list"},
		{name: "redundantBracket", code: "(a))", msg: "redundant bracket"},
		{name: "missingBracket", code: "((a)", msg: "can't find right bracket"},
		{name: "unterminatedString", code: `(f "abc)`, msg: "unterminated string literal"},
		{name: "unterminatedChunk", code: "(f {x + 1)", msg: "can't find closing '}'"},
		{name: "strayBrace", code: "(f })", msg: "unexpected '}'"},
		{name: "emptyChunk", code: "(f { })", msg: "empty Go expression"},
		{name: "badCharacter", code: "(f #x)", msg: "unexpected character"},
	} {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Read(tc.code)
			require.Error(t, err)
			require.True(t, errorx.IsOfType(err, ErrSyntax), err.Error())
			require.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestReadErrorCaret(t *testing.T) {
	_, err := Read("(table 1\n  (x 2),,)")
	require.Error(t, err)
	require.Contains(t, err.Error(), "2:9: ")
	require.Contains(t, err.Error(), "  (x 2),^,)")
}
