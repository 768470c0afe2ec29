package tablegen

import (
	"go/scanner"
	"go/token"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	keywordPackage  = "package"
	keywordImport   = "import"
	keywordDefconst = "defconst"
	keywordDefmacro = "defmacro"
	keywordDefvar   = "defvar"
	keywordDefun    = "defun"
	keywordTable    = "table"
	keywordArray    = "array"
	keywordFold     = "fold"
	keywordAs       = "as"
	keywordIndex    = "index"
	keywordRange    = "range"
	keywordCount    = "count"
	keywordEach     = "each"
	keywordSeq      = "seq"
	keywordDiscard  = "_"
)

// Read parses source text into top-level terms.
func Read(sourceCode string) (_ SExpressions, err error) {
	defer recoverDiagnostic(&err, sourceCode, "")
	return read(sourceCode), nil
}

func read(sourceCode string) SExpressions {
	tokens := tokenize(sourceCode)
	validateBrackets(tokens)
	reader := tokenReader{tokens: tokens}
	var res SExpressions
	for reader.hasNext() {
		if reader.peek().kind == tokSeparator {
			fail(ErrSyntax, reader.peek(), "separator outside of a list")
		}
		res = append(res, reader.read())
	}
	return res
}

type tokenKind int

const (
	tokOpen tokenKind = iota
	tokClose
	tokSeparator
	tokString
	tokGo
	tokAtom
)

type lexeme struct {
	kind  tokenKind
	value string
	pos   int
}

func (t lexeme) position() int {
	return t.pos
}

func (t lexeme) String() string {
	return t.value
}

func tokenize(text string) []lexeme {
	var res []lexeme
	for i := 0; i < len(text); {
		r, size := utf8.DecodeRuneInString(text[i:])
		switch {
		case unicode.IsSpace(r):
			i += size
		case r == ';':
			for i < len(text) && text[i] != '\n' {
				i++
			}
		case r == '(':
			res = append(res, lexeme{tokOpen, "(", i})
			i++
		case r == ')':
			res = append(res, lexeme{tokClose, ")", i})
			i++
		case r == ',':
			res = append(res, lexeme{tokSeparator, ",", i})
			i++
		case r == '"':
			j := skipQuoted(text, i, '"')
			res = append(res, lexeme{tokString, text[i:j], i})
			i = j
		case r == '{':
			j := skipGoChunk(text, i)
			res = append(res, lexeme{tokGo, text[i+1 : j-1], i})
			i = j
		case r == '}':
			fail(ErrSyntax, lexeme{pos: i}, "unexpected '}'")
		case isAtomRune(r):
			j := i
			for j < len(text) {
				rn, sz := utf8.DecodeRuneInString(text[j:])
				if !isAtomRune(rn) {
					break
				}
				j += sz
			}
			res = append(res, lexeme{tokAtom, text[i:j], i})
			i = j
		default:
			fail(ErrSyntax, lexeme{pos: i}, "unexpected character %q", r)
		}
	}
	return res
}

func isAtomRune(rn rune) bool {
	return unicode.IsDigit(rn) || unicode.IsLetter(rn) || strings.ContainsRune("_.+-*/%<>=!&|^", rn)
}

// skipQuoted returns the offset just past the literal that starts at i.
func skipQuoted(text string, i int, quote byte) int {
	j := i + 1
	for j < len(text) {
		switch text[j] {
		case '\\':
			if quote != '`' {
				j++
			}
		case '\n':
			if quote != '`' {
				fail(ErrSyntax, lexeme{pos: i}, "newline in string literal")
			}
		case quote:
			return j + 1
		}
		j++
	}
	fail(ErrSyntax, lexeme{pos: i}, "unterminated string literal")
	return 0
}

// skipGoChunk returns the offset just past the '}' that closes the chunk
// opened at i. Braces inside Go string, rune and raw literals don't count.
func skipGoChunk(text string, i int) int {
	depth := 0
	for j := i; j < len(text); {
		switch text[j] {
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return j + 1
			}
		case '"', '\'', '`':
			j = skipQuoted(text, j, text[j])
			continue
		}
		j++
	}
	fail(ErrSyntax, lexeme{pos: i}, "can't find closing '}'")
	return 0
}

func validateBrackets(tokens []lexeme) {
	var open []lexeme
	for _, t := range tokens {
		switch t.kind {
		case tokOpen:
			open = append(open, t)
		case tokClose:
			if len(open) == 0 {
				fail(ErrSyntax, t, "redundant bracket")
			}
			open = open[:len(open)-1]
		}
	}
	if len(open) > 0 {
		fail(ErrSyntax, open[len(open)-1], "can't find right bracket")
	}
}

type tokenReader struct {
	tokens []lexeme
	pos    int
}

func (r *tokenReader) hasNext() bool {
	return r.pos < len(r.tokens)
}

func (r *tokenReader) peek() lexeme {
	return r.tokens[r.pos]
}

func (r *tokenReader) next() lexeme {
	res := r.tokens[r.pos]
	r.pos++
	return res
}

func (r *tokenReader) read() term {
	tok := r.next()

	switch tok.kind {
	case tokOpen:
		l := &list{pos: tok.pos}
		for r.peek().kind != tokClose {
			if r.peek().kind == tokSeparator {
				fail(ErrSyntax, r.peek(), "separator must follow a list element")
			}
			l.items = append(l.items, r.read())
			if r.peek().kind == tokSeparator {
				r.next()
			}
		}
		r.next()
		return l
	case tokString:
		s, err := strconv.Unquote(tok.value)
		if err != nil {
			fail(ErrSyntax, tok, "bad string literal %s", tok.value)
		}
		return str{s, tok.pos}
	case tokGo:
		if strings.TrimSpace(tok.value) == "" {
			fail(ErrSyntax, tok, "empty Go expression")
		}
		checkGoNames(tok)
		return goExpr{tok.value, tok.pos}
	case tokAtom:
		return readAtom(tok)
	default:
		fail(ErrSyntax, tok, "unexpected %q", tok.value)
		return nil
	}
}

func readAtom(tok lexeme) term {
	v := tok.value
	switch {
	case v == "true" || v == "false":
		return boolean{v == "true", tok.pos}
	case unicode.IsDigit(rune(v[0])) || ((v[0] == '-' || v[0] == '+') && len(v) > 1 && unicode.IsDigit(rune(v[1]))):
		n, err := strconv.ParseInt(v, 0, 64)
		if err == nil {
			return number{n, tok.pos}
		}
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			fail(ErrSyntax, tok, "parse number %s", v)
		}
		return float{f, tok.pos}
	default:
		for _, part := range strings.Split(v, ".") {
			if strings.HasPrefix(part, reservedPrefix) {
				fail(ErrSyntax, tok, "names starting with %s are reserved for generated code", reservedPrefix)
			}
		}
		return symbol{v, tok.pos}
	}
}

// checkGoNames rejects reserved identifiers inside a {Go} chunk.
func checkGoNames(tok lexeme) {
	src := []byte(tok.value)
	file := token.NewFileSet().AddFile("", -1, len(src))
	var s scanner.Scanner
	s.Init(file, src, nil, 0)
	for {
		pos, t, lit := s.Scan()
		if t == token.EOF {
			return
		}
		if t == token.IDENT && strings.HasPrefix(lit, reservedPrefix) {
			fail(ErrSyntax, lexeme{pos: tok.pos + 1 + file.Offset(pos)}, "names starting with %s are reserved for generated code", reservedPrefix)
		}
	}
}
