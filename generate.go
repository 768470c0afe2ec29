package tablegen

import (
	"bytes"
	"fmt"
	"go/token"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joomcode/errorx"
	"golang.org/x/tools/imports"

	"github.com/patsak/tablegen/internal/ctxlog"
)

type generator struct {
	source              string
	sourceName          string
	packageName         string
	packageOverride     string
	imports             []string
	consts              *scope
	scope               *scope
	constOrder          []string
	macrosByName        map[string]macro
	macroDepth          int
	autoIncrementTempID int
	fixImports          bool
	inlineConsts        bool
	logger              *slog.Logger

	decls codeWriter
}

type Option func(g *generator)

// PackageName sets the package clause of the generated file, overriding
// (package NAME) in the source.
func PackageName(name string) Option {
	return func(g *generator) {
		g.packageOverride = name
	}
}

// SourceName names the source file in diagnostics and in the generated
// file header.
func SourceName(name string) Option {
	return func(g *generator) {
		g.sourceName = name
	}
}

// FixImports makes the formatter add missing and drop unused imports.
func FixImports(enabled bool) Option {
	return func(g *generator) {
		g.fixImports = enabled
	}
}

// Logger sets the logger for expansion events. They are logged at debug level.
func Logger(l *slog.Logger) Option {
	return func(g *generator) {
		g.logger = l
	}
}

func newGenerator(source string, options ...Option) *generator {
	consts := newScope(nil)
	g := &generator{
		source:       source,
		consts:       consts,
		scope:        consts,
		macrosByName: map[string]macro{},
		fixImports:   true,
		logger:       ctxlog.Discard,
	}
	for _, opt := range options {
		opt(g)
	}
	for _, form := range read(stdMacros) {
		g.defineMacro(form.(*list))
	}
	return g
}

// Generate expands a tablegen source file into a formatted Go file.
func Generate(source string, options ...Option) (_ []byte, err error) {
	g := newGenerator(source, options...)
	defer recoverDiagnostic(&err, source, g.sourceName)

	for _, form := range read(source) {
		g.emitTopLevel(form)
	}
	return g.file()
}

// ExpandExpr lowers a single expression to Go source. resultType is the Go
// type of the result and is required for tables and arrays. Any
// defconst and defmacro forms before the expression are applied first, and
// constants are inlined.
func ExpandExpr(source, resultType string, options ...Option) (_ string, err error) {
	g := newGenerator(source, options...)
	g.inlineConsts = true
	defer recoverDiagnostic(&err, source, g.sourceName)

	forms := read(source)
	if len(forms) == 0 {
		return "", ErrShape.New("no expression to expand")
	}
	for _, form := range forms[:len(forms)-1] {
		l, ok := form.(*list)
		h, hasHead := symbol{}, false
		if ok {
			h, hasHead = l.head()
		}
		switch {
		case hasHead && h.name == keywordDefconst:
			g.defineConst(l)
		case hasHead && h.name == keywordDefmacro:
			g.defineMacro(l)
		default:
			fail(ErrShape, form, "only defconst and defmacro may precede the expression, got %s", form)
		}
	}
	code := g.lowerExpr(forms[len(forms)-1], resultType)
	return formatExpr(code.src)
}

func (g *generator) emitTopLevel(form term) {
	l, ok := form.(*list)
	if !ok {
		fail(ErrShape, form, "expected a top-level form, got %s", form)
	}
	h, ok := l.head()
	if !ok {
		fail(ErrShape, form, "expected a top-level form, got %s", form)
	}
	switch h.name {
	case keywordPackage:
		if len(l.items) != 2 {
			fail(ErrShape, l, "package takes a single name")
		}
		name, ok := l.items[1].(symbol)
		if !ok || !token.IsIdentifier(name.name) {
			fail(ErrShape, l.items[1], "package name must be an identifier")
		}
		if g.packageName != "" {
			fail(ErrShape, l, "package declared twice")
		}
		g.packageName = name.name
	case keywordImport:
		for _, it := range l.args() {
			s, ok := it.(str)
			if !ok {
				fail(ErrShape, it, "import paths must be strings, got %s", it)
			}
			g.imports = append(g.imports, s.value)
		}
	case keywordDefconst:
		g.defineConst(l)
	case keywordDefmacro:
		g.defineMacro(l)
	case keywordDefvar:
		g.emitDefvar(l)
	case keywordDefun:
		g.emitDefun(l)
	default:
		fail(ErrShape, l, "unknown top-level form %s", h.name)
	}
}

// defineConst evaluates (defconst NAME EXPR) now; later bounds and array
// lengths may use NAME.
func (g *generator) defineConst(l *list) {
	if len(l.items) != 3 {
		fail(ErrShape, l, "defconst takes NAME EXPR, got %s", l)
	}
	name, ok := l.items[1].(symbol)
	if !ok || !token.IsIdentifier(name.name) {
		fail(ErrShape, l.items[1], "constant name must be an identifier, got %s", l.items[1])
	}
	if _, dup := g.consts.values[name.name]; dup {
		fail(ErrShape, l, "constant %s declared twice", name.name)
	}
	g.consts.values[name.name] = evalConst(l.items[2], g.consts)
	g.constOrder = append(g.constOrder, name.name)
}

// emitDefvar writes (defvar NAME [TYPE] EXPR) as a package-level var.
func (g *generator) emitDefvar(l *list) {
	args := l.args()
	if len(args) != 2 && len(args) != 3 {
		fail(ErrShape, l, "defvar takes NAME [TYPE] EXPR, got %s", l)
	}
	name := g.declName(args[0])
	typ := ""
	if len(args) == 3 {
		typ = g.parseType(args[1])
	}
	code := g.lowerExpr(args[len(args)-1], typ)
	if code.typ != "" && (typ == "" || strings.Contains(typ, "...")) {
		typ = code.typ
	}
	if typ == "" {
		g.decls.line("var %s = %s", name, code.src)
	} else {
		g.decls.line("var %s %s = %s", name, typ, code.src)
	}
	g.decls.line("")
}

// emitDefun writes (defun NAME (PARAM TYPE ...) TYPE EXPR) as a function.
// A table at the top of the body is emitted as plain statements.
func (g *generator) emitDefun(l *list) {
	args := l.args()
	if len(args) != 4 {
		fail(ErrShape, l, "defun takes NAME (PARAM TYPE ...) TYPE EXPR, got %s", l)
	}
	name := g.declName(args[0])
	paramList, ok := args[1].(*list)
	if !ok || len(paramList.items)%2 != 0 {
		fail(ErrShape, args[1], "parameters must be a list of NAME TYPE pairs, got %s", args[1])
	}
	var params []string
	vars := g.enter().vars
	defer g.leave()
	for i := 0; i < len(paramList.items); i += 2 {
		p, ok := paramList.items[i].(symbol)
		if !ok || !token.IsIdentifier(p.name) {
			fail(ErrShape, paramList.items[i], "parameter name must be an identifier, got %s", paramList.items[i])
		}
		typ := g.parseType(paramList.items[i+1])
		vars[p.name] = typ
		params = append(params, p.name+" "+typ)
	}
	result := g.parseType(args[2])
	body := args[3]

	w := &codeWriter{indent: 1}
	var ret string
	if bl, ok := body.(*list); ok && isHead(bl, keywordTable) {
		tb, specs := parseTable(bl)
		ret = g.emitTable(w, tb, specs, result, bl)
	} else {
		code := g.lowerExpr(body, result)
		if code.typ != "" && strings.Contains(result, "...") {
			result = code.typ
		}
		ret = code.src
	}

	g.decls.open("func %s(%s) %s", name, strings.Join(params, ", "), result)
	g.decls.b.WriteString(w.String())
	g.decls.line("return %s", ret)
	g.decls.close()
	g.decls.line("")
	g.logger.Debug("function generated", "name", name)
}

func isHead(l *list, name string) bool {
	h, ok := l.head()
	return ok && h.name == name
}

func (g *generator) declName(t term) string {
	s, ok := t.(symbol)
	if !ok || !token.IsIdentifier(s.name) {
		fail(ErrShape, t, "expected an identifier, got %s", t)
	}
	return s.name
}

func (g *generator) header() string {
	if g.sourceName == "" {
		return "// Code generated by tablegen. DO NOT EDIT.\n"
	}
	return fmt.Sprintf("// Code generated by tablegen from %s. DO NOT EDIT.\n", filepath.Base(g.sourceName))
}

func (g *generator) file() ([]byte, error) {
	pkg := g.packageName
	if g.packageOverride != "" {
		pkg = g.packageOverride
	}
	if pkg == "" {
		return nil, ErrShape.New("missing (package NAME) and no package name option")
	}

	var buf bytes.Buffer
	buf.WriteString(g.header())
	fmt.Fprintf(&buf, "\npackage %s\n\n", pkg)
	if len(g.imports) > 0 {
		buf.WriteString("import (\n")
		for _, imp := range g.imports {
			fmt.Fprintf(&buf, "\t%s\n", strconv.Quote(imp))
		}
		buf.WriteString(")\n\n")
	}
	if len(g.constOrder) > 0 {
		buf.WriteString("const (\n")
		for _, name := range g.constOrder {
			fmt.Fprintf(&buf, "\t%s = %d\n", name, g.consts.values[name])
		}
		buf.WriteString(")\n\n")
	}
	buf.WriteString(g.decls.String())

	out, err := imports.Process(g.outputName(), buf.Bytes(), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: !g.fixImports,
	})
	if err != nil {
		return nil, errorx.Decorate(ErrSyntax.Wrap(err, "generated code doesn't parse"), "%s", buf.String())
	}
	return out, nil
}

func (g *generator) outputName() string {
	if g.sourceName == "" {
		return "tablegen_gen.go"
	}
	return OutputPath(g.sourceName, "_gen.go")
}

// OutputPath derives the generated file path from a source path:
// dir/name.tbl becomes dir/name<suffix>.
func OutputPath(sourcePath, suffix string) string {
	ext := filepath.Ext(sourcePath)
	return strings.TrimSuffix(sourcePath, ext) + suffix
}

const exprPrefix = "package p\n\nvar _ = "

func formatExpr(src string) (string, error) {
	out, err := imports.Process("expr.go", []byte(exprPrefix+src+"\n"), &imports.Options{
		Comments:   true,
		TabIndent:  true,
		TabWidth:   8,
		FormatOnly: true,
	})
	if err != nil {
		return "", ErrSyntax.Wrap(err, "generated expression doesn't parse: %s", src)
	}
	return strings.TrimSpace(strings.TrimPrefix(string(out), exprPrefix)), nil
}
