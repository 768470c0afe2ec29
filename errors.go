package tablegen

import (
	"fmt"
	"strings"

	"github.com/joomcode/errorx"
)

var (
	Errors = errorx.NewNamespace("tablegen")

	// ErrSyntax is returned for text that can't be read into terms.
	ErrSyntax = Errors.NewType("syntax")
	// ErrShape is returned when a form doesn't match any expansion rule.
	ErrShape = Errors.NewType("shape")
	// ErrLength is returned when a constant array dimension has no sensible length.
	ErrLength = Errors.NewType("length")
	// ErrUndefined is returned for references to unknown macros and constants.
	ErrUndefined = Errors.NewType("undefined")
	// ErrType is returned when a result type can't be split into dimensions.
	ErrType = Errors.NewType("type")

	errSourcePositionProperty = errorx.RegisterProperty("sourcePosition")
)

func newError(t *errorx.Type, at term, format string, args ...any) *errorx.Error {
	err := t.New(format, args...)
	if at != nil {
		err = err.WithProperty(errSourcePositionProperty, at.position())
	}
	return err
}

// fail aborts the current expansion. Expansion entry points recover it.
func fail(t *errorx.Type, at term, format string, args ...any) {
	panic(newError(t, at, format, args...))
}

// recoverDiagnostic converts a panic raised by fail into an error decorated
// with the offending source line.
func recoverDiagnostic(errp *error, source, fileName string) {
	rec := recover()
	if rec == nil {
		return
	}
	err, ok := rec.(error)
	if !ok {
		err = errorx.IllegalState.New("%v", rec)
	}
	*errp = wrapSourceError(err, source, fileName)
}

func wrapSourceError(err error, source, fileName string) error {
	pos, ok := errorx.ExtractProperty(err, errSourcePositionProperty)
	if !ok {
		return err
	}
	offset := pos.(int)
	if offset < 0 || offset > len(source) {
		return err
	}
	lineStart := strings.LastIndexByte(source[:offset], '\n') + 1
	lineEnd := strings.IndexByte(source[offset:], '\n')
	if lineEnd == -1 {
		lineEnd = len(source)
	} else {
		lineEnd += offset
	}
	line := strings.Count(source[:offset], "\n") + 1
	col := offset - lineStart + 1

	where := fmt.Sprintf("%d:%d", line, col)
	if fileName != "" {
		where = fileName + ":" + where
	}
	return errorx.Decorate(err, "%s: %s^%s", where, source[lineStart:offset], source[offset:lineEnd])
}
