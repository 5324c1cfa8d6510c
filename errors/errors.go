// Package errors implements the taxonomy from the engine's error-handling
// design: SyntaxError, NameError, TypeError, RuntimeError and
// TemplateNotFoundError, each carrying enough context (source position,
// wrapped cause) to be formatted for a human or propagated as a deferred
// rejection.
package errors

import (
	"bytes"
	"fmt"
	"io"

	"github.com/fatih/color"
	colorable "github.com/mattn/go-colorable"
	"golang.org/x/xerrors"

	"github.com/cascada-go/cascada/token"
)

// Located is implemented by every error in this package so callers can
// recover the source position without type-switching on the concrete type.
type Located interface {
	error
	Location() (template string, pos token.Position, ok bool)
}

type base struct {
	template string
	pos      token.Position
	hasPos   bool
	msg      string
	cause    error
}

func (e *base) Error() string {
	loc := ""
	if e.hasPos {
		if e.template != "" {
			loc = fmt.Sprintf(" (%s:%s)", e.template, e.pos)
		} else {
			loc = fmt.Sprintf(" (%s)", e.pos)
		}
	}
	if e.cause != nil {
		return fmt.Sprintf("%s%s: %s", e.msg, loc, e.cause.Error())
	}
	return fmt.Sprintf("%s%s", e.msg, loc)
}

func (e *base) Unwrap() error { return e.cause }

func (e *base) Location() (string, token.Position, bool) {
	return e.template, e.pos, e.hasPos
}

// SyntaxError is raised at parse time; it always carries a source position.
type SyntaxError struct{ *base }

func NewSyntaxError(template string, pos token.Position, format string, args ...interface{}) *SyntaxError {
	return &SyntaxError{&base{
		template: template, pos: pos, hasPos: true,
		msg: xerrors.Errorf(format, args...).Error(),
	}}
}

// NameError reports an unresolvable symbol, e.g. "Can not look up unknown
// variable/function" or "Cannot assign to undeclared variable".
type NameError struct{ *base }

func NewNameError(template string, pos token.Position, format string, args ...interface{}) *NameError {
	return &NameError{&base{
		template: template, pos: pos, hasPos: true,
		msg: xerrors.Errorf(format, args...).Error(),
	}}
}

// TypeError reports an operator or function applied to incompatible types.
type TypeError struct{ *base }

func NewTypeError(format string, args ...interface{}) *TypeError {
	return &TypeError{&base{msg: xerrors.Errorf(format, args...).Error()}}
}

// RuntimeError wraps a rejection from user code: a filter, test, extension,
// loader, or an application-supplied deferred.
type RuntimeError struct{ *base }

func NewRuntimeError(cause error) *RuntimeError {
	return &RuntimeError{&base{msg: "runtime error", cause: cause}}
}

func WrapRuntimeError(template string, pos token.Position, cause error) *RuntimeError {
	return &RuntimeError{&base{template: template, pos: pos, hasPos: true, msg: "runtime error", cause: cause}}
}

// TemplateNotFoundError is surfaced by include/extends when the Loader
// cannot resolve a name. ignoreMissing on include swallows exactly this type.
type TemplateNotFoundError struct{ *base }

func NewTemplateNotFoundError(name string, cause error) *TemplateNotFoundError {
	return &TemplateNotFoundError{&base{
		msg:   fmt.Sprintf("template not found: %q", name),
		cause: cause,
	}}
}

// IsTemplateNotFound reports whether err is, or wraps, a TemplateNotFoundError.
func IsTemplateNotFound(err error) bool {
	var e *TemplateNotFoundError
	return xerrors.As(err, &e)
}

// Format renders err as a human-readable message, optionally colorized the
// way the teacher's cmd/yparse colorizes source dumps with fatih/color. The
// returned string never itself writes to a terminal; callers that want
// colorized output on Windows should write it through colorable.NewColorable.
func Format(err error, colorized bool) string {
	if err == nil {
		return ""
	}
	var loc Located
	if !xerrors.As(err, &loc) {
		return err.Error()
	}
	template, pos, ok := loc.Location()
	if !ok {
		return err.Error()
	}

	var buf bytes.Buffer
	w := &buf
	bold := color.New(color.Bold)
	red := color.New(color.FgHiRed)
	if !colorized {
		bold.DisableColor()
		red.DisableColor()
	}
	fmt.Fprintf(w, "%s: %s\n", red.Sprint("error"), err.Error())
	if template != "" {
		fmt.Fprintf(w, "  %s %s:%s\n", bold.Sprint("-->"), template, pos)
	} else {
		fmt.Fprintf(w, "  %s %s\n", bold.Sprint("-->"), pos)
	}
	return buf.String()
}

// ColorableStderr exposes the colorable writer the teacher's cmd/yparse used
// so hosts that want to stream Format's colorized output to a Windows
// terminal get ANSI codes translated to console calls automatically.
func ColorableStderr() io.Writer {
	return colorable.NewColorableStderr()
}
