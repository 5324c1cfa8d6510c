package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascada-go/cascada/token"
)

func TestSyntaxErrorCarriesLocation(t *testing.T) {
	pos := token.Position{Line: 3, Column: 5}
	err := NewSyntaxError("index.html", pos, "unexpected token %q", "%}")
	template, got, ok := err.Location()
	require.True(t, ok)
	assert.Equal(t, "index.html", template)
	assert.Equal(t, pos, got)
	assert.Contains(t, err.Error(), "unexpected token")
	assert.Contains(t, err.Error(), "index.html")
}

func TestTypeErrorHasNoLocation(t *testing.T) {
	err := NewTypeError("bad operand type for +: %T", 3)
	_, _, ok := err.Location()
	assert.False(t, ok)
	assert.Contains(t, err.Error(), "bad operand type for +")
}

func TestWrapRuntimeErrorUnwrapsCause(t *testing.T) {
	cause := errors.New("filter failed")
	pos := token.Position{Line: 1, Column: 1}
	err := WrapRuntimeError("a.html", pos, cause)
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "filter failed")
}

func TestIsTemplateNotFound(t *testing.T) {
	err := NewTemplateNotFoundError("missing.html", nil)
	assert.True(t, IsTemplateNotFound(err))
	assert.False(t, IsTemplateNotFound(errors.New("some other error")))
}

func TestFormatUncolorizedIncludesLocation(t *testing.T) {
	pos := token.Position{Line: 2, Column: 9}
	err := NewNameError("t.html", pos, "Can not look up unknown variable %q", "x")
	out := Format(err, false)
	assert.Contains(t, out, "t.html")
	assert.Contains(t, out, "error:")
	assert.NotContains(t, out, "\x1b[") // no ANSI escapes when uncolorized
}

func TestFormatFallsBackForUnlocatedErrors(t *testing.T) {
	err := errors.New("plain error")
	assert.Equal(t, "plain error", Format(err, false))
}
