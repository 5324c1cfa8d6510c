package ast

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgramAndRawText(t *testing.T) {
	prog := NewProgram([]Node{NewRawText(p, "hi")})
	assert.Equal(t, KindProgram, prog.Kind())
	assert.Len(t, prog.Body, 1)

	rt := NewRawText(p, "hello")
	assert.Equal(t, KindRawText, rt.Kind())
	assert.Equal(t, "hello", rt.String())
}

func TestOutputString(t *testing.T) {
	o := NewOutput(p, NewSymbol(p, "x"))
	assert.Equal(t, "{{ x }}", o.String())
}

func TestForTargetsCardinality(t *testing.T) {
	f := NewFor(p, []string{"k", "v"}, NewSymbol(p, "m"), nil, nil)
	assert.Equal(t, KindFor, f.Kind())
	assert.Len(t, f.Targets, 2)
	assert.Nil(t, f.ElseBody)
}

func TestSetModesDistinguishDialectRules(t *testing.T) {
	shadow := NewSet(p, []string{"x"}, NewSymbol(p, "y"), SetShadow)
	assert.Equal(t, SetShadow, shadow.Mode)

	declare := NewSet(p, []string{"x"}, NewSymbol(p, "y"), SetDeclare)
	assert.Equal(t, SetDeclare, declare.Mode)

	extern := NewSet(p, []string{"x"}, nil, SetExtern)
	assert.Nil(t, extern.Expr)
	assert.Equal(t, SetExtern, extern.Mode)
}

func TestMacroAndCallBlock(t *testing.T) {
	m := NewMacro(p, "greet", []MacroParam{{Name: "name"}}, nil)
	assert.Equal(t, "greet", m.Name)
	assert.Equal(t, KindMacro, m.Kind())

	call := NewCall(p, NewSymbol(p, "greet"), nil)
	cb := NewCallBlock(p, call, []Node{NewRawText(p, "body")})
	assert.Equal(t, KindCallBlock, cb.Kind())
	assert.Len(t, cb.CallerBody, 1)
}

func TestIncludeIgnoreMissing(t *testing.T) {
	inc := NewInclude(p, NewLiteral(p, LitString), true)
	assert.True(t, inc.IgnoreMissing)
}

func TestBlockAndSuper(t *testing.T) {
	b := NewBlock(p, "content", nil)
	assert.Equal(t, "content", b.Name)
	s := NewSuper(p)
	assert.Equal(t, KindSuper, s.Kind())
	assert.Equal(t, "super()", s.String())
}

func TestSwitchWithDefault(t *testing.T) {
	sw := NewSwitch(p, NewSymbol(p, "x"), []SwitchCase{
		{Expr: NewLiteral(p, LitInt), Body: nil},
	}, []Node{NewRawText(p, "fallback")})
	assert.Len(t, sw.Cases, 1)
	assert.NotNil(t, sw.Default)
}

func TestExtensionCallArgsAreRawNodes(t *testing.T) {
	ext := NewExtensionCall(p, "mytag", []Node{NewSymbol(p, "a")}, nil)
	assert.Equal(t, KindExtensionCall, ext.Kind())
	assert.Len(t, ext.Args, 1)
	assert.Nil(t, ext.Body)
}

func TestDataCommandPathAndOp(t *testing.T) {
	dc := NewDataCommand(p, "data", []string{"a", "b"}, DataPush, NewSymbol(p, "v"))
	assert.Equal(t, "@data.a.b", dc.String())
	assert.Equal(t, DataPush, dc.Op)
}
