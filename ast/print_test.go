package ast

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cascada-go/cascada/token"
)

func TestDumpRendersIndentedTree(t *testing.T) {
	prog := NewProgram([]Node{
		NewRawText(p, "hi "),
		NewOutput(p, NewBinOp(p, token.PLUS, NewSymbol(p, "a"), NewSymbol(p, "b"))),
	})

	var sb strings.Builder
	require.NoError(t, Dump(&sb, prog))

	out := sb.String()
	assert.Contains(t, out, "*Program*")
	assert.Contains(t, out, "*RawText*")
	assert.Contains(t, out, "Text: `hi `")
	assert.Contains(t, out, "*Output*")
	assert.Contains(t, out, "*BinOp*")
	assert.Contains(t, out, "*Symbol*")

	// children are indented one level deeper than their parent
	lines := strings.Split(out, "\n")
	require.True(t, len(lines) >= 2)
	assert.True(t, strings.HasPrefix(lines[1], "    "), "child node should be indented under Program")
}

func TestDumpOnNilNodeIsNoop(t *testing.T) {
	var sb strings.Builder
	require.NoError(t, Dump(&sb, nil))
	assert.Empty(t, sb.String())
}
