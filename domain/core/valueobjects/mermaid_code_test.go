package valueobjects

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "mermaidview/pkg/errors"
)

func TestNewMermaidCode(t *testing.T) {
	code, err := NewMermaidCode("  graph TD; A-->B  \n")
	require.NoError(t, err)

	assert.Equal(t, "graph TD; A-->B", code.String(), "source is trimmed")
	assert.Equal(t, TypeFlowchart, code.DiagramType())
	assert.True(t, code.IsValidSyntax())
	assert.False(t, code.IsZero())
}

func TestNewMermaidCode_EmptyFails(t *testing.T) {
	for _, raw := range []string{"", "   ", "\n\t\n"} {
		_, err := NewMermaidCode(raw)
		require.Error(t, err)
		assert.True(t, pkgerrors.IsValidation(err))
	}
}

func TestNewMermaidCode_TooLongFails(t *testing.T) {
	raw := "graph TD\n" + strings.Repeat("A-->B\n", 20_000)

	_, err := NewMermaidCode(raw)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsValidation(err))
}

func TestMermaidCode_UnknownTypeStillConstructs(t *testing.T) {
	code, err := NewMermaidCode("not a diagram at all")
	require.NoError(t, err)

	assert.Equal(t, TypeUnknown, code.DiagramType())
	assert.False(t, code.IsValidSyntax())
}

func TestMermaidCode_Equals(t *testing.T) {
	a, err := NewMermaidCode("graph TD; A-->B")
	require.NoError(t, err)
	b, err := NewMermaidCode("  graph TD; A-->B ")
	require.NoError(t, err)
	c, err := NewMermaidCode("graph TD; A-->C")
	require.NoError(t, err)

	assert.True(t, a.Equals(b))
	assert.False(t, a.Equals(c))
}

func TestMermaidCode_Lines(t *testing.T) {
	code, err := NewMermaidCode("sequenceDiagram\n    A->>B: hi")
	require.NoError(t, err)

	lines := code.Lines()
	require.Len(t, lines, 2)
	assert.Equal(t, "sequenceDiagram", lines[0])
}
