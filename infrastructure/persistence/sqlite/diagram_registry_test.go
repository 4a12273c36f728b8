package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mermaidview/domain/core/entities"
	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
)

func newTestRegistry(t *testing.T) *DiagramRegistry {
	t.Helper()
	registry, err := NewDiagramRegistry(filepath.Join(t.TempDir(), "diagrams.db"))
	require.NoError(t, err)
	t.Cleanup(func() { registry.Close() })
	return registry
}

func newTestDiagram(t *testing.T, source string) *entities.Diagram {
	t.Helper()
	code, err := valueobjects.NewMermaidCode(source)
	require.NoError(t, err)
	config, err := valueobjects.NewRenderConfig(valueobjects.RenderConfigParams{
		Width: 1024,
		Theme: "dark",
		Scale: 1.5,
	})
	require.NoError(t, err)
	diagram, err := entities.NewDiagram(code, config, "test diagram", "a description")
	require.NoError(t, err)
	require.NoError(t, diagram.AttachRender([]byte("png bytes"), "browser"))
	return diagram
}

func TestDiagramRegistry_PutGetRoundTrip(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	diagram := newTestDiagram(t, "graph TD; A-->B")
	require.NoError(t, registry.Put(ctx, diagram))

	got, err := registry.Get(ctx, diagram.ID())
	require.NoError(t, err)

	assert.Equal(t, diagram.ID(), got.ID())
	assert.Equal(t, diagram.Code().String(), got.Code().String())
	assert.Equal(t, 1024, got.Config().Width())
	assert.Equal(t, valueobjects.ThemeDark, got.Config().Theme())
	assert.Equal(t, 1.5, got.Config().Scale())
	assert.Equal(t, "test diagram", got.Name())
	assert.Equal(t, []byte("png bytes"), got.Rendered())
	assert.Equal(t, "browser", got.RenderedBy())
	assert.Equal(t, valueobjects.TypeFlowchart, got.DiagramType())
	assert.WithinDuration(t, diagram.CreatedAt(), got.CreatedAt(), 0)
}

func TestDiagramRegistry_GetMissingReturnsNotFound(t *testing.T) {
	registry := newTestRegistry(t)

	_, err := registry.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDiagramRegistry_ListFollowsInsertionOrder(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	first := newTestDiagram(t, "graph TD; A-->B")
	second := newTestDiagram(t, "sequenceDiagram\n    A->>B: hi")

	require.NoError(t, registry.Put(ctx, first))
	require.NoError(t, registry.Put(ctx, second))

	listed, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 2)
	assert.Equal(t, first.ID(), listed[0].ID())
	assert.Equal(t, second.ID(), listed[1].ID())
}

func TestDiagramRegistry_PutReplacesExisting(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	diagram := newTestDiagram(t, "graph TD; A-->B")
	require.NoError(t, registry.Put(ctx, diagram))
	require.NoError(t, registry.Put(ctx, diagram))

	listed, err := registry.List(ctx)
	require.NoError(t, err)
	assert.Len(t, listed, 1)
}

func TestDiagramRegistry_Delete(t *testing.T) {
	registry := newTestRegistry(t)
	ctx := context.Background()

	diagram := newTestDiagram(t, "graph TD; A-->B")
	require.NoError(t, registry.Put(ctx, diagram))
	require.NoError(t, registry.Delete(ctx, diagram.ID()))

	err := registry.Delete(ctx, diagram.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
