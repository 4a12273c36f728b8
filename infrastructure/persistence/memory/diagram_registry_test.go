package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mermaidview/domain/core/entities"
	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
)

func newTestDiagram(t *testing.T, source string) *entities.Diagram {
	t.Helper()
	code, err := valueobjects.NewMermaidCode(source)
	require.NoError(t, err)
	diagram, err := entities.NewDiagram(code, valueobjects.DefaultRenderConfig(), "", "")
	require.NoError(t, err)
	require.NoError(t, diagram.AttachRender([]byte("image"), "test"))
	return diagram
}

func TestDiagramRegistry_PutGetRoundTrip(t *testing.T) {
	registry := NewDiagramRegistry(0, zap.NewNop())
	defer registry.Close()
	ctx := context.Background()

	diagram := newTestDiagram(t, "graph TD; A-->B")
	require.NoError(t, registry.Put(ctx, diagram))

	got, err := registry.Get(ctx, diagram.ID())
	require.NoError(t, err)
	assert.Equal(t, diagram.ID(), got.ID())
	assert.Equal(t, []byte("image"), got.Rendered())
}

func TestDiagramRegistry_GetMissingReturnsNotFound(t *testing.T) {
	registry := NewDiagramRegistry(0, zap.NewNop())
	defer registry.Close()

	_, err := registry.Get(context.Background(), "no-such-id")
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}

func TestDiagramRegistry_ListPreservesInsertionOrder(t *testing.T) {
	registry := NewDiagramRegistry(0, zap.NewNop())
	defer registry.Close()
	ctx := context.Background()

	first := newTestDiagram(t, "graph TD; A-->B")
	second := newTestDiagram(t, "sequenceDiagram\n    A->>B: hi")
	third := newTestDiagram(t, "pie\n    \"a\": 1")

	require.NoError(t, registry.Put(ctx, first))
	require.NoError(t, registry.Put(ctx, second))
	require.NoError(t, registry.Put(ctx, third))

	listed, err := registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, first.ID(), listed[0].ID())
	assert.Equal(t, second.ID(), listed[1].ID())
	assert.Equal(t, third.ID(), listed[2].ID())

	// Replacing an entry keeps its original position.
	require.NoError(t, registry.Put(ctx, first))
	listed, err = registry.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 3)
	assert.Equal(t, first.ID(), listed[0].ID())
}

func TestDiagramRegistry_SweepEvictsExpiredAndReports(t *testing.T) {
	registry := NewDiagramRegistry(time.Hour, zap.NewNop())
	defer registry.Close()
	ctx := context.Background()

	var reported int
	registry.OnEvict(func(count int) { reported += count })

	fresh := newTestDiagram(t, "graph TD; A-->B")
	require.NoError(t, registry.Put(ctx, fresh))

	stale := newTestDiagram(t, "sequenceDiagram\n    A->>B: hi")
	old := time.Now().UTC().Add(-2 * time.Hour)
	expired, err := entities.ReconstructDiagram(
		stale.ID(), stale.Code(), stale.Config(), "", "",
		stale.Rendered(), stale.RenderedBy(), old, old,
	)
	require.NoError(t, err)
	require.NoError(t, registry.Put(ctx, expired))

	registry.sweep()

	assert.Equal(t, 1, reported, "eviction callback gets the swept count")
	assert.Equal(t, 1, registry.Len())
	_, err = registry.Get(ctx, expired.ID())
	assert.True(t, pkgerrors.IsNotFound(err))
	_, err = registry.Get(ctx, fresh.ID())
	assert.NoError(t, err, "unexpired diagrams survive the sweep")
}

func TestDiagramRegistry_Delete(t *testing.T) {
	registry := NewDiagramRegistry(0, zap.NewNop())
	defer registry.Close()
	ctx := context.Background()

	diagram := newTestDiagram(t, "graph TD; A-->B")
	require.NoError(t, registry.Put(ctx, diagram))

	require.NoError(t, registry.Delete(ctx, diagram.ID()))
	assert.Equal(t, 0, registry.Len())

	err := registry.Delete(ctx, diagram.ID())
	require.Error(t, err)
	assert.True(t, pkgerrors.IsNotFound(err))
}
