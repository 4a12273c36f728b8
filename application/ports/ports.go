package ports

import (
	"context"

	"mermaidview/domain/core/entities"
	"mermaidview/domain/core/valueobjects"
)

// Renderer converts Mermaid source plus configuration into image bytes.
// Implementations wrap an external engine; the orchestration core depends
// only on this interface and never on renderer identity.
type Renderer interface {
	// Render produces image bytes in the configured output format.
	// One call is exactly one attempt; implementations do not retry
	// whole renders internally.
	Render(ctx context.Context, code valueobjects.MermaidCode, config valueobjects.RenderConfig) ([]byte, error)

	// IsAvailable reports whether the renderer can currently be used.
	// The fallback policy reacts to actual render failure, not to this;
	// it exists for readiness reporting.
	IsAvailable(ctx context.Context) bool

	// Name identifies the renderer in logs and provenance fields.
	Name() string

	// Close releases any resources held by the renderer.
	Close() error
}

// DiagramRegistry keeps rendered diagrams by id for later retrieval.
// List returns diagrams in insertion order.
type DiagramRegistry interface {
	Put(ctx context.Context, diagram *entities.Diagram) error
	Get(ctx context.Context, id string) (*entities.Diagram, error)
	List(ctx context.Context) ([]*entities.Diagram, error)
	Delete(ctx context.Context, id string) error
	Close() error
}
