package entities

import (
	"time"

	"github.com/google/uuid"

	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
)

// Diagram is the aggregate root tracking one render request/result pair.
// It is created in an unrendered state and transitions to rendered exactly
// once; the payload is never replaced after that.
type Diagram struct {
	id          string
	code        valueobjects.MermaidCode
	config      valueobjects.RenderConfig
	name        string
	description string
	rendered    []byte
	renderedBy  string
	createdAt   time.Time
	updatedAt   time.Time
}

// NewDiagram creates a new unrendered diagram with a fresh id
func NewDiagram(code valueobjects.MermaidCode, config valueobjects.RenderConfig, name, description string) (*Diagram, error) {
	if code.IsZero() {
		return nil, pkgerrors.NewValidationError("diagram code cannot be empty")
	}
	if config.IsZero() {
		return nil, pkgerrors.NewValidationError("diagram config cannot be empty")
	}

	now := time.Now().UTC()
	return &Diagram{
		id:          uuid.New().String(),
		code:        code,
		config:      config,
		name:        name,
		description: description,
		createdAt:   now,
		updatedAt:   now,
	}, nil
}

// ReconstructDiagram rebuilds a diagram from stored data with preserved
// id and timestamps. Used by registry adapters, never by request handling.
func ReconstructDiagram(
	id string,
	code valueobjects.MermaidCode,
	config valueobjects.RenderConfig,
	name, description string,
	rendered []byte,
	renderedBy string,
	createdAt, updatedAt time.Time,
) (*Diagram, error) {
	if id == "" {
		return nil, pkgerrors.NewValidationError("diagram id cannot be empty")
	}
	if _, err := uuid.Parse(id); err != nil {
		return nil, pkgerrors.NewValidationError("diagram id must be a valid UUID")
	}

	return &Diagram{
		id:          id,
		code:        code,
		config:      config,
		name:        name,
		description: description,
		rendered:    rendered,
		renderedBy:  renderedBy,
		createdAt:   createdAt,
		updatedAt:   updatedAt,
	}, nil
}

// ID returns the diagram's unique identifier
func (d *Diagram) ID() string {
	return d.id
}

// Code returns the Mermaid source
func (d *Diagram) Code() valueobjects.MermaidCode {
	return d.code
}

// Config returns the render configuration
func (d *Diagram) Config() valueobjects.RenderConfig {
	return d.config
}

// Name returns the optional diagram name
func (d *Diagram) Name() string {
	return d.name
}

// Description returns the optional description
func (d *Diagram) Description() string {
	return d.description
}

// DiagramType returns the type detected from the source
func (d *Diagram) DiagramType() valueobjects.DiagramType {
	return d.code.DiagramType()
}

// CreatedAt returns the creation timestamp
func (d *Diagram) CreatedAt() time.Time {
	return d.createdAt
}

// UpdatedAt returns the last update timestamp
func (d *Diagram) UpdatedAt() time.Time {
	return d.updatedAt
}

// Rendered returns the rendered payload, nil when unrendered
func (d *Diagram) Rendered() []byte {
	return d.rendered
}

// RenderedBy returns the name of the renderer that produced the payload
func (d *Diagram) RenderedBy() string {
	return d.renderedBy
}

// IsRendered reports whether a payload has been attached
func (d *Diagram) IsRendered() bool {
	return len(d.rendered) > 0
}

// AttachRender attaches the rendered payload and records which renderer
// produced it. A diagram is rendered at most once.
func (d *Diagram) AttachRender(data []byte, renderedBy string) error {
	if d.IsRendered() {
		return pkgerrors.NewValidationError("diagram is already rendered")
	}
	if len(data) == 0 {
		return pkgerrors.NewValidationError("rendered payload cannot be empty")
	}

	d.rendered = data
	d.renderedBy = renderedBy
	d.updatedAt = time.Now().UTC()
	return nil
}

// UpdateCode replaces the source and clears any cached render
func (d *Diagram) UpdateCode(code valueobjects.MermaidCode) error {
	if code.IsZero() {
		return pkgerrors.NewValidationError("diagram code cannot be empty")
	}

	d.code = code
	d.rendered = nil
	d.renderedBy = ""
	d.updatedAt = time.Now().UTC()
	return nil
}

// UpdateConfig replaces the configuration and clears any cached render
func (d *Diagram) UpdateConfig(config valueobjects.RenderConfig) error {
	if config.IsZero() {
		return pkgerrors.NewValidationError("diagram config cannot be empty")
	}

	d.config = config
	d.rendered = nil
	d.renderedBy = ""
	d.updatedAt = time.Now().UTC()
	return nil
}
