package valueobjects

import (
	"fmt"
	"strings"

	"mermaidview/domain/config"
	pkgerrors "mermaidview/pkg/errors"
)

// MermaidCode is a value object wrapping raw Mermaid diagram source.
// The text is trimmed and classified once at construction and never mutated.
type MermaidCode struct {
	value       string
	diagramType DiagramType
}

// NewMermaidCode creates MermaidCode with validation using default configuration
func NewMermaidCode(raw string) (MermaidCode, error) {
	return NewMermaidCodeWithConfig(raw, config.DefaultDomainConfig())
}

// NewMermaidCodeWithConfig creates MermaidCode with validation and configuration
func NewMermaidCodeWithConfig(raw string, cfg *config.DomainConfig) (MermaidCode, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return MermaidCode{}, pkgerrors.NewValidationError("mermaid code cannot be empty")
	}

	if len(trimmed) > cfg.MaxCodeLength {
		return MermaidCode{}, pkgerrors.NewValidationError(
			fmt.Sprintf("mermaid code exceeds maximum length of %d bytes", cfg.MaxCodeLength))
	}

	return MermaidCode{
		value:       trimmed,
		diagramType: DetectDiagramType(trimmed),
	}, nil
}

// String returns the raw Mermaid source
func (c MermaidCode) String() string {
	return c.value
}

// DiagramType returns the type detected at construction
func (c MermaidCode) DiagramType() DiagramType {
	return c.diagramType
}

// Lines splits the source into lines
func (c MermaidCode) Lines() []string {
	return strings.Split(c.value, "\n")
}

// IsZero checks if the code is the zero value
func (c MermaidCode) IsZero() bool {
	return c.value == ""
}

// IsValidSyntax reports whether the source starts with a recognized diagram
// keyword. Full validation happens in the rendering engine.
func (c MermaidCode) IsValidSyntax() bool {
	return c.diagramType != TypeUnknown
}

// Equals checks if two code values are equal
func (c MermaidCode) Equals(other MermaidCode) bool {
	return c.value == other.value
}
