package services

import (
	"context"
	"time"

	"go.uber.org/zap"

	"mermaidview/application/ports"
	"mermaidview/domain/core/entities"
	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
	"mermaidview/pkg/observability"
)

// DiagramService orchestrates rendering: one attempt on the primary
// renderer, then at most one attempt on the fallback when enabled.
// Successful renders are inserted into the registry; failed renders never
// reach it.
type DiagramService struct {
	primary     ports.Renderer
	fallback    ports.Renderer
	registry    ports.DiagramRegistry
	metrics     *observability.Collector
	logger      *zap.Logger
	useFallback bool
}

// RenderOptions carries optional request metadata
type RenderOptions struct {
	Name        string
	Description string
}

// NewDiagramService creates a new diagram service. fallback may be nil;
// useFallback only matters when it is not.
func NewDiagramService(
	primary ports.Renderer,
	fallback ports.Renderer,
	registry ports.DiagramRegistry,
	useFallback bool,
	metrics *observability.Collector,
	logger *zap.Logger,
) *DiagramService {
	return &DiagramService{
		primary:     primary,
		fallback:    fallback,
		registry:    registry,
		metrics:     metrics,
		logger:      logger,
		useFallback: useFallback && fallback != nil,
	}
}

// Render renders validated code with the given configuration and returns a
// populated Diagram. The primary renderer gets exactly one attempt; on its
// failure the fallback gets exactly one attempt with the same inputs. When
// both fail the returned error carries both causes.
func (s *DiagramService) Render(
	ctx context.Context,
	code valueobjects.MermaidCode,
	config valueobjects.RenderConfig,
	opts RenderOptions,
) (*entities.Diagram, error) {
	if code.IsZero() {
		return nil, pkgerrors.NewValidationError("mermaid code cannot be empty")
	}
	if config.IsZero() {
		config = valueobjects.DefaultRenderConfig()
	}

	diagram, err := entities.NewDiagram(code, config, opts.Name, opts.Description)
	if err != nil {
		return nil, err
	}

	data, primaryErr := s.attempt(ctx, s.primary, code, config)
	if primaryErr == nil {
		return s.complete(ctx, diagram, data, s.primary.Name())
	}

	if !s.useFallback {
		return nil, primaryErr
	}

	// A cancelled caller gets the primary error back; attempting the
	// fallback with a dead context could only fail.
	if ctx.Err() != nil {
		return nil, primaryErr
	}

	s.logger.Warn("primary renderer failed, trying fallback",
		zap.String("primary", s.primary.Name()),
		zap.String("fallback", s.fallback.Name()),
		zap.String("diagramID", diagram.ID()),
		zap.Error(primaryErr),
	)

	data, fallbackErr := s.attempt(ctx, s.fallback, code, config)
	if fallbackErr != nil {
		return nil, pkgerrors.NewRenderFallbackError(primaryErr, fallbackErr)
	}

	if s.metrics != nil {
		s.metrics.Fallbacks.Inc()
	}

	return s.complete(ctx, diagram, data, s.fallback.Name())
}

// RenderRaw validates raw request input into value objects and renders.
// Validation failures surface before any renderer is touched.
func (s *DiagramService) RenderRaw(
	ctx context.Context,
	rawCode string,
	params valueobjects.RenderConfigParams,
	opts RenderOptions,
) (*entities.Diagram, error) {
	code, err := valueobjects.NewMermaidCode(rawCode)
	if err != nil {
		return nil, err
	}

	config, err := valueobjects.NewRenderConfig(params)
	if err != nil {
		return nil, err
	}

	return s.Render(ctx, code, config, opts)
}

// RenderAndSave renders raw input and hands the payload to the supplied
// writer. The diagram is registered even when the write fails; the caller
// can retry the write from the registry copy.
func (s *DiagramService) RenderAndSave(
	ctx context.Context,
	rawCode string,
	params valueobjects.RenderConfigParams,
	opts RenderOptions,
	write func(data []byte) error,
) (*entities.Diagram, error) {
	diagram, err := s.RenderRaw(ctx, rawCode, params, opts)
	if err != nil {
		return nil, err
	}

	if err := write(diagram.Rendered()); err != nil {
		return diagram, pkgerrors.NewInternalError("failed to save rendered diagram").WithCause(err)
	}
	return diagram, nil
}

// Get retrieves a previously rendered diagram by id
func (s *DiagramService) Get(ctx context.Context, id string) (*entities.Diagram, error) {
	return s.registry.Get(ctx, id)
}

// List returns all registered diagrams in insertion order
func (s *DiagramService) List(ctx context.Context) ([]*entities.Diagram, error) {
	return s.registry.List(ctx)
}

// Delete removes a diagram from the registry
func (s *DiagramService) Delete(ctx context.Context, id string) error {
	if err := s.registry.Delete(ctx, id); err != nil {
		return err
	}
	if s.metrics != nil {
		s.metrics.DiagramsStored.Dec()
	}
	return nil
}

// Ready reports availability of the primary and fallback renderers
func (s *DiagramService) Ready(ctx context.Context) (primary bool, fallback bool) {
	primary = s.primary.IsAvailable(ctx)
	if s.fallback != nil {
		fallback = s.fallback.IsAvailable(ctx)
	}
	return primary, fallback
}

// attempt runs exactly one render attempt on one renderer and records metrics
func (s *DiagramService) attempt(
	ctx context.Context,
	renderer ports.Renderer,
	code valueobjects.MermaidCode,
	config valueobjects.RenderConfig,
) ([]byte, error) {
	start := time.Now()
	data, err := renderer.Render(ctx, code, config)
	elapsed := time.Since(start)

	outcome := "success"
	if err != nil {
		outcome = "failure"
	}
	if s.metrics != nil {
		s.metrics.ObserveRender(renderer.Name(), outcome, elapsed)
	}

	if err != nil {
		return nil, err
	}
	if len(data) == 0 {
		return nil, pkgerrors.NewRenderError(renderer.Name(), nil).
			WithCode("EMPTY_PAYLOAD")
	}
	return data, nil
}

// complete attaches the payload, registers the diagram and logs the outcome
func (s *DiagramService) complete(
	ctx context.Context,
	diagram *entities.Diagram,
	data []byte,
	renderedBy string,
) (*entities.Diagram, error) {
	if err := diagram.AttachRender(data, renderedBy); err != nil {
		return nil, err
	}

	if err := s.registry.Put(ctx, diagram); err != nil {
		return nil, pkgerrors.NewInternalError("failed to register diagram").WithCause(err)
	}

	// Every render carries a fresh id, so a successful Put is always a
	// new registry entry.
	if s.metrics != nil {
		s.metrics.DiagramsStored.Inc()
	}

	s.logger.Info("diagram rendered",
		zap.String("diagramID", diagram.ID()),
		zap.String("type", diagram.DiagramType().String()),
		zap.String("format", string(diagram.Config().Format())),
		zap.String("renderedBy", renderedBy),
		zap.Int("bytes", len(data)),
	)

	return diagram, nil
}
