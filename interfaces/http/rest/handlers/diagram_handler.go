package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"mermaidview/application/services"
	"mermaidview/domain/core/entities"
	"mermaidview/infrastructure/config"
	"mermaidview/pkg/common"
	pkgerrors "mermaidview/pkg/errors"
	"mermaidview/pkg/utils"
)

// DiagramHandler handles retrieval of previously rendered diagrams
type DiagramHandler struct {
	service *services.DiagramService
	errors  *pkgerrors.Handler
	limits  func() config.Limits
	logger  *zap.Logger
}

// NewDiagramHandler creates a new diagram handler
func NewDiagramHandler(
	service *services.DiagramService,
	errHandler *pkgerrors.Handler,
	limits func() config.Limits,
	logger *zap.Logger,
) *DiagramHandler {
	return &DiagramHandler{
		service: service,
		errors:  errHandler,
		limits:  limits,
		logger:  logger,
	}
}

// DiagramSummary is the list representation; payloads stay out of listings
type DiagramSummary struct {
	ID          string `json:"id"`
	DiagramType string `json:"diagramType"`
	Format      string `json:"format"`
	RenderedBy  string `json:"renderedBy"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	SizeBytes   int    `json:"sizeBytes"`
	CreatedAt   string `json:"createdAt"`
}

// ListDiagrams handles GET /api/v1/diagrams
func (h *DiagramHandler) ListDiagrams(w http.ResponseWriter, r *http.Request) {
	diagrams, err := h.service.List(r.Context())
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if max := h.limits().MaxListEntries; max > 0 && len(diagrams) > max {
		diagrams = diagrams[len(diagrams)-max:]
	}

	summaries := make([]DiagramSummary, 0, len(diagrams))
	for _, diagram := range diagrams {
		summaries = append(summaries, toSummary(diagram))
	}

	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"diagrams": summaries,
		"count":    len(summaries),
	})
}

// GetDiagram handles GET /api/v1/diagrams/{diagramID}
func (h *DiagramHandler) GetDiagram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	diagram, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	response := toRenderResponse(diagram)
	common.RespondJSON(w, http.StatusOK, map[string]interface{}{
		"diagram": response,
		"code":    diagram.Code().String(),
	})
}

// GetDiagramImage handles GET /api/v1/diagrams/{diagramID}/image
func (h *DiagramHandler) GetDiagramImage(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	diagram, err := h.service.Get(r.Context(), id)
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	if !diagram.IsRendered() {
		h.errors.Handle(w, r, pkgerrors.NewNotFoundError("rendered image"))
		return
	}

	common.RespondRaw(w, http.StatusOK, diagram.Config().Format().ContentType(), diagram.Rendered())
}

// DeleteDiagram handles DELETE /api/v1/diagrams/{diagramID}
func (h *DiagramHandler) DeleteDiagram(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "diagramID")

	if err := h.service.Delete(r.Context(), id); err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	h.logger.Info("diagram deleted", zap.String("diagramID", id))
	common.RespondJSON(w, http.StatusOK, map[string]string{"id": id, "status": "deleted"})
}

func toSummary(diagram *entities.Diagram) DiagramSummary {
	return DiagramSummary{
		ID:          diagram.ID(),
		DiagramType: diagram.DiagramType().String(),
		Format:      string(diagram.Config().Format()),
		RenderedBy:  diagram.RenderedBy(),
		Name:        diagram.Name(),
		Description: diagram.Description(),
		SizeBytes:   len(diagram.Rendered()),
		CreatedAt:   utils.FormatRFC3339(diagram.CreatedAt()),
	}
}
