package handlers

import (
	"encoding/base64"
	"fmt"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"mermaidview/application/services"
	"mermaidview/domain/core/entities"
	"mermaidview/domain/core/valueobjects"
	"mermaidview/infrastructure/config"
	"mermaidview/pkg/common"
	pkgerrors "mermaidview/pkg/errors"
	"mermaidview/pkg/utils"
)

// RenderHandler handles render-related HTTP requests
type RenderHandler struct {
	service *services.DiagramService
	errors  *pkgerrors.Handler
	limits  func() config.Limits
	logger  *zap.Logger
}

// NewRenderHandler creates a new render handler. limits is consulted per
// request so hot-reloaded values take effect without a restart.
func NewRenderHandler(
	service *services.DiagramService,
	errHandler *pkgerrors.Handler,
	limits func() config.Limits,
	logger *zap.Logger,
) *RenderHandler {
	return &RenderHandler{
		service: service,
		errors:  errHandler,
		limits:  limits,
		logger:  logger,
	}
}

// RenderRequest represents the request body for rendering a diagram
type RenderRequest struct {
	Code            string  `json:"code" validate:"required"`
	Width           int     `json:"width,omitempty" validate:"omitempty,min=100,max=4000"`
	Height          int     `json:"height,omitempty" validate:"omitempty,min=100,max=4000"`
	Theme           string  `json:"theme,omitempty" validate:"omitempty,oneof=default forest dark neutral base"`
	Format          string  `json:"format,omitempty" validate:"omitempty,oneof=png svg"`
	Scale           float64 `json:"scale,omitempty" validate:"omitempty,min=0.5,max=4"`
	Transparent     bool    `json:"transparent,omitempty"`
	BackgroundColor string  `json:"backgroundColor,omitempty"`
	Padding         *int    `json:"padding,omitempty" validate:"omitempty,min=0"`
	Name            string  `json:"name,omitempty" validate:"omitempty,max=200"`
	Description     string  `json:"description,omitempty" validate:"omitempty,max=1000"`
}

// RenderResponse represents a rendered diagram in JSON form
type RenderResponse struct {
	ID          string `json:"id"`
	DiagramType string `json:"diagramType"`
	Format      string `json:"format"`
	ContentType string `json:"contentType"`
	RenderedBy  string `json:"renderedBy"`
	Image       string `json:"image"`
	Name        string `json:"name,omitempty"`
	Description string `json:"description,omitempty"`
	CreatedAt   string `json:"createdAt"`
}

// Render handles POST /api/v1/render
func (h *RenderHandler) Render(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	diagram, err := h.service.RenderRaw(r.Context(), req.Code, req.params(), services.RenderOptions{
		Name:        req.Name,
		Description: req.Description,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondJSON(w, http.StatusCreated, toRenderResponse(diagram))
}

// RenderImage handles POST /render/image, responding with raw image bytes
// instead of a JSON envelope.
func (h *RenderHandler) RenderImage(w http.ResponseWriter, r *http.Request) {
	req, ok := h.decodeRequest(w, r)
	if !ok {
		return
	}

	diagram, err := h.service.RenderRaw(r.Context(), req.Code, req.params(), services.RenderOptions{
		Name: req.Name,
	})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	w.Header().Set("X-Diagram-ID", diagram.ID())
	w.Header().Set("Content-Disposition",
		fmt.Sprintf("inline; filename=diagram.%s", diagram.Config().Format()))
	common.RespondRaw(w, http.StatusOK, diagram.Config().Format().ContentType(), diagram.Rendered())
}

// QuickRender handles GET /quick-render, rendering directly from query
// parameters. Meant for embedding image URLs in other pages.
func (h *RenderHandler) QuickRender(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	code := query.Get("code")
	if code == "" {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("query parameter 'code' is required"))
		return
	}

	params := valueobjects.RenderConfigParams{
		Theme:  query.Get("theme"),
		Format: query.Get("format"),
	}
	if raw := query.Get("width"); raw != "" {
		width, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("width must be an integer"))
			return
		}
		params.Width = width
	}
	if raw := query.Get("height"); raw != "" {
		height, err := strconv.Atoi(raw)
		if err != nil {
			h.errors.Handle(w, r, pkgerrors.NewValidationError("height must be an integer"))
			return
		}
		params.Height = height
	}

	diagram, err := h.service.RenderRaw(r.Context(), code, params, services.RenderOptions{})
	if err != nil {
		h.errors.Handle(w, r, err)
		return
	}

	common.RespondRaw(w, http.StatusOK, diagram.Config().Format().ContentType(), diagram.Rendered())
}

// decodeRequest parses and validates the JSON render request
func (h *RenderHandler) decodeRequest(w http.ResponseWriter, r *http.Request) (*RenderRequest, bool) {
	var req RenderRequest
	if err := common.ParseJSONBody(r, &req, int64(h.limits().MaxBodyBytes)); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError("invalid request body").WithCause(err))
		return nil, false
	}

	if err := utils.ValidateStruct(req); err != nil {
		h.errors.Handle(w, r, pkgerrors.NewValidationError(err.Error()))
		return nil, false
	}

	return &req, true
}

// params converts the request body into render configuration input
func (req *RenderRequest) params() valueobjects.RenderConfigParams {
	return valueobjects.RenderConfigParams{
		Width:           req.Width,
		Height:          req.Height,
		Theme:           req.Theme,
		Format:          req.Format,
		Scale:           req.Scale,
		Transparent:     req.Transparent,
		BackgroundColor: req.BackgroundColor,
		Padding:         req.Padding,
	}
}

func toRenderResponse(diagram *entities.Diagram) RenderResponse {
	return RenderResponse{
		ID:          diagram.ID(),
		DiagramType: diagram.DiagramType().String(),
		Format:      string(diagram.Config().Format()),
		ContentType: diagram.Config().Format().ContentType(),
		RenderedBy:  diagram.RenderedBy(),
		Image:       base64.StdEncoding.EncodeToString(diagram.Rendered()),
		Name:        diagram.Name(),
		Description: diagram.Description(),
		CreatedAt:   utils.FormatRFC3339(diagram.CreatedAt()),
	}
}
