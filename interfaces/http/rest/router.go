package rest

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"mermaidview/application/services"
	"mermaidview/infrastructure/config"
	"mermaidview/interfaces/http/rest/handlers"
	"mermaidview/interfaces/http/rest/middleware"
	"mermaidview/interfaces/http/web"
	pkgerrors "mermaidview/pkg/errors"
	"mermaidview/pkg/observability"
	"mermaidview/pkg/ratelimit"
	"mermaidview/pkg/utils"
)

// Router creates and configures the HTTP router
type Router struct {
	cfg     *config.Config
	service *services.DiagramService
	metrics *observability.Collector
	limiter ratelimit.Limiter
	dynamic *config.Watcher
	logger  *zap.Logger
}

// NewRouter creates a new router instance. dynamic may be nil; static
// defaults are used then.
func NewRouter(
	cfg *config.Config,
	service *services.DiagramService,
	metrics *observability.Collector,
	limiter ratelimit.Limiter,
	dynamic *config.Watcher,
	logger *zap.Logger,
) *Router {
	return &Router{
		cfg:     cfg,
		service: service,
		metrics: metrics,
		limiter: limiter,
		dynamic: dynamic,
		logger:  logger,
	}
}

// Setup configures all routes and middleware
func (rt *Router) Setup() http.Handler {
	router := chi.NewRouter()

	router.Use(chimiddleware.RequestID)
	router.Use(chimiddleware.RealIP)
	router.Use(chimiddleware.Recoverer)
	router.Use(middleware.Logger(rt.logger))
	if rt.cfg.EnableMetrics {
		router.Use(middleware.Metrics(rt.metrics))
	}

	if rt.cfg.EnableCORS {
		router.Use(cors.Handler(cors.Options{
			AllowedOrigins: []string{"*"},
			AllowedMethods: []string{"GET", "POST", "DELETE", "OPTIONS"},
			AllowedHeaders: []string{"Accept", "Content-Type", "X-Request-ID"},
			ExposedHeaders: []string{"X-Request-ID", "X-Diagram-ID"},
			MaxAge:         300,
		}))
	}

	errHandler := pkgerrors.NewHandler(rt.logger, rt.cfg.IsDevelopment())
	limits := rt.currentLimits
	renderHandler := handlers.NewRenderHandler(rt.service, errHandler, limits, rt.logger)
	diagramHandler := handlers.NewDiagramHandler(rt.service, errHandler, limits, rt.logger)

	rateLimited := middleware.RateLimit(
		rt.limiter,
		func() int { return rt.currentLimits().RateLimitBurst },
		rt.cfg.RateLimitRefill.String(),
		errHandler,
		rt.logger,
	)

	// Editor page and probes
	router.Get("/", rt.editorPage)
	router.Get("/health", rt.healthCheck)
	router.Get("/ready", rt.readinessCheck)
	if rt.cfg.EnableMetrics {
		router.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(
			rt.metrics.Registry(), promhttp.HandlerOpts{}))
	}

	// JSON API
	router.Route("/api/v1", func(r chi.Router) {
		r.Group(func(r chi.Router) {
			r.Use(rateLimited)
			r.Post("/render", renderHandler.Render)
			r.Post("/render/image", renderHandler.RenderImage)
			r.Get("/quick-render", renderHandler.QuickRender)
		})

		r.Route("/diagrams", func(r chi.Router) {
			r.Get("/", diagramHandler.ListDiagrams)
			r.Get("/{diagramID}", diagramHandler.GetDiagram)
			r.Get("/{diagramID}/image", diagramHandler.GetDiagramImage)
			r.Delete("/{diagramID}", diagramHandler.DeleteDiagram)
		})
	})

	return router
}

// currentLimits resolves the hot-reloadable limits for this instant.
// Without a watcher the static burst applies; the limiter was built from
// it, so the rejection message has to quote the same number.
func (rt *Router) currentLimits() config.Limits {
	if rt.dynamic != nil {
		return rt.dynamic.Current().Limits
	}
	limits := config.DefaultDynamicConfig().Limits
	limits.RateLimitBurst = rt.cfg.RateLimitBurst
	return limits
}

// editorPage serves the embedded single page editor
func (rt *Router) editorPage(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	w.Write(web.Index())
}

// healthCheck handles liveness probes
func (rt *Router) healthCheck(w http.ResponseWriter, req *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	fmt.Fprintf(w, `{"status":"healthy","time":%q}`, utils.NowRFC3339())
}

// readinessCheck reports renderer availability. Ready means at least one
// renderer can serve; the response body breaks the answer down per renderer.
func (rt *Router) readinessCheck(w http.ResponseWriter, req *http.Request) {
	primary, fallback := rt.service.Ready(req.Context())

	status := http.StatusOK
	state := "ready"
	if !primary && !fallback {
		status = http.StatusServiceUnavailable
		state = "unavailable"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]interface{}{
		"status": state,
		"renderers": map[string]bool{
			"primary":  primary,
			"fallback": fallback,
		},
	})
}
