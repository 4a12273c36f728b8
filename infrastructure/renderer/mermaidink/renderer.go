// Package mermaidink implements the fallback renderer against the public
// mermaid.ink HTTP service.
package mermaidink

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
)

const (
	rendererName = "mermaid.ink"

	// Bodies of failed responses are truncated before being attached to
	// errors so a misbehaving upstream cannot flood the logs.
	maxErrorBodyBytes = 512

	maxResponseBytes = 32 << 20
)

// Renderer renders diagrams by fetching pre-rendered images from a
// mermaid.ink compatible service. Requests are retried at the transport
// level and guarded by a circuit breaker so a struggling upstream is not
// hammered once it starts failing.
type Renderer struct {
	baseURL string
	client  *http.Client
	breaker *gobreaker.CircuitBreaker
	timeout time.Duration
	logger  *zap.Logger
}

// NewRenderer creates a mermaid.ink renderer against the given base URL
func NewRenderer(baseURL string, timeout time.Duration, logger *zap.Logger) *Renderer {
	rc := retryablehttp.NewClient()
	rc.RetryMax = 2
	rc.RetryWaitMin = 200 * time.Millisecond
	rc.RetryWaitMax = 2 * time.Second
	rc.HTTPClient.Timeout = timeout
	rc.Logger = nil

	breaker := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        rendererName,
		MaxRequests: 1,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 5
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()),
			)
		},
	})

	return &Renderer{
		baseURL: baseURL,
		client:  rc.StandardClient(),
		breaker: breaker,
		timeout: timeout,
		logger:  logger,
	}
}

// Name identifies the renderer in logs and provenance fields
func (r *Renderer) Name() string {
	return rendererName
}

// Render fetches the rendered image for the given code and configuration.
// One call is one logical attempt; transport-level retries inside the HTTP
// client do not count as renderer attempts.
func (r *Renderer) Render(
	ctx context.Context,
	code valueobjects.MermaidCode,
	config valueobjects.RenderConfig,
) ([]byte, error) {
	target, err := r.BuildURL(code, config)
	if err != nil {
		return nil, err
	}

	result, err := r.breaker.Execute(func() (interface{}, error) {
		return r.fetch(ctx, target)
	})
	if err != nil {
		return nil, r.classify(ctx, err)
	}

	return result.([]byte), nil
}

// BuildURL constructs the mermaid.ink request URL for the given inputs.
// Default values stay out of the query string so identical requests map to
// identical URLs regardless of how the defaults were spelled.
func (r *Renderer) BuildURL(code valueobjects.MermaidCode, config valueobjects.RenderConfig) (string, error) {
	encoded, err := EncodePako(code.String())
	if err != nil {
		return "", pkgerrors.NewInternalError("failed to encode mermaid code").WithCause(err)
	}

	path := "img"
	if config.Format() == valueobjects.FormatSVG {
		path = "svg"
	}

	query := url.Values{}
	if config.Theme() != valueobjects.ThemeDefault {
		query.Set("theme", string(config.Theme()))
	}
	if config.Format() == valueobjects.FormatPNG {
		if config.Transparent() {
			query.Set("bgColor", "!transparent")
		} else if config.BackgroundColor() != "white" {
			query.Set("bgColor", config.BackgroundColor())
		}
	}
	if config.Scale() != 1.0 {
		query.Set("scale", strconv.FormatFloat(config.Scale(), 'f', -1, 64))
	}
	if config.Width() != 800 {
		query.Set("width", strconv.Itoa(config.Width()))
	}
	if config.Height() != 600 {
		query.Set("height", strconv.Itoa(config.Height()))
	}

	target := fmt.Sprintf("%s/%s/pako:%s", r.baseURL, path, encoded)
	if len(query) > 0 {
		target += "?" + query.Encode()
	}
	return target, nil
}

// IsAvailable probes the service with a HEAD request. Any response below
// 500 counts as available; readiness asks whether the service answers, not
// whether it likes a particular diagram.
func (r *Renderer) IsAvailable(ctx context.Context) bool {
	probeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	req, err := http.NewRequestWithContext(probeCtx, http.MethodHead, r.baseURL, nil)
	if err != nil {
		return false
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return false
	}
	defer resp.Body.Close()

	return resp.StatusCode < http.StatusInternalServerError
}

// Close releases renderer resources. The HTTP client holds no long-lived
// state beyond idle connections.
func (r *Renderer) Close() error {
	r.client.CloseIdleConnections()
	return nil
}

func (r *Renderer) fetch(ctx context.Context, target string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBodyBytes))
		return nil, &statusError{status: resp.StatusCode, body: string(body)}
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	return data, nil
}

// classify maps transport and breaker failures into the application error
// taxonomy.
func (r *Renderer) classify(ctx context.Context, err error) error {
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return pkgerrors.NewUnavailableError(rendererName, err)
	}

	var statusErr *statusError
	if errors.As(err, &statusErr) {
		return pkgerrors.NewRenderError(rendererName, statusErr)
	}

	if errors.Is(err, context.DeadlineExceeded) || ctx.Err() != nil {
		return pkgerrors.NewTimeoutError(rendererName, err)
	}

	var urlErr *url.Error
	if errors.As(err, &urlErr) && urlErr.Timeout() {
		return pkgerrors.NewTimeoutError(rendererName, err)
	}

	return pkgerrors.NewNetworkError("mermaid.ink request failed", err)
}

// statusError is a non-200 response from the upstream service
type statusError struct {
	status int
	body   string
}

func (e *statusError) Error() string {
	if e.body == "" {
		return fmt.Sprintf("mermaid.ink returned status %d", e.status)
	}
	return fmt.Sprintf("mermaid.ink returned status %d: %s", e.status, e.body)
}
