// Package browser implements the primary renderer: a headless Chrome tab
// loads Mermaid.js, renders the diagram and the SVG node is screenshotted
// (PNG) or its markup extracted (SVG).
package browser

import (
	"context"
	"encoding/base64"
	"errors"
	"os/exec"
	"strings"
	"sync"
	"time"

	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"

	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
)

const rendererName = "chromedp"

// svgSelector matches the SVG that Mermaid injects once rendering finished
const svgSelector = ".mermaid svg"

// Renderer drives a shared headless Chrome instance. Each render runs in
// its own tab, so concurrent calls are safe; the browser itself is started
// once and reused.
type Renderer struct {
	cdnURL   string
	binaries []string
	headless bool
	timeout  time.Duration
	logger   *zap.Logger

	mu         sync.Mutex
	allocCtx   context.Context
	browserCtx context.Context
	cancels    []context.CancelFunc
	started    bool
}

// NewRenderer creates a chromedp renderer. The browser is launched lazily
// on the first render.
func NewRenderer(cdnURL string, binaries []string, headless bool, timeout time.Duration, logger *zap.Logger) *Renderer {
	return &Renderer{
		cdnURL:   cdnURL,
		binaries: binaries,
		headless: headless,
		timeout:  timeout,
		logger:   logger,
	}
}

// Name identifies the renderer in logs and provenance fields
func (r *Renderer) Name() string {
	return rendererName
}

// IsAvailable reports whether a Chrome binary is present on PATH
func (r *Renderer) IsAvailable(ctx context.Context) bool {
	return r.findChrome() != ""
}

// Render produces image bytes for the configured output format
func (r *Renderer) Render(ctx context.Context, code valueobjects.MermaidCode, config valueobjects.RenderConfig) ([]byte, error) {
	browserCtx, err := r.browser()
	if err != nil {
		return nil, err
	}

	// Each render gets its own tab; the parent browser context is shared.
	tabCtx, cancelTab := chromedp.NewContext(browserCtx)
	defer cancelTab()

	runCtx, cancelRun := context.WithTimeout(tabCtx, r.timeout)
	defer cancelRun()

	// Propagate caller cancellation into the browser run
	stop := context.AfterFunc(ctx, cancelRun)
	defer stop()

	page := BuildPage(code, config, r.cdnURL)
	dataURL := "data:text/html;charset=utf-8;base64," + base64.StdEncoding.EncodeToString([]byte(page))

	tasks := chromedp.Tasks{
		chromedp.EmulateViewport(int64(config.Width()), int64(config.Height()),
			chromedp.EmulateScale(config.Scale())),
	}
	if config.Transparent() {
		tasks = append(tasks, chromedp.ActionFunc(func(ctx context.Context) error {
			return emulation.SetDefaultBackgroundColorOverride().
				WithColor(&cdp.RGBA{R: 0, G: 0, B: 0, A: 0}).
				Do(ctx)
		}))
	}
	tasks = append(tasks,
		chromedp.Navigate(dataURL),
		chromedp.WaitVisible(svgSelector, chromedp.ByQuery),
	)

	var payload []byte
	var svgMarkup string
	if config.Format() == valueobjects.FormatSVG {
		tasks = append(tasks, chromedp.OuterHTML(svgSelector, &svgMarkup, chromedp.ByQuery))
	} else {
		tasks = append(tasks, chromedp.Screenshot(svgSelector, &payload, chromedp.NodeVisible, chromedp.ByQuery))
	}

	start := time.Now()
	if err := chromedp.Run(runCtx, tasks); err != nil {
		return nil, r.classify(ctx, err)
	}

	if config.Format() == valueobjects.FormatSVG {
		if svgMarkup == "" {
			return nil, pkgerrors.NewRenderError(rendererName, errors.New("rendered page contains no SVG"))
		}
		payload = []byte(svgMarkup)
	}

	r.logger.Debug("browser render complete",
		zap.String("type", code.DiagramType().String()),
		zap.String("format", string(config.Format())),
		zap.Duration("elapsed", time.Since(start)),
	)

	return payload, nil
}

// Close shuts down the shared browser
func (r *Renderer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for i := len(r.cancels) - 1; i >= 0; i-- {
		r.cancels[i]()
	}
	r.cancels = nil
	r.started = false
	return nil
}

// browser starts the shared Chrome instance on first use
func (r *Renderer) browser() (context.Context, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.started {
		return r.browserCtx, nil
	}

	execPath := r.findChrome()
	if execPath == "" {
		return nil, pkgerrors.NewUnavailableError(rendererName, errors.New("no chrome binary found on PATH"))
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.ExecPath(execPath),
		chromedp.Flag("headless", r.headless),
	)

	allocCtx, cancelAlloc := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, cancelBrowser := chromedp.NewContext(allocCtx)

	r.allocCtx = allocCtx
	r.browserCtx = browserCtx
	r.cancels = []context.CancelFunc{cancelAlloc, cancelBrowser}
	r.started = true

	r.logger.Info("headless browser allocator ready",
		zap.String("execPath", execPath),
		zap.Bool("headless", r.headless),
	)

	return browserCtx, nil
}

// findChrome returns the first configured Chrome binary found on PATH
func (r *Renderer) findChrome() string {
	for _, name := range r.binaries {
		if path, err := exec.LookPath(name); err == nil {
			return path
		}
	}
	return ""
}

// classify maps a chromedp failure onto the error taxonomy
func (r *Renderer) classify(callerCtx context.Context, err error) error {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return pkgerrors.NewTimeoutError(rendererName, err)
	case errors.Is(err, context.Canceled) && callerCtx.Err() != nil:
		// The caller went away mid-render; report it as this renderer's
		// timeout so the fallback policy can decide what to do next.
		return pkgerrors.NewTimeoutError(rendererName, callerCtx.Err())
	case strings.Contains(err.Error(), "executable file not found"):
		return pkgerrors.NewUnavailableError(rendererName, err)
	default:
		return pkgerrors.NewRenderError(rendererName, err)
	}
}
