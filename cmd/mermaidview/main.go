// Command mermaidview renders Mermaid diagrams from the command line and
// can also run the HTTP server.
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"

	"mermaidview/application/services"
	"mermaidview/domain/core/valueobjects"
	"mermaidview/infrastructure/config"
	"mermaidview/infrastructure/di"
	"mermaidview/interfaces/http/rest"
)

var version = "dev"

func main() {
	if len(os.Args) < 2 {
		usage()
		os.Exit(2)
	}

	var err error
	switch os.Args[1] {
	case "render":
		err = runRender(os.Args[2:])
	case "serve":
		err = runServe(os.Args[2:])
	case "version":
		fmt.Printf("mermaidview %s\n", version)
	case "-h", "--help", "help":
		usage()
	default:
		fmt.Fprintf(os.Stderr, "unknown command %q\n\n", os.Args[1])
		usage()
		os.Exit(2)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func usage() {
	fmt.Fprintf(os.Stderr, `mermaidview renders Mermaid diagrams to PNG or SVG.

Usage:
  mermaidview render [flags] [file]   render a diagram (stdin when no file)
  mermaidview serve                   run the HTTP server
  mermaidview version                 print the version

Render flags:
  -o, -output     output file (default: derived from input name and format)
  -f, -format     png or svg (default png)
  -t, -theme      default, forest, dark, neutral or base
  -width          output width in pixels
  -height         output height in pixels
  -scale          device scale factor
  -transparent    transparent background (png only)
  -no-fallback    fail instead of falling back to mermaid.ink
`)
}

func runRender(args []string) error {
	fs := flag.NewFlagSet("render", flag.ExitOnError)
	output := fs.String("output", "", "output file path")
	fs.StringVar(output, "o", "", "output file path (shorthand)")
	format := fs.String("format", "png", "output format: png or svg")
	fs.StringVar(format, "f", "png", "output format (shorthand)")
	theme := fs.String("theme", "", "mermaid theme")
	fs.StringVar(theme, "t", "", "mermaid theme (shorthand)")
	width := fs.Int("width", 0, "output width in pixels")
	height := fs.Int("height", 0, "output height in pixels")
	scale := fs.Float64("scale", 0, "device scale factor")
	transparent := fs.Bool("transparent", false, "transparent background")
	noFallback := fs.Bool("no-fallback", false, "disable the mermaid.ink fallback")
	timeout := fs.Duration("timeout", 0, "render timeout, e.g. 45s")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if *noFallback {
		cfg.UseFallback = false
	}
	if *timeout > 0 {
		cfg.RenderTimeout = *timeout
	}
	if *theme == "" {
		*theme = cfg.DefaultTheme
	}
	// One-shot renders do not need a persistent registry.
	cfg.RegistryDriver = "memory"
	cfg.RegistryTTL = 0
	if cfg.LogLevel == "info" {
		cfg.LogLevel = "warn"
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	source, inputName, err := readSource(fs.Arg(0))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.RenderTimeout+10*time.Second)
	defer cancel()

	outPath := *output
	if outPath == "" {
		outPath = defaultOutputPath(cfg.OutputDir, inputName, *format)
	}
	if dir := filepath.Dir(outPath); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("failed to create output directory: %w", err)
		}
	}

	diagram, err := container.DiagramService.RenderAndSave(ctx, source, valueobjects.RenderConfigParams{
		Width:       *width,
		Height:      *height,
		Theme:       *theme,
		Format:      *format,
		Scale:       *scale,
		Transparent: *transparent,
	}, services.RenderOptions{Name: inputName}, func(data []byte) error {
		return os.WriteFile(outPath, data, 0o644)
	})
	if err != nil {
		return err
	}

	fmt.Printf("%s (%s, rendered by %s, %d bytes)\n",
		outPath, diagram.DiagramType(), diagram.RenderedBy(), len(diagram.Rendered()))
	return nil
}

func runServe(args []string) error {
	fs := flag.NewFlagSet("serve", flag.ExitOnError)
	addr := fs.String("addr", "", "listen address, overrides MERMAID_VIEW_ADDR")
	if err := fs.Parse(args); err != nil {
		return err
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return err
	}
	if *addr != "" {
		cfg.ServerAddress = *addr
	}

	container, err := di.NewContainer(cfg)
	if err != nil {
		return err
	}
	defer container.Close()

	router := rest.NewRouter(
		cfg,
		container.DiagramService,
		container.Metrics,
		container.RateLimiter,
		container.DynamicConfig,
		container.Logger,
	)

	srv := &http.Server{
		Addr:         cfg.ServerAddress,
		Handler:      router.Setup(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: cfg.RenderTimeout + 15*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		container.Logger.Info("starting server", zap.String("address", cfg.ServerAddress))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case <-sigChan:
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// readSource loads the Mermaid source from a file or stdin
func readSource(path string) (source, name string, err error) {
	if path == "" || path == "-" {
		data, err := io.ReadAll(os.Stdin)
		if err != nil {
			return "", "", fmt.Errorf("failed to read stdin: %w", err)
		}
		return string(data), "stdin", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	base := filepath.Base(path)
	return string(data), strings.TrimSuffix(base, filepath.Ext(base)), nil
}

// defaultOutputPath derives the output file from the input name and format
func defaultOutputPath(outputDir, inputName, format string) string {
	name := inputName
	if name == "" || name == "stdin" {
		name = "diagram"
	}
	return filepath.Join(outputDir, name+"."+format)
}
