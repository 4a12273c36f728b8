package valueobjects

import (
	"fmt"

	"mermaidview/domain/config"
	pkgerrors "mermaidview/pkg/errors"
)

// Theme represents a Mermaid theme option
type Theme string

const (
	ThemeDefault Theme = "default"
	ThemeForest  Theme = "forest"
	ThemeDark    Theme = "dark"
	ThemeNeutral Theme = "neutral"
	ThemeBase    Theme = "base"
)

// OutputFormat represents a supported output format
type OutputFormat string

const (
	FormatPNG OutputFormat = "png"
	FormatSVG OutputFormat = "svg"
)

// ContentType returns the MIME type for the format
func (f OutputFormat) ContentType() string {
	if f == FormatSVG {
		return "image/svg+xml"
	}
	return "image/png"
}

// RenderConfig is an immutable value object describing the desired output.
// All fields are validated at construction; an invalid combination fails
// construction rather than producing a half-valid value.
type RenderConfig struct {
	width           int
	height          int
	theme           Theme
	format          OutputFormat
	scale           float64
	transparent     bool
	backgroundColor string
	padding         int
}

// RenderConfigParams carries raw construction input for RenderConfig.
// Zero values fall back to the domain defaults.
type RenderConfigParams struct {
	Width           int
	Height          int
	Theme           string
	Format          string
	Scale           float64
	Transparent     bool
	BackgroundColor string
	Padding         *int
}

// NewRenderConfig creates a RenderConfig with validation using default configuration
func NewRenderConfig(params RenderConfigParams) (RenderConfig, error) {
	return NewRenderConfigWithConfig(params, config.DefaultDomainConfig())
}

// NewRenderConfigWithConfig creates a RenderConfig with validation and configuration
func NewRenderConfigWithConfig(params RenderConfigParams, cfg *config.DomainConfig) (RenderConfig, error) {
	if cfg == nil {
		cfg = config.DefaultDomainConfig()
	}

	if params.Width == 0 {
		params.Width = cfg.DefaultWidth
	}
	if params.Height == 0 {
		params.Height = cfg.DefaultHeight
	}
	if params.Scale == 0 {
		params.Scale = cfg.DefaultScale
	}
	if params.Theme == "" {
		params.Theme = string(ThemeDefault)
	}
	if params.Format == "" {
		params.Format = string(FormatPNG)
	}
	padding := cfg.DefaultPadding
	if params.Padding != nil {
		padding = *params.Padding
	}
	backgroundColor := params.BackgroundColor
	if backgroundColor == "" {
		backgroundColor = cfg.DefaultBackgroundColor
	}
	if params.Transparent {
		backgroundColor = "transparent"
	}

	if params.Width < cfg.MinWidth || params.Width > cfg.MaxWidth {
		return RenderConfig{}, pkgerrors.NewValidationError(
			fmt.Sprintf("width must be between %d and %d", cfg.MinWidth, cfg.MaxWidth))
	}
	if params.Height < cfg.MinHeight || params.Height > cfg.MaxHeight {
		return RenderConfig{}, pkgerrors.NewValidationError(
			fmt.Sprintf("height must be between %d and %d", cfg.MinHeight, cfg.MaxHeight))
	}
	if params.Scale < cfg.MinScale || params.Scale > cfg.MaxScale {
		return RenderConfig{}, pkgerrors.NewValidationError(
			fmt.Sprintf("scale must be between %.1f and %.1f", cfg.MinScale, cfg.MaxScale))
	}
	if padding < 0 {
		return RenderConfig{}, pkgerrors.NewValidationError("padding cannot be negative")
	}

	theme := Theme(params.Theme)
	if !isValidTheme(theme) {
		return RenderConfig{}, pkgerrors.NewValidationError(
			fmt.Sprintf("unrecognized theme %q", params.Theme))
	}

	format := OutputFormat(params.Format)
	if !isValidFormat(format) {
		return RenderConfig{}, pkgerrors.NewValidationError(
			fmt.Sprintf("unrecognized output format %q", params.Format))
	}

	return RenderConfig{
		width:           params.Width,
		height:          params.Height,
		theme:           theme,
		format:          format,
		scale:           params.Scale,
		transparent:     params.Transparent,
		backgroundColor: backgroundColor,
		padding:         padding,
	}, nil
}

// DefaultRenderConfig returns a config with all defaults applied
func DefaultRenderConfig() RenderConfig {
	c, _ := NewRenderConfig(RenderConfigParams{})
	return c
}

// PNGConfig returns a config tuned for PNG export at double resolution
func PNGConfig(width, height int, theme Theme, transparent bool) (RenderConfig, error) {
	return NewRenderConfig(RenderConfigParams{
		Width:       width,
		Height:      height,
		Theme:       string(theme),
		Format:      string(FormatPNG),
		Scale:       2.0,
		Transparent: transparent,
	})
}

// SVGConfig returns a config for SVG output
func SVGConfig(theme Theme) (RenderConfig, error) {
	return NewRenderConfig(RenderConfigParams{
		Theme:  string(theme),
		Format: string(FormatSVG),
	})
}

// Width returns the output width in pixels
func (c RenderConfig) Width() int { return c.width }

// Height returns the output height in pixels
func (c RenderConfig) Height() int { return c.height }

// Theme returns the Mermaid theme
func (c RenderConfig) Theme() Theme { return c.theme }

// Format returns the output format
func (c RenderConfig) Format() OutputFormat { return c.format }

// Scale returns the scale factor
func (c RenderConfig) Scale() float64 { return c.scale }

// Transparent reports whether the background is transparent
func (c RenderConfig) Transparent() bool { return c.transparent }

// BackgroundColor returns the page background color
func (c RenderConfig) BackgroundColor() string { return c.backgroundColor }

// Padding returns the page padding in pixels
func (c RenderConfig) Padding() int { return c.padding }

// IsZero checks if the config is the zero value
func (c RenderConfig) IsZero() bool {
	return c.width == 0 && c.height == 0
}

// MermaidInitConfig returns the options passed to mermaid.initialize in the
// browser renderer.
func (c RenderConfig) MermaidInitConfig() map[string]interface{} {
	return map[string]interface{}{
		"theme":         string(c.theme),
		"startOnLoad":   true,
		"securityLevel": "loose",
		"flowchart": map[string]interface{}{
			"useMaxWidth": true,
			"htmlLabels":  true,
		},
	}
}

func isValidTheme(t Theme) bool {
	switch t {
	case ThemeDefault, ThemeForest, ThemeDark, ThemeNeutral, ThemeBase:
		return true
	default:
		return false
	}
}

func isValidFormat(f OutputFormat) bool {
	switch f {
	case FormatPNG, FormatSVG:
		return true
	default:
		return false
	}
}
