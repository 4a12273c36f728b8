package valueobjects

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgerrors "mermaidview/pkg/errors"
)

func TestNewRenderConfig_Defaults(t *testing.T) {
	config, err := NewRenderConfig(RenderConfigParams{})
	require.NoError(t, err)

	assert.Equal(t, 800, config.Width())
	assert.Equal(t, 600, config.Height())
	assert.Equal(t, ThemeDefault, config.Theme())
	assert.Equal(t, FormatPNG, config.Format())
	assert.Equal(t, 1.0, config.Scale())
	assert.Equal(t, "white", config.BackgroundColor())
	assert.Equal(t, 20, config.Padding())
	assert.False(t, config.Transparent())
}

func TestNewRenderConfig_Validation(t *testing.T) {
	tests := []struct {
		name   string
		params RenderConfigParams
	}{
		{"width too small", RenderConfigParams{Width: 50}},
		{"width too large", RenderConfigParams{Width: 5000}},
		{"height too small", RenderConfigParams{Height: 10}},
		{"height too large", RenderConfigParams{Height: 9000}},
		{"scale too small", RenderConfigParams{Scale: 0.1}},
		{"scale too large", RenderConfigParams{Scale: 10.0}},
		{"bad theme", RenderConfigParams{Theme: "rainbow"}},
		{"bad format", RenderConfigParams{Format: "gif"}},
		{"negative padding", RenderConfigParams{Padding: intPtr(-1)}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewRenderConfig(tt.params)
			require.Error(t, err)
			assert.True(t, pkgerrors.IsValidation(err))
		})
	}
}

func TestNewRenderConfig_TransparentOverridesBackground(t *testing.T) {
	config, err := NewRenderConfig(RenderConfigParams{
		Transparent:     true,
		BackgroundColor: "red",
	})
	require.NoError(t, err)

	assert.True(t, config.Transparent())
	assert.Equal(t, "transparent", config.BackgroundColor())
}

func TestPNGConfig(t *testing.T) {
	config, err := PNGConfig(1200, 900, ThemeDark, false)
	require.NoError(t, err)

	assert.Equal(t, FormatPNG, config.Format())
	assert.Equal(t, 2.0, config.Scale())
	assert.Equal(t, 1200, config.Width())
	assert.Equal(t, ThemeDark, config.Theme())
}

func TestSVGConfig(t *testing.T) {
	config, err := SVGConfig(ThemeForest)
	require.NoError(t, err)

	assert.Equal(t, FormatSVG, config.Format())
	assert.Equal(t, "image/svg+xml", config.Format().ContentType())
}

func TestRenderConfig_IsZero(t *testing.T) {
	assert.True(t, RenderConfig{}.IsZero())
	assert.False(t, DefaultRenderConfig().IsZero())
}

func TestRenderConfig_MermaidInitConfig(t *testing.T) {
	config, err := NewRenderConfig(RenderConfigParams{Theme: "dark"})
	require.NoError(t, err)

	init := config.MermaidInitConfig()
	assert.Equal(t, "dark", init["theme"])
	assert.Equal(t, true, init["startOnLoad"])
}

func intPtr(v int) *int { return &v }
