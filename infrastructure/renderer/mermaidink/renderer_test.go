package mermaidink

import (
	"bytes"
	"compress/zlib"
	"context"
	"encoding/base64"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"mermaidview/domain/core/valueobjects"
	pkgerrors "mermaidview/pkg/errors"
)

func mustCode(t *testing.T, raw string) valueobjects.MermaidCode {
	t.Helper()
	code, err := valueobjects.NewMermaidCode(raw)
	require.NoError(t, err)
	return code
}

func decodePako(t *testing.T, encoded string) string {
	t.Helper()
	compressed, err := base64.RawURLEncoding.DecodeString(encoded)
	require.NoError(t, err)
	zr, err := zlib.NewReader(bytes.NewReader(compressed))
	require.NoError(t, err)
	defer zr.Close()
	decoded, err := io.ReadAll(zr)
	require.NoError(t, err)
	return string(decoded)
}

func TestEncodePako_RoundTrip(t *testing.T) {
	source := "graph TD\n    A[Start] --> B[End]"

	encoded, err := EncodePako(source)
	require.NoError(t, err)

	assert.NotContains(t, encoded, "=", "encoding must be unpadded")
	assert.NotContains(t, encoded, "+", "encoding must be URL safe")
	assert.NotContains(t, encoded, "/", "encoding must be URL safe")
	assert.Equal(t, source, decodePako(t, encoded))
}

func TestBuildURL_DefaultsOmitQueryParams(t *testing.T) {
	r := NewRenderer("https://mermaid.ink", 5*time.Second, zap.NewNop())
	code := mustCode(t, "graph TD; A-->B")

	target, err := r.BuildURL(code, valueobjects.DefaultRenderConfig())
	require.NoError(t, err)

	assert.True(t, strings.HasPrefix(target, "https://mermaid.ink/img/pako:"))
	assert.NotContains(t, target, "?")
}

func TestBuildURL_NonDefaultsAppearInQuery(t *testing.T) {
	r := NewRenderer("https://mermaid.ink", 5*time.Second, zap.NewNop())
	code := mustCode(t, "graph TD; A-->B")

	config, err := valueobjects.NewRenderConfig(valueobjects.RenderConfigParams{
		Width:  1024,
		Height: 768,
		Theme:  "dark",
		Scale:  2.0,
	})
	require.NoError(t, err)

	target, err := r.BuildURL(code, config)
	require.NoError(t, err)

	assert.Contains(t, target, "theme=dark")
	assert.Contains(t, target, "scale=2")
	assert.Contains(t, target, "width=1024")
	assert.Contains(t, target, "height=768")
}

func TestBuildURL_SVGPathAndTransparent(t *testing.T) {
	r := NewRenderer("https://mermaid.ink", 5*time.Second, zap.NewNop())
	code := mustCode(t, "graph TD; A-->B")

	svgConfig, err := valueobjects.SVGConfig(valueobjects.ThemeDefault)
	require.NoError(t, err)

	target, err := r.BuildURL(code, svgConfig)
	require.NoError(t, err)
	assert.Contains(t, target, "/svg/pako:")
	assert.NotContains(t, target, "bgColor", "svg output takes no background color")

	pngConfig, err := valueobjects.NewRenderConfig(valueobjects.RenderConfigParams{
		Transparent: true,
	})
	require.NoError(t, err)

	target, err = r.BuildURL(code, pngConfig)
	require.NoError(t, err)
	assert.Contains(t, target, "bgColor=%21transparent")
}

func TestRender_Success(t *testing.T) {
	payload := []byte("\x89PNG fake image bytes")
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		assert.True(t, strings.HasPrefix(req.URL.Path, "/img/pako:"))
		w.Write(payload)
	}))
	defer srv.Close()

	r := NewRenderer(srv.URL, 5*time.Second, zap.NewNop())
	data, err := r.Render(context.Background(), mustCode(t, "graph TD; A-->B"), valueobjects.DefaultRenderConfig())

	require.NoError(t, err)
	assert.Equal(t, payload, data)
}

func TestRender_BadRequestBecomesRenderError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "invalid diagram syntax", http.StatusBadRequest)
	}))
	defer srv.Close()

	r := NewRenderer(srv.URL, 5*time.Second, zap.NewNop())
	_, err := r.Render(context.Background(), mustCode(t, "graph TD; A-->B"), valueobjects.DefaultRenderConfig())

	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeRender))
	assert.Contains(t, err.Error(), "invalid diagram syntax")
}

func TestRender_OpenBreakerBecomesUnavailable(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		http.Error(w, "boom", http.StatusBadRequest)
	}))
	defer srv.Close()

	r := NewRenderer(srv.URL, 5*time.Second, zap.NewNop())
	code := mustCode(t, "graph TD; A-->B")
	config := valueobjects.DefaultRenderConfig()

	// Trip the breaker with consecutive failures.
	for i := 0; i < 5; i++ {
		_, err := r.Render(context.Background(), code, config)
		require.Error(t, err)
	}

	_, err := r.Render(context.Background(), code, config)
	require.Error(t, err)
	assert.True(t, pkgerrors.IsType(err, pkgerrors.ErrorTypeUnavailable))
}

func TestIsAvailable(t *testing.T) {
	up := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))
	defer up.Close()

	r := NewRenderer(up.URL, 5*time.Second, zap.NewNop())
	assert.True(t, r.IsAvailable(context.Background()))

	down := NewRenderer("http://127.0.0.1:1", time.Second, zap.NewNop())
	assert.False(t, down.IsAvailable(context.Background()))
}
