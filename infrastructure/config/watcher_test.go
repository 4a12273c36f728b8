package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func writeLimits(t *testing.T, path, yaml string) {
	t.Helper()
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))
}

func TestWatcher_InitialLoad(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	writeLimits(t, path, "limits:\n  rateLimitBurst: 25\n")

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	assert.Equal(t, 25, w.Current().Limits.RateLimitBurst)
	// Unset fields keep their defaults.
	assert.Equal(t, 1<<20, w.Current().Limits.MaxBodyBytes)
}

func TestWatcher_MissingFileFails(t *testing.T) {
	_, err := NewWatcher(filepath.Join(t.TempDir(), "absent.yaml"), zap.NewNop())
	assert.Error(t, err)
}

func TestWatcher_ReloadOnWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	writeLimits(t, path, "limits:\n  rateLimitBurst: 10\n")

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	changed := make(chan *DynamicConfig, 1)
	w.OnChange(func(dc *DynamicConfig) {
		select {
		case changed <- dc:
		default:
		}
	})

	writeLimits(t, path, "limits:\n  rateLimitBurst: 42\n")

	select {
	case dc := <-changed:
		assert.Equal(t, 42, dc.Limits.RateLimitBurst)
		assert.Equal(t, 42, w.Current().Limits.RateLimitBurst)
	case <-time.After(5 * time.Second):
		t.Fatal("reload callback was not invoked")
	}
}

func TestWatcher_BadWriteKeepsPreviousConfig(t *testing.T) {
	path := filepath.Join(t.TempDir(), "limits.yaml")
	writeLimits(t, path, "limits:\n  rateLimitBurst: 10\n")

	w, err := NewWatcher(path, zap.NewNop())
	require.NoError(t, err)
	defer w.Stop()

	writeLimits(t, path, "limits: [not: valid")

	// Give the watcher a moment to process the event.
	time.Sleep(300 * time.Millisecond)
	assert.Equal(t, 10, w.Current().Limits.RateLimitBurst)
}
