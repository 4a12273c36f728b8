package config

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
	"gopkg.in/yaml.v3"
)

// DynamicConfig represents runtime-changeable limits. They apply to new
// requests only; in-flight renders keep the values they started with.
type DynamicConfig struct {
	Limits Limits `yaml:"limits"`
}

// Limits holds hot-reloadable application limits
type Limits struct {
	RateLimitBurst int `yaml:"rateLimitBurst"`
	MaxBodyBytes   int `yaml:"maxBodyBytes"`
	MaxListEntries int `yaml:"maxListEntries"`
}

// DefaultDynamicConfig returns the limits used when no dynamic file is configured
func DefaultDynamicConfig() *DynamicConfig {
	return &DynamicConfig{
		Limits: Limits{
			RateLimitBurst: 10,
			MaxBodyBytes:   1 << 20,
			MaxListEntries: 500,
		},
	}
}

// Watcher watches a yaml limits file and hot-reloads it on change
type Watcher struct {
	path     string
	watcher  *fsnotify.Watcher
	current  *DynamicConfig
	mu       sync.RWMutex
	onChange []func(*DynamicConfig)
	logger   *zap.Logger
	stopCh   chan struct{}
}

// NewWatcher creates a watcher for the given limits file
func NewWatcher(path string, logger *zap.Logger) (*Watcher, error) {
	current, err := loadDynamicConfig(path)
	if err != nil {
		return nil, fmt.Errorf("failed to load initial dynamic config: %w", err)
	}

	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("failed to create file watcher: %w", err)
	}

	// Watch the directory; editors replace files instead of writing in place
	if err := fw.Add(filepath.Dir(path)); err != nil {
		fw.Close()
		return nil, fmt.Errorf("failed to watch config directory: %w", err)
	}

	w := &Watcher{
		path:    path,
		watcher: fw,
		current: current,
		logger:  logger,
		stopCh:  make(chan struct{}),
	}

	go w.run()

	return w, nil
}

// Current returns the most recently loaded configuration
func (w *Watcher) Current() *DynamicConfig {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.current
}

// OnChange registers a callback invoked after each successful reload
func (w *Watcher) OnChange(fn func(*DynamicConfig)) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.onChange = append(w.onChange, fn)
}

// Stop terminates the watcher
func (w *Watcher) Stop() error {
	close(w.stopCh)
	return w.watcher.Close()
}

func (w *Watcher) run() {
	for {
		select {
		case <-w.stopCh:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			if filepath.Clean(event.Name) != filepath.Clean(w.path) {
				continue
			}
			if !event.Has(fsnotify.Write) && !event.Has(fsnotify.Create) {
				continue
			}
			w.reload()
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("config watcher error", zap.Error(err))
		}
	}
}

func (w *Watcher) reload() {
	updated, err := loadDynamicConfig(w.path)
	if err != nil {
		// Keep serving the previous config on a bad write
		w.logger.Error("failed to reload dynamic config", zap.String("path", w.path), zap.Error(err))
		return
	}

	w.mu.Lock()
	w.current = updated
	callbacks := make([]func(*DynamicConfig), len(w.onChange))
	copy(callbacks, w.onChange)
	w.mu.Unlock()

	w.logger.Info("dynamic config reloaded",
		zap.String("path", w.path),
		zap.Int("rateLimitBurst", updated.Limits.RateLimitBurst),
	)

	for _, fn := range callbacks {
		fn(updated)
	}
}

func loadDynamicConfig(path string) (*DynamicConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	cfg := DefaultDynamicConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
