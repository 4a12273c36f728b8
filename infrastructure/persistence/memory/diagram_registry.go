// Package memory provides the default in-process diagram registry.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"mermaidview/domain/core/entities"
	pkgerrors "mermaidview/pkg/errors"
)

// DiagramRegistry stores rendered diagrams in memory. Insertion order is
// preserved for listing. An optional TTL sweep evicts old entries on a
// schedule; with ttl zero nothing ever expires.
type DiagramRegistry struct {
	mu       sync.RWMutex
	diagrams map[string]*entities.Diagram
	order    []string
	ttl      time.Duration
	sweeper  *cron.Cron
	onEvict  func(count int)
	logger   *zap.Logger
}

// NewDiagramRegistry creates an in-memory registry. A positive ttl starts a
// minutely eviction sweep.
func NewDiagramRegistry(ttl time.Duration, logger *zap.Logger) *DiagramRegistry {
	r := &DiagramRegistry{
		diagrams: make(map[string]*entities.Diagram),
		ttl:      ttl,
		logger:   logger,
	}

	if ttl > 0 {
		r.sweeper = cron.New()
		r.sweeper.AddFunc("@every 1m", r.sweep)
		r.sweeper.Start()
	}

	return r
}

// OnEvict registers a callback invoked with the number of entries each
// sweep evicted. Set it before traffic starts; it is read without the lock.
func (r *DiagramRegistry) OnEvict(fn func(count int)) {
	r.onEvict = fn
}

// Put inserts or replaces a diagram by id
func (r *DiagramRegistry) Put(ctx context.Context, diagram *entities.Diagram) error {
	if diagram == nil {
		return pkgerrors.NewValidationError("diagram cannot be nil")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.diagrams[diagram.ID()]; !exists {
		r.order = append(r.order, diagram.ID())
	}
	r.diagrams[diagram.ID()] = diagram
	return nil
}

// Get retrieves a diagram by id
func (r *DiagramRegistry) Get(ctx context.Context, id string) (*entities.Diagram, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	diagram, ok := r.diagrams[id]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("diagram").
			WithDetails(map[string]interface{}{"id": id})
	}
	return diagram, nil
}

// List returns all diagrams in insertion order
func (r *DiagramRegistry) List(ctx context.Context) ([]*entities.Diagram, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Diagram, 0, len(r.order))
	for _, id := range r.order {
		if diagram, ok := r.diagrams[id]; ok {
			result = append(result, diagram)
		}
	}
	return result, nil
}

// Delete removes a diagram by id
func (r *DiagramRegistry) Delete(ctx context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.diagrams[id]; !ok {
		return pkgerrors.NewNotFoundError("diagram").
			WithDetails(map[string]interface{}{"id": id})
	}

	delete(r.diagrams, id)
	for i, existing := range r.order {
		if existing == id {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Len returns the number of stored diagrams
func (r *DiagramRegistry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.diagrams)
}

// Close stops the eviction sweeper if one is running
func (r *DiagramRegistry) Close() error {
	if r.sweeper != nil {
		r.sweeper.Stop()
	}
	return nil
}

// sweep evicts diagrams older than the ttl
func (r *DiagramRegistry) sweep() {
	cutoff := time.Now().UTC().Add(-r.ttl)

	r.mu.Lock()
	kept := r.order[:0]
	evicted := 0
	for _, id := range r.order {
		diagram, ok := r.diagrams[id]
		if !ok {
			continue
		}
		if diagram.CreatedAt().Before(cutoff) {
			delete(r.diagrams, id)
			evicted++
			continue
		}
		kept = append(kept, id)
	}
	r.order = kept
	r.mu.Unlock()

	if evicted > 0 {
		if r.onEvict != nil {
			r.onEvict(evicted)
		}
		r.logger.Info("evicted expired diagrams",
			zap.Int("count", evicted),
			zap.Duration("ttl", r.ttl),
		)
	}
}
