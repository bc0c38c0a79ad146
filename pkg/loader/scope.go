package loader

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/platinummonkey/huddle/pkg/contextkeys"
)

// ErrScopeClosed is returned by loads made after the operation finished
var ErrScopeClosed = errors.New("loader scope closed")

// Options tune every loader created in a scope
type Options struct {
	// Wait is how long a batch collects keys before it is dispatched
	Wait time.Duration
	// MaxBatch caps the number of keys per fetch
	MaxBatch int
	// BatchSizes observes the number of keys per fetch, labelled by loader name
	BatchSizes *prometheus.HistogramVec
}

type scopedLoader struct {
	value interface{}
	clear func()
}

// Scope is the arena of loaders for one operation
type Scope struct {
	opts Options

	mu      sync.Mutex
	loaders map[string]scopedLoader
	closed  bool
}

// NewScope creates an empty scope
func NewScope(opts Options) *Scope {
	return &Scope{opts: opts, loaders: make(map[string]scopedLoader)}
}

// Attach stores the scope in ctx
func Attach(ctx context.Context, scope *Scope) context.Context {
	return contextkeys.WithLoaderScope(ctx, scope)
}

// FromContext returns the scope attached to ctx
func FromContext(ctx context.Context) (*Scope, bool) {
	scope, ok := ctx.Value(contextkeys.LoaderScopeKey).(*Scope)
	return scope, ok && scope != nil
}

// Close clears every cached result and rejects further loads
func (s *Scope) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, l := range s.loaders {
		l.clear()
	}
	s.loaders = nil
	s.closed = true
}

// Len reports how many loaders were created in the scope
func (s *Scope) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.loaders)
}

// getOrCreate returns the loader registered under name, building it on first use
func (s *Scope) getOrCreate(name string, build func(Options) (interface{}, func())) (interface{}, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return nil, ErrScopeClosed
	}
	if l, ok := s.loaders[name]; ok {
		return l.value, nil
	}

	value, clear := build(s.opts)
	s.loaders[name] = scopedLoader{value: value, clear: clear}
	return value, nil
}
