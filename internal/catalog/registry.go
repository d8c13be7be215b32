package catalog

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when no definition is registered under a name.
	ErrNotFound = errors.New("catalog: procedure not found")
	// ErrDuplicate is returned when a name is registered twice.
	ErrDuplicate = errors.New("catalog: procedure already registered")
)

// Querier is the subset of *sql.DB the catalog executes through.
type Querier interface {
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// PlaceholderFunc renders the 1-based i-th bind placeholder for the target
// driver ($1 for pgx, ? for sqlite and duckdb).
type PlaceholderFunc func(i int) string

// Recorder observes call outcomes. Implementations live in the
// observability package; the catalog only needs this slice of them.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Definition describes one registrable database object.
type Definition struct {
	Name string
	Kind Kind
	// SourceKey is the source file the definition was parsed from.
	SourceKey string
}

// Registry maps definition names to callables bound to a single database.
type Registry struct {
	db          Querier
	placeholder PlaceholderFunc
	recorder    Recorder

	mu    sync.RWMutex
	procs map[string]*Proc
}

// Option configures a Registry.
type Option func(*Registry)

// WithPlaceholder overrides the bind-placeholder style (default $N).
func WithPlaceholder(fn PlaceholderFunc) Option {
	return func(r *Registry) { r.placeholder = fn }
}

// WithRecorder attaches a call-metrics recorder.
func WithRecorder(rec Recorder) Option {
	return func(r *Registry) { r.recorder = rec }
}

// NewRegistry constructs an empty registry executing against db.
func NewRegistry(db Querier, opts ...Option) *Registry {
	r := &Registry{
		db:          db,
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
		procs:       make(map[string]*Proc),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Register adds a definition under its name. Names are case-sensitive.
func (r *Registry) Register(def Definition) error {
	if def.Name == "" {
		return fmt.Errorf("catalog: empty definition name")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.procs[def.Name]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicate, def.Name)
	}
	r.procs[def.Name] = &Proc{def: def, registry: r}
	return nil
}

// Get returns the callable registered under name.
func (r *Registry) Get(name string) (*Proc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	proc, ok := r.procs[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, name)
	}
	return proc, nil
}

// Contains reports whether name is registered.
func (r *Registry) Contains(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.procs[name]
	return ok
}

// List returns all registered names, sorted.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.procs))
	for name := range r.procs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Len returns the number of registered definitions.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.procs)
}

func (r *Registry) observe(ctx context.Context, name string, success bool, d time.Duration) {
	if r.recorder != nil {
		r.recorder.Observe(ctx, name, success, d)
	}
}
