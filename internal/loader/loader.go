// Package loader wires SQL sources, the database, and the catalog together:
// it discovers definition files, applies them to the database, and populates
// the name registry from their headers.
package loader

import (
	"context"
	"database/sql"
	"fmt"

	"procstore/internal/catalog"
	"procstore/internal/ctxlog"
	"procstore/internal/source"
)

// Execer is the subset of *sql.DB the loader applies definitions through.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// Loader discovers, uploads, and registers SQL definitions.
type Loader struct {
	db       Execer
	registry *catalog.Registry
	sources  []source.Source
	split    bool

	discovered []entry
}

type entry struct {
	src  source.Source
	file source.File
}

// Option configures a Loader.
type Option func(*Loader)

// WithStatementSplitting makes Apply execute files one statement at a time,
// for drivers that reject multi-statement scripts. Splitting is aware of
// dollar-quoted function bodies.
func WithStatementSplitting(enabled bool) Option {
	return func(l *Loader) { l.split = enabled }
}

// New constructs a loader over the given database, registry, and sources.
func New(db Execer, registry *catalog.Registry, sources []source.Source, opts ...Option) *Loader {
	l := &Loader{db: db, registry: registry, sources: sources}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Discover lists definition files from every source, in source order. The
// result is cached for Apply and Populate.
func (l *Loader) Discover(ctx context.Context) ([]source.File, error) {
	l.discovered = l.discovered[:0]
	var files []source.File
	for _, src := range l.sources {
		listed, err := src.List(ctx)
		if err != nil {
			return nil, fmt.Errorf("loader: list %s source: %w", src.Driver(), err)
		}
		for _, f := range listed {
			l.discovered = append(l.discovered, entry{src: src, file: f})
			files = append(files, f)
		}
	}
	return files, nil
}

// Apply executes every discovered file against the database. Unreadable
// files are skipped with a logged warning; database errors abort.
func (l *Loader) Apply(ctx context.Context) error {
	if err := l.ensureDiscovered(ctx); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	for _, e := range l.discovered {
		data, err := e.src.Read(ctx, e.file.Key)
		if err != nil {
			logger.Warn("definition file not readable, skipping", "key", e.file.Key, "error", err)
			continue
		}
		script := string(data)
		if !l.split {
			if _, err := l.db.ExecContext(ctx, script); err != nil {
				return fmt.Errorf("loader: apply %s: %w", e.file.Key, err)
			}
			continue
		}
		for _, stmt := range SplitStatements(script) {
			if _, err := l.db.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("loader: apply %s: %w", e.file.Key, err)
			}
		}
	}
	return nil
}

// Populate parses headers from every discovered file and registers them.
func (l *Loader) Populate(ctx context.Context) error {
	if err := l.ensureDiscovered(ctx); err != nil {
		return err
	}
	logger := ctxlog.FromContext(ctx)
	for _, e := range l.discovered {
		data, err := e.src.Read(ctx, e.file.Key)
		if err != nil {
			logger.Warn("definition file not readable, skipping", "key", e.file.Key, "error", err)
			continue
		}
		for _, h := range catalog.ParseHeaders(string(data)) {
			def := catalog.Definition{Name: h.Name, Kind: h.Kind, SourceKey: e.file.Key}
			if err := l.registry.Register(def); err != nil {
				return fmt.Errorf("loader: register %s from %s: %w", h.Name, e.file.Key, err)
			}
		}
	}
	return nil
}

// Load discovers, applies, and populates in one pass.
func (l *Loader) Load(ctx context.Context) error {
	if _, err := l.Discover(ctx); err != nil {
		return err
	}
	if err := l.Apply(ctx); err != nil {
		return err
	}
	return l.Populate(ctx)
}

// Names returns the registered definition names, sorted.
func (l *Loader) Names() []string {
	return l.registry.List()
}

func (l *Loader) ensureDiscovered(ctx context.Context) error {
	if l.discovered != nil {
		return nil
	}
	_, err := l.Discover(ctx)
	return err
}
