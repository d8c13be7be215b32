package catalog

import (
	"context"
	"fmt"
	"strings"
	"time"
)

// RetMode selects the result shape of a call.
type RetMode string

const (
	// RetOne returns the first row only; the rest are discarded.
	RetOne RetMode = "one"
	// RetAll returns every row.
	RetAll RetMode = "all"
	// RetCursor hands the live cursor to the caller, who must Close it.
	RetCursor RetMode = "cursor"
)

// ParseRetMode maps the wire spelling of a ret option to a RetMode.
func ParseRetMode(s string) (RetMode, error) {
	switch RetMode(s) {
	case RetOne, RetAll, RetCursor:
		return RetMode(s), nil
	case "":
		return RetOne, nil
	default:
		return "", fmt.Errorf("catalog: unknown ret mode %q", s)
	}
}

// CallOptions carries invocation arguments and the desired result shape.
type CallOptions struct {
	// Args are forwarded positionally to a function. Views take none.
	Args []any
	// Ret selects the result shape; the zero value means RetOne.
	Ret RetMode
	// Filters is a raw WHERE clause appended to a view read. Placeholders
	// inside it must match the registry's placeholder style, numbered
	// from 1; Params supplies their values.
	Filters string
	Params  []any
	// OrderBy is a raw ORDER BY clause body, e.g. "amount DESC".
	OrderBy string
}

// Result holds the outcome of a call; exactly one field is populated,
// matching the requested RetMode.
type Result struct {
	Rows   []Row
	Row    Row
	Cursor *Cursor
}

// Proc is a single registered definition, callable by name.
type Proc struct {
	def      Definition
	registry *Registry
}

// Name returns the registered name.
func (p *Proc) Name() string { return p.def.Name }

// Kind returns the definition kind.
func (p *Proc) Kind() Kind { return p.def.Kind }

// SourceKey returns the source file key the definition was parsed from.
func (p *Proc) SourceKey() string { return p.def.SourceKey }

// Call executes the definition and shapes the result per opts.Ret.
// Database errors propagate wrapped; there is no retry.
func (p *Proc) Call(ctx context.Context, opts CallOptions) (*Result, error) {
	if opts.Ret == "" {
		opts.Ret = RetOne
	}
	stmt, args, err := p.buildStatement(opts)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	rows, err := p.registry.db.QueryContext(ctx, stmt, args...)
	p.registry.observe(ctx, p.def.Name, err == nil, time.Since(start))
	if err != nil {
		return nil, fmt.Errorf("catalog: call %s: %w", p.def.Name, err)
	}

	switch opts.Ret {
	case RetCursor:
		cur, err := newCursor(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: call %s: %w", p.def.Name, err)
		}
		return &Result{Cursor: cur}, nil
	case RetAll:
		all, err := collectRows(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: call %s: %w", p.def.Name, err)
		}
		return &Result{Rows: all}, nil
	default:
		row, err := firstRow(rows)
		if err != nil {
			return nil, fmt.Errorf("catalog: call %s: %w", p.def.Name, err)
		}
		return &Result{Row: row}, nil
	}
}

// All calls the definition and returns every row.
func (p *Proc) All(ctx context.Context, args ...any) ([]Row, error) {
	res, err := p.Call(ctx, CallOptions{Args: args, Ret: RetAll})
	if err != nil {
		return nil, err
	}
	return res.Rows, nil
}

// One calls the definition and returns the first row, or nil when the
// result set is empty.
func (p *Proc) One(ctx context.Context, args ...any) (Row, error) {
	res, err := p.Call(ctx, CallOptions{Args: args, Ret: RetOne})
	if err != nil {
		return nil, err
	}
	return res.Row, nil
}

// Cursor calls the definition and returns the live cursor. The caller owns
// the underlying rows and must Close the cursor.
func (p *Proc) Cursor(ctx context.Context, args ...any) (*Cursor, error) {
	res, err := p.Call(ctx, CallOptions{Args: args, Ret: RetCursor})
	if err != nil {
		return nil, err
	}
	return res.Cursor, nil
}

func (p *Proc) buildStatement(opts CallOptions) (string, []any, error) {
	switch p.def.Kind {
	case KindFunction:
		if opts.Filters != "" {
			return "", nil, fmt.Errorf("catalog: %s is a function, filters apply to views only", p.def.Name)
		}
		placeholders := make([]string, len(opts.Args))
		for i := range opts.Args {
			placeholders[i] = p.registry.placeholder(i + 1)
		}
		stmt := fmt.Sprintf("SELECT %s(%s)", p.def.Name, strings.Join(placeholders, ","))
		return stmt, opts.Args, nil
	case KindView:
		if len(opts.Args) != 0 {
			return "", nil, fmt.Errorf("catalog: view %s takes no positional arguments", p.def.Name)
		}
		stmt := "SELECT * FROM " + p.def.Name
		if filters := strings.TrimSpace(opts.Filters); filters != "" {
			stmt += " WHERE " + filters
		}
		if order := strings.TrimSpace(opts.OrderBy); order != "" {
			stmt += " ORDER BY " + order
		}
		return stmt, opts.Params, nil
	default:
		return "", nil, fmt.Errorf("catalog: %s has unknown kind %q", p.def.Name, p.def.Kind)
	}
}
