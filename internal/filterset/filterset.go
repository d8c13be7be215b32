// Package filterset builds raw SQL WHERE/ORDER BY fragments from request
// query parameters using a declared set of typed filters. The output is
// meant to be appended to a view read; values are always bound through
// placeholders, never interpolated.
package filterset

import (
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FieldError reports a validation failure for a single filter field.
type FieldError struct {
	Field string
	Err   error
}

func (e *FieldError) Error() string {
	return fmt.Sprintf("filterset: field %s: %v", e.Field, e.Err)
}

func (e *FieldError) Unwrap() error { return e.Err }

// Operator suffixes accepted in parameter names (age__gte=10).
var operators = map[string]string{
	"gte":   ">=",
	"gt":    ">",
	"lte":   "<=",
	"lt":    "<",
	"exact": "=",
}

// Clause is the built SQL fragment. Where uses the configured placeholder
// style; Params supplies the placeholder values in order; OrderBy is the
// ORDER BY body ("amount DESC") or empty.
type Clause struct {
	Where   string
	OrderBy string
	Params  []any
}

// FilterSet is a declared set of typed filters.
type FilterSet struct {
	fields      []*field
	byName      map[string]*field
	orGroup     map[string]bool
	orderBy     string
	placeholder func(i int) string
}

// SetOption configures a FilterSet.
type SetOption func(*FilterSet)

// OrderBy fixes the ordering; a leading '-' means descending.
func OrderBy(spec string) SetOption {
	return func(s *FilterSet) { s.orderBy = spec }
}

// OrGroup joins the named fields' conditions with OR instead of AND. When
// the group is declared but no grouped field appears in the request, the
// group collapses to (TRUE).
func OrGroup(names ...string) SetOption {
	return func(s *FilterSet) {
		for _, n := range names {
			s.orGroup[n] = true
		}
	}
}

// Placeholder overrides the bind-placeholder style (default $N).
func Placeholder(fn func(i int) string) SetOption {
	return func(s *FilterSet) { s.placeholder = fn }
}

// New constructs an empty FilterSet.
func New(opts ...SetOption) *FilterSet {
	s := &FilterSet{
		byName:      make(map[string]*field),
		orGroup:     make(map[string]bool),
		placeholder: func(i int) string { return fmt.Sprintf("$%d", i) },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

type field struct {
	name    string
	mapTo   string
	def     any
	convert func(raw string) (any, error)
}

func (f *field) column() string {
	if f.mapTo != "" {
		return f.mapTo
	}
	return f.name
}

// FieldOption configures a single filter field.
type FieldOption func(*fieldConfig)

type fieldConfig struct {
	mapTo     string
	def       any
	maxLength int
	min, max  *float64
	layouts   []string
}

// MapTo uses col as the SQL column name instead of the field name.
func MapTo(col string) FieldOption {
	return func(c *fieldConfig) { c.mapTo = col }
}

// Default applies value as an equality condition when the field is absent
// from the request.
func Default(value any) FieldOption {
	return func(c *fieldConfig) { c.def = value }
}

// MaxLength truncates string values to n bytes.
func MaxLength(n int) FieldOption {
	return func(c *fieldConfig) { c.maxLength = n }
}

// Min rejects values below v.
func Min(v float64) FieldOption {
	return func(c *fieldConfig) { c.min = &v }
}

// Max rejects values above v.
func Max(v float64) FieldOption {
	return func(c *fieldConfig) { c.max = &v }
}

// Layouts sets accepted time layouts for Time fields
// (default RFC3339 and "2006-01-02").
func Layouts(layouts ...string) FieldOption {
	return func(c *fieldConfig) { c.layouts = layouts }
}

func applyOptions(opts []FieldOption) fieldConfig {
	var cfg fieldConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}

func (c fieldConfig) checkRange(v float64) error {
	if c.max != nil && v > *c.max {
		return fmt.Errorf("value can not be greater than %v", *c.max)
	}
	if c.min != nil && v < *c.min {
		return fmt.Errorf("value can not be less than %v", *c.min)
	}
	return nil
}

// String declares a string filter.
func (s *FilterSet) String(name string, opts ...FieldOption) {
	cfg := applyOptions(opts)
	maxLen := cfg.maxLength
	if maxLen == 0 {
		maxLen = 255
	}
	s.add(name, cfg, func(raw string) (any, error) {
		if len(raw) > maxLen {
			raw = raw[:maxLen]
		}
		return raw, nil
	})
}

// Int declares an integer filter.
func (s *FilterSet) Int(name string, opts ...FieldOption) {
	cfg := applyOptions(opts)
	s.add(name, cfg, func(raw string) (any, error) {
		v, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not an integer", raw)
		}
		if err := cfg.checkRange(float64(v)); err != nil {
			return nil, err
		}
		return v, nil
	})
}

// Decimal declares a fixed-point numeric filter. The value is validated as
// a number but forwarded as its original string so the database keeps full
// precision.
func (s *FilterSet) Decimal(name string, opts ...FieldOption) {
	cfg := applyOptions(opts)
	s.add(name, cfg, func(raw string) (any, error) {
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, fmt.Errorf("%q is not a number", raw)
		}
		if err := cfg.checkRange(v); err != nil {
			return nil, err
		}
		return raw, nil
	})
}

// Time declares a timestamp filter.
func (s *FilterSet) Time(name string, opts ...FieldOption) {
	cfg := applyOptions(opts)
	layouts := cfg.layouts
	if len(layouts) == 0 {
		layouts = []string{time.RFC3339, "2006-01-02"}
	}
	s.add(name, cfg, func(raw string) (any, error) {
		for _, layout := range layouts {
			if t, err := time.Parse(layout, raw); err == nil {
				return t, nil
			}
		}
		return nil, fmt.Errorf("%q does not match any accepted time layout", raw)
	})
}

func (s *FilterSet) add(name string, cfg fieldConfig, convert func(string) (any, error)) {
	f := &field{name: name, mapTo: cfg.mapTo, def: cfg.def, convert: convert}
	s.fields = append(s.fields, f)
	s.byName[name] = f
}

type condition struct {
	sql      string // column + operator; placeholder appended at render time
	param    any
	hasParam bool
}

// Build assembles the clause for the given query parameters. Parameters
// that match no declared filter are ignored; declared filters with invalid
// values return a *FieldError.
func (s *FilterSet) Build(values url.Values) (Clause, error) {
	var andConds, orConds []condition
	for _, f := range s.fields {
		conds, present, err := s.conditionsFor(f, values)
		if err != nil {
			return Clause{}, err
		}
		if !present && f.def != nil {
			conds = []condition{{sql: f.column() + " =", param: f.def, hasParam: true}}
		}
		if s.orGroup[f.name] {
			orConds = append(orConds, conds...)
		} else {
			andConds = append(andConds, conds...)
		}
	}

	var parts []string
	var params []any
	n := 0
	render := func(c condition) string {
		if !c.hasParam {
			return c.sql
		}
		n++
		params = append(params, c.param)
		return c.sql + " " + s.placeholder(n)
	}

	for _, c := range andConds {
		parts = append(parts, render(c))
	}
	where := strings.Join(parts, " AND ")

	if len(s.orGroup) > 0 {
		var orParts []string
		for _, c := range orConds {
			orParts = append(orParts, render(c))
		}
		or := strings.Join(orParts, " OR ")
		if or == "" {
			or = "TRUE"
		}
		if where != "" {
			where += " AND (" + or + ")"
		} else {
			where = "(" + or + ")"
		}
	}

	return Clause{Where: where, OrderBy: s.renderOrderBy(), Params: params}, nil
}

func (s *FilterSet) conditionsFor(f *field, values url.Values) ([]condition, bool, error) {
	var keys []string
	for key := range values {
		name, _, _ := strings.Cut(key, "__")
		if name == f.name {
			keys = append(keys, key)
		}
	}
	if len(keys) == 0 {
		return nil, false, nil
	}
	sort.Strings(keys)

	var conds []condition
	for _, key := range keys {
		_, op, hasOp := strings.Cut(key, "__")
		if !hasOp {
			op = "exact"
		}
		raw := values.Get(key)
		if op == "isnull" {
			cond, err := isNullCondition(f.column(), raw)
			if err != nil {
				return nil, true, &FieldError{Field: f.name, Err: err}
			}
			conds = append(conds, cond)
			continue
		}
		sqlOp, ok := operators[op]
		if !ok {
			return nil, true, &FieldError{Field: f.name, Err: fmt.Errorf("unknown operator %q", op)}
		}
		value, err := f.convert(raw)
		if err != nil {
			return nil, true, &FieldError{Field: f.name, Err: err}
		}
		conds = append(conds, condition{sql: f.column() + " " + sqlOp, param: value, hasParam: true})
	}
	return conds, true, nil
}

func isNullCondition(column, raw string) (condition, error) {
	switch strings.ToLower(raw) {
	case "true":
		return condition{sql: column + " IS NULL"}, nil
	case "false":
		return condition{sql: column + " IS NOT NULL"}, nil
	default:
		return condition{}, fmt.Errorf("%q is not a valid isnull value", raw)
	}
}

func (s *FilterSet) renderOrderBy() string {
	if s.orderBy == "" {
		return ""
	}
	direction := "ASC"
	fieldName := s.orderBy
	if strings.HasPrefix(fieldName, "-") {
		direction = "DESC"
		fieldName = fieldName[1:]
	}
	if f, ok := s.byName[fieldName]; ok {
		fieldName = f.column()
	}
	return fieldName + " " + direction
}
