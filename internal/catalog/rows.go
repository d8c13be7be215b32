package catalog

import (
	"database/sql"
	"fmt"
)

// Row is one result row keyed by column name, values as the driver reports
// them except that []byte is normalized to string.
type Row map[string]any

func scanRow(rows *sql.Rows, cols []string) (Row, error) {
	values := make([]any, len(cols))
	ptrs := make([]any, len(cols))
	for i := range values {
		ptrs[i] = &values[i]
	}
	if err := rows.Scan(ptrs...); err != nil {
		return nil, fmt.Errorf("scan row: %w", err)
	}
	row := make(Row, len(cols))
	for i, col := range cols {
		if b, ok := values[i].([]byte); ok {
			row[col] = string(b)
			continue
		}
		row[col] = values[i]
	}
	return row, nil
}

func collectRows(rows *sql.Rows) ([]Row, error) {
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	var all []Row
	for rows.Next() {
		row, err := scanRow(rows, cols)
		if err != nil {
			return nil, err
		}
		all = append(all, row)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate rows: %w", err)
	}
	return all, nil
}

func firstRow(rows *sql.Rows) (Row, error) {
	defer func() { _ = rows.Close() }()
	cols, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("columns: %w", err)
	}
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		return nil, nil
	}
	return scanRow(rows, cols)
}

// Cursor wraps a live *sql.Rows with name-keyed row access. The caller owns
// the cursor and must Close it.
type Cursor struct {
	rows *sql.Rows
	cols []string
}

func newCursor(rows *sql.Rows) (*Cursor, error) {
	cols, err := rows.Columns()
	if err != nil {
		_ = rows.Close()
		return nil, fmt.Errorf("columns: %w", err)
	}
	return &Cursor{rows: rows, cols: cols}, nil
}

// Columns returns the result columns in query order.
func (c *Cursor) Columns() []string {
	cols := make([]string, len(c.cols))
	copy(cols, c.cols)
	return cols
}

// Next returns the next row, or (nil, nil) once the result set is exhausted.
func (c *Cursor) Next() (Row, error) {
	if !c.rows.Next() {
		if err := c.rows.Err(); err != nil {
			return nil, fmt.Errorf("iterate rows: %w", err)
		}
		return nil, nil
	}
	return scanRow(c.rows, c.cols)
}

// Close releases the underlying rows.
func (c *Cursor) Close() error {
	return c.rows.Close()
}
