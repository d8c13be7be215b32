package catalog

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"sync"
	"time"
)

// stubConn is a minimal database/sql driver that records every query and
// replays a canned result set.
type stubConn struct {
	mu      sync.Mutex
	queries []capturedQuery

	cols []string
	data [][]driver.Value
	err  error
}

type capturedQuery struct {
	query string
	args  []driver.Value
}

func (c *stubConn) captured() []capturedQuery {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]capturedQuery, len(c.queries))
	copy(out, c.queries)
	return out
}

func (c *stubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	values := make([]driver.Value, len(args))
	for i, a := range args {
		values[i] = a.Value
	}
	c.mu.Lock()
	c.queries = append(c.queries, capturedQuery{query: query, args: values})
	c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	data := make([][]driver.Value, len(c.data))
	for i, row := range c.data {
		data[i] = append([]driver.Value(nil), row...)
	}
	return &stubRows{cols: c.cols, data: data}, nil
}

func (c *stubConn) Prepare(string) (driver.Stmt, error) {
	return nil, errors.New("prepare not supported")
}

func (c *stubConn) Close() error { return nil }

func (c *stubConn) Begin() (driver.Tx, error) {
	return nil, errors.New("transactions not supported")
}

type stubRows struct {
	cols []string
	data [][]driver.Value
	next int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.next >= len(r.data) {
		return io.EOF
	}
	copy(dest, r.data[r.next])
	r.next++
	return nil
}

type stubConnector struct{ conn *stubConn }

func (c stubConnector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c stubConnector) Driver() driver.Driver                        { return stubDriver{} }

type stubDriver struct{}

func (stubDriver) Open(string) (driver.Conn, error) { return nil, errors.New("use the connector") }

func newStubDB(conn *stubConn) *sql.DB {
	return sql.OpenDB(stubConnector{conn: conn})
}

// recordingRecorder captures Observe calls for assertions.
type recordingRecorder struct {
	mu  sync.Mutex
	ops []observedOp
}

type observedOp struct {
	name    string
	success bool
}

func (r *recordingRecorder) Observe(_ context.Context, operation string, success bool, _ time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.ops = append(r.ops, observedOp{name: operation, success: success})
}

func (r *recordingRecorder) observed() []observedOp {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]observedOp, len(r.ops))
	copy(out, r.ops)
	return out
}
