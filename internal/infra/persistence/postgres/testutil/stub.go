// Package testutil fakes just enough of a Postgres connection for the
// snapshot store: the state DDL, bucket upserts and the state select.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"io"
	"slices"
	"strings"
	"sync"
)

// StubConn records statements and keeps the state table in memory. Upserts
// issued inside a transaction only reach State when it commits.
type StubConn struct {
	Execs      []string
	State      map[string][]byte
	FailPing   bool
	FailExec   bool
	FailBegin  bool
	FailCommit bool
	Commits    int

	mu      sync.Mutex
	pending map[string][]byte
}

// NewStubDB returns a sql.DB whose every connection is conn.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{State: make(map[string][]byte)}
	return sql.OpenDB(connector{conn}), conn
}

type connector struct{ conn *StubConn }

func (c connector) Connect(context.Context) (driver.Conn, error) { return c.conn, nil }
func (c connector) Driver() driver.Driver                        { return stubDriver{c.conn} }

type stubDriver struct{ conn *StubConn }

func (d stubDriver) Open(string) (driver.Conn, error) { return d.conn, nil }

func (c *StubConn) Prepare(query string) (driver.Stmt, error) {
	return nil, errors.New("stub: prepared statements unsupported: " + query)
}

func (c *StubConn) Close() error { return nil }

func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

func (c *StubConn) Ping(context.Context) error {
	if c.FailPing {
		return errors.New("ping fail")
	}
	return nil
}

func (c *StubConn) BeginTx(context.Context, driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, errors.New("begin fail")
	}
	c.mu.Lock()
	c.pending = make(map[string][]byte)
	c.mu.Unlock()
	return stubTx{c}, nil
}

func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, errors.New("exec fail")
	}
	if !strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO STATE") {
		return driver.RowsAffected(0), nil
	}
	if len(args) != 2 {
		return nil, errors.New("stub: state upsert takes bucket and payload")
	}
	bucket, _ := args[0].Value.(string)
	payload, _ := args[1].Value.([]byte)
	target := c.State
	if c.pending != nil {
		target = c.pending
	}
	target[bucket] = slices.Clone(payload)
	return driver.RowsAffected(1), nil
}

func (c *StubConn) QueryContext(_ context.Context, query string, _ []driver.NamedValue) (driver.Rows, error) {
	if !strings.Contains(strings.ToLower(query), "from state") {
		return nil, errors.New("stub: unsupported query: " + query)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	rows := &stateRows{}
	for bucket, payload := range c.State {
		rows.buckets = append(rows.buckets, bucket)
		rows.payloads = append(rows.payloads, payload)
	}
	return rows.sorted(), nil
}

type stubTx struct{ conn *StubConn }

func (t stubTx) Commit() error {
	c := t.conn
	c.mu.Lock()
	defer c.mu.Unlock()
	pending := c.pending
	c.pending = nil
	if c.FailCommit {
		return errors.New("commit fail")
	}
	for bucket, payload := range pending {
		c.State[bucket] = payload
	}
	c.Commits++
	return nil
}

func (t stubTx) Rollback() error {
	t.conn.mu.Lock()
	t.conn.pending = nil
	t.conn.mu.Unlock()
	return nil
}

type stateRows struct {
	buckets  []string
	payloads [][]byte
	next     int
}

func (r *stateRows) sorted() *stateRows {
	idx := make([]int, len(r.buckets))
	for i := range idx {
		idx[i] = i
	}
	slices.SortFunc(idx, func(a, b int) int { return strings.Compare(r.buckets[a], r.buckets[b]) })
	out := &stateRows{}
	for _, i := range idx {
		out.buckets = append(out.buckets, r.buckets[i])
		out.payloads = append(out.payloads, r.payloads[i])
	}
	return out
}

func (r *stateRows) Columns() []string { return []string{"bucket", "payload"} }
func (r *stateRows) Close() error      { return nil }

func (r *stateRows) Next(dest []driver.Value) error {
	if r.next >= len(r.buckets) {
		return io.EOF
	}
	dest[0] = r.buckets[r.next]
	dest[1] = r.payloads[r.next]
	r.next++
	return nil
}
