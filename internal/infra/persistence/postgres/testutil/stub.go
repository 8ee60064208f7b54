// Package testutil provides a stub database for postgres store tests. It
// understands the narrow statement shapes the catalog store issues: DDL,
// INSERT ... RETURNING id, SELECT with a single equality filter, UPDATE by
// id and DELETE with a single equality filter.
package testutil

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"fmt"
	"io"
	"strconv"
	"strings"
	"sync/atomic"
)

var stubSeq atomic.Int64

// StubConn records normalized statements for the postgres store during tests.
type StubConn struct {
	Execs      []string
	Tables     map[string][]map[string]any
	FailExec   bool
	FailPing   bool
	FailBegin  bool
	FailCommit bool
	FailTables map[string]bool

	nextID   map[string]int64
	snapshot map[string][]map[string]any
}

// NewStubDB registers a sql.DB backed by an in-memory stub connection.
func NewStubDB() (*sql.DB, *StubConn) {
	conn := &StubConn{Tables: make(map[string][]map[string]any), nextID: make(map[string]int64)}
	name := fmt.Sprintf("stubpg%d", stubSeq.Add(1))
	sql.Register(name, &stubDriver{conn: conn})
	db, err := sql.Open(name, "stub")
	if err != nil {
		panic(err)
	}
	db.SetMaxOpenConns(1)
	return db, conn
}

type stubDriver struct {
	conn *StubConn
}

func (d *stubDriver) Open(string) (driver.Conn, error) {
	return d.conn, nil
}

// Prepare implements driver.Conn.
func (c *StubConn) Prepare(string) (driver.Stmt, error) { return nil, fmt.Errorf("not implemented") }

// Close implements driver.Conn.
func (c *StubConn) Close() error { return nil }

// Begin implements driver.Conn.
func (c *StubConn) Begin() (driver.Tx, error) {
	return c.BeginTx(context.Background(), driver.TxOptions{})
}

// Ping implements driver.Pinger.
func (c *StubConn) Ping(_ context.Context) error {
	if c.FailPing {
		return fmt.Errorf("ping fail")
	}
	return nil
}

// BeginTx implements driver.ConnBeginTx. Rollback restores the tables as
// they were at BeginTx.
func (c *StubConn) BeginTx(_ context.Context, _ driver.TxOptions) (driver.Tx, error) {
	if c.FailBegin {
		return nil, fmt.Errorf("begin fail")
	}
	c.snapshot = cloneTables(c.Tables)
	return &stubTx{conn: c}, nil
}

// ExecContext implements driver.ExecerContext.
func (c *StubConn) ExecContext(_ context.Context, query string, args []driver.NamedValue) (driver.Result, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	upper := strings.ToUpper(strings.TrimSpace(query))
	switch {
	case strings.HasPrefix(upper, "CREATE "):
		return driver.RowsAffected(0), nil
	case strings.HasPrefix(upper, "UPDATE "):
		return c.update(query, args)
	case strings.HasPrefix(upper, "DELETE FROM"):
		table, col, err := parseDelete(query)
		if err != nil {
			return nil, err
		}
		if c.failing(table) {
			return nil, fmt.Errorf("exec fail for %s", table)
		}
		if len(args) == 0 {
			return nil, fmt.Errorf("missing args for delete %s", table)
		}
		target := args[0].Value
		var filtered []map[string]any
		var removed int64
		for _, row := range c.Tables[table] {
			if row[col] == target {
				removed++
				continue
			}
			filtered = append(filtered, row)
		}
		c.Tables[table] = filtered
		return driver.RowsAffected(removed), nil
	}
	return nil, fmt.Errorf("unsupported statement: %s", query)
}

// QueryContext implements driver.QueryerContext.
func (c *StubConn) QueryContext(_ context.Context, query string, args []driver.NamedValue) (driver.Rows, error) {
	if strings.HasPrefix(strings.ToUpper(strings.TrimSpace(query)), "INSERT INTO") {
		return c.insert(query, args)
	}
	sel, err := parseSelect(query)
	if err != nil {
		return nil, err
	}
	if c.failing(sel.table) {
		return nil, fmt.Errorf("query fail for %s", sel.table)
	}
	values := make([][]driver.Value, 0)
	for _, row := range c.Tables[sel.table] {
		if sel.whereCol != "" {
			if len(args) == 0 || row[sel.whereCol] != args[0].Value {
				continue
			}
		}
		vals := make([]driver.Value, len(sel.cols))
		for i, col := range sel.cols {
			if lit, err := strconv.ParseInt(col, 10, 64); err == nil {
				vals[i] = lit
				continue
			}
			vals[i] = row[col]
		}
		values = append(values, vals)
	}
	return &stubRows{cols: sel.cols, rows: values}, nil
}

func (c *StubConn) insert(query string, args []driver.NamedValue) (driver.Rows, error) {
	c.Execs = append(c.Execs, query)
	if c.FailExec {
		return nil, fmt.Errorf("exec fail")
	}
	table, cols, err := parseInsert(query)
	if err != nil {
		return nil, err
	}
	if c.failing(table) {
		return nil, fmt.Errorf("exec fail for %s", table)
	}
	if len(cols) != len(args) {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	if c.nextID == nil {
		c.nextID = make(map[string]int64)
	}
	c.nextID[table]++
	id := c.nextID[table]
	row := map[string]any{"id": id}
	for i, col := range cols {
		row[col] = args[i].Value
	}
	c.Tables[table] = append(c.Tables[table], row)
	return &stubRows{cols: []string{"id"}, rows: [][]driver.Value{{id}}}, nil
}

func (c *StubConn) update(query string, args []driver.NamedValue) (driver.Result, error) {
	lower := strings.ToLower(query)
	setIdx := strings.Index(lower, " set ")
	whereIdx := strings.Index(lower, " where ")
	if setIdx == -1 || whereIdx == -1 || whereIdx < setIdx {
		return nil, fmt.Errorf("cannot parse update: %s", query)
	}
	table := strings.TrimSpace(lower[len("update "):setIdx])
	if c.failing(table) {
		return nil, fmt.Errorf("exec fail for %s", table)
	}
	var cols []string
	for _, assignment := range strings.Split(query[setIdx+len(" set "):whereIdx], ",") {
		parts := strings.SplitN(assignment, "=", 2)
		cols = append(cols, strings.ToLower(strings.TrimSpace(parts[0])))
	}
	if len(args) != len(cols)+1 {
		return nil, fmt.Errorf("column/arg mismatch for %s", table)
	}
	target := args[len(args)-1].Value
	var affected int64
	for _, row := range c.Tables[table] {
		if row["id"] != target {
			continue
		}
		for i, col := range cols {
			row[col] = args[i].Value
		}
		affected++
	}
	return driver.RowsAffected(affected), nil
}

func (c *StubConn) failing(table string) bool {
	return c.FailTables != nil && c.FailTables[table]
}

type stubTx struct {
	conn *StubConn
}

func (t *stubTx) Commit() error {
	if t.conn.FailCommit {
		t.conn.Tables = t.conn.snapshot
		return fmt.Errorf("commit fail")
	}
	t.conn.snapshot = nil
	return nil
}

func (t *stubTx) Rollback() error {
	if t.conn.snapshot != nil {
		t.conn.Tables = t.conn.snapshot
		t.conn.snapshot = nil
	}
	return nil
}

type stubRows struct {
	cols []string
	rows [][]driver.Value
	idx  int
}

func (r *stubRows) Columns() []string { return r.cols }
func (r *stubRows) Close() error      { return nil }

func (r *stubRows) Next(dest []driver.Value) error {
	if r.idx >= len(r.rows) {
		return io.EOF
	}
	copy(dest, r.rows[r.idx])
	r.idx++
	return nil
}

func cloneTables(in map[string][]map[string]any) map[string][]map[string]any {
	out := make(map[string][]map[string]any, len(in))
	for table, rows := range in {
		cp := make([]map[string]any, 0, len(rows))
		for _, row := range rows {
			r := make(map[string]any, len(row))
			for k, v := range row {
				r[k] = v
			}
			cp = append(cp, r)
		}
		out[table] = cp
	}
	return out
}

func parseInsert(query string) (string, []string, error) {
	up := strings.ToUpper(query)
	intoIdx := strings.Index(up, "INTO ")
	if intoIdx == -1 {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	rest := strings.TrimSpace(query[intoIdx+len("INTO "):])
	open := strings.Index(rest, "(")
	closeIdx := strings.Index(rest, ")")
	if open == -1 || closeIdx == -1 || closeIdx <= open {
		return "", nil, fmt.Errorf("cannot parse insert: %s", query)
	}
	table := strings.ToLower(strings.TrimSpace(rest[:open]))
	cols := splitColumns(rest[open+1 : closeIdx])
	return table, cols, nil
}

func parseDelete(query string) (string, string, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	prefix := "delete from "
	whereToken := " where "
	if !strings.HasPrefix(lower, prefix) {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	rest := strings.TrimSpace(lower[len(prefix):])
	whereIdx := strings.Index(rest, whereToken)
	if whereIdx == -1 {
		return "", "", fmt.Errorf("cannot parse delete: %s", query)
	}
	table := strings.TrimSpace(rest[:whereIdx])
	where := strings.TrimSpace(rest[whereIdx+len(whereToken):])
	parts := strings.SplitN(where, "=", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("cannot parse delete predicate: %s", query)
	}
	return table, strings.TrimSpace(parts[0]), nil
}

type selectStmt struct {
	table    string
	cols     []string
	whereCol string
}

func parseSelect(query string) (selectStmt, error) {
	lower := strings.ToLower(strings.TrimSpace(query))
	selectPrefix := "select "
	fromToken := " from "
	if !strings.HasPrefix(lower, selectPrefix) {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	fromIdx := strings.Index(lower, fromToken)
	if fromIdx == -1 {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	stmt := selectStmt{cols: splitColumns(lower[len(selectPrefix):fromIdx])}
	rest := strings.Fields(lower[fromIdx+len(fromToken):])
	if len(rest) == 0 {
		return selectStmt{}, fmt.Errorf("cannot parse select: %s", query)
	}
	stmt.table = rest[0]
	if len(rest) >= 3 && rest[1] == "where" {
		stmt.whereCol = rest[2]
	}
	return stmt, nil
}

func splitColumns(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, part := range parts {
		out = append(out, strings.ToLower(strings.TrimSpace(part)))
	}
	return out
}
