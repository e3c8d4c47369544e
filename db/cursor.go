package db

import (
	"database/sql"
	"fmt"

	"github.com/embeddb/embeddb/core"
)

// Cursor executes statements on its connection and iterates the most
// recent result set. Query results are fetched to completion during
// Execute, so an un-fetched result set never holds the underlying
// handle; the fetch calls walk the buffered rows forward-only, and
// re-executing the originating statement resets the position.
type Cursor struct {
	conn *Connection

	result    []core.Row
	pos       int
	columns   []string
	hasResult bool

	rowCount     int64
	lastInsertID int64
}

// Connection returns the connection this cursor is bound to.
func (cur *Cursor) Connection() *Connection {
	return cur.conn
}

// Execute submits one statement, binding params as typed literals. The
// number of params must exactly match the statement's ?-placeholder
// count. A mutating statement opens the implicit transaction; a query
// replaces the cursor's result set.
func (cur *Cursor) Execute(query string, params ...any) error {
	if err := checkPlaceholders(query, len(params)); err != nil {
		return err
	}
	cur.reset()

	args := nativeArgs(params)

	if IsMutating(query) {
		res, err := cur.conn.runExec(query, args)
		if err != nil {
			return err
		}
		cur.recordResult(res)
		return nil
	}

	rows, err := cur.conn.runQuery(query, args)
	if err != nil {
		return err
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return err
	}

	var result []core.Row
	for rows.Next() {
		row, err := scanRow(rows, columns)
		if err != nil {
			return err
		}
		result = append(result, row)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	cur.columns = columns
	cur.result = result
	cur.hasResult = true
	return nil
}

// ExecuteMany executes one mutating statement once per parameter tuple,
// in the given order. The statement is prepared once and every tuple is
// bound through it. The first failure aborts the remaining batch.
func (cur *Cursor) ExecuteMany(query string, batch [][]any) error {
	if !IsMutating(query) {
		return ErrBatchQuery
	}
	want := CountPlaceholders(query)
	for _, tuple := range batch {
		if len(tuple) != want {
			return &PlaceholderCountError{Placeholders: want, Params: len(tuple)}
		}
	}
	cur.reset()

	stmt, err := cur.conn.prepareExec(query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, tuple := range batch {
		res, err := stmt.Exec(nativeArgs(tuple)...)
		if err != nil {
			return fmt.Errorf("batch aborted at tuple %d: %w", i, err)
		}
		if n, err := res.RowsAffected(); err == nil {
			cur.rowCount += n
		}
		if id, err := res.LastInsertId(); err == nil {
			cur.lastInsertID = id
		}
	}

	return nil
}

// ExecuteScript runs multiple semicolon-separated statements in order.
// Parameters are not supported in scripts.
func (cur *Cursor) ExecuteScript(script string) error {
	for _, stmt := range SplitStatements(script) {
		if err := cur.Execute(stmt); err != nil {
			return fmt.Errorf("script aborted at %q: %w", truncateStatement(stmt), err)
		}
	}
	return nil
}

// FetchOne retrieves the next row of the result set, or a nil row at
// end-of-set.
func (cur *Cursor) FetchOne() (core.Row, error) {
	if !cur.hasResult {
		return nil, ErrNoResult
	}
	if cur.pos >= len(cur.result) {
		return nil, nil
	}
	row := cur.result[cur.pos]
	cur.pos++
	return row, nil
}

// FetchMany retrieves up to n rows, advancing the shared cursor
// position. Fewer rows are returned at end-of-set.
func (cur *Cursor) FetchMany(n int) ([]core.Row, error) {
	if !cur.hasResult {
		return nil, ErrNoResult
	}

	end := cur.pos + n
	if end < cur.pos {
		end = cur.pos
	}
	if end > len(cur.result) {
		end = len(cur.result)
	}
	out := cur.result[cur.pos:end]
	cur.pos = end
	return out, nil
}

// FetchAll retrieves all remaining rows.
func (cur *Cursor) FetchAll() ([]core.Row, error) {
	if !cur.hasResult {
		return nil, ErrNoResult
	}

	out := cur.result[cur.pos:]
	cur.pos = len(cur.result)
	return out, nil
}

// Columns returns the column names of the most recent result set.
func (cur *Cursor) Columns() []string {
	return cur.columns
}

// RowCount returns the number of rows affected by the most recent
// mutating statement or batch.
func (cur *Cursor) RowCount() int64 {
	return cur.rowCount
}

// LastInsertID returns the row id generated by the most recent insert,
// when the engine reports one.
func (cur *Cursor) LastInsertID() int64 {
	return cur.lastInsertID
}

// Close releases the cursor's result set. The cursor may be reused
// afterwards.
func (cur *Cursor) Close() error {
	cur.reset()
	return nil
}

func scanRow(rows *sql.Rows, columns []string) (core.Row, error) {
	raw := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range raw {
		ptrs[i] = &raw[i]
	}

	if err := rows.Scan(ptrs...); err != nil {
		return nil, err
	}

	row := make(core.Row, len(raw))
	for i, src := range raw {
		v, err := core.FromNative(src)
		if err != nil {
			return nil, fmt.Errorf("column %s: %w", columns[i], err)
		}
		row[i] = v
	}
	return row, nil
}

func (cur *Cursor) recordResult(res sql.Result) {
	// Engines without insert ids or affected counts report errors here;
	// the counters just stay at zero.
	if n, err := res.RowsAffected(); err == nil {
		cur.rowCount = n
	}
	if id, err := res.LastInsertId(); err == nil {
		cur.lastInsertID = id
	}
}

func (cur *Cursor) reset() {
	cur.result = nil
	cur.pos = 0
	cur.columns = nil
	cur.hasResult = false
	cur.rowCount = 0
	cur.lastInsertID = 0
}

func nativeArgs(params []any) []any {
	args := make([]any, len(params))
	for i, p := range params {
		if v, ok := p.(core.Value); ok {
			args[i] = v.Native()
			continue
		}
		args[i] = p
	}
	return args
}

func truncateStatement(s string) string {
	if len(s) <= 50 {
		return s
	}
	return s[:47] + "..."
}
