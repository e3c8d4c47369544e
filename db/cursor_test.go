package db

import (
	"errors"
	"path/filepath"
	"testing"

	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/engine"
)

func openTestConn(t *testing.T, path string) *Connection {
	t.Helper()

	eng, err := engine.Lookup("sqlite")
	if err != nil {
		t.Fatalf("Failed to look up engine: %v", err)
	}
	sqldb, err := eng.Open(path)
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	return NewConnection(eng, sqldb)
}

func setupUsers(t *testing.T, conn *Connection) *Cursor {
	t.Helper()

	cur := conn.Cursor()
	if err := cur.Execute("CREATE TABLE users (id INTEGER, name TEXT, age INTEGER)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	if err := conn.Commit(); err != nil {
		t.Fatalf("Failed to commit schema: %v", err)
	}
	return cur
}

func TestExecuteAndFetchAll(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	_ = cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, "Alice", 30)
	_ = cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 2, "Bob", 25)
	if err := conn.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	if err := cur.Execute("SELECT id, name, age FROM users ORDER BY id"); err != nil {
		t.Fatalf("Failed to select: %v", err)
	}

	rows, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("Expected 2 rows, got %d", len(rows))
	}
	if rows[0][1].Text != "Alice" || rows[1][1].Text != "Bob" {
		t.Errorf("Unexpected rows: %v, %v", rows[0].Strings(), rows[1].Strings())
	}
}

func TestPlaceholderCountMismatch(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	err := cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, "Alice")
	if !errors.Is(err, ErrPlaceholderCount) {
		t.Fatalf("Expected ErrPlaceholderCount, got %v", err)
	}

	var pce *PlaceholderCountError
	if !errors.As(err, &pce) {
		t.Fatal("Expected a PlaceholderCountError")
	}
	if pce.Placeholders != 3 || pce.Params != 2 {
		t.Errorf("Expected 3/2 mismatch, got %d/%d", pce.Placeholders, pce.Params)
	}
}

func TestCommitDurability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "durable.db")

	writer := openTestConn(t, path)
	cur := setupUsers(t, writer)

	if err := cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, "Alice", 30); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	// Pending mutation is invisible to a second connection.
	reader := openTestConn(t, path)
	defer reader.Close()

	countBefore := countUsers(t, reader)
	if countBefore != 0 {
		t.Errorf("Expected 0 rows before commit, got %d", countBefore)
	}

	if err := writer.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	if err := writer.Close(); err != nil {
		t.Fatalf("Failed to close writer: %v", err)
	}

	countAfter := countUsers(t, reader)
	if countAfter != 1 {
		t.Errorf("Expected 1 row after commit, got %d", countAfter)
	}
}

func countUsers(t *testing.T, conn *Connection) int64 {
	t.Helper()

	cur := conn.Cursor()
	if err := cur.Execute("SELECT count(*) FROM users"); err != nil {
		t.Fatalf("Failed to count: %v", err)
	}
	row, err := cur.FetchOne()
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	_ = cur.Close()
	return row[0].Int
}

func TestRollbackDiscards(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	_ = cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, "Alice", 30)
	if err := conn.Rollback(); err != nil {
		t.Fatalf("Failed to rollback: %v", err)
	}

	if got := countUsers(t, conn); got != 0 {
		t.Errorf("Expected 0 rows after rollback, got %d", got)
	}
}

func TestExecuteManyOrder(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	batch := [][]any{
		{1, "Alice", 30},
		{2, "Bob", 25},
		{3, "Charlie", 35},
	}
	if err := cur.ExecuteMany("INSERT INTO users VALUES (?, ?, ?)", batch); err != nil {
		t.Fatalf("ExecuteMany: %v", err)
	}
	if cur.RowCount() != 3 {
		t.Errorf("Expected 3 rows affected, got %d", cur.RowCount())
	}
	if err := conn.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}

	// Applied in input order: rowids follow insertion order.
	_ = cur.Execute("SELECT name FROM users ORDER BY rowid")
	rows, _ := cur.FetchAll()
	want := []string{"Alice", "Bob", "Charlie"}
	for i, w := range want {
		if rows[i][0].Text != w {
			t.Errorf("Expected %s at position %d, got %s", w, i, rows[i][0].Text)
		}
	}
}

func TestExecuteManyAbortsOnFailure(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()

	cur := conn.Cursor()
	if err := cur.Execute("CREATE TABLE items (id INTEGER PRIMARY KEY, label TEXT)"); err != nil {
		t.Fatalf("Failed to create table: %v", err)
	}
	_ = conn.Commit()

	batch := [][]any{
		{1, "a"},
		{1, "b"}, // duplicate primary key
		{3, "c"},
	}
	err := cur.ExecuteMany("INSERT INTO items VALUES (?, ?)", batch)
	if err == nil {
		t.Fatal("Expected constraint error from duplicate key")
	}
	_ = conn.Rollback()

	cur2 := conn.Cursor()
	_ = cur2.Execute("SELECT count(*) FROM items")
	row, _ := cur2.FetchOne()
	if row[0].Int != 0 {
		t.Errorf("Expected aborted batch to leave 0 rows, got %d", row[0].Int)
	}
}

func TestExecuteManyRejectsQuery(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	err := cur.ExecuteMany("SELECT * FROM users WHERE id = ?", [][]any{{1}})
	if !errors.Is(err, ErrBatchQuery) {
		t.Fatalf("Expected ErrBatchQuery, got %v", err)
	}
}

func TestFetchPartition(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	batch := [][]any{
		{1, "Alice", 30}, {2, "Bob", 25}, {3, "Charlie", 35},
		{4, "Dave", 40}, {5, "Eve", 28},
	}
	_ = cur.ExecuteMany("INSERT INTO users VALUES (?, ?, ?)", batch)
	_ = conn.Commit()

	if err := cur.Execute("SELECT id FROM users ORDER BY id"); err != nil {
		t.Fatalf("Failed to select: %v", err)
	}

	first, err := cur.FetchOne()
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if first[0].Int != 1 {
		t.Errorf("Expected id 1 first, got %d", first[0].Int)
	}

	next, err := cur.FetchMany(2)
	if err != nil {
		t.Fatalf("FetchMany: %v", err)
	}
	if len(next) != 2 || next[0][0].Int != 2 || next[1][0].Int != 3 {
		t.Errorf("Expected ids 2,3 from FetchMany, got %v", next)
	}

	rest, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rest) != 2 || rest[0][0].Int != 4 || rest[1][0].Int != 5 {
		t.Errorf("Expected ids 4,5 from FetchAll, got %v", rest)
	}

	// Exhausted: further fetches return the empty indicator, not an error.
	row, err := cur.FetchOne()
	if err != nil || row != nil {
		t.Errorf("Expected nil row at end-of-set, got %v, %v", row, err)
	}
	more, err := cur.FetchAll()
	if err != nil || len(more) != 0 {
		t.Errorf("Expected no rows after exhaustion, got %v, %v", more, err)
	}
}

func TestStatementsWithOpenResultSet(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	batch := [][]any{{1, "Alice", 30}, {2, "Bob", 25}}
	if err := cur.ExecuteMany("INSERT INTO users VALUES (?, ?, ?)", batch); err != nil {
		t.Fatalf("ExecuteMany: %v", err)
	}
	_ = conn.Commit()

	first := conn.Cursor()
	if err := first.Execute("SELECT name FROM users ORDER BY id"); err != nil {
		t.Fatalf("Failed to select: %v", err)
	}

	// An un-fetched result set must not block further statements or
	// transaction control on the shared handle.
	second := conn.Cursor()
	if err := second.Execute("SELECT count(*) FROM users"); err != nil {
		t.Fatalf("Second select with open result set: %v", err)
	}
	if err := second.Execute("INSERT INTO users VALUES (?, ?, ?)", 3, "Charlie", 35); err != nil {
		t.Fatalf("Insert with open result set: %v", err)
	}
	if err := conn.Rollback(); err != nil {
		t.Fatalf("Rollback with open result set: %v", err)
	}

	// The first cursor's result set is unaffected.
	rows, err := first.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 || rows[0][0].Text != "Alice" || rows[1][0].Text != "Bob" {
		t.Errorf("Unexpected rows: %v", rows)
	}
}

func TestFetchBeforeExecute(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()

	cur := conn.Cursor()
	if _, err := cur.FetchOne(); !errors.Is(err, ErrNoResult) {
		t.Fatalf("Expected ErrNoResult, got %v", err)
	}
}

func TestInjectionSafety(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	hostile := "Robert'); DROP TABLE users;--"
	if err := cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, hostile, 10); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	_ = conn.Commit()

	ok, err := conn.HasTable("users")
	if err != nil || !ok {
		t.Fatalf("Expected users table to survive, ok=%v err=%v", ok, err)
	}

	_ = cur.Execute("SELECT name FROM users WHERE id = ?", 1)
	row, err := cur.FetchOne()
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if row[0].Text != hostile {
		t.Errorf("Expected value stored verbatim, got %q", row[0].Text)
	}
}

func TestUseAfterClose(t *testing.T) {
	conn := openTestConn(t, "")
	cur := setupUsers(t, conn)

	if err := conn.Close(); err != nil {
		t.Fatalf("Failed to close: %v", err)
	}

	if err := conn.Close(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on double close, got %v", err)
	}
	if err := cur.Execute("SELECT 1"); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on cursor after close, got %v", err)
	}
	if err := conn.Commit(); !errors.Is(err, ErrClosed) {
		t.Errorf("Expected ErrClosed on commit after close, got %v", err)
	}
}

func TestAutocommitRollback(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	if err := conn.SetAutocommit(true); err != nil {
		t.Fatalf("SetAutocommit: %v", err)
	}

	if err := cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, "Alice", 30); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}
	if conn.InTransaction() {
		t.Error("Expected no pending transaction in autocommit mode")
	}

	if err := conn.Rollback(); !errors.Is(err, ErrAutocommit) {
		t.Fatalf("Expected ErrAutocommit, got %v", err)
	}

	// The insert was already durable.
	if got := countUsers(t, conn); got != 1 {
		t.Errorf("Expected 1 row under autocommit, got %d", got)
	}
}

func TestSetAutocommitCommitsPending(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	_ = cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, "Alice", 30)
	if !conn.InTransaction() {
		t.Fatal("Expected a pending transaction")
	}

	if err := conn.SetAutocommit(true); err != nil {
		t.Fatalf("SetAutocommit: %v", err)
	}
	if conn.InTransaction() {
		t.Error("Expected pending transaction to be committed")
	}
	if got := countUsers(t, conn); got != 1 {
		t.Errorf("Expected 1 row, got %d", got)
	}
}

func TestExecuteScript(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()

	cur := conn.Cursor()
	script := `
		CREATE TABLE logs (id INTEGER, message TEXT);
		INSERT INTO logs VALUES (1, 'first; still first');
		INSERT INTO logs VALUES (2, 'second');
	`
	if err := cur.ExecuteScript(script); err != nil {
		t.Fatalf("ExecuteScript: %v", err)
	}
	_ = conn.Commit()

	_ = cur.Execute("SELECT count(*) FROM logs")
	row, _ := cur.FetchOne()
	if row[0].Int != 2 {
		t.Errorf("Expected 2 rows from script, got %d", row[0].Int)
	}
}

func TestNullRoundTrip(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	_ = cur.Execute("INSERT INTO users VALUES (?, ?, ?)", 1, nil, core.Null())
	_ = conn.Commit()

	_ = cur.Execute("SELECT name, age FROM users WHERE id = ?", 1)
	row, err := cur.FetchOne()
	if err != nil {
		t.Fatalf("FetchOne: %v", err)
	}
	if !row[0].IsNull() || !row[1].IsNull() {
		t.Errorf("Expected NULL values, got %v", row.Strings())
	}
}

func TestRunPackagesResults(t *testing.T) {
	conn := openTestConn(t, "")
	defer conn.Close()
	cur := setupUsers(t, conn)

	res, err := Run(cur, "INSERT INTO users VALUES (?, ?, ?)", 1, "Alice", 30)
	if err != nil {
		t.Fatalf("Run insert: %v", err)
	}
	er, ok := res.(ExecResult)
	if !ok {
		t.Fatalf("Expected ExecResult, got %T", res)
	}
	if er.RowsAffected != 1 {
		t.Errorf("Expected 1 row affected, got %d", er.RowsAffected)
	}

	res, err = Run(cur, "SELECT * FROM users")
	if err != nil {
		t.Fatalf("Run select: %v", err)
	}
	qr, ok := res.(QueryResult)
	if !ok {
		t.Fatalf("Expected QueryResult, got %T", res)
	}
	if qr.RecordsRead != 1 {
		t.Errorf("Expected 1 record, got %d", qr.RecordsRead)
	}
}
