package frame

import (
	"bytes"
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/engine"
)

func openTestConn(t *testing.T) *db.Connection {
	t.Helper()

	eng, err := engine.Lookup("sqlite")
	if err != nil {
		t.Fatalf("Failed to look up engine: %v", err)
	}
	sqldb, err := eng.Open("")
	if err != nil {
		t.Fatalf("Failed to open database: %v", err)
	}
	conn := db.NewConnection(eng, sqldb)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

func seedPeople(t *testing.T, conn *db.Connection) {
	t.Helper()

	cur := conn.Cursor()
	if err := cur.ExecuteScript(`
		CREATE TABLE people (id BIGINT, name VARCHAR, score DOUBLE);
		INSERT INTO people VALUES (1, 'Alice', 9.5);
		INSERT INTO people VALUES (2, 'Bob', 7.25);
		INSERT INTO people VALUES (3, NULL, NULL);
	`); err != nil {
		t.Fatalf("Failed to seed: %v", err)
	}
	if err := conn.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
}

func fetchAll(t *testing.T, conn *db.Connection, query string) [][]string {
	t.Helper()

	cur := conn.Cursor()
	if err := cur.Execute(query); err != nil {
		t.Fatalf("Failed to query %q: %v", query, err)
	}
	rows, err := cur.FetchAll()
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	out := make([][]string, len(rows))
	for i, row := range rows {
		out[i] = row.Strings()
	}
	return out
}

func TestQuerySchemaInference(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, err := Query(conn, "SELECT * FROM people ORDER BY id")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 3 || rec.NumCols() != 3 {
		t.Fatalf("Expected 3x3 record, got %dx%d", rec.NumRows(), rec.NumCols())
	}

	schema := rec.Schema()
	if schema.Field(0).Type.Name() != "int64" {
		t.Errorf("Expected int64 id column, got %s", schema.Field(0).Type)
	}
	if schema.Field(1).Type.Name() != "utf8" {
		t.Errorf("Expected utf8 name column, got %s", schema.Field(1).Type)
	}
	if schema.Field(2).Type.Name() != "float64" {
		t.Errorf("Expected float64 score column, got %s", schema.Field(2).Type)
	}

	// NULLs preserved.
	if !rec.Column(1).IsNull(2) || !rec.Column(2).IsNull(2) {
		t.Error("Expected NULLs in third row")
	}
}

func TestWriteRoundTrip(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, err := Query(conn, "SELECT * FROM people ORDER BY id")
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rec.Release()

	if err := Write(conn, "people_copy", rec, Fail); err != nil {
		t.Fatalf("Write: %v", err)
	}

	orig := fetchAll(t, conn, "SELECT * FROM people ORDER BY id")
	copied := fetchAll(t, conn, "SELECT * FROM people_copy ORDER BY id")
	if diff := cmp.Diff(orig, copied); diff != "" {
		t.Errorf("Round trip mismatch (-orig +copy):\n%s", diff)
	}
}

func TestWritePolicyFail(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, _ := Query(conn, "SELECT * FROM people")
	defer rec.Release()

	err := Write(conn, "people", rec, Fail)
	if !errors.Is(err, ErrTableExists) {
		t.Fatalf("Expected ErrTableExists, got %v", err)
	}
}

func TestWritePolicyReplace(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, _ := Query(conn, "SELECT * FROM people WHERE id = ?", 1)
	defer rec.Release()

	if err := Write(conn, "people", rec, Replace); err != nil {
		t.Fatalf("Write: %v", err)
	}

	rows := fetchAll(t, conn, "SELECT * FROM people")
	if len(rows) != 1 {
		t.Fatalf("Expected replaced table with 1 row, got %d", len(rows))
	}
}

func TestWritePolicyAppend(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, _ := Query(conn, "SELECT * FROM people WHERE id <= ?", 2)
	defer rec.Release()

	if err := Write(conn, "people", rec, Append); err != nil {
		t.Fatalf("Write append: %v", err)
	}
	rows := fetchAll(t, conn, "SELECT * FROM people")
	if len(rows) != 5 {
		t.Fatalf("Expected 5 rows after append, got %d", len(rows))
	}

	// Append also creates a missing table.
	if err := Write(conn, "fresh", rec, Append); err != nil {
		t.Fatalf("Write append to missing table: %v", err)
	}
	if got := fetchAll(t, conn, "SELECT * FROM fresh"); len(got) != 2 {
		t.Fatalf("Expected 2 rows in fresh table, got %d", len(got))
	}
}

func TestWriteRejectsPendingTransaction(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, err := Query(conn, "SELECT * FROM people WHERE id = ?", 1)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rec.Release()

	cur := conn.Cursor()
	if err := cur.Execute("INSERT INTO people VALUES (4, 'Dave', 5.0)"); err != nil {
		t.Fatalf("Failed to insert: %v", err)
	}

	err = Write(conn, "people_copy", rec, Fail)
	if !errors.Is(err, ErrPendingTransaction) {
		t.Fatalf("Expected ErrPendingTransaction, got %v", err)
	}

	// The caller's pending mutation survives the rejected write.
	if err := conn.Commit(); err != nil {
		t.Fatalf("Failed to commit: %v", err)
	}
	rows := fetchAll(t, conn, "SELECT count(*) FROM people")
	if rows[0][0] != "4" {
		t.Errorf("Expected 4 rows after commit, got %s", rows[0][0])
	}
}

func TestParsePolicy(t *testing.T) {
	for name, want := range map[string]Policy{"fail": Fail, "REPLACE": Replace, " append ": Append} {
		got, err := ParsePolicy(name)
		if err != nil || got != want {
			t.Errorf("ParsePolicy(%q): got %v, %v", name, got, err)
		}
	}
	if _, err := ParsePolicy("upsert"); err == nil {
		t.Error("Expected error for unknown policy")
	}
}

func TestCSVRoundTrip(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, err := Query(conn, "SELECT id, name, score FROM people WHERE id <= ? ORDER BY id", 2)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rec.Release()

	var buf bytes.Buffer
	if err := EncodeCSV(&buf, rec); err != nil {
		t.Fatalf("EncodeCSV: %v", err)
	}

	decoded, err := DecodeCSV(&buf)
	if err != nil {
		t.Fatalf("DecodeCSV: %v", err)
	}
	defer decoded.Release()

	if decoded.NumRows() != 2 || decoded.NumCols() != 3 {
		t.Fatalf("Expected 2x3 record, got %dx%d", decoded.NumRows(), decoded.NumCols())
	}

	if err := Write(conn, "from_csv", decoded, Fail); err != nil {
		t.Fatalf("Write decoded record: %v", err)
	}
	rows := fetchAll(t, conn, "SELECT count(*) FROM from_csv")
	if rows[0][0] != "2" {
		t.Errorf("Expected 2 rows loaded from CSV, got %s", rows[0][0])
	}
}

func TestQueryWithValues(t *testing.T) {
	conn := openTestConn(t)
	seedPeople(t, conn)

	rec, err := Query(conn, "SELECT name FROM people WHERE id = ?", core.Integer(2))
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	defer rec.Release()

	if rec.NumRows() != 1 {
		t.Fatalf("Expected 1 row, got %d", rec.NumRows())
	}
}
