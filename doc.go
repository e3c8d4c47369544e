// Package embeddb provides a cursor-style access layer over embedded
// SQL engines.
//
// EmbedDB wraps database/sql drivers for embedded engines (DuckDB,
// SQLite) behind one connection and cursor API with implicit
// transactions: the first mutating statement opens a transaction that
// stays pending until Commit or Rollback.
//
// # Quick Start
//
// Create an in-memory database:
//
//	conn, _ := embeddb.OpenMemory("duckdb")
//	defer conn.Close()
//
//	cur := conn.Cursor()
//	cur.Execute("CREATE TABLE users (id INTEGER, name VARCHAR)")
//	cur.Execute("INSERT INTO users VALUES (?, ?)", 1, "Alice")
//	conn.Commit()
//
//	cur.Execute("SELECT * FROM users WHERE id = ?", 1)
//	row, _ := cur.FetchOne()
//
// # Packages
//
// The repository is organized as:
//   - engine: named engine registry over database/sql drivers
//   - db: connections, cursors, parameter binding, transactions
//   - frame: Arrow record interchange, CSV import/export, remote I/O
//   - snap: versioned CSV snapshots in a git repository
//   - cmd/cli: interactive REPL
//   - cmd/server: TCP SQL server with optional JWT authentication
package embeddb
