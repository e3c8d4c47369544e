// Package db implements the connection and cursor layer over an
// embedded SQL engine.
//
// A Connection owns a database handle and its transaction state. A
// transaction begins implicitly before the first mutating statement
// after the last commit or rollback; its effects are not durable until
// Commit returns, and Rollback discards them.
//
// A Cursor executes statements and iterates the most recent result set.
// Parameter placeholders use the ?-style positional form, and the
// supplied parameter count must exactly match the placeholder count.
// Values are always bound by the engine, never interpolated into the
// statement text.
//
//	conn := db.NewConnection(eng, sqldb)
//	cur := conn.Cursor()
//
//	cur.Execute("CREATE TABLE users (id INTEGER, name VARCHAR)")
//	cur.Execute("INSERT INTO users VALUES (?, ?)", 1, "Alice")
//	conn.Commit()
//
//	cur.Execute("SELECT id, name FROM users ORDER BY id")
//	rows, _ := cur.FetchAll()
package db
