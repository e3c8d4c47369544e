// Package engine binds EmbedDB to embedded SQL engines through
// database/sql.
//
// Two engines are supported:
//   - "duckdb" via github.com/duckdb/duckdb-go/v2
//   - "sqlite" via modernc.org/sqlite
//
// Both are opened with a pool capped at a single underlying connection,
// so an in-memory instance is shared by every statement and transaction
// state lives on one engine connection.
//
//	eng, _ := engine.Lookup("sqlite")
//	sqldb, _ := eng.Open("")        // in-memory instance
//	sqldb, _ = eng.Open("app.db")   // file-backed
package engine
