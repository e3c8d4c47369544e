package engine

import (
	_ "github.com/duckdb/duckdb-go/v2"
)

func init() {
	register(Engine{
		Name:          "duckdb",
		driver:        "duckdb",
		memoryDSN:     "",
		tablesQuery:   "SELECT table_name FROM information_schema.tables WHERE table_schema = 'main' ORDER BY table_name",
		hasTableQuery: "SELECT count(*) FROM information_schema.tables WHERE table_schema = 'main' AND table_name = ?",
	})
}
