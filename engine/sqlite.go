package engine

import (
	_ "modernc.org/sqlite"
)

func init() {
	register(Engine{
		Name:          "sqlite",
		driver:        "sqlite",
		memoryDSN:     ":memory:",
		tablesQuery:   "SELECT name FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' ORDER BY name",
		hasTableQuery: "SELECT count(*) FROM sqlite_master WHERE type = 'table' AND name = ?",
	})
}
