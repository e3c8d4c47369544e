package embeddb

import (
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/engine"
)

// Open opens a database file with the named engine and returns a
// connection to it. An empty path opens an in-memory database.
func Open(engineName, path string) (*db.Connection, error) {
	eng, err := engine.Lookup(engineName)
	if err != nil {
		return nil, err
	}

	sqldb, err := eng.Open(path)
	if err != nil {
		return nil, err
	}

	return db.NewConnection(eng, sqldb), nil
}

// OpenMemory opens an in-memory database with the named engine.
func OpenMemory(engineName string) (*db.Connection, error) {
	return Open(engineName, "")
}

// Engines lists the names of the compiled-in engines.
func Engines() []string {
	return engine.Names()
}
