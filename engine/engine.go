package engine

import (
	"database/sql"
	"errors"
	"fmt"
	"sort"
	"strings"
)

var ErrUnknownEngine = errors.New("unknown engine")

// Querier is the subset of *sql.DB / *sql.Tx the catalog helpers need.
type Querier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

// Engine describes one embedded SQL engine binding.
type Engine struct {
	// Name is the engine name used with Lookup ("duckdb", "sqlite").
	Name string

	driver        string
	memoryDSN     string
	tablesQuery   string
	hasTableQuery string
}

var registry = map[string]Engine{}

func register(e Engine) {
	registry[e.Name] = e
}

// Lookup returns the engine registered under name.
func Lookup(name string) (Engine, error) {
	e, ok := registry[strings.ToLower(strings.TrimSpace(name))]
	if !ok {
		return Engine{}, fmt.Errorf("%w: %s", ErrUnknownEngine, name)
	}
	return e, nil
}

// Names lists the registered engine names.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open opens a database handle for the given path. An empty path opens
// a transient in-memory instance whose contents vanish when the handle
// is closed.
func (e Engine) Open(path string) (*sql.DB, error) {
	dsn := path
	if dsn == "" {
		dsn = e.memoryDSN
	}

	sqldb, err := sql.Open(e.driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s database: %w", e.Name, err)
	}

	// One engine connection for the whole pool. In-memory instances are
	// per-connection, and transaction state must stay on one connection.
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)

	return sqldb, nil
}

// Tables lists the user tables in the main schema.
func (e Engine) Tables(q Querier) ([]string, error) {
	rows, err := q.Query(e.tablesQuery)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tables []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, err
		}
		tables = append(tables, name)
	}
	return tables, rows.Err()
}

// HasTable reports whether a user table with the given name exists.
func (e Engine) HasTable(q Querier, name string) (bool, error) {
	rows, err := q.Query(e.hasTableQuery, name)
	if err != nil {
		return false, err
	}
	defer rows.Close()

	var count int
	if rows.Next() {
		if err := rows.Scan(&count); err != nil {
			return false, err
		}
	}
	return count > 0, rows.Err()
}

// QuoteIdent quotes an identifier for use in statement text.
func (e Engine) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}
