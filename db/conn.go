package db

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/embeddb/embeddb/engine"
)

// Connection owns a database handle and its transaction state. It must
// be closed explicitly; the in-memory instance and any file locks are
// released on Close.
type Connection struct {
	eng   engine.Engine
	sqldb *sql.DB

	mu         sync.Mutex
	tx         *sql.Tx
	autocommit bool
	closed     bool
}

// NewConnection wraps an open database handle. The handle is owned by
// the connection from this point on.
func NewConnection(eng engine.Engine, sqldb *sql.DB) *Connection {
	return &Connection{
		eng:   eng,
		sqldb: sqldb,
	}
}

// Engine returns the engine this connection is bound to.
func (c *Connection) Engine() engine.Engine {
	return c.eng
}

// Cursor creates a new cursor bound to this connection. Cursors may be
// reused across statements; each execution replaces the previous
// result set.
func (c *Connection) Cursor() *Cursor {
	return &Cursor{conn: c}
}

// SetAutocommit toggles autocommit mode. Enabling it commits any
// pending transaction first; every subsequent statement is then durable
// as soon as it returns.
func (c *Connection) SetAutocommit(on bool) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}

	if on && c.tx != nil {
		if err := c.tx.Commit(); err != nil {
			return fmt.Errorf("failed to commit pending transaction: %w", err)
		}
		c.tx = nil
	}

	c.autocommit = on
	return nil
}

// Autocommit reports whether autocommit mode is enabled.
func (c *Connection) Autocommit() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.autocommit
}

// InTransaction reports whether a transaction is pending.
func (c *Connection) InTransaction() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.tx != nil
}

// Commit makes all pending mutations durable. With no pending
// transaction it is a no-op.
func (c *Connection) Commit() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.tx == nil {
		return nil
	}

	err := c.tx.Commit()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("commit failed: %w", err)
	}
	return nil
}

// Rollback discards all mutations since the last commit. It fails with
// ErrAutocommit while autocommit mode is enabled; with no pending
// transaction it is a no-op.
func (c *Connection) Rollback() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	if c.autocommit {
		return ErrAutocommit
	}
	if c.tx == nil {
		return nil
	}

	err := c.tx.Rollback()
	c.tx = nil
	if err != nil {
		return fmt.Errorf("rollback failed: %w", err)
	}
	return nil
}

// Close rolls back any pending transaction and releases the underlying
// handle. A second Close fails with ErrClosed.
func (c *Connection) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return ErrClosed
	}
	c.closed = true

	if c.tx != nil {
		_ = c.tx.Rollback()
		c.tx = nil
	}

	return c.sqldb.Close()
}

// QueryContext runs a query through the pending transaction when one is
// open, otherwise directly on the handle. It satisfies the queryer
// interface of scanning helpers.
func (c *Connection) QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	tx := c.tx
	c.mu.Unlock()

	if tx != nil {
		return tx.QueryContext(ctx, query, args...)
	}
	return c.sqldb.QueryContext(ctx, query, args...)
}

// beginIfNeeded opens the implicit transaction before a mutating
// statement. Caller holds mu.
func (c *Connection) beginIfNeeded() error {
	if c.autocommit || c.tx != nil {
		return nil
	}
	tx, err := c.sqldb.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	c.tx = tx
	return nil
}

// Driver calls run outside the lock so Close, Commit and Rollback stay
// reachable while a statement is in flight.

func (c *Connection) runQuery(query string, args []any) (*sql.Rows, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	tx := c.tx
	c.mu.Unlock()

	if tx != nil {
		return tx.Query(query, args...)
	}
	return c.sqldb.Query(query, args...)
}

func (c *Connection) runExec(query string, args []any) (sql.Result, error) {
	tx, err := c.execTarget()
	if err != nil {
		return nil, err
	}
	if tx != nil {
		return tx.Exec(query, args...)
	}
	return c.sqldb.Exec(query, args...)
}

func (c *Connection) prepareExec(query string) (*sql.Stmt, error) {
	tx, err := c.execTarget()
	if err != nil {
		return nil, err
	}
	if tx != nil {
		return tx.Prepare(query)
	}
	return c.sqldb.Prepare(query)
}

// execTarget opens the implicit transaction when needed and returns it,
// or nil in autocommit mode.
func (c *Connection) execTarget() (*sql.Tx, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.closed {
		return nil, ErrClosed
	}
	if err := c.beginIfNeeded(); err != nil {
		return nil, err
	}
	return c.tx, nil
}

// Tables lists the user tables visible to this connection, reading
// through the pending transaction when one is open.
func (c *Connection) Tables() ([]string, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, ErrClosed
	}
	var q engine.Querier = c.sqldb
	if c.tx != nil {
		q = c.tx
	}
	c.mu.Unlock()

	return c.eng.Tables(q)
}

// HasTable reports whether a user table exists, reading through the
// pending transaction when one is open.
func (c *Connection) HasTable(name string) (bool, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return false, ErrClosed
	}
	var q engine.Querier = c.sqldb
	if c.tx != nil {
		q = c.tx
	}
	c.mu.Unlock()

	return c.eng.HasTable(q, name)
}
