package db

import "errors"

var (
	// ErrClosed is returned by any operation on a closed connection,
	// including a second Close.
	ErrClosed = errors.New("connection is closed")

	// ErrAutocommit is returned by Rollback while autocommit mode is
	// enabled: there is never a pending transaction to discard.
	ErrAutocommit = errors.New("rollback is invalid in autocommit mode")

	// ErrPlaceholderCount is returned when the supplied parameter count
	// does not match the statement's placeholder count.
	ErrPlaceholderCount = errors.New("parameter count mismatch")

	// ErrNoResult is returned by a fetch call before any statement
	// producing a result set has been executed.
	ErrNoResult = errors.New("no result set")

	// ErrBatchQuery is returned by ExecuteMany for a statement that
	// produces rows instead of mutating state.
	ErrBatchQuery = errors.New("batch execution requires a mutating statement")
)
