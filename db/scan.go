package db

import (
	"context"

	"github.com/stephenafamo/scan"
	"github.com/stephenafamo/scan/stdscan"
)

// Select runs a query and maps each result row onto T by column name.
// Reads go through the connection's pending transaction when one is
// open.
func Select[T any](ctx context.Context, conn *Connection, query string, params ...any) ([]T, error) {
	if err := checkPlaceholders(query, len(params)); err != nil {
		return nil, err
	}
	return stdscan.All(ctx, conn, scan.StructMapper[T](), query, nativeArgs(params)...)
}
