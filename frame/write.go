package frame

import (
	"errors"
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/embeddb/embeddb/db"
)

var (
	ErrTableExists        = errors.New("destination table already exists")
	ErrPendingTransaction = errors.New("connection has a pending transaction; commit or roll back first")
)

// Policy decides what happens when the destination table already
// exists.
type Policy int

const (
	// Fail aborts the write with ErrTableExists.
	Fail Policy = iota
	// Replace drops the existing table and recreates it from the
	// record's schema.
	Replace
	// Append inserts into the existing table, creating it if missing.
	Append
)

func (p Policy) String() string {
	switch p {
	case Fail:
		return "fail"
	case Replace:
		return "replace"
	case Append:
		return "append"
	default:
		return "unknown"
	}
}

// ParsePolicy parses a policy name ("fail", "replace", "append").
func ParsePolicy(name string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "fail":
		return Fail, nil
	case "replace":
		return Replace, nil
	case "append":
		return Append, nil
	default:
		return Fail, fmt.Errorf("unknown write policy: %s", name)
	}
}

// Write loads a record into the named table, row order preserved, in a
// transaction of its own that is committed before returning. On any
// failure that transaction is rolled back and the destination is
// untouched. A connection with a pending transaction is rejected with
// ErrPendingTransaction, so the rollback can never discard unrelated
// mutations.
func Write(conn *db.Connection, table string, rec arrow.Record, policy Policy) error {
	if conn.InTransaction() {
		return ErrPendingTransaction
	}

	exists, err := conn.HasTable(table)
	if err != nil {
		return err
	}

	if exists && policy == Fail {
		return fmt.Errorf("%w: %s", ErrTableExists, table)
	}

	cur := conn.Cursor()
	defer cur.Close()

	quoted := conn.Engine().QuoteIdent(table)

	if exists && policy == Replace {
		if err := cur.Execute("DROP TABLE " + quoted); err != nil {
			_ = conn.Rollback()
			return err
		}
		exists = false
	}

	if !exists {
		ddl, err := createTableDDL(conn, table, rec.Schema())
		if err != nil {
			_ = conn.Rollback()
			return err
		}
		if err := cur.Execute(ddl); err != nil {
			_ = conn.Rollback()
			return err
		}
	}

	batch, err := recordTuples(rec)
	if err != nil {
		_ = conn.Rollback()
		return err
	}

	if len(batch) > 0 {
		insert := insertStatement(quoted, int(rec.NumCols()))
		if err := cur.ExecuteMany(insert, batch); err != nil {
			_ = conn.Rollback()
			return err
		}
	}

	return conn.Commit()
}

func createTableDDL(conn *db.Connection, table string, schema *arrow.Schema) (string, error) {
	cols := make([]string, len(schema.Fields()))
	for i, field := range schema.Fields() {
		sqlType, err := sqlColumnType(field.Type)
		if err != nil {
			return "", fmt.Errorf("column %s: %w", field.Name, err)
		}
		cols[i] = conn.Engine().QuoteIdent(field.Name) + " " + sqlType
	}
	return "CREATE TABLE " + conn.Engine().QuoteIdent(table) + " (" + strings.Join(cols, ", ") + ")", nil
}

func sqlColumnType(t arrow.DataType) (string, error) {
	switch t.ID() {
	case arrow.INT64:
		return "BIGINT", nil
	case arrow.FLOAT64:
		return "DOUBLE", nil
	case arrow.STRING:
		return "VARCHAR", nil
	case arrow.BINARY:
		return "BLOB", nil
	case arrow.BOOL:
		return "BOOLEAN", nil
	case arrow.TIMESTAMP:
		return "TIMESTAMP", nil
	default:
		return "", fmt.Errorf("unsupported arrow type %s", t)
	}
}

func insertStatement(quotedTable string, cols int) string {
	marks := make([]string, cols)
	for i := range marks {
		marks[i] = "?"
	}
	return "INSERT INTO " + quotedTable + " VALUES (" + strings.Join(marks, ", ") + ")"
}

func recordTuples(rec arrow.Record) ([][]any, error) {
	rows := int(rec.NumRows())
	cols := int(rec.NumCols())

	batch := make([][]any, rows)
	for r := 0; r < rows; r++ {
		tuple := make([]any, cols)
		for c := 0; c < cols; c++ {
			v, err := recordValue(rec.Column(c), r)
			if err != nil {
				return nil, fmt.Errorf("column %s: %w", rec.ColumnName(c), err)
			}
			tuple[c] = v
		}
		batch[r] = tuple
	}
	return batch, nil
}
