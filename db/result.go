package db

import (
	"fmt"
	"os"
	"time"

	"github.com/embeddb/embeddb/core"
)

type ResultType int

const (
	QueryResultType ResultType = iota
	ExecResultType
)

type Result interface {
	Type() ResultType
	Display()
}

// QueryResult holds a fully-fetched result set.
type QueryResult struct {
	Columns          []string
	Rows             []core.Row
	RecordsRead      int
	ExecutionTimeSec float64
}

// ExecResult holds the acknowledgment of a mutating statement.
type ExecResult struct {
	RowsAffected     int64
	LastInsertID     int64
	ExecutionTimeSec float64
}

func (result QueryResult) Type() ResultType {
	return QueryResultType
}

func (result ExecResult) Type() ResultType {
	return ExecResultType
}

// Run executes one statement on the cursor and packages the outcome:
// queries are fetched to completion, mutations report affected rows.
func Run(cur *Cursor, query string, params ...any) (Result, error) {
	startTime := time.Now()

	if err := cur.Execute(query, params...); err != nil {
		return nil, err
	}

	if !cur.hasResult {
		return ExecResult{
			RowsAffected:     cur.RowCount(),
			LastInsertID:     cur.LastInsertID(),
			ExecutionTimeSec: time.Since(startTime).Seconds(),
		}, nil
	}

	rows, err := cur.FetchAll()
	if err != nil {
		return nil, err
	}

	return QueryResult{
		Columns:          cur.Columns(),
		Rows:             rows,
		RecordsRead:      len(rows),
		ExecutionTimeSec: time.Since(startTime).Seconds(),
	}, nil
}

// formatDuration formats a duration in human-readable form
func formatDuration(secs float64) string {
	if secs < 0.001 {
		return "<1ms"
	} else if secs < 0.01 {
		return fmt.Sprintf("%dms", int(secs*1000))
	} else if secs < 1 {
		ms := secs * 1000
		if ms < 10 {
			return fmt.Sprintf("%.1fms", ms)
		}
		return fmt.Sprintf("%dms", int(ms))
	} else if secs < 60 {
		if secs < 10 {
			return fmt.Sprintf("%.1fs", secs)
		}
		return fmt.Sprintf("%ds", int(secs))
	} else {
		mins := int(secs / 60)
		remainSecs := int(secs) % 60
		if remainSecs == 0 {
			return fmt.Sprintf("%dm", mins)
		}
		return fmt.Sprintf("%dm%ds", mins, remainSecs)
	}
}

func (result QueryResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result ExecResult) ExecutionTime() string {
	return formatDuration(result.ExecutionTimeSec)
}

func (result QueryResult) Display() {
	// Show data table first if there is data
	if len(result.Rows) > 0 {
		data := NewTable(os.Stdout)
		data.Header(result.Columns)
		for _, row := range result.Rows {
			data.Row(row.Strings())
		}
		data.Render()
	}

	fmt.Printf("%d rows (%s)\n", result.RecordsRead, result.ExecutionTime())
}

func (result ExecResult) Display() {
	if result.RowsAffected > 0 {
		fmt.Printf("%d row(s) affected (%s)\n", result.RowsAffected, result.ExecutionTime())
	} else {
		fmt.Printf("OK (%s)\n", result.ExecutionTime())
	}
}
