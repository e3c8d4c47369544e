package db

import (
	"strconv"
	"strings"
)

// mutatingVerbs are the statement keywords that change engine-managed
// state and therefore participate in the implicit transaction.
var mutatingVerbs = map[string]bool{
	"CREATE":   true,
	"INSERT":   true,
	"UPDATE":   true,
	"DELETE":   true,
	"DROP":     true,
	"ALTER":    true,
	"REPLACE":  true,
	"TRUNCATE": true,
}

// IsMutating reports whether the statement mutates engine-managed state.
func IsMutating(query string) bool {
	return mutatingVerbs[statementVerb(query)]
}

func statementVerb(query string) string {
	fields := strings.Fields(strings.TrimSpace(query))
	if len(fields) == 0 {
		return ""
	}
	return strings.ToUpper(fields[0])
}

// CountPlaceholders counts ?-style positional placeholders, ignoring
// question marks inside string literals and -- comments.
func CountPlaceholders(query string) int {
	count := 0
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(query); i++ {
		ch := query[i]

		if !inString && ch == '-' && i+1 < len(query) && query[i+1] == '-' {
			// Skip to end of line
			for i < len(query) && query[i] != '\n' {
				i++
			}
			continue
		}

		if ch == '\'' || ch == '"' {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
			continue
		}

		if !inString && ch == '?' {
			count++
		}
	}

	return count
}

func checkPlaceholders(query string, params int) error {
	want := CountPlaceholders(query)
	if want != params {
		return &PlaceholderCountError{Placeholders: want, Params: params}
	}
	return nil
}

// PlaceholderCountError reports a placeholder/parameter count mismatch.
// It unwraps to ErrPlaceholderCount.
type PlaceholderCountError struct {
	Placeholders int
	Params       int
}

func (e *PlaceholderCountError) Error() string {
	return "parameter count mismatch: statement has " +
		strconv.Itoa(e.Placeholders) + " placeholder(s), " + strconv.Itoa(e.Params) + " parameter(s) supplied"
}

func (e *PlaceholderCountError) Unwrap() error {
	return ErrPlaceholderCount
}

// SplitStatements splits script text into individual statements on
// semicolons, skipping string literals and -- comments.
func SplitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false
	stringChar := byte(0)

	for i := 0; i < len(content); i++ {
		ch := content[i]

		// Handle string literals
		if (ch == '\'' || ch == '"') && (i == 0 || content[i-1] != '\\') {
			if !inString {
				inString = true
				stringChar = ch
			} else if ch == stringChar {
				inString = false
			}
		}

		// Handle comments
		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			// Skip to end of line
			for i < len(content) && content[i] != '\n' {
				i++
			}
			continue
		}

		// Statement separator
		if !inString && ch == ';' {
			stmt := strings.TrimSpace(current.String())
			if stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	// Handle last statement without semicolon
	stmt := strings.TrimSpace(current.String())
	if stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}
