package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/embeddb/embeddb"
	"github.com/embeddb/embeddb/core"
	"github.com/embeddb/embeddb/db"
	"github.com/embeddb/embeddb/frame"
	"github.com/embeddb/embeddb/snap"
)

const (
	PromptColor  = "\033[36m" // Cyan
	ErrorColor   = "\033[31m" // Red
	SuccessColor = "\033[32m" // Green
	ResetColor   = "\033[0m"
	BoldColor    = "\033[1m"
)

// Version is set at build time via -ldflags
var Version = "dev"

// CLI holds the CLI state
type CLI struct {
	conn        *db.Connection
	archive     *snap.Archive
	identity    core.Identity
	engineName  string
	history     []string
	historyFile string
}

func main() {
	engineName := flag.String("engine", "duckdb", "Embedded engine to use (duckdb, sqlite)")
	path := flag.String("path", "", "Database file path (in-memory if empty)")
	archiveDir := flag.String("archive", "", "Directory for snapshot archive (snapshots disabled if empty)")
	sqlFile := flag.String("sqlFile", "", "SQL file to execute (non-interactive)")
	userName := flag.String("name", "EmbedDB", "User name for snapshot commits")
	userEmail := flag.String("email", "cli@embeddb.local", "User email for snapshot commits")
	flag.Parse()

	printBanner()

	if *path == "" {
		fmt.Printf("%sUsing in-memory %s database%s\n", SuccessColor, *engineName, ResetColor)
	} else {
		fmt.Printf("%sUsing %s database: %s%s\n", SuccessColor, *engineName, *path, ResetColor)
	}

	conn, err := embeddb.Open(*engineName, *path)
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	defer conn.Close()

	var archive *snap.Archive
	if *archiveDir != "" {
		archive, err = snap.NewFileArchive(*archiveDir)
		if err != nil {
			fmt.Printf("%sError opening archive: %v%s\n", ErrorColor, err, ResetColor)
			return
		}
	}

	cli := &CLI{
		conn:        conn,
		archive:     archive,
		identity:    core.Identity{Name: *userName, Email: *userEmail},
		engineName:  *engineName,
		history:     make([]string, 0),
		historyFile: getHistoryPath(),
	}

	cli.loadHistory()

	// Execute SQL file if provided
	if *sqlFile != "" {
		err := cli.importFile(*sqlFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		return
	}

	cli.run()
}

func printBanner() {
	fmt.Println()
	bannerWidth := 39 // inner width of the banner box
	versionLine := fmt.Sprintf("EmbedDB v%s", Version)
	padding := bannerWidth - len(versionLine) - 2 // -2 for "  " margins
	if padding < 0 {
		padding = 0
	}
	leftPad := padding / 2
	rightPad := padding - leftPad

	fmt.Printf("%s%s╔═══════════════════════════════════════╗%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s║ %*s%s%*s ║%s\n", BoldColor, PromptColor, leftPad, "", versionLine, rightPad, "", ResetColor)
	fmt.Printf("%s%s║   Embedded SQL with Cursors           ║%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Printf("%s%s╚═══════════════════════════════════════╝%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println()
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) run() {
	reader := bufio.NewReader(os.Stdin)
	var multiLineBuffer strings.Builder

	for {
		// Show prompt
		prompt := cli.getPrompt(multiLineBuffer.Len() > 0)
		fmt.Print(prompt)

		// Read input
		input, err := reader.ReadString('\n')
		if err != nil {
			fmt.Printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}

		input = strings.TrimSuffix(input, "\n")
		input = strings.TrimSuffix(input, "\r")

		// Handle empty input
		if strings.TrimSpace(input) == "" {
			continue
		}

		// Check for special commands (only when not in multi-line mode)
		if multiLineBuffer.Len() == 0 && strings.HasPrefix(input, ".") {
			if cli.handleCommand(input) {
				continue
			}
		}

		// Multi-line support: accumulate until we see a semicolon
		multiLineBuffer.WriteString(input)

		// Check if the statement is complete (ends with ;)
		trimmed := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(trimmed, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}

		// Execute the complete statement
		sql := strings.TrimSuffix(trimmed, ";")
		multiLineBuffer.Reset()

		if strings.TrimSpace(sql) == "" {
			continue
		}

		// Add to history
		cli.addToHistory(sql + ";")

		cli.executeSQL(sql)
	}
}

func (cli *CLI) executeSQL(sql string) {
	// COMMIT and ROLLBACK act on the connection's pending transaction.
	switch strings.ToUpper(strings.TrimSpace(sql)) {
	case "COMMIT":
		if err := cli.conn.Commit(); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s✓ Committed%s\n", SuccessColor, ResetColor)
		}
		return
	case "ROLLBACK":
		if err := cli.conn.Rollback(); err != nil {
			fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		} else {
			fmt.Printf("%s✓ Rolled back%s\n", SuccessColor, ResetColor)
		}
		return
	}

	cur := cli.conn.Cursor()
	defer cur.Close()

	result, err := db.Run(cur, sql)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
	} else {
		result.Display()
	}
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}

	txMark := ""
	if cli.conn.InTransaction() {
		txMark = "*"
	}

	return fmt.Sprintf("%sembeddb (%s)%s>%s ", PromptColor, cli.engineName, txMark, ResetColor)
}

func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(strings.TrimSpace(input))

	if len(parts) == 0 {
		return true
	}

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		if cli.conn.InTransaction() {
			fmt.Printf("%sDiscarding pending transaction%s\n", ErrorColor, ResetColor)
		}
		fmt.Printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		cli.saveHistory()
		cli.conn.Close()
		os.Exit(0)

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".tables":
		cli.showTables()

	case ".schema":
		if len(parts) > 1 {
			cli.showSchema(parts[1])
		} else {
			fmt.Printf("%s✗ Usage: .schema <table>%s\n", ErrorColor, ResetColor)
		}

	case ".autocommit":
		cli.setAutocommit(parts[1:])

	case ".export":
		if len(parts) > 2 {
			cli.exportTable(parts[1], parts[2])
		} else {
			fmt.Printf("%s✗ Usage: .export <table> <file.csv>%s\n", ErrorColor, ResetColor)
		}

	case ".load":
		if len(parts) > 2 {
			policy := frame.Fail
			if len(parts) > 3 {
				var err error
				policy, err = frame.ParsePolicy(parts[3])
				if err != nil {
					fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
					return true
				}
			}
			cli.loadTable(parts[1], parts[2], policy)
		} else {
			fmt.Printf("%s✗ Usage: .load <file.csv> <table> [fail|replace|append]%s\n", ErrorColor, ResetColor)
		}

	case ".snapshot":
		message := "snapshot"
		if len(parts) > 1 {
			message = strings.Join(parts[1:], " ")
		}
		cli.takeSnapshot(message)

	case ".snapshots":
		cli.showSnapshots()

	case ".restore":
		if len(parts) > 1 {
			cli.restoreSnapshot(parts[1])
		} else {
			fmt.Printf("%s✗ Usage: .restore <hash>%s\n", ErrorColor, ResetColor)
		}

	case ".clear", ".cls":
		fmt.Print("\033[H\033[2J")

	case ".history":
		cli.printHistory()

	case ".version":
		fmt.Printf("EmbedDB version %s (%s engine)\n", Version, cli.engineName)

	case ".import":
		if len(parts) > 1 {
			err := cli.importFile(parts[1])
			if err != nil {
				fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
			}
		} else {
			fmt.Printf("%s✗ Usage: .import <file.sql>%s\n", ErrorColor, ResetColor)
		}

	default:
		fmt.Printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return true
}

func (cli *CLI) printHelp() {
	fmt.Println()
	fmt.Printf("%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  .help, .h               Show this help message")
	fmt.Println("  .quit, .exit            Exit the CLI")
	fmt.Println("  .tables                 List tables")
	fmt.Println("  .schema <table>         Show the columns of a table")
	fmt.Println("  .autocommit [on|off]    Show or set autocommit mode")
	fmt.Println("  .import <file>          Execute SQL statements from a file")
	fmt.Println("  .export <table> <file>  Export a table to CSV (local, file:// or s3://)")
	fmt.Println("  .load <file> <table>    Load a CSV file into a table")
	fmt.Println("  .snapshot [message]     Commit the current state to the archive")
	fmt.Println("  .snapshots              List archived snapshots")
	fmt.Println("  .restore <hash>         Restore tables from a snapshot")
	fmt.Println("  .history                Show command history")
	fmt.Println("  .clear                  Clear the screen")
	fmt.Println("  .version                Show version info")
	fmt.Println()
	fmt.Printf("%s%sSQL:%s statements end with a semicolon and use ? placeholders\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  CREATE TABLE users (id INTEGER, name VARCHAR);")
	fmt.Println("  INSERT INTO users VALUES (1, 'Alice');")
	fmt.Println("  SELECT * FROM users WHERE id = 1;")
	fmt.Println("  COMMIT; / ROLLBACK;")
	fmt.Println()
	fmt.Printf("%s%sTransactions:%s the first mutating statement opens a transaction;\n", BoldColor, PromptColor, ResetColor)
	fmt.Println("  a * in the prompt marks uncommitted changes")
	fmt.Println()
}

func (cli *CLI) showTables() {
	tables, err := cli.conn.Tables()
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	if len(tables) == 0 {
		fmt.Println("No tables")
		return
	}

	table := db.NewTable(os.Stdout)
	table.Header([]string{"Table"})
	for _, name := range tables {
		table.Row([]string{name})
	}
	table.Render()
}

func (cli *CLI) showSchema(name string) {
	cur := cli.conn.Cursor()
	defer cur.Close()

	err := cur.Execute("SELECT * FROM " + cli.conn.Engine().QuoteIdent(name) + " LIMIT 0")
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	table := db.NewTable(os.Stdout)
	table.Header([]string{"Column"})
	for _, col := range cur.Columns() {
		table.Row([]string{col})
	}
	table.Render()
}

func (cli *CLI) setAutocommit(args []string) {
	if len(args) == 0 {
		state := "off"
		if cli.conn.Autocommit() {
			state = "on"
		}
		fmt.Printf("Autocommit is %s\n", state)
		return
	}

	var err error
	switch strings.ToLower(args[0]) {
	case "on":
		err = cli.conn.SetAutocommit(true)
	case "off":
		err = cli.conn.SetAutocommit(false)
	default:
		fmt.Printf("%s✗ Usage: .autocommit [on|off]%s\n", ErrorColor, ResetColor)
		return
	}

	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
	} else {
		fmt.Printf("%s✓ Autocommit %s%s\n", SuccessColor, strings.ToLower(args[0]), ResetColor)
	}
}

func (cli *CLI) exportTable(name, path string) {
	rec, err := frame.Query(cli.conn, "SELECT * FROM "+cli.conn.Engine().QuoteIdent(name))
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	defer rec.Release()

	if err := frame.WriteCSV(path, rec, nil); err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Printf("%s✓ Exported %d rows to %s%s\n", SuccessColor, rec.NumRows(), path, ResetColor)
}

func (cli *CLI) loadTable(path, name string, policy frame.Policy) {
	rec, err := frame.ReadCSV(path, nil)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	defer rec.Release()

	if err := frame.Write(cli.conn, name, rec, policy); err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Printf("%s✓ Loaded %d rows into %s%s\n", SuccessColor, rec.NumRows(), name, ResetColor)
}

func (cli *CLI) takeSnapshot(message string) {
	if cli.archive == nil {
		fmt.Printf("%s✗ No archive configured (start with -archive <dir>)%s\n", ErrorColor, ResetColor)
		return
	}

	snapshot, err := cli.archive.Take(cli.conn, cli.identity, message)
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Printf("%s✓ Snapshot %s%s\n", SuccessColor, snapshot.Hash, ResetColor)
}

func (cli *CLI) showSnapshots() {
	if cli.archive == nil {
		fmt.Printf("%s✗ No archive configured (start with -archive <dir>)%s\n", ErrorColor, ResetColor)
		return
	}

	history, err := cli.archive.History()
	if err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}

	if len(history) == 0 {
		fmt.Println("No snapshots")
		return
	}

	table := db.NewTable(os.Stdout)
	table.Header([]string{"Hash", "When", "Author", "Message"})
	for _, s := range history {
		table.Row([]string{s.Hash[:12], s.When.Format("2006-01-02 15:04:05"), s.Author, s.Message})
	}
	table.Render()
}

func (cli *CLI) restoreSnapshot(hash string) {
	if cli.archive == nil {
		fmt.Printf("%s✗ No archive configured (start with -archive <dir>)%s\n", ErrorColor, ResetColor)
		return
	}

	if err := cli.archive.Restore(cli.conn, hash); err != nil {
		fmt.Printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
		return
	}
	fmt.Printf("%s✓ Restored snapshot %s%s\n", SuccessColor, hash, ResetColor)
}

func (cli *CLI) addToHistory(cmd string) {
	// Don't add duplicates of the last command
	if len(cli.history) > 0 && cli.history[len(cli.history)-1] == cmd {
		return
	}
	cli.history = append(cli.history, cmd)

	// Limit history size
	if len(cli.history) > 1000 {
		cli.history = cli.history[len(cli.history)-1000:]
	}
}

func (cli *CLI) printHistory() {
	if len(cli.history) == 0 {
		fmt.Println("No command history")
		return
	}

	start := 0
	if len(cli.history) > 20 {
		start = len(cli.history) - 20
	}

	for i := start; i < len(cli.history); i++ {
		fmt.Printf("  %3d  %s\n", i+1, cli.history[i])
	}
}

func getHistoryPath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ""
	}
	return filepath.Join(home, ".embeddb_history")
}

func (cli *CLI) loadHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Open(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		cli.history = append(cli.history, scanner.Text())
	}
}

func (cli *CLI) saveHistory() {
	if cli.historyFile == "" {
		return
	}

	file, err := os.Create(cli.historyFile)
	if err != nil {
		return
	}
	defer file.Close()

	// Save last 1000 entries
	start := 0
	if len(cli.history) > 1000 {
		start = len(cli.history) - 1000
	}

	for i := start; i < len(cli.history); i++ {
		_, _ = file.WriteString(cli.history[i] + "\n")
	}
}

// importFile reads and executes SQL statements from a file
func (cli *CLI) importFile(filename string) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file: %w", err)
	}

	statements := db.SplitStatements(string(data))

	cur := cli.conn.Cursor()
	defer cur.Close()

	successCount := 0
	errorCount := 0

	for i, stmt := range statements {
		result, err := db.Run(cur, stmt)
		if err != nil {
			fmt.Printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(stmt, 50), ResetColor)
			fmt.Printf("      Error: %v\n", err)
			errorCount++
			continue
		}

		successCount++
		switch r := result.(type) {
		case db.ExecResult:
			fmt.Printf("%s[%d] ✓ %s (%d affected)%s\n", SuccessColor, i+1, truncate(stmt, 50), r.RowsAffected, ResetColor)
		case db.QueryResult:
			fmt.Printf("%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(stmt, 50), r.RecordsRead, ResetColor)
		default:
			fmt.Printf("%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(stmt, 50), ResetColor)
		}
	}

	if err := cli.conn.Commit(); err != nil {
		return fmt.Errorf("failed to commit import: %w", err)
	}

	fmt.Printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return nil
}

// truncate shortens a string to max length with ellipsis
func truncate(s string, max int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	s = strings.ReplaceAll(s, "\t", " ")
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
