package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/nickyhof/TabDB"
	"github.com/nickyhof/TabDB/core"
	"github.com/nickyhof/TabDB/db"
	"github.com/nickyhof/TabDB/op"
	"github.com/nickyhof/TabDB/ps"
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
	instance   *TabDB.Instance
	engine     *db.Engine
	out        io.Writer
	s3Config   *db.S3Config
	remoteAuth *ps.RemoteAuth
}

func main() {
	baseDir := flag.String("baseDir", "", "Data directory (memory if empty)")
	gitUrl := flag.String("gitUrl", "", "Git URL to clone the data directory from")
	sqlFile := flag.String("sqlFile", "", "Script to execute (non-interactive)")
	userName := flag.String("name", "TabDB", "User name for Git commits")
	userEmail := flag.String("email", "cli@tabdb.local", "User email for Git commits")
	s3Region := flag.String("s3Region", "", "AWS region for .export to s3://")
	s3Endpoint := flag.String("s3Endpoint", "", "Endpoint for S3 compatible storage")
	gitToken := flag.String("gitToken", "", "Token for .push and .pull over HTTPS")
	sshKey := flag.String("sshKey", "", "SSH private key for .push and .pull")
	showVersion := flag.Bool("version", false, "Show version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("TabDB v%s\n", Version)
		return
	}

	printBanner()

	var instance *TabDB.Instance
	var err error
	if *baseDir == "" {
		fmt.Printf("%sUsing memory persistence%s\n", SuccessColor, ResetColor)
		instance, err = TabDB.OpenMemory()
	} else {
		fmt.Printf("%sUsing file persistence: %s%s\n", SuccessColor, *baseDir, ResetColor)
		instance, err = TabDB.OpenFile(*baseDir, *gitUrl)
	}
	if err != nil {
		fmt.Printf("%sError: %v%s\n", ErrorColor, err, ResetColor)
		os.Exit(1)
	}

	cli := NewCLI(instance, core.Identity{Name: *userName, Email: *userEmail}, os.Stdout)
	cli.s3Config = &db.S3Config{
		AccessKey: os.Getenv("AWS_ACCESS_KEY_ID"),
		SecretKey: os.Getenv("AWS_SECRET_ACCESS_KEY"),
		Region:    *s3Region,
		Endpoint:  *s3Endpoint,
	}
	switch {
	case *gitToken != "":
		cli.remoteAuth = &ps.RemoteAuth{Type: ps.AuthTypeToken, Token: *gitToken}
	case *sshKey != "":
		cli.remoteAuth = &ps.RemoteAuth{Type: ps.AuthTypeSSH, KeyPath: *sshKey}
	}

	if *sqlFile != "" {
		failed, err := cli.importFile(*sqlFile)
		if err != nil {
			fmt.Printf("%sError importing file: %v%s\n", ErrorColor, err, ResetColor)
			os.Exit(1)
		}
		if failed > 0 {
			os.Exit(1)
		}
		return
	}

	cli.run(os.Stdin)
}

func NewCLI(instance *TabDB.Instance, identity core.Identity, out io.Writer) *CLI {
	return &CLI{
		instance: instance,
		engine:   instance.Engine(identity),
		out:      out,
	}
}

func printBanner() {
	fmt.Println()
	fmt.Printf("%s%sTabDB v%s%s\n", BoldColor, PromptColor, Version, ResetColor)
	fmt.Println("Type .help for commands, .quit to exit")
	fmt.Println()
}

func (cli *CLI) printf(format string, args ...any) {
	fmt.Fprintf(cli.out, format, args...)
}

func (cli *CLI) fail(err error) {
	cli.printf("%s✗ Error: %v%s\n", ErrorColor, err, ResetColor)
}

func (cli *CLI) run(in io.Reader) {
	reader := bufio.NewReader(in)
	var multiLineBuffer strings.Builder

	for {
		cli.printf("%s", cli.getPrompt(multiLineBuffer.Len() > 0))

		input, err := reader.ReadString('\n')
		if err != nil && input == "" {
			cli.printf("\n%sGoodbye!%s\n", SuccessColor, ResetColor)
			return
		}
		input = strings.TrimRight(input, "\r\n")

		if strings.TrimSpace(input) == "" {
			continue
		}

		if multiLineBuffer.Len() == 0 && strings.HasPrefix(strings.TrimSpace(input), ".") {
			if quit := cli.handleCommand(input); quit {
				return
			}
			continue
		}

		// A statement may span lines; it ends at the terminating semicolon.
		multiLineBuffer.WriteString(input)
		statement := strings.TrimSpace(multiLineBuffer.String())
		if !strings.HasSuffix(statement, ";") {
			multiLineBuffer.WriteString(" ")
			continue
		}
		multiLineBuffer.Reset()

		cli.execute(statement)
	}
}

func (cli *CLI) execute(statement string) {
	result, err := cli.engine.Execute(statement)
	if err != nil {
		cli.fail(err)
		return
	}
	result.Display(cli.out)
}

func (cli *CLI) getPrompt(multiLine bool) string {
	if multiLine {
		return fmt.Sprintf("%s   ...>%s ", PromptColor, ResetColor)
	}

	dbPart := ""
	if database := cli.engine.Database(); database != "" {
		dbPart = fmt.Sprintf(" (%s)", database)
	}

	return fmt.Sprintf("%stabdb%s>%s ", PromptColor, dbPart, ResetColor)
}

// handleCommand runs a dot command and reports whether the CLI should exit.
func (cli *CLI) handleCommand(input string) bool {
	parts := strings.Fields(input)
	if len(parts) == 0 {
		return false
	}
	args := parts[1:]

	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit", ".q":
		cli.printf("%sGoodbye!%s\n", SuccessColor, ResetColor)
		return true

	case ".help", ".h", ".?":
		cli.printHelp()

	case ".databases", ".dbs":
		cli.showDatabases()

	case ".tables":
		cli.showTables(args)

	case ".history":
		cli.showHistory(args)

	case ".snapshot":
		if len(args) != 1 {
			cli.usage(".snapshot <name>")
			break
		}
		if err := cli.instance.Persistence.Snapshot(args[0], nil); err != nil {
			cli.fail(err)
			break
		}
		cli.printf("%s✓ Snapshot %s created%s\n", SuccessColor, args[0], ResetColor)

	case ".recover":
		if len(args) != 1 {
			cli.usage(".recover <name>")
			break
		}
		if err := cli.instance.Persistence.Recover(args[0]); err != nil {
			cli.fail(err)
			break
		}
		cli.printf("%s✓ Recovered snapshot %s%s\n", SuccessColor, args[0], ResetColor)

	case ".export":
		if len(args) != 2 {
			cli.usage(".export <database> <destination>")
			break
		}
		count, err := cli.engine.Export(context.Background(), args[0], args[1], cli.s3Config)
		if err != nil {
			cli.fail(err)
			break
		}
		cli.printf("%s✓ Exported %d file(s) to %s%s\n", SuccessColor, count, args[1], ResetColor)

	case ".branch":
		cli.handleBranch(args)

	case ".checkout":
		if len(args) != 1 {
			cli.usage(".checkout <branch>")
			break
		}
		if err := cli.instance.Persistence.Checkout(args[0]); err != nil {
			cli.fail(err)
			break
		}
		cli.printf("%s✓ Switched to branch %s%s\n", SuccessColor, args[0], ResetColor)

	case ".merge":
		if len(args) != 1 {
			cli.usage(".merge <branch>")
			break
		}
		result, err := cli.instance.Persistence.Merge(args[0], cli.engine.Identity)
		if err != nil {
			cli.fail(err)
			break
		}
		cli.showMerge(args[0], result)

	case ".remote":
		cli.handleRemote(args)

	case ".push":
		remote := firstOr(args, "origin")
		if err := cli.instance.Persistence.Push(remote, cli.remoteAuth); err != nil {
			cli.fail(err)
			break
		}
		cli.printf("%s✓ Pushed to %s%s\n", SuccessColor, remote, ResetColor)

	case ".pull":
		remote := firstOr(args, "origin")
		if err := cli.instance.Persistence.Pull(remote, cli.remoteAuth); err != nil {
			cli.fail(err)
			break
		}
		cli.printf("%s✓ Pulled from %s%s\n", SuccessColor, remote, ResetColor)

	case ".import":
		if len(args) != 1 {
			cli.usage(".import <file>")
			break
		}
		if _, err := cli.importFile(args[0]); err != nil {
			cli.fail(err)
		}

	case ".clear", ".cls":
		cli.printf("\033[H\033[2J")

	case ".version":
		cli.printf("TabDB version %s\n", Version)

	default:
		cli.printf("%s✗ Unknown command: %s (type .help for commands)%s\n", ErrorColor, parts[0], ResetColor)
	}

	return false
}

func (cli *CLI) usage(text string) {
	cli.printf("%s✗ Usage: %s%s\n", ErrorColor, text, ResetColor)
}

func firstOr(args []string, fallback string) string {
	if len(args) > 0 {
		return args[0]
	}
	return fallback
}

func (cli *CLI) printHelp() {
	cli.printf("\n%s%sSpecial Commands:%s\n", BoldColor, PromptColor, ResetColor)
	cli.printf("  .help, .h                   Show this help message\n")
	cli.printf("  .quit, .exit                Exit the CLI\n")
	cli.printf("  .databases                  List all databases\n")
	cli.printf("  .tables [db]                List tables in a database\n")
	cli.printf("  .history [n]                Show the last n commits\n")
	cli.printf("  .snapshot <name>            Tag the current state\n")
	cli.printf("  .recover <name>             Reset all data to a snapshot\n")
	cli.printf("  .export <db> <destination>  Copy a database to a directory or s3:// URL\n")
	cli.printf("  .branch [name]              List branches or create one at HEAD\n")
	cli.printf("  .checkout <branch>          Switch all data to a branch\n")
	cli.printf("  .merge <branch>             Merge a branch into the current one\n")
	cli.printf("  .remote [<name> <url>]      List or add Git remotes\n")
	cli.printf("  .push [remote]              Push history to a remote (default origin)\n")
	cli.printf("  .pull [remote]              Pull history from a remote (default origin)\n")
	cli.printf("  .import <file>              Execute statements from a file\n")
	cli.printf("  .clear                      Clear the screen\n")
	cli.printf("  .version                    Show version info\n")
	cli.printf("\n%s%sStatements:%s\n", BoldColor, PromptColor, ResetColor)
	cli.printf("  USE <db>;\n")
	cli.printf("  CREATE DATABASE <db>;\n")
	cli.printf("  CREATE TABLE <table> [(<column>, ...)];\n")
	cli.printf("  DROP DATABASE <db>; / DROP TABLE <table>;\n")
	cli.printf("  ALTER TABLE <table> ADD|DROP <column>;\n")
	cli.printf("  INSERT INTO <table> VALUES (<value>, ...);\n")
	cli.printf("  SELECT *|<column>, ... FROM <table> [WHERE <condition>];\n")
	cli.printf("  UPDATE <table> SET <column> = <value>, ... WHERE <condition>;\n")
	cli.printf("  DELETE FROM <table> WHERE <condition>;\n")
	cli.printf("  JOIN <table> AND <table> ON <column> AND <column>;\n\n")
}

func (cli *CLI) showDatabases() {
	databases := cli.instance.Persistence.ListDatabases()
	rows := make([][]string, len(databases))
	for i, name := range databases {
		rows[i] = []string{name}
	}
	cli.showList("database", rows)
}

func (cli *CLI) showTables(args []string) {
	database := core.NewTableName(firstOr(args, cli.engine.Database().String()))
	if database == "" {
		cli.usage(".tables <database>")
		return
	}

	databaseOp, err := op.GetDatabase(database, cli.instance.Persistence)
	if err != nil {
		cli.fail(err)
		return
	}
	tables, err := databaseOp.TableNames()
	if err != nil {
		cli.fail(err)
		return
	}
	rows := make([][]string, len(tables))
	for i, name := range tables {
		rows[i] = []string{name}
	}
	cli.showList("table", rows)
}

func (cli *CLI) showList(column string, rows [][]string) {
	table := db.NewTable(cli.out)
	table.Header([]string{column})
	table.Bulk(rows)
	table.Render()
	cli.printf("%d rows\n", len(rows))
}

func (cli *CLI) showHistory(args []string) {
	limit := 20
	if len(args) > 0 {
		n, err := strconv.Atoi(args[0])
		if err != nil || n < 0 {
			cli.usage(".history [n]")
			return
		}
		limit = n
	}

	history := cli.instance.Persistence.History(limit)
	if len(history) == 0 {
		cli.printf("No commits yet\n")
		return
	}

	table := db.NewTable(cli.out)
	table.Header([]string{"commit", "when", "author", "statement"})
	for _, txn := range history {
		table.Row([]string{
			shortId(txn.Id),
			txn.When.Format("2006-01-02 15:04:05"),
			txn.Author,
			truncate(txn.Message, 60),
		})
	}
	table.Render()
}

func shortId(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func (cli *CLI) handleBranch(args []string) {
	persistence := cli.instance.Persistence
	if len(args) == 1 {
		if err := persistence.Branch(args[0], nil); err != nil {
			cli.fail(err)
			return
		}
		cli.printf("%s✓ Created branch %s%s\n", SuccessColor, args[0], ResetColor)
		return
	}
	if len(args) > 1 {
		cli.usage(".branch [name]")
		return
	}

	branches, err := persistence.ListBranches()
	if err != nil {
		cli.fail(err)
		return
	}
	current, _ := persistence.CurrentBranch()
	for _, branch := range branches {
		marker := " "
		if branch == current {
			marker = "*"
		}
		cli.printf("%s %s\n", marker, branch)
	}
}

func (cli *CLI) showMerge(branch string, result ps.MergeResult) {
	kind := "merge commit"
	if result.FastForward {
		kind = "fast-forward"
	}
	cli.printf("%s✓ Merged %s (%s %s)%s\n", SuccessColor, branch, kind, shortId(result.Transaction.Id), ResetColor)

	for _, conflict := range result.Conflicts {
		target := conflict.Database + "." + conflict.Table
		if conflict.Id == "" {
			cli.printf("  conflict: table %s taken from one side\n", target)
			continue
		}
		if conflict.Resolved == nil {
			cli.printf("  conflict: %s row %s deleted\n", target, conflict.Id)
			continue
		}
		cli.printf("  conflict: %s row %s kept as %s\n", target, conflict.Id, strings.Join(conflict.Resolved, " | "))
	}
}

func (cli *CLI) handleRemote(args []string) {
	switch len(args) {
	case 0:
		remotes, err := cli.instance.Persistence.ListRemotes()
		if err != nil {
			cli.fail(err)
			return
		}
		if len(remotes) == 0 {
			cli.printf("No remotes configured\n")
			return
		}
		for _, remote := range remotes {
			cli.printf("  %s\t%s\n", remote.Name, strings.Join(remote.URLs, ", "))
		}
	case 2:
		if err := cli.instance.Persistence.AddRemote(args[0], args[1]); err != nil {
			cli.fail(err)
			return
		}
		cli.printf("%s✓ Added remote %s%s\n", SuccessColor, args[0], ResetColor)
	default:
		cli.usage(".remote [<name> <url>]")
	}
}

// importFile executes every statement in a script and returns how many failed.
func (cli *CLI) importFile(filename string) (int, error) {
	data, err := os.ReadFile(filename)
	if err != nil {
		return 0, fmt.Errorf("failed to read file: %w", err)
	}

	statements := splitStatements(string(data))

	successCount := 0
	errorCount := 0

	for i, statement := range statements {
		result, err := cli.engine.Execute(statement)
		if err != nil {
			cli.printf("%s[%d] ✗ %s%s\n", ErrorColor, i+1, truncate(statement, 50), ResetColor)
			cli.printf("      Error: %v\n", err)
			errorCount++
			continue
		}
		successCount++

		switch r := result.(type) {
		case db.QueryResult:
			cli.printf("%s[%d] ✓ %s (%d rows)%s\n", SuccessColor, i+1, truncate(statement, 50), r.RecordsRead, ResetColor)
			result.Display(cli.out)
		default:
			cli.printf("%s[%d] ✓ %s%s\n", SuccessColor, i+1, truncate(statement, 50), ResetColor)
		}
	}

	cli.printf("\n%s✓ Import complete: %d succeeded, %d failed%s\n",
		SuccessColor, successCount, errorCount, ResetColor)

	return errorCount, nil
}

// splitStatements splits a script into statements, each keeping its
// terminating semicolon. Lines starting with -- outside a string are comments.
func splitStatements(content string) []string {
	var statements []string
	var current strings.Builder
	inString := false

	for i := 0; i < len(content); i++ {
		ch := content[i]

		if ch == '\'' {
			inString = !inString
		}

		if !inString && ch == '-' && i+1 < len(content) && content[i+1] == '-' {
			for i < len(content) && content[i] != '\n' {
				i++
			}
			current.WriteByte(' ')
			continue
		}

		current.WriteByte(ch)

		if !inString && ch == ';' {
			if statement := strings.TrimSpace(current.String()); statement != ";" {
				statements = append(statements, statement)
			}
			current.Reset()
		}
	}

	// A trailing statement without a semicolon is still run so the
	// engine can report it.
	if statement := strings.TrimSpace(current.String()); statement != "" {
		statements = append(statements, statement)
	}

	return statements
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
