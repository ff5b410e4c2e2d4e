// Command tablesql is an interactive REPL over the file-backed SQL-like
// database: it reads one semicolon-terminated statement at a time, runs
// it, and prints the result as a fixed-width table.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/pflag"

	"github.com/tablesql/tablesql/internal/config"
	"github.com/tablesql/tablesql/internal/executor"
)

// columnWidth is the fixed print width for each declared SQL type, taken
// from the reference CLI's table formatter.
func columnWidth(typ string) int {
	switch {
	case typ == "int":
		return 11
	case typ == "bigint":
		return 20
	case typ == "float", typ == "double":
		return 15
	case typ == "date":
		return 10
	case typ == "time":
		return 8
	case strings.HasPrefix(typ, "char(") || strings.HasPrefix(typ, "varchar("):
		open, close := strings.IndexByte(typ, '('), strings.IndexByte(typ, ')')
		if open >= 0 && close > open {
			if n, err := strconv.Atoi(typ[open+1 : close]); err == nil {
				return n
			}
		}
		return 20
	default:
		return 20
	}
}

func main() {
	dataDir := pflag.String("tables-dir", "", "directory backing table files")
	configPath := pflag.String("config", "", "optional YAML config file")
	pflag.Parse()

	cfg, err := config.Load(*configPath, pflag.CommandLine)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if *dataDir != "" {
		cfg.TablesDir = *dataDir
	}
	if err := os.MkdirAll(cfg.TablesDir, 0o755); err != nil {
		slog.Error("failed to create tables directory", "error", err)
		os.Exit(1)
	}

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          cfg.Prompt,
		HistoryFile:     historyFilePath(),
		InterruptPrompt: "^C",
		EOFPrompt:       "quit",
	})
	if err != nil {
		slog.Error("failed to start readline", "error", err)
		os.Exit(1)
	}
	defer rl.Close()

	exec := executor.New(cfg.TablesDir, cfg.FetchTimeout)
	ctx := context.Background()

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if err != nil {
			break
		}
		if buf.Len() == 0 && strings.EqualFold(strings.TrimSpace(line), "quit") {
			break
		}
		buf.WriteString(line)
		buf.WriteString(" ")
		if !strings.Contains(line, ";") {
			continue
		}
		stmt := strings.TrimSpace(buf.String())
		buf.Reset()
		if stmt == "" {
			continue
		}
		if strings.EqualFold(strings.TrimSuffix(strings.TrimSpace(stmt), ";"), "quit") {
			break
		}
		result, err := exec.ExecSQL(ctx, stmt)
		if err != nil {
			fmt.Fprintf(os.Stdout, "Error: %s\n", err.Error())
			continue
		}
		printResult(result)
	}
}

func historyFilePath() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".tablesql_history"
	}
	return home + "/.tablesql_history"
}

func printResult(r *executor.Result) {
	if r.Message != "" && len(r.Columns) == 0 {
		fmt.Println(r.Message)
		return
	}
	widths := make([]int, len(r.Columns))
	for i := range r.Columns {
		w := 20
		if i < len(r.ColumnTypes) {
			w = columnWidth(r.ColumnTypes[i])
		}
		widths[i] = w
	}
	for i, name := range r.Columns {
		fmt.Print(padRight(name, widths[i]))
	}
	fmt.Println()
	for _, row := range r.Rows {
		for i, cell := range row {
			w := 20
			if i < len(widths) {
				w = widths[i]
			}
			fmt.Print(padRight(cell, w))
		}
		fmt.Println()
	}
	fmt.Printf("(%d row(s))\n", len(r.Rows))
}

func padRight(s string, width int) string {
	if len(s) >= width {
		return s + " "
	}
	return s + strings.Repeat(" ", width-len(s))
}
