package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	humanize "github.com/dustin/go-humanize"
	"github.com/spf13/cobra"

	"github.com/openblacklist/blacklist-etl/internal/database"
	"github.com/openblacklist/blacklist-etl/internal/model"
)

const defaultHistoryLimit = 20

// NewHistoryCmd creates the history command.
func NewHistoryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded runs",
		Long: `History lists the runs recorded by "blacklist-etl run", newest first.

With --issue, it instead lists every recorded outcome of one issue across
runs, which shows when and why a report was skipped.

Examples:
  # Last 20 runs
  blacklist-etl history

  # Last 5 runs as JSON
  blacklist-etl history -n 5 --json

  # Outcomes of issue #123
  blacklist-etl history --issue 123`,
		Args: cobra.NoArgs,
		RunE: runHistoryCmd,
	}

	cmd.Flags().StringP("config", "c", "", "Configuration file path")
	cmd.Flags().String("dir", "", "History directory (default: from configuration)")
	cmd.Flags().IntP("limit", "n", defaultHistoryLimit, "Maximum number of runs to list (0 lists all)")
	cmd.Flags().Int("issue", 0, "List the outcomes of this issue number instead of runs")
	cmd.Flags().BoolP("json", "j", false, "Output JSON")

	return cmd
}

func runHistoryCmd(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	dir, err := flags.GetString("dir")
	if err != nil {
		return err
	}
	if dir == "" {
		configPath, err := flags.GetString("config")
		if err != nil {
			return err
		}
		cfg, err := loadConfig(configPath, os.Getenv)
		if err != nil {
			return err
		}
		dir = cfg.HistoryDir
	}
	limit, err := flags.GetInt("limit")
	if err != nil {
		return err
	}
	issue, err := flags.GetInt("issue")
	if err != nil {
		return err
	}
	jsonOut, err := flags.GetBool("json")
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()

	if _, err := os.Stat(filepath.Join(dir, database.FileName)); errors.Is(err, fs.ErrNotExist) {
		if jsonOut {
			fmt.Fprintln(out, "[]")
			return nil
		}
		fmt.Fprintln(out, "No runs recorded yet.")
		return nil
	}

	db, err := database.Open(dir, database.Options{CreateIfNotExists: false, EnableWAL: true})
	if err != nil {
		return fmt.Errorf("failed to open history: %w", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if issue > 0 {
		outcomes, err := db.IssueHistory(ctx, issue)
		if err != nil {
			return err
		}
		if jsonOut {
			return writeJSON(out, outcomes)
		}
		fmt.Fprint(out, renderIssueHistory(issue, outcomes))
		return nil
	}

	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return err
	}
	if jsonOut {
		return writeJSON(out, runs)
	}
	fmt.Fprint(out, renderRuns(runs))
	return nil
}

func writeJSON[T any](w io.Writer, items []T) error {
	if items == nil {
		items = []T{}
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(items)
}

// colorsEnabled reports whether styled output should be used.
func colorsEnabled() bool {
	if _, ok := os.LookupEnv("NO_COLOR"); ok {
		return false
	}
	return os.Getenv("TERM") != "dumb"
}

func statusColor(s model.RunStatus) lipgloss.Color {
	switch s {
	case model.RunComplete:
		return lipgloss.Color("10")
	case model.RunPartial:
		return lipgloss.Color("11")
	case model.RunFailed:
		return lipgloss.Color("9")
	default:
		return lipgloss.Color("15")
	}
}

func runToRow(r database.RunSummary) []string {
	return []string{
		strconv.FormatInt(r.ID, 10),
		r.RunID,
		humanize.Time(r.StartedAt),
		string(r.Status),
		humanize.Comma(int64(r.Fetched)),
		humanize.Comma(int64(r.Processed)),
		humanize.Comma(int64(r.Skipped)),
		humanize.Comma(int64(r.SpamClosed)),
		humanize.Comma(int64(r.TotalCount)),
		r.Duration().Round(time.Millisecond).String(),
	}
}

var runHeaders = []string{"#", "Run", "Started", "Status", "Fetched", "Processed", "Skipped", "Spam", "Total", "Duration"}

// renderRuns renders runs as a table.
func renderRuns(runs []database.RunSummary) string {
	if len(runs) == 0 {
		return "No runs recorded yet.\n"
	}

	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		rows = append(rows, runToRow(r))
	}

	if !colorsEnabled() {
		return renderPlain(runHeaders, rows)
	}

	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(runHeaders...).
		Rows(rows...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().PaddingLeft(1).PaddingRight(1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if col == 3 && row >= 0 && row < len(runs) {
				return s.Foreground(statusColor(runs[row].Status))
			}
			return s
		})
	return t.Render() + "\n"
}

// renderIssueHistory renders the outcomes of one issue as a table.
func renderIssueHistory(issue int, outcomes []database.IssueOutcome) string {
	if len(outcomes) == 0 {
		return fmt.Sprintf("No outcomes recorded for #%d.\n", issue)
	}

	headers := []string{"Run", "Started", "Stage", "Status", "Reason"}
	rows := make([][]string, 0, len(outcomes))
	for _, o := range outcomes {
		reason := o.Reason
		if reason == "" {
			reason = "-"
		}
		rows = append(rows, []string{
			o.RunID,
			o.StartedAt.Format(time.RFC3339),
			string(o.Stage),
			string(o.Status),
			reason,
		})
	}

	if !colorsEnabled() {
		return renderPlain(headers, rows)
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("8"))).
		Headers(headers...).
		Rows(rows...)
	return t.Render() + "\n"
}

// renderPlain renders rows as aligned columns without styling.
func renderPlain(headers []string, rows [][]string) string {
	widths := make([]int, len(headers))
	for i, h := range headers {
		widths[i] = lipgloss.Width(h)
	}
	for _, row := range rows {
		for i, cell := range row {
			widths[i] = max(widths[i], lipgloss.Width(cell))
		}
	}

	var b strings.Builder
	writeRow := func(cells []string) {
		for i, cell := range cells {
			if i > 0 {
				b.WriteString("  ")
			}
			b.WriteString(cell)
			if i < len(cells)-1 {
				b.WriteString(strings.Repeat(" ", widths[i]-lipgloss.Width(cell)))
			}
		}
		b.WriteString("\n")
	}
	writeRow(headers)
	for _, row := range rows {
		writeRow(row)
	}
	return b.String()
}
