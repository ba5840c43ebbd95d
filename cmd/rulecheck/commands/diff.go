package commands

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bfv/rulecheck/internal/engine"
	"github.com/bfv/rulecheck/internal/report"
)

// NewDiffCmd builds and returns the 'diff' cobra command.
func NewDiffCmd() *cobra.Command {
	var outputFile string

	cmd := &cobra.Command{
		Use:   "diff <before.json> <after.json>",
		Short: "Show count and missing column differences between two quality reports",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiff(cmd.OutOrStdout(), args[0], args[1], outputFile)
		},
	}

	cmd.Flags().StringVarP(&outputFile, "output", "o", "", "Write output to file instead of stdout")
	return cmd
}

// runDiff is the entry point for the diff command.
func runDiff(stdout io.Writer, beforePath, afterPath, outputPath string) error {
	log.Debug().Str("before", beforePath).Str("after", afterPath).Str("output", outputPath).Msg("diff started")

	before, err := report.Read(appFS, beforePath)
	if err != nil {
		return fmt.Errorf("reading before report: %w", err)
	}
	after, err := report.Read(appFS, afterPath)
	if err != nil {
		return fmt.Errorf("reading after report: %w", err)
	}

	rows := diffReports(before, after)

	w, closeOut, err := openOutput(stdout, outputPath)
	if err != nil {
		return err
	}
	if len(rows) == 0 {
		fmt.Fprintln(w, "No differences found.")
	} else {
		printDiffTable(w, rows)
	}
	if err := closeOut(); err != nil {
		return fmt.Errorf("closing output: %w", err)
	}

	log.Debug().Int("differences", len(rows)).Msg("diff complete")
	return nil
}

// diffRow holds one line of diff output.
type diffRow struct {
	item   string
	before string
	after  string
	change string
}

// diffReports lists changed counts in report order, then missing columns that
// were resolved, then newly missing columns.
func diffReports(before, after *report.Report) []diffRow {
	var rows []diffRow

	addCount := func(item string, b, a int) {
		if a == b {
			return
		}
		rows = append(rows, diffRow{item, strconv.Itoa(b), strconv.Itoa(a), fmt.Sprintf("%+d", a-b)})
	}
	addCount("rows_checked", before.RowsChecked, after.RowsChecked)
	addCount("missing_columns", len(before.MissingColumns), len(after.MissingColumns))
	for _, k := range engine.Kinds {
		addCount(k.String(), before.IssueCounts.Get(k), after.IssueCounts.Get(k))
	}

	const (
		missing = "missing"
		present = "present"
	)
	inAfter := make(map[string]bool, len(after.MissingColumns))
	for _, col := range after.MissingColumns {
		inAfter[col] = true
	}
	inBefore := make(map[string]bool, len(before.MissingColumns))
	for _, col := range before.MissingColumns {
		inBefore[col] = true
		if !inAfter[col] {
			rows = append(rows, diffRow{"column " + col, missing, present, "resolved"})
		}
	}
	for _, col := range after.MissingColumns {
		if !inBefore[col] {
			rows = append(rows, diffRow{"column " + col, present, missing, "new"})
		}
	}
	return rows
}

// printDiffTable renders the diff as a fixed-column table.
func printDiffTable(w io.Writer, rows []diffRow) {
	// Determine column widths dynamically.
	const (
		hItem   = "ITEM"
		hBefore = "BEFORE"
		hAfter  = "AFTER"
		hChange = "CHANGE"
	)

	wItem := len(hItem)
	wBefore := len(hBefore)
	wAfter := len(hAfter)

	for _, r := range rows {
		wItem = max(wItem, len(r.item))
		wBefore = max(wBefore, len(r.before))
		wAfter = max(wAfter, len(r.after))
	}

	// Add padding between columns.
	wItem += 2
	wBefore += 2
	wAfter += 2

	fmtRow := func(i, b, a, c string) {
		fmt.Fprintf(w, "%-*s%-*s%-*s%s\n", wItem, i, wBefore, b, wAfter, a, c)
	}

	fmtRow(hItem, hBefore, hAfter, hChange)
	fmtRow(strings.Repeat("-", wItem-2), strings.Repeat("-", wBefore-2), strings.Repeat("-", wAfter-2), strings.Repeat("-", len(hChange)))

	for _, r := range rows {
		fmtRow(r.item, r.before, r.after, r.change)
	}
}
