package report

import (
	"fmt"
	"io"

	"github.com/fatih/color"

	"github.com/bfv/rulecheck/internal/engine"
)

var (
	headingColor = color.New(color.Bold)
	okColor      = color.New(color.FgGreen)
	warnColor    = color.New(color.FgYellow)
	errColor     = color.New(color.FgRed)
)

// PrintSummary writes the human-readable run summary shown after validate.
// Colors are dropped automatically when w is not a terminal.
func PrintSummary(w io.Writer, datasetName, reportPath string, r Report) {
	if datasetName == "" {
		datasetName = "Dataset"
	}
	headingColor.Fprintf(w, "Validated: %s\n", datasetName)
	fmt.Fprintf(w, "Rows checked: %d\n", r.RowsChecked)
	fmt.Fprintf(w, "Missing columns: %d\n", len(r.MissingColumns))
	fmt.Fprintf(w, "Row issues: %d\n", r.IssueCounts.Total())
	if reportPath != "" {
		fmt.Fprintf(w, "Report written to: %s\n", reportPath)
	}

	if len(r.MissingColumns) > 0 {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, "Missing required columns:")
		for _, col := range r.MissingColumns {
			errColor.Fprintf(w, "- %s\n", col)
		}
	}

	if r.IssueCounts.Total() > 0 {
		fmt.Fprintln(w)
		headingColor.Fprintln(w, "Issues by kind:")
		for _, k := range engine.Kinds {
			n := r.IssueCounts.Get(k)
			c := okColor
			if n > 0 {
				c = warnColor
			}
			c.Fprintf(w, "  %-20s %d\n", k.String(), n)
		}

		fmt.Fprintln(w)
		headingColor.Fprintf(w, "Sample row issues (first %d):\n", len(r.SampleIssues))
		for _, is := range r.SampleIssues {
			fmt.Fprintf(w, "- row %d: %s\n", is.Row, is.Message)
		}
	}

	if len(r.MissingColumns) == 0 && r.IssueCounts.Total() == 0 {
		okColor.Fprintln(w, "No issues found.")
	}
}
