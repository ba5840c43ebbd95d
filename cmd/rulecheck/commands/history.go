package commands

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bfv/rulecheck/internal/history"
)

// NewHistoryCmd builds and returns the 'history' cobra command.
func NewHistoryCmd() *cobra.Command {
	var limit int

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recorded validation runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(cmd.Context(), cmd.OutOrStdout(), historyPath(), limit)
		},
	}

	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Maximum number of runs to show (0 for all)")
	return cmd
}

// runHistory is the entry point for the history command.
func runHistory(ctx context.Context, stdout io.Writer, path string, limit int) error {
	log.Debug().Str("path", path).Int("limit", limit).Msg("history started")
	if ctx == nil {
		ctx = context.Background()
	}

	store, err := history.Open(ctx, path)
	if err != nil {
		return err
	}
	defer store.Close()

	runs, err := store.List(ctx, limit)
	if err != nil {
		return err
	}
	if len(runs) == 0 {
		fmt.Fprintln(stdout, "No runs recorded.")
		return nil
	}

	tw := tabwriter.NewWriter(stdout, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "WHEN\tDATASET\tROWS\tMISSING COLS\tISSUES\tDATA\tID")
	for _, r := range runs {
		dataset := r.Dataset
		if dataset == "" {
			dataset = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%d\t%d\t%d\t%s\t%s\n",
			r.CreatedAt.Local().Format(time.DateTime), dataset, r.RowsChecked,
			r.MissingColumns, r.IssueCounts.Total(), r.DataPath, r.ID)
	}
	if err := tw.Flush(); err != nil {
		return fmt.Errorf("writing history: %w", err)
	}
	log.Debug().Int("runs", len(runs)).Msg("history complete")
	return nil
}
