package commands

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bfv/rulecheck/internal/dataset"
	"github.com/bfv/rulecheck/internal/engine"
	"github.com/bfv/rulecheck/internal/history"
	"github.com/bfv/rulecheck/internal/report"
	"github.com/bfv/rulecheck/internal/rulepack"
)

// ErrIssuesFound is returned by validate --strict when the data has issues.
// The report has already been written when it is returned.
var ErrIssuesFound = errors.New("data quality issues found")

type validateOptions struct {
	outDir      string
	sampleCap   int
	treatEmpty  bool
	encoding    string
	strict      bool
	history     bool
	historyPath string
}

// NewValidateCmd builds and returns the 'validate' cobra command.
func NewValidateCmd() *cobra.Command {
	var (
		strict    bool
		noHistory bool
	)

	cmd := &cobra.Command{
		Use:   "validate <data.csv> <rules.json>",
		Short: "Validate a CSV file against a rule pack and write a quality report",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			// Bind the cobra flags into viper so config and env can supply them too.
			for key, flag := range map[string]string{
				keyOut:                 "out",
				keySampleCap:           "sample-cap",
				keyTreatEmptyAsMissing: "treat-empty-as-missing",
				keyEncoding:            "encoding",
			} {
				if err := viper.BindPFlag(key, cmd.Flags().Lookup(flag)); err != nil {
					return fmt.Errorf("binding %s flag: %w", flag, err)
				}
			}
			opts := validateOptions{
				outDir:      viper.GetString(keyOut),
				sampleCap:   viper.GetInt(keySampleCap),
				treatEmpty:  viper.GetBool(keyTreatEmptyAsMissing),
				encoding:    viper.GetString(keyEncoding),
				strict:      strict,
				history:     viper.GetBool(keyHistoryEnabled) && !noHistory,
				historyPath: historyPath(),
			}
			return runValidate(cmd.Context(), cmd.OutOrStdout(), args[0], args[1], opts)
		},
	}

	cmd.Flags().StringP("out", "o", "out", "Directory the report is written to")
	cmd.Flags().Int("sample-cap", engine.DefaultSampleCap, "Maximum number of sample issues kept in the report")
	cmd.Flags().Bool("treat-empty-as-missing", true, "Treat blank cells as missing values")
	cmd.Flags().String("encoding", string(dataset.EncodingAuto), "CSV encoding: auto, utf-8 or latin1")
	cmd.Flags().BoolVar(&strict, "strict", false, "Exit non-zero when any issue is found")
	cmd.Flags().BoolVar(&noHistory, "no-history", false, "Do not record this run in the history database")
	return cmd
}

// runValidate is the entry point for the validate command.
func runValidate(ctx context.Context, stdout io.Writer, dataPath, rulesPath string, opts validateOptions) error {
	log.Debug().
		Str("data", dataPath).
		Str("rules", rulesPath).
		Str("out", opts.outDir).
		Int("sampleCap", opts.sampleCap).
		Msg("validate started")

	pack, err := rulepack.Load(appFS, rulesPath)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	enc, err := dataset.ParseEncoding(opts.encoding)
	if err != nil {
		return err
	}

	src, err := dataset.OpenCSV(appFS, dataPath, enc)
	if err != nil {
		return err
	}
	defer src.Close()

	summary, err := engine.Evaluate(pack, src, engine.Options{
		SampleCap:           opts.sampleCap,
		TreatEmptyAsMissing: opts.treatEmpty,
	})
	if err != nil {
		return fmt.Errorf("validating %q: %w", dataPath, err)
	}

	reportPath, err := report.Write(appFS, opts.outDir, summary)
	if err != nil {
		return err
	}
	report.PrintSummary(stdout, pack.DatasetName, reportPath, report.FromSummary(summary))

	if opts.history {
		recordRun(ctx, opts.historyPath, history.RunFromSummary(pack.DatasetName, dataPath, rulesPath, summary))
	}

	log.Debug().
		Int("rows", summary.RowsChecked).
		Int("issues", summary.IssueCounts.Total()).
		Int("missingColumns", len(summary.MissingColumns)).
		Msg("validate complete")

	if opts.strict && !summary.Clean() {
		return ErrIssuesFound
	}
	return nil
}

// recordRun stores run in the history database. Failures are logged only:
// the report is already on disk.
func recordRun(ctx context.Context, path string, run history.Run) {
	if ctx == nil {
		ctx = context.Background()
	}
	store, err := history.Open(ctx, path)
	if err != nil {
		log.Warn().Err(err).Str("path", path).Msg("history unavailable, run not recorded")
		return
	}
	defer store.Close()

	if _, err := store.Record(ctx, run); err != nil {
		log.Warn().Err(err).Msg("run not recorded")
	}
}
