package commands

import (
	"fmt"
	"io"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/bfv/rulecheck/internal/rulepack"
)

// NewLintCmd builds and returns the 'lint' cobra command.
func NewLintCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lint <rules.json>",
		Short: "Check a rule pack for configuration errors",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLint(cmd.OutOrStdout(), args[0])
		},
	}
}

// runLint is the entry point for the lint command.
func runLint(stdout io.Writer, rulesPath string) error {
	log.Debug().Str("rules", rulesPath).Msg("lint started")

	pack, err := rulepack.Load(appFS, rulesPath)
	if err != nil {
		return fmt.Errorf("loading rules: %w", err)
	}

	fmt.Fprintf(stdout, "%s: ok (%d required columns, %d numeric rules, %d cross-field rules)\n",
		rulesPath, len(pack.RequiredColumns), len(pack.NumericRules), len(pack.CrossFieldRules))
	return nil
}
