package main

import (
	"errors"
	"os"
	"runtime/debug"

	crdb "github.com/cockroachdb/errors"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/bfv/rulecheck/cmd/rulecheck/commands"
)

// version is set at build time via -ldflags "-X main.version=x.y.z".
// If not set (e.g., via go install), it will be determined from build info.
var version = "dev"

func init() {
	// If version is still "dev", try to get it from build info (for go install)
	if version == "dev" {
		if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" && info.Main.Version != "(devel)" {
			version = info.Main.Version
		}
	}
}

func newRootCmd() *cobra.Command {
	var (
		verbose bool
		cfgFile string
	)

	rootCmd := &cobra.Command{
		Use:     "rulecheck",
		Short:   "Validate CSV data against declarative rule packs",
		Version: version,
		// main logs the error itself.
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			commands.InitLogging(verbose, "")
			if err := viper.BindPFlag("log.file", cmd.Root().PersistentFlags().Lookup("log-file")); err != nil {
				return err
			}
			if err := commands.InitConfig(cfgFile); err != nil {
				return err
			}
			commands.InitLogging(verbose, viper.GetString("log.file"))
			return nil
		},
	}

	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose (debug) logging")
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "Config file (default .rulecheck.yaml)")
	rootCmd.PersistentFlags().String("log-file", "", "Also write JSON logs to this rotated file")
	rootCmd.AddCommand(commands.NewValidateCmd())
	rootCmd.AddCommand(commands.NewLintCmd())
	rootCmd.AddCommand(commands.NewInitCmd())
	rootCmd.AddCommand(commands.NewDiffCmd())
	rootCmd.AddCommand(commands.NewHistoryCmd())
	return rootCmd
}

func main() {
	err := newRootCmd().Execute()
	commands.CloseLogging()
	if err == nil {
		return
	}
	if errors.Is(err, commands.ErrIssuesFound) {
		os.Exit(2)
	}
	ev := log.Error().Err(err)
	if hints := crdb.FlattenHints(err); hints != "" {
		ev = ev.Str("hint", hints)
	}
	ev.Msg("fatal error")
	os.Exit(1)
}
