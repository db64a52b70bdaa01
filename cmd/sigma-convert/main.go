package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/grafana/sigma-rule-deployment/cmd/sigma-convert/commands"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
)

var rootCmd = &cobra.Command{
	Use:   "sigma-convert",
	Short: "Convert Sigma detection rules into target backend queries",
	Long: `sigma-convert resolves declarative conversion jobs from a YAML
configuration, invokes the Sigma CLI for each job's rule files, and
writes deterministic per-job output files.

Available commands:
  convert - Run every configured conversion once
  watch   - Re-run conversions when rules or configuration change
  version - Show version information

Examples:
  sigma-convert convert --config config.yaml --path-prefix .
  sigma-convert convert --base-ref origin/main     # only changed rules
  sigma-convert watch --config config.yaml`,
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		jsonLogs, _ := cmd.Flags().GetBool("json-logs")
		verbosity, _ := cmd.Flags().GetCount("verbose")
		if err := logger.Initialize(jsonLogs, verbosity); err != nil {
			return fmt.Errorf("failed to initialize logger: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().CountP("verbose", "v", "Increase output verbosity (repeat for more detail: -v, -vv)")
	rootCmd.PersistentFlags().Bool("json-logs", false, "Emit structured JSON logs instead of console output")

	rootCmd.AddCommand(commands.ConvertCmd)
	rootCmd.AddCommand(commands.WatchCmd)
	rootCmd.AddCommand(commands.VersionCmd)
}

func main() {
	defer logger.Sync()

	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		if errors.IsConfigurationError(err) {
			os.Exit(2)
		}
		os.Exit(1)
	}
}
