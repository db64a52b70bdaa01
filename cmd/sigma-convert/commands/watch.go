package commands

import (
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/pterm/pterm"
	"github.com/spf13/cobra"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/convert"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
)

// WatchCmd re-runs conversions whenever rules or configuration change.
var WatchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-run conversions when rules or configuration change",
	Long: `Run every configured conversion, then keep watching the rule
directories and the configuration file. Changes trigger a full re-run
after a short debounce.

Failures during a watched re-run are reported but do not stop the
watcher; only the initial run's configuration errors are fatal.

Examples:
  sigma-convert watch --config config.yaml --path-prefix .`,
	RunE: func(cmd *cobra.Command, args []string) error {
		summary, err := runConvert(cmd)
		if err != nil {
			return err
		}
		if summary.Failed > 0 {
			pterm.Warning.Printf("Initial run finished with %d failed conversion(s)\n", summary.Failed)
		}

		configPath, _ := cmd.Flags().GetString("config")
		root, _ := cmd.Flags().GetString("path-prefix")
		if !filepath.IsAbs(configPath) {
			configPath = filepath.Join(root, configPath)
		}

		cfg, err := config.LoadFromFile(configPath)
		if err != nil {
			return err
		}

		watcher, err := convert.NewWatcher(configPath, root, cfg, func() error {
			summary, err := runConvert(cmd)
			if err != nil {
				// Broken configuration mid-watch: report and keep
				// watching, the next edit may fix it.
				pterm.Error.Printf("Run failed: %v\n", err)
				return err
			}
			logger.Infow("Watched run complete",
				logger.FieldCount, len(summary.FilesWritten),
				"failed", summary.Failed)
			return nil
		})
		if err != nil {
			return err
		}
		watcher.Start()
		defer func() {
			if err := watcher.Stop(); err != nil {
				logger.Warnw("Failed to stop watcher", logger.FieldError, err)
			}
		}()

		pterm.Info.Printf("Watching %s for changes (ctrl-c to stop)\n", root)

		sig := make(chan os.Signal, 1)
		signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
		select {
		case <-sig:
			pterm.Info.Println("Shutting down")
			return nil
		case <-cmd.Context().Done():
			return errors.Wrap(cmd.Context().Err(), "watch cancelled")
		}
	},
}

func init() {
	addRunFlags(WatchCmd)
}
