package commands

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/convert"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/ghaction"
	"github.com/grafana/sigma-rule-deployment/gitfiles"
	"github.com/grafana/sigma-rule-deployment/logger"
	"github.com/grafana/sigma-rule-deployment/sigmacli"
)

// ConvertCmd runs every configured conversion once.
var ConvertCmd = &cobra.Command{
	Use:   "convert",
	Short: "Run every configured conversion once",
	Long: `Run every conversion declared in the configuration file.

Each conversion resolves its input globs against the project root,
invokes the Sigma CLI for the matched rule files, and writes one output
file per conversion under the output directory. The output directory is
reset at the start of every run.

Configuration errors (missing name, absolute paths, empty file sets)
abort the run; engine failures are isolated to their conversion and
reported in the summary.

Examples:
  sigma-convert convert --config config.yaml --path-prefix .
  sigma-convert convert --base-ref origin/main          # changed rules only
  sigma-convert convert --parallel 4 --render-traceback`,
	RunE: func(cmd *cobra.Command, args []string) error {
		_, err := runConvert(cmd)
		return err
	},
}

func init() {
	addRunFlags(ConvertCmd)
}

// addRunFlags registers the run flags shared by convert and watch.
// Defaults come from GitHub Action inputs when present, then plain
// environment variables, so the binary drops into a workflow step
// without explicit flags.
func addRunFlags(cmd *cobra.Command) {
	cmd.Flags().String("config", envOrDefault("config.yaml", "CONFIG"),
		"Path to the conversion configuration file (relative paths resolve against the project root)")
	cmd.Flags().String("path-prefix", envOrDefault("", "PATH_PREFIX", "GITHUB_WORKSPACE"),
		"Project root; all inputs, pipelines and outputs stay inside it")
	cmd.Flags().String("output-dir", envOrDefault("conversions", "CONVERSIONS_OUTPUT_DIR"),
		"Output directory name, relative to the project root")
	cmd.Flags().Bool("render-traceback", envBool("RENDER_TRACEBACK", false),
		"Print the engine's full diagnostic trace for failed conversions")
	cmd.Flags().Bool("pretty-print", envBool("PRETTY_PRINT", false),
		"Write structured JSON records instead of raw engine output")
	cmd.Flags().Bool("all-rules", envBool("ALL_RULES", true),
		"Convert all matched rules; disable to restrict to changed files")
	cmd.Flags().String("changed-files", envOrDefault("", "CHANGED_FILES"),
		"Changed rule files (comma or space separated), used with --all-rules=false")
	cmd.Flags().String("deleted-files", envOrDefault("", "DELETED_FILES"),
		"Deleted rule files (comma or space separated)")
	cmd.Flags().String("base-ref", "",
		"Resolve changed files by diffing this git ref against HEAD")
	cmd.Flags().Int("parallel", 1, "Run up to this many conversions concurrently")
}

// runConvert is the shared run path for the convert and watch commands.
func runConvert(cmd *cobra.Command) (*convert.RunSummary, error) {
	flags := cmd.Flags()
	configPath, _ := flags.GetString("config")
	root, _ := flags.GetString("path-prefix")
	outputDir, _ := flags.GetString("output-dir")
	renderTraceback, _ := flags.GetBool("render-traceback")
	prettyPrint, _ := flags.GetBool("pretty-print")
	allRules, _ := flags.GetBool("all-rules")
	changedFiles, _ := flags.GetString("changed-files")
	deletedFiles, _ := flags.GetString("deleted-files")
	baseRef, _ := flags.GetString("base-ref")
	parallel, _ := flags.GetInt("parallel")

	if root == "" {
		return nil, errors.Configurationf("path prefix must be set")
	}
	if !filepath.IsAbs(configPath) {
		configPath = filepath.Join(root, configPath)
	}

	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return nil, err
	}
	if prettyPrint {
		cfg.Defaults.OutputMode = config.OutputModeJSON
	}

	engine, err := sigmacli.NewCLIEngine(cfg.Defaults.EngineCommand, logger.Logger)
	if err != nil {
		return nil, err
	}

	opts := convert.Options{
		Root:            root,
		OutputDir:       outputDir,
		Parallel:        parallel,
		RenderTraceback: renderTraceback,
		RunID:           uuid.NewString(),
	}
	if !allRules {
		sel, err := resolveSelection(root, baseRef, changedFiles, deletedFiles)
		if err != nil {
			return nil, err
		}
		opts.Restrict = true
		opts.OnlyFiles = sel.Changed
		if len(sel.Deleted) > 0 {
			// Their stale outputs disappear with the directory reset.
			logger.Infow("Deleted rule files noted",
				logger.FieldCount, len(sel.Deleted))
		}
	}

	orch, err := convert.NewOrchestrator(cfg, engine, opts, logger.Logger)
	if err != nil {
		return nil, err
	}

	logger.Infow("Starting conversion run",
		logger.FieldRunID, opts.RunID,
		logger.FieldPath, configPath,
		logger.FieldCount, len(cfg.Conversions))

	summary, err := orch.Run(cmd.Context())
	if err != nil {
		return nil, err
	}

	if ghaction.InAction() {
		if err := publishOutputs(summary); err != nil {
			logger.Warnw("Failed to publish action outputs",
				logger.FieldError, err)
		}
	}
	return summary, nil
}

func resolveSelection(root, baseRef, changedFiles, deletedFiles string) (gitfiles.Selection, error) {
	if baseRef != "" {
		return gitfiles.FromDiff(root, baseRef, logger.Logger)
	}
	return gitfiles.FromLists(root,
		gitfiles.SplitList(changedFiles),
		gitfiles.SplitList(deletedFiles)), nil
}

func publishOutputs(summary *convert.RunSummary) error {
	if err := ghaction.SetOutput("files-written", strings.Join(summary.FilesWritten, " ")); err != nil {
		return err
	}
	if err := ghaction.SetOutput("jobs-failed", strconv.Itoa(summary.Failed)); err != nil {
		return err
	}
	return ghaction.SetOutput("output-dir", summary.OutputDir)
}

// envOrDefault returns the first matching configuration source for a
// flag default: the GitHub Action input named after the first key, then
// each environment variable in order, then the fallback.
func envOrDefault(def string, keys ...string) string {
	if len(keys) > 0 {
		if v := ghaction.InputOrDefault(keys[0], ""); v != "" {
			return v
		}
	}
	for _, key := range keys {
		if v := os.Getenv(key); v != "" {
			return v
		}
	}
	return def
}

func envBool(key string, def bool) bool {
	v := envOrDefault("", key)
	if v == "" {
		return def
	}
	return strings.EqualFold(v, "true")
}
