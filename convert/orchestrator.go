package convert

import (
	"context"
	"os"
	"path/filepath"
	"sort"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
	"github.com/grafana/sigma-rule-deployment/sigmacli"
)

// JobStatus is the terminal state of one job within a run.
type JobStatus string

const (
	StatusWritten JobStatus = "written"
	StatusSkipped JobStatus = "skipped"
	StatusFailed  JobStatus = "failed"
)

// JobOutcome records how a single job ended.
type JobOutcome struct {
	Name     string
	Status   JobStatus
	Path     string
	Files    int
	Err      error
	Trace    string
	Duration time.Duration
}

// RunSummary aggregates a whole run for reporting and process outputs.
type RunSummary struct {
	RunID        string
	OutputDir    string
	Outcomes     []JobOutcome
	FilesWritten []string
	Failed       int
}

// Options are the per-run process inputs.
type Options struct {
	Root            string
	OutputDir       string // relative to Root
	Parallel        int    // <=1 runs jobs serially
	RenderTraceback bool
	RunID           string

	// Restrict narrows every job's resolved file set to OnlyFiles
	// (absolute paths). A job whose set becomes empty is skipped, not
	// failed: the files exist per the configuration, they just did not
	// change. OnlyFiles may be empty, which skips every job; an
	// incremental run where nothing changed converts nothing.
	Restrict  bool
	OnlyFiles []string
}

// Orchestrator drives a run: validate and reset the output directory,
// plan every job, then invoke and write each one. Planning errors abort
// the run; invocation and write errors are isolated to their job.
type Orchestrator struct {
	cfg      *config.Config
	engine   sigmacli.Engine
	opts     Options
	logger   *zap.SugaredLogger
	reporter *Reporter
}

// NewOrchestrator validates the process inputs and assembles a run.
func NewOrchestrator(cfg *config.Config, engine sigmacli.Engine, opts Options, log *zap.SugaredLogger) (*Orchestrator, error) {
	if opts.Root == "" {
		return nil, errors.Configurationf("path prefix must be set")
	}
	root, err := filepath.Abs(opts.Root)
	if err != nil {
		return nil, errors.WrapConfiguration(err, "resolving project root")
	}
	info, err := os.Stat(root)
	if err != nil || !info.IsDir() {
		return nil, errors.Configurationf("project root %s is not a directory", root)
	}
	opts.Root = root
	if opts.OutputDir == "" {
		opts.OutputDir = "conversions"
	}
	return &Orchestrator{
		cfg:      cfg,
		engine:   engine,
		opts:     opts,
		logger:   log,
		reporter: NewReporter(opts.RenderTraceback),
	}, nil
}

// Run executes every configured job once. The returned error is non-nil
// only for fatal configuration failures; isolated job failures are
// reported through the summary's outcomes and Failed count.
func (o *Orchestrator) Run(ctx context.Context) (*RunSummary, error) {
	outputDir := filepath.Join(o.opts.Root, o.opts.OutputDir)
	if !IsSafePath(o.opts.Root, outputDir) {
		return nil, errors.Configurationf("conversion output directory is outside the project root")
	}

	// Plan everything up front so a broken configuration aborts before
	// any engine runs or the output directory is touched.
	planner := NewPlanner(o.opts.Root, o.logger)
	plans := make([]*Plan, 0, len(o.cfg.Conversions))
	for _, conv := range o.cfg.Conversions {
		job := config.MergeJob(conv, o.cfg.Defaults)
		plan, err := planner.Plan(job)
		if err != nil {
			return nil, err
		}
		if o.opts.Restrict {
			plan.Restrict(o.opts.OnlyFiles)
		}
		plans = append(plans, plan)
	}

	if err := os.RemoveAll(outputDir); err != nil {
		return nil, errors.WrapConfiguration(err, "resetting output directory")
	}
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, errors.WrapConfiguration(err, "creating output directory")
	}

	writer := NewWriter(outputDir, o.cfg.Defaults.OutputMode, o.logger)
	invoker := NewInvoker(o.engine, o.cfg.Defaults.OutputMode, o.logger)

	outcomes := make([]JobOutcome, len(plans))
	if o.opts.Parallel > 1 {
		g, runCtx := errgroup.WithContext(ctx)
		g.SetLimit(o.opts.Parallel)
		for i, plan := range plans {
			g.Go(func() error {
				outcomes[i] = o.runJob(runCtx, invoker, writer, plan)
				return nil
			})
		}
		// Workers only record outcomes, they never return errors.
		_ = g.Wait()
	} else {
		for i, plan := range plans {
			outcomes[i] = o.runJob(ctx, invoker, writer, plan)
		}
	}

	summary := &RunSummary{
		RunID:     o.opts.RunID,
		OutputDir: outputDir,
		Outcomes:  outcomes,
	}
	for _, out := range outcomes {
		switch out.Status {
		case StatusWritten:
			summary.FilesWritten = append(summary.FilesWritten, out.Path)
		case StatusFailed:
			summary.Failed++
		}
	}
	sort.Strings(summary.FilesWritten)

	o.logger.Infow("conversion run complete",
		logger.FieldRunID, o.opts.RunID,
		logger.FieldOutputDir, outputDir,
		logger.FieldCount, len(summary.FilesWritten),
		"failed", summary.Failed)

	o.reporter.Summary(summary)
	return summary, nil
}

func (o *Orchestrator) runJob(ctx context.Context, invoker *Invoker, writer *Writer, plan *Plan) JobOutcome {
	outcome := JobOutcome{Name: plan.Job.Name, Files: len(plan.Files)}

	if len(plan.Files) == 0 {
		// Emptied by the changed-files restriction, not by the glob.
		outcome.Status = StatusSkipped
		o.logger.Infow("no matching files changed, skipping conversion",
			logger.FieldConversion, plan.Job.Name)
		o.reporter.JobSkipped(plan.Job.Name, "no matching files changed")
		return outcome
	}

	o.reporter.JobStart(plan.Job.Name, len(plan.Files), plan.Job.Target)
	o.logger.Infow("running conversion",
		logger.FieldRunID, o.opts.RunID,
		logger.FieldConversion, plan.Job.Name,
		logger.FieldTarget, plan.Job.Target,
		logger.FieldFormat, plan.Job.Format,
		logger.FieldCount, len(plan.Files))

	result := invoker.Invoke(ctx, plan)
	if result.Err != nil {
		outcome.Status = StatusFailed
		outcome.Err = result.Err
		outcome.Trace = result.Trace
		outcome.Duration = result.Duration
		o.logger.Errorw("conversion failed",
			logger.FieldConversion, plan.Job.Name,
			logger.FieldExitStatus, result.ExitStatus,
			logger.FieldError, result.Err)
		o.reporter.JobFailure(plan.Job.Name, result.Err, result.Trace)
		return outcome
	}

	path, err := writer.Write(plan, result)
	outcome.Duration = result.Duration
	switch {
	case err != nil:
		outcome.Status = StatusFailed
		outcome.Err = err
		o.logger.Errorw("writing conversion output failed",
			logger.FieldConversion, plan.Job.Name,
			logger.FieldError, err)
		o.reporter.JobFailure(plan.Job.Name, err, "")
	case path == "":
		outcome.Status = StatusSkipped
		o.reporter.JobSkipped(plan.Job.Name, "engine produced no queries")
	default:
		outcome.Status = StatusWritten
		outcome.Path = path
		o.reporter.JobSuccess(plan.Job.Name, path, result.Duration)
	}
	return outcome
}
