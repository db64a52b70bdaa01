package convert

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
	"github.com/grafana/sigma-rule-deployment/sigmacli"
)

// FileOutput is the engine output for a single rule file (structured
// output mode only).
type FileOutput struct {
	File   string
	Output string
}

// Result is the captured outcome of one job's invocation. Err is set
// when the engine reported failure; the run treats that as an isolated
// job failure, never a reason to abort remaining jobs.
type Result struct {
	Name       string
	Output     string       // raw mode: engine stdout for the whole file set
	PerFile    []FileOutput // json mode: one output per input file
	ExitStatus int
	Err        error
	Trace      string
	Duration   time.Duration
}

// Invoker hands assembled plans to the compilation engine.
type Invoker struct {
	engine sigmacli.Engine
	mode   string
	logger *zap.SugaredLogger
}

// NewInvoker wraps an engine for the configured output mode.
func NewInvoker(engine sigmacli.Engine, outputMode string, logger *zap.SugaredLogger) *Invoker {
	return &Invoker{engine: engine, mode: outputMode, logger: logger}
}

// Invoke runs the engine for one planned job. Raw mode compiles the
// whole file set in one call; structured mode compiles file by file so
// every output record can carry its source rule. A single blocking unit
// of work either way: compilation is deterministic, so there are no
// retries. The job's timeout (when set) bounds the entire invocation
// and counts as an isolated failure when exceeded.
func (i *Invoker) Invoke(ctx context.Context, plan *Plan) Result {
	if plan.Job.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, plan.Job.Timeout)
		defer cancel()
	}

	start := time.Now()
	result := i.invoke(ctx, plan)
	result.Name = plan.Job.Name
	result.Duration = time.Since(start)

	if result.Err != nil {
		result.Err = errors.Mark(result.Err, errors.ErrInvocation)
	}
	i.logger.Debugw("engine invocation finished",
		logger.FieldConversion, plan.Job.Name,
		logger.FieldDurationMS, result.Duration.Milliseconds())
	return result
}

func (i *Invoker) invoke(ctx context.Context, plan *Plan) Result {
	if i.mode == config.OutputModeJSON {
		return i.invokePerFile(ctx, plan)
	}

	res := i.engine.Convert(ctx, plan.Invocation)
	return Result{
		Output:     res.Output,
		ExitStatus: res.ExitStatus,
		Err:        res.Err,
		Trace:      res.Trace,
	}
}

func (i *Invoker) invokePerFile(ctx context.Context, plan *Plan) Result {
	outputs := make([]FileOutput, 0, len(plan.Files))
	for _, file := range plan.Files {
		inv := plan.Invocation
		inv.Files = []string{file}

		res := i.engine.Convert(ctx, inv)
		if res.Err != nil {
			return Result{
				PerFile:    outputs,
				ExitStatus: res.ExitStatus,
				Err:        errors.Wrapf(res.Err, "file %s", file),
				Trace:      res.Trace,
			}
		}
		outputs = append(outputs, FileOutput{File: file, Output: res.Output})
	}
	return Result{PerFile: outputs}
}
