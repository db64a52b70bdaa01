package sigmacli

import (
	"bytes"
	"context"
	"os/exec"
	"strings"

	"github.com/kballard/go-shellquote"
	"go.uber.org/zap"

	"github.com/grafana/sigma-rule-deployment/errors"
)

// CLIEngine shells out to the Sigma CLI (`sigma convert` by default).
// The command is configurable so wrapped installs work too, e.g.
// "python -m sigma.cli convert" or "pipenv run sigma convert".
type CLIEngine struct {
	command []string
	logger  *zap.SugaredLogger
}

// NewCLIEngine builds an engine from a shell-quoted command string.
func NewCLIEngine(command string, logger *zap.SugaredLogger) (*CLIEngine, error) {
	parts, err := shellquote.Split(command)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid engine command %q", command)
	}
	if len(parts) == 0 {
		return nil, errors.Newf("empty engine command")
	}
	return &CLIEngine{command: parts, logger: logger}, nil
}

// Convert runs one compilation. The call is a single blocking unit of
// work with no retries: compilation is deterministic, so rerunning an
// unchanged invocation cannot change the outcome. Context cancellation
// (including a per-job timeout) kills the process and is reported as a
// failed result.
func (e *CLIEngine) Convert(ctx context.Context, inv Invocation) Result {
	args := append(append([]string{}, e.command[1:]...), inv.Args()...)

	e.logger.Debugw("Invoking compilation engine",
		"binary", e.command[0],
		"args", strings.Join(args, " "))

	cmd := exec.CommandContext(ctx, e.command[0], args...)
	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	err := cmd.Run()
	result := Result{
		Output: stdout.String(),
		Trace:  stderr.String(),
	}

	if ctxErr := ctx.Err(); ctxErr != nil {
		result.ExitStatus = -1
		result.Err = errors.Wrap(ctxErr, "engine invocation cancelled")
		return result
	}

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			result.ExitStatus = exitErr.ExitCode()
			result.Err = errors.Newf("engine exited with status %d", exitErr.ExitCode())
		} else {
			result.ExitStatus = -1
			result.Err = errors.Wrap(err, "failed to start engine")
		}
	}

	return result
}
