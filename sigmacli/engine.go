// Package sigmacli drives the external Sigma compilation engine. The
// engine translates parsed detection rules into target-system queries;
// everything it does internally is a black box behind the Engine
// interface, which also keeps the orchestrator testable without the
// real CLI installed.
package sigmacli

import (
	"context"
	"sort"
	"strconv"
)

// Invocation is the assembled parameter set for one engine call.
// Pipelines are already resolved: named references verbatim, file
// references as absolute paths.
type Invocation struct {
	Target               string
	Pipelines            []string
	Format               string
	CorrelationMethod    string
	Filters              []string
	FilePattern          string
	Encoding             string
	JSONIndent           int
	BackendOptions       map[string]string
	WithoutPipelines     bool
	DisablePipelineCheck bool
	SkipUnsupported      bool
	Files                []string
}

// Result captures one engine invocation outcome. Err carries the
// failure when the engine did not succeed; Trace holds whatever
// diagnostic output the engine produced alongside.
type Result struct {
	Output     string
	ExitStatus int
	Err        error
	Trace      string
}

// Engine converts a set of rule files into queries. The call blocks for
// the whole compilation; cancel or time-limit it through the context.
type Engine interface {
	Convert(ctx context.Context, inv Invocation) Result
}

// Args renders the invocation as the Sigma CLI argument list. Backend
// options are emitted in sorted key order so assembled command lines
// are reproducible.
func (inv Invocation) Args() []string {
	args := []string{"--target", inv.Target}

	for _, pipeline := range inv.Pipelines {
		args = append(args, "--pipeline="+pipeline)
	}

	args = append(args, "--format", inv.Format)

	if inv.CorrelationMethod != "" {
		args = append(args, "--correlation-method", inv.CorrelationMethod)
	}

	for _, filter := range inv.Filters {
		args = append(args, "--filter="+filter)
	}

	args = append(args,
		"--file-pattern", inv.FilePattern,
		"--output", "-", // stdout, persisted by the output writer
		"--encoding", inv.Encoding,
		"--json-indent", strconv.Itoa(inv.JSONIndent),
	)

	keys := make([]string, 0, len(inv.BackendOptions))
	for k := range inv.BackendOptions {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		args = append(args, "--backend-option="+k+"="+inv.BackendOptions[k])
	}

	if inv.WithoutPipelines {
		args = append(args, "--without-pipeline")
	}
	if inv.DisablePipelineCheck {
		args = append(args, "--disable-pipeline-check")
	}
	if inv.SkipUnsupported {
		args = append(args, "--skip-unsupported")
	} else {
		args = append(args, "--fail-unsupported")
	}

	return append(args, inv.Files...)
}
