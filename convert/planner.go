package convert

import (
	"os"
	"path/filepath"
	"sort"

	"github.com/bmatcuk/doublestar/v4"
	"go.uber.org/zap"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
	"github.com/grafana/sigma-rule-deployment/sigmacli"
)

// Plan is the executable form of one conversion job: the resolved rule
// files, the classified pipelines, and the assembled engine invocation.
type Plan struct {
	Job        config.Job
	Files      []string
	Pipelines  []PipelineReference
	Invocation sigmacli.Invocation
}

// Restrict narrows the plan's file set to the intersection with allowed
// (absolute paths), keeping sorted order. An emptied plan is skipped by
// the run, not failed: the configuration still matches files on disk.
func (p *Plan) Restrict(allowed []string) {
	keep := make(map[string]struct{}, len(allowed))
	for _, f := range allowed {
		keep[f] = struct{}{}
	}
	files := p.Files[:0]
	for _, f := range p.Files {
		if _, ok := keep[f]; ok {
			files = append(files, f)
		}
	}
	p.Files = files
	p.Invocation.Files = files
}

// Planner expands and validates conversion jobs against the project root.
type Planner struct {
	root   string
	logger *zap.SugaredLogger
}

// NewPlanner creates a planner rooted at the (absolute) project root.
func NewPlanner(root string, logger *zap.SugaredLogger) *Planner {
	return &Planner{root: root, logger: logger}
}

// Plan resolves one job into an executable plan. Every failure here is
// a configuration error: a broken job declaration poisons the whole run
// and must abort it before any conversion output is produced.
func (p *Planner) Plan(job config.Job) (*Plan, error) {
	if job.Name == "" {
		return nil, errors.Configurationf(
			"conversion name is required and must be a unique identifier across all conversion objects in the config")
	}

	for _, pattern := range job.Input {
		if filepath.IsAbs(pattern) {
			return nil, errors.Configurationf(
				"conversion %q: input file pattern must be relative to the project root: %s", job.Name, pattern)
		}
	}

	if err := validateEncoding(job.Encoding); err != nil {
		return nil, errors.Wrapf(err, "conversion %q", job.Name)
	}

	files, err := p.expandInputs(job)
	if err != nil {
		return nil, err
	}
	if len(files) == 0 {
		return nil, errors.Configurationf(
			"conversion %q: no files matched the patterns after applying file-pattern: %s", job.Name, job.FilePattern)
	}

	pipelines, err := p.classifyPipelines(job)
	if err != nil {
		return nil, err
	}

	p.logger.Debugw("planned conversion",
		logger.FieldConversion, job.Name,
		logger.FieldCount, len(files),
		logger.FieldTarget, job.Target)

	inv := sigmacli.Invocation{
		Target:               job.Target,
		Pipelines:            pipelineValues(pipelines),
		Format:               job.Format,
		CorrelationMethod:    job.CorrelationMethod,
		Filters:              job.Filters,
		FilePattern:          job.FilePattern,
		Encoding:             job.Encoding,
		JSONIndent:           job.JSONIndent,
		BackendOptions:       job.BackendOptions,
		WithoutPipelines:     job.WithoutPipelines,
		DisablePipelineCheck: !job.PipelineCheck,
		SkipUnsupported:      job.SkipUnsupported,
		Files:                files,
	}

	return &Plan{
		Job:        job,
		Files:      files,
		Pipelines:  pipelines,
		Invocation: inv,
	}, nil
}

// expandInputs globs every input pattern against the root (recursive
// `**` wildcards supported), then applies the job's filename pattern as
// a secondary filter over the resolved basenames. The secondary filter
// is what narrows broad patterns like "rules/**" down to rule files.
func (p *Planner) expandInputs(job config.Job) ([]string, error) {
	seen := make(map[string]struct{})
	for _, pattern := range job.Input {
		matches, err := doublestar.FilepathGlob(filepath.Join(p.root, pattern))
		if err != nil {
			return nil, errors.Configurationf("conversion %q: invalid input pattern %q: %v", job.Name, pattern, err)
		}
		for _, match := range matches {
			if info, err := os.Stat(match); err != nil || info.IsDir() {
				continue
			}
			ok, err := doublestar.Match(job.FilePattern, filepath.Base(match))
			if err != nil {
				return nil, errors.Configurationf("conversion %q: invalid file-pattern %q: %v", job.Name, job.FilePattern, err)
			}
			if ok {
				seen[match] = struct{}{}
			}
		}
	}

	files := make([]string, 0, len(seen))
	for f := range seen {
		files = append(files, f)
	}
	// Sorted so invocations and structured outputs are reproducible.
	sort.Strings(files)
	return files, nil
}

func (p *Planner) classifyPipelines(job config.Job) ([]PipelineReference, error) {
	refs := make([]PipelineReference, 0, len(job.Pipelines))
	for _, ref := range job.Pipelines {
		if filepath.IsAbs(ref) {
			return nil, errors.Configurationf(
				"conversion %q: pipeline file path must be relative to the project root: %s", job.Name, ref)
		}

		kind := ClassifyReference(ref, job.FilePattern)
		if kind == ReferenceNamed {
			// A relative path that resolves under the project root is a
			// pipeline file even when it evades the lexical heuristic.
			if _, err := os.Stat(filepath.Join(p.root, ref)); err == nil {
				kind = ReferencePath
			}
		}

		value := ref
		if kind == ReferencePath {
			value = filepath.Join(p.root, ref)
		}
		refs = append(refs, PipelineReference{Value: value, Kind: kind})
	}
	return refs, nil
}

func pipelineValues(refs []PipelineReference) []string {
	values := make([]string, len(refs))
	for i, ref := range refs {
		values[i] = ref.Value
	}
	return values
}
