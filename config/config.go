package config

import (
	"time"

	"github.com/grafana/sigma-rule-deployment/errors"
)

// Output modes for persisted conversion artifacts.
const (
	OutputModeRaw  = "raw"  // verbatim engine text, one <name>.txt per job
	OutputModeJSON = "json" // structured records, one <name>.json per job
)

// Defaults holds the global fallback values applied to every conversion
// that omits the corresponding field.
type Defaults struct {
	Target          string        `mapstructure:"target"`
	Format          string        `mapstructure:"format"`
	SkipUnsupported bool          `mapstructure:"skip-unsupported"`
	FilePattern     string        `mapstructure:"file-pattern"`
	Encoding        string        `mapstructure:"encoding"`
	EngineCommand   string        `mapstructure:"engine-command"`
	OutputMode      string        `mapstructure:"output-mode"`
	Timeout         time.Duration `mapstructure:"timeout"`
}

// Conversion is one declared conversion job, exactly as written in the
// configuration file. Optional fields stay zero / nil until merged with
// the defaults; the tri-state booleans use pointers so "omitted" can be
// told apart from "false".
type Conversion struct {
	Name              string            `mapstructure:"name"`
	Input             []string          `mapstructure:"input"`
	Target            string            `mapstructure:"target"`
	Format            string            `mapstructure:"format"`
	Pipelines         []string          `mapstructure:"pipelines"`
	Filters           []string          `mapstructure:"filter"`
	CorrelationMethod string            `mapstructure:"correlation-method"`
	BackendOptions    map[string]string `mapstructure:"backend-option"`
	FilePattern       string            `mapstructure:"file-pattern"`
	Encoding          string            `mapstructure:"encoding"`
	JSONIndent        int               `mapstructure:"json-indent"`
	WithoutPipelines  bool              `mapstructure:"without_pipelines"`
	PipelineCheck     *bool             `mapstructure:"pipeline-check"`
	SkipUnsupported   *bool             `mapstructure:"skip-unsupported"`
}

// Config is the full conversion configuration, loaded once at process
// start and immutable afterwards.
type Config struct {
	Defaults    Defaults     `mapstructure:"defaults"`
	Conversions []Conversion `mapstructure:"conversions"`
}

// Job is a fully resolved conversion job: every optional field has been
// merged with the global defaults, so downstream code never consults
// Defaults again.
type Job struct {
	Name              string
	Input             []string
	Target            string
	Format            string
	Pipelines         []string
	Filters           []string
	CorrelationMethod string
	BackendOptions    map[string]string
	FilePattern       string
	Encoding          string
	JSONIndent        int
	WithoutPipelines  bool
	PipelineCheck     bool
	SkipUnsupported   bool
	Timeout           time.Duration
}

// MergeJob resolves one declared conversion against the global defaults.
// The merge is explicit and per-field: job value when set, default
// otherwise. Pipeline-check has no global default and falls back to true.
func MergeJob(c Conversion, d Defaults) Job {
	job := Job{
		Name:              c.Name,
		Input:             c.Input,
		Target:            orString(c.Target, d.Target),
		Format:            orString(c.Format, d.Format),
		Pipelines:         c.Pipelines,
		Filters:           c.Filters,
		CorrelationMethod: c.CorrelationMethod,
		BackendOptions:    c.BackendOptions,
		FilePattern:       orString(c.FilePattern, d.FilePattern),
		Encoding:          orString(c.Encoding, d.Encoding),
		JSONIndent:        c.JSONIndent,
		WithoutPipelines:  c.WithoutPipelines,
		PipelineCheck:     orBool(c.PipelineCheck, true),
		SkipUnsupported:   orBool(c.SkipUnsupported, d.SkipUnsupported),
		Timeout:           d.Timeout,
	}
	return job
}

func orString(value, fallback string) string {
	if value != "" {
		return value
	}
	return fallback
}

func orBool(value *bool, fallback bool) bool {
	if value != nil {
		return *value
	}
	return fallback
}

// Validate checks the loaded configuration for errors that would make
// the whole run meaningless. Names must be present and unique: output
// files are named after the conversion, so a duplicate name would
// silently overwrite another job's artifact.
func (c *Config) Validate() error {
	switch c.Defaults.OutputMode {
	case OutputModeRaw, OutputModeJSON:
	default:
		return errors.Configurationf("invalid output-mode %q: must be %q or %q",
			c.Defaults.OutputMode, OutputModeRaw, OutputModeJSON)
	}

	seen := make(map[string]struct{}, len(c.Conversions))
	for i, conv := range c.Conversions {
		if conv.Name == "" {
			return errors.Configurationf(
				"conversion name is required and must be a unique identifier across all conversion objects in the config (conversion at index %d)", i)
		}
		if _, dup := seen[conv.Name]; dup {
			return errors.Configurationf("duplicate conversion name %q: output files are derived from the name", conv.Name)
		}
		seen[conv.Name] = struct{}{}

		if len(conv.Input) == 0 {
			return errors.Configurationf("conversion %q has no input patterns", conv.Name)
		}
	}
	return nil
}
