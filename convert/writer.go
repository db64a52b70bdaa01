package convert

import (
	"encoding/json"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/encoding"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/grafana/sigma-rule-deployment/config"
	"github.com/grafana/sigma-rule-deployment/errors"
	"github.com/grafana/sigma-rule-deployment/logger"
	"github.com/grafana/sigma-rule-deployment/sigma"
)

// Record is one entry of a structured output file: the compiled queries
// for a single rule file together with the parsed rule documents they
// came from.
type Record struct {
	Queries        []string     `json:"queries"`
	ConversionName string       `json:"conversion_name"`
	Rules          []sigma.Rule `json:"rules"`
	InputFile      string       `json:"input_file"`
	OutputFile     string       `json:"output_file"`
}

// Writer persists conversion results under the run's output directory.
type Writer struct {
	outputDir string
	mode      string
	logger    *zap.SugaredLogger
}

// NewWriter returns a writer rooted at outputDir.
func NewWriter(outputDir, outputMode string, log *zap.SugaredLogger) *Writer {
	return &Writer{outputDir: outputDir, mode: outputMode, logger: log}
}

// OutputPath is where a job's result lands: <dir>/<name>.txt in raw
// mode, <dir>/<name>.json in structured mode.
func (w *Writer) OutputPath(name string) string {
	ext := ".txt"
	if w.mode == config.OutputModeJSON {
		ext = ".json"
	}
	return filepath.Join(w.outputDir, name+ext)
}

// Write persists one successful job result. It returns the written path,
// or "" when the filtered output was empty and the job was skipped.
// Write failures are isolated job failures, marked accordingly.
func (w *Writer) Write(plan *Plan, result Result) (string, error) {
	path := w.OutputPath(plan.Job.Name)

	var payload []byte
	var err error
	if w.mode == config.OutputModeJSON {
		payload, err = w.renderRecords(plan, result, path)
	} else {
		payload = w.renderRaw(result)
	}
	if err != nil {
		return "", errors.Mark(err, errors.ErrInvocation)
	}
	if len(payload) == 0 {
		w.logger.Infow("nothing to write after filtering engine output",
			logger.FieldConversion, plan.Job.Name)
		return "", nil
	}

	encoded, err := encodePayload(payload, plan.Job.Encoding)
	if err != nil {
		return "", err
	}
	if err := os.WriteFile(path, encoded, 0o644); err != nil {
		return "", errors.Mark(errors.Wrapf(err, "writing conversion output %s", path), errors.ErrInvocation)
	}

	w.logger.Infow("wrote conversion output",
		logger.FieldConversion, plan.Job.Name,
		logger.FieldPath, path)
	return path, nil
}

func (w *Writer) renderRaw(result Result) []byte {
	filtered := FilterDiagnostics(result.Output)
	if strings.TrimSpace(filtered) == "" {
		return nil
	}
	return []byte(filtered)
}

func (w *Writer) renderRecords(plan *Plan, result Result, outputPath string) ([]byte, error) {
	records := make([]Record, 0, len(result.PerFile))
	for _, out := range result.PerFile {
		queries := SplitQueries(FilterDiagnostics(out.Output))
		if len(queries) == 0 {
			continue
		}
		rules, err := loadRules(out.File)
		if err != nil {
			return nil, err
		}
		records = append(records, Record{
			Queries:        queries,
			ConversionName: plan.Job.Name,
			Rules:          rules,
			InputFile:      out.File,
			OutputFile:     outputPath,
		})
	}
	if len(records) == 0 {
		return nil, nil
	}

	if plan.Job.JSONIndent > 0 {
		return json.MarshalIndent(records, "", strings.Repeat(" ", plan.Job.JSONIndent))
	}
	return json.Marshal(records)
}

func loadRules(path string) ([]sigma.Rule, error) {
	rule, err := sigma.LoadRuleFile(path)
	if err != nil {
		return nil, err
	}
	if rule == nil {
		return nil, nil
	}
	return []sigma.Rule{rule}, nil
}

// FilterDiagnostics drops the engine's progress banner lines from its
// stdout, leaving only compiled queries.
func FilterDiagnostics(output string) string {
	lines := strings.Split(output, "\n")
	kept := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(line, "Parsing Sigma rules") {
			continue
		}
		kept = append(kept, line)
	}
	return strings.Join(kept, "\n")
}

// SplitQueries separates the engine's stdout into individual queries on
// the blank-line boundary it emits between results.
func SplitQueries(output string) []string {
	var queries []string
	for _, chunk := range strings.Split(output, "\n\n") {
		chunk = strings.TrimSpace(chunk)
		if chunk != "" {
			queries = append(queries, chunk)
		}
	}
	return queries
}

func encodePayload(payload []byte, name string) ([]byte, error) {
	enc, err := lookupEncoding(name)
	if err != nil {
		return nil, err
	}
	if enc == nil {
		return payload, nil
	}
	encoded, err := enc.NewEncoder().Bytes(payload)
	if err != nil {
		return nil, errors.Mark(errors.Wrapf(err, "encoding output as %s", name), errors.ErrInvocation)
	}
	return encoded, nil
}

// lookupEncoding resolves an IANA charset name; nil means UTF-8, write
// the payload through untouched. Unknown names are configuration
// errors, checked at plan time so they fail the run before anything is
// invoked or reset.
func lookupEncoding(name string) (encoding.Encoding, error) {
	if name == "" || strings.EqualFold(name, "utf-8") {
		return nil, nil
	}
	enc, err := ianaindex.IANA.Encoding(name)
	if err != nil || enc == nil {
		return nil, errors.Configurationf("unknown output encoding %q", name)
	}
	return enc, nil
}

func validateEncoding(name string) error {
	_, err := lookupEncoding(name)
	return err
}
