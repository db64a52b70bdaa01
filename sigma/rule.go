// Package sigma holds the minimal model of a Sigma detection rule the
// conversion pipeline needs: rules travel through it as opaque YAML
// documents whose fields are preserved verbatim in structured output
// records. Compiling rules into queries is the engine's business, not ours.
package sigma

import (
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/grafana/sigma-rule-deployment/errors"
)

// Rule is one parsed Sigma rule document. Fields are kept exactly as
// written in the source file.
type Rule map[string]any

// ParseRule parses a single YAML rule document. An empty (or
// whitespace/comment-only) document yields a nil Rule without error,
// matching how an empty rule file is skipped rather than rejected.
func ParseRule(data []byte) (Rule, error) {
	var doc map[string]any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, errors.Wrap(err, "invalid rule document")
	}
	if len(doc) == 0 {
		return nil, nil
	}
	return Rule(doc), nil
}

// LoadRuleFile reads and parses one rule file from disk.
func LoadRuleFile(path string) (Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading rule file %s", path)
	}
	rule, err := ParseRule(data)
	if err != nil {
		return nil, errors.Wrapf(err, "error loading rule file %s", path)
	}
	return rule, nil
}

// Title returns the rule title, or "" when absent.
func (r Rule) Title() string {
	return r.stringField("title")
}

// ID returns the rule id, falling back to the title when no id is set.
func (r Rule) ID() string {
	if id := r.stringField("id"); id != "" {
		return id
	}
	return r.Title()
}

// IsCorrelation reports whether the document declares a correlation
// over other rules instead of a plain detection.
func (r Rule) IsCorrelation() bool {
	_, ok := r["correlation"]
	return ok
}

func (r Rule) stringField(key string) string {
	if v, ok := r[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}
