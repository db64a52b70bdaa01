// Package ghaction is the thin GitHub Actions integration surface:
// reading action inputs as flag defaults and publishing step outputs.
package ghaction

import (
	"fmt"
	"os"
	"strings"

	"github.com/grafana/sigma-rule-deployment/errors"
)

// InAction reports whether the process runs inside a GitHub Actions
// workflow step.
func InAction() bool {
	return os.Getenv("GITHUB_ACTIONS") == "true"
}

// InputOrDefault reads the action input `name` (the INPUT_<NAME>
// convention, spaces and hyphens folded to underscores) and falls back
// to def when unset or empty.
func InputOrDefault(name, def string) string {
	envName := "INPUT_" + strings.ToUpper(strings.NewReplacer(" ", "_", "-", "_").Replace(name))
	if env := os.Getenv(envName); env != "" {
		return env
	}
	return def
}

// SetOutput appends one key=value line to the step's $GITHUB_OUTPUT
// file. Values must not contain newlines; multi-line values need the
// heredoc syntax this package does not emit.
func SetOutput(key, value string) error {
	outputFile := os.Getenv("GITHUB_OUTPUT")
	if outputFile == "" {
		return errors.New("GITHUB_OUTPUT is not set, step outputs require a github output file")
	}
	if strings.ContainsRune(value, '\n') {
		return errors.Newf("output %s contains a newline", key)
	}

	f, err := os.OpenFile(outputFile, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return errors.Wrap(err, "unable to open github output file")
	}
	defer f.Close()

	if _, err := fmt.Fprintf(f, "%s=%s\n", key, value); err != nil {
		return errors.Wrap(err, "writing github output")
	}
	return nil
}
