package convert

import (
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"
)

const separatorWidth = 80

// Reporter prints the per-job console report. Safe for concurrent use
// so parallel runs can report as jobs complete.
type Reporter struct {
	mu              sync.Mutex
	renderTraceback bool
}

// NewReporter creates a reporter; renderTraceback controls whether
// failed jobs print the engine's full diagnostic trace.
func NewReporter(renderTraceback bool) *Reporter {
	return &Reporter{renderTraceback: renderTraceback}
}

// JobStart prints the per-job entry banner.
func (r *Reporter) JobStart(name string, files int, target string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Info.Printf("Converting %s: %d file(s) -> %s\n", name, files, target)
}

// JobSuccess prints the success line and the separator.
func (r *Reporter) JobSuccess(name, path string, elapsed time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Success.Printf("%s written to %s (%s)\n", name, path, elapsed.Round(time.Millisecond))
	r.separator()
}

// JobSkipped prints the skip line and the separator.
func (r *Reporter) JobSkipped(name, reason string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Warning.Printf("%s skipped: %s\n", name, reason)
	r.separator()
}

// JobFailure prints the captured error text, the trace when enabled,
// and the separator.
func (r *Reporter) JobFailure(name string, err error, trace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	pterm.Error.Printf("%s failed: %v\n", name, err)
	if r.renderTraceback && trace != "" {
		pterm.Printf("%s\n", strings.TrimRight(trace, "\n"))
	}
	r.separator()
}

// Summary prints the end-of-run totals.
func (r *Reporter) Summary(summary *RunSummary) {
	r.mu.Lock()
	defer r.mu.Unlock()
	written := len(summary.FilesWritten)
	skipped := 0
	for _, out := range summary.Outcomes {
		if out.Status == StatusSkipped {
			skipped++
		}
	}
	if summary.Failed > 0 {
		pterm.Warning.Printf("%d written, %d skipped, %d failed -> %s\n",
			written, skipped, summary.Failed, summary.OutputDir)
		return
	}
	pterm.Success.Printf("%d written, %d skipped -> %s\n", written, skipped, summary.OutputDir)
}

func (r *Reporter) separator() {
	pterm.Printf("%s\n", strings.Repeat("-", separatorWidth))
}
