package allocator

import (
	"fmt"
	"io"
)

// Diagnostics is the sink Check reports invariant violations through
// instead of writing output itself — the allocator only ever calls
// Report, never decides how a violation is displayed.
type Diagnostics interface {
	Report(format string, args ...any)
}

// TextDiagnostics writes one line per report to an io.Writer.
type TextDiagnostics struct {
	w io.Writer
}

// NewTextDiagnostics returns a Diagnostics that writes plain text lines to w.
func NewTextDiagnostics(w io.Writer) *TextDiagnostics {
	return &TextDiagnostics{w: w}
}

func (t *TextDiagnostics) Report(format string, args ...any) {
	fmt.Fprintf(t.w, format+"\n", args...)
}

// discardDiagnostics is used when a caller configures no sink; it drops
// every report.
type discardDiagnostics struct{}

func (discardDiagnostics) Report(string, ...any) {}
