package layoutmd

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInput is returned when the input document cannot be converted at all:
// it is missing, of an unsupported format, cannot be rasterized, or a page
// could not be analyzed. No Markdown or annotated PDF is written.
var ErrInput = errors.New("invalid input")

// Stage names used in warnings.
const (
	StageMarkdown = "markdown"
	StageAnnotate = "annotate"
	StagePreview  = "preview"
)

// Warning is a non-fatal problem found during conversion. The affected
// region or page was skipped; everything else was produced.
type Warning struct {
	Stage string
	Page  int
	// Region is the 0-based index of the region within its page, or -1 for
	// a page-level warning.
	Region  int
	Message string
}

// String formats the warning for display.
func (w Warning) String() string {
	if w.Region < 0 {
		return fmt.Sprintf("%s: page %d: %s", w.Stage, w.Page, w.Message)
	}
	return fmt.Sprintf("%s: page %d region %d: %s", w.Stage, w.Page, w.Region, w.Message)
}

// FormatWarnings joins warnings into a single message, one per line.
func FormatWarnings(warnings []Warning) string {
	if len(warnings) == 0 {
		return ""
	}
	lines := make([]string, len(warnings))
	for i, w := range warnings {
		lines[i] = w.String()
	}
	return strings.Join(lines, "\n")
}
