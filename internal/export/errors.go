package export

import "fmt"

// ExportError reports data that has no representation in the target format.
// Feature is the offending feature index, or -1 when the whole layer fails.
type ExportError struct {
	Format  Format
	Feature int
	Reason  string
}

func (e *ExportError) Error() string {
	if e.Feature < 0 {
		return fmt.Sprintf("export %s: %s", e.Format, e.Reason)
	}
	return fmt.Sprintf("export %s: feature %d: %s", e.Format, e.Feature, e.Reason)
}

func exportErr(f Format, feature int, reason string, args ...any) error {
	return &ExportError{Format: f, Feature: feature, Reason: fmt.Sprintf(reason, args...)}
}
