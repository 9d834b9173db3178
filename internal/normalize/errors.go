package normalize

import "fmt"

// FormatError indicates the payload could not be parsed at all.
type FormatError struct {
	Format Format
	Err    error
}

func (e *FormatError) Error() string {
	return fmt.Sprintf("%s: cannot parse: %v", e.Format, e.Err)
}

func (e *FormatError) Unwrap() error { return e.Err }

// SchemaError indicates the payload parsed but lacks required structure.
type SchemaError struct {
	Format Format
	Reason string
}

func (e *SchemaError) Error() string {
	return fmt.Sprintf("%s: %s", e.Format, e.Reason)
}

// UnsupportedFormatError names an extension no normalizer handles.
type UnsupportedFormatError struct {
	Ext string
}

func (e *UnsupportedFormatError) Error() string {
	if e.Ext == "" {
		return "unsupported file: no extension"
	}
	return fmt.Sprintf("unsupported file extension %q", e.Ext)
}

func formatErr(f Format, err error) error {
	return &FormatError{Format: f, Err: err}
}

func schemaErr(f Format, reason string, args ...any) error {
	return &SchemaError{Format: f, Reason: fmt.Sprintf(reason, args...)}
}
