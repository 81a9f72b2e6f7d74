package blockdraft

import (
	"fmt"
	"strings"
)

// Import gate messages. The UI shows these verbatim, so they stay
// stable across releases.
const (
	MsgInvalidFormat = "Invalid template format"
	MsgParseFailure  = "Failed to parse template file"
)

// ImportError describes why an imported document was rejected. It
// carries an optional source path and hint so the CLI can print a
// useful message, and wraps the underlying cause for errors.Is/As.
type ImportError struct {
	Path    string // Source file path, empty for in-memory imports
	Line    int    // Line number (1-indexed, 0 when unknown)
	Message string // User-visible message
	Hint    string // Helpful suggestion
	Err     error  // Underlying cause, may be nil
}

// Error implements the error interface.
func (e *ImportError) Error() string {
	return e.Format()
}

// Unwrap returns the underlying cause.
func (e *ImportError) Unwrap() error {
	return e.Err
}

// Format returns a nicely formatted, multi-line error message.
func (e *ImportError) Format() string {
	var b strings.Builder

	if e.Path != "" {
		b.WriteString(fmt.Sprintf("❌ Error in %s\n\n", e.Path))
	} else {
		b.WriteString("❌ Import failed\n\n")
	}

	if e.Line > 0 {
		b.WriteString(fmt.Sprintf("Line %d: %s\n", e.Line, e.Message))
	} else {
		b.WriteString(e.Message + "\n")
	}

	if e.Err != nil {
		b.WriteString(fmt.Sprintf("   %v\n", e.Err))
	}

	if e.Hint != "" {
		b.WriteString(fmt.Sprintf("\n💡 Tip: %s\n", e.Hint))
	}

	return b.String()
}

// NewImportError creates an ImportError with the given message.
func NewImportError(path, message string) *ImportError {
	return &ImportError{
		Path:    path,
		Message: message,
	}
}

// WithLine adds line information to the error.
func (e *ImportError) WithLine(line int) *ImportError {
	e.Line = line
	return e
}

// WithHint adds a helpful hint to the error.
func (e *ImportError) WithHint(hint string) *ImportError {
	e.Hint = hint
	return e
}

// WithCause attaches the underlying cause to the error.
func (e *ImportError) WithCause(err error) *ImportError {
	e.Err = err
	return e
}

// newParseFailure builds the error for bytes that are not syntactically
// valid at all.
func newParseFailure(path string, cause error) *ImportError {
	return NewImportError(path, MsgParseFailure).
		WithHint("Check that the file is valid JSON exported from the template editor.").
		WithCause(cause)
}

// newInvalidFormat builds the error for bytes that parse but do not
// describe a structurally valid template.
func newInvalidFormat(path string) *ImportError {
	return NewImportError(path, MsgInvalidFormat).
		WithHint("A template needs string id and name, a blocks array, and a globalStyles object.")
}
