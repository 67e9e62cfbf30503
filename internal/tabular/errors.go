package tabular

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel errors for identifier-file reading. Match with errors.Is; the
// concrete error is always an *Error carrying the offending path and values.
var (
	ErrUnsupportedFormat       = errors.New("unsupported file format")
	ErrParse                   = errors.New("invalid tabular content")
	ErrMissingColumn           = errors.New("missing identifier column")
	ErrInvalidIdentifierFormat = errors.New("invalid identifier format")
)

// Error describes a failed read with enough context for a user-facing message.
type Error struct {
	Kind    error    // One of the sentinel errors above
	Path    string   // File being read
	Format  Format   // Declared format, if known
	Column  string   // Column that was expected (MissingColumn)
	Columns []string // Columns that were found (MissingColumn)
	Rule    string   // Structural rule that failed (InvalidIdentifierFormat)
	Samples []string // Offending values (InvalidIdentifierFormat)
	Err     error    // Underlying decoder error, if any
}

func (e *Error) Error() string {
	var b strings.Builder
	b.WriteString(e.Kind.Error())

	switch {
	case errors.Is(e.Kind, ErrMissingColumn):
		fmt.Fprintf(&b, " %q", e.Column)
		if len(e.Columns) > 0 {
			fmt.Fprintf(&b, " (found: %s)", strings.Join(e.Columns, ", "))
		}
	case errors.Is(e.Kind, ErrInvalidIdentifierFormat):
		if e.Rule != "" {
			fmt.Fprintf(&b, " (must %s)", e.Rule)
		}
		fmt.Fprintf(&b, ": offending samples %q", e.Samples)
	case errors.Is(e.Kind, ErrUnsupportedFormat) && e.Format != "":
		fmt.Fprintf(&b, " %q", string(e.Format))
	}

	if e.Path != "" {
		fmt.Fprintf(&b, " in %s", e.Path)
	}
	if e.Err != nil {
		fmt.Fprintf(&b, ": %v", e.Err)
	}
	return b.String()
}

// Is reports whether target is the sentinel kind of this error.
func (e *Error) Is(target error) bool {
	return target == e.Kind
}

func (e *Error) Unwrap() error {
	return e.Err
}

func parseError(path string, format Format, err error) *Error {
	return &Error{Kind: ErrParse, Path: path, Format: format, Err: err}
}

// annotate applies fill to the *Error in err's chain, if there is one, and
// returns err unchanged otherwise.
func annotate(err error, fill func(*Error)) error {
	var te *Error
	if errors.As(err, &te) {
		fill(te)
	}
	return err
}
