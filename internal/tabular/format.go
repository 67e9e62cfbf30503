package tabular

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/gabriel-vasile/mimetype"
)

// Format is a declared tabular encoding.
type Format string

const (
	FormatCSV         Format = "csv"
	FormatJSON        Format = "json"
	FormatSpreadsheet Format = "spreadsheet"
)

// Formats lists the supported encodings in display order.
var Formats = []Format{FormatCSV, FormatJSON, FormatSpreadsheet}

// sniffBytes is how much of a file DetectFormat looks at.
const sniffBytes = 3072

// ParseFormat converts a declared format tag into a Format.
// "xlsx" and "excel" are accepted as spellings of spreadsheet.
func ParseFormat(tag string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(tag)) {
	case "csv", "txt":
		return FormatCSV, nil
	case "json":
		return FormatJSON, nil
	case "spreadsheet", "xlsx", "xlsm", "excel":
		return FormatSpreadsheet, nil
	}
	return "", &Error{Kind: ErrUnsupportedFormat, Format: Format(tag)}
}

// FormatFromFilename maps a file extension to a Format.
func FormatFromFilename(name string) (Format, error) {
	ext := strings.TrimPrefix(strings.ToLower(filepath.Ext(name)), ".")
	if ext == "" {
		return "", &Error{Kind: ErrUnsupportedFormat, Path: name}
	}
	f, err := ParseFormat(ext)
	if err != nil {
		return "", &Error{Kind: ErrUnsupportedFormat, Path: name, Format: Format(ext)}
	}
	return f, nil
}

// DetectFormat sniffs the content of r. Plain text that is not JSON is
// treated as CSV, which matches how single-column identifier lists are
// usually exported.
func DetectFormat(r io.Reader) (Format, error) {
	head := make([]byte, sniffBytes)
	n, err := io.ReadFull(r, head)
	if err != nil && err != io.ErrUnexpectedEOF && err != io.EOF {
		return "", err
	}

	mt := mimetype.Detect(head[:n])
	for m := mt; m != nil; m = m.Parent() {
		switch {
		case m.Is("application/json"):
			return FormatJSON, nil
		case m.Is("text/csv"):
			return FormatCSV, nil
		case m.Is("application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"):
			return FormatSpreadsheet, nil
		case m.Is("text/plain"):
			return FormatCSV, nil
		}
	}
	return "", &Error{Kind: ErrUnsupportedFormat, Format: Format(mt.String())}
}

// ResolveFormat picks the format for a stored file: the extension of name
// when it is recognized, otherwise the sniffed content of path.
func ResolveFormat(name, path string) (Format, error) {
	if f, err := FormatFromFilename(name); err == nil {
		return f, nil
	}

	file, err := os.Open(path)
	if err != nil {
		return "", &Error{Kind: ErrParse, Path: path, Err: err}
	}
	defer file.Close()

	f, err := DetectFormat(file)
	if err != nil {
		var te *Error
		if errors.As(err, &te) {
			te.Path = name
			return "", err
		}
		return "", parseError(path, "", err)
	}
	return f, nil
}
