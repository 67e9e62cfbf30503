// # Error Codes Reference
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Error codes are grouped by category:
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: the upload exceeds UPLOAD_MAX_FILE_SIZE
//	FILE002 - Unsupported format: not CSV, JSON or a spreadsheet
//	FILE003 - Parse error: the file could not be read as its format
//	FILE004 - No file: the request carried no identifier file
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Missing column: no identifier column could be found
//	VAL002 - Invalid identifier format: sampled identifiers fail the structural rule
//	VAL003 - Invalid selection: category, rate or content out of bounds
//
// # Session Errors (SES001-SES099)
//
//	SES001 - Out of order: a step was called before its prerequisite
//
// # Packaging Errors (PKG001-PKG099)
//
//	PKG001 - Generate failed: the artifact files could not be written
//	PKG002 - Packaging failed: the archive could not be built or stored
//	PKG003 - Not found: the archive is no longer on disk
//
// # Upload Errors (UPL001-UPL099)
//
//	UPL002 - System busy: another step holds the session
//	UPL004 - Request cancelled
//	UPL005 - Request timeout
//
// # Rate Limiting (RATE001-RATE099)
//
//	RATE001 - Rate limited: too many requests
//
// # Default Error (ERR000)
//
// Fallback when nothing matches. Support staff should check application
// logs for the original technical error when users report ERR000.
//
// # Matching
//
// Errors are matched with errors.Is against the sentinel errors of each
// package, in table order. Errors that arrive only as text (from the HTTP
// stack, for instance) fall back to case-insensitive substring patterns.

package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/JonMunkholm/usergroups/internal/artifact"
	"github.com/JonMunkholm/usergroups/internal/session"
	"github.com/JonMunkholm/usergroups/internal/tabular"
)

var (
	// ErrFileTooLarge is returned when an upload exceeds the size limit.
	ErrFileTooLarge = errors.New("file too large")

	// ErrNoFile is returned when a request carries no file.
	ErrNoFile = errors.New("no file provided")

	// ErrRateLimited is returned by the dispatcher's rate limiter.
	ErrRateLimited = errors.New("rate limit exceeded")
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorMapping ties a sentinel error to its user message and HTTP status.
type errorMapping struct {
	target error
	status int
	msg    UserMessage
}

// errorMappings is checked in order; the first errors.Is match wins.
// Context errors come first so a cancelled package reports the
// cancellation rather than the packaging failure it caused.
var errorMappings = []errorMapping{
	{context.Canceled, http.StatusRequestTimeout, UserMessage{
		Message: "Request was cancelled",
		Action:  "Please try again",
		Code:    "UPL004",
	}},
	{context.DeadlineExceeded, http.StatusGatewayTimeout, UserMessage{
		Message: "Request timed out",
		Action:  "Try a smaller file or check your connection",
		Code:    "UPL005",
	}},

	{ErrFileTooLarge, http.StatusRequestEntityTooLarge, UserMessage{
		Message: "File exceeds the maximum size limit",
		Action:  "Split the file into smaller chunks",
		Code:    "FILE001",
	}},
	{tabular.ErrUnsupportedFormat, http.StatusUnsupportedMediaType, UserMessage{
		Message: "Unsupported file format",
		Action:  "Upload a CSV, JSON or Excel (.xlsx) file",
		Code:    "FILE002",
	}},
	{tabular.ErrParse, http.StatusUnprocessableEntity, UserMessage{
		Message: "The file could not be read",
		Action:  "Check that the file is not corrupted and has a header row with at least one identifier",
		Code:    "FILE003",
	}},
	{session.ErrEmptyRecord, http.StatusUnprocessableEntity, UserMessage{
		Message: "The file holds no identifiers",
		Action:  "Add at least one identifier below the header row",
		Code:    "FILE003",
	}},
	{ErrNoFile, http.StatusBadRequest, UserMessage{
		Message: "No file was selected",
		Action:  "Please select an identifier file to upload",
		Code:    "FILE004",
	}},

	{tabular.ErrMissingColumn, http.StatusUnprocessableEntity, UserMessage{
		Message: "Identifier column is missing",
		Action:  "Name the identifier column Uid, or upload a file with a single column",
		Code:    "VAL001",
	}},
	{tabular.ErrInvalidIdentifierFormat, http.StatusUnprocessableEntity, UserMessage{
		Message: "Invalid identifier format",
		Action:  "Check that the column holds identifiers such as ABCD1234-AB12-CD34-5678-000123ABC456",
		Code:    "VAL002",
	}},
	{session.ErrInvalidSelection, http.StatusBadRequest, UserMessage{
		Message: "Invalid selection",
		Action:  "Provide a category and an open rate between 0 and 100",
		Code:    "VAL003",
	}},

	{session.ErrOutOfOrder, http.StatusConflict, UserMessage{
		Message: "This step is not available yet",
		Action:  "Upload an identifier file, then select users before downloading",
		Code:    "SES001",
	}},

	{artifact.ErrIO, http.StatusInternalServerError, UserMessage{
		Message: "The user group files could not be written",
		Action:  "Please try again or contact support",
		Code:    "PKG001",
	}},
	{artifact.ErrPackaging, http.StatusInternalServerError, UserMessage{
		Message: "The archive could not be created",
		Action:  "Please try again or contact support",
		Code:    "PKG002",
	}},
	{artifact.ErrNotFound, http.StatusNotFound, UserMessage{
		Message: "The archive is no longer available",
		Action:  "Run the selection again to rebuild it",
		Code:    "PKG003",
	}},

	{ErrBusy, http.StatusServiceUnavailable, UserMessage{
		Message: "Another operation is in progress",
		Action:  "Please wait a moment and try again",
		Code:    "UPL002",
	}},
	{ErrRateLimited, http.StatusTooManyRequests, UserMessage{
		Message: "Too many requests",
		Action:  "Please wait a moment before trying again",
		Code:    "RATE001",
	}},
}

// errorPattern maps error text to a mapping for errors that carry no sentinel.
type errorPattern struct {
	pattern string
	target  error
}

var errorPatterns = []errorPattern{
	{"request body too large", ErrFileTooLarge},
	{"rate limit", ErrRateLimited},
}

// defaultMessage is returned when nothing matches (ERR000).
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

func lookup(err error) (errorMapping, bool) {
	for _, m := range errorMappings {
		if errors.Is(err, m.target) {
			return m, true
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, p := range errorPatterns {
		if strings.Contains(errStr, p.pattern) {
			for _, m := range errorMappings {
				if m.target == p.target {
					return m, true
				}
			}
		}
	}
	return errorMapping{}, false
}

// MapError converts a technical error to a user-friendly message. If
// nothing matches, a generic fallback with code ERR000 is returned.
//
// Example:
//
//	msg := MapError(fmt.Errorf("select: %w", session.ErrOutOfOrder))
//	// msg.Code == "SES001"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}
	if m, ok := lookup(err); ok {
		return m.msg
	}
	return defaultMessage
}

// StatusCode returns the HTTP status for err: 200 for nil, 500 when unmapped.
func StatusCode(err error) int {
	if err == nil {
		return http.StatusOK
	}
	if m, ok := lookup(err); ok {
		return m.status
	}
	return http.StatusInternalServerError
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific code rather than ERR000.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// UserError wraps a technical error with a user-friendly message.
// The original error is preserved for logging while providing a clean message for users.
type UserError struct {
	Technical error       // Original technical error for logging
	User      UserMessage // User-friendly message for display
}

func (e *UserError) Error() string {
	return e.User.Message
}

func (e *UserError) Unwrap() error {
	return e.Technical
}

// NewUserError maps err to a UserError. Returns nil if err is nil.
func NewUserError(err error) *UserError {
	if err == nil {
		return nil
	}
	return &UserError{
		Technical: err,
		User:      MapError(err),
	}
}
