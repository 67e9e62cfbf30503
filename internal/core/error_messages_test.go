package core

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/JonMunkholm/usergroups/internal/artifact"
	"github.com/JonMunkholm/usergroups/internal/session"
	"github.com/JonMunkholm/usergroups/internal/tabular"
)

func TestMapError(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		wantCode   string
		wantStatus int
	}{
		{
			name:       "nil error",
			err:        nil,
			wantCode:   "",
			wantStatus: http.StatusOK,
		},
		{
			name:       "file too large",
			err:        fmt.Errorf("%w: exceeds 10 bytes", ErrFileTooLarge),
			wantCode:   "FILE001",
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "http body limit text",
			err:        errors.New("http: request body too large"),
			wantCode:   "FILE001",
			wantStatus: http.StatusRequestEntityTooLarge,
		},
		{
			name:       "unsupported format",
			err:        &tabular.Error{Kind: tabular.ErrUnsupportedFormat, Format: "pdf"},
			wantCode:   "FILE002",
			wantStatus: http.StatusUnsupportedMediaType,
		},
		{
			name:       "parse error",
			err:        &tabular.Error{Kind: tabular.ErrParse, Path: "x.csv"},
			wantCode:   "FILE003",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "empty record",
			err:        fmt.Errorf("upload: %w", session.ErrEmptyRecord),
			wantCode:   "FILE003",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "no file",
			err:        ErrNoFile,
			wantCode:   "FILE004",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "missing column",
			err:        &tabular.Error{Kind: tabular.ErrMissingColumn, Column: "Uid"},
			wantCode:   "VAL001",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid identifier format",
			err:        &tabular.Error{Kind: tabular.ErrInvalidIdentifierFormat, Samples: []string{"12345"}},
			wantCode:   "VAL002",
			wantStatus: http.StatusUnprocessableEntity,
		},
		{
			name:       "invalid selection",
			err:        fmt.Errorf("%w: rate lte=100", session.ErrInvalidSelection),
			wantCode:   "VAL003",
			wantStatus: http.StatusBadRequest,
		},
		{
			name:       "out of order",
			err:        fmt.Errorf("download: %w", session.ErrOutOfOrder),
			wantCode:   "SES001",
			wantStatus: http.StatusConflict,
		},
		{
			name:       "generate io",
			err:        &artifact.Error{Kind: artifact.ErrIO, Op: "write"},
			wantCode:   "PKG001",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "packaging",
			err:        &artifact.Error{Kind: artifact.ErrPackaging, Op: "rename"},
			wantCode:   "PKG002",
			wantStatus: http.StatusInternalServerError,
		},
		{
			name:       "archive not found",
			err:        &artifact.Error{Kind: artifact.ErrNotFound, Op: "open"},
			wantCode:   "PKG003",
			wantStatus: http.StatusNotFound,
		},
		{
			name:       "busy",
			err:        ErrBusy,
			wantCode:   "UPL002",
			wantStatus: http.StatusServiceUnavailable,
		},
		{
			name:       "cancelled packaging reports cancellation",
			err:        &artifact.Error{Kind: artifact.ErrPackaging, Op: "zip", Err: context.Canceled},
			wantCode:   "UPL004",
			wantStatus: http.StatusRequestTimeout,
		},
		{
			name:       "deadline",
			err:        fmt.Errorf("upload: %w", context.DeadlineExceeded),
			wantCode:   "UPL005",
			wantStatus: http.StatusGatewayTimeout,
		},
		{
			name:       "rate limit",
			err:        ErrRateLimited,
			wantCode:   "RATE001",
			wantStatus: http.StatusTooManyRequests,
		},
		{
			name:       "unknown error returns default",
			err:        errors.New("some random internal error"),
			wantCode:   "ERR000",
			wantStatus: http.StatusInternalServerError,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MapError(tt.err)
			if got.Code != tt.wantCode {
				t.Errorf("MapError() code = %q, want %q", got.Code, tt.wantCode)
			}
			if tt.err != nil && got.Message == "" {
				t.Error("MapError() message should not be empty")
			}
			if status := StatusCode(tt.err); status != tt.wantStatus {
				t.Errorf("StatusCode() = %d, want %d", status, tt.wantStatus)
			}
		})
	}
}

func TestFormatUserError(t *testing.T) {
	result := FormatUserError(ErrBusy)

	expected := "Another operation is in progress (Code: UPL002). Please wait a moment and try again"
	if result != expected {
		t.Errorf("FormatUserError() = %q, want %q", result, expected)
	}
	if got := FormatUserError(nil); got != "" {
		t.Errorf("FormatUserError(nil) = %q, want empty", got)
	}
}

func TestIsUserFacing(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{
			name: "nil error is not user facing",
			err:  nil,
			want: false,
		},
		{
			name: "known error is user facing",
			err:  session.ErrOutOfOrder,
			want: true,
		},
		{
			name: "unknown error is not user facing",
			err:  errors.New("random internal error xyz"),
			want: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := IsUserFacing(tt.err)
			if got != tt.want {
				t.Errorf("IsUserFacing() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestNewUserError(t *testing.T) {
	t.Run("nil error returns nil", func(t *testing.T) {
		if got := NewUserError(nil); got != nil {
			t.Errorf("NewUserError(nil) = %v, want nil", got)
		}
	})

	t.Run("wraps technical error with user message", func(t *testing.T) {
		techErr := &tabular.Error{Kind: tabular.ErrMissingColumn, Column: "Uid"}
		userErr := NewUserError(techErr)

		if userErr.Error() != "Identifier column is missing" {
			t.Errorf("Error() = %q, want user message", userErr.Error())
		}
		if userErr.User.Code != "VAL001" {
			t.Errorf("Code = %q, want VAL001", userErr.User.Code)
		}
		if !errors.Is(userErr, tabular.ErrMissingColumn) {
			t.Error("Unwrap() should expose the original error")
		}
	})
}
