package session

import (
	"errors"
	"fmt"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
)

// MaxContentBytes caps the free-text content attached to a selection.
const MaxContentBytes = 64 * 1024

var selectionValidate = validator.New()

// Selection holds the caller-supplied parameters for Select.
type Selection struct {
	Category string `json:"category" validate:"required,max=128"`
	Rate     int    `json:"open_rate" validate:"gte=0,lte=100"`
	Content  string `json:"newsletter_content" validate:"max=65536"`

	// FileID, when set, must name the current upload.
	FileID string `json:"file_id,omitempty"`
}

// Validate trims the category and checks the selection against its tags.
func (s *Selection) Validate() error {
	s.Category = strings.TrimSpace(s.Category)
	if len(s.Content) > MaxContentBytes {
		return fmt.Errorf("%w: content exceeds %d bytes", ErrInvalidSelection, MaxContentBytes)
	}
	if err := selectionValidate.Struct(s); err != nil {
		return fmt.Errorf("%w: %s", ErrInvalidSelection, describeValidation(err))
	}
	return nil
}

// describeValidation flattens validator errors into "field rule" pairs.
func describeValidation(err error) string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err.Error()
	}
	parts := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		parts = append(parts, strings.ToLower(fe.Field())+" "+rule)
	}
	return strings.Join(parts, ", ")
}

// NormalizeCategory turns a category label into a filename-safe token:
// whitespace and path or shell-hostile characters become underscores.
func NormalizeCategory(category string) string {
	category = strings.TrimSpace(category)
	return strings.Map(func(r rune) rune {
		switch {
		case unicode.IsSpace(r):
			return '_'
		case strings.ContainsRune(`/\:*?"<>|`, r), unicode.IsControl(r):
			return '_'
		}
		return r
	}, category)
}
