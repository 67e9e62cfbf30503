package tabular

import (
	"fmt"
	"regexp"
	"strings"
)

// DefaultSampleSize is how many leading identifiers the validator checks.
const DefaultSampleSize = 5

// DefaultSeparator is the token every identifier is expected to contain.
const DefaultSeparator = "-"

// Rule is a structural check applied to a single identifier.
type Rule interface {
	Match(value string) bool
	String() string
}

type separatorRule string

// SeparatorRule requires every identifier to contain sep.
func SeparatorRule(sep string) Rule {
	return separatorRule(sep)
}

func (r separatorRule) Match(v string) bool { return strings.Contains(v, string(r)) }
func (r separatorRule) String() string      { return fmt.Sprintf("contains %q", string(r)) }

type patternRule struct {
	re *regexp.Regexp
}

// PatternRule requires every identifier to match re.
func PatternRule(re *regexp.Regexp) Rule {
	return patternRule{re: re}
}

func (r patternRule) Match(v string) bool { return r.re.MatchString(v) }
func (r patternRule) String() string      { return fmt.Sprintf("matches /%s/", r.re.String()) }

// Validator is a cheap sniff test over the first few identifiers of a file.
// It rejects obviously wrong uploads early; it does not check every row.
type Validator struct {
	SampleSize int
	Rule       Rule // nil disables the structural check
}

// NewValidator returns a validator that samples the default number of rows
// and requires the default separator.
func NewValidator() *Validator {
	return &Validator{SampleSize: DefaultSampleSize, Rule: SeparatorRule(DefaultSeparator)}
}

// Check returns the sampled values and, when any of them fails the rule,
// the failing ones.
func (v *Validator) Check(values []string) (sample, failed []string) {
	n := v.SampleSize
	if n <= 0 || n > len(values) {
		n = len(values)
	}
	sample = values[:n]
	if v.Rule == nil {
		return sample, nil
	}
	for _, s := range sample {
		if !v.Rule.Match(s) {
			failed = append(failed, s)
		}
	}
	return sample, failed
}

// Validate returns an InvalidIdentifierFormat error for path when any
// sampled value fails the rule.
func (v *Validator) Validate(path string, values []string) error {
	if _, failed := v.Check(values); len(failed) > 0 {
		return &Error{
			Kind:    ErrInvalidIdentifierFormat,
			Path:    path,
			Rule:    v.Rule.String(),
			Samples: failed,
		}
	}
	return nil
}
