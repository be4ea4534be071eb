// =============================================================================
// Property Feed Converter - Validation
// =============================================================================
//
// This module holds the two checks applied while building target documents:
//
//   1. Required fields: every variant declares a set of fields that must be
//      present and non-null on the mapping. A missing field fails the listing
//      with a *MissingFieldError.
//
//   2. Enumerated values: a few target elements only accept a fixed set of
//      values. An out-of-range value is replaced with a documented fallback
//      and a warning is recorded. This never fails the listing.
//
// ERROR HANDLING:
//   - Severity "error" fails the listing
//   - Severity "warning" substitutes a value and processing continues
//
// =============================================================================

package validation

import (
	"fmt"
	"strings"

	"github.com/ginjaninja78/property-feed-converter/internal/types"
)

// Severity levels.
const (
	SeverityError   = "error"
	SeverityWarning = "warning"
)

// =============================================================================
// VALIDATION ERROR TYPES
// =============================================================================

// ValidationError describes one validation finding.
type ValidationError struct {
	// Severity is SeverityError or SeverityWarning.
	Severity string

	// ExternalID identifies the listing.
	ExternalID string

	// Field is the target element name.
	Field string

	// Value is the offending value, if any.
	Value string

	// Rule names the violated rule ("required", "enum").
	Rule string

	// Message is a human-readable description.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("[%s] Listing %s, Field '%s': %s (value: '%s')",
		strings.ToUpper(e.Severity),
		e.ExternalID,
		e.Field,
		e.Message,
		e.Value,
	)
}

// MissingFieldError is returned when a required field is absent or null.
type MissingFieldError struct {
	ExternalID string
	Variant    types.PropertyType
	Field      string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("required field '%s' is missing for %s listing %s", e.Field, e.Variant, e.ExternalID)
}

// Finding converts e into an error-severity ValidationError.
func (e *MissingFieldError) Finding() *ValidationError {
	return &ValidationError{
		Severity:   SeverityError,
		ExternalID: e.ExternalID,
		Field:      e.Field,
		Rule:       "required",
		Message:    fmt.Sprintf("required for %s", e.Variant),
	}
}

// =============================================================================
// REQUIRED FIELDS
// =============================================================================

// RequireFields checks that every named field is present on m. It returns a
// *MissingFieldError for the first field that is not.
func RequireFields(m *types.Mapping, fields []string) error {
	for _, field := range fields {
		if !m.Has(field) {
			return &MissingFieldError{
				ExternalID: m.ID(),
				Variant:    m.Type,
				Field:      field,
			}
		}
	}
	return nil
}

// =============================================================================
// ENUMERATED VALUES
// =============================================================================

// enumRule is the valid set and fallback of one enumerated element.
type enumRule struct {
	valid    []string
	fallback string
}

var enumRules = map[string]enumRule{
	"listedOnlyOnIs24": {
		valid:    []string{"YES", "NO", "NOT_APPLICABLE"},
		fallback: "NO",
	},
	"utilizationTradeSite": {
		valid:    []string{"AGRICULTURE_FORESTRY", "LEISURE", "NO_INFORMATION"},
		fallback: "NO_INFORMATION",
	},
	"commercializationType": {
		valid:    []string{"BUY", "LEASE"},
		fallback: "BUY",
	},
}

// IsEnumerated reports whether field has a restricted value set.
func IsEnumerated(field string) bool {
	_, ok := enumRules[field]
	return ok
}

// NormalizeEnum returns value when it is valid for field, or the field's
// fallback together with a warning when it is not. Fields without a rule are
// returned unchanged.
func NormalizeEnum(field, value string) (string, *ValidationError) {
	rule, ok := enumRules[field]
	if !ok {
		return value, nil
	}
	for _, v := range rule.valid {
		if v == value {
			return value, nil
		}
	}
	return rule.fallback, &ValidationError{
		Severity: SeverityWarning,
		Field:    field,
		Value:    value,
		Rule:     "enum",
		Message:  fmt.Sprintf("invalid value, using '%s'", rule.fallback),
	}
}

// =============================================================================
// ERROR FORMATTING
// =============================================================================

// FormatErrors formats validation errors for display or logging.
func FormatErrors(errors []*ValidationError) string {
	if len(errors) == 0 {
		return "No validation errors."
	}

	var builder strings.Builder

	builder.WriteString(fmt.Sprintf("Validation completed with %d finding(s):\n\n", len(errors)))

	for i, err := range errors {
		builder.WriteString(fmt.Sprintf("%d. %s\n", i+1, err.Error()))
	}

	return builder.String()
}
