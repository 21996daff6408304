// Package errs carries the error taxonomy shared by the billing core.
// Business-rule violations and validation errors are deterministic and must
// never be retried; everything else is eligible for the job retry budget.
package errs

import (
	"errors"
	"fmt"
)

// ValidationError marks malformed input (negative reading, future date).
type ValidationError struct {
	Code string
	Err  error
}

func (e *ValidationError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *ValidationError) Unwrap() error { return e.Err }

// BusinessRuleError marks a deterministic domain rule violation
// (duplicate billing, monotonic violation, insufficient balance).
type BusinessRuleError struct {
	Code string
	Err  error
}

func (e *BusinessRuleError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Code, e.Err)
	}
	return e.Code
}

func (e *BusinessRuleError) Unwrap() error { return e.Err }

// Validation wraps err as a validation error with the given code.
func Validation(code string) error {
	return &ValidationError{Code: code}
}

// BusinessRule wraps err as a business-rule violation with the given code.
func BusinessRule(code string) error {
	return &BusinessRuleError{Code: code}
}

// BusinessRuleWrap attaches a code to an underlying error.
func BusinessRuleWrap(code string, err error) error {
	return &BusinessRuleError{Code: code, Err: err}
}

// IsValidation reports whether err is (or wraps) a ValidationError.
func IsValidation(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// IsBusinessRule reports whether err is (or wraps) a BusinessRuleError.
func IsBusinessRule(err error) bool {
	var target *BusinessRuleError
	return errors.As(err, &target)
}

// Code extracts the taxonomy code from err, or "" if untyped.
func Code(err error) string {
	var v *ValidationError
	if errors.As(err, &v) {
		return v.Code
	}
	var b *BusinessRuleError
	if errors.As(err, &b) {
		return b.Code
	}
	return ""
}
