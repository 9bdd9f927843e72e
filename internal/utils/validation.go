package utils

import (
	"fmt"
	"strings"

	"github.com/toyz/tyx/internal/errors"
)

// Validator represents a validation function
type Validator[T any] func(T) error

// ValidatorChain runs validators in order and stops at the first failure
type ValidatorChain[T any] struct {
	validators []Validator[T]
}

// NewValidatorChain creates a new validator chain
func NewValidatorChain[T any](validators ...Validator[T]) *ValidatorChain[T] {
	return &ValidatorChain[T]{validators: validators}
}

// Add adds a validator to the chain
func (vc *ValidatorChain[T]) Add(validator Validator[T]) *ValidatorChain[T] {
	vc.validators = append(vc.validators, validator)
	return vc
}

// Validate runs all validators in the chain
func (vc *ValidatorChain[T]) Validate(value T) error {
	for _, validator := range vc.validators {
		if validator == nil {
			continue
		}
		if err := validator(value); err != nil {
			return err
		}
	}
	return nil
}

// invalid builds the error returned by the validators below. The message
// reads as a predicate so callers can prefix it with the field name.
func invalid(field string, value interface{}, format string, args ...interface{}) *errors.BaseError {
	return errors.Newf(errors.ValidationErrorCode, format, args...).
		WithContext("field", field).
		WithContext("value", value)
}

// NotEmpty validates that a string is not empty
func NotEmpty(field string) Validator[string] {
	return func(value string) error {
		if strings.TrimSpace(value) == "" {
			return invalid(field, value, "cannot be empty")
		}
		return nil
	}
}

// HasPrefix validates that a string has a specific prefix
func HasPrefix(field, prefix string) Validator[string] {
	return func(value string) error {
		if !strings.HasPrefix(value, prefix) {
			return invalid(field, value, "must start with '%s', got '%s'", prefix, value)
		}
		return nil
	}
}

// ExcludesAny validates that a string contains none of the characters in chars
func ExcludesAny(field, chars, description string) Validator[string] {
	return func(value string) error {
		if strings.ContainsAny(value, chars) {
			return invalid(field, value, "must not contain %s, got '%s'", description, value)
		}
		return nil
	}
}

// IsOneOf validates that a value is one of the allowed values
func IsOneOf[T comparable](field string, allowed ...T) Validator[T] {
	return func(value T) error {
		for _, candidate := range allowed {
			if value == candidate {
				return nil
			}
		}
		names := make([]string, len(allowed))
		for i, candidate := range allowed {
			names[i] = fmt.Sprint(candidate)
		}
		return invalid(field, value, "must be one of: %s, got '%v'", strings.Join(names, ", "), value)
	}
}

// NotNegative validates that an int is zero or more
func NotNegative(field string) Validator[int] {
	return func(value int) error {
		if value < 0 {
			return invalid(field, value, "must not be negative, got %d", value)
		}
		return nil
	}
}

// SliceNotEmpty validates that a slice is not empty
func SliceNotEmpty[T any](field string) Validator[[]T] {
	return func(value []T) error {
		if len(value) == 0 {
			return invalid(field, value, "cannot be empty")
		}
		return nil
	}
}

// Normalize applies fn before validating, e.g. strings.ToUpper for verbs
func Normalize[T any](fn func(T) T, validator Validator[T]) Validator[T] {
	return func(value T) error {
		return validator(fn(value))
	}
}
