package errors

import "fmt"

// Common error wrapping patterns used by the scanner, loader and CLI

// WrapWithOperation wraps an error with an operation context
func WrapWithOperation(operation, item string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s %s", operation, item)
	return Wrap(UnknownErrorCode, message, cause)
}

// WrapParseError wraps an error with a "failed to parse" message
func WrapParseError(item string, cause error) *BaseError {
	return Wrap(SyntaxErrorCode, fmt.Sprintf("failed to parse %s", item), cause)
}

// WrapFileSystemError wraps file system related errors
func WrapFileSystemError(operation, path string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s '%s'", operation, path)
	return Wrap(FileSystemErrorCode, message, cause).
		WithContext("operation", operation).
		WithContext("path", path)
}

// WrapConfigurationError wraps configuration-related errors
func WrapConfigurationError(configType, operation string, cause error) *BaseError {
	message := fmt.Sprintf("failed to %s configuration '%s'", operation, configType)
	return Wrap(ConfigurationErrorCode, message, cause).
		WithContext("config_type", configType).
		WithContext("operation", operation)
}

// ParseError creates a syntax error without wrapping
func ParseError(format string, args ...interface{}) *BaseError {
	return Newf(SyntaxErrorCode, format, args...)
}

// SchemaError creates an annotation schema error
func SchemaError(kind, format string, args ...interface{}) *BaseError {
	return New(SchemaErrorCode, fmt.Sprintf("annotation '%s': %s", kind, fmt.Sprintf(format, args...))).
		WithContext("annotation", kind)
}

// ValidateError creates a validation error without wrapping
func ValidateError(field, expected, actual string) *BaseError {
	return Newf(ValidationErrorCode, "invalid %s: expected %s, got %s", field, expected, actual).
		WithContext("field", field)
}

// ConfigurationError creates a configuration error
func ConfigurationError(configType, message string) *BaseError {
	fullMessage := fmt.Sprintf("configuration error in '%s': %s", configType, message)
	return New(ConfigurationErrorCode, fullMessage).
		WithContext("config_type", configType)
}

// DependencyError creates a dependency error
func DependencyError(dependencyName, message string) *BaseError {
	fullMessage := fmt.Sprintf("dependency error for '%s': %s", dependencyName, message)
	return New(DependencyErrorCode, fullMessage).
		WithContext("dependency_name", dependencyName)
}

// AddToMultiple adds an error to a MultipleErrors, creating it if nil
func AddToMultiple(multiple **MultipleErrors, err TyxError) {
	if *multiple == nil {
		*multiple = NewMultipleErrors()
	}
	(*multiple).Add(err)
}

// Collect adds err to multiple, converting plain errors to BaseError. The
// members of a collected MultipleErrors are added one by one.
func Collect(multiple **MultipleErrors, err error) {
	if err == nil {
		return
	}
	if nested, ok := err.(*MultipleErrors); ok {
		for _, inner := range nested.Errors {
			AddToMultiple(multiple, inner)
		}
		return
	}
	if te, ok := err.(TyxError); ok {
		AddToMultiple(multiple, te)
		return
	}
	AddToMultiple(multiple, Wrap(UnknownErrorCode, "error", err))
}
