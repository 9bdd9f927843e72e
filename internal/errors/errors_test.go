package errors

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestErrorWrappers(t *testing.T) {
	originalErr := errors.New("original error")

	tests := []struct {
		name     string
		err      *BaseError
		code     ErrorCode
		expected string
	}{
		{
			name:     "WrapParseError",
			err:      WrapParseError("annotation", originalErr),
			code:     SyntaxErrorCode,
			expected: "failed to parse annotation: original error",
		},
		{
			name:     "WrapWithOperation",
			err:      WrapWithOperation("read", "directory", originalErr),
			code:     UnknownErrorCode,
			expected: "failed to read directory: original error",
		},
		{
			name:     "WrapFileSystemError",
			err:      WrapFileSystemError("open", "go.mod", originalErr),
			code:     FileSystemErrorCode,
			expected: "failed to open 'go.mod': original error",
		},
		{
			name:     "WrapConfigurationError",
			err:      WrapConfigurationError("tyx", "read", originalErr),
			code:     ConfigurationErrorCode,
			expected: "failed to read configuration 'tyx': original error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.Equal(t, tt.code, tt.err.ErrorCode())
			assert.ErrorIs(t, tt.err, originalErr)
		})
	}
}

func TestBaseError_Location(t *testing.T) {
	err := SchemaError("inject", "unknown parameter '%s'", "Lazy").
		WithLocation(SourceLocation{File: "svc.go", Line: 12, Column: 2})

	assert.Equal(t, "svc.go:12:2: annotation 'inject': unknown parameter 'Lazy'", err.Error())
	assert.Equal(t, "inject", err.Context()["annotation"])
	assert.Equal(t, "unknown location", SourceLocation{}.String())
	assert.Equal(t, "svc.go:3", SourceLocation{File: "svc.go", Line: 3}.String())
}

func TestMetadataErrors(t *testing.T) {
	tests := []struct {
		name     string
		err      *BaseError
		code     ErrorCode
		expected string
	}{
		{"not a class", NotAClass("app.<empty>"), NotAClassErrorCode, "not a class: app.<empty>"},
		{"duplicate definition", DuplicateDefinition("api", "Greeter"), DuplicateDefinitionErrorCode, "duplicate api name [Greeter]"},
		{"duplicate member", DuplicateMember("handler", "Impl", "Hello"), DuplicateMemberErrorCode, "duplicate handler [Impl.Hello]"},
		{"duplicate route", DuplicateRoute("Greeter", "GET /hello"), DuplicateMemberErrorCode, "duplicate route [GET /hello] on api [Greeter]"},
		{"structural", StructuralMismatch("app.Impl", "base service [%s] is final", "Base"), StructuralMismatchErrorCode, "[app.Impl] base service [Base] is final"},
		{"missing handler", MissingHandler("Impl", "Greeter", "Hello"), ContractViolationErrorCode, "service [Impl] missing handler for [Greeter.Hello]"},
		{"lose handler", LoseHandler("Impl", "Wave"), ContractViolationErrorCode, "service [Impl] lose handler on [Wave]"},
		{"inconsistent", Inconsistent("api [%s] is owned twice", "Greeter"), ConsistencyErrorCode, "api [Greeter] is owned twice"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.err.Error())
			assert.True(t, HasCode(tt.err, tt.code))
		})
	}
}

func TestMultipleErrors(t *testing.T) {
	var multi *MultipleErrors
	assert.NoError(t, multi.ErrorOrNil())

	Collect(&multi, nil)
	assert.Nil(t, multi)

	Collect(&multi, NotAClass("x"))
	Collect(&multi, errors.New("plain"))

	nested := NewMultipleErrors()
	nested.Add(DuplicateDefinition("service", "Impl"))
	nested.Add(LoseHandler("Impl", "Wave"))
	Collect(&multi, nested)

	require.Equal(t, 4, multi.Count())
	assert.Equal(t, NotAClassErrorCode, multi.ErrorCode())
	assert.Equal(t, UnknownErrorCode, multi.Errors[1].ErrorCode())
	assert.True(t, HasCode(multi, ContractViolationErrorCode))
	assert.False(t, HasCode(multi, SchemaErrorCode))
	assert.Contains(t, multi.Error(), "multiple errors (4 total)")
	assert.Contains(t, multi.Error(), "  2. error: plain")

	var target *BaseError
	require.ErrorAs(t, multi.ErrorOrNil(), &target)
	assert.Equal(t, NotAClassErrorCode, target.Code)
	assert.Equal(t, UnknownErrorCode, CodeOf(errors.New("plain")))
}
