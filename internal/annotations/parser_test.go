package annotations

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/tyx/internal/errors"
)

func TestParser_ParseAnnotation(t *testing.T) {
	parser := NewParser("", nil)
	loc := SourceLocation{File: "greeter.go", Line: 12}

	tests := []struct {
		name       string
		input      string
		wantType   AnnotationType
		wantArgs   []string
		wantParams map[string]interface{}
	}{
		{
			name:       "bare api",
			input:      "//tyx::api",
			wantType:   APIAnnotation,
			wantParams: map[string]interface{}{},
		},
		{
			name:       "api with alias",
			input:      "//tyx::api -Alias=greeter",
			wantType:   APIAnnotation,
			wantParams: map[string]interface{}{"Alias": "greeter"},
		},
		{
			name:     "service with api and final flag",
			input:    "// tyx::service -Api=contracts.Greeter -Final",
			wantType: ServiceAnnotation,
			wantParams: map[string]interface{}{
				"Api":   "contracts.Greeter",
				"Final": true,
			},
		},
		{
			name:     "explicit bool value",
			input:    "//tyx::service -Final=false",
			wantType: ServiceAnnotation,
			wantParams: map[string]interface{}{
				"Final": false,
			},
		},
		{
			name:     "http route",
			input:    "//tyx::http GET /users/{id:int}",
			wantType: HTTPAnnotation,
			wantArgs: []string{"GET", "/users/{id:int}"},
			wantParams: map[string]interface{}{
				"verb": "GET",
				"path": "/users/{id:int}",
			},
		},
		{
			name:     "verb shorthand",
			input:    "//tyx::delete /users/{id}",
			wantType: HTTPAnnotation,
			wantArgs: []string{"DELETE", "/users/{id}"},
			wantParams: map[string]interface{}{
				"verb": "DELETE",
				"path": "/users/{id}",
			},
		},
		{
			name:     "event with actions",
			input:    "//tyx::event aws:dynamodb users -Actions=insert,modify",
			wantType: EventAnnotation,
			wantArgs: []string{"aws:dynamodb", "users"},
			wantParams: map[string]interface{}{
				"source":   "aws:dynamodb",
				"resource": "users",
				"Actions":  []string{"insert", "modify"},
			},
		},
		{
			name:     "method with quoted value",
			input:    `//tyx::method -Auth="admin" -Input=CreateUser -Result=User`,
			wantType: MethodAnnotation,
			wantParams: map[string]interface{}{
				"Auth":   "admin",
				"Input":  "CreateUser",
				"Result": "User",
			},
		},
		{
			name:     "inject with resource and index",
			input:    "//tyx::inject db -Index=1",
			wantType: InjectAnnotation,
			wantArgs: []string{"db"},
			wantParams: map[string]interface{}{
				"resource": "db",
				"Index":    1,
			},
		},
		{
			name:       "marker",
			input:      "//tyx::override",
			wantType:   OverrideAnnotation,
			wantParams: map[string]interface{}{},
		},
		{
			name:       "surrounding whitespace",
			input:      "   //tyx::release   ",
			wantType:   ReleaseAnnotation,
			wantParams: map[string]interface{}{},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := parser.ParseAnnotation(tt.input, loc)
			require.NoError(t, err)
			assert.Equal(t, tt.wantType, got.Type)
			assert.Equal(t, tt.wantArgs, got.Args)
			assert.Equal(t, tt.wantParams, got.Parameters)
			assert.Equal(t, loc, got.Location)
		})
	}
}

func TestParser_Errors(t *testing.T) {
	parser := NewParser("", nil)
	loc := SourceLocation{File: "bad.go", Line: 3}

	tests := []struct {
		name     string
		input    string
		wantCode errors.ErrorCode
		contains string
	}{
		{"wrong prefix", "//other::core", errors.SyntaxErrorCode, "failed to parse annotation"},
		{"unknown kind", "//tyx::controller", errors.SyntaxErrorCode, "unknown annotation type 'controller'"},
		{"unknown flag", "//tyx::api -Prefix=/v1", errors.SchemaErrorCode, "unknown parameter 'Prefix'"},
		{"repeated flag", "//tyx::api -Alias=a -Alias=b", errors.SchemaErrorCode, "more than once"},
		{"missing path", "//tyx::http GET", errors.SchemaErrorCode, "missing required argument 'path'"},
		{"bad verb", "//tyx::http FETCH /x", errors.SchemaErrorCode, "parameter 'verb'"},
		{"path without slash", "//tyx::get users", errors.SchemaErrorCode, "must start with '/'"},
		{"too many args", "//tyx::handler extra", errors.SchemaErrorCode, "too many arguments"},
		{"int flag", "//tyx::inject -Index=first", errors.SchemaErrorCode, "expects int"},
		{"negative index", "//tyx::inject -Index=-1", errors.SyntaxErrorCode, "failed to parse"},
		{"value missing", "//tyx::method -Auth", errors.SchemaErrorCode, "requires a value"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := parser.ParseAnnotation(tt.input, loc)
			require.Error(t, err)
			assert.Equal(t, tt.wantCode, errors.CodeOf(err))
			assert.Contains(t, err.Error(), tt.contains)
			assert.Contains(t, err.Error(), "bad.go:3")
		})
	}
}

func TestParser_CustomPrefix(t *testing.T) {
	parser := NewParser("svc", nil)
	assert.Equal(t, "svc", parser.Prefix())

	assert.True(t, parser.IsAnnotation("//svc::api"))
	assert.True(t, parser.IsAnnotation("  // svc::handler"))
	assert.False(t, parser.IsAnnotation("//tyx::api"))
	assert.False(t, parser.IsAnnotation("svc::api"))

	got, err := parser.ParseAnnotation("//svc::get /ping", SourceLocation{})
	require.NoError(t, err)
	assert.Equal(t, "get", got.Kind)
	assert.Equal(t, "GET", got.GetString("verb"))

	_, err = parser.ParseAnnotation("//tyx::api", SourceLocation{})
	assert.Error(t, err)
}

func TestParsedAnnotation_Getters(t *testing.T) {
	parsed, err := NewParser("", nil).ParseAnnotation("//tyx::inject cache -Index=2", SourceLocation{})
	require.NoError(t, err)

	assert.Equal(t, "cache", parsed.GetString("resource"))
	assert.Equal(t, "fallback", parsed.GetString("missing", "fallback"))
	index, ok := parsed.GetInt("Index")
	assert.True(t, ok)
	assert.Equal(t, 2, index)
	assert.False(t, parsed.GetBool("Final"))
	assert.Nil(t, parsed.GetStringSlice("Actions"))
}

func TestParseAnnotationType(t *testing.T) {
	for _, kind := range KnownKinds() {
		_, err := ParseAnnotationType(kind)
		assert.NoError(t, err, kind)
	}
	typ, err := ParseAnnotationType("patch")
	require.NoError(t, err)
	assert.Equal(t, HTTPAnnotation, typ)

	_, err = ParseAnnotationType("route")
	assert.Error(t, err)
	assert.Equal(t, "unknown", AnnotationType(99).String())
}
