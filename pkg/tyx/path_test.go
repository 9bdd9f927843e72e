package tyx

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestPath_Parts(t *testing.T) {
	parts := Path("/users/{id:int}/files/{*}").Parts()

	assert.Equal(t, []PathPart{
		{Type: StaticPart, Value: "/users/"},
		{Type: ParameterPart, Value: "id", ParamType: "int"},
		{Type: StaticPart, Value: "/files/"},
		{Type: WildcardPart, Value: "*"},
	}, parts)
}

func TestPath_Params(t *testing.T) {
	tests := []struct {
		path     string
		expected map[string]string
	}{
		{"/health", map[string]string{}},
		{"/users/{id:int}", map[string]string{"id": "int"}},
		{"/users/{user}/posts/{slug:string}", map[string]string{"user": "string", "slug": "string"}},
		{"/orders/{ id : uuid }", map[string]string{"id": "uuid"}},
		{"/files/{*}", map[string]string{}},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			assert.Equal(t, tt.expected, Path(tt.path).Params())
		})
	}
}

func TestPath_Validate(t *testing.T) {
	tests := []struct {
		name    string
		path    string
		wantErr string
	}{
		{"static", "/health", ""},
		{"typed parameter", "/users/{id:int}", ""},
		{"trailing wildcard", "/static/{*}", ""},
		{"relative", "users", "must start with '/'"},
		{"unclosed brace", "/users/{id", "mismatched braces"},
		{"empty name", "/users/{:int}", "empty parameter name"},
		{"repeated parameter", "/a/{id}/b/{id:int}", "appears twice"},
		{"inner wildcard", "/a/{*}/b", "wildcard must be the last segment"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := Path(tt.path).Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			if assert.Error(t, err) {
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestPath_Convert(t *testing.T) {
	p := Path("/users/{id:int}/files/{*}")

	assert.Equal(t, "/users/:id/files/*", p.ColonPath("*"))
	assert.Equal(t, "/users/<id>/files/...", p.Convert(func(name string) string { return "<" + name + ">" }, "..."))
	assert.Equal(t, "/users/{id:int}/files/{*}", p.Raw())
}
