package tyx

import (
	"fmt"
	"strings"
)

// PathPartType represents the type of path part
type PathPartType int

const (
	StaticPart PathPartType = iota
	ParameterPart
	WildcardPart
)

// PathPart represents a single part of a route path
type PathPart struct {
	Type      PathPartType
	Value     string // For static parts: the literal text, for parameters: the parameter name
	ParamType string // For parameters: the type (e.g., "int", "string"), empty for untyped
}

// Path is a route path in tyx format, e.g. /users/{id:int}/files/{*}
type Path string

// Raw returns the original path
func (p Path) Raw() string {
	return string(p)
}

// Parts parses the path and returns the individual parts
func (p Path) Parts() []PathPart {
	path := string(p)
	var parts []PathPart

	i := 0
	for i < len(path) {
		if path[i] != '{' {
			start := i
			for i < len(path) && path[i] != '{' {
				i++
			}
			parts = append(parts, PathPart{Type: StaticPart, Value: path[start:i]})
			continue
		}

		end := strings.IndexByte(path[i:], '}')
		if end == -1 {
			// unclosed brace, keep the rest literally
			parts = append(parts, PathPart{Type: StaticPart, Value: path[i:]})
			break
		}
		content := path[i+1 : i+end]
		i += end + 1

		if content == "*" {
			parts = append(parts, PathPart{Type: WildcardPart, Value: "*"})
			continue
		}
		name, paramType, _ := strings.Cut(content, ":")
		parts = append(parts, PathPart{
			Type:      ParameterPart,
			Value:     strings.TrimSpace(name),
			ParamType: strings.TrimSpace(paramType),
		})
	}

	return parts
}

// Params maps parameter names to their declared types; untyped parameters
// map to "string".
func (p Path) Params() map[string]string {
	params := make(map[string]string)
	for _, part := range p.Parts() {
		if part.Type != ParameterPart {
			continue
		}
		paramType := part.ParamType
		if paramType == "" {
			paramType = "string"
		}
		params[part.Value] = paramType
	}
	return params
}

// Validate checks brace balance, parameter names and wildcard placement
func (p Path) Validate() error {
	raw := string(p)
	if !strings.HasPrefix(raw, "/") {
		return fmt.Errorf("path must start with '/': %s", raw)
	}
	if strings.Count(raw, "{") != strings.Count(raw, "}") {
		return fmt.Errorf("mismatched braces in path: %s", raw)
	}

	seen := make(map[string]bool)
	parts := p.Parts()
	for i, part := range parts {
		switch part.Type {
		case WildcardPart:
			if i != len(parts)-1 {
				return fmt.Errorf("wildcard must be the last segment: %s", raw)
			}
		case ParameterPart:
			if part.Value == "" {
				return fmt.Errorf("empty parameter name in path: %s (use {name} or {name:type})", raw)
			}
			if seen[part.Value] {
				return fmt.Errorf("parameter '%s' appears twice in path: %s", part.Value, raw)
			}
			seen[part.Value] = true
		}
	}
	return nil
}

// Convert renders the path in a router's syntax. param formats a parameter
// name and wildcard is written for {*}.
func (p Path) Convert(param func(name string) string, wildcard string) string {
	var b strings.Builder
	for _, part := range p.Parts() {
		switch part.Type {
		case ParameterPart:
			b.WriteString(param(part.Value))
		case WildcardPart:
			b.WriteString(wildcard)
		default:
			b.WriteString(part.Value)
		}
	}
	return b.String()
}

// ColonPath renders the path with :name parameters, the syntax shared by
// echo, gin and fiber.
func (p Path) ColonPath(wildcard string) string {
	return p.Convert(func(name string) string { return ":" + name }, wildcard)
}
