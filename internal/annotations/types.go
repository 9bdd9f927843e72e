package annotations

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/toyz/tyx/internal/errors"
)

// AnnotationType represents the kind of a //tyx:: annotation
type AnnotationType int

const (
	APIAnnotation AnnotationType = iota
	ServiceAnnotation
	HTTPAnnotation
	EventAnnotation
	MethodAnnotation
	HandlerAnnotation
	OverrideAnnotation
	InitAnnotation
	SelectorAnnotation
	ActivateAnnotation
	ReleaseAnnotation
	InjectAnnotation
	ConstructorAnnotation
)

var annotationNames = map[AnnotationType]string{
	APIAnnotation:         "api",
	ServiceAnnotation:     "service",
	HTTPAnnotation:        "http",
	EventAnnotation:       "event",
	MethodAnnotation:      "method",
	HandlerAnnotation:     "handler",
	OverrideAnnotation:    "override",
	InitAnnotation:        "init",
	SelectorAnnotation:    "selector",
	ActivateAnnotation:    "activate",
	ReleaseAnnotation:     "release",
	InjectAnnotation:      "inject",
	ConstructorAnnotation: "constructor",
}

// verbShorthands maps shorthand kinds onto an http annotation with an implied verb
var verbShorthands = map[string]string{
	"get":    "GET",
	"post":   "POST",
	"put":    "PUT",
	"patch":  "PATCH",
	"delete": "DELETE",
}

// String returns the string representation of the annotation type
func (a AnnotationType) String() string {
	if name, ok := annotationNames[a]; ok {
		return name
	}
	return "unknown"
}

// ParseAnnotationType converts a kind string to AnnotationType
func ParseAnnotationType(s string) (AnnotationType, error) {
	for t, name := range annotationNames {
		if name == s {
			return t, nil
		}
	}
	if _, ok := verbShorthands[s]; ok {
		return HTTPAnnotation, nil
	}
	return 0, fmt.Errorf("unknown annotation type: %s", s)
}

// TargetKind is the kind of declaration an annotation is attached to
type TargetKind int

const (
	TypeTarget TargetKind = iota
	MethodTarget
	FieldTarget
	FuncTarget
)

// String returns the string representation of the target kind
func (k TargetKind) String() string {
	switch k {
	case TypeTarget:
		return "type"
	case MethodTarget:
		return "method"
	case FieldTarget:
		return "field"
	case FuncTarget:
		return "function"
	default:
		return "unknown"
	}
}

// SourceLocation represents the location of an annotation in source code
type SourceLocation = errors.SourceLocation

// ParsedAnnotation represents a fully parsed annotation with typed parameters
type ParsedAnnotation struct {
	Type       AnnotationType
	Kind       string                 // kind as written, e.g. "get" for a shorthand
	Args       []string               // positional arguments
	Parameters map[string]interface{} // named and positional parameters, typed per schema
	Location   SourceLocation
	Raw        string
}

// GetString returns a string parameter value with optional default
func (p *ParsedAnnotation) GetString(paramName string, defaultValue ...string) string {
	if value, exists := p.Parameters[paramName]; exists {
		if strValue, ok := value.(string); ok {
			return strValue
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return ""
}

// GetBool returns a boolean parameter value with optional default
func (p *ParsedAnnotation) GetBool(paramName string, defaultValue ...bool) bool {
	if value, exists := p.Parameters[paramName]; exists {
		if boolValue, ok := value.(bool); ok {
			return boolValue
		}
	}
	if len(defaultValue) > 0 {
		return defaultValue[0]
	}
	return false
}

// GetInt returns an integer parameter value and whether it was set
func (p *ParsedAnnotation) GetInt(paramName string) (int, bool) {
	if value, exists := p.Parameters[paramName]; exists {
		if intValue, ok := value.(int); ok {
			return intValue, true
		}
	}
	return 0, false
}

// GetStringSlice returns a string slice parameter value
func (p *ParsedAnnotation) GetStringSlice(paramName string) []string {
	if value, exists := p.Parameters[paramName]; exists {
		if sliceValue, ok := value.([]string); ok {
			return sliceValue
		}
	}
	return nil
}

// HasParameter checks if a parameter exists
func (p *ParsedAnnotation) HasParameter(paramName string) bool {
	_, exists := p.Parameters[paramName]
	return exists
}

// ParameterType represents the type of a parameter
type ParameterType int

const (
	StringType ParameterType = iota
	BoolType
	IntType
	StringSliceType
)

// String returns the string representation of the parameter type
func (p ParameterType) String() string {
	switch p {
	case StringType:
		return "string"
	case BoolType:
		return "bool"
	case IntType:
		return "int"
	case StringSliceType:
		return "[]string"
	default:
		return "unknown"
	}
}

// ParameterSpec defines the specification for an annotation parameter
type ParameterSpec struct {
	Name        string // set for positional parameters
	Type        ParameterType
	Required    bool
	Description string
	Validator   func(interface{}) error
}

// AnnotationSchema defines the schema for an annotation type
type AnnotationSchema struct {
	Type        AnnotationType
	Description string
	Targets     []TargetKind
	Positional  []ParameterSpec
	Parameters  map[string]ParameterSpec
	Examples    []string
}

// AllowsTarget reports whether the annotation may be attached to kind
func (s AnnotationSchema) AllowsTarget(kind TargetKind) bool {
	for _, t := range s.Targets {
		if t == kind {
			return true
		}
	}
	return false
}

// convert turns a raw flag or positional value into the parameter's type
func (spec ParameterSpec) convert(raw *string) (interface{}, error) {
	switch spec.Type {
	case BoolType:
		if raw == nil {
			return true, nil
		}
		return strconv.ParseBool(*raw)
	case IntType:
		if raw == nil {
			return nil, fmt.Errorf("requires a value")
		}
		return strconv.Atoi(*raw)
	case StringSliceType:
		if raw == nil {
			return nil, fmt.Errorf("requires a value")
		}
		var out []string
		for _, part := range strings.Split(*raw, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
		return out, nil
	default:
		if raw == nil {
			return nil, fmt.Errorf("requires a value")
		}
		return *raw, nil
	}
}
