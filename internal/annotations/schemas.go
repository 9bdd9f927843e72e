package annotations

import (
	"fmt"
	"strings"

	"github.com/toyz/tyx/internal/utils"
)

var httpVerbs = []string{"GET", "POST", "PUT", "PATCH", "DELETE", "HEAD", "OPTIONS", "ANY"}

// stringRule adapts a chain of string validators to a parameter validator
func stringRule(validators ...utils.Validator[string]) func(interface{}) error {
	chain := utils.NewValidatorChain(validators...)
	return func(v interface{}) error {
		return chain.Validate(v.(string))
	}
}

var (
	validateVerb = stringRule(utils.Normalize(strings.ToUpper, utils.IsOneOf("verb", httpVerbs...)))
	validatePath = stringRule(utils.HasPrefix("path", "/"))

	validateIdentifier = stringRule(
		utils.NotEmpty("name"),
		utils.ExcludesAny("name", " \t/", "spaces or slashes"),
	)
)

func validateIndex(v interface{}) error {
	return utils.NotNegative("index")(v.(int))
}

var aliasParameter = ParameterSpec{
	Type:        StringType,
	Description: "Name the definition is published under",
	Validator:   validateIdentifier,
}

// APIAnnotationSchema defines the schema for //tyx::api annotations
var APIAnnotationSchema = AnnotationSchema{
	Type:        APIAnnotation,
	Description: "Declares an interface or struct as an api contract",
	Targets:     []TargetKind{TypeTarget},
	Parameters: map[string]ParameterSpec{
		"Alias": aliasParameter,
	},
	Examples: []string{
		"//tyx::api",
		"//tyx::api -Alias=greeter",
	},
}

// ServiceAnnotationSchema defines the schema for //tyx::service annotations
var ServiceAnnotationSchema = AnnotationSchema{
	Type:        ServiceAnnotation,
	Description: "Declares a struct as a service, optionally implementing an api",
	Targets:     []TargetKind{TypeTarget},
	Parameters: map[string]ParameterSpec{
		"Alias": aliasParameter,
		"Api": {
			Type:        StringType,
			Description: "Api implemented by the service, as Name or pkg.Name",
			Validator:   validateIdentifier,
		},
		"Final": {
			Type:        BoolType,
			Description: "Forbid services from extending this one",
		},
	},
	Examples: []string{
		"//tyx::service",
		"//tyx::service -Api=Greeter -Final",
		"//tyx::service -Alias=db -Api=contracts.Database",
	},
}

// HTTPAnnotationSchema defines the schema for //tyx::http and its verb shorthands
var HTTPAnnotationSchema = AnnotationSchema{
	Type:        HTTPAnnotation,
	Description: "Binds an api method to an HTTP route",
	Targets:     []TargetKind{MethodTarget},
	Positional: []ParameterSpec{
		{Name: "verb", Type: StringType, Required: true, Description: "HTTP verb", Validator: validateVerb},
		{Name: "path", Type: StringType, Required: true, Description: "URL path, e.g. /users/{id:int}", Validator: validatePath},
	},
	Examples: []string{
		"//tyx::http GET /hello",
		"//tyx::get /users/{id:int}",
		"//tyx::post /users",
	},
}

// EventAnnotationSchema defines the schema for //tyx::event annotations
var EventAnnotationSchema = AnnotationSchema{
	Type:        EventAnnotation,
	Description: "Binds an api method to an event source and resource",
	Targets:     []TargetKind{MethodTarget},
	Positional: []ParameterSpec{
		{Name: "source", Type: StringType, Required: true, Description: "Event source, e.g. aws:sqs"},
		{Name: "resource", Type: StringType, Required: true, Description: "Resource the event originates from"},
	},
	Parameters: map[string]ParameterSpec{
		"Actions": {
			Type:        StringSliceType,
			Description: "Comma-separated list of actions the binding accepts",
		},
	},
	Examples: []string{
		"//tyx::event aws:sqs orders",
		"//tyx::event aws:dynamodb users -Actions=insert,modify",
	},
}

// MethodAnnotationSchema defines the schema for //tyx::method annotations
var MethodAnnotationSchema = AnnotationSchema{
	Type:        MethodAnnotation,
	Description: "Declares an api method and its authorization and type information",
	Targets:     []TargetKind{MethodTarget},
	Parameters: map[string]ParameterSpec{
		"Auth":   {Type: StringType, Description: "Role required to call the method"},
		"Input":  {Type: StringType, Description: "Input type name"},
		"Result": {Type: StringType, Description: "Result type name"},
	},
	Examples: []string{
		"//tyx::method",
		"//tyx::method -Auth=admin -Input=CreateUser -Result=User",
	},
}

func markerSchema(t AnnotationType, description string, targets ...TargetKind) AnnotationSchema {
	return AnnotationSchema{
		Type:        t,
		Description: description,
		Targets:     targets,
		Examples:    []string{"//tyx::" + t.String()},
	}
}

// InjectAnnotationSchema defines the schema for //tyx::inject annotations
var InjectAnnotationSchema = AnnotationSchema{
	Type:        InjectAnnotation,
	Description: "Declares an injection point on a service field",
	Targets:     []TargetKind{FieldTarget},
	Positional: []ParameterSpec{
		{Name: "resource", Type: StringType, Description: "Injection token, defaults to the field type name", Validator: validateIdentifier},
	},
	Parameters: map[string]ParameterSpec{
		"Index": {
			Type:        IntType,
			Description: "Parameter position, for fields standing in for constructor parameters",
			Validator:   validateIndex,
		},
	},
	Examples: []string{
		"//tyx::inject",
		"//tyx::inject Configuration",
		"//tyx::inject db -Index=0",
	},
}

// builtinSchemas lists every schema registered by RegisterBuiltinSchemas
func builtinSchemas() []AnnotationSchema {
	return []AnnotationSchema{
		APIAnnotationSchema,
		ServiceAnnotationSchema,
		HTTPAnnotationSchema,
		EventAnnotationSchema,
		MethodAnnotationSchema,
		markerSchema(HandlerAnnotation, "Binds a service method to the api method of the same name", MethodTarget),
		markerSchema(OverrideAnnotation, "Replaces a handler inherited from the base service", MethodTarget),
		markerSchema(InitAnnotation, "Marks the service initializer hook", MethodTarget),
		markerSchema(SelectorAnnotation, "Marks the service selector hook", MethodTarget),
		markerSchema(ActivateAnnotation, "Marks the service activator hook", MethodTarget),
		markerSchema(ReleaseAnnotation, "Marks the service releasor hook", MethodTarget),
		InjectAnnotationSchema,
		markerSchema(ConstructorAnnotation, "Marks a constructor whose parameters are injected", FuncTarget),
	}
}

// RegisterBuiltinSchemas registers every builtin //tyx:: schema with registry
func RegisterBuiltinSchemas(registry AnnotationRegistry) error {
	for _, schema := range builtinSchemas() {
		if err := registry.Register(schema.Type, schema); err != nil {
			return fmt.Errorf("failed to register %s schema: %w", schema.Type, err)
		}
	}
	return nil
}
