package annotations

import (
	"regexp"
	"sort"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/toyz/tyx/internal/errors"
)

// DefaultPrefix is the annotation namespace used when none is configured
const DefaultPrefix = "tyx"

// annotationAST is the raw grammar of //<prefix>::kind [args...] [-Flag[=value]...]
type annotationAST struct {
	Kind string      `parser:"Prefix @Word"`
	Args []*argument `parser:"@@*"`
}

type argument struct {
	Flag  *flagAST `parser:"  @@"`
	Value *string  `parser:"| @(String | Path | Word)"`
}

type flagAST struct {
	Name  string  `parser:"'-' @Word"`
	Value *string `parser:"( '=' @(String | Path | Word) )?"`
}

// Parser turns annotation comments into schema-checked ParsedAnnotations
type Parser struct {
	prefix   string
	parser   *participle.Parser[annotationAST]
	registry AnnotationRegistry
}

// NewParser creates a parser for //<prefix>:: annotations. An empty prefix
// selects DefaultPrefix and a nil registry selects DefaultRegistry.
func NewParser(prefix string, registry AnnotationRegistry) *Parser {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	if registry == nil {
		registry = DefaultRegistry()
	}

	lex := lexer.MustSimple([]lexer.SimpleRule{
		{Name: "Prefix", Pattern: `//\s*` + regexp.QuoteMeta(prefix) + `::`},
		{Name: "String", Pattern: `"(\\"|[^"])*"`},
		{Name: "Path", Pattern: `/[^\s]*`},
		{Name: "Word", Pattern: `[A-Za-z0-9_*@$][A-Za-z0-9_.:,*@$-]*`},
		{Name: "Punct", Pattern: `[-=]`},
		{Name: "Whitespace", Pattern: `\s+`},
	})

	return &Parser{
		prefix: prefix,
		parser: participle.MustBuild[annotationAST](
			participle.Lexer(lex),
			participle.Elide("Whitespace"),
			participle.Unquote("String"),
		),
		registry: registry,
	}
}

// Prefix returns the annotation namespace
func (p *Parser) Prefix() string {
	return p.prefix
}

// Schema returns the schema the parser checks annotationType against
func (p *Parser) Schema(annotationType AnnotationType) (AnnotationSchema, error) {
	return p.registry.GetSchema(annotationType)
}

// IsAnnotation reports whether comment is one of this parser's annotations
func (p *Parser) IsAnnotation(comment string) bool {
	content := strings.TrimSpace(comment)
	if !strings.HasPrefix(content, "//") {
		return false
	}
	content = strings.TrimSpace(strings.TrimPrefix(content, "//"))
	return strings.HasPrefix(content, p.prefix+"::")
}

// ParseAnnotation parses a single annotation comment and checks it against
// the schema of its kind.
func (p *Parser) ParseAnnotation(comment string, location SourceLocation) (*ParsedAnnotation, error) {
	comment = strings.TrimSpace(comment)

	ast, err := p.parser.ParseString(location.File, comment)
	if err != nil {
		return nil, errors.WrapParseError("annotation", err).
			WithLocation(location).
			WithContext("annotation", comment).
			WithSuggestion("annotations look like //" + p.prefix + "::kind [args...] [-Flag] [-Key=value]")
	}

	annotationType, err := ParseAnnotationType(ast.Kind)
	if err != nil {
		return nil, errors.ParseError("unknown annotation type '%s'", ast.Kind).
			WithLocation(location).
			WithContext("annotation", comment).
			WithSuggestion("known kinds: " + strings.Join(KnownKinds(), ", "))
	}

	schema, err := p.registry.GetSchema(annotationType)
	if err != nil {
		return nil, errors.SchemaError(ast.Kind, "%v", err).WithLocation(location)
	}

	parsed := &ParsedAnnotation{
		Type:       annotationType,
		Kind:       ast.Kind,
		Parameters: make(map[string]interface{}),
		Location:   location,
		Raw:        comment,
	}
	if verb, ok := verbShorthands[ast.Kind]; ok {
		parsed.Args = append(parsed.Args, verb)
	}

	var flags []*flagAST
	for _, arg := range ast.Args {
		if arg.Flag != nil {
			flags = append(flags, arg.Flag)
			continue
		}
		parsed.Args = append(parsed.Args, *arg.Value)
	}

	if err := p.bindPositional(parsed, schema); err != nil {
		return nil, err
	}
	if err := p.bindFlags(parsed, schema, flags); err != nil {
		return nil, err
	}
	return parsed, nil
}

func (p *Parser) bindPositional(parsed *ParsedAnnotation, schema AnnotationSchema) error {
	if len(parsed.Args) > len(schema.Positional) {
		return errors.SchemaError(parsed.Kind, "too many arguments: expected at most %d, got %d",
			len(schema.Positional), len(parsed.Args)).
			WithLocation(parsed.Location)
	}
	for i, spec := range schema.Positional {
		if i >= len(parsed.Args) {
			if spec.Required {
				return errors.SchemaError(parsed.Kind, "missing required argument '%s'", spec.Name).
					WithLocation(parsed.Location)
			}
			continue
		}
		if err := bindValue(parsed, spec.Name, spec, &parsed.Args[i]); err != nil {
			return err
		}
	}
	return nil
}

func (p *Parser) bindFlags(parsed *ParsedAnnotation, schema AnnotationSchema, flags []*flagAST) error {
	for _, flag := range flags {
		spec, ok := schema.Parameters[flag.Name]
		if !ok {
			return errors.SchemaError(parsed.Kind, "unknown parameter '%s'", flag.Name).
				WithLocation(parsed.Location).
				WithSuggestion("valid parameters: " + strings.Join(parameterNames(schema), ", "))
		}
		if parsed.HasParameter(flag.Name) {
			return errors.SchemaError(parsed.Kind, "parameter '%s' given more than once", flag.Name).
				WithLocation(parsed.Location)
		}
		if err := bindValue(parsed, flag.Name, spec, flag.Value); err != nil {
			return err
		}
	}
	for name, spec := range schema.Parameters {
		if spec.Required && !parsed.HasParameter(name) {
			return errors.SchemaError(parsed.Kind, "missing required parameter '%s'", name).
				WithLocation(parsed.Location)
		}
	}
	return nil
}

func bindValue(parsed *ParsedAnnotation, name string, spec ParameterSpec, raw *string) error {
	value, err := spec.convert(raw)
	if err != nil {
		return errors.SchemaError(parsed.Kind, "parameter '%s' expects %s: %v", name, spec.Type, err).
			WithLocation(parsed.Location)
	}
	if spec.Validator != nil {
		if err := spec.Validator(value); err != nil {
			return errors.SchemaError(parsed.Kind, "parameter '%s' %v", name, err).
				WithLocation(parsed.Location)
		}
	}
	parsed.Parameters[name] = value
	return nil
}

func parameterNames(schema AnnotationSchema) []string {
	names := make([]string, 0, len(schema.Parameters))
	for name := range schema.Parameters {
		names = append(names, "-"+name)
	}
	sort.Strings(names)
	return names
}

// KnownKinds returns every accepted annotation kind, sorted
func KnownKinds() []string {
	kinds := make([]string, 0, len(annotationNames)+len(verbShorthands))
	for _, name := range annotationNames {
		kinds = append(kinds, name)
	}
	for short := range verbShorthands {
		kinds = append(kinds, short)
	}
	sort.Strings(kinds)
	return kinds
}
