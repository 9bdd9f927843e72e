// Package loader replays scanned source declarations into a metadata
// registry and commits the resulting definitions in dependency order.
package loader

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/toyz/tyx/internal/annotations"
	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/metadata"
	"github.com/toyz/tyx/internal/parser"
)

// Loader turns parser packages into committed Api and Service definitions
type Loader struct {
	registry *metadata.Registry
	log      *zap.Logger
	packages []*parser.Package
}

// Option configures a Loader
type Option func(*Loader)

// WithLogger sets the logger used for load events
func WithLogger(log *zap.Logger) Option {
	return func(l *Loader) {
		if log != nil {
			l.log = log
		}
	}
}

// New creates a loader that fills registry
func New(registry *metadata.Registry, opts ...Option) *Loader {
	l := &Loader{
		registry: registry,
		log:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Registry returns the registry being filled
func (l *Loader) Registry() *metadata.Registry {
	return l.registry
}

// Add queues scanned packages for the next Load
func (l *Loader) Add(pkgs ...*parser.Package) {
	l.packages = append(l.packages, pkgs...)
}

// Result summarizes a Load
type Result struct {
	APIs      int
	Services  int
	Committed int
}

// Load defines every annotated class of the queued packages and commits the
// definitions, parents first. Errors are collected; a definition whose
// dependency failed is skipped.
func (l *Loader) Load() (*Result, error) {
	st := newLoadState(l)

	st.indexClasses()
	if err := st.multiErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	st.defineAll()
	st.defineConstructors()
	if err := st.multiErr.ErrorOrNil(); err != nil {
		return nil, err
	}

	order := st.commitOrder()
	committed := st.commitAll(order)

	result := &Result{APIs: st.apiCount, Services: st.serviceCount, Committed: committed}
	l.log.Info("definitions loaded",
		zap.Int("packages", len(l.packages)),
		zap.Int("apis", result.APIs),
		zap.Int("services", result.Services),
		zap.Int("committed", result.Committed))

	if err := st.multiErr.ErrorOrNil(); err != nil {
		return result, err
	}
	return result, nil
}

// node is one committable definition: a service (which commits its own
// inline api) or a contract-only api.
type node struct {
	decl    *parser.ClassDecl
	class   *metadata.Class
	api     *metadata.APIMetadata
	service *metadata.ServiceMetadata

	alias    string
	final    bool
	apiClass *metadata.Class
}

func (n *node) name() string {
	return n.class.QualifiedName()
}

type loadState struct {
	l        *Loader
	decls    map[parser.TypeRef]*parser.ClassDecl
	pkgNames map[string]string
	classes  map[parser.TypeRef]*metadata.Class
	nodes    map[parser.TypeRef]*node
	order    []parser.TypeRef

	apiCount     int
	serviceCount int
	multiErr     *errors.MultipleErrors
}

func newLoadState(l *Loader) *loadState {
	return &loadState{
		l:        l,
		decls:    make(map[parser.TypeRef]*parser.ClassDecl),
		pkgNames: make(map[string]string),
		classes:  make(map[parser.TypeRef]*metadata.Class),
		nodes:    make(map[parser.TypeRef]*node),
	}
}

// indexClasses interns every scanned class, then links each to its parent:
// the first embedded type that is itself a scanned class.
func (st *loadState) indexClasses() {
	for _, pkg := range st.l.packages {
		st.pkgNames[pkg.Path] = pkg.Name
		for _, decl := range pkg.Classes {
			ref := decl.Ref()
			if prev, ok := st.decls[ref]; ok {
				errors.Collect(&st.multiErr, errors.DuplicateDefinition("class", ref.String()).
					WithLocation(decl.Location).
					WithContext("previous", prev.Location.String()))
				continue
			}
			st.decls[ref] = decl
			st.order = append(st.order, ref)
		}
	}

	for _, ref := range st.order {
		decl := st.decls[ref]
		class, err := st.l.registry.Class(ref.Package, ref.Name, nil, decl.Methods...)
		if err != nil {
			errors.Collect(&st.multiErr, err)
			continue
		}
		class.Source = decl.Location.String()
		st.classes[ref] = class
	}

	for _, ref := range st.order {
		decl := st.decls[ref]
		for _, embed := range decl.Embeds {
			parent, ok := st.classes[embed]
			if !ok {
				continue
			}
			if _, err := st.l.registry.Class(ref.Package, ref.Name, parent); err != nil {
				errors.Collect(&st.multiErr, err)
			}
			break
		}
	}
}

// classFor returns the class for a referenced type, interning types that were
// not scanned (imported or predeclared types) on demand.
func (st *loadState) classFor(ref parser.TypeRef) *metadata.Class {
	if ref.IsZero() {
		return nil
	}
	if class, ok := st.classes[ref]; ok {
		return class
	}
	class, err := st.l.registry.Class(ref.Package, ref.Name, nil)
	if err != nil {
		return nil
	}
	st.classes[ref] = class
	return class
}

func (st *loadState) defineAll() {
	for _, ref := range st.order {
		decl := st.decls[ref]
		class := st.classes[ref]
		if class == nil || !decl.IsAnnotated() {
			continue
		}
		n := &node{decl: decl, class: class}

		if ann := decl.Annotation(annotations.APIAnnotation); ann != nil {
			api, err := st.l.registry.DefineAPI(class)
			if err != nil {
				errors.Collect(&st.multiErr, err)
				continue
			}
			n.api = api
			n.alias = ann.GetString("Alias")
			st.apiCount++
		}
		if ann := decl.Annotation(annotations.ServiceAnnotation); ann != nil {
			if decl.Kind != parser.StructClass {
				errors.Collect(&st.multiErr, errors.SchemaError(ann.Kind,
					"service %s must be a struct", decl.Name).WithLocation(ann.Location))
				continue
			}
			svc, err := st.l.registry.DefineService(class)
			if err != nil {
				errors.Collect(&st.multiErr, err)
				continue
			}
			n.service = svc
			n.alias = ann.GetString("Alias")
			n.final = ann.GetBool("Final")
			if name := ann.GetString("Api"); name != "" {
				apiClass, err := st.resolveAPI(decl, name)
				if err != nil {
					errors.Collect(&st.multiErr, err.WithLocation(ann.Location))
					continue
				}
				n.apiClass = apiClass
			}
			st.serviceCount++
		}

		if n.api != nil && decl.Kind == parser.InterfaceClass {
			for _, method := range decl.Methods {
				n.api.Method(method).Source = decl.Location.String()
			}
		}
		for _, member := range decl.Members {
			st.defineMember(n, member)
		}
		for _, field := range decl.Fields {
			st.defineField(n, field)
		}
		if n.api != nil || n.service != nil {
			st.nodes[ref] = n
		}
	}
}

// resolveAPI finds the api class a service names with -Api. A bare name
// prefers the service's own package.
func (st *loadState) resolveAPI(service *parser.ClassDecl, name string) (*metadata.Class, *errors.BaseError) {
	var matches []parser.TypeRef
	local := parser.TypeRef{Package: service.Package, Name: name}
	if decl, ok := st.decls[local]; ok && decl.Annotation(annotations.APIAnnotation) != nil {
		return st.classes[local], nil
	}
	for _, ref := range st.order {
		decl := st.decls[ref]
		if decl.Annotation(annotations.APIAnnotation) == nil {
			continue
		}
		qualified := st.pkgNames[ref.Package] + "." + ref.Name
		if ref.Name == name || qualified == name || ref.String() == name {
			matches = append(matches, ref)
		}
	}
	switch len(matches) {
	case 0:
		return nil, errors.StructuralMismatch(service.Ref().String(), "api [%s] not found", name).
			WithSuggestion("declare it with //tyx::api or qualify it as pkg.Name")
	case 1:
		return st.classes[matches[0]], nil
	default:
		candidates := make([]string, len(matches))
		for i, m := range matches {
			candidates[i] = m.String()
		}
		return nil, errors.StructuralMismatch(service.Ref().String(), "api [%s] is ambiguous: %s",
			name, strings.Join(candidates, ", ")).
			WithSuggestion("qualify the api as pkg.Name")
	}
}

func (st *loadState) defineMember(n *node, member *parser.MemberDecl) {
	source := member.Location.String()
	target := n.class.QualifiedName() + "." + member.Name
	for _, ann := range member.Annotations {
		var err error
		switch ann.Type {
		case annotations.HTTPAnnotation, annotations.EventAnnotation, annotations.MethodAnnotation:
			if n.api == nil {
				err = errors.SchemaError(ann.Kind, "method %s.%s is on %s which is not an api",
					n.decl.Name, member.Name, n.decl.Name)
				break
			}
			err = defineMethod(n.api.Method(member.Name), ann, source)
		case annotations.HandlerAnnotation, annotations.OverrideAnnotation,
			annotations.InitAnnotation, annotations.SelectorAnnotation,
			annotations.ActivateAnnotation, annotations.ReleaseAnnotation:
			if n.service == nil {
				err = errors.SchemaError(ann.Kind, "method %s.%s is on %s which is not a service",
					n.decl.Name, member.Name, n.decl.Name)
				break
			}
			var h *metadata.HandlerMetadata
			h, err = bindHandler(n.service, ann.Type, member.Name, target)
			if h != nil {
				h.Source = source
			}
		}
		if err != nil {
			errors.Collect(&st.multiErr, withLocation(err, ann.Location))
		}
	}
}

func defineMethod(m *metadata.MethodMetadata, ann *annotations.ParsedAnnotation, source string) error {
	m.Source = source
	switch ann.Type {
	case annotations.HTTPAnnotation:
		_, err := m.AddRoute(ann.GetString("verb"), ann.GetString("path"))
		return err
	case annotations.EventAnnotation:
		m.AddEvent(ann.GetString("source"), ann.GetString("resource"), ann.GetStringSlice("Actions")...)
	case annotations.MethodAnnotation:
		m.Auth = ann.GetString("Auth", m.Auth)
		m.Input = ann.GetString("Input", m.Input)
		m.Result = ann.GetString("Result", m.Result)
	}
	return nil
}

func bindHandler(svc *metadata.ServiceMetadata, kind annotations.AnnotationType, method, target string) (*metadata.HandlerMetadata, error) {
	switch kind {
	case annotations.HandlerAnnotation:
		return svc.AddHandler(method, target)
	case annotations.OverrideAnnotation:
		return svc.AddOverride(method, target)
	case annotations.InitAnnotation:
		return svc.SetInitializer(method, target)
	case annotations.SelectorAnnotation:
		return svc.SetSelector(method, target)
	case annotations.ActivateAnnotation:
		return svc.SetActivator(method, target)
	case annotations.ReleaseAnnotation:
		return svc.SetReleasor(method, target)
	}
	return nil, fmt.Errorf("annotation %s does not bind a handler", kind)
}

func (st *loadState) defineField(n *node, field *parser.FieldDecl) {
	for _, ann := range field.Annotations {
		if ann.Type != annotations.InjectAnnotation {
			continue
		}
		if n.service == nil {
			errors.Collect(&st.multiErr, errors.SchemaError(ann.Kind,
				"field %s.%s is on %s which is not a service", n.decl.Name, field.Name, n.decl.Name).
				WithLocation(ann.Location))
			continue
		}
		resource := ann.GetString("resource")
		target := st.classFor(field.Type)

		property := field.Name
		var err error
		if index, ok := ann.GetInt("Index"); ok {
			err = st.injectParameter(n.service, index, resource, target)
		} else {
			_, err = n.service.InjectProperty(property, resource, target)
		}
		if err != nil {
			errors.Collect(&st.multiErr, withLocation(err, ann.Location))
		}
	}
}

func (st *loadState) injectParameter(svc *metadata.ServiceMetadata, index int, resource string, target *metadata.Class) error {
	key := metadata.InjectKey("", &index)
	if _, ok := svc.Dependencies[key]; ok {
		return errors.DuplicateMember("inject", svc.Name, key)
	}
	_, err := svc.InjectParameter("", index, resource, target)
	return err
}

// defineConstructors injects every parameter of an annotated constructor
// into the service it returns.
func (st *loadState) defineConstructors() {
	for _, pkg := range st.l.packages {
		for _, ctor := range pkg.Constructors {
			n, ok := st.nodes[ctor.Result]
			if !ok || n.service == nil {
				errors.Collect(&st.multiErr, errors.StructuralMismatch(ctor.Result.String(),
					"constructor %s does not return a service", ctor.Func).
					WithLocation(ctor.Location))
				continue
			}
			for i, param := range ctor.Params {
				if err := st.injectParameter(n.service, i, "", st.classFor(param.Type)); err != nil {
					errors.Collect(&st.multiErr, withLocation(err, ctor.Location).
						WithContext("parameter", param.Name))
				}
			}
		}
	}
}

func withLocation(err error, loc annotations.SourceLocation) *errors.BaseError {
	if base, ok := err.(*errors.BaseError); ok {
		if base.Loc.IsEmpty() {
			base.Loc = loc
		}
		return base
	}
	return errors.Wrap(errors.UnknownErrorCode, "failed to define metadata", err).WithLocation(loc)
}
