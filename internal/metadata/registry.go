package metadata

import (
	"reflect"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/utils"
)

// Registry is the side-table that attaches Api and Service definitions to
// classes and publishes committed definitions under their names.
//
// A Registry is filled during a single-goroutine load phase. Once loading is
// done, committed definitions are read-only and may be read concurrently.
type Registry struct {
	log *zap.Logger

	classes  map[uuid.UUID]*Class
	types    map[reflect.Type]*Class
	apis     map[uuid.UUID]*APIMetadata
	services map[uuid.UUID]*ServiceMetadata

	apiNames     *utils.Registry[string, *APIMetadata]
	serviceNames *utils.Registry[string, *ServiceMetadata]
}

// Option configures a Registry
type Option func(*Registry)

// WithLogger sets the logger used for define/commit events
func WithLogger(log *zap.Logger) Option {
	return func(r *Registry) {
		if log != nil {
			r.log = log
		}
	}
}

// NewRegistry creates an empty registry
func NewRegistry(opts ...Option) *Registry {
	r := &Registry{
		log:          zap.NewNop(),
		classes:      make(map[uuid.UUID]*Class),
		types:        make(map[reflect.Type]*Class),
		apis:         make(map[uuid.UUID]*APIMetadata),
		services:     make(map[uuid.UUID]*ServiceMetadata),
		apiNames:     utils.NewRegistry(uniqueName("api", func(a *APIMetadata) *Class { return a.Target })),
		serviceNames: utils.NewRegistry(uniqueName("service", func(s *ServiceMetadata) *Class { return s.Target })),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Class returns the interned class for pkg.name, creating it on first use.
// A later call may fill in a parent that was unknown before, but cannot
// change an existing one.
func (r *Registry) Class(pkg, name string, parent *Class, methods ...string) (*Class, error) {
	if name == "" {
		return nil, errors.NotAClass(qualify(pkg, "<empty>"))
	}
	id := ClassID(pkg, name)
	if c, ok := r.classes[id]; ok {
		if parent != nil && c.Parent != nil && c.Parent.ID != parent.ID {
			return nil, errors.StructuralMismatch(c.QualifiedName(),
				"already registered with parent [%s], cannot re-parent to [%s]", c.Parent, parent)
		}
		if c.Parent == nil {
			c.Parent = parent
		}
		c.DeclareMethods(methods...)
		return c, nil
	}
	c := NewClass(pkg, name, parent, methods...)
	r.classes[id] = c
	return c, nil
}

// Bind associates a Go type with a class so instances can be looked up
func (r *Registry) Bind(c *Class, t reflect.Type) {
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	c.typ = t
	r.types[t] = c
	r.classes[c.ID] = c
}

// classOf resolves a *Class, a reflect.Type or an instance to its class
func (r *Registry) classOf(target any) *Class {
	switch t := target.(type) {
	case nil:
		return nil
	case *Class:
		return t
	case reflect.Type:
		for t.Kind() == reflect.Pointer {
			t = t.Elem()
		}
		return r.types[t]
	default:
		return r.classOf(reflect.TypeOf(target))
	}
}

// DefineAPI returns the Api attached to class, attaching a new one if needed
func (r *Registry) DefineAPI(class *Class) (*APIMetadata, error) {
	if !class.IsValid() {
		return nil, errors.NotAClass(class.String())
	}
	if meta, ok := r.apis[class.ID]; ok {
		return meta, nil
	}
	meta := newAPIMetadata(r, class)
	r.apis[class.ID] = meta
	r.classes[class.ID] = class
	r.log.Debug("api defined", zap.String("class", class.QualifiedName()))
	return meta, nil
}

// DefineService returns the Service attached to class, attaching a new one if needed
func (r *Registry) DefineService(class *Class) (*ServiceMetadata, error) {
	if !class.IsValid() {
		return nil, errors.NotAClass(class.String())
	}
	if meta, ok := r.services[class.ID]; ok {
		return meta, nil
	}
	meta := newServiceMetadata(r, class)
	r.services[class.ID] = meta
	r.classes[class.ID] = class
	r.log.Debug("service defined", zap.String("class", class.QualifiedName()))
	return meta, nil
}

// HasAPI reports whether an Api is attached to target's class
func (r *Registry) HasAPI(target any) bool {
	return r.APIOf(target) != nil
}

// HasService reports whether a Service is attached to target's class
func (r *Registry) HasService(target any) bool {
	return r.ServiceOf(target) != nil
}

// APIOf returns the Api attached to target's class, or nil
func (r *Registry) APIOf(target any) *APIMetadata {
	c := r.classOf(target)
	if c == nil {
		return nil
	}
	return r.apis[c.ID]
}

// ServiceOf returns the Service attached to target's class, or nil
func (r *Registry) ServiceOf(target any) *ServiceMetadata {
	c := r.classOf(target)
	if c == nil {
		return nil
	}
	return r.services[c.ID]
}

// APIByName returns a committed Api by name
func (r *Registry) APIByName(name string) (*APIMetadata, bool) {
	return r.apiNames.Get(name)
}

// ServiceByName returns a committed Service by name
func (r *Registry) ServiceByName(name string) (*ServiceMetadata, bool) {
	return r.serviceNames.Get(name)
}

// APIs returns committed Apis in commit order
func (r *Registry) APIs() []*APIMetadata {
	return r.apiNames.Values()
}

// Services returns committed Services in commit order
func (r *Registry) Services() []*ServiceMetadata {
	return r.serviceNames.Values()
}

// uniqueName rejects a second definition published under a taken name
func uniqueName[T comparable](kind string, target func(T) *Class) utils.RegistryValidator[string, T] {
	return func(name string, meta T, existing map[string]T) error {
		prev, ok := existing[name]
		if !ok || prev == meta {
			return nil
		}
		return errors.DuplicateDefinition(kind, name).
			WithContext("previous", target(prev).QualifiedName()).
			WithContext("current", target(meta).QualifiedName())
	}
}
