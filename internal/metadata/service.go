package metadata

import (
	"go.uber.org/zap"

	"github.com/toyz/tyx/internal/errors"
)

// ServiceMetadata describes a concrete class that implements zero or one Api
type ServiceMetadata struct {
	Target *Class
	Name   string
	Alias  string
	Final  bool
	Inline bool // the Api is declared on the service class itself
	Source string

	API  *APIMetadata
	Base *ServiceMetadata

	Dependencies map[string]*InjectMetadata
	Handlers     map[string]*HandlerMetadata

	Initializer *HandlerMetadata
	Selector    *HandlerMetadata
	Activator   *HandlerMetadata
	Releasor    *HandlerMetadata

	registry  *Registry
	committed bool
}

func newServiceMetadata(r *Registry, target *Class) *ServiceMetadata {
	return &ServiceMetadata{
		Target:       target,
		Name:         target.Name,
		Source:       target.Source,
		Dependencies: make(map[string]*InjectMetadata),
		Handlers:     make(map[string]*HandlerMetadata),
		registry:     r,
	}
}

// Committed reports whether Commit has completed
func (s *ServiceMetadata) Committed() bool {
	return s.committed
}

// InjectProperty declares a property injection. An empty resource falls back
// to the target class name.
func (s *ServiceMetadata) InjectProperty(property, resource string, target *Class) (*InjectMetadata, error) {
	return s.inject(property, nil, resource, target)
}

// InjectParameter declares a constructor (property == "") or method
// parameter injection at index.
func (s *ServiceMetadata) InjectParameter(property string, index int, resource string, target *Class) (*InjectMetadata, error) {
	return s.inject(property, &index, resource, target)
}

func (s *ServiceMetadata) inject(property string, index *int, resource string, target *Class) (*InjectMetadata, error) {
	key := InjectKey(property, index)
	if resource == "" && target != nil {
		resource = target.Name
	}
	if resource == "" {
		return nil, errors.DependencyError(s.Name+"."+key, "no resource token or target class")
	}
	meta := &InjectMetadata{
		Service:  s,
		Key:      key,
		Property: property,
		Resource: resource,
		Target:   target,
		Index:    index,
	}
	s.Dependencies[key] = meta
	return meta, nil
}

// AddHandler binds a service method to the Api method of the same name
func (s *ServiceMetadata) AddHandler(method string, target any) (*HandlerMetadata, error) {
	return s.addHandler("handler", method, target, false)
}

// AddOverride binds a service method that replaces an inherited handler
func (s *ServiceMetadata) AddOverride(method string, target any) (*HandlerMetadata, error) {
	return s.addHandler("override", method, target, true)
}

func (s *ServiceMetadata) addHandler(member, method string, target any, override bool) (*HandlerMetadata, error) {
	if _, ok := s.Handlers[method]; ok {
		return nil, errors.DuplicateMember(member, s.Name, method)
	}
	h := s.newHandler(method, target)
	h.Override = override
	s.Handlers[method] = h
	return h, nil
}

func (s *ServiceMetadata) newHandler(method string, target any) *HandlerMetadata {
	s.Target.DeclareMethods(method)
	return &HandlerMetadata{
		Service: s,
		Method:  method,
		Target:  target,
		Source:  s.Source,
	}
}

// SetInitializer declares the initializer hook
func (s *ServiceMetadata) SetInitializer(method string, target any) (*HandlerMetadata, error) {
	return s.setHook(&s.Initializer, "initializer", method, target)
}

// SetSelector declares the selector hook
func (s *ServiceMetadata) SetSelector(method string, target any) (*HandlerMetadata, error) {
	return s.setHook(&s.Selector, "selector", method, target)
}

// SetActivator declares the activator hook
func (s *ServiceMetadata) SetActivator(method string, target any) (*HandlerMetadata, error) {
	return s.setHook(&s.Activator, "activator", method, target)
}

// SetReleasor declares the releasor hook
func (s *ServiceMetadata) SetReleasor(method string, target any) (*HandlerMetadata, error) {
	return s.setHook(&s.Releasor, "releasor", method, target)
}

func (s *ServiceMetadata) setHook(slot **HandlerMetadata, member, method string, target any) (*HandlerMetadata, error) {
	if *slot != nil {
		return nil, errors.DuplicateMember(member, s.Name, method)
	}
	*slot = s.newHandler(method, target)
	return *slot, nil
}

// serviceCommit holds the checked outcome of a Service commit before it is
// applied
type serviceCommit struct {
	final  bool
	alias  string
	base   *ServiceMetadata
	api    *APIMetadata
	inline *apiCommit // set when the Api is declared on the service class
}

// Commit resolves the base service and implemented Api, merges inherited
// members, checks the contract and publishes the service to its Api.
// Committing an already committed service is a no-op. Every check runs
// before anything is changed, so a failed commit leaves the registry as it
// was.
func (s *ServiceMetadata) Commit(alias string, apiClass *Class, final bool) error {
	if s.committed {
		return nil
	}
	c, err := s.prepare(alias, apiClass, final)
	if err != nil {
		return err
	}
	return s.apply(c)
}

func (s *ServiceMetadata) prepare(alias string, apiClass *Class, final bool) (*serviceCommit, error) {
	r := s.registry
	name := s.Target.QualifiedName()

	var base *ServiceMetadata
	if parent := s.Target.Parent; parent != nil {
		base = r.services[parent.ID]
		switch {
		case base != nil && !base.committed:
			return nil, errors.StructuralMismatch(name, "base service [%s] is not committed", base.Name)
		case base != nil && base.Final:
			return nil, errors.StructuralMismatch(name, "base service [%s] is final", base.Name)
		case base == nil && r.apis[parent.ID] != nil:
			return nil, errors.StructuralMismatch(name, "service extends api class [%s]", parent.Name).
				WithSuggestion("implement the api with -Api instead of embedding it")
		}
	}

	var api *APIMetadata
	if apiClass != nil {
		api = r.apis[apiClass.ID]
		if api == nil {
			return nil, errors.StructuralMismatch(name, "[%s] is not an api class", apiClass.QualifiedName())
		}
		if err := api.ensureCommitted(); err != nil {
			return nil, err
		}
	}
	if base != nil && !base.Inline && base.API != nil {
		if api != nil && api != base.API {
			return nil, errors.StructuralMismatch(name, "cannot override base api [%s] with [%s]", base.API.Name, api.Name)
		}
		api = base.API
	}

	resolved := ""
	switch {
	case api != nil && api.Alias != "":
		resolved = api.Alias
	case alias != "":
		resolved = alias
	case base != nil && base.Alias != "":
		resolved = base.Alias
	case final:
		resolved = s.Target.Name
	}

	c := &serviceCommit{final: final, alias: resolved, base: base, api: api}
	if sap := r.apis[s.Target.ID]; sap != nil {
		if api != nil {
			return nil, errors.StructuralMismatch(name, "service implements api [%s] and defines its own", api.Name)
		}
		inline, err := sap.prepare("", s, resolved, base)
		if err != nil {
			return nil, err
		}
		c.api, c.inline = sap, inline
	}

	if err := r.serviceNames.Check(s.Name, s); err != nil {
		return nil, err
	}
	if err := s.checkContract(c); err != nil {
		return nil, err
	}
	return c, nil
}

func (s *ServiceMetadata) apply(c *serviceCommit) error {
	s.Final = c.final
	s.Base = c.base
	s.Alias = c.alias
	s.Inline = c.inline != nil
	s.API = c.api
	if c.inline != nil {
		if err := c.api.apply(c.inline); err != nil {
			return err
		}
	} else if c.api != nil {
		if err := c.api.AddService(s); err != nil {
			return err
		}
	}

	s.inherit(c.base)

	if err := s.registry.serviceNames.Register(s.Name, s); err != nil {
		return err
	}
	if s.API != nil {
		s.API.Publish(s)
	}
	s.committed = true
	s.registry.log.Debug("service committed",
		zap.String("service", s.Name),
		zap.String("alias", s.Alias),
		zap.Bool("final", s.Final),
		zap.Bool("inline", s.Inline),
		zap.Int("dependencies", len(s.Dependencies)),
		zap.Int("handlers", len(s.Handlers)))
	return nil
}

// inherit adopts the base's hooks, dependencies and handlers that the
// service does not declare itself.
func (s *ServiceMetadata) inherit(base *ServiceMetadata) {
	if base == nil {
		return
	}
	if s.Initializer == nil {
		s.Initializer = base.Initializer.inherit(s)
	}
	if s.Selector == nil {
		s.Selector = base.Selector.inherit(s)
	}
	if s.Activator == nil {
		s.Activator = base.Activator.inherit(s)
	}
	if s.Releasor == nil {
		s.Releasor = base.Releasor.inherit(s)
	}
	for key, dep := range base.Dependencies {
		if _, ok := s.Dependencies[key]; !ok {
			s.Dependencies[key] = dep.inherit(s)
		}
	}
	for key, h := range base.Handlers {
		if _, ok := s.Handlers[key]; !ok {
			s.Handlers[key] = h.inherit(s)
		}
	}
}

// checkContract verifies that handlers, own and inherited, match the Api
// methods one to one. It reads the Api as it will be once c is applied.
func (s *ServiceMetadata) checkContract(c *serviceCommit) error {
	api := c.api
	if api == nil {
		return nil
	}

	owner := api.Owner
	methods := api.MethodNames()
	inherited := func(method string) bool { return api.Methods[method].Base != nil }
	if c.inline != nil {
		parent := c.inline.parent
		owner = s
		methods = mergedNames(api, parent)
		inherited = func(method string) bool {
			if parent != nil && parent.Methods[method] != nil {
				return true
			}
			own := api.Methods[method]
			return own != nil && own.Base != nil
		}
	}

	handlers := make(map[string]bool, len(s.Handlers))
	for method := range s.Handlers {
		handlers[method] = true
	}
	if c.base != nil {
		for method := range c.base.Handlers {
			handlers[method] = true
		}
	}

	for _, method := range methods {
		own := s.Handlers[method]
		if !handlers[method] && owner != s {
			return errors.MissingHandler(s.Name, api.Name, method)
		}
		if !s.Target.HasOwnMethod(method) || c.base == nil {
			continue
		}
		predates := inherited(method) || c.base.Handlers[method] != nil
		if predates && (own == nil || !own.Override) {
			return errors.MissingOverride(s.Name, c.base.Name, method)
		}
	}

	declared := make(map[string]bool, len(methods))
	for _, method := range methods {
		declared[method] = true
	}
	for _, method := range sortedKeys(handlers) {
		if !declared[method] {
			return errors.LoseHandler(s.Name, method)
		}
	}
	return nil
}

// HandlerNames returns handler method names, sorted
func (s *ServiceMetadata) HandlerNames() []string {
	return sortedKeys(s.Handlers)
}

// DependencyKeys returns injection-site keys, sorted
func (s *ServiceMetadata) DependencyKeys() []string {
	return sortedKeys(s.Dependencies)
}
