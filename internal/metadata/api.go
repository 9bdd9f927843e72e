package metadata

import (
	"sort"

	"go.uber.org/zap"

	"github.com/toyz/tyx/internal/errors"
)

// APIMetadata describes a named remote-callable contract
type APIMetadata struct {
	Target *Class
	Name   string
	Alias  string
	Source string

	Base      *APIMetadata
	Owner     *ServiceMetadata // canonical implementation, set at commit
	Publisher *ServiceMetadata // service that most recently published the Api
	Services  map[string]*ServiceMetadata

	Methods map[string]*MethodMetadata
	Routes  map[string]*HTTPRouteMetadata
	Events  map[string][]*EventRouteMetadata

	registry  *Registry
	committed bool
}

func newAPIMetadata(r *Registry, target *Class) *APIMetadata {
	return &APIMetadata{
		Target:   target,
		Name:     target.Name,
		Source:   target.Source,
		Services: make(map[string]*ServiceMetadata),
		Methods:  make(map[string]*MethodMetadata),
		Routes:   make(map[string]*HTTPRouteMetadata),
		Events:   make(map[string][]*EventRouteMetadata),
		registry: r,
	}
}

// Committed reports whether Commit has completed
func (a *APIMetadata) Committed() bool {
	return a.committed
}

// Method returns the method descriptor for name, adding a new one if the Api
// does not declare it yet.
func (a *APIMetadata) Method(name string) *MethodMetadata {
	if m, ok := a.Methods[name]; ok {
		return m
	}
	m := NewMethod(name)
	a.AddMethod(m)
	return m
}

// AddMethod inserts a method descriptor, replacing any previous one of the
// same name.
func (a *APIMetadata) AddMethod(m *MethodMetadata) {
	m.API = a
	a.Methods[m.Name] = m
}

// AddRoute registers an HTTP route; route strings are unique per Api
func (a *APIMetadata) AddRoute(route *HTTPRouteMetadata) error {
	if _, ok := a.Routes[route.Route]; ok {
		return errors.DuplicateRoute(a.Name, route.Route)
	}
	a.Routes[route.Route] = route
	return nil
}

// AddEvent appends an event binding; bindings sharing a route keep their
// declaration order.
func (a *APIMetadata) AddEvent(ev *EventRouteMetadata) {
	a.Events[ev.Route] = append(a.Events[ev.Route], ev)
}

// AddService registers an implementation of this Api
func (a *APIMetadata) AddService(service *ServiceMetadata) error {
	if service.API != a {
		return errors.Inconsistent("service [%s] is not an implementation of api [%s]", service.Name, a.Name).
			WithContext("service", service.Name).
			WithContext("api", a.Name)
	}
	a.Services[service.Name] = service
	return nil
}

// apiCommit holds the checked outcome of an Api commit before it is applied
type apiCommit struct {
	owner  *ServiceMetadata
	alias  string
	parent *APIMetadata
}

// Commit resolves inheritance, validates the hierarchy and publishes the Api
// under its name. Committing an already committed Api is a no-op, and a
// failed commit leaves the Api untouched.
func (a *APIMetadata) Commit(alias string) error {
	if a.committed {
		return nil
	}
	var ownerAlias string
	var ownerBase *ServiceMetadata
	owner := a.registry.services[a.Target.ID]
	if owner != nil {
		ownerAlias, ownerBase = owner.Alias, owner.Base
	}
	c, err := a.prepare(alias, owner, ownerAlias, ownerBase)
	if err != nil {
		return err
	}
	return a.apply(c)
}

// prepare runs every check of a commit without changing the Api. owner is
// the service declared on the same class; its alias and base service are
// passed separately since an inline owner is still being committed.
func (a *APIMetadata) prepare(alias string, owner *ServiceMetadata, ownerAlias string, ownerBase *ServiceMetadata) (*apiCommit, error) {
	r := a.registry

	resolved := a.Name
	switch {
	case owner != nil && ownerAlias != "":
		resolved = ownerAlias
	case alias != "":
		resolved = alias
	}

	var sup *APIMetadata
	if parent := a.Target.Parent; parent != nil {
		sup = r.apis[parent.ID]
	}
	var base *APIMetadata
	if ownerBase != nil && !ownerBase.Inline {
		base = ownerBase.API
	}
	// Service commits reject an inline Api over a non-inline base first, so
	// only a direct commit of an owned Api reaches this.
	if base != nil && sup != nil && base != sup {
		return nil, errors.StructuralMismatch(a.Target.QualifiedName(),
			"base service api [%s] does not match parent class api [%s]", base.Name, sup.Name)
	}
	if sup != nil {
		if err := sup.ensureCommitted(); err != nil {
			return nil, err
		}
	}
	if sup != nil && sup.Owner == nil && owner != nil {
		return nil, errors.StructuralMismatch(a.Target.QualifiedName(),
			"service api extends contract-only api [%s]", sup.Name).
			WithSuggestion("implement the contract with //tyx::service -Api instead of embedding it")
	}
	if err := r.apiNames.Check(a.Name, a); err != nil {
		return nil, err
	}

	parent := base
	if parent == nil {
		parent = sup
	}
	if err := a.checkRoutes(parent); err != nil {
		return nil, err
	}
	return &apiCommit{owner: owner, alias: resolved, parent: parent}, nil
}

// checkRoutes reports the route clash that merging parent's methods and
// attaching own route bindings would cause.
func (a *APIMetadata) checkRoutes(parent *APIMetadata) error {
	taken := make(map[string]*HTTPRouteMetadata, len(a.Routes))
	for key, route := range a.Routes {
		taken[key] = route
	}
	for _, name := range mergedNames(a, parent) {
		own := a.Methods[name]
		var routes map[string]*HTTPRouteMetadata
		inherited := false
		switch {
		case own != nil && len(own.HTTP) > 0:
			routes = own.HTTP
		case parent != nil && parent.Methods[name] != nil:
			routes, inherited = parent.Methods[name].HTTP, true
		}
		for _, key := range sortedKeys(routes) {
			prev, ok := taken[key]
			if ok && !inherited && prev == routes[key] {
				continue
			}
			if ok {
				return errors.DuplicateRoute(a.Name, key)
			}
			taken[key] = nil
		}
	}
	return nil
}

// apply performs a prepared commit
func (a *APIMetadata) apply(c *apiCommit) error {
	a.Owner = c.owner
	a.Alias = c.alias
	a.inherit(c.parent)

	for _, name := range a.MethodNames() {
		if err := a.Methods[name].commit(a); err != nil {
			return err
		}
	}
	if err := a.registry.apiNames.Register(a.Name, a); err != nil {
		return err
	}
	a.committed = true
	a.registry.log.Debug("api committed",
		zap.String("api", a.Name),
		zap.String("alias", a.Alias),
		zap.Int("methods", len(a.Methods)),
		zap.Int("routes", len(a.Routes)))
	return nil
}

// mergedNames returns the method names of a after inheriting from parent,
// sorted
func mergedNames(a, parent *APIMetadata) []string {
	seen := make(map[string]bool, len(a.Methods))
	for name := range a.Methods {
		seen[name] = true
	}
	if parent != nil {
		for name := range parent.Methods {
			seen[name] = true
		}
	}
	return sortedKeys(seen)
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for key := range m {
		keys = append(keys, key)
	}
	sort.Strings(keys)
	return keys
}

// ensureCommitted commits a contract-only Api on demand. An Api owned by a
// service is committed by that service and cannot be committed out of turn.
func (a *APIMetadata) ensureCommitted() error {
	if a.committed {
		return nil
	}
	if owner := a.registry.services[a.Target.ID]; owner != nil {
		return errors.StructuralMismatch(a.Target.QualifiedName(),
			"api is owned by service [%s] which is not committed yet", owner.Name)
	}
	return a.Commit("")
}

// inherit copies base methods down, layering any redeclared method on top
func (a *APIMetadata) inherit(base *APIMetadata) {
	if base == nil {
		return
	}
	a.Base = base
	for _, name := range base.MethodNames() {
		sup := base.Methods[name].inherit(a)
		a.Methods[name] = sup.override(a.Methods[name])
	}
}

// Publish records service as the publisher and re-points every method at it
func (a *APIMetadata) Publish(service *ServiceMetadata) {
	a.Publisher = service
	for _, m := range a.Methods {
		m.publish(service)
	}
	a.registry.log.Info("api published",
		zap.String("api", a.Name),
		zap.String("service", service.Name))
}

// MethodNames returns method names, sorted
func (a *APIMetadata) MethodNames() []string {
	return sortedKeys(a.Methods)
}

// RouteKeys returns HTTP route keys, sorted
func (a *APIMetadata) RouteKeys() []string {
	return sortedKeys(a.Routes)
}

// EventKeys returns event route keys, sorted
func (a *APIMetadata) EventKeys() []string {
	return sortedKeys(a.Events)
}
