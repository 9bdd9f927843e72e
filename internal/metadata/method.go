package metadata

import (
	"strings"

	"github.com/toyz/tyx/internal/errors"
)

// MethodMetadata describes one method of an Api contract and its route
// bindings.
type MethodMetadata struct {
	API    *APIMetadata     // Api the method belongs to after commit
	Base   *APIMetadata     // Api the method was inherited from, if any
	Host   *ServiceMetadata // Service that most recently published the Api
	Name   string
	Target any    // callable reference, when the contract has a body
	Auth   string // required role, empty for public methods
	Input  string // input type name
	Result string // result type name
	Source string

	HTTP   map[string]*HTTPRouteMetadata
	Events []*EventRouteMetadata
}

// HTTPRouteMetadata binds a method to "VERB /path"
type HTTPRouteMetadata struct {
	Method   *MethodMetadata
	Route    string // route key, e.g. "GET /users/{id}"
	Verb     string
	Resource string
}

// EventRouteMetadata binds a method to an event source and resource
type EventRouteMetadata struct {
	Method   *MethodMetadata
	Route    string // route key, e.g. "aws:sqs orders"
	Source   string
	Resource string
	Actions  []string
}

// HTTPRoute builds the route key for an HTTP binding
func HTTPRoute(verb, path string) string {
	return strings.ToUpper(strings.TrimSpace(verb)) + " " + strings.TrimSpace(path)
}

// EventRoute builds the route key for an event binding
func EventRoute(source, resource string) string {
	return strings.TrimSpace(source) + " " + strings.TrimSpace(resource)
}

// NewMethod creates a method descriptor that is not yet attached to an Api
func NewMethod(name string) *MethodMetadata {
	return &MethodMetadata{
		Name: name,
		HTTP: make(map[string]*HTTPRouteMetadata),
	}
}

// AddRoute binds the method to an HTTP route and registers the route with
// the owning Api, if the method is attached to one.
func (m *MethodMetadata) AddRoute(verb, path string) (*HTTPRouteMetadata, error) {
	key := HTTPRoute(verb, path)
	owner := m.Name
	if m.API != nil {
		owner = m.API.Name + "." + m.Name
	}
	if _, ok := m.HTTP[key]; ok {
		return nil, errors.DuplicateRoute(owner, key)
	}
	route := &HTTPRouteMetadata{
		Method:   m,
		Route:    key,
		Verb:     strings.ToUpper(strings.TrimSpace(verb)),
		Resource: strings.TrimSpace(path),
	}
	if m.API != nil {
		if err := m.API.AddRoute(route); err != nil {
			return nil, err
		}
	}
	m.HTTP[key] = route
	return route, nil
}

// AddEvent binds the method to an event route. Several bindings, on this
// method or others, may share one route.
func (m *MethodMetadata) AddEvent(source, resource string, actions ...string) *EventRouteMetadata {
	ev := &EventRouteMetadata{
		Method:   m,
		Route:    EventRoute(source, resource),
		Source:   strings.TrimSpace(source),
		Resource: strings.TrimSpace(resource),
		Actions:  append([]string(nil), actions...),
	}
	m.Events = append(m.Events, ev)
	if m.API != nil {
		m.API.AddEvent(ev)
	}
	return ev
}

// Routes returns the HTTP route keys, sorted
func (m *MethodMetadata) Routes() []string {
	return sortedKeys(m.HTTP)
}

// inherit copies the method into api. Route bindings are copied and point at
// the new descriptor.
func (m *MethodMetadata) inherit(api *APIMetadata) *MethodMetadata {
	cp := &MethodMetadata{
		API:    api,
		Base:   m.API,
		Name:   m.Name,
		Target: m.Target,
		Auth:   m.Auth,
		Input:  m.Input,
		Result: m.Result,
		Source: m.Source,
	}
	cp.HTTP = cp.adoptRoutes(m.HTTP)
	cp.Events = cp.adoptEvents(m.Events)
	return cp
}

// override layers the derived descriptor on top of the inherited shape:
// derived fields win when set, and route bindings declared at the base level
// survive unless the derived method declares its own.
func (m *MethodMetadata) override(derived *MethodMetadata) *MethodMetadata {
	if derived == nil {
		return m
	}
	derived.Base = m.Base
	if derived.Target == nil {
		derived.Target = m.Target
	}
	if derived.Auth == "" {
		derived.Auth = m.Auth
	}
	if derived.Input == "" {
		derived.Input = m.Input
	}
	if derived.Result == "" {
		derived.Result = m.Result
	}
	if derived.Source == "" {
		derived.Source = m.Source
	}
	if len(derived.HTTP) == 0 {
		derived.HTTP = derived.adoptRoutes(m.HTTP)
	}
	if len(derived.Events) == 0 {
		derived.Events = derived.adoptEvents(m.Events)
	}
	return derived
}

func (m *MethodMetadata) adoptRoutes(routes map[string]*HTTPRouteMetadata) map[string]*HTTPRouteMetadata {
	out := make(map[string]*HTTPRouteMetadata, len(routes))
	for key, route := range routes {
		cp := *route
		cp.Method = m
		out[key] = &cp
	}
	return out
}

func (m *MethodMetadata) adoptEvents(events []*EventRouteMetadata) []*EventRouteMetadata {
	if len(events) == 0 {
		return nil
	}
	out := make([]*EventRouteMetadata, len(events))
	for i, ev := range events {
		cp := *ev
		cp.Method = m
		cp.Actions = append([]string(nil), ev.Actions...)
		out[i] = &cp
	}
	return out
}

// commit binds the method to api and registers any route bindings the Api
// does not hold yet (inherited copies, or bindings added before attachment).
func (m *MethodMetadata) commit(api *APIMetadata) error {
	m.API = api
	for _, key := range m.Routes() {
		route := m.HTTP[key]
		if api.Routes[key] == route {
			continue
		}
		if err := api.AddRoute(route); err != nil {
			return err
		}
	}
	for _, ev := range m.Events {
		if !containsEvent(api.Events[ev.Route], ev) {
			api.AddEvent(ev)
		}
	}
	return nil
}

func (m *MethodMetadata) publish(service *ServiceMetadata) {
	m.Host = service
}

func containsEvent(list []*EventRouteMetadata, ev *EventRouteMetadata) bool {
	for _, item := range list {
		if item == ev {
			return true
		}
	}
	return false
}
