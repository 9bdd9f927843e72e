package tyx

import (
	"sort"
	"strings"

	"github.com/toyz/tyx/internal/metadata"
)

// RouteInfo contains metadata about one HTTP route of a committed Api
type RouteInfo struct {
	// Verb is the HTTP method (GET, POST, PUT, DELETE, etc.)
	Verb string `json:"verb" yaml:"verb"`

	// Path is the route path with parameter placeholders (e.g., "/users/{id:int}")
	Path string `json:"path" yaml:"path"`

	// Route is the route key, e.g. "GET /users/{id:int}"
	Route string `json:"route" yaml:"route"`

	// API is the name of the Api the route belongs to
	API string `json:"api" yaml:"api"`

	// Method is the name of the Api method bound to the route
	Method string `json:"method" yaml:"method"`

	// Service is the service that most recently published the Api
	Service string `json:"service,omitempty" yaml:"service,omitempty"`

	// Auth is the role required by the method, empty for public methods
	Auth string `json:"auth,omitempty" yaml:"auth,omitempty"`

	// Params maps parameter names to their types (e.g., {"id": "int"})
	Params map[string]string `json:"params,omitempty" yaml:"params,omitempty"`
}

// Key returns "Api.Method", the name handlers are bound under
func (r RouteInfo) Key() string {
	return HandlerKey(r.API, r.Method)
}

// EventInfo contains metadata about one event binding of a committed Api
type EventInfo struct {
	Source   string   `json:"source" yaml:"source"`
	Resource string   `json:"resource" yaml:"resource"`
	Route    string   `json:"route" yaml:"route"`
	Actions  []string `json:"actions,omitempty" yaml:"actions,omitempty"`
	API      string   `json:"api" yaml:"api"`
	Method   string   `json:"method" yaml:"method"`
	Service  string   `json:"service,omitempty" yaml:"service,omitempty"`
}

// Key returns "Api.Method"
func (e EventInfo) Key() string {
	return HandlerKey(e.API, e.Method)
}

// HandlerKey joins an Api and method name
func HandlerKey(api, method string) string {
	return api + "." + method
}

// RouteTable is the read-only set of HTTP routes and event bindings of a
// registry.
type RouteTable struct {
	Routes []RouteInfo `json:"routes" yaml:"routes"`
	Events []EventInfo `json:"events" yaml:"events"`
}

// BuildRouteTable collects the routes and events of every committed Api.
// Routes are sorted by path then verb, events by route then Api.
func BuildRouteTable(reg *metadata.Registry) *RouteTable {
	table := &RouteTable{
		Routes: make([]RouteInfo, 0),
		Events: make([]EventInfo, 0),
	}

	for _, api := range reg.APIs() {
		service := publisherName(api)

		for _, key := range api.RouteKeys() {
			route := api.Routes[key]
			info := RouteInfo{
				Verb:    route.Verb,
				Path:    route.Resource,
				Route:   route.Route,
				API:     api.Name,
				Service: service,
			}
			if route.Method != nil {
				info.Method = route.Method.Name
				info.Auth = route.Method.Auth
			}
			if params := Path(route.Resource).Params(); len(params) > 0 {
				info.Params = params
			}
			table.Routes = append(table.Routes, info)
		}

		for _, key := range api.EventKeys() {
			for _, ev := range api.Events[key] {
				info := EventInfo{
					Source:   ev.Source,
					Resource: ev.Resource,
					Route:    ev.Route,
					Actions:  append([]string(nil), ev.Actions...),
					API:      api.Name,
					Service:  service,
				}
				if ev.Method != nil {
					info.Method = ev.Method.Name
				}
				table.Events = append(table.Events, info)
			}
		}
	}

	sort.SliceStable(table.Routes, func(i, j int) bool {
		a, b := table.Routes[i], table.Routes[j]
		if a.Path != b.Path {
			return a.Path < b.Path
		}
		return a.Verb < b.Verb
	})
	sort.SliceStable(table.Events, func(i, j int) bool {
		a, b := table.Events[i], table.Events[j]
		if a.Route != b.Route {
			return a.Route < b.Route
		}
		if a.API != b.API {
			return a.API < b.API
		}
		return a.Method < b.Method
	})
	return table
}

func publisherName(api *metadata.APIMetadata) string {
	if api.Publisher != nil {
		return api.Publisher.Name
	}
	return ""
}

// GetRoutesByAPI returns routes filtered by Api name
func (t *RouteTable) GetRoutesByAPI(api string) []RouteInfo {
	return t.filter(func(r RouteInfo) bool { return r.API == api })
}

// GetRoutesByService returns routes filtered by publishing service
func (t *RouteTable) GetRoutesByService(service string) []RouteInfo {
	return t.filter(func(r RouteInfo) bool { return r.Service == service })
}

// GetRoutesByVerb returns routes filtered by HTTP method, case-insensitive
func (t *RouteTable) GetRoutesByVerb(verb string) []RouteInfo {
	return t.filter(func(r RouteInfo) bool { return strings.EqualFold(r.Verb, verb) })
}

// GetEventsBySource returns events filtered by source
func (t *RouteTable) GetEventsBySource(source string) []EventInfo {
	var filtered []EventInfo
	for _, ev := range t.Events {
		if ev.Source == source {
			filtered = append(filtered, ev)
		}
	}
	return filtered
}

func (t *RouteTable) filter(keep func(RouteInfo) bool) []RouteInfo {
	var filtered []RouteInfo
	for _, route := range t.Routes {
		if keep(route) {
			filtered = append(filtered, route)
		}
	}
	return filtered
}
