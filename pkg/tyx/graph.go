package tyx

import (
	"encoding/json"
	"io"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/metadata"
)

// Graph output formats
const (
	FormatJSON = "json"
	FormatYAML = "yaml"
)

// MethodNode is an Api method in the exported graph
type MethodNode struct {
	Name     string   `json:"name" yaml:"name"`
	Auth     string   `json:"auth,omitempty" yaml:"auth,omitempty"`
	Input    string   `json:"input,omitempty" yaml:"input,omitempty"`
	Result   string   `json:"result,omitempty" yaml:"result,omitempty"`
	Routes   []string `json:"routes,omitempty" yaml:"routes,omitempty"`
	Events   []string `json:"events,omitempty" yaml:"events,omitempty"`
	Inherits string   `json:"inherits,omitempty" yaml:"inherits,omitempty"`
}

// APINode is a committed Api in the exported graph
type APINode struct {
	Name      string       `json:"name" yaml:"name"`
	Package   string       `json:"package" yaml:"package"`
	Alias     string       `json:"alias,omitempty" yaml:"alias,omitempty"`
	Base      string       `json:"base,omitempty" yaml:"base,omitempty"`
	Owner     string       `json:"owner,omitempty" yaml:"owner,omitempty"`
	Publisher string       `json:"publisher,omitempty" yaml:"publisher,omitempty"`
	Services  []string     `json:"services,omitempty" yaml:"services,omitempty"`
	Methods   []MethodNode `json:"methods" yaml:"methods"`
	Source    string       `json:"source,omitempty" yaml:"source,omitempty"`
}

// HandlerNode is a handler or lifecycle hook in the exported graph
type HandlerNode struct {
	Name     string `json:"name" yaml:"name"`
	Method   string `json:"method" yaml:"method"`
	Override bool   `json:"override,omitempty" yaml:"override,omitempty"`
	Inherits string `json:"inherits,omitempty" yaml:"inherits,omitempty"`
}

// ServiceNode is a committed service in the exported graph
type ServiceNode struct {
	Name         string          `json:"name" yaml:"name"`
	Package      string          `json:"package" yaml:"package"`
	Alias        string          `json:"alias,omitempty" yaml:"alias,omitempty"`
	API          string          `json:"api,omitempty" yaml:"api,omitempty"`
	Base         string          `json:"base,omitempty" yaml:"base,omitempty"`
	Final        bool            `json:"final,omitempty" yaml:"final,omitempty"`
	Inline       bool            `json:"inline,omitempty" yaml:"inline,omitempty"`
	Handlers     []HandlerNode   `json:"handlers,omitempty" yaml:"handlers,omitempty"`
	Hooks        []HandlerNode   `json:"hooks,omitempty" yaml:"hooks,omitempty"`
	Dependencies []InjectionStep `json:"dependencies,omitempty" yaml:"dependencies,omitempty"`
	Source       string          `json:"source,omitempty" yaml:"source,omitempty"`
}

// Graph is a serializable snapshot of a committed registry
type Graph struct {
	APIs     []APINode     `json:"apis" yaml:"apis"`
	Services []ServiceNode `json:"services" yaml:"services"`
	Routes   []RouteInfo   `json:"routes" yaml:"routes"`
	Events   []EventInfo   `json:"events" yaml:"events"`
}

// ExportGraph snapshots every committed Api and service of reg, in commit
// order.
func ExportGraph(reg *metadata.Registry) *Graph {
	table := BuildRouteTable(reg)
	g := &Graph{
		APIs:     make([]APINode, 0),
		Services: make([]ServiceNode, 0),
		Routes:   table.Routes,
		Events:   table.Events,
	}
	for _, api := range reg.APIs() {
		g.APIs = append(g.APIs, apiNode(api))
	}
	for _, svc := range reg.Services() {
		g.Services = append(g.Services, serviceNode(svc))
	}
	return g
}

func apiNode(api *metadata.APIMetadata) APINode {
	node := APINode{
		Name:      api.Name,
		Package:   api.Target.Package,
		Alias:     api.Alias,
		Publisher: publisherName(api),
		Methods:   make([]MethodNode, 0, len(api.Methods)),
		Source:    api.Source,
	}
	if api.Base != nil {
		node.Base = api.Base.Name
	}
	if api.Owner != nil {
		node.Owner = api.Owner.Name
	}
	for name := range api.Services {
		node.Services = append(node.Services, name)
	}
	sort.Strings(node.Services)

	for _, name := range api.MethodNames() {
		m := api.Methods[name]
		mn := MethodNode{
			Name:   m.Name,
			Auth:   m.Auth,
			Input:  m.Input,
			Result: m.Result,
			Routes: m.Routes(),
		}
		for _, ev := range m.Events {
			mn.Events = append(mn.Events, ev.Route)
		}
		if m.Base != nil {
			mn.Inherits = m.Base.Name
		}
		node.Methods = append(node.Methods, mn)
	}
	return node
}

func serviceNode(svc *metadata.ServiceMetadata) ServiceNode {
	node := ServiceNode{
		Name:    svc.Name,
		Package: svc.Target.Package,
		Alias:   svc.Alias,
		Final:   svc.Final,
		Inline:  svc.Inline,
		Source:  svc.Source,
	}
	if svc.API != nil {
		node.API = svc.API.Name
	}
	if svc.Base != nil {
		node.Base = svc.Base.Name
	}
	for _, name := range svc.HandlerNames() {
		node.Handlers = append(node.Handlers, handlerNode(name, svc.Handlers[name]))
	}
	hooks := []struct {
		kind string
		h    *metadata.HandlerMetadata
	}{
		{HookInitializer, svc.Initializer},
		{"selector", svc.Selector},
		{HookActivator, svc.Activator},
		{HookReleasor, svc.Releasor},
	}
	for _, hook := range hooks {
		if hook.h != nil {
			node.Hooks = append(node.Hooks, handlerNode(hook.kind, hook.h))
		}
	}
	sp := planService(svc)
	node.Dependencies = append(sp.Constructor, sp.Properties...)
	return node
}

func handlerNode(name string, h *metadata.HandlerMetadata) HandlerNode {
	node := HandlerNode{Name: name, Method: h.Method, Override: h.Override}
	if h.Base != nil {
		node.Inherits = h.Base.Name
	}
	return node
}

// Write encodes the graph as indented JSON or YAML
func (g *Graph) Write(w io.Writer, format string) error {
	return Encode(w, format, g)
}

// Encode writes v as indented JSON or YAML
func Encode(w io.Writer, format string, v any) error {
	switch format {
	case FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case FormatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return errors.ValidateError("output format", "json or yaml", format)
	}
}
