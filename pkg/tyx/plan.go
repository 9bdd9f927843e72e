package tyx

import (
	"sort"
	"strings"

	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/metadata"
)

// Hook kinds, in activation order
const (
	HookInitializer = "initializer"
	HookActivator   = "activator"
	HookReleasor    = "releasor"
)

// InjectionStep is one value a service needs before it can be activated
type InjectionStep struct {
	Key      string `json:"key" yaml:"key"`
	Property string `json:"property,omitempty" yaml:"property,omitempty"`
	Index    *int   `json:"index,omitempty" yaml:"index,omitempty"`
	Resource string `json:"resource" yaml:"resource"`
	// Provider is the service resolved for Resource, empty when external
	Provider  string `json:"provider,omitempty" yaml:"provider,omitempty"`
	Inherited string `json:"inherited,omitempty" yaml:"inherited,omitempty"`
}

// HookStep is a lifecycle method invocation
type HookStep struct {
	Kind   string `json:"kind" yaml:"kind"`
	Method string `json:"method" yaml:"method"`
}

// ServicePlan describes how to construct and activate one service
type ServicePlan struct {
	Service string `json:"service" yaml:"service"`
	Alias   string `json:"alias,omitempty" yaml:"alias,omitempty"`
	API     string `json:"api,omitempty" yaml:"api,omitempty"`

	// Constructor holds constructor parameters ordered by index
	Constructor []InjectionStep `json:"constructor,omitempty" yaml:"constructor,omitempty"`
	// Properties holds property injections ordered by key
	Properties []InjectionStep `json:"properties,omitempty" yaml:"properties,omitempty"`

	Activation []HookStep `json:"activation,omitempty" yaml:"activation,omitempty"`
	Teardown   []HookStep `json:"teardown,omitempty" yaml:"teardown,omitempty"`
	Selector   string     `json:"selector,omitempty" yaml:"selector,omitempty"`

	DependsOn []string `json:"dependsOn,omitempty" yaml:"dependsOn,omitempty"`
}

// HasSelector reports whether the service chooses its instance at runtime
func (p *ServicePlan) HasSelector() bool {
	return p.Selector != ""
}

// Plan is the activation order of every committed service
type Plan struct {
	// Services are ordered so that every provider precedes its consumers
	Services []ServicePlan `json:"services" yaml:"services"`
	// External lists resources no service provides, sorted
	External []string `json:"external,omitempty" yaml:"external,omitempty"`
}

// Service returns the plan entry for a service name
func (p *Plan) Service(name string) (*ServicePlan, bool) {
	for i := range p.Services {
		if p.Services[i].Service == name {
			return &p.Services[i], true
		}
	}
	return nil, false
}

// BuildPlan orders the committed services of reg by their injected
// resources. A resource resolves to a service by name, then to the
// publisher of an Api by name, then to the last committed service carrying
// it as alias. A dependency cycle is an error.
func BuildPlan(reg *metadata.Registry) (*Plan, error) {
	providers := newProviderIndex(reg)
	external := make(map[string]bool)

	plans := make(map[string]*ServicePlan)
	edges := make(map[string][]string)
	services := reg.Services()
	for _, svc := range services {
		sp := planService(svc)
		for _, steps := range [][]InjectionStep{sp.Constructor, sp.Properties} {
			for i := range steps {
				provider := providers.resolve(steps[i].Resource)
				if provider == nil {
					external[steps[i].Resource] = true
					continue
				}
				steps[i].Provider = provider.Name
				edges[svc.Name] = appendUnique(edges[svc.Name], provider.Name)
			}
		}
		sp.DependsOn = edges[svc.Name]
		plans[svc.Name] = sp
	}

	plan := &Plan{Services: make([]ServicePlan, 0, len(services))}
	const (
		unvisited = iota
		visiting
		visited
	)
	state := make(map[string]int)
	var path []string
	var visit func(name string) error
	visit = func(name string) error {
		switch state[name] {
		case visited:
			return nil
		case visiting:
			return dependencyCycle(path, name)
		}
		state[name] = visiting
		path = append(path, name)
		for _, dep := range edges[name] {
			if err := visit(dep); err != nil {
				return err
			}
		}
		path = path[:len(path)-1]
		state[name] = visited
		plan.Services = append(plan.Services, *plans[name])
		return nil
	}
	for _, svc := range services {
		if err := visit(svc.Name); err != nil {
			return nil, err
		}
	}

	for resource := range external {
		plan.External = append(plan.External, resource)
	}
	sort.Strings(plan.External)
	return plan, nil
}

func planService(svc *metadata.ServiceMetadata) *ServicePlan {
	sp := &ServicePlan{
		Service: svc.Name,
		Alias:   svc.Alias,
	}
	if svc.API != nil {
		sp.API = svc.API.Name
	}

	for _, key := range svc.DependencyKeys() {
		dep := svc.Dependencies[key]
		step := InjectionStep{
			Key:      dep.Key,
			Property: dep.Property,
			Resource: dep.Resource,
		}
		if index, ok := dep.Parameter(); ok {
			step.Index = &index
		}
		if dep.Base != nil {
			step.Inherited = dep.Base.Name
		}
		if dep.IsConstructor() {
			sp.Constructor = append(sp.Constructor, step)
		} else {
			sp.Properties = append(sp.Properties, step)
		}
	}
	sort.SliceStable(sp.Constructor, func(i, j int) bool {
		return indexOf(sp.Constructor[i]) < indexOf(sp.Constructor[j])
	})

	if svc.Initializer != nil {
		sp.Activation = append(sp.Activation, HookStep{Kind: HookInitializer, Method: svc.Initializer.Method})
	}
	if svc.Activator != nil {
		sp.Activation = append(sp.Activation, HookStep{Kind: HookActivator, Method: svc.Activator.Method})
	}
	if svc.Releasor != nil {
		sp.Teardown = append(sp.Teardown, HookStep{Kind: HookReleasor, Method: svc.Releasor.Method})
	}
	if svc.Selector != nil {
		sp.Selector = svc.Selector.Method
	}
	return sp
}

func indexOf(step InjectionStep) int {
	if step.Index == nil {
		return -1
	}
	return *step.Index
}

type providerIndex struct {
	byName  map[string]*metadata.ServiceMetadata
	byAPI   map[string]*metadata.ServiceMetadata
	byAlias map[string]*metadata.ServiceMetadata
}

func newProviderIndex(reg *metadata.Registry) *providerIndex {
	idx := &providerIndex{
		byName:  make(map[string]*metadata.ServiceMetadata),
		byAPI:   make(map[string]*metadata.ServiceMetadata),
		byAlias: make(map[string]*metadata.ServiceMetadata),
	}
	for _, svc := range reg.Services() {
		idx.byName[svc.Name] = svc
		if svc.Alias != "" {
			idx.byAlias[svc.Alias] = svc
		}
	}
	for _, api := range reg.APIs() {
		if api.Publisher != nil {
			idx.byAPI[api.Name] = api.Publisher
		}
	}
	return idx
}

func (idx *providerIndex) resolve(resource string) *metadata.ServiceMetadata {
	if svc, ok := idx.byName[resource]; ok {
		return svc
	}
	if svc, ok := idx.byAPI[resource]; ok {
		return svc
	}
	return idx.byAlias[resource]
}

func dependencyCycle(path []string, back string) error {
	start := 0
	for i, name := range path {
		if name == back {
			start = i
			break
		}
	}
	cycle := append(append([]string(nil), path[start:]...), back)
	return errors.DependencyError(back, "dependency cycle: "+strings.Join(cycle, " -> ")).
		WithContext("cycle", cycle)
}

func appendUnique(list []string, value string) []string {
	for _, v := range list {
		if v == value {
			return list
		}
	}
	return append(list, value)
}
