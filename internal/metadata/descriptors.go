package metadata

import "fmt"

// ConstructorKey is the injection-site key for constructor parameters
const ConstructorKey = "[constructor]"

// InjectMetadata describes one injection point of a service
type InjectMetadata struct {
	Service  *ServiceMetadata
	Base     *ServiceMetadata // service the injection point was inherited from
	Key      string
	Property string // empty for constructor parameters
	Resource string // injection token
	Target   *Class // class of the injected value, when known
	Index    *int   // parameter position for constructor injection
}

// InjectKey builds the dependency map key for an injection site
func InjectKey(property string, index *int) string {
	key := property
	if key == "" {
		key = ConstructorKey
	}
	if index != nil {
		key = fmt.Sprintf("%s#%d", key, *index)
	}
	return key
}

// IsConstructor reports whether the injection point is a constructor parameter
func (i *InjectMetadata) IsConstructor() bool {
	return i.Property == ""
}

// Parameter returns the parameter position of a parameter injection
func (i *InjectMetadata) Parameter() (int, bool) {
	if i.Index == nil {
		return 0, false
	}
	return *i.Index, true
}

func (i *InjectMetadata) inherit(service *ServiceMetadata) *InjectMetadata {
	cp := *i
	cp.Base = i.Service
	cp.Service = service
	if index, ok := i.Parameter(); ok {
		cp.Index = &index
	}
	return &cp
}

// HandlerMetadata describes a service method bound to an Api method or to a
// lifecycle hook.
type HandlerMetadata struct {
	Service  *ServiceMetadata
	Base     *ServiceMetadata // service the handler was inherited from
	Method   string
	Target   any
	Override bool
	Source   string
}

// Inherited reports whether the handler was copied from a base service
func (h *HandlerMetadata) Inherited() bool {
	return h.Base != nil
}

func (h *HandlerMetadata) inherit(service *ServiceMetadata) *HandlerMetadata {
	if h == nil {
		return nil
	}
	cp := *h
	cp.Base = h.Service
	cp.Service = service
	return &cp
}
