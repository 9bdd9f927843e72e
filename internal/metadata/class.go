package metadata

import (
	"reflect"
	"sort"

	"github.com/google/uuid"
)

// classNamespace seeds name-based class ids so the same qualified name
// always maps to the same id across runs.
var classNamespace = uuid.MustParse("6f1c2a4e-7d0b-5b8e-9a43-3c1e5f7a9b20")

// Class is the explicit identity of a type that metadata can attach to.
// It replaces runtime reflection: the parent is supplied at registration and
// the set of methods declared directly on the type is recorded by the caller.
type Class struct {
	ID      uuid.UUID
	Package string
	Name    string
	Parent  *Class
	Source  string // file:line of the declaration, when known

	methods map[string]struct{}
	typ     reflect.Type
}

// NewClass creates a class identity. The id is derived from the package and
// name, so two NewClass calls with the same pair share an id.
func NewClass(pkg, name string, parent *Class, methods ...string) *Class {
	c := &Class{
		ID:      ClassID(pkg, name),
		Package: pkg,
		Name:    name,
		Parent:  parent,
		methods: make(map[string]struct{}, len(methods)),
	}
	c.DeclareMethods(methods...)
	return c
}

// ClassID returns the stable id for a qualified type name
func ClassID(pkg, name string) uuid.UUID {
	return uuid.NewSHA1(classNamespace, []byte(qualify(pkg, name)))
}

func qualify(pkg, name string) string {
	if pkg == "" {
		return name
	}
	return pkg + "." + name
}

// QualifiedName returns package.Name
func (c *Class) QualifiedName() string {
	return qualify(c.Package, c.Name)
}

// String implements fmt.Stringer
func (c *Class) String() string {
	if c == nil {
		return "<nil>"
	}
	return c.QualifiedName()
}

// DeclareMethods records methods declared directly on the class
func (c *Class) DeclareMethods(names ...string) *Class {
	if c.methods == nil {
		c.methods = make(map[string]struct{}, len(names))
	}
	for _, name := range names {
		c.methods[name] = struct{}{}
	}
	return c
}

// HasOwnMethod reports whether name is declared on the class itself rather
// than promoted from its parent.
func (c *Class) HasOwnMethod(name string) bool {
	_, ok := c.methods[name]
	return ok
}

// OwnMethods returns the declared method names, sorted
func (c *Class) OwnMethods() []string {
	names := make([]string, 0, len(c.methods))
	for name := range c.methods {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Type returns the Go type bound to the class, if any
func (c *Class) Type() reflect.Type {
	return c.typ
}

// IsValid reports whether c can carry metadata
func (c *Class) IsValid() bool {
	return c != nil && c.Name != "" && c.ID != uuid.Nil
}
