package parser

import (
	"github.com/toyz/tyx/internal/annotations"
)

// TypeRef names a type by import path and name. Package is empty for
// predeclared types.
type TypeRef struct {
	Package string
	Name    string
}

// IsZero reports whether the reference is unset
func (r TypeRef) IsZero() bool {
	return r.Name == ""
}

// String returns package.Name
func (r TypeRef) String() string {
	if r.Package == "" {
		return r.Name
	}
	return r.Package + "." + r.Name
}

// ClassKind distinguishes struct classes from interface classes
type ClassKind int

const (
	StructClass ClassKind = iota
	InterfaceClass
)

// String returns the string representation of the class kind
func (k ClassKind) String() string {
	if k == InterfaceClass {
		return "interface"
	}
	return "struct"
}

// ClassDecl is a named struct or interface type found in a package
type ClassDecl struct {
	Package     string
	Name        string
	Kind        ClassKind
	Embeds      []TypeRef // embedded types, in declaration order
	Methods     []string  // methods declared on the type itself
	Annotations []*annotations.ParsedAnnotation
	Members     []*MemberDecl
	Fields      []*FieldDecl
	Location    annotations.SourceLocation
}

// Ref returns the class's type reference
func (c *ClassDecl) Ref() TypeRef {
	return TypeRef{Package: c.Package, Name: c.Name}
}

// Annotation returns the first type-level annotation of kind t, or nil
func (c *ClassDecl) Annotation(t annotations.AnnotationType) *annotations.ParsedAnnotation {
	for _, a := range c.Annotations {
		if a.Type == t {
			return a
		}
	}
	return nil
}

// IsAnnotated reports whether the class or any of its members carries an annotation
func (c *ClassDecl) IsAnnotated() bool {
	return len(c.Annotations) > 0 || len(c.Members) > 0 || len(c.Fields) > 0
}

// MemberDecl is an annotated method of a class
type MemberDecl struct {
	Name        string
	Annotations []*annotations.ParsedAnnotation
	Location    annotations.SourceLocation
}

// FieldDecl is an annotated field of a struct class
type FieldDecl struct {
	Name        string
	Type        TypeRef
	Annotations []*annotations.ParsedAnnotation
	Location    annotations.SourceLocation
}

// ParamDecl is one parameter of a constructor
type ParamDecl struct {
	Name string
	Type TypeRef
}

// ConstructorDecl is a function annotated as the constructor of a class
type ConstructorDecl struct {
	Func     string
	Result   TypeRef
	Params   []ParamDecl
	Location annotations.SourceLocation
}

// Package is the scan result for one Go package
type Package struct {
	Path         string
	Name         string
	Dir          string
	Classes      []*ClassDecl
	Constructors []*ConstructorDecl
}

// Class returns the class declared under name, or nil
func (p *Package) Class(name string) *ClassDecl {
	for _, c := range p.Classes {
		if c.Name == name {
			return c
		}
	}
	return nil
}
