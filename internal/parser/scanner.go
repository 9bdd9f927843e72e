package parser

import (
	"go/ast"
	"go/token"
	"go/types"
	"path/filepath"
	"sort"
	"strconv"

	"go.uber.org/zap"
	"golang.org/x/tools/go/ast/inspector"

	"github.com/toyz/tyx/internal/annotations"
	"github.com/toyz/tyx/internal/errors"
	"github.com/toyz/tyx/internal/utils"
)

// Scanner extracts annotated class declarations from Go source
type Scanner struct {
	files       *utils.FileProcessor
	annotations *annotations.Parser
	log         *zap.Logger
}

// Option configures a Scanner
type Option func(*Scanner)

// WithPrefix sets the annotation prefix, "tyx" by default
func WithPrefix(prefix string) Option {
	return func(s *Scanner) {
		s.annotations = annotations.NewParser(prefix, nil)
	}
}

// WithLogger sets the logger used for scan events
func WithLogger(log *zap.Logger) Option {
	return func(s *Scanner) {
		if log != nil {
			s.log = log
		}
	}
}

// NewScanner creates a new source scanner
func NewScanner(opts ...Option) *Scanner {
	s := &Scanner{
		files: utils.NewFileProcessor(),
		log:   zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.annotations == nil {
		s.annotations = annotations.NewParser("", nil)
	}
	return s
}

// FileProcessor returns the processor the scanner parses files with
func (s *Scanner) FileProcessor() *utils.FileProcessor {
	return s.files
}

// ParseSource scans a single in-memory file as package pkgPath
func (s *Scanner) ParseSource(pkgPath, filename, source string) (*Package, error) {
	file, err := s.files.ParseSource(filename, source)
	if err != nil {
		return nil, err
	}
	return s.scan(pkgPath, file.Name.Name, filepath.Dir(filename), map[string]*ast.File{filename: file})
}

// ParseDirectory scans the package in dir, which is imported as pkgPath
func (s *Scanner) ParseDirectory(dir, pkgPath string) (*Package, error) {
	files, pkgName, err := s.files.ParseDirectoryFiles(dir)
	if err != nil {
		return nil, err
	}
	return s.scan(pkgPath, pkgName, dir, files)
}

// scanState accumulates declarations for one package
type scanState struct {
	pkg      *Package
	classes  map[string]*ClassDecl
	methods  map[string][]string
	members  map[string][]*MemberDecl
	imports  map[*ast.File]map[string]string
	multiErr *errors.MultipleErrors
}

func (s *Scanner) scan(pkgPath, pkgName, dir string, files map[string]*ast.File) (*Package, error) {
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	ordered := make([]*ast.File, len(names))
	for i, name := range names {
		ordered[i] = files[name]
	}

	st := &scanState{
		pkg:     &Package{Path: pkgPath, Name: pkgName, Dir: dir},
		classes: make(map[string]*ClassDecl),
		methods: make(map[string][]string),
		members: make(map[string][]*MemberDecl),
		imports: make(map[*ast.File]map[string]string),
	}

	insp := inspector.New(ordered)
	filter := []ast.Node{(*ast.GenDecl)(nil), (*ast.FuncDecl)(nil)}
	insp.WithStack(filter, func(n ast.Node, push bool, stack []ast.Node) bool {
		if !push {
			return false
		}
		file := stack[0].(*ast.File)
		switch decl := n.(type) {
		case *ast.GenDecl:
			if decl.Tok == token.TYPE {
				s.scanTypes(st, file, decl)
			}
		case *ast.FuncDecl:
			s.scanFunc(st, file, decl)
		}
		return false
	})

	s.attachMethods(st)

	if err := st.multiErr.ErrorOrNil(); err != nil {
		return nil, err
	}
	s.log.Debug("package scanned",
		zap.String("package", pkgPath),
		zap.Int("files", len(files)),
		zap.Int("classes", len(st.pkg.Classes)),
		zap.Int("constructors", len(st.pkg.Constructors)))
	return st.pkg, nil
}

func (s *Scanner) scanTypes(st *scanState, file *ast.File, decl *ast.GenDecl) {
	for _, spec := range decl.Specs {
		typeSpec, ok := spec.(*ast.TypeSpec)
		if !ok {
			continue
		}
		doc := typeSpec.Doc
		if doc == nil && !decl.Lparen.IsValid() {
			doc = decl.Doc
		}
		anns := s.parseComments(st, annotations.TypeTarget, doc)

		switch t := typeSpec.Type.(type) {
		case *ast.StructType:
			class := s.newClass(st, typeSpec, StructClass, anns)
			for _, field := range t.Fields.List {
				s.scanField(st, file, class, field)
			}
		case *ast.InterfaceType:
			class := s.newClass(st, typeSpec, InterfaceClass, anns)
			for _, method := range t.Methods.List {
				s.scanInterfaceMethod(st, file, class, method)
			}
		default:
			if len(anns) > 0 {
				errors.Collect(&st.multiErr, errors.SchemaError(anns[0].Kind,
					"type %s is neither a struct nor an interface", typeSpec.Name.Name).
					WithLocation(anns[0].Location))
			}
		}
	}
}

func (s *Scanner) newClass(st *scanState, spec *ast.TypeSpec, kind ClassKind, anns []*annotations.ParsedAnnotation) *ClassDecl {
	class := &ClassDecl{
		Package:     st.pkg.Path,
		Name:        spec.Name.Name,
		Kind:        kind,
		Annotations: anns,
		Location:    s.location(spec.Name.Pos()),
	}
	st.classes[class.Name] = class
	st.pkg.Classes = append(st.pkg.Classes, class)
	return class
}

func (s *Scanner) scanField(st *scanState, file *ast.File, class *ClassDecl, field *ast.Field) {
	ref, resolved := s.resolveType(st, file, field.Type)
	if len(field.Names) == 0 {
		if resolved {
			class.Embeds = append(class.Embeds, ref)
		}
		return
	}

	anns := s.parseComments(st, annotations.FieldTarget, field.Doc, field.Comment)
	if len(anns) == 0 {
		return
	}
	for _, name := range field.Names {
		class.Fields = append(class.Fields, &FieldDecl{
			Name:        name.Name,
			Type:        ref,
			Annotations: anns,
			Location:    s.location(name.Pos()),
		})
	}
}

func (s *Scanner) scanInterfaceMethod(st *scanState, file *ast.File, class *ClassDecl, method *ast.Field) {
	if len(method.Names) == 0 {
		if ref, ok := s.resolveType(st, file, method.Type); ok {
			class.Embeds = append(class.Embeds, ref)
		}
		return
	}

	anns := s.parseComments(st, annotations.MethodTarget, method.Doc, method.Comment)
	for _, name := range method.Names {
		class.Methods = append(class.Methods, name.Name)
		if len(anns) > 0 {
			class.Members = append(class.Members, &MemberDecl{
				Name:        name.Name,
				Annotations: anns,
				Location:    s.location(name.Pos()),
			})
		}
	}
}

func (s *Scanner) scanFunc(st *scanState, file *ast.File, decl *ast.FuncDecl) {
	if decl.Recv != nil && len(decl.Recv.List) > 0 {
		recv := receiverName(decl.Recv.List[0].Type)
		if recv == "" {
			return
		}
		st.methods[recv] = append(st.methods[recv], decl.Name.Name)
		if anns := s.parseComments(st, annotations.MethodTarget, decl.Doc); len(anns) > 0 {
			st.members[recv] = append(st.members[recv], &MemberDecl{
				Name:        decl.Name.Name,
				Annotations: anns,
				Location:    s.location(decl.Name.Pos()),
			})
		}
		return
	}

	anns := s.parseComments(st, annotations.FuncTarget, decl.Doc)
	if len(anns) == 0 {
		return
	}
	loc := s.location(decl.Name.Pos())

	var result TypeRef
	if results := decl.Type.Results; results != nil && len(results.List) > 0 {
		result, _ = s.resolveType(st, file, results.List[0].Type)
	}
	if result.IsZero() || result.Package != st.pkg.Path {
		errors.Collect(&st.multiErr, errors.SchemaError("constructor",
			"function %s must return a type declared in its own package", decl.Name.Name).
			WithLocation(loc))
		return
	}

	ctor := &ConstructorDecl{Func: decl.Name.Name, Result: result, Location: loc}
	for _, param := range decl.Type.Params.List {
		ref, _ := s.resolveType(st, file, param.Type)
		if len(param.Names) == 0 {
			ctor.Params = append(ctor.Params, ParamDecl{Type: ref})
			continue
		}
		for _, name := range param.Names {
			ctor.Params = append(ctor.Params, ParamDecl{Name: name.Name, Type: ref})
		}
	}
	st.pkg.Constructors = append(st.pkg.Constructors, ctor)
}

// attachMethods hands receiver methods to their struct classes
func (s *Scanner) attachMethods(st *scanState) {
	for _, class := range st.pkg.Classes {
		if class.Kind != StructClass {
			continue
		}
		class.Methods = append(class.Methods, st.methods[class.Name]...)
		class.Members = append(class.Members, st.members[class.Name]...)
	}

	receivers := make([]string, 0, len(st.members))
	for recv := range st.members {
		receivers = append(receivers, recv)
	}
	sort.Strings(receivers)
	for _, recv := range receivers {
		if class, ok := st.classes[recv]; ok && class.Kind == StructClass {
			continue
		}
		member := st.members[recv][0]
		errors.Collect(&st.multiErr, errors.SchemaError(member.Annotations[0].Kind,
			"method %s.%s is not declared on a struct of this package", recv, member.Name).
			WithLocation(member.Location))
	}
}

// parseComments parses the annotations in groups and checks that each may be
// attached to target. Failures are collected and the annotation is dropped.
func (s *Scanner) parseComments(st *scanState, target annotations.TargetKind, groups ...*ast.CommentGroup) []*annotations.ParsedAnnotation {
	var parsed []*annotations.ParsedAnnotation
	for _, group := range groups {
		if group == nil {
			continue
		}
		for _, comment := range group.List {
			if !s.annotations.IsAnnotation(comment.Text) {
				continue
			}
			loc := s.location(comment.Pos())
			ann, err := s.annotations.ParseAnnotation(comment.Text, loc)
			if err != nil {
				errors.Collect(&st.multiErr, err)
				continue
			}
			schema, err := s.annotations.Schema(ann.Type)
			if err != nil {
				errors.Collect(&st.multiErr, err)
				continue
			}
			if !schema.AllowsTarget(target) {
				errors.Collect(&st.multiErr, errors.SchemaError(ann.Kind, "cannot be used on a %s", target).
					WithLocation(loc))
				continue
			}
			parsed = append(parsed, ann)
		}
	}
	return parsed
}

// resolveType turns a type expression into a reference, following pointers,
// generic instantiations and package selectors.
func (s *Scanner) resolveType(st *scanState, file *ast.File, expr ast.Expr) (TypeRef, bool) {
	switch t := expr.(type) {
	case *ast.Ident:
		if obj := types.Universe.Lookup(t.Name); obj != nil {
			return TypeRef{Name: t.Name}, true
		}
		return TypeRef{Package: st.pkg.Path, Name: t.Name}, true
	case *ast.StarExpr:
		return s.resolveType(st, file, t.X)
	case *ast.IndexExpr:
		return s.resolveType(st, file, t.X)
	case *ast.IndexListExpr:
		return s.resolveType(st, file, t.X)
	case *ast.SelectorExpr:
		pkg, ok := t.X.(*ast.Ident)
		if !ok {
			return TypeRef{}, false
		}
		path, ok := st.fileImports(file)[pkg.Name]
		if !ok {
			path = pkg.Name
		}
		return TypeRef{Package: path, Name: t.Sel.Name}, true
	default:
		return TypeRef{}, false
	}
}

// fileImports maps each import's local name to its path
func (st *scanState) fileImports(file *ast.File) map[string]string {
	if imports, ok := st.imports[file]; ok {
		return imports
	}
	imports := make(map[string]string, len(file.Imports))
	for _, spec := range file.Imports {
		path, err := strconv.Unquote(spec.Path.Value)
		if err != nil {
			continue
		}
		name := utils.PackageName(path)
		if spec.Name != nil {
			name = spec.Name.Name
		}
		if name == "_" || name == "." {
			continue
		}
		imports[name] = path
	}
	st.imports[file] = imports
	return imports
}

func (s *Scanner) location(pos token.Pos) annotations.SourceLocation {
	position := s.files.FileSet().Position(pos)
	return annotations.SourceLocation{
		File:   position.Filename,
		Line:   position.Line,
		Column: position.Column,
	}
}

func receiverName(expr ast.Expr) string {
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.StarExpr:
		return receiverName(t.X)
	case *ast.IndexExpr:
		return receiverName(t.X)
	case *ast.IndexListExpr:
		return receiverName(t.X)
	default:
		return ""
	}
}
