package parser

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/tyx/internal/annotations"
	"github.com/toyz/tyx/internal/errors"
)

const greeterSource = `package app

import (
	"context"

	cfg "example.com/shop/config"
	"example.com/shop/storage/v2"
)

// Greeter says hello.
//
//tyx::api -Alias=greeter
type Greeter interface {
	//tyx::get /hello
	//tyx::method -Auth=user -Result=string
	Hello(ctx context.Context) (string, error)

	Bye() error // not routed
}

// V2 extends the greeting contract.
//
//tyx::api
type GreeterV2 interface {
	Greeter

	//tyx::post /wave
	Wave() error
}

//tyx::service -Api=Greeter -Final
type GreeterImpl struct {
	//tyx::inject
	Config *cfg.Settings

	store storage.Store //tyx::inject db -Index=0

	plain string
}

//tyx::handler
func (g *GreeterImpl) Hello(ctx context.Context) (string, error) { return "hi", nil }

//tyx::handler
func (g GreeterImpl) Bye() error { return nil }

//tyx::init
func (g *GreeterImpl) initialize() {}

func (g *GreeterImpl) helper() {}

type (
	//tyx::service
	Base struct{}

	Derived struct {
		*Base
		count int
	}
)

//tyx::override
func (d *Derived) Hello() {}

//tyx::constructor
func NewGreeter(settings *cfg.Settings, db storage.Store, _ int) *GreeterImpl {
	return &GreeterImpl{Config: settings, store: db}
}
`

func scanGreeter(t *testing.T) *Package {
	t.Helper()
	pkg, err := NewScanner().ParseSource("example.com/shop/app", "greeter.go", greeterSource)
	require.NoError(t, err)
	return pkg
}

func TestScanner_Classes(t *testing.T) {
	pkg := scanGreeter(t)

	assert.Equal(t, "example.com/shop/app", pkg.Path)
	assert.Equal(t, "app", pkg.Name)

	var names []string
	for _, c := range pkg.Classes {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Greeter", "GreeterV2", "GreeterImpl", "Base", "Derived"}, names)
}

func TestScanner_InterfaceApi(t *testing.T) {
	pkg := scanGreeter(t)

	greeter := pkg.Class("Greeter")
	require.NotNil(t, greeter)
	assert.Equal(t, InterfaceClass, greeter.Kind)
	assert.Equal(t, []string{"Hello", "Bye"}, greeter.Methods)
	assert.Equal(t, "greeter.go", greeter.Location.File)

	api := greeter.Annotation(annotations.APIAnnotation)
	require.NotNil(t, api)
	assert.Equal(t, "greeter", api.GetString("Alias"))

	require.Len(t, greeter.Members, 1)
	hello := greeter.Members[0]
	assert.Equal(t, "Hello", hello.Name)
	require.Len(t, hello.Annotations, 2)
	assert.Equal(t, annotations.HTTPAnnotation, hello.Annotations[0].Type)
	assert.Equal(t, "GET", hello.Annotations[0].GetString("verb"))
	assert.Equal(t, "user", hello.Annotations[1].GetString("Auth"))

	v2 := pkg.Class("GreeterV2")
	require.NotNil(t, v2)
	assert.Equal(t, []TypeRef{{Package: "example.com/shop/app", Name: "Greeter"}}, v2.Embeds)
	assert.Equal(t, []string{"Wave"}, v2.Methods)
}

func TestScanner_ServiceStruct(t *testing.T) {
	pkg := scanGreeter(t)

	impl := pkg.Class("GreeterImpl")
	require.NotNil(t, impl)
	assert.Equal(t, StructClass, impl.Kind)
	assert.True(t, impl.IsAnnotated())

	svc := impl.Annotation(annotations.ServiceAnnotation)
	require.NotNil(t, svc)
	assert.Equal(t, "Greeter", svc.GetString("Api"))
	assert.True(t, svc.GetBool("Final"))

	assert.Equal(t, []string{"Hello", "Bye", "initialize", "helper"}, impl.Methods)

	var members []string
	for _, m := range impl.Members {
		members = append(members, m.Name+":"+m.Annotations[0].Kind)
	}
	assert.Equal(t, []string{"Hello:handler", "Bye:handler", "initialize:init"}, members)

	require.Len(t, impl.Fields, 2)
	config := impl.Fields[0]
	assert.Equal(t, "Config", config.Name)
	assert.Equal(t, TypeRef{Package: "example.com/shop/config", Name: "Settings"}, config.Type)
	assert.Empty(t, config.Annotations[0].GetString("resource"))

	store := impl.Fields[1]
	assert.Equal(t, "store", store.Name)
	assert.Equal(t, TypeRef{Package: "example.com/shop/storage/v2", Name: "Store"}, store.Type)
	assert.Equal(t, "db", store.Annotations[0].GetString("resource"))
	index, ok := store.Annotations[0].GetInt("Index")
	assert.True(t, ok)
	assert.Equal(t, 0, index)
}

func TestScanner_GroupedTypesAndEmbedding(t *testing.T) {
	pkg := scanGreeter(t)

	base := pkg.Class("Base")
	require.NotNil(t, base)
	assert.NotNil(t, base.Annotation(annotations.ServiceAnnotation))

	derived := pkg.Class("Derived")
	require.NotNil(t, derived)
	assert.Empty(t, derived.Annotations)
	assert.Equal(t, []TypeRef{{Package: "example.com/shop/app", Name: "Base"}}, derived.Embeds)
	assert.Equal(t, []string{"Hello"}, derived.Methods)
	require.Len(t, derived.Members, 1)
	assert.Equal(t, annotations.OverrideAnnotation, derived.Members[0].Annotations[0].Type)
}

func TestScanner_Constructor(t *testing.T) {
	pkg := scanGreeter(t)

	require.Len(t, pkg.Constructors, 1)
	ctor := pkg.Constructors[0]
	assert.Equal(t, "NewGreeter", ctor.Func)
	assert.Equal(t, TypeRef{Package: "example.com/shop/app", Name: "GreeterImpl"}, ctor.Result)
	assert.Equal(t, []ParamDecl{
		{Name: "settings", Type: TypeRef{Package: "example.com/shop/config", Name: "Settings"}},
		{Name: "db", Type: TypeRef{Package: "example.com/shop/storage/v2", Name: "Store"}},
		{Name: "_", Type: TypeRef{Name: "int"}},
	}, ctor.Params)
}

func TestScanner_Errors(t *testing.T) {
	tests := []struct {
		name     string
		source   string
		wantCode errors.ErrorCode
		contains string
	}{
		{
			name:     "annotation on wrong target",
			source:   "package app\n\n//tyx::get /x\ntype A struct{}\n",
			wantCode: errors.SchemaErrorCode,
			contains: "cannot be used on a type",
		},
		{
			name:     "annotation on non class type",
			source:   "package app\n\n//tyx::api\ntype ID string\n",
			wantCode: errors.SchemaErrorCode,
			contains: "neither a struct nor an interface",
		},
		{
			name:     "method on unknown receiver",
			source:   "package app\n\ntype ID int\n\n//tyx::handler\nfunc (ID) Run() {}\n",
			wantCode: errors.SchemaErrorCode,
			contains: "ID.Run is not declared on a struct",
		},
		{
			name:     "constructor of foreign type",
			source:   "package app\n\nimport \"net/http\"\n\n//tyx::constructor\nfunc New() *http.Client { return nil }\n",
			wantCode: errors.SchemaErrorCode,
			contains: "must return a type declared in its own package",
		},
		{
			name:     "bad annotation syntax",
			source:   "package app\n\n//tyx::service -Final=maybe\ntype S struct{}\n",
			wantCode: errors.SchemaErrorCode,
			contains: "parameter 'Final'",
		},
		{
			name:     "go syntax error",
			source:   "package app\n\ntype S struct{\n",
			wantCode: errors.SyntaxErrorCode,
			contains: "failed to parse",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewScanner().ParseSource("example.com/app", "app.go", tt.source)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, tt.wantCode), "got %v", err)
			assert.Contains(t, err.Error(), tt.contains)
		})
	}
}

func TestScanner_CollectsEveryError(t *testing.T) {
	source := "package app\n\n//tyx::get /x\ntype A struct{}\n\n//tyx::bogus\ntype B struct{}\n"
	_, err := NewScanner().ParseSource("example.com/app", "app.go", source)
	require.Error(t, err)

	var multi *errors.MultipleErrors
	require.ErrorAs(t, err, &multi)
	assert.Equal(t, 2, multi.Count())
	assert.True(t, multi.HasCode(errors.SchemaErrorCode))
	assert.True(t, multi.HasCode(errors.SyntaxErrorCode))
}

func TestScanner_CustomPrefix(t *testing.T) {
	source := "package app\n\n//svc::api\ntype A interface{ Run() }\n\n//tyx::api\ntype B interface{}\n"
	pkg, err := NewScanner(WithPrefix("svc")).ParseSource("example.com/app", "app.go", source)
	require.NoError(t, err)

	assert.NotNil(t, pkg.Class("A").Annotation(annotations.APIAnnotation))
	assert.Empty(t, pkg.Class("B").Annotations)
}

func TestScanner_ParseDirectory(t *testing.T) {
	dir := t.TempDir()
	files := map[string]string{
		"api.go":      "package shop\n\n//tyx::api\ntype Orders interface {\n\t//tyx::get /orders\n\tList() error\n}\n",
		"impl.go":     "package shop\n\nfunc (o *OrdersImpl) List() error { return nil }\n",
		"types.go":    "package shop\n\n//tyx::service -Api=Orders\ntype OrdersImpl struct{}\n",
		"api_test.go": "package shop\n\n//tyx::api\ntype Ignored interface{}\n",
	}
	for name, content := range files {
		require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
	}

	pkg, err := NewScanner().ParseDirectory(dir, "example.com/shop")
	require.NoError(t, err)

	assert.Equal(t, "shop", pkg.Name)
	assert.Equal(t, dir, pkg.Dir)
	require.Len(t, pkg.Classes, 2)
	assert.Nil(t, pkg.Class("Ignored"))

	impl := pkg.Class("OrdersImpl")
	require.NotNil(t, impl)
	assert.Equal(t, []string{"List"}, impl.Methods)
	assert.Equal(t, filepath.Join(dir, "types.go"), impl.Location.File)
	assert.Equal(t, 4, impl.Location.Line)
}
