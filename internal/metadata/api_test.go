package metadata

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/tyx/internal/errors"
)

func defineAPI(t *testing.T, r *Registry, class *Class) *APIMetadata {
	t.Helper()
	api, err := r.DefineAPI(class)
	require.NoError(t, err)
	return api
}

func defineService(t *testing.T, r *Registry, class *Class) *ServiceMetadata {
	t.Helper()
	svc, err := r.DefineService(class)
	require.NoError(t, err)
	return svc
}

func TestAPI_AddMethodLastWriteWins(t *testing.T) {
	api := defineAPI(t, NewRegistry(), NewClass("app", "Greeter", nil))

	first := NewMethod("hello")
	second := NewMethod("hello")
	api.AddMethod(first)
	api.AddMethod(second)

	assert.Same(t, second, api.Methods["hello"])
	assert.Same(t, api, second.API)
	assert.Same(t, second, api.Method("hello"))
}

func TestAPI_DuplicateRoute(t *testing.T) {
	api := defineAPI(t, NewRegistry(), NewClass("app", "Greeter", nil))

	_, err := api.Method("hello").AddRoute("GET", "/hello")
	require.NoError(t, err)

	_, err = api.Method("hi").AddRoute("get", "/hello")
	require.Error(t, err)
	assert.Equal(t, errors.DuplicateMemberErrorCode, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "GET /hello")

	_, err = api.Method("hello").AddRoute("GET", "/hello")
	require.Error(t, err)

	assert.Len(t, api.Routes, 1)
	assert.Empty(t, api.Methods["hi"].HTTP)
}

func TestAPI_EventsKeepOrder(t *testing.T) {
	api := defineAPI(t, NewRegistry(), NewClass("app", "Orders", nil))

	first := api.Method("onCreate").AddEvent("aws:sqs", "orders")
	second := api.Method("audit").AddEvent("aws:sqs", "orders", "insert", "modify")
	third := api.Method("onCreate").AddEvent("aws:sqs", "orders")

	events := api.Events["aws:sqs orders"]
	require.Len(t, events, 3)
	assert.Same(t, first, events[0])
	assert.Same(t, second, events[1])
	assert.Same(t, third, events[2])
	assert.Equal(t, []string{"insert", "modify"}, events[1].Actions)
}

func TestAPI_AddServiceConsistency(t *testing.T) {
	r := NewRegistry()
	api := defineAPI(t, r, NewClass("app", "Greeter", nil))
	other := defineAPI(t, r, NewClass("app", "Other", nil))
	svc := defineService(t, r, NewClass("app", "GreeterImpl", nil))

	svc.API = other
	err := api.AddService(svc)
	require.Error(t, err)
	assert.Equal(t, errors.ConsistencyErrorCode, errors.CodeOf(err))

	svc.API = api
	require.NoError(t, api.AddService(svc))
	assert.Same(t, svc, api.Services["GreeterImpl"])
}

func TestAPI_CommitAlias(t *testing.T) {
	r := NewRegistry()

	plain := defineAPI(t, r, NewClass("app", "Plain", nil))
	require.NoError(t, plain.Commit(""))
	assert.Equal(t, "Plain", plain.Alias)

	aliased := defineAPI(t, r, NewClass("app", "Aliased", nil))
	require.NoError(t, aliased.Commit("public"))
	assert.Equal(t, "public", aliased.Alias)
	assert.Nil(t, aliased.Owner)
}

func TestAPI_CommitIdempotent(t *testing.T) {
	r := NewRegistry()
	api := defineAPI(t, r, NewClass("app", "Greeter", nil))
	_, err := api.Method("hello").AddRoute("GET", "/hello")
	require.NoError(t, err)

	require.NoError(t, api.Commit(""))
	require.NoError(t, api.Commit("ignored"))

	assert.True(t, api.Committed())
	assert.Equal(t, "Greeter", api.Alias)
	assert.Len(t, r.APIs(), 1)
	assert.Len(t, api.Routes, 1)
}

func TestAPI_CommitDuplicateName(t *testing.T) {
	r := NewRegistry()
	first := defineAPI(t, r, NewClass("app/v1", "Greeter", nil))
	second := defineAPI(t, r, NewClass("app/v2", "Greeter", nil))

	require.NoError(t, first.Commit(""))
	err := second.Commit("")
	require.Error(t, err)
	assert.Equal(t, errors.DuplicateDefinitionErrorCode, errors.CodeOf(err))
	assert.False(t, second.Committed())

	got, _ := r.APIByName("Greeter")
	assert.Same(t, first, got)
}

func TestAPI_InheritMethods(t *testing.T) {
	r := NewRegistry()
	baseClass := NewClass("app", "BaseApi", nil)
	base := defineAPI(t, r, baseClass)
	hello := base.Method("hello")
	hello.Auth = "user"
	hello.Input = "HelloRequest"
	_, err := hello.AddRoute("GET", "/hello")
	require.NoError(t, err)
	hello.AddEvent("schedule", "hourly")
	_, err = base.Method("bye").AddRoute("POST", "/bye")
	require.NoError(t, err)
	require.NoError(t, base.Commit(""))

	derived := defineAPI(t, r, NewClass("app", "DerivedApi", baseClass))
	own := derived.Method("bye")
	own.Auth = "admin"
	_, err = own.AddRoute("POST", "/v2/bye")
	require.NoError(t, err)
	derived.Method("extra")

	require.NoError(t, derived.Commit(""))

	assert.Same(t, base, derived.Base)
	assert.ElementsMatch(t, []string{"bye", "extra", "hello"}, derived.MethodNames())

	inherited := derived.Methods["hello"]
	assert.NotSame(t, hello, inherited)
	assert.Same(t, derived, inherited.API)
	assert.Same(t, base, inherited.Base)
	assert.Equal(t, "user", inherited.Auth)
	assert.Equal(t, "HelloRequest", inherited.Input)
	require.Contains(t, derived.Routes, "GET /hello")
	assert.Same(t, inherited, derived.Routes["GET /hello"].Method)
	assert.Same(t, hello, base.Routes["GET /hello"].Method)
	require.Len(t, derived.Events["schedule hourly"], 1)
	assert.Same(t, inherited, derived.Events["schedule hourly"][0].Method)

	overridden := derived.Methods["bye"]
	assert.Same(t, own, overridden)
	assert.Same(t, base, overridden.Base)
	assert.Equal(t, "admin", overridden.Auth)
	assert.Contains(t, derived.Routes, "POST /v2/bye")
	assert.NotContains(t, derived.Routes, "POST /bye")

	assert.Nil(t, derived.Methods["extra"].Base)
}

func TestAPI_InheritKeepsBaseRoutesWhenNotRedeclared(t *testing.T) {
	r := NewRegistry()
	baseClass := NewClass("app", "BaseApi", nil)
	base := defineAPI(t, r, baseClass)
	_, err := base.Method("list").AddRoute("GET", "/items")
	require.NoError(t, err)
	require.NoError(t, base.Commit(""))

	derived := defineAPI(t, r, NewClass("app", "DerivedApi", baseClass))
	derived.Method("list").Result = "ItemList"
	require.NoError(t, derived.Commit(""))

	list := derived.Methods["list"]
	assert.Equal(t, "ItemList", list.Result)
	require.Contains(t, list.HTTP, "GET /items")
	assert.Same(t, list, derived.Routes["GET /items"].Method)
}

func TestAPI_InheritedRouteClash(t *testing.T) {
	r := NewRegistry()
	baseClass := NewClass("app", "BaseApi", nil)
	base := defineAPI(t, r, baseClass)
	_, err := base.Method("list").AddRoute("GET", "/items")
	require.NoError(t, err)
	require.NoError(t, base.Commit(""))

	derived := defineAPI(t, r, NewClass("app", "DerivedApi", baseClass))
	_, err = derived.Method("all").AddRoute("GET", "/items")
	require.NoError(t, err)

	err = derived.Commit("")
	require.Error(t, err)
	assert.Equal(t, errors.DuplicateMemberErrorCode, errors.CodeOf(err))
}

func TestAPI_ParentCommittedOnDemand(t *testing.T) {
	r := NewRegistry()
	baseClass := NewClass("app", "BaseApi", nil)
	base := defineAPI(t, r, baseClass)
	base.Method("ping")

	derived := defineAPI(t, r, NewClass("app", "DerivedApi", baseClass))
	require.NoError(t, derived.Commit(""))

	assert.True(t, base.Committed())
	assert.Contains(t, derived.Methods, "ping")
}

func TestAPI_Publish(t *testing.T) {
	r := NewRegistry()
	api := defineAPI(t, r, NewClass("app", "Greeter", nil))
	api.Method("hello")
	api.Method("bye")
	svc := defineService(t, r, NewClass("app", "GreeterImpl", nil))

	api.Publish(svc)

	assert.Same(t, svc, api.Publisher)
	for _, m := range api.Methods {
		assert.Same(t, svc, m.Host)
	}
}

func TestAPI_BaseServiceAPIMustMatchParent(t *testing.T) {
	r := NewRegistry()
	contractClass := NewClass("app", "Contract", nil)
	contract := defineAPI(t, r, contractClass)
	contract.Method("ping")
	require.NoError(t, contract.Commit(""))

	impl := defineService(t, r, NewClass("app", "ContractImpl", nil))
	_, err := impl.AddHandler("ping", nil)
	require.NoError(t, err)
	require.NoError(t, impl.Commit("", contractClass, false))

	otherClass := NewClass("app", "Other", nil)
	require.NoError(t, defineAPI(t, r, otherClass).Commit(""))

	childClass := NewClass("app", "Child", otherClass)
	child := defineAPI(t, r, childClass)
	owner := defineService(t, r, childClass)
	owner.Base = impl

	err = child.Commit("")
	require.Error(t, err)
	assert.Equal(t, errors.StructuralMismatchErrorCode, errors.CodeOf(err))
	assert.Contains(t, err.Error(), "base service api [Contract] does not match parent class api [Other]")
	assert.False(t, child.Committed())
	assert.Nil(t, child.Owner)
}

func TestAPI_FailedCommitChangesNothing(t *testing.T) {
	r := NewRegistry()
	baseClass := NewClass("app", "BaseApi", nil)
	base := defineAPI(t, r, baseClass)
	_, err := base.Method("list").AddRoute("GET", "/items")
	require.NoError(t, err)
	require.NoError(t, base.Commit(""))

	derived := defineAPI(t, r, NewClass("app", "DerivedApi", baseClass))
	all := NewMethod("all")
	_, err = all.AddRoute("GET", "/items")
	require.NoError(t, err)
	derived.AddMethod(all)

	require.Error(t, derived.Commit("items"))
	assert.False(t, derived.Committed())
	assert.Nil(t, derived.Base)
	assert.Empty(t, derived.Alias)
	assert.ElementsMatch(t, []string{"all"}, derived.MethodNames())
	assert.Empty(t, derived.Routes)
	_, ok := r.APIByName("DerivedApi")
	assert.False(t, ok)
}
