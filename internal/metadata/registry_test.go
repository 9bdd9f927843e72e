package metadata

import (
	"reflect"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/tyx/internal/errors"
)

type greeterImpl struct{}

func TestNewClass_StableID(t *testing.T) {
	a := NewClass("example.com/app", "Greeter", nil)
	b := NewClass("example.com/app", "Greeter", nil)
	c := NewClass("example.com/other", "Greeter", nil)

	assert.Equal(t, a.ID, b.ID)
	assert.NotEqual(t, a.ID, c.ID)
	assert.Equal(t, "example.com/app.Greeter", a.QualifiedName())
}

func TestClass_OwnMethods(t *testing.T) {
	c := NewClass("app", "Svc", nil, "b", "a")
	c.DeclareMethods("c")

	assert.True(t, c.HasOwnMethod("a"))
	assert.False(t, c.HasOwnMethod("d"))
	assert.Equal(t, []string{"a", "b", "c"}, c.OwnMethods())
}

func TestRegistry_Class(t *testing.T) {
	r := NewRegistry()

	base, err := r.Class("app", "Base", nil)
	require.NoError(t, err)

	derived, err := r.Class("app", "Derived", base, "run")
	require.NoError(t, err)
	again, err := r.Class("app", "Derived", nil, "stop")
	require.NoError(t, err)

	assert.Same(t, derived, again)
	assert.Same(t, base, again.Parent)
	assert.True(t, again.HasOwnMethod("stop"))

	other, err := r.Class("app", "Other", nil)
	require.NoError(t, err)
	_, err = r.Class("app", "Derived", other)
	require.Error(t, err)
	assert.Equal(t, errors.StructuralMismatchErrorCode, errors.CodeOf(err))

	_, err = r.Class("app", "", nil)
	assert.Equal(t, errors.NotAClassErrorCode, errors.CodeOf(err))
}

func TestRegistry_DefineIsIdempotent(t *testing.T) {
	r := NewRegistry()
	c := NewClass("app", "Greeter", nil)

	a1, err := r.DefineAPI(c)
	require.NoError(t, err)
	a2, err := r.DefineAPI(c)
	require.NoError(t, err)
	assert.Same(t, a1, a2)

	s1, err := r.DefineService(c)
	require.NoError(t, err)
	s2, err := r.DefineService(NewClass("app", "Greeter", nil))
	require.NoError(t, err)
	assert.Same(t, s1, s2)
}

func TestRegistry_DefineNotAClass(t *testing.T) {
	r := NewRegistry()

	tests := []struct {
		name  string
		class *Class
	}{
		{name: "nil class", class: nil},
		{name: "unnamed class", class: &Class{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.DefineAPI(tt.class)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.NotAClassErrorCode))

			_, err = r.DefineService(tt.class)
			require.Error(t, err)
			assert.True(t, errors.HasCode(err, errors.NotAClassErrorCode))
		})
	}
}

func TestRegistry_HasByInstance(t *testing.T) {
	r := NewRegistry()
	c := NewClass("app", "greeterImpl", nil)
	r.Bind(c, reflect.TypeOf(&greeterImpl{}))

	assert.False(t, r.HasService(greeterImpl{}))

	_, err := r.DefineService(c)
	require.NoError(t, err)

	assert.True(t, r.HasService(c))
	assert.True(t, r.HasService(&greeterImpl{}))
	assert.True(t, r.HasService(greeterImpl{}))
	assert.True(t, r.HasService(reflect.TypeOf(greeterImpl{})))
	assert.False(t, r.HasAPI(&greeterImpl{}))
	assert.False(t, r.HasService(nil))
	assert.False(t, r.HasService(42))
}

func TestRegistry_CommitOrder(t *testing.T) {
	r := NewRegistry()

	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		api, err := r.DefineAPI(NewClass("app", name, nil))
		require.NoError(t, err)
		require.NoError(t, api.Commit(""))
	}

	var names []string
	for _, api := range r.APIs() {
		names = append(names, api.Name)
	}
	assert.Equal(t, []string{"Zeta", "Alpha", "Mid"}, names)

	got, ok := r.APIByName("Alpha")
	require.True(t, ok)
	assert.Equal(t, "Alpha", got.Alias)

	_, ok = r.ServiceByName("Alpha")
	assert.False(t, ok)
}

func TestRegistry_InstancesAreIsolated(t *testing.T) {
	first := NewRegistry()
	second := NewRegistry()

	_, greeter := greeterFixture(t, first)

	assert.Len(t, first.APIs(), 1)
	assert.Empty(t, second.APIs())
	_, ok := second.APIByName("Greeter")
	assert.False(t, ok)

	// the same name commits cleanly in a second registry
	_, other := greeterFixture(t, second)
	assert.NotSame(t, greeter, other)
	found, ok := second.APIByName("Greeter")
	require.True(t, ok)
	assert.Same(t, other, found)
}
