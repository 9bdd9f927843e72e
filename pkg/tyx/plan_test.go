package tyx

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/toyz/tyx/internal/errors"
)

func position(t *testing.T, plan *Plan, name string) int {
	t.Helper()
	for i, sp := range plan.Services {
		if sp.Service == name {
			return i
		}
	}
	t.Fatalf("service %s not in plan", name)
	return -1
}

func TestBuildPlan(t *testing.T) {
	reg := loadSource(t, shopSource)
	plan, err := BuildPlan(reg)
	require.NoError(t, err)

	require.Len(t, plan.Services, 5)
	assert.Equal(t, []string{"clock", "int"}, plan.External)

	assert.Less(t, position(t, plan, "Database"), position(t, plan, "OrderService"))
	assert.Less(t, position(t, plan, "Database"), position(t, plan, "Auditor"))
	assert.Less(t, position(t, plan, "Auditor"), position(t, plan, "AuditedOrders"))

	orders, ok := plan.Service("OrderService")
	require.True(t, ok)
	assert.Equal(t, "orders", orders.Alias)
	assert.Equal(t, "Orders", orders.API)
	assert.Empty(t, orders.Constructor)
	assert.Equal(t, []InjectionStep{
		{Key: "Now", Property: "Now", Resource: "clock"},
		{Key: "Store", Property: "Store", Resource: "Database", Provider: "Database"},
	}, orders.Properties)
	assert.Equal(t, []HookStep{
		{Kind: HookInitializer, Method: "open"},
		{Kind: HookActivator, Method: "warm"},
	}, orders.Activation)
	assert.Equal(t, []HookStep{{Kind: HookReleasor, Method: "close"}}, orders.Teardown)
	assert.False(t, orders.HasSelector())
	assert.Equal(t, []string{"Database"}, orders.DependsOn)

	audited, ok := plan.Service("AuditedOrders")
	require.True(t, ok)
	assert.True(t, audited.HasSelector())
	assert.Equal(t, "pick", audited.Selector)
	assert.Equal(t, orders.Activation, audited.Activation)
	assert.Equal(t, []string{"Auditor", "Database"}, audited.DependsOn)
	require.Len(t, audited.Properties, 3)
	assert.Equal(t, "Audit", audited.Properties[0].Key)
	assert.Empty(t, audited.Properties[0].Inherited)
	assert.Equal(t, "OrderService", audited.Properties[2].Inherited)

	auditor, ok := plan.Service("Auditor")
	require.True(t, ok)
	require.Len(t, auditor.Constructor, 2)
	assert.Equal(t, "[constructor]#0", auditor.Constructor[0].Key)
	assert.Equal(t, "Database", auditor.Constructor[0].Provider)
	assert.Equal(t, 1, *auditor.Constructor[1].Index)
	svc, ok := reg.ServiceByName("Auditor")
	require.True(t, ok)
	assert.NotSame(t, svc.Dependencies["[constructor]#1"].Index, auditor.Constructor[1].Index)
	assert.Equal(t, "int", auditor.Constructor[1].Resource)
	assert.Empty(t, auditor.Constructor[1].Provider)

	_, ok = plan.Service("Missing")
	assert.False(t, ok)
}

func TestBuildPlan_ResolvesApiNameAndAlias(t *testing.T) {
	source := shopSource + `
//tyx::service
type Reporter struct {
	//tyx::inject Orders
	ByAPI string

	//tyx::inject orders
	ByAlias string
}
`
	plan, err := BuildPlan(loadSource(t, source))
	require.NoError(t, err)

	reporter, ok := plan.Service("Reporter")
	require.True(t, ok)
	assert.Equal(t, "AuditedOrders", reporter.Properties[0].Provider)
	assert.Equal(t, "AuditedOrders", reporter.Properties[1].Provider)
	assert.Equal(t, []string{"AuditedOrders"}, reporter.DependsOn)
	assert.Less(t, position(t, plan, "AuditedOrders"), position(t, plan, "Reporter"))
}

func TestBuildPlan_Cycle(t *testing.T) {
	source := `package shop

//tyx::service
type Cart struct {
	//tyx::inject
	Pricing *Pricing
}

//tyx::service
type Pricing struct {
	//tyx::inject
	Cart *Cart
}
`
	_, err := BuildPlan(loadSource(t, source))
	require.Error(t, err)
	assert.True(t, errors.HasCode(err, errors.DependencyErrorCode))
	assert.Contains(t, err.Error(), "dependency cycle:")
	assert.Contains(t, err.Error(), "Cart -> Pricing")
}

func TestBuildPlan_SelfInjection(t *testing.T) {
	source := `package shop

//tyx::service
type Node struct {
	//tyx::inject Node
	Next *Node
}
`
	_, err := BuildPlan(loadSource(t, source))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dependency cycle: Node -> Node")
}
