package tyx

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/toyz/tyx/internal/loader"
	"github.com/toyz/tyx/internal/metadata"
	"github.com/toyz/tyx/internal/parser"
)

// loadSource scans and commits one in-memory package
func loadSource(t *testing.T, source string) *metadata.Registry {
	t.Helper()
	pkg, err := parser.NewScanner().ParseSource("example.com/shop", "shop.go", source)
	require.NoError(t, err)

	reg := metadata.NewRegistry()
	l := loader.New(reg)
	l.Add(pkg)
	_, err = l.Load()
	require.NoError(t, err)
	return reg
}

const shopSource = `package shop

//tyx::api -Alias=orders
type Orders interface {
	//tyx::get /orders/{id:int}
	//tyx::method -Auth=clerk
	Get()

	//tyx::post /orders
	Create()

	//tyx::event aws:sqs orders -Actions=insert,modify
	OnChange()
}

//tyx::api
type Health interface {
	//tyx::get /health
	Check()
}

//tyx::service -Api=Orders
type OrderService struct {
	//tyx::inject
	Store *Database

	//tyx::inject clock
	Now func() int64
}

//tyx::handler
func (s *OrderService) Get() {}

//tyx::handler
func (s *OrderService) Create() {}

//tyx::handler
func (s *OrderService) OnChange() {}

//tyx::init
func (s *OrderService) open() {}

//tyx::activate
func (s *OrderService) warm() {}

//tyx::release
func (s *OrderService) close() {}

//tyx::service
type AuditedOrders struct {
	OrderService

	//tyx::inject Auditor
	Audit *Auditor
}

//tyx::override
func (s *AuditedOrders) Create() {}

//tyx::selector
func (s *AuditedOrders) pick() {}

//tyx::service -Api=Health
type Monitor struct{}

//tyx::handler
func (m *Monitor) Check() {}

//tyx::service
type Database struct{}

//tyx::service
type Auditor struct{}

//tyx::constructor
func NewAuditor(db *Database, _ int) *Auditor { return &Auditor{} }
`
