package workflow

import (
	"sync"
	"testing"

	"fleetinventory/db/dbtest"
	"fleetinventory/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

type recorder struct {
	mu     sync.Mutex
	events []Event
}

func (r *recorder) Publish(e Event) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
}

func (r *recorder) types() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]string, 0, len(r.events))
	for _, e := range r.events {
		out = append(out, e.Type)
	}
	return out
}

type fixture struct {
	db          *gorm.DB
	orders      *OrderEngine
	reparations *ReparationEngine
	invoices    *InvoiceGenerator
	events      *recorder
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gdb := dbtest.New(t)
	rec := &recorder{}
	log := zap.NewNop()
	return &fixture{
		db:          gdb,
		orders:      NewOrderEngine(gdb, log, rec),
		reparations: NewReparationEngine(gdb, log, rec),
		invoices:    NewInvoiceGenerator(gdb, log, rec),
		events:      rec,
	}
}

func (f *fixture) supplier(t *testing.T, name string) *models.Supplier {
	t.Helper()
	s := models.Supplier{Name: name}
	require.NoError(t, f.db.Create(&s).Error)
	return &s
}

func (f *fixture) product(t *testing.T, reference, price string) *models.Product {
	t.Helper()
	p := models.Product{
		Name:         "Part " + reference,
		Reference:    reference,
		SKU:          "PAR" + reference,
		UnitPrice:    decimal.RequireFromString(price),
		ItemsPerUnit: 1,
	}
	require.NoError(t, f.db.Create(&p).Error)
	return &p
}

func (f *fixture) vehicle(t *testing.T, name string) *models.Vehicle {
	t.Helper()
	v := models.Vehicle{Name: name}
	require.NoError(t, f.db.Create(&v).Error)
	return &v
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func requireAmount(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	require.Truef(t, dec(want).Equal(got), "want %s, got %s", want, got.String())
}
