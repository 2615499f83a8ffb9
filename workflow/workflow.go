// Package workflow holds the order, invoice and reparation rules: derived totals,
// status transitions, delivery numbers and invoice generation. Every operation
// runs in a single transaction.
package workflow

import (
	"fmt"
	"strings"
	"time"

	"fleetinventory/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// Event is published after a workflow change has been committed.
type Event struct {
	Type string `json:"type"`
	ID   uint   `json:"id"`
	Data any    `json:"data,omitempty"`
}

const (
	EventOrderCreated           = "order.created"
	EventOrderUpdated           = "order.updated"
	EventOrderDeleted           = "order.deleted"
	EventOrderItemChanged       = "order.item_changed"
	EventReparationCreated      = "reparation.created"
	EventReparationUpdated      = "reparation.updated"
	EventReparationDeleted      = "reparation.deleted"
	EventReparationInvoiceSaved = "reparation_invoice.saved"
)

type Notifier interface {
	Publish(Event)
}

type nopNotifier struct{}

func (nopNotifier) Publish(Event) {}

func orNop(n Notifier) Notifier {
	if n == nil {
		return nopNotifier{}
	}
	return n
}

// LineInput is one (product, quantity) pair of an order or reparation.
type LineInput struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"gt=0"`
}

// newIdentifier returns an 8 character upper-case identifier.
func newIdentifier() string {
	return strings.ToUpper(uuid.New().String()[:8])
}

// forUpdate row-locks the selected rows on postgres. sqlite serializes writers already.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "postgres" {
		return tx.Clauses(clause.Locking{Strength: "UPDATE"})
	}
	return tx
}

// lineTotal sums quantity * unit price. Every item must carry its loaded product.
func lineTotal(lines []pricedLine) (decimal.Decimal, error) {
	total := decimal.Zero
	for _, l := range lines {
		if l.product.ID == 0 {
			return decimal.Zero, fmt.Errorf("item %d: product %d is missing", l.itemID, l.productID)
		}
		total = total.Add(l.product.UnitPrice.Mul(decimal.NewFromInt(int64(l.quantity))))
	}
	return total, nil
}

type pricedLine struct {
	itemID    uint
	productID uint
	quantity  int
	product   models.Product
}

func normalizeTime(t time.Time) time.Time {
	return t.UTC().Truncate(time.Microsecond)
}
