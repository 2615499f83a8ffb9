package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// InvoiceGenerator reads order invoices and creates or resyncs reparation invoices.
type InvoiceGenerator struct {
	db     *gorm.DB
	log    *zap.Logger
	notify Notifier
}

func NewInvoiceGenerator(db *gorm.DB, log *zap.Logger, notifier Notifier) *InvoiceGenerator {
	return &InvoiceGenerator{db: db, log: log, notify: orNop(notifier)}
}

// createOrderInvoice snapshots the order total into a new invoice. It runs once,
// inside the order's creation transaction.
func createOrderInvoice(tx *gorm.DB, order *models.Order) (*models.Invoice, error) {
	invoice := models.Invoice{
		OrderID:       order.ID,
		InvoiceNumber: fmt.Sprintf("INV-%d", order.ID),
		TotalPrice:    order.TotalPrice,
	}
	if err := tx.Create(&invoice).Error; err != nil {
		return nil, apperror.Translate(err, "invoice "+invoice.InvoiceNumber)
	}
	return &invoice, nil
}

func (g *InvoiceGenerator) GetInvoice(ctx context.Context, id uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := g.db.WithContext(ctx).First(&invoice, id).Error; err != nil {
		return nil, apperror.Translate(err, "invoice")
	}
	return &invoice, nil
}

func (g *InvoiceGenerator) InvoiceForOrder(ctx context.Context, orderID uint) (*models.Invoice, error) {
	var invoice models.Invoice
	if err := g.db.WithContext(ctx).Where("order_id = ?", orderID).First(&invoice).Error; err != nil {
		return nil, apperror.Translate(err, "invoice for order")
	}
	return &invoice, nil
}

// SaveReparationInvoice creates the reparation's invoice with a random number, or
// when it exists copies the reparation's current total into it.
func (g *InvoiceGenerator) SaveReparationInvoice(ctx context.Context, reparationID uint) (invoice *models.ReparationInvoice, created bool, err error) {
	defer metrics.TrackDBOperation("reparation_invoice.save")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("reparation_invoice.save", err) }()

	var saved models.ReparationInvoice
	err = g.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rep models.ReparationProduct
		if err := forUpdate(tx).First(&rep, reparationID).Error; err != nil {
			return apperror.Translate(err, "reparation")
		}

		err := tx.Where("reparation_product_id = ?", reparationID).First(&saved).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
			created = true
			saved = models.ReparationInvoice{
				ReparationProductID: reparationID,
				InvoiceNumber:       newIdentifier(),
			}
		case err != nil:
			return err
		}

		saved.TotalPrice = rep.TotalPrice
		if err := tx.Save(&saved).Error; err != nil {
			return apperror.Translate(err, "reparation invoice number")
		}
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	g.log.Info("Reparation invoice saved",
		zap.Uint("reparation_id", reparationID),
		zap.String("invoice_number", saved.InvoiceNumber),
		zap.Bool("created", created))
	g.notify.Publish(Event{Type: EventReparationInvoiceSaved, ID: saved.ID, Data: &saved})
	return &saved, created, nil
}

func (g *InvoiceGenerator) GetReparationInvoice(ctx context.Context, reparationID uint) (*models.ReparationInvoice, error) {
	var invoice models.ReparationInvoice
	if err := g.db.WithContext(ctx).Where("reparation_product_id = ?", reparationID).First(&invoice).Error; err != nil {
		return nil, apperror.Translate(err, "reparation invoice")
	}
	return &invoice, nil
}
