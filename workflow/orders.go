package workflow

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/catalog"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// OrderEngine owns orders and their line items.
type OrderEngine struct {
	db          *gorm.DB
	log         *zap.Logger
	notify      Notifier
	now         func() time.Time
	orderNumber func() string
}

func NewOrderEngine(db *gorm.DB, log *zap.Logger, notifier Notifier) *OrderEngine {
	return &OrderEngine{db: db, log: log, notify: orNop(notifier), now: time.Now, orderNumber: newIdentifier}
}

type CreateOrderInput struct {
	SupplierID          uint               `json:"supplier_id" validate:"required"`
	Status              models.OrderStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
	IsDelivered         bool               `json:"is_delivered"`
	DeliveryOrderNumber *string            `json:"delivery_order_number" validate:"omitempty,max=50"`
}

// UpdateOrderInput changes only the fields that are set. An empty delivery order
// number clears it.
type UpdateOrderInput struct {
	SupplierID          *uint               `json:"supplier_id"`
	Status              *models.OrderStatus `json:"status" validate:"omitempty,oneof=PENDING COMPLETED CANCELLED"`
	IsDelivered         *bool               `json:"is_delivered"`
	DeliveryOrderNumber *string             `json:"delivery_order_number" validate:"omitempty,max=50"`
}

var errDuplicateDeliveryNumber = apperror.Validation("delivery_order_number", "delivery order number must be unique")

func (e *OrderEngine) CreateOrder(ctx context.Context, in CreateOrderInput) (order *models.Order, err error) {
	defer metrics.TrackDBOperation("order.create")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("order.create", err) }()

	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	created := models.Order{
		SupplierID:          in.SupplierID,
		Status:              in.Status,
		IsDelivered:         in.IsDelivered,
		DeliveryOrderNumber: cleanNumber(in.DeliveryOrderNumber),
		TotalPrice:          decimal.Zero,
	}
	if created.Status == "" {
		created.Status = models.StatusPending
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&models.Supplier{}, in.SupplierID).Error; err != nil {
			return apperror.Translate(err, "supplier")
		}

		applyDeliveryRules(&created, e.now())
		if err := checkDeliveryNumber(tx, &created); err != nil {
			return err
		}

		created.OrderNumber = e.orderNumber()
		if err := writeOrder(tx, &created, func(tx *gorm.DB) error {
			return tx.Omit(clause.Associations).Create(&created).Error
		}); err != nil {
			return err
		}

		if _, err := createOrderInvoice(tx, &created); err != nil {
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	e.log.Info("Order created",
		zap.Uint("order_id", created.ID),
		zap.String("order_number", created.OrderNumber),
		zap.String("status", string(created.Status)))

	order, err = e.GetOrder(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	e.notify.Publish(Event{Type: EventOrderCreated, ID: order.ID, Data: order})
	return order, nil
}

// UpdateOrder applies in, enforces the delivery rules, recomputes the total and saves,
// all in one transaction.
func (e *OrderEngine) UpdateOrder(ctx context.Context, id uint, in UpdateOrderInput) (order *models.Order, err error) {
	defer metrics.TrackDBOperation("order.update")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("order.update", err) }()

	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.Order
		if err := forUpdate(tx).First(&current, id).Error; err != nil {
			return apperror.Translate(err, "order")
		}

		if in.SupplierID != nil {
			if err := tx.First(&models.Supplier{}, *in.SupplierID).Error; err != nil {
				return apperror.Translate(err, "supplier")
			}
			current.SupplierID = *in.SupplierID
		}
		if in.Status != nil {
			current.Status = *in.Status
		}
		if in.IsDelivered != nil {
			current.IsDelivered = *in.IsDelivered
		}
		if in.DeliveryOrderNumber != nil {
			current.DeliveryOrderNumber = cleanNumber(in.DeliveryOrderNumber)
		}

		delivered := applyDeliveryRules(&current, e.now())
		if err := checkDeliveryNumber(tx, &current); err != nil {
			return err
		}

		if delivered {
			if err := receiveOrderStock(tx, current.ID); err != nil {
				return err
			}
		}

		total, err := orderTotal(tx, current.ID)
		if err != nil {
			return err
		}
		current.TotalPrice = total

		return writeOrder(tx, &current, func(tx *gorm.DB) error {
			return tx.Omit(clause.Associations).Save(&current).Error
		})
	})
	if err != nil {
		return nil, err
	}

	order, err = e.GetOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	e.log.Info("Order updated",
		zap.Uint("order_id", order.ID),
		zap.String("status", string(order.Status)),
		zap.Bool("is_delivered", order.IsDelivered),
		zap.String("total_price", order.TotalPrice.StringFixed(2)))
	e.notify.Publish(Event{Type: EventOrderUpdated, ID: order.ID, Data: order})
	return order, nil
}

func (e *OrderEngine) GetOrder(ctx context.Context, id uint) (*models.Order, error) {
	var order models.Order
	err := e.db.WithContext(ctx).
		Preload("OrderItems.Product").
		Preload("Supplier").
		Preload("Invoice").
		First(&order, id).Error
	if err != nil {
		return nil, apperror.Translate(err, "order")
	}
	return &order, nil
}

// ListOrders returns every order, newest first, optionally restricted to one status.
func (e *OrderEngine) ListOrders(ctx context.Context, status models.OrderStatus) ([]models.Order, error) {
	defer metrics.TrackDBOperation("order.list")(time.Now())

	q := e.db.WithContext(ctx).Preload("OrderItems.Product").Preload("Supplier").Preload("Invoice")
	if status != "" {
		if !status.Valid() {
			return nil, apperror.Validation("status", "must be one of: PENDING COMPLETED CANCELLED")
		}
		q = q.Where("status = ?", status)
	}

	orders := []models.Order{}
	if err := q.Order("id DESC").Find(&orders).Error; err != nil {
		return nil, err
	}
	return orders, nil
}

// DeleteOrder removes the order with its line items and invoice.
func (e *OrderEngine) DeleteOrder(ctx context.Context, id uint) (err error) {
	defer func() { metrics.RecordWorkflowOperation("order.delete", err) }()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := forUpdate(tx).First(&order, id).Error; err != nil {
			return apperror.Translate(err, "order")
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.OrderItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("order_id = ?", id).Delete(&models.Invoice{}).Error; err != nil {
			return err
		}
		return tx.Delete(&order).Error
	})
	if err != nil {
		return err
	}
	e.log.Info("Order deleted", zap.Uint("order_id", id))
	e.notify.Publish(Event{Type: EventOrderDeleted, ID: id})
	return nil
}

// applyDeliveryRules enforces: a delivered order is COMPLETED with a freshly generated
// delivery number; a COMPLETED order always has a delivery number; the delivery time is
// set once. It reports whether the order became delivered just now.
func applyDeliveryRules(order *models.Order, now time.Time) bool {
	if order.IsDelivered && order.Status != models.StatusCompleted {
		order.Status = models.StatusCompleted
		number := newIdentifier()
		order.DeliveryOrderNumber = &number
	}
	if order.Status == models.StatusCompleted && order.DeliveryOrderNumber == nil {
		number := newIdentifier()
		order.DeliveryOrderNumber = &number
	}
	if order.IsDelivered && order.DeliveredAt == nil {
		at := now
		order.DeliveredAt = &at
		return true
	}
	return false
}

// checkDeliveryNumber rejects a delivery number already used by another completed order.
func checkDeliveryNumber(tx *gorm.DB, order *models.Order) error {
	if order.Status != models.StatusCompleted || order.DeliveryOrderNumber == nil {
		return nil
	}
	q := tx.Model(&models.Order{}).
		Where("status = ? AND delivery_order_number = ?", models.StatusCompleted, *order.DeliveryOrderNumber)
	if order.ID != 0 {
		q = q.Where("id <> ?", order.ID)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errDuplicateDeliveryNumber
	}
	return nil
}

// writeOrder runs write behind a savepoint. A unique index violation is reported as
// a duplicate delivery number only when another completed order holds it; any other
// collision is an order number conflict.
func writeOrder(tx *gorm.DB, order *models.Order, write func(tx *gorm.DB) error) error {
	const savepoint = "order_write"
	if err := tx.SavePoint(savepoint).Error; err != nil {
		return err
	}
	err := write(tx)
	if !errors.Is(err, gorm.ErrDuplicatedKey) {
		return err
	}
	if rbErr := tx.RollbackTo(savepoint).Error; rbErr != nil {
		return rbErr
	}
	if dupErr := checkDeliveryNumber(tx, order); dupErr != nil {
		return dupErr
	}
	return apperror.Translate(err, "order number")
}

func cleanNumber(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

// orderTotal re-sums the order's persisted line items.
func orderTotal(tx *gorm.DB, orderID uint) (decimal.Decimal, error) {
	var items []models.OrderItem
	if err := tx.Preload("Product").Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return decimal.Zero, fmt.Errorf("load order items: %w", err)
	}
	lines := make([]pricedLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricedLine{itemID: it.ID, productID: it.ProductID, quantity: it.Quantity, product: it.Product})
	}
	return lineTotal(lines)
}

// saveOrderTotal recomputes and persists the total of a locked order.
func saveOrderTotal(tx *gorm.DB, orderID uint) error {
	total, err := orderTotal(tx, orderID)
	if err != nil {
		return err
	}
	return tx.Model(&models.Order{}).Where("id = ?", orderID).Update("total_price", total).Error
}

// receiveOrderStock books every line item of a delivered order into stock.
func receiveOrderStock(tx *gorm.DB, orderID uint) error {
	var items []models.OrderItem
	if err := tx.Where("order_id = ?", orderID).Find(&items).Error; err != nil {
		return err
	}
	for _, it := range items {
		if _, err := catalog.AdjustStockTx(tx, it.ProductID, it.Quantity); err != nil {
			return fmt.Errorf("receive product %d: %w", it.ProductID, err)
		}
	}
	return nil
}
