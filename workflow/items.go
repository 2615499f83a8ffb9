package workflow

import (
	"context"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrderItemInput struct {
	OrderID   uint `json:"order_id" validate:"required"`
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"gt=0"`
}

type OrderItemUpdate struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"gt=0"`
}

// AddItem appends a line item and recomputes the order total.
func (e *OrderEngine) AddItem(ctx context.Context, in OrderItemInput) (item *models.OrderItem, err error) {
	defer metrics.TrackDBOperation("order_item.create")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("order_item.create", err) }()

	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	created := models.OrderItem{OrderID: in.OrderID, ProductID: in.ProductID, Quantity: in.Quantity}
	err = e.mutateItems(ctx, in.OrderID, func(tx *gorm.DB) error {
		if err := requireProduct(tx, in.ProductID); err != nil {
			return err
		}
		return tx.Omit(clause.Associations).Create(&created).Error
	})
	if err != nil {
		return nil, err
	}
	return e.GetItem(ctx, created.ID)
}

// UpdateItem changes the product or quantity of a line item and recomputes the order total.
func (e *OrderEngine) UpdateItem(ctx context.Context, id uint, in OrderItemUpdate) (item *models.OrderItem, err error) {
	defer metrics.TrackDBOperation("order_item.update")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("order_item.update", err) }()

	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	orderID, err := e.itemOrder(ctx, id)
	if err != nil {
		return nil, err
	}
	err = e.mutateItems(ctx, orderID, func(tx *gorm.DB) error {
		if err := requireProduct(tx, in.ProductID); err != nil {
			return err
		}
		res := tx.Model(&models.OrderItem{}).
			Where("id = ? AND order_id = ?", id, orderID).
			Updates(map[string]any{"product_id": in.ProductID, "quantity": in.Quantity})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("order item", id)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return e.GetItem(ctx, id)
}

// RemoveItem deletes a line item and recomputes the order total.
func (e *OrderEngine) RemoveItem(ctx context.Context, id uint) (err error) {
	defer func() { metrics.RecordWorkflowOperation("order_item.delete", err) }()

	orderID, err := e.itemOrder(ctx, id)
	if err != nil {
		return err
	}
	return e.mutateItems(ctx, orderID, func(tx *gorm.DB) error {
		res := tx.Where("id = ? AND order_id = ?", id, orderID).Delete(&models.OrderItem{})
		if res.Error != nil {
			return res.Error
		}
		if res.RowsAffected == 0 {
			return apperror.NotFound("order item", id)
		}
		return nil
	})
}

func (e *OrderEngine) GetItem(ctx context.Context, id uint) (*models.OrderItem, error) {
	var item models.OrderItem
	if err := e.db.WithContext(ctx).Preload("Product").First(&item, id).Error; err != nil {
		return nil, apperror.Translate(err, "order item")
	}
	return &item, nil
}

// ListItems returns line items, optionally only those of one order.
func (e *OrderEngine) ListItems(ctx context.Context, orderID uint) ([]models.OrderItem, error) {
	q := e.db.WithContext(ctx).Preload("Product")
	if orderID != 0 {
		q = q.Where("order_id = ?", orderID)
	}
	items := []models.OrderItem{}
	err := q.Order("id").Find(&items).Error
	return items, err
}

// mutateItems locks the order, runs fn and stores the recomputed total, as one unit.
func (e *OrderEngine) mutateItems(ctx context.Context, orderID uint, fn func(tx *gorm.DB) error) error {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var order models.Order
		if err := forUpdate(tx).First(&order, orderID).Error; err != nil {
			return apperror.Translate(err, "order")
		}
		if err := fn(tx); err != nil {
			return err
		}
		return saveOrderTotal(tx, orderID)
	})
	if err != nil {
		return err
	}

	e.log.Debug("Order items changed", zap.Uint("order_id", orderID))
	e.notify.Publish(Event{Type: EventOrderItemChanged, ID: orderID})
	return nil
}

func (e *OrderEngine) itemOrder(ctx context.Context, itemID uint) (uint, error) {
	var item models.OrderItem
	if err := e.db.WithContext(ctx).Select("id", "order_id").First(&item, itemID).Error; err != nil {
		return 0, apperror.Translate(err, "order item")
	}
	return item.OrderID, nil
}

func requireProduct(tx *gorm.DB, productID uint) error {
	if err := tx.Select("id").First(&models.Product{}, productID).Error; err != nil {
		return apperror.Translate(err, "product")
	}
	return nil
}
