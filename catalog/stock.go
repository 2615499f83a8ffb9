package catalog

import (
	"context"
	"errors"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// GetOrCreateStock returns the stock row for a product, creating it from the
// product's current quantity when missing.
func (s *Store) GetOrCreateStock(ctx context.Context, productID uint) (*models.Stock, bool, error) {
	var (
		stock   *models.Stock
		created bool
	)
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stock, created, err = getOrCreateStock(tx, productID)
		return err
	})
	if err != nil {
		return nil, false, err
	}
	return stock, created, nil
}

// AdjustStock moves a product's on-hand quantity by delta.
func (s *Store) AdjustStock(ctx context.Context, productID uint, delta int) (*models.Stock, error) {
	defer metrics.TrackDBOperation("stock.adjust")(time.Now())

	var stock *models.Stock
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var err error
		stock, err = AdjustStockTx(tx, productID, delta)
		return err
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("Stock adjusted", zap.Uint("product_id", productID), zap.Int("delta", delta), zap.Int("quantity", stock.Quantity))
	return stock, nil
}

// AdjustStockTx applies delta inside tx. The resulting quantity may not go below
// zero, and the product's current_quantity is set to match.
func AdjustStockTx(tx *gorm.DB, productID uint, delta int) (*models.Stock, error) {
	stock, _, err := getOrCreateStock(tx, productID)
	if err != nil {
		return nil, err
	}

	next := stock.Quantity + delta
	if next < 0 {
		return nil, apperror.Validation("quantity", "insufficient stock")
	}

	if err := tx.Model(stock).Update("quantity", next).Error; err != nil {
		return nil, err
	}
	if err := tx.Model(&models.Product{}).Where("id = ?", productID).Update("current_quantity", next).Error; err != nil {
		return nil, err
	}
	stock.Quantity = next
	return stock, nil
}

func getOrCreateStock(tx *gorm.DB, productID uint) (*models.Stock, bool, error) {
	var product models.Product
	if err := tx.First(&product, productID).Error; err != nil {
		return nil, false, apperror.Translate(err, "product")
	}

	var stock models.Stock
	err := tx.Where("product_id = ?", productID).First(&stock).Error
	if err == nil {
		stock.Product = product
		return &stock, false, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, false, err
	}

	stock = models.Stock{ProductID: productID, Quantity: product.CurrentQuantity}
	if err := tx.Omit("Product").Create(&stock).Error; err != nil {
		return nil, false, apperror.Translate(err, "stock")
	}
	stock.Product = product
	return &stock, true, nil
}
