package catalog

import (
	"context"
	"math/big"
	"strings"
	"time"
	"unicode"

	"fleetinventory/apperror"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Store holds products, suppliers and stock levels.
type Store struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewStore(db *gorm.DB, log *zap.Logger) *Store {
	return &Store{db: db, log: log}
}

type ProductInput struct {
	Name            string          `json:"name" validate:"required,max=100"`
	Reference       string          `json:"reference" validate:"required,max=50"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	ItemsPerUnit    int             `json:"items_per_unit" validate:"omitempty,min=1"`
	MinQuantity     int             `json:"min_quantity" validate:"gte=0"`
	LowQuantity     int             `json:"low_quantity" validate:"gte=0"`
	CurrentQuantity int             `json:"current_quantity" validate:"gte=0"`
}

func (in ProductInput) validate() error {
	if err := apperror.Struct(in); err != nil {
		return err
	}
	if in.UnitPrice.IsNegative() {
		return apperror.Validation("unit_price", "must not be negative")
	}
	return nil
}

// ListOptions paginates list queries. A zero Limit returns everything after Skip.
type ListOptions struct {
	Limit int
	Skip  int
}

// GenerateSKU derives a product SKU: the first three letters of the name upper-cased,
// the last three digits found in the reference and four random digits.
func GenerateSKU(name, reference string) string {
	prefix := []rune(strings.ToUpper(strings.TrimSpace(name)))
	if len(prefix) > 3 {
		prefix = prefix[:3]
	}

	var digits []rune
	for _, r := range reference {
		if unicode.IsDigit(r) {
			digits = append(digits, r)
		}
	}
	if len(digits) > 3 {
		digits = digits[len(digits)-3:]
	}

	id := uuid.New()
	random := new(big.Int).SetBytes(id[:]).String()
	if len(random) > 4 {
		random = random[:4]
	}
	return string(prefix) + string(digits) + random
}

func (s *Store) CreateProduct(ctx context.Context, in ProductInput) (*models.Product, error) {
	defer metrics.TrackDBOperation("product.create")(time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ItemsPerUnit == 0 {
		in.ItemsPerUnit = 1
	}

	product := models.Product{
		SKU:             GenerateSKU(in.Name, in.Reference),
		Name:            in.Name,
		Reference:       in.Reference,
		UnitPrice:       in.UnitPrice,
		ItemsPerUnit:    in.ItemsPerUnit,
		MinQuantity:     in.MinQuantity,
		LowQuantity:     in.LowQuantity,
		CurrentQuantity: in.CurrentQuantity,
	}
	if err := s.db.WithContext(ctx).Create(&product).Error; err != nil {
		return nil, apperror.Translate(err, "product reference "+in.Reference)
	}
	s.log.Info("Product created", zap.Uint("product_id", product.ID), zap.String("sku", product.SKU))
	return &product, nil
}

func (s *Store) GetProduct(ctx context.Context, id uint) (*models.Product, error) {
	var product models.Product
	if err := s.db.WithContext(ctx).First(&product, id).Error; err != nil {
		return nil, apperror.Translate(err, "product")
	}
	return &product, nil
}

func (s *Store) ListProducts(ctx context.Context, opts ListOptions) ([]models.Product, int64, error) {
	defer metrics.TrackDBOperation("product.list")(time.Now())

	var total int64
	if err := s.db.WithContext(ctx).Model(&models.Product{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}

	q := s.db.WithContext(ctx)
	if opts.Skip > 0 {
		q = q.Offset(opts.Skip)
	}
	if opts.Limit > 0 {
		q = q.Limit(opts.Limit)
	}

	products := []models.Product{}
	if err := q.Order("id").Find(&products).Error; err != nil {
		return nil, 0, err
	}
	return products, total, nil
}

// LowStock lists products at or below their low-quantity threshold.
func (s *Store) LowStock(ctx context.Context) ([]models.Product, error) {
	products := []models.Product{}
	err := s.db.WithContext(ctx).
		Where("current_quantity <= low_quantity").
		Order("current_quantity").
		Find(&products).Error
	return products, err
}

// UpdateProduct rewrites the descriptive fields. SKU and on-hand quantity are
// never changed here; stock moves go through AdjustStock.
func (s *Store) UpdateProduct(ctx context.Context, id uint, in ProductInput) (*models.Product, error) {
	defer metrics.TrackDBOperation("product.update")(time.Now())

	if err := in.validate(); err != nil {
		return nil, err
	}
	if in.ItemsPerUnit == 0 {
		in.ItemsPerUnit = 1
	}

	var product models.Product
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&product, id).Error; err != nil {
			return apperror.Translate(err, "product")
		}
		err := tx.Model(&product).Select("name", "reference", "unit_price", "items_per_unit", "min_quantity", "low_quantity").
			Updates(models.Product{
				Name:         in.Name,
				Reference:    in.Reference,
				UnitPrice:    in.UnitPrice,
				ItemsPerUnit: in.ItemsPerUnit,
				MinQuantity:  in.MinQuantity,
				LowQuantity:  in.LowQuantity,
			}).Error
		return apperror.Translate(err, "product reference "+in.Reference)
	})
	if err != nil {
		return nil, err
	}
	return s.GetProduct(ctx, id)
}

// DeleteProduct removes a product and its stock row. Products still used by order
// or reparation items cannot be deleted.
func (s *Store) DeleteProduct(ctx context.Context, id uint) error {
	defer metrics.TrackDBOperation("product.delete")(time.Now())

	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var product models.Product
		if err := tx.First(&product, id).Error; err != nil {
			return apperror.Translate(err, "product")
		}
		for _, line := range []any{&models.OrderItem{}, &models.ReparationProductItem{}} {
			var n int64
			if err := tx.Model(line).Where("product_id = ?", id).Count(&n).Error; err != nil {
				return err
			}
			if n > 0 {
				return apperror.Validation("product", "product is still referenced by line items")
			}
		}
		if err := tx.Where("product_id = ?", id).Delete(&models.Stock{}).Error; err != nil {
			return err
		}
		return tx.Delete(&product).Error
	})
}
