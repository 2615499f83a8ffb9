package catalog

import (
	"context"

	"fleetinventory/apperror"
	"fleetinventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

type SupplierInput struct {
	Name    string `json:"name" validate:"required,max=100"`
	Phone   string `json:"phone" validate:"max=20"`
	Email   string `json:"email" validate:"omitempty,email"`
	Address string `json:"address" validate:"max=100"`
	City    string `json:"city" validate:"max=100"`
	Country string `json:"country" validate:"max=100"`
}

func (in SupplierInput) apply(s *models.Supplier) {
	s.Name = in.Name
	s.Phone = in.Phone
	s.Email = in.Email
	s.Address = in.Address
	s.City = in.City
	s.Country = in.Country
}

func (s *Store) CreateSupplier(ctx context.Context, in SupplierInput) (*models.Supplier, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	var supplier models.Supplier
	in.apply(&supplier)
	if err := s.db.WithContext(ctx).Create(&supplier).Error; err != nil {
		return nil, err
	}
	s.log.Info("Supplier created", zap.Uint("supplier_id", supplier.ID))
	return &supplier, nil
}

func (s *Store) GetSupplier(ctx context.Context, id uint) (*models.Supplier, error) {
	var supplier models.Supplier
	if err := s.db.WithContext(ctx).First(&supplier, id).Error; err != nil {
		return nil, apperror.Translate(err, "supplier")
	}
	return &supplier, nil
}

func (s *Store) ListSuppliers(ctx context.Context) ([]models.Supplier, error) {
	suppliers := []models.Supplier{}
	err := s.db.WithContext(ctx).Order("name").Find(&suppliers).Error
	return suppliers, err
}

func (s *Store) UpdateSupplier(ctx context.Context, id uint, in SupplierInput) (*models.Supplier, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	var supplier models.Supplier
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&supplier, id).Error; err != nil {
			return apperror.Translate(err, "supplier")
		}
		in.apply(&supplier)
		return tx.Save(&supplier).Error
	})
	if err != nil {
		return nil, err
	}
	return &supplier, nil
}

// DeleteSupplier refuses to remove a supplier that still has orders.
func (s *Store) DeleteSupplier(ctx context.Context, id uint) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var supplier models.Supplier
		if err := tx.First(&supplier, id).Error; err != nil {
			return apperror.Translate(err, "supplier")
		}
		var orders int64
		if err := tx.Model(&models.Order{}).Where("supplier_id = ?", id).Count(&orders).Error; err != nil {
			return err
		}
		if orders > 0 {
			return apperror.Validation("supplier", "supplier still has orders")
		}
		return tx.Delete(&supplier).Error
	})
}
