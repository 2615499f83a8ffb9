package fleet

import (
	"context"

	"fleetinventory/apperror"
	"fleetinventory/models"

	"gorm.io/gorm"
)

type DriverInput struct {
	Name           string `json:"name" validate:"required,max=100"`
	Phone          string `json:"phone" validate:"max=20"`
	DrivingLicense string `json:"driving_license" validate:"max=50"`
}

func (r *Registry) CreateDriver(ctx context.Context, in DriverInput) (*models.Driver, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	driver := models.Driver{Name: in.Name, Phone: in.Phone, DrivingLicense: in.DrivingLicense}
	if err := r.db.WithContext(ctx).Create(&driver).Error; err != nil {
		return nil, err
	}
	return &driver, nil
}

func (r *Registry) GetDriver(ctx context.Context, id uint) (*models.Driver, error) {
	var driver models.Driver
	if err := r.db.WithContext(ctx).First(&driver, id).Error; err != nil {
		return nil, apperror.Translate(err, "driver")
	}
	return &driver, nil
}

func (r *Registry) ListDrivers(ctx context.Context) ([]models.Driver, error) {
	drivers := []models.Driver{}
	err := r.db.WithContext(ctx).Order("name").Find(&drivers).Error
	return drivers, err
}

func (r *Registry) UpdateDriver(ctx context.Context, id uint, in DriverInput) (*models.Driver, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	var driver models.Driver
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&driver, id).Error; err != nil {
			return apperror.Translate(err, "driver")
		}
		driver.Name = in.Name
		driver.Phone = in.Phone
		driver.DrivingLicense = in.DrivingLicense
		return tx.Save(&driver).Error
	})
	if err != nil {
		return nil, err
	}
	return &driver, nil
}

// DeleteDriver detaches the driver from its reparations, which then read as unassigned.
func (r *Registry) DeleteDriver(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var driver models.Driver
		if err := tx.First(&driver, id).Error; err != nil {
			return apperror.Translate(err, "driver")
		}
		if err := tx.Model(&models.ReparationProduct{}).Where("driver_id = ?", id).Update("driver_id", nil).Error; err != nil {
			return err
		}
		return tx.Delete(&driver).Error
	})
}
