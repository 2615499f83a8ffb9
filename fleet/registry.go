package fleet

import (
	"context"
	"strings"

	"fleetinventory/apperror"
	"fleetinventory/models"

	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Registry stores vehicles and drivers.
type Registry struct {
	db  *gorm.DB
	log *zap.Logger
}

func NewRegistry(db *gorm.DB, log *zap.Logger) *Registry {
	return &Registry{db: db, log: log}
}

type VehicleInput struct {
	Name          string `json:"name" validate:"required,max=100"`
	Code          string `json:"code" validate:"max=50"`
	LicensePlate  string `json:"license_plate" validate:"max=20"`
	Brand         string `json:"brand" validate:"max=50"`
	Model         string `json:"model" validate:"max=50"`
	Year          int    `json:"year" validate:"omitempty,gte=1900,lte=2100"`
	ChassisNumber string `json:"chassis_number" validate:"max=50"`
	EngineModel   string `json:"engine_model" validate:"max=50"`
}

func (in VehicleInput) apply(v *models.Vehicle) {
	v.Name = in.Name
	v.Code = in.Code
	v.LicensePlate = nil
	if plate := strings.TrimSpace(in.LicensePlate); plate != "" {
		v.LicensePlate = &plate
	}
	v.Brand = in.Brand
	v.Model = in.Model
	v.Year = in.Year
	v.ChassisNumber = in.ChassisNumber
	v.EngineModel = in.EngineModel
}

func (r *Registry) CreateVehicle(ctx context.Context, in VehicleInput) (*models.Vehicle, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	var vehicle models.Vehicle
	in.apply(&vehicle)
	if err := r.db.WithContext(ctx).Create(&vehicle).Error; err != nil {
		return nil, apperror.Translate(err, "license plate "+in.LicensePlate)
	}
	r.log.Info("Vehicle registered", zap.Uint("vehicle_id", vehicle.ID))
	return &vehicle, nil
}

func (r *Registry) GetVehicle(ctx context.Context, id uint) (*models.Vehicle, error) {
	var vehicle models.Vehicle
	if err := r.db.WithContext(ctx).First(&vehicle, id).Error; err != nil {
		return nil, apperror.Translate(err, "vehicle")
	}
	return &vehicle, nil
}

func (r *Registry) ListVehicles(ctx context.Context) ([]models.Vehicle, error) {
	vehicles := []models.Vehicle{}
	err := r.db.WithContext(ctx).Order("id").Find(&vehicles).Error
	return vehicles, err
}

func (r *Registry) UpdateVehicle(ctx context.Context, id uint, in VehicleInput) (*models.Vehicle, error) {
	if err := apperror.Struct(in); err != nil {
		return nil, err
	}
	var vehicle models.Vehicle
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&vehicle, id).Error; err != nil {
			return apperror.Translate(err, "vehicle")
		}
		in.apply(&vehicle)
		return apperror.Translate(tx.Save(&vehicle).Error, "license plate "+in.LicensePlate)
	})
	if err != nil {
		return nil, err
	}
	return &vehicle, nil
}

// DeleteVehicle refuses while reparation records still reference the vehicle.
func (r *Registry) DeleteVehicle(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var vehicle models.Vehicle
		if err := tx.First(&vehicle, id).Error; err != nil {
			return apperror.Translate(err, "vehicle")
		}
		var used int64
		if err := tx.Model(&models.ReparationProduct{}).Where("vehicle_id = ?", id).Count(&used).Error; err != nil {
			return err
		}
		if used > 0 {
			return apperror.Validation("vehicle", "vehicle has reparation records")
		}
		return tx.Delete(&vehicle).Error
	})
}
