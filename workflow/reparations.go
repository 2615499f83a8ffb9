package workflow

import (
	"context"
	"errors"
	"fmt"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/metrics"
	"fleetinventory/models"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ReparationEngine owns reparation records and their parts.
type ReparationEngine struct {
	db     *gorm.DB
	log    *zap.Logger
	notify Notifier
	now    func() time.Time
}

func NewReparationEngine(db *gorm.DB, log *zap.Logger, notifier Notifier) *ReparationEngine {
	return &ReparationEngine{db: db, log: log, notify: orNop(notifier), now: time.Now}
}

// ReparationInput describes a reparation and its complete item list. A nil DriverID
// leaves the reparation without a driver; a nil RepairedAt means now on create and
// unchanged on update.
type ReparationInput struct {
	VehicleID  uint        `json:"vehicle_id" validate:"required"`
	DriverID   *uint       `json:"driver_id"`
	Odometer   int         `json:"odometer" validate:"gte=0"`
	RepairedAt *time.Time  `json:"date_repaired"`
	Location   string      `json:"location" validate:"max=100"`
	Items      []LineInput `json:"products" validate:"dive"`
}

var errDuplicateRepair = apperror.Validation("date_repaired", "a reparation for this vehicle already exists at this time")

func (e *ReparationEngine) Create(ctx context.Context, in ReparationInput) (rep *models.ReparationProduct, err error) {
	defer metrics.TrackDBOperation("reparation.create")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("reparation.create", err) }()

	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	repairedAt := e.now()
	if in.RepairedAt != nil {
		repairedAt = *in.RepairedAt
	}
	created := models.ReparationProduct{
		VehicleID:  in.VehicleID,
		DriverID:   in.DriverID,
		Odometer:   in.Odometer,
		RepairedAt: normalizeTime(repairedAt),
		Location:   in.Location,
		TotalPrice: decimal.Zero,
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := checkReparationRefs(tx, in); err != nil {
			return err
		}
		if err := checkRepairSlot(tx, &created); err != nil {
			return err
		}
		if err := tx.Omit(clause.Associations).Create(&created).Error; err != nil {
			return translateRepairError(err)
		}
		if err := insertReparationItems(tx, created.ID, in.Items); err != nil {
			return err
		}
		return saveReparationTotal(tx, &created)
	})
	if err != nil {
		return nil, err
	}

	rep, err = e.Get(ctx, created.ID)
	if err != nil {
		return nil, err
	}
	e.log.Info("Reparation created",
		zap.Uint("reparation_id", rep.ID),
		zap.Uint("vehicle_id", rep.VehicleID),
		zap.String("total_price", rep.TotalPrice.StringFixed(2)))
	e.notify.Publish(Event{Type: EventReparationCreated, ID: rep.ID, Data: rep})
	return rep, nil
}

// Update rewrites the reparation and replaces its whole item list: existing items are
// deleted and in.Items inserted, then the total is recomputed.
func (e *ReparationEngine) Update(ctx context.Context, id uint, in ReparationInput) (rep *models.ReparationProduct, err error) {
	defer metrics.TrackDBOperation("reparation.update")(time.Now())
	defer func() { metrics.RecordWorkflowOperation("reparation.update", err) }()

	if err := apperror.Struct(in); err != nil {
		return nil, err
	}

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ReparationProduct
		if err := forUpdate(tx).First(&current, id).Error; err != nil {
			return apperror.Translate(err, "reparation")
		}
		if err := checkReparationRefs(tx, in); err != nil {
			return err
		}

		current.VehicleID = in.VehicleID
		current.DriverID = in.DriverID
		current.Odometer = in.Odometer
		current.Location = in.Location
		if in.RepairedAt != nil {
			current.RepairedAt = normalizeTime(*in.RepairedAt)
		}
		if err := checkRepairSlot(tx, &current); err != nil {
			return err
		}

		if err := tx.Omit(clause.Associations).Save(&current).Error; err != nil {
			return translateRepairError(err)
		}
		if err := tx.Where("reparation_product_id = ?", id).Delete(&models.ReparationProductItem{}).Error; err != nil {
			return err
		}
		if err := insertReparationItems(tx, id, in.Items); err != nil {
			return err
		}
		return saveReparationTotal(tx, &current)
	})
	if err != nil {
		return nil, err
	}

	rep, err = e.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	e.log.Info("Reparation updated",
		zap.Uint("reparation_id", rep.ID),
		zap.Int("items", len(rep.Items)),
		zap.String("total_price", rep.TotalPrice.StringFixed(2)))
	e.notify.Publish(Event{Type: EventReparationUpdated, ID: rep.ID, Data: rep})
	return rep, nil
}

// Recompute re-sums the persisted items of a reparation and stores the total.
func (e *ReparationEngine) Recompute(ctx context.Context, id uint) (*models.ReparationProduct, error) {
	err := e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var current models.ReparationProduct
		if err := forUpdate(tx).First(&current, id).Error; err != nil {
			return apperror.Translate(err, "reparation")
		}
		return saveReparationTotal(tx, &current)
	})
	if err != nil {
		return nil, err
	}
	return e.Get(ctx, id)
}

func (e *ReparationEngine) preloaded(ctx context.Context) *gorm.DB {
	return e.db.WithContext(ctx).
		Preload("Items.Product").
		Preload("Vehicle").
		Preload("Driver").
		Preload("Invoice")
}

func (e *ReparationEngine) Get(ctx context.Context, id uint) (*models.ReparationProduct, error) {
	var rep models.ReparationProduct
	if err := e.preloaded(ctx).First(&rep, id).Error; err != nil {
		return nil, apperror.Translate(err, "reparation")
	}
	return &rep, nil
}

// List returns reparations, most recent repair first, optionally for one vehicle.
func (e *ReparationEngine) List(ctx context.Context, vehicleID uint) ([]models.ReparationProduct, error) {
	defer metrics.TrackDBOperation("reparation.list")(time.Now())

	q := e.preloaded(ctx)
	if vehicleID != 0 {
		q = q.Where("vehicle_id = ?", vehicleID)
	}
	reps := []models.ReparationProduct{}
	err := q.Order("repaired_at DESC").Order("id DESC").Find(&reps).Error
	return reps, err
}

// Latest returns the most recent reparation of a vehicle.
func (e *ReparationEngine) Latest(ctx context.Context, vehicleID uint) (*models.ReparationProduct, error) {
	var rep models.ReparationProduct
	err := e.preloaded(ctx).
		Where("vehicle_id = ?", vehicleID).
		Order("repaired_at DESC").Order("id DESC").
		First(&rep).Error
	if err != nil {
		return nil, apperror.Translate(err, "reparation for vehicle")
	}
	return &rep, nil
}

// Delete removes the reparation with its items and invoice.
func (e *ReparationEngine) Delete(ctx context.Context, id uint) (err error) {
	defer func() { metrics.RecordWorkflowOperation("reparation.delete", err) }()

	err = e.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var rep models.ReparationProduct
		if err := forUpdate(tx).First(&rep, id).Error; err != nil {
			return apperror.Translate(err, "reparation")
		}
		if err := tx.Where("reparation_product_id = ?", id).Delete(&models.ReparationProductItem{}).Error; err != nil {
			return err
		}
		if err := tx.Where("reparation_product_id = ?", id).Delete(&models.ReparationInvoice{}).Error; err != nil {
			return err
		}
		return tx.Delete(&rep).Error
	})
	if err != nil {
		return err
	}
	e.log.Info("Reparation deleted", zap.Uint("reparation_id", id))
	e.notify.Publish(Event{Type: EventReparationDeleted, ID: id})
	return nil
}

func checkReparationRefs(tx *gorm.DB, in ReparationInput) error {
	if err := tx.Select("id").First(&models.Vehicle{}, in.VehicleID).Error; err != nil {
		return apperror.Translate(err, "vehicle")
	}
	if in.DriverID != nil {
		if err := tx.Select("id").First(&models.Driver{}, *in.DriverID).Error; err != nil {
			return apperror.Translate(err, "driver")
		}
	}
	for _, line := range in.Items {
		if err := requireProduct(tx, line.ProductID); err != nil {
			return err
		}
	}
	return nil
}

// checkRepairSlot rejects a second reparation for the same vehicle and timestamp.
func checkRepairSlot(tx *gorm.DB, rep *models.ReparationProduct) error {
	q := tx.Model(&models.ReparationProduct{}).
		Where("vehicle_id = ? AND repaired_at = ?", rep.VehicleID, rep.RepairedAt)
	if rep.ID != 0 {
		q = q.Where("id <> ?", rep.ID)
	}

	var n int64
	if err := q.Count(&n).Error; err != nil {
		return err
	}
	if n > 0 {
		return errDuplicateRepair
	}
	return nil
}

func translateRepairError(err error) error {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return errDuplicateRepair
	}
	return err
}

func insertReparationItems(tx *gorm.DB, reparationID uint, lines []LineInput) error {
	if len(lines) == 0 {
		return nil
	}
	items := make([]models.ReparationProductItem, 0, len(lines))
	for _, line := range lines {
		items = append(items, models.ReparationProductItem{
			ReparationProductID: reparationID,
			ProductID:           line.ProductID,
			Quantity:            line.Quantity,
		})
	}
	return tx.Omit(clause.Associations).Create(&items).Error
}

// saveReparationTotal re-sums the persisted items of rep and stores the total.
func saveReparationTotal(tx *gorm.DB, rep *models.ReparationProduct) error {
	var items []models.ReparationProductItem
	if err := tx.Preload("Product").Where("reparation_product_id = ?", rep.ID).Find(&items).Error; err != nil {
		return fmt.Errorf("load reparation items: %w", err)
	}
	lines := make([]pricedLine, 0, len(items))
	for _, it := range items {
		lines = append(lines, pricedLine{itemID: it.ID, productID: it.ProductID, quantity: it.Quantity, product: it.Product})
	}
	total, err := lineTotal(lines)
	if err != nil {
		return err
	}
	rep.TotalPrice = total
	return tx.Model(&models.ReparationProduct{}).Where("id = ?", rep.ID).Update("total_price", total).Error
}
