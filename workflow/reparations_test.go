package workflow

import (
	"context"
	"testing"
	"time"

	"fleetinventory/apperror"
	"fleetinventory/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var repairTime = time.Date(2024, 5, 10, 14, 30, 0, 0, time.UTC)

func TestReparationTotalsAndItemReplacement(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "V")
	brake := f.product(t, "BRK-050", "50")
	bulb := f.product(t, "BLB-020", "20")

	rep, err := f.reparations.Create(ctx, ReparationInput{
		VehicleID:  v.ID,
		Odometer:   120500,
		RepairedAt: &repairTime,
		Location:   "Main garage",
		Items:      []LineInput{{ProductID: brake.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	requireAmount(t, "100.00", rep.TotalPrice)
	require.Len(t, rep.Items, 1)
	originalItem := rep.Items[0].ID
	assert.Nil(t, rep.DriverID)

	rep, err = f.reparations.Update(ctx, rep.ID, ReparationInput{
		VehicleID: v.ID,
		Odometer:  120500,
		Location:  "Main garage",
		Items:     []LineInput{{ProductID: bulb.ID, Quantity: 1}},
	})
	require.NoError(t, err)
	requireAmount(t, "20.00", rep.TotalPrice)
	require.Len(t, rep.Items, 1)
	assert.Equal(t, bulb.ID, rep.Items[0].ProductID)
	assert.True(t, repairTime.Equal(rep.RepairedAt), "repaired-at is kept when not supplied")

	var count int64
	require.NoError(t, f.db.Model(&models.ReparationProductItem{}).Where("id = ?", originalItem).Count(&count).Error)
	assert.Zero(t, count)

	assert.Equal(t, []string{EventReparationCreated, EventReparationUpdated}, f.events.types())
}

func TestReparationTotalRecomputedOnEverySave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "V")
	oil := f.product(t, "OIL-1", "8.00")

	in := ReparationInput{
		VehicleID:  v.ID,
		RepairedAt: &repairTime,
		Items:      []LineInput{{ProductID: oil.ID, Quantity: 5}},
	}
	rep, err := f.reparations.Create(ctx, in)
	require.NoError(t, err)
	requireAmount(t, "40", rep.TotalPrice)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", oil.ID).Update("unit_price", dec("9.00")).Error)

	rep, err = f.reparations.Update(ctx, rep.ID, in)
	require.NoError(t, err)
	requireAmount(t, "45", rep.TotalPrice)

	require.NoError(t, f.db.Model(&models.Product{}).Where("id = ?", oil.ID).Update("unit_price", dec("10.00")).Error)
	rep, err = f.reparations.Recompute(ctx, rep.ID)
	require.NoError(t, err)
	requireAmount(t, "50", rep.TotalPrice)
}

func TestReparationUniquePerVehicleAndTime(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "V")
	other := f.vehicle(t, "W")

	_, err := f.reparations.Create(ctx, ReparationInput{VehicleID: v.ID, RepairedAt: &repairTime})
	require.NoError(t, err)

	_, err = f.reparations.Create(ctx, ReparationInput{VehicleID: v.ID, RepairedAt: &repairTime})
	verr, ok := apperror.IsValidation(err)
	require.True(t, ok)
	assert.NotEmpty(t, verr.Field("date_repaired"))

	_, err = f.reparations.Create(ctx, ReparationInput{VehicleID: other.ID, RepairedAt: &repairTime})
	require.NoError(t, err)

	later := repairTime.Add(time.Hour)
	moved, err := f.reparations.Create(ctx, ReparationInput{VehicleID: v.ID, RepairedAt: &later})
	require.NoError(t, err)

	_, err = f.reparations.Update(ctx, moved.ID, ReparationInput{VehicleID: v.ID, RepairedAt: &repairTime})
	_, ok = apperror.IsValidation(err)
	assert.True(t, ok)

	var count int64
	require.NoError(t, f.db.Model(&models.ReparationProduct{}).Where("vehicle_id = ?", v.ID).Count(&count).Error)
	assert.EqualValues(t, 2, count)
}

func TestReparationUniqueIndexIsHardConstraint(t *testing.T) {
	f := newFixture(t)
	v := f.vehicle(t, "V")

	require.NoError(t, f.db.Create(&models.ReparationProduct{VehicleID: v.ID, RepairedAt: repairTime}).Error)
	assert.Error(t, f.db.Create(&models.ReparationProduct{VehicleID: v.ID, RepairedAt: repairTime}).Error)
}

func TestReparationValidationBeforeMutation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "V")
	p := f.product(t, "P", "5")

	rep, err := f.reparations.Create(ctx, ReparationInput{
		VehicleID:  v.ID,
		RepairedAt: &repairTime,
		Location:   "Yard",
		Items:      []LineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.reparations.Update(ctx, rep.ID, ReparationInput{
		VehicleID: v.ID,
		Location:  "Elsewhere",
		Items:     []LineInput{{ProductID: p.ID, Quantity: 0}},
	})
	_, ok := apperror.IsValidation(err)
	require.True(t, ok)

	missingDriver := uint(55)
	_, err = f.reparations.Update(ctx, rep.ID, ReparationInput{VehicleID: v.ID, DriverID: &missingDriver, Location: "Elsewhere"})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	_, err = f.reparations.Update(ctx, rep.ID, ReparationInput{
		VehicleID: v.ID,
		Location:  "Elsewhere",
		Items:     []LineInput{{ProductID: 404, Quantity: 1}},
	})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	got, err := f.reparations.Get(ctx, rep.ID)
	require.NoError(t, err)
	assert.Equal(t, "Yard", got.Location)
	require.Len(t, got.Items, 1)
	requireAmount(t, "5", got.TotalPrice)

	_, err = f.reparations.Create(ctx, ReparationInput{VehicleID: 999})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestReparationWithDriverListLatestDelete(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "V")
	w := f.vehicle(t, "W")
	p := f.product(t, "P", "12.5")
	driver := models.Driver{Name: "Samir"}
	require.NoError(t, f.db.Create(&driver).Error)

	older := repairTime.Add(-24 * time.Hour)
	_, err := f.reparations.Create(ctx, ReparationInput{VehicleID: v.ID, RepairedAt: &older})
	require.NoError(t, err)
	latest, err := f.reparations.Create(ctx, ReparationInput{
		VehicleID:  v.ID,
		DriverID:   &driver.ID,
		RepairedAt: &repairTime,
		Items:      []LineInput{{ProductID: p.ID, Quantity: 2}},
	})
	require.NoError(t, err)
	require.NotNil(t, latest.Driver)
	assert.Equal(t, "Samir", latest.Driver.Name)
	_, err = f.reparations.Create(ctx, ReparationInput{VehicleID: w.ID, RepairedAt: &repairTime})
	require.NoError(t, err)

	got, err := f.reparations.Latest(ctx, v.ID)
	require.NoError(t, err)
	assert.Equal(t, latest.ID, got.ID)

	forV, err := f.reparations.List(ctx, v.ID)
	require.NoError(t, err)
	require.Len(t, forV, 2)
	assert.Equal(t, latest.ID, forV[0].ID)

	all, err := f.reparations.List(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	_, _, err = f.invoices.SaveReparationInvoice(ctx, latest.ID)
	require.NoError(t, err)
	require.NoError(t, f.reparations.Delete(ctx, latest.ID))

	var items, invoices int64
	require.NoError(t, f.db.Model(&models.ReparationProductItem{}).Where("reparation_product_id = ?", latest.ID).Count(&items).Error)
	require.NoError(t, f.db.Model(&models.ReparationInvoice{}).Where("reparation_product_id = ?", latest.ID).Count(&invoices).Error)
	assert.Zero(t, items)
	assert.Zero(t, invoices)

	_, err = f.reparations.Latest(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestReparationInvoiceResyncsOnSave(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	v := f.vehicle(t, "V")
	p := f.product(t, "P", "30")

	rep, err := f.reparations.Create(ctx, ReparationInput{
		VehicleID:  v.ID,
		RepairedAt: &repairTime,
		Items:      []LineInput{{ProductID: p.ID, Quantity: 1}},
	})
	require.NoError(t, err)

	_, err = f.invoices.GetReparationInvoice(ctx, rep.ID)
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	invoice, created, err := f.invoices.SaveReparationInvoice(ctx, rep.ID)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Len(t, invoice.InvoiceNumber, 8)
	requireAmount(t, "30", invoice.TotalPrice)

	_, err = f.reparations.Update(ctx, rep.ID, ReparationInput{
		VehicleID: v.ID,
		Items:     []LineInput{{ProductID: p.ID, Quantity: 3}},
	})
	require.NoError(t, err)

	stale, err := f.invoices.GetReparationInvoice(ctx, rep.ID)
	require.NoError(t, err)
	requireAmount(t, "30", stale.TotalPrice)

	resynced, created, err := f.invoices.SaveReparationInvoice(ctx, rep.ID)
	require.NoError(t, err)
	assert.False(t, created)
	assert.Equal(t, invoice.ID, resynced.ID)
	assert.Equal(t, invoice.InvoiceNumber, resynced.InvoiceNumber)
	requireAmount(t, "90", resynced.TotalPrice)

	_, _, err = f.invoices.SaveReparationInvoice(ctx, 999)
	assert.ErrorIs(t, err, apperror.ErrNotFound)
	assert.Contains(t, f.events.types(), EventReparationInvoiceSaved)
}
