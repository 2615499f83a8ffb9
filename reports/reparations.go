package reports

import (
	"bytes"
	"fmt"

	"fleetinventory/models"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"
)

const reparationSheet = "Reparations"

var reparationHeaders = []string{
	"Reparation ID", "Vehicle", "License Plate", "Driver", "Date Repaired", "Location",
	"Odometer", "Product", "SKU", "Quantity", "Unit Price", "Line Total", "Reparation Total",
}

// ReparationWorkbook renders one row per reparation item; reparations without items
// get a single row with empty product columns. reps must have Items.Product, Vehicle
// and Driver loaded.
func ReparationWorkbook(reps []models.ReparationProduct) (*bytes.Buffer, error) {
	f := excelize.NewFile()
	defer f.Close()

	index, err := f.NewSheet(reparationSheet)
	if err != nil {
		return nil, fmt.Errorf("create sheet: %w", err)
	}
	f.SetActiveSheet(index)
	if err := f.DeleteSheet("Sheet1"); err != nil {
		return nil, err
	}

	if err := f.SetSheetRow(reparationSheet, "A1", &reparationHeaders); err != nil {
		return nil, err
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true},
		Fill: excelize.Fill{Type: "pattern", Color: []string{"#E6E6FA"}, Pattern: 1},
	})
	if err == nil {
		f.SetRowStyle(reparationSheet, 1, 1, headerStyle)
	}

	row := 2
	for _, rep := range reps {
		lead := []interface{}{
			rep.ID,
			vehicleName(rep.Vehicle),
			plate(rep.Vehicle),
			driverName(rep.Driver),
			rep.RepairedAt.Format("2006-01-02 15:04:05"),
			rep.Location,
			rep.Odometer,
		}
		total := rep.TotalPrice.InexactFloat64()

		if len(rep.Items) == 0 {
			values := append(append([]interface{}{}, lead...), "", "", "", "", "", total)
			if err := setRow(f, row, values); err != nil {
				return nil, err
			}
			row++
			continue
		}

		for _, item := range rep.Items {
			line := item.Product.UnitPrice.Mul(decimal.NewFromInt(int64(item.Quantity)))
			values := append(append([]interface{}{}, lead...),
				item.Product.Name,
				item.Product.SKU,
				item.Quantity,
				item.Product.UnitPrice.InexactFloat64(),
				line.InexactFloat64(),
				total,
			)
			if err := setRow(f, row, values); err != nil {
				return nil, err
			}
			row++
		}
	}

	for i := range reparationHeaders {
		col, _ := excelize.ColumnNumberToName(i + 1)
		f.SetColWidth(reparationSheet, col, col, 16)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("write workbook: %w", err)
	}
	return buf, nil
}

func setRow(f *excelize.File, row int, values []interface{}) error {
	cell, err := excelize.CoordinatesToCellName(1, row)
	if err != nil {
		return err
	}
	return f.SetSheetRow(reparationSheet, cell, &values)
}

func vehicleName(v *models.Vehicle) string {
	if v == nil {
		return ""
	}
	return v.Name
}

func plate(v *models.Vehicle) string {
	if v == nil || v.LicensePlate == nil {
		return ""
	}
	return *v.LicensePlate
}

func driverName(d *models.Driver) string {
	if d == nil {
		return "Driver not assigned"
	}
	return d.Name
}
