package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReparationProduct is one maintenance event on a vehicle and the parts it used.
// A nil DriverID means no driver was assigned.
type ReparationProduct struct {
	ID         uint                    `gorm:"primaryKey" json:"id"`
	VehicleID  uint                    `gorm:"not null;uniqueIndex:idx_vehicle_repaired_at" json:"vehicle_id"`
	Vehicle    *Vehicle                `gorm:"foreignKey:VehicleID" json:"vehicle,omitempty"`
	DriverID   *uint                   `json:"driver_id"`
	Driver     *Driver                 `gorm:"foreignKey:DriverID" json:"driver,omitempty"`
	Odometer   int                     `json:"odometer"`
	RepairedAt time.Time               `gorm:"not null;uniqueIndex:idx_vehicle_repaired_at" json:"date_repaired"`
	Location   string                  `gorm:"size:100" json:"location"`
	TotalPrice decimal.Decimal         `gorm:"type:decimal(10,2);not null;default:0" json:"total_price"`
	Items      []ReparationProductItem `gorm:"foreignKey:ReparationProductID" json:"products"`
	Invoice    *ReparationInvoice      `gorm:"foreignKey:ReparationProductID" json:"invoice,omitempty"`
	CreatedAt  time.Time               `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt  time.Time               `gorm:"autoUpdateTime" json:"updated_at"`
}

type ReparationProductItem struct {
	ID                  uint    `gorm:"primaryKey" json:"id"`
	ReparationProductID uint    `gorm:"not null;index" json:"reparation_product_id"`
	ProductID           uint    `gorm:"not null" json:"product_id"`
	Product             Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity            int     `gorm:"not null" json:"quantity"`
}

// ReparationInvoice mirrors its reparation's total each time the invoice is saved.
type ReparationInvoice struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	ReparationProductID uint            `gorm:"uniqueIndex;not null" json:"reparation_product_id"`
	InvoiceNumber       string          `gorm:"size:50;uniqueIndex;not null" json:"invoice_number"`
	TotalPrice          decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt           time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}
