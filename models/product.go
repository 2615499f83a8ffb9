package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type Product struct {
	ID              uint            `gorm:"primaryKey" json:"id"`
	SKU             string          `gorm:"column:sku;size:50;index" json:"sku"`
	Name            string          `gorm:"size:100;not null" json:"name"`
	Reference       string          `gorm:"size:50;uniqueIndex;not null" json:"reference"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	ItemsPerUnit    int             `gorm:"not null;default:1" json:"items_per_unit"`
	MinQuantity     int             `json:"min_quantity"`
	LowQuantity     int             `json:"low_quantity"`
	CurrentQuantity int             `gorm:"not null;default:0" json:"current_quantity"`
	CreatedAt       time.Time       `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt       time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
}

type Supplier struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	Name      string    `gorm:"size:100;not null" json:"name"`
	Phone     string    `gorm:"size:20" json:"phone,omitempty"`
	Email     string    `gorm:"size:254" json:"email,omitempty"`
	Address   string    `gorm:"size:100" json:"address,omitempty"`
	City      string    `gorm:"size:100" json:"city,omitempty"`
	Country   string    `gorm:"size:100" json:"country,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Stock is the on-hand ledger row for a product. One row per product.
type Stock struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	ProductID uint      `gorm:"uniqueIndex;not null" json:"product_id"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}
