package models

import (
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	StatusPending   OrderStatus = "PENDING"
	StatusCompleted OrderStatus = "COMPLETED"
	StatusCancelled OrderStatus = "CANCELLED"
)

func (s OrderStatus) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusCancelled:
		return true
	}
	return false
}

// Order is a purchase order placed with a supplier. TotalPrice is derived from OrderItems.
type Order struct {
	ID                  uint            `gorm:"primaryKey" json:"id"`
	OrderNumber         string          `gorm:"size:50;uniqueIndex;not null" json:"order_number"`
	OrderedAt           time.Time       `gorm:"autoCreateTime" json:"date_ordered"`
	DeliveredAt         *time.Time      `json:"date_delivered"`
	IsDelivered         bool            `gorm:"not null;default:false" json:"is_delivered"`
	TotalPrice          decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"total_price"`
	Status              OrderStatus     `gorm:"size:20;not null;default:PENDING" json:"status"`
	SupplierID          uint            `gorm:"not null;index" json:"supplier_id"`
	Supplier            *Supplier       `gorm:"foreignKey:SupplierID" json:"supplier,omitempty"`
	DeliveryOrderNumber *string         `gorm:"size:50;uniqueIndex:idx_completed_delivery_number,where:status = 'COMPLETED'" json:"delivery_order_number"`
	UpdatedAt           time.Time       `gorm:"autoUpdateTime" json:"updated_at"`
	OrderItems          []OrderItem     `gorm:"foreignKey:OrderID" json:"order_items"`
	Invoice             *Invoice        `gorm:"foreignKey:OrderID" json:"invoice,omitempty"`
}

type OrderItem struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OrderID   uint      `gorm:"not null;index" json:"order_id"`
	ProductID uint      `gorm:"not null" json:"product_id"`
	Quantity  int       `gorm:"not null" json:"quantity"`
	Product   Product   `gorm:"foreignKey:ProductID" json:"product,omitempty"`
	CreatedAt time.Time `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt time.Time `gorm:"autoUpdateTime" json:"updated_at"`
}

// Invoice is the point-in-time bill created together with its order.
type Invoice struct {
	ID            uint            `gorm:"primaryKey" json:"id"`
	OrderID       uint            `gorm:"uniqueIndex;not null" json:"order_id"`
	InvoiceNumber string          `gorm:"size:50;uniqueIndex;not null" json:"invoice_number"`
	TotalPrice    decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"total_price"`
	CreatedAt     time.Time       `gorm:"autoCreateTime" json:"date_created"`
}
