package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Order lifecycle statuses, mutated by back-office staff.
const (
	OrderStatusPending   = "PENDING"
	OrderStatusConfirmed = "CONFIRMED"
	OrderStatusDelivered = "DELIVERED"
	OrderStatusCancelled = "CANCELLED"
)

// Payment statuses. Only the payment-gateway callback path moves an order
// from UNPAID to PAID.
const (
	PaymentStatusUnpaid = "UNPAID"
	PaymentStatusPaid   = "PAID"
)

// Order is an immutable record of a placed order; only Status and
// PaymentStatus change after creation. TotalPrice is a snapshot computed at
// placement time and never re-derived. CheckoutRef ties gateway-paid orders
// to the staged checkout that produced them, so a replayed callback cannot
// create a second order.
type Order struct {
	ID              uint `gorm:"primaryKey"`
	UserID          *uint
	User            *User
	TotalPrice      decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	ReceiverName    string          `gorm:"size:255;not null"`
	ReceiverAddress string          `gorm:"size:500;not null"`
	ReceiverPhone   string          `gorm:"size:20;not null"`
	Note            string          `gorm:"size:1000"`
	Status          string          `gorm:"size:50;not null"`
	PaymentStatus   string          `gorm:"size:50;not null"`
	CheckoutRef     *string         `gorm:"uniqueIndex"`
	CreatedAt       time.Time
	Details         []OrderDetail `gorm:"foreignKey:OrderID"`
}

func (o *Order) TableName() string {
	return "orders"
}

// OrderDetail is one line of an order. Price is copied from the cart line at
// order-creation time so orders stay historically stable when catalog prices
// change.
type OrderDetail struct {
	ID        uint `gorm:"primaryKey"`
	OrderID   uint `gorm:"not null;index"`
	ProductID uint `gorm:"not null"`
	Product   Product
	VariantID uint `gorm:"not null"`
	Variant   Variant
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"column:unit_price;type:decimal(18,2);not null"`
}

func (d *OrderDetail) TableName() string {
	return "order_detail"
}
