package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Variant is a sellable size/option of a product with its own price and stock.
// (ProductID, Name) is unique: re-adding an existing variant name updates it.
type Variant struct {
	ID        uint            `gorm:"primaryKey"`
	ProductID uint            `gorm:"not null;uniqueIndex:idx_variants_product_name"`
	Name      string          `gorm:"not null;uniqueIndex:idx_variants_product_name"`
	Price     decimal.Decimal `gorm:"type:decimal(18,2);not null"`
	Stock     int             `gorm:"not null;default:0"`
	IsActive  bool            `gorm:"not null;default:true"`
	CreatedAt time.Time
	UpdatedAt time.Time
}

func (v *Variant) TableName() string {
	return "product_variants"
}
