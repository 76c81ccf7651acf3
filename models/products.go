package models

import (
	"time"
)

// Product represents a product in the catalog.
// Pricing and stock live on the product's variants, not on the product itself.
type Product struct {
	ID         uint   `gorm:"primaryKey"`
	Name       string `gorm:"not null"`
	ShortDesc  string `gorm:"size:1000"`
	DetailDesc string
	Image      string
	CategoryID uint      `gorm:"not null"`
	Category   Category  `gorm:"foreignKey:CategoryID"`
	Variants   []Variant `gorm:"foreignKey:ProductID"`
	IsActive   bool      `gorm:"not null;default:true"`
	IsFeatured bool      `gorm:"not null;default:false"`
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

func (p *Product) TableName() string {
	return "products"
}
