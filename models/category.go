package models

// Category represents a product category.
// Names are unique; inactive categories are hidden from the storefront.
type Category struct {
	ID          uint   `gorm:"primaryKey"`
	Name        string `gorm:"uniqueIndex;not null"`
	Description string
	IsActive    bool `gorm:"not null;default:true"`
}

func (c *Category) TableName() string {
	return "categories"
}
