package models

import (
	"errors"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ErrProductNotFound is returned when a product is not found.
var ErrProductNotFound = errors.New("product not found")

// ErrNoSellableVariant is returned when a product has no active variant to
// sell, or the explicitly requested variant does not exist for the product.
var ErrNoSellableVariant = errors.New("no sellable variant")

type CatalogRepository struct {
	db *gorm.DB
}

func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{
		db: db,
	}
}

// GetProduct returns a product with its category eagerly loaded.
func (r *CatalogRepository) GetProduct(id uint) (*Product, error) {
	var product Product
	if err := r.db.
		Preload("Category").
		First(&product, id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrProductNotFound
		}
		return nil, err
	}
	return &product, nil
}

// FetchActive returns a page of active products, optionally restricted to a
// category, newest first, plus the total matching count.
func (r *CatalogRepository) FetchActive(offset, limit int, categoryID *uint) ([]Product, int64, error) {
	var products []Product
	var total int64

	query := r.db.Model(&Product{}).
		Where("products.is_active = ?", true).
		Preload("Category").
		Preload("Variants", "is_active = ?", true)

	if categoryID != nil {
		query = query.Where("products.category_id = ?", *categoryID)
	}

	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if err := query.Order("products.id DESC").Offset(offset).Limit(limit).Find(&products).Error; err != nil {
		return nil, 0, err
	}

	return products, total, nil
}

// GetVariants returns all variants of a product ordered by name, active or not.
func (r *CatalogRepository) GetVariants(productID uint) ([]Variant, error) {
	var variants []Variant
	if err := r.db.
		Where("product_id = ?", productID).
		Order("name").
		Find(&variants).Error; err != nil {
		return nil, err
	}
	return variants, nil
}

// ResolveVariant picks the variant a cart line should use: the explicitly
// requested one when given, otherwise the cheapest active variant of the
// product.
func (r *CatalogRepository) ResolveVariant(productID uint, variantID *uint) (*Variant, error) {
	return resolveVariant(r.db, productID, variantID)
}

func resolveVariant(db *gorm.DB, productID uint, variantID *uint) (*Variant, error) {
	var variant Variant

	if variantID != nil {
		err := db.
			Where("id = ? AND product_id = ? AND is_active = ?", *variantID, productID, true).
			First(&variant).Error
		if err == nil {
			return &variant, nil
		}
		if !errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, err
		}
		// Requested variant is gone or inactive; fall through to the default.
	}

	err := db.
		Where("product_id = ? AND is_active = ?", productID, true).
		Order("price").
		First(&variant).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNoSellableVariant
		}
		return nil, err
	}
	return &variant, nil
}

// UpsertVariant adds a variant to a product. If the product already has a
// variant with the same name, its price is updated and it is re-activated
// instead of creating a duplicate.
func (r *CatalogRepository) UpsertVariant(productID uint, name string, price decimal.Decimal) (*Variant, error) {
	var variant Variant
	err := r.db.
		Where("product_id = ? AND name = ?", productID, name).
		First(&variant).Error
	switch {
	case err == nil:
		variant.Price = price
		variant.IsActive = true
		if err := r.db.Save(&variant).Error; err != nil {
			return nil, err
		}
		return &variant, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		variant = Variant{ProductID: productID, Name: name, Price: price, IsActive: true}
		if err := r.db.Create(&variant).Error; err != nil {
			return nil, err
		}
		return &variant, nil
	default:
		return nil, err
	}
}

// GetAllCategories returns every category ordered by name.
func (r *CatalogRepository) GetAllCategories() ([]Category, error) {
	var categories []Category
	if err := r.db.Order("name").Find(&categories).Error; err != nil {
		return nil, err
	}
	return categories, nil
}

func (r *CatalogRepository) CreateCategory(category *Category) error {
	return r.db.Create(category).Error
}
