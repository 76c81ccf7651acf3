package models

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// newTestDB opens an in-memory database with the full schema migrated. The
// pool is pinned to a single connection so every session sees the same
// in-memory database.
func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(
		&Category{},
		&Product{},
		&Variant{},
		&User{},
		&Cart{},
		&CartDetail{},
		&Order{},
		&OrderDetail{},
	))
	return db
}

// seedCatalog creates one category, one product and two active variants
// (ids returned in price order, cheapest first).
func seedCatalog(t *testing.T, db *gorm.DB, stock int) (productID uint, cheapID uint, dearID uint) {
	t.Helper()

	category := Category{Name: "Noodles", IsActive: true}
	require.NoError(t, db.Create(&category).Error)

	product := Product{Name: "Pho Bo", CategoryID: category.ID, IsActive: true}
	require.NoError(t, db.Create(&product).Error)

	cheap := Variant{
		ProductID: product.ID,
		Name:      "Regular",
		Price:     decimal.NewFromInt(50000),
		Stock:     stock,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&cheap).Error)

	dear := Variant{
		ProductID: product.ID,
		Name:      "Large",
		Price:     decimal.NewFromInt(65000),
		Stock:     stock,
		IsActive:  true,
	}
	require.NoError(t, db.Create(&dear).Error)

	return product.ID, cheap.ID, dear.ID
}

func seedUser(t *testing.T, db *gorm.DB, email string) *User {
	t.Helper()

	user := User{Email: email, FullName: "Nguyen Van A", IsActive: true}
	require.NoError(t, db.Create(&user).Error)
	return &user
}

func variantStock(t *testing.T, db *gorm.DB, id uint) int {
	t.Helper()

	var variant Variant
	require.NoError(t, db.First(&variant, id).Error)
	return variant.Stock
}

func countRows(t *testing.T, db *gorm.DB, model any) int64 {
	t.Helper()

	var n int64
	require.NoError(t, db.Model(model).Count(&n).Error)
	return n
}
