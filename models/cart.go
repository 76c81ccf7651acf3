package models

import "github.com/shopspring/decimal"

// MaxLineQuantity caps how many units of one variant a single cart line may hold.
const MaxLineQuantity = 999

// Cart is an authenticated user's shopping cart. One cart per user, created
// lazily on the first add and deleted once it is converted into an order or
// its last line is removed. Sum caches the total quantity across lines for
// badge display; the lines remain the source of truth.
type Cart struct {
	ID      uint  `gorm:"primaryKey"`
	UserID  *uint `gorm:"uniqueIndex"`
	Sum     int   `gorm:"not null;default:0"`
	Details []CartDetail
}

func (c *Cart) TableName() string {
	return "carts"
}

// CartDetail is one line of a cart. At most one line exists per
// (cart, product, variant); Price is snapshotted from the variant at the
// time the line is created.
type CartDetail struct {
	ID        uint `gorm:"primaryKey"`
	CartID    uint `gorm:"not null;index"`
	ProductID uint `gorm:"not null"`
	Product   Product
	VariantID uint `gorm:"not null"`
	Variant   Variant
	Quantity  int             `gorm:"not null"`
	Price     decimal.Decimal `gorm:"column:unit_price;type:decimal(18,2);not null"`
	Note      string          `gorm:"size:255"`
}

func (d *CartDetail) TableName() string {
	return "cart_detail"
}

// CartLine is the store-agnostic view of a cart line shared by the
// database-backed and session-backed carts.
type CartLine struct {
	ProductID uint
	VariantID uint
	Quantity  int
	Price     decimal.Decimal
}

// CartTotals is what the UI needs after any cart mutation: the running total
// and both badge counters.
type CartTotals struct {
	Total    decimal.Decimal
	Distinct int
	Quantity int
}

// ClampQuantity forces a requested quantity into [1, MaxLineQuantity].
func ClampQuantity(q int) int {
	if q < 1 {
		return 1
	}
	if q > MaxLineQuantity {
		return MaxLineQuantity
	}
	return q
}

// CartTotal sums price x quantity over the given lines using the snapshotted
// line prices.
func CartTotal(lines []CartLine) decimal.Decimal {
	total := decimal.Zero
	for _, l := range lines {
		total = total.Add(l.Price.Mul(decimal.NewFromInt(int64(l.Quantity))))
	}
	return total
}

// DistinctProductCount counts unique products across the lines. Two variants
// of the same product count once; the storefront badge accepts that.
func DistinctProductCount(lines []CartLine) int {
	seen := make(map[uint]struct{}, len(lines))
	for _, l := range lines {
		seen[l.ProductID] = struct{}{}
	}
	return len(seen)
}

// TotalQuantity sums the quantities over the lines.
func TotalQuantity(lines []CartLine) int {
	var n int
	for _, l := range lines {
		n += l.Quantity
	}
	return n
}

// Lines converts the cart's detail rows to CartLine values.
func (c *Cart) Lines() []CartLine {
	lines := make([]CartLine, len(c.Details))
	for i, d := range c.Details {
		lines[i] = CartLine{
			ProductID: d.ProductID,
			VariantID: d.VariantID,
			Quantity:  d.Quantity,
			Price:     d.Price,
		}
	}
	return lines
}
