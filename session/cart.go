package session

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/quickbite/storefront/models"
)

// Session keys for the anonymous cart. distinct and sum are derived badge
// counters rewritten on every mutation; the item list is the source of truth.
const (
	cartKey     = "cart"
	distinctKey = "cart_distinct"
	sumKey      = "cart_sum"
)

// ErrItemNotFound is returned when an anonymous cart line is not found.
var ErrItemNotFound = errors.New("cart item not found")

// Item is one line of an anonymous cart, serialized as JSON into the
// visitor's session. ID is an opaque identifier generated when the line is
// created; it carries no product/variant information.
type Item struct {
	ID        string          `json:"id"`
	ProductID uint            `json:"productId"`
	VariantID uint            `json:"variantId"`
	Price     decimal.Decimal `json:"price"`
	Quantity  int             `json:"quantity"`
}

// VariantResolver picks the variant an add-to-cart call should use.
// Implemented by models.CatalogRepository.
type VariantResolver interface {
	ResolveVariant(productID uint, variantID *uint) (*models.Variant, error)
}

// Cart is the anonymous shopper's cart, held entirely in session state.
type Cart struct {
	sess    *Session
	catalog VariantResolver
}

func NewCart(sess *Session, catalog VariantResolver) *Cart {
	return &Cart{sess: sess, catalog: catalog}
}

// AddItem adds quantity units of a product, merging into an existing line
// for the same (product, variant) with the usual cap. Returns the distinct
// item count for the badge.
func (c *Cart) AddItem(ctx context.Context, productID uint, variantID *uint, quantity int) (int, error) {
	quantity = models.ClampQuantity(quantity)

	variant, err := c.catalog.ResolveVariant(productID, variantID)
	if err != nil {
		return 0, err
	}
	if variant.Stock <= 0 {
		return 0, models.ErrOutOfStock
	}

	items, err := c.Items(ctx)
	if err != nil {
		return 0, err
	}

	merged := false
	for i := range items {
		if items[i].ProductID == productID && items[i].VariantID == variant.ID {
			items[i].Quantity = models.ClampQuantity(items[i].Quantity + quantity)
			merged = true
			break
		}
	}
	if !merged {
		items = append(items, Item{
			ID:        uuid.NewString(),
			ProductID: productID,
			VariantID: variant.ID,
			Price:     variant.Price,
			Quantity:  quantity,
		})
	}

	if err := c.save(ctx, items); err != nil {
		return 0, err
	}
	return len(items), nil
}

// RemoveItem removes the line matching both ids. Removing an absent line is
// a no-op.
func (c *Cart) RemoveItem(ctx context.Context, productID, variantID uint) error {
	items, err := c.Items(ctx)
	if err != nil {
		return err
	}
	kept := items[:0]
	for _, it := range items {
		if it.ProductID == productID && it.VariantID == variantID {
			continue
		}
		kept = append(kept, it)
	}
	return c.save(ctx, kept)
}

// UpdateQuantity sets a line's quantity by its opaque id, clamped to
// [1, MaxLineQuantity], and returns the cart's new total.
func (c *Cart) UpdateQuantity(ctx context.Context, lineID string, quantity int) (decimal.Decimal, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return decimal.Zero, err
	}

	found := false
	for i := range items {
		if items[i].ID == lineID {
			items[i].Quantity = models.ClampQuantity(quantity)
			found = true
			break
		}
	}
	if !found {
		return decimal.Zero, ErrItemNotFound
	}

	if err := c.save(ctx, items); err != nil {
		return decimal.Zero, err
	}
	return models.CartTotal(toLines(items)), nil
}

// Items returns the raw line list. A missing or corrupt blob reads as empty.
func (c *Cart) Items(ctx context.Context) ([]Item, error) {
	blob, ok, err := c.sess.GetString(ctx, cartKey)
	if err != nil {
		return nil, err
	}
	if !ok || blob == "" {
		return nil, nil
	}
	var items []Item
	if err := json.Unmarshal([]byte(blob), &items); err != nil {
		return nil, nil
	}
	return items, nil
}

// Lines returns the cart as store-agnostic lines for checkout.
func (c *Cart) Lines(ctx context.Context) ([]models.CartLine, error) {
	items, err := c.Items(ctx)
	if err != nil {
		return nil, err
	}
	return toLines(items), nil
}

// Clear empties the cart. Called once an order is placed.
func (c *Cart) Clear(ctx context.Context) error {
	if err := c.sess.Remove(ctx, cartKey); err != nil {
		return err
	}
	if err := c.sess.SetInt(ctx, distinctKey, 0); err != nil {
		return err
	}
	return c.sess.SetInt(ctx, sumKey, 0)
}

// DistinctCount reads the badge counter without deserializing the list.
func (c *Cart) DistinctCount(ctx context.Context) (int, error) {
	n, _, err := c.sess.GetInt(ctx, distinctKey)
	return n, err
}

func (c *Cart) save(ctx context.Context, items []Item) error {
	blob, err := json.Marshal(items)
	if err != nil {
		return err
	}
	if err := c.sess.SetString(ctx, cartKey, string(blob)); err != nil {
		return err
	}
	lines := toLines(items)
	if err := c.sess.SetInt(ctx, distinctKey, len(items)); err != nil {
		return err
	}
	return c.sess.SetInt(ctx, sumKey, models.TotalQuantity(lines))
}

func toLines(items []Item) []models.CartLine {
	lines := make([]models.CartLine, len(items))
	for i, it := range items {
		lines[i] = models.CartLine{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			Quantity:  it.Quantity,
			Price:     it.Price,
		}
	}
	return lines
}
