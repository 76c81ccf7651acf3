package models

import (
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// ErrCartNotFound is returned when a user has no cart.
var ErrCartNotFound = errors.New("cart not found")

// ErrCartLineNotFound is returned when a cart line is not found.
var ErrCartLineNotFound = errors.New("cart line not found")

// ErrNotCartOwner is returned when a cart-line mutation is attempted by a
// user who does not own the parent cart.
var ErrNotCartOwner = errors.New("cart line belongs to another user")

// ErrOutOfStock is returned when the requested variant has no stock left.
var ErrOutOfStock = errors.New("variant out of stock")

// CartsRepository owns all Cart/CartDetail persistence. Every mutation runs
// in a single transaction with the cart row locked, so concurrent calls for
// the same user serialize and the aggregate counter is always recomputed
// from committed line state.
type CartsRepository struct {
	db    *gorm.DB
	users *UsersRepository
}

func NewCartsRepository(db *gorm.DB, users *UsersRepository) *CartsRepository {
	return &CartsRepository{
		db:    db,
		users: users,
	}
}

// AddToCart adds quantity units of a product to the user's cart, creating
// the cart on first use. An explicit variantID wins; otherwise the cheapest
// active variant is used. A line already holding the same (product, variant)
// is incremented, capped at MaxLineQuantity; a non-empty note replaces the
// line's note. Returns the distinct product count for the badge.
//
// An unknown email is a soft no-op: the call may come from contexts that
// tolerate a not-logged-in state, so it reports zero instead of failing.
func (r *CartsRepository) AddToCart(email string, productID uint, quantity int, variantID *uint, note string) (int, error) {
	user, err := r.users.GetByEmail(email)
	if errors.Is(err, ErrUserNotFound) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}

	quantity = ClampQuantity(quantity)

	var distinct int
	err = r.db.Transaction(func(tx *gorm.DB) error {
		cart, err := lockOrCreateCart(tx, user.ID)
		if err != nil {
			return err
		}

		var product Product
		if err := tx.First(&product, productID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrProductNotFound
			}
			return err
		}

		variant, err := resolveVariant(tx, product.ID, variantID)
		if err != nil {
			return err
		}
		if variant.Stock <= 0 {
			return ErrOutOfStock
		}

		var line CartDetail
		err = tx.
			Where("cart_id = ? AND product_id = ? AND variant_id = ?", cart.ID, product.ID, variant.ID).
			First(&line).Error
		switch {
		case err == nil:
			line.Quantity = ClampQuantity(line.Quantity + quantity)
			updates := map[string]any{"quantity": line.Quantity}
			if note != "" {
				updates["note"] = note
			}
			if err := tx.Model(&line).Updates(updates).Error; err != nil {
				return err
			}
		case errors.Is(err, gorm.ErrRecordNotFound):
			line = CartDetail{
				CartID:    cart.ID,
				ProductID: product.ID,
				VariantID: variant.ID,
				Quantity:  quantity,
				Price:     variant.Price,
				Note:      note,
			}
			if err := tx.Create(&line).Error; err != nil {
				return err
			}
		default:
			return err
		}

		lines, err := cartLines(tx, cart.ID)
		if err != nil {
			return err
		}
		if err := tx.Model(cart).Update("sum", TotalQuantity(lines)).Error; err != nil {
			return err
		}
		distinct = DistinctProductCount(lines)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return distinct, nil
}

// RemoveLine deletes a cart line owned by the given user. The aggregate
// counter is recomputed from the remaining lines; a cart left empty is
// deleted outright.
func (r *CartsRepository) RemoveLine(lineID, ownerID uint) error {
	return r.db.Transaction(func(tx *gorm.DB) error {
		line, cart, err := lockLineWithCart(tx, lineID)
		if err != nil {
			return err
		}
		if cart.UserID == nil || *cart.UserID != ownerID {
			return ErrNotCartOwner
		}

		if err := tx.Delete(line).Error; err != nil {
			return err
		}

		lines, err := cartLines(tx, cart.ID)
		if err != nil {
			return err
		}
		if len(lines) == 0 {
			return tx.Delete(cart).Error
		}
		return tx.Model(cart).Update("sum", TotalQuantity(lines)).Error
	})
}

// UpdateQuantity sets a cart line's quantity, clamped to [1, MaxLineQuantity],
// and returns the cart's new total and badge counters.
func (r *CartsRepository) UpdateQuantity(lineID uint, quantity int, ownerID uint) (CartTotals, error) {
	quantity = ClampQuantity(quantity)

	var totals CartTotals
	err := r.db.Transaction(func(tx *gorm.DB) error {
		line, cart, err := lockLineWithCart(tx, lineID)
		if err != nil {
			return err
		}
		if cart.UserID == nil || *cart.UserID != ownerID {
			return ErrNotCartOwner
		}

		if err := tx.Model(line).Update("quantity", quantity).Error; err != nil {
			return err
		}

		lines, err := cartLines(tx, cart.ID)
		if err != nil {
			return err
		}
		totals = CartTotals{
			Total:    CartTotal(lines),
			Distinct: DistinctProductCount(lines),
			Quantity: TotalQuantity(lines),
		}
		return tx.Model(cart).Update("sum", totals.Quantity).Error
	})
	if err != nil {
		return CartTotals{}, err
	}
	return totals, nil
}

// GetCartByUser returns the user's cart with lines, products and variants
// eagerly loaded, or ErrCartNotFound.
func (r *CartsRepository) GetCartByUser(userID uint) (*Cart, error) {
	var cart Cart
	err := r.db.
		Preload("Details.Product").
		Preload("Details.Variant").
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrCartNotFound
		}
		return nil, err
	}
	return &cart, nil
}

// DistinctCount reports the badge count for a user, recomputed from stored
// lines. A missing cart counts as zero.
func (r *CartsRepository) DistinctCount(userID uint) (int, error) {
	var count int64
	err := r.db.Model(&CartDetail{}).
		Joins("JOIN carts ON carts.id = cart_detail.cart_id").
		Where("carts.user_id = ?", userID).
		Distinct("cart_detail.product_id").
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return int(count), nil
}

// ClearTx deletes the user's cart and all its lines inside the caller's
// transaction. Used by order placement so the cart disappears in the same
// commit that creates the order.
func (r *CartsRepository) ClearTx(tx *gorm.DB, userID uint) error {
	var cart Cart
	err := forUpdate(tx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if err := tx.Where("cart_id = ?", cart.ID).Delete(&CartDetail{}).Error; err != nil {
		return err
	}
	return tx.Delete(&cart).Error
}

// forUpdate locks the selected rows for the rest of the transaction. SQLite
// has no row locks and serializes writers on its own, so the clause is
// skipped there.
func forUpdate(tx *gorm.DB) *gorm.DB {
	if tx.Dialector.Name() == "sqlite" {
		return tx
	}
	return tx.Clauses(clause.Locking{Strength: "UPDATE"})
}

func lockOrCreateCart(tx *gorm.DB, userID uint) (*Cart, error) {
	var cart Cart
	err := forUpdate(tx).
		Where("user_id = ?", userID).
		First(&cart).Error
	if err == nil {
		return &cart, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}
	cart = Cart{UserID: &userID}
	if err := tx.Create(&cart).Error; err != nil {
		return nil, err
	}
	return &cart, nil
}

func lockLineWithCart(tx *gorm.DB, lineID uint) (*CartDetail, *Cart, error) {
	var line CartDetail
	if err := tx.First(&line, lineID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil, ErrCartLineNotFound
		}
		return nil, nil, err
	}
	var cart Cart
	if err := forUpdate(tx).First(&cart, line.CartID).Error; err != nil {
		return nil, nil, err
	}
	return &line, &cart, nil
}

func cartLines(tx *gorm.DB, cartID uint) ([]CartLine, error) {
	var details []CartDetail
	if err := tx.Where("cart_id = ?", cartID).Find(&details).Error; err != nil {
		return nil, err
	}
	lines := make([]CartLine, len(details))
	for i, d := range details {
		lines[i] = CartLine{
			ProductID: d.ProductID,
			VariantID: d.VariantID,
			Quantity:  d.Quantity,
			Price:     d.Price,
		}
	}
	return lines, nil
}
