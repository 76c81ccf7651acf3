package checkout

import (
	"context"
	"errors"

	"gorm.io/gorm"

	"github.com/quickbite/storefront/models"
	"github.com/quickbite/storefront/session"
)

// userCartSource reads an authenticated user's persisted cart. Clearing
// happens through the placement transaction so the cart rows vanish in the
// same commit as the new order.
type userCartSource struct {
	carts  *models.CartsRepository
	userID uint
}

func NewUserCartSource(carts *models.CartsRepository, userID uint) CartSource {
	return &userCartSource{carts: carts, userID: userID}
}

func (s *userCartSource) Lines(context.Context) ([]models.CartLine, error) {
	cart, err := s.carts.GetCartByUser(s.userID)
	if errors.Is(err, models.ErrCartNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return cart.Lines(), nil
}

func (s *userCartSource) Clear(_ context.Context, tx *gorm.DB) error {
	return s.carts.ClearTx(tx, s.userID)
}

func (s *userCartSource) UserID() *uint {
	id := s.userID
	return &id
}

// anonCartSource reads the visitor's session cart. The session store lives
// outside the database transaction, so the clear happens at the end of a
// successful placement rather than inside the commit.
type anonCartSource struct {
	cart *session.Cart
}

func NewAnonCartSource(cart *session.Cart) CartSource {
	return &anonCartSource{cart: cart}
}

func (s *anonCartSource) Lines(ctx context.Context) ([]models.CartLine, error) {
	return s.cart.Lines(ctx)
}

func (s *anonCartSource) Clear(ctx context.Context, _ *gorm.DB) error {
	return s.cart.Clear(ctx)
}

func (s *anonCartSource) UserID() *uint {
	return nil
}
