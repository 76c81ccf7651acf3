package models

import (
	"errors"

	"gorm.io/gorm"
)

// ErrOrderNotFound is returned when an order is not found.
var ErrOrderNotFound = errors.New("order not found")

// ErrEmptyCart is returned when order placement finds no cart lines.
var ErrEmptyCart = errors.New("cart is empty")

// ErrInsufficientStock is returned when a line's variant no longer has
// enough stock at placement time. The whole placement rolls back.
var ErrInsufficientStock = errors.New("insufficient stock")

// ErrInvalidOrderStatus is returned for an unknown order status value.
var ErrInvalidOrderStatus = errors.New("invalid order status")

type OrdersRepository struct {
	db *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		db: db,
	}
}

// PlaceOrderInput carries everything needed to convert cart lines into an
// order. Prices inside Lines are the cart-time snapshots and are copied to
// the order verbatim.
type PlaceOrderInput struct {
	UserID          *uint
	Lines           []CartLine
	ReceiverName    string
	ReceiverAddress string
	ReceiverPhone   string
	Note            string

	// CheckoutRef, when set, makes placement idempotent: an order already
	// carrying the same reference is returned instead of creating a new one.
	CheckoutRef string

	// PaymentStatus the order is created with. Gateway placements pass PAID
	// so payment capture commits atomically with the order; empty means
	// UNPAID.
	PaymentStatus string

	// ClearCart runs inside the placement transaction so the source cart
	// disappears in the same commit that creates the order. May be nil for
	// carts that live outside the database.
	ClearCart func(tx *gorm.DB) error
}

// Place atomically converts cart lines into an Order plus OrderDetails,
// decrementing variant stock with a sufficiency re-check. Either everything
// commits (order header, all lines, stock, cart cleanup) or nothing does.
func (r *OrdersRepository) Place(in PlaceOrderInput) (uint, error) {
	if len(in.Lines) == 0 {
		return 0, ErrEmptyCart
	}

	paymentStatus := in.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = PaymentStatusUnpaid
	}

	var orderID uint
	err := r.db.Transaction(func(tx *gorm.DB) error {
		if in.CheckoutRef != "" {
			var existing Order
			err := tx.Where("checkout_ref = ?", in.CheckoutRef).First(&existing).Error
			if err == nil {
				orderID = existing.ID
				return nil
			}
			if !errors.Is(err, gorm.ErrRecordNotFound) {
				return err
			}
		}

		order := Order{
			UserID:          in.UserID,
			TotalPrice:      CartTotal(in.Lines),
			ReceiverName:    in.ReceiverName,
			ReceiverAddress: in.ReceiverAddress,
			ReceiverPhone:   in.ReceiverPhone,
			Note:            in.Note,
			Status:          OrderStatusPending,
			PaymentStatus:   paymentStatus,
		}
		if in.CheckoutRef != "" {
			ref := in.CheckoutRef
			order.CheckoutRef = &ref
		}
		if err := tx.Create(&order).Error; err != nil {
			return err
		}

		for _, l := range in.Lines {
			res := tx.Model(&Variant{}).
				Where("id = ? AND stock >= ?", l.VariantID, l.Quantity).
				Update("stock", gorm.Expr("stock - ?", l.Quantity))
			if res.Error != nil {
				return res.Error
			}
			if res.RowsAffected == 0 {
				return ErrInsufficientStock
			}

			detail := OrderDetail{
				OrderID:   order.ID,
				ProductID: l.ProductID,
				VariantID: l.VariantID,
				Quantity:  l.Quantity,
				Price:     l.Price,
			}
			if err := tx.Create(&detail).Error; err != nil {
				return err
			}
		}

		if in.ClearCart != nil {
			if err := in.ClearCart(tx); err != nil {
				return err
			}
		}

		orderID = order.ID
		return nil
	})
	if err != nil {
		return 0, err
	}
	return orderID, nil
}

// GetByID returns an order with its lines, products and variants loaded.
func (r *OrdersRepository) GetByID(id uint) (*Order, error) {
	var order Order
	err := r.db.
		Preload("Details.Product").
		Preload("Details.Variant").
		First(&order, id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrOrderNotFound
		}
		return nil, err
	}
	return &order, nil
}

// FetchByUser returns a user's orders, newest first.
func (r *OrdersRepository) FetchByUser(userID uint) ([]Order, error) {
	var orders []Order
	err := r.db.
		Preload("Details").
		Where("user_id = ?", userID).
		Order("id DESC").
		Find(&orders).Error
	if err != nil {
		return nil, err
	}
	return orders, nil
}

// FetchAll returns a page of orders for the back office plus the total count.
func (r *OrdersRepository) FetchAll(offset, limit int) ([]Order, int64, error) {
	var orders []Order
	var total int64

	if err := r.db.Model(&Order{}).Count(&total).Error; err != nil {
		return nil, 0, err
	}
	err := r.db.
		Preload("User").
		Order("id").
		Offset(offset).Limit(limit).
		Find(&orders).Error
	if err != nil {
		return nil, 0, err
	}
	return orders, total, nil
}

// UpdateStatus moves an order to a new lifecycle status (back-office flow).
func (r *OrdersRepository) UpdateStatus(id uint, status string) error {
	switch status {
	case OrderStatusPending, OrderStatusConfirmed, OrderStatusDelivered, OrderStatusCancelled:
	default:
		return ErrInvalidOrderStatus
	}
	res := r.db.Model(&Order{}).Where("id = ?", id).Update("status", status)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}

// MarkPaid flips an order's payment status to PAID. Back-office flow for
// cash-on-delivery orders; gateway orders are created PAID.
func (r *OrdersRepository) MarkPaid(id uint) error {
	res := r.db.Model(&Order{}).
		Where("id = ?", id).
		Update("payment_status", PaymentStatusPaid)
	if res.Error != nil {
		return res.Error
	}
	if res.RowsAffected == 0 {
		return ErrOrderNotFound
	}
	return nil
}
