// Package checkout converts a cart, whichever store it lives in, into an
// immutable order. It owns the COD and gateway payment paths and the staged
// state kept between redirecting to the gateway and receiving its callback.
package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net/url"
	"regexp"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/quickbite/storefront/models"
	"github.com/quickbite/storefront/session"
	"github.com/quickbite/storefront/vnpay"
)

// ErrNoCheckoutPending is returned when a gateway callback arrives with no
// matching staged checkout: already consumed, expired, or for a different
// visitor. No order is created.
var ErrNoCheckoutPending = errors.New("no staged checkout to complete")

// CartSource is a cart the orchestrator can read and clear, regardless of
// whether it lives in the database or in the visitor's session.
type CartSource interface {
	Lines(ctx context.Context) ([]models.CartLine, error)
	// Clear empties the cart. tx is the order-placement transaction; sources
	// living in the database must delete their rows through it.
	Clear(ctx context.Context, tx *gorm.DB) error
	// UserID is the owning user, or nil for an anonymous cart.
	UserID() *uint
}

// OrderPlacer is the slice of the orders repository checkout needs.
type OrderPlacer interface {
	Place(in models.PlaceOrderInput) (uint, error)
}

// Gateway is the payment gateway boundary.
type Gateway interface {
	CreatePaymentURL(amount decimal.Decimal, txnRef, orderInfo, returnURL, clientIP string) string
	ParseCallback(query url.Values) (*vnpay.CallbackResult, error)
}

// Receiver is the delivery information collected at checkout.
type Receiver struct {
	Name    string
	Address string
	Phone   string
	Note    string
}

var phonePattern = regexp.MustCompile(`^[0-9]{10,11}$`)

// ValidationError reports a malformed receiver field before any
// transactional work begins.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Field + ": " + e.Message
}

func (r Receiver) validate() error {
	if r.Name == "" {
		return &ValidationError{Field: "receiverName", Message: "receiver name is required"}
	}
	if r.Address == "" {
		return &ValidationError{Field: "receiverAddress", Message: "receiver address is required"}
	}
	if !phonePattern.MatchString(r.Phone) {
		return &ValidationError{Field: "receiverPhone", Message: "phone must be 10-11 digits"}
	}
	return nil
}

const stagedKey = "staged_checkout"

// stagedCheckout is held in the session between redirecting to the gateway
// and its callback. Ref doubles as the idempotency key on the order row.
type stagedCheckout struct {
	Ref       string    `json:"ref"`
	Name      string    `json:"name"`
	Address   string    `json:"address"`
	Phone     string    `json:"phone"`
	Note      string    `json:"note"`
	Anonymous bool      `json:"anonymous"`
	ExpiresAt time.Time `json:"expiresAt"`
}

type Service struct {
	orders    OrderPlacer
	gateway   Gateway
	stagedTTL time.Duration
	log       *zap.Logger
	now       func() time.Time
}

func NewService(orders OrderPlacer, gateway Gateway, stagedTTL time.Duration, log *zap.Logger) *Service {
	if stagedTTL <= 0 {
		stagedTTL = 30 * time.Minute
	}
	return &Service{
		orders:    orders,
		gateway:   gateway,
		stagedTTL: stagedTTL,
		log:       log,
		now:       time.Now,
	}
}

// PlaceOrder converts the cart into an order immediately (the COD path).
// Returns the new order id; an empty cart yields models.ErrEmptyCart and no
// order.
func (s *Service) PlaceOrder(ctx context.Context, src CartSource, rcv Receiver) (uint, error) {
	return s.place(ctx, src, rcv, "", models.PaymentStatusUnpaid)
}

func (s *Service) place(ctx context.Context, src CartSource, rcv Receiver, checkoutRef, paymentStatus string) (uint, error) {
	if err := rcv.validate(); err != nil {
		return 0, err
	}

	lines, err := src.Lines(ctx)
	if err != nil {
		return 0, err
	}

	orderID, err := s.orders.Place(models.PlaceOrderInput{
		UserID:          src.UserID(),
		Lines:           lines,
		ReceiverName:    rcv.Name,
		ReceiverAddress: rcv.Address,
		ReceiverPhone:   rcv.Phone,
		Note:            rcv.Note,
		CheckoutRef:     checkoutRef,
		PaymentStatus:   paymentStatus,
		ClearCart: func(tx *gorm.DB) error {
			return src.Clear(ctx, tx)
		},
	})
	if err != nil {
		return 0, err
	}

	s.log.Info("order placed",
		zap.Uint("order_id", orderID),
		zap.Int("lines", len(lines)),
		zap.Bool("anonymous", src.UserID() == nil))
	return orderID, nil
}

// StartGatewayPayment stages the receiver info and a fresh checkout
// reference in the session, then returns the gateway redirect URL. The order
// itself is only created when the gateway calls back with success.
func (s *Service) StartGatewayPayment(ctx context.Context, sess *session.Session, src CartSource, rcv Receiver, returnURL, clientIP string) (string, error) {
	if err := rcv.validate(); err != nil {
		return "", err
	}

	lines, err := src.Lines(ctx)
	if err != nil {
		return "", err
	}
	if len(lines) == 0 {
		return "", models.ErrEmptyCart
	}
	total := models.CartTotal(lines)

	staged := stagedCheckout{
		Ref:       uuid.NewString(),
		Name:      rcv.Name,
		Address:   rcv.Address,
		Phone:     rcv.Phone,
		Note:      rcv.Note,
		Anonymous: src.UserID() == nil,
		ExpiresAt: s.now().Add(s.stagedTTL),
	}
	blob, err := json.Marshal(staged)
	if err != nil {
		return "", err
	}
	if err := sess.SetString(ctx, stagedKey, string(blob)); err != nil {
		return "", err
	}

	payURL := s.gateway.CreatePaymentURL(total, staged.Ref, "Order payment "+staged.Ref, returnURL, clientIP)

	s.log.Info("gateway payment staged",
		zap.String("checkout_ref", staged.Ref),
		zap.String("total", total.String()),
		zap.Bool("anonymous", staged.Anonymous))
	return payURL, nil
}

// CallbackOutcome is what the payment-return page needs to render.
type CallbackOutcome struct {
	Success      bool
	ResponseCode string
	OrderID      uint
}

// HandleGatewayCallback validates the gateway's return and completes the
// staged checkout on success. The order is created PAID in one transaction,
// carrying the staged reference under a unique constraint, so replaying the
// same callback cannot create a second order. Staged state is consumed only
// when the callback's reference matches it: a stale payment-return URL must
// not wipe a newer pending checkout.
func (s *Service) HandleGatewayCallback(ctx context.Context, sess *session.Session, src CartSource, query url.Values) (CallbackOutcome, error) {
	res, err := s.gateway.ParseCallback(query)
	if err != nil {
		return CallbackOutcome{}, err
	}

	if !res.Success {
		if staged, ok, _ := s.readStaged(ctx, sess); ok && staged.Ref == res.TxnRef {
			_ = sess.Remove(ctx, stagedKey)
		}
		s.log.Warn("gateway payment declined",
			zap.String("response_code", res.ResponseCode),
			zap.String("txn_ref", res.TxnRef))
		return CallbackOutcome{ResponseCode: res.ResponseCode}, nil
	}

	staged, ok, err := s.readStaged(ctx, sess)
	if err != nil {
		return CallbackOutcome{}, err
	}
	if !ok || staged.Ref != res.TxnRef {
		return CallbackOutcome{}, ErrNoCheckoutPending
	}
	if staged.Anonymous != (src.UserID() == nil) {
		return CallbackOutcome{}, ErrNoCheckoutPending
	}

	rcv := Receiver{Name: staged.Name, Address: staged.Address, Phone: staged.Phone, Note: staged.Note}
	orderID, err := s.place(ctx, src, rcv, staged.Ref, models.PaymentStatusPaid)

	// Consumed regardless of the placement outcome so the callback cannot
	// be replayed into a second placement attempt.
	_ = sess.Remove(ctx, stagedKey)

	if err != nil {
		return CallbackOutcome{}, err
	}

	s.log.Info("gateway payment captured",
		zap.Uint("order_id", orderID),
		zap.String("transaction_id", res.TransactionID))
	return CallbackOutcome{Success: true, ResponseCode: res.ResponseCode, OrderID: orderID}, nil
}

func (s *Service) readStaged(ctx context.Context, sess *session.Session) (stagedCheckout, bool, error) {
	blob, ok, err := sess.GetString(ctx, stagedKey)
	if err != nil || !ok {
		return stagedCheckout{}, false, err
	}
	var staged stagedCheckout
	if err := json.Unmarshal([]byte(blob), &staged); err != nil {
		return stagedCheckout{}, false, nil
	}
	if s.now().After(staged.ExpiresAt) {
		return stagedCheckout{}, false, nil
	}
	return staged, true, nil
}
