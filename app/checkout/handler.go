package checkout

import (
	"context"
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"net/url"

	"github.com/quickbite/storefront/auth"
	"github.com/quickbite/storefront/models"
	"github.com/quickbite/storefront/session"
	"github.com/quickbite/storefront/vnpay"
)

const paymentMethodGateway = "VNPAY"

// Orchestrator is the checkout service surface the handler depends on.
type Orchestrator interface {
	PlaceOrder(ctx context.Context, src CartSource, rcv Receiver) (uint, error)
	StartGatewayPayment(ctx context.Context, sess *session.Session, src CartSource, rcv Receiver, returnURL, clientIP string) (string, error)
	HandleGatewayCallback(ctx context.Context, sess *session.Session, src CartSource, query url.Values) (CallbackOutcome, error)
}

// UserDirectory resolves account profiles, used to pre-fill receiver fields
// the shopper left blank.
type UserDirectory interface {
	GetByID(id uint) (*models.User, error)
}

type Handler struct {
	svc   Orchestrator
	store session.Store
	users UserDirectory

	// source builders, split by auth state
	userSource func(userID uint) CartSource
	anonSource func(sess *session.Session) CartSource
}

func NewHandler(svc Orchestrator, store session.Store, users UserDirectory, userSource func(uint) CartSource, anonSource func(*session.Session) CartSource) *Handler {
	return &Handler{
		svc:        svc,
		store:      store,
		users:      users,
		userSource: userSource,
		anonSource: anonSource,
	}
}

func (h *Handler) resolve(w http.ResponseWriter, r *http.Request) (CartSource, *session.Session) {
	sess := session.New(h.store, auth.SessionID(w, r))
	if userID, ok := auth.UserID(r); ok {
		return h.userSource(userID), sess
	}
	return h.anonSource(sess), sess
}

// HandleGetCheckout returns the current cart lines and total for the
// checkout page.
func (h *Handler) HandleGetCheckout(w http.ResponseWriter, r *http.Request) {
	src, _ := h.resolve(w, r)

	lines, err := src.Lines(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to load cart")
		return
	}

	type lineResponse struct {
		ProductID uint    `json:"productId"`
		VariantID uint    `json:"variantId"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	}
	resp := struct {
		Lines []lineResponse `json:"lines"`
		Total float64        `json:"total"`
	}{
		Lines: make([]lineResponse, len(lines)),
		Total: models.CartTotal(lines).InexactFloat64(),
	}
	for i, l := range lines {
		resp.Lines[i] = lineResponse{
			ProductID: l.ProductID,
			VariantID: l.VariantID,
			Quantity:  l.Quantity,
			Price:     l.Price.InexactFloat64(),
		}
	}
	writeJSON(w, http.StatusOK, resp)
}

// HandlePlaceOrder runs the checkout: COD places the order immediately,
// VNPAY stages the checkout and answers with the gateway redirect URL.
func (h *Handler) HandlePlaceOrder(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ReceiverName    string `json:"receiverName"`
		ReceiverAddress string `json:"receiverAddress"`
		ReceiverPhone   string `json:"receiverPhone"`
		PaymentMethod   string `json:"paymentMethod"`
		Note            string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	src, sess := h.resolve(w, r)
	rcv := Receiver{
		Name:    input.ReceiverName,
		Address: input.ReceiverAddress,
		Phone:   input.ReceiverPhone,
		Note:    input.Note,
	}
	h.fillFromProfile(r, &rcv)

	if input.PaymentMethod == paymentMethodGateway {
		payURL, err := h.svc.StartGatewayPayment(r.Context(), sess, src, rcv, returnURL(r), clientIP(r))
		if err != nil {
			respondCheckoutError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]string{"paymentUrl": payURL})
		return
	}

	orderID, err := h.svc.PlaceOrder(r.Context(), src, rcv)
	if err != nil {
		respondCheckoutError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, map[string]any{"orderId": orderID})
}

// HandlePaymentReturn completes a staged checkout when the gateway redirects
// the shopper back.
func (h *Handler) HandlePaymentReturn(w http.ResponseWriter, r *http.Request) {
	src, sess := h.resolve(w, r)

	outcome, err := h.svc.HandleGatewayCallback(r.Context(), sess, src, r.URL.Query())
	if err != nil {
		switch {
		case errors.Is(err, vnpay.ErrInvalidSignature), errors.Is(err, vnpay.ErrMissingParams):
			writeError(w, http.StatusBadRequest, "invalid payment response")
		case errors.Is(err, ErrNoCheckoutPending):
			writeError(w, http.StatusConflict, "no checkout pending")
		default:
			writeError(w, http.StatusInternalServerError, "could not finalize payment")
		}
		return
	}

	if !outcome.Success {
		writeJSON(w, http.StatusOK, map[string]any{
			"success":      false,
			"responseCode": outcome.ResponseCode,
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"orderId": outcome.OrderID,
	})
}

// fillFromProfile defaults blank receiver fields from the authenticated
// user's account profile. Anything the shopper typed wins.
func (h *Handler) fillFromProfile(r *http.Request, rcv *Receiver) {
	if rcv.Name != "" && rcv.Address != "" && rcv.Phone != "" {
		return
	}
	userID, ok := auth.UserID(r)
	if !ok {
		return
	}
	user, err := h.users.GetByID(userID)
	if err != nil {
		return
	}
	if rcv.Name == "" {
		rcv.Name = user.FullName
	}
	if rcv.Address == "" {
		rcv.Address = user.Address
	}
	if rcv.Phone == "" {
		rcv.Phone = user.Phone
	}
}

func respondCheckoutError(w http.ResponseWriter, err error) {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr):
		writeError(w, http.StatusBadRequest, verr.Message)
	case errors.Is(err, models.ErrEmptyCart):
		writeError(w, http.StatusBadRequest, "cart is empty")
	case errors.Is(err, models.ErrInsufficientStock):
		writeError(w, http.StatusConflict, "insufficient stock")
	default:
		writeError(w, http.StatusInternalServerError, "could not place order, try again")
	}
}

func returnURL(r *http.Request) string {
	scheme := "https"
	if r.TLS == nil {
		scheme = "http"
	}
	return scheme + "://" + r.Host + "/payment-return"
}

func clientIP(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
