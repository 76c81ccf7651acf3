package cart

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quickbite/storefront/auth"
	"github.com/quickbite/storefront/models"
	"github.com/quickbite/storefront/session"
)

// CartEngine is the authenticated-cart surface the handler depends on.
type CartEngine interface {
	AddToCart(email string, productID uint, quantity int, variantID *uint, note string) (int, error)
	RemoveLine(lineID, ownerID uint) error
	UpdateQuantity(lineID uint, quantity int, ownerID uint) (models.CartTotals, error)
	GetCartByUser(userID uint) (*models.Cart, error)
	DistinctCount(userID uint) (int, error)
}

// AnonCart is the anonymous-cart surface, scoped to one visitor session.
type AnonCart interface {
	AddItem(ctx context.Context, productID uint, variantID *uint, quantity int) (int, error)
	RemoveItem(ctx context.Context, productID, variantID uint) error
	UpdateQuantity(ctx context.Context, lineID string, quantity int) (decimal.Decimal, error)
	Items(ctx context.Context) ([]session.Item, error)
	DistinctCount(ctx context.Context) (int, error)
}

type CartHandler struct {
	engine CartEngine
	store  session.Store
	anon   func(sess *session.Session) AnonCart
}

func NewCartHandler(engine CartEngine, store session.Store, anon func(*session.Session) AnonCart) *CartHandler {
	return &CartHandler{
		engine: engine,
		store:  store,
		anon:   anon,
	}
}

func (h *CartHandler) anonCart(w http.ResponseWriter, r *http.Request) AnonCart {
	return h.anon(session.New(h.store, auth.SessionID(w, r)))
}

// HandleAdd adds a product to whichever cart applies and returns the
// distinct item count for the badge.
func (h *CartHandler) HandleAdd(w http.ResponseWriter, r *http.Request) {
	var input struct {
		ProductID uint   `json:"productId"`
		VariantID *uint  `json:"variantId"`
		Quantity  int    `json:"quantity"`
		Note      string `json:"note"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if input.ProductID == 0 {
		writeError(w, http.StatusBadRequest, "Missing productId")
		return
	}
	if input.Quantity == 0 {
		input.Quantity = 1
	}

	var (
		distinct int
		err      error
	)
	if _, ok := auth.UserID(r); ok {
		distinct, err = h.engine.AddToCart(auth.Email(r), input.ProductID, input.Quantity, input.VariantID, input.Note)
	} else {
		distinct, err = h.anonCart(w, r).AddItem(r.Context(), input.ProductID, input.VariantID, input.Quantity)
	}
	if err != nil {
		switch {
		case errors.Is(err, models.ErrProductNotFound), errors.Is(err, models.ErrNoSellableVariant):
			writeError(w, http.StatusNotFound, "no sellable variant")
		case errors.Is(err, models.ErrOutOfStock):
			writeError(w, http.StatusConflict, "out of stock")
		default:
			writeError(w, http.StatusInternalServerError, "failed to add to cart")
		}
		return
	}

	writeJSON(w, http.StatusOK, map[string]int{"distinct": distinct})
}

// HandleCount returns the badge count for the current shopper.
func (h *CartHandler) HandleCount(w http.ResponseWriter, r *http.Request) {
	var (
		count int
		err   error
	)
	if userID, ok := auth.UserID(r); ok {
		count, err = h.engine.DistinctCount(userID)
	} else {
		count, err = h.anonCart(w, r).DistinctCount(r.Context())
	}
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to count cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]int{"count": count})
}

// HandleGet returns the cart contents and running total.
func (h *CartHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	type lineResponse struct {
		ID        string  `json:"id"`
		ProductID uint    `json:"productId"`
		VariantID uint    `json:"variantId"`
		Quantity  int     `json:"quantity"`
		Price     float64 `json:"price"`
	}
	var (
		lines []lineResponse
		total decimal.Decimal
	)

	if userID, ok := auth.UserID(r); ok {
		cart, err := h.engine.GetCartByUser(userID)
		if err != nil && !errors.Is(err, models.ErrCartNotFound) {
			writeError(w, http.StatusInternalServerError, "failed to load cart")
			return
		}
		if cart != nil {
			lines = make([]lineResponse, len(cart.Details))
			for i, d := range cart.Details {
				lines[i] = lineResponse{
					ID:        strconv.FormatUint(uint64(d.ID), 10),
					ProductID: d.ProductID,
					VariantID: d.VariantID,
					Quantity:  d.Quantity,
					Price:     d.Price.InexactFloat64(),
				}
			}
			total = models.CartTotal(cart.Lines())
		}
	} else {
		items, err := h.anonCart(w, r).Items(r.Context())
		if err != nil {
			writeError(w, http.StatusInternalServerError, "failed to load cart")
			return
		}
		lines = make([]lineResponse, len(items))
		itemLines := make([]models.CartLine, len(items))
		for i, it := range items {
			lines[i] = lineResponse{
				ID:        it.ID,
				ProductID: it.ProductID,
				VariantID: it.VariantID,
				Quantity:  it.Quantity,
				Price:     it.Price.InexactFloat64(),
			}
			itemLines[i] = models.CartLine{ProductID: it.ProductID, VariantID: it.VariantID, Quantity: it.Quantity, Price: it.Price}
		}
		total = models.CartTotal(itemLines)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"lines": lines,
		"total": total.InexactFloat64(),
	})
}

// HandleUpdateQuantity sets a line's quantity and returns the new cart
// total. Line ids are numeric for persisted carts and opaque strings for
// session carts.
func (h *CartHandler) HandleUpdateQuantity(w http.ResponseWriter, r *http.Request) {
	lineID := r.PathValue("id")

	var input struct {
		Quantity int `json:"quantity"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if userID, ok := auth.UserID(r); ok {
		id, err := strconv.ParseUint(lineID, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid line id")
			return
		}
		totals, err := h.engine.UpdateQuantity(uint(id), input.Quantity, userID)
		if err != nil {
			respondLineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"success":  true,
			"newTotal": totals.Total.InexactFloat64(),
			"distinct": totals.Distinct,
		})
		return
	}

	newTotal, err := h.anonCart(w, r).UpdateQuantity(r.Context(), lineID, input.Quantity)
	if err != nil {
		if errors.Is(err, session.ErrItemNotFound) {
			writeError(w, http.StatusNotFound, "cart line not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"success":  true,
		"newTotal": newTotal.InexactFloat64(),
	})
}

// HandleRemove deletes a line. Authenticated callers send {"lineId": n};
// anonymous callers identify the line by product and variant.
func (h *CartHandler) HandleRemove(w http.ResponseWriter, r *http.Request) {
	var input struct {
		LineID    uint `json:"lineId"`
		ProductID uint `json:"productId"`
		VariantID uint `json:"variantId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if userID, ok := auth.UserID(r); ok {
		if input.LineID == 0 {
			writeError(w, http.StatusBadRequest, "Missing lineId")
			return
		}
		if err := h.engine.RemoveLine(input.LineID, userID); err != nil {
			respondLineError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]bool{"success": true})
		return
	}

	if input.ProductID == 0 || input.VariantID == 0 {
		writeError(w, http.StatusBadRequest, "Missing productId or variantId")
		return
	}
	if err := h.anonCart(w, r).RemoveItem(r.Context(), input.ProductID, input.VariantID); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to update cart")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func respondLineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, models.ErrCartLineNotFound):
		writeError(w, http.StatusNotFound, "cart line not found")
	case errors.Is(err, models.ErrNotCartOwner):
		writeError(w, http.StatusForbidden, "not your cart")
	default:
		writeError(w, http.StatusInternalServerError, "failed to update cart")
	}
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
