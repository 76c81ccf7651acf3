package orders

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/quickbite/storefront/auth"
	"github.com/quickbite/storefront/models"
)

// OrderProvider is the orders surface the handler depends on.
type OrderProvider interface {
	GetByID(id uint) (*models.Order, error)
	FetchByUser(userID uint) ([]models.Order, error)
	FetchAll(offset, limit int) ([]models.Order, int64, error)
	UpdateStatus(id uint, status string) error
	MarkPaid(id uint) error
}

type OrderResponse struct {
	ID            uint                `json:"id"`
	Total         float64             `json:"total"`
	Status        string              `json:"status"`
	PaymentStatus string              `json:"paymentStatus"`
	ReceiverName  string              `json:"receiverName"`
	CreatedAt     string              `json:"createdAt"`
	Lines         []OrderLineResponse `json:"lines,omitempty"`
}

type OrderLineResponse struct {
	ProductID uint    `json:"productId"`
	VariantID uint    `json:"variantId"`
	Quantity  int     `json:"quantity"`
	Price     float64 `json:"price"`
}

type OrderHandler struct {
	repo OrderProvider
}

func NewOrderHandler(r OrderProvider) *OrderHandler {
	return &OrderHandler{repo: r}
}

// HandleHistory returns the authenticated user's orders, newest first.
func (h *OrderHandler) HandleHistory(w http.ResponseWriter, r *http.Request) {
	userID, ok := auth.UserID(r)
	if !ok {
		writeError(w, http.StatusUnauthorized, "login required")
		return
	}

	orders, err := h.repo.FetchByUser(userID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	response := make([]OrderResponse, len(orders))
	for i, o := range orders {
		response[i] = mapOrder(o, true)
	}
	writeJSON(w, http.StatusOK, response)
}

// HandleList returns a page of all orders for the back office.
func (h *OrderHandler) HandleList(w http.ResponseWriter, r *http.Request) {
	offset := 0
	limit := 20

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}
	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil && l >= 1 && l <= 100 {
			limit = l
		}
	}

	orders, total, err := h.repo.FetchAll(offset, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to fetch orders")
		return
	}

	response := make([]OrderResponse, len(orders))
	for i, o := range orders {
		response[i] = mapOrder(o, false)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"total":  total,
		"orders": response,
	})
}

// HandleGet returns one order with its lines.
func (h *OrderHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	order, err := h.repo.GetByID(uint(id))
	if err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to fetch order")
		return
	}
	writeJSON(w, http.StatusOK, mapOrder(*order, true))
}

// HandleUpdateStatus moves an order through its lifecycle (back-office flow).
func (h *OrderHandler) HandleUpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	var input struct {
		Status string `json:"status"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}

	if err := h.repo.UpdateStatus(uint(id), input.Status); err != nil {
		switch {
		case errors.Is(err, models.ErrInvalidOrderStatus):
			writeError(w, http.StatusBadRequest, "invalid status")
		case errors.Is(err, models.ErrOrderNotFound):
			writeError(w, http.StatusNotFound, "Order not found")
		default:
			writeError(w, http.StatusInternalServerError, "failed to update order")
		}
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

// HandleMarkPaid records payment received for an order, typically cash
// collected on a delivered COD order.
func (h *OrderHandler) HandleMarkPaid(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid order id")
		return
	}

	if err := h.repo.MarkPaid(uint(id)); err != nil {
		if errors.Is(err, models.ErrOrderNotFound) {
			writeError(w, http.StatusNotFound, "Order not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to update order")
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"success": true})
}

func mapOrder(o models.Order, withLines bool) OrderResponse {
	resp := OrderResponse{
		ID:            o.ID,
		Total:         o.TotalPrice.InexactFloat64(),
		Status:        o.Status,
		PaymentStatus: o.PaymentStatus,
		ReceiverName:  o.ReceiverName,
		CreatedAt:     o.CreatedAt.Format("2006-01-02 15:04:05"),
	}
	if withLines {
		resp.Lines = make([]OrderLineResponse, len(o.Details))
		for i, d := range o.Details {
			resp.Lines[i] = OrderLineResponse{
				ProductID: d.ProductID,
				VariantID: d.VariantID,
				Quantity:  d.Quantity,
				Price:     d.Price.InexactFloat64(),
			}
		}
	}
	return resp
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
