package catalog

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/quickbite/storefront/models"
)

type Response struct {
	Total    int       `json:"total"`
	Products []Product `json:"products"`
}

type Category struct {
	ID   uint   `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID        uint     `json:"id"`
	Name      string   `json:"name"`
	ShortDesc string   `json:"shortDesc"`
	Image     string   `json:"image"`
	Category  Category `json:"category"`
	// Price is the cheapest active variant's price, the one add-to-cart
	// defaults to.
	Price    float64 `json:"price"`
	Featured bool    `json:"featured"`
}

type Variant struct {
	ID     uint    `json:"id"`
	Name   string  `json:"name"`
	Price  float64 `json:"price"`
	Stock  int     `json:"stock"`
	Active bool    `json:"active"`
}

type ProductProvider interface {
	FetchActive(offset, limit int, categoryID *uint) ([]models.Product, int64, error)
	GetProduct(id uint) (*models.Product, error)
	GetVariants(productID uint) ([]models.Variant, error)
	UpsertVariant(productID uint, name string, price decimal.Decimal) (*models.Variant, error)
}

type CatalogHandler struct {
	repo ProductProvider
}

func NewCatalogHandler(r ProductProvider) *CatalogHandler {
	return &CatalogHandler{
		repo: r,
	}
}

func (h *CatalogHandler) HandleGet(w http.ResponseWriter, r *http.Request) {
	// Parse pagination query params
	offset := 0
	limit := 10

	if oStr := r.URL.Query().Get("offset"); oStr != "" {
		if o, err := strconv.Atoi(oStr); err == nil && o >= 0 {
			offset = o
		}
	}

	if lStr := r.URL.Query().Get("limit"); lStr != "" {
		if l, err := strconv.Atoi(lStr); err == nil {
			if l < 1 {
				limit = 1
			} else if l > 100 {
				limit = 100
			} else {
				limit = l
			}
		}
	}

	var categoryID *uint
	if cStr := r.URL.Query().Get("category"); cStr != "" {
		if c, err := strconv.ParseUint(cStr, 10, 64); err == nil {
			id := uint(c)
			categoryID = &id
		}
	}

	res, total, err := h.repo.FetchActive(offset, limit, categoryID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get products")
		return
	}

	products := make([]Product, len(res))
	for i, p := range res {
		products[i] = Product{
			ID:        p.ID,
			Name:      p.Name,
			ShortDesc: p.ShortDesc,
			Image:     p.Image,
			Price:     defaultPrice(p.Variants),
			Featured:  p.IsFeatured,
			Category: Category{
				ID:   p.Category.ID,
				Name: p.Category.Name,
			},
		}
	}

	writeJSON(w, http.StatusOK, Response{
		Total:    int(total),
		Products: products,
	})
}

func (h *CatalogHandler) HandleGetProduct(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	product, err := h.repo.GetProduct(uint(id))
	if err != nil {
		writeError(w, http.StatusNotFound, "Product not found")
		return
	}

	variants, err := h.repo.GetVariants(product.ID)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get variants")
		return
	}

	response := struct {
		ID         uint      `json:"id"`
		Name       string    `json:"name"`
		ShortDesc  string    `json:"shortDesc"`
		DetailDesc string    `json:"detailDesc"`
		Image      string    `json:"image"`
		Category   Category  `json:"category"`
		Variants   []Variant `json:"variants"`
	}{
		ID:         product.ID,
		Name:       product.Name,
		ShortDesc:  product.ShortDesc,
		DetailDesc: product.DetailDesc,
		Image:      product.Image,
		Category: Category{
			ID:   product.Category.ID,
			Name: product.Category.Name,
		},
		Variants: mapVariants(variants),
	}

	writeJSON(w, http.StatusOK, response)
}

// HandleGetVariants lists a product's active variants for the storefront's
// variant picker.
func (h *CatalogHandler) HandleGetVariants(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	if _, err := h.repo.GetProduct(uint(id)); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	variants, err := h.repo.GetVariants(uint(id))
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to get variants")
		return
	}

	active := make([]Variant, 0, len(variants))
	for _, v := range variants {
		if v.IsActive {
			active = append(active, Variant{
				ID:     v.ID,
				Name:   v.Name,
				Price:  v.Price.InexactFloat64(),
				Stock:  v.Stock,
				Active: v.IsActive,
			})
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{"variants": active})
}

// HandleUpsertVariant adds a variant to a product (back-office flow). Posting
// a name the product already has updates that variant's price and
// re-activates it instead of duplicating.
func (h *CatalogHandler) HandleUpsertVariant(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(r.PathValue("id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid product id")
		return
	}

	var input struct {
		Name  string          `json:"name"`
		Price decimal.Decimal `json:"price"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid JSON body")
		return
	}
	if input.Name == "" {
		writeError(w, http.StatusBadRequest, "Missing name")
		return
	}
	if input.Price.IsNegative() {
		writeError(w, http.StatusBadRequest, "Price must not be negative")
		return
	}

	if _, err := h.repo.GetProduct(uint(id)); err != nil {
		if errors.Is(err, models.ErrProductNotFound) {
			writeError(w, http.StatusNotFound, "Product not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "failed to get product")
		return
	}

	variant, err := h.repo.UpsertVariant(uint(id), input.Name, input.Price)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to save variant")
		return
	}
	writeJSON(w, http.StatusOK, Variant{
		ID:     variant.ID,
		Name:   variant.Name,
		Price:  variant.Price.InexactFloat64(),
		Stock:  variant.Stock,
		Active: variant.IsActive,
	})
}

func mapVariants(variants []models.Variant) []Variant {
	out := make([]Variant, len(variants))
	for i, v := range variants {
		out[i] = Variant{
			ID:     v.ID,
			Name:   v.Name,
			Price:  v.Price.InexactFloat64(),
			Stock:  v.Stock,
			Active: v.IsActive,
		}
	}
	return out
}

func defaultPrice(variants []models.Variant) float64 {
	price := 0.0
	for _, v := range variants {
		if !v.IsActive {
			continue
		}
		p := v.Price.InexactFloat64()
		if price == 0 || p < price {
			price = p
		}
	}
	return price
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
