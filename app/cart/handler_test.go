package cart

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/quickbite/storefront/models"
	"github.com/quickbite/storefront/session"
)

type MockEngine struct {
	AddDistinct int
	AddErr      error
	AddEmail    string
	AddProduct  uint
	AddQuantity int
	AddVariant  *uint
	AddNote     string

	RemoveErr    error
	RemovedLine  uint
	RemovedOwner uint

	Totals     models.CartTotals
	UpdateErr  error
	UpdatedQty int

	Cart    *models.Cart
	CartErr error

	Count    int
	CountErr error
}

func (m *MockEngine) AddToCart(email string, productID uint, quantity int, variantID *uint, note string) (int, error) {
	m.AddEmail = email
	m.AddProduct = productID
	m.AddQuantity = quantity
	m.AddVariant = variantID
	m.AddNote = note
	return m.AddDistinct, m.AddErr
}

func (m *MockEngine) RemoveLine(lineID, ownerID uint) error {
	m.RemovedLine = lineID
	m.RemovedOwner = ownerID
	return m.RemoveErr
}

func (m *MockEngine) UpdateQuantity(lineID uint, quantity int, ownerID uint) (models.CartTotals, error) {
	m.RemovedLine = lineID
	m.RemovedOwner = ownerID
	m.UpdatedQty = quantity
	return m.Totals, m.UpdateErr
}

func (m *MockEngine) GetCartByUser(_ uint) (*models.Cart, error) { return m.Cart, m.CartErr }

func (m *MockEngine) DistinctCount(_ uint) (int, error) { return m.Count, m.CountErr }

type MockAnonCart struct {
	AddDistinct int
	AddErr      error
	AddProduct  uint
	AddVariant  *uint
	AddQuantity int

	RemoveErr      error
	RemovedProduct uint
	RemovedVariant uint

	NewTotal  decimal.Decimal
	UpdateErr error
	UpdatedID string

	ItemList []session.Item
	ItemsErr error

	Count    int
	CountErr error
}

func (m *MockAnonCart) AddItem(_ context.Context, productID uint, variantID *uint, quantity int) (int, error) {
	m.AddProduct = productID
	m.AddVariant = variantID
	m.AddQuantity = quantity
	return m.AddDistinct, m.AddErr
}

func (m *MockAnonCart) RemoveItem(_ context.Context, productID, variantID uint) error {
	m.RemovedProduct = productID
	m.RemovedVariant = variantID
	return m.RemoveErr
}

func (m *MockAnonCart) UpdateQuantity(_ context.Context, lineID string, quantity int) (decimal.Decimal, error) {
	m.UpdatedID = lineID
	m.AddQuantity = quantity
	return m.NewTotal, m.UpdateErr
}

func (m *MockAnonCart) Items(_ context.Context) ([]session.Item, error) {
	return m.ItemList, m.ItemsErr
}

func (m *MockAnonCart) DistinctCount(_ context.Context) (int, error) { return m.Count, m.CountErr }

func newTestHandler(engine *MockEngine, anon *MockAnonCart) *CartHandler {
	return NewCartHandler(engine, session.NewMemoryStore(), func(*session.Session) AnonCart { return anon })
}

func authenticate(req *http.Request) {
	req.Header.Set("X-User-Id", "7")
	req.Header.Set("X-User-Email", "shopper@example.com")
}

func TestHandleAdd(t *testing.T) {
	testCases := []struct {
		name           string
		body           string
		authenticated  bool
		engine         *MockEngine
		anon           *MockAnonCart
		expectedStatus int
		expectedBody   string
	}{
		{
			name:           "Authenticated add",
			body:           `{"productId":10,"variantId":100,"quantity":2}`,
			authenticated:  true,
			engine:         &MockEngine{AddDistinct: 3},
			anon:           &MockAnonCart{},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"distinct":3}`,
		},
		{
			name:           "Anonymous add",
			body:           `{"productId":10,"quantity":1}`,
			engine:         &MockEngine{},
			anon:           &MockAnonCart{AddDistinct: 1},
			expectedStatus: http.StatusOK,
			expectedBody:   `{"distinct":1}`,
		},
		{
			name:           "Missing productId",
			body:           `{"quantity":1}`,
			engine:         &MockEngine{},
			anon:           &MockAnonCart{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Missing productId"}`,
		},
		{
			name:           "Malformed body",
			body:           `{"productId":`,
			engine:         &MockEngine{},
			anon:           &MockAnonCart{},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `{"error":"Invalid JSON body"}`,
		},
		{
			name:           "Unknown product",
			body:           `{"productId":999}`,
			authenticated:  true,
			engine:         &MockEngine{AddErr: models.ErrProductNotFound},
			anon:           &MockAnonCart{},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"no sellable variant"}`,
		},
		{
			name:           "No sellable variant",
			body:           `{"productId":10}`,
			engine:         &MockEngine{},
			anon:           &MockAnonCart{AddErr: models.ErrNoSellableVariant},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `{"error":"no sellable variant"}`,
		},
		{
			name:           "Out of stock",
			body:           `{"productId":10}`,
			authenticated:  true,
			engine:         &MockEngine{AddErr: models.ErrOutOfStock},
			anon:           &MockAnonCart{},
			expectedStatus: http.StatusConflict,
			expectedBody:   `{"error":"out of stock"}`,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			h := newTestHandler(tc.engine, tc.anon)

			req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(tc.body))
			if tc.authenticated {
				authenticate(req)
			}
			res := httptest.NewRecorder()

			h.HandleAdd(res, req)

			assert.Equal(t, tc.expectedStatus, res.Code)
			assert.JSONEq(t, tc.expectedBody, res.Body.String())
		})
	}
}

func TestHandleAddDefaultsQuantity(t *testing.T) {
	engine := &MockEngine{AddDistinct: 1}
	h := newTestHandler(engine, &MockAnonCart{})

	req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(`{"productId":10}`))
	authenticate(req)
	res := httptest.NewRecorder()

	h.HandleAdd(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "shopper@example.com", engine.AddEmail)
	assert.Equal(t, uint(10), engine.AddProduct)
	assert.Equal(t, 1, engine.AddQuantity)
	assert.Nil(t, engine.AddVariant)
	assert.Empty(t, engine.AddNote)
}

func TestHandleAddPassesNote(t *testing.T) {
	engine := &MockEngine{AddDistinct: 1}
	h := newTestHandler(engine, &MockAnonCart{})

	body := `{"productId":10,"variantId":100,"quantity":1,"note":"extra chili"}`
	req := httptest.NewRequest(http.MethodPost, "/api/cart/add", strings.NewReader(body))
	authenticate(req)
	res := httptest.NewRecorder()

	h.HandleAdd(res, req)

	assert.Equal(t, http.StatusOK, res.Code)
	assert.Equal(t, "extra chili", engine.AddNote)
}

func TestHandleCount(t *testing.T) {
	t.Run("Authenticated", func(t *testing.T) {
		h := newTestHandler(&MockEngine{Count: 4}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodGet, "/api/cart/count", nil)
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleCount(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"count":4}`, res.Body.String())
	})

	t.Run("Anonymous", func(t *testing.T) {
		h := newTestHandler(&MockEngine{}, &MockAnonCart{Count: 2})

		req := httptest.NewRequest(http.MethodGet, "/api/cart/count", nil)
		res := httptest.NewRecorder()

		h.HandleCount(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"count":2}`, res.Body.String())
	})
}

func TestHandleGet(t *testing.T) {
	t.Run("Authenticated cart with lines", func(t *testing.T) {
		engine := &MockEngine{Cart: &models.Cart{
			ID:  1,
			Sum: 100000,
			Details: []models.CartDetail{
				{ID: 5, ProductID: 10, VariantID: 100, Quantity: 2, Price: decimal.NewFromInt(50000)},
			},
		}}
		h := newTestHandler(engine, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleGet(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t,
			`{"lines":[{"id":"5","productId":10,"variantId":100,"quantity":2,"price":50000}],"total":100000}`,
			res.Body.String())
	})

	t.Run("Authenticated without a cart yet", func(t *testing.T) {
		h := newTestHandler(&MockEngine{CartErr: models.ErrCartNotFound}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleGet(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"lines":null,"total":0}`, res.Body.String())
	})

	t.Run("Anonymous cart", func(t *testing.T) {
		anon := &MockAnonCart{ItemList: []session.Item{
			{ID: "b3c1", ProductID: 20, VariantID: 200, Quantity: 1, Price: decimal.NewFromInt(30000)},
		}}
		h := newTestHandler(&MockEngine{}, anon)

		req := httptest.NewRequest(http.MethodGet, "/api/cart", nil)
		res := httptest.NewRecorder()

		h.HandleGet(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t,
			`{"lines":[{"id":"b3c1","productId":20,"variantId":200,"quantity":1,"price":30000}],"total":30000}`,
			res.Body.String())
	})
}

func TestHandleUpdateQuantity(t *testing.T) {
	t.Run("Authenticated", func(t *testing.T) {
		engine := &MockEngine{Totals: models.CartTotals{Total: decimal.NewFromInt(260000), Distinct: 2}}
		h := newTestHandler(engine, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/update-quantity/5", strings.NewReader(`{"quantity":3}`))
		req.SetPathValue("id", "5")
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleUpdateQuantity(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"success":true,"newTotal":260000,"distinct":2}`, res.Body.String())
		assert.Equal(t, uint(5), engine.RemovedLine)
		assert.Equal(t, uint(7), engine.RemovedOwner)
		assert.Equal(t, 3, engine.UpdatedQty)
	})

	t.Run("Authenticated with non-numeric id", func(t *testing.T) {
		h := newTestHandler(&MockEngine{}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/update-quantity/abc", strings.NewReader(`{"quantity":3}`))
		req.SetPathValue("id", "abc")
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleUpdateQuantity(res, req)

		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.JSONEq(t, `{"error":"invalid line id"}`, res.Body.String())
	})

	t.Run("Not the cart owner", func(t *testing.T) {
		h := newTestHandler(&MockEngine{UpdateErr: models.ErrNotCartOwner}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/update-quantity/5", strings.NewReader(`{"quantity":3}`))
		req.SetPathValue("id", "5")
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleUpdateQuantity(res, req)

		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.JSONEq(t, `{"error":"not your cart"}`, res.Body.String())
	})

	t.Run("Line not found", func(t *testing.T) {
		h := newTestHandler(&MockEngine{UpdateErr: models.ErrCartLineNotFound}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/update-quantity/99", strings.NewReader(`{"quantity":3}`))
		req.SetPathValue("id", "99")
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleUpdateQuantity(res, req)

		assert.Equal(t, http.StatusNotFound, res.Code)
		assert.JSONEq(t, `{"error":"cart line not found"}`, res.Body.String())
	})

	t.Run("Anonymous", func(t *testing.T) {
		anon := &MockAnonCart{NewTotal: decimal.NewFromInt(90000)}
		h := newTestHandler(&MockEngine{}, anon)

		req := httptest.NewRequest(http.MethodPost, "/api/cart/update-quantity/b3c1", strings.NewReader(`{"quantity":3}`))
		req.SetPathValue("id", "b3c1")
		res := httptest.NewRecorder()

		h.HandleUpdateQuantity(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"success":true,"newTotal":90000}`, res.Body.String())
		assert.Equal(t, "b3c1", anon.UpdatedID)
	})

	t.Run("Anonymous line not found", func(t *testing.T) {
		h := newTestHandler(&MockEngine{}, &MockAnonCart{UpdateErr: session.ErrItemNotFound})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/update-quantity/missing", strings.NewReader(`{"quantity":3}`))
		req.SetPathValue("id", "missing")
		res := httptest.NewRecorder()

		h.HandleUpdateQuantity(res, req)

		assert.Equal(t, http.StatusNotFound, res.Code)
		assert.JSONEq(t, `{"error":"cart line not found"}`, res.Body.String())
	})
}

func TestHandleRemove(t *testing.T) {
	t.Run("Authenticated", func(t *testing.T) {
		engine := &MockEngine{}
		h := newTestHandler(engine, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/remove", strings.NewReader(`{"lineId":5}`))
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleRemove(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"success":true}`, res.Body.String())
		assert.Equal(t, uint(5), engine.RemovedLine)
		assert.Equal(t, uint(7), engine.RemovedOwner)
	})

	t.Run("Authenticated missing lineId", func(t *testing.T) {
		h := newTestHandler(&MockEngine{}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/remove", strings.NewReader(`{}`))
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleRemove(res, req)

		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.JSONEq(t, `{"error":"Missing lineId"}`, res.Body.String())
	})

	t.Run("Not the cart owner", func(t *testing.T) {
		h := newTestHandler(&MockEngine{RemoveErr: models.ErrNotCartOwner}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/remove", strings.NewReader(`{"lineId":5}`))
		authenticate(req)
		res := httptest.NewRecorder()

		h.HandleRemove(res, req)

		assert.Equal(t, http.StatusForbidden, res.Code)
		assert.JSONEq(t, `{"error":"not your cart"}`, res.Body.String())
	})

	t.Run("Anonymous", func(t *testing.T) {
		anon := &MockAnonCart{}
		h := newTestHandler(&MockEngine{}, anon)

		req := httptest.NewRequest(http.MethodPost, "/api/cart/remove", strings.NewReader(`{"productId":20,"variantId":200}`))
		res := httptest.NewRecorder()

		h.HandleRemove(res, req)

		assert.Equal(t, http.StatusOK, res.Code)
		assert.JSONEq(t, `{"success":true}`, res.Body.String())
		assert.Equal(t, uint(20), anon.RemovedProduct)
		assert.Equal(t, uint(200), anon.RemovedVariant)
	})

	t.Run("Anonymous missing identifiers", func(t *testing.T) {
		h := newTestHandler(&MockEngine{}, &MockAnonCart{})

		req := httptest.NewRequest(http.MethodPost, "/api/cart/remove", strings.NewReader(`{"productId":20}`))
		res := httptest.NewRecorder()

		h.HandleRemove(res, req)

		assert.Equal(t, http.StatusBadRequest, res.Code)
		assert.JSONEq(t, `{"error":"Missing productId or variantId"}`, res.Body.String())
	})
}
