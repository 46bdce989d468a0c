package infrastructure

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-storefront/internal/orders/application"
	"go-storefront/internal/orders/domain"
	"go-storefront/internal/orders/ports"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/middleware"
)

var testSecret = []byte("orders-test-secret")

// =============================================================================
// In-memory ports
// =============================================================================

type memStore struct {
	mu         sync.Mutex
	orders     map[uuid.UUID]*domain.Order
	deliveries map[uuid.UUID]*domain.Delivery
	products   map[string]*ports.Product
	paid       map[string]*ports.SessionVerdict
}

func newMemStore() *memStore {
	return &memStore{
		orders:     make(map[uuid.UUID]*domain.Order),
		deliveries: make(map[uuid.UUID]*domain.Delivery),
		products:   make(map[string]*ports.Product),
		paid:       make(map[string]*ports.SessionVerdict),
	}
}

func (m *memStore) Create(ctx context.Context, order *domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.PaymentMethod == domain.PaymentMethodCashOnDelivery && order.PaymentMethod == domain.PaymentMethodCashOnDelivery &&
			o.PaymentStatus == domain.PaymentStatusPending && o.BuyerID == order.BuyerID && o.TotalAmount.Equal(order.TotalAmount) {
			return domain.ErrDuplicateOrder
		}
	}
	m.orders[order.ID] = order
	if order.Delivery != nil {
		m.deliveries[order.Delivery.ID] = order.Delivery
	}
	return nil
}

func (m *memStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		return o, nil
	}
	return nil, domain.NewOrderNotFound(id)
}

func (m *memStore) GetByTransactionID(ctx context.Context, transactionID string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.TransactionID == transactionID {
			return o, nil
		}
	}
	return nil, domain.NewOrderNotFound(transactionID)
}

func (m *memStore) FindPendingCash(ctx context.Context, buyerID string, total decimal.Decimal) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.BuyerID == buyerID && o.PaymentMethod == domain.PaymentMethodCashOnDelivery &&
			o.PaymentStatus == domain.PaymentStatusPending && o.TotalAmount.Equal(total) {
			return o, nil
		}
	}
	return nil, domain.ErrOrderNotFound
}

func (m *memStore) UpdatePayment(ctx context.Context, order *domain.Order, from domain.PaymentStatus) error {
	return nil
}

func (m *memStore) ListByBuyer(ctx context.Context, buyerID string) ([]*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		if o.BuyerID == buyerID {
			out = append(out, o)
		}
	}
	return out, nil
}

func (m *memStore) List(ctx context.Context, filter ports.OrderFilter) ([]*domain.Order, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []*domain.Order
	for _, o := range m.orders {
		out = append(out, o)
	}
	return out, int64(len(out)), nil
}

type memDeliveries struct{ *memStore }

func (m memDeliveries) GetByID(ctx context.Context, id uuid.UUID) (*domain.Delivery, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.deliveries[id]; ok {
		return d, nil
	}
	return nil, domain.NewDeliveryNotFound(id)
}

func (m memDeliveries) SaveTransition(ctx context.Context, delivery *domain.Delivery, from domain.DeliveryStatus) error {
	return nil
}

func (m memDeliveries) SetOrderStatus(ctx context.Context, orderID uuid.UUID, status domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.orders[orderID].OrderStatus = status
	return nil
}

type memInventory struct{ *memStore }

func (m memInventory) GetProduct(ctx context.Context, id string) (*ports.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p, ok := m.products[id]; ok {
		cp := *p
		return &cp, nil
	}
	return nil, domain.NewProductNotFound(id)
}

func (m memInventory) DecrementStock(ctx context.Context, id string, qty int) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p := m.products[id]
	p.Stock -= qty
	if p.Stock < 0 {
		p.Stock = 0
	}
	return p.Stock, nil
}

type memGateway struct{ *memStore }

func (m memGateway) CreateSession(ctx context.Context, req ports.CreateSessionRequest) (*ports.Session, error) {
	return &ports.Session{ID: "cs_test", RedirectURL: "https://pay.test/cs_test"}, nil
}

func (m memGateway) GetSessionVerdict(ctx context.Context, sessionID string) (*ports.SessionVerdict, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if v, ok := m.paid[sessionID]; ok {
		return v, nil
	}
	return &ports.SessionVerdict{Paid: false}, nil
}

type passthroughTx struct{}

func (passthroughTx) WithinTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// =============================================================================
// Fixture
// =============================================================================

type fixture struct {
	store   *memStore
	router  *gin.Engine
	product string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	store := newMemStore()
	productID := uuid.NewString()
	store.products[productID] = &ports.Product{
		ID:            productID,
		Name:          "Ceramic Mug",
		Price:         decimal.NewFromInt(500),
		DiscountPrice: decimal.NewFromInt(400),
		Stock:         10,
	}

	uc := application.NewOrderUseCase(application.Dependencies{
		Orders:     store,
		Deliveries: memDeliveries{store},
		Inventory:  memInventory{store},
		Gateway:    memGateway{store},
		Tx:         passthroughTx{},
	}, application.Config{}, logger.NewNop())

	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.ErrorHandler(logger.NewNop()))
	NewHTTPHandler(uc, testSecret).RegisterRoutes(router.Group("/api/v1"))

	return &fixture{store: store, router: router, product: productID}
}

func (f *fixture) do(t *testing.T, method, path, userID, role string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		token, err := middleware.SignToken(testSecret, userID, role, time.Hour)
		require.NoError(t, err)
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	return w
}

func (f *fixture) checkoutBody() map[string]interface{} {
	return map[string]interface{}{
		"line_items": []map[string]interface{}{
			{"product_id": f.product, "quantity": 2},
		},
		"shipping": map[string]interface{}{
			"name":         "Ada Buyer",
			"phone":        "+1 555 0100",
			"address_line": "1 Main St",
			"city":         "Springfield",
			"country":      "US",
			"postal_code":  "12345",
		},
	}
}

type orderEnvelope struct {
	Data struct {
		ID          string `json:"id"`
		BuyerID     string `json:"buyer_id"`
		TotalAmount string `json:"total_amount"`
		IsPaid      bool   `json:"is_paid"`
		Existing    bool   `json:"existing"`
		LineItems   []struct {
			UnitPrice string `json:"unit_price"`
		} `json:"line_items"`
		Delivery *struct {
			ID            string `json:"id"`
			CurrentStatus string `json:"current_status"`
		} `json:"delivery"`
	} `json:"data"`
}

// =============================================================================
// Tests
// =============================================================================

func TestSubmitCashOrder_HTTP(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/checkout/cash", "buyer-1", "", f.checkoutBody())

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var resp orderEnvelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "buyer-1", resp.Data.BuyerID)
	assert.Equal(t, "800.00", resp.Data.TotalAmount)
	assert.Equal(t, "400.00", resp.Data.LineItems[0].UnitPrice)
	assert.False(t, resp.Data.IsPaid)
	require.NotNil(t, resp.Data.Delivery)
	assert.Equal(t, "Processing", resp.Data.Delivery.CurrentStatus)

	again := f.do(t, http.MethodPost, "/api/v1/checkout/cash", "buyer-1", "", f.checkoutBody())

	require.Equal(t, http.StatusOK, again.Code)
	var second orderEnvelope
	require.NoError(t, json.Unmarshal(again.Body.Bytes(), &second))
	assert.Equal(t, resp.Data.ID, second.Data.ID)
	assert.True(t, second.Data.Existing)
	assert.Len(t, f.store.orders, 1)
}

func TestSubmitCashOrder_HTTPErrors(t *testing.T) {
	f := newFixture(t)

	missingShipping := f.checkoutBody()
	delete(missingShipping, "shipping")
	wrongTotal := f.checkoutBody()
	wrongTotal["total_amount"] = "1000"

	tests := []struct {
		name       string
		userID     string
		body       interface{}
		wantStatus int
		wantCode   string
	}{
		{name: "no token", body: f.checkoutBody(), wantStatus: http.StatusUnauthorized, wantCode: "UNAUTHORIZED"},
		{name: "missing shipping", userID: "buyer-1", body: missingShipping, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
		{name: "total mismatch", userID: "buyer-1", body: wrongTotal, wantStatus: http.StatusBadRequest, wantCode: "VALIDATION_ERROR"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodPost, "/api/v1/checkout/cash", tt.userID, "", tt.body)

			assert.Equal(t, tt.wantStatus, w.Code)
			var body struct {
				Error struct {
					Code string `json:"code"`
				} `json:"error"`
			}
			require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
			assert.Equal(t, tt.wantCode, body.Error.Code)
		})
	}
	assert.Empty(t, f.store.orders)
}

func TestHostedCheckout_HTTP(t *testing.T) {
	f := newFixture(t)

	w := f.do(t, http.MethodPost, "/api/v1/checkout/hosted", "buyer-1", "", f.checkoutBody())
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "https://pay.test/cs_test")
	assert.Empty(t, f.store.orders)

	unpaid := f.do(t, http.MethodGet, "/api/v1/checkout/hosted/cs_test", "buyer-1", "", nil)
	assert.Equal(t, http.StatusPaymentRequired, unpaid.Code)
	assert.Contains(t, unpaid.Body.String(), `"success":false`)
	assert.Empty(t, f.store.orders)
}

func TestAdminRoutes_HTTP(t *testing.T) {
	f := newFixture(t)

	created := f.do(t, http.MethodPost, "/api/v1/checkout/cash", "buyer-1", "", f.checkoutBody())
	require.Equal(t, http.StatusCreated, created.Code)
	var order orderEnvelope
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &order))
	deliveryPath := "/api/v1/admin/deliveries/" + order.Data.Delivery.ID + "/status"

	forbidden := f.do(t, http.MethodPatch, deliveryPath, "buyer-1", "", map[string]string{"status": "Delivered"})
	assert.Equal(t, http.StatusForbidden, forbidden.Code)

	delivered := f.do(t, http.MethodPatch, deliveryPath, "admin-1", middleware.RoleAdmin, map[string]string{"status": "Delivered"})
	require.Equal(t, http.StatusOK, delivered.Code, delivered.Body.String())
	assert.Contains(t, delivered.Body.String(), `"current_status":"Delivered"`)

	id, err := uuid.Parse(order.Data.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.OrderStatusCompleted, f.store.orders[id].OrderStatus)

	list := f.do(t, http.MethodGet, "/api/v1/admin/orders?limit=10", "admin-1", middleware.RoleAdmin, nil)
	require.Equal(t, http.StatusOK, list.Code)
	assert.Contains(t, list.Body.String(), `"total":1`)
}

func TestGetOrder_HTTP(t *testing.T) {
	f := newFixture(t)

	created := f.do(t, http.MethodPost, "/api/v1/checkout/cash", "buyer-1", "", f.checkoutBody())
	var order orderEnvelope
	require.NoError(t, json.Unmarshal(created.Body.Bytes(), &order))

	tests := []struct {
		name       string
		path       string
		userID     string
		role       string
		wantStatus int
	}{
		{name: "owner", path: "/api/v1/orders/" + order.Data.ID, userID: "buyer-1", wantStatus: http.StatusOK},
		{name: "admin", path: "/api/v1/orders/" + order.Data.ID, userID: "admin-1", role: middleware.RoleAdmin, wantStatus: http.StatusOK},
		{name: "other buyer", path: "/api/v1/orders/" + order.Data.ID, userID: "buyer-2", wantStatus: http.StatusNotFound},
		{name: "bad id", path: "/api/v1/orders/not-a-uuid", userID: "buyer-1", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := f.do(t, http.MethodGet, tt.path, tt.userID, tt.role, nil)
			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}
