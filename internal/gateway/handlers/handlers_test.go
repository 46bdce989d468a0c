package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	stderrors "errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stripe/stripe-go/v83/webhook"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"

	orderspb "go-storefront/api/orders/v1"
	"go-storefront/pkg/errors"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/middleware"
)

var (
	testJWTSecret     = []byte("gateway-test-secret")
	testWebhookSecret = "whsec_test"
)

// MockOrdersClient records forwarded calls
type MockOrdersClient struct {
	orderspb.OrderServiceClient

	lastAuth    string
	reconcile   *orderspb.ReconcileResponse
	order       *orderspb.Order
	err         error
	lastPayment *orderspb.UpdatePaymentStatusRequest
}

func (m *MockOrdersClient) capture(ctx context.Context) {
	md, _ := metadata.FromOutgoingContext(ctx)
	if v := md.Get("authorization"); len(v) > 0 {
		m.lastAuth = v[0]
	}
}

func (m *MockOrdersClient) SubmitCashOrder(ctx context.Context, in *orderspb.CheckoutRequest, opts ...grpc.CallOption) (*orderspb.Order, error) {
	m.capture(ctx)
	return m.order, m.err
}

func (m *MockOrdersClient) ReconcileHostedCheckout(ctx context.Context, in *orderspb.ReconcileRequest, opts ...grpc.CallOption) (*orderspb.ReconcileResponse, error) {
	m.capture(ctx)
	return m.reconcile, m.err
}

func (m *MockOrdersClient) UpdatePaymentStatus(ctx context.Context, in *orderspb.UpdatePaymentStatusRequest, opts ...grpc.CallOption) (*orderspb.Order, error) {
	m.capture(ctx)
	m.lastPayment = in
	return m.order, m.err
}

// MockPublisher records published events
type MockPublisher struct {
	routingKeys []string
	messages    []interface{}
	err         error
}

func (m *MockPublisher) Publish(ctx context.Context, routingKey string, message interface{}) error {
	if m.err != nil {
		return m.err
	}
	m.routingKeys = append(m.routingKeys, routingKey)
	m.messages = append(m.messages, message)
	return nil
}

func setupRouter(client *MockOrdersClient, publisher *MockPublisher) *gin.Engine {
	gin.SetMode(gin.TestMode)
	h := NewHandler(Options{
		Orders:        client,
		Publisher:     publisher,
		JWTSecret:     testJWTSecret,
		WebhookSecret: testWebhookSecret,
		Log:           logger.NewNop(),
	})

	router := gin.New()
	router.Use(middleware.TraceID())
	router.Use(middleware.ErrorHandler(logger.NewNop()))
	h.RegisterRoutes(router.Group("/api/v1"))
	h.RegisterWebhooks(router)
	return router
}

func bearer(t *testing.T, userID, role string) string {
	t.Helper()
	token, err := middleware.SignToken(testJWTSecret, userID, role, time.Hour)
	require.NoError(t, err)
	return "Bearer " + token
}

func TestSubmitCashOrder_ForwardsToken(t *testing.T) {
	client := &MockOrdersClient{order: &orderspb.Order{ID: "o-1", TotalAmount: "800.00"}}
	router := setupRouter(client, &MockPublisher{})
	auth := bearer(t, "buyer-1", "")

	body := `{"line_items":[{"product_id":"p-1","quantity":2}],"shipping":{"name":"A"}}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/cash", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", auth)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	assert.Equal(t, auth, client.lastAuth)
	assert.Contains(t, w.Body.String(), `"total_amount":"800.00"`)
}

func TestSubmitCashOrder_RejectsBadQuantity(t *testing.T) {
	client := &MockOrdersClient{}
	router := setupRouter(client, &MockPublisher{})

	body := `{"line_items":[{"product_id":"p-1","quantity":0}]}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/checkout/cash", bytes.NewBufferString(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", bearer(t, "buyer-1", ""))
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, client.lastAuth)
}

func TestReconcileHostedCheckout_Gateway(t *testing.T) {
	tests := []struct {
		name       string
		resp       *orderspb.ReconcileResponse
		err        error
		wantStatus int
	}{
		{
			name:       "paid",
			resp:       &orderspb.ReconcileResponse{Success: true, Order: &orderspb.Order{ID: "o-1", IsPaid: true}},
			wantStatus: http.StatusOK,
		},
		{
			name:       "unpaid",
			resp:       &orderspb.ReconcileResponse{Success: false},
			wantStatus: http.StatusPaymentRequired,
		},
		{
			name:       "provider down",
			err:        errors.NewPaymentGateway("stripe unavailable", nil),
			wantStatus: http.StatusBadGateway,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := &MockOrdersClient{reconcile: tt.resp, err: tt.err}
			router := setupRouter(client, &MockPublisher{})

			req := httptest.NewRequest(http.MethodGet, "/api/v1/checkout/hosted/cs_1", nil)
			req.Header.Set("Authorization", bearer(t, "buyer-1", ""))
			w := httptest.NewRecorder()
			router.ServeHTTP(w, req)

			assert.Equal(t, tt.wantStatus, w.Code)
		})
	}
}

func TestUpdatePaymentStatus_AdminOnly(t *testing.T) {
	client := &MockOrdersClient{order: &orderspb.Order{ID: "o-1", PaymentStatus: "paid"}}
	router := setupRouter(client, &MockPublisher{})

	send := func(role string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/api/v1/admin/orders/o-1/payment-status",
			bytes.NewBufferString(`{"status":"paid"}`))
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", bearer(t, "user-1", role))
		w := httptest.NewRecorder()
		router.ServeHTTP(w, req)
		return w
	}

	assert.Equal(t, http.StatusForbidden, send("").Code)
	assert.Nil(t, client.lastPayment)

	w := send(middleware.RoleAdmin)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, client.lastPayment)
	assert.Equal(t, "o-1", client.lastPayment.OrderID)
	assert.Equal(t, "paid", client.lastPayment.Status)
}

func signedWebhook(t *testing.T, payload string, secret string) *http.Request {
	t.Helper()
	signed := webhook.GenerateTestSignedPayload(&webhook.UnsignedPayload{
		Payload:   []byte(payload),
		Secret:    secret,
		Timestamp: time.Now(),
	})
	req := httptest.NewRequest(http.MethodPost, "/webhooks/stripe", bytes.NewReader(signed.Payload))
	req.Header.Set("Stripe-Signature", signed.Header)
	return req
}

func TestStripeWebhook(t *testing.T) {
	completed := `{"id":"evt_1","object":"event","type":"checkout.session.completed",` +
		`"data":{"object":{"id":"cs_1","object":"checkout.session","payment_status":"paid"}}}`
	other := `{"id":"evt_2","object":"event","type":"payment_intent.created",` +
		`"data":{"object":{"id":"pi_1","object":"payment_intent"}}}`

	t.Run("completed session is queued", func(t *testing.T) {
		publisher := &MockPublisher{}
		router := setupRouter(&MockOrdersClient{}, publisher)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedWebhook(t, completed, testWebhookSecret))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		require.Equal(t, []string{events.RoutingKeyCheckoutCompleted}, publisher.routingKeys)

		raw, err := json.Marshal(publisher.messages[0])
		require.NoError(t, err)
		var event events.CheckoutCompletedEvent
		require.NoError(t, json.Unmarshal(raw, &event))
		assert.Equal(t, "cs_1", event.Payload.SessionID)
		assert.Equal(t, "evt_1", event.Payload.EventID)
	})

	t.Run("other events are acknowledged and ignored", func(t *testing.T) {
		publisher := &MockPublisher{}
		router := setupRouter(&MockOrdersClient{}, publisher)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedWebhook(t, other, testWebhookSecret))

		assert.Equal(t, http.StatusOK, w.Code)
		assert.Empty(t, publisher.routingKeys)
	})

	t.Run("bad signature is rejected", func(t *testing.T) {
		publisher := &MockPublisher{}
		router := setupRouter(&MockOrdersClient{}, publisher)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedWebhook(t, completed, "whsec_other"))

		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Empty(t, publisher.routingKeys)
	})

	t.Run("oversized body is refused before verification", func(t *testing.T) {
		publisher := &MockPublisher{}
		router := setupRouter(&MockOrdersClient{}, publisher)

		// a real completed event padded past the limit, validly signed
		padded := completed[:len(completed)-1] + `,"padding":"` + strings.Repeat("x", maxWebhookBody) + `"}`

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedWebhook(t, padded, testWebhookSecret))

		require.Equal(t, http.StatusRequestEntityTooLarge, w.Code, w.Body.String())
		assert.Empty(t, publisher.routingKeys)

		var resp ErrorResponse
		require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
		assert.Equal(t, errors.CodeValidation, resp.Error.Code)
		assert.Contains(t, resp.Error.Message, "size limit")
	})

	t.Run("body at the limit is still read whole", func(t *testing.T) {
		publisher := &MockPublisher{}
		router := setupRouter(&MockOrdersClient{}, publisher)

		prefix := completed[:len(completed)-1] + `,"padding":"`
		fill := maxWebhookBody - len(prefix) - len(`"}`)
		exact := prefix + strings.Repeat("x", fill) + `"}`
		require.Len(t, exact, maxWebhookBody)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedWebhook(t, exact, testWebhookSecret))

		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		assert.Equal(t, []string{events.RoutingKeyCheckoutCompleted}, publisher.routingKeys)
	})

	t.Run("publish failure asks for redelivery", func(t *testing.T) {
		publisher := &MockPublisher{err: stderrors.New("broker down")}
		router := setupRouter(&MockOrdersClient{}, publisher)

		w := httptest.NewRecorder()
		router.ServeHTTP(w, signedWebhook(t, completed, testWebhookSecret))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
	})
}
