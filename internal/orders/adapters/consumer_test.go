package adapters

import (
	"context"
	"encoding/json"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go-storefront/internal/orders/application"
	"go-storefront/internal/orders/domain"
	apperrors "go-storefront/pkg/errors"
	"go-storefront/pkg/events"
	"go-storefront/pkg/logger"
	"go-storefront/pkg/rabbitmq"
)

type stubReconciler struct {
	out   *application.ReconcileOutput
	err   error
	calls []application.ReconcileInput
}

func (s *stubReconciler) ReconcileHostedCheckout(ctx context.Context, input application.ReconcileInput) (*application.ReconcileOutput, error) {
	s.calls = append(s.calls, input)
	return s.out, s.err
}

func checkoutBody(t *testing.T, sessionID string) []byte {
	t.Helper()
	body, err := json.Marshal(events.NewCheckoutCompletedEvent(sessionID, "evt_1", "trace-1"))
	require.NoError(t, err)
	return body
}

func TestCheckoutCompletedConsumer_HandleMessage(t *testing.T) {
	paid := &application.ReconcileOutput{Success: true, Order: &domain.Order{ID: uuid.New()}}
	persistence := apperrors.NewPersistence("db down", errors.New("conn refused"))

	tests := []struct {
		name        string
		body        func(t *testing.T) []byte
		out         *application.ReconcileOutput
		err         error
		wantErr     bool
		wantDiscard bool
		wantCalls   int
	}{
		{
			name:      "paid session is acked",
			body:      func(t *testing.T) []byte { return checkoutBody(t, "cs_1") },
			out:       paid,
			wantCalls: 1,
		},
		{
			name:      "unpaid session is acked",
			body:      func(t *testing.T) []byte { return checkoutBody(t, "cs_1") },
			out:       &application.ReconcileOutput{Success: false},
			wantCalls: 1,
		},
		{
			name:      "malformed metadata is acked for manual handling",
			body:      func(t *testing.T) []byte { return checkoutBody(t, "cs_1") },
			err:       domain.NewMalformedMetadata("cs_1", "line_items", errors.New("bad json")),
			wantCalls: 1,
		},
		{
			name:      "transient failure is requeued",
			body:      func(t *testing.T) []byte { return checkoutBody(t, "cs_1") },
			err:       persistence,
			wantErr:   true,
			wantCalls: 1,
		},
		{
			name:        "forbidden is dead-lettered",
			body:        func(t *testing.T) []byte { return checkoutBody(t, "cs_1") },
			err:         apperrors.NewForbidden("nope"),
			wantErr:     true,
			wantDiscard: true,
			wantCalls:   1,
		},
		{
			name:        "garbage body is dead-lettered",
			body:        func(t *testing.T) []byte { return []byte("{not json") },
			wantErr:     true,
			wantDiscard: true,
		},
		{
			name:        "missing session id is dead-lettered",
			body:        func(t *testing.T) []byte { return checkoutBody(t, "") },
			wantErr:     true,
			wantDiscard: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			reconciler := &stubReconciler{out: tt.out, err: tt.err}
			c := &CheckoutCompletedConsumer{reconciler: reconciler, log: logger.NewNop()}

			err := c.handleMessage(context.Background(), tt.body(t))

			if tt.wantErr {
				require.Error(t, err)
				assert.Equal(t, tt.wantDiscard, rabbitmq.IsDiscarded(err))
			} else {
				assert.NoError(t, err)
			}
			assert.Len(t, reconciler.calls, tt.wantCalls)
			if tt.wantCalls > 0 {
				assert.Equal(t, "cs_1", reconciler.calls[0].SessionID)
				assert.Empty(t, reconciler.calls[0].BuyerID)
			}
		})
	}
}
