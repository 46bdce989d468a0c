package errors

import (
	"encoding/json"
	stderrors "errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

func TestHTTPStatus(t *testing.T) {
	tests := []struct {
		err  error
		want int
	}{
		{NewValidation("bad", nil), http.StatusBadRequest},
		{NewNotFound("order", "1"), http.StatusNotFound},
		{NewConflict("dup"), http.StatusConflict},
		{NewUnauthorized("who"), http.StatusUnauthorized},
		{NewForbidden("no"), http.StatusForbidden},
		{NewPaymentGateway("down", nil), http.StatusBadGateway},
		{NewReconciliation("lost", nil, nil), http.StatusInternalServerError},
		{NewPersistence("write", nil), http.StatusInternalServerError},
		{stderrors.New("raw"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, HTTPStatus(tt.err), tt.err.Error())
	}
}

func TestGRPCRoundTrip(t *testing.T) {
	codesToCheck := []string{
		CodeValidation, CodeNotFound, CodeConflict, CodeUnauthorized, CodeForbidden,
		CodePaymentGateway, CodeReconciliation, CodePersistence, CodeInternal,
	}

	for _, code := range codesToCheck {
		t.Run(code, func(t *testing.T) {
			wire := GRPCStatus(&AppError{Code: code, Message: "boom"})

			back := FromGRPCStatus(wire)
			assert.Equal(t, code, back.Code)
			assert.Equal(t, "boom", back.Message)
		})
	}
}

func TestGRPCStatus_HidesRawErrors(t *testing.T) {
	st, ok := status.FromError(GRPCStatus(stderrors.New("dsn password leaked")))
	require.True(t, ok)
	assert.Equal(t, codes.Internal, st.Code())
	assert.NotContains(t, st.Message(), "password")
}

func TestToJSON(t *testing.T) {
	wrapped := fmt.Errorf("handler: %w", NewValidation("invalid shipping", map[string]interface{}{"missing": []string{"city"}}))

	code, body := ToJSON(wrapped, "trace-1")

	assert.Equal(t, http.StatusBadRequest, code)
	var resp ErrorResponse
	require.NoError(t, json.Unmarshal(body, &resp))
	assert.Equal(t, CodeValidation, resp.Error.Code)
	assert.Equal(t, "invalid shipping", resp.Error.Message)
	assert.Equal(t, "trace-1", resp.TraceID)
	assert.NotNil(t, resp.Error.Details)
}

func TestRetriable(t *testing.T) {
	assert.True(t, Retriable(NewPaymentGateway("down", nil)))
	assert.True(t, Retriable(NewPersistence("write", nil)))
	assert.True(t, Retriable(NewInternal("oops", nil)))
	assert.False(t, Retriable(NewValidation("bad", nil)))
	assert.False(t, Retriable(NewReconciliation("lost", nil, nil)))
	assert.False(t, Retriable(stderrors.New("raw")))
}
