package domain

import (
	"fmt"

	"go-storefront/pkg/errors"
)

// Domain-specific errors
var (
	ErrBuyerRequired        = errors.NewValidation("buyer_id is required", nil)
	ErrEmptyLineItems       = errors.NewValidation("order must contain at least one line item", nil)
	ErrInvalidPaymentMethod = errors.NewValidation("payment method must be cash_on_delivery or hosted_checkout", nil)
	ErrSessionIDRequired    = errors.NewValidation("session_id is required", nil)
	ErrDuplicateOrder       = errors.NewConflict("order already recorded")
	ErrInsufficientStock    = errors.NewConflict("insufficient stock")
	ErrOrderNotFound        = errors.NewNotFound("order", "unknown")
	ErrConcurrentUpdate     = errors.NewConflict("record was changed by another request, retry")
)

// NewOrderNotFound creates a not found error with the order ID
func NewOrderNotFound(id interface{}) error {
	return errors.NewNotFound("order", id)
}

// NewDeliveryNotFound creates a not found error with the delivery ID
func NewDeliveryNotFound(id interface{}) error {
	return errors.NewNotFound("delivery", id)
}

// NewProductNotFound creates a not found error with the product ID
func NewProductNotFound(id string) error {
	return errors.NewNotFound("product", id)
}

// NewInvalidLineItem reports a malformed line item at index
func NewInvalidLineItem(index int, reason string) error {
	return errors.NewValidation("invalid line item", map[string]interface{}{
		"index":  index,
		"reason": reason,
	})
}

// NewInvalidShipping reports missing shipping destination fields
func NewInvalidShipping(missing []string) error {
	return errors.NewValidation("shipping destination is incomplete", map[string]interface{}{
		"missing": missing,
	})
}

// NewTotalMismatch reports a client total that disagrees with the priced line items
func NewTotalMismatch(submitted, computed string) error {
	return errors.NewValidation("total amount does not match line items", map[string]interface{}{
		"submitted": submitted,
		"computed":  computed,
	})
}

// NewInvalidPaymentStatus reports an unrecognized payment status
func NewInvalidPaymentStatus(value string) error {
	return errors.NewValidation("payment status must be pending, paid or failed", map[string]interface{}{
		"value": value,
	})
}

// NewInvalidDeliveryStatus reports an unrecognized delivery status
func NewInvalidDeliveryStatus(value string) error {
	return errors.NewValidation("unknown delivery status", map[string]interface{}{
		"value": value,
	})
}

// NewPaymentTransitionRejected reports a payment status move out of a settled state
func NewPaymentTransitionRejected(from, to PaymentStatus) error {
	return errors.NewValidation(fmt.Sprintf("payment status cannot change from %s to %s", from, to), nil)
}

// NewDeliveryTransitionRejected reports a backward or post-terminal delivery move
func NewDeliveryTransitionRejected(from, to DeliveryStatus) error {
	return errors.NewValidation(fmt.Sprintf("delivery status cannot change from %s to %s", from, to), nil)
}

// NewMalformedMetadata reports a paid session whose order intent cannot be read
func NewMalformedMetadata(sessionID, field string, err error) error {
	return errors.NewReconciliation("checkout session metadata is malformed", map[string]interface{}{
		"session_id": sessionID,
		"field":      field,
	}, err)
}
