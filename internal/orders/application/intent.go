package application

import (
	"encoding/json"
	"fmt"

	"github.com/shopspring/decimal"

	"go-storefront/internal/orders/domain"
)

// Metadata keys carried through the hosted checkout redirect
const (
	metaBuyerID   = "buyer_id"
	metaLineItems = "line_items"
	metaShipping  = "shipping"
	metaTotal     = "total_amount"
)

// checkoutIntent is everything needed to materialize an order once payment clears
type checkoutIntent struct {
	BuyerID   string
	LineItems []domain.LineItem
	Shipping  domain.ShippingDestination
	Total     decimal.Decimal
}

func encodeIntent(intent checkoutIntent) (map[string]string, error) {
	items, err := json.Marshal(intent.LineItems)
	if err != nil {
		return nil, fmt.Errorf("encode line items: %w", err)
	}
	shipping, err := json.Marshal(intent.Shipping)
	if err != nil {
		return nil, fmt.Errorf("encode shipping: %w", err)
	}

	return map[string]string{
		metaBuyerID:   intent.BuyerID,
		metaLineItems: string(items),
		metaShipping:  string(shipping),
		metaTotal:     intent.Total.String(),
	}, nil
}

// decodeIntent rebuilds the intent from session metadata. Any failure is a
// reconciliation fault naming the offending field.
func decodeIntent(sessionID string, meta map[string]string) (*checkoutIntent, error) {
	buyerID := meta[metaBuyerID]
	if buyerID == "" {
		return nil, domain.NewMalformedMetadata(sessionID, metaBuyerID, fmt.Errorf("missing"))
	}

	var items []domain.LineItem
	if err := json.Unmarshal([]byte(meta[metaLineItems]), &items); err != nil {
		return nil, domain.NewMalformedMetadata(sessionID, metaLineItems, err)
	}
	if err := domain.ValidateLineItems(items); err != nil {
		return nil, domain.NewMalformedMetadata(sessionID, metaLineItems, err)
	}

	var shipping domain.ShippingDestination
	if err := json.Unmarshal([]byte(meta[metaShipping]), &shipping); err != nil {
		return nil, domain.NewMalformedMetadata(sessionID, metaShipping, err)
	}
	if err := shipping.Validate(); err != nil {
		return nil, domain.NewMalformedMetadata(sessionID, metaShipping, err)
	}

	total, err := decimal.NewFromString(meta[metaTotal])
	if err != nil {
		return nil, domain.NewMalformedMetadata(sessionID, metaTotal, err)
	}
	if computed := domain.ComputeTotal(items); !computed.Equal(total) {
		return nil, domain.NewMalformedMetadata(sessionID, metaTotal,
			fmt.Errorf("total %s does not match line items %s", total, computed))
	}

	return &checkoutIntent{
		BuyerID:   buyerID,
		LineItems: items,
		Shipping:  shipping,
		Total:     total,
	}, nil
}

// toMinorUnits converts a major-unit price to an integer amount, rounding half away from zero
func toMinorUnits(price decimal.Decimal) int64 {
	return price.Mul(decimal.NewFromInt(100)).Round(0).IntPart()
}
