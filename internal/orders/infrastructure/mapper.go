package infrastructure

import (
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	orderspb "go-storefront/api/orders/v1"
	"go-storefront/internal/orders/application"
	"go-storefront/internal/orders/domain"
	"go-storefront/pkg/errors"
)

// checkoutInput converts a transport request into the use case input.
// The buyer always comes from the verified token, never from the body.
func checkoutInput(req *orderspb.CheckoutRequest, buyerID string) (application.CheckoutInput, error) {
	input := application.CheckoutInput{
		BuyerID:   buyerID,
		LineItems: make([]application.LineItemInput, len(req.LineItems)),
		Shipping: domain.ShippingDestination{
			Name:        strings.TrimSpace(req.Shipping.Name),
			Phone:       strings.TrimSpace(req.Shipping.Phone),
			AddressLine: strings.TrimSpace(req.Shipping.AddressLine),
			City:        strings.TrimSpace(req.Shipping.City),
			State:       strings.TrimSpace(req.Shipping.State),
			Country:     strings.TrimSpace(req.Shipping.Country),
			PostalCode:  strings.TrimSpace(req.Shipping.PostalCode),
		},
	}

	for i, li := range req.LineItems {
		input.LineItems[i] = application.LineItemInput{
			ProductID: li.ProductID,
			Name:      li.Name,
			Quantity:  li.Quantity,
			ImageRef:  li.ImageRef,
		}
	}

	if req.TotalAmount != "" {
		total, err := decimal.NewFromString(req.TotalAmount)
		if err != nil {
			return application.CheckoutInput{}, errors.NewValidation("invalid total_amount", map[string]interface{}{
				"value": req.TotalAmount,
			})
		}
		input.TotalAmount = &total
	}

	return input, nil
}

func parseID(raw, field string) (uuid.UUID, error) {
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, errors.NewValidation("invalid "+field, map[string]interface{}{
			"value": raw,
		})
	}
	return id, nil
}

func toOrderResponse(order *domain.Order) *orderspb.Order {
	resp := &orderspb.Order{
		ID:      order.ID.String(),
		BuyerID: order.BuyerID,
		Shipping: orderspb.ShippingDestination{
			Name:        order.Shipping.Name,
			Phone:       order.Shipping.Phone,
			AddressLine: order.Shipping.AddressLine,
			City:        order.Shipping.City,
			State:       order.Shipping.State,
			Country:     order.Shipping.Country,
			PostalCode:  order.Shipping.PostalCode,
		},
		LineItems:     make([]orderspb.LineItem, len(order.LineItems)),
		PaymentMethod: string(order.PaymentMethod),
		PaymentStatus: string(order.PaymentStatus),
		TransactionID: order.TransactionID,
		TotalAmount:   order.TotalAmount.StringFixed(2),
		IsPaid:        order.IsPaid,
		PaidAt:        order.PaidAt,
		OrderStatus:   string(order.OrderStatus),
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}

	for i, li := range order.LineItems {
		resp.LineItems[i] = orderspb.LineItem{
			ProductID: li.ProductRef,
			Name:      li.DisplayName,
			UnitPrice: li.UnitPrice.StringFixed(2),
			Quantity:  li.Quantity,
			ImageRef:  li.ImageRef,
		}
	}

	if order.Delivery != nil {
		resp.Delivery = toDeliveryResponse(order.Delivery)
	}

	return resp
}

func toDeliveryResponse(d *domain.Delivery) *orderspb.Delivery {
	resp := &orderspb.Delivery{
		ID:                 d.ID.String(),
		OrderID:            d.OrderID.String(),
		CurrentStatus:      string(d.CurrentStatus),
		History:            make([]orderspb.StatusChange, len(d.History)),
		ExpectedDate:       d.ExpectedDate,
		ActualDeliveryDate: d.ActualDeliveryDate,
	}
	for i, h := range d.History {
		resp.History[i] = orderspb.StatusChange{Status: string(h.Status), ChangedAt: h.ChangedAt}
	}
	return resp
}

func toListResponse(out *application.ListOrdersOutput) *orderspb.ListOrdersResponse {
	resp := &orderspb.ListOrdersResponse{
		Orders: make([]orderspb.Order, len(out.Orders)),
		Total:  out.Total,
	}
	for i, o := range out.Orders {
		resp.Orders[i] = *toOrderResponse(o)
	}
	return resp
}
