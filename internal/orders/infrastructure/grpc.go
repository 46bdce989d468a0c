package infrastructure

import (
	"context"

	orderspb "go-storefront/api/orders/v1"
	"go-storefront/internal/orders/application"
	"go-storefront/pkg/errors"
	grpcpkg "go-storefront/pkg/grpc"
	"go-storefront/pkg/middleware"
)

// GRPCServer implements the gRPC OrderServiceServer. Callers are identified
// by the bearer token the gateway forwards in metadata.
type GRPCServer struct {
	orderspb.UnimplementedOrderServiceServer
	useCase *application.OrderUseCase
	secret  []byte
}

// NewGRPCServer creates a new gRPC server
func NewGRPCServer(useCase *application.OrderUseCase, jwtSecret []byte) *GRPCServer {
	return &GRPCServer{useCase: useCase, secret: jwtSecret}
}

func (s *GRPCServer) caller(ctx context.Context) (*middleware.Claims, error) {
	return middleware.ParseBearer(s.secret, grpcpkg.Authorization(ctx))
}

func (s *GRPCServer) admin(ctx context.Context) (*middleware.Claims, error) {
	claims, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	if !claims.IsAdmin() {
		return nil, errors.NewForbidden("admin role required")
	}
	return claims, nil
}

// SubmitCashOrder implements OrderServiceServer.SubmitCashOrder
func (s *GRPCServer) SubmitCashOrder(ctx context.Context, req *orderspb.CheckoutRequest) (*orderspb.Order, error) {
	claims, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	input, err := checkoutInput(req, claims.Subject())
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.SubmitCashOrder(ctx, input)
	if err != nil {
		return nil, err
	}

	resp := toOrderResponse(output.Order)
	resp.Existing = output.Existing
	return resp, nil
}

// BeginHostedCheckout implements OrderServiceServer.BeginHostedCheckout
func (s *GRPCServer) BeginHostedCheckout(ctx context.Context, req *orderspb.CheckoutRequest) (*orderspb.HostedCheckout, error) {
	claims, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	input, err := checkoutInput(req, claims.Subject())
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.BeginHostedCheckout(ctx, input)
	if err != nil {
		return nil, err
	}

	return &orderspb.HostedCheckout{SessionID: output.SessionID, RedirectURL: output.RedirectURL}, nil
}

// ReconcileHostedCheckout implements OrderServiceServer.ReconcileHostedCheckout
func (s *GRPCServer) ReconcileHostedCheckout(ctx context.Context, req *orderspb.ReconcileRequest) (*orderspb.ReconcileResponse, error) {
	claims, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.ReconcileHostedCheckout(ctx, application.ReconcileInput{
		SessionID: req.SessionID,
		BuyerID:   claims.Subject(),
	})
	if err != nil {
		return nil, err
	}

	resp := &orderspb.ReconcileResponse{Success: output.Success}
	if output.Order != nil {
		resp.Order = toOrderResponse(output.Order)
		resp.Order.Existing = output.Existing
	}
	return resp, nil
}

// GetOrder implements OrderServiceServer.GetOrder
func (s *GRPCServer) GetOrder(ctx context.Context, req *orderspb.GetOrderRequest) (*orderspb.Order, error) {
	claims, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}
	id, err := parseID(req.ID, "order id")
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.GetOrder(ctx, application.GetOrderInput{
		ID:          id,
		RequesterID: claims.Subject(),
		IsAdmin:     claims.IsAdmin(),
	})
	if err != nil {
		return nil, err
	}

	return toOrderResponse(output.Order), nil
}

// ListBuyerOrders implements OrderServiceServer.ListBuyerOrders
func (s *GRPCServer) ListBuyerOrders(ctx context.Context, _ *orderspb.Empty) (*orderspb.ListOrdersResponse, error) {
	claims, err := s.caller(ctx)
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.ListBuyerOrders(ctx, claims.Subject())
	if err != nil {
		return nil, err
	}

	return toListResponse(output), nil
}

// ListOrders implements OrderServiceServer.ListOrders
func (s *GRPCServer) ListOrders(ctx context.Context, req *orderspb.ListOrdersRequest) (*orderspb.ListOrdersResponse, error) {
	if _, err := s.admin(ctx); err != nil {
		return nil, err
	}

	output, err := s.useCase.ListOrders(ctx, application.ListOrdersInput{
		PaymentStatus: req.PaymentStatus,
		OrderStatus:   req.OrderStatus,
		Limit:         req.Limit,
		Offset:        req.Offset,
	})
	if err != nil {
		return nil, err
	}

	return toListResponse(output), nil
}

// UpdatePaymentStatus implements OrderServiceServer.UpdatePaymentStatus
func (s *GRPCServer) UpdatePaymentStatus(ctx context.Context, req *orderspb.UpdatePaymentStatusRequest) (*orderspb.Order, error) {
	if _, err := s.admin(ctx); err != nil {
		return nil, err
	}
	id, err := parseID(req.OrderID, "order id")
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.UpdatePaymentStatus(ctx, application.UpdatePaymentStatusInput{
		OrderID: id,
		Status:  req.Status,
	})
	if err != nil {
		return nil, err
	}

	return toOrderResponse(output.Order), nil
}

// UpdateDeliveryStatus implements OrderServiceServer.UpdateDeliveryStatus
func (s *GRPCServer) UpdateDeliveryStatus(ctx context.Context, req *orderspb.UpdateDeliveryStatusRequest) (*orderspb.Delivery, error) {
	if _, err := s.admin(ctx); err != nil {
		return nil, err
	}
	id, err := parseID(req.DeliveryID, "delivery id")
	if err != nil {
		return nil, err
	}

	output, err := s.useCase.UpdateDeliveryStatus(ctx, application.UpdateDeliveryStatusInput{
		DeliveryID:         id,
		Status:             req.Status,
		ActualDeliveryDate: req.ActualDeliveryDate,
	})
	if err != nil {
		return nil, err
	}

	return toDeliveryResponse(output.Delivery), nil
}
