// Package orderspb is the OrderService RPC contract shared by the gateway and
// the orders service. Payloads travel as google.protobuf.Struct and are mapped
// onto the Go types in this package by their json tags.
package orderspb

import (
	"context"

	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/structpb"

	pkggrpc "go-storefront/pkg/grpc"
)

// ServiceName is the fully-qualified gRPC service name
const ServiceName = "orders.v1.OrderService"

// Method names
const (
	MethodSubmitCashOrder         = "SubmitCashOrder"
	MethodBeginHostedCheckout     = "BeginHostedCheckout"
	MethodReconcileHostedCheckout = "ReconcileHostedCheckout"
	MethodGetOrder                = "GetOrder"
	MethodListBuyerOrders         = "ListBuyerOrders"
	MethodListOrders              = "ListOrders"
	MethodUpdatePaymentStatus     = "UpdatePaymentStatus"
	MethodUpdateDeliveryStatus    = "UpdateDeliveryStatus"
)

// OrderServiceServer is the server API for OrderService
type OrderServiceServer interface {
	SubmitCashOrder(context.Context, *CheckoutRequest) (*Order, error)
	BeginHostedCheckout(context.Context, *CheckoutRequest) (*HostedCheckout, error)
	ReconcileHostedCheckout(context.Context, *ReconcileRequest) (*ReconcileResponse, error)
	GetOrder(context.Context, *GetOrderRequest) (*Order, error)
	ListBuyerOrders(context.Context, *Empty) (*ListOrdersResponse, error)
	ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error)
	UpdatePaymentStatus(context.Context, *UpdatePaymentStatusRequest) (*Order, error)
	UpdateDeliveryStatus(context.Context, *UpdateDeliveryStatusRequest) (*Delivery, error)
}

// UnimplementedOrderServiceServer can be embedded for forward compatibility
type UnimplementedOrderServiceServer struct{}

func (UnimplementedOrderServiceServer) SubmitCashOrder(context.Context, *CheckoutRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method SubmitCashOrder not implemented")
}
func (UnimplementedOrderServiceServer) BeginHostedCheckout(context.Context, *CheckoutRequest) (*HostedCheckout, error) {
	return nil, status.Error(codes.Unimplemented, "method BeginHostedCheckout not implemented")
}
func (UnimplementedOrderServiceServer) ReconcileHostedCheckout(context.Context, *ReconcileRequest) (*ReconcileResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ReconcileHostedCheckout not implemented")
}
func (UnimplementedOrderServiceServer) GetOrder(context.Context, *GetOrderRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method GetOrder not implemented")
}
func (UnimplementedOrderServiceServer) ListBuyerOrders(context.Context, *Empty) (*ListOrdersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListBuyerOrders not implemented")
}
func (UnimplementedOrderServiceServer) ListOrders(context.Context, *ListOrdersRequest) (*ListOrdersResponse, error) {
	return nil, status.Error(codes.Unimplemented, "method ListOrders not implemented")
}
func (UnimplementedOrderServiceServer) UpdatePaymentStatus(context.Context, *UpdatePaymentStatusRequest) (*Order, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdatePaymentStatus not implemented")
}
func (UnimplementedOrderServiceServer) UpdateDeliveryStatus(context.Context, *UpdateDeliveryStatusRequest) (*Delivery, error) {
	return nil, status.Error(codes.Unimplemented, "method UpdateDeliveryStatus not implemented")
}

// RegisterOrderServiceServer registers srv on s
func RegisterOrderServiceServer(s grpc.ServiceRegistrar, srv OrderServiceServer) {
	s.RegisterService(&OrderService_ServiceDesc, srv)
}

// OrderService_ServiceDesc is the grpc.ServiceDesc for OrderService
var OrderService_ServiceDesc = grpc.ServiceDesc{
	ServiceName: ServiceName,
	HandlerType: (*OrderServiceServer)(nil),
	Methods: []grpc.MethodDesc{
		unary(MethodSubmitCashOrder, OrderServiceServer.SubmitCashOrder),
		unary(MethodBeginHostedCheckout, OrderServiceServer.BeginHostedCheckout),
		unary(MethodReconcileHostedCheckout, OrderServiceServer.ReconcileHostedCheckout),
		unary(MethodGetOrder, OrderServiceServer.GetOrder),
		unary(MethodListBuyerOrders, OrderServiceServer.ListBuyerOrders),
		unary(MethodListOrders, OrderServiceServer.ListOrders),
		unary(MethodUpdatePaymentStatus, OrderServiceServer.UpdatePaymentStatus),
		unary(MethodUpdateDeliveryStatus, OrderServiceServer.UpdateDeliveryStatus),
	},
	Streams:  []grpc.StreamDesc{},
	Metadata: "orders/v1/orders.proto",
}

func unary[Req, Resp any](method string, call func(OrderServiceServer, context.Context, *Req) (*Resp, error)) grpc.MethodDesc {
	return grpc.MethodDesc{
		MethodName: method,
		Handler: func(srv interface{}, ctx context.Context, dec func(interface{}) error, interceptor grpc.UnaryServerInterceptor) (interface{}, error) {
			in := new(structpb.Struct)
			if err := dec(in); err != nil {
				return nil, err
			}

			handler := func(ctx context.Context, req interface{}) (interface{}, error) {
				typed := new(Req)
				if err := pkggrpc.DecodeStruct(req.(*structpb.Struct), typed); err != nil {
					return nil, status.Error(codes.InvalidArgument, err.Error())
				}
				out, err := call(srv.(OrderServiceServer), ctx, typed)
				if err != nil {
					return nil, err
				}
				return pkggrpc.EncodeStruct(out)
			}

			if interceptor == nil {
				return handler(ctx, in)
			}
			info := &grpc.UnaryServerInfo{
				Server:     srv,
				FullMethod: "/" + ServiceName + "/" + method,
			}
			return interceptor(ctx, in, info, handler)
		},
	}
}

// OrderServiceClient is the client API for OrderService
type OrderServiceClient interface {
	SubmitCashOrder(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*Order, error)
	BeginHostedCheckout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*HostedCheckout, error)
	ReconcileHostedCheckout(ctx context.Context, in *ReconcileRequest, opts ...grpc.CallOption) (*ReconcileResponse, error)
	GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*Order, error)
	ListBuyerOrders(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListOrdersResponse, error)
	ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error)
	UpdatePaymentStatus(ctx context.Context, in *UpdatePaymentStatusRequest, opts ...grpc.CallOption) (*Order, error)
	UpdateDeliveryStatus(ctx context.Context, in *UpdateDeliveryStatusRequest, opts ...grpc.CallOption) (*Delivery, error)
}

type orderServiceClient struct {
	cc grpc.ClientConnInterface
}

// NewOrderServiceClient creates a client bound to cc
func NewOrderServiceClient(cc grpc.ClientConnInterface) OrderServiceClient {
	return &orderServiceClient{cc: cc}
}

func invoke[Resp any](ctx context.Context, cc grpc.ClientConnInterface, method string, in interface{}, opts ...grpc.CallOption) (*Resp, error) {
	req, err := pkggrpc.EncodeStruct(in)
	if err != nil {
		return nil, err
	}

	reply := new(structpb.Struct)
	if err := cc.Invoke(ctx, "/"+ServiceName+"/"+method, req, reply, opts...); err != nil {
		return nil, err
	}

	out := new(Resp)
	if err := pkggrpc.DecodeStruct(reply, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (c *orderServiceClient) SubmitCashOrder(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*Order, error) {
	return invoke[Order](ctx, c.cc, MethodSubmitCashOrder, in, opts...)
}

func (c *orderServiceClient) BeginHostedCheckout(ctx context.Context, in *CheckoutRequest, opts ...grpc.CallOption) (*HostedCheckout, error) {
	return invoke[HostedCheckout](ctx, c.cc, MethodBeginHostedCheckout, in, opts...)
}

func (c *orderServiceClient) ReconcileHostedCheckout(ctx context.Context, in *ReconcileRequest, opts ...grpc.CallOption) (*ReconcileResponse, error) {
	return invoke[ReconcileResponse](ctx, c.cc, MethodReconcileHostedCheckout, in, opts...)
}

func (c *orderServiceClient) GetOrder(ctx context.Context, in *GetOrderRequest, opts ...grpc.CallOption) (*Order, error) {
	return invoke[Order](ctx, c.cc, MethodGetOrder, in, opts...)
}

func (c *orderServiceClient) ListBuyerOrders(ctx context.Context, in *Empty, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, MethodListBuyerOrders, in, opts...)
}

func (c *orderServiceClient) ListOrders(ctx context.Context, in *ListOrdersRequest, opts ...grpc.CallOption) (*ListOrdersResponse, error) {
	return invoke[ListOrdersResponse](ctx, c.cc, MethodListOrders, in, opts...)
}

func (c *orderServiceClient) UpdatePaymentStatus(ctx context.Context, in *UpdatePaymentStatusRequest, opts ...grpc.CallOption) (*Order, error) {
	return invoke[Order](ctx, c.cc, MethodUpdatePaymentStatus, in, opts...)
}

func (c *orderServiceClient) UpdateDeliveryStatus(ctx context.Context, in *UpdateDeliveryStatusRequest, opts ...grpc.CallOption) (*Delivery, error) {
	return invoke[Delivery](ctx, c.cc, MethodUpdateDeliveryStatus, in, opts...)
}
