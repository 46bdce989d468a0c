package clients

import (
	"go-storefront/pkg/config"
	grpcpkg "go-storefront/pkg/grpc"
	"go-storefront/pkg/tls"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"

	orderspb "go-storefront/api/orders/v1"
)

// Clients holds the gRPC clients of the gateway
type Clients struct {
	Orders orderspb.OrderServiceClient

	ordersConn *grpc.ClientConn
}

// NewClients dials the orders service
func NewClients(cfg *config.Config) (*Clients, error) {
	ordersConn, err := createConnection(cfg, cfg.OrdersGRPCAddr)
	if err != nil {
		return nil, err
	}

	return &Clients{
		Orders:     orderspb.NewOrderServiceClient(ordersConn),
		ordersConn: ordersConn,
	}, nil
}

// Close closes all gRPC connections
func (c *Clients) Close() error {
	if c.ordersConn != nil {
		return c.ordersConn.Close()
	}
	return nil
}

// createConnection dials addr with trace/auth propagation, using mTLS when enabled
func createConnection(cfg *config.Config, addr string) (*grpc.ClientConn, error) {
	creds := insecure.NewCredentials()
	if cfg.GRPCMTLSEnabled {
		var err error
		creds, err = tls.ClientCredentials(cfg.GRPCClientCert, cfg.GRPCClientKey, cfg.TLSCAFile)
		if err != nil {
			return nil, err
		}
	}

	return grpc.Dial(addr,
		grpc.WithTransportCredentials(creds),
		grpc.WithUnaryInterceptor(grpcpkg.UnaryClientInterceptor(cfg.GRPCTimeout)),
	)
}
