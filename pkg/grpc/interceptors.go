package grpc

import (
	"context"
	"fmt"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"go-storefront/pkg/errors"
	"go-storefront/pkg/logger"
)

const (
	// TraceIDMetadataKey is the metadata key for trace ID
	TraceIDMetadataKey = "x-trace-id"
	// AuthorizationMetadataKey carries the caller's bearer token from the gateway
	AuthorizationMetadataKey = "authorization"
)

// UnaryServerInterceptor creates a server interceptor for logging, tracing, panic recovery and error mapping
func UnaryServerInterceptor(log *logger.Logger, timeout time.Duration) grpc.UnaryServerInterceptor {
	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		start := time.Now()

		traceID := extractMetadata(ctx, TraceIDMetadataKey)
		if traceID == "" {
			traceID = uuid.New().String()
		}
		ctx = logger.WithTraceIDContext(ctx, traceID)

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		defer func() {
			if r := recover(); r != nil {
				log.WithContext(ctx).Error("grpc panic recovered",
					zap.String("method", info.FullMethod),
					zap.Any("panic", r),
					zap.String("stack", string(debug.Stack())),
				)
				resp, err = nil, errors.GRPCStatus(errors.NewInternal("panic", fmt.Errorf("%v", r)))
			}
		}()

		resp, err = handler(ctx, req)

		logFields := []zap.Field{
			zap.String("method", info.FullMethod),
			zap.Duration("duration", time.Since(start)),
		}

		if err != nil {
			grpcErr := errors.GRPCStatus(err)
			st, _ := status.FromError(grpcErr)
			logFields = append(logFields, zap.String("grpc_code", st.Code().String()), zap.Error(err))
			log.WithContext(ctx).Error("grpc request failed", logFields...)
			return nil, grpcErr
		}

		log.WithContext(ctx).Info("grpc request completed", logFields...)
		return resp, nil
	}
}

// UnaryClientInterceptor creates a client interceptor that propagates trace id and bearer token
func UnaryClientInterceptor(timeout time.Duration) grpc.UnaryClientInterceptor {
	return func(
		ctx context.Context,
		method string,
		req, reply interface{},
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		if traceID := logger.GetTraceID(ctx); traceID != "" {
			ctx = metadata.AppendToOutgoingContext(ctx, TraceIDMetadataKey, traceID)
		}

		if timeout > 0 {
			var cancel context.CancelFunc
			ctx, cancel = context.WithTimeout(ctx, timeout)
			defer cancel()
		}

		if err := invoker(ctx, method, req, reply, cc, opts...); err != nil {
			return errors.FromGRPCStatus(err)
		}
		return nil
	}
}

// WithAuthorization attaches a bearer token to outgoing gRPC metadata
func WithAuthorization(ctx context.Context, header string) context.Context {
	if header == "" {
		return ctx
	}
	return metadata.AppendToOutgoingContext(ctx, AuthorizationMetadataKey, header)
}

// Authorization returns the bearer header received from the caller, if any
func Authorization(ctx context.Context) string {
	return extractMetadata(ctx, AuthorizationMetadataKey)
}

func extractMetadata(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}

	values := md.Get(key)
	if len(values) > 0 {
		return values[0]
	}
	return ""
}
