package interceptor

import (
	"context"
	"time"

	"google.golang.org/grpc"
	"google.golang.org/grpc/status"

	"github.com/patric-chuzhbe/userapi/internal/logger"
)

// UnaryLoggingInterceptor logs unary gRPC calls with method, duration and status.
// Methods listed in skippedMethods are served without logging; health probes
// from orchestrators are frequent enough to drown everything else.
func UnaryLoggingInterceptor(skippedMethods []string) grpc.UnaryServerInterceptor {
	skipped := make(map[string]struct{}, len(skippedMethods))
	for _, m := range skippedMethods {
		skipped[m] = struct{}{}
	}

	return func(
		ctx context.Context,
		req interface{},
		info *grpc.UnaryServerInfo,
		handler grpc.UnaryHandler,
	) (resp interface{}, err error) {
		if _, ok := skipped[info.FullMethod]; ok {
			return handler(ctx, req)
		}

		start := time.Now()

		resp, err = handler(ctx, req)

		duration := time.Since(start)
		st, _ := status.FromError(err)

		logger.Log.Infow(
			"gRPC request",
			"method", info.FullMethod,
			"duration", duration,
			"code", st.Code().String(),
			"message", st.Message(),
		)

		return resp, err
	}
}
