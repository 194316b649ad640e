package server

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/metadata"
	"google.golang.org/grpc/status"

	"github.com/joseph-ayodele/ecoscore/internal/auth"
	"github.com/joseph-ayodele/ecoscore/internal/common"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
)

const (
	requestIDHeader = "x-request-id"
	authHeader      = "authorization"
	healthPrefix    = "/grpc.health.v1.Health/"
	reflectPrefix   = "/grpc.reflection."
)

// RequestIDInterceptor tags the context with the caller's x-request-id, or a
// fresh one, and echoes it back in the response header.
func RequestIDInterceptor() grpc.UnaryServerInterceptor {
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		id := firstMD(ctx, requestIDHeader)
		if id == "" {
			id = uuid.NewString()
		}
		_ = grpc.SetHeader(ctx, metadata.Pairs(requestIDHeader, id))
		return handler(common.WithRequestID(ctx, id), req)
	}
}

// AuthInterceptor verifies the bearer token and stores the caller's user id.
// Health and reflection calls pass through.
func AuthInterceptor(v auth.Verifier, logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		if isInfraMethod(info.FullMethod) {
			return handler(ctx, req)
		}
		claims, err := v.Verify(ctx, auth.BearerToken(firstMD(ctx, authHeader)))
		if err != nil {
			logger.Warn("auth.rejected", "method", info.FullMethod, "req_id", common.RequestIDFromContext(ctx), "error", err)
			return nil, common.ToStatus(err)
		}
		return handler(common.WithUserID(ctx, claims.UserID), req)
	}
}

// LoggingInterceptor logs each call and records its latency by status code.
func LoggingInterceptor(logger *slog.Logger, metrics *observability.Metrics) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (any, error) {
		start := time.Now()
		resp, err := handler(ctx, req)
		code := status.Code(err)
		metrics.GRPCRequest(info.FullMethod, code.String(), time.Since(start))

		attrs := []any{
			"method", info.FullMethod,
			"code", code.String(),
			"req_id", common.RequestIDFromContext(ctx),
			"elapsed_ms", time.Since(start).Milliseconds(),
		}
		if err != nil {
			logger.Warn("grpc.request.failed", append(attrs, "error", err)...)
		} else if !isInfraMethod(info.FullMethod) {
			logger.Info("grpc.request.ok", attrs...)
		}
		return resp, err
	}
}

// RecoveryInterceptor turns a handler panic into codes.Internal so one bad
// request cannot take the process down.
func RecoveryInterceptor(logger *slog.Logger) grpc.UnaryServerInterceptor {
	if logger == nil {
		logger = slog.Default()
	}
	return func(ctx context.Context, req any, info *grpc.UnaryServerInfo, handler grpc.UnaryHandler) (resp any, err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("grpc.request.panic", "method", info.FullMethod,
					"req_id", common.RequestIDFromContext(ctx), "panic", r)
				resp, err = nil, status.Error(codes.Internal, "internal error")
			}
		}()
		return handler(ctx, req)
	}
}

func isInfraMethod(m string) bool {
	return strings.HasPrefix(m, healthPrefix) || strings.HasPrefix(m, reflectPrefix)
}

func firstMD(ctx context.Context, key string) string {
	md, ok := metadata.FromIncomingContext(ctx)
	if !ok {
		return ""
	}
	if v := md.Get(key); len(v) > 0 {
		return strings.TrimSpace(v[0])
	}
	return ""
}
