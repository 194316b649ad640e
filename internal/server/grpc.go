package server

import (
	"log/slog"

	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"

	"github.com/joseph-ayodele/ecoscore/constants"
	"github.com/joseph-ayodele/ecoscore/internal/auth"
	"github.com/joseph-ayodele/ecoscore/internal/observability"
)

// maxMessageBytes leaves room for a base64 PDF at the size cap.
const maxMessageBytes = constants.MaxPDFBytes*4/3 + 1<<20

// NewGRPCServer builds a server with the EcoScore, health and reflection
// services registered. The returned health server starts SERVING.
func NewGRPCServer(svc EcoScoreServer, verifier auth.Verifier, metrics *observability.Metrics, logger *slog.Logger) (*grpc.Server, *health.Server) {
	if logger == nil {
		logger = slog.Default()
	}
	if verifier == nil {
		verifier = auth.Static{UserID: auth.SkipAuthUserID}
	}
	s := grpc.NewServer(
		grpc.MaxRecvMsgSize(maxMessageBytes),
		grpc.ChainUnaryInterceptor(
			RequestIDInterceptor(),
			LoggingInterceptor(logger, metrics),
			AuthInterceptor(verifier, logger),
			RecoveryInterceptor(logger),
		),
	)
	RegisterEcoScoreServer(s, svc)

	hs := health.NewServer()
	healthpb.RegisterHealthServer(s, hs)
	hs.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	hs.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)

	// grpcurl
	reflection.Register(s)
	return s, hs
}
