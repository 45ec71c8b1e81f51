package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/Domenick1991/flightbuddy/config"
	"github.com/grpc-ecosystem/grpc-gateway/v2/runtime"
	"github.com/sirupsen/logrus"
	httpSwagger "github.com/swaggo/http-swagger"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

// ServiceName is the name reported by the gRPC health service.
const ServiceName = "flightbuddy"

type Servers struct {
	grpcServer *grpc.Server
	health     *health.Server
	healthConn *grpc.ClientConn
	httpServer *http.Server
}

// Run starts the gRPC health server and the HTTP server (application routes, gateway
// health check and swagger UI) and blocks until ctx is canceled or a server fails.
func Run(ctx context.Context, cfg *config.Config, app http.Handler, log *logrus.Logger) error {
	s, err := newServers(cfg, app)
	if err != nil {
		return err
	}
	defer s.healthConn.Close()

	errCh := make(chan error, 2)

	lis, err := net.Listen("tcp", cfg.GRPC.Address)
	if err != nil {
		return fmt.Errorf("listen gRPC %s: %w", cfg.GRPC.Address, err)
	}
	go func() { errCh <- s.grpcServer.Serve(lis) }()

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	log.WithFields(logrus.Fields{
		"http": cfg.HTTP.Address,
		"grpc": cfg.GRPC.Address,
	}).Info("servers started")

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		log.Info("shutting down")
		s.health.Shutdown()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.httpServer.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown http server: %w", err)
		}
		s.grpcServer.GracefulStop()
		return nil
	}
}

func newServers(cfg *config.Config, app http.Handler) (*Servers, error) {
	grpcSrv := grpc.NewServer()
	healthSrv := health.NewServer()
	healthSrv.SetServingStatus(ServiceName, healthpb.HealthCheckResponse_SERVING)
	healthpb.RegisterHealthServer(grpcSrv, healthSrv)

	conn, err := grpc.NewClient(cfg.GRPC.Address, grpc.WithTransportCredentials(insecure.NewCredentials()))
	if err != nil {
		return nil, fmt.Errorf("dial health endpoint: %w", err)
	}
	gateway := runtime.NewServeMux(runtime.WithHealthzEndpoint(healthpb.NewHealthClient(conn)))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Address,
		Handler:           newHTTPHandler(cfg.HTTP, gateway, app),
		ReadHeaderTimeout: 10 * time.Second,
	}

	return &Servers{
		grpcServer: grpcSrv,
		health:     healthSrv,
		healthConn: conn,
		httpServer: httpSrv,
	}, nil
}

// newHTTPHandler routes /healthz to the gateway, the API docs to swagger and
// everything else to the application router.
func newHTTPHandler(cfg config.HTTPConfig, gateway, app http.Handler) http.Handler {
	handler := http.NewServeMux()
	handler.Handle("/healthz", gateway)

	if cfg.SwaggerDir != "" {
		fs := http.FileServer(http.Dir(cfg.SwaggerDir))
		handler.Handle("/swagger/", http.StripPrefix("/swagger/", fs))
		handler.Handle("/docs/", httpSwagger.Handler(httpSwagger.URL("/swagger/openapi.json")))
	}

	handler.Handle("/", app)
	return handler
}
