package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/flightbuddy/api"
	"github.com/Domenick1991/flightbuddy/config"
	"github.com/Domenick1991/flightbuddy/internal/bootstrap"
	"github.com/Domenick1991/flightbuddy/internal/cache"
	"github.com/Domenick1991/flightbuddy/internal/kafka"
	"github.com/Domenick1991/flightbuddy/internal/logger"
	"github.com/Domenick1991/flightbuddy/internal/payment"
	"github.com/Domenick1991/flightbuddy/internal/payment/connect"
	"github.com/Domenick1991/flightbuddy/internal/payment/direct"
	"github.com/Domenick1991/flightbuddy/internal/repository"
	"github.com/Domenick1991/flightbuddy/internal/service/booking"
	"github.com/Domenick1991/flightbuddy/internal/service/matching"
	"github.com/Domenick1991/flightbuddy/internal/service/refund"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
)

func main() {
	// A missing .env is fine; the environment may already be populated.
	_ = godotenv.Load()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logg := logger.New(cfg.Log)
	if err := cfg.ValidateServer(); err != nil {
		logg.WithError(err).Fatal("invalid config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logg.WithError(err).Fatal("connect postgres")
	}
	defer pool.Close()

	redisCache := cache.NewRedisCache(cfg.Redis, time.Duration(cfg.Matching.CacheTTLSeconds)*time.Second)
	producer := kafka.NewProducer(cfg.Kafka.Brokers, logg)
	defer producer.Close()
	checkCtx, cancelCheck := context.WithTimeout(ctx, 5*time.Second)
	if err := producer.CheckConnection(checkCtx); err != nil {
		// Publishing is best effort; the API still serves without the broker.
		logg.WithError(err).Warn("kafka unreachable at startup")
	}
	cancelCheck()

	bookingRepo := repository.NewBookingRepository(pool)
	payoutRepo := repository.NewPayoutRepository(pool)
	companionRepo := repository.NewCompanionRepository(pool)
	sessionRepo := repository.NewCheckoutSessionRepository(pool)

	providerTimeout := time.Duration(cfg.Webhooks.ProviderTimeoutSeconds) * time.Second
	httpClient := &http.Client{Timeout: providerTimeout}
	methods := payment.NewRegistry(
		connect.NewAdapter(connect.NewClient(cfg.ProviderA, httpClient), sessionRepo, cfg.ProviderA.SessionScanLimit, logg),
		direct.NewAdapter(direct.NewClient(cfg.ProviderB, httpClient, direct.NewTokenCache())),
	)

	bookingService := booking.NewBookingService(
		booking.Repositories{
			Bookings:   bookingRepo,
			Pairings:   repository.NewPairingRepository(pool),
			Payouts:    payoutRepo,
			Companions: companionRepo,
			Sessions:   sessionRepo,
		},
		methods,
		logg,
		booking.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		booking.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
		booking.WithSeatLocks(redisCache, time.Duration(cfg.Pairing.SeatLockMinutes)*time.Minute),
	)
	matchingService := matching.NewMatchingService(bookingRepo, companionRepo, redisCache, logg)
	refundService := refund.NewRefundService(bookingRepo, payoutRepo, methods, logg,
		refund.WithProducer(producer, cfg.Kafka.BookingEventsTopic),
		refund.WithNotificationsTopic(cfg.Kafka.NotificationsTopic),
	)

	router := api.NewRouter(api.Handlers{
		Bookings:   api.NewBookingHandler(bookingService),
		Companions: api.NewCompanionHandler(matchingService),
		Webhooks: api.NewWebhookHandler(bookingService, methods, api.WebhookSettings{
			SigningSecret:   cfg.ProviderA.WebhookSecret,
			ProviderTimeout: providerTimeout,
			SuccessURL:      cfg.ProviderB.SuccessURL,
			FailureURL:      cfg.ProviderB.FailureURL,
		}, logg),
		Admin: api.NewAdminHandler(refundService, logg),
	}, api.RouterConfig{
		AdminSecret:    cfg.Admin.JWTSecret,
		AdminIssuer:    cfg.Admin.JWTIssuer,
		TrustedProxies: cfg.HTTP.TrustedProxies,
		RatePerSecond:  cfg.Webhooks.RatePerSecond,
		Burst:          cfg.Webhooks.Burst,
	}, logg)

	if err := bootstrap.Run(ctx, cfg, router, logg); err != nil {
		logg.WithError(err).Fatal("server error")
	}
}
