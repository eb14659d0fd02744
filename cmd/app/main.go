package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/pitchbooking/api"
	"github.com/Domenick1991/pitchbooking/config"
	"github.com/Domenick1991/pitchbooking/internal/bootstrap"
	"github.com/Domenick1991/pitchbooking/internal/cache"
	"github.com/Domenick1991/pitchbooking/internal/kafka"
	"github.com/Domenick1991/pitchbooking/internal/metrics"
	"github.com/Domenick1991/pitchbooking/internal/payment/iyzico"
	"github.com/Domenick1991/pitchbooking/internal/repository"
	"github.com/Domenick1991/pitchbooking/internal/service/availability"
	"github.com/Domenick1991/pitchbooking/internal/service/booking"
	"github.com/Domenick1991/pitchbooking/internal/service/payment"
	"github.com/Domenick1991/pitchbooking/internal/service/slotlock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "pitchbooking").Logger()

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal().Err(err).Msg("load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.Fatal().Err(err).Msg("connect postgres")
	}
	defer pool.Close()

	store := cache.NewRedisStore(cfg.Redis)
	defer store.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	metrics.Register()

	pitchRepo := repository.NewPitchRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)
	transactionRepo := repository.NewTransactionRepository(pool)

	lockService := slotlock.NewService(
		store,
		bookingRepo,
		time.Duration(cfg.Booking.LockDurationSeconds)*time.Second,
		time.Duration(cfg.Booking.GracePeriodSeconds)*time.Second,
		time.Duration(cfg.Booking.BookedMarkerSeconds)*time.Second,
		logger,
	)
	availabilityService := availability.NewService(
		pitchRepo,
		bookingRepo,
		store,
		time.Duration(cfg.Booking.AvailabilityCacheTTL)*time.Second,
		logger,
	)
	bookingService := booking.NewService(
		bookingRepo,
		availabilityService,
		lockService,
		store,
		producer,
		cfg.Kafka.NotificationsTopic,
		time.Duration(cfg.Booking.PendingTTLMinutes)*time.Minute,
		logger,
	)
	paymentService := payment.NewService(
		bookingRepo,
		transactionRepo,
		iyzico.NewClient(cfg.Payment),
		lockService,
		store,
		producer,
		cfg.Kafka.NotificationsTopic,
		cfg.Payment.CallbackURL,
		logger,
	)

	handlers := bootstrap.Handlers{
		Availability: api.NewAvailabilityHandler(availabilityService),
		Locks:        api.NewLockHandler(lockService),
		Bookings:     api.NewBookingHandler(bookingService, paymentService),
		Payments:     api.NewPaymentHandler(paymentService),
	}

	if err := bootstrap.Run(ctx, cfg, handlers); err != nil {
		logger.Fatal().Err(err).Msg("server error")
	}
}
