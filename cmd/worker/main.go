package main

import (
	"context"
	"encoding/json"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Domenick1991/pitchbooking/config"
	"github.com/Domenick1991/pitchbooking/internal/cache"
	"github.com/Domenick1991/pitchbooking/internal/email"
	"github.com/Domenick1991/pitchbooking/internal/kafka"
	"github.com/Domenick1991/pitchbooking/internal/repository"
	"github.com/Domenick1991/pitchbooking/internal/service/availability"
	"github.com/Domenick1991/pitchbooking/internal/service/booking"
	"github.com/Domenick1991/pitchbooking/internal/service/slotlock"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog"
	kafkaGo "github.com/segmentio/kafka-go"
)

func main() {
	logger := zerolog.New(os.Stderr).With().Timestamp().Str("service", "pitchbooking-worker").Logger()

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

	pitchRepo := repository.NewPitchRepository(pool)
	bookingRepo := repository.NewBookingRepository(pool)

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

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.NotificationsTopic)
	defer consumer.Close()

	sender := email.NewSender(logger)

	go func() {
		if err := consumer.Consume(ctx, func(ctx context.Context, msg kafkaGo.Message) error {
			var event kafka.BookingEvent
			if err := json.Unmarshal(msg.Value, &event); err != nil {
				logger.Warn().Err(err).Msg("decode booking event")
				return nil
			}
			return sender.Send(ctx, event)
		}); err != nil {
			logger.Warn().Err(err).Msg("consumer stopped")
		}
	}()

	sweep := time.NewTicker(time.Duration(cfg.Worker.ExpirationSweepMinutes) * time.Minute)
	defer sweep.Stop()

	for {
		select {
		case <-sweep.C:
			expired, err := bookingService.ExpirePending(ctx)
			if err != nil {
				logger.Error().Err(err).Msg("expire pending bookings")
				continue
			}
			if len(expired) > 0 {
				logger.Info().Int("count", len(expired)).Msg("expired pending bookings")
			}
		case <-ctx.Done():
			logger.Info().Msg("shutting down")
			return
		}
	}
}
