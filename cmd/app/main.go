package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/api"
	"github.com/mzilka/tripbooker/config"
	"github.com/mzilka/tripbooker/internal/bootstrap"
	"github.com/mzilka/tripbooker/internal/kafka"
	"github.com/mzilka/tripbooker/internal/persist"
	"github.com/mzilka/tripbooker/internal/remote"
	"github.com/mzilka/tripbooker/internal/repository"
	"github.com/mzilka/tripbooker/internal/service/bookingstate"
	"github.com/mzilka/tripbooker/internal/service/discount"
	"github.com/mzilka/tripbooker/internal/service/payment"
	"github.com/mzilka/tripbooker/internal/service/reservation"
	"github.com/mzilka/tripbooker/internal/service/upsell"
)

func main() {
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	cfgPath := os.Getenv("CONFIG_PATH")
	if cfgPath == "" {
		cfgPath = "config.yaml"
	}

	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.WithError(err).Fatal("failed to load config")
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	producer := kafka.NewProducer(cfg.Kafka.Brokers)
	defer producer.Close()

	session := os.Getenv("SESSION_ID")
	if session == "" {
		session = "default"
	}
	store := persist.NewRedisStore(cfg.Redis, session, time.Duration(cfg.Booking.PersistTTLMinutes)*time.Minute)
	defer store.Close()

	client := remote.NewClient(cfg.Remote, logger)

	machine := bookingstate.NewMachine(logger,
		bookingstate.WithStore(store),
		bookingstate.WithNotifier(kafka.NewNotifier(producer, cfg.Kafka.ActionsTopic, logger)),
		bookingstate.WithFavoritesLimit(cfg.Booking.FavoritesLimit),
	)
	applier := discount.NewApplier(client, machine, logger)
	advisor := upsell.NewAdvisor(logger,
		upsell.WithCooldown(time.Duration(cfg.Booking.UpsellCooldownDays)*24*time.Hour),
		upsell.WithNotifier(kafka.NewNotifier(producer, cfg.Kafka.ActionsTopic, logger)),
	)
	payments := payment.NewService(client, logger)
	journal := repository.NewSagaJournal(pool)
	saga := reservation.NewSaga(client, payments, machine, journal,
		kafka.NewNotifier(producer, cfg.Kafka.PurchasesTopic, logger), logger)

	handlers := bootstrap.Handlers{
		Trips:     api.NewTripHandler(machine, applier),
		Purchases: api.NewPurchaseHandler(saga),
		Upsell:    api.NewUpsellHandler(advisor),
	}

	if err := bootstrap.Run(ctx, cfg, handlers); err != nil {
		logger.WithError(err).Fatal("server error")
	}
}
