package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/mzilka/tripbooker/config"
	"github.com/mzilka/tripbooker/internal/email"
	"github.com/mzilka/tripbooker/internal/kafka"
	"github.com/mzilka/tripbooker/internal/repository"
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

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	pool, err := pgxpool.New(ctx, cfg.Database.DSN())
	if err != nil {
		logger.WithError(err).Fatal("failed to connect to postgres")
	}
	defer pool.Close()

	journal := repository.NewSagaJournal(pool)

	consumer := kafka.NewConsumer(cfg.Kafka.Brokers, cfg.Kafka.GroupID, cfg.Kafka.PurchasesTopic, logger)
	defer consumer.Close()

	emailSender := email.NewSender()

	go func() {
		if err := consumer.ConsumePurchases(ctx, emailSender.Send); err != nil {
			logger.WithError(err).Error("consumer stopped")
		}
	}()

	sweepTicker := time.NewTicker(time.Duration(cfg.Worker.StaleSagaSweepMinutes) * time.Minute)
	defer sweepTicker.Stop()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)

	for {
		select {
		case <-sweepTicker.C:
			cutoff := time.Now().Add(-time.Duration(cfg.Worker.StaleSagaSweepMinutes) * time.Minute)
			stale, err := journal.UnfinishedSagas(ctx, cutoff)
			if err != nil {
				logger.WithError(err).Error("failed to sweep stale sagas")
				continue
			}
			for _, s := range stale {
				logger.WithFields(logrus.Fields{
					"saga_id":     s.SagaID,
					"ticket_kind": s.TicketKind,
					"ticket_ids":  s.TicketIDs,
					"recorded_at": s.RecordedAt,
				}).Warn("saga committed a bucket but never finished")
			}
		case s := <-sig:
			logger.WithField("signal", s.String()).Info("shutting down")
			return
		}
	}
}
