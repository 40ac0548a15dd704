package app

import (
	"context"
	"net"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/libtrack/libtrack/config"
	"github.com/libtrack/libtrack/internal/handler"
	"github.com/libtrack/libtrack/internal/repository"
	"github.com/libtrack/libtrack/internal/server"
	"github.com/libtrack/libtrack/internal/service"
	"github.com/libtrack/libtrack/migrations"
	"github.com/libtrack/libtrack/pkg/kafka"
	"github.com/libtrack/libtrack/pkg/logger"
	"github.com/libtrack/libtrack/pkg/postgres"
)

func Run(cfg *config.Config) {
	log := logger.NewLogger(cfg.Log, "library")

	var (
		db   *sqlx.DB
		repo repository.Repository
		err  error
	)
	if cfg.Database.Host != "" {
		db, err = postgres.NewPostgresDB(context.Background(), &cfg.Database, migrations.MigrationFiles)
		if err != nil {
			log.Fatal("db init", zap.Error(err))
		}
		repo, err = repository.NewRepository(db, log)
		if err != nil {
			log.Fatal("repo", zap.Error(err))
		}
	} else {
		log.Info("no database configured, using in-memory store")
		repo = repository.NewMemoryRepository()
	}

	ops := []service.Option{
		service.WithStrictStatus(cfg.Service.StrictStatus),
	}

	statsSvc := service.NewStatsService(log)
	consumeCtx, stopConsume := context.WithCancel(context.Background())
	defer stopConsume()

	if cfg.Kafka.Enabled() {
		producer, err := kafka.NewProducer(cfg.Kafka)
		if err != nil {
			log.Fatal("kafka.NewProducer", zap.Error(err))
		}
		defer producer.Close()
		ops = append(ops, service.WithProducer(producer))

		consumer, err := kafka.NewConsumer(cfg.Kafka, kafka.StatsConsumerGroup)
		if err != nil {
			log.Fatal("kafka.NewConsumer", zap.Error(err))
		}
		go kafka.Consume(consumeCtx, consumer, handler.NewConsumer(statsSvc.Record, log), kafka.LoanTopic, log)
	}

	svc := service.NewService(repo, log, ops...)

	h := handler.New(svc, statsSvc, log)
	srv := server.NewServer(cfg.Server, h.NewRouter())
	log.Info("http server start ON: ",
		zap.String("addr",
			net.JoinHostPort(cfg.Server.Host, cfg.Server.Port)))
	go func() {
		if err := srv.Run(); err != nil {
			log.Error("server run", zap.Error(err))
		}
	}()

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM, syscall.SIGINT)
	termSig := <-sig

	log.Debug("Graceful shutdown", zap.Any("signal", termSig))

	closeCtx, cancel := context.WithTimeout(context.Background(), time.Second*5)
	defer cancel()

	if err = srv.Stop(closeCtx); err != nil {
		log.DPanic("srv.Stop", zap.Error(err))
	}
	stopConsume()
	if db != nil {
		db.Close()
	}
	log.Info("Graceful shutdown finished")
}
