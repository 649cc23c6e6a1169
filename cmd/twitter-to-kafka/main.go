package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/djaytech/twitter-to-kafka-service/internal/config/twitter-to-kafka"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs"
	kafkaRepo "github.com/djaytech/twitter-to-kafka-service/internal/repository/kafka"
	"github.com/djaytech/twitter-to-kafka-service/internal/services/stream"
)

func main() {
	// init
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}

	// logger
	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting twitter-to-kafka-service",
		zap.String("bootstrap_servers", cfg.Kafka.BootstrapServers),
		zap.String("topic", cfg.Kafka.TopicName),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
	)

	// otel
	otelCloser, err := obs.SetupOTel(ctx, cfg.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	// metrics server; healthy once topics are provisioned
	var readiness obs.Readiness
	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, readiness.Check, l)

	// kafka
	prov, closeProv := newProvisioner(cfg, l)
	defer closeProv()
	producer := kafkaRepo.NewProducer(kafkaRepo.ProducerConfig{
		Brokers:  topicEndpoint(cfg),
		Topic:    cfg.Kafka.TopicName,
		ClientID: cfg.Kafka.ClientID,
		Logger:   l,
	})
	defer func() { _ = producer.Close() }()

	// wiring
	app := stream.NewApp(
		stream.NewKafkaStreamInitializer(prov, cfg.Kafka.TopicSpecs(), l),
		newRunner(cfg, producer, l),
		readiness.MarkReady,
		l,
	)

	// run
	err = app.Run(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		l.Error("app stopped", zap.Error(err))
	}

	// graceful shutdown
	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
	if err != nil && !errors.Is(err, context.Canceled) {
		_ = l.Sync()
		os.Exit(1)
	}
}
