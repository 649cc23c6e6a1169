package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	config "github.com/djaytech/twitter-to-kafka-service/internal/config/twitter-to-kafka"
	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs/retry"
	kafkaRepo "github.com/djaytech/twitter-to-kafka-service/internal/repository/kafka"
	"github.com/djaytech/twitter-to-kafka-service/internal/repository/schemaregistry"
	"github.com/djaytech/twitter-to-kafka-service/internal/services/provisioner"
)

// kafka-init provisions the configured topics once and exits; meant to run
// as an init container ahead of the service.
func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(os.Getenv("CONFIG_PATH"))
	if err != nil {
		log.Fatal(err)
	}
	cfg.App.Name = "kafka-init"

	l, err := obs.NewLogger(cfg.AsLoggerConfig())
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	specs := cfg.Kafka.TopicSpecs()
	l.Info("kafka-init starting",
		zap.String("bootstrap_servers", cfg.Kafka.BootstrapServers),
		zap.Strings("topics", topic.Names(specs)),
	)

	var opts []provisioner.Option
	if cfg.Kafka.SchemaRegistryURL != "" {
		reg := schemaregistry.New(schemaregistry.Config{URL: cfg.Kafka.SchemaRegistryURL, Timeout: cfg.Provision.RequestTimeout})
		defer reg.Close()
		opts = append(opts, provisioner.WithSchemaRegistry(reg))
	}
	p := provisioner.New(
		cfg.AsProvisionerConfig(),
		kafkaRepo.NewDialer(kafkaRepo.AdminOptions{
			ClientID:    cfg.Kafka.ClientID,
			Timeout:     cfg.Provision.RequestTimeout,
			MetadataTTL: cfg.Provision.PollInterval,
			Logger:      l,
		}),
		retry.FromConfig("provision", cfg.Retry, topic.Retryable, l),
		l,
		opts...,
	)

	if err := p.EnsureReady(ctx, specs); err != nil {
		l.Fatal("kafka-init failed", zap.Error(err))
	}
	l.Info("kafka-init ok")
}
