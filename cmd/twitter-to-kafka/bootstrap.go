package main

import (
	"go.uber.org/zap"

	config "github.com/djaytech/twitter-to-kafka-service/internal/config/twitter-to-kafka"
	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs/retry"
	kafkaRepo "github.com/djaytech/twitter-to-kafka-service/internal/repository/kafka"
	"github.com/djaytech/twitter-to-kafka-service/internal/repository/schemaregistry"
	"github.com/djaytech/twitter-to-kafka-service/internal/services/provisioner"
	"github.com/djaytech/twitter-to-kafka-service/internal/services/stream"
)

func topicEndpoint(cfg *config.Config) topic.Endpoint {
	return topic.Endpoint(cfg.Kafka.BootstrapServers)
}

func newProvisioner(cfg *config.Config, l *zap.Logger) (*provisioner.Provisioner, func()) {
	closer := func() {}
	var opts []provisioner.Option
	if cfg.Kafka.SchemaRegistryURL != "" {
		reg := schemaregistry.New(schemaregistry.Config{URL: cfg.Kafka.SchemaRegistryURL, Timeout: cfg.Provision.RequestTimeout})
		closer = reg.Close
		opts = append(opts, provisioner.WithSchemaRegistry(reg))
	}
	dial := kafkaRepo.NewDialer(kafkaRepo.AdminOptions{
		ClientID:    cfg.Kafka.ClientID,
		Timeout:     cfg.Provision.RequestTimeout,
		MetadataTTL: cfg.Provision.PollInterval,
		Logger:      l,
	})
	policy := retry.FromConfig("provision", cfg.Retry, topic.Retryable, l)
	return provisioner.New(cfg.AsProvisionerConfig(), dial, policy, l, opts...), closer
}

func newRunner(cfg *config.Config, pub stream.Publisher, l *zap.Logger) stream.Runner {
	sc := stream.Config{
		Keywords:       cfg.Twitter.Keywords,
		WelcomeMessage: cfg.Twitter.WelcomeMessage,
		Sleep:          cfg.Twitter.MockSleep,
		MinTweetLength: cfg.Twitter.MockMinTweetLength,
		MaxTweetLength: cfg.Twitter.MockMaxTweetLength,
	}
	if cfg.Twitter.EnableMockTweets {
		return stream.NewMockTweetRunner(sc, pub, l)
	}
	return stream.NewKeywordRunner(sc, l)
}
