package twitter_to_kafka_config

import (
	"strings"

	"github.com/spf13/viper"
)

func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")
	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, err
		}
	}

	v.SetDefault("app.name", "twitter-to-kafka-service")
	v.SetDefault("app.env", "dev")
	v.SetDefault("app.version", "")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.pretty", false)

	v.SetDefault("otel.enable", false)
	v.SetDefault("otel.service_name", "twitter-to-kafka-service")
	v.SetDefault("otel.sample_ratio", 1.0)
	v.SetDefault("otel.otlp_endpoint", "localhost:4317")

	v.SetDefault("kafka.bootstrap_servers", "localhost:19092,localhost:29092,localhost:39092")
	v.SetDefault("kafka.client_id", "twitter-to-kafka-service")
	v.SetDefault("kafka.schema_registry_url", "http://localhost:8081")
	v.SetDefault("kafka.topic_name", "twitter-topic")
	v.SetDefault("kafka.topic_names_to_create", []string{"twitter-topic"})
	v.SetDefault("kafka.num_of_partitions", 3)
	v.SetDefault("kafka.replication_factor", 3)

	v.SetDefault("retry.max_attempts", 3)
	v.SetDefault("retry.initial_interval", "1s")
	v.SetDefault("retry.max_interval", "10s")
	v.SetDefault("retry.multiplier", 2.0)
	v.SetDefault("retry.jitter", 0.2)

	v.SetDefault("provision.poll_interval", "1s")
	v.SetDefault("provision.poll_timeout", "30s")
	v.SetDefault("provision.request_timeout", "10s")
	v.SetDefault("provision.deadline", "0s")

	v.SetDefault("twitter.keywords", []string{"Go", "Kafka", "Microservices"})
	v.SetDefault("twitter.welcome_message", "Hello microservices!")
	v.SetDefault("twitter.enable_mock_tweets", true)
	v.SetDefault("twitter.mock_sleep", "10s")
	v.SetDefault("twitter.mock_min_tweet_length", 5)
	v.SetDefault("twitter.mock_max_tweet_length", 15)

	v.SetDefault("server.metrics_addr", ":8084")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
