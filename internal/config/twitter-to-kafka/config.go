package twitter_to_kafka_config

import (
	"fmt"
	"strings"
	"time"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs/retry"
	"github.com/djaytech/twitter-to-kafka-service/internal/services/provisioner"
)

type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

type OTEL struct {
	Enable       bool    `mapstructure:"enable"`
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SampleRatio  float64 `mapstructure:"sample_ratio"`
}

type Kafka struct {
	BootstrapServers   string   `mapstructure:"bootstrap_servers"`
	ClientID           string   `mapstructure:"client_id"`
	SchemaRegistryURL  string   `mapstructure:"schema_registry_url"`
	TopicName          string   `mapstructure:"topic_name"`
	TopicNamesToCreate []string `mapstructure:"topic_names_to_create"`
	NumOfPartitions    int      `mapstructure:"num_of_partitions"`
	ReplicationFactor  int      `mapstructure:"replication_factor"`
	// Topics overrides the per-name defaults above when set in the file.
	Topics []topic.Spec `mapstructure:"topics"`
}

type Provision struct {
	PollInterval   time.Duration `mapstructure:"poll_interval"`
	PollTimeout    time.Duration `mapstructure:"poll_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`
	Deadline       time.Duration `mapstructure:"deadline"`
}

type Twitter struct {
	Keywords           []string      `mapstructure:"keywords"`
	WelcomeMessage     string        `mapstructure:"welcome_message"`
	EnableMockTweets   bool          `mapstructure:"enable_mock_tweets"`
	MockSleep          time.Duration `mapstructure:"mock_sleep"`
	MockMinTweetLength int           `mapstructure:"mock_min_tweet_length"`
	MockMaxTweetLength int           `mapstructure:"mock_max_tweet_length"`
}

type Server struct {
	MetricsAddr string `mapstructure:"metrics_addr"`
}

type Config struct {
	App       App          `mapstructure:"app"`
	Log       Log          `mapstructure:"log"`
	OTEL      OTEL         `mapstructure:"otel"`
	Kafka     Kafka        `mapstructure:"kafka"`
	Retry     retry.Config `mapstructure:"retry"`
	Provision Provision    `mapstructure:"provision"`
	Twitter   Twitter      `mapstructure:"twitter"`
	Server    Server       `mapstructure:"server"`
}

func (c *Config) AsLoggerConfig() *obs.LogConfig {
	return &obs.LogConfig{
		Level:  c.Log.Level,
		Pretty: c.Log.Pretty,
		App:    c.App.Name,
		Env:    c.App.Env,
		Ver:    c.App.Version,
	}
}

func (c *Config) AsOTELConfig() *obs.OTELConfig {
	return &obs.OTELConfig{
		Enable:         c.OTEL.Enable,
		Endpoint:       c.OTEL.OTLPEndpoint,
		ServiceName:    c.OTEL.ServiceName,
		ServiceVersion: c.App.Version,
		SampleRatio:    c.OTEL.SampleRatio,
	}
}

func (c *Config) AsProvisionerConfig() provisioner.Config {
	return provisioner.Config{
		Endpoint:       topic.Endpoint(c.Kafka.BootstrapServers),
		PollInterval:   c.Provision.PollInterval,
		PollTimeout:    c.Provision.PollTimeout,
		RequestTimeout: c.Provision.RequestTimeout,
		Deadline:       c.Provision.Deadline,
	}
}

// TopicSpecs is the full list of topics the service needs.
func (k *Kafka) TopicSpecs() []topic.Spec {
	if len(k.Topics) > 0 {
		return k.Topics
	}
	out := make([]topic.Spec, 0, len(k.TopicNamesToCreate))
	for _, name := range k.TopicNamesToCreate {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		out = append(out, topic.Spec{
			Name:              name,
			Partitions:        k.NumOfPartitions,
			ReplicationFactor: k.ReplicationFactor,
		})
	}
	return out
}

func (c *Config) Validate() error {
	if len(topic.Endpoint(c.Kafka.BootstrapServers).Addrs()) == 0 {
		return ErrConfig("kafka.bootstrap_servers is empty")
	}
	if c.Kafka.TopicName == "" {
		return ErrConfig("kafka.topic_name is empty")
	}
	if err := topic.Validate(c.Kafka.TopicSpecs()); err != nil {
		return ErrConfig(err.Error())
	}
	if c.Retry.MaxAttempts <= 0 {
		return ErrConfig("retry.max_attempts must be positive")
	}
	if c.Retry.Multiplier < 1 {
		return ErrConfig("retry.multiplier must be >= 1")
	}
	if c.Retry.InitialInterval <= 0 || c.Retry.MaxInterval < c.Retry.InitialInterval {
		return ErrConfig(fmt.Sprintf("retry.initial_interval=%s max_interval=%s", c.Retry.InitialInterval, c.Retry.MaxInterval))
	}
	if c.Provision.PollInterval <= 0 || c.Provision.PollTimeout < c.Provision.PollInterval {
		return ErrConfig(fmt.Sprintf("provision.poll_interval=%s poll_timeout=%s", c.Provision.PollInterval, c.Provision.PollTimeout))
	}
	if c.Provision.Deadline != 0 && c.Provision.Deadline < c.Provision.PollTimeout {
		return ErrConfig(fmt.Sprintf("provision.deadline=%s is below poll_timeout=%s", c.Provision.Deadline, c.Provision.PollTimeout))
	}
	if c.Twitter.EnableMockTweets && (c.Twitter.MockMinTweetLength <= 0 || c.Twitter.MockMaxTweetLength < c.Twitter.MockMinTweetLength) {
		return ErrConfig("twitter.mock_min_tweet_length/mock_max_tweet_length out of range")
	}
	return nil
}

type ErrConfig string

func (e ErrConfig) Error() string { return "config: " + string(e) }
