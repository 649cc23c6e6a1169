package kafka

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
)

type AdminOptions struct {
	ClientID    string
	DialTimeout time.Duration
	Timeout     time.Duration
	// MetadataTTL is how long the transport serves cached metadata.
	// Defaults to 1s.
	MetadataTTL time.Duration
	Logger      *zap.Logger
}

// Admin is a transient admin session. Its transport owns the broker
// connections and drops them on Close.
type Admin struct {
	c   *kafka.Client
	tr  *kafka.Transport
	log *zap.Logger
}

var _ topic.Admin = (*Admin)(nil)

func NewDialer(opts AdminOptions) topic.Dialer {
	return func(ctx context.Context, endpoint topic.Endpoint) (topic.Admin, error) {
		a, err := DialAdmin(ctx, endpoint, opts)
		if err != nil {
			return nil, err
		}
		return a, nil
	}
}

func DialAdmin(_ context.Context, endpoint topic.Endpoint, opts AdminOptions) (*Admin, error) {
	addrs := endpoint.Addrs()
	if len(addrs) == 0 {
		return nil, fmt.Errorf("%w: empty bootstrap servers", topic.ErrInvalidSpec)
	}
	if opts.DialTimeout <= 0 {
		opts.DialTimeout = 5 * time.Second
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 10 * time.Second
	}
	if opts.MetadataTTL <= 0 {
		opts.MetadataTTL = time.Second
	}
	log := opts.Logger
	if log == nil {
		log = zap.L()
	}
	tr := &kafka.Transport{
		ClientID:    opts.ClientID,
		DialTimeout: opts.DialTimeout,
		IdleTimeout: 30 * time.Second,
		MetadataTTL: opts.MetadataTTL,
	}
	return &Admin{
		c:   &kafka.Client{Addr: kafka.TCP(addrs...), Timeout: opts.Timeout, Transport: tr},
		tr:  tr,
		log: log.With(zap.String("component", "kafka.admin"), zap.Strings("brokers", addrs)),
	}, nil
}

// Metadata lists every topic on the cluster. Topics are never named in the
// request so brokers with auto.create.topics.enable do not create them.
func (a *Admin) Metadata(ctx context.Context) (*topic.Metadata, error) {
	resp, err := a.c.Metadata(ctx, &kafka.MetadataRequest{})
	if err != nil {
		a.log.Debug("metadata request failed", zap.Error(err))
		return nil, connErr("metadata", err)
	}
	return metadataFromResponse(resp), nil
}

func metadataFromResponse(resp *kafka.MetadataResponse) *topic.Metadata {
	md := &topic.Metadata{
		Brokers: len(resp.Brokers),
		Topics:  make(map[string]topic.Description, len(resp.Topics)),
	}
	for _, t := range resp.Topics {
		if t.Error != nil {
			if errors.Is(t.Error, kafka.UnknownTopicOrPartition) {
				continue
			}
			md.Topics[t.Name] = topic.Description{Partitions: len(t.Partitions)}
			continue
		}
		md.Topics[t.Name] = topic.Description{
			Partitions: len(t.Partitions),
			Ready:      len(t.Partitions) > 0 && allHaveLeader(t.Partitions),
		}
	}
	return md
}

func allHaveLeader(parts []kafka.Partition) bool {
	for _, p := range parts {
		if p.Error != nil || p.Leader.ID == -1 {
			return false
		}
	}
	return true
}

func (a *Admin) CreateTopics(ctx context.Context, specs []topic.Spec) (map[string]error, error) {
	cfgs := make([]kafka.TopicConfig, 0, len(specs))
	for _, s := range specs {
		cfgs = append(cfgs, kafka.TopicConfig{
			Topic:             s.Name,
			NumPartitions:     s.Partitions,
			ReplicationFactor: s.ReplicationFactor,
		})
	}
	resp, err := a.c.CreateTopics(ctx, &kafka.CreateTopicsRequest{Topics: cfgs})
	if err != nil {
		a.log.Debug("create topics request failed", zap.Error(err))
		return nil, connErr("create topics", err)
	}
	out := make(map[string]error, len(specs))
	for _, s := range specs {
		out[s.Name] = mapTopicError(resp.Errors[s.Name])
	}
	return out, nil
}

func (a *Admin) Close() error {
	a.tr.CloseIdleConnections()
	return nil
}

func mapTopicError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, kafka.TopicAlreadyExists) {
		return fmt.Errorf("%w: %v", topic.ErrTopicAlreadyExists, err)
	}
	var kerr kafka.Error
	if errors.As(err, &kerr) && kerr.Temporary() {
		return fmt.Errorf("%w: %v", topic.ErrConnection, err)
	}
	return fmt.Errorf("%w: %v", topic.ErrTopicRejected, err)
}

// connErr classifies request-level failures. Only non-temporary protocol
// errors (e.g. authorization) are terminal.
func connErr(op string, err error) error {
	var kerr kafka.Error
	if errors.As(err, &kerr) && !kerr.Temporary() {
		return fmt.Errorf("%s: %w", op, err)
	}
	return fmt.Errorf("%s: %w: %w", op, topic.ErrConnection, err)
}
