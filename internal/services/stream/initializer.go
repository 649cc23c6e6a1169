package stream

import (
	"context"

	"go.uber.org/zap"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
)

type Initializer interface {
	Init(ctx context.Context) error
}

type Provisioner interface {
	EnsureReady(ctx context.Context, specs []topic.Spec) error
}

// KafkaStreamInitializer makes sure the topics the stream writes to exist
// before anything is produced.
type KafkaStreamInitializer struct {
	p     Provisioner
	specs []topic.Spec
	log   *zap.Logger
}

func NewKafkaStreamInitializer(p Provisioner, specs []topic.Spec, log *zap.Logger) *KafkaStreamInitializer {
	return &KafkaStreamInitializer{p: p, specs: specs, log: log.With(zap.String("component", "stream.initializer"))}
}

func (i *KafkaStreamInitializer) Init(ctx context.Context) error {
	if err := i.p.EnsureReady(ctx, i.specs); err != nil {
		return err
	}
	i.log.Info("topics ready for operations", zap.Strings("topics", topic.Names(i.specs)))
	return nil
}
