package kafka

import (
	"fmt"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

type mapCarrierHeaders map[string]string

func (m mapCarrierHeaders) Get(k string) string { return m[k] }
func (m mapCarrierHeaders) Set(k, v string)     { m[k] = v }
func (m mapCarrierHeaders) Keys() []string {
	ks := make([]string, 0, len(m))
	for k := range m {
		ks = append(ks, k)
	}
	return ks
}
func (m mapCarrierHeaders) ToKafka() []kafka.Header {
	hs := make([]kafka.Header, 0, len(m))
	for k, v := range m {
		hs = append(hs, kafka.Header{Key: k, Value: []byte(v)})
	}
	return hs
}

// zapKafkaLogger routes kafka-go's printf logging into zap; regular
// messages go to debug since the writer is chatty.
func zapKafkaLogger(l *zap.Logger, errors bool) kafka.LoggerFunc {
	return func(msg string, args ...interface{}) {
		if errors {
			l.Warn(fmt.Sprintf(msg, args...))
			return
		}
		l.Debug(fmt.Sprintf(msg, args...))
	}
}
