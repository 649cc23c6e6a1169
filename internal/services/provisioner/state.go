package provisioner

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
)

type State int

const (
	StateIdle State = iota
	StateFetching
	StateDiffing
	StateCreating
	StatePolling
	StateVerifyingSchema
	StateDone
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "IDLE"
	case StateFetching:
		return "FETCHING"
	case StateDiffing:
		return "DIFFING"
	case StateCreating:
		return "CREATING"
	case StatePolling:
		return "POLLING"
	case StateVerifyingSchema:
		return "VERIFYING_SCHEMA"
	case StateDone:
		return "DONE"
	case StateFailed:
		return "FAILED"
	}
	return "UNKNOWN"
}

var (
	stateGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "topic_provisioner_state",
		Help: "Current provisioning state (0=idle,1=fetching,...,6=done,7=failed).",
	})
	topicsCreated = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topic_provisioner_created_total",
		Help: "Topics created by this process.",
	})
	topicsUnderprovisioned = promauto.NewCounter(prometheus.CounterOpts{
		Name: "topic_provisioner_underprovisioned_total",
		Help: "Existing topics found with fewer partitions than requested.",
	})
	runs = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "topic_provisioner_runs_total",
		Help: "EnsureReady calls by result.",
	}, []string{"result"})
)

// state lives for a single EnsureReady call.
type state struct {
	requested []topic.Spec
	existing  map[string]int
	pending   []topic.Spec
	rejected  map[string]struct{}
	created   []string
	attempts  map[string]int
	failures  []Failure

	current  State
	observer func(from, to State)
	span     trace.Span
	log      *zap.Logger
}

func newState(specs []topic.Spec, observer func(from, to State), span trace.Span, log *zap.Logger) *state {
	return &state{
		requested: specs,
		existing:  make(map[string]int, len(specs)),
		rejected:  map[string]struct{}{},
		attempts:  map[string]int{},
		observer:  observer,
		span:      span,
		log:       log,
	}
}

func (s *state) enter(to State) {
	from := s.current
	s.current = to
	stateGauge.Set(float64(to))
	s.span.AddEvent("provisioner.state", trace.WithAttributes(attribute.String("state", to.String())))
	s.log.Debug("provisioner state", zap.Stringer("from", from), zap.Stringer("to", to))
	if s.observer != nil {
		s.observer(from, to)
	}
}

func (s *state) diff(md *topic.Metadata) {
	for _, spec := range s.requested {
		d, ok := md.Topics[spec.Name]
		if !ok {
			if md.Brokers > 0 && spec.ReplicationFactor > md.Brokers {
				s.reject(spec.Name, 0, fmt.Errorf("replication factor %d exceeds %d available brokers",
					spec.ReplicationFactor, md.Brokers))
				continue
			}
			s.pending = append(s.pending, spec)
			continue
		}
		s.existing[spec.Name] = d.Partitions
		if d.Partitions < spec.Partitions {
			topicsUnderprovisioned.Inc()
			s.log.Warn("topic has fewer partitions than requested; leaving as is",
				zap.String("topic", spec.Name),
				zap.Int("partitions", d.Partitions),
				zap.Int("requested", spec.Partitions),
			)
		}
	}
}

func (s *state) reject(name string, attempts int, err error) {
	s.rejected[name] = struct{}{}
	s.fail(Failure{Stage: s.current, Topic: name, Kind: topic.ErrTopicRejected, Attempts: attempts, Err: err})
}

func (s *state) fail(f Failure) {
	s.log.Warn("provisioning failure", zap.Error(f))
	s.failures = append(s.failures, f)
}

// awaited is every requested topic that was not rejected.
func (s *state) awaited() []string {
	out := make([]string, 0, len(s.requested))
	for _, spec := range s.requested {
		if _, bad := s.rejected[spec.Name]; !bad {
			out = append(out, spec.Name)
		}
	}
	return out
}

func (s *state) finish() error {
	if len(s.failures) == 0 {
		s.enter(StateDone)
		runs.WithLabelValues("ok").Inc()
		return nil
	}
	s.enter(StateFailed)
	runs.WithLabelValues("failed").Inc()
	return &ProvisionError{Failures: s.failures}
}
