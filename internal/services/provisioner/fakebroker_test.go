package provisioner

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
)

// fakeBroker simulates the admin surface of a cluster.
type fakeBroker struct {
	mu      sync.Mutex
	brokers int
	topics  map[string]int
	// hidden topics exist but never show up in metadata.
	hidden map[string]bool
	// metadataFailures makes the next N metadata calls fail.
	metadataFailures int
	// createFailures makes the next N create requests fail.
	createFailures int
	// topicErrs overrides per-topic create results, consumed once.
	topicErrs map[string][]error
	// beforeCreate runs inside CreateTopics before anything is applied.
	beforeCreate func(b *fakeBroker)

	dials, closes, metadataCalls int
	createBatches                [][]string
}

func newFakeBroker(brokers int) *fakeBroker {
	return &fakeBroker{
		brokers:   brokers,
		topics:    map[string]int{},
		hidden:    map[string]bool{},
		topicErrs: map[string][]error{},
	}
}

func (b *fakeBroker) dialer() topic.Dialer {
	return func(context.Context, topic.Endpoint) (topic.Admin, error) {
		b.mu.Lock()
		defer b.mu.Unlock()
		b.dials++
		return &fakeSession{b: b}, nil
	}
}

func (b *fakeBroker) createCalls() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return len(b.createBatches)
}

type fakeSession struct {
	b      *fakeBroker
	closed bool
}

func (s *fakeSession) Metadata(ctx context.Context) (*topic.Metadata, error) {
	b := s.b
	b.mu.Lock()
	defer b.mu.Unlock()
	b.metadataCalls++
	if b.metadataFailures > 0 {
		b.metadataFailures--
		return nil, fmt.Errorf("metadata: %w: connection refused", topic.ErrConnection)
	}
	md := &topic.Metadata{Brokers: b.brokers, Topics: map[string]topic.Description{}}
	for name, parts := range b.topics {
		if b.hidden[name] {
			continue
		}
		md.Topics[name] = topic.Description{Partitions: parts, Ready: true}
	}
	return md, nil
}

func (s *fakeSession) CreateTopics(ctx context.Context, specs []topic.Spec) (map[string]error, error) {
	b := s.b
	b.mu.Lock()
	defer b.mu.Unlock()
	names := topic.Names(specs)
	sort.Strings(names)
	b.createBatches = append(b.createBatches, names)
	if b.beforeCreate != nil {
		hook := b.beforeCreate
		b.beforeCreate = nil
		hook(b)
	}
	if b.createFailures > 0 {
		b.createFailures--
		return nil, fmt.Errorf("create topics: %w: broken pipe", topic.ErrConnection)
	}
	out := make(map[string]error, len(specs))
	for _, spec := range specs {
		if errs := b.topicErrs[spec.Name]; len(errs) > 0 {
			b.topicErrs[spec.Name] = errs[1:]
			out[spec.Name] = errs[0]
			continue
		}
		if _, ok := b.topics[spec.Name]; ok {
			out[spec.Name] = fmt.Errorf("%w: [36] Topic Already Exists", topic.ErrTopicAlreadyExists)
			continue
		}
		b.topics[spec.Name] = spec.Partitions
		out[spec.Name] = nil
	}
	return out, nil
}

func (s *fakeSession) Close() error {
	s.b.mu.Lock()
	defer s.b.mu.Unlock()
	if !s.closed {
		s.closed = true
		s.b.closes++
	}
	return nil
}

type fakeRegistry struct {
	mu    sync.Mutex
	up    bool
	pings int
}

func (r *fakeRegistry) Ping(context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.pings++
	if !r.up {
		return fmt.Errorf("%w: schema registry: connection refused", topic.ErrConnection)
	}
	return nil
}
