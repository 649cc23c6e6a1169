package stream

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
)

type published struct {
	key []byte
	msg *structpb.Struct
}

type fakePublisher struct {
	mu   sync.Mutex
	msgs []published
	err  error
	sent chan struct{}
}

func newFakePublisher() *fakePublisher { return &fakePublisher{sent: make(chan struct{}, 16)} }

func (f *fakePublisher) PublishProto(_ context.Context, key []byte, m proto.Message) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.msgs = append(f.msgs, published{key: key, msg: m.(*structpb.Struct)})
	select {
	case f.sent <- struct{}{}:
	default:
	}
	return f.err
}

func TestMockTweetRunner_PublishesUntilCanceled(t *testing.T) {
	pub := newFakePublisher()
	r := NewMockTweetRunner(Config{
		Keywords:       []string{"Kafka"},
		Sleep:          5 * time.Millisecond,
		MinTweetLength: 3,
		MaxTweetLength: 6,
	}, pub, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()

	for i := 0; i < 3; i++ {
		select {
		case <-pub.sent:
		case <-time.After(2 * time.Second):
			t.Fatal("no tweet published")
		}
	}
	cancel()
	require.ErrorIs(t, <-done, context.Canceled)

	pub.mu.Lock()
	defer pub.mu.Unlock()
	require.GreaterOrEqual(t, len(pub.msgs), 3)
	seen := map[string]bool{}
	for _, m := range pub.msgs {
		assert.False(t, seen[string(m.key)], "duplicate tweet id %s", m.key)
		seen[string(m.key)] = true
		text := m.msg.Fields["text"].GetStringValue()
		assert.Contains(t, text, "Kafka")
		n := len(strings.Fields(text))
		assert.GreaterOrEqual(t, n, 3)
		assert.LessOrEqual(t, n, 6)
		_, err := time.Parse(time.RFC3339, m.msg.Fields["created_at"].GetStringValue())
		assert.NoError(t, err)
	}
}

func TestMockTweetRunner_PublishErrorsDoNotStopStream(t *testing.T) {
	pub := newFakePublisher()
	pub.err = errors.New("leader not available")
	r := NewMockTweetRunner(Config{Sleep: time.Millisecond, MinTweetLength: 1, MaxTweetLength: 1}, pub, zaptest.NewLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- r.Run(ctx) }()
	<-pub.sent
	<-pub.sent
	cancel()
	assert.ErrorIs(t, <-done, context.Canceled)
}

func TestKeywordRunner_BlocksUntilCanceled(t *testing.T) {
	r := NewKeywordRunner(Config{Keywords: []string{"Go"}, WelcomeMessage: "hi"}, zaptest.NewLogger(t))
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	assert.ErrorIs(t, r.Run(ctx), context.DeadlineExceeded)
}

type fakeProvisioner struct {
	err   error
	specs []topic.Spec
}

func (f *fakeProvisioner) EnsureReady(_ context.Context, specs []topic.Spec) error {
	f.specs = specs
	return f.err
}

type fakeRunner struct{ ran bool }

func (f *fakeRunner) Run(context.Context) error { f.ran = true; return nil }

func TestApp_RunsInitThenRunner(t *testing.T) {
	specs := []topic.Spec{{Name: "twitter-topic", Partitions: 3, ReplicationFactor: 1}}
	prov := &fakeProvisioner{}
	runner := &fakeRunner{}
	ready := false
	log := zaptest.NewLogger(t)

	app := NewApp(NewKafkaStreamInitializer(prov, specs, log), runner, func() { ready = true }, log)

	require.NoError(t, app.Run(context.Background()))
	assert.Equal(t, specs, prov.specs)
	assert.True(t, ready)
	assert.True(t, runner.ran)
}

func TestApp_InitFailureStopsStartup(t *testing.T) {
	prov := &fakeProvisioner{err: topic.ErrPollTimeout}
	runner := &fakeRunner{}
	ready := false
	log := zaptest.NewLogger(t)

	app := NewApp(NewKafkaStreamInitializer(prov, nil, log), runner, func() { ready = true }, log)

	err := app.Run(context.Background())
	assert.ErrorIs(t, err, topic.ErrPollTimeout)
	assert.False(t, ready)
	assert.False(t, runner.ran)
}
