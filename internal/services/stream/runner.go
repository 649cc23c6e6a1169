package stream

import (
	"context"
	"math/rand"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"google.golang.org/protobuf/proto"
	"google.golang.org/protobuf/types/known/structpb"
)

type Runner interface {
	Run(ctx context.Context) error
}

type Publisher interface {
	PublishProto(ctx context.Context, key []byte, m proto.Message) error
}

type Config struct {
	Keywords       []string
	WelcomeMessage string
	Sleep          time.Duration
	MinTweetLength int
	MaxTweetLength int
}

var words = []string{
	"Lorem", "ipsum", "dolor", "sit", "amet", "consectetuer", "adipiscing", "elit",
	"Maecenas", "porttitor", "congue", "massa", "Fusce", "posuere", "magna", "sed",
	"pulvinar", "ultricies", "purus", "lectus", "malesuada", "libero", "vitae",
	"nunc", "commodo", "nec", "sem", "Nulla", "facilisi", "Donec", "aliquet",
}

// MockTweetRunner publishes generated statuses containing the configured
// keywords until ctx is done.
type MockTweetRunner struct {
	cfg    Config
	pub    Publisher
	rnd    *rand.Rand
	nextID atomic.Int64
	now    func() time.Time
	log    *zap.Logger
}

func NewMockTweetRunner(cfg Config, pub Publisher, log *zap.Logger) *MockTweetRunner {
	if cfg.Sleep <= 0 {
		cfg.Sleep = 10 * time.Second
	}
	if cfg.MinTweetLength <= 0 {
		cfg.MinTweetLength = 5
	}
	if cfg.MaxTweetLength < cfg.MinTweetLength {
		cfg.MaxTweetLength = cfg.MinTweetLength
	}
	r := &MockTweetRunner{
		cfg: cfg,
		pub: pub,
		rnd: rand.New(rand.NewSource(time.Now().UnixNano())),
		now: time.Now,
		log: log.With(zap.String("component", "stream.mock")),
	}
	r.nextID.Store(time.Now().UnixMilli())
	return r
}

func (r *MockTweetRunner) Run(ctx context.Context) error {
	r.log.Info("starting mock tweet stream", zap.Strings("keywords", r.cfg.Keywords), zap.Duration("sleep", r.cfg.Sleep))
	t := time.NewTicker(r.cfg.Sleep)
	defer t.Stop()
	for {
		if err := r.publishOne(ctx); err != nil && ctx.Err() == nil {
			r.log.Warn("publish tweet failed", zap.Error(err))
		}
		select {
		case <-ctx.Done():
			r.log.Info("mock tweet stream stopped")
			return ctx.Err()
		case <-t.C:
		}
	}
}

func (r *MockTweetRunner) publishOne(ctx context.Context) error {
	id := r.nextID.Add(1)
	status, err := structpb.NewStruct(map[string]any{
		"id":         id,
		"user_id":    r.rnd.Int63n(1 << 31),
		"text":       r.tweetText(),
		"created_at": r.now().UTC().Format(time.RFC3339),
	})
	if err != nil {
		return err
	}
	r.log.Debug("mock tweet", zap.Int64("id", id), zap.String("text", status.Fields["text"].GetStringValue()))
	return r.pub.PublishProto(ctx, []byte(strconv.FormatInt(id, 10)), status)
}

// tweetText returns between MinTweetLength and MaxTweetLength words, one of
// them a configured keyword.
func (r *MockTweetRunner) tweetText() string {
	n := r.cfg.MinTweetLength + r.rnd.Intn(r.cfg.MaxTweetLength-r.cfg.MinTweetLength+1)
	out := make([]string, n)
	for i := range out {
		out[i] = words[r.rnd.Intn(len(words))]
	}
	if len(r.cfg.Keywords) > 0 {
		out[r.rnd.Intn(n)] = r.cfg.Keywords[r.rnd.Intn(len(r.cfg.Keywords))]
	}
	return strings.Join(out, " ")
}

// KeywordRunner only reports what it would be streaming.
type KeywordRunner struct {
	cfg Config
	log *zap.Logger
}

func NewKeywordRunner(cfg Config, log *zap.Logger) *KeywordRunner {
	return &KeywordRunner{cfg: cfg, log: log.With(zap.String("component", "stream.keywords"))}
}

func (r *KeywordRunner) Run(ctx context.Context) error {
	r.log.Info("tracking keywords", zap.Strings("keywords", r.cfg.Keywords))
	r.log.Info(r.cfg.WelcomeMessage)
	<-ctx.Done()
	return ctx.Err()
}
