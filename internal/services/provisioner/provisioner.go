package provisioner

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/djaytech/twitter-to-kafka-service/internal/domain/topic"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs"
	"github.com/djaytech/twitter-to-kafka-service/internal/obs/retry"
)

const (
	siteFetch  = "provision_fetch"
	siteCreate = "provision_create"
	sitePoll   = "provision_poll"
	siteSchema = "provision_schema"
)

type Config struct {
	Endpoint       topic.Endpoint
	PollInterval   time.Duration
	PollTimeout    time.Duration
	RequestTimeout time.Duration
	// Deadline bounds a whole EnsureReady call. Zero derives it from
	// PollTimeout and the retry budget of the other call sites.
	Deadline time.Duration
}

type Option func(*Provisioner)

// WithSchemaRegistry enables the registry reachability check.
func WithSchemaRegistry(r topic.SchemaRegistry) Option {
	return func(p *Provisioner) { p.registry = r }
}

func WithObserver(fn func(from, to State)) Option {
	return func(p *Provisioner) { p.observer = fn }
}

type Provisioner struct {
	cfg      Config
	dial     topic.Dialer
	registry topic.SchemaRegistry
	policy   retry.Policy
	observer func(from, to State)
	log      *zap.Logger
}

func New(cfg Config, dial topic.Dialer, policy retry.Policy, log *zap.Logger, opts ...Option) *Provisioner {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 200 * time.Millisecond
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = 30 * time.Second
	}
	if cfg.RequestTimeout <= 0 {
		cfg.RequestTimeout = 10 * time.Second
	}
	if policy.Retryable == nil {
		policy.Retryable = topic.Retryable
	}
	if log == nil {
		log = zap.NewNop()
	}
	p := &Provisioner{
		cfg:    cfg,
		dial:   dial,
		policy: policy,
		log:    log.With(zap.String("component", "topic.provisioner")),
	}
	for _, o := range opts {
		o(p)
	}
	return p
}

func (p *Provisioner) deadline() time.Duration {
	if p.cfg.Deadline > 0 {
		return p.cfg.Deadline
	}
	return p.cfg.PollTimeout + 3*p.policy.Budget(p.cfg.RequestTimeout)
}

func (p *Provisioner) policyFor(site string) retry.Policy {
	pol := p.policy
	pol.Name = site
	return pol
}

// session holds the admin connection of one call; it is dialed lazily so a
// failing dial is retried like any other fetch failure.
type session struct {
	dial     topic.Dialer
	endpoint topic.Endpoint
	admin    topic.Admin
}

func (s *session) get(ctx context.Context) (topic.Admin, error) {
	if s.admin != nil {
		return s.admin, nil
	}
	a, err := s.dial(ctx, s.endpoint)
	if err != nil {
		return nil, err
	}
	s.admin = a
	return a, nil
}

func (s *session) close() error {
	if s.admin == nil {
		return nil
	}
	err := s.admin.Close()
	s.admin = nil
	return err
}

// EnsureReady blocks until every topic in specs exists on the broker and
// the schema registry, when configured, answers. Existing topics are never
// altered. The returned error is a *ProvisionError unless specs are invalid.
func (p *Provisioner) EnsureReady(ctx context.Context, specs []topic.Spec) error {
	if err := topic.Validate(specs); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(ctx, p.deadline())
	defer cancel()

	ctx, span := otel.Tracer("topic.provisioner").Start(ctx, "provisioner.EnsureReady",
		trace.WithAttributes(attribute.StringSlice("topics", topic.Names(specs))))
	defer span.End()

	log := obs.WithTrace(ctx, p.log)
	st := newState(specs, p.observer, span, log)
	sess := &session{dial: p.dial, endpoint: p.cfg.Endpoint}
	defer func() {
		if err := sess.close(); err != nil {
			log.Warn("close admin session", zap.Error(err))
		}
	}()

	err := p.run(ctx, sess, st)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "provisioning failed")
		log.Error("topic provisioning failed", zap.Any("attempts", st.attempts), zap.Error(err))
		return err
	}
	log.Info("topics ready",
		zap.Strings("topics", topic.Names(specs)),
		zap.Strings("created", st.created),
		zap.Any("attempts", st.attempts),
	)
	return nil
}

func (p *Provisioner) run(ctx context.Context, sess *session, st *state) error {
	st.enter(StateFetching)
	md, attempts, err := p.fetch(ctx, sess, siteFetch)
	st.attempts[siteFetch] = attempts
	if err != nil {
		st.fail(Failure{Stage: StateFetching, Kind: kindOf(err, topic.ErrConnection), Attempts: attempts, Err: err})
		return st.finish()
	}

	st.enter(StateDiffing)
	st.diff(md)

	st.enter(StateCreating)
	if err := p.create(ctx, sess, st); err != nil {
		return st.finish()
	}

	st.enter(StatePolling)
	if err := p.poll(ctx, sess, st); err != nil {
		return st.finish()
	}

	st.enter(StateVerifyingSchema)
	p.verifySchema(ctx, st)
	return st.finish()
}

func (p *Provisioner) fetch(ctx context.Context, sess *session, site string) (*topic.Metadata, int, error) {
	var md *topic.Metadata
	attempts := 0
	err := retry.Do(ctx, func() error {
		attempts++
		admin, err := sess.get(ctx)
		if err != nil {
			return err
		}
		rctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		m, err := admin.Metadata(rctx)
		if err != nil {
			return err
		}
		md = m
		return nil
	}, p.policyFor(site))
	return md, attempts, err
}

func (p *Provisioner) create(ctx context.Context, sess *session, st *state) error {
	if len(st.pending) == 0 {
		st.log.Debug("all requested topics already exist")
		return nil
	}
	st.log.Info("creating topics", zap.Strings("topics", topic.Names(st.pending)))

	attempts := 0
	err := retry.Do(ctx, func() error {
		attempts++
		admin, err := sess.get(ctx)
		if err != nil {
			return err
		}
		rctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		results, err := admin.CreateTopics(rctx, st.pending)
		if err != nil {
			return err
		}

		var again []topic.Spec
		var last error
		for _, spec := range st.pending {
			terr := results[spec.Name]
			switch {
			case terr == nil:
				topicsCreated.Inc()
				st.created = append(st.created, spec.Name)
			case errors.Is(terr, topic.ErrTopicAlreadyExists):
				st.log.Info("topic created concurrently", zap.String("topic", spec.Name))
			case topic.Retryable(terr):
				again = append(again, spec)
				last = terr
			default:
				st.reject(spec.Name, attempts, terr)
			}
		}
		st.pending = again
		if len(again) > 0 {
			return fmt.Errorf("%d topic(s) not created yet: %w", len(again), last)
		}
		return nil
	}, p.policyFor(siteCreate))
	st.attempts[siteCreate] = attempts
	if err == nil {
		return nil
	}

	kind := kindOf(err, topic.ErrTopicRejected)
	if len(st.pending) == 0 {
		st.fail(Failure{Stage: StateCreating, Kind: kind, Attempts: attempts, Err: err})
		return err
	}
	for _, spec := range st.pending {
		st.fail(Failure{Stage: StateCreating, Topic: spec.Name, Kind: kind, Attempts: attempts, Err: err})
	}
	return err
}

func (p *Provisioner) poll(ctx context.Context, sess *session, st *state) error {
	want := st.awaited()
	if len(want) == 0 {
		return nil
	}
	pctx, cancel := context.WithTimeout(ctx, p.cfg.PollTimeout)
	defer cancel()

	ticker := time.NewTicker(p.cfg.PollInterval)
	defer ticker.Stop()

	missing := want
	for iter := 1; ; iter++ {
		md, attempts, err := p.fetch(pctx, sess, sitePoll)
		st.attempts[sitePoll] += attempts
		if err != nil && pctx.Err() == nil {
			st.fail(Failure{Stage: StatePolling, Kind: kindOf(err, topic.ErrConnection), Attempts: attempts, Err: err})
			return err
		}
		if err == nil {
			missing = invisible(md, want)
			if len(missing) == 0 {
				st.log.Debug("all topics visible", zap.Int("polls", iter))
				return nil
			}
			st.log.Debug("waiting for topics", zap.Strings("missing", missing), zap.Int("poll", iter))
		}

		select {
		case <-pctx.Done():
			// Only the poll window running out is a poll timeout; a caller
			// cancel or the overall deadline is reported as itself.
			if cerr := ctx.Err(); cerr != nil {
				err := fmt.Errorf("polling stopped after %d poll(s): %w", iter, cerr)
				st.fail(Failure{Stage: StatePolling, Kind: cerr, Attempts: iter, Err: err})
				return err
			}
			err := fmt.Errorf("%d poll(s) within %s: %w", iter, p.cfg.PollTimeout, pctx.Err())
			for _, name := range missing {
				st.fail(Failure{Stage: StatePolling, Topic: name, Kind: topic.ErrPollTimeout, Attempts: iter, Err: err})
			}
			return err
		case <-ticker.C:
		}
	}
}

func invisible(md *topic.Metadata, want []string) []string {
	var out []string
	for _, name := range want {
		if d, ok := md.Topics[name]; !ok || !d.Ready {
			out = append(out, name)
		}
	}
	sort.Strings(out)
	return out
}

func (p *Provisioner) verifySchema(ctx context.Context, st *state) {
	if p.registry == nil {
		st.log.Debug("schema registry not configured; skipping check")
		return
	}
	attempts := 0
	err := retry.Do(ctx, func() error {
		attempts++
		rctx, cancel := context.WithTimeout(ctx, p.cfg.RequestTimeout)
		defer cancel()
		return p.registry.Ping(rctx)
	}, p.policyFor(siteSchema))
	st.attempts[siteSchema] = attempts
	if err != nil {
		st.fail(Failure{Stage: StateVerifyingSchema, Kind: topic.ErrSchemaRegistryUnreachable, Attempts: attempts, Err: err})
		return
	}
	st.log.Debug("schema registry reachable", zap.Int("attempts", attempts))
}

// kindOf maps err onto a failure kind: connection problems stay
// connection errors, everything else falls back to def.
func kindOf(err, def error) error {
	if topic.Retryable(err) {
		return topic.ErrConnection
	}
	if errors.Is(err, topic.ErrInvalidSpec) {
		return topic.ErrInvalidSpec
	}
	return def
}
