package topic

import "context"

// Admin is a control-plane session against the broker cluster.
type Admin interface {
	Metadata(ctx context.Context) (*Metadata, error)
	// CreateTopics returns a per-topic result; a nil entry means created.
	CreateTopics(ctx context.Context, specs []Spec) (map[string]error, error)
	Close() error
}

type Dialer func(ctx context.Context, endpoint Endpoint) (Admin, error)

type SchemaRegistry interface {
	Ping(ctx context.Context) error
}
