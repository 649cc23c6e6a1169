package topic

import (
	"fmt"
	"strings"
)

type Spec struct {
	Name              string `json:"name" mapstructure:"name"`
	Partitions        int    `json:"partitions" mapstructure:"partitions"`
	ReplicationFactor int    `json:"replication_factor" mapstructure:"replication_factor"`
}

// Endpoint is a comma-separated host:port list.
type Endpoint string

func (e Endpoint) Addrs() []string {
	parts := strings.Split(string(e), ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Description is what the broker reports about a single topic.
type Description struct {
	Partitions int
	// Ready is true once every partition has an elected leader.
	Ready bool
}

type Metadata struct {
	Brokers int
	Topics  map[string]Description
}

func Names(specs []Spec) []string {
	out := make([]string, 0, len(specs))
	for _, s := range specs {
		out = append(out, s.Name)
	}
	return out
}

func Validate(specs []Spec) error {
	if len(specs) == 0 {
		return fmt.Errorf("%w: no topics requested", ErrInvalidSpec)
	}
	seen := make(map[string]struct{}, len(specs))
	for _, s := range specs {
		if strings.TrimSpace(s.Name) == "" {
			return fmt.Errorf("%w: empty topic name", ErrInvalidSpec)
		}
		if _, dup := seen[s.Name]; dup {
			return fmt.Errorf("%w: duplicate topic %q", ErrInvalidSpec, s.Name)
		}
		seen[s.Name] = struct{}{}
		if s.Partitions <= 0 {
			return fmt.Errorf("%w: topic %q partitions=%d", ErrInvalidSpec, s.Name, s.Partitions)
		}
		if s.ReplicationFactor <= 0 {
			return fmt.Errorf("%w: topic %q replication_factor=%d", ErrInvalidSpec, s.Name, s.ReplicationFactor)
		}
	}
	return nil
}
