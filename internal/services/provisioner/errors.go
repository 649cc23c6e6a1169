package provisioner

import (
	"errors"
	"fmt"
	"strings"
)

// Failure is one unrecovered problem of a provisioning run. Kind is one of
// the topic.Err* sentinels, Err is the last underlying cause.
type Failure struct {
	Stage    State
	Topic    string
	Kind     error
	Attempts int
	Err      error
}

func (f Failure) Error() string {
	var b strings.Builder
	b.WriteString(strings.ToLower(f.Stage.String()))
	if f.Topic != "" {
		fmt.Fprintf(&b, " topic %q", f.Topic)
	}
	fmt.Fprintf(&b, ": %v", f.Kind)
	if f.Attempts > 0 {
		fmt.Fprintf(&b, " after %d attempt(s)", f.Attempts)
	}
	if f.Err != nil {
		fmt.Fprintf(&b, ": %v", f.Err)
	}
	return b.String()
}

func (f Failure) Unwrap() []error {
	return []error{f.Kind, f.Err}
}

type ProvisionError struct {
	Failures []Failure
}

func (e *ProvisionError) Error() string {
	msgs := make([]string, 0, len(e.Failures))
	for _, f := range e.Failures {
		msgs = append(msgs, f.Error())
	}
	return "topic provisioning failed: " + strings.Join(msgs, "; ")
}

func (e *ProvisionError) Unwrap() []error {
	out := make([]error, 0, len(e.Failures))
	for _, f := range e.Failures {
		out = append(out, f)
	}
	return out
}

// Topics returns the topics that failed with the given kind.
func (e *ProvisionError) Topics(kind error) []string {
	var out []string
	for _, f := range e.Failures {
		if f.Topic != "" && errors.Is(f.Kind, kind) {
			out = append(out, f.Topic)
		}
	}
	return out
}
