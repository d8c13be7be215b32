// Package observability records procedure-call outcomes. Two recorders are
// provided: a process-local expvar recorder and a Prometheus recorder.
package observability

import (
	"context"
	"time"
)

// Recorder observes one call outcome per invocation.
type Recorder interface {
	Observe(ctx context.Context, operation string, success bool, duration time.Duration)
}

// Nop is a Recorder that does nothing.
type Nop struct{}

// Observe implements Recorder.
func (Nop) Observe(context.Context, string, bool, time.Duration) {}

type multi []Recorder

func (m multi) Observe(ctx context.Context, operation string, success bool, duration time.Duration) {
	for _, r := range m {
		r.Observe(ctx, operation, success, duration)
	}
}

// Multi fans one observation out to every recorder.
func Multi(recorders ...Recorder) Recorder {
	return multi(recorders)
}
