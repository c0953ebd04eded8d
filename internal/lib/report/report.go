// Package report fans scenario results out to external stores and streams.
package report

import (
	"context"
	"errors"
	"fmt"

	"github.com/go-logr/logr"

	"github.com/ohowland/simpflex/internal/pkg/scenario"
)

// Sink persists or publishes a finished scenario run.
type Sink interface {
	Name() string
	Write(ctx context.Context, r scenario.Result) error
	Close(ctx context.Context) error
}

// Fanout writes every result to all of its sinks. A failing sink does not
// stop the others.
type Fanout struct {
	sinks []Sink
	log   logr.Logger
}

// NewFanout returns a Fanout over sinks.
func NewFanout(log logr.Logger, sinks ...Sink) *Fanout {
	return &Fanout{sinks: sinks, log: log.WithName("report")}
}

// Len is the number of sinks.
func (f *Fanout) Len() int {
	return len(f.sinks)
}

// Write implements Sink.
func (f *Fanout) Write(ctx context.Context, r scenario.Result) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Write(ctx, r); err != nil {
			f.log.Error(err, "write failed", "sink", s.Name(), "run", r.RunID)
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
			continue
		}
		f.log.V(1).Info("result written", "sink", s.Name(), "run", r.RunID)
	}
	return errors.Join(errs...)
}

// Close closes every sink.
func (f *Fanout) Close(ctx context.Context) error {
	var errs []error
	for _, s := range f.sinks {
		if err := s.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// Name implements Sink.
func (f *Fanout) Name() string {
	return "fanout"
}
