// Package multi provides a sink that fans out to multiple sinks.
// All sinks receive all reports; errors are aggregated.
package multi

import (
	"context"
	"errors"

	"github.com/botmind/rpa-observe/pkg/warden"
)

// multiSink fans out to multiple sinks.
type multiSink struct {
	sinks []warden.Sink
}

// NewMultiSink creates a sink that writes to multiple sinks.
// All sinks receive all reports. Errors are aggregated via errors.Join.
func NewMultiSink(sinks ...warden.Sink) warden.Sink {
	return &multiSink{sinks: sinks}
}

// Write sends the report to all sinks, collecting any errors.
// All sinks are called even if some return errors.
func (s *multiSink) Write(ctx context.Context, report warden.ErrorReport) error {
	return s.each(func(sink warden.Sink) error {
		return sink.Write(ctx, report)
	})
}

// Flush calls Flush on all sinks, collecting any errors.
func (s *multiSink) Flush(ctx context.Context) error {
	return s.each(func(sink warden.Sink) error {
		return sink.Flush(ctx)
	})
}

// Close calls Close on all sinks, collecting any errors.
func (s *multiSink) Close() error {
	return s.each(warden.Sink.Close)
}

// each applies fn to every sink and joins the errors.
func (s *multiSink) each(fn func(warden.Sink) error) error {
	var errs []error
	for _, sink := range s.sinks {
		if err := fn(sink); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
