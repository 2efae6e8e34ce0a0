package sink

import (
	"context"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// Sink publishes capacity reports.
type Sink interface {
	// Name returns the sink identifier
	Name() string

	// Publish delivers one report. It is never called with a nil report.
	Publish(ctx context.Context, report *fleet.Report) error

	// Close any resources that need cleanup
	Close() error
}

// Dispatch publishes report to every sink concurrently and returns the
// number of sinks that failed. Failures are logged, never propagated: a
// broken sink must not fail a monitoring run.
func Dispatch(ctx context.Context, logger *log.Logger, report *fleet.Report, sinks ...Sink) int {
	if report == nil || len(sinks) == 0 {
		return 0
	}

	results := make([]error, len(sinks))
	var g errgroup.Group
	for i, s := range sinks {
		g.Go(func() error {
			if err := s.Publish(ctx, report); err != nil {
				logger.WithField("sink", s.Name()).Errorf("Failed to publish report %s: %v", report.RunID, err)
				results[i] = err
				return nil
			}
			logger.Debugf("[%s] published %d columns", s.Name(), report.ColumnCount())
			return nil
		})
	}
	_ = g.Wait()

	failed := 0
	for _, err := range results {
		if err != nil {
			failed++
		}
	}
	return failed
}

// CloseAll closes every sink, logging failures.
func CloseAll(logger *log.Logger, sinks ...Sink) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.WithField("sink", s.Name()).Errorf("Failed to close sink: %v", err)
		}
	}
}
