package runner

import (
	"context"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/sirupsen/logrus"
)

// Monitor performs a single monitoring pass.
type Monitor interface {
	RunOnce(ctx context.Context) (*fleet.Report, error)
	Logger() *logrus.Logger
}

func runWithTicker(ctx context.Context, ticker *time.Ticker, name string, logger *logrus.Logger, fn func() error) {
	// Run immediately
	if err := fn(); err != nil {
		logger.Errorf("initial %s error: %v", name, err)
	}
	// Then run on ticker
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := fn(); err != nil {
				logger.Errorf("%s error: %v", name, err)
			}
		}
	}
}

// Run executes monitoring passes every interval until ctx is cancelled.
// Errors of a pass are logged and the next pass runs on schedule. With a
// non-positive interval Run performs exactly one pass and returns its error.
func Run(ctx context.Context, monitor Monitor, interval time.Duration) error {
	logger := monitor.Logger()

	if interval <= 0 {
		_, err := monitor.RunOnce(ctx)
		return err
	}

	logger.Infof("Monitoring every %s", interval)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	runWithTicker(ctx, ticker, "monitoring run", logger, func() error {
		_, err := monitor.RunOnce(ctx)
		return err
	})

	logger.Info("Stopping monitoring")
	return nil
}
