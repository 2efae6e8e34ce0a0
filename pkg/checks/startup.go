package checks

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/roster"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

// CheckStartupRequirements resolves the roster and probes every host once,
// giving each host at most timeout to connect and list its columns. It
// returns nil when every host answered, or one error per failing host joined
// together.
func CheckStartupRequirements(ctx context.Context, prober fleet.Prober, sources []roster.Source, timeout time.Duration, logger *log.Logger) error {
	hosts := roster.Collect(ctx, logger, sources...)
	if len(hosts) == 0 {
		return fmt.Errorf("no hosts configured or discovered")
	}
	if timeout <= 0 {
		timeout = fleet.DefaultTimeout
	}

	errs := make([]error, len(hosts))
	var g errgroup.Group
	for i, host := range hosts {
		g.Go(func() error {
			hostCtx, cancel := context.WithTimeout(ctx, timeout)
			defer cancel()

			session, err := prober.Probe(hostCtx, host)
			if err != nil {
				errs[i] = err
				return nil
			}
			defer session.Close()
			if _, err := session.Columns(hostCtx); err != nil {
				errs[i] = &fleet.ScanError{Host: host, Err: fmt.Errorf("cannot read column metadata: %w", err)}
				return nil
			}
			logger.Infof("%s: OK", host)
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
