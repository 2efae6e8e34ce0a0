package fleet

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/capacity"
	"github.com/google/uuid"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultTimeout bounds each probe and each scan of a single host.
	DefaultTimeout = 10 * time.Second
)

// Aggregator probes and scans a fleet of hosts concurrently and builds the
// per-host capacity report.
type Aggregator struct {
	Prober Prober
	Logger *log.Logger
	// Timeout bounds each probe and each scan. Zero means DefaultTimeout.
	Timeout time.Duration
	// Concurrency caps the number of hosts handled at once. Zero means one
	// goroutine per host.
	Concurrency int

	now func() time.Time
}

// NewAggregator creates an Aggregator from the fleet configuration.
func NewAggregator(prober Prober, config Config, logger *log.Logger) *Aggregator {
	return &Aggregator{
		Prober:      prober,
		Logger:      logger,
		Timeout:     config.ConnectTimeout,
		Concurrency: config.Concurrency,
	}
}

// Aggregate runs one monitoring pass over hosts.
//
// Failures of single hosts or columns are logged and left out of the report.
// An empty roster returns a nil report and no error. When no host makes it
// into the report the error wraps ErrTotalFailure and the report is nil.
func (a *Aggregator) Aggregate(ctx context.Context, hosts []string) (*Report, error) {
	if len(hosts) == 0 {
		a.Logger.Info("No hosts to aggregate")
		return nil, nil
	}

	report := &Report{
		RunID:      uuid.NewString(),
		CapturedAt: a.clock(),
		Requested:  len(hosts),
	}
	logger := a.Logger.WithField("run_id", report.RunID)

	sessions := a.probeAll(ctx, hosts, logger)

	connected := 0
	for _, s := range sessions {
		if s != nil {
			connected++
		}
	}
	if connected < len(hosts) {
		logger.Errorf("Failed to connect to %d of %d hosts", len(hosts)-connected, len(hosts))
	}
	if connected == 0 {
		logger.Error("Could not connect to even one host")
		return nil, fmt.Errorf("%w: 0 of %d hosts reachable", ErrTotalFailure, len(hosts))
	}
	logger.Infof("Connected to %d host(s)", connected)

	hostReports := a.scanAll(ctx, hosts, sessions, logger)

	for i, host := range hosts {
		if hostReports[i] == nil {
			report.Unreachable = append(report.Unreachable, host)
			continue
		}
		report.Hosts = append(report.Hosts, *hostReports[i])
	}

	if len(report.Unreachable) > 0 {
		logger.Warnf("%d of %d hosts unreachable this run: %v", len(report.Unreachable), len(hosts), report.Unreachable)
	}
	if len(report.Hosts) == 0 {
		return nil, fmt.Errorf("%w: all %d connected hosts failed to scan", ErrTotalFailure, connected)
	}

	logger.Infof("Collected %d auto-increment columns from %d host(s)", report.ColumnCount(), len(report.Hosts))
	return report, nil
}

// probeAll probes every host concurrently. The returned slice is indexed like
// hosts and holds nil for hosts that failed.
func (a *Aggregator) probeAll(ctx context.Context, hosts []string, logger *log.Entry) []Session {
	sessions := make([]Session, len(hosts))

	g := a.group()
	for i, host := range hosts {
		g.Go(func() error {
			sessions[i] = a.probe(ctx, host, logger)
			return nil
		})
	}
	_ = g.Wait()

	return sessions
}

func (a *Aggregator) probe(ctx context.Context, host string, logger *log.Entry) Session {
	probeCtx, cancel := context.WithTimeout(ctx, a.timeout())
	defer cancel()

	session, err := a.Prober.Probe(probeCtx, host)
	if err != nil {
		var probeErr *ProbeError
		if !errors.As(err, &probeErr) {
			err = &ProbeError{Host: host, Err: err}
		}
		logger.WithField("host", host).Errorf("Could not connect to host: %v", err)
		if session != nil {
			_ = session.Close()
		}
		return nil
	}
	return session
}

// scanAll scans every live session concurrently and closes it. The returned
// slice is indexed like hosts and holds nil for hosts without a report.
func (a *Aggregator) scanAll(ctx context.Context, hosts []string, sessions []Session, logger *log.Entry) []*HostReport {
	reports := make([]*HostReport, len(hosts))

	g := a.group()
	for i, session := range sessions {
		if session == nil {
			continue
		}
		host := hosts[i]
		g.Go(func() error {
			defer func() {
				if err := session.Close(); err != nil {
					logger.Debugf("[scan] closing connection to %s: %v", host, err)
				}
			}()

			scanCtx, cancel := context.WithTimeout(ctx, a.timeout())
			defer cancel()

			observations, err := Scan(scanCtx, host, session, logger)
			if err != nil {
				logger.WithField("host", host).Errorf("Excluding host: %v", err)
				return nil
			}

			reports[i] = &HostReport{
				Host:    host,
				Columns: a.attachPercentages(observations, logger),
			}
			return nil
		})
	}
	_ = g.Wait()

	return reports
}

// attachPercentages computes the usage of every observation, drops the ones
// that cannot be computed and orders the rest fullest first.
func (a *Aggregator) attachPercentages(observations []ColumnObservation, logger *log.Entry) []ColumnObservation {
	kept := observations[:0]
	for _, o := range observations {
		pct, err := capacity.Percentage(o.Counter, o.Ceiling)
		if err != nil {
			logger.WithFields(log.Fields{
				"host":    o.Host,
				"column":  o.Schema + "." + o.Table + "." + o.Column,
				"counter": o.Counter,
				"ceiling": o.Ceiling,
			}).Errorf("[aggregate] excluding column: %v", err)
			continue
		}
		o.Percentage = pct
		kept = append(kept, o)
	}

	sort.SliceStable(kept, func(i, j int) bool {
		return kept[i].Percentage > kept[j].Percentage
	})
	return kept
}

func (a *Aggregator) group() *errgroup.Group {
	g := &errgroup.Group{}
	if a.Concurrency > 0 {
		g.SetLimit(a.Concurrency)
	}
	return g
}

func (a *Aggregator) timeout() time.Duration {
	if a.Timeout > 0 {
		return a.Timeout
	}
	return DefaultTimeout
}

func (a *Aggregator) clock() time.Time {
	if a.now != nil {
		return a.now()
	}
	return time.Now().UTC()
}
