package agent

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/internal/utils"
	"github.com/dbtuneai/autoinc-agent/pkg/mysql"
	"github.com/dbtuneai/autoinc-agent/pkg/pg"
	"github.com/dbtuneai/autoinc-agent/pkg/roster"
	"github.com/dbtuneai/autoinc-agent/pkg/sink"
	"github.com/dbtuneai/autoinc-agent/pkg/telemetry"
	"github.com/hashicorp/go-retryablehttp"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// Agent runs monitoring passes over the fleet and publishes the results.
type Agent struct {
	Config     Config
	DB         fleet.Config
	Sources    []roster.Source
	Prober     fleet.Prober
	Aggregator *fleet.Aggregator
	Sinks      []sink.Sink

	logger *log.Logger
}

// CreateAgent wires the agent from the loaded configuration.
func CreateAgent(ctx context.Context, logger *log.Logger) (*Agent, error) {
	agentConfig, err := ConfigFromViper(nil)
	if err != nil {
		return nil, fmt.Errorf("invalid agent settings: %w", err)
	}

	dbConfig, err := fleet.ConfigFromViper(nil)
	if err != nil {
		return nil, fmt.Errorf("invalid database settings: %w", err)
	}

	discoveryConfig, err := roster.ConfigFromViper(nil)
	if err != nil {
		return nil, fmt.Errorf("invalid discovery settings: %w", err)
	}
	sources, err := roster.Sources(ctx, discoveryConfig, dbConfig)
	if err != nil {
		return nil, err
	}

	sinkConfig, err := sink.ConfigFromViper(nil)
	if err != nil {
		return nil, fmt.Errorf("invalid sink settings: %w", err)
	}

	client := retryablehttp.NewClient()
	client.RetryMax = agentConfig.HTTPRetries
	client.Logger = &utils.LeveledLogrus{Logger: logger}

	sinks, err := sink.Build(ctx, sinkConfig, client, logger)
	if err != nil {
		return nil, err
	}
	if len(sinks) == 0 {
		logger.Warn("No sinks configured, results will only be logged")
	}

	prober := NewProber(dbConfig, logger)
	return &Agent{
		Config:     agentConfig,
		DB:         dbConfig,
		Sources:    sources,
		Prober:     prober,
		Aggregator: fleet.NewAggregator(prober, dbConfig, logger),
		Sinks:      sinks,
		logger:     logger,
	}, nil
}

// NewProber returns the prober for the configured engine.
func NewProber(config fleet.Config, logger *log.Logger) fleet.Prober {
	if config.Engine == fleet.EnginePostgres {
		return pg.NewProber(config, logger)
	}
	return mysql.NewProber(config, logger)
}

func (a *Agent) Logger() *log.Logger {
	return a.logger
}

// RunOnce performs one monitoring pass. An empty roster is not an error and
// publishes nothing; a run where no host could be monitored returns an error
// wrapping fleet.ErrTotalFailure and publishes nothing either.
func (a *Agent) RunOnce(ctx context.Context) (*fleet.Report, error) {
	ctx, span := telemetry.Tracer().Start(ctx, "autoinc.run")
	defer span.End()

	start := time.Now()
	hosts := roster.Collect(ctx, a.logger, a.Sources...)
	span.SetAttributes(attribute.Int("autoinc.hosts.requested", len(hosts)))
	if len(hosts) == 0 {
		a.logger.Warn("No hosts found, exiting")
		return nil, nil
	}
	a.logger.Infof("Monitoring %d host(s)", len(hosts))

	report, err := a.Aggregator.Aggregate(ctx, hosts)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	if report == nil {
		return nil, nil
	}
	span.SetAttributes(
		attribute.String("autoinc.run_id", report.RunID),
		attribute.Int("autoinc.hosts.reported", len(report.Hosts)),
		attribute.Int("autoinc.columns", report.ColumnCount()),
	)

	a.logTopColumns(report)

	if failed := sink.Dispatch(ctx, a.logger, report, a.Sinks...); failed > 0 {
		span.SetStatus(codes.Error, fmt.Sprintf("%d sink(s) failed", failed))
	}

	a.logger.WithField("run_id", report.RunID).Infof("Run finished in %s", time.Since(start).Round(time.Millisecond))
	return report, nil
}

// logTopColumns logs the fullest column of every host.
func (a *Agent) logTopColumns(report *fleet.Report) {
	for _, host := range report.Hosts {
		if len(host.Columns) == 0 {
			continue
		}
		top := host.Columns[0]
		a.logger.WithFields(log.Fields{
			"host":   host.Host,
			"column": top.Schema + "." + top.Table + "." + top.Column,
		}).Infof("Fullest auto-increment column at %.2f%%", top.Percentage)
	}
}

// IsTotalFailure reports whether err means no host could be monitored.
func IsTotalFailure(err error) bool {
	return errors.Is(err, fleet.ErrTotalFailure)
}

// Close releases the sinks.
func (a *Agent) Close() {
	sink.CloseAll(a.logger, a.Sinks...)
}
