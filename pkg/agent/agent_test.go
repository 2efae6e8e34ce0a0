package agent

import (
	"context"
	"errors"
	"math/big"
	"sync/atomic"
	"testing"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/mysql"
	"github.com/dbtuneai/autoinc-agent/pkg/pg"
	"github.com/dbtuneai/autoinc-agent/pkg/roster"
	"github.com/dbtuneai/autoinc-agent/pkg/sink"
	log "github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSession struct {
	dataType   string
	columnType string
	counter    int64
}

func (s stubSession) Columns(context.Context) ([]fleet.ColumnMeta, error) {
	return []fleet.ColumnMeta{{Schema: "app", Table: "t", Column: "id", DataType: s.dataType, ColumnType: s.columnType}}, nil
}

func (s stubSession) Counters(context.Context) ([]fleet.TableCounter, error) {
	return []fleet.TableCounter{{Schema: "app", Table: "t", AutoIncrement: big.NewInt(s.counter)}}, nil
}

func (s stubSession) Close() error { return nil }

type countingSink struct {
	published atomic.Int32
	last      atomic.Pointer[fleet.Report]
}

func (s *countingSink) Name() string { return "counting" }

func (s *countingSink) Publish(ctx context.Context, report *fleet.Report) error {
	s.published.Add(1)
	s.last.Store(report)
	return nil
}

func (s *countingSink) Close() error { return nil }

func newTestAgent(sessions map[string]stubSession, sources ...roster.Source) (*Agent, *countingSink, *test.Hook) {
	logger, hook := test.NewNullLogger()
	prober := fleet.ProberFunc(func(ctx context.Context, host string) (fleet.Session, error) {
		s, ok := sessions[host]
		if !ok {
			return nil, &fleet.ProbeError{Host: host, Err: errors.New("connection refused")}
		}
		return s, nil
	})
	out := &countingSink{}
	return &Agent{
		Sources:    sources,
		Prober:     prober,
		Aggregator: fleet.NewAggregator(prober, fleet.Config{}, logger),
		Sinks:      []sink.Sink{out},
		logger:     logger,
	}, out, hook
}

func TestRunOnce_PublishesReport(t *testing.T) {
	agent, out, hook := newTestAgent(map[string]stubSession{
		"host-a": {dataType: "int", columnType: "int(10) unsigned", counter: 4294967295},
		"host-b": {dataType: "smallint", columnType: "smallint(6)", counter: 16000},
	}, roster.Static{"host-a", "host-b", "host-c"})

	report, err := agent.RunOnce(context.Background())
	require.NoError(t, err)
	require.NotNil(t, report)
	assert.Len(t, report.Hosts, 2)
	assert.Equal(t, []string{"host-c"}, report.Unreachable)

	assert.Equal(t, int32(1), out.published.Load())
	assert.Same(t, report, out.last.Load())

	var fullest []string
	for _, e := range hook.AllEntries() {
		if e.Level == log.InfoLevel && e.Data["column"] != nil {
			fullest = append(fullest, e.Message)
		}
	}
	assert.Contains(t, fullest, "Fullest auto-increment column at 100.00%")
	assert.Contains(t, fullest, "Fullest auto-increment column at 48.82%")
}

func TestRunOnce_EmptyRoster(t *testing.T) {
	agent, out, hook := newTestAgent(nil, roster.Static{})

	report, err := agent.RunOnce(context.Background())
	assert.NoError(t, err)
	assert.Nil(t, report)
	assert.Zero(t, out.published.Load())
	assert.Equal(t, "No hosts found, exiting", hook.LastEntry().Message)
}

func TestRunOnce_TotalFailure(t *testing.T) {
	agent, out, _ := newTestAgent(nil, roster.Static{"x", "y"})

	report, err := agent.RunOnce(context.Background())
	assert.Nil(t, report)
	require.Error(t, err)
	assert.True(t, IsTotalFailure(err))
	assert.Zero(t, out.published.Load())
}

func TestNewProber(t *testing.T) {
	logger := log.New()
	assert.IsType(t, &mysql.Prober{}, NewProber(fleet.Config{Engine: fleet.EngineMySQL}, logger))
	assert.IsType(t, &pg.Prober{}, NewProber(fleet.Config{Engine: fleet.EnginePostgres}, logger))
}
