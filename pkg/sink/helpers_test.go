package sink

import (
	"context"
	"errors"
	"math"
	"math/big"
	"sync/atomic"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
)

func testReport() *fleet.Report {
	return &fleet.Report{
		RunID:      "run-42",
		CapturedAt: time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Requested:  3,
		Hosts: []fleet.HostReport{
			{Host: "host-a", Columns: []fleet.ColumnObservation{
				{Schema: "app", Table: "accounts", Column: "id", DataType: "int", Counter: big.NewInt(4294967295), Ceiling: big.NewInt(4294967295), Percentage: 100},
				{Schema: "app", Table: "logs", Column: "id", DataType: "bigint", Counter: big.NewInt(10), Ceiling: big.NewInt(math.MaxInt64), Percentage: 0},
			}},
			{Host: "host-b", Columns: []fleet.ColumnObservation{
				{Schema: "app", Table: "tags", Column: "id", DataType: "smallint", Counter: big.NewInt(16000), Ceiling: big.NewInt(32767), Percentage: 48.82},
			}},
		},
		Unreachable: []string{"host-c"},
	}
}

type recordingSink struct {
	name      string
	err       error
	published atomic.Int32
	closed    atomic.Bool
}

func (s *recordingSink) Name() string { return s.name }

func (s *recordingSink) Publish(ctx context.Context, report *fleet.Report) error {
	s.published.Add(1)
	return s.err
}

func (s *recordingSink) Close() error {
	s.closed.Store(true)
	if s.err != nil {
		return errors.New("close failed")
	}
	return nil
}
