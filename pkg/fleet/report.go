package fleet

import (
	"math/big"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/capacity"
)

// ColumnMeta is one auto-increment column as listed by the introspection
// metadata of a host.
type ColumnMeta struct {
	Schema     string
	Table      string
	Column     string
	DataType   string // e.g. "int", "bigint"
	ColumnType string // full declared type, e.g. "int(10) unsigned"
}

// TableCounter carries the current auto-increment counter of a table.
// Column is empty when the engine keeps one counter per table (MySQL) and
// set when counters are per column (PostgreSQL sequences).
type TableCounter struct {
	Schema string
	Table  string
	Column string
	// AutoIncrement is nil when the engine reports no counter yet.
	AutoIncrement *big.Int
	Rows          int64
	// Unreadable is set when the monitoring role may not read the counter.
	Unreadable bool
}

// ColumnObservation is one monitored column of one host. Percentage is zero
// until the aggregator attaches it.
type ColumnObservation struct {
	Host       string
	Schema     string
	Table      string
	Column     string
	DataType   string
	ColumnType string
	Category   capacity.Category
	Unsigned   bool
	Counter    *big.Int
	Rows       int64
	Ceiling    *big.Int
	Percentage float64
}

// HostReport holds the observations of one host, fullest column first.
type HostReport struct {
	Host    string
	Columns []ColumnObservation
}

// Report is the result of one aggregation run.
type Report struct {
	RunID      string
	CapturedAt time.Time
	// Requested is the size of the roster the run was started with.
	Requested int
	// Hosts has one entry per host that was probed and scanned, in roster order.
	Hosts []HostReport
	// Unreachable lists the hosts left out of Hosts, in roster order.
	Unreachable []string
}

// ColumnCount returns the number of observations across all hosts.
func (r *Report) ColumnCount() int {
	if r == nil {
		return 0
	}
	n := 0
	for _, h := range r.Hosts {
		n += len(h.Columns)
	}
	return n
}
