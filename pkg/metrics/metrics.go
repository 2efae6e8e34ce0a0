package metrics

import (
	"fmt"
	"math"
	"math/big"
	"time"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
)

const (
	// CapacityMetric is the metric name every sink publishes under.
	CapacityMetric = "AutoIncrementCapacity"
	// UnitPercent matches the CloudWatch standard unit.
	UnitPercent = "Percent"
)

// Datapoint is one column's capacity usage, flattened for publishing.
type Datapoint struct {
	Name      string    `json:"name"`
	Host      string    `json:"host"`
	Schema    string    `json:"schema"`
	Table     string    `json:"table"`
	Column    string    `json:"column"`
	DataType  string    `json:"data_type"`
	Counter   string    `json:"counter"`
	Ceiling   string    `json:"ceiling"`
	Rows      int64     `json:"rows"`
	Value     float64   `json:"value"`
	Unit      string    `json:"unit"`
	Timestamp time.Time `json:"timestamp"`
}

// Key identifies the column a datapoint belongs to.
func (d Datapoint) Key() string {
	return fmt.Sprintf("%s/%s.%s.%s", d.Host, d.Schema, d.Table, d.Column)
}

// Validate rejects values no sink should publish.
func (d Datapoint) Validate() error {
	if math.IsNaN(d.Value) || math.IsInf(d.Value, 0) {
		return fmt.Errorf("%s: value %v is not finite", d.Key(), d.Value)
	}
	if d.Value < 0 {
		return fmt.Errorf("%s: negative usage %v", d.Key(), d.Value)
	}
	if d.Host == "" || d.Table == "" {
		return fmt.Errorf("%s: host and table are required", d.Key())
	}
	return nil
}

type options struct {
	topPerHost int
}

type Option func(*options)

// TopPerHost keeps only the n fullest columns of each host. Zero keeps all.
func TopPerHost(n int) Option {
	return func(o *options) {
		if n > 0 {
			o.topPerHost = n
		}
	}
}

// Flatten turns a report into datapoints, host by host in report order and
// fullest column first within a host. A nil report yields nothing.
func Flatten(report *fleet.Report, opts ...Option) []Datapoint {
	if report == nil {
		return nil
	}
	o := options{}
	for _, opt := range opts {
		opt(&o)
	}

	points := make([]Datapoint, 0, report.ColumnCount())
	for _, host := range report.Hosts {
		columns := host.Columns
		if o.topPerHost > 0 && len(columns) > o.topPerHost {
			columns = columns[:o.topPerHost]
		}
		for _, c := range columns {
			points = append(points, Datapoint{
				Name:      CapacityMetric,
				Host:      host.Host,
				Schema:    c.Schema,
				Table:     c.Table,
				Column:    c.Column,
				DataType:  c.DataType,
				Counter:   bigString(c.Counter),
				Ceiling:   bigString(c.Ceiling),
				Rows:      c.Rows,
				Value:     c.Percentage,
				Unit:      UnitPercent,
				Timestamp: report.CapturedAt,
			})
		}
	}
	return points
}

func bigString(v *big.Int) string {
	if v == nil {
		return ""
	}
	return v.String()
}
