package sink

import (
	"context"
	"fmt"

	monitoring "cloud.google.com/go/monitoring/apiv3/v2"
	"cloud.google.com/go/monitoring/apiv3/v2/monitoringpb"
	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	"github.com/googleapis/gax-go/v2"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
	metricpb "google.golang.org/genproto/googleapis/api/metric"
	monitoredrespb "google.golang.org/genproto/googleapis/api/monitoredres"
	"google.golang.org/protobuf/types/known/timestamppb"
)

const (
	StackdriverMetricType = "custom.googleapis.com/autoinc/capacity"
	stackdriverBatchSize  = 200
	stackdriverResource   = "global"
)

// TimeSeriesCreator is the part of the Cloud Monitoring client the sink uses.
type TimeSeriesCreator interface {
	CreateTimeSeries(ctx context.Context, req *monitoringpb.CreateTimeSeriesRequest, opts ...gax.CallOption) error
	Close() error
}

// StackdriverSink writes one custom metric point per column to Cloud Monitoring.
type StackdriverSink struct {
	client    TimeSeriesCreator
	projectID string
	logger    *log.Logger
	options   []metrics.Option
}

func NewStackdriverSink(ctx context.Context, config StackdriverConfig, logger *log.Logger, options ...metrics.Option) (*StackdriverSink, error) {
	var clientOptions []option.ClientOption
	if config.CredentialsFile != "" {
		clientOptions = append(clientOptions, option.WithCredentialsFile(config.CredentialsFile))
	}
	client, err := monitoring.NewMetricClient(ctx, clientOptions...)
	if err != nil {
		return nil, fmt.Errorf("failed to create Cloud Monitoring client: %w", err)
	}
	return newStackdriverSink(client, config.ProjectID, logger, options...), nil
}

func newStackdriverSink(client TimeSeriesCreator, projectID string, logger *log.Logger, options ...metrics.Option) *StackdriverSink {
	return &StackdriverSink{client: client, projectID: projectID, logger: logger, options: options}
}

func (s *StackdriverSink) Name() string {
	return "stackdriver"
}

func (s *StackdriverSink) Publish(ctx context.Context, report *fleet.Report) error {
	var series []*monitoringpb.TimeSeries
	for _, point := range metrics.Flatten(report, s.options...) {
		if err := point.Validate(); err != nil {
			s.logger.Warnf("[stackdriver] skipping datapoint: %v", err)
			continue
		}
		series = append(series, &monitoringpb.TimeSeries{
			Metric: &metricpb.Metric{
				Type: StackdriverMetricType,
				Labels: map[string]string{
					"host":     point.Host,
					"database": point.Schema,
					"table":    point.Table,
					"column":   point.Column,
				},
			},
			Resource: &monitoredrespb.MonitoredResource{
				Type:   stackdriverResource,
				Labels: map[string]string{"project_id": s.projectID},
			},
			Points: []*monitoringpb.Point{{
				Interval: &monitoringpb.TimeInterval{EndTime: timestamppb.New(point.Timestamp)},
				Value:    &monitoringpb.TypedValue{Value: &monitoringpb.TypedValue_DoubleValue{DoubleValue: point.Value}},
			}},
		})
	}

	for start := 0; start < len(series); start += stackdriverBatchSize {
		end := min(start+stackdriverBatchSize, len(series))
		err := s.client.CreateTimeSeries(ctx, &monitoringpb.CreateTimeSeriesRequest{
			Name:       "projects/" + s.projectID,
			TimeSeries: series[start:end],
		})
		if err != nil {
			return fmt.Errorf("creating time series %d-%d of %d: %w", start, end, len(series), err)
		}
	}
	return nil
}

func (s *StackdriverSink) Close() error {
	return s.client.Close()
}
