package sink

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	"github.com/dbtuneai/autoinc-agent/pkg/roster"
	log "github.com/sirupsen/logrus"
)

const (
	DefaultCloudWatchNamespace = "RDS"
	cloudWatchBatchSize        = 500
)

// CloudWatchAPI is the part of the CloudWatch client the sink uses.
type CloudWatchAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatchSink publishes one AutoIncrementCapacity datum per column.
type CloudWatchSink struct {
	client    CloudWatchAPI
	namespace string
	logger    *log.Logger
	options   []metrics.Option
}

func NewCloudWatchSink(ctx context.Context, config CloudWatchConfig, logger *log.Logger, options ...metrics.Option) (*CloudWatchSink, error) {
	awsCfg, err := roster.FetchAWSConfig(config.AWSAccessKey, config.AWSSecretAccessKey, config.AWSRegion, ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return newCloudWatchSink(cloudwatch.NewFromConfig(awsCfg), config.Namespace, logger, options...), nil
}

func newCloudWatchSink(client CloudWatchAPI, namespace string, logger *log.Logger, options ...metrics.Option) *CloudWatchSink {
	if namespace == "" {
		namespace = DefaultCloudWatchNamespace
	}
	return &CloudWatchSink{client: client, namespace: namespace, logger: logger, options: options}
}

func (s *CloudWatchSink) Name() string {
	return "cloudwatch"
}

func (s *CloudWatchSink) Publish(ctx context.Context, report *fleet.Report) error {
	var data []types.MetricDatum
	for _, point := range metrics.Flatten(report, s.options...) {
		if err := point.Validate(); err != nil {
			s.logger.Warnf("[cloudwatch] skipping datapoint: %v", err)
			continue
		}
		data = append(data, types.MetricDatum{
			MetricName: aws.String(point.Name),
			Dimensions: []types.Dimension{
				{Name: aws.String("Host"), Value: aws.String(point.Host)},
				{Name: aws.String("Database"), Value: aws.String(point.Schema)},
				{Name: aws.String("Table"), Value: aws.String(point.Table)},
				{Name: aws.String("Column"), Value: aws.String(point.Column)},
			},
			Timestamp: aws.Time(point.Timestamp),
			Unit:      types.StandardUnitPercent,
			Value:     aws.Float64(point.Value),
		})
	}

	for start := 0; start < len(data); start += cloudWatchBatchSize {
		end := min(start+cloudWatchBatchSize, len(data))
		_, err := s.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
			Namespace:  aws.String(s.namespace),
			MetricData: data[start:end],
		})
		if err != nil {
			return fmt.Errorf("putting metric data %d-%d of %d: %w", start, end, len(data), err)
		}
	}
	return nil
}

func (s *CloudWatchSink) Close() error {
	return nil
}
