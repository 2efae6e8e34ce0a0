package sink

import (
	"context"
	"fmt"

	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	"github.com/dbtuneai/autoinc-agent/pkg/version"
	log "github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlpmetric/otlpmetricgrpc"
	otelmetric "go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
)

const (
	OTelGaugeName = "autoinc.capacity"
	otelScope     = "github.com/dbtuneai/autoinc-agent"
)

// OTelSink records every column as an OpenTelemetry gauge and pushes it
// through OTLP gRPC. OTEL_EXPORTER_OTLP_ENDPOINT is read by the exporter.
type OTelSink struct {
	mp      *sdkmetric.MeterProvider
	gauge   otelmetric.Float64Gauge
	logger  *log.Logger
	options []metrics.Option
}

func NewOTelSink(ctx context.Context, config OTelConfig, logger *log.Logger, options ...metrics.Option) (*OTelSink, error) {
	serviceName := config.ServiceName
	if serviceName == "" {
		serviceName = "autoinc-agent"
	}
	res, err := resource.New(ctx,
		resource.WithAttributes(
			semconv.ServiceName(serviceName),
			semconv.ServiceVersion(version.GetVersionOnly()),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("creating otel resource: %w", err)
	}

	exporter, err := otlpmetricgrpc.New(ctx)
	if err != nil {
		return nil, fmt.Errorf("creating metric exporter: %w", err)
	}

	return newOTelSink(sdkmetric.NewPeriodicReader(exporter), res, logger, options...)
}

func newOTelSink(reader sdkmetric.Reader, res *resource.Resource, logger *log.Logger, options ...metrics.Option) (*OTelSink, error) {
	providerOptions := []sdkmetric.Option{sdkmetric.WithReader(reader)}
	if res != nil {
		providerOptions = append(providerOptions, sdkmetric.WithResource(res))
	}
	mp := sdkmetric.NewMeterProvider(providerOptions...)

	gauge, err := mp.Meter(otelScope).Float64Gauge(OTelGaugeName,
		otelmetric.WithDescription("Share of the auto-increment range already used by a column"),
		otelmetric.WithUnit("%"),
	)
	if err != nil {
		return nil, fmt.Errorf("creating gauge: %w", err)
	}
	return &OTelSink{mp: mp, gauge: gauge, logger: logger, options: options}, nil
}

func (s *OTelSink) Name() string {
	return "otel"
}

func (s *OTelSink) Publish(ctx context.Context, report *fleet.Report) error {
	for _, point := range metrics.Flatten(report, s.options...) {
		if err := point.Validate(); err != nil {
			s.logger.Warnf("[otel] skipping datapoint: %v", err)
			continue
		}
		s.gauge.Record(ctx, point.Value, otelmetric.WithAttributes(
			attribute.String("host", point.Host),
			attribute.String("db.namespace", point.Schema),
			attribute.String("table", point.Table),
			attribute.String("column", point.Column),
			attribute.String("data_type", point.DataType),
		))
	}
	return s.mp.ForceFlush(ctx)
}

func (s *OTelSink) Close() error {
	return s.mp.Shutdown(context.Background())
}
