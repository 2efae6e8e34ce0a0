package sink

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
	"github.com/dbtuneai/autoinc-agent/pkg/fleet"
	"github.com/dbtuneai/autoinc-agent/pkg/metrics"
	log "github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeCloudWatch struct {
	inputs []*cloudwatch.PutMetricDataInput
	err    error
}

func (f *fakeCloudWatch) PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error) {
	f.inputs = append(f.inputs, params)
	return &cloudwatch.PutMetricDataOutput{}, f.err
}

func dimensions(d types.MetricDatum) map[string]string {
	out := map[string]string{}
	for _, dim := range d.Dimensions {
		out[aws.ToString(dim.Name)] = aws.ToString(dim.Value)
	}
	return out
}

func TestCloudWatchSink_Publish(t *testing.T) {
	client := &fakeCloudWatch{}
	sink := newCloudWatchSink(client, "", log.New())

	assert.Equal(t, "cloudwatch", sink.Name())
	require.NoError(t, sink.Publish(context.Background(), testReport()))

	require.Len(t, client.inputs, 1)
	input := client.inputs[0]
	assert.Equal(t, "RDS", aws.ToString(input.Namespace))
	require.Len(t, input.MetricData, 3)

	first := input.MetricData[0]
	assert.Equal(t, "AutoIncrementCapacity", aws.ToString(first.MetricName))
	assert.Equal(t, types.StandardUnitPercent, first.Unit)
	assert.Equal(t, 100.0, aws.ToFloat64(first.Value))
	assert.Equal(t, map[string]string{
		"Host":     "host-a",
		"Database": "app",
		"Table":    "accounts",
		"Column":   "id",
	}, dimensions(first))
	assert.True(t, testReport().CapturedAt.Equal(aws.ToTime(first.Timestamp)))
}

func TestCloudWatchSink_TopPerHostAndNamespace(t *testing.T) {
	client := &fakeCloudWatch{}
	sink := newCloudWatchSink(client, "Custom/AutoInc", log.New(), metrics.TopPerHost(1))

	require.NoError(t, sink.Publish(context.Background(), testReport()))
	require.Len(t, client.inputs, 1)
	assert.Equal(t, "Custom/AutoInc", aws.ToString(client.inputs[0].Namespace))
	assert.Len(t, client.inputs[0].MetricData, 2)
}

func TestCloudWatchSink_Batches(t *testing.T) {
	var columns []fleet.ColumnObservation
	for i := 0; i < 1201; i++ {
		columns = append(columns, fleet.ColumnObservation{
			Schema: "app", Table: fmt.Sprintf("t%d", i), Column: "id",
			Counter: big.NewInt(1), Ceiling: big.NewInt(127), Percentage: 0.78,
		})
	}
	report := &fleet.Report{Hosts: []fleet.HostReport{{Host: "h", Columns: columns}}}

	client := &fakeCloudWatch{}
	require.NoError(t, newCloudWatchSink(client, "", log.New()).Publish(context.Background(), report))

	require.Len(t, client.inputs, 3)
	assert.Len(t, client.inputs[0].MetricData, 500)
	assert.Len(t, client.inputs[1].MetricData, 500)
	assert.Len(t, client.inputs[2].MetricData, 201)
}

func TestCloudWatchSink_Error(t *testing.T) {
	client := &fakeCloudWatch{err: errors.New("Throttling")}
	err := newCloudWatchSink(client, "", log.New()).Publish(context.Background(), testReport())
	assert.ErrorContains(t, err, "Throttling")
}
