package logging

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"
)

// Metric names published by MetricsLogger.
const (
	MetricLifecycleEvents   = "LifecycleEvents"
	MetricLifecycleDuration = "LifecycleDuration"
	MetricEnablements       = "Enablements"
)

// MetricsAPI defines the CloudWatch operations used.
type MetricsAPI interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// MetricsLogger implements Logger by turning entries into CloudWatch
// metrics. Like CloudWatchLogger it never reports failures to the caller.
type MetricsLogger struct {
	client    MetricsAPI
	namespace string
}

// NewMetricsLogger creates a MetricsLogger from AWS config.
func NewMetricsLogger(awsCfg aws.Config, namespace string) *MetricsLogger {
	return NewMetricsLoggerWithClient(cloudwatch.NewFromConfig(awsCfg), namespace)
}

// NewMetricsLoggerWithClient creates a MetricsLogger with a custom client.
func NewMetricsLoggerWithClient(client MetricsAPI, namespace string) *MetricsLogger {
	return &MetricsLogger{client: client, namespace: namespace}
}

// LogEnablement counts enablement outcomes by operation and status.
func (l *MetricsLogger) LogEnablement(entry EnablementLogEntry) {
	l.put(cwtypes.MetricDatum{
		MetricName: aws.String(MetricEnablements),
		Unit:       cwtypes.StandardUnitCount,
		Value:      aws.Float64(1),
		Dimensions: dimensions("Operation", entry.Operation, "Status", entry.Status),
	})
}

// LogLifecycle counts lifecycle events by request type and outcome and
// records how long each took.
func (l *MetricsLogger) LogLifecycle(entry LifecycleLogEntry) {
	dims := dimensions("RequestType", entry.RequestType, "Outcome", entry.Outcome)
	l.put(
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricLifecycleEvents),
			Unit:       cwtypes.StandardUnitCount,
			Value:      aws.Float64(1),
			Dimensions: dims,
		},
		cwtypes.MetricDatum{
			MetricName: aws.String(MetricLifecycleDuration),
			Unit:       cwtypes.StandardUnitMilliseconds,
			Value:      aws.Float64(float64(entry.DurationMS)),
			Dimensions: dims,
		},
	)
}

func (l *MetricsLogger) put(data ...cwtypes.MetricDatum) {
	ts := time.Now()
	for i := range data {
		data[i].Timestamp = aws.Time(ts)
	}
	_, err := l.client.PutMetricData(context.Background(), &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(l.namespace),
		MetricData: data,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "cloudwatch PutMetricData error: %v\n", err)
	}
}

// dimensions builds name/value pairs, skipping empty values.
func dimensions(kv ...string) []cwtypes.Dimension {
	var dims []cwtypes.Dimension
	for i := 0; i+1 < len(kv); i += 2 {
		if kv[i+1] == "" {
			continue
		}
		dims = append(dims, cwtypes.Dimension{Name: aws.String(kv[i]), Value: aws.String(kv[i+1])})
	}
	return dims
}
