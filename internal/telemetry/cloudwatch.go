package telemetry

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"tubepost/internal/types"
)

// CloudWatch limits a PutMetricData call to 1000 datums; tubepost flushes
// far earlier.
const (
	cwBatchSize     = 20
	cwFlushInterval = 10 * time.Second
	cwPutTimeout    = 5 * time.Second
)

// CloudWatchClient abstracts the CloudWatch PutMetricData operation for testability.
type CloudWatchClient interface {
	PutMetricData(ctx context.Context, params *cloudwatch.PutMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.PutMetricDataOutput, error)
}

// CloudWatch buffers datums and publishes them in batches from a background
// goroutine. Close flushes whatever is pending.
type CloudWatch struct {
	client    CloudWatchClient
	namespace string
	logger    *slog.Logger

	mu      sync.Mutex
	pending []cwtypes.MetricDatum

	kick chan struct{}
	stop chan struct{}
	done chan struct{}
	once sync.Once
}

// NewCloudWatch starts the flusher. An empty namespace uses
// types.MetricNamespace.
func NewCloudWatch(client CloudWatchClient, namespace string, logger *slog.Logger) *CloudWatch {
	if namespace == "" {
		namespace = types.MetricNamespace
	}
	if logger == nil {
		logger = slog.Default()
	}
	cw := &CloudWatch{
		client:    client,
		namespace: namespace,
		logger:    logger,
		kick:      make(chan struct{}, 1),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
	go cw.run()
	return cw
}

func (c *CloudWatch) run() {
	defer close(c.done)
	ticker := time.NewTicker(cwFlushInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ticker.C:
			c.Flush()
		case <-c.kick:
			c.Flush()
		case <-c.stop:
			c.Flush()
			return
		}
	}
}

// Close stops the flusher after a final flush.
func (c *CloudWatch) Close() error {
	c.once.Do(func() { close(c.stop) })
	<-c.done
	return nil
}

// Flush publishes all pending datums.
func (c *CloudWatch) Flush() {
	c.mu.Lock()
	batch := c.pending
	c.pending = nil
	c.mu.Unlock()

	for len(batch) > 0 {
		n := min(len(batch), cwBatchSize)
		c.put(batch[:n])
		batch = batch[n:]
	}
}

func (c *CloudWatch) put(data []cwtypes.MetricDatum) {
	ctx, cancel := context.WithTimeout(context.Background(), cwPutTimeout)
	defer cancel()
	_, err := c.client.PutMetricData(ctx, &cloudwatch.PutMetricDataInput{
		Namespace:  aws.String(c.namespace),
		MetricData: data,
	})
	if err != nil {
		c.logger.Error("failed to publish metrics", "error", err.Error(), "datums", len(data))
	}
}

func (c *CloudWatch) add(d cwtypes.MetricDatum) {
	d.Timestamp = aws.Time(time.Now())
	c.mu.Lock()
	c.pending = append(c.pending, d)
	full := len(c.pending) >= cwBatchSize
	c.mu.Unlock()
	if full {
		select {
		case c.kick <- struct{}{}:
		default:
		}
	}
}

func count(name string, dims ...string) cwtypes.MetricDatum {
	d := cwtypes.MetricDatum{
		MetricName: aws.String(name),
		Value:      aws.Float64(1),
		Unit:       cwtypes.StandardUnitCount,
	}
	for i := 0; i+1 < len(dims); i += 2 {
		d.Dimensions = append(d.Dimensions, cwtypes.Dimension{
			Name:  aws.String(dims[i]),
			Value: aws.String(dims[i+1]),
		})
	}
	return d
}

func (c *CloudWatch) RecordRequest(method, endpoint, status string, duration time.Duration) {
	c.add(cwtypes.MetricDatum{
		MetricName: aws.String(types.MetricAPILatency),
		Value:      aws.Float64(float64(duration.Milliseconds())),
		Unit:       cwtypes.StandardUnitMilliseconds,
		Dimensions: []cwtypes.Dimension{
			{Name: aws.String(types.DimEndpoint), Value: aws.String(method + " " + endpoint)},
			{Name: aws.String("Status"), Value: aws.String(status)},
		},
	})
}

func (c *CloudWatch) RecordAction(kind string) {
	c.add(count(types.MetricActionDispatched, types.DimKind, kind))
}

func (c *CloudWatch) RecordRejection(kind, reason string) {
	c.add(count(types.MetricActionRejected, types.DimKind, kind, types.DimReason, reason))
}

func (c *CloudWatch) RecordConnect(outcome string) {
	c.add(count(types.MetricConnectCompleted, "Outcome", outcome))
}

func (c *CloudWatch) RecordUpgrade(source string) {
	c.add(count(types.MetricPlanUpgraded, types.DimSource, source))
}

func (c *CloudWatch) RecordExternalFailure(provider, reason string) {
	c.add(count(types.MetricExternalAPIFailure, types.DimProvider, provider, types.DimReason, reason))
}

func (c *CloudWatch) RecordCacheHit(hit bool) {
	if hit {
		c.add(count(types.MetricLookupCacheHit))
	}
}

var _ Collector = (*CloudWatch)(nil)
