package telemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"

	"tubepost/internal/config"
)

// Backend is a configured metrics backend.
type Backend struct {
	Collector Collector
	// Handler serves /metrics; nil unless the backend is Prometheus.
	Handler http.Handler
	Close   func() error
}

// New builds the backend selected by METRICS_BACKEND.
func New(ctx context.Context, cfg config.ObservabilityConfig, logger *slog.Logger) (*Backend, error) {
	switch cfg.MetricsBackend {
	case "prometheus", "":
		p := NewPrometheus()
		return &Backend{Collector: p, Handler: p.Handler(), Close: func() error { return nil }}, nil
	case "cloudwatch":
		awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.AWSRegion))
		if err != nil {
			return nil, fmt.Errorf("load aws config: %w", err)
		}
		cw := NewCloudWatch(cloudwatch.NewFromConfig(awsCfg), cfg.MetricNamespace, logger)
		return &Backend{Collector: cw, Close: cw.Close}, nil
	case "none":
		return &Backend{Collector: Nop{}, Close: func() error { return nil }}, nil
	default:
		return nil, fmt.Errorf("unknown metrics backend %q", cfg.MetricsBackend)
	}
}
