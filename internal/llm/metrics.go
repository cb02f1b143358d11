package llm

import (
	"context"
	"sync"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const usageMeterName = "anima/llm"

var (
	inputTokensCounter  metric.Int64Counter
	outputTokensCounter metric.Int64Counter
	usageMetricsOnce    sync.Once
	usageMetricsReady   bool
)

func initUsageMetrics() {
	meter := otel.Meter(usageMeterName)
	var err error
	inputTokensCounter, err = meter.Int64Counter(
		"anima.llm.input_tokens",
		metric.WithDescription("Input tokens sent to the LLM"),
	)
	if err != nil {
		return
	}
	outputTokensCounter, err = meter.Int64Counter(
		"anima.llm.output_tokens",
		metric.WithDescription("Output tokens returned by the LLM"),
	)
	if err != nil {
		return
	}
	usageMetricsReady = true
}

// recordUsageMetrics accumulates token usage per provider and model.
func recordUsageMetrics(ctx context.Context, provider, model string, inputTokens, outputTokens int) {
	usageMetricsOnce.Do(initUsageMetrics)
	if !usageMetricsReady {
		return
	}
	attrs := metric.WithAttributes(
		attribute.String("provider", provider),
		attribute.String("model", model),
	)
	inputTokensCounter.Add(ctx, int64(inputTokens), attrs)
	outputTokensCounter.Add(ctx, int64(outputTokens), attrs)
}
