package metrics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestFilterAttributesDropsForbiddenLabels(t *testing.T) {
	attrs := FilterAttributes(
		attribute.String("org_id", "123"),
		attribute.String("entity_name", "Jane"),
		attribute.String("table", "core_entities"),
	)
	if len(attrs) != 2 {
		t.Fatalf("expected 2 attributes, got %d", len(attrs))
	}
	if attrs[0].Key != "org_id" && attrs[1].Key != "org_id" {
		t.Fatalf("expected org_id to be retained")
	}
	if attrs[0].Key != "table" && attrs[1].Key != "table" {
		t.Fatalf("expected table to be retained")
	}
}

func TestRecordersTolerateNilAndNoop(t *testing.T) {
	var nilMetrics *Metrics
	nilMetrics.RecordGuardrailCheck(context.Background(), "core_entities", "create", "valid")

	m, err := New(Config{}, noop.NewMeterProvider())
	if err != nil {
		t.Fatalf("new metrics: %v", err)
	}
	m.RecordGuardrailCheck(context.Background(), "core_entities", "create", "invalid")
	m.RecordUniversalOperation(context.Background(), "core_entities", "create", "ok")
	m.RecordAuditEvent(context.Background(), "entity.create", "ok")
}

func TestRecordGuardrailCheckCountsByOutcome(t *testing.T) {
	ctx := context.Background()
	reader := sdkmetric.NewManualReader()
	m, err := New(Config{}, sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader)))
	require.NoError(t, err)

	m.RecordGuardrailCheck(ctx, "core_entities", "create", "invalid")
	m.RecordGuardrailCheck(ctx, " core_entities ", "create", "invalid")
	m.RecordGuardrailCheck(ctx, "core_entities", "create", "valid")

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	counts := map[string]int64{}
	for _, scope := range rm.ScopeMetrics {
		for _, metric := range scope.Metrics {
			if metric.Name != "hera_guardrail_checks_total" {
				continue
			}
			sum, ok := metric.Data.(metricdata.Sum[int64])
			require.True(t, ok)
			for _, dp := range sum.DataPoints {
				outcome, _ := dp.Attributes.Value("outcome")
				table, _ := dp.Attributes.Value("table")
				assert.Equal(t, "core_entities", table.AsString())
				counts[outcome.AsString()] += dp.Value
			}
		}
	}
	assert.Equal(t, map[string]int64{"invalid": 2, "valid": 1}, counts)
}
