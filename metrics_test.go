package kameleoon

import (
	"context"
	"testing"

	"github.com/open-feature/go-sdk/openfeature"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetricsCountEvaluations(t *testing.T) {
	reg := prometheus.NewRegistry()
	provider, err := New(
		newFakeClient().withVariation("checkout", checkoutVariation()),
		WithLogger(discardLogger()),
		WithMetrics(reg),
	)
	require.NoError(t, err)

	ctx := context.Background()
	provider.BooleanEvaluation(ctx, "checkout", false, withVariableKey("enabled"))
	provider.BooleanEvaluation(ctx, "checkout", false, withVariableKey("enabled"))
	provider.IntEvaluation(ctx, "checkout", 0, withVariableKey("enabled"))
	provider.StringEvaluation(ctx, "missing", "", withVariableKey("title"))

	evaluations := provider.metrics.evaluations
	assert.Equal(t, 2.0, testutil.ToFloat64(evaluations.WithLabelValues("boolean", "none")))
	assert.Equal(t, 1.0, testutil.ToFloat64(evaluations.WithLabelValues("int", string(openfeature.TypeMismatchCode))))
	assert.Equal(t, 1.0, testutil.ToFloat64(evaluations.WithLabelValues("string", string(openfeature.FlagNotFoundCode))))
}

func TestMetricsCountData(t *testing.T) {
	reg := prometheus.NewRegistry()
	provider, err := New(newFakeClient(), WithLogger(discardLogger()), WithMetrics(reg))
	require.NoError(t, err)

	provider.OnContextChanged(openfeature.EvaluationContext{}, openfeature.NewEvaluationContext("visitor", map[string]any{
		ConversionKey: []any{MakeConversion(1, 0), MakeConversion(2, 0)},
		CustomDataKey: MakeCustomData(3, "x"),
	}))

	dataItems := provider.metrics.dataItems
	assert.Equal(t, 2.0, testutil.ToFloat64(dataItems.WithLabelValues(ConversionKey)))
	assert.Equal(t, 1.0, testutil.ToFloat64(dataItems.WithLabelValues(CustomDataKey)))
}

func TestMetricsShareRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()

	first, err := New(newFakeClient(), WithMetrics(reg))
	require.NoError(t, err)
	second, err := New(newFakeClient(), WithMetrics(reg))
	require.NoError(t, err)

	assert.Same(t, first.metrics.evaluations, second.metrics.evaluations)
}

func TestMetricsDisabledByDefault(t *testing.T) {
	provider, err := New(newFakeClient(), WithLogger(discardLogger()))
	require.NoError(t, err)

	assert.Nil(t, provider.metrics)
	assert.NotPanics(t, func() {
		provider.BooleanEvaluation(context.Background(), "missing", false, openfeature.FlattenedContext{})
	})
}
