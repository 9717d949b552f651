package telemetry

import (
	"context"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
)

// The prometheus exporter registers with the default registry, so New is
// called exactly once across this package's tests.
func TestNew_BridgesMetricsToPrometheusRegistry(t *testing.T) {
	p, err := New(context.Background(), Config{ServiceName: "mused-test"})
	require.NoError(t, err)
	defer func() {
		require.NoError(t, p.Shutdown(context.Background()))
	}()

	assert.Nil(t, p.tp)
	require.NotNil(t, p.mp)

	counter, err := otel.Meter("mused-test").Int64Counter("mused.test.events_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)

	names := make([]string, 0, len(families))
	for _, fam := range families {
		names = append(names, fam.GetName())
	}
	assert.Contains(t, names, "mused_test_events_total")
}

func TestStripScheme(t *testing.T) {
	assert.Equal(t, "collector:4318", stripScheme("http://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("https://collector:4318"))
	assert.Equal(t, "collector:4318", stripScheme("collector:4318"))
}
