package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistersCollectors(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.Ticks.Inc()
	m.FilterBlocks.WithLabelValues("session").Inc()
	m.Balance.Set(10000)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.Ticks))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.FilterBlocks.WithLabelValues("session")))
	assert.Equal(t, 10000.0, testutil.ToFloat64(m.Balance))

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "bot_ticks_total")
	assert.Contains(t, names, "bot_filter_blocks_total")
	assert.Contains(t, names, "bot_balance")
}

func TestNewWithoutRegistry(t *testing.T) {
	assert.NotPanics(t, func() {
		New(nil).Ticks.Inc()
		New(nil).Ticks.Inc()
	})
}
