package telemetry

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRegistryRegistersAllFamilies(t *testing.T) {
	r := NewRegistry()

	r.Fills.WithLabelValues("long").Inc()
	r.EntryRejections.WithLabelValues("entries_disabled").Inc()
	r.FundingEvents.Inc()
	r.Liquidations.Inc()
	r.StopReasons.WithLabelValues("end_of_data").Inc()
	r.OpenPositions.Set(1)
	r.EquityUSDT.Set(1050.5)
	r.BarsSimulated.Add(100)

	families, err := r.Gather()
	require.NoError(t, err)
	assert.NotEmpty(t, families)

	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"btcore_fills_total", "btcore_entry_rejections_total", "btcore_funding_events_total",
		"btcore_liquidations_total", "btcore_run_stop_reason_total", "btcore_open_positions",
		"btcore_equity_usdt", "btcore_bars_simulated_total",
	} {
		assert.True(t, names[want], "missing metric family %s", want)
	}
}

func TestNewRegistryIndependentInstances(t *testing.T) {
	r1 := NewRegistry()
	r2 := NewRegistry()

	r1.Fills.WithLabelValues("long").Inc()

	families, err := r2.Gather()
	require.NoError(t, err)
	for _, f := range families {
		if f.GetName() == "btcore_fills_total" {
			for _, m := range f.GetMetric() {
				assert.Equal(t, 0.0, m.GetCounter().GetValue())
			}
		}
	}
}
