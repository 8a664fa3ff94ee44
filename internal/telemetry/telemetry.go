// Package telemetry exposes in-process Prometheus counters/gauges for a
// run. The engine and exchange packages do not write to them; only code
// holding a Registry updates them. There is no HTTP handler here —
// exporting metrics over the wire is out of scope; only the registry and
// a Gather() snapshot are provided.
package telemetry

import (
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
)

// Registry holds the metric set for one engine run.
type Registry struct {
	registry *prometheus.Registry

	Fills           *prometheus.CounterVec
	EntryRejections *prometheus.CounterVec
	FundingEvents   prometheus.Counter
	FundingPaidUSDT prometheus.Counter
	Liquidations    prometheus.Counter
	StopReasons     *prometheus.CounterVec
	OpenPositions   prometheus.Gauge
	EquityUSDT      prometheus.Gauge
	BarsSimulated   prometheus.Counter
}

// NewRegistry builds a fresh, unregistered-with-the-default-registerer
// metric set, modeled on the teacher's MetricsRegistry shape
// (internal/interfaces/http/metrics.go) minus its HTTP surface.
func NewRegistry() *Registry {
	r := &Registry{registry: prometheus.NewRegistry()}

	r.Fills = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "btcore_fills_total",
		Help: "Total number of filled entry orders by side.",
	}, []string{"side"})

	r.EntryRejections = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "btcore_entry_rejections_total",
		Help: "Total number of rejected entry attempts by reason.",
	}, []string{"reason"})

	r.FundingEvents = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "btcore_funding_events_total",
		Help: "Total number of funding events applied.",
	})

	r.FundingPaidUSDT = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "btcore_funding_paid_usdt_total",
		Help: "Net funding paid in USDT, positive when the account pays.",
	})

	r.Liquidations = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "btcore_liquidations_total",
		Help: "Total number of liquidation events.",
	})

	r.StopReasons = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "btcore_run_stop_reason_total",
		Help: "Count of completed runs by stop reason.",
	}, []string{"reason"})

	r.OpenPositions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btcore_open_positions",
		Help: "1 if a position is currently open, else 0.",
	})

	r.EquityUSDT = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "btcore_equity_usdt",
		Help: "Current account equity in USDT.",
	})

	r.BarsSimulated = prometheus.NewCounter(prometheus.CounterOpts{
		Name: "btcore_bars_simulated_total",
		Help: "Total number of bars processed in the simulation phase.",
	})

	r.registry.MustRegister(
		r.Fills, r.EntryRejections, r.FundingEvents, r.FundingPaidUSDT,
		r.Liquidations, r.StopReasons, r.OpenPositions, r.EquityUSDT, r.BarsSimulated,
	)

	return r
}

// Gather returns the current snapshot of every registered metric family,
// for a caller that wants to log or assert on run telemetry without
// standing up an HTTP exporter.
func (r *Registry) Gather() ([]*dto.MetricFamily, error) {
	return r.registry.Gather()
}
