package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome label values.
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
)

// Metrics holds the Prometheus collectors for the portfolio service.
// All methods are safe on a nil receiver so components can run without metrics.
type Metrics struct {
	PriceLookups      *prometheus.CounterVec
	ChainCalls        *prometheus.CounterVec
	ActionsDispatched *prometheus.CounterVec
	SweepFailures     prometheus.Counter
	SweepWallets      prometheus.Counter
	PortfolioFetch    prometheus.Histogram
}

// New creates the collectors and registers them with reg.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		PriceLookups: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_price_lookups_total",
			Help: "Unit price resolutions by asset kind and outcome",
		}, []string{"kind", "outcome"}),

		ChainCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_chain_calls_total",
			Help: "starknet_call requests by entrypoint and outcome",
		}, []string{"entrypoint", "outcome"}),

		ActionsDispatched: f.NewCounterVec(prometheus.CounterOpts{
			Name: "portfolio_rebalance_actions_total",
			Help: "Rebalance actions handed to the executor",
		}, []string{"direction", "category"}),

		SweepFailures: f.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_sweep_wallet_failures_total",
			Help: "Wallets whose rebalance failed during a sweep",
		}),

		SweepWallets: f.NewCounter(prometheus.CounterOpts{
			Name: "portfolio_sweep_wallets_total",
			Help: "Wallets processed by rebalance sweeps",
		}),

		PortfolioFetch: f.NewHistogram(prometheus.HistogramOpts{
			Name:    "portfolio_fetch_duration_seconds",
			Help:    "Time to build one portfolio snapshot",
			Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
		}),
	}
}

func outcome(err error) string {
	if err != nil {
		return OutcomeError
	}
	return OutcomeOK
}

func (m *Metrics) ObservePrice(kind string, ok bool) {
	if m == nil {
		return
	}
	o := OutcomeOK
	if !ok {
		o = OutcomeError
	}
	m.PriceLookups.WithLabelValues(kind, o).Inc()
}

func (m *Metrics) ObserveChainCall(entrypoint string, err error) {
	if m == nil {
		return
	}
	m.ChainCalls.WithLabelValues(entrypoint, outcome(err)).Inc()
}

func (m *Metrics) ObserveAction(direction, category string) {
	if m == nil {
		return
	}
	m.ActionsDispatched.WithLabelValues(direction, category).Inc()
}

func (m *Metrics) ObserveSweepWallet(err error) {
	if m == nil {
		return
	}
	m.SweepWallets.Inc()
	if err != nil {
		m.SweepFailures.Inc()
	}
}

func (m *Metrics) ObserveFetch(start time.Time) {
	if m == nil {
		return
	}
	m.PortfolioFetch.Observe(time.Since(start).Seconds())
}
