package trader

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the collectors of one engine on a private registry, so that
// several engines (or tests) never collide on registration.
type Metrics struct {
	registry       *prometheus.Registry
	tradesTotal    *prometheus.CounterVec
	skippedTotal   *prometheus.CounterVec
	fallbacksTotal *prometheus.CounterVec
	swapFailures   prometheus.Counter
	capital        prometheus.Gauge
	earnedToday    prometheus.Gauge
	tradesExecuted prometheus.Gauge
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tradesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_trades_total", Help: "Completed trades by symbol and result",
		}, []string{"symbol", "result"}),
		skippedTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_symbols_skipped_total", Help: "Iterations skipped because the symbol could not be priced",
		}, []string{"symbol"}),
		fallbacksTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "bot_price_fallbacks_total", Help: "Quotes served from the static fallback table",
		}, []string{"symbol"}),
		swapFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bot_swap_failures_total", Help: "Swaps that failed and aborted the session",
		}),
		capital: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_capital_usd", Help: "Current session capital",
		}),
		earnedToday: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_earned_today_usd", Help: "Non-negative profit booked this session",
		}),
		tradesExecuted: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "bot_trades_executed", Help: "Trades executed this session",
		}),
	}
	m.registry.MustRegister(
		m.tradesTotal,
		m.skippedTotal,
		m.fallbacksTotal,
		m.swapFailures,
		m.capital,
		m.earnedToday,
		m.tradesExecuted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mostly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

func (m *Metrics) observeState(s SessionState) {
	m.capital.Set(s.Capital.InexactFloat64())
	m.earnedToday.Set(s.EarnedToday.InexactFloat64())
	m.tradesExecuted.Set(float64(s.TradesExecuted))
}

func (m *Metrics) observeTrade(symbol string, result Result) {
	m.tradesTotal.WithLabelValues(symbol, string(result)).Inc()
}

func (m *Metrics) observeSkip(symbol string) {
	m.skippedTotal.WithLabelValues(symbol).Inc()
}

// ObserveFallback counts a fallback quote. It matches oracle.FallbackObserver.
func (m *Metrics) ObserveFallback(symbol string) {
	m.fallbacksTotal.WithLabelValues(symbol).Inc()
}

func (m *Metrics) observeSwapFailure() {
	m.swapFailures.Inc()
}
