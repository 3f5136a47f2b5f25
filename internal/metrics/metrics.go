package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

var (
	// HTTP метрики
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)
	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "http_request_duration_seconds",
			Help: "Duration of HTTP requests in seconds",
		},
		[]string{"method", "path"},
	)
	HTTPRequestsInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Current number of HTTP requests in flight",
		},
	)

	// Метрики конвейера сигналов
	SignalsProcessedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "signals_processed_total",
			Help: "Total number of processed alerts by source and result",
		},
		[]string{"source", "result"},
	)
	OrdersSubmittedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "orders_submitted_total",
			Help: "Total number of submitted orders by kind and status",
		},
		[]string{"kind", "status"},
	)

	// Bitget API метрики
	BitgetAPIRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "bitget_api_requests_total",
			Help: "Total number of Bitget API requests",
		},
		[]string{"endpoint", "status"},
	)
	BitgetAPIRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name: "bitget_api_request_duration_seconds",
			Help: "Duration of Bitget API requests in seconds",
		},
		[]string{"endpoint"},
	)

	// Метрики watcher'а
	WatcherActivePlans = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "watcher_active_plans",
			Help: "Number of plans under position watcher",
		},
	)
	TPHitsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "take_profit_hits_total",
			Help: "Total number of take profit levels reached",
		},
	)
	BreakevenFiredTotal = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "breakeven_fired_total",
			Help: "Total number of stops moved to breakeven",
		},
	)
)

func InitMetrics() {
	// Регистрация HTTP метрик
	prometheus.MustRegister(HTTPRequestsTotal)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestsInFlight)

	// Регистрация метрик конвейера
	prometheus.MustRegister(SignalsProcessedTotal)
	prometheus.MustRegister(OrdersSubmittedTotal)

	// Регистрация Bitget метрик
	prometheus.MustRegister(BitgetAPIRequestsTotal)
	prometheus.MustRegister(BitgetAPIRequestDuration)

	// Регистрация метрик watcher'а
	prometheus.MustRegister(WatcherActivePlans)
	prometheus.MustRegister(TPHitsTotal)
	prometheus.MustRegister(BreakevenFiredTotal)

	// Стандартные метрики Go
	prometheus.MustRegister(prometheus.NewGoCollector())
	prometheus.MustRegister(prometheus.NewProcessCollector(prometheus.ProcessCollectorOpts{}))
}
