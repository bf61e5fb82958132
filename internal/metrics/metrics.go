package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TicksTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "ticks_total", Help: "Count of market ticks ingested"},
		[]string{"instrument"},
	)
	BarsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "bars_total", Help: "Bars closed by the aggregator"},
		[]string{"instrument"},
	)
	SignalsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "signals_total", Help: "Trade signals emitted"},
		[]string{"instrument", "direction"},
	)
	GateRejectionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "gate_rejections_total", Help: "Bars rejected by a fusion gate"},
		[]string{"instrument", "reason"},
	)
)

func init() {
	prometheus.MustRegister(TicksTotal, BarsTotal, SignalsTotal, GateRejectionsTotal)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
