package httpapi

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/clearpane/k8s-live-gateway/internal/core"
)

// watcherStateNames enumerates every value watcher.Watcher.State() can
// report, so the gauge vector reports an explicit 0 for states the
// watcher is not currently in rather than omitting the series.
var watcherStateNames = []string{"init", "watch", "backoff"}

// newMetricsHandler builds a dedicated Prometheus registry (rather
// than registering onto the global DefaultRegisterer) and returns an
// http.Handler that refreshes the gauges from live sources on every
// scrape.
func newMetricsHandler(store *core.Store, sessionCount func() int, watcherStates func() map[core.Kind]string) http.Handler {
	reg := prometheus.NewRegistry()

	storeRecords := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "k8s_live_gateway_store_records",
		Help: "Current number of records held in the Store, per kind.",
	}, []string{"kind"})

	watcherState := prometheus.NewGaugeVec(prometheus.GaugeOpts{
		Name: "k8s_live_gateway_watcher_state",
		Help: "1 if the watcher for kind is currently in the named state, 0 otherwise.",
	}, []string{"kind", "state"})

	activeSessions := prometheus.NewGaugeFunc(prometheus.GaugeOpts{
		Name: "k8s_live_gateway_ws_active_sessions",
		Help: "Current number of open WebSocket sessions.",
	}, func() float64 { return float64(sessionCount()) })

	reg.MustRegister(storeRecords, watcherState, activeSessions)

	handler := promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		for _, kind := range core.Kinds {
			storeRecords.WithLabelValues(string(kind)).Set(float64(store.Count(kind)))
		}
		for kind, current := range watcherStates() {
			for _, candidate := range watcherStateNames {
				v := 0.0
				if candidate == current {
					v = 1
				}
				watcherState.WithLabelValues(string(kind), candidate).Set(v)
			}
		}
		handler.ServeHTTP(w, r)
	})
}
