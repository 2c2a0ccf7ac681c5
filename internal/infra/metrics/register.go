package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry holds the service's own collectors. It is kept apart from the
// process-wide default registry so /metrics exposes exactly what MustRegister added.
var Registry = prometheus.NewRegistry()

var (
	once   sync.Once
	queued []prometheus.Collector
)

// register queues collectors from the init funcs of this package.
func register(cs ...prometheus.Collector) {
	queued = append(queued, cs...)
}

// MustRegister adds the runtime collectors and every queued import collector
// to Registry. Later calls are no-ops.
func MustRegister() {
	once.Do(func() {
		Registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		Registry.MustRegister(queued...)
	})
}

// Handler serves Registry in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
