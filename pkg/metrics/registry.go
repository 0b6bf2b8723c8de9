// Package metrics owns the Prometheus registry and hands out metrics sinks
// to the watcher and mirror packages.
//
// Collection is opt-in: until InitRegistry is called every constructor
// returns nil, and consumers treat a nil sink as disabled with zero
// overhead. The Prometheus implementations live in pkg/metrics/prometheus,
// which registers its constructors from init(); import it for side effects:
//
//	import _ "github.com/marmos91/dittowatch/pkg/metrics/prometheus"
package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	mu       sync.RWMutex
	registry *prometheus.Registry
)

// InitRegistry enables metrics collection with a fresh registry carrying the
// Go runtime and process collectors. Calling it again replaces the registry.
func InitRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	mu.Lock()
	registry = reg
	mu.Unlock()
	return reg
}

// Reset disables metrics collection. Sinks created earlier keep working
// against the old registry.
func Reset() {
	mu.Lock()
	registry = nil
	mu.Unlock()
}

// IsEnabled reports whether InitRegistry has been called.
func IsEnabled() bool {
	mu.RLock()
	defer mu.RUnlock()
	return registry != nil
}

// GetRegistry returns the active registry, or nil when disabled.
func GetRegistry() *prometheus.Registry {
	mu.RLock()
	defer mu.RUnlock()
	return registry
}

// Handler serves the active registry in the Prometheus exposition format.
// It responds 503 when metrics are disabled.
func Handler() http.Handler {
	reg := GetRegistry()
	if reg == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			http.Error(w, "metrics disabled", http.StatusServiceUnavailable)
		})
	}
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})
}
