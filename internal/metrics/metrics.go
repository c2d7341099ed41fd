package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Namespace for all shell metrics
const namespace = "studyhall"

// Registry is the global Prometheus registry for all metrics
var Registry = prometheus.NewRegistry()

// AppInfo is a gauge that exposes application version information as labels
var AppInfo = promauto.With(Registry).NewGaugeVec(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "app_info",
		Help:      "Application version information (always set to 1, version info in labels)",
	},
	[]string{"version", "commit", "build_date"},
)

// Navigation guard metrics

// GuardDecisionsTotal counts guard outcomes. decision: proceed|redirect, target: redirect route name or "".
var GuardDecisionsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "guard_decisions_total",
		Help:      "Total number of navigation guard decisions",
	},
	[]string{"decision", "target"},
)

// CredentialPurgesTotal counts stored credentials removed because they could not be decoded
var CredentialPurgesTotal = promauto.With(Registry).NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "credential_purges_total",
		Help:      "Total number of malformed credentials purged by the navigation guard",
	},
)

// Event bus metrics

var BusEventsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bus_events_total",
		Help:      "Total number of events emitted on the event bus",
	},
	[]string{"event"},
)

var BusListenerFailuresTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "bus_listener_failures_total",
		Help:      "Total number of event listeners that returned an error or panicked",
	},
	[]string{"event"},
)

// Route table metrics

// RouteReloadsTotal tracks route file reloads. result: success|error
var RouteReloadsTotal = promauto.With(Registry).NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "route_reloads_total",
		Help:      "Total number of route table reload attempts",
	},
	[]string{"result"},
)

var RouteTableSize = promauto.With(Registry).NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "route_table_size",
		Help:      "Number of routes in the active route table",
	},
)

// Init registers runtime collectors and sets version information
func Init(version, commit, buildDate string) {
	// Register default Go metrics (memory, goroutines, GC, etc.)
	Registry.MustRegister(collectors.NewGoCollector())

	// Register process metrics (CPU, memory, file descriptors)
	Registry.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	AppInfo.WithLabelValues(version, commit, buildDate).Set(1)
}
