package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del núcleo del portal (resolver, directorio, sesiones, guard).
// Viven en un paquete aparte para evitar ciclos entre store/tenant/portal y http.

var (
	TenantResolutions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_tenant_resolutions_total",
		Help: "Resoluciones de tenant por resultado",
	}, []string{"result"}) // result: resolved|not_found|failed|invalid_state

	DirectoryLatency = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "portal_directory_lookup_latency_ms",
		Help:    "Latencia de lookups del directorio en milisegundos",
		Buckets: prometheus.ExponentialBuckets(1, 2, 12),
	}, []string{"op"})

	DirectoryCache = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_directory_cache_total",
		Help: "Hits/misses del cache del directorio",
	}, []string{"op", "result"}) // result: hit|miss|error

	SessionRefreshes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_session_refresh_total",
		Help: "Refrescos de sesión de portal por resultado",
	}, []string{"result"}) // result: committed|superseded|failed

	ActiveSessions = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "portal_sessions_active",
		Help: "Sesiones de portal vivas en el manager",
	})

	GuardOutcomes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "portal_guard_outcomes_total",
		Help: "Decisiones del route guard",
	}, []string{"outcome"})
)

// Register registra las métricas en el registry dado (o el default si nil).
func Register(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		TenantResolutions, DirectoryLatency, DirectoryCache,
		SessionRefreshes, ActiveSessions, GuardOutcomes,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}

// ObserveLookup registra la latencia de un lookup del directorio.
func ObserveLookup(op string, start time.Time) {
	DirectoryLatency.WithLabelValues(op).Observe(float64(time.Since(start).Microseconds()) / 1000)
}
