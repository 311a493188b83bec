package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Métricas del resolver OpenID. Viven en un paquete propio para que tanto
// internal/openid como internal/http las usen sin ciclos de import.

var (
	OpenIDRefreshTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openid_refresh_total",
		Help: "Hops de refresh por etapa (discovery|jwks) y resultado (ok|error)",
	}, []string{"stage", "result"})

	OpenIDRefreshDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "openid_refresh_duration_seconds",
		Help:    "Duración del refresh completo (ambos hops)",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	})

	OpenIDKeysCached = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "openid_keys_cached",
		Help: "Claves en el snapshot vigente",
	})

	// Staleness = time() - openid_keys_last_refresh_timestamp_seconds.
	OpenIDLastRefresh = prometheus.NewGauge(prometheus.GaugeOpts{
		Name: "openid_keys_last_refresh_timestamp_seconds",
		Help: "Unix time del último refresh exitoso de claves",
	})

	OpenIDKeyLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "openid_key_lookups_total",
		Help: "Lookups por kid según resultado (hit|miss|not_rsa|invalid)",
	}, []string{"result"})
)

// Etiquetas de resultado para OpenIDKeyLookups.
const (
	LookupHit     = "hit"
	LookupMiss    = "miss"
	LookupNotRSA  = "not_rsa"
	LookupInvalid = "invalid"
)

// RegisterOpenID registra las métricas en reg (o el default si es nil).
// Registrar dos veces no es error.
func RegisterOpenID(reg prometheus.Registerer) error {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	for _, c := range []prometheus.Collector{
		OpenIDRefreshTotal,
		OpenIDRefreshDuration,
		OpenIDKeysCached,
		OpenIDLastRefresh,
		OpenIDKeyLookups,
	} {
		if err := reg.Register(c); err != nil {
			if _, ok := err.(prometheus.AlreadyRegisteredError); !ok {
				return err
			}
		}
	}
	return nil
}
