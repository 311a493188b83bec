package openid

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync/atomic"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/dropDatabas3/keyresolver/internal/cache"
	"github.com/dropDatabas3/keyresolver/internal/cache/memory"
	"github.com/dropDatabas3/keyresolver/internal/metrics"
	"github.com/dropDatabas3/keyresolver/internal/observability/logger"
)

const (
	// DefaultFreshness es la ventana durante la cual no se refresca el JWKS.
	DefaultFreshness = 5 * 24 * time.Hour
	// DefaultTimeout acota cada hop HTTP.
	DefaultTimeout = 5 * time.Second

	// TenantPlaceholder es el literal que IssuerTemplate reemplaza.
	TenantPlaceholder = "{tenantid}"
)

// Config configura un Resolver. Solo DiscoveryURL es obligatorio.
type Config struct {
	DiscoveryURL string

	HTTPClient *http.Client
	Timeout    time.Duration // por hop; default DefaultTimeout
	Freshness  time.Duration // default DefaultFreshness

	// Now permite inyectar un reloj (tests). Default time.Now.
	Now func() time.Time

	Logger *zap.Logger // default logger.Named("openid")
	Memo   cache.Cache // memo de PEM; default go-cache en memoria
}

// Resolver cachea discovery + JWKS de un proveedor y resuelve kids a PEM.
// Es seguro para uso concurrente. No hay teardown: vive lo que el proceso.
type Resolver struct {
	discoveryURL string
	http         *http.Client
	timeout      time.Duration
	freshness    time.Duration
	now          func() time.Time
	log          *zap.Logger
	memo         cache.Cache

	// Dos slots independientes: el issuer se publica tras el hop 1 aunque
	// el hop 2 falle; las claves y su timestamp solo juntos tras el hop 2.
	issuer atomic.Pointer[string]
	snap   atomic.Pointer[snapshot]
	gen    atomic.Uint64

	sf singleflight.Group
}

// New valida la configuración y crea el resolver. No hace I/O.
func New(cfg Config) (*Resolver, error) {
	raw := strings.TrimSpace(cfg.DiscoveryURL)
	u, err := url.Parse(raw)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return nil, fmt.Errorf("openid: invalid discovery url %q", cfg.DiscoveryURL)
	}

	r := &Resolver{
		discoveryURL: raw,
		http:         cfg.HTTPClient,
		timeout:      cfg.Timeout,
		freshness:    cfg.Freshness,
		now:          cfg.Now,
		log:          cfg.Logger,
		memo:         cfg.Memo,
	}
	if r.timeout <= 0 {
		r.timeout = DefaultTimeout
	}
	if r.freshness <= 0 {
		r.freshness = DefaultFreshness
	}
	if r.http == nil {
		r.http = &http.Client{Timeout: 2 * r.timeout}
	}
	if r.now == nil {
		r.now = time.Now
	}
	if r.log == nil {
		r.log = logger.Named("openid")
	}
	r.log = r.log.With(logger.URL(raw))
	if r.memo == nil {
		r.memo = memory.New(r.freshness, 0)
	}
	return r, nil
}

// DiscoveryURL retorna la URL con la que se construyó el resolver.
func (r *Resolver) DiscoveryURL() string { return r.discoveryURL }

// ResolveKey busca kid en el cache (refrescándolo si venció la ventana) y
// devuelve el PEM + endorsements. ok=false si el kid no existe, no es RSA o
// trae n/e inválidos. Las fallas de refresh se loguean, nunca se propagan.
func (r *Resolver) ResolveKey(ctx context.Context, kid string) (*ResolvedKey, bool) {
	if r.needsRefresh() {
		if err := r.refreshIfStale(ctx); err != nil {
			r.logRefreshFailure(err)
		}
	}

	snap := r.snap.Load()
	rec, found := snap.lookup(kid)
	if !found {
		metrics.OpenIDKeyLookups.WithLabelValues(metrics.LookupMiss).Inc()
		return nil, false
	}
	if !rec.IsRSA() {
		metrics.OpenIDKeyLookups.WithLabelValues(metrics.LookupNotRSA).Inc()
		return nil, false
	}

	pemStr, err := r.pemFor(snap.generation, rec)
	if err != nil {
		metrics.OpenIDKeyLookups.WithLabelValues(metrics.LookupInvalid).Inc()
		r.log.Warn("openid: invalid rsa key material", logger.KID(kid), logger.Err(err))
		return nil, false
	}

	metrics.OpenIDKeyLookups.WithLabelValues(metrics.LookupHit).Inc()
	return &ResolvedKey{
		Kid:          rec.Kid,
		PublicKeyPEM: pemStr,
		Endorsements: cloneStrings(rec.Endorsements),
	}, true
}

// IssuerTemplate retorna el issuer con {tenantid} reemplazado. Precondición:
// al menos un discovery exitoso (vía ResolveKey o Refresh); si no, ErrNotConfigured.
func (r *Resolver) IssuerTemplate(tenantID string) (string, error) {
	tpl := r.issuer.Load()
	if tpl == nil {
		return "", ErrNotConfigured
	}
	return strings.ReplaceAll(*tpl, TenantPlaceholder, tenantID), nil
}

// sfRefresh es la única key de single-flight: un Refresh manual y un lookup
// vencido que coinciden comparten el mismo round de red.
const sfRefresh = "refresh"

// Refresh ejecuta el protocolo de dos hops incondicionalmente. Llamadas
// concurrentes comparten un único round de red.
func (r *Resolver) Refresh(ctx context.Context) error {
	_, err, _ := r.sf.Do(sfRefresh, func() (any, error) {
		return nil, r.refresh(context.WithoutCancel(ctx))
	})
	return err
}

// refreshIfStale re-chequea la ventana dentro del single-flight: quien llega
// tarde a un refresh ya terminado no vuelve a ir a la red.
func (r *Resolver) refreshIfStale(ctx context.Context) error {
	_, err, _ := r.sf.Do(sfRefresh, func() (any, error) {
		if !r.needsRefresh() {
			return nil, nil
		}
		return nil, r.refresh(context.WithoutCancel(ctx))
	})
	return err
}

func (r *Resolver) needsRefresh() bool {
	snap := r.snap.Load()
	if snap == nil {
		return true
	}
	return r.now().Sub(snap.refreshedAt) > r.freshness
}

func (r *Resolver) refresh(ctx context.Context) error {
	start := time.Now()
	defer func() {
		metrics.OpenIDRefreshDuration.Observe(time.Since(start).Seconds())
	}()

	// Hop 1: discovery
	var disc discoveryDocument
	if err := r.getJSON(ctx, StageDiscovery, r.discoveryURL, &disc); err != nil {
		return r.failed(err)
	}
	if strings.TrimSpace(disc.Issuer) == "" {
		return r.failed(&FetchError{Stage: StageDiscovery, URL: r.discoveryURL, Status: http.StatusOK, Err: missingField("issuer")})
	}
	if strings.TrimSpace(disc.JWKSURI) == "" {
		return r.failed(&FetchError{Stage: StageDiscovery, URL: r.discoveryURL, Status: http.StatusOK, Err: missingField("jwks_uri")})
	}
	jwksURL, err := resolveRef(r.discoveryURL, disc.JWKSURI)
	if err != nil {
		return r.failed(&FetchError{Stage: StageDiscovery, URL: r.discoveryURL, Status: http.StatusOK, Err: err})
	}

	issuer := disc.Issuer
	r.issuer.Store(&issuer)
	metrics.OpenIDRefreshTotal.WithLabelValues(string(StageDiscovery), "ok").Inc()

	// Hop 2: JWKS
	var set jwksDocument
	if err := r.getJSON(ctx, StageJWKS, jwksURL, &set); err != nil {
		return r.failed(err)
	}
	if set.Keys == nil {
		return r.failed(&FetchError{Stage: StageJWKS, URL: jwksURL, Status: http.StatusOK, Err: missingField("keys")})
	}

	// Commit atómico de claves + timestamp
	gen := r.gen.Add(1)
	at := r.now()
	r.snap.Store(newSnapshot(set.Keys, at, gen))
	metrics.OpenIDRefreshTotal.WithLabelValues(string(StageJWKS), "ok").Inc()
	metrics.OpenIDKeysCached.Set(float64(len(set.Keys)))
	metrics.OpenIDLastRefresh.Set(float64(at.Unix()))

	r.log.Info("openid: keys refreshed",
		logger.Count(len(set.Keys)),
		logger.Generation(gen),
	)
	return nil
}

func (r *Resolver) failed(err error) error {
	var fe *FetchError
	if errors.As(err, &fe) {
		metrics.OpenIDRefreshTotal.WithLabelValues(string(fe.Stage), "error").Inc()
	}
	return err
}

func (r *Resolver) logRefreshFailure(err error) {
	fields := []zap.Field{logger.Err(err)}
	var fe *FetchError
	if errors.As(err, &fe) {
		fields = append(fields, logger.Stage(string(fe.Stage)), zap.String("fetch_url", fe.URL))
		if fe.Status != 0 {
			fields = append(fields, logger.Status(fe.Status))
		}
	}
	if snap := r.snap.Load(); snap != nil {
		fields = append(fields, zap.Time("serving_snapshot_from", snap.refreshedAt))
	}
	r.log.Warn("openid: refresh failed, serving cached keys", fields...)
}

// memoKey incluye la URL de discovery porque el memo puede compartirse entre
// resolvers y la generación es local a cada uno.
func (r *Resolver) memoKey(gen uint64, kid string) string {
	return r.discoveryURL + "|" + strconv.FormatUint(gen, 10) + ":" + kid
}

// pemFor memoiza la conversión por generación de snapshot: un snapshot nuevo
// cambia la key, así que nunca se sirve PEM de un JWKS anterior.
func (r *Resolver) pemFor(gen uint64, rec KeyRecord) (string, error) {
	key := r.memoKey(gen, rec.Kid)
	if b, ok := r.memo.Get(key); ok {
		return string(b), nil
	}
	pemStr, err := PublicKeyPEM(rec.N, rec.E)
	if err != nil {
		return "", err
	}
	r.memo.Set(key, []byte(pemStr), r.freshness)
	return pemStr, nil
}

// Keys retorna una copia de las claves del snapshot vigente (orden del JWKS).
func (r *Resolver) Keys() []KeyRecord {
	snap := r.snap.Load()
	if snap == nil {
		return nil
	}
	out := make([]KeyRecord, len(snap.keys))
	for i, k := range snap.keys {
		k.X5c = cloneStrings(k.X5c)
		k.Endorsements = cloneStrings(k.Endorsements)
		out[i] = k
	}
	return out
}

// Stats retorna una foto del estado actual.
func (r *Resolver) Stats() Stats {
	st := Stats{DiscoveryURL: r.discoveryURL, MemoEntries: r.memo.Len()}
	if tpl := r.issuer.Load(); tpl != nil {
		st.Issuer = *tpl
		st.Configured = true
	}
	if snap := r.snap.Load(); snap != nil {
		st.KeyCount = len(snap.keys)
		st.Generation = snap.generation
		st.RefreshedAt = snap.refreshedAt
		st.Age = r.now().Sub(snap.refreshedAt).Round(time.Second).String()
	}
	return st
}
