package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/dropDatabas3/keyresolver/internal/openid"
	"github.com/dropDatabas3/keyresolver/internal/rate"
)

type fakeResolver struct {
	keys       map[string]*openid.ResolvedKey
	issuer     string
	refreshErr error
	refreshes  int
}

func (f *fakeResolver) ResolveKey(_ context.Context, kid string) (*openid.ResolvedKey, bool) {
	rk, ok := f.keys[kid]
	return rk, ok
}

func (f *fakeResolver) IssuerTemplate(tenantID string) (string, error) {
	if f.issuer == "" {
		return "", openid.ErrNotConfigured
	}
	return "https://login/" + tenantID + "/v2", nil
}

func (f *fakeResolver) Refresh(context.Context) error {
	f.refreshes++
	return f.refreshErr
}

func (f *fakeResolver) Stats() openid.Stats {
	return openid.Stats{DiscoveryURL: "https://login/.well-known/openid-configuration", Configured: f.issuer != "", KeyCount: len(f.keys)}
}

func serve(t *testing.T, res KeyResolver, method, path string) *httptest.ResponseRecorder {
	t.Helper()
	h := NewRouter(RouterDeps{Resolver: res, Logger: zap.NewNop()})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, nil))
	return rec
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestGetKey(t *testing.T) {
	res := &fakeResolver{keys: map[string]*openid.ResolvedKey{
		"abc": {Kid: "abc", PublicKeyPEM: "-----BEGIN RSA PUBLIC KEY-----\n...", Endorsements: []string{"msteams"}},
	}}

	rec := serve(t, res, http.MethodGet, "/v1/keys/abc")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "no-store", rec.Header().Get("Cache-Control"))
	require.NotEmpty(t, rec.Header().Get("X-Request-ID"))
	body := decode(t, rec)
	require.Equal(t, "abc", body["kid"])
	require.Equal(t, []any{"msteams"}, body["endorsements"])

	rec = serve(t, res, http.MethodGet, "/v1/keys/xyz")
	require.Equal(t, http.StatusNotFound, rec.Code)
	body = decode(t, rec)
	require.Equal(t, "key_not_found", body["error"])
	require.Equal(t, rec.Header().Get("X-Request-ID"), body["request_id"])
}

func TestGetIssuer(t *testing.T) {
	rec := serve(t, &fakeResolver{}, http.MethodGet, "/v1/issuer/tenant1")
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	require.Equal(t, "not_configured", decode(t, rec)["error"])

	rec = serve(t, &fakeResolver{issuer: "set"}, http.MethodGet, "/v1/issuer/tenant1")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "https://login/tenant1/v2", decode(t, rec)["issuer"])
}

func TestRefresh(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"ok", nil, http.StatusNoContent, ""},
		{"discovery", &openid.FetchError{Stage: openid.StageDiscovery, URL: "u", Status: 500}, http.StatusBadGateway, "discovery_fetch_failed"},
		{"jwks", &openid.FetchError{Stage: openid.StageJWKS, URL: "u", Err: fmt.Errorf("dial")}, http.StatusBadGateway, "jwks_fetch_failed"},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			res := &fakeResolver{refreshErr: tc.err}
			rec := serve(t, res, http.MethodPost, "/v1/refresh")
			require.Equal(t, tc.status, rec.Code)
			require.Equal(t, 1, res.refreshes)
			if tc.code != "" {
				require.Equal(t, tc.code, decode(t, rec)["error"])
			}
		})
	}
}

func TestReadyzAndStats(t *testing.T) {
	res := &fakeResolver{issuer: "x", keys: map[string]*openid.ResolvedKey{"a": {Kid: "a"}}}

	rec := serve(t, res, http.MethodGet, "/readyz")
	require.Equal(t, http.StatusOK, rec.Code)
	body := decode(t, rec)
	require.Equal(t, "ok", body["status"])
	require.Equal(t, true, body["configured"])

	rec = serve(t, res, http.MethodGet, "/v1/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, float64(1), decode(t, rec)["key_count"])
}

func TestUnknownRoute(t *testing.T) {
	rec := serve(t, &fakeResolver{}, http.MethodGet, "/nope")
	require.Equal(t, http.StatusNotFound, rec.Code)
	require.Equal(t, "not_found", decode(t, rec)["error"])
}

func TestMetricsEndpoint(t *testing.T) {
	h := NewRouter(RouterDeps{Resolver: &fakeResolver{}, Logger: zap.NewNop(), Metrics: true})
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_RateLimited(t *testing.T) {
	res := &fakeResolver{}
	h := NewRouter(RouterDeps{
		Resolver:       res,
		Logger:         zap.NewNop(),
		RefreshLimiter: rate.NewMemoryLimiter("refresh:", 1, time.Minute),
	})

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/refresh", nil))
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/v1/refresh", nil))
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, 1, res.refreshes)

	// lecturas no pasan por el limiter
	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/stats", nil))
	require.Equal(t, http.StatusOK, rec.Code)
}

func TestRefresh_RateLimitTrustProxy(t *testing.T) {
	post := func(h http.Handler, xff string) int {
		req := httptest.NewRequest(http.MethodPost, "/v1/refresh", nil)
		req.Header.Set("X-Forwarded-For", xff)
		rec := httptest.NewRecorder()
		h.ServeHTTP(rec, req)
		return rec.Code
	}

	direct := NewRouter(RouterDeps{
		Resolver:       &fakeResolver{},
		Logger:         zap.NewNop(),
		RefreshLimiter: rate.NewMemoryLimiter("refresh:", 1, time.Minute),
	})
	require.Equal(t, http.StatusNoContent, post(direct, "10.0.0.1"))
	require.Equal(t, http.StatusTooManyRequests, post(direct, "10.0.0.2"))

	proxied := NewRouter(RouterDeps{
		Resolver:       &fakeResolver{},
		Logger:         zap.NewNop(),
		RefreshLimiter: rate.NewMemoryLimiter("refresh:", 1, time.Minute),
		TrustProxy:     true,
	})
	require.Equal(t, http.StatusNoContent, post(proxied, "10.0.0.1"))
	require.Equal(t, http.StatusNoContent, post(proxied, "10.0.0.2"))
	require.Equal(t, http.StatusTooManyRequests, post(proxied, "10.0.0.1"))
}
