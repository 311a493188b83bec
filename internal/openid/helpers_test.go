package openid

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"math/big"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
)

var (
	keyOnce sync.Once
	testKey *rsa.PrivateKey
)

// rsaKey genera una única clave para todo el paquete (2048 bits es lento).
func rsaKey(t *testing.T) *rsa.PrivateKey {
	t.Helper()
	keyOnce.Do(func() {
		k, err := rsa.GenerateKey(rand.Reader, 2048)
		if err != nil {
			panic(err)
		}
		testKey = k
	})
	return testKey
}

func b64(b []byte) string { return base64.RawURLEncoding.EncodeToString(b) }

func rsaRecord(kid string, pub *rsa.PublicKey) map[string]any {
	return map[string]any{
		"kty": "RSA",
		"use": "sig",
		"kid": kid,
		"n":   b64(pub.N.Bytes()),
		"e":   b64(big.NewInt(int64(pub.E)).Bytes()),
	}
}

// fakeIdP sirve /.well-known/openid-configuration y /keys con contadores.
type fakeIdP struct {
	srv *httptest.Server

	discoveryHits atomic.Int32
	jwksHits      atomic.Int32

	mu              sync.Mutex
	issuer          string
	jwksURI         string // vacío = <srv>/keys
	discoveryStatus int
	discoveryRaw    *string
	jwksStatus      int
	jwksRaw         *string
	jwksDelay       time.Duration
	keys            []map[string]any
}

func newFakeIdP(t *testing.T) *fakeIdP {
	t.Helper()
	f := &fakeIdP{issuer: "https://login.example/{tenantid}/v2"}
	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/openid-configuration", f.serveDiscovery)
	mux.HandleFunc("/keys", f.serveJWKS)
	f.srv = httptest.NewServer(mux)
	t.Cleanup(f.srv.Close)
	return f
}

func (f *fakeIdP) DiscoveryURL() string { return f.srv.URL + "/.well-known/openid-configuration" }

func (f *fakeIdP) serveDiscovery(w http.ResponseWriter, _ *http.Request) {
	f.discoveryHits.Add(1)
	f.mu.Lock()
	status, raw, issuer, jwksURI := f.discoveryStatus, f.discoveryRaw, f.issuer, f.jwksURI
	f.mu.Unlock()

	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if raw != nil {
		_, _ = w.Write([]byte(*raw))
		return
	}
	if jwksURI == "" {
		jwksURI = f.srv.URL + "/keys"
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"issuer":   issuer,
		"jwks_uri": jwksURI,
	})
}

func (f *fakeIdP) serveJWKS(w http.ResponseWriter, _ *http.Request) {
	f.jwksHits.Add(1)
	f.mu.Lock()
	status, raw, delay := f.jwksStatus, f.jwksRaw, f.jwksDelay
	keys := append([]map[string]any(nil), f.keys...)
	f.mu.Unlock()

	if delay > 0 {
		time.Sleep(delay)
	}
	if status != 0 {
		w.WriteHeader(status)
		return
	}
	if raw != nil {
		_, _ = w.Write([]byte(*raw))
		return
	}
	if keys == nil {
		keys = []map[string]any{}
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"keys": keys})
}

func (f *fakeIdP) set(fn func(f *fakeIdP)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

func (f *fakeIdP) hits() (int, int) {
	return int(f.discoveryHits.Load()), int(f.jwksHits.Load())
}

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Set(t time.Time) {
	c.mu.Lock()
	c.t = t
	c.mu.Unlock()
}

func newTestResolver(t *testing.T, discoveryURL string, mod ...func(*Config)) *Resolver {
	t.Helper()
	cfg := Config{
		DiscoveryURL: discoveryURL,
		Timeout:      2 * time.Second,
		Logger:       zap.NewNop(),
	}
	for _, m := range mod {
		m(&cfg)
	}
	r, err := New(cfg)
	if err != nil {
		t.Fatalf("new resolver: %v", err)
	}
	return r
}

func strp(s string) *string { return &s }
