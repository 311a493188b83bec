package main

import (
	"bytes"
	"context"
	"crypto/rand"
	"crypto/rsa"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dropDatabas3/keyresolver/internal/config"
)

func fakeIdP(t *testing.T) *httptest.Server {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	mux := http.NewServeMux()
	var srv *httptest.Server
	mux.HandleFunc("/.well-known/openid-configuration", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]string{
			"issuer":   "https://sts.example/{tenantid}/",
			"jwks_uri": srv.URL + "/keys",
		})
	})
	mux.HandleFunc("/keys", func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(map[string]any{"keys": []map[string]any{{
			"kty":          "RSA",
			"kid":          "k1",
			"n":            base64.RawURLEncoding.EncodeToString(key.PublicKey.N.Bytes()),
			"e":            "AQAB",
			"endorsements": []string{"msteams"},
		}}})
	})
	srv = httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func run(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(append([]string{"--env-file", ""}, args...))
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestCLI_ResolveIssuerRefresh(t *testing.T) {
	t.Setenv("OPENID_DISCOVERY_URL", "")
	t.Setenv("KEYRESOLVER_CONFIG", "")
	srv := fakeIdP(t)
	disc := srv.URL + "/.well-known/openid-configuration"

	out, err := run(t, "--discovery-url", disc, "resolve", "k1")
	require.NoError(t, err)
	require.Contains(t, out, "BEGIN RSA PUBLIC KEY")
	require.Contains(t, out, "msteams")

	out, err = run(t, "--discovery-url", disc, "issuer", "contoso")
	require.NoError(t, err)
	require.Equal(t, "https://sts.example/contoso/", strings.TrimSpace(out))

	out, err = run(t, "--discovery-url", disc, "refresh")
	require.NoError(t, err)
	require.Contains(t, out, `"key_count": 1`)

	_, err = run(t, "--discovery-url", disc, "resolve", "missing")
	require.Error(t, err)
}

func TestCLI_RequiresDiscoveryURL(t *testing.T) {
	t.Setenv("OPENID_DISCOVERY_URL", "")
	t.Setenv("KEYRESOLVER_CONFIG", "")
	_, err := run(t, "refresh")
	require.Error(t, err)
}

func TestBuildVersion(t *testing.T) {
	cfg := &config.Config{}
	cfg.App.Version = "1.4.0"
	require.Equal(t, "1.4.0", buildVersion(cfg), "sin ldflags usa app.version")

	old := version
	t.Cleanup(func() { version = old })
	version = "2.0.0"
	require.Equal(t, "2.0.0", buildVersion(cfg), "ldflags gana")
}
