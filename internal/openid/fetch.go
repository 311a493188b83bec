package openid

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
)

// Ningún discovery/JWKS razonable pesa más de 1MB.
const maxBodyBytes = 1 << 20

// getJSON hace GET a rawURL y decodifica el body en out. Cualquier falla
// (transporte, status >= 400, body vacío o JSON inválido) se reporta como
// *FetchError de la etapa indicada.
func (r *Resolver) getJSON(ctx context.Context, stage Stage, rawURL string, out any) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return &FetchError{Stage: stage, URL: rawURL, Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := r.http.Do(req)
	if err != nil {
		return &FetchError{Stage: stage, URL: rawURL, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return &FetchError{Stage: stage, URL: rawURL, Status: resp.StatusCode, Err: errStatus(resp.StatusCode)}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return &FetchError{Stage: stage, URL: rawURL, Status: resp.StatusCode, Err: err}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return &FetchError{Stage: stage, URL: rawURL, Status: resp.StatusCode, Err: errEmptyBody}
	}
	if err := json.Unmarshal(body, out); err != nil {
		return &FetchError{Stage: stage, URL: rawURL, Status: resp.StatusCode, Err: err}
	}
	return nil
}

// resolveRef permite jwks_uri relativos al discovery (poco común pero válido).
func resolveRef(base, ref string) (string, error) {
	u, err := url.Parse(ref)
	if err != nil {
		return "", err
	}
	if u.IsAbs() {
		return u.String(), nil
	}
	b, err := url.Parse(base)
	if err != nil {
		return "", err
	}
	return b.ResolveReference(u).String(), nil
}

type statusError int

func (s statusError) Error() string {
	return "unexpected status " + http.StatusText(int(s))
}

func errStatus(code int) error { return statusError(code) }
