// Package profile contiene los dos puntos de integración que usa el diálogo de
// perfil: traer un recurso JSON autenticado con bearer y armar la tarjeta de
// identidad. Son contratos estables y deliberadamente finos.
package profile

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Fetcher trae un recurso JSON autenticado con un bearer token.
type Fetcher interface {
	FetchJSON(ctx context.Context, url, bearerToken string, out any) error
}

// Renderer arma una tarjeta de identidad opaca para la UI.
type Renderer interface {
	RenderCard(displayName, photoURL, subtitle string) Attachment
}

// StatusError se devuelve cuando el recurso responde >= 400.
type StatusError struct {
	URL    string
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("profile: GET %s: http %d", e.URL, e.Status)
}

// HTTPFetcher implementa Fetcher con net/http.
type HTTPFetcher struct {
	HTTP *http.Client
}

// NewHTTPFetcher crea un fetcher con timeout (0 = 10s).
func NewHTTPFetcher(timeout time.Duration) *HTTPFetcher {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HTTPFetcher{HTTP: &http.Client{Timeout: timeout}}
}

func (f *HTTPFetcher) FetchJSON(ctx context.Context, url, bearerToken string, out any) error {
	if strings.TrimSpace(bearerToken) == "" {
		return fmt.Errorf("profile: empty bearer token")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+bearerToken)
	req.Header.Set("Accept", "application/json")

	client := f.HTTP
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("profile: GET %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return &StatusError{URL: url, Status: resp.StatusCode, Body: string(b)}
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("profile: decode %s: %w", url, err)
	}
	return nil
}

// Profile es el subconjunto del perfil de usuario que usa la tarjeta.
type Profile struct {
	DisplayName       string `json:"displayName"`
	Mail              string `json:"mail"`
	JobTitle          string `json:"jobTitle"`
	UserPrincipalName string `json:"userPrincipalName"`
}

// Subtitle prioriza cargo, después mail y por último UPN.
func (p Profile) Subtitle() string {
	for _, s := range []string{p.JobTitle, p.Mail, p.UserPrincipalName} {
		if strings.TrimSpace(s) != "" {
			return s
		}
	}
	return ""
}

// Card compone Fetch + Render: trae el perfil en profileURL y arma la tarjeta.
func Card(ctx context.Context, f Fetcher, r Renderer, profileURL, photoURL, token string) (Attachment, error) {
	var p Profile
	if err := f.FetchJSON(ctx, profileURL, token, &p); err != nil {
		return Attachment{}, err
	}
	return r.RenderCard(p.DisplayName, photoURL, p.Subtitle()), nil
}
