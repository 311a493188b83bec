package openid

import (
	"errors"
	"fmt"
)

var (
	// ErrDiscoveryFetch: falló el hop 1 (documento discovery).
	ErrDiscoveryFetch = errors.New("openid: discovery fetch failed")
	// ErrJWKSFetch: falló el hop 2 (jwks_uri).
	ErrJWKSFetch = errors.New("openid: jwks fetch failed")
	// ErrNotConfigured: se pidió el issuer antes de un discovery exitoso.
	ErrNotConfigured = errors.New("openid: issuer not configured, resolve a key first")
	// ErrKeyNotFound lo usa Keyfunc cuando el kid no resuelve.
	ErrKeyNotFound = errors.New("openid: signing key not found")

	errEmptyBody = errors.New("empty body")
)

// Stage identifica el hop del refresh.
type Stage string

const (
	StageDiscovery Stage = "discovery"
	StageJWKS      Stage = "jwks"
)

// FetchError describe un hop fallido. errors.Is matchea tanto el sentinel de
// la etapa (ErrDiscoveryFetch / ErrJWKSFetch) como la causa.
type FetchError struct {
	Stage  Stage
	URL    string
	Status int // 0 si no hubo respuesta HTTP
	Err    error
}

func (e *FetchError) Error() string {
	if e.Status != 0 {
		return fmt.Sprintf("openid: %s fetch %s: http %d: %v", e.Stage, e.URL, e.Status, e.Err)
	}
	return fmt.Sprintf("openid: %s fetch %s: %v", e.Stage, e.URL, e.Err)
}

func (e *FetchError) Unwrap() []error {
	errs := []error{e.sentinel()}
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	return errs
}

func (e *FetchError) sentinel() error {
	if e.Stage == StageJWKS {
		return ErrJWKSFetch
	}
	return ErrDiscoveryFetch
}

func missingField(name string) error {
	return fmt.Errorf("missing %q in response", name)
}
