package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dropDatabas3/keyresolver/internal/observability/logger"
	"github.com/dropDatabas3/keyresolver/internal/openid"
)

type keysHandler struct {
	resolver KeyResolver
}

// GET /v1/keys/{kid}
func (h *keysHandler) getKey(w http.ResponseWriter, r *http.Request) {
	kid := chi.URLParam(r, "kid")
	if kid == "" {
		WriteError(w, http.StatusBadRequest, "invalid_request", "kid requerido")
		return
	}
	rk, ok := h.resolver.ResolveKey(r.Context(), kid)
	if !ok {
		WriteError(w, http.StatusNotFound, "key_not_found", "kid desconocido o no RSA")
		return
	}
	WriteJSON(w, http.StatusOK, rk)
}

// GET /v1/issuer/{tenant}
func (h *keysHandler) getIssuer(w http.ResponseWriter, r *http.Request) {
	tenant := chi.URLParam(r, "tenant")
	iss, err := h.resolver.IssuerTemplate(tenant)
	if errors.Is(err, openid.ErrNotConfigured) {
		WriteError(w, http.StatusServiceUnavailable, "not_configured", "discovery todavía no resuelto; resolver una clave primero")
		return
	}
	if err != nil {
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
		return
	}
	WriteJSON(w, http.StatusOK, map[string]string{"issuer": iss})
}

// POST /v1/refresh fuerza el protocolo de dos hops.
func (h *keysHandler) refresh(w http.ResponseWriter, r *http.Request) {
	err := h.resolver.Refresh(r.Context())
	switch {
	case err == nil:
		w.WriteHeader(http.StatusNoContent)
	case errors.Is(err, openid.ErrDiscoveryFetch):
		logger.From(r.Context()).Warn("manual refresh failed", logger.Stage(string(openid.StageDiscovery)), logger.Err(err))
		WriteError(w, http.StatusBadGateway, "discovery_fetch_failed", err.Error())
	case errors.Is(err, openid.ErrJWKSFetch):
		logger.From(r.Context()).Warn("manual refresh failed", logger.Stage(string(openid.StageJWKS)), logger.Err(err))
		WriteError(w, http.StatusBadGateway, "jwks_fetch_failed", err.Error())
	default:
		WriteError(w, http.StatusInternalServerError, "internal_error", err.Error())
	}
}

// GET /v1/stats
func (h *keysHandler) stats(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, h.resolver.Stats())
}

// GET /readyz: vivo siempre; "configured" indica si ya hubo discovery.
func (h *keysHandler) readyz(w http.ResponseWriter, r *http.Request) {
	st := h.resolver.Stats()
	WriteJSON(w, http.StatusOK, map[string]any{
		"status":     "ok",
		"configured": st.Configured,
		"keys":       st.KeyCount,
	})
}
