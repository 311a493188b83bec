package openid

import "time"

// KeyRecord es una entrada del JWKS tal como la publica el proveedor.
// Solo kid, n, e y endorsements se consumen; el resto se conserva para diagnóstico.
type KeyRecord struct {
	Kid          string   `json:"kid"`
	Kty          string   `json:"kty,omitempty"`
	Use          string   `json:"use,omitempty"`
	X5t          string   `json:"x5t,omitempty"`
	N            string   `json:"n,omitempty"` // base64url, big-endian
	E            string   `json:"e,omitempty"` // base64url, big-endian
	X5c          []string `json:"x5c,omitempty"`
	Endorsements []string `json:"endorsements,omitempty"`
}

// IsRSA indica si el registro trae modulus y exponent.
func (k KeyRecord) IsRSA() bool {
	return k.N != "" && k.E != ""
}

// ResolvedKey es el resultado de un lookup exitoso. No se almacena.
type ResolvedKey struct {
	Kid          string   `json:"kid"`
	PublicKeyPEM string   `json:"public_key"`
	Endorsements []string `json:"endorsements,omitempty"`
}

// Stats es una foto del estado del resolver para ops/CLI.
type Stats struct {
	DiscoveryURL string    `json:"discovery_url"`
	Issuer       string    `json:"issuer,omitempty"`
	Configured   bool      `json:"configured"`
	KeyCount     int       `json:"key_count"`
	Generation   uint64    `json:"generation"`
	RefreshedAt  time.Time `json:"refreshed_at,omitempty"`
	Age          string    `json:"age,omitempty"`

	// MemoEntries cuenta PEM memoizados vivos; si el memo es compartido
	// incluye los de otros resolvers.
	MemoEntries int `json:"memo_entries"`
}

type discoveryDocument struct {
	Issuer  string `json:"issuer"`
	JWKSURI string `json:"jwks_uri"`
}

type jwksDocument struct {
	Keys []KeyRecord `json:"keys"`
}

// snapshot es inmutable una vez publicado.
type snapshot struct {
	keys        []KeyRecord
	byKid       map[string]int // kid -> índice de la PRIMERA aparición
	refreshedAt time.Time
	generation  uint64
}

func newSnapshot(keys []KeyRecord, at time.Time, gen uint64) *snapshot {
	s := &snapshot{
		keys:        keys,
		byKid:       make(map[string]int, len(keys)),
		refreshedAt: at,
		generation:  gen,
	}
	for i, k := range keys {
		if _, dup := s.byKid[k.Kid]; !dup {
			s.byKid[k.Kid] = i
		}
	}
	return s
}

func (s *snapshot) lookup(kid string) (KeyRecord, bool) {
	if s == nil {
		return KeyRecord{}, false
	}
	i, ok := s.byKid[kid]
	if !ok {
		return KeyRecord{}, false
	}
	return s.keys[i], true
}

func cloneStrings(in []string) []string {
	if in == nil {
		return nil
	}
	out := make([]string, len(in))
	copy(out, in)
	return out
}
