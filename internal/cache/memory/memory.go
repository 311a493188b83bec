package memory

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"github.com/dropDatabas3/keyresolver/internal/cache"
)

// Mem implementa cache.Cache sobre patrickmn/go-cache.
type Mem struct{ c *gocache.Cache }

// New crea un cache en memoria. cleanup controla cada cuánto se purgan
// entradas expiradas (0 = un minuto).
func New(defaultTTL, cleanup time.Duration) cache.Cache {
	if cleanup <= 0 {
		cleanup = time.Minute
	}
	return &Mem{c: gocache.New(defaultTTL, cleanup)}
}

func (m *Mem) Get(k string) ([]byte, bool) {
	v, ok := m.c.Get(k)
	if !ok {
		return nil, false
	}
	b, ok := v.([]byte)
	return b, ok
}

func (m *Mem) Set(k string, v []byte, ttl time.Duration) {
	if ttl == 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(k, v, ttl)
}

func (m *Mem) Len() int { return m.c.ItemCount() }
