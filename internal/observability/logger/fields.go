package logger

import (
	"time"

	"go.uber.org/zap"
)

// =================================================================================
// CAMPOS - HTTP
// =================================================================================

func RequestID(v string) zap.Field {
	return zap.String("request_id", v)
}

func Method(v string) zap.Field {
	return zap.String("method", v)
}

func Path(v string) zap.Field {
	return zap.String("path", v)
}

func Status(v int) zap.Field {
	return zap.Int("status", v)
}

func Bytes(v int) zap.Field {
	return zap.Int("bytes", v)
}

// DurationMs registra una duración en milisegundos.
func DurationMs(d time.Duration) zap.Field {
	return zap.Int64("duration_ms", d.Milliseconds())
}

// =================================================================================
// CAMPOS - OPENID
// =================================================================================

// URL es el endpoint remoto (discovery o jwks_uri).
func URL(v string) zap.Field {
	return zap.String("url", v)
}

// KID identifica una clave del JWKS.
func KID(v string) zap.Field {
	return zap.String("kid", v)
}

// Stage es el hop del refresh: "discovery" o "jwks".
func Stage(v string) zap.Field {
	return zap.String("stage", v)
}

func TenantID(v string) zap.Field {
	return zap.String("tenant_id", v)
}

func Count(v int) zap.Field {
	return zap.Int("count", v)
}

func Generation(v uint64) zap.Field {
	return zap.Uint64("generation", v)
}

// =================================================================================
// CAMPOS - SISTEMA
// =================================================================================

func Component(v string) zap.Field {
	return zap.String("component", v)
}

func Err(err error) zap.Field {
	return zap.Error(err)
}

// String crea un campo string genérico.
func String(key, v string) zap.Field {
	return zap.String(key, v)
}
