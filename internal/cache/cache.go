// Package cache define el contrato mínimo de cache en memoria usado por el resolver
// para memoizar material derivado (PEM por clave y snapshot).
//
// No hay backends distribuidos: el estado del resolver vive y muere con el proceso.
package cache

import "time"

// Cache es un store key/value con TTL por entrada.
type Cache interface {
	// Get retorna el valor y true si existe y no expiró.
	Get(key string) ([]byte, bool)

	// Set guarda un valor. ttl 0 usa el TTL por defecto del backend.
	Set(key string, value []byte, ttl time.Duration)

	// Len retorna la cantidad de entradas vivas.
	Len() int
}
