package openid

import (
	"crypto/rsa"
	"crypto/x509"
	"encoding/base64"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"strings"
)

const pemTypeRSAPublic = "RSA PUBLIC KEY"

// RSAPublicKey construye la clave a partir de modulus/exponent en base64url
// (big-endian). Acepta con o sin padding.
func RSAPublicKey(n, e string) (*rsa.PublicKey, error) {
	nb, err := decodeB64URL(n)
	if err != nil {
		return nil, fmt.Errorf("modulus: %w", err)
	}
	eb, err := decodeB64URL(e)
	if err != nil {
		return nil, fmt.Errorf("exponent: %w", err)
	}

	mod := new(big.Int).SetBytes(nb)
	if mod.Sign() == 0 {
		return nil, errors.New("modulus: zero")
	}
	exp := new(big.Int).SetBytes(eb)
	// exponent tiene que entrar en int y ser > 1
	if !exp.IsInt64() || exp.Int64() < 2 || exp.Int64() > int64(^uint32(0)>>1) {
		return nil, fmt.Errorf("exponent: out of range")
	}
	return &rsa.PublicKey{N: mod, E: int(exp.Int64())}, nil
}

// PublicKeyPEM devuelve la clave en PEM PKCS#1 ("RSA PUBLIC KEY").
func PublicKeyPEM(n, e string) (string, error) {
	pub, err := RSAPublicKey(n, e)
	if err != nil {
		return "", err
	}
	block := &pem.Block{Type: pemTypeRSAPublic, Bytes: x509.MarshalPKCS1PublicKey(pub)}
	return string(pem.EncodeToMemory(block)), nil
}

func decodeB64URL(s string) ([]byte, error) {
	s = strings.TrimRight(strings.TrimSpace(s), "=")
	if s == "" {
		return nil, errors.New("empty")
	}
	return base64.RawURLEncoding.DecodeString(s)
}
