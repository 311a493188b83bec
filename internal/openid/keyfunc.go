package openid

import (
	"context"
	"fmt"

	jwtv5 "github.com/golang-jwt/jwt/v5"
)

// Keyfunc adapta el resolver a golang-jwt: toma el kid del header del token y
// entrega la *rsa.PublicKey correspondiente. La verificación de firma y claims
// queda en jwtv5.Parse; acá solo se provee material.
func (r *Resolver) Keyfunc(ctx context.Context) jwtv5.Keyfunc {
	return func(t *jwtv5.Token) (any, error) {
		kid, _ := t.Header["kid"].(string)
		if kid == "" {
			return nil, fmt.Errorf("%w: token without kid", ErrKeyNotFound)
		}
		rk, ok := r.ResolveKey(ctx, kid)
		if !ok {
			return nil, fmt.Errorf("%w: kid=%s", ErrKeyNotFound, kid)
		}
		return jwtv5.ParseRSAPublicKeyFromPEM([]byte(rk.PublicKeyPEM))
	}
}
