package tokenizer

import "github.com/golang-jwt/jwt/v5"

// AccessClaims are the standard claims carried by an access token:
// sub (account id), iat, exp and jti.
type AccessClaims struct {
	jwt.RegisteredClaims
}
