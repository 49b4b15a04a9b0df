// README: HS256 token verifier used outside production when Firebase is not configured.
package infra

import (
	"context"
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var ErrInvalidToken = errors.New("invalid token")

type devClaims struct {
	Role string `json:"role,omitempty"`
	jwt.RegisteredClaims
}

type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret)}
}

func (v *JWTVerifier) VerifyIDToken(_ context.Context, idToken string) (*FirebaseToken, error) {
	token, err := jwt.ParseWithClaims(idToken, &devClaims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil {
		return nil, ErrInvalidToken
	}
	claims, ok := token.Claims.(*devClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrInvalidToken
	}
	out := &FirebaseToken{UID: claims.Subject, Claims: map[string]interface{}{}}
	if claims.Role != "" {
		out.Claims["role"] = claims.Role
	}
	return out, nil
}

// Issue signs a token for uid; used by local tooling and tests.
func (v *JWTVerifier) Issue(uid string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := devClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   uid,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			Issuer:    "kurs-dev",
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(v.secret)
}
