package api

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"fitness-coaching-platform/internal/domain"
	"fitness-coaching-platform/internal/domain/model"
)

// sessionClaims is the JWT payload. The role travels in the token so guards
// can authorize without a user lookup per request.
type sessionClaims struct {
	Role  string `json:"role"`
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// TokenIssuer mints and verifies signed bearer tokens.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

func (i *TokenIssuer) Issue(u *model.User) (string, error) {
	now := time.Now()
	claims := sessionClaims{
		Role:  string(u.Role),
		Email: u.Email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   u.ID,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.secret)
}

func (i *TokenIssuer) Parse(raw string) (*sessionClaims, error) {
	var claims sessionClaims
	tok, err := jwt.ParseWithClaims(raw, &claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return i.secret, nil
	})
	if err != nil || !tok.Valid {
		return nil, domain.ErrInvalidCredentials
	}
	if !model.Role(claims.Role).Valid() || claims.Subject == "" {
		return nil, domain.ErrInvalidCredentials
	}
	return &claims, nil
}
