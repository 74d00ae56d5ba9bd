package auth

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Config carries the signing material. It is injected rather than
// read from the environment so tests can construct issuers directly.
type Config struct {
	Secret   string
	Issuer   string
	Audience string
	TTL      time.Duration
}

type JWTIssuer struct {
	secret   []byte
	issuer   string
	audience string
	ttl      time.Duration
}

func NewJWTIssuer(cfg Config) (*JWTIssuer, error) {
	if cfg.Secret == "" {
		return nil, errors.New("auth secret is required")
	}
	ttl := cfg.TTL
	if ttl == 0 {
		ttl = 15 * time.Minute
	}
	return &JWTIssuer{
		secret:   []byte(cfg.Secret),
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		ttl:      ttl,
	}, nil
}

func (j *JWTIssuer) Issue(username string) (string, time.Time, error) {
	now := time.Now()
	exp := now.Add(j.ttl)
	claims := jwt.RegisteredClaims{
		Issuer:    j.issuer,
		Subject:   username,
		Audience:  jwt.ClaimStrings{j.audience},
		IssuedAt:  jwt.NewNumericDate(now),
		NotBefore: jwt.NewNumericDate(now.Add(-30 * time.Second)), // small skew
		ExpiresAt: jwt.NewNumericDate(exp),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(j.secret)
	return signed, exp, err
}
