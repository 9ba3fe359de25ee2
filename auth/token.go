// Package auth validates bearer tokens issued by the external identity
// provider. Token issuance is out of scope; GenerateToken exists for tests
// and local development.
package auth

import (
	"errors"
	"time"

	"recurring-poll-backend/config"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken = errors.New("invalid token")
)

// Identity is what a verified token asserts about its bearer.
type Identity struct {
	Subject string
	Role    string
}

// Verifier checks a bearer token and returns the identity it carries.
type Verifier interface {
	Verify(token string) (Identity, error)
}

// JWTVerifier validates HS256-signed JWTs.
type JWTVerifier struct {
	secret []byte
}

func NewJWTVerifier(secret []byte) *JWTVerifier {
	return &JWTVerifier{secret: secret}
}

// NewJWTVerifierFromEnv reads the signing secret from JWT_SECRET.
func NewJWTVerifierFromEnv() *JWTVerifier {
	return NewJWTVerifier([]byte(config.GetEnv("JWT_SECRET", "")))
}

func (v *JWTVerifier) Verify(tokenString string) (Identity, error) {
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, ErrInvalidToken
		}
		return v.secret, nil
	})
	if err != nil || !token.Valid {
		return Identity{}, ErrInvalidToken
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return Identity{}, ErrInvalidToken
	}

	id := Identity{}
	if sub, ok := claims["id"].(string); ok {
		id.Subject = sub
	}
	if role, ok := claims["role"].(string); ok {
		id.Role = role
	}
	return id, nil
}

// GenerateToken signs a token for the given identity, valid for 24 hours.
func GenerateToken(secret []byte, subject, role string) (string, error) {
	claims := jwt.MapClaims{
		"id":   subject,
		"role": role,
		"exp":  time.Now().Add(24 * time.Hour).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(secret)
}
