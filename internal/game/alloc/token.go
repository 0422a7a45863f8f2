package alloc

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// TokenMinter mints the session-scoped authorization token shared by every
// access code of one session.
type TokenMinter func(sessionID int, expiresAt time.Time) (string, error)

// PlaceholderMinter is used when no signing key is configured. The literal
// value is what legacy clients expect for an unsecured session.
func PlaceholderMinter(int, time.Time) (string, error) {
	return "empty", nil
}

// JWTMinter mints opaque session tokens as HS256-signed JWTs. The token
// expires together with the session.
func JWTMinter(secret []byte, issuer string) TokenMinter {
	return func(sessionID int, expiresAt time.Time) (string, error) {
		now := time.Now().UTC()
		claims := jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   strconv.Itoa(sessionID),
			ID:        uuid.NewString(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expiresAt.UTC()),
		}
		signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
		if err != nil {
			return "", fmt.Errorf("sign session token: %w", err)
		}
		return signed, nil
	}
}

// VerifyToken checks a minted token's signature and returns the session id
// it was minted for.
func VerifyToken(token string, secret []byte, issuer string) (int, error) {
	var claims jwt.RegisteredClaims
	_, err := jwt.ParseWithClaims(token, &claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	}, jwt.WithIssuer(issuer))
	if err != nil {
		return 0, fmt.Errorf("parse session token: %w", err)
	}
	sessionID, err := strconv.Atoi(claims.Subject)
	if err != nil {
		return 0, fmt.Errorf("decode session id claim: %w", err)
	}
	return sessionID, nil
}
