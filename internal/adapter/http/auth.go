package http

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/golang-jwt/jwt/v5"
)

// Authenticator identifies the caller from an HS256 bearer token's "id" claim.
// Missing or invalid tokens mean an anonymous caller.
type Authenticator struct {
	secret []byte
}

// NewAuthenticator returns an Authenticator. An empty secret treats every caller as anonymous.
func NewAuthenticator(secret string) *Authenticator {
	return &Authenticator{secret: []byte(secret)}
}

// OwnerID returns the caller's id, or "" for anonymous callers.
func (a *Authenticator) OwnerID(r *http.Request) string {
	if a == nil || len(a.secret) == 0 {
		return ""
	}
	raw, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok || raw == "" {
		return ""
	}
	id, err := a.verify(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return id
}

func (a *Authenticator) verify(tokenString string) (string, error) {
	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(token *jwt.Token) (any, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return a.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return "", fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid {
		return "", fmt.Errorf("invalid token claims")
	}

	switch id := claims["id"].(type) {
	case string:
		if id != "" {
			return id, nil
		}
	case float64:
		return strconv.FormatFloat(id, 'f', -1, 64), nil
	}
	return "", fmt.Errorf("token has no id claim")
}
