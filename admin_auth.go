package main

import (
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

type adminClaims struct {
	Scope string `json:"scope"`
	jwt.RegisteredClaims
}

// mintAdminToken signs a short-lived bearer token off the shared admin
// secret from config, for operators to use against /admin/reload.
func mintAdminToken(secret string, ttl time.Duration) (string, error) {
	claims := adminClaims{
		Scope: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(ttl)),
		},
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return tok.SignedString([]byte(secret))
}

// requireAdminBearer gates a handler behind a valid admin-scoped JWT signed
// with cfg.AdminToken, the single shared secret this proxy uses in place of
// the teacher's full Clerk-backed account system.
func requireAdminBearer(secret string, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		raw, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || raw == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		keyFunc := func(t *jwt.Token) (interface{}, error) {
			return []byte(secret), nil
		}
		claims := &adminClaims{}
		tok, err := jwt.ParseWithClaims(raw, claims, keyFunc, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !tok.Valid || claims.Scope != "admin" {
			http.Error(w, "invalid admin token", http.StatusUnauthorized)
			return
		}
		next(w, r)
	}
}
