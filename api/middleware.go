package api

import (
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"

	"github.com/johanjanssens/tulsafeed/config"
)

// requireAuth guards next with bearer-token validation when cfg.Secret is
// set. With no secret configured it is a no-op, so the default HTTP
// surface needs no token at all.
func requireAuth(cfg config.AuthConfig, next http.HandlerFunc) http.HandlerFunc {
	if cfg.Secret == "" {
		return next
	}

	return func(w http.ResponseWriter, r *http.Request) {
		header := r.Header.Get("Authorization")
		tokenString, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || tokenString == "" {
			http.Error(w, "missing bearer token", http.StatusUnauthorized)
			return
		}

		token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
			return []byte(cfg.Secret), nil
		}, jwt.WithValidMethods([]string{"HS256"}))
		if err != nil || !token.Valid {
			http.Error(w, "invalid bearer token", http.StatusUnauthorized)
			return
		}

		next(w, r)
	}
}
