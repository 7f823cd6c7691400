// internal/handlers/auth.go
package handlers

import (
	"net/http"
	"strings"

	"github.com/jason-s-yu/assassin/internal/auth"
	"github.com/jason-s-yu/assassin/internal/game"
)

// tokenFrom returns the bearer token, falling back to the auth_token cookie.
func tokenFrom(r *http.Request) string {
	if h := r.Header.Get("Authorization"); strings.HasPrefix(h, "Bearer ") {
		return strings.TrimPrefix(h, "Bearer ")
	}
	if c, err := r.Cookie("auth_token"); err == nil {
		return c.Value
	}
	return ""
}

// requireActor rejects requests without a valid actor token.
func requireActor(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := tokenFrom(r)
		if token == "" {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Message: "missing token"})
			return
		}
		claims, err := auth.AuthenticateJWT(token)
		if err != nil {
			writeJSON(w, http.StatusUnauthorized, errorBody{Code: "Unauthorized", Message: err.Error()})
			return
		}
		next.ServeHTTP(w, r.WithContext(auth.WithClaims(r.Context(), claims)))
	})
}

func actorFrom(r *http.Request) game.Actor {
	c, _ := auth.ClaimsFromContext(r.Context())
	return game.Actor{UserID: c.UserID, Manager: c.Manager}
}
