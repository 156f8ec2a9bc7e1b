package api

import (
	"context"
	"net/http"
	"strings"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"

	"github.com/farmaleads/leads-cli/pkg/supabase"
)

type contextKey string

const userKey contextKey = "user"

// requireAuth resolves the bearer token to a user through the identity
// provider. Without a configured provider the route is unavailable rather
// than silently open.
func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.auth == nil {
			writeError(w, http.StatusInternalServerError,
				"autenticacion no configurada: define la URL y anon key de Supabase")
			return
		}

		header := r.Header.Get("Authorization")
		token := strings.TrimSpace(strings.TrimPrefix(header, "Bearer "))
		if header == "" || token == "" || token == header {
			writeError(w, http.StatusUnauthorized, "falta el token Bearer")
			return
		}

		user, err := s.auth.GetUser(r.Context(), token)
		if err != nil {
			if !eris.Is(err, supabase.ErrUnauthorized) {
				zap.L().Error("api: identity provider lookup failed", zap.Error(err))
				writeError(w, http.StatusBadGateway, "proveedor de identidad no disponible")
				return
			}
			writeError(w, http.StatusUnauthorized, "token invalido o caducado")
			return
		}

		next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), userKey, user)))
	})
}

// currentUser returns the authenticated user stored by requireAuth.
func currentUser(ctx context.Context) *supabase.User {
	user, _ := ctx.Value(userKey).(*supabase.User)
	return user
}
