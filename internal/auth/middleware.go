package auth

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/MichaelETPHP/Ethiopian-Coffee-Origin-Tours-sub000/internal/models"
)

type contextKey string

const AdminKey contextKey = "admin"

// AdminFromContext returns the admin stored by AdminMiddleware.
func AdminFromContext(ctx context.Context) (*models.AdminUser, bool) {
	user, ok := ctx.Value(AdminKey).(*models.AdminUser)
	return user, ok
}

func unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusUnauthorized)
	json.NewEncoder(w).Encode(map[string]interface{}{"success": false, "error": message})
}

// AdminMiddleware guards plain chi routes such as file downloads.
func (h *AuthHandler) AdminMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := bearerToken(r.Header.Get("Authorization"))
		if token == "" {
			unauthorized(w, "Unauthorized: No token found")
			return
		}

		user, err := h.Verify(r.Context(), token)
		if err != nil {
			unauthorized(w, "Unauthorized: Invalid token")
			return
		}

		ctx := context.WithValue(r.Context(), AdminKey, user)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}
