package middleware

import (
	"context"
	"net/http"
	"strings"

	"garageops/internal/service"
)

type contextKey string

const (
	TechnicianIDKey contextKey = "technicianId"
	OrgIDKey        contextKey = "orgId"
)

// AuthMiddleware provides JWT authentication middleware
type AuthMiddleware struct {
	authSvc *service.AuthService
}

// NewAuthMiddleware creates a new auth middleware
func NewAuthMiddleware(authSvc *service.AuthService) *AuthMiddleware {
	return &AuthMiddleware{authSvc: authSvc}
}

// RequireTechnician validates the technician JWT from the Authorization
// header and stores the resolved identity in the request context. No
// store access happens before this check.
func (m *AuthMiddleware) RequireTechnician(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		token := extractBearerToken(r)
		if token == "" {
			http.Error(w, `{"error":"missing authorization header"}`, http.StatusUnauthorized)
			return
		}

		claims, err := m.authSvc.ValidateTechnicianToken(token)
		if err != nil {
			http.Error(w, `{"error":"invalid or expired token"}`, http.StatusUnauthorized)
			return
		}

		ctx := r.Context()
		ctx = context.WithValue(ctx, TechnicianIDKey, claims.TechnicianID)
		ctx = context.WithValue(ctx, OrgIDKey, claims.OrgID)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// GetTechnicianID extracts the technician ID from context
func GetTechnicianID(ctx context.Context) string {
	if v := ctx.Value(TechnicianIDKey); v != nil {
		return v.(string)
	}
	return ""
}

// GetOrgID extracts the organization ID from context
func GetOrgID(ctx context.Context) string {
	if v := ctx.Value(OrgIDKey); v != nil {
		return v.(string)
	}
	return ""
}

func extractBearerToken(r *http.Request) string {
	auth := r.Header.Get("Authorization")
	if auth == "" {
		return ""
	}
	parts := strings.SplitN(auth, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return ""
	}
	return parts[1]
}
