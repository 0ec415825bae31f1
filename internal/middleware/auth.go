package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/google/uuid"

	"github.com/avtoline/avtoline-api/internal/pkg/jwt"
	"github.com/avtoline/avtoline-api/internal/pkg/response"
)

type contextKey string

const (
	UserIDKey     contextKey = "user_id"
	IsBusinessKey contextKey = "is_business"
	IsStaffKey    contextKey = "is_staff"
)

// Auth returns middleware that validates JWT
func Auth(jwtService *jwt.Service) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				response.Unauthorized(w, "Missing authorization header")
				return
			}

			parts := strings.Split(authHeader, " ")
			if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
				response.Unauthorized(w, "Invalid authorization header format")
				return
			}

			claims, err := jwtService.ValidateAccessToken(parts[1])
			if err != nil {
				if err == jwt.ErrExpiredToken {
					response.Unauthorized(w, "Token expired")
				} else {
					response.Unauthorized(w, "Invalid token")
				}
				return
			}

			ctx := context.WithValue(r.Context(), UserIDKey, claims.UserID)
			ctx = context.WithValue(ctx, IsBusinessKey, claims.IsBusiness)
			ctx = context.WithValue(ctx, IsStaffKey, claims.IsStaff)

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// GetUserID extracts user ID from context
func GetUserID(ctx context.Context) uuid.UUID {
	if id, ok := ctx.Value(UserIDKey).(uuid.UUID); ok {
		return id
	}
	return uuid.Nil
}

// IsBusiness reports whether the authenticated user owns a business account
func IsBusiness(ctx context.Context) bool {
	if v, ok := ctx.Value(IsBusinessKey).(bool); ok {
		return v
	}
	return false
}

// IsStaff reports whether the authenticated user is staff
func IsStaff(ctx context.Context) bool {
	if v, ok := ctx.Value(IsStaffKey).(bool); ok {
		return v
	}
	return false
}

// RequireBusiness returns middleware that requires a business account
func RequireBusiness() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsBusiness(r.Context()) {
				response.Forbidden(w, "Business account required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireStaff returns middleware that requires a staff user
func RequireStaff() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !IsStaff(r.Context()) {
				response.Forbidden(w, "Insufficient permissions")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
