package server

import (
	"context"
	"encoding/json"
	"net/http"
	"path"
	"strings"

	"github.com/danielgtaylor/huma/v2"
	"go.uber.org/zap"

	"launchpad/internal/domain"
	"launchpad/internal/engine"
	"launchpad/internal/engine/auth"
)

type AuthConfig struct {
	Logger *zap.Logger
}

// Principal is the authenticated caller of a request.
type Principal struct {
	UserID string
	Role   domain.Role
	Email  string
	Claims auth.Claims
}

type principalKey struct{}

func (c AuthConfig) logger() *zap.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return zap.NewNop()
}

func withPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey{}, p)
}

func principalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey{}).(Principal)
	return p, ok
}

func principalFromRequest(ctx context.Context) (Principal, huma.StatusError) {
	if p, ok := principalFromContext(ctx); ok && p.UserID != "" {
		return p, nil
	}
	return Principal{}, newAPIError(http.StatusUnauthorized, "unauthorized", "You are not authorized", nil)
}

func bearerToken(authz string) (string, bool) {
	parts := strings.Fields(authz)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "bearer") {
		return "", false
	}
	return parts[1], true
}

var publicRoutes = []string{
	"health",
	"docs",
	"openapi.json",
	"user/register",
	"auth/login",
	"otp/send",
	"otp/verify",
	"investor-profile/schema",
	"entrepreneur-profile/schema",
	"mentor-profile/schema",
}

func isPublic(basePath, route string) bool {
	for _, p := range publicRoutes {
		if route == path.Join(basePath, p) {
			return true
		}
	}
	return false
}

func newAuthMiddleware(basePath string, cfg AuthConfig, e engine.Engine) func(http.Handler) http.Handler {
	log := cfg.logger()
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
			// Only enforce for API base path.
			if !strings.HasPrefix(req.URL.Path, basePath) || isPublic(basePath, req.URL.Path) {
				next.ServeHTTP(w, req)
				return
			}
			token, ok := bearerToken(strings.TrimSpace(req.Header.Get("Authorization")))
			if !ok {
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "unauthorized", "You are not authorized", nil))
				return
			}
			claims, err := e.Authenticate(req.Context(), token)
			if err != nil {
				log.Debug("rejected token", zap.String("path", req.URL.Path), zap.Error(err))
				respondStatusError(w, newAPIError(http.StatusUnauthorized, "invalid_credentials", "Session expired; please log in again", nil))
				return
			}
			ctx := withPrincipal(req.Context(), Principal{
				UserID: claims.Subject,
				Role:   claims.Role,
				Email:  claims.Email,
				Claims: claims,
			})
			next.ServeHTTP(w, req.WithContext(ctx))
		})
	}
}

func respondStatusError(w http.ResponseWriter, err huma.StatusError) {
	status := err.GetStatus()
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(err)
}
