// Package middleware provides HTTP middleware for the thrones API
package middleware

import (
	"net/http"

	"github.com/R3E-Network/thrones_api/internal/auth"
	"github.com/R3E-Network/thrones_api/internal/errors"
	internalhttputil "github.com/R3E-Network/thrones_api/internal/httputil"
	"github.com/R3E-Network/thrones_api/internal/logging"
)

// TokenVerifier checks a bearer token and returns its claims.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// AuthMiddleware rejects requests without a valid bearer token
type AuthMiddleware struct {
	verifier  TokenVerifier
	logger    *logging.Logger
	skipPaths map[string]bool
}

// NewAuthMiddleware creates a new authentication middleware
func NewAuthMiddleware(verifier TokenVerifier, logger *logging.Logger, skipPaths []string) *AuthMiddleware {
	skip := make(map[string]bool)
	for _, path := range skipPaths {
		skip[path] = true
	}

	return &AuthMiddleware{
		verifier:  verifier,
		logger:    logger,
		skipPaths: skip,
	}
}

// Handler returns the middleware handler
func (m *AuthMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// Skip authentication for certain paths
		if m.skipPaths[r.URL.Path] {
			next.ServeHTTP(w, r)
			return
		}

		tokenString, err := auth.ParseBearer(r.Header.Get("Authorization"))
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		claims, err := m.verifier.Verify(tokenString)
		if err != nil {
			m.respondError(w, r, err)
			return
		}

		// Add claims to context
		ctx := logging.WithUser(r.Context(), claims.Username, claims.Role)

		m.logger.WithContext(ctx).Debug("Authentication successful")

		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// respondError sends an error response
func (m *AuthMiddleware) respondError(w http.ResponseWriter, r *http.Request, err error) {
	serviceErr := errors.GetServiceError(err)
	if serviceErr == nil {
		serviceErr = errors.Internal("Authentication failed", err)
	}

	internalhttputil.WriteErrorResponse(w, r, serviceErr.HTTPStatus, string(serviceErr.Code), serviceErr.Message, serviceErr.Details)

	entry := m.logger.WithContext(r.Context()).WithError(err).WithFields(map[string]interface{}{
		"path":   r.URL.Path,
		"method": r.Method,
		"status": serviceErr.HTTPStatus,
	})
	if errors.HasCode(err, errors.CodeTokenExpired) {
		entry.Debug("Authentication token expired")
		return
	}
	entry.Warn("Authentication failed")
}

// GetUsername extracts the authenticated username from context
func GetUsername(r *http.Request) string {
	return logging.GetUserID(r.Context())
}

// GetUserRole extracts the role claim from context
func GetUserRole(r *http.Request) string {
	return logging.GetRole(r.Context())
}
