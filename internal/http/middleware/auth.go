package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/studycards/internal/http/response"
	"github.com/yungbote/studycards/internal/identity"
	"github.com/yungbote/studycards/internal/platform/logger"
)

var errMissingToken = errors.New("missing or invalid token")

type AuthMiddleware struct {
	log      *logger.Logger
	provider identity.Provider
}

// NewAuthMiddleware accepts a nil provider, in which case every caller is a guest
// and RequireAuth always rejects.
func NewAuthMiddleware(log *logger.Logger, provider identity.Provider) *AuthMiddleware {
	return &AuthMiddleware{log: log.With("Middleware", "AuthMiddleware"), provider: provider}
}

// OptionalAuth resolves a bearer token when present. No token means guest; a
// token that fails to verify is rejected rather than downgraded.
func (am *AuthMiddleware) OptionalAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || am.provider == nil {
			c.Next()
			return
		}
		if !am.attach(c, token) {
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) RequireAuth() gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c)
		if token == "" || am.provider == nil {
			response.AbortError(c, http.StatusUnauthorized, "unauthorized", errMissingToken)
			return
		}
		if !am.attach(c, token) {
			return
		}
		c.Next()
	}
}

func (am *AuthMiddleware) attach(c *gin.Context, token string) bool {
	owner, err := am.provider.Resolve(c.Request.Context(), token)
	if err != nil {
		am.log.Debug("token rejected", "error", err)
		response.AbortError(c, http.StatusUnauthorized, "unauthorized", identity.ErrInvalidToken)
		return false
	}
	c.Request = c.Request.WithContext(identity.WithIdentity(c.Request.Context(), owner))
	return true
}

// extractToken reads the Authorization header, falling back to ?token= for
// EventSource clients that cannot set headers.
func extractToken(c *gin.Context) string {
	authHeader := c.GetHeader("Authorization")
	if len(authHeader) > 7 && strings.EqualFold(authHeader[:7], "Bearer ") {
		return strings.TrimSpace(authHeader[7:])
	}
	return strings.TrimSpace(c.Query("token"))
}
