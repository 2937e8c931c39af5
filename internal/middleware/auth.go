package middleware

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/emilythestrangee/stackit/backend/internal/auth"
	"github.com/emilythestrangee/stackit/backend/internal/forum"
)

const identityKey = "identity"

type TokenParser interface {
	Parse(token string) (*auth.Claims, error)
}

func abort(c *gin.Context, status int, kind forum.Kind, msg string) {
	c.AbortWithStatusJSON(status, gin.H{"error": msg, "kind": kind})
}

func unauthorized(c *gin.Context) {
	c.Header("WWW-Authenticate", "Bearer")
	abort(c, http.StatusUnauthorized, forum.KindUnauthenticated, "Could not validate credentials")
}

// AuthMiddleware resolves the bearer token to an active Identity.
func AuthMiddleware(tokens TokenParser, resolver forum.IdentityResolver, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		header := c.GetHeader("Authorization")
		scheme, token, ok := strings.Cut(header, " ")
		if !ok || !strings.EqualFold(scheme, "Bearer") || strings.TrimSpace(token) == "" {
			unauthorized(c)
			return
		}

		claims, err := tokens.Parse(strings.TrimSpace(token))
		if err != nil {
			log.Debug("token rejected", zap.Error(err))
			unauthorized(c)
			return
		}

		identity, err := resolver.Identify(c.Request.Context(), claims.Subject)
		if err != nil {
			if errors.Is(err, forum.ErrUnauthenticated) {
				unauthorized(c)
				return
			}
			log.Error("identity lookup failed", zap.String("user_id", claims.Subject), zap.Error(err))
			abort(c, http.StatusInternalServerError, forum.KindInternal, "Internal server error")
			return
		}
		if !identity.IsActive {
			abort(c, http.StatusBadRequest, forum.KindInactiveUser, "Inactive user")
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// AdminOnly must run after AuthMiddleware.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		identity, ok := CurrentIdentity(c)
		if !ok {
			unauthorized(c)
			return
		}
		if !identity.IsAdmin() {
			abort(c, http.StatusForbidden, forum.KindForbidden, "Not enough permissions")
			return
		}
		c.Next()
	}
}

func CurrentIdentity(c *gin.Context) (forum.Identity, bool) {
	v, exists := c.Get(identityKey)
	if !exists {
		return forum.Identity{}, false
	}
	identity, ok := v.(forum.Identity)
	return identity, ok
}
