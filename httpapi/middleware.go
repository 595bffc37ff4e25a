package httpapi

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/tmaxwell-dev/authgate"
)

const (
	// identityKey is the gin context key the authenticated identity is
	// stored under.
	identityKey = "authgate.identity"

	// secondFactorHeader carries the secondary token for two-step routes.
	secondFactorHeader = "X-Second-Factor"
)

func bearerToken(c *gin.Context) (string, bool) {
	header := c.GetHeader("Authorization")
	if header == "" || !strings.HasPrefix(header, "Bearer ") {
		return "", false
	}
	return strings.TrimPrefix(header, "Bearer "), true
}

// requestContext threads client metadata into the engine's context so audit
// events and bookkeeping carry the caller's origin.
func requestContext(c *gin.Context) *gin.Context {
	ctx := authgate.WithClientIP(c.Request.Context(), c.ClientIP())
	ctx = authgate.WithUserAgent(ctx, c.Request.UserAgent())
	c.Request = c.Request.WithContext(ctx)
	return c
}

// RequireSession authenticates the bearer session token and attaches the
// resolved identity to the gin context. All auth failures abort with 401
// before any handler logic runs; only a durable-store outage yields 500.
func (s *Server) RequireSession() gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenStr, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
			return
		}

		requestContext(c)
		identity, err := s.engine.Authenticate(c.Request.Context(), tokenStr)
		if err != nil {
			if errors.Is(err, authgate.ErrStoreUnavailable) {
				c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
				return
			}
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrTokenInvalid.Error()})
			return
		}

		c.Set(identityKey, identity)
		c.Next()
	}
}

// RequireTwoStep gates a route behind the two-step verifier: the primary
// session token in the Authorization header plus the secondary token in the
// X-Second-Factor header. Rejections name the failed step so the caller knows
// which credential to resupply; a principal mismatch is reported distinctly.
func (s *Server) RequireTwoStep() gin.HandlerFunc {
	return func(c *gin.Context) {
		primary, ok := bearerToken(c)
		if !ok {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing token", "step": 1})
			return
		}
		secondary := c.GetHeader(secondFactorHeader)
		if secondary == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "missing second factor", "step": 2})
			return
		}

		requestContext(c)
		ref, err := s.engine.VerifyTwoStep(c.Request.Context(), primary, secondary)
		if err != nil {
			switch {
			case errors.Is(err, authgate.ErrPrimaryTokenRejected):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrTokenInvalid.Error(), "step": 1})
			case errors.Is(err, authgate.ErrSecondaryTokenRejected):
				c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrTokenInvalid.Error(), "step": 2})
			default:
				c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": authgate.ErrPrincipalMismatch.Error()})
			}
			return
		}

		c.Set(identityKey, ref)
		c.Next()
	}
}

// IdentityFrom returns the identity attached by [Server.RequireSession].
func IdentityFrom(c *gin.Context) (*authgate.Identity, bool) {
	v, ok := c.Get(identityKey)
	if !ok {
		return nil, false
	}
	identity, ok := v.(*authgate.Identity)
	return identity, ok
}
