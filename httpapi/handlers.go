package httpapi

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/tmaxwell-dev/authgate"
)

func credentialsBody(creds *authgate.Credentials) credentialsResponse {
	return credentialsResponse{
		SessionID:        creds.SessionID,
		SessionToken:     creds.SessionToken,
		SessionExpiresAt: creds.SessionExpiresAt,
		RefreshToken:     creds.RefreshToken,
		RefreshExpiresAt: creds.RefreshExpiresAt,
	}
}

func identityBody(identity *authgate.Identity) identityResponse {
	return identityResponse{
		PrincipalID:      identity.Principal.ID,
		PrincipalKind:    identity.Principal.Kind.String(),
		SessionID:        identity.SessionID,
		Email:            identity.Email,
		Name:             identity.Name,
		Role:             identity.Role,
		PlanTier:         identity.PlanTier,
		Online:           identity.Online,
		SessionCreatedAt: identity.SessionCreatedAt,
	}
}

func (s *Server) handleLogin(c *gin.Context) {
	var req loginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	requestContext(c)
	creds, err := s.engine.Login(c.Request.Context(), req.Email, req.Password)
	if err != nil {
		if errors.Is(err, authgate.ErrStoreUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrInvalidCredentials.Error()})
		return
	}

	c.JSON(http.StatusOK, credentialsBody(creds))
}

func (s *Server) handleRegister(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
		return
	}

	requestContext(c)
	creds, err := s.engine.Register(c.Request.Context(), authgate.RegisterRequest{
		Email:    req.Email,
		Password: req.Password,
		Name:     req.Name,
		PlanTier: req.PlanTier,
	})
	if err != nil {
		switch {
		case errors.Is(err, authgate.ErrAccountExists):
			c.JSON(http.StatusConflict, gin.H{"error": authgate.ErrAccountExists.Error()})
		case errors.Is(err, authgate.ErrStoreUnavailable):
			c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		default:
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid registration"})
		}
		return
	}

	c.JSON(http.StatusCreated, credentialsBody(creds))
}

// handleRefresh accepts the refresh token in the JSON body or, failing that,
// as a bearer token.
func (s *Server) handleRefresh(c *gin.Context) {
	var req refreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.RefreshToken == "" {
		if tokenStr, ok := bearerToken(c); ok {
			req.RefreshToken = tokenStr
		}
	}
	if req.RefreshToken == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "refresh token is required"})
		return
	}

	requestContext(c)
	result, err := s.engine.Refresh(c.Request.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, authgate.ErrStoreUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrRefreshInvalid.Error()})
		return
	}

	c.JSON(http.StatusOK, refreshResponse{
		SessionID:        result.SessionID,
		SessionToken:     result.SessionToken,
		SessionExpiresAt: result.SessionExpiresAt,
	})
}

// handleLogout always answers 200 for a well-formed bearer token: logging out
// an already-dead session is not an error, and retries stay quiet. Only a
// missing/forged token (401) or a durable outage (500) breaks that.
func (s *Server) handleLogout(c *gin.Context) {
	tokenStr, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	requestContext(c)
	if err := s.engine.Logout(c.Request.Context(), tokenStr); err != nil {
		if errors.Is(err, authgate.ErrStoreUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrTokenInvalid.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "logged out"})
}

func (s *Server) handleVerify(c *gin.Context) {
	tokenStr, ok := bearerToken(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}

	identity, err := s.engine.Introspect(c.Request.Context(), tokenStr)
	if err != nil {
		if errors.Is(err, authgate.ErrStoreUnavailable) {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
			return
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": authgate.ErrTokenInvalid.Error()})
		return
	}

	c.JSON(http.StatusOK, identityBody(identity))
}

func (s *Server) handleProfile(c *gin.Context) {
	identity, ok := IdentityFrom(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "missing token"})
		return
	}
	c.JSON(http.StatusOK, identityBody(identity))
}

// handleRevokeSession is the two-step-gated administrative revocation of an
// arbitrary session id. Idempotent like Logout.
func (s *Server) handleRevokeSession(c *gin.Context) {
	sessionID := c.Param("id")
	requestContext(c)
	if err := s.engine.Invalidate(c.Request.Context(), sessionID); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "service unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "revoked"})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.engine.MetricsSnapshot())
}
