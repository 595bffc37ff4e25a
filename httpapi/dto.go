package httpapi

import "time"

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

type registerRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
	Name     string `json:"name"`
	PlanTier string `json:"plan_tier"`
}

type refreshRequest struct {
	RefreshToken string `json:"refresh_token"`
}

type credentialsResponse struct {
	SessionID        string    `json:"session_id"`
	SessionToken     string    `json:"session_token"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
	RefreshToken     string    `json:"refresh_token"`
	RefreshExpiresAt time.Time `json:"refresh_expires_at"`
}

type refreshResponse struct {
	SessionID        string    `json:"session_id"`
	SessionToken     string    `json:"session_token"`
	SessionExpiresAt time.Time `json:"session_expires_at"`
}

type identityResponse struct {
	PrincipalID      string    `json:"principal_id"`
	PrincipalKind    string    `json:"principal_kind"`
	SessionID        string    `json:"session_id"`
	Email            string    `json:"email"`
	Name             string    `json:"name"`
	Role             string    `json:"role"`
	PlanTier         string    `json:"plan_tier,omitempty"`
	Online           bool      `json:"online"`
	SessionCreatedAt time.Time `json:"session_created_at"`
}
