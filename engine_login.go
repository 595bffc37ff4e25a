package authgate

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	internalmetrics "github.com/tmaxwell-dev/authgate/internal/metrics"
)

// defaultRole and defaultPlanTier are assigned to self-registered accounts.
const (
	defaultRole     = "member"
	defaultPlanTier = "free"
)

// Login verifies an email/password pair and creates a new session. The
// elevated namespace takes precedence over the standard one when both hold an
// active account under the same email. All credential failures collapse to
// [ErrInvalidCredentials]; only a durable-store outage surfaces as
// [ErrStoreUnavailable].
func (e *Engine) Login(ctx context.Context, email, plaintext string) (*Credentials, error) {
	if e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	email = normalizeEmail(email)
	if email == "" || plaintext == "" {
		e.metricInc(internalmetrics.MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, PrincipalRef{}, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"reason": "empty_input"}
		})
		return nil, ErrInvalidCredentials
	}

	principal, err := e.resolveByCredentials(ctx, email, plaintext)
	if err != nil {
		if errors.Is(err, ErrStoreUnavailable) {
			return nil, err
		}
		e.metricInc(internalmetrics.MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, PrincipalRef{}, "", ErrInvalidCredentials, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		return nil, ErrInvalidCredentials
	}
	plaintext = ""

	creds, err := e.createSession(ctx, principal)
	if err != nil {
		e.metricInc(internalmetrics.MetricLoginFailure)
		e.emitAudit(ctx, auditEventLoginFailure, false, principal.Ref(), "", err, func() map[string]string {
			return map[string]string{"reason": "session_create_failed"}
		})
		return nil, err
	}

	e.bookkeepElevated(principal.Ref(), clientIPFromContext(ctx))

	e.metricInc(internalmetrics.MetricLoginSuccess)
	e.emitAudit(ctx, auditEventLoginSuccess, true, principal.Ref(), creds.SessionID, nil, nil)

	return creds, nil
}

// Register creates a standard account and logs it in. Emails are normalized
// to lowercase before the uniqueness check; an address already present in
// either namespace is rejected with [ErrAccountExists].
func (e *Engine) Register(ctx context.Context, req RegisterRequest) (*Credentials, error) {
	if e.hasher == nil {
		return nil, ErrEngineNotReady
	}

	email := normalizeEmail(req.Email)
	if email == "" || req.Password == "" {
		e.metricInc(internalmetrics.MetricRegisterFailure)
		return nil, ErrInvalidCredentials
	}

	if err := e.checkEmailAvailable(ctx, email); err != nil {
		e.metricInc(internalmetrics.MetricRegisterFailure)
		e.emitAudit(ctx, auditEventRegisterFailure, false, PrincipalRef{}, "", err, func() map[string]string {
			return map[string]string{"identifier": email}
		})
		return nil, err
	}

	hash, err := e.hasher.Hash(req.Password)
	if err != nil {
		e.metricInc(internalmetrics.MetricRegisterFailure)
		return nil, err
	}
	req.Password = ""

	planTier := req.PlanTier
	if planTier == "" {
		planTier = defaultPlanTier
	}

	account := &StandardAccount{
		ID:           uuid.NewString(),
		Email:        email,
		Name:         req.Name,
		PasswordHash: hash,
		Role:         defaultRole,
		PlanTier:     planTier,
	}

	if err := e.directory.CreateStandard(ctx, account); err != nil {
		e.metricInc(internalmetrics.MetricRegisterFailure)
		if errors.Is(err, ErrAccountExists) {
			e.emitAudit(ctx, auditEventRegisterFailure, false, PrincipalRef{}, "", ErrAccountExists, func() map[string]string {
				return map[string]string{"identifier": email}
			})
			return nil, ErrAccountExists
		}
		return nil, fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	creds, err := e.createSession(ctx, account)
	if err != nil {
		e.metricInc(internalmetrics.MetricRegisterFailure)
		return nil, err
	}

	e.metricInc(internalmetrics.MetricRegisterSuccess)
	e.emitAudit(ctx, auditEventRegisterSuccess, true, account.Ref(), creds.SessionID, nil, nil)

	return creds, nil
}

// checkEmailAvailable rejects an address present in either namespace. The
// durable unique index remains the authority; this check only produces the
// friendlier error ahead of the insert racing a concurrent registration.
func (e *Engine) checkEmailAvailable(ctx context.Context, email string) error {
	_, err := e.directory.FindStandardByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrAccountExists
	case errors.Is(err, ErrPrincipalNotFound):
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}

	_, err = e.directory.FindElevatedByEmail(ctx, email)
	switch {
	case err == nil:
		return ErrAccountExists
	case errors.Is(err, ErrPrincipalNotFound):
		return nil
	default:
		return fmt.Errorf("%w: %v", ErrStoreUnavailable, err)
	}
}
