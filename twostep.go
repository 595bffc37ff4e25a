package authgate

import (
	"context"
	"errors"

	internalmetrics "github.com/tmaxwell-dev/authgate/internal/metrics"
	"github.com/tmaxwell-dev/authgate/token"
)

// TwoStepVerifier guards high-sensitivity operations behind two independent
// proofs: the primary session token and a short-lived secondary token. It is
// entirely stateless (both checks are signature verifications, and the
// session store is never consulted), so a verifier can sit in front of any
// route without adding a Redis or database round trip.
type TwoStepVerifier struct {
	tokens *token.Issuer
}

// NewTwoStepVerifier wraps an issuer in a stateless two-step check.
func NewTwoStepVerifier(issuer *token.Issuer) *TwoStepVerifier {
	return &TwoStepVerifier{tokens: issuer}
}

// Verify checks both tokens in order and requires them to name the same
// principal. Rejections are step-tagged ([ErrPrimaryTokenRejected],
// [ErrSecondaryTokenRejected]) so callers can tell which proof failed, and a
// principal mismatch after both verify is its own error: two valid tokens for
// different principals is an attack signature, not a stale credential.
func (v *TwoStepVerifier) Verify(primary, secondary string) (PrincipalRef, error) {
	sessionClaims, err := v.tokens.VerifySession(primary)
	if err != nil {
		return PrincipalRef{}, ErrPrimaryTokenRejected
	}

	twoStepClaims, err := v.tokens.VerifyTwoStep(secondary)
	if err != nil {
		return PrincipalRef{}, ErrSecondaryTokenRejected
	}

	kind, ok := ParsePrincipalKind(sessionClaims.PrincipalKind)
	if !ok {
		return PrincipalRef{}, ErrPrimaryTokenRejected
	}
	secondaryKind, ok := ParsePrincipalKind(twoStepClaims.PrincipalKind)
	if !ok {
		return PrincipalRef{}, ErrSecondaryTokenRejected
	}

	if kind != secondaryKind || sessionClaims.PrincipalID != twoStepClaims.PrincipalID {
		return PrincipalRef{}, ErrPrincipalMismatch
	}

	return PrincipalRef{Kind: kind, ID: sessionClaims.PrincipalID}, nil
}

// IssueTwoStepToken mints the short-lived secondary token consumed by the
// two-step verifier. The caller is responsible for having authenticated the
// principal through a stronger channel first.
func (e *Engine) IssueTwoStepToken(ctx context.Context, ref PrincipalRef) (string, error) {
	tokenStr, _, err := e.tokens.IssueTwoStep(ref.ID, ref.Kind.String())
	if err != nil {
		return "", err
	}
	return tokenStr, nil
}

// TwoStep returns a verifier bound to the engine's issuer.
func (e *Engine) TwoStep() *TwoStepVerifier {
	return NewTwoStepVerifier(e.tokens)
}

// VerifyTwoStep runs the two-step check with engine metrics and audit
// attached. HTTP middleware should prefer this over a bare verifier.
func (e *Engine) VerifyTwoStep(ctx context.Context, primary, secondary string) (PrincipalRef, error) {
	ref, err := e.TwoStep().Verify(primary, secondary)
	switch {
	case err == nil:
		e.metricInc(internalmetrics.MetricTwoStepSuccess)
	case errors.Is(err, ErrPrincipalMismatch):
		e.metricInc(internalmetrics.MetricTwoStepMismatch)
		e.emitAudit(ctx, auditEventTwoStepMismatch, false, PrincipalRef{}, "", err, nil)
	default:
		e.metricInc(internalmetrics.MetricTwoStepRejected)
		e.emitAudit(ctx, auditEventTwoStepRejected, false, PrincipalRef{}, "", err, nil)
	}
	return ref, err
}
