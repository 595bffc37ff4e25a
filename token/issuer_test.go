package token

import (
	"errors"
	"testing"
	"time"
)

func testConfig() Config {
	return Config{
		Secret:     []byte("0123456789abcdef0123456789abcdef"),
		Issuer:     "authgate-test",
		SessionTTL: 15 * time.Minute,
		RefreshTTL: 7 * 24 * time.Hour,
		TwoStepTTL: 5 * time.Minute,
	}
}

func newTestIssuer(t *testing.T, cfg Config) *Issuer {
	t.Helper()

	issuer, err := NewIssuer(cfg)
	if err != nil {
		t.Fatalf("NewIssuer failed: %v", err)
	}
	return issuer
}

func TestNewIssuerRejectsShortSecret(t *testing.T) {
	cfg := testConfig()
	cfg.Secret = []byte("too-short")

	if _, err := NewIssuer(cfg); err == nil {
		t.Fatal("expected short secret to be rejected")
	}
}

func TestSessionTokenRoundTrip(t *testing.T) {
	issuer := newTestIssuer(t, testConfig())

	signed, expiresAt, err := issuer.IssueSession("s1", "p1", "standard", "demo@x.com", "member", "pro")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	if remaining := time.Until(expiresAt); remaining <= 14*time.Minute {
		t.Fatalf("expected ~15m expiry, got %v remaining", remaining)
	}

	claims, err := issuer.VerifySession(signed)
	if err != nil {
		t.Fatalf("VerifySession failed: %v", err)
	}
	if claims.SessionID != "s1" || claims.PrincipalID != "p1" || claims.PrincipalKind != "standard" {
		t.Fatalf("unexpected identity claims: %+v", claims)
	}
	if claims.Email != "demo@x.com" || claims.Role != "member" || claims.PlanTier != "pro" {
		t.Fatalf("unexpected denormalized claims: %+v", claims)
	}
}

func TestRefreshTokenCarriesIdentityOnly(t *testing.T) {
	issuer := newTestIssuer(t, testConfig())

	signed, _, err := issuer.IssueRefresh("r1", "p1", "elevated")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	claims, err := issuer.VerifyRefresh(signed)
	if err != nil {
		t.Fatalf("VerifyRefresh failed: %v", err)
	}
	if claims.RefreshID != "r1" || claims.PrincipalID != "p1" || claims.PrincipalKind != "elevated" {
		t.Fatalf("unexpected refresh claims: %+v", claims)
	}
}

func TestClassConfusionRejected(t *testing.T) {
	issuer := newTestIssuer(t, testConfig())

	session, _, err := issuer.IssueSession("s1", "p1", "standard", "a@x.com", "member", "free")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}
	refresh, _, err := issuer.IssueRefresh("r1", "p1", "standard")
	if err != nil {
		t.Fatalf("IssueRefresh failed: %v", err)
	}

	if _, err := issuer.VerifyRefresh(session); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected session token rejected as refresh, got %v", err)
	}
	if _, err := issuer.VerifySession(refresh); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected refresh token rejected as session, got %v", err)
	}
	if _, err := issuer.VerifyTwoStep(session); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected session token rejected as two-step, got %v", err)
	}
}

func TestExpiredDistinguishedFromMalformed(t *testing.T) {
	cfg := testConfig()
	past := time.Now().Add(-time.Hour)
	cfg.now = func() time.Time { return past }
	stale := newTestIssuer(t, cfg)

	signed, _, err := stale.IssueSession("s1", "p1", "standard", "", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	issuer := newTestIssuer(t, testConfig())
	if _, err := issuer.VerifySession(signed); !errors.Is(err, ErrTokenExpired) {
		t.Fatalf("expected ErrTokenExpired, got %v", err)
	}
	if _, err := issuer.VerifySession("not-a-token"); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected ErrTokenMalformed, got %v", err)
	}
}

func TestForgedSignatureRejected(t *testing.T) {
	issuer := newTestIssuer(t, testConfig())

	signed, _, err := issuer.IssueSession("s1", "p1", "standard", "", "", "")
	if err != nil {
		t.Fatalf("IssueSession failed: %v", err)
	}

	other := testConfig()
	other.Secret = []byte("ffffffffffffffffffffffffffffffff")
	stranger := newTestIssuer(t, other)

	if _, err := stranger.VerifySession(signed); !errors.Is(err, ErrTokenMalformed) {
		t.Fatalf("expected forged token rejected, got %v", err)
	}
}
