package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/tmaxwell-dev/authgate"
)

func TestPrincipalStoreEmailMatchingIsCaseInsensitive(t *testing.T) {
	store := NewPrincipalStore()
	ctx := context.Background()

	err := store.CreateStandard(ctx, &authgate.StandardAccount{
		ID:    "u1",
		Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("CreateStandard failed: %v", err)
	}

	acct, err := store.FindStandardByEmail(ctx, "ALICE@Example.COM")
	if err != nil {
		t.Fatalf("FindStandardByEmail failed: %v", err)
	}
	if acct.ID != "u1" {
		t.Fatalf("expected u1, got %s", acct.ID)
	}

	if err := store.CreateStandard(ctx, &authgate.StandardAccount{
		ID:    "u2",
		Email: "Alice@example.com",
	}); !errors.Is(err, authgate.ErrAccountExists) {
		t.Fatalf("expected ErrAccountExists, got %v", err)
	}
}

func TestPrincipalStoreReturnsCopies(t *testing.T) {
	store := NewPrincipalStore()
	ctx := context.Background()

	store.SeedElevated(&authgate.ElevatedAccount{
		ID:          "op1",
		Email:       "ops@example.com",
		Permissions: []string{"sessions.revoke"},
		Active:      true,
	})

	acct, err := store.FindElevatedByID(ctx, "op1")
	if err != nil {
		t.Fatalf("FindElevatedByID failed: %v", err)
	}
	acct.Active = false
	acct.Permissions[0] = "mutated"

	again, err := store.FindElevatedByID(ctx, "op1")
	if err != nil {
		t.Fatalf("FindElevatedByID failed: %v", err)
	}
	if !again.Active || again.Permissions[0] != "sessions.revoke" {
		t.Fatal("store handed out a shared reference")
	}
}

func TestRecordElevatedSeenRollsOrigin(t *testing.T) {
	store := NewPrincipalStore()
	ctx := context.Background()

	store.SeedElevated(&authgate.ElevatedAccount{ID: "op1", Email: "ops@example.com", Active: true})

	if err := store.RecordElevatedSeen(ctx, "op1", "10.0.0.1"); err != nil {
		t.Fatalf("RecordElevatedSeen failed: %v", err)
	}
	if err := store.RecordElevatedSeen(ctx, "op1", "10.0.0.2"); err != nil {
		t.Fatalf("RecordElevatedSeen failed: %v", err)
	}

	acct, err := store.FindElevatedByID(ctx, "op1")
	if err != nil {
		t.Fatalf("FindElevatedByID failed: %v", err)
	}
	if !acct.Online || acct.CurrentIP != "10.0.0.2" || acct.LastIP != "10.0.0.1" {
		t.Fatalf("unexpected bookkeeping state: %+v", acct)
	}

	if err := store.RecordElevatedSeen(ctx, "missing", "10.0.0.3"); !errors.Is(err, authgate.ErrPrincipalNotFound) {
		t.Fatalf("expected ErrPrincipalNotFound, got %v", err)
	}
}

func TestSessionStoreLifecycle(t *testing.T) {
	store := NewSessionStore()
	ctx := context.Background()
	now := time.Now()

	sess := &authgate.Session{
		SessionID:        "s1",
		Principal:        authgate.PrincipalRef{Kind: authgate.KindStandard, ID: "u1"},
		SessionToken:     "tok-a",
		RefreshToken:     "ref-a",
		SessionExpiresAt: now.Add(15 * time.Minute),
		RefreshExpiresAt: now.Add(7 * 24 * time.Hour),
		Valid:            true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := store.Insert(ctx, sess); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	byID, err := store.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if byID.Principal.ID != "u1" {
		t.Fatalf("unexpected principal %+v", byID.Principal)
	}

	byToken, err := store.FindByRefreshToken(ctx, "ref-a")
	if err != nil {
		t.Fatalf("FindByRefreshToken failed: %v", err)
	}
	if byToken.SessionID != "s1" {
		t.Fatalf("expected s1, got %s", byToken.SessionID)
	}

	newExpiry := now.Add(30 * time.Minute)
	if err := store.UpdateTokens(ctx, "s1", "tok-b", newExpiry); err != nil {
		t.Fatalf("UpdateTokens failed: %v", err)
	}
	updated, err := store.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID failed: %v", err)
	}
	if updated.SessionToken != "tok-b" || !updated.SessionExpiresAt.Equal(newExpiry) {
		t.Fatalf("update not applied: %+v", updated)
	}
	// Refresh token untouched by a token update.
	if updated.RefreshToken != "ref-a" {
		t.Fatalf("refresh token must not rotate, got %s", updated.RefreshToken)
	}

	if err := store.MarkInvalid(ctx, "s1"); err != nil {
		t.Fatalf("MarkInvalid failed: %v", err)
	}
	if err := store.MarkInvalid(ctx, "s1"); err != nil {
		t.Fatalf("second MarkInvalid failed: %v", err)
	}
	if err := store.MarkInvalid(ctx, "missing"); err != nil {
		t.Fatalf("MarkInvalid of unknown id failed: %v", err)
	}

	// Soft delete: the row is still there, just invalid.
	dead, err := store.FindByID(ctx, "s1")
	if err != nil {
		t.Fatalf("FindByID after MarkInvalid failed: %v", err)
	}
	if dead.Valid {
		t.Fatal("expected invalidated session")
	}

	if err := store.UpdateTokens(ctx, "missing", "tok", now); !errors.Is(err, authgate.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.FindByID(ctx, "missing"); !errors.Is(err, authgate.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
	if _, err := store.FindByRefreshToken(ctx, "missing"); !errors.Is(err, authgate.ErrSessionNotFound) {
		t.Fatalf("expected ErrSessionNotFound, got %v", err)
	}
}
