package cache

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*miniredis.Miniredis, *Store) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis.Run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	return mr, NewStore(client, "agc")
}

func TestSaveGetRoundTrip(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	in := sampleSnapshot()
	if err := store.Save(ctx, "sess-1", in, 15*time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	out, err := store.Get(ctx, "sess-1")
	if err != nil {
		t.Fatalf("Get failed: %v", err)
	}
	if *out != *in {
		t.Fatalf("round trip mismatch: %+v vs %+v", out, in)
	}
}

func TestGetAbsentReturnsMiss(t *testing.T) {
	_, store := newTestStore(t)

	_, err := store.Get(context.Background(), "nope")
	if !errors.Is(err, Miss) {
		t.Fatalf("expected Miss, got %v", err)
	}
}

func TestTouchExtendsTTL(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", sampleSnapshot(), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Touch(ctx, "sess-1", 15*time.Minute); err != nil {
		t.Fatalf("Touch failed: %v", err)
	}

	if ttl := mr.TTL("agc:sess-1"); ttl <= time.Minute {
		t.Fatalf("expected TTL extended past 1m, got %v", ttl)
	}
}

func TestEntryExpiresWithTTL(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", sampleSnapshot(), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	mr.FastForward(2 * time.Minute)

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, Miss) {
		t.Fatalf("expected Miss after TTL, got %v", err)
	}
}

func TestDeleteIdempotent(t *testing.T) {
	_, store := newTestStore(t)
	ctx := context.Background()

	if err := store.Save(ctx, "sess-1", sampleSnapshot(), time.Minute); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("first Delete failed: %v", err)
	}
	if err := store.Delete(ctx, "sess-1"); err != nil {
		t.Fatalf("second Delete failed: %v", err)
	}
	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, Miss) {
		t.Fatalf("expected Miss after delete, got %v", err)
	}
}

func TestCorruptEntryReportedAsMiss(t *testing.T) {
	mr, store := newTestStore(t)
	ctx := context.Background()

	mr.Set("agc:sess-1", "garbage")

	if _, err := store.Get(ctx, "sess-1"); !errors.Is(err, Miss) {
		t.Fatalf("expected Miss for corrupt entry, got %v", err)
	}
	if mr.Exists("agc:sess-1") {
		t.Fatal("expected corrupt entry to be purged")
	}
}

func TestTransportErrorWrapsUnavailable(t *testing.T) {
	mr, store := newTestStore(t)
	mr.Close()

	if _, err := store.Get(context.Background(), "sess-1"); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
	if err := store.Save(context.Background(), "sess-1", sampleSnapshot(), time.Minute); !errors.Is(err, ErrCacheUnavailable) {
		t.Fatalf("expected ErrCacheUnavailable, got %v", err)
	}
}
