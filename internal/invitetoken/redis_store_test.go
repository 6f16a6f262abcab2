package invitetoken

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
)

func setupTestRedis(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	s := miniredis.RunT(t)
	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("failed to create redis store: %v", err)
	}
	return store, s
}

func TestNewRedisStore(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://"+s.Addr(), time.Hour)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	if err := store.Ping(ctx); err != nil {
		t.Errorf("Ping failed: %v", err)
	}
}

func TestIssueAndRedeem(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	token, err := store.Issue(ctx, "inv_123")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}
	if token == "" {
		t.Fatal("expected a non-empty token")
	}

	invitationID, err := store.Redeem(ctx, token)
	if err != nil {
		t.Fatalf("Redeem failed: %v", err)
	}
	if invitationID != "inv_123" {
		t.Errorf("expected invitation inv_123, got %s", invitationID)
	}
}

func TestRedeemConsumesToken(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	token, err := store.Issue(ctx, "inv_once")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	if _, err := store.Redeem(ctx, token); err != nil {
		t.Fatalf("first Redeem failed: %v", err)
	}

	// Second redemption must fail
	if _, err := store.Redeem(ctx, token); err == nil {
		t.Error("expected error redeeming a consumed token, got nil")
	}
}

func TestRedeemExpiredToken(t *testing.T) {
	s := miniredis.RunT(t)
	defer s.Close()

	store, err := NewRedisStore("redis://"+s.Addr(), time.Millisecond)
	if err != nil {
		t.Fatalf("NewRedisStore failed: %v", err)
	}
	defer store.Close()

	ctx := context.Background()

	token, err := store.Issue(ctx, "inv_expired")
	if err != nil {
		t.Fatalf("Issue failed: %v", err)
	}

	// Fast-forward time in miniredis
	s.FastForward(2 * time.Millisecond)

	if _, err := store.Redeem(ctx, token); err == nil {
		t.Error("expected error for expired token, got nil")
	}
}

func TestRedeemUnknownToken(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	if _, err := store.Redeem(ctx, "never-issued"); err == nil {
		t.Error("expected error for unknown token, got nil")
	}
}

func TestTokenIsolation(t *testing.T) {
	store, s := setupTestRedis(t)
	defer store.Close()
	defer s.Close()

	ctx := context.Background()

	token1, err := store.Issue(ctx, "inv_1")
	if err != nil {
		t.Fatalf("Issue 1 failed: %v", err)
	}
	token2, err := store.Issue(ctx, "inv_2")
	if err != nil {
		t.Fatalf("Issue 2 failed: %v", err)
	}
	if token1 == token2 {
		t.Fatal("expected distinct tokens")
	}

	if _, err := store.Redeem(ctx, token1); err != nil {
		t.Fatalf("Redeem token1 failed: %v", err)
	}

	// token2 stays redeemable after token1 is consumed
	invitationID, err := store.Redeem(ctx, token2)
	if err != nil {
		t.Fatalf("Redeem token2 failed: %v", err)
	}
	if invitationID != "inv_2" {
		t.Errorf("expected inv_2, got %s", invitationID)
	}
}
