package limiters

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newLockoutTest(t *testing.T, cfg LockoutConfig) (*Lockout, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	return NewLockout(rdb, cfg), mr
}

func TestLockoutDefaultPolicyAppliesWhenZero(t *testing.T) {
	l, mr := newLockoutTest(t, LockoutConfig{Threshold: 2, Duration: time.Minute})
	mr.HSet("acct", "id", "acct")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if n, until, err := l.RecordFailure(context.Background(), "acct", now, LockoutConfig{}); err != nil || n != 1 || until != nil {
		t.Fatalf("first failure: n=%d until=%v err=%v", n, until, err)
	}
	n, until, err := l.RecordFailure(context.Background(), "acct", now, LockoutConfig{})
	if err != nil || n != 2 || until == nil || !until.Equal(now.Add(time.Minute)) {
		t.Fatalf("second failure: n=%d until=%v err=%v", n, until, err)
	}

	if got := mr.HGet("acct", FieldLockedUntil); got != "1772355660000" {
		t.Fatalf("expected integer millis stored, got %q", got)
	}
}

func TestLockoutResetClearsFields(t *testing.T) {
	l, mr := newLockoutTest(t, LockoutConfig{Threshold: 1, Duration: time.Hour})
	mr.HSet("acct", "id", "acct")
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	if _, _, err := l.RecordFailure(context.Background(), "acct", now, LockoutConfig{}); err != nil {
		t.Fatal(err)
	}
	if err := l.Reset(context.Background(), "acct", now); err != nil {
		t.Fatal(err)
	}
	if mr.HGet("acct", FieldAttempts) != "0" || mr.HGet("acct", FieldLockedUntil) != "0" {
		t.Fatal("expected counter and lock cleared")
	}
	if mr.HGet("acct", FieldLastLogin) != "1772355600000" {
		t.Fatalf("unexpected lastLogin %q", mr.HGet("acct", FieldLastLogin))
	}
}

func TestLockoutMissingSubject(t *testing.T) {
	l, _ := newLockoutTest(t, LockoutConfig{Threshold: 5, Duration: time.Hour})

	if _, _, err := l.RecordFailure(context.Background(), "nobody", time.Now(), LockoutConfig{}); !errors.Is(err, ErrLockoutSubjectMissing) {
		t.Fatalf("expected ErrLockoutSubjectMissing, got %v", err)
	}
	if err := l.Reset(context.Background(), "nobody", time.Now()); !errors.Is(err, ErrLockoutSubjectMissing) {
		t.Fatalf("expected ErrLockoutSubjectMissing, got %v", err)
	}
}
