package caseguard

import (
	"testing"
	"time"
)

func TestFiveFailedAttemptsLockForTwoHours(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}

	for i := 1; i <= 4; i++ {
		if RecordFailedAttempt(u, now) {
			t.Fatalf("attempt %d: expected account to stay unlocked", i)
		}
	}
	if !RecordFailedAttempt(u, now) {
		t.Fatal("fifth attempt: expected account to lock")
	}
	if u.LoginAttempts != 5 {
		t.Fatalf("expected 5 attempts, got %d", u.LoginAttempts)
	}
	if u.LockedUntil == nil || !u.LockedUntil.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("expected lock until %v, got %v", now.Add(2*time.Hour), u.LockedUntil)
	}
}

func TestFailureWhileLockedDoesNotExtendLock(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}
	for i := 0; i < 5; i++ {
		RecordFailedAttempt(u, now)
	}
	lockedUntil := *u.LockedUntil

	later := now.Add(30 * time.Minute)
	if !RecordFailedAttempt(u, later) {
		t.Fatal("expected account to remain locked")
	}
	if u.LoginAttempts != 6 {
		t.Fatalf("expected 6 attempts, got %d", u.LoginAttempts)
	}
	if !u.LockedUntil.Equal(lockedUntil) {
		t.Fatalf("lock moved from %v to %v", lockedUntil, *u.LockedUntil)
	}
}

func TestFailureAfterExpiredLockRestartsCount(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	u := &User{}
	for i := 0; i < 5; i++ {
		RecordFailedAttempt(u, now)
	}

	afterExpiry := now.Add(2*time.Hour + time.Second)
	if u.IsLocked(afterExpiry) {
		t.Fatal("expected lock to be expired")
	}
	if RecordFailedAttempt(u, afterExpiry) {
		t.Fatal("expected account to be unlocked after reset")
	}
	if u.LoginAttempts != 1 {
		t.Fatalf("expected attempts reset to 1, got %d", u.LoginAttempts)
	}
	if u.LockedUntil != nil {
		t.Fatalf("expected lock cleared, got %v", u.LockedUntil)
	}
}

func TestLockExpiresExactlyAtBoundary(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	u := &User{LockedUntil: &until}

	if !u.IsLocked(until.Add(-time.Nanosecond)) {
		t.Fatal("expected lock in force before boundary")
	}
	if u.IsLocked(until) {
		t.Fatal("expected lock lifted at boundary")
	}
}

func TestRecordSuccessClearsState(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(time.Hour)
	u := &User{LoginAttempts: 3, LockedUntil: &until}

	RecordSuccess(u, now)
	if u.LoginAttempts != 0 || u.LockedUntil != nil {
		t.Fatalf("expected cleared state, got attempts=%d lock=%v", u.LoginAttempts, u.LockedUntil)
	}
	if u.LastLogin == nil || !u.LastLogin.Equal(now) {
		t.Fatalf("expected LastLogin %v, got %v", now, u.LastLogin)
	}
}

func TestLockoutConfigCustomThreshold(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	cfg := LockoutConfig{MaxAttempts: 2, Duration: time.Minute}
	u := &User{}

	cfg.RecordFailedAttempt(u, now)
	if !cfg.RecordFailedAttempt(u, now) {
		t.Fatal("expected lock at custom threshold")
	}
	if !u.LockedUntil.Equal(now.Add(time.Minute)) {
		t.Fatalf("unexpected lock end %v", *u.LockedUntil)
	}
}

func TestLockStateApplyMirrorsStoreTransition(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	until := now.Add(LockDuration)
	u := &User{LoginAttempts: 4}

	LockState{Attempts: 5, LockedUntil: &until}.Apply(u)
	if u.LoginAttempts != 5 || !u.IsLocked(now) {
		t.Fatalf("expected locked with 5 attempts, got %+v", u)
	}
	LockState{Attempts: 1}.Apply(u)
	if u.LoginAttempts != 1 || u.LockedUntil != nil {
		t.Fatalf("expected cleared lock, got %+v", u)
	}
	LockState{Attempts: 9}.Apply(nil)
}
