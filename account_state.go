package caseguard

import "time"

// IsLocked reports whether a login lock is in force at now.
func (u *User) IsLocked(now time.Time) bool {
	return u != nil && u.LockedUntil != nil && u.LockedUntil.After(now)
}

// RecordFailedAttempt applies one failed login to u using the default policy and
// reports whether the account is locked afterwards.
func RecordFailedAttempt(u *User, now time.Time) bool {
	return LockoutConfig{MaxAttempts: MaxLoginAttempts, Duration: LockDuration}.RecordFailedAttempt(u, now)
}

// RecordSuccess clears the failure counter and any lock, and stamps LastLogin.
func RecordSuccess(u *User, now time.Time) {
	if u == nil {
		return
	}
	u.LoginAttempts = 0
	u.LockedUntil = nil
	last := now
	u.LastLogin = &last
}

// RecordFailedAttempt applies one failed login to u.
//
// An expired lock restarts counting at 1. Otherwise the counter grows and, once it
// reaches MaxAttempts on an unlocked account, a lock of Duration starts at now.
// Failures recorded while a lock is in force never move it.
func (c LockoutConfig) RecordFailedAttempt(u *User, now time.Time) bool {
	if u == nil {
		return false
	}

	if u.LockedUntil != nil && !u.LockedUntil.After(now) {
		u.LoginAttempts = 1
		u.LockedUntil = nil
		return false
	}

	u.LoginAttempts++
	if u.LoginAttempts >= c.MaxAttempts && !u.IsLocked(now) {
		until := now.Add(c.Duration)
		u.LockedUntil = &until
	}
	return u.IsLocked(now)
}

// Apply mirrors a store-side transition back onto u.
func (s LockState) Apply(u *User) {
	if u == nil {
		return
	}
	u.LoginAttempts = s.Attempts
	u.LockedUntil = s.LockedUntil
}
