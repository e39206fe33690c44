package limiters

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// LockoutConfig holds the failed-login policy applied by [Lockout].
type LockoutConfig struct {
	Threshold int
	Duration  time.Duration
}

var (
	// ErrLockoutUnavailable indicates the lockout backend is unreachable.
	ErrLockoutUnavailable = errors.New("lockout backend unavailable")
	// ErrLockoutSubjectMissing is returned when the account hash does not exist.
	ErrLockoutSubjectMissing = errors.New("lockout subject missing")
)

// Hash fields read and written by the lockout scripts.
const (
	FieldAttempts    = "attempts"
	FieldLockedUntil = "lockedUntil"
	FieldLastLogin   = "lastLogin"
)

// failureScript applies one failed login to the account hash in KEYS[1].
// ARGV: now (unix ms), threshold, lock duration (ms).
// An expired lock restarts counting at 1; a lock in force is never moved.
// Returns {attempts, lockedUntil} with lockedUntil 0 when unlocked, or {-1, 0}
// when the hash does not exist.
var failureScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return {-1, 0}
end
local now = tonumber(ARGV[1])
local locked = tonumber(redis.call('HGET', KEYS[1], 'lockedUntil') or '0') or 0
local attempts
if locked > 0 and locked <= now then
  attempts = 1
  locked = 0
else
  attempts = (tonumber(redis.call('HGET', KEYS[1], 'attempts') or '0') or 0) + 1
  if attempts >= tonumber(ARGV[2]) and locked <= now then
    locked = now + tonumber(ARGV[3])
  end
end
redis.call('HSET', KEYS[1], 'attempts', string.format('%d', attempts), 'lockedUntil', string.format('%d', locked))
return {attempts, locked}
`)

// successScript clears the counter and lock and stamps lastLogin.
// ARGV: now (unix ms). Returns 0 when the hash does not exist.
var successScript = redis.NewScript(`
if redis.call('EXISTS', KEYS[1]) == 0 then
  return 0
end
redis.call('HSET', KEYS[1], 'attempts', '0', 'lockedUntil', '0', 'lastLogin', ARGV[1])
return 1
`)

// Lockout tracks failed logins inside the account hash so that the counter and
// lock live and die with the account.
type Lockout struct {
	redis  redis.UniversalClient
	config LockoutConfig
}

// NewLockout creates a lockout tracker.
func NewLockout(redisClient redis.UniversalClient, cfg LockoutConfig) *Lockout {
	return &Lockout{redis: redisClient, config: cfg}
}

// RecordFailure applies one failed attempt atomically under cfg, or under the
// tracker's default policy when cfg.Threshold is zero.
func (l *Lockout) RecordFailure(ctx context.Context, key string, now time.Time, cfg LockoutConfig) (int, *time.Time, error) {
	if cfg.Threshold <= 0 {
		cfg = l.config
	}

	res, err := failureScript.Run(ctx, l.redis, []string{key},
		now.UnixMilli(), cfg.Threshold, cfg.Duration.Milliseconds()).Int64Slice()
	if err != nil {
		return 0, nil, fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if len(res) != 2 {
		return 0, nil, fmt.Errorf("%w: unexpected script reply", ErrLockoutUnavailable)
	}
	if res[0] < 0 {
		return 0, nil, ErrLockoutSubjectMissing
	}

	var until *time.Time
	if res[1] > 0 {
		t := time.UnixMilli(res[1]).UTC()
		until = &t
	}
	return int(res[0]), until, nil
}

// Reset clears the counter and lock after a successful login.
func (l *Lockout) Reset(ctx context.Context, key string, now time.Time) error {
	n, err := successScript.Run(ctx, l.redis, []string{key}, now.UnixMilli()).Int64()
	if err != nil {
		return fmt.Errorf("%w: %v", ErrLockoutUnavailable, err)
	}
	if n == 0 {
		return ErrLockoutSubjectMissing
	}
	return nil
}
