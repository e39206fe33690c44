package caseguard

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/MrEthical07/caseguard/permission"
)

// Authenticate verifies a login. Lock and status checks run before the password
// comparison and apply to every role, admins included.
//
// Unknown emails and wrong passwords both return ErrInvalidCredentials. A wrong
// password is recorded through the store's atomic failed-attempt transition; the
// attempt that trips the threshold returns ErrAccountLocked.
func (e *Engine) Authenticate(ctx context.Context, email, plaintext string) (*User, error) {
	email = normalizeEmail(email)
	user, err := e.users.GetUserByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			e.metrics.Inc(MetricLoginFailure)
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	now := e.clock()
	if user.IsLocked(now) {
		e.metrics.Inc(MetricLoginFailure)
		return nil, ErrAccountLocked
	}
	if !user.IsActive {
		e.metrics.Inc(MetricLoginFailure)
		return nil, ErrAccountDisabled
	}

	ok, err := e.passwordHash.Verify(plaintext, user.PasswordHash)
	if err != nil || !ok {
		e.metrics.Inc(MetricLoginFailure)
		state, recErr := e.users.RecordFailedAttempt(ctx, user.ID, now, e.config.Lockout)
		if recErr != nil {
			return nil, recErr
		}
		state.Apply(user)
		if user.IsLocked(now) {
			e.metrics.Inc(MetricAccountLocked)
			e.logger.Warn().
				Str("user_id", user.ID).
				Int("attempts", user.LoginAttempts).
				Time("locked_until", *user.LockedUntil).
				Msg("account locked after failed logins")
			return nil, ErrAccountLocked
		}
		return nil, ErrInvalidCredentials
	}

	if err := e.users.RecordLoginSuccess(ctx, user.ID, now); err != nil {
		return nil, err
	}
	RecordSuccess(user, now)
	e.metrics.Inc(MetricLoginSuccess)
	e.upgradeHash(ctx, user, plaintext)

	return user, nil
}

// upgradeHash re-hashes a verified password stored under weaker parameters.
// Failures are logged; the login has already succeeded.
func (e *Engine) upgradeHash(ctx context.Context, user *User, plaintext string) {
	stale, err := e.passwordHash.NeedsUpgrade(user.PasswordHash)
	if err != nil || !stale {
		return
	}
	hash, err := e.passwordHash.Hash(plaintext)
	if err == nil {
		err = e.users.UpdatePassword(ctx, user.ID, hash)
	}
	if err != nil {
		e.logger.Warn().Err(err).Str("user_id", user.ID).Msg("password rehash failed")
		return
	}
	user.PasswordHash = hash
}

// ResolveUser re-fetches the full account behind a verified identity. A missing
// account is treated as unauthenticated. Non-admin accounts that are inactive
// or locked are refused here, so routes guarded by identity alone still
// enforce account standing.
func (e *Engine) ResolveUser(ctx context.Context, id Identity) (*User, error) {
	if id.UserID == "" {
		return nil, ErrUnauthenticated
	}
	user, err := e.users.GetUserByID(ctx, id.UserID)
	if err != nil {
		if errors.Is(err, ErrUserNotFound) {
			return nil, ErrUnauthenticated
		}
		return nil, err
	}
	if err := checkStanding(user, e.clock()); err != nil {
		e.metrics.Inc(MetricAuthzDenied)
		return nil, err
	}
	return user, nil
}

// checkStanding denies inactive or locked non-admin accounts. Admin lock and
// status are enforced at login only.
func checkStanding(actor *User, now time.Time) error {
	if actor.IsAdmin() {
		return nil
	}
	if !actor.IsActive {
		return ErrAccountDisabled
	}
	if actor.IsLocked(now) {
		return ErrAccountLocked
	}
	return nil
}

// AuthorizeResource decides whether actor may perform action on resource.
//
// Order: missing actor, admin bypass, inactive, locked, matrix lookup. Admins are
// never denied here; their lock and status are enforced at login only.
func (e *Engine) AuthorizeResource(actor *User, resource permission.Resource, action permission.Action) error {
	start := time.Now()
	err := authorizeResource(actor, resource, action, e.clock())
	e.metrics.Observe(MetricAuthorizeLatency, time.Since(start))
	if err != nil {
		e.metrics.Inc(MetricAuthzDenied)
		return err
	}
	e.metrics.Inc(MetricAuthzAllowed)
	return nil
}

func authorizeResource(actor *User, resource permission.Resource, action permission.Action, now time.Time) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.IsAdmin() {
		return nil
	}
	if err := checkStanding(actor, now); err != nil {
		return err
	}
	if !actor.Permissions.Allows(resource, action) {
		return &PermissionError{
			Requirement: permission.Requirement{Resource: resource, Action: action},
			Role:        actor.Role,
		}
	}
	return nil
}

// AuthorizeRoles allows actor when its role is one of roles.
func (e *Engine) AuthorizeRoles(actor *User, roles ...permission.Role) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	for _, r := range roles {
		if actor.Role == r {
			e.metrics.Inc(MetricAuthzAllowed)
			return nil
		}
	}
	e.metrics.Inc(MetricAuthzDenied)
	return ErrForbidden
}

// CanManageUser allows an admin actor to manage targets of equal or lower rank.
// Every non-admin actor is denied.
func CanManageUser(actor, target *User) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if target == nil {
		return ErrUserNotFound
	}
	if !actor.IsAdmin() {
		return ErrForbidden
	}
	if actor.Role.Rank() < target.Role.Rank() {
		return ErrForbidden
	}
	return nil
}

// PreventSelfDeactivation denies any actor, admins included, setting its own
// account inactive.
func PreventSelfDeactivation(actorID, targetID string, isActive bool) error {
	if actorID == targetID && !isActive {
		return ErrSelfDeactivation
	}
	return nil
}

// CanAccessOwnData allows admins, requests without a target, and requests whose
// target is the actor itself.
func CanAccessOwnData(actor *User, targetID string) error {
	if actor == nil {
		return ErrUnauthenticated
	}
	if actor.IsAdmin() || targetID == "" || targetID == actor.ID {
		return nil
	}
	return ErrForbidden
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
