package caseguard

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/MrEthical07/caseguard/internal"
	"github.com/MrEthical07/caseguard/password"
	"github.com/MrEthical07/caseguard/permission"
)

// ErrCurrentPasswordMismatch is returned by ChangePassword when the supplied
// current password is wrong.
var ErrCurrentPasswordMismatch = fmt.Errorf("current password does not match: %w", ErrInvalidInput)

// CreateUser registers a new account on behalf of an admin actor. The role
// defaults to assistente and the permission matrix starts as the role template.
func (e *Engine) CreateUser(ctx context.Context, actor *User, req CreateUserRequest) (*User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !actor.IsAdmin() {
		return nil, ErrForbidden
	}

	role := req.Role
	if role == permission.RoleUnknown {
		role = permission.RoleAssistente
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, permission.ErrUnknownRole)
	}

	name := strings.TrimSpace(req.Name)
	email := normalizeEmail(req.Email)
	if name == "" || email == "" {
		return nil, fmt.Errorf("%w: name and email are required", ErrInvalidInput)
	}

	hash, err := e.passwordHash.Hash(req.Password)
	if err != nil {
		if errors.Is(err, password.ErrPasswordTooShort) || errors.Is(err, password.ErrPasswordTooLong) {
			return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
		}
		return nil, err
	}

	now := e.clock()
	user := &User{
		ID:           internal.NewObjectID(),
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Permissions:  permission.DeriveFromRole(role),
		IsActive:     true,
		CreatedBy:    actor.ID,
		Profile:      req.Profile,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := e.users.CreateUser(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicateEmail) || errors.Is(err, ErrDuplicateCPF) {
			e.metrics.Inc(MetricUserDuplicate)
		}
		return nil, err
	}
	e.metrics.Inc(MetricUserCreated)

	e.logActivity(ctx, actor.ID, fmt.Sprintf("User created: %s (%s)", user.Name, user.Role), user.ID)
	return user, nil
}

// ListUsers returns accounts newest first with their creator populated.
func (e *Engine) ListUsers(ctx context.Context, filter UserFilter) ([]UserListing, error) {
	return e.users.ListUsers(ctx, filter)
}

// GetUser returns the account identified by id when actor may read it.
func (e *Engine) GetUser(ctx context.Context, actor *User, id string) (*User, error) {
	if err := CanAccessOwnData(actor, id); err != nil {
		return nil, err
	}
	return e.users.GetUserByID(ctx, id)
}

// ToggleStatus activates or deactivates the target account.
func (e *Engine) ToggleStatus(ctx context.Context, actor *User, targetID string, isActive bool) (*User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := PreventSelfDeactivation(actor.ID, targetID, isActive); err != nil {
		return nil, err
	}
	if _, err := e.managedTarget(ctx, actor, targetID); err != nil {
		return nil, err
	}

	updated, err := e.users.UpdateStatus(ctx, targetID, isActive)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricStatusToggled)

	verb := "deactivated"
	if isActive {
		verb = "activated"
	}
	e.logActivity(ctx, actor.ID, fmt.Sprintf("User %s: %s", verb, updated.Name), updated.ID)
	return updated, nil
}

// UpdatePermissions merges patch leaf-wise into the target's current matrix.
// Unknown resource or action keys reject the whole patch.
func (e *Engine) UpdatePermissions(ctx context.Context, actor *User, targetID string, patch permission.Partial) (*User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if err := patch.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	target, err := e.managedTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}

	merged, err := permission.ApplyOverride(target.Permissions, patch)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}

	updated, err := e.users.UpdatePermissions(ctx, targetID, merged)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricPermissionsUpdated)

	e.logActivity(ctx, actor.ID, "Permissions updated for: "+updated.Name, updated.ID)
	return updated, nil
}

// UpdateRole assigns role to the target and resets its matrix to the role
// template, discarding earlier overrides. Actors cannot change their own role.
func (e *Engine) UpdateRole(ctx context.Context, actor *User, targetID string, role permission.Role) (*User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	if !role.Valid() {
		return nil, fmt.Errorf("%w: %v", ErrInvalidInput, permission.ErrUnknownRole)
	}
	if actor.ID == targetID {
		return nil, ErrForbidden
	}
	target, err := e.managedTarget(ctx, actor, targetID)
	if err != nil {
		return nil, err
	}

	updated, err := e.users.UpdateRole(ctx, targetID, role, permission.DeriveFromRole(role))
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricRoleChanged)

	e.logActivity(ctx, actor.ID, fmt.Sprintf("Role changed for %s: %s -> %s", updated.Name, target.Role, role), updated.ID)
	return updated, nil
}

// UpdateProfile replaces the actor's own name and profile.
func (e *Engine) UpdateProfile(ctx context.Context, actor *User, name string, profile Profile) (*User, error) {
	if actor == nil {
		return nil, ErrUnauthenticated
	}
	name = strings.TrimSpace(name)
	if name == "" {
		name = actor.Name
	}

	updated, err := e.users.UpdateProfile(ctx, actor.ID, name, profile)
	if err != nil {
		return nil, err
	}
	e.metrics.Inc(MetricProfileUpdated)
	return updated, nil
}

// ChangePassword replaces the actor's password after checking the current one.
func (e *Engine) ChangePassword(ctx context.Context, actor *User, current, next string) error {
	if actor == nil {
		return ErrUnauthenticated
	}

	stored, err := e.users.GetUserByID(ctx, actor.ID)
	if err != nil {
		return err
	}
	ok, err := e.passwordHash.Verify(current, stored.PasswordHash)
	if err != nil || !ok {
		return ErrCurrentPasswordMismatch
	}

	hash, err := e.passwordHash.Hash(next)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if err := e.users.UpdatePassword(ctx, actor.ID, hash); err != nil {
		return err
	}
	e.metrics.Inc(MetricPasswordChanged)

	e.logActivity(ctx, actor.ID, "Password changed", actor.ID)
	return nil
}

// LogSensitiveAction appends a human-readable entry to the activity log. It runs
// synchronously and is meant for the success path of privileged operations.
func (e *Engine) LogSensitiveAction(ctx context.Context, actorID, description, targetID string) error {
	entry := ActivityEntry{
		ID:        internal.NewObjectID(),
		ActorID:   actorID,
		Action:    description,
		TargetID:  targetID,
		Timestamp: e.clock(),
	}
	if err := e.records.AppendActivity(ctx, entry); err != nil {
		return err
	}
	e.metrics.Inc(MetricActivityLogged)
	e.logger.Info().
		Str("actor_id", actorID).
		Str("target_id", targetID).
		Str("action", description).
		Msg("sensitive action")
	return nil
}

// logActivity records a completed mutation. The mutation has already been
// committed, so a failed append is logged rather than returned.
func (e *Engine) logActivity(ctx context.Context, actorID, description, targetID string) {
	if err := e.LogSensitiveAction(ctx, actorID, description, targetID); err != nil {
		e.logger.Error().Err(err).
			Str("actor_id", actorID).
			Str("target_id", targetID).
			Str("action", description).
			Msg("activity log append failed")
	}
}

// ListAudit returns audit records newest first.
func (e *Engine) ListAudit(ctx context.Context, filter RecordFilter) ([]AuditRecord, error) {
	return e.records.ListAudit(ctx, filter)
}

// ListActivity returns activity entries newest first.
func (e *Engine) ListActivity(ctx context.Context, filter RecordFilter) ([]ActivityEntry, error) {
	return e.records.ListActivity(ctx, filter)
}

func (e *Engine) managedTarget(ctx context.Context, actor *User, targetID string) (*User, error) {
	target, err := e.users.GetUserByID(ctx, targetID)
	if err != nil {
		return nil, err
	}
	if err := CanManageUser(actor, target); err != nil {
		return nil, err
	}
	return target, nil
}

// Bootstrap creates the first admin account when the store holds no users and
// reports whether it did. Populated stores are left untouched.
func (e *Engine) Bootstrap(ctx context.Context, name, email, plaintext string) (bool, error) {
	existing, err := e.users.ListUsers(ctx, UserFilter{Limit: 1})
	if err != nil {
		return false, err
	}
	if len(existing) > 0 {
		return false, nil
	}

	hash, err := e.passwordHash.Hash(plaintext)
	if err != nil {
		return false, err
	}
	now := e.clock()
	admin := &User{
		ID:           internal.NewObjectID(),
		Name:         strings.TrimSpace(name),
		Email:        normalizeEmail(email),
		PasswordHash: hash,
		Role:         permission.RoleAdmin,
		Permissions:  permission.DeriveFromRole(permission.RoleAdmin),
		IsActive:     true,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := e.users.CreateUser(ctx, admin); err != nil {
		return false, err
	}
	e.logger.Info().Str("user_id", admin.ID).Str("email", admin.Email).Msg("bootstrap admin created")
	return true, nil
}
