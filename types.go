package caseguard

import (
	"context"
	"time"

	"github.com/MrEthical07/caseguard/permission"
)

// Profile holds the optional professional details of an account.
type Profile struct {
	Phone          string `json:"phone,omitempty"`
	CPF            string `json:"cpf,omitempty"`
	CRO            string `json:"cro,omitempty"`
	Specialization string `json:"specialization,omitempty"`
	Address        string `json:"address,omitempty"`
}

// User is the full account record. Permissions is always total: it is set from the
// role template on creation and on every role change, and only leaf-wise overrides
// modify it afterwards.
type User struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Email         string            `json:"email"`
	PasswordHash  string            `json:"-"`
	Role          permission.Role   `json:"role"`
	Permissions   permission.Matrix `json:"permissions"`
	IsActive      bool              `json:"isActive"`
	CreatedBy     string            `json:"createdBy,omitempty"`
	Profile       Profile           `json:"profile"`
	LoginAttempts int               `json:"loginAttempts"`
	LockedUntil   *time.Time        `json:"lockUntil,omitempty"`
	LastLogin     *time.Time        `json:"lastLogin,omitempty"`
	CreatedAt     time.Time         `json:"createdAt"`
	UpdatedAt     time.Time         `json:"updatedAt"`
}

// IsAdmin reports whether the account holds the admin role.
func (u *User) IsAdmin() bool {
	return u != nil && u.Role == permission.RoleAdmin
}

// UserRef is the populated form of a creator reference.
type UserRef struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

// UserListing is a user with its creator populated. The outer CreatedBy shadows
// the embedded id when encoded.
type UserListing struct {
	User
	CreatedBy *UserRef `json:"createdBy,omitempty"`
}

// Identity is the minimal verified claim produced by the identity provider.
type Identity struct {
	UserID string
	Role   permission.Role
}

// UserFilter narrows [UserStore.ListUsers]. Zero values match everything.
type UserFilter struct {
	Role   permission.Role
	Active *bool
	Limit  int
	Offset int
}

// Matches reports whether u passes the role and status filters.
func (f UserFilter) Matches(u *User) bool {
	if u == nil {
		return false
	}
	if f.Role != permission.RoleUnknown && u.Role != f.Role {
		return false
	}
	if f.Active != nil && u.IsActive != *f.Active {
		return false
	}
	return true
}

// RecordFilter narrows audit and activity listings.
type RecordFilter struct {
	ActorID string
	Limit   int
}

// LockState is the result of an atomic failed-attempt transition.
type LockState struct {
	Attempts    int
	LockedUntil *time.Time
}

// IsLocked reports whether the state carries a lock that is still in force at now.
func (s LockState) IsLocked(now time.Time) bool {
	return s.LockedUntil != nil && s.LockedUntil.After(now)
}

// UserStore persists accounts. Implementations must apply RecordFailedAttempt
// atomically: concurrent failures against the same account may not lose increments
// or extend an existing lock.
type UserStore interface {
	GetUserByID(ctx context.Context, id string) (*User, error)
	GetUserByEmail(ctx context.Context, email string) (*User, error)
	ListUsers(ctx context.Context, filter UserFilter) ([]UserListing, error)
	CreateUser(ctx context.Context, user *User) error
	UpdateStatus(ctx context.Context, id string, active bool) (*User, error)
	UpdatePermissions(ctx context.Context, id string, perms permission.Matrix) (*User, error)
	UpdateRole(ctx context.Context, id string, role permission.Role, perms permission.Matrix) (*User, error)
	UpdateProfile(ctx context.Context, id string, name string, profile Profile) (*User, error)
	UpdatePassword(ctx context.Context, id string, hash string) error
	RecordFailedAttempt(ctx context.Context, id string, now time.Time, policy LockoutConfig) (LockState, error)
	RecordLoginSuccess(ctx context.Context, id string, now time.Time) error
}

// RecordStore persists the append-only audit trail and activity log.
type RecordStore interface {
	AppendAudit(ctx context.Context, record AuditRecord) error
	AppendActivity(ctx context.Context, entry ActivityEntry) error
	ListAudit(ctx context.Context, filter RecordFilter) ([]AuditRecord, error)
	ListActivity(ctx context.Context, filter RecordFilter) ([]ActivityEntry, error)
}

// CreateUserRequest is the input for [Engine.CreateUser].
type CreateUserRequest struct {
	Name     string
	Email    string
	Password string
	Role     permission.Role
	Profile  Profile
}

// ActivityEntry is a human-readable trace of a privileged action.
type ActivityEntry struct {
	ID        string    `json:"id"`
	ActorID   string    `json:"user"`
	Action    string    `json:"action"`
	TargetID  string    `json:"targetId,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}
