package caseguard

import (
	"errors"
	"fmt"

	"github.com/MrEthical07/caseguard/permission"
)

var (
	// ErrUnauthenticated is returned when no verified identity is available.
	ErrUnauthenticated = errors.New("unauthenticated")
	// ErrForbidden is the root of every authorization denial.
	ErrForbidden = errors.New("forbidden")
	// ErrAccountDisabled is returned for inactive accounts. It is a forbidden-class error.
	ErrAccountDisabled = fmt.Errorf("account disabled: %w", ErrForbidden)
	// ErrAccountLocked is returned while a login lock is in force. It is a forbidden-class error.
	ErrAccountLocked = fmt.Errorf("account locked: %w", ErrForbidden)
	// ErrSelfDeactivation is returned when an actor tries to deactivate its own account.
	ErrSelfDeactivation = fmt.Errorf("cannot deactivate own account: %w", ErrForbidden)
	// ErrInvalidCredentials covers both unknown emails and wrong passwords.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrUserNotFound is returned by stores and lookups for missing accounts.
	ErrUserNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when the email is already registered.
	ErrDuplicateEmail = errors.New("email already registered")
	// ErrDuplicateCPF is returned when a non-empty cpf is already registered.
	ErrDuplicateCPF = errors.New("cpf already registered")
	// ErrInvalidInput is returned for requests the engine rejects before touching a store.
	ErrInvalidInput = errors.New("invalid input")
	// ErrStoreUnavailable wraps backend failures.
	ErrStoreUnavailable = errors.New("store unavailable")
)

// PermissionError is the denial produced by a matrix lookup. It carries the
// requirement that failed so callers can surface it as a hint.
type PermissionError struct {
	Requirement permission.Requirement
	Role        permission.Role
}

func (e *PermissionError) Error() string {
	return "permission denied: " + e.Requirement.String()
}

func (e *PermissionError) Unwrap() error {
	return ErrForbidden
}

// IsForbidden reports whether err belongs to the forbidden class.
func IsForbidden(err error) bool {
	return errors.Is(err, ErrForbidden)
}
