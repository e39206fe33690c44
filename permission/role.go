package permission

import (
	"errors"
	"fmt"
)

// ErrUnknownRole is returned when a role name is not one of admin, perito, assistente.
var ErrUnknownRole = errors.New("unknown role")

// Role is the closed set of account roles. The zero value is RoleUnknown.
type Role uint8

const (
	RoleUnknown Role = iota
	RoleAssistente
	RolePerito
	RoleAdmin
	roleCount
)

var roleNames = [roleCount]string{
	RoleUnknown:    "",
	RoleAssistente: "assistente",
	RolePerito:     "perito",
	RoleAdmin:      "admin",
}

// hierarchy rank used to gate user-management mutations
var roleRank = [roleCount]int{
	RoleUnknown:    0,
	RoleAssistente: 1,
	RolePerito:     2,
	RoleAdmin:      3,
}

// Roles lists every assignable role, highest rank first.
func Roles() []Role {
	return []Role{RoleAdmin, RolePerito, RoleAssistente}
}

// ParseRole maps a role name to its enum value.
func ParseRole(name string) (Role, error) {
	for r := RoleAssistente; r < roleCount; r++ {
		if roleNames[r] == name {
			return r, nil
		}
	}
	return RoleUnknown, fmt.Errorf("%w: %q", ErrUnknownRole, name)
}

// Valid reports whether r is one of the assignable roles.
func (r Role) Valid() bool {
	return r > RoleUnknown && r < roleCount
}

// Rank returns the hierarchy level: admin 3, perito 2, assistente 1, anything else 0.
func (r Role) Rank() int {
	if r >= roleCount {
		return 0
	}
	return roleRank[r]
}

func (r Role) String() string {
	if r >= roleCount {
		return ""
	}
	return roleNames[r]
}

// MarshalText implements encoding.TextMarshaler.
func (r Role) MarshalText() ([]byte, error) {
	return []byte(r.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler. Unknown names are rejected.
func (r *Role) UnmarshalText(text []byte) error {
	parsed, err := ParseRole(string(text))
	if err != nil {
		return err
	}
	*r = parsed
	return nil
}
