package redisstore

import (
	"fmt"
	"strconv"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/internal/limiters"
	"github.com/MrEthical07/caseguard/permission"
)

// Hash fields of an account. The lockout fields are shared with the Lua
// transition in internal/limiters.
const (
	fieldID             = "id"
	fieldName           = "name"
	fieldEmail          = "email"
	fieldPassword       = "password"
	fieldRole           = "role"
	fieldPermissions    = "perm"
	fieldActive         = "active"
	fieldCreatedBy      = "createdBy"
	fieldPhone          = "phone"
	fieldCPF            = "cpf"
	fieldCRO            = "cro"
	fieldSpecialization = "specialization"
	fieldAddress        = "address"
	fieldCreatedAt      = "createdAt"
	fieldUpdatedAt      = "updatedAt"
)

func encodeUser(u *caseguard.User) []any {
	return []any{
		fieldID, u.ID,
		fieldName, u.Name,
		fieldEmail, u.Email,
		fieldPassword, u.PasswordHash,
		fieldRole, u.Role.String(),
		fieldPermissions, formatMask(u.Permissions),
		fieldActive, formatBool(u.IsActive),
		fieldCreatedBy, u.CreatedBy,
		fieldPhone, u.Profile.Phone,
		fieldCRO, u.Profile.CRO,
		fieldSpecialization, u.Profile.Specialization,
		fieldAddress, u.Profile.Address,
		fieldCPF, u.Profile.CPF,
		limiters.FieldAttempts, strconv.Itoa(u.LoginAttempts),
		limiters.FieldLockedUntil, formatMillisPtr(u.LockedUntil),
		limiters.FieldLastLogin, formatMillisPtr(u.LastLogin),
		fieldCreatedAt, formatMillis(u.CreatedAt),
		fieldUpdatedAt, formatMillis(u.UpdatedAt),
	}
}

func decodeUser(h map[string]string) (*caseguard.User, error) {
	if len(h) == 0 || h[fieldID] == "" {
		return nil, caseguard.ErrUserNotFound
	}

	attempts, err := strconv.Atoi(orZero(h[limiters.FieldAttempts]))
	if err != nil {
		return nil, fmt.Errorf("decode %s %s: %w", limiters.FieldAttempts, h[fieldID], err)
	}

	// Unknown role names decode to RoleUnknown, which authorizes like assistente.
	role, _ := permission.ParseRole(h[fieldRole])

	// Accounts written without a stored matrix get their role template.
	perms := permission.DeriveFromRole(role)
	if raw, ok := h[fieldPermissions]; ok && raw != "" {
		mask, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("decode %s %s: %w", fieldPermissions, h[fieldID], err)
		}
		perms = permission.MatrixFromMask(permission.Mask64(mask))
	}

	u := &caseguard.User{
		ID:           h[fieldID],
		Name:         h[fieldName],
		Email:        h[fieldEmail],
		PasswordHash: h[fieldPassword],
		Role:         role,
		Permissions:  perms,
		IsActive:     h[fieldActive] == "1",
		CreatedBy:    h[fieldCreatedBy],
		Profile: caseguard.Profile{
			Phone:          h[fieldPhone],
			CPF:            h[fieldCPF],
			CRO:            h[fieldCRO],
			Specialization: h[fieldSpecialization],
			Address:        h[fieldAddress],
		},
		LoginAttempts: attempts,
	}

	if u.LockedUntil, err = parseMillisPtr(h[limiters.FieldLockedUntil]); err != nil {
		return nil, err
	}
	if u.LastLogin, err = parseMillisPtr(h[limiters.FieldLastLogin]); err != nil {
		return nil, err
	}
	created, err := parseMillisPtr(h[fieldCreatedAt])
	if err != nil {
		return nil, err
	}
	if created != nil {
		u.CreatedAt = *created
	}
	updated, err := parseMillisPtr(h[fieldUpdatedAt])
	if err != nil {
		return nil, err
	}
	if updated != nil {
		u.UpdatedAt = *updated
	}
	return u, nil
}

// pairsToMap turns a flat HGETALL-style reply into a map.
func pairsToMap(pairs []string) map[string]string {
	out := make(map[string]string, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out[pairs[i]] = pairs[i+1]
	}
	return out
}

func formatMask(m permission.Matrix) string {
	return strconv.FormatUint(m.Mask().Raw(), 10)
}

func formatBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

func formatMillis(t time.Time) string {
	if t.IsZero() {
		return "0"
	}
	return strconv.FormatInt(t.UnixMilli(), 10)
}

func formatMillisPtr(t *time.Time) string {
	if t == nil {
		return "0"
	}
	return formatMillis(*t)
}

func parseMillisPtr(s string) (*time.Time, error) {
	ms, err := strconv.ParseInt(orZero(s), 10, 64)
	if err != nil {
		return nil, fmt.Errorf("decode timestamp %q: %w", s, err)
	}
	if ms <= 0 {
		return nil, nil
	}
	t := time.UnixMilli(ms).UTC()
	return &t, nil
}

func orZero(s string) string {
	if s == "" {
		return "0"
	}
	return s
}
