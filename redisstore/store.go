package redisstore

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/internal/limiters"
	"github.com/MrEthical07/caseguard/permission"
	"github.com/redis/go-redis/v9"
)

// DefaultPrefix is the key namespace used when none is given.
const DefaultPrefix = "caseguard"

// Store implements [caseguard.UserStore] and [caseguard.RecordStore] on Redis.
type Store struct {
	redis   redis.UniversalClient
	prefix  string
	lockout *limiters.Lockout
}

var (
	_ caseguard.UserStore   = (*Store)(nil)
	_ caseguard.RecordStore = (*Store)(nil)
)

// New creates a Store. policy is the lockout applied when a caller passes a zero
// policy to RecordFailedAttempt.
func New(client redis.UniversalClient, prefix string, policy caseguard.LockoutConfig) *Store {
	if prefix == "" {
		prefix = DefaultPrefix
	}
	return &Store{
		redis:   client,
		prefix:  prefix,
		lockout: limiters.NewLockout(client, lockoutConfig(policy)),
	}
}

func lockoutConfig(policy caseguard.LockoutConfig) limiters.LockoutConfig {
	return limiters.LockoutConfig{Threshold: policy.MaxAttempts, Duration: policy.Duration}
}

func (s *Store) userKey(id string) string {
	return s.prefix + ":user:" + id
}

func (s *Store) emailKey(email string) string {
	return s.prefix + ":email:" + strings.ToLower(email)
}

func (s *Store) cpfPrefix() string {
	return s.prefix + ":cpf:"
}

func (s *Store) usersKey() string {
	return s.prefix + ":users"
}

func unavailable(err error) error {
	return fmt.Errorf("%w: %v", caseguard.ErrStoreUnavailable, err)
}

// GetUserByID loads one account.
func (s *Store) GetUserByID(ctx context.Context, id string) (*caseguard.User, error) {
	if id == "" {
		return nil, caseguard.ErrUserNotFound
	}
	h, err := s.redis.HGetAll(ctx, s.userKey(id)).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	return decodeUser(h)
}

// GetUserByEmail resolves the email index and loads the account. Emails are
// matched case-insensitively.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*caseguard.User, error) {
	id, err := s.redis.Get(ctx, s.emailKey(email)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, caseguard.ErrUserNotFound
		}
		return nil, unavailable(err)
	}
	return s.GetUserByID(ctx, id)
}

// ListUsers returns accounts newest first with CreatedBy populated.
//
//	Performance: 1 ZREVRANGE + 1 pipelined HGETALL round trip + 1 pipelined HMGET round trip for creators.
func (s *Store) ListUsers(ctx context.Context, filter caseguard.UserFilter) ([]caseguard.UserListing, error) {
	ids, err := s.redis.ZRevRange(ctx, s.usersKey(), 0, -1).Result()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(ids) == 0 {
		return []caseguard.UserListing{}, nil
	}

	cmds := make([]*redis.MapStringStringCmd, len(ids))
	_, err = s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for i, id := range ids {
			cmds[i] = pipe.HGetAll(ctx, s.userKey(id))
		}
		return nil
	})
	if err != nil {
		return nil, unavailable(err)
	}

	out := make([]caseguard.UserListing, 0, len(ids))
	skipped := 0
	for _, cmd := range cmds {
		u, err := decodeUser(cmd.Val())
		if errors.Is(err, caseguard.ErrUserNotFound) {
			continue
		}
		if err != nil {
			return nil, err
		}
		if !filter.Matches(u) {
			continue
		}
		if skipped < filter.Offset {
			skipped++
			continue
		}
		out = append(out, caseguard.UserListing{User: *u})
		if filter.Limit > 0 && len(out) == filter.Limit {
			break
		}
	}

	if err := s.populateCreators(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *Store) populateCreators(ctx context.Context, listings []caseguard.UserListing) error {
	creators := map[string]*redis.SliceCmd{}
	_, err := s.redis.Pipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, l := range listings {
			id := l.User.CreatedBy
			if id == "" {
				continue
			}
			if _, ok := creators[id]; !ok {
				creators[id] = pipe.HMGet(ctx, s.userKey(id), fieldID, fieldName, fieldEmail)
			}
		}
		return nil
	})
	if err != nil {
		return unavailable(err)
	}

	for i := range listings {
		cmd, ok := creators[listings[i].User.CreatedBy]
		if !ok {
			continue
		}
		vals := cmd.Val()
		if len(vals) != 3 || vals[0] == nil {
			continue
		}
		ref := &caseguard.UserRef{}
		ref.ID, _ = vals[0].(string)
		ref.Name, _ = vals[1].(string)
		ref.Email, _ = vals[2].(string)
		listings[i].CreatedBy = ref
	}
	return nil
}

// CreateUser inserts an account. Email and non-empty cpf are unique.
func (s *Store) CreateUser(ctx context.Context, user *caseguard.User) error {
	if user == nil || user.ID == "" {
		return caseguard.ErrInvalidInput
	}

	args := make([]any, 0, 40)
	args = append(args, user.ID, formatMillis(user.CreatedAt), user.Profile.CPF)
	args = append(args, encodeUser(user)...)

	keys := []string{
		s.userKey(user.ID),
		s.emailKey(user.Email),
		s.cpfPrefix() + user.Profile.CPF,
		s.usersKey(),
	}
	reply, err := createUserLua.Run(ctx, s.redis, keys, args...).Text()
	if err != nil {
		return unavailable(err)
	}

	switch reply {
	case replyOK:
		return nil
	case replyDupEmail:
		return caseguard.ErrDuplicateEmail
	case replyDupCPF:
		return caseguard.ErrDuplicateCPF
	case replyDupUserID:
		return fmt.Errorf("%w: user id %s exists", caseguard.ErrInvalidInput, user.ID)
	default:
		return unavailable(fmt.Errorf("unexpected create reply %q", reply))
	}
}

func (s *Store) runUpdate(ctx context.Context, script *redis.Script, keys []string, args ...any) (*caseguard.User, error) {
	reply, err := script.Run(ctx, s.redis, keys, args...).StringSlice()
	if err != nil {
		return nil, unavailable(err)
	}
	if len(reply) == 0 {
		return nil, unavailable(errors.New("empty update reply"))
	}

	switch reply[0] {
	case replyOK:
		return decodeUser(pairsToMap(reply[1:]))
	case replyMissing:
		return nil, caseguard.ErrUserNotFound
	case replyDupCPF:
		return nil, caseguard.ErrDuplicateCPF
	default:
		return nil, unavailable(fmt.Errorf("unexpected update reply %q", reply[0]))
	}
}

func (s *Store) updateFields(ctx context.Context, id string, fields ...any) (*caseguard.User, error) {
	if id == "" {
		return nil, caseguard.ErrUserNotFound
	}
	fields = append(fields, fieldUpdatedAt, formatMillis(time.Now()))
	return s.runUpdate(ctx, updateUserLua, []string{s.userKey(id)}, fields...)
}

// UpdateStatus sets the active flag.
func (s *Store) UpdateStatus(ctx context.Context, id string, active bool) (*caseguard.User, error) {
	return s.updateFields(ctx, id, fieldActive, formatBool(active))
}

// UpdatePermissions replaces the stored matrix.
func (s *Store) UpdatePermissions(ctx context.Context, id string, perms permission.Matrix) (*caseguard.User, error) {
	return s.updateFields(ctx, id, fieldPermissions, formatMask(perms))
}

// UpdateRole sets role and matrix together.
func (s *Store) UpdateRole(ctx context.Context, id string, role permission.Role, perms permission.Matrix) (*caseguard.User, error) {
	return s.updateFields(ctx, id, fieldRole, role.String(), fieldPermissions, formatMask(perms))
}

// UpdateProfile sets the display name and profile, moving the cpf index entry
// when the cpf changes.
func (s *Store) UpdateProfile(ctx context.Context, id string, name string, profile caseguard.Profile) (*caseguard.User, error) {
	if id == "" {
		return nil, caseguard.ErrUserNotFound
	}
	args := []any{
		id, s.cpfPrefix(), profile.CPF,
		fieldName, name,
		fieldPhone, profile.Phone,
		fieldCRO, profile.CRO,
		fieldSpecialization, profile.Specialization,
		fieldAddress, profile.Address,
		fieldUpdatedAt, formatMillis(time.Now()),
	}
	return s.runUpdate(ctx, updateProfileLua, []string{s.userKey(id)}, args...)
}

// UpdatePassword stores a new hash.
func (s *Store) UpdatePassword(ctx context.Context, id string, hash string) error {
	_, err := s.updateFields(ctx, id, fieldPassword, hash)
	return err
}

// RecordFailedAttempt applies one failed login atomically in Redis.
func (s *Store) RecordFailedAttempt(ctx context.Context, id string, now time.Time, policy caseguard.LockoutConfig) (caseguard.LockState, error) {
	attempts, until, err := s.lockout.RecordFailure(ctx, s.userKey(id), now, lockoutConfig(policy))
	if err != nil {
		if errors.Is(err, limiters.ErrLockoutSubjectMissing) {
			return caseguard.LockState{}, caseguard.ErrUserNotFound
		}
		return caseguard.LockState{}, unavailable(err)
	}
	return caseguard.LockState{Attempts: attempts, LockedUntil: until}, nil
}

// RecordLoginSuccess clears the counter and lock and stamps lastLogin.
func (s *Store) RecordLoginSuccess(ctx context.Context, id string, now time.Time) error {
	if err := s.lockout.Reset(ctx, s.userKey(id), now); err != nil {
		if errors.Is(err, limiters.ErrLockoutSubjectMissing) {
			return caseguard.ErrUserNotFound
		}
		return unavailable(err)
	}
	return nil
}

// CountUsers returns the number of stored accounts.
func (s *Store) CountUsers(ctx context.Context) (int64, error) {
	n, err := s.redis.ZCard(ctx, s.usersKey()).Result()
	if err != nil {
		return 0, unavailable(err)
	}
	return n, nil
}

// Ping checks connectivity.
func (s *Store) Ping(ctx context.Context) error {
	if err := s.redis.Ping(ctx).Err(); err != nil {
		return unavailable(err)
	}
	return nil
}
