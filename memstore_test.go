package caseguard

import (
	"context"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/caseguard/permission"
	"github.com/rs/zerolog"
)

// memoryStore is an in-process UserStore and RecordStore for engine tests.
type memoryStore struct {
	mu       sync.Mutex
	users    map[string]*User
	audit    []AuditRecord
	activity []ActivityEntry

	auditErr    error
	activityErr error
}

func newMemoryStore() *memoryStore {
	return &memoryStore{users: map[string]*User{}}
}

func (s *memoryStore) GetUserByID(_ context.Context, id string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (s *memoryStore) GetUserByEmail(_ context.Context, email string) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == email {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (s *memoryStore) ListUsers(_ context.Context, filter UserFilter) ([]UserListing, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UserListing, 0, len(s.users))
	for _, u := range s.users {
		if !filter.Matches(u) {
			continue
		}
		l := UserListing{User: *u}
		if c, ok := s.users[u.CreatedBy]; ok {
			l.CreatedBy = &UserRef{ID: c.ID, Name: c.Name, Email: c.Email}
		}
		out = append(out, l)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if filter.Limit > 0 && len(out) > filter.Limit {
		out = out[:filter.Limit]
	}
	return out, nil
}

func (s *memoryStore) CreateUser(_ context.Context, user *User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Email == user.Email {
			return ErrDuplicateEmail
		}
		if user.Profile.CPF != "" && u.Profile.CPF == user.Profile.CPF {
			return ErrDuplicateCPF
		}
	}
	cp := *user
	s.users[user.ID] = &cp
	return nil
}

func (s *memoryStore) update(id string, fn func(u *User)) (*User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	fn(u)
	cp := *u
	return &cp, nil
}

func (s *memoryStore) UpdateStatus(_ context.Context, id string, active bool) (*User, error) {
	return s.update(id, func(u *User) { u.IsActive = active })
}

func (s *memoryStore) UpdatePermissions(_ context.Context, id string, perms permission.Matrix) (*User, error) {
	return s.update(id, func(u *User) { u.Permissions = perms })
}

func (s *memoryStore) UpdateRole(_ context.Context, id string, role permission.Role, perms permission.Matrix) (*User, error) {
	return s.update(id, func(u *User) {
		u.Role = role
		u.Permissions = perms
	})
}

func (s *memoryStore) UpdateProfile(_ context.Context, id string, name string, profile Profile) (*User, error) {
	return s.update(id, func(u *User) {
		u.Name = name
		u.Profile = profile
	})
}

func (s *memoryStore) UpdatePassword(_ context.Context, id string, hash string) error {
	_, err := s.update(id, func(u *User) { u.PasswordHash = hash })
	return err
}

func (s *memoryStore) RecordFailedAttempt(_ context.Context, id string, now time.Time, policy LockoutConfig) (LockState, error) {
	var state LockState
	_, err := s.update(id, func(u *User) {
		policy.RecordFailedAttempt(u, now)
		state = LockState{Attempts: u.LoginAttempts, LockedUntil: u.LockedUntil}
	})
	return state, err
}

func (s *memoryStore) RecordLoginSuccess(_ context.Context, id string, now time.Time) error {
	_, err := s.update(id, func(u *User) { RecordSuccess(u, now) })
	return err
}

func (s *memoryStore) AppendAudit(_ context.Context, record AuditRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.auditErr != nil {
		return s.auditErr
	}
	s.audit = append(s.audit, record)
	return nil
}

func (s *memoryStore) AppendActivity(_ context.Context, entry ActivityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.activityErr != nil {
		return s.activityErr
	}
	s.activity = append(s.activity, entry)
	return nil
}

func (s *memoryStore) ListAudit(_ context.Context, filter RecordFilter) ([]AuditRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]AuditRecord, 0, len(s.audit))
	for i := len(s.audit) - 1; i >= 0; i-- {
		if filter.ActorID == "" || s.audit[i].ActorID == filter.ActorID {
			out = append(out, s.audit[i])
		}
	}
	return out, nil
}

func (s *memoryStore) ListActivity(_ context.Context, filter RecordFilter) ([]ActivityEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]ActivityEntry, 0, len(s.activity))
	for i := len(s.activity) - 1; i >= 0; i-- {
		if filter.ActorID == "" || s.activity[i].ActorID == filter.ActorID {
			out = append(out, s.activity[i])
		}
	}
	return out, nil
}

func (s *memoryStore) activityCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.activity)
}

func (s *memoryStore) auditCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.audit)
}

func (s *memoryStore) userCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.users)
}

func testConfig() Config {
	cfg := DefaultConfig()
	cfg.Password.Memory = 8 * 1024
	cfg.Password.Time = 1
	cfg.Password.Parallelism = 1
	return cfg
}

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	c.now = c.now.Add(d)
	c.mu.Unlock()
}

func newTestEngine(t testing.TB, store *memoryStore, clock *testClock) *Engine {
	t.Helper()
	return buildTestEngine(t, store, clock, testConfig())
}

func newTestEngineWithConfig(t testing.TB, store *memoryStore, cfg Config) *Engine {
	t.Helper()
	return buildTestEngine(t, store, nil, cfg)
}

func buildTestEngine(t testing.TB, store *memoryStore, clock *testClock, cfg Config) *Engine {
	t.Helper()
	b := New().
		WithConfig(cfg).
		WithUserStore(store).
		WithRecordStore(store).
		WithLogger(zerolog.Nop())
	if clock != nil {
		b = b.WithClock(clock.Now)
	}
	engine, err := b.Build()
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	t.Cleanup(engine.Close)
	return engine
}

// seedUser inserts an account with the given role and password directly into store.
func seedUser(t testing.TB, engine *Engine, store *memoryStore, id, email, plaintext string, role permission.Role) *User {
	t.Helper()
	hash, err := engine.passwordHash.Hash(plaintext)
	if err != nil {
		t.Fatalf("hash failed: %v", err)
	}
	u := &User{
		ID:           id,
		Name:         "user " + id,
		Email:        email,
		PasswordHash: hash,
		Role:         role,
		Permissions:  permission.DeriveFromRole(role),
		IsActive:     true,
		CreatedAt:    time.Now(),
	}
	if err := store.CreateUser(context.Background(), u); err != nil {
		t.Fatalf("seed failed: %v", err)
	}
	cp := *u
	return &cp
}
