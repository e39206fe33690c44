package redisstore

import (
	"context"
	"errors"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/MrEthical07/caseguard"
	"github.com/MrEthical07/caseguard/permission"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()
	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis start: %v", err)
	}
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() {
		rdb.Close()
		mr.Close()
	})
	policy := caseguard.LockoutConfig{MaxAttempts: caseguard.MaxLoginAttempts, Duration: caseguard.LockDuration}
	return New(rdb, "cgtest", policy), mr
}

func testUser(id, email string, role permission.Role, created time.Time) *caseguard.User {
	return &caseguard.User{
		ID:           id,
		Name:         "user " + id,
		Email:        email,
		PasswordHash: "hash-" + id,
		Role:         role,
		Permissions:  permission.DeriveFromRole(role),
		IsActive:     true,
		CreatedAt:    created,
		UpdatedAt:    created,
	}
}

func TestCreateAndLoadRoundTrip(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	created := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	u := testUser("u1", "perito@example.com", permission.RolePerito, created)
	u.CreatedBy = "admin"
	u.Profile = caseguard.Profile{Phone: "(11) 98888-7777", CPF: "12345678901", CRO: "SP-1234"}
	u.Permissions.Set(permission.Users, permission.Read, true)
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got.Email != u.Email || got.Role != permission.RolePerito || !got.IsActive || got.PasswordHash != "hash-u1" {
		t.Fatalf("unexpected user: %+v", got)
	}
	if got.Permissions != u.Permissions {
		t.Fatalf("matrix mismatch: %v vs %v", got.Permissions, u.Permissions)
	}
	if got.Profile != u.Profile || got.CreatedBy != "admin" {
		t.Fatalf("profile mismatch: %+v", got.Profile)
	}
	if !got.CreatedAt.Equal(created) || got.LockedUntil != nil || got.LastLogin != nil {
		t.Fatalf("unexpected timestamps: %+v", got)
	}

	byEmail, err := store.GetUserByEmail(ctx, "PERITO@example.com")
	if err != nil || byEmail.ID != "u1" {
		t.Fatalf("GetUserByEmail: %v %+v", err, byEmail)
	}

	if _, err := store.GetUserByID(ctx, "missing"); !errors.Is(err, caseguard.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if _, err := store.GetUserByEmail(ctx, "missing@example.com"); !errors.Is(err, caseguard.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestCreateUserDuplicates(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	first := testUser("u1", "a@example.com", permission.RoleAssistente, now)
	first.Profile.CPF = "11122233344"
	if err := store.CreateUser(ctx, first); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	dupEmail := testUser("u2", "a@example.com", permission.RoleAssistente, now)
	if err := store.CreateUser(ctx, dupEmail); !errors.Is(err, caseguard.ErrDuplicateEmail) {
		t.Fatalf("expected ErrDuplicateEmail, got %v", err)
	}

	dupCPF := testUser("u3", "b@example.com", permission.RoleAssistente, now)
	dupCPF.Profile.CPF = "11122233344"
	if err := store.CreateUser(ctx, dupCPF); !errors.Is(err, caseguard.ErrDuplicateCPF) {
		t.Fatalf("expected ErrDuplicateCPF, got %v", err)
	}

	// Empty cpf is not indexed, so several accounts may omit it.
	for _, id := range []string{"u4", "u5"} {
		if err := store.CreateUser(ctx, testUser(id, id+"@example.com", permission.RoleAssistente, now)); err != nil {
			t.Fatalf("CreateUser %s: %v", id, err)
		}
	}

	n, err := store.CountUsers(ctx)
	if err != nil || n != 3 {
		t.Fatalf("expected 3 users, got %d (%v)", n, err)
	}
}

func TestListUsersNewestFirstWithCreator(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	base := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

	admin := testUser("admin", "admin@example.com", permission.RoleAdmin, base)
	admin.Name = "Root Admin"
	if err := store.CreateUser(ctx, admin); err != nil {
		t.Fatal(err)
	}
	for i, id := range []string{"a", "b", "c"} {
		u := testUser(id, id+"@example.com", permission.RoleAssistente, base.Add(time.Duration(i+1)*time.Minute))
		u.CreatedBy = "admin"
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}
	if _, err := store.UpdateStatus(ctx, "b", false); err != nil {
		t.Fatal(err)
	}

	all, err := store.ListUsers(ctx, caseguard.UserFilter{})
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	var order []string
	for _, l := range all {
		order = append(order, l.ID)
	}
	if len(order) != 4 || order[0] != "c" || order[3] != "admin" {
		t.Fatalf("expected newest first, got %v", order)
	}
	if all[0].CreatedBy == nil || all[0].CreatedBy.Name != "Root Admin" || all[0].CreatedBy.Email != "admin@example.com" {
		t.Fatalf("expected creator populated, got %+v", all[0].CreatedBy)
	}
	if all[3].CreatedBy != nil {
		t.Fatalf("expected no creator for bootstrap admin, got %+v", all[3].CreatedBy)
	}

	active := true
	filtered, err := store.ListUsers(ctx, caseguard.UserFilter{Role: permission.RoleAssistente, Active: &active, Limit: 1, Offset: 1})
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 || filtered[0].ID != "a" {
		t.Fatalf("unexpected filtered page: %+v", filtered)
	}
}

func TestUpdateOperations(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateUser(ctx, testUser("u1", "u1@example.com", permission.RolePerito, time.Now())); err != nil {
		t.Fatal(err)
	}

	u, err := store.UpdateStatus(ctx, "u1", false)
	if err != nil || u.IsActive {
		t.Fatalf("UpdateStatus: %v %+v", err, u)
	}

	perms := permission.DeriveFromRole(permission.RolePerito)
	perms.Set(permission.Users, permission.Write, true)
	u, err = store.UpdatePermissions(ctx, "u1", perms)
	if err != nil || !u.Permissions.Allows(permission.Users, permission.Write) {
		t.Fatalf("UpdatePermissions: %v %+v", err, u)
	}

	u, err = store.UpdateRole(ctx, "u1", permission.RoleAssistente, permission.DeriveFromRole(permission.RoleAssistente))
	if err != nil || u.Role != permission.RoleAssistente || u.Permissions != permission.DeriveFromRole(permission.RoleAssistente) {
		t.Fatalf("UpdateRole: %v %+v", err, u)
	}

	if err := store.UpdatePassword(ctx, "u1", "new-hash"); err != nil {
		t.Fatal(err)
	}
	u, _ = store.GetUserByID(ctx, "u1")
	if u.PasswordHash != "new-hash" {
		t.Fatalf("expected new hash, got %q", u.PasswordHash)
	}

	if _, err := store.UpdateStatus(ctx, "ghost", true); !errors.Is(err, caseguard.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.UpdatePassword(ctx, "ghost", "h"); !errors.Is(err, caseguard.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestUpdateProfileMovesCPFIndex(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	a := testUser("a", "a@example.com", permission.RolePerito, now)
	a.Profile.CPF = "00000000001"
	b := testUser("b", "b@example.com", permission.RolePerito, now)
	b.Profile.CPF = "00000000002"
	for _, u := range []*caseguard.User{a, b} {
		if err := store.CreateUser(ctx, u); err != nil {
			t.Fatal(err)
		}
	}

	if _, err := store.UpdateProfile(ctx, "a", "A", caseguard.Profile{CPF: "00000000002"}); !errors.Is(err, caseguard.ErrDuplicateCPF) {
		t.Fatalf("expected ErrDuplicateCPF, got %v", err)
	}

	u, err := store.UpdateProfile(ctx, "a", "Alice", caseguard.Profile{CPF: "00000000003", Specialization: "odontologia legal"})
	if err != nil {
		t.Fatalf("UpdateProfile: %v", err)
	}
	if u.Name != "Alice" || u.Profile.CPF != "00000000003" || u.Profile.Specialization != "odontologia legal" {
		t.Fatalf("unexpected profile: %+v", u)
	}

	// The released cpf is free again.
	c := testUser("c", "c@example.com", permission.RolePerito, now)
	c.Profile.CPF = "00000000001"
	if err := store.CreateUser(ctx, c); err != nil {
		t.Fatalf("expected released cpf reusable, got %v", err)
	}

	// Keeping one's own cpf is not a conflict.
	if _, err := store.UpdateProfile(ctx, "b", "Bob", caseguard.Profile{CPF: "00000000002"}); err != nil {
		t.Fatalf("expected own cpf accepted, got %v", err)
	}
}

func TestFailedAttemptsLockAndReset(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.CreateUser(ctx, testUser("u1", "u1@example.com", permission.RolePerito, now)); err != nil {
		t.Fatal(err)
	}
	policy := caseguard.LockoutConfig{MaxAttempts: 5, Duration: 2 * time.Hour}

	var state caseguard.LockState
	var err error
	for i := 1; i <= 5; i++ {
		state, err = store.RecordFailedAttempt(ctx, "u1", now, policy)
		if err != nil {
			t.Fatal(err)
		}
		if state.Attempts != i {
			t.Fatalf("expected attempts %d, got %d", i, state.Attempts)
		}
	}
	if !state.IsLocked(now) || !state.LockedUntil.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("expected lock until %v, got %+v", now.Add(2*time.Hour), state)
	}

	later, err := store.RecordFailedAttempt(ctx, "u1", now.Add(time.Hour), policy)
	if err != nil {
		t.Fatal(err)
	}
	if later.Attempts != 6 || !later.LockedUntil.Equal(*state.LockedUntil) {
		t.Fatalf("expected lock unchanged while in force, got %+v", later)
	}

	expired, err := store.RecordFailedAttempt(ctx, "u1", now.Add(3*time.Hour), policy)
	if err != nil {
		t.Fatal(err)
	}
	if expired.Attempts != 1 || expired.LockedUntil != nil {
		t.Fatalf("expected counter restart after expiry, got %+v", expired)
	}

	if err := store.RecordLoginSuccess(ctx, "u1", now.Add(3*time.Hour)); err != nil {
		t.Fatal(err)
	}
	u, _ := store.GetUserByID(ctx, "u1")
	if u.LoginAttempts != 0 || u.LockedUntil != nil || u.LastLogin == nil || !u.LastLogin.Equal(now.Add(3*time.Hour)) {
		t.Fatalf("expected cleared state with last login, got %+v", u)
	}

	if _, err := store.RecordFailedAttempt(ctx, "ghost", now, policy); !errors.Is(err, caseguard.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
	if err := store.RecordLoginSuccess(ctx, "ghost", now); !errors.Is(err, caseguard.ErrUserNotFound) {
		t.Fatalf("expected ErrUserNotFound, got %v", err)
	}
}

func TestConcurrentFailedAttemptsLockExactlyAtThreshold(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	now := time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)
	if err := store.CreateUser(ctx, testUser("u1", "u1@example.com", permission.RoleAssistente, now)); err != nil {
		t.Fatal(err)
	}
	policy := caseguard.LockoutConfig{MaxAttempts: 5, Duration: 2 * time.Hour}

	const workers = 20
	states := make([]caseguard.LockState, workers)
	errs := make([]error, workers)
	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			states[i], errs[i] = store.RecordFailedAttempt(ctx, "u1", now, policy)
		}(i)
	}
	wg.Wait()

	attempts := make([]int, 0, workers)
	for i, st := range states {
		if errs[i] != nil {
			t.Fatalf("worker %d: %v", i, errs[i])
		}
		attempts = append(attempts, st.Attempts)
		locked := st.IsLocked(now)
		if st.Attempts < 5 && locked {
			t.Fatalf("locked below threshold at attempt %d", st.Attempts)
		}
		if st.Attempts >= 5 && (!locked || !st.LockedUntil.Equal(now.Add(2*time.Hour))) {
			t.Fatalf("attempt %d: expected lock at threshold, got %+v", st.Attempts, st)
		}
	}

	sort.Ints(attempts)
	for i, a := range attempts {
		if a != i+1 {
			t.Fatalf("lost or duplicated increment: %v", attempts)
		}
	}

	u, _ := store.GetUserByID(ctx, "u1")
	if u.LoginAttempts != workers || !u.LockedUntil.Equal(now.Add(2*time.Hour)) {
		t.Fatalf("unexpected final state: attempts=%d lock=%v", u.LoginAttempts, u.LockedUntil)
	}
}

func TestUnknownRoleDecodesAsUnknown(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	if err := store.CreateUser(ctx, testUser("u1", "u1@example.com", permission.RolePerito, time.Now())); err != nil {
		t.Fatal(err)
	}
	mr.HSet(store.userKey("u1"), fieldRole, "estagiario")

	u, err := store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if u.Role != permission.RoleUnknown {
		t.Fatalf("expected RoleUnknown, got %v", u.Role)
	}
}

func TestMissingPermissionsDecodeToRoleTemplate(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	u := testUser("u1", "u1@example.com", permission.RolePerito, time.Now())
	u.Permissions = permission.Matrix{}
	if err := store.CreateUser(ctx, u); err != nil {
		t.Fatal(err)
	}
	mr.HDel(store.userKey("u1"), fieldPermissions)

	got, err := store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Permissions.Mask() != permission.DeriveFromRole(permission.RolePerito).Mask() {
		t.Fatalf("expected perito template, got %v", got.Permissions.Map())
	}

	// An explicitly stored empty matrix is kept as is.
	if err := store.CreateUser(ctx, testUser("u2", "u2@example.com", permission.RolePerito, time.Now())); err != nil {
		t.Fatal(err)
	}
	mr.HSet(store.userKey("u2"), fieldPermissions, "0")
	got, err = store.GetUserByID(ctx, "u2")
	if err != nil {
		t.Fatal(err)
	}
	if got.Permissions.Mask().Raw() != 0 {
		t.Fatalf("expected empty matrix kept, got %v", got.Permissions.Map())
	}
}

func TestStoreUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.GetUserByID(context.Background(), "u1")
	if !errors.Is(err, caseguard.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable, got %v", err)
	}
	if err := store.Ping(context.Background()); !errors.Is(err, caseguard.ErrStoreUnavailable) {
		t.Fatalf("expected ErrStoreUnavailable from Ping, got %v", err)
	}
}
