package caseguard

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/MrEthical07/caseguard/permission"
)

func TestAuthenticateSuccessResetsAttempts(t *testing.T) {
	store := newMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, store, clock)
	seedUser(t, engine, store, "u1", "perito@example.com", "secret-pass", permission.RolePerito)

	if _, err := engine.Authenticate(context.Background(), "perito@example.com", "wrong-pass"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}

	user, err := engine.Authenticate(context.Background(), " Perito@Example.com ", "secret-pass")
	if err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	if user.LoginAttempts != 0 || user.LastLogin == nil {
		t.Fatalf("expected reset attempts and LastLogin, got %+v", user)
	}

	stored, _ := store.GetUserByID(context.Background(), "u1")
	if stored.LoginAttempts != 0 {
		t.Fatalf("expected stored attempts 0, got %d", stored.LoginAttempts)
	}
	if engine.Metrics().Value(MetricLoginSuccess) != 1 || engine.Metrics().Value(MetricLoginFailure) != 1 {
		t.Fatal("expected one success and one failure counted")
	}
}

func TestAuthenticateRehashesWeakerHash(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)
	seedUser(t, engine, store, "u1", "perito@example.com", "secret-pass", permission.RolePerito)
	weak, _ := store.GetUserByID(context.Background(), "u1")

	cfg := testConfig()
	cfg.Password.Time = 2
	stronger := newTestEngineWithConfig(t, store, cfg)

	if _, err := stronger.Authenticate(context.Background(), "perito@example.com", "secret-pass"); err != nil {
		t.Fatalf("Authenticate failed: %v", err)
	}
	stored, _ := store.GetUserByID(context.Background(), "u1")
	if stored.PasswordHash == weak.PasswordHash {
		t.Fatal("expected hash upgraded after login")
	}
	if up, _ := stronger.passwordHash.NeedsUpgrade(stored.PasswordHash); up {
		t.Fatal("expected upgraded hash to match current parameters")
	}
	if _, err := stronger.Authenticate(context.Background(), "perito@example.com", "secret-pass"); err != nil {
		t.Fatalf("login with upgraded hash failed: %v", err)
	}
}

func TestAuthenticateUnknownEmail(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)

	if _, err := engine.Authenticate(context.Background(), "ghost@example.com", "whatever"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestAuthenticateLocksOnFifthFailure(t *testing.T) {
	store := newMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, store, clock)
	seedUser(t, engine, store, "u1", "a@example.com", "secret-pass", permission.RoleAssistente)

	for i := 1; i <= 4; i++ {
		if _, err := engine.Authenticate(context.Background(), "a@example.com", "bad-pass"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i, err)
		}
	}
	if _, err := engine.Authenticate(context.Background(), "a@example.com", "bad-pass"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("fifth attempt: expected ErrAccountLocked, got %v", err)
	}

	// Correct password is refused while locked, before any password check.
	if _, err := engine.Authenticate(context.Background(), "a@example.com", "secret-pass"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked with correct password, got %v", err)
	}
	stored, _ := store.GetUserByID(context.Background(), "u1")
	if stored.LoginAttempts != 5 {
		t.Fatalf("expected attempts to stay at 5, got %d", stored.LoginAttempts)
	}

	clock.Advance(2*time.Hour + time.Minute)
	if _, err := engine.Authenticate(context.Background(), "a@example.com", "secret-pass"); err != nil {
		t.Fatalf("expected login after lock expiry, got %v", err)
	}
	if engine.Metrics().Value(MetricAccountLocked) != 1 {
		t.Fatal("expected one lock counted")
	}
}

func TestAuthenticateLockAppliesToAdmins(t *testing.T) {
	store := newMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, store, clock)
	seedUser(t, engine, store, "admin", "admin@example.com", "secret-pass", permission.RoleAdmin)

	for i := 0; i < 5; i++ {
		_, _ = engine.Authenticate(context.Background(), "admin@example.com", "bad-pass")
	}
	if _, err := engine.Authenticate(context.Background(), "admin@example.com", "secret-pass"); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected admin login to be locked, got %v", err)
	}
}

func TestAuthenticateInactiveAccount(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)
	seedUser(t, engine, store, "u1", "a@example.com", "secret-pass", permission.RoleAdmin)
	_, _ = store.UpdateStatus(context.Background(), "u1", false)

	_, err := engine.Authenticate(context.Background(), "a@example.com", "secret-pass")
	if !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected ErrAccountDisabled, got %v", err)
	}
	if !IsForbidden(err) {
		t.Fatal("expected disabled account to be forbidden-class")
	}
}

func TestAuthorizeResourceAdminBypass(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)

	future := time.Now().Add(time.Hour)
	admin := &User{ID: "a", Role: permission.RoleAdmin, IsActive: false, LockedUntil: &future}
	for _, res := range permission.Resources() {
		for _, act := range permission.Actions() {
			if err := engine.AuthorizeResource(admin, res, act); err != nil {
				t.Fatalf("expected admin bypass on %s:%s, got %v", res, act, err)
			}
		}
	}
}

func TestAuthorizeResourceOrder(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)

	if err := engine.AuthorizeResource(nil, permission.Cases, permission.Read); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}

	future := time.Now().Add(time.Hour)
	inactiveLocked := &User{ID: "p", Role: permission.RolePerito, Permissions: permission.DeriveFromRole(permission.RolePerito), LockedUntil: &future}
	if err := engine.AuthorizeResource(inactiveLocked, permission.Cases, permission.Read); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("expected inactive check before lock check, got %v", err)
	}

	inactiveLocked.IsActive = true
	if err := engine.AuthorizeResource(inactiveLocked, permission.Cases, permission.Read); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("expected ErrAccountLocked, got %v", err)
	}
}

func TestAuthorizeResourceMatrixLookup(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)
	actor := &User{ID: "s", Role: permission.RoleAssistente, IsActive: true, Permissions: permission.DeriveFromRole(permission.RoleAssistente)}

	if err := engine.AuthorizeResource(actor, permission.Evidences, permission.Write); err != nil {
		t.Fatalf("expected evidences:write allowed, got %v", err)
	}

	err := engine.AuthorizeResource(actor, permission.Cases, permission.Write)
	var permErr *PermissionError
	if !errors.As(err, &permErr) {
		t.Fatalf("expected *PermissionError, got %v", err)
	}
	if permErr.Requirement.String() != "cases:write" || permErr.Role != permission.RoleAssistente {
		t.Fatalf("unexpected hint %q role %s", permErr.Requirement, permErr.Role)
	}
	if !errors.Is(err, ErrForbidden) {
		t.Fatal("expected PermissionError to be forbidden-class")
	}

	if err := engine.AuthorizeResource(actor, permission.Resource(42), permission.Read); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected unknown resource denied, got %v", err)
	}

	if engine.Metrics().Value(MetricAuthzAllowed) != 1 || engine.Metrics().Value(MetricAuthzDenied) != 2 {
		t.Fatalf("unexpected authz counters: %+v", engine.MetricsSnapshot().Counters)
	}
}

func TestCanManageUser(t *testing.T) {
	admin := &User{ID: "a", Role: permission.RoleAdmin}
	otherAdmin := &User{ID: "b", Role: permission.RoleAdmin}
	perito := &User{ID: "p", Role: permission.RolePerito}
	assistente := &User{ID: "s", Role: permission.RoleAssistente}

	if err := CanManageUser(admin, otherAdmin); err != nil {
		t.Fatalf("expected admin to manage admin, got %v", err)
	}
	if err := CanManageUser(admin, assistente); err != nil {
		t.Fatalf("expected admin to manage assistente, got %v", err)
	}
	if err := CanManageUser(perito, assistente); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected perito denied, got %v", err)
	}
	if err := CanManageUser(assistente, assistente); !errors.Is(err, ErrForbidden) {
		t.Fatalf("expected assistente denied, got %v", err)
	}
}

func TestPreventSelfDeactivationEveryRole(t *testing.T) {
	for _, role := range permission.Roles() {
		actor := &User{ID: "same", Role: role}
		if err := PreventSelfDeactivation(actor.ID, "same", false); !errors.Is(err, ErrSelfDeactivation) {
			t.Fatalf("%s: expected ErrSelfDeactivation, got %v", role, err)
		}
		if err := PreventSelfDeactivation(actor.ID, "same", true); err != nil {
			t.Fatalf("%s: expected self activation allowed, got %v", role, err)
		}
		if err := PreventSelfDeactivation(actor.ID, "other", false); err != nil {
			t.Fatalf("%s: expected deactivating another account allowed, got %v", role, err)
		}
	}
}

func TestCanAccessOwnData(t *testing.T) {
	admin := &User{ID: "a", Role: permission.RoleAdmin}
	perito := &User{ID: "p", Role: permission.RolePerito}

	cases := []struct {
		actor  *User
		target string
		want   error
	}{
		{admin, "anyone", nil},
		{perito, "", nil},
		{perito, "p", nil},
		{perito, "a", ErrForbidden},
		{nil, "p", ErrUnauthenticated},
	}
	for i, tc := range cases {
		err := CanAccessOwnData(tc.actor, tc.target)
		if tc.want == nil && err != nil {
			t.Fatalf("case %d: expected allow, got %v", i, err)
		}
		if tc.want != nil && !errors.Is(err, tc.want) {
			t.Fatalf("case %d: expected %v, got %v", i, tc.want, err)
		}
	}
}

func TestResolveUserMissingIsUnauthenticated(t *testing.T) {
	store := newMemoryStore()
	engine := newTestEngine(t, store, nil)

	if _, err := engine.ResolveUser(context.Background(), Identity{UserID: "gone"}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if _, err := engine.ResolveUser(context.Background(), Identity{}); !errors.Is(err, ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated for empty identity, got %v", err)
	}
}

func TestResolveUserEnforcesStanding(t *testing.T) {
	store := newMemoryStore()
	clock := &testClock{now: time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)}
	engine := newTestEngine(t, store, clock)
	seedUser(t, engine, store, "p", "p@example.com", "secret-pass", permission.RolePerito)
	seedUser(t, engine, store, "s", "s@example.com", "secret-pass", permission.RoleAssistente)
	seedUser(t, engine, store, "a", "a@example.com", "secret-pass", permission.RoleAdmin)
	ctx := context.Background()

	if _, err := store.UpdateStatus(ctx, "p", false); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ResolveUser(ctx, Identity{UserID: "p"}); !errors.Is(err, ErrAccountDisabled) {
		t.Fatalf("inactive perito: expected ErrAccountDisabled, got %v", err)
	}

	until := clock.Now().Add(time.Hour)
	store.update("s", func(u *User) { u.LockedUntil = &until })
	if _, err := engine.ResolveUser(ctx, Identity{UserID: "s"}); !errors.Is(err, ErrAccountLocked) {
		t.Fatalf("locked assistente: expected ErrAccountLocked, got %v", err)
	}
	clock.Advance(2 * time.Hour)
	if _, err := engine.ResolveUser(ctx, Identity{UserID: "s"}); err != nil {
		t.Fatalf("expired lock: expected resolve, got %v", err)
	}

	if _, err := store.UpdateStatus(ctx, "a", false); err != nil {
		t.Fatal(err)
	}
	if _, err := engine.ResolveUser(ctx, Identity{UserID: "a"}); err != nil {
		t.Fatalf("inactive admin keeps access until login: %v", err)
	}
}
