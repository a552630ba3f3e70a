package auth

import (
	"context"
	"errors"
	"testing"
	"time"
)

func newTestService(t *testing.T) (*Service, *MemoryStore) {
	t.Helper()
	store := NewMemoryStore()
	svc := NewService(store, "test-secret", time.Hour)

	hash, err := HashPassword("admin123")
	if err != nil {
		t.Fatalf("hash password: %v", err)
	}
	err = store.Create(context.Background(), &User{
		Username:     "admin",
		PasswordHash: hash,
		FullName:     "Sarah Chen",
		Role:         RoleAdmin,
		Permissions:  []string{"read", "write", "admin"},
	})
	if err != nil {
		t.Fatalf("create user: %v", err)
	}
	return svc, store
}

func TestLoginSuccess(t *testing.T) {
	svc, _ := newTestService(t)

	token, user, err := svc.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("expected login to succeed, got %v", err)
	}
	if token == "" {
		t.Fatal("expected non-empty token")
	}
	if user.Username != "admin" || user.Role != RoleAdmin {
		t.Fatalf("unexpected user: %+v", user)
	}
}

func TestLoginDoesNotWriteReturnedUser(t *testing.T) {
	svc, store := newTestService(t)

	_, user, err := svc.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	// The last-login write happens on a background goroutine against its
	// own copy. Wait for it to land in the store, then check the user we
	// were handed was never touched.
	deadline := time.Now().Add(2 * time.Second)
	for {
		stored, err := store.GetByUsername(context.Background(), "admin")
		if err != nil {
			t.Fatalf("get: %v", err)
		}
		if stored.LastLogin != nil {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("last login was never recorded")
		}
		time.Sleep(5 * time.Millisecond)
	}
	if user.LastLogin != nil {
		t.Error("returned user was mutated by the last-login recorder")
	}
}

func TestLoginWrongPassword(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "admin", "wrong")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService(t)

	_, _, err := svc.Login(context.Background(), "nobody", "admin123")
	if !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestVerifyRoundTrip(t *testing.T) {
	svc, _ := newTestService(t)

	token, user, err := svc.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	claims, err := svc.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.Subject != user.ID {
		t.Errorf("expected subject %s, got %s", user.ID, claims.Subject)
	}
	if claims.Username != "admin" || claims.Role != RoleAdmin {
		t.Errorf("unexpected claims: %+v", claims)
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	svc, _ := newTestService(t)

	if _, err := svc.Verify("not.a.token"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken, got %v", err)
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	store := NewMemoryStore()
	svc := NewService(store, "test-secret", -time.Minute)

	hash, _ := HashPassword("pw")
	store.Create(context.Background(), &User{Username: "u", PasswordHash: hash, Role: RoleAnalyst})

	token, _, err := svc.Login(context.Background(), "u", "pw")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if _, err := svc.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for expired token, got %v", err)
	}
}

func TestVerifyWrongSecret(t *testing.T) {
	svc, store := newTestService(t)

	token, _, err := svc.Login(context.Background(), "admin", "admin123")
	if err != nil {
		t.Fatalf("login: %v", err)
	}

	other := NewService(store, "different-secret", time.Hour)
	if _, err := other.Verify(token); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken with wrong secret, got %v", err)
	}
}

func TestCurrentUser(t *testing.T) {
	svc, _ := newTestService(t)

	token, user, _ := svc.Login(context.Background(), "admin", "admin123")
	claims, _ := svc.Verify(token)

	got, err := svc.CurrentUser(context.Background(), claims)
	if err != nil {
		t.Fatalf("current user: %v", err)
	}
	if got.ID != user.ID {
		t.Errorf("expected user %s, got %s", user.ID, got.ID)
	}
}

func TestMemoryStoreReturnsCopies(t *testing.T) {
	_, store := newTestService(t)

	u1, err := store.GetByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	u1.FullName = "Mutated"
	u1.Permissions[0] = "mutated"

	u2, _ := store.GetByUsername(context.Background(), "admin")
	if u2.FullName != "Sarah Chen" {
		t.Error("store copy was mutated through a returned pointer")
	}
	if u2.Permissions[0] != "read" {
		t.Error("permissions slice shared with caller")
	}
}

func TestMemoryStoreRejectsDuplicateUsername(t *testing.T) {
	_, store := newTestService(t)

	err := store.Create(context.Background(), &User{
		Username:     "ADMIN",
		PasswordHash: "x",
		Role:         RoleAnalyst,
	})
	if !errors.Is(err, ErrUserExists) {
		t.Fatalf("expected ErrUserExists, got %v", err)
	}

	original, err := store.GetByUsername(context.Background(), "admin")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if original.Role != RoleAdmin {
		t.Error("duplicate create repointed the username index")
	}
}

func TestMemoryStoreUsernameLookupIsCaseInsensitive(t *testing.T) {
	_, store := newTestService(t)

	if _, err := store.GetByUsername(context.Background(), "ADMIN"); err != nil {
		t.Fatalf("expected case-insensitive lookup, got %v", err)
	}
}
