package identity

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/k1maruuu/eyes/internal/platform/auth"
)

type mockUsers struct {
	users map[uuid.UUID]*User
}

func newMockUsers() *mockUsers {
	return &mockUsers{users: make(map[uuid.UUID]*User)}
}

func (m *mockUsers) Create(_ context.Context, u *User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	cp := *u
	cp.Email = strings.ToLower(cp.Email)
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUsers) GetByID(_ context.Context, id uuid.UUID) (*User, error) {
	u, ok := m.users[id]
	if !ok {
		return nil, ErrUserNotFound
	}
	cp := *u
	return &cp, nil
}

func (m *mockUsers) GetByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range m.users {
		if u.Email == strings.ToLower(email) {
			cp := *u
			return &cp, nil
		}
	}
	return nil, ErrUserNotFound
}

func (m *mockUsers) Update(_ context.Context, u *User) error {
	if _, ok := m.users[u.ID]; !ok {
		return ErrUserNotFound
	}
	cp := *u
	m.users[u.ID] = &cp
	return nil
}

func (m *mockUsers) List(_ context.Context, _, _ int) ([]*User, int, error) {
	var out []*User
	for _, u := range m.users {
		cp := *u
		out = append(out, &cp)
	}
	return out, len(out), nil
}

func newTestService(maxFails int) (*Service, *mockUsers) {
	users := newMockUsers()
	issuer := auth.NewTokenIssuer("test-secret", time.Hour)
	return NewService(users, issuer, maxFails), users
}

func TestRegisterAndLogin(t *testing.T) {
	svc, _ := newTestService(5)
	ctx := context.Background()

	u := &User{FullName: "Doctor Aibolit", Email: "Aibolit@clinic.test", Role: auth.RoleSurgeon}
	if err := svc.Register(ctx, u, "letmein-please"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.HashedPassword == "letmein-please" {
		t.Fatal("password must be hashed")
	}

	token, got, err := svc.Login(ctx, "aibolit@clinic.test", "letmein-please")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if token == "" {
		t.Fatal("expected a token")
	}
	if got.LastLoginAt == nil {
		t.Fatal("last_login_at should be set")
	}
}

func TestRegisterValidation(t *testing.T) {
	svc, _ := newTestService(5)
	ctx := context.Background()

	if err := svc.Register(ctx, &User{FullName: "X", Email: "x@y.z"}, "short"); err == nil {
		t.Fatal("short password must be rejected")
	}
	if err := svc.Register(ctx, &User{FullName: "X", Email: "x@y.z", Role: "janitor"}, "longenough"); err == nil {
		t.Fatal("unknown role must be rejected")
	}
	u := &User{FullName: "X", Email: "x@y.z"}
	if err := svc.Register(ctx, u, "longenough"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != auth.RoleFeldsher {
		t.Fatalf("default role should be feldsher, got %s", u.Role)
	}
}

func TestLoginLockout(t *testing.T) {
	svc, users := newTestService(3)
	ctx := context.Background()

	u := &User{FullName: "Doctor", Email: "doc@clinic.test", Role: auth.RoleFeldsher}
	if err := svc.Register(ctx, u, "correct-horse"); err != nil {
		t.Fatalf("register: %v", err)
	}

	for i := 0; i < 2; i++ {
		if _, _, err := svc.Login(ctx, "doc@clinic.test", "wrong"); !errors.Is(err, ErrInvalidCredentials) {
			t.Fatalf("attempt %d: want ErrInvalidCredentials, got %v", i, err)
		}
	}
	// Third failure trips the lock.
	if _, _, err := svc.Login(ctx, "doc@clinic.test", "wrong"); !errors.Is(err, ErrUserLocked) {
		t.Fatalf("want ErrUserLocked, got %v", err)
	}
	// Even the correct password is refused while locked.
	if _, _, err := svc.Login(ctx, "doc@clinic.test", "correct-horse"); !errors.Is(err, ErrUserLocked) {
		t.Fatalf("want ErrUserLocked after lock, got %v", err)
	}

	unlocked, err := svc.Unlock(ctx, u.ID)
	if err != nil {
		t.Fatalf("unlock: %v", err)
	}
	if !unlocked.IsActive || unlocked.LoginAttempts != 0 {
		t.Fatalf("unlock did not reset the account: %+v", unlocked)
	}
	if _, _, err := svc.Login(ctx, "doc@clinic.test", "correct-horse"); err != nil {
		t.Fatalf("login after unlock: %v", err)
	}

	stored, _ := users.GetByID(ctx, u.ID)
	if stored.LoginAttempts != 0 {
		t.Fatalf("successful login must reset attempts, got %d", stored.LoginAttempts)
	}
}

func TestLoginUnknownUser(t *testing.T) {
	svc, _ := newTestService(3)
	if _, _, err := svc.Login(context.Background(), "ghost@clinic.test", "x"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("want ErrInvalidCredentials, got %v", err)
	}
}
