package identity

import (
	"context"
	"errors"
	"testing"
)

func newTestService(t *testing.T) (*Service, *User) {
	t.Helper()
	svc := NewService(NewMemRepo())
	u, err := svc.Register(context.Background(), "doctor@mediq.com", "password123", RolePhysician, nil)
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	return svc, u
}

func TestAuthenticate(t *testing.T) {
	svc, registered := newTestService(t)
	ctx := context.Background()

	u, err := svc.Authenticate(ctx, "doctor@mediq.com", "password123")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if u.ID != registered.ID || u.Role != RolePhysician {
		t.Errorf("got user %+v", u)
	}
}

func TestAuthenticateRejects(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "doctor@mediq.com", "nope"},
		{"unknown user", "stranger@mediq.com", "password123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Authenticate(ctx, tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Fatalf("err = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestRegisterValidation(t *testing.T) {
	svc := NewService(NewMemRepo())
	ctx := context.Background()

	if _, err := svc.Register(ctx, "", "password123", RoleNurse, nil); err == nil {
		t.Error("empty username accepted")
	}
	if _, err := svc.Register(ctx, "nurse@mediq.com", "short", RoleNurse, nil); err == nil {
		t.Error("short password accepted")
	}
	if _, err := svc.Register(ctx, "nurse@mediq.com", "password123", "veterinary", nil); err == nil {
		t.Error("unknown role accepted")
	}
	if _, err := svc.Register(ctx, "nurse@mediq.com", "password123", RoleNurse, []string{"p001"}); err == nil {
		t.Error("patient grant on staff role accepted")
	}
}

func TestRegisterStoresGrantList(t *testing.T) {
	svc := NewService(NewMemRepo())
	ctx := context.Background()

	u, err := svc.Register(ctx, "patient@example.com", "patient12345", RolePatient, []string{"p001", "p004"})
	if err != nil {
		t.Fatalf("Register: %v", err)
	}
	if !u.CanAccess("p001") || !u.CanAccess("p004") {
		t.Error("owned patients not accessible")
	}
	if u.CanAccess("p002") {
		t.Error("unowned patient accessible")
	}
	if u.PasswordHash == "patient12345" {
		t.Error("password stored in plaintext")
	}
}

func TestDuplicateUsername(t *testing.T) {
	svc, _ := newTestService(t)
	if _, err := svc.Register(context.Background(), "doctor@mediq.com", "password123", RoleAdmin, nil); err == nil {
		t.Error("duplicate username accepted")
	}
}
