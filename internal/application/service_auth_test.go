package application_test

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/shopfront/storefront/internal/application"
	"github.com/shopfront/storefront/internal/application/apptest"
	"github.com/shopfront/storefront/internal/domain"
	"github.com/shopfront/storefront/internal/ports"
)

func register(t *testing.T, f *apptest.Fixture, name, email string) application.AuthResponse {
	t.Helper()
	res, err := f.Service.Register(context.Background(), application.RegisterRequest{
		Name:     name,
		Email:    email,
		Password: "SecurePass123",
	}, "")
	if err != nil {
		t.Fatalf("register %s failed: %v", email, err)
	}
	return res
}

func claimsFor(t *testing.T, f *apptest.Fixture, token string) ports.AuthClaims {
	t.Helper()
	claims, err := f.Service.ValidateToken(context.Background(), token)
	if err != nil {
		t.Fatalf("validate token: %v", err)
	}
	return claims
}

func TestRegisterLoginMeLogout(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	ctx := context.Background()

	registered, err := f.Service.Register(ctx, application.RegisterRequest{
		Name:     "Jane Doe",
		Email:    " Jane@Example.com ",
		Password: "SecurePass123",
	}, "idem-1")
	if err != nil {
		t.Fatalf("register failed: %v", err)
	}
	if registered.User.UserID == uuid.Nil || registered.Token == "" {
		t.Fatalf("register should return user and token, got %+v", registered)
	}
	if registered.User.Email != "jane@example.com" || registered.User.Role != domain.RoleCustomer {
		t.Fatalf("unexpected registered user %+v", registered.User)
	}
	if got := f.Outbox.EventTypes(); len(got) != 1 || got[0] != application.EventTypeUserRegistered {
		t.Fatalf("expected user.registered event, got %v", got)
	}

	loginRes, err := f.Service.Login(ctx, application.LoginRequest{
		Email:     "jane@example.com",
		Password:  "SecurePass123",
		IPAddress: "127.0.0.1",
	})
	if err != nil {
		t.Fatalf("login failed: %v", err)
	}

	claims := claimsFor(t, f, loginRes.Token)
	me, err := f.Service.Me(ctx, claims)
	if err != nil {
		t.Fatalf("me failed: %v", err)
	}
	if me.Name != "Jane Doe" {
		t.Fatalf("unexpected profile %+v", me)
	}

	refreshed, err := f.Service.Refresh(ctx, loginRes.Token)
	if err != nil || refreshed.Token == "" {
		t.Fatalf("refresh failed: %v", err)
	}

	if err := f.Service.Logout(ctx, claims); err != nil {
		t.Fatalf("logout failed: %v", err)
	}
	if _, err := f.Service.ValidateToken(ctx, loginRes.Token); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected revoked session after logout, got %v", err)
	}
	if _, err := f.Service.Refresh(ctx, refreshed.Token); !errors.Is(err, domain.ErrSessionRevoked) {
		t.Fatalf("expected refreshed token to die with its session, got %v", err)
	}
}

func TestRegisterValidation(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		req  application.RegisterRequest
	}{
		{name: "missing name", req: application.RegisterRequest{Email: "a@example.com", Password: "SecurePass123"}},
		{name: "bad email", req: application.RegisterRequest{Name: "A", Email: "nope", Password: "SecurePass123"}},
		{name: "weak password", req: application.RegisterRequest{Name: "A", Email: "a@example.com", Password: "short"}},
		{name: "password without digit", req: application.RegisterRequest{Name: "A", Email: "a@example.com", Password: "onlyletters"}},
	}
	for _, tc := range cases {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()
			f := apptest.NewFixture()
			if _, err := f.Service.Register(context.Background(), tc.req, ""); !errors.Is(err, domain.ErrInvalidInput) {
				t.Fatalf("expected ErrInvalidInput, got %v", err)
			}
		})
	}
}

func TestPaddedEmailIsTrimmedBeforeValidation(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	res := register(t, f, "Jane", "\t  Jane@Example.COM  ")
	if res.User.Email != "jane@example.com" {
		t.Fatalf("expected normalized email, got %q", res.User.Email)
	}
	if _, err := f.Service.Login(context.Background(), application.LoginRequest{
		Email:    "  JANE@example.com ",
		Password: "SecurePass123",
	}); err != nil {
		t.Fatalf("login with padded email: %v", err)
	}
	_, err := f.Service.Register(context.Background(), application.RegisterRequest{
		Name:     "Blank",
		Email:    "   ",
		Password: "SecurePass123",
	}, "")
	if !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for blank email, got %v", err)
	}
}

func TestRegisterDuplicateEmailConflicts(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	register(t, f, "Jane", "jane@example.com")
	_, err := f.Service.Register(context.Background(), application.RegisterRequest{
		Name:     "Other Jane",
		Email:    "JANE@example.com",
		Password: "SecurePass123",
	}, "")
	if !errors.Is(err, domain.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}
}

func TestRegisterIdempotentReplay(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	ctx := context.Background()
	req := application.RegisterRequest{Name: "Jane", Email: "jane@example.com", Password: "SecurePass123"}

	first, err := f.Service.Register(ctx, req, "key-1")
	if err != nil {
		t.Fatalf("first register failed: %v", err)
	}
	second, err := f.Service.Register(ctx, req, "key-1")
	if err != nil {
		t.Fatalf("replayed register failed: %v", err)
	}
	if first.User.UserID != second.User.UserID {
		t.Fatalf("replay created a different user")
	}
	if first.SessionID == second.SessionID {
		t.Fatalf("replay should issue a fresh session")
	}

	req.Name = "Someone Else"
	if _, err := f.Service.Register(ctx, req, "key-1"); !errors.Is(err, domain.ErrIdempotencyConflict) {
		t.Fatalf("expected ErrIdempotencyConflict for a different body, got %v", err)
	}
}

func TestRegisterAdminEmailGetsAdminRole(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	res := register(t, f, "Admin", "Admin@Example.com")
	if res.User.Role != domain.RoleAdmin || !res.User.IsAdmin {
		t.Fatalf("expected admin role, got %+v", res.User)
	}
}

func TestLoginLockoutAfterThreshold(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	ctx := context.Background()
	register(t, f, "Jane", "jane@example.com")

	bad := application.LoginRequest{Email: "jane@example.com", Password: "WrongPass999"}
	for i := 0; i < 2; i++ {
		if _, err := f.Service.Login(ctx, bad); !errors.Is(err, domain.ErrInvalidCredentials) {
			t.Fatalf("attempt %d: expected ErrInvalidCredentials, got %v", i+1, err)
		}
	}
	if _, err := f.Service.Login(ctx, bad); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout on threshold, got %v", err)
	}
	good := application.LoginRequest{Email: "jane@example.com", Password: "SecurePass123"}
	if _, err := f.Service.Login(ctx, good); !errors.Is(err, domain.ErrAccountLocked) {
		t.Fatalf("expected lockout to hold for correct password, got %v", err)
	}
}

func TestLoginUnknownEmailIsInvalidCredentials(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	_, err := f.Service.Login(context.Background(), application.LoginRequest{Email: "ghost@example.com", Password: "SecurePass123"})
	if !errors.Is(err, domain.ErrInvalidCredentials) {
		t.Fatalf("expected ErrInvalidCredentials, got %v", err)
	}
}

func TestUpdateMeChangesNameAndPassword(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	ctx := context.Background()
	res := register(t, f, "Jane", "jane@example.com")
	claims := claimsFor(t, f, res.Token)

	name := "Jane Q. Doe"
	password := "NewSecret456"
	updated, err := f.Service.UpdateMe(ctx, claims, application.UpdateProfileRequest{Name: &name, Password: &password})
	if err != nil {
		t.Fatalf("update me failed: %v", err)
	}
	if updated.Name != name {
		t.Fatalf("expected name %q, got %q", name, updated.Name)
	}
	if _, err := f.Service.Login(ctx, application.LoginRequest{Email: "jane@example.com", Password: password}); err != nil {
		t.Fatalf("login with new password failed: %v", err)
	}

	if _, err := f.Service.UpdateMe(ctx, claims, application.UpdateProfileRequest{}); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected empty update to be rejected, got %v", err)
	}
}

func TestValidateTokenRejectsUnknownToken(t *testing.T) {
	t.Parallel()

	f := apptest.NewFixture()
	if _, err := f.Service.ValidateToken(context.Background(), "garbage"); !errors.Is(err, domain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
}
