package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/barinakhq/shelter-backend/internal/auth"
	"github.com/barinakhq/shelter-backend/internal/domain"
)

func newUserService(t *testing.T) *UserService {
	t.Helper()
	return NewUserService(newTestDB(t), auth.NewManager("test-secret", time.Hour))
}

func TestUser_Register_And_Login(t *testing.T) {
	svc := newUserService(t)

	u, err := svc.Register(context.Background(), "ayse", "hunter22")
	if err != nil {
		t.Fatalf("register: %v", err)
	}
	if u.Role != "user" {
		t.Fatalf("role = %q; want user", u.Role)
	}
	if u.Password == "hunter22" {
		t.Fatalf("password stored in clear")
	}

	res, err := svc.Login(context.Background(), "ayse", "hunter22", "ua", "127.0.0.1")
	if err != nil {
		t.Fatalf("login: %v", err)
	}
	if res.Token == "" || res.User.Username != "ayse" {
		t.Fatalf("login result = %+v", res)
	}

	// A session row was recorded.
	var n int64
	svc.DB.Model(&domain.UserSession{}).Where("user_id = ?", u.ID).Count(&n)
	if n != 1 {
		t.Fatalf("sessions = %d; want 1", n)
	}
}

func TestUser_Register_Validation(t *testing.T) {
	svc := newUserService(t)

	if _, err := svc.Register(context.Background(), "  ", "hunter22"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("blank username: got %v", err)
	}
	if _, err := svc.Register(context.Background(), "bob", "short"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("short password: got %v", err)
	}
}

func TestUser_Register_DuplicateUsername(t *testing.T) {
	svc := newUserService(t)

	if _, err := svc.Register(context.Background(), "ayse", "hunter22"); err != nil {
		t.Fatalf("register: %v", err)
	}
	if _, err := svc.Register(context.Background(), "ayse", "different1"); !errors.Is(err, ErrUsernameTaken) {
		t.Fatalf("expected ErrUsernameTaken, got %v", err)
	}
}

func TestUser_Login_BadCredentials(t *testing.T) {
	svc := newUserService(t)
	if _, err := svc.Register(context.Background(), "ayse", "hunter22"); err != nil {
		t.Fatalf("register: %v", err)
	}

	// Unknown user and wrong password look identical to the caller.
	if _, err := svc.Login(context.Background(), "nobody", "hunter22", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("unknown user: got %v", err)
	}
	if _, err := svc.Login(context.Background(), "ayse", "wrongpass", "", ""); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("wrong password: got %v", err)
	}
}

func TestUser_Logout_ExpiresSessions(t *testing.T) {
	svc := newUserService(t)
	u, _ := svc.Register(context.Background(), "ayse", "hunter22")
	if _, err := svc.Login(context.Background(), "ayse", "hunter22", "ua", "ip"); err != nil {
		t.Fatalf("login: %v", err)
	}

	if err := svc.Logout(context.Background(), u.ID); err != nil {
		t.Fatalf("logout: %v", err)
	}

	var live int64
	svc.DB.Model(&domain.UserSession{}).
		Where("user_id = ? AND (expires_at IS NULL OR expires_at > ?)", u.ID, time.Now().UTC()).
		Count(&live)
	if live != 0 {
		t.Fatalf("live sessions after logout = %d; want 0", live)
	}
}

func TestUser_Update_Partial(t *testing.T) {
	svc := newUserService(t)
	u, _ := svc.Register(context.Background(), "ayse", "hunter22")

	// Promote without touching username or password.
	got, err := svc.Update(context.Background(), u.ID, "", "", "admin")
	if err != nil {
		t.Fatalf("update: %v", err)
	}
	if got.Role != "admin" || got.Username != "ayse" {
		t.Fatalf("updated = %+v", got)
	}

	// The original password still works after the role change.
	if _, err := svc.Login(context.Background(), "ayse", "hunter22", "", ""); err != nil {
		t.Fatalf("login after update: %v", err)
	}

	if _, err := svc.Update(context.Background(), u.ID, "", "", "superuser"); !errors.Is(err, ErrInvalidCredentials) {
		t.Fatalf("invalid role: got %v", err)
	}
	if _, err := svc.Update(context.Background(), 424242, "x", "", ""); !errors.Is(err, ErrUserNotFound) {
		t.Fatalf("missing user: got %v", err)
	}
}

func TestUser_Delete_CascadesRequests(t *testing.T) {
	svc := newUserService(t)
	db := svc.DB
	u, _ := svc.Register(context.Background(), "ayse", "hunter22")
	a := seedAnimal(t, db, "Luna")

	adopt := NewAdoptionService(db, nil, nil, nil, nil)
	if _, err := adopt.Create(context.Background(), u.ID, a.ID, ""); err != nil {
		t.Fatalf("create request: %v", err)
	}

	if err := svc.Delete(context.Background(), u.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}
	var n int64
	db.Model(&domain.AdoptionRequest{}).Count(&n)
	if n != 0 {
		t.Fatalf("requests after user delete = %d; want 0 (cascade)", n)
	}
}

func TestUser_EnsureAdmin(t *testing.T) {
	svc := newUserService(t)

	if err := svc.EnsureAdmin(context.Background(), "root", "changeme1"); err != nil {
		t.Fatalf("bootstrap: %v", err)
	}
	u, err := svc.Get(context.Background(), 1)
	if err != nil || u.Role != "admin" {
		t.Fatalf("bootstrap admin = %+v, %v", u, err)
	}

	// Idempotent: a second call leaves the account alone.
	if err := svc.EnsureAdmin(context.Background(), "root", "otherpass"); err != nil {
		t.Fatalf("re-bootstrap: %v", err)
	}
	var n int64
	svc.DB.Model(&domain.User{}).Count(&n)
	if n != 1 {
		t.Fatalf("users = %d; want 1", n)
	}

	// Blank config is a no-op.
	if err := svc.EnsureAdmin(context.Background(), "", ""); err != nil {
		t.Fatalf("blank bootstrap: %v", err)
	}
}
