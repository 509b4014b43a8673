package auth

import (
	"errors"
	"strings"
	"testing"
	"time"
)

func TestManager_SignVerify_RoundTrip(t *testing.T) {
	m := NewManager("test-secret", time.Hour)

	tok, err := m.Sign(42, "alice", "admin")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	claims, err := m.Verify(tok)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if claims.UserID != 42 || claims.Username != "alice" || claims.Role != "admin" {
		t.Fatalf("claims = %+v", claims)
	}
	if !claims.IsAdmin() {
		t.Fatalf("admin role must satisfy IsAdmin")
	}
}

func TestManager_Verify_Tampered(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	tok, err := m.Sign(1, "alice", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// Flip a character in the signature segment.
	parts := strings.Split(tok, ".")
	if len(parts) != 3 {
		t.Fatalf("token segments = %d", len(parts))
	}
	sig := []byte(parts[2])
	if sig[0] == 'A' {
		sig[0] = 'B'
	} else {
		sig[0] = 'A'
	}
	tampered := parts[0] + "." + parts[1] + "." + string(sig)

	if _, err := m.Verify(tampered); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("tampered token: got %v; want ErrInvalidToken", err)
	}
}

func TestManager_Verify_WrongSecret(t *testing.T) {
	issuer := NewManager("secret-a", time.Hour)
	verifier := NewManager("secret-b", time.Hour)

	tok, err := issuer.Sign(1, "alice", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := verifier.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("wrong secret: got %v; want ErrInvalidToken", err)
	}
}

func TestManager_Verify_Expired(t *testing.T) {
	m := NewManager("test-secret", -time.Minute)
	tok, err := m.Sign(1, "alice", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expired token: got %v; want ErrInvalidToken", err)
	}
}

func TestManager_Verify_Garbage(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	for _, tok := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := m.Verify(tok); !errors.Is(err, ErrInvalidToken) {
			t.Fatalf("Verify(%q): got %v; want ErrInvalidToken", tok, err)
		}
	}
}

func TestManager_VerifyIdentity(t *testing.T) {
	m := NewManager("test-secret", time.Hour)
	tok, err := m.Sign(7, "bob", "user")
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, role, err := m.VerifyIdentity(tok)
	if err != nil || id != 7 || role != "user" {
		t.Fatalf("identity = %d, %q, %v", id, role, err)
	}
	if _, _, err := m.VerifyIdentity("bogus"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("bogus identity: got %v", err)
	}
}
