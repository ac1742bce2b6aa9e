package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/Anabol1ks/hotel-booking/internal/domain"
)

func TestTokenManagerRoundTrip(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret")

	token, err := m.Sign(domain.Identity{UserID: "user-1", Role: domain.RoleManager}, time.Hour)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	id, err := m.Verify(token)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.UserID != "user-1" || id.Role != domain.RoleManager {
		t.Fatalf("unexpected identity: %+v", id)
	}
}

func TestTokenManagerVerifyFailures(t *testing.T) {
	t.Parallel()

	m := NewTokenManager("test-secret")

	t.Run("garbage token", func(t *testing.T) {
		if _, err := m.Verify("not-a-token"); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("wrong secret", func(t *testing.T) {
		other := NewTokenManager("other-secret")
		token, err := other.Sign(domain.Identity{UserID: "user-1", Role: domain.RoleClient}, time.Hour)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := m.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("expired token", func(t *testing.T) {
		token, err := m.Sign(domain.Identity{UserID: "user-1", Role: domain.RoleClient}, -time.Minute)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		if _, err := m.Verify(token); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("expected ErrUnauthenticated, got %v", err)
		}
	})

	t.Run("unknown role falls back to client", func(t *testing.T) {
		token, err := m.Sign(domain.Identity{UserID: "user-1", Role: domain.Role("superuser")}, time.Hour)
		if err != nil {
			t.Fatalf("sign: %v", err)
		}
		id, err := m.Verify(token)
		if err != nil {
			t.Fatalf("verify: %v", err)
		}
		if id.Role != domain.RoleClient {
			t.Fatalf("expected client role, got %s", id.Role)
		}
	})
}
