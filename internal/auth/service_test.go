package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestIssueAndValidate(t *testing.T) {
	svc := NewService("test-secret", time.Hour)

	tok, err := svc.IssueToken("2", "worker")
	if err != nil {
		t.Fatalf("IssueToken: %v", err)
	}
	id, role, err := svc.ValidateToken(context.Background(), tok)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if id != "2" || role != "worker" {
		t.Errorf("got (%q, %q), want (2, worker)", id, role)
	}
}

func TestValidateToken_Rejects(t *testing.T) {
	svc := NewService("test-secret", time.Hour)
	good, _ := svc.IssueToken("1", "client")

	expiredSvc := NewService("test-secret", time.Hour)
	expiredSvc.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, _ := expiredSvc.IssueToken("1", "client")

	otherKey, _ := NewService("other-secret", time.Hour).IssueToken("1", "client")

	none := jwt.NewWithClaims(jwt.SigningMethodNone, claims{RegisteredClaims: jwt.RegisteredClaims{Subject: "1"}})
	unsigned, _ := none.SignedString(jwt.UnsafeAllowNoneSignatureType)

	cases := map[string]string{
		"garbage":      "not-a-token",
		"expired":      expired,
		"wrong secret": otherKey,
		"alg none":     unsigned,
		"truncated":    good[:len(good)-4],
	}
	for name, tok := range cases {
		t.Run(name, func(t *testing.T) {
			if _, _, err := svc.ValidateToken(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
				t.Errorf("got %v, want ErrInvalidToken", err)
			}
		})
	}
}

func TestNewService_Defaults(t *testing.T) {
	svc := NewService("", 0)
	if string(svc.secret) != DefaultSecret {
		t.Errorf("secret: got %q", svc.secret)
	}
	if svc.ttl != 24*time.Hour {
		t.Errorf("ttl: got %v", svc.ttl)
	}
}
