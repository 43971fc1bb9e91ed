package auth

import (
	"strings"
	"testing"
	"time"

	"github.com/angelmondragon/velocity-backend/pkg/config"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

func mint(t *testing.T, secret string, method jwt.SigningMethod, claims AccessTokenClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(method, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}

func validClaims(userID uuid.UUID, issuer string) AccessTokenClaims {
	now := time.Now()
	return AccessTokenClaims{
		UserID: userID,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(15 * time.Minute)),
		},
	}
}

func TestParseAccessToken(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "velocity"}
	userID := uuid.New()

	claims, err := ParseAccessToken(cfg, mint(t, cfg.Secret, jwt.SigningMethodHS256, validClaims(userID, "velocity")))
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims.UserID != userID {
		t.Fatalf("expected user_id %s, got %s", userID, claims.UserID)
	}
	if claims.Issuer != cfg.Issuer {
		t.Fatalf("issuer mismatch %q", claims.Issuer)
	}
}

func TestParseAccessTokenRejects(t *testing.T) {
	cfg := config.JWTConfig{Secret: "secret", Issuer: "velocity"}
	userID := uuid.New()

	expired := validClaims(userID, "velocity")
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	cases := map[string]string{
		"wrong secret":    mint(t, "other", jwt.SigningMethodHS256, validClaims(userID, "velocity")),
		"wrong issuer":    mint(t, cfg.Secret, jwt.SigningMethodHS256, validClaims(userID, "someone-else")),
		"wrong algorithm": mint(t, cfg.Secret, jwt.SigningMethodHS512, validClaims(userID, "velocity")),
		"expired":         mint(t, cfg.Secret, jwt.SigningMethodHS256, expired),
		"no user":         mint(t, cfg.Secret, jwt.SigningMethodHS256, validClaims(uuid.Nil, "velocity")),
		"garbage":         "not-a-token",
	}
	for name, token := range cases {
		if _, err := ParseAccessToken(cfg, token); err == nil {
			t.Fatalf("%s: expected error", name)
		}
	}

	if _, err := ParseAccessToken(config.JWTConfig{}, "x"); err == nil {
		t.Fatalf("expected error without secret")
	}
}

func TestSessionIDs(t *testing.T) {
	first, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}
	second, err := NewSessionID()
	if err != nil {
		t.Fatalf("new session id: %v", err)
	}
	if first == second {
		t.Fatalf("session ids should be random")
	}
	if _, ok := NormalizeSessionID(first); !ok {
		t.Fatalf("generated id %q should be accepted", first)
	}

	if got, ok := NormalizeSessionID("  abc-123_x.y "); !ok || got != "abc-123_x.y" {
		t.Fatalf("unexpected normalize result %q %v", got, ok)
	}
	for _, raw := range []string{"", "   ", "has space", "semi;colon", strings.Repeat("a", 129)} {
		if _, ok := NormalizeSessionID(raw); ok {
			t.Fatalf("expected %q to be rejected", raw)
		}
	}
}
