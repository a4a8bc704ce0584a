package token

import (
	"errors"
	"testing"
	"time"
)

func testIssuer() *Issuer {
	return NewIssuer("test-signing-key", "identity-broker", "identity-broker", 30*time.Minute)
}

func TestIssueAccessTokenClaims(t *testing.T) {
	i := testIssuer()
	fixed := time.Now().Truncate(time.Second)
	i.now = func() time.Time { return fixed }

	tokenStr, err := i.IssueAccessToken("id-1", "Alice", "alice@example.com", map[string]string{
		"tenant": "contoso",
		"sub":    "spoofed",
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	claims, err := i.ParseAccessToken(tokenStr)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}

	if claims["sub"] != "id-1" {
		t.Fatalf("expected sub claim id-1, got %v", claims["sub"])
	}
	if claims["name"] != "Alice" {
		t.Fatalf("expected name claim Alice, got %v", claims["name"])
	}
	if claims["email"] != "alice@example.com" {
		t.Fatalf("expected email claim, got %v", claims["email"])
	}
	if claims["tenant"] != "contoso" {
		t.Fatalf("expected extra claim to be carried, got %v", claims["tenant"])
	}

	exp, err := claims.GetExpirationTime()
	if err != nil {
		t.Fatalf("expiration claim: %v", err)
	}
	if !exp.Time.Equal(fixed.Add(AccessTokenTTL)) {
		t.Fatalf("expected expiry %v, got %v", fixed.Add(AccessTokenTTL), exp.Time)
	}

	nbf, err := claims.GetNotBefore()
	if err != nil {
		t.Fatalf("not-before claim: %v", err)
	}
	if !nbf.Time.Equal(fixed.Add(-time.Second)) {
		t.Fatalf("expected not-before backdated one second, got %v", nbf.Time)
	}
}

func TestIssueAccessTokenExtraCannotOverrideStandardClaims(t *testing.T) {
	i := testIssuer()

	tokenStr, err := i.IssueAccessToken("id-1", "Alice", "alice@example.com", map[string]string{
		"email": "mallory@example.com",
	})
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	claims, err := i.ParseAccessToken(tokenStr)
	if err != nil {
		t.Fatalf("parse access token: %v", err)
	}
	if claims["email"] != "alice@example.com" {
		t.Fatalf("expected standard claim to win, got %v", claims["email"])
	}
}

func TestIssueAccessTokenMissingKey(t *testing.T) {
	i := NewIssuer("", "identity-broker", "identity-broker", 30*time.Minute)

	if _, err := i.IssueAccessToken("id-1", "Alice", "alice@example.com", nil); !errors.Is(err, ErrSigningKeyMissing) {
		t.Fatalf("expected ErrSigningKeyMissing, got %v", err)
	}
}

func TestParseAccessTokenRejectsForeignKey(t *testing.T) {
	tokenStr, err := testIssuer().IssueAccessToken("id-1", "Alice", "alice@example.com", nil)
	if err != nil {
		t.Fatalf("issue access token: %v", err)
	}

	other := NewIssuer("completely-different-key", "identity-broker", "identity-broker", 30*time.Minute)
	if _, err := other.ParseAccessToken(tokenStr); err == nil {
		t.Fatal("expected verification to fail under a different key")
	}
}

func TestIssueRefreshToken(t *testing.T) {
	i := testIssuer()
	fixed := time.Now()
	i.now = func() time.Time { return fixed }

	first := i.IssueRefreshToken()
	second := i.IssueRefreshToken()

	if first.Token == "" || second.Token == "" {
		t.Fatal("expected non-empty token strings")
	}
	if first.Token == second.Token {
		t.Fatal("expected every issued refresh token to be unique")
	}
	if !first.ExpiresAt.Equal(fixed.Add(RefreshTokenTTL)) {
		t.Fatalf("expected expiry %v, got %v", fixed.Add(RefreshTokenTTL), first.ExpiresAt)
	}
}

func TestIssueResetToken(t *testing.T) {
	i := testIssuer()

	tokenStr, jti, err := i.IssueResetToken("id-1", "alice@example.com")
	if err != nil {
		t.Fatalf("issue reset token: %v", err)
	}
	if jti == "" {
		t.Fatal("expected a JTI")
	}

	claims, err := i.ParseAccessToken(tokenStr)
	if err != nil {
		t.Fatalf("parse reset token: %v", err)
	}
	if claims["jti"] != jti {
		t.Fatalf("expected jti claim %q, got %v", jti, claims["jti"])
	}
	if claims["sub"] != "id-1" {
		t.Fatalf("expected sub claim, got %v", claims["sub"])
	}
}
