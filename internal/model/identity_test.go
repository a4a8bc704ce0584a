package model

import (
	"testing"
	"time"
)

func TestIdentityKind(t *testing.T) {
	tests := []struct {
		name     string
		identity Identity
		want     Kind
	}{
		{
			name:     "local only",
			identity: Identity{Verifier: "hash"},
			want:     KindLocalOnly,
		},
		{
			name:     "federated only",
			identity: Identity{SubjectID: "sub", IssuerID: "iss"},
			want:     KindFederatedOnly,
		},
		{
			name:     "linked",
			identity: Identity{Verifier: "hash", SubjectID: "sub", IssuerID: "iss"},
			want:     KindLinked,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.identity.Kind(); got != tt.want {
				t.Fatalf("Kind() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestValidateRejectsUnauthenticatable(t *testing.T) {
	identity := Identity{ID: "id-1", Email: "a@example.com"}
	if err := identity.Validate(); err != ErrNoAuthenticator {
		t.Fatalf("Validate() = %v, want ErrNoAuthenticator", err)
	}

	identity.Verifier = "hash"
	if err := identity.Validate(); err != nil {
		t.Fatalf("Validate() = %v", err)
	}
}

func TestRefreshTokenLiveBoundary(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

	expiringNow := RefreshToken{Token: "a", ExpiresAt: now}
	if expiringNow.Live(now) {
		t.Fatal("a token expiring exactly now must be expired")
	}

	future := RefreshToken{Token: "b", ExpiresAt: now.Add(time.Nanosecond)}
	if !future.Live(now) {
		t.Fatal("a token expiring after now must be live")
	}
}

func TestPruneExpiredTokens(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	identity := Identity{
		Verifier: "hash",
		RefreshTokens: []RefreshToken{
			{Token: "expired", ExpiresAt: now.Add(-time.Minute)},
			{Token: "boundary", ExpiresAt: now},
			{Token: "live", ExpiresAt: now.Add(time.Minute)},
		},
	}

	identity.PruneExpiredTokens(now)

	if len(identity.RefreshTokens) != 1 || identity.RefreshTokens[0].Token != "live" {
		t.Fatalf("unexpected tokens after prune: %+v", identity.RefreshTokens)
	}
}

func TestRemoveRefreshToken(t *testing.T) {
	identity := Identity{
		Verifier: "hash",
		RefreshTokens: []RefreshToken{
			{Token: "one"},
			{Token: "two"},
		},
	}

	if !identity.RemoveRefreshToken("one") {
		t.Fatal("expected removal to succeed")
	}
	if identity.RemoveRefreshToken("one") {
		t.Fatal("expected a second removal to fail")
	}
	if len(identity.RefreshTokens) != 1 || identity.RefreshTokens[0].Token != "two" {
		t.Fatalf("unexpected remaining tokens: %+v", identity.RefreshTokens)
	}
}

func TestHoldsLiveToken(t *testing.T) {
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	identity := Identity{
		Verifier: "hash",
		RefreshTokens: []RefreshToken{
			{Token: "stale", ExpiresAt: now.Add(-time.Second)},
			{Token: "live", ExpiresAt: now.Add(time.Second)},
		},
	}

	if identity.HoldsLiveToken("stale", now) {
		t.Fatal("expired token must not be honored")
	}
	if !identity.HoldsLiveToken("live", now) {
		t.Fatal("live token must be honored")
	}
	if identity.HoldsLiveToken("missing", now) {
		t.Fatal("unknown token must not be honored")
	}
}
