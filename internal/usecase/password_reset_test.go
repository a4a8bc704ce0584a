package usecase

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-broker/internal/model"
	"github.com/vasapolrittideah/identity-broker/internal/repository"
	"github.com/vasapolrittideah/identity-broker/internal/security"
	"github.com/vasapolrittideah/identity-broker/internal/token"
)

type fakeMailer struct {
	sent []string
}

func (m *fakeMailer) SendHTML(_ []string, _, htmlBody string) error {
	m.sent = append(m.sent, htmlBody)
	return nil
}

// lastToken pulls the reset token out of the most recent mail's link.
func (m *fakeMailer) lastToken(t *testing.T) string {
	t.Helper()

	if len(m.sent) == 0 {
		t.Fatal("no mail was sent")
	}
	body := m.sent[len(m.sent)-1]

	idx := strings.Index(body, "?token=")
	if idx == -1 {
		t.Fatalf("no token link in mail body: %s", body)
	}
	rest := body[idx+len("?token="):]
	end := strings.Index(rest, `"`)
	if end == -1 {
		t.Fatalf("malformed link in mail body: %s", body)
	}
	return rest[:end]
}

type resetFixture struct {
	resets *passwordResetUsecase
	store  *repository.MemStore
	tokens repository.ResetTokenRepository
	hasher *security.Hasher
	mailer *fakeMailer
}

func newResetFixture(t *testing.T) *resetFixture {
	t.Helper()

	store := repository.NewMemStore()
	resetStore := repository.NewFileResetTokenStore(filepath.Join(t.TempDir(), "reset_tokens.json"))
	issuer := token.NewIssuer("test-signing-key", "identity-broker", "identity-broker", 30*time.Minute)
	hasher := security.NewHasher()
	mailer := &fakeMailer{}
	logger := zerolog.Nop()

	uc := NewPasswordResetUsecase(
		store, resetStore, issuer, hasher, mailer,
		"https://broker.example.com/reset", &logger,
	).(*passwordResetUsecase)

	verifier, err := hasher.Hash("old-passphrase", "alice@example.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	err = store.UpsertIdentity(context.Background(), &model.Identity{
		ID:          "id-1",
		DisplayName: "Alice",
		Email:       "alice@example.com",
		Verifier:    verifier,
	})
	if err != nil {
		t.Fatalf("seed identity: %v", err)
	}

	return &resetFixture{resets: uc, store: store, tokens: resetStore, hasher: hasher, mailer: mailer}
}

func TestRequestPasswordResetUnknownEmail(t *testing.T) {
	f := newResetFixture(t)

	// Unknown emails answer identically so accounts cannot be enumerated.
	if err := f.resets.RequestPasswordReset(context.Background(), "ghost@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	if len(f.mailer.sent) != 0 {
		t.Fatal("no mail may be sent for an unknown email")
	}
}

func TestResetPasswordFlow(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	if err := f.resets.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	tokenStr := f.mailer.lastToken(t)

	if err := f.resets.ResetPassword(ctx, tokenStr, "new-passphrase"); err != nil {
		t.Fatalf("reset: %v", err)
	}

	identity, err := f.store.GetLocalByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("get identity: %v", err)
	}

	if ok, _ := f.hasher.Verify("new-passphrase", identity.Email, identity.Verifier); !ok {
		t.Fatal("expected the new password to verify")
	}
	if ok, _ := f.hasher.Verify("old-passphrase", identity.Email, identity.Verifier); ok {
		t.Fatal("expected the old password to stop verifying")
	}

	// One-time use: redeeming the same token again fails.
	if err := f.resets.ResetPassword(ctx, tokenStr, "another"); !errors.Is(err, ErrResetTokenUsed) {
		t.Fatalf("expected ErrResetTokenUsed, got %v", err)
	}
}

func TestResetPasswordExpiredToken(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	if err := f.resets.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}
	tokenStr := f.mailer.lastToken(t)

	f.resets.now = func() time.Time { return time.Now().Add(31 * time.Minute) }

	if err := f.resets.ResetPassword(ctx, tokenStr, "new-passphrase"); !errors.Is(err, ErrResetTokenExpired) {
		t.Fatalf("expected ErrResetTokenExpired, got %v", err)
	}
}

func TestResetPasswordGarbageToken(t *testing.T) {
	f := newResetFixture(t)

	err := f.resets.ResetPassword(context.Background(), "not-a-jwt", "new-passphrase")
	if !errors.Is(err, ErrResetTokenInvalid) {
		t.Fatalf("expected ErrResetTokenInvalid, got %v", err)
	}
}

func TestNewRequestSupersedesOutstandingTokens(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	if err := f.resets.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("first request: %v", err)
	}
	first := f.mailer.lastToken(t)

	if err := f.resets.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("second request: %v", err)
	}

	if err := f.resets.ResetPassword(ctx, first, "new-passphrase"); !errors.Is(err, ErrResetTokenUsed) {
		t.Fatalf("expected the superseded token to be unusable, got %v", err)
	}
}

func TestRequestPrunesExpiredTokenRecords(t *testing.T) {
	f := newResetFixture(t)
	ctx := context.Background()

	// An old record left over from an earlier request.
	expired := &model.ResetToken{
		JTI:        "expired-jti",
		IdentityID: "id-1",
		Email:      "alice@example.com",
		ExpiresAt:  time.Now().Add(-time.Hour),
	}
	if err := f.tokens.CreateToken(ctx, expired); err != nil {
		t.Fatalf("seed expired token: %v", err)
	}

	if err := f.resets.RequestPasswordReset(ctx, "alice@example.com"); err != nil {
		t.Fatalf("request: %v", err)
	}

	// The request sweeps expired records out of the store entirely.
	if _, err := f.tokens.GetTokenByJTI(ctx, "expired-jti"); !errors.Is(err, repository.ErrNotFound) {
		t.Fatalf("expected the expired record to be gone, got %v", err)
	}

	// The freshly issued token is untouched and still redeemable.
	tokenStr := f.mailer.lastToken(t)
	if err := f.resets.ResetPassword(ctx, tokenStr, "new-passphrase"); err != nil {
		t.Fatalf("reset with fresh token: %v", err)
	}
}
