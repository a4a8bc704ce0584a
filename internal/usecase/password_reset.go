package usecase

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-broker/internal/model"
	"github.com/vasapolrittideah/identity-broker/internal/repository"
	"github.com/vasapolrittideah/identity-broker/internal/security"
	"github.com/vasapolrittideah/identity-broker/internal/token"
)

var (
	ErrResetTokenNotFound = errors.New("password reset token not found")
	ErrResetTokenUsed     = errors.New("password reset token has already been used")
	ErrResetTokenExpired  = errors.New("password reset token has expired")
	ErrResetTokenInvalid  = errors.New("invalid password reset token")
)

// Mailer delivers the reset link. The SMTP-backed implementation lives in
// internal/mailer.
type Mailer interface {
	SendHTML(to []string, subject, htmlBody string) error
}

// PasswordResetUsecase defines the business logic for password reset
// operations. Only identities with a local credential can reset a password;
// a federated account has nothing to reset.
type PasswordResetUsecase interface {
	// RequestPasswordReset initiates the reset flow for an email. It never
	// reveals whether the email exists.
	RequestPasswordReset(ctx context.Context, email string) error

	// ResetPassword redeems a reset token and installs a new credential.
	ResetPassword(ctx context.Context, tokenStr, newPassword string) error
}

type passwordResetUsecase struct {
	store    repository.IdentityRepository
	resets   repository.ResetTokenRepository
	issuer   *token.Issuer
	hasher   *security.Hasher
	mailer   Mailer
	resetURL string
	logger   *zerolog.Logger
	now      func() time.Time
}

// NewPasswordResetUsecase creates a new instance of PasswordResetUsecase.
func NewPasswordResetUsecase(
	store repository.IdentityRepository,
	resets repository.ResetTokenRepository,
	issuer *token.Issuer,
	hasher *security.Hasher,
	mailer Mailer,
	resetURL string,
	logger *zerolog.Logger,
) PasswordResetUsecase {
	return &passwordResetUsecase{
		store:    store,
		resets:   resets,
		issuer:   issuer,
		hasher:   hasher,
		mailer:   mailer,
		resetURL: resetURL,
		logger:   logger,
		now:      time.Now,
	}
}

func (u *passwordResetUsecase) RequestPasswordReset(ctx context.Context, email string) error {
	identity, err := u.store.GetLocalByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			// Answer identically whether or not the email exists.
			return nil
		}
		return err
	}

	// Expired records are reaped lazily on each request. Mongo's TTL index
	// does this on its own; the file store has no other sweep.
	if pruned, err := u.resets.DeleteExpiredTokens(ctx); err != nil {
		u.logger.Warn().Err(err).Msg("failed to prune expired reset tokens")
	} else if pruned > 0 {
		u.logger.Debug().Int64("pruned", pruned).Msg("pruned expired reset tokens")
	}

	// Each request supersedes all outstanding tokens for the identity.
	if err := u.resets.InvalidateForIdentity(ctx, identity.ID); err != nil {
		return err
	}

	tokenStr, jti, err := u.issuer.IssueResetToken(identity.ID, identity.Email)
	if err != nil {
		return err
	}

	ttl := u.issuer.ResetTokenTTL()
	if err := u.resets.CreateToken(ctx, &model.ResetToken{
		JTI:        jti,
		IdentityID: identity.ID,
		Email:      identity.Email,
		ExpiresAt:  u.now().Add(ttl),
	}); err != nil {
		return err
	}

	resetLink := fmt.Sprintf("%s?token=%s", u.resetURL, tokenStr)
	htmlBody := fmt.Sprintf(`
		<p>Hi,</p>
		<p>We received a request to reset the password for your account.</p>
		<p>If you made this request, click the link below to create a new password:</p>

		<p><a href="%s">%s</a></p>

		<p>This link will expire in %s.</p>
		<p>If you did not request a password reset, you can safely ignore this email.</p>
	`, resetLink, resetLink, ttl)

	return u.mailer.SendHTML([]string{identity.Email}, "Password Reset Request", htmlBody)
}

func (u *passwordResetUsecase) ResetPassword(ctx context.Context, tokenStr, newPassword string) error {
	claims, err := u.issuer.ParseAccessToken(tokenStr)
	if err != nil {
		return ErrResetTokenInvalid
	}

	jti, ok := claims["jti"].(string)
	if !ok || jti == "" {
		return ErrResetTokenInvalid
	}

	resetToken, err := u.resets.GetTokenByJTI(ctx, jti)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenNotFound
		}
		return err
	}

	if resetToken.Used {
		return ErrResetTokenUsed
	}
	if !resetToken.ExpiresAt.After(u.now()) {
		return ErrResetTokenExpired
	}

	identity, err := u.store.GetByID(ctx, resetToken.IdentityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return ErrResetTokenNotFound
		}
		return err
	}

	verifier, err := u.hasher.Hash(newPassword, identity.Email)
	if err != nil {
		return err
	}
	identity.Verifier = verifier

	if err := u.store.UpsertIdentity(ctx, identity); err != nil {
		return err
	}

	return u.resets.MarkTokenAsUsed(ctx, jti)
}
