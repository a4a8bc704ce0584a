package repository

import (
	"context"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

// ResetTokenRepository defines the interface for password reset token
// operations.
type ResetTokenRepository interface {
	// CreateToken stores a new reset token record.
	CreateToken(ctx context.Context, token *model.ResetToken) error

	// GetTokenByJTI retrieves a token by its JTI, or ErrNotFound.
	GetTokenByJTI(ctx context.Context, jti string) (*model.ResetToken, error)

	// MarkTokenAsUsed consumes a token so it can never be redeemed again.
	MarkTokenAsUsed(ctx context.Context, jti string) error

	// InvalidateForIdentity marks every unused token of an identity as used.
	// Each new reset request supersedes all outstanding ones.
	InvalidateForIdentity(ctx context.Context, identityID string) error

	// DeleteExpiredTokens removes expired records and reports how many.
	DeleteExpiredTokens(ctx context.Context) (int64, error)
}
