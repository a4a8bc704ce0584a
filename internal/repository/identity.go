package repository

import (
	"context"
	"errors"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

var (
	// ErrNotFound reports that no record matched the lookup.
	ErrNotFound = errors.New("identity not found")

	// ErrStaleStore reports that the backing store was modified after the
	// state this write was computed from was read. The caller must re-read
	// rather than silently overwrite.
	ErrStaleStore = errors.New("store modified since last read")
)

// IdentityRepository defines the interface for identity-related store
// operations. All lookups return ErrNotFound when nothing matches.
type IdentityRepository interface {
	// GetByID retrieves an identity by its opaque id.
	GetByID(ctx context.Context, id string) (*model.Identity, error)

	// GetLocalByEmail retrieves the identity holding a local credential for
	// the given email. Matching is case-insensitive and federation-only
	// identities never match.
	GetLocalByEmail(ctx context.Context, email string) (*model.Identity, error)

	// GetByFederatedSubject retrieves the identity bound to the given
	// (subject id, issuer id) pair.
	GetByFederatedSubject(ctx context.Context, subjectID, issuerID string) (*model.Identity, error)

	// GetByRefreshToken retrieves the identity holding a live, unexpired
	// refresh token equal to the given value.
	GetByRefreshToken(ctx context.Context, token string) (*model.Identity, error)

	// ListIdentities returns every identity in the store.
	ListIdentities(ctx context.Context) ([]*model.Identity, error)

	// UpsertIdentity inserts the identity or replaces the record with the
	// same id. It fails with ErrStaleStore when the store changed underneath
	// the caller's read.
	UpsertIdentity(ctx context.Context, identity *model.Identity) error

	// DeleteIdentity removes every identity with the given email, along with
	// all of their refresh tokens. Matching is case-insensitive.
	DeleteIdentity(ctx context.Context, email string) error
}
