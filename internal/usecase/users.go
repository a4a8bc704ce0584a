package usecase

import (
	"context"
	"errors"
	"strings"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-broker/internal/cache"
	"github.com/vasapolrittideah/identity-broker/internal/model"
	"github.com/vasapolrittideah/identity-broker/internal/provider"
	"github.com/vasapolrittideah/identity-broker/internal/repository"
)

// ErrIdentityNotFound reports a lookup for an identity that does not exist.
var ErrIdentityNotFound = errors.New("identity not found")

// UserUsecase covers the authenticated administrative surface: listing
// identities, deleting them, and assembling a profile view.
type UserUsecase interface {
	ListUsers(ctx context.Context) ([]UserSummary, error)
	DeleteUser(ctx context.Context, email string) error
	Profile(ctx context.Context, identityID, assertion string) (*ProfileResult, error)
}

// UserSummary is the caller-facing projection of an identity. The credential
// verifier never leaves the store through this type.
type UserSummary struct {
	ID               string `json:"id"`
	Email            string `json:"email"`
	DisplayName      string `json:"displayName"`
	FederationLinked bool   `json:"federationLinked"`
	HasLocalAccount  bool   `json:"hasLocalAccount"`
}

// ProfileResult pairs the local identity with the federated profile, when
// the caller supplied an assertion to fetch one.
type ProfileResult struct {
	LocalIdentity    UserSummary       `json:"localIdentity"`
	FederatedProfile *provider.Profile `json:"federatedProfile,omitempty"`
}

type userUsecase struct {
	store  repository.IdentityRepository
	oracle provider.FederatedProvider
	tokens *cache.TokenCache
	logger *zerolog.Logger
}

// NewUserUsecase creates a new instance of UserUsecase.
func NewUserUsecase(
	store repository.IdentityRepository,
	oracle provider.FederatedProvider,
	tokens *cache.TokenCache,
	logger *zerolog.Logger,
) UserUsecase {
	return &userUsecase{
		store:  store,
		oracle: oracle,
		tokens: tokens,
		logger: logger,
	}
}

func (u *userUsecase) ListUsers(ctx context.Context) ([]UserSummary, error) {
	identities, err := u.store.ListIdentities(ctx)
	if err != nil {
		return nil, err
	}

	summaries := make([]UserSummary, 0, len(identities))
	for _, identity := range identities {
		summaries = append(summaries, summarize(identity))
	}

	return summaries, nil
}

func (u *userUsecase) DeleteUser(ctx context.Context, email string) error {
	identities, err := u.store.ListIdentities(ctx)
	if err != nil {
		return err
	}

	// Deleting the identity revokes its refresh tokens with it; the cached
	// federation token must go explicitly.
	for _, identity := range identities {
		if strings.EqualFold(identity.Email, email) {
			u.tokens.Invalidate(identity.ID)
		}
	}

	return u.store.DeleteIdentity(ctx, email)
}

func (u *userUsecase) Profile(ctx context.Context, identityID, assertion string) (*ProfileResult, error) {
	identity, err := u.store.GetByID(ctx, identityID)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrIdentityNotFound
		}
		return nil, err
	}

	result := &ProfileResult{LocalIdentity: summarize(identity)}
	if assertion == "" {
		return result, nil
	}

	if cached, ok := u.tokens.Get(identityID); ok {
		profile, err := u.oracle.LookupProfile(ctx, cached)
		if err == nil {
			result.FederatedProfile = profile
			return result, nil
		}
		// The provider stopped honoring the cached token; fall back to a
		// fresh exchange.
		u.tokens.Invalidate(identityID)
	}

	ex, err := u.oracle.ExchangeAssertion(ctx, assertion)
	if err != nil {
		u.logger.Error().Err(err).Msg("federated profile exchange failed")
		return nil, ErrFederationExchange
	}

	u.tokens.Put(identityID, ex.AccessToken)
	result.FederatedProfile = &ex.Profile

	return result, nil
}

func summarize(identity *model.Identity) UserSummary {
	return UserSummary{
		ID:               identity.ID,
		Email:            identity.Email,
		DisplayName:      identity.DisplayName,
		FederationLinked: identity.FederationLinked(),
		HasLocalAccount:  identity.HasLocalCredential(),
	}
}
