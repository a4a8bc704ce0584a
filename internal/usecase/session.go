package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-broker/internal/cache"
	"github.com/vasapolrittideah/identity-broker/internal/model"
	"github.com/vasapolrittideah/identity-broker/internal/provider"
	"github.com/vasapolrittideah/identity-broker/internal/reconcile"
	"github.com/vasapolrittideah/identity-broker/internal/repository"
	"github.com/vasapolrittideah/identity-broker/internal/security"
	"github.com/vasapolrittideah/identity-broker/internal/token"
)

var (
	// ErrDuplicateEmail reports a signup against an email that already has a
	// credentialed identity.
	ErrDuplicateEmail = errors.New("an account with this email already exists")

	// ErrInvalidCredentials deliberately covers both an unknown email and a
	// wrong password, so callers cannot enumerate accounts.
	ErrInvalidCredentials = errors.New("invalid credentials")

	// ErrTokenNotFound reports an unknown, expired, or already-consumed
	// refresh token. The caller must re-authenticate.
	ErrTokenNotFound = errors.New("refresh token not found")

	// ErrFederationExchange reports that the federated provider rejected or
	// could not process the assertion. Provider internals are never exposed.
	ErrFederationExchange = errors.New("federated login failed")
)

// SessionUsecase composes the store, the federated provider, the
// reconciliation engine, and the token issuer into the four login flows.
// Every flow ends in a LoginResult or one of the sentinel errors above.
type SessionUsecase interface {
	SignUp(ctx context.Context, params SignUpParams) error
	LoginLocal(ctx context.Context, params LoginLocalParams) (*model.LoginResult, error)
	RefreshLogin(ctx context.Context, refreshToken string) (*model.LoginResult, error)
	FederatedLogin(ctx context.Context, params FederatedLoginParams) (*model.LoginResult, error)
}

// SignUpParams defines the parameters for local account creation.
type SignUpParams struct {
	Email       string
	Password    string
	DisplayName string
}

// LoginLocalParams defines the parameters for an email/password login.
type LoginLocalParams struct {
	Email    string
	Password string
}

// FederatedLoginParams defines the parameters for a federated login. On the
// first call ShouldLink is false; when the broker answers with RequireLink
// the caller retries with ShouldLink set and ConfirmLink carrying the user's
// decision.
type FederatedLoginParams struct {
	Assertion   string
	ShouldLink  bool
	ConfirmLink bool
}

type sessionUsecase struct {
	store  repository.IdentityRepository
	oracle provider.FederatedProvider
	issuer *token.Issuer
	hasher *security.Hasher
	tokens *cache.TokenCache
	logger *zerolog.Logger
	newID  func() string
	now    func() time.Time
}

// NewSessionUsecase creates a new instance of SessionUsecase.
func NewSessionUsecase(
	store repository.IdentityRepository,
	oracle provider.FederatedProvider,
	issuer *token.Issuer,
	hasher *security.Hasher,
	tokens *cache.TokenCache,
	logger *zerolog.Logger,
) SessionUsecase {
	return &sessionUsecase{
		store:  store,
		oracle: oracle,
		issuer: issuer,
		hasher: hasher,
		tokens: tokens,
		logger: logger,
		newID:  uuid.NewString,
		now:    time.Now,
	}
}

func (u *sessionUsecase) SignUp(ctx context.Context, params SignUpParams) error {
	_, err := u.store.GetLocalByEmail(ctx, params.Email)
	if err == nil {
		return ErrDuplicateEmail
	}
	if !errors.Is(err, repository.ErrNotFound) {
		return err
	}

	verifier, err := u.hasher.Hash(params.Password, params.Email)
	if err != nil {
		return err
	}

	// No tokens on signup: the caller signs in explicitly afterwards.
	return u.store.UpsertIdentity(ctx, &model.Identity{
		ID:            u.newID(),
		DisplayName:   params.DisplayName,
		Email:         params.Email,
		Verifier:      verifier,
		RefreshTokens: []model.RefreshToken{},
	})
}

func (u *sessionUsecase) LoginLocal(ctx context.Context, params LoginLocalParams) (*model.LoginResult, error) {
	identity, err := u.store.GetLocalByEmail(ctx, params.Email)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	ok, err := u.hasher.Verify(params.Password, identity.Email, identity.Verifier)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrInvalidCredentials
	}

	return u.establishSession(ctx, identity, "")
}

func (u *sessionUsecase) RefreshLogin(ctx context.Context, refreshToken string) (*model.LoginResult, error) {
	identity, err := u.store.GetByRefreshToken(ctx, refreshToken)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, ErrTokenNotFound
		}
		return nil, err
	}

	// Rotation: the presented token is consumed here and never usable again,
	// whether or not the replacement is ever redeemed.
	identity.RemoveRefreshToken(refreshToken)

	return u.establishSession(ctx, identity, "")
}

func (u *sessionUsecase) FederatedLogin(ctx context.Context, params FederatedLoginParams) (*model.LoginResult, error) {
	ex, err := u.oracle.ExchangeAssertion(ctx, params.Assertion)
	if err != nil {
		u.logger.Error().Err(err).Msg("federated assertion exchange failed")
		return nil, ErrFederationExchange
	}

	bySubject, err := u.optionalLookup(u.store.GetByFederatedSubject(ctx, ex.Profile.SubjectID, ex.Profile.IssuerID))
	if err != nil {
		return nil, err
	}

	var byEmail *model.Identity
	if ex.Profile.Email != "" {
		byEmail, err = u.optionalLookup(u.store.GetLocalByEmail(ctx, ex.Profile.Email))
		if err != nil {
			return nil, err
		}
	}

	decision := reconcile.Decide(reconcile.Input{
		BySubject:   bySubject,
		ByEmail:     byEmail,
		ShouldLink:  params.ShouldLink,
		ConfirmLink: params.ConfirmLink,
	})

	var identity *model.Identity
	switch decision.Action {
	case reconcile.RequireConfirmation:
		// No session tokens until the caller decides. The federation-scoped
		// token is surfaced so the retry can skip a fresh assertion.
		return &model.LoginResult{
			DisplayName:      decision.Identity.DisplayName,
			GraphAccessToken: ex.AccessToken,
			RequireLink:      true,
		}, nil

	case reconcile.Reuse:
		identity = decision.Identity

	case reconcile.Link:
		identity = decision.Identity
		identity.SubjectID = ex.Profile.SubjectID
		identity.IssuerID = ex.Profile.IssuerID

	case reconcile.Create:
		identity = &model.Identity{
			ID:            u.newID(),
			DisplayName:   ex.Profile.DisplayName,
			Email:         ex.Profile.Email,
			SubjectID:     ex.Profile.SubjectID,
			IssuerID:      ex.Profile.IssuerID,
			RefreshTokens: []model.RefreshToken{},
		}
	}

	result, err := u.establishSession(ctx, identity, ex.AccessToken)
	if err != nil {
		return nil, err
	}

	u.tokens.Put(identity.ID, ex.AccessToken)
	return result, nil
}

// establishSession rotates the identity's token set, persists the mutation,
// and builds the uniform login result.
func (u *sessionUsecase) establishSession(
	ctx context.Context,
	identity *model.Identity,
	graphToken string,
) (*model.LoginResult, error) {
	accessToken, err := u.issuer.IssueAccessToken(identity.ID, identity.DisplayName, identity.Email, nil)
	if err != nil {
		return nil, err
	}

	refreshToken := u.issuer.IssueRefreshToken()

	identity.PruneExpiredTokens(u.now())
	identity.AddRefreshToken(refreshToken)

	if err := u.store.UpsertIdentity(ctx, identity); err != nil {
		return nil, err
	}

	return &model.LoginResult{
		DisplayName:      identity.DisplayName,
		AccessToken:      accessToken,
		RefreshToken:     refreshToken.Token,
		TokenExpiry:      refreshToken.ExpiresAt.Unix(),
		GraphAccessToken: graphToken,
	}, nil
}

// optionalLookup maps a missing record to a nil identity, keeping real store
// failures distinct.
func (u *sessionUsecase) optionalLookup(identity *model.Identity, err error) (*model.Identity, error) {
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return identity, nil
}
