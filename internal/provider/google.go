package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"google.golang.org/api/oauth2/v2"
	"google.golang.org/api/option"
)

const googleIssuer = "accounts.google.com"

// ErrInvalidGoogleAudience reports an ID token minted for a different client.
var ErrInvalidGoogleAudience = errors.New("invalid google audience")

// GoogleProvider federates with Google Sign-In. The caller's assertion is a
// Google ID token; it is validated against the configured client id and the
// profile is read from the userinfo endpoint. Google issues no broker-visible
// tenant, so the issuer id is fixed.
type GoogleProvider struct {
	clientID string
	client   *http.Client
}

// NewGoogleProvider creates a GoogleProvider accepting tokens for clientID.
func NewGoogleProvider(clientID string) *GoogleProvider {
	return &GoogleProvider{
		clientID: clientID,
		client:   &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *GoogleProvider) ExchangeAssertion(ctx context.Context, assertion string) (*Exchange, error) {
	if err := p.validateIDToken(ctx, assertion); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	profile, err := p.LookupProfile(ctx, assertion)
	if err != nil {
		return nil, err
	}

	return &Exchange{AccessToken: assertion, Profile: *profile}, nil
}

func (p *GoogleProvider) LookupProfile(ctx context.Context, accessToken string) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v1/userinfo", nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: userinfo returned %s", ErrExchangeFailed, resp.Status)
	}

	var userInfo oauth2.Userinfo
	if err := json.NewDecoder(resp.Body).Decode(&userInfo); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	return &Profile{
		SubjectID:   userInfo.Id,
		IssuerID:    googleIssuer,
		DisplayName: userInfo.Name,
		Email:       userInfo.Email,
	}, nil
}

func (p *GoogleProvider) validateIDToken(ctx context.Context, idToken string) error {
	oauth2Service, err := oauth2.NewService(ctx, option.WithHTTPClient(p.client))
	if err != nil {
		return err
	}

	tokenInfoCall := oauth2Service.Tokeninfo()
	tokenInfoCall.IdToken(idToken)
	tokenInfo, err := tokenInfoCall.Do()
	if err != nil {
		return err
	}

	if tokenInfo.Audience != p.clientID {
		return ErrInvalidGoogleAudience
	}

	return nil
}
