package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const (
	defaultGraphBaseURL = "https://graph.microsoft.com/v1.0"
	oboGrantType        = "urn:ietf:params:oauth:grant-type:jwt-bearer"
)

// GraphProvider federates with Microsoft Entra ID. The caller's assertion is
// an access token limited to this broker; it is swapped on-behalf-of for a
// Graph-scoped token, which then backs the /me and /organization lookups
// that yield the subject id, issuer (tenant) id, display name, and email.
type GraphProvider struct {
	tenantID     string
	clientID     string
	clientSecret string
	scopes       []string

	baseURL  string
	tokenURL string
	client   *http.Client
}

// NewGraphProvider creates a GraphProvider for the given app registration.
func NewGraphProvider(tenantID, clientID, clientSecret string, scopes []string) *GraphProvider {
	if len(scopes) == 0 {
		scopes = []string{"User.Read"}
	}

	return &GraphProvider{
		tenantID:     tenantID,
		clientID:     clientID,
		clientSecret: clientSecret,
		scopes:       scopes,
		baseURL:      defaultGraphBaseURL,
		tokenURL:     fmt.Sprintf("https://login.microsoftonline.com/%s/oauth2/v2.0/token", tenantID),
		client:       &http.Client{Timeout: 15 * time.Second},
	}
}

func (p *GraphProvider) ExchangeAssertion(ctx context.Context, assertion string) (*Exchange, error) {
	accessToken, err := p.onBehalfOfToken(ctx, assertion)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	profile, err := p.LookupProfile(ctx, accessToken)
	if err != nil {
		return nil, err
	}

	return &Exchange{AccessToken: accessToken, Profile: *profile}, nil
}

func (p *GraphProvider) LookupProfile(ctx context.Context, accessToken string) (*Profile, error) {
	var me struct {
		ID          string `json:"id"`
		DisplayName string `json:"displayName"`
		Mail        string `json:"mail"`
	}
	if err := p.get(ctx, p.baseURL+"/me", accessToken, &me); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}

	var org struct {
		Value []struct {
			ID string `json:"id"`
		} `json:"value"`
	}
	if err := p.get(ctx, p.baseURL+"/organization", accessToken, &org); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrExchangeFailed, err)
	}
	if len(org.Value) == 0 {
		return nil, fmt.Errorf("%w: organization lookup returned no tenant", ErrExchangeFailed)
	}

	return &Profile{
		SubjectID:   me.ID,
		IssuerID:    org.Value[0].ID,
		DisplayName: me.DisplayName,
		Email:       me.Mail,
	}, nil
}

// onBehalfOfToken swaps the broker-scoped assertion for a token carrying the
// Graph scopes this provider actually needs.
func (p *GraphProvider) onBehalfOfToken(ctx context.Context, assertion string) (string, error) {
	form := url.Values{
		"grant_type":          {oboGrantType},
		"client_id":           {p.clientID},
		"client_secret":       {p.clientSecret},
		"assertion":           {assertion},
		"scope":               {strings.Join(p.scopes, " ")},
		"requested_token_use": {"on_behalf_of"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.tokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := p.client.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("token endpoint returned %s", resp.Status)
	}

	var payload struct {
		AccessToken string `json:"access_token"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return "", err
	}
	if payload.AccessToken == "" {
		return "", fmt.Errorf("token endpoint returned no access token")
	}

	return payload.AccessToken, nil
}

func (p *GraphProvider) get(ctx context.Context, endpoint, accessToken string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := p.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s returned %s", endpoint, resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(out)
}
