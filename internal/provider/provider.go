// Package provider abstracts the third-party identity providers the broker
// federates with. Implementations exchange a caller-supplied assertion for a
// federation-scoped access token and the caller's profile; they return facts
// only and make no identity decisions.
package provider

import (
	"context"
	"errors"
)

// ErrExchangeFailed reports that the provider rejected or could not process
// the assertion. Callers surface it as a generic failure; provider internals
// stay in the wrapped error for logs only.
var ErrExchangeFailed = errors.New("federated identity exchange failed")

// Profile is the normalized view of the federated caller.
type Profile struct {
	SubjectID   string `json:"subjectId"`
	IssuerID    string `json:"issuerId"`
	DisplayName string `json:"displayName"`
	Email       string `json:"email"`
}

// Exchange is the result of trading an assertion with the provider.
type Exchange struct {
	// AccessToken is scoped to the federation, not to this broker. It is
	// handed back to the caller so follow-up provider calls skip the
	// exchange.
	AccessToken string

	Profile Profile
}

// FederatedProvider is the oracle contract every provider implements.
type FederatedProvider interface {
	// ExchangeAssertion trades the caller's assertion for a
	// federation-scoped token and profile.
	ExchangeAssertion(ctx context.Context, assertion string) (*Exchange, error)

	// LookupProfile fetches the profile behind an already-exchanged
	// federation-scoped token.
	LookupProfile(ctx context.Context, accessToken string) (*Profile, error)
}
