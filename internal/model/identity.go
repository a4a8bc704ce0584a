package model

import (
	"errors"
	"time"
)

// Kind classifies how an identity is able to authenticate.
type Kind int

const (
	// KindLocalOnly identities hold a credential verifier and no federated binding.
	KindLocalOnly Kind = iota + 1
	// KindFederatedOnly identities hold a federated binding and no credential.
	KindFederatedOnly
	// KindLinked identities hold both.
	KindLinked
)

// ErrNoAuthenticator reports an identity with neither a local credential nor
// a federated binding. Such a record can never log in and must not be stored.
var ErrNoAuthenticator = errors.New("identity has neither a local credential nor a federated binding")

// Identity is the durable record that reconciles a locally-issued
// email/password account with a federated account from an external identity
// provider. A single identity may carry either authenticator, or both once
// the accounts have been linked.
type Identity struct {
	ID            string         `json:"id"                  bson:"_id"`
	DisplayName   string         `json:"displayName"         bson:"display_name"`
	Email         string         `json:"email"               bson:"email"`
	Verifier      string         `json:"verifier,omitempty"  bson:"verifier,omitempty"`
	SubjectID     string         `json:"subjectId,omitempty" bson:"subject_id,omitempty"`
	IssuerID      string         `json:"issuerId,omitempty"  bson:"issuer_id,omitempty"`
	RefreshTokens []RefreshToken `json:"refreshTokens"       bson:"refresh_tokens"`

	// Version is a write watermark used by stores to detect lost updates.
	// It never crosses the wire.
	Version int64 `json:"-" bson:"version"`
}

// Kind derives the identity's classification from which authenticators are set.
func (i *Identity) Kind() Kind {
	switch {
	case i.HasLocalCredential() && i.FederationLinked():
		return KindLinked
	case i.FederationLinked():
		return KindFederatedOnly
	default:
		return KindLocalOnly
	}
}

// HasLocalCredential reports whether the identity can log in with a password.
func (i *Identity) HasLocalCredential() bool {
	return i.Verifier != ""
}

// FederationLinked reports whether the identity is bound to a federated account.
func (i *Identity) FederationLinked() bool {
	return i.SubjectID != "" && i.IssuerID != ""
}

// Validate rejects identities that could never authenticate.
func (i *Identity) Validate() error {
	if !i.HasLocalCredential() && !i.FederationLinked() {
		return ErrNoAuthenticator
	}
	return nil
}

// AddRefreshToken appends a token to the identity's active set.
func (i *Identity) AddRefreshToken(token RefreshToken) {
	i.RefreshTokens = append(i.RefreshTokens, token)
}

// RemoveRefreshToken removes the token with the given value from the active
// set. It reports whether a token was removed.
func (i *Identity) RemoveRefreshToken(token string) bool {
	for idx, rt := range i.RefreshTokens {
		if rt.Token == token {
			i.RefreshTokens = append(i.RefreshTokens[:idx], i.RefreshTokens[idx+1:]...)
			return true
		}
	}
	return false
}

// PruneExpiredTokens drops tokens whose expiry has passed. Expired tokens are
// removed lazily on each write rather than by a background sweep.
func (i *Identity) PruneExpiredTokens(now time.Time) {
	live := i.RefreshTokens[:0]
	for _, rt := range i.RefreshTokens {
		if rt.Live(now) {
			live = append(live, rt)
		}
	}
	i.RefreshTokens = live
}

// HoldsLiveToken reports whether the identity holds an unexpired refresh
// token with the given value.
func (i *Identity) HoldsLiveToken(token string, now time.Time) bool {
	for _, rt := range i.RefreshTokens {
		if rt.Token == token && rt.Live(now) {
			return true
		}
	}
	return false
}

// RefreshToken is an opaque one-time-use token exchanged for a new session.
type RefreshToken struct {
	Token     string    `json:"token"          bson:"token"`
	ExpiresAt time.Time `json:"absoluteExpiry" bson:"absolute_expiry"`
}

// Live reports whether the token is still valid at the given instant. A token
// expiring exactly now is already expired.
func (t RefreshToken) Live(now time.Time) bool {
	return t.ExpiresAt.After(now)
}
