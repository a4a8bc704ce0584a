package token

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

const (
	// AccessTokenTTL is the validity window of a signed access token.
	AccessTokenTTL = 20 * time.Minute

	// RefreshTokenTTL is deliberately short so that sessions rotate their
	// refresh token frequently, bounding the blast radius of a leaked token.
	RefreshTokenTTL = 5 * time.Minute

	// notBeforeSkew backdates the not-before claim to tolerate clock skew
	// between issuer instances and verifiers.
	notBeforeSkew = time.Second
)

// ErrSigningKeyMissing reports that the issuer has no symmetric signing key
// configured. This is a deployment fault, not a caller fault.
var ErrSigningKeyMissing = errors.New("token signing key is not configured")

// Issuer mints signed, time-bounded access tokens and opaque refresh tokens.
// Claim names and the signing scheme are stable, so any issuer instance
// sharing the key can verify a token minted by another.
type Issuer struct {
	key      []byte
	issuer   string
	audience string
	resetTTL time.Duration
	now      func() time.Time
}

// NewIssuer creates an Issuer signing with the given symmetric key. An empty
// key is tolerated until the first issuance so that construction stays
// infallible; issuing then fails with ErrSigningKeyMissing.
func NewIssuer(key, issuer, audience string, resetTTL time.Duration) *Issuer {
	return &Issuer{
		key:      []byte(key),
		issuer:   issuer,
		audience: audience,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// IssueAccessToken mints an HS256-signed JWT carrying the identity id,
// display name, and email as claims, valid for exactly AccessTokenTTL from
// issuance. Extra claims are merged in without overriding the standard ones.
func (i *Issuer) IssueAccessToken(identityID, displayName, email string, extra map[string]string) (string, error) {
	if len(i.key) == 0 {
		return "", ErrSigningKeyMissing
	}

	now := i.now()
	claims := jwt.MapClaims{
		"sub":   identityID,
		"name":  displayName,
		"email": email,
		"iss":   i.issuer,
		"aud":   i.audience,
		"iat":   jwt.NewNumericDate(now),
		"nbf":   jwt.NewNumericDate(now.Add(-notBeforeSkew)),
		"exp":   jwt.NewNumericDate(now.Add(AccessTokenTTL)),
	}
	for k, v := range extra {
		if _, reserved := claims[k]; !reserved {
			claims[k] = v
		}
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
}

// ParseAccessToken verifies the signature and time bounds of an access token
// and returns its claims.
func (i *Issuer) ParseAccessToken(tokenStr string) (jwt.MapClaims, error) {
	if len(i.key) == 0 {
		return nil, ErrSigningKeyMissing
	}

	claims := jwt.MapClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}

		return i.key, nil
	},
		jwt.WithExpirationRequired(),
		jwt.WithAudience(i.audience),
		jwt.WithIssuer(i.issuer),
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Name}),
	)
	if err != nil {
		return nil, err
	}

	if !token.Valid {
		return nil, errors.New("invalid token")
	}

	return claims, nil
}

// IssueRefreshToken generates a cryptographically random, globally-unique
// refresh token expiring RefreshTokenTTL from now. The token is unrelated to
// any identity until the caller attaches it.
func (i *Issuer) IssueRefreshToken() model.RefreshToken {
	return model.RefreshToken{
		Token:     uuid.NewString(),
		ExpiresAt: i.now().Add(RefreshTokenTTL),
	}
}

// IssueResetToken mints a password-reset JWT with a unique JTI so the grant
// can be consumed exactly once. It returns the signed token and its JTI.
func (i *Issuer) IssueResetToken(identityID, email string) (tokenStr, jti string, err error) {
	if len(i.key) == 0 {
		return "", "", ErrSigningKeyMissing
	}

	jti, err = generateJTI()
	if err != nil {
		return "", "", err
	}

	now := i.now()
	claims := jwt.MapClaims{
		"sub":   identityID,
		"email": email,
		"jti":   jti,
		"iss":   i.issuer,
		"aud":   i.audience,
		"iat":   jwt.NewNumericDate(now),
		"nbf":   jwt.NewNumericDate(now.Add(-notBeforeSkew)),
		"exp":   jwt.NewNumericDate(now.Add(i.resetTTL)),
	}

	tokenStr, err = jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key)
	if err != nil {
		return "", "", err
	}

	return tokenStr, jti, nil
}

// ResetTokenTTL returns the configured validity window of reset tokens.
func (i *Issuer) ResetTokenTTL() time.Duration {
	return i.resetTTL
}

func generateJTI() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", err
	}
	return hex.EncodeToString(bytes), nil
}
