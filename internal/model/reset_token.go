package model

import "time"

// ResetToken tracks a password reset grant by its JTI (JWT Token Identifier).
// The reset JWT itself is handed to the user; only the JTI and its state are
// stored, so a token can be consumed exactly once.
type ResetToken struct {
	JTI        string    `json:"jti"        bson:"jti"`
	IdentityID string    `json:"identityId" bson:"identity_id"`
	Email      string    `json:"email"      bson:"email"`
	Used       bool      `json:"used"       bson:"used"`
	ExpiresAt  time.Time `json:"expiresAt"  bson:"expires_at"`
	CreatedAt  time.Time `json:"createdAt"  bson:"created_at"`
}
