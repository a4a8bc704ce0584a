package security

import (
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"strings"

	"github.com/matthewhartstonge/argon2"
)

// Hasher derives storable credential verifiers from passwords using argon2id.
// The salt is derived from the normalized email address rather than random
// bytes, so the verifier is deterministic for a given (password, email) pair
// and two independently computed verifiers compare byte for byte.
type Hasher struct {
	cfg argon2.Config
}

// NewHasher creates a Hasher with the library's recommended argon2id parameters.
func NewHasher() *Hasher {
	return &Hasher{cfg: argon2.DefaultConfig()}
}

// Hash computes the verifier for the given password and email. The email is
// lowercased before it seeds the salt, so address case never affects the
// result. The output is a fixed-length base64 encoding of the raw digest.
func (h *Hasher) Hash(password, email string) (string, error) {
	raw, err := h.cfg.Hash([]byte(password), h.saltFor(email))
	if err != nil {
		return "", err
	}

	return base64.RawStdEncoding.EncodeToString(raw.Hash), nil
}

// Verify recomputes the verifier for the presented password and compares it
// against the stored one in constant time. Plaintext is never stored or
// compared.
func (h *Hasher) Verify(password, email, verifier string) (bool, error) {
	computed, err := h.Hash(password, email)
	if err != nil {
		return false, err
	}

	return subtle.ConstantTimeCompare([]byte(computed), []byte(verifier)) == 1, nil
}

func (h *Hasher) saltFor(email string) []byte {
	sum := sha256.Sum256([]byte(strings.ToLower(email)))

	n := int(h.cfg.SaltLength)
	if n > len(sum) {
		n = len(sum)
	}

	return sum[:n]
}
