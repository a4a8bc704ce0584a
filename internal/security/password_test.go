package security

import "testing"

func TestHashDeterministic(t *testing.T) {
	h := NewHasher()

	first, err := h.Hash("s3cret-passphrase", "alice@example.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	second, err := h.Hash("s3cret-passphrase", "alice@example.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if first != second {
		t.Fatalf("expected identical verifiers, got %q and %q", first, second)
	}
}

func TestHashNormalizesEmailCase(t *testing.T) {
	h := NewHasher()

	lower, err := h.Hash("s3cret-passphrase", "alice@example.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	mixed, err := h.Hash("s3cret-passphrase", "Alice@Example.COM")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	if lower != mixed {
		t.Fatal("expected email case to be irrelevant to the verifier")
	}
}

func TestHashDistinguishesInputs(t *testing.T) {
	h := NewHasher()

	tests := []struct {
		name     string
		password string
		email    string
	}{
		{name: "different password", password: "other-passphrase", email: "alice@example.com"},
		{name: "different email", password: "s3cret-passphrase", email: "bob@example.com"},
	}

	base, err := h.Hash("s3cret-passphrase", "alice@example.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := h.Hash(tt.password, tt.email)
			if err != nil {
				t.Fatalf("hash: %v", err)
			}
			if got == base {
				t.Fatal("expected a different verifier")
			}
		})
	}
}

func TestVerify(t *testing.T) {
	h := NewHasher()

	verifier, err := h.Hash("s3cret-passphrase", "alice@example.com")
	if err != nil {
		t.Fatalf("hash: %v", err)
	}

	ok, err := h.Verify("s3cret-passphrase", "ALICE@example.com", verifier)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if !ok {
		t.Fatal("expected matching password to verify")
	}

	ok, err = h.Verify("wrong-passphrase", "alice@example.com", verifier)
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if ok {
		t.Fatal("expected mismatched password to fail verification")
	}
}
