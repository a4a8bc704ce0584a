package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

// MemStore is an in-memory IdentityRepository. It backs tests and ephemeral
// development runs; nothing survives a restart.
type MemStore struct {
	// Now is the clock used for refresh-token liveness checks. Tests may
	// replace it.
	Now func() time.Time

	mu         sync.Mutex
	identities []*model.Identity
}

// NewMemStore creates an empty in-memory store.
func NewMemStore() *MemStore {
	return &MemStore{Now: time.Now}
}

func (s *MemStore) GetByID(_ context.Context, id string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, identity := range s.identities {
		if identity.ID == id {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemStore) GetLocalByEmail(_ context.Context, email string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, identity := range s.identities {
		if identity.HasLocalCredential() && strings.EqualFold(identity.Email, email) {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemStore) GetByFederatedSubject(_ context.Context, subjectID, issuerID string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, identity := range s.identities {
		if identity.FederationLinked() && identity.SubjectID == subjectID && identity.IssuerID == issuerID {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemStore) GetByRefreshToken(_ context.Context, token string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.Now()
	for _, identity := range s.identities {
		if identity.HoldsLiveToken(token, now) {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *MemStore) ListIdentities(_ context.Context) ([]*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	identities := make([]*model.Identity, 0, len(s.identities))
	for _, identity := range s.identities {
		identities = append(identities, cloneIdentity(identity))
	}

	return identities, nil
}

func (s *MemStore) UpsertIdentity(_ context.Context, identity *model.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	stored := cloneIdentity(identity)
	stored.Version++

	for idx, existing := range s.identities {
		if existing.ID == stored.ID {
			if existing.Version != identity.Version {
				return ErrStaleStore
			}
			s.identities[idx] = stored
			identity.Version = stored.Version
			return nil
		}
	}

	s.identities = append(s.identities, stored)
	identity.Version = stored.Version
	return nil
}

func (s *MemStore) DeleteIdentity(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	kept := s.identities[:0]
	for _, identity := range s.identities {
		if !strings.EqualFold(identity.Email, email) {
			kept = append(kept, identity)
		}
	}
	s.identities = kept

	return nil
}
