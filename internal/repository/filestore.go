package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

// FileStore persists the identity graph as a single JSON document on disk.
// It keeps an in-process cache guarded by the file's last-modified time: a
// write computed against a cache that is older than the file on disk fails
// with ErrStaleStore instead of overwriting the concurrent change. Within
// the process, each record's Version must match the cached record on
// replace, so a write built from a read that has since been overwritten is
// rejected the same way. A mutex serializes every read-modify-write
// sequence, so the store satisfies the single-writer assumption on its own.
type FileStore struct {
	path   string
	logger *zerolog.Logger
	now    func() time.Time

	mu        sync.Mutex
	cached    []*model.Identity
	watermark time.Time
}

// NewFileStore creates a FileStore backed by the JSON file at path. The file
// is created on first use.
func NewFileStore(path string, logger *zerolog.Logger) *FileStore {
	return &FileStore{
		path:   path,
		logger: logger,
		now:    time.Now,
	}
}

func (s *FileStore) GetByID(_ context.Context, id string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return nil, err
	}

	for _, identity := range s.cached {
		if identity.ID == id {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *FileStore) GetLocalByEmail(_ context.Context, email string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return nil, err
	}

	for _, identity := range s.cached {
		if identity.HasLocalCredential() && strings.EqualFold(identity.Email, email) {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *FileStore) GetByFederatedSubject(_ context.Context, subjectID, issuerID string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return nil, err
	}

	for _, identity := range s.cached {
		if identity.SubjectID == subjectID && identity.IssuerID == issuerID && identity.FederationLinked() {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *FileStore) GetByRefreshToken(_ context.Context, token string) (*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return nil, err
	}

	now := s.now()
	for _, identity := range s.cached {
		if identity.HoldsLiveToken(token, now) {
			return cloneIdentity(identity), nil
		}
	}

	return nil, ErrNotFound
}

func (s *FileStore) ListIdentities(_ context.Context) ([]*model.Identity, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return nil, err
	}

	identities := make([]*model.Identity, 0, len(s.cached))
	for _, identity := range s.cached {
		identities = append(identities, cloneIdentity(identity))
	}

	return identities, nil
}

func (s *FileStore) UpsertIdentity(_ context.Context, identity *model.Identity) error {
	if err := identity.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return err
	}

	stored := cloneIdentity(identity)
	stored.Version++

	replaced := false
	for idx, existing := range s.cached {
		if existing.ID == stored.ID {
			// The mtime watermark only catches writers outside this
			// process; the version check catches a write computed from a
			// read that another request has since overwritten.
			if existing.Version != identity.Version {
				return ErrStaleStore
			}
			s.cached[idx] = stored
			replaced = true
			break
		}
	}
	if !replaced {
		s.cached = append(s.cached, stored)
	}

	if err := s.commit(); err != nil {
		return err
	}

	identity.Version = stored.Version
	return nil
}

func (s *FileStore) DeleteIdentity(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.populate(); err != nil {
		return err
	}

	kept := s.cached[:0]
	for _, identity := range s.cached {
		if !strings.EqualFold(identity.Email, email) {
			kept = append(kept, identity)
		}
	}
	s.cached = kept

	return s.commit()
}

// populate loads the cache from disk when it is empty or the file has been
// written since the last load. Callers must hold the mutex.
func (s *FileStore) populate() error {
	info, err := os.Stat(s.path)
	if os.IsNotExist(err) {
		if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
			return fmt.Errorf("create store directory: %w", err)
		}
		if err := os.WriteFile(s.path, []byte("[]"), 0o600); err != nil {
			return fmt.Errorf("initialize store file: %w", err)
		}
		info, err = os.Stat(s.path)
		if err != nil {
			return err
		}
	} else if err != nil {
		return err
	}

	if s.cached != nil && !info.ModTime().After(s.watermark) {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if err != nil {
		return fmt.Errorf("read store file: %w", err)
	}

	var identities []*model.Identity
	if err := json.Unmarshal(data, &identities); err != nil {
		return fmt.Errorf("decode store file: %w", err)
	}

	s.cached = identities
	s.watermark = info.ModTime()
	return nil
}

// commit writes the cache back to disk unless the file changed underneath it.
// On a stale write the cache is dropped so the next operation re-reads.
// Callers must hold the mutex.
func (s *FileStore) commit() error {
	info, err := os.Stat(s.path)
	if err != nil {
		return err
	}
	if info.ModTime().After(s.watermark) {
		s.logger.Warn().Str("path", s.path).Msg("identity file changed on disk; dropping cached state")
		s.cached = nil
		return ErrStaleStore
	}

	data, err := json.MarshalIndent(s.cached, "", "  ")
	if err != nil {
		return fmt.Errorf("encode store file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write store file: %w", err)
	}

	info, err = os.Stat(s.path)
	if err != nil {
		return err
	}
	s.watermark = info.ModTime()
	return nil
}

func cloneIdentity(identity *model.Identity) *model.Identity {
	clone := *identity
	clone.RefreshTokens = append([]model.RefreshToken(nil), identity.RefreshTokens...)
	return &clone
}
