package repository

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/vasapolrittideah/identity-broker/internal/model"
)

// FileResetTokenStore persists reset tokens as a JSON document next to the
// identity file. Reset tokens are short-lived bookkeeping, so unlike the
// identity store it carries no stale-write watermark; the mutex alone
// serializes access.
type FileResetTokenStore struct {
	path string
	now  func() time.Time

	mu     sync.Mutex
	tokens []*model.ResetToken
	loaded bool
}

// NewFileResetTokenStore creates a FileResetTokenStore backed by the JSON
// file at path.
func NewFileResetTokenStore(path string) *FileResetTokenStore {
	return &FileResetTokenStore{
		path: path,
		now:  time.Now,
	}
}

func (s *FileResetTokenStore) CreateToken(_ context.Context, token *model.ResetToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	stored := *token
	stored.CreatedAt = s.now()
	stored.Used = false
	s.tokens = append(s.tokens, &stored)

	return s.save()
}

func (s *FileResetTokenStore) GetTokenByJTI(_ context.Context, jti string) (*model.ResetToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return nil, err
	}

	for _, token := range s.tokens {
		if token.JTI == jti {
			clone := *token
			return &clone, nil
		}
	}

	return nil, ErrNotFound
}

func (s *FileResetTokenStore) MarkTokenAsUsed(_ context.Context, jti string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	for _, token := range s.tokens {
		if token.JTI == jti {
			token.Used = true
		}
	}

	return s.save()
}

func (s *FileResetTokenStore) InvalidateForIdentity(_ context.Context, identityID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return err
	}

	for _, token := range s.tokens {
		if token.IdentityID == identityID && !token.Used {
			token.Used = true
		}
	}

	return s.save()
}

func (s *FileResetTokenStore) DeleteExpiredTokens(_ context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.load(); err != nil {
		return 0, err
	}

	now := s.now()
	kept := s.tokens[:0]
	var removed int64
	for _, token := range s.tokens {
		if token.ExpiresAt.After(now) {
			kept = append(kept, token)
		} else {
			removed++
		}
	}
	s.tokens = kept

	return removed, s.save()
}

func (s *FileResetTokenStore) load() error {
	if s.loaded {
		return nil
	}

	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		s.tokens = nil
		s.loaded = true
		return nil
	}
	if err != nil {
		return fmt.Errorf("read reset token file: %w", err)
	}

	if err := json.Unmarshal(data, &s.tokens); err != nil {
		return fmt.Errorf("decode reset token file: %w", err)
	}

	s.loaded = true
	return nil
}

func (s *FileResetTokenStore) save() error {
	if err := os.MkdirAll(filepath.Dir(s.path), 0o755); err != nil {
		return fmt.Errorf("create store directory: %w", err)
	}

	data, err := json.MarshalIndent(s.tokens, "", "  ")
	if err != nil {
		return fmt.Errorf("encode reset token file: %w", err)
	}

	if err := os.WriteFile(s.path, data, 0o600); err != nil {
		return fmt.Errorf("write reset token file: %w", err)
	}

	return nil
}
