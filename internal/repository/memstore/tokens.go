package memstore

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/spec-kit/attendance-service/internal/domain"
	"github.com/spec-kit/attendance-service/internal/repository"
)

// Tokens is an in-memory attendance token store. MarkUsed holds the write
// lock across the check and the flip.
type Tokens struct {
	mu     sync.Mutex
	tokens map[string]domain.AttendanceToken
}

var _ repository.AttendanceTokenRepository = (*Tokens)(nil)

func NewTokens() *Tokens {
	return &Tokens{tokens: make(map[string]domain.AttendanceToken)}
}

func (s *Tokens) Create(_ context.Context, token *domain.AttendanceToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token.ID == "" {
		token.ID = uuid.NewString()
	}
	s.tokens[token.ID] = *token
	return nil
}

func (s *Tokens) FindUnusedByValue(_ context.Context, value string) (*domain.AttendanceToken, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var found *domain.AttendanceToken
	for _, token := range s.tokens {
		if token.Value != value || token.Used {
			continue
		}
		if found == nil || token.IssuedAt.After(found.IssuedAt) {
			t := token
			found = &t
		}
	}
	return found, found != nil, nil
}

func (s *Tokens) MarkUsed(_ context.Context, token *domain.AttendanceToken) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.tokens[token.ID]
	if !ok || stored.Used {
		return false, nil
	}
	stored.Used = true
	s.tokens[token.ID] = stored
	return true, nil
}

func (s *Tokens) DeleteExpiredBefore(_ context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var deleted int64
	for id, token := range s.tokens {
		if token.ExpiresAt.Before(t) {
			delete(s.tokens, id)
			deleted++
		}
	}
	return deleted, nil
}

// Len reports how many tokens are stored, swept or not.
func (s *Tokens) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.tokens)
}
