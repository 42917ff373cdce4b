// Package session persists the remote session secret between client runs.
package session

import (
	"context"
	"errors"
	"sync"
	"time"
)

// ErrNoSession is returned by Load when no secret is stored.
var ErrNoSession = errors.New("no stored session")

// Record is what a Store keeps for one project.
type Record struct {
	Secret    string    `yaml:"secret" json:"secret"`
	UserID    string    `yaml:"user_id,omitempty" json:"user_id,omitempty"`
	SavedAt   time.Time `yaml:"saved_at" json:"saved_at"`
	ExpiresAt time.Time `yaml:"expires_at,omitempty" json:"expires_at,omitempty"`
}

// Expired reports whether the record carries an expiry in the past.
func (r Record) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && now.After(r.ExpiresAt)
}

// Store abstracts session secret persistence.
// Implementations: file (default for the CLI), Redis (shared hosts), memory (tests).
type Store interface {
	Load(ctx context.Context) (Record, error)
	Save(ctx context.Context, rec Record) error
	Clear(ctx context.Context) error
}

// MemoryStore keeps the record in process memory.
type MemoryStore struct {
	mu  sync.Mutex
	rec *Record
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Load(_ context.Context) (Record, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return Record{}, ErrNoSession
	}
	return *s.rec, nil
}

func (s *MemoryStore) Save(_ context.Context, rec Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = &rec
	return nil
}

func (s *MemoryStore) Clear(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

var _ Store = (*MemoryStore)(nil)
