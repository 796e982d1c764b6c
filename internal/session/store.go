// Package session holds per-customer conversational state and guarantees
// read-modify-write safety per customer id.
package session

import (
	"context"
	"sync"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// Store is the session persistence collaborator. Get returns a snapshot,
// creating the default session lazily. Update runs fn under a per-customer
// lock: concurrent updates for one customer serialize, updates for
// different customers never block each other.
type Store interface {
	Get(ctx context.Context, customerID string) (*domain.Session, error)
	Update(ctx context.Context, customerID string, fn func(*domain.Session) error) (*domain.Session, error)
}

// MemoryStore keeps sessions in process memory with one lock per customer.
type MemoryStore struct {
	mu       sync.Mutex
	sessions map[string]*memorySession
}

type memorySession struct {
	mu   sync.Mutex
	sess *domain.Session
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{sessions: make(map[string]*memorySession)}
}

func (s *MemoryStore) entry(customerID string) *memorySession {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.sessions[customerID]
	if !ok {
		e = &memorySession{sess: domain.NewSession(customerID)}
		s.sessions[customerID] = e
	}
	return e
}

func (s *MemoryStore) Get(_ context.Context, customerID string) (*domain.Session, error) {
	e := s.entry(customerID)
	e.mu.Lock()
	defer e.mu.Unlock()
	return snapshot(e.sess), nil
}

func (s *MemoryStore) Update(_ context.Context, customerID string, fn func(*domain.Session) error) (*domain.Session, error) {
	e := s.entry(customerID)
	e.mu.Lock()
	defer e.mu.Unlock()

	// fn mutates a copy; the entry is replaced only if fn succeeds, so a
	// failed update never leaves partial state behind.
	next := snapshot(e.sess)
	if err := fn(next); err != nil {
		return nil, err
	}
	e.sess = next
	return snapshot(next), nil
}

func snapshot(sess *domain.Session) *domain.Session {
	cp := *sess
	cp.Cart = make([]domain.CartLine, len(sess.Cart))
	copy(cp.Cart, sess.Cart)
	return &cp
}
