package promo

import (
	"context"
	"sync"
	"time"

	"github.com/mnhidayatgani/chatbot-sub001/internal/domain"
)

// MemoryStore keeps the promo collection and usage ledger in process memory.
// It backs unit tests and storefronts running without postgres.
type MemoryStore struct {
	mu     sync.Mutex
	promos map[string]*domain.PromoCode
	// per customer, insertion-ordered list of redeemed codes
	usage map[string][]string
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		promos: make(map[string]*domain.PromoCode),
		usage:  make(map[string][]string),
		now:    time.Now,
	}
}

func (s *MemoryStore) Get(_ context.Context, code string) (*domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[code]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) Create(_ context.Context, promo *domain.PromoCode) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.promos[promo.Code]; ok {
		return ErrExists
	}
	cp := *promo
	s.promos[promo.Code] = &cp
	return nil
}

func (s *MemoryStore) SetActive(_ context.Context, code string, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.promos[code]
	if !ok {
		return ErrNotFound
	}
	p.IsActive = active
	return nil
}

// Delete removes the code but keeps its usage history, so a customer who
// redeemed a deleted code is still blocked if the code is recreated.
func (s *MemoryStore) Delete(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.promos[code]; !ok {
		return ErrNotFound
	}
	delete(s.promos, code)
	return nil
}

func (s *MemoryStore) Redeem(_ context.Context, code, customerID string) (*domain.PromoCode, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, used := range s.usage[customerID] {
		if used == code {
			return nil, ErrAlreadyRedeemed
		}
	}

	p, ok := s.promos[code]
	if !ok {
		return nil, ErrNotFound
	}
	if !p.IsActive {
		return nil, ErrInactive
	}
	if p.Expired(s.now()) {
		return nil, ErrExpired
	}
	if p.Exhausted() {
		return nil, ErrExhausted
	}

	p.CurrentUses++
	s.usage[customerID] = append(s.usage[customerID], code)
	cp := *p
	return &cp, nil
}

func (s *MemoryStore) HasRedeemed(_ context.Context, code, customerID string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, used := range s.usage[customerID] {
		if used == code {
			return true, nil
		}
	}
	return false, nil
}

func (s *MemoryStore) CustomerCodes(_ context.Context, customerID string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	codes := make([]string, len(s.usage[customerID]))
	copy(codes, s.usage[customerID])
	return codes, nil
}
