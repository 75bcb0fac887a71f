// Package memory keeps every repository in process memory. It backs
// STORE_DRIVER=memory and the service tests.
package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"inviteai/internal/domain"
)

// Store holds all records behind one mutex, which gives the same atomicity
// the SQL statements have.
type Store struct {
	mu     sync.Mutex
	now    func() time.Time
	users  map[string]*domain.User
	ledger []domain.LedgerEntry
	jobs   map[string]*domain.Job
	units  map[string]*domain.Unit
	themes map[string]*domain.ThemeRecord
}

func NewStore() *Store {
	return &Store{
		now:    time.Now,
		users:  map[string]*domain.User{},
		jobs:   map[string]*domain.Job{},
		units:  map[string]*domain.Unit{},
		themes: map[string]*domain.ThemeRecord{},
	}
}

// SetClock overrides the time source.
func (s *Store) SetClock(now func() time.Time) {
	s.mu.Lock()
	s.now = now
	s.mu.Unlock()
}

// SeedUser creates or replaces a user with the given balance.
func (s *Store) SeedUser(id, email string, balance int) *domain.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := s.now()
	u := &domain.User{ID: id, Email: strings.ToLower(email), CreditBalance: balance, CreatedAt: now, UpdatedAt: now}
	s.users[id] = u
	cp := *u
	return &cp
}

func (s *Store) Users() *UserRepo     { return &UserRepo{s: s} }
func (s *Store) Credits() *CreditRepo { return &CreditRepo{s: s} }
func (s *Store) Jobs() *JobRepo       { return &JobRepo{s: s} }
func (s *Store) Units() *UnitRepo     { return &UnitRepo{s: s} }
func (s *Store) Themes() *ThemeRepo   { return &ThemeRepo{s: s} }

// UserRepo implements domain.UserRepository.
type UserRepo struct{ s *Store }

func (r *UserRepo) Get(_ context.Context, userID string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	u, ok := r.s.users[userID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	cp := *u
	return &cp, nil
}

func (r *UserRepo) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if u := r.s.userByEmailLocked(email); u != nil {
		cp := *u
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (r *UserRepo) Upsert(_ context.Context, email, name string) (*domain.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, domain.ErrInvalidRequest
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	now := r.s.now()
	u := r.s.userByEmailLocked(email)
	if u == nil {
		u = &domain.User{ID: uuid.NewString(), Email: email, CreatedAt: now}
		r.s.users[u.ID] = u
	}
	if name = strings.TrimSpace(name); name != "" {
		u.Name = name
	}
	u.UpdatedAt = now
	cp := *u
	return &cp, nil
}

func (s *Store) userByEmailLocked(email string) *domain.User {
	email = strings.ToLower(strings.TrimSpace(email))
	for _, u := range s.users {
		if u.Email == email {
			return u
		}
	}
	return nil
}

var _ domain.UserRepository = (*UserRepo)(nil)
