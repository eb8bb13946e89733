// Package memstore is an in-process UserStore used by tests and the
// "memory" driver.
package memstore

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/example/farmfresh/internal/models"
	"github.com/example/farmfresh/internal/store"
)

// Store keeps users in a map guarded by a mutex.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*models.User
	byEmail map[string]string
	seq     map[string]uint64
	next    uint64
	now     func() time.Time
}

// New returns an empty Store.
func New() *Store {
	return &Store{
		users:   make(map[string]*models.User),
		byEmail: make(map[string]string),
		seq:     make(map[string]uint64),
		now:     time.Now,
	}
}

// clone returns an independent copy so callers never alias stored state.
func clone(u *models.User) *models.User {
	c := *u
	if u.FarmerDetails != nil {
		d := *u.FarmerDetails
		c.FarmerDetails = &d
	}
	if u.ResetTokenExpiry != nil {
		e := *u.ResetTokenExpiry
		c.ResetTokenExpiry = &e
	}
	return &c
}

func (s *Store) Create(_ context.Context, u *models.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[u.Email]; exists {
		return store.ErrDuplicate
	}
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	now := s.now()
	u.CreatedAt = now
	u.UpdatedAt = now

	s.users[u.ID] = clone(u)
	s.byEmail[u.Email] = u.ID
	s.next++
	s.seq[u.ID] = s.next
	return nil
}

func (s *Store) GetByID(_ context.Context, id string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(u), nil
}

func (s *Store) GetByEmail(_ context.Context, email string) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, store.ErrNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) GetByResetToken(_ context.Context, tokenHash string, now time.Time) (*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, u := range s.users {
		if u.ResetTokenHash == tokenHash && u.HasPendingReset(now) {
			return clone(u), nil
		}
	}
	return nil, store.ErrNotFound
}

func (s *Store) ListByRole(_ context.Context, role models.Role, page store.Page) ([]*models.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := []*models.User{}
	for _, u := range s.users {
		if u.Role == role {
			out = append(out, clone(u))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return s.seq[out[i].ID] > s.seq[out[j].ID]
	})

	if page.Offset > 0 {
		if page.Offset >= len(out) {
			return []*models.User{}, nil
		}
		out = out[page.Offset:]
	}
	if page.Limit > 0 && page.Limit < len(out) {
		out = out[:page.Limit]
	}
	return out, nil
}

func (s *Store) Update(_ context.Context, id string, changes models.UserChanges) (*models.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, store.ErrNotFound
	}
	changes.Apply(u)
	u.UpdatedAt = s.now()
	return clone(u), nil
}

func (s *Store) UpdatePassword(_ context.Context, id, passwordHash string) error {
	return s.mutate(id, func(u *models.User) {
		u.PasswordHash = passwordHash
		u.ResetTokenHash = ""
		u.ResetTokenExpiry = nil
	})
}

func (s *Store) ConsumeResetToken(_ context.Context, id, tokenHash, passwordHash string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok || u.ResetTokenHash != tokenHash || !u.HasPendingReset(now) {
		return store.ErrNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetTokenHash = ""
	u.ResetTokenExpiry = nil
	u.UpdatedAt = s.now()
	return nil
}

func (s *Store) SetResetToken(_ context.Context, id, tokenHash string, expiresAt time.Time) error {
	return s.mutate(id, func(u *models.User) {
		u.ResetTokenHash = tokenHash
		u.ResetTokenExpiry = &expiresAt
	})
}

func (s *Store) ClearResetToken(_ context.Context, id string) error {
	return s.mutate(id, func(u *models.User) {
		u.ResetTokenHash = ""
		u.ResetTokenExpiry = nil
	})
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.seq, id)
	delete(s.users, id)
	return nil
}

func (s *Store) Ping(context.Context) error { return nil }

func (s *Store) Close() error { return nil }

func (s *Store) mutate(id string, fn func(u *models.User)) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return store.ErrNotFound
	}
	fn(u)
	u.UpdatedAt = s.now()
	return nil
}
