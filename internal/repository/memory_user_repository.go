package repository

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/spec-kit/diagnostic-login/internal/domain"
)

// MemoryUserRepository keeps users in process memory. It backs the service when
// no Postgres DSN is configured and in tests.
type MemoryUserRepository struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*domain.User
}

// NewMemoryUserRepository returns an empty repository.
func NewMemoryUserRepository() *MemoryUserRepository {
	return &MemoryUserRepository{byID: make(map[int64]*domain.User)}
}

func (r *MemoryUserRepository) Create(_ context.Context, user *domain.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, existing := range r.byID {
		if existing.Username == user.Username {
			return fmt.Errorf("user %q: %w", user.Username, ErrDuplicate)
		}
	}

	r.nextID++
	now := time.Now().UTC()
	user.ID = r.nextID
	user.CreatedAt = now
	user.UpdatedAt = now

	stored := *user
	r.byID[user.ID] = &stored
	return nil
}

func (r *MemoryUserRepository) GetByID(_ context.Context, id int64) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	user, ok := r.byID[id]
	if !ok {
		return nil, ErrNotFound
	}
	out := *user
	return &out, nil
}

func (r *MemoryUserRepository) GetByUsername(_ context.Context, username string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, user := range r.byID {
		if user.Username == username {
			out := *user
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *MemoryUserRepository) ListCustomers(_ context.Context) ([]*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	users := make([]*domain.User, 0, len(r.byID))
	for _, user := range r.byID {
		if user.IsCustomer() {
			out := *user
			users = append(users, &out)
		}
	}
	sort.Slice(users, func(i, j int) bool { return users[i].Username < users[j].Username })
	return users, nil
}

// SetActive toggles the active flag of a stored user.
func (r *MemoryUserRepository) SetActive(id int64, active bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	user, ok := r.byID[id]
	if !ok {
		return ErrNotFound
	}
	user.IsActive = active
	user.UpdatedAt = time.Now().UTC()
	return nil
}
