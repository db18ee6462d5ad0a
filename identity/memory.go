package identity

import (
	"context"
	"sync"
	"time"
)

// MemoryRepository implements Repository entirely in process. It is the
// simulated persistence used by the default wiring and by tests. Uniqueness
// checks and inserts happen under one lock so concurrent signups serialize.
type MemoryRepository struct {
	mu     sync.RWMutex
	byID   map[int64]User
	nextID int64
}

// NewMemoryRepository creates an empty in-memory identity store.
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{byID: make(map[int64]User)}
}

func (r *MemoryRepository) CreateUser(ctx context.Context, params CreateUserParams) (User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.byID {
		if u.Username == params.Username {
			return User{}, ErrDuplicateUsername
		}
		if u.Email == params.Email {
			return User{}, ErrDuplicateEmail
		}
	}

	r.nextID++
	user := User{
		ID:           r.nextID,
		Username:     params.Username,
		Email:        params.Email,
		PasswordHash: params.PasswordHash,
		Role:         params.Role,
		CreatedAt:    time.Now().UTC(),
	}
	r.byID[user.ID] = user
	return user, nil
}

func (r *MemoryRepository) GetUserByEmail(ctx context.Context, email string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Email == email {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}

func (r *MemoryRepository) GetUserByID(ctx context.Context, userID int64) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	u, ok := r.byID[userID]
	if !ok {
		return User{}, ErrUserNotFound
	}
	return u, nil
}

func (r *MemoryRepository) GetUserByUsername(ctx context.Context, username string) (User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	for _, u := range r.byID {
		if u.Username == username {
			return u, nil
		}
	}
	return User{}, ErrUserNotFound
}
