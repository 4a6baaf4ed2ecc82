package store

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"
)

// Memory is an in-process Store. Listing order is ascending id.
type Memory struct {
	mu     sync.RWMutex
	nextID int
	users  map[int]User
}

// NewMemory returns an empty Memory store.
func NewMemory() *Memory {
	return &Memory{nextID: 1, users: make(map[int]User)}
}

func (m *Memory) CreateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	u.Email = normalizeEmail(u.Email)
	for _, existing := range m.users {
		if existing.Email == u.Email {
			return ErrEmailExists
		}
	}
	u.ID = m.nextID
	m.nextID++
	u.Tags = nonNil(u.Tags)
	u.Interests = nonNil(u.Interests)
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
	}
	m.users[u.ID] = copyUser(*u)
	return nil
}

func (m *Memory) UserByID(_ context.Context, id int) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	return copyUser(u), nil
}

func (m *Memory) UserByEmail(_ context.Context, email string) (User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	email = normalizeEmail(email)
	for _, u := range m.users {
		if u.Email == email {
			return copyUser(u), nil
		}
	}
	return User{}, fmt.Errorf("user %q: %w", email, ErrNotFound)
}

func (m *Memory) UsersByIDs(_ context.Context, ids []int) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(ids))
	for _, id := range ids {
		if u, ok := m.users[id]; ok {
			out = append(out, copyUser(u))
		}
	}
	return out, nil
}

func (m *Memory) ListUsersExcluding(_ context.Context, id int) ([]User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make([]User, 0, len(m.users))
	for uid, u := range m.users {
		if uid != id {
			out = append(out, copyUser(u))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (m *Memory) UpdateUser(_ context.Context, id int, patch UserPatch) (User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	u, ok := m.users[id]
	if !ok {
		return User{}, fmt.Errorf("user %d: %w", id, ErrNotFound)
	}
	u = u.Apply(patch)
	m.users[id] = copyUser(u)
	return copyUser(u), nil
}

// copyUser detaches the label slices so callers cannot mutate stored state.
func copyUser(u User) User {
	u.Tags = append([]string{}, u.Tags...)
	u.Interests = append([]string{}, u.Interests...)
	return u
}
