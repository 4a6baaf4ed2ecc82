package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/graph-gophers/dataloader/v7"
)

// LoadersContextKey is the key type for request-scoped loaders.
type LoadersContextKey string

const loadersKey LoadersContextKey = "loaders"

// Loaders batches user lookups made while serving one request.
type Loaders struct {
	UserLoader *dataloader.Loader[int, User]
}

// NewLoaders creates fresh loaders reading from s.
func NewLoaders(s Store) *Loaders {
	return &Loaders{
		UserLoader: dataloader.NewBatchedLoader(userBatchFn(s), dataloader.WithWait[int, User](2*time.Millisecond)),
	}
}

// WithLoaders stores l in ctx.
func WithLoaders(ctx context.Context, l *Loaders) context.Context {
	return context.WithValue(ctx, loadersKey, l)
}

// LoadersFromContext returns the loaders in ctx, or nil.
func LoadersFromContext(ctx context.Context) *Loaders {
	if l, ok := ctx.Value(loadersKey).(*Loaders); ok {
		return l
	}
	return nil
}

// userBatchFn resolves a batch of ids with one UsersByIDs call. Results line
// up with keys; unknown ids carry ErrNotFound.
func userBatchFn(s Store) dataloader.BatchFunc[int, User] {
	return func(ctx context.Context, keys []int) []*dataloader.Result[User] {
		results := make([]*dataloader.Result[User], len(keys))

		users, err := s.UsersByIDs(ctx, keys)
		if err != nil {
			for i := range results {
				results[i] = &dataloader.Result[User]{Error: err}
			}
			return results
		}

		byID := make(map[int]User, len(users))
		for _, u := range users {
			byID[u.ID] = u
		}
		for i, key := range keys {
			if u, ok := byID[key]; ok {
				results[i] = &dataloader.Result[User]{Data: u}
			} else {
				results[i] = &dataloader.Result[User]{Error: fmt.Errorf("user %d: %w", key, ErrNotFound)}
			}
		}
		return results
	}
}

// LoadUsers fetches ids through the request loader when ctx has one, and
// straight from s otherwise. Order follows ids; unknown ids are skipped.
func LoadUsers(ctx context.Context, s Store, ids []int) ([]User, error) {
	l := LoadersFromContext(ctx)
	if l == nil {
		return s.UsersByIDs(ctx, ids)
	}

	users, errs := l.UserLoader.LoadMany(ctx, ids)()
	out := make([]User, 0, len(ids))
	for i, u := range users {
		if i < len(errs) && errs[i] != nil {
			if errors.Is(errs[i], ErrNotFound) {
				continue
			}
			return nil, errs[i]
		}
		out = append(out, u)
	}
	return out, nil
}

// LoadUser fetches one user through the request loader when present.
func LoadUser(ctx context.Context, s Store, id int) (User, error) {
	l := LoadersFromContext(ctx)
	if l == nil {
		return s.UserByID(ctx, id)
	}
	return l.UserLoader.Load(ctx, id)()
}
