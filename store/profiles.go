package store

import (
	"context"

	"github.com/kansalharshit22/solace-project/matching"
)

type profileStore struct {
	users Store
}

// Profiles exposes s as the profile collaborator of the matching service.
func Profiles(s Store) matching.ProfileStore {
	return profileStore{users: s}
}

func (p profileStore) Get(ctx context.Context, id int) (matching.Profile, error) {
	u, err := p.users.UserByID(ctx, id)
	if err != nil {
		return matching.Profile{}, err
	}
	return u.Profile(), nil
}

func (p profileStore) ListExcluding(ctx context.Context, id int) ([]matching.Profile, error) {
	users, err := p.users.ListUsersExcluding(ctx, id)
	if err != nil {
		return nil, err
	}
	out := make([]matching.Profile, 0, len(users))
	for _, u := range users {
		out = append(out, u.Profile())
	}
	return out, nil
}

func (p profileStore) Update(ctx context.Context, id int, patch matching.Patch) (matching.Profile, error) {
	u, err := p.users.UpdateUser(ctx, id, UserPatch{Profile: patch})
	if err != nil {
		return matching.Profile{}, err
	}
	return u.Profile(), nil
}
