package matching_test

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/kansalharshit22/solace-project/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeStore struct {
	profiles []matching.Profile
	listErr  error
	listed   int
}

func (f *fakeStore) Get(_ context.Context, id int) (matching.Profile, error) {
	for _, p := range f.profiles {
		if p.ID == id {
			return p, nil
		}
	}
	return matching.Profile{}, fmt.Errorf("get %d: %w", id, matching.ErrNotFound)
}

func (f *fakeStore) ListExcluding(_ context.Context, id int) ([]matching.Profile, error) {
	f.listed++
	if f.listErr != nil {
		return nil, f.listErr
	}
	var out []matching.Profile
	for _, p := range f.profiles {
		if p.ID != id {
			out = append(out, p)
		}
	}
	return out, nil
}

func (f *fakeStore) Update(_ context.Context, id int, patch matching.Patch) (matching.Profile, error) {
	for i, p := range f.profiles {
		if p.ID == id {
			f.profiles[i] = p.Apply(patch)
			return f.profiles[i], nil
		}
	}
	return matching.Profile{}, matching.ErrNotFound
}

func newFakeStore() *fakeStore {
	return &fakeStore{profiles: []matching.Profile{
		matching.NewProfile(1, []string{"Study Buddy", "Sports Partner"}, []string{"AI", "Football"}, nil),
		matching.NewProfile(2, []string{"Study Buddy"}, []string{"Football"}, nil),
		matching.NewProfile(3, []string{"Gym"}, []string{"Painting"}, nil),
		matching.NewProfile(4, []string{"study buddy", "sports partner"}, []string{"ai", "football"}, nil),
	}}
}

func TestComputeMatches(t *testing.T) {
	ctx := context.Background()

	t.Run("Ranks everyone except the subject", func(t *testing.T) {
		svc := matching.NewService(newFakeStore())

		results, err := svc.ComputeMatches(ctx, 1, matching.DefaultLimit)
		require.NoError(t, err)
		require.Len(t, results, 3)

		assert.Equal(t, 4, results[0].Candidate.ID)
		assert.Equal(t, 100, results[0].Score)
		assert.Equal(t, 2, results[1].Candidate.ID)
		assert.Equal(t, 50, results[1].Score)
		assert.Equal(t, 3, results[2].Candidate.ID)
		assert.Equal(t, 0, results[2].Score)
	})

	t.Run("Applies the limit", func(t *testing.T) {
		svc := matching.NewService(newFakeStore())

		results, err := svc.ComputeMatches(ctx, 1, 1)
		require.NoError(t, err)
		assert.Len(t, results, 1)

		results, err = svc.ComputeMatches(ctx, 1, 0)
		require.NoError(t, err)
		assert.Empty(t, results)
	})

	t.Run("Missing subject is reported before scoring", func(t *testing.T) {
		store := newFakeStore()
		svc := matching.NewService(store)

		results, err := svc.ComputeMatches(ctx, 99, 20)
		require.Error(t, err)
		assert.Nil(t, results)
		assert.True(t, errors.Is(err, matching.ErrNotFound))

		var nf *matching.NotFoundError
		require.True(t, errors.As(err, &nf))
		assert.Equal(t, 99, nf.ID)
		assert.Equal(t, 0, store.listed, "candidates must not be listed for a missing subject")
	})

	t.Run("Store failures are wrapped", func(t *testing.T) {
		boom := errors.New("connection reset")
		store := newFakeStore()
		store.listErr = boom
		svc := matching.NewService(store)

		_, err := svc.ComputeMatches(ctx, 1, 20)
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
		assert.False(t, errors.Is(err, matching.ErrNotFound))
	})

	t.Run("Safe for concurrent use", func(t *testing.T) {
		store := newFakeStore()
		subject := store.profiles[0]
		candidates := store.profiles[1:]
		want := matching.Rank(subject, candidates, 20)

		var wg sync.WaitGroup
		errs := make(chan error, 16)
		for i := 0; i < 16; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				got := matching.Rank(subject, candidates, 20)
				for j := range got {
					if got[j].Candidate.ID != want[j].Candidate.ID || got[j].Score != want[j].Score {
						errs <- fmt.Errorf("result %d differs: %+v vs %+v", j, got[j], want[j])
						return
					}
				}
			}()
		}
		wg.Wait()
		close(errs)
		for err := range errs {
			t.Error(err)
		}
	})
}
