package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kansalharshit22/solace-project/matching"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupPostgres connects to TEST_DATABASE_URL, e.g.
// "host=localhost port=5433 user=campus password=campus dbname=campus_test sslmode=disable".
func setupPostgres(t *testing.T) *Postgres {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set; skipping Postgres tests")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	pg, err := Open(ctx, dsn)
	require.NoError(t, err)
	require.NoError(t, pg.Migrate(ctx))
	t.Cleanup(func() { pg.Close() })
	return pg
}

func uniqueEmail(prefix string) string {
	return fmt.Sprintf("%s_%d@thapar.edu", prefix, time.Now().UnixNano())
}

func cleanupUsers(pg *Postgres, ids ...int) {
	for _, id := range ids {
		pg.DB().Exec("DELETE FROM users WHERE id = $1", id)
	}
}

func TestPostgresUserLifecycle(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	u := User{
		Name:         "Aarav",
		Email:        uniqueEmail("pg_life"),
		PasswordHash: "hash",
		Year:         sql.NullString{String: "2", Valid: true},
		Tags:         []string{"Study Buddy", "Sports Partner"},
		Interests:    []string{"AI", "Football"},
	}
	require.NoError(t, pg.CreateUser(ctx, &u))
	defer cleanupUsers(pg, u.ID)
	assert.NotZero(t, u.ID)

	t.Run("Duplicate email", func(t *testing.T) {
		dup := User{Name: "Dup", Email: u.Email, PasswordHash: "x"}
		assert.ErrorIs(t, pg.CreateUser(ctx, &dup), ErrEmailExists)
	})

	t.Run("Lookup by id and email", func(t *testing.T) {
		got, err := pg.UserByID(ctx, u.ID)
		require.NoError(t, err)
		assert.Equal(t, u.Tags, got.Tags)
		assert.Equal(t, "2", got.Year.String)
		assert.False(t, got.Personality.Valid)

		got, err = pg.UserByEmail(ctx, u.Email)
		require.NoError(t, err)
		assert.Equal(t, u.ID, got.ID)
	})

	t.Run("Missing user", func(t *testing.T) {
		_, err := pg.UserByID(ctx, -1)
		assert.True(t, errors.Is(err, matching.ErrNotFound))
	})

	t.Run("Partial update", func(t *testing.T) {
		interests := []string{"Chess"}
		personality := sql.NullString{String: "INTJ", Valid: true}
		got, err := pg.UpdateUser(ctx, u.ID, UserPatch{Profile: matching.Patch{
			Interests:   &interests,
			Personality: &personality,
		}})
		require.NoError(t, err)
		assert.Equal(t, []string{"Chess"}, got.Interests)
		assert.Equal(t, u.Tags, got.Tags)
		assert.Equal(t, "INTJ", got.Personality.String)

		_, err = pg.UpdateUser(ctx, -1, UserPatch{})
		assert.ErrorIs(t, err, ErrNotFound)
	})
}

func TestPostgresListingOrder(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	var ids []int
	for i := 0; i < 3; i++ {
		u := User{Name: fmt.Sprintf("Order %d", i), Email: uniqueEmail(fmt.Sprintf("pg_order%d", i)), PasswordHash: "x"}
		require.NoError(t, pg.CreateUser(ctx, &u))
		ids = append(ids, u.ID)
	}
	defer cleanupUsers(pg, ids...)

	users, err := pg.ListUsersExcluding(ctx, ids[0])
	require.NoError(t, err)
	for i := 1; i < len(users); i++ {
		assert.Less(t, users[i-1].ID, users[i].ID)
	}
	for _, u := range users {
		assert.NotEqual(t, ids[0], u.ID)
	}

	got, err := pg.UsersByIDs(ctx, []int{ids[2], -5, ids[1]})
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, ids[2], got[0].ID)
	assert.Equal(t, ids[1], got[1].ID)
}

func TestPostgresSeed(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	email := uniqueEmail("pg_seed")
	users := []User{
		{Name: "Seed A", Email: email, PasswordHash: "x", Tags: []string{"Gym"}},
		{Name: "Seed B", Email: uniqueEmail("pg_seed_b"), PasswordHash: "x"},
	}
	ids, err := pg.Seed(ctx, users, false)
	require.NoError(t, err)
	require.Len(t, ids, 2)
	defer cleanupUsers(pg, ids...)

	// Reseeding the same email updates in place.
	again, err := pg.Seed(ctx, []User{{Name: "Seed A2", Email: email, PasswordHash: "y", Interests: []string{"AI"}}}, false)
	require.NoError(t, err)
	assert.Equal(t, ids[0], again[0])

	got, err := pg.UserByID(ctx, ids[0])
	require.NoError(t, err)
	assert.Equal(t, "Seed A2", got.Name)
	assert.Equal(t, []string{}, got.Tags)
	assert.Equal(t, []string{"AI"}, got.Interests)
}

func TestPostgresSeedTruncateRollsBack(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	keep := User{Name: "Keep", Email: uniqueEmail("pg_keep"), PasswordHash: "x"}
	require.NoError(t, pg.CreateUser(ctx, &keep))
	defer cleanupUsers(pg, keep.ID)

	// name is VARCHAR(120); the insert fails after the truncate ran.
	bad := User{Name: strings.Repeat("n", 200), Email: uniqueEmail("pg_bad"), PasswordHash: "x"}
	_, err := pg.Seed(ctx, []User{bad}, true)
	require.Error(t, err)

	got, err := pg.UserByID(ctx, keep.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keep", got.Name)
}

func TestPostgresEmailCase(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	mixed := strings.ToUpper(uniqueEmail("pg_case"))
	u := User{Name: "Case", Email: "  " + mixed + " ", PasswordHash: "x"}
	require.NoError(t, pg.CreateUser(ctx, &u))
	defer cleanupUsers(pg, u.ID)
	assert.Equal(t, strings.ToLower(mixed), u.Email)

	got, err := pg.UserByEmail(ctx, mixed)
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	dup := User{Name: "Dup", Email: strings.ToLower(mixed), PasswordHash: "x"}
	assert.ErrorIs(t, pg.CreateUser(ctx, &dup), ErrEmailExists)

	seeded := strings.ToUpper(uniqueEmail("pg_case_seed"))
	ids, err := pg.Seed(ctx, []User{{Name: "Seeded", Email: seeded, PasswordHash: "x"}}, false)
	require.NoError(t, err)
	defer cleanupUsers(pg, ids...)
	got, err = pg.UserByEmail(ctx, strings.ToLower(seeded))
	require.NoError(t, err)
	assert.Equal(t, ids[0], got.ID)
}

func TestWithTx(t *testing.T) {
	pg := setupPostgres(t)
	ctx := context.Background()

	t.Run("Commit", func(t *testing.T) {
		err := withTx(ctx, pg.DB(), func(tx *sql.Tx) error {
			_, err := tx.Exec("SELECT 1")
			return err
		})
		assert.NoError(t, err)
	})

	t.Run("Rollback on error", func(t *testing.T) {
		testErr := errors.New("test error")
		err := withTx(ctx, pg.DB(), func(tx *sql.Tx) error { return testErr })
		assert.Equal(t, testErr, err)
	})

	t.Run("Panic is re-raised", func(t *testing.T) {
		assert.Panics(t, func() {
			_ = withTx(ctx, pg.DB(), func(tx *sql.Tx) error { panic("test panic") })
		})
	})
}

func TestLabelCodec(t *testing.T) {
	s, err := encodeLabels(nil)
	require.NoError(t, err)
	assert.Equal(t, "[]", s)

	assert.Equal(t, []string{}, decodeLabels(nil))
	assert.Equal(t, []string{}, decodeLabels([]byte("null")))
	assert.Equal(t, []string{}, decodeLabels([]byte("{not json")))
	assert.Equal(t, []string{"AI", "Football"}, decodeLabels([]byte(`["AI","Football"]`)))
}
