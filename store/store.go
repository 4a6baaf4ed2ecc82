// Package store keeps campus user accounts and their matchable profiles.
package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/kansalharshit22/solace-project/matching"
)

// ErrNotFound is the same sentinel the matching package uses, so callers can
// test either.
var ErrNotFound = matching.ErrNotFound

// ErrEmailExists is returned when registering an email that is taken.
var ErrEmailExists = errors.New("email already registered")

// User is one registered account together with its profile attributes.
// Tags and Interests keep the labels as the user typed them; matching
// normalizes them.
type User struct {
	ID           int
	Name         string
	Email        string
	PasswordHash string
	Year         sql.NullString
	Department   sql.NullString
	Bio          sql.NullString
	Tags         []string
	Interests    []string
	Personality  sql.NullString
	CreatedAt    time.Time
}

// Profile returns the matchable view of u.
func (u User) Profile() matching.Profile {
	return matching.Profile{
		ID:          u.ID,
		Tags:        matching.NewLabelSet(u.Tags...),
		Interests:   matching.NewLabelSet(u.Interests...),
		Personality: matching.NewPersonality(nullPtr(u.Personality)),
	}
}

// PublicUser is the JSON shape returned to clients.
type PublicUser struct {
	ID          int      `json:"id"`
	Name        string   `json:"name"`
	Email       string   `json:"email"`
	Year        *string  `json:"year"`
	Department  *string  `json:"department"`
	Bio         *string  `json:"bio"`
	Tags        []string `json:"tags"`
	Interests   []string `json:"interests"`
	Personality *string  `json:"personality"`
}

// Public strips the password hash.
func (u User) Public() PublicUser {
	return PublicUser{
		ID:          u.ID,
		Name:        u.Name,
		Email:       u.Email,
		Year:        nullPtr(u.Year),
		Department:  nullPtr(u.Department),
		Bio:         nullPtr(u.Bio),
		Tags:        nonNil(u.Tags),
		Interests:   nonNil(u.Interests),
		Personality: nullPtr(u.Personality),
	}
}

// UserPatch is a partial update. Nil fields keep their value.
type UserPatch struct {
	Name       *string
	Year       *sql.NullString
	Department *sql.NullString
	Bio        *sql.NullString
	Profile    matching.Patch
}

// Apply returns u with the patch applied.
func (u User) Apply(p UserPatch) User {
	if p.Name != nil {
		u.Name = *p.Name
	}
	if p.Year != nil {
		u.Year = *p.Year
	}
	if p.Department != nil {
		u.Department = *p.Department
	}
	if p.Bio != nil {
		u.Bio = *p.Bio
	}
	if p.Profile.Tags != nil {
		u.Tags = nonNil(*p.Profile.Tags)
	}
	if p.Profile.Interests != nil {
		u.Interests = nonNil(*p.Profile.Interests)
	}
	if p.Profile.Personality != nil {
		u.Personality = *p.Profile.Personality
	}
	u.Tags = nonNil(u.Tags)
	u.Interests = nonNil(u.Interests)
	return u
}

// Store is the account and profile repository.
type Store interface {
	CreateUser(ctx context.Context, u *User) error
	UserByID(ctx context.Context, id int) (User, error)
	UserByEmail(ctx context.Context, email string) (User, error)
	// UsersByIDs returns the users in the order of ids, skipping unknown ids.
	UsersByIDs(ctx context.Context, ids []int) ([]User, error)
	// ListUsersExcluding returns every other user by ascending id.
	ListUsersExcluding(ctx context.Context, id int) ([]User, error)
	UpdateUser(ctx context.Context, id int, patch UserPatch) (User, error)
}

// normalizeEmail is applied on every write and lookup so emails compare
// case-insensitively in every Store.
func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func nullPtr(n sql.NullString) *string {
	if !n.Valid {
		return nil
	}
	s := n.String
	return &s
}

func nonNil(s []string) []string {
	if s == nil {
		return []string{}
	}
	return s
}
