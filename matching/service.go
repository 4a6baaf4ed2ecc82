package matching

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotFound is returned by a ProfileStore when no profile has the id.
var ErrNotFound = errors.New("profile not found")

// NotFoundError names the missing subject of a match request.
type NotFoundError struct {
	ID int
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("profile %d not found", e.ID)
}

// Is lets errors.Is(err, ErrNotFound) match a *NotFoundError.
func (e *NotFoundError) Is(target error) bool {
	return target == ErrNotFound
}

// ProfileStore is the collaborator that owns profiles.
// ListExcluding must return profiles in a stable order; that order is the
// tie-break for equal scores.
type ProfileStore interface {
	Get(ctx context.Context, id int) (Profile, error)
	ListExcluding(ctx context.Context, id int) ([]Profile, error)
	Update(ctx context.Context, id int, patch Patch) (Profile, error)
}

// Service resolves profiles through a store and ranks them.
type Service struct {
	store ProfileStore
}

// NewService returns a Service reading from store.
func NewService(store ProfileStore) *Service {
	return &Service{store: store}
}

// ComputeMatches ranks every other profile for subjectID. A missing subject
// yields a *NotFoundError before any scoring happens.
func (s *Service) ComputeMatches(ctx context.Context, subjectID, limit int) ([]MatchResult, error) {
	subject, err := s.store.Get(ctx, subjectID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, &NotFoundError{ID: subjectID}
		}
		return nil, fmt.Errorf("load subject %d: %w", subjectID, err)
	}

	candidates, err := s.store.ListExcluding(ctx, subjectID)
	if err != nil {
		return nil, fmt.Errorf("list candidates for %d: %w", subjectID, err)
	}

	return Rank(subject, candidates, limit), nil
}
