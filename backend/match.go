package main

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/kansalharshit22/solace-project/matching"
	"github.com/kansalharshit22/solace-project/store"
	"go.uber.org/zap"
)

// matchView is one entry of a match response.
type matchView struct {
	User  store.PublicUser `json:"user"`
	Score int              `json:"score"`
}

// GET /api/match?user_id=1&limit=10
func (s *server) matchHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodGet {
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}

		q := r.URL.Query()
		userID, err := strconv.Atoi(q.Get("user_id"))
		if err != nil || userID == 0 {
			writeError(w, http.StatusBadRequest, "user_id is required")
			return
		}

		views, err := s.matchesFor(r.Context(), userID, parseLimit(q.Get("limit")))
		var nf *matching.NotFoundError
		if errors.As(err, &nf) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		} else if err != nil {
			s.log.Error("compute matches", zap.Int("user_id", userID), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "match error")
			return
		}
		writeJSON(w, http.StatusOK, views)
	}
}

// parseLimit falls back to the default for a missing or unparsable value.
func parseLimit(raw string) int {
	limit, err := strconv.Atoi(raw)
	if err != nil {
		return matching.DefaultLimit
	}
	return limit
}

// matchesFor ranks candidates for userID and joins the public user records
// in ranked order.
func (s *server) matchesFor(ctx context.Context, userID, limit int) ([]matchView, error) {
	results, err := s.matcher.ComputeMatches(ctx, userID, limit)
	if err != nil {
		return nil, err
	}

	ids := make([]int, len(results))
	for i, res := range results {
		ids[i] = res.Candidate.ID
	}
	users, err := store.LoadUsers(ctx, s.store, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[int]store.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	views := make([]matchView, 0, len(results))
	scores := make([]int, 0, len(results))
	for _, res := range results {
		u, ok := byID[res.Candidate.ID]
		if !ok {
			// Deleted between ranking and loading.
			continue
		}
		views = append(views, matchView{User: u.Public(), Score: res.Score})
		scores = append(scores, res.Score)
	}
	s.metrics.ObserveMatches(scores)
	return views, nil
}
