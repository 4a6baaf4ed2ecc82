package main

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/kansalharshit22/solace-project/store"
	"go.uber.org/zap"
)

// usersDispatcher routes GET and PUT /api/users/{id}.
func (s *server) usersDispatcher() http.HandlerFunc {
	get := s.getUserHandler()
	put := s.authenticate(s.updateUserHandler())
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			get(w, r)
		case http.MethodPut:
			put(w, r)
		default:
			writeError(w, http.StatusMethodNotAllowed, "method not allowed")
		}
	}
}

func (s *server) getUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r.URL.Path, "api", "users")
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}

		u, err := store.LoadUser(r.Context(), s.store, id)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		} else if err != nil {
			s.log.Error("load user", zap.Int("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}
		writeJSON(w, http.StatusOK, u.Public())
	}
}

// PUT /api/users/{id} - partial update, only by the owner of the account
func (s *server) updateUserHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id, ok := pathID(r.URL.Path, "api", "users")
		if !ok {
			writeError(w, http.StatusNotFound, "not found")
			return
		}
		if callerID := r.Context().Value(userIDKey).(int); callerID != id {
			writeError(w, http.StatusForbidden, "forbidden")
			return
		}

		var fields map[string]json.RawMessage
		if err := decodeJSON(r, &fields); err != nil {
			writeError(w, http.StatusBadRequest, "invalid json")
			return
		}
		patch, err := parseUserPatch(fields)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}

		u, err := s.store.UpdateUser(r.Context(), id, patch)
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		} else if err != nil {
			s.log.Error("update user", zap.Int("user_id", id), zap.Error(err))
			writeError(w, http.StatusInternalServerError, "db error")
			return
		}

		s.feed.refresh()
		writeJSON(w, http.StatusOK, map[string]interface{}{"message": "updated", "user": u.Public()})
	}
}

// parseUserPatch turns the present keys of a JSON object into a patch.
// Absent keys keep their value; null clears optional fields and empties
// label lists.
func parseUserPatch(fields map[string]json.RawMessage) (store.UserPatch, error) {
	var p store.UserPatch

	if raw, ok := fields["name"]; ok {
		var name string
		if err := json.Unmarshal(raw, &name); err != nil || strings.TrimSpace(name) == "" {
			return p, errors.New("name must be a non-empty string")
		}
		name = strings.TrimSpace(name)
		p.Name = &name
	}

	optional := []struct {
		key string
		dst **sql.NullString
	}{
		{"year", &p.Year},
		{"department", &p.Department},
		{"bio", &p.Bio},
		{"personality", &p.Profile.Personality},
	}
	for _, f := range optional {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		var v *string
		if err := json.Unmarshal(raw, &v); err != nil {
			return p, errors.New(f.key + " must be a string or null")
		}
		ns := nullString(v)
		*f.dst = &ns
	}

	labels := []struct {
		key string
		dst **[]string
	}{
		{"tags", &p.Profile.Tags},
		{"interests", &p.Profile.Interests},
	}
	for _, f := range labels {
		raw, ok := fields[f.key]
		if !ok {
			continue
		}
		var v []string
		if err := json.Unmarshal(raw, &v); err != nil {
			return p, errors.New(f.key + " must be a list of strings")
		}
		if v == nil {
			v = []string{}
		}
		*f.dst = &v
	}
	return p, nil
}

func nullString(v *string) sql.NullString {
	if v == nil {
		return sql.NullString{}
	}
	return sql.NullString{String: *v, Valid: true}
}
