// Package matching scores campus profiles against each other and ranks
// candidates for a subject. Everything here is a pure function of its
// inputs and is safe to call from many goroutines at once.
package matching

import (
	"database/sql"
	"sort"
	"strings"
)

// LabelSet is a set of lower-cased free-text labels.
type LabelSet map[string]struct{}

// NewLabelSet folds every label to lower case and collapses duplicates.
// It never returns nil.
func NewLabelSet(raw ...string) LabelSet {
	s := make(LabelSet, len(raw))
	for _, label := range raw {
		s[strings.ToLower(label)] = struct{}{}
	}
	return s
}

// Len returns the number of distinct labels.
func (s LabelSet) Len() int { return len(s) }

// Has reports whether label (in any case) is in the set.
func (s LabelSet) Has(label string) bool {
	_, ok := s[strings.ToLower(label)]
	return ok
}

// Sorted returns the labels in ascending order.
func (s LabelSet) Sorted() []string {
	out := make([]string, 0, len(s))
	for label := range s {
		out = append(out, label)
	}
	sort.Strings(out)
	return out
}

// Profile holds the matchable attributes of one user.
type Profile struct {
	ID          int
	Tags        LabelSet
	Interests   LabelSet
	Personality sql.NullString
}

// NewProfile builds a normalized profile. A nil or empty personality means
// "no signal".
func NewProfile(id int, tags, interests []string, personality *string) Profile {
	return Profile{
		ID:          id,
		Tags:        NewLabelSet(tags...),
		Interests:   NewLabelSet(interests...),
		Personality: NewPersonality(personality),
	}
}

// NewPersonality turns an optional raw label into a NullString. The empty
// string counts as absent.
func NewPersonality(p *string) sql.NullString {
	if p == nil || *p == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: *p, Valid: true}
}

// Patch is a partial profile update. Nil fields keep their prior value.
type Patch struct {
	Tags        *[]string
	Interests   *[]string
	Personality *sql.NullString
}

// Apply returns a copy of p with the patch applied. The ID never changes.
func (p Profile) Apply(patch Patch) Profile {
	out := p
	if out.Tags == nil {
		out.Tags = LabelSet{}
	}
	if out.Interests == nil {
		out.Interests = LabelSet{}
	}
	if patch.Tags != nil {
		out.Tags = NewLabelSet(*patch.Tags...)
	}
	if patch.Interests != nil {
		out.Interests = NewLabelSet(*patch.Interests...)
	}
	if patch.Personality != nil {
		if patch.Personality.Valid {
			out.Personality = NewPersonality(&patch.Personality.String)
		} else {
			out.Personality = sql.NullString{}
		}
	}
	return out
}

// MatchResult pairs a candidate with its score for one request.
type MatchResult struct {
	Candidate Profile
	Score     int
}
