package matching

import (
	"math"
	"sort"
)

// Scoring weights. Tags and interests sum to 1; the personality bonus can
// push the raw score past 1, which is clamped away.
const (
	TagWeight        = 0.6
	InterestWeight   = 0.4
	PersonalityBonus = 0.05

	// DefaultLimit is used when the caller does not ask for a limit.
	DefaultLimit = 20

	maxScore = 100
)

// Score computes the 0-100 affinity of candidate to subject.
func Score(subject, candidate Profile) int {
	tagSim := Similarity(subject.Tags, candidate.Tags)
	interestSim := Similarity(subject.Interests, candidate.Interests)

	bonus := 0.0
	if samePersonality(subject, candidate) {
		bonus = PersonalityBonus
	}

	raw := TagWeight*tagSim + InterestWeight*interestSim + bonus
	return roundScore(math.Min(raw, 1.0) * maxScore)
}

// samePersonality compares labels exactly; two absent labels never match.
func samePersonality(a, b Profile) bool {
	return a.Personality.Valid && b.Personality.Valid && a.Personality.String == b.Personality.String
}

// roundScore rounds half to even and clamps into [0, 100].
func roundScore(v float64) int {
	s := int(math.RoundToEven(v))
	if s < 0 {
		return 0
	}
	if s > maxScore {
		return maxScore
	}
	return s
}

// Rank scores every candidate against subject, orders the results by
// score (highest first, input order among equal scores) and keeps the
// first limit of them. A limit of zero or less yields an empty list.
func Rank(subject Profile, candidates []Profile, limit int) []MatchResult {
	if limit <= 0 {
		return []MatchResult{}
	}

	results := make([]MatchResult, 0, len(candidates))
	for _, c := range candidates {
		results = append(results, MatchResult{Candidate: c, Score: Score(subject, c)})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if len(results) > limit {
		results = results[:limit]
	}
	return results
}
