package main

import (
	"database/sql"
	"fmt"
	"math/rand"
	"strings"

	"github.com/kansalharshit22/solace-project/matching"
	"github.com/kansalharshit22/solace-project/store"
)

const emailDomain = "thapar.edu"

var (
	firstNames = []string{"aarav", "diya", "kabir", "meera", "ishaan", "ananya", "vihaan", "saanvi", "arjun", "kavya", "rohan", "tara", "dev", "nisha", "kiran"}
	lastNames  = []string{"sharma", "verma", "gupta", "singh", "kaur", "mehta", "joshi", "bansal", "garg", "malhotra"}

	tagPool = []string{
		"Study Buddy", "Sports Partner", "Gym Partner", "Project Teammate",
		"Hackathon Team", "Music Jam", "Travel Buddy", "Coding Partner",
	}
	interestPool = []string{
		"AI", "Football", "Cricket", "Music", "Photography", "Chess",
		"Robotics", "Web Development", "Finance", "Dance", "Painting", "Gaming",
	}
	personalities = []string{"INTJ", "INTP", "ENTJ", "ENTP", "INFJ", "INFP", "ENFJ", "ENFP", "ISTJ", "ESTJ", "ISFP", "ESFP"}
	departments   = []string{"CSE", "ECE", "Mechanical", "Civil", "Biotechnology", "Chemical"}
	years         = []string{"1", "2", "3", "4"}
)

// generateUsers builds n deterministic sample users for r. The first user
// always has the same email so there is a known account to log in with.
func generateUsers(r *rand.Rand, n int, pwHash string) []store.User {
	used := make(map[string]struct{}, n)
	users := make([]store.User, 0, n)
	for i := 0; i < n; i++ {
		first, last := pick(r, firstNames), pick(r, lastNames)
		email := "student1@" + emailDomain
		if i > 0 {
			email = uniqueEmail(r, used, first, last)
		}
		used[email] = struct{}{}

		u := store.User{
			Name:         displayName(first, last),
			Email:        email,
			PasswordHash: pwHash,
			Year:         valid(pick(r, years)),
			Department:   valid(pick(r, departments)),
			Tags:         sample(r, tagPool, 1+r.Intn(3)),
			Interests:    sample(r, interestPool, 1+r.Intn(4)),
		}
		// Leave some profiles without a personality.
		if r.Float64() < 0.8 {
			u.Personality = valid(pick(r, personalities))
		}
		if r.Float64() < 0.6 {
			u.Bio = valid(fmt.Sprintf("%s student into %s.", u.Department.String, strings.ToLower(u.Interests[0])))
		}
		users = append(users, u)
	}
	return users
}

func uniqueEmail(r *rand.Rand, used map[string]struct{}, first, last string) string {
	for {
		email := fmt.Sprintf("%s.%s%d@%s", first, last, r.Intn(10000), emailDomain)
		if _, ok := used[email]; !ok {
			return email
		}
	}
}

func displayName(first, last string) string {
	return strings.ToUpper(first[:1]) + first[1:] + " " + strings.ToUpper(last[:1]) + last[1:]
}

func pick(r *rand.Rand, from []string) string {
	return from[r.Intn(len(from))]
}

// sample returns k distinct entries of from in random order.
func sample(r *rand.Rand, from []string, k int) []string {
	if k > len(from) {
		k = len(from)
	}
	out := make([]string, 0, k)
	for _, i := range r.Perm(len(from))[:k] {
		out = append(out, from[i])
	}
	return out
}

func valid(s string) sql.NullString {
	return sql.NullString{String: s, Valid: true}
}

// previewMatches ranks everyone else against the first user, so the log shows
// what the login account will see.
func previewMatches(users []store.User, limit int) []matching.MatchResult {
	if len(users) == 0 {
		return []matching.MatchResult{}
	}
	candidates := make([]matching.Profile, 0, len(users)-1)
	for _, u := range users[1:] {
		candidates = append(candidates, u.Profile())
	}
	return matching.Rank(users[0].Profile(), candidates, limit)
}

// meanTagSimilarity averages the tag similarity of every user to the first.
func meanTagSimilarity(users []store.User) float64 {
	if len(users) < 2 {
		return 0
	}
	var sum float64
	for _, u := range users[1:] {
		sum += matching.SimilarityOf(users[0].Tags, u.Tags)
	}
	return sum / float64(len(users)-1)
}
