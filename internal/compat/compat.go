// Package compat scores how well two occupants would share a room. Everything here is pure.
package compat

import (
	"slices"
	"strings"

	"hostel-allocation-backend/internal/model"
)

const (
	studyWeight       = 20
	sleepWeight       = 15
	noiseWeight       = 25
	cleanlinessWeight = 20
	genderWeight      = 20
)

// Profile is a fine-grained lifestyle profile. Empty fields are "not stated".
type Profile struct {
	StudyTime        string
	SleepTime        string
	NoiseLevel       string
	Cleanliness      string
	Interests        string
	GenderPreference string
}

// ProfileOf converts a stored preference. A nil preference gives the zero Profile.
func ProfileOf(p *model.Preference) Profile {
	if p == nil {
		return Profile{}
	}
	return Profile{
		StudyTime:        p.StudyTime,
		SleepTime:        p.SleepTime,
		NoiseLevel:       p.NoiseLevel,
		Cleanliness:      p.Cleanliness,
		Interests:        p.Interests,
		GenderPreference: p.GenderPreference,
	}
}

// Basic is the coarse attribute set every occupant has.
type Basic struct {
	Gender        string
	Affiliation   string
	PreferenceTag string
}

// BasicOf extracts the coarse attributes of an occupant.
func BasicOf(o model.Occupant) Basic {
	return Basic{Gender: o.Gender, Affiliation: o.Affiliation, PreferenceTag: o.PreferenceTag}
}

func flexible(v string) bool {
	return strings.EqualFold(v, "flexible") || strings.EqualFold(v, "any")
}

// factor reports whether both sides stated a value and whether they agree.
func factor(a, b string) (considered, compatible bool) {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	if a == "" || b == "" {
		return false, false
	}
	return true, strings.EqualFold(a, b) || flexible(a) || flexible(b)
}

// Score is the fine-grained score: the weights earned by compatible factors divided
// by the number of factors both profiles state, truncated. Interests are not weighted.
// It returns 0 when no factor is comparable.
func Score(a, b Profile) int {
	factors := []struct {
		a, b   string
		weight int
	}{
		{a.StudyTime, b.StudyTime, studyWeight},
		{a.SleepTime, b.SleepTime, sleepWeight},
		{a.NoiseLevel, b.NoiseLevel, noiseWeight},
		{a.Cleanliness, b.Cleanliness, cleanlinessWeight},
		{a.GenderPreference, b.GenderPreference, genderWeight},
	}

	earned, considered := 0, 0
	for _, f := range factors {
		ok, match := factor(f.a, f.b)
		if !ok {
			continue
		}
		considered++
		if match {
			earned += f.weight
		}
	}
	if considered == 0 {
		return 0
	}
	return earned / considered
}

// Comparable reports whether Score has at least one factor to work with.
func Comparable(a, b Profile) bool {
	for _, pair := range [][2]string{
		{a.StudyTime, b.StudyTime},
		{a.SleepTime, b.SleepTime},
		{a.NoiseLevel, b.NoiseLevel},
		{a.Cleanliness, b.Cleanliness},
		{a.GenderPreference, b.GenderPreference},
	} {
		if ok, _ := factor(pair[0], pair[1]); ok {
			return true
		}
	}
	return false
}

// Coarse scores basic attributes: gender +2, affiliation +1, preference tag +3.
func Coarse(a, b Basic) int {
	score := 0
	if same(a.Gender, b.Gender) {
		score += 2
	}
	if same(a.Affiliation, b.Affiliation) {
		score += 1
	}
	if same(a.PreferenceTag, b.PreferenceTag) {
		score += 3
	}
	return score
}

func same(a, b string) bool {
	a, b = strings.TrimSpace(a), strings.TrimSpace(b)
	return a != "" && strings.EqualFold(a, b)
}

// Method names the scoring variant used by Evaluate.
type Method string

const (
	MethodFine   Method = "fine"
	MethodCoarse Method = "coarse"
)

// Candidate is an occupant as seen by the scorer.
type Candidate struct {
	ID      int64
	Basic   Basic
	Profile Profile
}

// CandidateOf builds a Candidate from a loaded occupant.
func CandidateOf(o model.Occupant) Candidate {
	return Candidate{ID: o.ID, Basic: BasicOf(o), Profile: ProfileOf(o.Preference)}
}

// Evaluate uses the fine score when the profiles share a stated factor and the
// coarse score otherwise.
func Evaluate(a, b Candidate) (int, Method) {
	if Comparable(a.Profile, b.Profile) {
		return Score(a.Profile, b.Profile), MethodFine
	}
	return Coarse(a.Basic, b.Basic), MethodCoarse
}

// Average evaluates target against each roommate and returns the truncated mean.
// ok is false when there are no roommates.
func Average(target Candidate, roommates []Candidate) (score int, ok bool) {
	if len(roommates) == 0 {
		return 0, false
	}
	total := 0
	for _, r := range roommates {
		s, _ := Evaluate(target, r)
		total += s
	}
	return total / len(roommates), true
}

// Ranked is one scored candidate.
type Ranked struct {
	OccupantID int64  `json:"occupantId"`
	Score      int    `json:"score"`
	Method     Method `json:"method"`
}

// Rank scores candidates against target, best first with ties by id. The target
// itself is skipped. limit <= 0 returns everything.
func Rank(target Candidate, candidates []Candidate, limit int) []Ranked {
	out := make([]Ranked, 0, len(candidates))
	for _, c := range candidates {
		if c.ID == target.ID {
			continue
		}
		s, m := Evaluate(target, c)
		out = append(out, Ranked{OccupantID: c.ID, Score: s, Method: m})
	}
	slices.SortStableFunc(out, func(a, b Ranked) int {
		if a.Score != b.Score {
			return b.Score - a.Score
		}
		switch {
		case a.OccupantID < b.OccupantID:
			return -1
		case a.OccupantID > b.OccupantID:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
