package compat

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hostel-allocation-backend/internal/model"
)

func TestScore(t *testing.T) {
	testCases := []struct {
		name string
		a, b Profile
		want int
	}{
		{
			name: "nothing comparable",
			a:    Profile{StudyTime: "Morning"},
			b:    Profile{SleepTime: "Early"},
			want: 0,
		},
		{
			name: "single matching factor",
			a:    Profile{NoiseLevel: "Quiet"},
			b:    Profile{NoiseLevel: "quiet"},
			want: 25,
		},
		{
			name: "flexible counts as compatible",
			a:    Profile{StudyTime: "Flexible", SleepTime: "Late"},
			b:    Profile{StudyTime: "Night", SleepTime: "Early"},
			want: 10,
		},
		{
			name: "all five agree",
			a:    Profile{StudyTime: "Night", SleepTime: "Late", NoiseLevel: "Quiet", Cleanliness: "High", GenderPreference: "Any"},
			b:    Profile{StudyTime: "Night", SleepTime: "Late", NoiseLevel: "Quiet", Cleanliness: "High", GenderPreference: "Female"},
			want: 20,
		},
		{
			name: "interests are ignored",
			a:    Profile{Interests: "chess", Cleanliness: "Low"},
			b:    Profile{Interests: "chess", Cleanliness: "High"},
			want: 0,
		},
	}
	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Score(tc.a, tc.b))
			assert.Equal(t, tc.want, Score(tc.b, tc.a), "score must be symmetric")
		})
	}
}

func TestScoreSymmetryAcrossProfiles(t *testing.T) {
	values := []string{"", "Morning", "Night", "Flexible", "Any"}
	var profiles []Profile
	for _, v1 := range values {
		for _, v2 := range values {
			profiles = append(profiles,
				Profile{StudyTime: v1, NoiseLevel: v2},
				Profile{SleepTime: v1, GenderPreference: v2, Cleanliness: v1},
			)
		}
	}
	for _, a := range profiles {
		for _, b := range profiles {
			require.Equal(t, Score(a, b), Score(b, a), "a=%+v b=%+v", a, b)
		}
	}
}

func TestCoarse(t *testing.T) {
	a := Basic{Gender: "F", Affiliation: "CS", PreferenceTag: "quiet"}
	assert.Equal(t, 6, Coarse(a, Basic{Gender: "f", Affiliation: "cs", PreferenceTag: "Quiet"}))
	assert.Equal(t, 2, Coarse(a, Basic{Gender: "F", Affiliation: "EE"}))
	assert.Equal(t, 0, Coarse(Basic{}, Basic{}), "blank attributes never match")
}

func TestEvaluateFallsBackToCoarse(t *testing.T) {
	a := CandidateOf(model.Occupant{ID: 1, Gender: "M", PreferenceTag: "sporty"})
	b := CandidateOf(model.Occupant{ID: 2, Gender: "M", PreferenceTag: "sporty"})

	score, method := Evaluate(a, b)
	assert.Equal(t, MethodCoarse, method)
	assert.Equal(t, 5, score)

	a.Profile = Profile{NoiseLevel: "Loud"}
	b.Profile = Profile{NoiseLevel: "Loud"}
	score, method = Evaluate(a, b)
	assert.Equal(t, MethodFine, method)
	assert.Equal(t, 25, score)
}

func TestAverage(t *testing.T) {
	target := Candidate{ID: 1, Profile: Profile{NoiseLevel: "Quiet"}}
	_, ok := Average(target, nil)
	assert.False(t, ok)

	score, ok := Average(target, []Candidate{
		{ID: 2, Profile: Profile{NoiseLevel: "Quiet"}},
		{ID: 3, Profile: Profile{NoiseLevel: "Loud"}},
	})
	require.True(t, ok)
	assert.Equal(t, 12, score)
}

func TestRank(t *testing.T) {
	target := Candidate{ID: 1, Profile: Profile{StudyTime: "Night"}}
	candidates := []Candidate{
		target,
		{ID: 4, Profile: Profile{StudyTime: "Morning"}},
		{ID: 3, Profile: Profile{StudyTime: "Night"}},
		{ID: 2, Profile: Profile{StudyTime: "Flexible"}},
	}

	got := Rank(target, candidates, 2)
	require.Len(t, got, 2)
	assert.Equal(t, int64(2), got[0].OccupantID)
	assert.Equal(t, int64(3), got[1].OccupantID)
	assert.Equal(t, 20, got[0].Score)

	assert.Len(t, Rank(target, candidates, 0), 3)
}
