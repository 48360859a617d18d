package leaderboarddomain

import (
	"math/rand/v2"
	"testing"
	"time"

	"github.com/brianvoe/gofakeit/v7"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var epoch = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func at(sec int) time.Time { return epoch.Add(time.Duration(sec) * time.Second) }

func TestAggregateSubmissions(t *testing.T) {
	subs := []Submission{
		{ID: "s1", UserID: "u3", Points: 50, SubmittedAt: at(3)},
		{ID: "s2", UserID: "u3", Points: 30, SubmittedAt: at(9)},
		{ID: "s3", UserID: "u1", Points: 10, SubmittedAt: at(1)},
		{ID: "s4", UserID: "u3", Points: 20, SubmittedAt: at(5)},
		{ID: "s5", UserID: "", Points: 40, SubmittedAt: at(2)},
		{ID: "s6", UserID: "u1", Points: 0, SubmittedAt: at(4)},
		{ID: "s7", UserID: "u1", Points: -5, SubmittedAt: at(6)},
	}

	aggs, skipped := AggregateSubmissions(subs)

	want := []Aggregate{
		{UserID: "u1", TotalPoints: 10, ChallengesSolved: 1, LastSubmissionAt: at(1)},
		{UserID: "u3", TotalPoints: 100, ChallengesSolved: 3, LastSubmissionAt: at(9)},
	}
	if diff := cmp.Diff(want, aggs); diff != "" {
		t.Errorf("aggregates mismatch (-want +got):\n%s", diff)
	}
	assert.Equal(t, 3, skipped)
}

func TestAggregateSubmissions_OrderIndependent(t *testing.T) {
	faker := gofakeit.New(11)

	var subs []Submission
	for i := range 60 {
		subs = append(subs, Submission{
			ID:          faker.UUID(),
			UserID:      faker.RandomString([]string{"u1", "u2", "u3", "u4"}),
			Points:      int64(faker.Number(1, 500)),
			SubmittedAt: at(i),
		})
	}
	want, _ := AggregateSubmissions(subs)

	r := rand.New(rand.NewPCG(1, 2))
	for range 20 {
		shuffled := append([]Submission(nil), subs...)
		r.Shuffle(len(shuffled), func(i, j int) { shuffled[i], shuffled[j] = shuffled[j], shuffled[i] })
		got, _ := AggregateSubmissions(shuffled)
		require.Equal(t, want, got)
	}
}

func TestSortByScore(t *testing.T) {
	tests := []struct {
		name string
		in   []Aggregate
		want []string
	}{
		{
			name: "earlier timestamp wins a points tie",
			in: []Aggregate{
				{UserID: "A", TotalPoints: 100, LastSubmissionAt: at(10)},
				{UserID: "B", TotalPoints: 100, LastSubmissionAt: at(5)},
			},
			want: []string{"B", "A"},
		},
		{
			name: "points dominate timestamps",
			in: []Aggregate{
				{UserID: "a", TotalPoints: 10, LastSubmissionAt: at(1)},
				{UserID: "b", TotalPoints: 30, LastSubmissionAt: at(50)},
				{UserID: "c", TotalPoints: 20, LastSubmissionAt: at(2)},
			},
			want: []string{"b", "c", "a"},
		},
		{
			name: "full tie falls back to user id",
			in: []Aggregate{
				{UserID: "zed", TotalPoints: 5, LastSubmissionAt: at(1)},
				{UserID: "amy", TotalPoints: 5, LastSubmissionAt: at(1)},
			},
			want: []string{"amy", "zed"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			SortByScore(tt.in)
			got := make([]string, len(tt.in))
			for i, a := range tt.in {
				got[i] = a.UserID
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestSortByScore_Deterministic(t *testing.T) {
	faker := gofakeit.New(3)

	var aggs []Aggregate
	for i := range 100 {
		aggs = append(aggs, Aggregate{
			UserID:           faker.Username() + string(rune('a'+i%26)),
			TotalPoints:      int64(faker.Number(0, 5) * 100),
			LastSubmissionAt: at(faker.Number(0, 10)),
		})
	}
	want := append([]Aggregate(nil), aggs...)
	SortByScore(want)

	r := rand.New(rand.NewPCG(9, 9))
	for range 10 {
		got := append([]Aggregate(nil), aggs...)
		r.Shuffle(len(got), func(i, j int) { got[i], got[j] = got[j], got[i] })
		SortByScore(got)
		require.Equal(t, want, got)
	}
}

func TestSortByPoints_IgnoresTimestamps(t *testing.T) {
	aggs := []Aggregate{
		{UserID: "u2", TotalPoints: 100, LastSubmissionAt: at(1)},
		{UserID: "u1", TotalPoints: 100, LastSubmissionAt: at(9)},
		{UserID: "u0", TotalPoints: 0},
	}
	SortByPoints(aggs)
	assert.Equal(t, "u1", aggs[0].UserID)
	assert.Equal(t, "u2", aggs[1].UserID)
	assert.Equal(t, "u0", aggs[2].UserID)
}

func TestParseMode(t *testing.T) {
	for in, want := range map[string]Mode{"": ModeFull, "full": ModeFull, " Quick ": ModeQuick} {
		got, err := ParseMode(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, got, in)
	}
	_, err := ParseMode("partial")
	assert.ErrorIs(t, err, ErrUnknownMode)
}

func TestEntryRanked(t *testing.T) {
	assert.False(t, Entry{Rank: UnrankedRank, Provisional: true}.Ranked())
	assert.True(t, Entry{Rank: UnrankedRank}.Ranked())
	assert.False(t, Entry{}.Ranked())
	assert.True(t, Entry{Rank: 1}.Ranked())
}
