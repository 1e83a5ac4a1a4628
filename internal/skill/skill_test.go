package skill

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func teamOf(n int) []Rating {
	team := make([]Rating, n)
	for i := range team {
		team[i] = NewRating()
	}
	return team
}

func TestUpdateIsDeterministic(t *testing.T) {
	teamA := []Rating{{Mu: 27.2, Sigma: 4.1}, {Mu: 23.9, Sigma: 6.7}}
	teamB := []Rating{{Mu: 25.0, Sigma: DefaultSigma}, {Mu: 31.4, Sigma: 2.2}}

	a1, b1 := Update(teamA, teamB, TeamA)
	a2, b2 := Update(teamA, teamB, TeamA)

	// Bit-identical, not merely close.
	assert.Equal(t, a1, a2)
	assert.Equal(t, b1, b2)
}

func TestUpdateDoesNotMutateInputs(t *testing.T) {
	teamA := []Rating{{Mu: 25, Sigma: 8}}
	teamB := []Rating{{Mu: 25, Sigma: 8}}

	Update(teamA, teamB, TeamB)

	assert.Equal(t, Rating{Mu: 25, Sigma: 8}, teamA[0])
	assert.Equal(t, Rating{Mu: 25, Sigma: 8}, teamB[0])
}

func TestMonotonicity(t *testing.T) {
	rosters := []struct {
		name         string
		teamA, teamB []Rating
	}{
		{"fresh 1v1", teamOf(1), teamOf(1)},
		{"fresh 5v5", teamOf(5), teamOf(5)},
		{"uneven 2v3", teamOf(2), teamOf(3)},
		{"mixed skill", []Rating{{Mu: 40, Sigma: 2}, {Mu: 18, Sigma: 7}}, []Rating{{Mu: 29, Sigma: 5}}},
		{"upset", []Rating{{Mu: 10, Sigma: 3}}, []Rating{{Mu: 45, Sigma: 1.5}}},
	}

	for _, tc := range rosters {
		for _, winner := range []Winner{TeamA, TeamB} {
			newA, newB := Update(tc.teamA, tc.teamB, winner)

			for i := range tc.teamA {
				if winner == TeamA {
					assert.GreaterOrEqual(t, newA[i].Mu, tc.teamA[i].Mu, "%s: winner mu must not drop", tc.name)
				} else {
					assert.LessOrEqual(t, newA[i].Mu, tc.teamA[i].Mu, "%s: loser mu must not rise", tc.name)
				}
				assert.LessOrEqual(t, newA[i].Sigma, tc.teamA[i].Sigma, "%s: sigma must not grow", tc.name)
				assert.Greater(t, newA[i].Sigma, 0.0, tc.name)
			}
			for i := range tc.teamB {
				if winner == TeamB {
					assert.GreaterOrEqual(t, newB[i].Mu, tc.teamB[i].Mu, "%s: winner mu must not drop", tc.name)
				} else {
					assert.LessOrEqual(t, newB[i].Mu, tc.teamB[i].Mu, "%s: loser mu must not rise", tc.name)
				}
				assert.LessOrEqual(t, newB[i].Sigma, tc.teamB[i].Sigma, "%s: sigma must not grow", tc.name)
				assert.Greater(t, newB[i].Sigma, 0.0, tc.name)
			}
		}
	}
}

func TestConservationOnEqualTeams(t *testing.T) {
	// With equal team sizes and uniform sigma the mu shifts are exactly
	// symmetric: what the winners gain the losers give up.
	teamA, teamB := teamOf(3), teamOf(3)
	newA, newB := Update(teamA, teamB, TeamA)

	var gain, loss float64
	for i := range teamA {
		gain += newA[i].Mu - teamA[i].Mu
		loss += newB[i].Mu - teamB[i].Mu
	}
	assert.InDelta(t, -loss, gain, 1e-9)
	assert.Greater(t, gain, 0.0)
}

func TestFreshOneVersusOne(t *testing.T) {
	a, b := teamOf(1), teamOf(1)
	require.Equal(t, 0, Shown(a[0]), "fresh player shows 0 (25 - 3*8.333 clamps negative)")

	newA, newB := Update(a, b, TeamA)

	assert.Greater(t, newA[0].Mu, 25.0)
	assert.Less(t, newB[0].Mu, 25.0)
	assert.Less(t, newA[0].Sigma, DefaultSigma)
	assert.Less(t, newB[0].Sigma, DefaultSigma)
	assert.Greater(t, Shown(newA[0]), 0, "winner's shown rating rises off the floor")
}

func TestSigmaCappedAtDefault(t *testing.T) {
	// A rating at the cap stays at or below it no matter the outcome.
	teamA := []Rating{{Mu: 25, Sigma: DefaultSigma}}
	teamB := []Rating{{Mu: 25, Sigma: DefaultSigma}}

	newA, newB := Update(teamA, teamB, TeamB)
	assert.LessOrEqual(t, newA[0].Sigma, DefaultSigma)
	assert.LessOrEqual(t, newB[0].Sigma, DefaultSigma)
}

func TestShown(t *testing.T) {
	assert.Equal(t, 0, Shown(Rating{Mu: 25, Sigma: DefaultSigma}))
	assert.Equal(t, 7, Shown(Rating{Mu: 13.9, Sigma: 2}))
	assert.Equal(t, 0, Shown(Rating{Mu: 1, Sigma: 5}))
	assert.Equal(t, 19, Shown(Rating{Mu: 25, Sigma: 2}))
}

func TestUnevenTeamsDegradeGracefully(t *testing.T) {
	// 1v4: outnumbered winner still gains, nothing blows up.
	solo := []Rating{{Mu: 30, Sigma: 4}}
	squad := teamOf(4)

	newSolo, newSquad := Update(solo, squad, TeamA)
	assert.Greater(t, newSolo[0].Mu, 30.0)
	assert.False(t, math.IsNaN(newSolo[0].Mu))
	for i := range squad {
		assert.LessOrEqual(t, newSquad[i].Mu, squad[i].Mu)
		assert.False(t, math.IsNaN(newSquad[i].Mu))
	}
}
