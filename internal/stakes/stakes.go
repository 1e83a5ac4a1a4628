// Package stakes turns a proposed roster into a per-player preview of
// what the match would do to each rating. It is purely advisory: no
// stored state is read or written here, callers resolve ratings first
// and may discard the result freely.
package stakes

import (
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/skill"
)

// RatingState is one hypothetical (or current) rating position.
// Delta is the shown-rating movement relative to current; it is zero
// on the Current state.
type RatingState struct {
	Mu    float64 `json:"mu"`
	Sigma float64 `json:"sigma"`
	Shown int     `json:"shown"`
	Delta int     `json:"delta"`
}

// PlayerStake is the "current / if-win / if-lose" triple for one player.
type PlayerStake struct {
	PlayerID string      `json:"player_id"`
	Name     string      `json:"name"`
	TeamA    bool        `json:"team_a"`
	Current  RatingState `json:"current"`
	Win      RatingState `json:"win"`
	Loss     RatingState `json:"loss"`
}

// Preview computes the stake triple for every player in the proposed
// roster. The skill model runs exactly twice, once per hypothetical
// winner; each player's win state is read from the outcome where their
// own team won.
//
// Input slices arrive resolved (brand-new players already at the
// default rating) and are not mutated. Output order is team A then
// team B, input order preserved.
func Preview(teamA, teamB []league.PlayerRating) []PlayerStake {
	ratingsA := make([]skill.Rating, len(teamA))
	for i, p := range teamA {
		ratingsA[i] = p.Rating()
	}
	ratingsB := make([]skill.Rating, len(teamB))
	for i, p := range teamB {
		ratingsB[i] = p.Rating()
	}

	aWinsA, aWinsB := skill.Update(ratingsA, ratingsB, skill.TeamA)
	bWinsA, bWinsB := skill.Update(ratingsA, ratingsB, skill.TeamB)

	stakes := make([]PlayerStake, 0, len(teamA)+len(teamB))
	for i, p := range teamA {
		stakes = append(stakes, stakeFor(p, true, aWinsA[i], bWinsA[i]))
	}
	for i, p := range teamB {
		stakes = append(stakes, stakeFor(p, false, bWinsB[i], aWinsB[i]))
	}
	return stakes
}

func stakeFor(p league.PlayerRating, teamA bool, ifWin, ifLose skill.Rating) PlayerStake {
	current := p.Rating()
	shown := skill.Shown(current)
	return PlayerStake{
		PlayerID: p.PlayerID,
		Name:     p.Name,
		TeamA:    teamA,
		Current: RatingState{
			Mu:    current.Mu,
			Sigma: current.Sigma,
			Shown: shown,
		},
		Win:  hypothetical(ifWin, shown),
		Loss: hypothetical(ifLose, shown),
	}
}

func hypothetical(r skill.Rating, shownBefore int) RatingState {
	shown := skill.Shown(r)
	return RatingState{
		Mu:    r.Mu,
		Sigma: r.Sigma,
		Shown: shown,
		Delta: shown - shownBefore,
	}
}
