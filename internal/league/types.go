package league

import (
	"database/sql"
	"errors"
	"sync"

	"github.com/pugleague/rating-engine/internal/skill"
)

// store handles all database operations for the league.
type store struct {
	db *sql.DB
	mu sync.RWMutex
}

// Sentinel errors surfaced by the store. Callers branch with errors.Is;
// anything else is a transient store failure and safe to retry whole.
var (
	ErrMatchNotFound  = errors.New("match token not found")
	ErrAlreadySettled = errors.New("match token already settled")
	ErrNotSettled     = errors.New("match is not in the settled state")
	ErrPlayerNotFound = errors.New("player not found")
	ErrDuplicateToken = errors.New("match token already exists")
)

// PlayerRating is a player's current skill estimate and aggregate
// counters. Mu/Sigma are the source of truth; the shown rating is
// always derived.
type PlayerRating struct {
	PlayerID      string  `json:"player_id"`
	Name          string  `json:"name"`
	Mu            float64 `json:"mu"`
	Sigma         float64 `json:"sigma"`
	Wins          int     `json:"wins"`
	Losses        int     `json:"losses"`
	CaptainWins   int     `json:"captain_wins"`
	CaptainLosses int     `json:"captain_losses"`
}

// Rating returns the skill-model view of this player.
func (p PlayerRating) Rating() skill.Rating {
	return skill.Rating{Mu: p.Mu, Sigma: p.Sigma}
}

// Shown is the conservative presentation rating.
func (p PlayerRating) Shown() int {
	return skill.Shown(p.Rating())
}

// NewPlayerRating returns a brand-new player at the default estimate.
func NewPlayerRating(playerID, name string) PlayerRating {
	return PlayerRating{
		PlayerID: playerID,
		Name:     name,
		Mu:       skill.DefaultMu,
		Sigma:    skill.DefaultSigma,
	}
}

// Roster is the frozen team assignment for a match: two ordered,
// non-empty, disjoint id lists. By convention the first listed player
// on each team is its captain.
type Roster struct {
	TeamA []string `json:"team_a"`
	TeamB []string `json:"team_b"`
}

// Players returns every id in the roster, team A first, input order kept.
func (r Roster) Players() []string {
	ids := make([]string, 0, len(r.TeamA)+len(r.TeamB))
	ids = append(ids, r.TeamA...)
	ids = append(ids, r.TeamB...)
	return ids
}

// Captains returns the captain of each team.
func (r Roster) Captains() (string, string) {
	var a, b string
	if len(r.TeamA) > 0 {
		a = r.TeamA[0]
	}
	if len(r.TeamB) > 0 {
		b = r.TeamB[0]
	}
	return a, b
}

// OnTeamA reports whether the id plays on team A.
func (r Roster) OnTeamA(id string) bool {
	for _, p := range r.TeamA {
		if p == id {
			return true
		}
	}
	return false
}

// Split partitions resolved players back into their teams. GetPlayers
// preserves input order, so this is a straight cut.
func (r Roster) Split(players []PlayerRating) ([]PlayerRating, []PlayerRating) {
	return players[:len(r.TeamA)], players[len(r.TeamA):]
}

// MatchState is the lifecycle position of a match record.
type MatchState string

const (
	StateDraft    MatchState = "DRAFT"
	StateSettled  MatchState = "SETTLED"
	StateReverted MatchState = "REVERTED"
)

// MatchRecord is the durable record of a match. Once settled it is
// immutable except for the transition to REVERTED. The snapshot holds
// every roster player's rating as of the instant before settlement and
// is the sole mechanism for revert.
type MatchRecord struct {
	Token     string         `json:"token"`
	Roster    Roster         `json:"roster"`
	Winner    skill.Winner   `json:"winner,omitempty"`
	Snapshot  []PlayerRating `json:"snapshot,omitempty"`
	State     MatchState     `json:"state"`
	CreatedAt int64          `json:"created_at"`
	SettledAt int64          `json:"settled_at,omitempty"`
	SettledBy string         `json:"settled_by,omitempty"`
}

// RatingChange pairs a player's rating before a settlement with the
// rating after it, for notifications and API responses.
type RatingChange struct {
	PlayerID    string  `json:"player_id"`
	Name        string  `json:"name"`
	TeamA       bool    `json:"team_a"`
	Won         bool    `json:"won"`
	MuBefore    float64 `json:"mu_before"`
	SigmaBefore float64 `json:"sigma_before"`
	MuAfter     float64 `json:"mu_after"`
	SigmaAfter  float64 `json:"sigma_after"`
	ShownBefore int     `json:"shown_before"`
	ShownAfter  int     `json:"shown_after"`
}

// ShownDelta is the movement of the shown rating, in whole points.
func (c RatingChange) ShownDelta() int {
	return c.ShownAfter - c.ShownBefore
}

// ComputeSettlement runs the rating update for one match outcome. The
// players slice is the resolved roster in roster order; the returned
// post-match ratings and per-player changes keep that order. The
// computation is deterministic: the same players and winner always
// produce the same result.
func ComputeSettlement(roster Roster, players []PlayerRating, winner skill.Winner) ([]PlayerRating, []RatingChange) {
	teamA, teamB := roster.Split(players)

	ratingsA := make([]skill.Rating, len(teamA))
	for i, p := range teamA {
		ratingsA[i] = p.Rating()
	}
	ratingsB := make([]skill.Rating, len(teamB))
	for i, p := range teamB {
		ratingsB[i] = p.Rating()
	}
	newA, newB := skill.Update(ratingsA, ratingsB, winner)

	updated := make([]PlayerRating, 0, len(players))
	changes := make([]RatingChange, 0, len(players))
	for i, p := range teamA {
		updated = append(updated, withRating(p, newA[i]))
		changes = append(changes, newRatingChange(p, newA[i], true, winner == skill.TeamA))
	}
	for i, p := range teamB {
		updated = append(updated, withRating(p, newB[i]))
		changes = append(changes, newRatingChange(p, newB[i], false, winner == skill.TeamB))
	}
	return updated, changes
}

func withRating(p PlayerRating, r skill.Rating) PlayerRating {
	p.Mu = r.Mu
	p.Sigma = r.Sigma
	return p
}

func newRatingChange(p PlayerRating, after skill.Rating, teamA, won bool) RatingChange {
	return RatingChange{
		PlayerID:    p.PlayerID,
		Name:        p.Name,
		TeamA:       teamA,
		Won:         won,
		MuBefore:    p.Mu,
		SigmaBefore: p.Sigma,
		MuAfter:     after.Mu,
		SigmaAfter:  after.Sigma,
		ShownBefore: p.Shown(),
		ShownAfter:  skill.Shown(after),
	}
}

// HistoryEntry is one immutable rating movement, written at settlement
// and removed if the settlement is reverted.
type HistoryEntry struct {
	PlayerID    string  `json:"player_id"`
	MatchToken  string  `json:"match_token"`
	MuBefore    float64 `json:"mu_before"`
	SigmaBefore float64 `json:"sigma_before"`
	MuAfter     float64 `json:"mu_after"`
	SigmaAfter  float64 `json:"sigma_after"`
	RecordedAt  int64   `json:"recorded_at"`
}

// LeaderboardSort selects the leaderboard ordering.
type LeaderboardSort string

const (
	SortByRating      LeaderboardSort = "rating"
	SortByWins        LeaderboardSort = "wins"
	SortByCaptainWins LeaderboardSort = "captain_wins"
)
