package notifier

import (
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/stakes"
)

// Notifier defines a high-level interface for sending notifications about business events.
// This decouples the rest of the application from the specific notification provider (e.g., Slack).
type Notifier interface {
	// For settled and reverted matches
	SendSettlementNotification(match *league.MatchRecord, changes []league.RatingChange, dryRun bool) (string, error)
	SendRevertNotification(match *league.MatchRecord, dryRun bool) (string, error)

	// For slash commands
	SendLeaderboard(players []league.PlayerRating, dryRun bool) error
	SendStakes(token string, stakes []stakes.PlayerStake, dryRun bool) error
	SendPlayerStats(player *league.PlayerRating, query string, dryRun bool) error
	SendPlayerNotFound(query string, dryRun bool) error

	// For formatting responses for slash commands
	FormatLeaderboardResponse(players []league.PlayerRating) (any, error)
	FormatStakesResponse(token string, stakes []stakes.PlayerStake) (any, error)
	FormatPlayerStatsResponse(player *league.PlayerRating, query string) (any, error)
	FormatPlayerNotFoundResponse(query string) (any, error)
}
