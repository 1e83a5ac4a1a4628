package settlement

import (
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/notifier"
)

// Store defines the database operations required by the settlement service.
type Store interface {
	GetPlayers(playerIDs []string) ([]league.PlayerRating, error)
	GetMatch(token string) (*league.MatchRecord, error)
	ApplySettlement(rec *league.MatchRecord) ([]league.RatingChange, error)
	ApplyRevert(token, actorID string) (*league.MatchRecord, error)
}

// Notifier defines the notification operations required by the settlement service.
// This is now an alias for the main notifier interface for decoupling.
type Notifier interface {
	notifier.Notifier
}
