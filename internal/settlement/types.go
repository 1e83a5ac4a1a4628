package settlement

import (
	"errors"

	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/metrics"
	"github.com/pugleague/rating-engine/internal/pubsub"
)

// Service drives match settlement and revert: it runs the skill update
// against current ratings and hands the store a complete, atomic change
// set. It never mutates ratings itself.
type Service struct {
	store    Store
	pubsub   pubsub.PubSubClient
	notifier Notifier
	metrics  metrics.Metrics
}

// Precondition errors. These mean the request was malformed; nothing
// was read or written when they are returned.
var (
	ErrEmptyTeam       = errors.New("both teams must have at least one player")
	ErrDuplicatePlayer = errors.New("a player appears more than once in the roster")
	ErrInvalidWinner   = errors.New("winner must identify team A or team B")
	ErrEmptyToken      = errors.New("match token must not be empty")
)

// Result carries the outcome of a settlement or revert, including the
// per-player rating movement for the presentation layer.
type Result struct {
	Match   *league.MatchRecord   `json:"match"`
	Changes []league.RatingChange `json:"changes"`
}
