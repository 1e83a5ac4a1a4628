package settlement

import (
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/metrics"
	"github.com/pugleague/rating-engine/internal/pubsub"
	"github.com/pugleague/rating-engine/internal/skill"
	"github.com/pugleague/rating-engine/internal/stakes"
)

// New creates a new settlement Service.
func New(store Store, notifier Notifier, metrics metrics.Metrics, pubsub pubsub.PubSubClient) *Service {
	return &Service{
		store:    store,
		pubsub:   pubsub,
		notifier: notifier,
		metrics:  metrics,
	}
}

// Preview computes the stakes of a prospective match without touching
// stored ratings: for every roster player, the shown rating now, after
// a win, and after a loss.
func (s *Service) Preview(roster league.Roster) ([]stakes.PlayerStake, error) {
	if err := validateRoster(roster); err != nil {
		return nil, err
	}
	players, err := s.store.GetPlayers(roster.Players())
	if err != nil {
		return nil, fmt.Errorf("loading roster players: %w", err)
	}
	teamA, teamB := roster.Split(players)
	s.metrics.IncPreviews()
	return stakes.Preview(teamA, teamB), nil
}

// Settle settles the match identified by token. The store reads the
// roster's ratings, runs the skill update, snapshots the pre-match
// state, and writes the whole change set in one transaction, so two
// settlements over a shared player always compose. A token settles at
// most once; a second call fails with league.ErrAlreadySettled and
// changes nothing.
func (s *Service) Settle(token string, roster league.Roster, winner skill.Winner, settledBy string, dryRun bool) (*Result, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	if winner != skill.TeamA && winner != skill.TeamB {
		return nil, ErrInvalidWinner
	}
	if err := validateRoster(roster); err != nil {
		return nil, err
	}
	startTime := time.Now()

	rec := &league.MatchRecord{
		Token:     token,
		Roster:    roster,
		Winner:    winner,
		State:     league.StateSettled,
		SettledAt: time.Now().Unix(),
		SettledBy: settledBy,
	}

	if dryRun {
		players, err := s.store.GetPlayers(roster.Players())
		if err != nil {
			return nil, fmt.Errorf("loading roster players: %w", err)
		}
		rec.Snapshot = players
		_, changes := league.ComputeSettlement(roster, players, winner)
		log.Info("Dry run: skipping settlement write", "token", token)
		return &Result{Match: rec, Changes: changes}, nil
	}

	changes, err := s.store.ApplySettlement(rec)
	if err != nil {
		return nil, err
	}
	s.metrics.IncSettlements()
	s.metrics.ObserveSettlementDuration(time.Since(startTime).Seconds())
	log.Info("Match settled", "token", token, "winner", winner, "players", len(changes), "settledBy", settledBy)

	if err := s.pubsub.SendMessage(pubsub.EventMatchSettled, pubsub.MatchSettledEvent{
		Token:     token,
		Winner:    int(winner),
		SettledBy: settledBy,
		SettledAt: rec.SettledAt,
	}); err != nil {
		log.Error("Failed to publish settlement event", "error", err, "token", token)
	}
	if _, err := s.notifier.SendSettlementNotification(rec, changes, dryRun); err != nil {
		log.Error("Failed to send settlement notification", "error", err, "token", token)
	}

	return &Result{Match: rec, Changes: changes}, nil
}

// Revert rolls back a settled match: every roster player's rating is
// restored bit-for-bit from the snapshot and the counters bumped at
// settlement are walked back. Only settled matches revert.
func (s *Service) Revert(token, actorID string, dryRun bool) (*Result, error) {
	if token == "" {
		return nil, ErrEmptyToken
	}
	if dryRun {
		rec, err := s.store.GetMatch(token)
		if err != nil {
			return nil, err
		}
		if rec.State != league.StateSettled {
			return nil, league.ErrNotSettled
		}
		log.Info("Dry run: skipping revert write", "token", token)
		return &Result{Match: rec, Changes: revertChanges(rec)}, nil
	}

	rec, err := s.store.ApplyRevert(token, actorID)
	if err != nil {
		return nil, err
	}
	s.metrics.IncReverts()
	log.Info("Match reverted", "token", token, "revertedBy", actorID)

	if err := s.pubsub.SendMessage(pubsub.EventMatchReverted, pubsub.MatchRevertedEvent{
		Token:      token,
		RevertedBy: actorID,
		RevertedAt: time.Now().Unix(),
	}); err != nil {
		log.Error("Failed to publish revert event", "error", err, "token", token)
	}
	if _, err := s.notifier.SendRevertNotification(rec, dryRun); err != nil {
		log.Error("Failed to send revert notification", "error", err, "token", token)
	}

	return &Result{Match: rec, Changes: revertChanges(rec)}, nil
}

// validateRoster enforces the structural preconditions of a match:
// both teams non-empty, no id listed twice anywhere.
func validateRoster(roster league.Roster) error {
	if len(roster.TeamA) == 0 || len(roster.TeamB) == 0 {
		return ErrEmptyTeam
	}
	seen := make(map[string]struct{}, len(roster.TeamA)+len(roster.TeamB))
	for _, id := range roster.Players() {
		if _, ok := seen[id]; ok {
			return fmt.Errorf("%w: %s", ErrDuplicatePlayer, id)
		}
		seen[id] = struct{}{}
	}
	return nil
}

// revertChanges reconstructs the movement a revert undoes. Replaying
// the rating update against the snapshot yields the settled ratings
// deterministically; those become the before side, with the snapshot
// as the after side.
func revertChanges(rec *league.MatchRecord) []league.RatingChange {
	_, settled := league.ComputeSettlement(rec.Roster, rec.Snapshot, rec.Winner)
	changes := make([]league.RatingChange, 0, len(settled))
	for _, c := range settled {
		changes = append(changes, league.RatingChange{
			PlayerID:    c.PlayerID,
			Name:        c.Name,
			TeamA:       c.TeamA,
			Won:         c.Won,
			MuBefore:    c.MuAfter,
			SigmaBefore: c.SigmaAfter,
			MuAfter:     c.MuBefore,
			SigmaAfter:  c.SigmaBefore,
			ShownBefore: c.ShownAfter,
			ShownAfter:  c.ShownBefore,
		})
	}
	return changes
}
