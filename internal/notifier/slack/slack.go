package slack

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/metrics"
	"github.com/pugleague/rating-engine/internal/notifier"
	"github.com/pugleague/rating-engine/internal/skill"
	"github.com/pugleague/rating-engine/internal/stakes"
	"github.com/slack-go/slack"
)

// slackClient is an interface that contains the methods from the slack.Client that we use.
// This allows for easy mocking in tests.
type slackClient interface {
	PostMessageContext(ctx context.Context, channelID string, options ...slack.MsgOption) (string, string, error)
}

var _ notifier.Notifier = &Notifier{}

// Notifier handles sending notifications to Slack.
type Notifier struct {
	api       slackClient
	channelID string
	metrics   metrics.Metrics
}

// NewNotifier creates a new Notifier.
func NewNotifier(token, channelID string, metrics metrics.Metrics) *Notifier {
	api := slack.New(token)
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

// NewNotifierWithAPI creates a new Notifier with a specific slack.Client instance.
// Useful for tests that need to intercept API calls.
func NewNotifierWithAPI(api slackClient, channelID string, metrics metrics.Metrics) *Notifier {
	return &Notifier{
		api:       api,
		channelID: channelID,
		metrics:   metrics,
	}
}

func (s *Notifier) sendMessage(message slack.Message, dryRun bool) (string, string, error) {
	if dryRun {
		jsonMsg, _ := json.MarshalIndent(message, "", "  ")
		log.Info("[Dry Run] Would send Slack message", "channel", s.channelID, "message", string(jsonMsg))
		return "dry-run-ts", "dry-run-thread-ts", nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	channelID, timestamp, err := s.api.PostMessageContext(
		ctx,
		s.channelID,
		slack.MsgOptionBlocks(message.Blocks.BlockSet...),
		slack.MsgOptionAsUser(true),
	)

	if err != nil {
		s.metrics.IncSlackNotifFailed()
		log.Error("Failed to send Slack message", "error", err, "channel", channelID)
		return "", "", fmt.Errorf("failed to post message: %w", err)
	}

	s.metrics.IncSlackNotifSent()
	log.Info("Successfully sent Slack message", "channel", channelID, "timestamp", timestamp)
	return channelID, timestamp, nil
}

// Implement the Notifier interface
func (s *Notifier) SendSettlementNotification(match *league.MatchRecord, changes []league.RatingChange, dryRun bool) (string, error) {
	msg := s.formatSettlement(match, changes)
	_, ts, err := s.sendMessage(msg, dryRun)
	return ts, err
}

func (s *Notifier) SendRevertNotification(match *league.MatchRecord, dryRun bool) (string, error) {
	msg := s.formatRevert(match)
	_, ts, err := s.sendMessage(msg, dryRun)
	return ts, err
}

func (s *Notifier) SendLeaderboard(players []league.PlayerRating, dryRun bool) error {
	msg := s.formatLeaderboard(players)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendStakes(token string, stakes []stakes.PlayerStake, dryRun bool) error {
	msg := s.formatStakes(token, stakes)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendPlayerStats(player *league.PlayerRating, query string, dryRun bool) error {
	msg := s.formatPlayerStats(player, query)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

func (s *Notifier) SendPlayerNotFound(query string, dryRun bool) error {
	msg := s.formatPlayerNotFound(query)
	_, _, err := s.sendMessage(msg, dryRun)
	return err
}

// FormatLeaderboardResponse formats a leaderboard message for a slash command response.
func (s *Notifier) FormatLeaderboardResponse(players []league.PlayerRating) (any, error) {
	return s.formatLeaderboard(players), nil
}

// FormatStakesResponse formats a stakes message for a slash command response.
func (s *Notifier) FormatStakesResponse(token string, stakes []stakes.PlayerStake) (any, error) {
	return s.formatStakes(token, stakes), nil
}

// FormatPlayerStatsResponse formats a player stats message for a slash command response.
func (s *Notifier) FormatPlayerStatsResponse(player *league.PlayerRating, query string) (any, error) {
	return s.formatPlayerStats(player, query), nil
}

// FormatPlayerNotFoundResponse formats a player not found message for a slash command response.
func (s *Notifier) FormatPlayerNotFoundResponse(query string) (any, error) {
	return s.formatPlayerNotFound(query), nil
}

// formatSettlement creates the Slack message for a settled match using Block Kit.
func (s *Notifier) formatSettlement(match *league.MatchRecord, changes []league.RatingChange) slack.Message {
	blocks := make([]slack.Block, 0)

	// Header - The Header block itself provides bolding. No asterisks needed.
	headerText := slack.NewTextBlockObject("plain_text", "⚔️ Match settled! ⚔️", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	winner := "Team A"
	if match.Winner == skill.TeamB {
		winner = "Team B"
	}
	detailsText := fmt.Sprintf("Match: %s\nWinner: %s 🏆", match.Token, winner)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	// Rating movement, one line per player.
	var lines []string
	for _, c := range changes {
		lines = append(lines, fmt.Sprintf("• %s: %d → %d (%+d)", displayName(c.Name, c.PlayerID), c.ShownBefore, c.ShownAfter, c.ShownDelta()))
	}
	if len(lines) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Ratings:\n"+strings.Join(lines, "\n"), true, false), nil, nil))
	}

	if match.SettledBy != "" {
		settledText := fmt.Sprintf("Settled by %s", match.SettledBy)
		blocks = append(blocks, slack.NewContextBlock("", slack.NewTextBlockObject("plain_text", settledText, true, false)))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatRevert creates the Slack message for a reverted match.
func (s *Notifier) formatRevert(match *league.MatchRecord) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "↩️ Match reverted", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	detailsText := fmt.Sprintf("Match %s has been rolled back. Everyone's rating is restored to what it was before the match.", match.Token)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", detailsText, true, false), nil, nil))

	var names []string
	for _, p := range match.Snapshot {
		names = append(names, fmt.Sprintf("• %s: %d", displayName(p.Name, p.PlayerID), p.Shown()))
	}
	if len(names) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Restored ratings:\n"+strings.Join(names, "\n"), true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatLeaderboard creates a Slack message to display the player leaderboard.
func (s *Notifier) formatLeaderboard(players []league.PlayerRating) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🏆 Leaderboard 🏆", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if len(players) == 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "No ratings yet. Go play some matches!", true, false), nil, nil))
		return slack.NewBlockMessage(blocks...)
	}

	for i, p := range players {
		rank := i + 1
		var medal string
		switch rank {
		case 1:
			medal = "🥇"
		case 2:
			medal = "🥈"
		case 3:
			medal = "🥉"
		}

		playerText := fmt.Sprintf("%d. %s %s\n> Rating: %d | W/L: %d/%d | Captain: %d/%d",
			rank,
			medal,
			displayName(p.Name, p.PlayerID),
			p.Shown(),
			p.Wins,
			p.Losses,
			p.CaptainWins,
			p.CaptainLosses,
		)
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", playerText, true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatStakes creates a Slack message showing what each player stands
// to gain or lose in a prospective match.
func (s *Notifier) formatStakes(token string, playerStakes []stakes.PlayerStake) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", "🎲 Match stakes 🎲", true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	if token != "" {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", fmt.Sprintf("Match: %s", token), true, false), nil, nil))
	}

	var teamA, teamB []string
	for _, st := range playerStakes {
		line := fmt.Sprintf("• %s: %d (win %+d / loss %+d)",
			displayName(st.Name, st.PlayerID), st.Current.Shown, st.Win.Delta, st.Loss.Delta)
		if st.TeamA {
			teamA = append(teamA, line)
		} else {
			teamB = append(teamB, line)
		}
	}
	if len(teamA) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Team A:\n"+strings.Join(teamA, "\n"), true, false), nil, nil))
	}
	if len(teamB) > 0 {
		blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", "Team B:\n"+strings.Join(teamB, "\n"), true, false), nil, nil))
	}

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerStats creates a Slack message for a single player's record.
func (s *Notifier) formatPlayerStats(player *league.PlayerRating, query string) slack.Message {
	blocks := make([]slack.Block, 0)

	headerText := slack.NewTextBlockObject("plain_text", fmt.Sprintf("📊 Stats for %s", displayName(player.Name, player.PlayerID)), true, false)
	blocks = append(blocks, slack.NewHeaderBlock(headerText))

	statsText := fmt.Sprintf("Rating: %d\nRecord: %d wins / %d losses\nAs captain: %d wins / %d losses",
		player.Shown(),
		player.Wins,
		player.Losses,
		player.CaptainWins,
		player.CaptainLosses,
	)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", statsText, true, false), nil, nil))

	return slack.NewBlockMessage(blocks...)
}

// formatPlayerNotFound creates a Slack message for when a player query has no match.
func (s *Notifier) formatPlayerNotFound(query string) slack.Message {
	blocks := make([]slack.Block, 0)
	text := fmt.Sprintf("🤷 No player found matching \"%s\".", query)
	blocks = append(blocks, slack.NewSectionBlock(slack.NewTextBlockObject("plain_text", text, true, false), nil, nil))
	return slack.NewBlockMessage(blocks...)
}

func displayName(name, id string) string {
	if name != "" {
		return name
	}
	return id
}
