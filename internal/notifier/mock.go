package notifier

import (
	"sync"

	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/stakes"
)

// Mock is a mock implementation of the Notifier interface for testing.
// It is safe for concurrent use.
type Mock struct {
	mu sync.Mutex

	// Call records
	SendSettlementNotificationCalls []SettlementNotificationCall
	SendRevertNotificationCalls     []struct{ Match *league.MatchRecord }
	SendLeaderboardCalls            [][]league.PlayerRating
	SendStakesCalls                 []StakesCall
	SendPlayerStatsCalls            []struct {
		Player *league.PlayerRating
		Query  string
	}
	SendPlayerNotFoundCalls []string

	// Spies for send functions
	SendSettlementNotificationFunc func(match *league.MatchRecord, changes []league.RatingChange, dryRun bool) (string, error)
	SendRevertNotificationFunc     func(match *league.MatchRecord, dryRun bool) (string, error)

	// Spies for format functions
	FormatLeaderboardResponseFunc    func(players []league.PlayerRating) (any, error)
	FormatStakesResponseFunc         func(token string, stakes []stakes.PlayerStake) (any, error)
	FormatPlayerStatsResponseFunc    func(player *league.PlayerRating, query string) (any, error)
	FormatPlayerNotFoundResponseFunc func(query string) (any, error)
}

// SettlementNotificationCall holds the arguments for a call to SendSettlementNotification.
type SettlementNotificationCall struct {
	Match   *league.MatchRecord
	Changes []league.RatingChange
}

// StakesCall holds the arguments for a call to SendStakes.
type StakesCall struct {
	Token  string
	Stakes []stakes.PlayerStake
}

// NewMock creates a new mock instance.
func NewMock() *Mock {
	return &Mock{}
}

// Reset clears all call records.
func (m *Mock) Reset() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendSettlementNotificationCalls = nil
	m.SendRevertNotificationCalls = nil
	m.SendLeaderboardCalls = nil
	m.SendStakesCalls = nil
	m.SendPlayerStatsCalls = nil
	m.SendPlayerNotFoundCalls = nil
}

func (m *Mock) SendSettlementNotification(match *league.MatchRecord, changes []league.RatingChange, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendSettlementNotificationCalls = append(m.SendSettlementNotificationCalls, SettlementNotificationCall{Match: match, Changes: changes})
	if m.SendSettlementNotificationFunc != nil {
		return m.SendSettlementNotificationFunc(match, changes, dryRun)
	}
	return "", nil
}

func (m *Mock) SendRevertNotification(match *league.MatchRecord, dryRun bool) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendRevertNotificationCalls = append(m.SendRevertNotificationCalls, struct{ Match *league.MatchRecord }{match})
	if m.SendRevertNotificationFunc != nil {
		return m.SendRevertNotificationFunc(match, dryRun)
	}
	return "", nil
}

func (m *Mock) SendLeaderboard(players []league.PlayerRating, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendLeaderboardCalls = append(m.SendLeaderboardCalls, players)
	return nil
}

func (m *Mock) SendStakes(token string, s []stakes.PlayerStake, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendStakesCalls = append(m.SendStakesCalls, StakesCall{Token: token, Stakes: s})
	return nil
}

func (m *Mock) SendPlayerStats(player *league.PlayerRating, query string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendPlayerStatsCalls = append(m.SendPlayerStatsCalls, struct {
		Player *league.PlayerRating
		Query  string
	}{player, query})
	return nil
}

func (m *Mock) SendPlayerNotFound(query string, dryRun bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.SendPlayerNotFoundCalls = append(m.SendPlayerNotFoundCalls, query)
	return nil
}

func (m *Mock) FormatLeaderboardResponse(players []league.PlayerRating) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatLeaderboardResponseFunc != nil {
		return m.FormatLeaderboardResponseFunc(players)
	}
	return "formatted_leaderboard", nil
}

func (m *Mock) FormatStakesResponse(token string, s []stakes.PlayerStake) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatStakesResponseFunc != nil {
		return m.FormatStakesResponseFunc(token, s)
	}
	return "formatted_stakes", nil
}

func (m *Mock) FormatPlayerStatsResponse(player *league.PlayerRating, query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerStatsResponseFunc != nil {
		return m.FormatPlayerStatsResponseFunc(player, query)
	}
	return "formatted_player_stats", nil
}

func (m *Mock) FormatPlayerNotFoundResponse(query string) (any, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FormatPlayerNotFoundResponseFunc != nil {
		return m.FormatPlayerNotFoundResponseFunc(query)
	}
	return "formatted_player_not_found", nil
}
