package league

import (
	"sync"
)

// MockStore is a mock implementation of the LeagueStore interface for
// testing. It is safe for concurrent use.
type MockStore struct {
	mu sync.Mutex

	// Spies for method calls
	GetPlayerFunc       func(playerID string) (PlayerRating, error)
	FindPlayerFunc      func(query string) (PlayerRating, error)
	GetPlayersFunc      func(playerIDs []string) ([]PlayerRating, error)
	UpsertPlayersFunc   func(players []PlayerRating) error
	LeaderboardFunc     func(sort LeaderboardSort, limit int) ([]PlayerRating, error)
	CreateMatchFunc     func(rec *MatchRecord) error
	GetMatchFunc        func(token string) (*MatchRecord, error)
	ListMatchesFunc     func(limit int) ([]*MatchRecord, error)
	ApplySettlementFunc func(rec *MatchRecord) ([]RatingChange, error)
	ApplyRevertFunc     func(token, actorID string) (*MatchRecord, error)
	PlayerHistoryFunc   func(playerID string, limit int) ([]HistoryEntry, error)

	// Call records
	GetPlayersCalls      [][]string
	UpsertPlayersCalls   [][]PlayerRating
	ApplySettlementCalls []*MatchRecord
	ApplyRevertCalls     []string
}

// NewMock creates a new mock instance.
func NewMock() *MockStore {
	return &MockStore{}
}

func (m *MockStore) GetPlayer(playerID string) (PlayerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetPlayerFunc != nil {
		return m.GetPlayerFunc(playerID)
	}
	return PlayerRating{}, ErrPlayerNotFound
}

func (m *MockStore) FindPlayer(query string) (PlayerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FindPlayerFunc != nil {
		return m.FindPlayerFunc(query)
	}
	return PlayerRating{}, ErrPlayerNotFound
}

func (m *MockStore) GetPlayers(playerIDs []string) ([]PlayerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.GetPlayersCalls = append(m.GetPlayersCalls, playerIDs)
	if m.GetPlayersFunc != nil {
		return m.GetPlayersFunc(playerIDs)
	}
	players := make([]PlayerRating, 0, len(playerIDs))
	for _, id := range playerIDs {
		players = append(players, NewPlayerRating(id, ""))
	}
	return players, nil
}

func (m *MockStore) UpsertPlayers(players []PlayerRating) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.UpsertPlayersCalls = append(m.UpsertPlayersCalls, players)
	if m.UpsertPlayersFunc != nil {
		return m.UpsertPlayersFunc(players)
	}
	return nil
}

func (m *MockStore) Leaderboard(sort LeaderboardSort, limit int) ([]PlayerRating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.LeaderboardFunc != nil {
		return m.LeaderboardFunc(sort, limit)
	}
	return nil, nil
}

func (m *MockStore) CreateMatch(rec *MatchRecord) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.CreateMatchFunc != nil {
		return m.CreateMatchFunc(rec)
	}
	return nil
}

func (m *MockStore) GetMatch(token string) (*MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.GetMatchFunc != nil {
		return m.GetMatchFunc(token)
	}
	return nil, ErrMatchNotFound
}

func (m *MockStore) ListMatches(limit int) ([]*MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ListMatchesFunc != nil {
		return m.ListMatchesFunc(limit)
	}
	return nil, nil
}

func (m *MockStore) ApplySettlement(rec *MatchRecord) ([]RatingChange, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplySettlementCalls = append(m.ApplySettlementCalls, rec)
	if m.ApplySettlementFunc != nil {
		return m.ApplySettlementFunc(rec)
	}
	players := make([]PlayerRating, 0, len(rec.Roster.TeamA)+len(rec.Roster.TeamB))
	for _, id := range rec.Roster.Players() {
		players = append(players, NewPlayerRating(id, ""))
	}
	_, changes := ComputeSettlement(rec.Roster, players, rec.Winner)
	rec.Snapshot = players
	return changes, nil
}

func (m *MockStore) ApplyRevert(token, actorID string) (*MatchRecord, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ApplyRevertCalls = append(m.ApplyRevertCalls, token)
	if m.ApplyRevertFunc != nil {
		return m.ApplyRevertFunc(token, actorID)
	}
	return nil, ErrMatchNotFound
}

func (m *MockStore) PlayerHistory(playerID string, limit int) ([]HistoryEntry, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.PlayerHistoryFunc != nil {
		return m.PlayerHistoryFunc(playerID, limit)
	}
	return nil, nil
}
