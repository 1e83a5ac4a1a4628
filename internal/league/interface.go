package league

// LeagueStore defines the interface for interacting with the league's
// durable state: player ratings, match records, and rating history.
//
// Every mutating call runs inside a single transaction; a failure
// leaves no partial state behind. Settlement and revert for the same
// token are serialized by the store.
type LeagueStore interface {
	// GetPlayer returns a single stored player, or ErrPlayerNotFound.
	GetPlayer(playerID string) (PlayerRating, error)
	// FindPlayer resolves a lookup query against player ids and names,
	// case-insensitively. ErrPlayerNotFound if nothing matches.
	FindPlayer(query string) (PlayerRating, error)
	// GetPlayers resolves every id, filling in a default rating for ids
	// with no stored row. Nothing is inserted; order follows the input.
	GetPlayers(playerIDs []string) ([]PlayerRating, error)
	// UpsertPlayers writes the given ratings and counters verbatim.
	UpsertPlayers(players []PlayerRating) error
	// Leaderboard returns players ordered by the requested sort.
	Leaderboard(sort LeaderboardSort, limit int) ([]PlayerRating, error)

	// CreateMatch stores a new unsettled record. ErrDuplicateToken if
	// the token is already in use.
	CreateMatch(rec *MatchRecord) error
	// GetMatch loads a record by token, or ErrMatchNotFound.
	GetMatch(token string) (*MatchRecord, error)
	// ListMatches returns records newest-first.
	ListMatches(limit int) ([]*MatchRecord, error)

	// ApplySettlement settles the record: inside a single transaction it
	// loads the roster's current ratings, runs the rating update for the
	// record's winner, stores the pre-match ratings on rec.Snapshot,
	// persists the new ratings, bumps counters, and writes history rows.
	// Loading and writing share the transaction, so settlements over a
	// shared player compose instead of overwriting each other. Returns
	// the per-player movement. ErrAlreadySettled if the token was
	// settled before.
	ApplySettlement(rec *MatchRecord) ([]RatingChange, error)
	// ApplyRevert atomically restores every snapshot rating, decrements
	// the counters incremented at settlement, deletes the match's
	// history rows, and marks the record reverted. Returns the record
	// as it was when settled. ErrMatchNotFound / ErrNotSettled on a
	// missing or unsettled target.
	ApplyRevert(token, actorID string) (*MatchRecord, error)

	// PlayerHistory returns a player's rating movements, newest-first.
	PlayerHistory(playerID string, limit int) ([]HistoryEntry, error)
}
