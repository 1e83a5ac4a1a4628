package league

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/log"
	"github.com/pugleague/rating-engine/internal/skill"
)

// New creates a new LeagueStore backed by the given database.
func New(db *sql.DB) LeagueStore {
	return &store{
		db: db,
	}
}

func (s *store) GetPlayer(playerID string) (PlayerRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, mu, sigma, wins, losses, captain_wins, captain_losses
		FROM players WHERE id = ?
	`, playerID)

	p, err := scanPlayer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return PlayerRating{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, playerID)
		}
		return PlayerRating{}, fmt.Errorf("failed to query player: %w", err)
	}
	return p, nil
}

// FindPlayer matches a lookup query against ids exactly and names
// case-insensitively, preferring the exact id hit.
func (s *store) FindPlayer(query string) (PlayerRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT id, name, mu, sigma, wins, losses, captain_wins, captain_losses
		FROM players
		WHERE id = ? OR lower(name) = lower(?)
		ORDER BY CASE WHEN id = ? THEN 0 ELSE 1 END
		LIMIT 1
	`, query, query, query)

	p, err := scanPlayer(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return PlayerRating{}, fmt.Errorf("%w: %s", ErrPlayerNotFound, query)
		}
		return PlayerRating{}, fmt.Errorf("failed to query player: %w", err)
	}
	return p, nil
}

// GetPlayers resolves every requested id. Ids without a stored row come
// back at the default rating without being inserted, so previews never
// create players as a side effect.
func (s *store) GetPlayers(playerIDs []string) ([]PlayerRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return queryPlayers(s.db, playerIDs)
}

// rowQuerier is satisfied by both *sql.DB and *sql.Tx, so player
// resolution can run standalone or inside a settlement transaction.
type rowQuerier interface {
	Query(query string, args ...any) (*sql.Rows, error)
}

func queryPlayers(q rowQuerier, playerIDs []string) ([]PlayerRating, error) {
	resolved := make([]PlayerRating, 0, len(playerIDs))
	if len(playerIDs) == 0 {
		return resolved, nil
	}

	placeholders := strings.Repeat("?,", len(playerIDs))
	placeholders = placeholders[:len(placeholders)-1]

	rows, err := q.Query(fmt.Sprintf(`
		SELECT id, name, mu, sigma, wins, losses, captain_wins, captain_losses
		FROM players WHERE id IN (%s)
	`, placeholders), ToAnySlice(playerIDs)...)
	if err != nil {
		return nil, fmt.Errorf("failed to query players: %w", err)
	}
	defer rows.Close()

	found := make(map[string]PlayerRating, len(playerIDs))
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		found[p.PlayerID] = p
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	for _, id := range playerIDs {
		if p, ok := found[id]; ok {
			resolved = append(resolved, p)
		} else {
			resolved = append(resolved, NewPlayerRating(id, ""))
		}
	}
	return resolved, nil
}

func (s *store) UpsertPlayers(players []PlayerRating) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return err
	}

	stmt, err := tx.Prepare(`
		INSERT INTO players (id, name, mu, sigma, wins, losses, captain_wins, captain_losses)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mu = excluded.mu,
			sigma = excluded.sigma,
			wins = excluded.wins,
			losses = excluded.losses,
			captain_wins = excluded.captain_wins,
			captain_losses = excluded.captain_losses;
	`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()

	for _, p := range players {
		if _, err := stmt.Exec(p.PlayerID, p.Name, p.Mu, p.Sigma, p.Wins, p.Losses, p.CaptainWins, p.CaptainLosses); err != nil {
			tx.Rollback()
			return fmt.Errorf("failed to upsert player %s: %w", p.PlayerID, err)
		}
	}
	return tx.Commit()
}

func (s *store) Leaderboard(sort LeaderboardSort, limit int) ([]PlayerRating, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	order := "max(mu - 3 * sigma, 0) DESC, wins DESC"
	switch sort {
	case SortByWins:
		order = "wins DESC, losses ASC"
	case SortByCaptainWins:
		order = "captain_wins DESC, captain_losses ASC"
	}

	rows, err := s.db.Query(fmt.Sprintf(`
		SELECT id, name, mu, sigma, wins, losses, captain_wins, captain_losses
		FROM players ORDER BY %s LIMIT ?
	`, order), limit)
	if err != nil {
		log.Error("Failed to query leaderboard", "error", err, "sort", sort)
		return nil, err
	}
	defer rows.Close()

	var players []PlayerRating
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan leaderboard row: %w", err)
		}
		players = append(players, p)
	}
	return players, rows.Err()
}

func (s *store) CreateMatch(rec *MatchRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rosterJSON, err := json.Marshal(rec.Roster)
	if err != nil {
		return err
	}

	res, err := s.db.Exec(`
		INSERT INTO matches (token, roster_json, state, created_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(token) DO NOTHING;
	`, rec.Token, string(rosterJSON), StateDraft, rec.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to create match: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return fmt.Errorf("%w: %s", ErrDuplicateToken, rec.Token)
	}
	rec.State = StateDraft
	return nil
}

func (s *store) GetMatch(token string) (*MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT token, roster_json, winner, snapshot_json, state, created_at, settled_at, settled_by
		FROM matches WHERE token = ?
	`, token)

	rec, err := scanMatch(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, token)
		}
		return nil, fmt.Errorf("failed to query match: %w", err)
	}
	return rec, nil
}

func (s *store) ListMatches(limit int) ([]*MatchRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT token, roster_json, winner, snapshot_json, state, created_at, settled_at, settled_by
		FROM matches ORDER BY created_at DESC LIMIT ?
	`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var matches []*MatchRecord
	for rows.Next() {
		rec, err := scanMatch(rows)
		if err != nil {
			log.Error("Failed to scan match row", "error", err)
			continue
		}
		matches = append(matches, rec)
	}
	return matches, rows.Err()
}

// ApplySettlement is the settle commit point. Everything runs in one
// transaction: the roster's current ratings are read, the rating
// update computed, and the results written without releasing the
// store's write lock in between, so a settlement over a shared player
// always builds on the latest committed ratings. The conditional state
// transition makes settlement at-most-once per token even under
// concurrent callers.
func (s *store) ApplySettlement(rec *MatchRecord) ([]RatingChange, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rosterJSON, err := json.Marshal(rec.Roster)
	if err != nil {
		return nil, err
	}

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}

	players, err := queryPlayers(tx, rec.Roster.Players())
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	updated, changes := ComputeSettlement(rec.Roster, players, rec.Winner)
	rec.Snapshot = players

	snapshotJSON, err := json.Marshal(rec.Snapshot)
	if err != nil {
		tx.Rollback()
		return nil, err
	}

	var state MatchState
	err = tx.QueryRow("SELECT state FROM matches WHERE token = ?", rec.Token).Scan(&state)
	switch {
	case err == sql.ErrNoRows:
		// Settling a token the session layer never persisted is fine;
		// the record is created directly in the settled state.
		_, err = tx.Exec(`
			INSERT INTO matches (token, roster_json, winner, snapshot_json, state, created_at, settled_at, settled_by)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`, rec.Token, string(rosterJSON), int(rec.Winner), string(snapshotJSON), StateSettled, rec.SettledAt, rec.SettledAt, rec.SettledBy)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to insert settled match: %w", err)
		}
	case err != nil:
		tx.Rollback()
		return nil, fmt.Errorf("failed to read match state: %w", err)
	case state != StateDraft:
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s", ErrAlreadySettled, rec.Token)
	default:
		res, err := tx.Exec(`
			UPDATE matches
			SET roster_json = ?, winner = ?, snapshot_json = ?, state = ?, settled_at = ?, settled_by = ?
			WHERE token = ? AND state = ?
		`, string(rosterJSON), int(rec.Winner), string(snapshotJSON), StateSettled, rec.SettledAt, rec.SettledBy, rec.Token, StateDraft)
		if err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to mark match settled: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			tx.Rollback()
			return nil, err
		}
		if affected == 0 {
			tx.Rollback()
			return nil, fmt.Errorf("%w: %s", ErrAlreadySettled, rec.Token)
		}
	}

	playerStmt, err := tx.Prepare(`
		INSERT INTO players (id, name, mu, sigma, wins, losses, captain_wins, captain_losses, last_match_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			name = excluded.name,
			mu = excluded.mu,
			sigma = excluded.sigma,
			wins = wins + excluded.wins,
			losses = losses + excluded.losses,
			captain_wins = captain_wins + excluded.captain_wins,
			captain_losses = captain_losses + excluded.captain_losses,
			last_match_at = excluded.last_match_at;
	`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer playerStmt.Close()

	historyStmt, err := tx.Prepare(`
		INSERT INTO rating_history (player_id, match_token, mu_before, sigma_before, mu_after, sigma_after, recorded_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer historyStmt.Close()

	ids := rec.Roster.Players()
	for i, id := range ids {
		winInc, lossInc, cwInc, clInc := counterDeltas(rec.Roster, rec.Winner, id)
		p := updated[i]
		if _, err := playerStmt.Exec(id, p.Name, p.Mu, p.Sigma, winInc, lossInc, cwInc, clInc, rec.SettledAt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to persist rating for %s: %w", id, err)
		}

		before := rec.Snapshot[i]
		if _, err := historyStmt.Exec(id, rec.Token, before.Mu, before.Sigma, p.Mu, p.Sigma, rec.SettledAt); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to record history for %s: %w", id, err)
		}
	}

	if _, err := tx.Exec(`
		INSERT INTO audit_log (actor_id, action, match_token, recorded_at)
		VALUES (?, 'settled', ?, ?)
	`, rec.SettledBy, rec.Token, rec.SettledAt); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to write audit row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit settlement: %w", err)
	}
	log.Info("Settlement applied", "token", rec.Token, "winner", rec.Winner, "players", len(ids))
	return changes, nil
}

// ApplyRevert undoes a settlement from its snapshot. The restore is
// exact: mu and sigma come back bit-identical and each counter moves
// down by the 1 it moved up at settlement.
func (s *store) ApplyRevert(token, actorID string) (*MatchRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, err
	}

	row := tx.QueryRow(`
		SELECT token, roster_json, winner, snapshot_json, state, created_at, settled_at, settled_by
		FROM matches WHERE token = ?
	`, token)
	rec, err := scanMatch(row)
	if err != nil {
		tx.Rollback()
		if err == sql.ErrNoRows {
			return nil, fmt.Errorf("%w: %s", ErrMatchNotFound, token)
		}
		return nil, fmt.Errorf("failed to load match for revert: %w", err)
	}
	if rec.State != StateSettled {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s is %s", ErrNotSettled, token, rec.State)
	}

	restoreStmt, err := tx.Prepare(`
		UPDATE players
		SET mu = ?, sigma = ?,
			wins = wins - ?,
			losses = losses - ?,
			captain_wins = captain_wins - ?,
			captain_losses = captain_losses - ?
		WHERE id = ?
	`)
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	defer restoreStmt.Close()

	for _, snap := range rec.Snapshot {
		winInc, lossInc, cwInc, clInc := counterDeltas(rec.Roster, rec.Winner, snap.PlayerID)
		if _, err := restoreStmt.Exec(snap.Mu, snap.Sigma, winInc, lossInc, cwInc, clInc, snap.PlayerID); err != nil {
			tx.Rollback()
			return nil, fmt.Errorf("failed to restore rating for %s: %w", snap.PlayerID, err)
		}
	}

	if _, err := tx.Exec("DELETE FROM rating_history WHERE match_token = ?", token); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to delete history rows: %w", err)
	}

	res, err := tx.Exec("UPDATE matches SET state = ? WHERE token = ? AND state = ?", StateReverted, token, StateSettled)
	if err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to mark match reverted: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		tx.Rollback()
		return nil, err
	}
	if affected == 0 {
		tx.Rollback()
		return nil, fmt.Errorf("%w: %s", ErrNotSettled, token)
	}

	if _, err := tx.Exec(`
		INSERT INTO audit_log (actor_id, action, match_token, recorded_at)
		VALUES (?, 'reverted', ?, ?)
	`, actorID, token, time.Now().Unix()); err != nil {
		tx.Rollback()
		return nil, fmt.Errorf("failed to write audit row: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit revert: %w", err)
	}
	log.Info("Settlement reverted", "token", token, "actor", actorID)

	rec.State = StateReverted
	return rec, nil
}

func (s *store) PlayerHistory(playerID string, limit int) ([]HistoryEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT player_id, match_token, mu_before, sigma_before, mu_after, sigma_after, recorded_at
		FROM rating_history WHERE player_id = ?
		ORDER BY recorded_at DESC, id DESC LIMIT ?
	`, playerID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []HistoryEntry
	for rows.Next() {
		var e HistoryEntry
		if err := rows.Scan(&e.PlayerID, &e.MatchToken, &e.MuBefore, &e.SigmaBefore, &e.MuAfter, &e.SigmaAfter, &e.RecordedAt); err != nil {
			return nil, fmt.Errorf("failed to scan history row: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// counterDeltas gives the counter increments settlement applies for one
// player (and revert subtracts). Captaincy is positional: the first
// listed player on each team.
func counterDeltas(roster Roster, winner skill.Winner, playerID string) (win, loss, cwin, closs int) {
	onA := roster.OnTeamA(playerID)
	won := (onA && winner == skill.TeamA) || (!onA && winner == skill.TeamB)

	capA, capB := roster.Captains()
	isCaptain := playerID == capA || playerID == capB

	if won {
		win = 1
		if isCaptain {
			cwin = 1
		}
	} else {
		loss = 1
		if isCaptain {
			closs = 1
		}
	}
	return win, loss, cwin, closs
}

func scanPlayer(scanner interface{ Scan(...any) error }) (PlayerRating, error) {
	var p PlayerRating
	var name sql.NullString
	err := scanner.Scan(&p.PlayerID, &name, &p.Mu, &p.Sigma, &p.Wins, &p.Losses, &p.CaptainWins, &p.CaptainLosses)
	if err != nil {
		return PlayerRating{}, err
	}
	p.Name = name.String
	return p, nil
}

func scanMatch(scanner interface{ Scan(...any) error }) (*MatchRecord, error) {
	var rec MatchRecord
	var rosterJSON string
	var snapshotJSON sql.NullString
	var winner sql.NullInt64
	var settledAt sql.NullInt64
	var settledBy sql.NullString

	err := scanner.Scan(&rec.Token, &rosterJSON, &winner, &snapshotJSON, &rec.State, &rec.CreatedAt, &settledAt, &settledBy)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(rosterJSON), &rec.Roster); err != nil {
		return nil, fmt.Errorf("failed to unmarshal roster_json for %s: %w", rec.Token, err)
	}
	if snapshotJSON.Valid && snapshotJSON.String != "" {
		if err := json.Unmarshal([]byte(snapshotJSON.String), &rec.Snapshot); err != nil {
			return nil, fmt.Errorf("failed to unmarshal snapshot_json for %s: %w", rec.Token, err)
		}
	}
	rec.Winner = skill.Winner(winner.Int64)
	rec.SettledAt = settledAt.Int64
	rec.SettledBy = settledBy.String
	return &rec, nil
}

// ToAnySlice widens a typed slice for variadic query arguments.
func ToAnySlice[T any](s []T) []any {
	a := make([]any, len(s))
	for i, v := range s {
		a[i] = v
	}
	return a
}
