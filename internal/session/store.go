package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	"github.com/pugleague/rating-engine/internal/league"
)

// New creates a new draft store backed by the given database.
func New(db *sql.DB) SessionStore {
	return &store{db: db, now: time.Now}
}

func (s *store) Create(roster league.Roster, createdBy string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.purgeExpired()

	rosterJSON, err := json.Marshal(roster)
	if err != nil {
		return nil, fmt.Errorf("marshalling roster: %w", err)
	}
	now := s.now()
	draft := &Draft{
		Token:     uuid.NewString(),
		Roster:    roster,
		CreatedBy: createdBy,
		CreatedAt: now.Unix(),
		ExpiresAt: now.Add(DraftTTL).Unix(),
	}
	_, err = s.db.Exec(`
		INSERT INTO drafts (token, roster_json, created_by, created_at, expires_at)
		VALUES (?, ?, ?, ?, ?)`,
		draft.Token, string(rosterJSON), draft.CreatedBy, draft.CreatedAt, draft.ExpiresAt,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting draft: %w", err)
	}
	return draft, nil
}

func (s *store) Get(token string) (*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRow(`
		SELECT token, roster_json, created_by, created_at, expires_at
		FROM drafts
		WHERE token = ? AND expires_at > ?`,
		token, s.now().Unix(),
	)
	return scanDraft(row)
}

func (s *store) List() ([]*Draft, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.Query(`
		SELECT token, roster_json, created_by, created_at, expires_at
		FROM drafts
		WHERE expires_at > ?
		ORDER BY created_at DESC`,
		s.now().Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("querying drafts: %w", err)
	}
	defer rows.Close()

	var drafts []*Draft
	for rows.Next() {
		d, err := scanDraft(rows)
		if err != nil {
			return nil, err
		}
		drafts = append(drafts, d)
	}
	return drafts, rows.Err()
}

func (s *store) Cancel(token string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.Exec(`DELETE FROM drafts WHERE token = ? AND expires_at > ?`, token, s.now().Unix())
	if err != nil {
		return fmt.Errorf("cancelling draft: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking cancelled rows: %w", err)
	}
	if affected == 0 {
		return ErrDraftNotFound
	}
	return nil
}

func (s *store) Finalize(token string) (*Draft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	row := tx.QueryRow(`
		SELECT token, roster_json, created_by, created_at, expires_at
		FROM drafts
		WHERE token = ? AND expires_at > ?`,
		token, s.now().Unix(),
	)
	draft, err := scanDraft(row)
	if err != nil {
		return nil, err
	}
	if _, err := tx.Exec(`DELETE FROM drafts WHERE token = ?`, token); err != nil {
		return nil, fmt.Errorf("deleting finalized draft: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("committing transaction: %w", err)
	}
	return draft, nil
}

// purgeExpired drops dead drafts. Called with the write lock held.
func (s *store) purgeExpired() {
	res, err := s.db.Exec(`DELETE FROM drafts WHERE expires_at <= ?`, s.now().Unix())
	if err != nil {
		log.Error("Failed to purge expired drafts", "error", err)
		return
	}
	if n, err := res.RowsAffected(); err == nil && n > 0 {
		log.Debug("Purged expired drafts", "count", n)
	}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanDraft(row rowScanner) (*Draft, error) {
	var d Draft
	var rosterJSON string
	err := row.Scan(&d.Token, &rosterJSON, &d.CreatedBy, &d.CreatedAt, &d.ExpiresAt)
	if err == sql.ErrNoRows {
		return nil, ErrDraftNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scanning draft: %w", err)
	}
	if err := json.Unmarshal([]byte(rosterJSON), &d.Roster); err != nil {
		return nil, fmt.Errorf("unmarshalling roster: %w", err)
	}
	return &d, nil
}
