package session

import "github.com/pugleague/rating-engine/internal/league"

// SessionStore holds in-progress match drafts. A draft is the mutable
// precursor of a match: it exists until it is finalized, cancelled, or
// its TTL runs out. Expired drafts are invisible to every read.
type SessionStore interface {
	// Create stores a new draft under a fresh token and returns it.
	Create(roster league.Roster, createdBy string) (*Draft, error)
	// Get returns a live draft, or ErrDraftNotFound.
	Get(token string) (*Draft, error)
	// List returns all live drafts, newest-first.
	List() ([]*Draft, error)
	// Cancel removes a draft. ErrDraftNotFound if it is not live.
	Cancel(token string) error
	// Finalize consumes a draft and returns it, so the caller can
	// promote it to a match record under the same token. The draft is
	// gone afterwards regardless of what the caller does next.
	Finalize(token string) (*Draft, error)
}
