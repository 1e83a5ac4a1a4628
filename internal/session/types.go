package session

import (
	"database/sql"
	"errors"
	"sync"
	"time"

	"github.com/pugleague/rating-engine/internal/league"
)

// DraftTTL is how long a draft stays live before it silently expires.
const DraftTTL = 24 * time.Hour

// store handles all database operations for drafts.
type store struct {
	db  *sql.DB
	mu  sync.RWMutex
	now func() time.Time
}

var ErrDraftNotFound = errors.New("draft token not found")

// Draft is an in-progress match waiting to be settled or abandoned.
type Draft struct {
	Token     string        `json:"token"`
	Roster    league.Roster `json:"roster"`
	CreatedBy string        `json:"created_by"`
	CreatedAt int64         `json:"created_at"`
	ExpiresAt int64         `json:"expires_at"`
}
