package http

import (
	"net/http"

	"github.com/pugleague/rating-engine/internal/config"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/metrics"
	"github.com/pugleague/rating-engine/internal/notifier"
	"github.com/pugleague/rating-engine/internal/session"
	"github.com/pugleague/rating-engine/internal/settlement"
)

type Server struct {
	Store          league.LeagueStore
	Sessions       session.SessionStore
	Settlement     *settlement.Service
	Metrics        metrics.Metrics
	MetricsHandler http.Handler
	Cfg            config.Config
	Notifier       notifier.Notifier
	Router         *http.ServeMux
}

// settleRequest is the body of POST /settle.
type settleRequest struct {
	Token     string        `json:"token"`
	Roster    league.Roster `json:"roster"`
	Winner    int           `json:"winner"`
	SettledBy string        `json:"settled_by"`
}

// revertRequest is the body of POST /revert.
type revertRequest struct {
	Token   string `json:"token"`
	ActorID string `json:"actor_id"`
}

// previewRequest is the body of POST /preview.
type previewRequest struct {
	Roster league.Roster `json:"roster"`
}

// draftRequest is the body of POST /drafts.
type draftRequest struct {
	Roster    league.Roster `json:"roster"`
	CreatedBy string        `json:"created_by"`
}
