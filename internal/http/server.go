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

func NewServer(store league.LeagueStore, sessions session.SessionStore, settlementSvc *settlement.Service, metricsSvc metrics.Metrics, metricsHandler http.Handler, cfg config.Config, notifier notifier.Notifier) *Server {
	server := &Server{
		Store:          store,
		Sessions:       sessions,
		Settlement:     settlementSvc,
		Metrics:        metricsSvc,
		MetricsHandler: metricsHandler,
		Cfg:            cfg,
		Notifier:       notifier,
		Router:         http.NewServeMux(),
	}

	server.routes()
	return server
}

func (s *Server) routes() {
	// All handlers are wrapped with middleware using the Chain helper.
	// This makes it easy to add more middlewares in the future, like an authentication middleware.
	// e.g. Chain(s.MyHandler(), paramsMiddleware, authMiddleware)
	s.Router.Handle("/metrics", s.MetricsHandler)
	s.Router.Handle("/health", Chain(s.HealthCheckHandler(), paramsMiddleware))
	s.Router.Handle("/leaderboard", Chain(s.LeaderboardHandler(), paramsMiddleware))
	s.Router.Handle("/players", Chain(s.GetPlayerHandler(), paramsMiddleware))
	s.Router.Handle("/players/history", Chain(s.PlayerHistoryHandler(), paramsMiddleware))
	s.Router.Handle("/matches", Chain(s.ListMatchesHandler(), paramsMiddleware))
	s.Router.Handle("/preview", Chain(s.PreviewHandler(), paramsMiddleware))
	s.Router.Handle("/settle", Chain(s.SettleHandler(), paramsMiddleware))
	s.Router.Handle("/revert", Chain(s.RevertHandler(), paramsMiddleware))
	s.Router.Handle("/drafts", Chain(s.DraftsHandler(), paramsMiddleware))
	s.Router.Handle("/drafts/cancel", Chain(s.CancelDraftHandler(), paramsMiddleware))
	s.Router.Handle("/drafts/finalize", Chain(s.FinalizeDraftHandler(), paramsMiddleware))
	slackVerify := slackVerifyMiddleware(s.Cfg.Slack.SigningSecret)
	s.Router.Handle("/slack/command/leaderboard", Chain(s.LeaderboardCommandHandler(), paramsMiddleware, slackVerify))
	s.Router.Handle("/slack/command/player-stats", Chain(s.PlayerStatsCommandHandler(), paramsMiddleware, slackVerify))
	s.Router.Handle("/slack/command/stakes", Chain(s.StakesCommandHandler(), paramsMiddleware, slackVerify))
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.Router.ServeHTTP(w, r)
}
