package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/charmbracelet/log"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/session"
	"github.com/pugleague/rating-engine/internal/settlement"
	"github.com/pugleague/rating-engine/internal/skill"
	"github.com/slack-go/slack"
)

func (s *Server) HealthCheckHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		log.Debug("Received health check request")
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "OK!")
	}
}

// LeaderboardHandler serves the player leaderboard, ordered by the
// conservative shown rating unless a sort parameter says otherwise.
func (s *Server) LeaderboardHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		sort := league.SortByRating
		switch r.URL.Query().Get("sort") {
		case "wins":
			sort = league.SortByWins
		case "captain_wins":
			sort = league.SortByCaptainWins
		}
		limit := parseLimit(r, 50)

		players, err := s.Store.Leaderboard(sort, limit)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}
		respondJSON(w, players)
	}
}

// GetPlayerHandler serves a single player's rating and record.
func (s *Server) GetPlayerHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query().Get("query")
		if query == "" {
			http.Error(w, "Query parameter 'query' is required", http.StatusBadRequest)
			return
		}

		player, err := s.Store.FindPlayer(query)
		if err != nil {
			if errors.Is(err, league.ErrPlayerNotFound) {
				http.Error(w, "Player not found", http.StatusNotFound)
				return
			}
			http.Error(w, "Failed to get player", http.StatusInternalServerError)
			log.Error("Failed to get player from store", "error", err, "query", query)
			return
		}
		respondJSON(w, player)
	}
}

// PlayerHistoryHandler serves a player's rating movements, newest-first.
func (s *Server) PlayerHistoryHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		playerID := r.URL.Query().Get("playerID")
		if playerID == "" {
			http.Error(w, "Query parameter 'playerID' is required", http.StatusBadRequest)
			return
		}

		history, err := s.Store.PlayerHistory(playerID, parseLimit(r, 50))
		if err != nil {
			http.Error(w, "Failed to get player history", http.StatusInternalServerError)
			log.Error("Failed to get player history from store", "error", err, "playerID", playerID)
			return
		}
		respondJSON(w, history)
	}
}

// ListMatchesHandler serves recent match records, or a single record
// when a token parameter is given.
func (s *Server) ListMatchesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if token := r.URL.Query().Get("token"); token != "" {
			match, err := s.Store.GetMatch(token)
			if err != nil {
				if errors.Is(err, league.ErrMatchNotFound) {
					http.Error(w, "Match not found", http.StatusNotFound)
					return
				}
				http.Error(w, "Failed to get match", http.StatusInternalServerError)
				log.Error("Failed to get match from store", "error", err, "token", token)
				return
			}
			respondJSON(w, match)
			return
		}

		matches, err := s.Store.ListMatches(parseLimit(r, 50))
		if err != nil {
			http.Error(w, "Failed to get matches", http.StatusInternalServerError)
			log.Error("Failed to get matches from store", "error", err)
			return
		}
		respondJSON(w, matches)
	}
}

// PreviewHandler computes the stakes of a prospective match. It never
// writes anything.
func (s *Server) PreviewHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req previewRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}

		playerStakes, err := s.Settlement.Preview(req.Roster)
		if err != nil {
			respondSettlementError(w, err)
			return
		}
		respondJSON(w, playerStakes)
	}
}

// SettleHandler settles a match with its real outcome.
func (s *Server) SettleHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req settleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		isDryRun := isDryRunFromContext(r)

		result, err := s.Settlement.Settle(req.Token, req.Roster, skill.Winner(req.Winner), req.SettledBy, isDryRun)
		if err != nil {
			respondSettlementError(w, err)
			return
		}
		respondJSON(w, result)
	}
}

// RevertHandler rolls back a settled match.
func (s *Server) RevertHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req revertRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "Invalid JSON", http.StatusBadRequest)
			return
		}
		isDryRun := isDryRunFromContext(r)

		result, err := s.Settlement.Revert(req.Token, req.ActorID, isDryRun)
		if err != nil {
			respondSettlementError(w, err)
			return
		}
		respondJSON(w, result)
	}
}

// DraftsHandler creates a draft on POST and lists live drafts on GET.
func (s *Server) DraftsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodPost:
			var req draftRequest
			if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
				http.Error(w, "Invalid JSON", http.StatusBadRequest)
				return
			}
			draft, err := s.Sessions.Create(req.Roster, req.CreatedBy)
			if err != nil {
				http.Error(w, "Failed to create draft", http.StatusInternalServerError)
				log.Error("Failed to create draft", "error", err)
				return
			}
			respondJSON(w, draft)
		default:
			if token := r.URL.Query().Get("token"); token != "" {
				draft, err := s.Sessions.Get(token)
				if err != nil {
					respondDraftError(w, err)
					return
				}
				respondJSON(w, draft)
				return
			}
			drafts, err := s.Sessions.List()
			if err != nil {
				http.Error(w, "Failed to list drafts", http.StatusInternalServerError)
				log.Error("Failed to list drafts", "error", err)
				return
			}
			respondJSON(w, drafts)
		}
	}
}

// CancelDraftHandler discards a draft.
func (s *Server) CancelDraftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Query parameter 'token' is required", http.StatusBadRequest)
			return
		}
		if err := s.Sessions.Cancel(token); err != nil {
			respondDraftError(w, err)
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintf(w, "Draft %s cancelled.", token)
	}
}

// FinalizeDraftHandler promotes a draft to an unsettled match record
// under the same token, ready to be settled.
func (s *Server) FinalizeDraftHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		token := r.URL.Query().Get("token")
		if token == "" {
			http.Error(w, "Query parameter 'token' is required", http.StatusBadRequest)
			return
		}

		draft, err := s.Sessions.Get(token)
		if err != nil {
			respondDraftError(w, err)
			return
		}

		rec := &league.MatchRecord{
			Token:     draft.Token,
			Roster:    draft.Roster,
			State:     league.StateDraft,
			CreatedAt: draft.CreatedAt,
		}
		// The match record must exist before the draft is consumed; a
		// store failure here leaves the draft intact for a retry.
		if err := s.Store.CreateMatch(rec); err != nil {
			if errors.Is(err, league.ErrDuplicateToken) {
				http.Error(w, "A match with this token already exists", http.StatusConflict)
				return
			}
			http.Error(w, "Failed to create match", http.StatusInternalServerError)
			log.Error("Failed to create match from draft", "error", err, "token", token)
			return
		}
		if _, err := s.Sessions.Finalize(token); err != nil {
			log.Error("Failed to consume finalized draft", "error", err, "token", token)
		}
		respondJSON(w, rec)
	}
}

// respondWithSlackMsg is a helper to format and write a Slack message as an HTTP response.
func respondWithSlackMsg(w http.ResponseWriter, msg slack.Message) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(msg); err != nil {
		log.Error("Failed to encode slack message to JSON", "error", err)
	}
}

// LeaderboardCommandHandler returns a handler for the /leaderboard Slack command.
func (s *Server) LeaderboardCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		players, err := s.Store.Leaderboard(league.SortByRating, 25)
		if err != nil {
			http.Error(w, "Failed to get leaderboard", http.StatusInternalServerError)
			log.Error("Failed to get leaderboard from store", "error", err)
			return
		}

		msg, err := s.Notifier.FormatLeaderboardResponse(players)
		if err != nil {
			http.Error(w, "Failed to format leaderboard", http.StatusInternalServerError)
			log.Error("Failed to format leaderboard", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}

		respondWithSlackMsg(w, slackMsg)
	}
}

// PlayerStatsCommandHandler returns a handler for the /player-stats Slack command.
func (s *Server) PlayerStatsCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		query := r.FormValue("text")
		if query == "" {
			http.Error(w, "Player name is required.", http.StatusBadRequest)
			return
		}

		log.Info("Received player stats command", "player", query)

		player, err := s.Store.FindPlayer(query)
		var msg any
		if err != nil {
			log.Warn("Could not find player", "player", query, "error", err)
			msg, err = s.Notifier.FormatPlayerNotFoundResponse(query)
		} else {
			msg, err = s.Notifier.FormatPlayerStatsResponse(&player, query)
		}

		if err != nil {
			http.Error(w, "Failed to format player stats", http.StatusInternalServerError)
			log.Error("Failed to format player stats", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

// StakesCommandHandler returns a handler for the /stakes Slack command.
// The command text is a draft token; the stakes of its roster are
// computed without touching stored ratings.
func (s *Server) StakesCommandHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			http.Error(w, "Error parsing form", http.StatusBadRequest)
			return
		}
		token := r.FormValue("text")
		if token == "" {
			http.Error(w, "Draft token is required.", http.StatusBadRequest)
			return
		}

		draft, err := s.Sessions.Get(token)
		if err != nil {
			respondDraftError(w, err)
			return
		}

		playerStakes, err := s.Settlement.Preview(draft.Roster)
		if err != nil {
			respondSettlementError(w, err)
			return
		}

		msg, err := s.Notifier.FormatStakesResponse(token, playerStakes)
		if err != nil {
			http.Error(w, "Failed to format stakes", http.StatusInternalServerError)
			log.Error("Failed to format stakes", "error", err)
			return
		}

		slackMsg, ok := msg.(slack.Message)
		if !ok {
			http.Error(w, "Invalid message format for Slack", http.StatusInternalServerError)
			log.Error("Failed to cast message to slack.Message")
			return
		}
		respondWithSlackMsg(w, slackMsg)
	}
}

func respondJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error("Failed to write response", "error", err)
	}
}

// respondSettlementError maps settlement and store errors onto HTTP
// status codes: preconditions are the caller's fault, state conflicts
// are 409, unknown tokens are 404, everything else is a 500.
func respondSettlementError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, settlement.ErrEmptyTeam),
		errors.Is(err, settlement.ErrDuplicatePlayer),
		errors.Is(err, settlement.ErrInvalidWinner),
		errors.Is(err, settlement.ErrEmptyToken):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, league.ErrAlreadySettled), errors.Is(err, league.ErrNotSettled):
		http.Error(w, err.Error(), http.StatusConflict)
	case errors.Is(err, league.ErrMatchNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		log.Error("Settlement operation failed", "error", err)
		http.Error(w, "Internal error", http.StatusInternalServerError)
	}
}

func respondDraftError(w http.ResponseWriter, err error) {
	if errors.Is(err, session.ErrDraftNotFound) {
		http.Error(w, "Draft not found", http.StatusNotFound)
		return
	}
	log.Error("Draft operation failed", "error", err)
	http.Error(w, "Internal error", http.StatusInternalServerError)
}

func parseLimit(r *http.Request, def int) int {
	limitStr := r.URL.Query().Get("limit")
	if limitStr == "" {
		return def
	}
	limit, err := strconv.Atoi(limitStr)
	if err != nil || limit <= 0 {
		log.Warn("Invalid 'limit' parameter provided. Using default.", "limit_param", limitStr)
		return def
	}
	return limit
}
