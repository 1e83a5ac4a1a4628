package http

import (
	"bytes"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/pugleague/rating-engine/internal/config"
	"github.com/pugleague/rating-engine/internal/database"
	"github.com/pugleague/rating-engine/internal/league"
	"github.com/pugleague/rating-engine/internal/metrics"
	"github.com/pugleague/rating-engine/internal/notifier"
	"github.com/pugleague/rating-engine/internal/pubsub"
	"github.com/pugleague/rating-engine/internal/session"
	"github.com/pugleague/rating-engine/internal/settlement"
	"github.com/pugleague/rating-engine/internal/skill"
	"github.com/pugleague/rating-engine/internal/stakes"
	slackapi "github.com/slack-go/slack"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// setupTestServer initializes a new server with a test database and mock clients.
func setupTestServer(t *testing.T) (*Server, *notifier.Mock) {
	return setupTestServerWithSecret(t, "")
}

func setupTestServerWithSecret(t *testing.T, slackSigningSecret string) (*Server, *notifier.Mock) {
	t.Helper()

	db, dbTeardown, err := database.InitDB(":memory:", "", "", "../../migrations")
	require.NoError(t, err)
	t.Cleanup(dbTeardown)

	store := league.New(db)
	sessions := session.New(db)
	notif := notifier.NewMock()
	reg := prometheus.NewRegistry()
	metricsSvc := metrics.NewService(reg)
	metricsHandler := metrics.NewMetricsHandler(reg)
	ps := pubsub.NewMock("TEST")
	settlementSvc := settlement.New(store, notif, metricsSvc, ps)
	cfg := config.Config{Slack: config.SlackConfig{SigningSecret: slackSigningSecret}}

	return NewServer(store, sessions, settlementSvc, metricsSvc, metricsHandler, cfg, notif), notif
}

func postJSON(t *testing.T, server *Server, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	payload, err := json.Marshal(body)
	require.NoError(t, err)
	req := httptest.NewRequest("POST", path, bytes.NewReader(payload))
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)
	return rr
}

func twoVTwo() league.Roster {
	return league.Roster{TeamA: []string{"a1", "a2"}, TeamB: []string{"b1", "b2"}}
}

func TestHealthCheckHandler(t *testing.T) {
	server, _ := setupTestServer(t)

	req := httptest.NewRequest("GET", "/health", nil)
	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "OK!", rr.Body.String())
}

func TestSettleHandler(t *testing.T) {
	t.Run("settles a match and returns per-player changes", func(t *testing.T) {
		server, notif := setupTestServer(t)

		rr := postJSON(t, server, "/settle", settleRequest{
			Token:     "pug-1",
			Roster:    twoVTwo(),
			Winner:    int(skill.TeamA),
			SettledBy: "a1",
		})
		require.Equal(t, http.StatusOK, rr.Code)

		var result settlement.Result
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &result))
		assert.Equal(t, "pug-1", result.Match.Token)
		require.Len(t, result.Changes, 4)
		require.Len(t, notif.SendSettlementNotificationCalls, 1)
	})

	t.Run("second settle returns conflict", func(t *testing.T) {
		server, _ := setupTestServer(t)

		req := settleRequest{Token: "pug-1", Roster: twoVTwo(), Winner: int(skill.TeamA), SettledBy: "a1"}
		require.Equal(t, http.StatusOK, postJSON(t, server, "/settle", req).Code)
		assert.Equal(t, http.StatusConflict, postJSON(t, server, "/settle", req).Code)
	})

	t.Run("malformed roster returns bad request", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postJSON(t, server, "/settle", settleRequest{
			Token:  "pug-1",
			Roster: league.Roster{TeamA: []string{"a1"}},
			Winner: int(skill.TeamA),
		})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("dry run leaves no match behind", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postJSON(t, server, "/settle?dry_run=true", settleRequest{
			Token:  "pug-1",
			Roster: twoVTwo(),
			Winner: int(skill.TeamA),
		})
		require.Equal(t, http.StatusOK, rr.Code)

		req := httptest.NewRequest("GET", "/matches?token=pug-1", nil)
		get := httptest.NewRecorder()
		server.ServeHTTP(get, req)
		assert.Equal(t, http.StatusNotFound, get.Code)
	})
}

func TestRevertHandler(t *testing.T) {
	t.Run("revert restores ratings", func(t *testing.T) {
		server, notif := setupTestServer(t)

		require.Equal(t, http.StatusOK, postJSON(t, server, "/settle", settleRequest{
			Token: "pug-1", Roster: twoVTwo(), Winner: int(skill.TeamA), SettledBy: "a1",
		}).Code)

		rr := postJSON(t, server, "/revert", revertRequest{Token: "pug-1", ActorID: "admin"})
		require.Equal(t, http.StatusOK, rr.Code)
		require.Len(t, notif.SendRevertNotificationCalls, 1)

		// Winners are back at the default rating.
		player := httptest.NewRecorder()
		server.ServeHTTP(player, httptest.NewRequest("GET", "/players?query=a1", nil))
		require.Equal(t, http.StatusOK, player.Code)
		var p league.PlayerRating
		require.NoError(t, json.Unmarshal(player.Body.Bytes(), &p))
		assert.Equal(t, skill.DefaultMu, p.Mu)
		assert.Zero(t, p.Wins)
	})

	t.Run("revert of unknown token returns not found", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postJSON(t, server, "/revert", revertRequest{Token: "nope", ActorID: "admin"})
		assert.Equal(t, http.StatusNotFound, rr.Code)
	})

	t.Run("double revert returns conflict", func(t *testing.T) {
		server, _ := setupTestServer(t)

		require.Equal(t, http.StatusOK, postJSON(t, server, "/settle", settleRequest{
			Token: "pug-1", Roster: twoVTwo(), Winner: int(skill.TeamB), SettledBy: "b1",
		}).Code)
		require.Equal(t, http.StatusOK, postJSON(t, server, "/revert", revertRequest{Token: "pug-1", ActorID: "admin"}).Code)
		assert.Equal(t, http.StatusConflict, postJSON(t, server, "/revert", revertRequest{Token: "pug-1", ActorID: "admin"}).Code)
	})
}

func TestPreviewHandler(t *testing.T) {
	server, _ := setupTestServer(t)

	rr := postJSON(t, server, "/preview", previewRequest{Roster: twoVTwo()})
	require.Equal(t, http.StatusOK, rr.Code)

	var playerStakes []stakes.PlayerStake
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &playerStakes))
	require.Len(t, playerStakes, 4)
	for _, st := range playerStakes {
		assert.GreaterOrEqual(t, st.Win.Delta, 0)
		assert.LessOrEqual(t, st.Loss.Delta, 0)
	}

	// Previews never create players.
	lookup := httptest.NewRecorder()
	server.ServeHTTP(lookup, httptest.NewRequest("GET", "/players?query=a1", nil))
	assert.Equal(t, http.StatusNotFound, lookup.Code)
}

func TestLeaderboardHandler(t *testing.T) {
	server, _ := setupTestServer(t)

	require.Equal(t, http.StatusOK, postJSON(t, server, "/settle", settleRequest{
		Token: "pug-1", Roster: twoVTwo(), Winner: int(skill.TeamA), SettledBy: "a1",
	}).Code)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest("GET", "/leaderboard", nil))
	require.Equal(t, http.StatusOK, rr.Code)

	var players []league.PlayerRating
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &players))
	require.Len(t, players, 4)
	// Winners sort above losers on the conservative rating.
	assert.Contains(t, []string{"a1", "a2"}, players[0].PlayerID)
}

func TestDraftHandlers(t *testing.T) {
	t.Run("create, list, and finalize a draft", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postJSON(t, server, "/drafts", draftRequest{Roster: twoVTwo(), CreatedBy: "a1"})
		require.Equal(t, http.StatusOK, rr.Code)
		var draft session.Draft
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &draft))
		require.NotEmpty(t, draft.Token)

		list := httptest.NewRecorder()
		server.ServeHTTP(list, httptest.NewRequest("GET", "/drafts", nil))
		require.Equal(t, http.StatusOK, list.Code)
		var drafts []session.Draft
		require.NoError(t, json.Unmarshal(list.Body.Bytes(), &drafts))
		require.Len(t, drafts, 1)

		fin := httptest.NewRecorder()
		server.ServeHTTP(fin, httptest.NewRequest("POST", "/drafts/finalize?token="+draft.Token, nil))
		require.Equal(t, http.StatusOK, fin.Code)

		// The draft became a match record under the same token.
		match := httptest.NewRecorder()
		server.ServeHTTP(match, httptest.NewRequest("GET", "/matches?token="+draft.Token, nil))
		require.Equal(t, http.StatusOK, match.Code)
		var rec league.MatchRecord
		require.NoError(t, json.Unmarshal(match.Body.Bytes(), &rec))
		assert.Equal(t, league.StateDraft, rec.State)

		// And is gone from the draft store.
		gone := httptest.NewRecorder()
		server.ServeHTTP(gone, httptest.NewRequest("GET", "/drafts?token="+draft.Token, nil))
		assert.Equal(t, http.StatusNotFound, gone.Code)
	})

	t.Run("draft survives a failed promotion", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postJSON(t, server, "/drafts", draftRequest{Roster: twoVTwo(), CreatedBy: "a1"})
		require.Equal(t, http.StatusOK, rr.Code)
		var draft session.Draft
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &draft))

		// Occupy the token so promoting the draft fails.
		require.NoError(t, server.Store.CreateMatch(&league.MatchRecord{
			Token:     draft.Token,
			Roster:    twoVTwo(),
			CreatedAt: draft.CreatedAt,
		}))

		fin := httptest.NewRecorder()
		server.ServeHTTP(fin, httptest.NewRequest("POST", "/drafts/finalize?token="+draft.Token, nil))
		assert.Equal(t, http.StatusConflict, fin.Code)

		// The roster is not lost: the draft is still live.
		still := httptest.NewRecorder()
		server.ServeHTTP(still, httptest.NewRequest("GET", "/drafts?token="+draft.Token, nil))
		assert.Equal(t, http.StatusOK, still.Code)
	})

	t.Run("cancel removes the draft", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postJSON(t, server, "/drafts", draftRequest{Roster: twoVTwo(), CreatedBy: "a1"})
		require.Equal(t, http.StatusOK, rr.Code)
		var draft session.Draft
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &draft))

		cancel := httptest.NewRecorder()
		server.ServeHTTP(cancel, httptest.NewRequest("POST", "/drafts/cancel?token="+draft.Token, nil))
		require.Equal(t, http.StatusOK, cancel.Code)

		again := httptest.NewRecorder()
		server.ServeHTTP(again, httptest.NewRequest("POST", "/drafts/cancel?token="+draft.Token, nil))
		assert.Equal(t, http.StatusNotFound, again.Code)
	})
}

func TestSlackCommandHandlers(t *testing.T) {
	postForm := func(server *Server, path string, form url.Values) *httptest.ResponseRecorder {
		req := httptest.NewRequest("POST", path, strings.NewReader(form.Encode()))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		return rr
	}

	t.Run("leaderboard command responds with a formatted message", func(t *testing.T) {
		server, notif := setupTestServer(t)
		notif.FormatLeaderboardResponseFunc = func(players []league.PlayerRating) (any, error) {
			return slackapi.NewBlockMessage(), nil
		}

		rr := postForm(server, "/slack/command/leaderboard", url.Values{})
		require.Equal(t, http.StatusOK, rr.Code)
		assert.Equal(t, "application/json", rr.Header().Get("Content-Type"))
	})

	t.Run("player stats command requires a query", func(t *testing.T) {
		server, _ := setupTestServer(t)

		rr := postForm(server, "/slack/command/player-stats", url.Values{})
		assert.Equal(t, http.StatusBadRequest, rr.Code)
	})

	t.Run("stakes command resolves a draft token", func(t *testing.T) {
		server, notif := setupTestServer(t)
		notif.FormatStakesResponseFunc = func(token string, playerStakes []stakes.PlayerStake) (any, error) {
			return slackapi.NewBlockMessage(), nil
		}

		create := postJSON(t, server, "/drafts", draftRequest{Roster: twoVTwo(), CreatedBy: "a1"})
		require.Equal(t, http.StatusOK, create.Code)
		var draft session.Draft
		require.NoError(t, json.Unmarshal(create.Body.Bytes(), &draft))

		rr := postForm(server, "/slack/command/stakes", url.Values{"text": {draft.Token}})
		require.Equal(t, http.StatusOK, rr.Code)

		gone := postForm(server, "/slack/command/stakes", url.Values{"text": {"unknown-token"}})
		assert.Equal(t, http.StatusNotFound, gone.Code)
	})
}

func TestSlackSignatureVerification(t *testing.T) {
	const signingSecret = "test-signing-secret"

	signedRequest := func(t *testing.T, path string, form url.Values, secret string) *http.Request {
		t.Helper()
		body := form.Encode()
		req := httptest.NewRequest("POST", path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

		timestamp := strconv.FormatInt(time.Now().Unix(), 10)
		req.Header.Set("X-Slack-Request-Timestamp", timestamp)

		mac := hmac.New(sha256.New, []byte(secret))
		fmt.Fprintf(mac, "v0:%s:%s", timestamp, body)
		req.Header.Set("X-Slack-Signature", "v0="+hex.EncodeToString(mac.Sum(nil)))
		return req
	}

	t.Run("accepts a correctly signed command", func(t *testing.T) {
		server, notif := setupTestServerWithSecret(t, signingSecret)
		notif.FormatLeaderboardResponseFunc = func(players []league.PlayerRating) (any, error) {
			return slackapi.NewBlockMessage(), nil
		}

		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, signedRequest(t, "/slack/command/leaderboard", url.Values{}, signingSecret))
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("rejects a request signed with the wrong secret", func(t *testing.T) {
		server, _ := setupTestServerWithSecret(t, signingSecret)

		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, signedRequest(t, "/slack/command/leaderboard", url.Values{}, "wrong-secret"))
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})

	t.Run("rejects a request with no signature headers", func(t *testing.T) {
		server, _ := setupTestServerWithSecret(t, signingSecret)

		req := httptest.NewRequest("POST", "/slack/command/leaderboard", strings.NewReader(""))
		rr := httptest.NewRecorder()
		server.ServeHTTP(rr, req)
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestMetricsEndpoint(t *testing.T) {
	server, _ := setupTestServer(t)

	require.Equal(t, http.StatusOK, postJSON(t, server, "/settle", settleRequest{
		Token: "pug-1", Roster: twoVTwo(), Winner: int(skill.TeamA), SettledBy: "a1",
	}).Code)

	rr := httptest.NewRecorder()
	server.ServeHTTP(rr, httptest.NewRequest("GET", "/metrics", nil))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "pug_settlements_total")
}
