package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/jason-s-yu/assassin/internal/auth"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/game"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/jason-s-yu/assassin/internal/notify"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	*httptest.Server
	engine *game.Engine
	hub    *notify.Hub
}

func newTestServer(t *testing.T, tweak func(*game.Config)) *testServer {
	t.Helper()
	require.NoError(t, auth.Init(time.Hour))

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	cfg := game.DefaultConfig()
	cfg.Adjudication = models.AdjudicateManager
	cfg.Channels = game.Channels{
		Status: "status", Assassinations: "assassinations", Disputes: "disputes",
		Managers: "managers", Announcements: "announcements",
	}
	if tweak != nil {
		tweak(&cfg)
	}
	hub := notify.NewHub(16, logger)
	engine := game.NewEngine(database.NewMemoryStore(), cfg,
		game.WithNotifier(hub), game.WithPublisher(&noopPublisher{}), game.WithLogger(logger))
	t.Cleanup(engine.Close)

	srv := httptest.NewServer(NewServer(engine, hub, logger).Routes())
	t.Cleanup(srv.Close)
	return &testServer{Server: srv, engine: engine, hub: hub}
}

type noopPublisher struct{}

func (*noopPublisher) Publish(context.Context, models.GameEvent) error { return nil }

func token(t *testing.T, userID string, manager bool) string {
	t.Helper()
	tok, err := auth.CreateJWT(userID, manager)
	require.NoError(t, err)
	return tok
}

// do sends a JSON request as userID and decodes the response into out when given.
func (ts *testServer) do(t *testing.T, method, path, userID string, manager bool, body, out interface{}) int {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, ts.URL+path, &buf)
	require.NoError(t, err)
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+token(t, userID, manager))
	}
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer resp.Body.Close()
	if out != nil && resp.StatusCode < 300 && resp.StatusCode != http.StatusNoContent {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp.StatusCode
}

func TestRequiresToken(t *testing.T) {
	ts := newTestServer(t, nil)
	assert.Equal(t, http.StatusUnauthorized, ts.do(t, http.MethodGet, "/state", "", false, nil, nil))

	req, err := http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	require.NoError(t, err)
	req.Header.Set("Authorization", "Bearer nope")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)

	req, err = http.NewRequest(http.MethodGet, ts.URL+"/state", nil)
	require.NoError(t, err)
	req.AddCookie(&http.Cookie{Name: "auth_token", Value: token(t, "p", false)})
	resp, err = http.DefaultClient.Do(req)
	require.NoError(t, err)
	resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	assert.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/healthz", "", false, nil, nil))
}

func TestGameFlowOverHTTP(t *testing.T) {
	ts := newTestServer(t, nil)

	for i := 1; i <= 3; i++ {
		user := fmt.Sprintf("p%d", i)
		var p models.Player
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/players", user, false,
			registerRequest{DisplayName: "Player " + user}, &p))
		assert.Equal(t, "Player "+user, p.DisplayName)

		var team models.Team
		require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/teams", user, false,
			createTeamRequest{Name: "team" + user}, &team))
	}

	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodPost, "/game/start", "p1", false, nil, nil))
	var st models.GameState
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodPost, "/game/start", "mgr", true,
		startRequest{DurationMinutes: 60}, &st))
	assert.Equal(t, models.PhaseActive, st.Phase)
	require.NotNil(t, st.EndsAt)

	var target models.Team
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/me/target", "p1", false, nil, &target))
	var roster []models.TeamRoster
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/teams", "p1", false, nil, &roster))
	victim := ""
	for _, tr := range roster {
		if tr.Team.ID == target.ID {
			victim = tr.Members[0].ID
		}
	}
	require.NotEmpty(t, victim)

	var report models.EliminationReport
	require.Equal(t, http.StatusCreated, ts.do(t, http.MethodPost, "/reports", "p1", false,
		reportRequest{TargetID: victim, Evidence: "photo"}, &report))
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, "/reports", "p1", false,
		reportRequest{TargetID: victim}, nil))

	var pending []models.EliminationReport
	assert.Equal(t, http.StatusForbidden, ts.do(t, http.MethodGet, "/reports", "p1", false, nil, nil))
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/reports", "mgr", true, nil, &pending))
	assert.Len(t, pending, 1)

	path := "/reports/" + report.ID.String() + "/approve"
	assert.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, path, "mgr", true, nil, nil))
	assert.Equal(t, http.StatusConflict, ts.do(t, http.MethodPost, path, "mgr", true, nil, nil))

	var board []models.TeamStanding
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/leaderboard", "p2", false, nil, &board))
	require.Len(t, board, 3)
	assert.Equal(t, 1, board[0].Kills)

	var me models.Player
	require.Equal(t, http.StatusOK, ts.do(t, http.MethodGet, "/me", victim, false, nil, &me))
	assert.False(t, me.Alive)
}

func TestErrorMapping(t *testing.T) {
	ts := newTestServer(t, nil)

	assert.Equal(t, http.StatusNotFound, ts.do(t, http.MethodGet, "/me", "ghost", false, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/teams/abc/join", "p", false, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/reports/not-a-uuid/approve", "mgr", true, nil, nil))
	assert.Equal(t, http.StatusBadRequest, ts.do(t, http.MethodPost, "/game/end", "mgr", true, nil, nil))

	cases := []struct {
		err    error
		status int
	}{
		{game.ErrWrongPhase, http.StatusBadRequest},
		{game.ErrTeamNotFound, http.StatusNotFound},
		{game.ErrNotManager, http.StatusForbidden},
		{game.ErrReportConflict, http.StatusConflict},
		{game.ErrCycleBroken, http.StatusInternalServerError},
		{fmt.Errorf("wrapped: %w", game.ErrDisputeNotFound), http.StatusNotFound},
		{io.EOF, http.StatusInternalServerError},
	}
	for _, c := range cases {
		status, _ := statusFor(c.err)
		assert.Equal(t, c.status, status, c.err.Error())
	}

	_, body := statusFor(game.ErrTeamFull)
	assert.Equal(t, "TeamFull", body.Code)
}

func TestActionDispatch(t *testing.T) {
	ts := newTestServer(t, func(c *game.Config) { c.RegistrationApproval = true })
	ctx := context.Background()
	s := NewServer(ts.engine, ts.hub, logrus.New())

	res, err := ts.engine.Register(ctx, "p1", "")
	require.NoError(t, err)
	require.NotNil(t, res.Pending)

	err = s.dispatchAction(ctx, actionMessage{Action: "registration:p1:approve", UserID: "p2"})
	assert.ErrorIs(t, err, game.ErrNotManager)
	require.NoError(t, s.dispatchAction(ctx, actionMessage{Action: "registration:p1:approve", UserID: "mgr", Manager: true}))

	p, err := ts.engine.Player(ctx, "p1")
	require.NoError(t, err)
	assert.Equal(t, "p1", p.DisplayName)

	for _, bad := range []string{"", "report", "report:x:up", "team:1:delete"} {
		err := s.dispatchAction(ctx, actionMessage{Action: bad})
		assert.ErrorIs(t, err, errUnknownAction, bad)
	}
}

func TestEventFeed(t *testing.T) {
	ts := newTestServer(t, nil)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	wsURL := "ws" + ts.URL[len("http"):] + "/events/ws"
	header := http.Header{}
	header.Set("Authorization", "Bearer "+token(t, "p", false))
	c, _, err := websocket.Dial(ctx, wsURL, &websocket.DialOptions{Subprotocols: []string{feedSubprotocol}, HTTPHeader: header})
	require.NoError(t, err)
	_, _, err = c.Read(ctx)
	assert.Equal(t, websocket.StatusCode(NotManagerError), websocket.CloseStatus(err))

	header.Set("Authorization", "Bearer "+token(t, "bot", true))
	c, _, err = websocket.Dial(ctx, wsURL, &websocket.DialOptions{Subprotocols: []string{feedSubprotocol}, HTTPHeader: header})
	require.NoError(t, err)
	defer c.Close(websocket.StatusNormalClosure, "")

	require.Eventually(t, func() bool { return ts.hub.Subscribers() == 1 }, 2*time.Second, 10*time.Millisecond)
	require.Equal(t, http.StatusNoContent, ts.do(t, http.MethodPost, "/announcements", "mgr", true,
		announceRequest{Text: "Welcome to the game"}, nil))

	var msg notify.Message
	require.NoError(t, wsjson.Read(ctx, c, &msg))
	assert.Equal(t, notify.KindPost, msg.Kind)
	assert.Equal(t, "announcements", msg.Channel)
	assert.Equal(t, "Welcome to the game", msg.Content)

	require.NoError(t, wsjson.Write(ctx, c, actionMessage{Action: "bogus", UserID: "u"}))
	var res actionResult
	require.NoError(t, wsjson.Read(ctx, c, &res))
	assert.False(t, res.OK)
	assert.Equal(t, "bogus", res.Action)
}
