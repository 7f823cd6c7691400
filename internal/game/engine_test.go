package game

import (
	"context"
	"fmt"
	"io"
	"math/rand/v2"
	"strings"
	"sync"
	"testing"

	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"
)

var manager = Actor{UserID: "mgr", Manager: true}

type post struct {
	channel string
	content string
	actions []models.Action
}

// mockNotifier records messages instead of delivering them.
type mockNotifier struct {
	mu    sync.Mutex
	dms   map[string][]string
	posts []post
}

func newMockNotifier() *mockNotifier {
	return &mockNotifier{dms: make(map[string][]string)}
}

func (m *mockNotifier) NotifyUser(ctx context.Context, userID, text string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.dms[userID] = append(m.dms[userID], text)
	return nil
}

func (m *mockNotifier) PostToChannel(ctx context.Context, channel, content string, actions []models.Action) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.posts = append(m.posts, post{channel: channel, content: content, actions: actions})
	return nil
}

func (m *mockNotifier) messagesFor(userID string) []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.dms[userID]...)
}

func (m *mockNotifier) postsTo(channel string) []post {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []post
	for _, p := range m.posts {
		if p.channel == channel {
			out = append(out, p)
		}
	}
	return out
}

func (m *mockNotifier) lastMessageFor(userID string) string {
	msgs := m.messagesFor(userID)
	if len(msgs) == 0 {
		return ""
	}
	return msgs[len(msgs)-1]
}

// mockPublisher collects published events.
type mockPublisher struct {
	mu     sync.Mutex
	events []models.GameEvent
}

func (m *mockPublisher) Publish(ctx context.Context, ev models.GameEvent) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.events = append(m.events, ev)
	return nil
}

func (m *mockPublisher) count(typ models.GameEventType) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for _, ev := range m.events {
		if ev.Type == typ {
			n++
		}
	}
	return n
}

type harness struct {
	e     *Engine
	store *database.MemoryStore
	notes *mockNotifier
	pub   *mockPublisher
}

func testChannels() Channels {
	return Channels{
		Status:         "status",
		Assassinations: "assassinations",
		Disputes:       "disputes",
		Managers:       "managers",
		Announcements:  "announcements",
	}
}

// newHarness builds an engine over a memory store. tweak may adjust the config.
func newHarness(t *testing.T, tweak func(*Config)) *harness {
	t.Helper()
	cfg := DefaultConfig()
	cfg.Channels = testChannels()
	cfg.Adjudication = models.AdjudicateManager
	if tweak != nil {
		tweak(&cfg)
	}

	logger := logrus.New()
	logger.SetOutput(io.Discard)

	h := &harness{
		store: database.NewMemoryStore(),
		notes: newMockNotifier(),
		pub:   &mockPublisher{},
	}
	h.e = NewEngine(h.store, cfg,
		WithNotifier(h.notes),
		WithPublisher(h.pub),
		WithLogger(logger),
		WithRand(rand.New(rand.NewPCG(7, 11))),
	)
	t.Cleanup(h.e.Close)
	return h
}

type fixtureTeam struct {
	ID      int64
	Players []string
}

// setupTeams registers players and forms one team per size. Player j of team
// i is "t<i>p<j>" and owns the team when j is 1.
func (h *harness) setupTeams(t *testing.T, sizes ...int) []fixtureTeam {
	t.Helper()
	ctx := context.Background()
	teams := make([]fixtureTeam, 0, len(sizes))
	for i, size := range sizes {
		var ft fixtureTeam
		for j := 1; j <= size; j++ {
			id := fmt.Sprintf("t%dp%d", i+1, j)
			res, err := h.e.Register(ctx, id, strings.ToUpper(id))
			require.NoError(t, err)
			if res.Pending != nil {
				_, err = h.e.ApprovePendingRegistration(ctx, manager, id)
				require.NoError(t, err)
			}
			ft.Players = append(ft.Players, id)
		}
		team, err := h.e.CreateTeam(ctx, ft.Players[0], fmt.Sprintf("team%d", i+1))
		require.NoError(t, err)
		ft.ID = team.ID
		for _, id := range ft.Players[1:] {
			jr, err := h.e.RequestJoin(ctx, id, team.ID)
			require.NoError(t, err)
			require.NoError(t, h.e.ApproveJoin(ctx, ft.Players[0], jr.ID))
		}
		teams = append(teams, ft)
	}
	return teams
}

func (h *harness) start(t *testing.T) {
	t.Helper()
	_, err := h.e.StartGame(context.Background(), manager, StartOptions{})
	require.NoError(t, err)
}

// forceCycle rewires the targets so ids[i] hunts ids[i+1].
func (h *harness) forceCycle(t *testing.T, ids ...int64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, h.store.Tx(ctx, func(q database.Queries) error {
		for i, id := range ids {
			team, err := q.GetTeam(ctx, id)
			if err != nil {
				return err
			}
			next := ids[(i+1)%len(ids)]
			team.TargetTeamID = &next
			if err := q.UpdateTeam(ctx, team); err != nil {
				return err
			}
		}
		return nil
	}))
}

func (h *harness) team(t *testing.T, id int64) *models.Team {
	t.Helper()
	var team *models.Team
	require.NoError(t, h.store.View(context.Background(), func(q database.Queries) error {
		var err error
		team, err = q.GetTeam(context.Background(), id)
		return err
	}))
	return team
}

func (h *harness) player(t *testing.T, id string) *models.Player {
	t.Helper()
	p, err := h.e.Player(context.Background(), id)
	require.NoError(t, err)
	return p
}

func (h *harness) allTeams(t *testing.T) []models.Team {
	t.Helper()
	var teams []models.Team
	require.NoError(t, h.store.View(context.Background(), func(q database.Queries) error {
		var err error
		teams, err = q.ListTeams(context.Background())
		return err
	}))
	return teams
}

func (h *harness) eliminations(t *testing.T) []models.EliminationRecord {
	t.Helper()
	var recs []models.EliminationRecord
	require.NoError(t, h.store.View(context.Background(), func(q database.Queries) error {
		var err error
		recs, err = q.ListEliminations(context.Background())
		return err
	}))
	return recs
}

func (h *harness) state(t *testing.T) *models.GameState {
	t.Helper()
	st, err := h.e.State(context.Background())
	require.NoError(t, err)
	return st
}

// report submits a report and returns its id.
func (h *harness) report(t *testing.T, assassin, target string) *models.EliminationReport {
	t.Helper()
	r, err := h.e.SubmitReport(context.Background(), assassin, target, "https://example.com/photo.jpg")
	require.NoError(t, err)
	return r
}

// kill reports and approves the elimination of target by assassin.
func (h *harness) kill(t *testing.T, assassin, target string) {
	t.Helper()
	r := h.report(t, assassin, target)
	require.NoError(t, h.e.Approve(context.Background(), manager, r.ID))
}
