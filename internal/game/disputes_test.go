package game

import (
	"context"
	"testing"

	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDisputes(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_, err := h.e.SubmitDispute(ctx, "alice", "   ")
	assert.ErrorIs(t, err, ErrInvalidBody)

	d, err := h.e.SubmitDispute(ctx, "alice", "bob used a water balloon")
	require.NoError(t, err)
	assert.Equal(t, int64(1), d.ID)
	require.Len(t, h.notes.postsTo("disputes"), 1)
	assert.Equal(t, "Dispute #1 from alice: bob used a water balloon", h.notes.postsTo("disputes")[0].content)

	_, err = h.e.ResolveDispute(ctx, Actor{UserID: "alice"}, d.ID, "fine")
	assert.ErrorIs(t, err, ErrNotManager)
	_, err = h.e.ResolveDispute(ctx, manager, 42, "fine")
	assert.ErrorIs(t, err, ErrDisputeNotFound)

	resolved, err := h.e.ResolveDispute(ctx, manager, d.ID, "balloons are allowed")
	require.NoError(t, err)
	assert.True(t, resolved.Resolved())
	assert.Equal(t, "Your dispute #1 was resolved: balloons are allowed", h.notes.lastMessageFor("alice"))

	_, err = h.e.ResolveDispute(ctx, manager, d.ID, "again")
	assert.ErrorIs(t, err, ErrAlreadyResolved)

	all, err := h.e.Disputes(ctx)
	require.NoError(t, err)
	require.Len(t, all, 1)
	assert.Equal(t, "balloons are allowed", *all[0].Resolution)
}

func TestAnnounce(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	assert.ErrorIs(t, h.e.Announce(ctx, Actor{UserID: "p"}, "hi"), ErrNotManager)
	assert.ErrorIs(t, h.e.Announce(ctx, manager, ""), ErrInvalidBody)
	require.NoError(t, h.e.Announce(ctx, manager, "Safe zones are the dining halls."))

	posts := h.notes.postsTo("announcements")
	require.Len(t, posts, 1)
	assert.Equal(t, "Safe zones are the dining halls.", posts[0].content)
	assert.Equal(t, 1, h.pub.count(models.EventAnnouncementPosted))
}

func TestLeaderboardOrdersByKills(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	teams := h.setupTeams(t, 1, 2, 2, 1)
	h.start(t)
	h.forceCycle(t, teams[0].ID, teams[1].ID, teams[2].ID, teams[3].ID)

	h.kill(t, "t3p1", "t4p1") // team4 is out, team3 now hunts team1
	h.kill(t, "t1p1", "t2p1")

	board, err := h.e.Leaderboard(ctx)
	require.NoError(t, err)
	require.Len(t, board, 4)

	var order []int64
	for _, row := range board {
		order = append(order, row.Team.ID)
	}
	// team1 and team3 tie on one kill and break on id
	assert.Equal(t, []int64{teams[0].ID, teams[2].ID, teams[1].ID, teams[3].ID}, order)
	assert.Equal(t, 1, board[0].Kills)
	assert.Equal(t, 0, board[2].Kills)
	assert.Equal(t, 1, board[2].Living)
	assert.Equal(t, 2, board[2].Members)
	assert.False(t, board[3].Team.Active)
}

func TestTargetOf(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	teams := h.setupTeams(t, 1, 1, 1)

	_, err := h.e.Register(ctx, "loner", "")
	require.NoError(t, err)
	_, err = h.e.TargetOf(ctx, "loner")
	assert.ErrorIs(t, err, ErrNotOnTeam)

	target, err := h.e.TargetOf(ctx, "t1p1")
	require.NoError(t, err)
	assert.Nil(t, target, "no targets before the game starts")

	// loner blocks start
	_, err = h.e.StartGame(ctx, manager, StartOptions{})
	require.ErrorIs(t, err, ErrPlayersWithoutTeam)
	_, err = h.e.CreateTeam(ctx, "loner", "solo")
	require.NoError(t, err)

	h.start(t)
	h.forceCycle(t, teams[0].ID, teams[1].ID, teams[2].ID, 4)
	target, err = h.e.TargetOf(ctx, "t1p1")
	require.NoError(t, err)
	require.NotNil(t, target)
	assert.Equal(t, "team2", target.Name)
}
