package database

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// openTestDB connects to TEST_DATABASE_URL, migrates it and empties every table.
func openTestDB(t *testing.T) *PostgresStore {
	t.Helper()
	dsn := os.Getenv("TEST_DATABASE_URL")
	if dsn == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	require.NoError(t, RunMigrations(dsn, ""))
	ctx := context.Background()
	s, err := ConnectDB(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(s.Close)

	_, err = s.Pool.Exec(ctx, `
		TRUNCATE report_votes, elimination_reports, eliminations, join_requests,
			pending_registrations, disputes, game_events, players, teams RESTART IDENTITY CASCADE`)
	require.NoError(t, err)
	_, err = s.Pool.Exec(ctx, `UPDATE game_state SET phase = 'lobby', sudden_death = false,
		started_at = NULL, ends_at = NULL, ended_at = NULL, winner_team_id = NULL`)
	require.NoError(t, err)
	return s
}

func TestPostgresRosterRoundTrip(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	require.NoError(t, s.Tx(ctx, func(q Queries) error {
		for _, id := range []string{"a", "b"} {
			if err := q.CreatePlayer(ctx, &models.Player{ID: id, DisplayName: id, Alive: true, RegisteredAt: time.Now()}); err != nil {
				return err
			}
		}
		team := &models.Team{Name: "reds", OwnerID: ptrTo("a"), Active: true, CreatedAt: time.Now()}
		if err := q.CreateTeam(ctx, team); err != nil {
			return err
		}
		a, err := q.GetPlayer(ctx, "a")
		if err != nil {
			return err
		}
		a.TeamID = &team.ID
		return q.UpdatePlayer(ctx, a)
	}))

	require.NoError(t, s.View(ctx, func(q Queries) error {
		players, err := q.ListPlayers(ctx)
		require.NoError(t, err)
		require.Len(t, players, 2)
		assert.Less(t, players[0].Seq, players[1].Seq)

		team, err := q.GetTeamByName(ctx, "reds")
		require.NoError(t, err)
		members, err := q.ListTeamMembers(ctx, team.ID)
		require.NoError(t, err)
		require.Len(t, members, 1)
		assert.Equal(t, "a", members[0].ID)

		_, err = q.GetPlayer(ctx, "nobody")
		assert.ErrorIs(t, err, ErrNotFound)
		return nil
	}))

	err := s.Tx(ctx, func(q Queries) error {
		return q.CreateTeam(ctx, &models.Team{Name: "reds", Active: true, CreatedAt: time.Now()})
	})
	assert.ErrorIs(t, err, ErrDuplicate)
}

func TestPostgresTxRollsBack(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	err := s.Tx(ctx, func(q Queries) error {
		if err := q.CreatePlayer(ctx, &models.Player{ID: "x", DisplayName: "x", Alive: true, RegisteredAt: time.Now()}); err != nil {
			return err
		}
		return ErrNotFound
	})
	require.ErrorIs(t, err, ErrNotFound)

	require.NoError(t, s.View(ctx, func(q Queries) error {
		_, err := q.GetPlayer(ctx, "x")
		assert.ErrorIs(t, err, ErrNotFound)
		st, err := q.GetGameState(ctx)
		require.NoError(t, err)
		assert.Equal(t, models.PhaseLobby, st.Phase)
		return nil
	}))
}

func TestPostgresInsertEvents(t *testing.T) {
	s := openTestDB(t)
	ctx := context.Background()

	ev := models.GameEvent{ID: uuid.New(), Type: models.EventGameStarted, ActorID: "mgr",
		Payload: map[string]interface{}{"teams": 3}, Timestamp: time.Now().UnixMilli()}
	require.NoError(t, s.InsertEvents(ctx, []models.GameEvent{ev}))
	require.NoError(t, s.InsertEvents(ctx, []models.GameEvent{ev}), "replays are skipped")

	var n int
	require.NoError(t, s.Pool.QueryRow(ctx, `SELECT count(*) FROM game_events`).Scan(&n))
	assert.Equal(t, 1, n)
}

func ptrTo[T any](v T) *T { return &v }
