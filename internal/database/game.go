package database

import (
	"context"

	"github.com/jason-s-yu/assassin/internal/models"
)

func (q *pgQueries) GetGameState(ctx context.Context) (*models.GameState, error) {
	var st models.GameState
	err := q.db.QueryRow(ctx, `
		SELECT phase, sudden_death, started_at, ends_at, ended_at, winner_team_id
		FROM game_state WHERE id = 1`).Scan(
		&st.Phase, &st.SuddenDeath, &st.StartedAt, &st.EndsAt, &st.EndedAt, &st.WinnerTeamID,
	)
	if err != nil {
		if mapErr(err) == ErrNotFound {
			return models.NewGameState(), nil
		}
		return nil, err
	}
	return &st, nil
}

func (q *pgQueries) SaveGameState(ctx context.Context, st *models.GameState) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO game_state (id, phase, sudden_death, started_at, ends_at, ended_at, winner_team_id)
		VALUES (1, $1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			phase = EXCLUDED.phase,
			sudden_death = EXCLUDED.sudden_death,
			started_at = EXCLUDED.started_at,
			ends_at = EXCLUDED.ends_at,
			ended_at = EXCLUDED.ended_at,
			winner_team_id = EXCLUDED.winner_team_id`,
		st.Phase, st.SuddenDeath, st.StartedAt, st.EndsAt, st.EndedAt, st.WinnerTeamID,
	)
	return mapErr(err)
}
