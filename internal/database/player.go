package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/assassin/internal/models"
)

const playerColumns = `id, display_name, team_id, alive, registered_at, seq`

func scanPlayer(row pgx.Row) (*models.Player, error) {
	var p models.Player
	if err := row.Scan(&p.ID, &p.DisplayName, &p.TeamID, &p.Alive, &p.RegisteredAt, &p.Seq); err != nil {
		return nil, mapErr(err)
	}
	return &p, nil
}

func collectPlayers(rows pgx.Rows, err error) ([]models.Player, error) {
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *p)
	}
	return out, rows.Err()
}

func (q *pgQueries) CreatePlayer(ctx context.Context, p *models.Player) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO players (id, display_name, team_id, alive, registered_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING seq`,
		p.ID, p.DisplayName, p.TeamID, p.Alive, p.RegisteredAt,
	).Scan(&p.Seq)
	return mapErr(err)
}

func (q *pgQueries) GetPlayer(ctx context.Context, id string) (*models.Player, error) {
	return scanPlayer(q.db.QueryRow(ctx, `SELECT `+playerColumns+` FROM players WHERE id = $1`, id))
}

func (q *pgQueries) UpdatePlayer(ctx context.Context, p *models.Player) error {
	return requireRow(q.db.Exec(ctx, `
		UPDATE players SET display_name = $2, team_id = $3, alive = $4
		WHERE id = $1`,
		p.ID, p.DisplayName, p.TeamID, p.Alive,
	))
}

func (q *pgQueries) ListPlayers(ctx context.Context) ([]models.Player, error) {
	return collectPlayers(q.db.Query(ctx, `SELECT `+playerColumns+` FROM players ORDER BY seq`))
}

func (q *pgQueries) ListTeamMembers(ctx context.Context, teamID int64) ([]models.Player, error) {
	return collectPlayers(q.db.Query(ctx,
		`SELECT `+playerColumns+` FROM players WHERE team_id = $1 ORDER BY seq`, teamID))
}
