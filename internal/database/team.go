package database

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/assassin/internal/models"
)

const teamColumns = `id, name, owner_id, active, target_team_id, created_at`

func scanTeam(row pgx.Row) (*models.Team, error) {
	var t models.Team
	if err := row.Scan(&t.ID, &t.Name, &t.OwnerID, &t.Active, &t.TargetTeamID, &t.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &t, nil
}

func (q *pgQueries) CreateTeam(ctx context.Context, t *models.Team) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO teams (name, owner_id, active, target_team_id, created_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id`,
		t.Name, t.OwnerID, t.Active, t.TargetTeamID, t.CreatedAt,
	).Scan(&t.ID)
	return mapErr(err)
}

func (q *pgQueries) GetTeam(ctx context.Context, id int64) (*models.Team, error) {
	return scanTeam(q.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE id = $1`, id))
}

func (q *pgQueries) GetTeamByName(ctx context.Context, name string) (*models.Team, error) {
	return scanTeam(q.db.QueryRow(ctx, `SELECT `+teamColumns+` FROM teams WHERE name = $1`, name))
}

func (q *pgQueries) UpdateTeam(ctx context.Context, t *models.Team) error {
	return requireRow(q.db.Exec(ctx, `
		UPDATE teams SET name = $2, owner_id = $3, active = $4, target_team_id = $5
		WHERE id = $1`,
		t.ID, t.Name, t.OwnerID, t.Active, t.TargetTeamID,
	))
}

func (q *pgQueries) DeleteTeam(ctx context.Context, id int64) error {
	// join_requests cascade via FK
	_, err := q.db.Exec(ctx, `DELETE FROM teams WHERE id = $1`, id)
	return mapErr(err)
}

func (q *pgQueries) ListTeams(ctx context.Context) ([]models.Team, error) {
	rows, err := q.db.Query(ctx, `SELECT `+teamColumns+` FROM teams ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Team
	for rows.Next() {
		t, err := scanTeam(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *t)
	}
	return out, rows.Err()
}
