package database

import (
	"context"

	"github.com/jason-s-yu/assassin/internal/models"
)

func (q *pgQueries) CreateDispute(ctx context.Context, d *models.Dispute) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO disputes (submitter_id, body, created_at)
		VALUES ($1, $2, $3)
		RETURNING id`,
		d.SubmitterID, d.Body, d.CreatedAt,
	).Scan(&d.ID)
	return mapErr(err)
}

func (q *pgQueries) GetDispute(ctx context.Context, id int64) (*models.Dispute, error) {
	var d models.Dispute
	err := q.db.QueryRow(ctx, `
		SELECT id, submitter_id, body, created_at, resolution, resolved_at
		FROM disputes WHERE id = $1`, id,
	).Scan(&d.ID, &d.SubmitterID, &d.Body, &d.CreatedAt, &d.Resolution, &d.ResolvedAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &d, nil
}

func (q *pgQueries) UpdateDispute(ctx context.Context, d *models.Dispute) error {
	return requireRow(q.db.Exec(ctx, `
		UPDATE disputes SET resolution = $2, resolved_at = $3 WHERE id = $1`,
		d.ID, d.Resolution, d.ResolvedAt,
	))
}

func (q *pgQueries) ListDisputes(ctx context.Context) ([]models.Dispute, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, submitter_id, body, created_at, resolution, resolved_at
		FROM disputes ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.Dispute
	for rows.Next() {
		var d models.Dispute
		if err := rows.Scan(&d.ID, &d.SubmitterID, &d.Body, &d.CreatedAt, &d.Resolution, &d.ResolvedAt); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}
