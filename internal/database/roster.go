package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/models"
)

func (q *pgQueries) CreateJoinRequest(ctx context.Context, jr *models.JoinRequest) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO join_requests (id, player_id, team_id, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)`,
		jr.ID, jr.PlayerID, jr.TeamID, jr.CreatedAt, jr.ExpiresAt,
	)
	return mapErr(err)
}

func (q *pgQueries) GetJoinRequest(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error) {
	var jr models.JoinRequest
	err := q.db.QueryRow(ctx, `
		SELECT id, player_id, team_id, created_at, expires_at
		FROM join_requests WHERE id = $1`, id,
	).Scan(&jr.ID, &jr.PlayerID, &jr.TeamID, &jr.CreatedAt, &jr.ExpiresAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &jr, nil
}

func (q *pgQueries) DeleteJoinRequest(ctx context.Context, id uuid.UUID) error {
	_, err := q.db.Exec(ctx, `DELETE FROM join_requests WHERE id = $1`, id)
	return mapErr(err)
}

func (q *pgQueries) ListJoinRequests(ctx context.Context) ([]models.JoinRequest, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, player_id, team_id, created_at, expires_at
		FROM join_requests ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.JoinRequest
	for rows.Next() {
		var jr models.JoinRequest
		if err := rows.Scan(&jr.ID, &jr.PlayerID, &jr.TeamID, &jr.CreatedAt, &jr.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, jr)
	}
	return out, rows.Err()
}

func (q *pgQueries) CreatePendingRegistration(ctx context.Context, pr *models.PendingRegistration) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO pending_registrations (user_id, display_name, requested_at, expires_at)
		VALUES ($1, $2, $3, $4)`,
		pr.UserID, pr.DisplayName, pr.RequestedAt, pr.ExpiresAt,
	)
	return mapErr(err)
}

func (q *pgQueries) GetPendingRegistration(ctx context.Context, userID string) (*models.PendingRegistration, error) {
	var pr models.PendingRegistration
	err := q.db.QueryRow(ctx, `
		SELECT user_id, display_name, requested_at, expires_at
		FROM pending_registrations WHERE user_id = $1`, userID,
	).Scan(&pr.UserID, &pr.DisplayName, &pr.RequestedAt, &pr.ExpiresAt)
	if err != nil {
		return nil, mapErr(err)
	}
	return &pr, nil
}

func (q *pgQueries) DeletePendingRegistration(ctx context.Context, userID string) error {
	_, err := q.db.Exec(ctx, `DELETE FROM pending_registrations WHERE user_id = $1`, userID)
	return mapErr(err)
}

func (q *pgQueries) ListPendingRegistrations(ctx context.Context) ([]models.PendingRegistration, error) {
	rows, err := q.db.Query(ctx, `
		SELECT user_id, display_name, requested_at, expires_at
		FROM pending_registrations ORDER BY requested_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.PendingRegistration
	for rows.Next() {
		var pr models.PendingRegistration
		if err := rows.Scan(&pr.UserID, &pr.DisplayName, &pr.RequestedAt, &pr.ExpiresAt); err != nil {
			return nil, err
		}
		out = append(out, pr)
	}
	return out, rows.Err()
}
