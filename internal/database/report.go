package database

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jason-s-yu/assassin/internal/models"
)

func (q *pgQueries) InsertElimination(ctx context.Context, rec *models.EliminationRecord) error {
	err := q.db.QueryRow(ctx, `
		INSERT INTO eliminations (assassin_id, target_id, report_id, created_at)
		VALUES ($1, $2, $3, $4)
		RETURNING id`,
		rec.AssassinID, rec.TargetID, rec.ReportID, rec.CreatedAt,
	).Scan(&rec.ID)
	return mapErr(err)
}

func scanElimination(row pgx.Row) (*models.EliminationRecord, error) {
	var e models.EliminationRecord
	if err := row.Scan(&e.ID, &e.AssassinID, &e.TargetID, &e.ReportID, &e.CreatedAt); err != nil {
		return nil, mapErr(err)
	}
	return &e, nil
}

func (q *pgQueries) ListEliminations(ctx context.Context) ([]models.EliminationRecord, error) {
	rows, err := q.db.Query(ctx, `
		SELECT id, assassin_id, target_id, report_id, created_at
		FROM eliminations ORDER BY id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.EliminationRecord
	for rows.Next() {
		e, err := scanElimination(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *e)
	}
	return out, rows.Err()
}

func (q *pgQueries) EliminationByReport(ctx context.Context, reportID uuid.UUID) (*models.EliminationRecord, error) {
	return scanElimination(q.db.QueryRow(ctx, `
		SELECT id, assassin_id, target_id, report_id, created_at
		FROM eliminations WHERE report_id = $1`, reportID))
}

func (q *pgQueries) KillCounts(ctx context.Context) (map[int64]int, error) {
	rows, err := q.db.Query(ctx, `
		SELECT p.team_id, COUNT(*)
		FROM eliminations e
		JOIN players p ON p.id = e.assassin_id
		WHERE p.team_id IS NOT NULL
		GROUP BY p.team_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	counts := make(map[int64]int)
	for rows.Next() {
		var teamID int64
		var n int
		if err := rows.Scan(&teamID, &n); err != nil {
			return nil, err
		}
		counts[teamID] = n
	}
	return counts, rows.Err()
}

const reportColumns = `id, reporter_id, target_id, assassin_team_id, target_team_id, evidence, mode, created_at, deadline`

func scanReport(row pgx.Row) (*models.EliminationReport, error) {
	var r models.EliminationReport
	if err := row.Scan(
		&r.ID, &r.ReporterID, &r.TargetID, &r.AssassinTeamID, &r.TargetTeamID,
		&r.Evidence, &r.Mode, &r.CreatedAt, &r.Deadline,
	); err != nil {
		return nil, mapErr(err)
	}
	return &r, nil
}

func (q *pgQueries) CreateReport(ctx context.Context, r *models.EliminationReport) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO elimination_reports (`+reportColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`,
		r.ID, r.ReporterID, r.TargetID, r.AssassinTeamID, r.TargetTeamID,
		r.Evidence, r.Mode, r.CreatedAt, r.Deadline,
	)
	return mapErr(err)
}

func (q *pgQueries) GetReport(ctx context.Context, id uuid.UUID) (*models.EliminationReport, error) {
	return scanReport(q.db.QueryRow(ctx, `SELECT `+reportColumns+` FROM elimination_reports WHERE id = $1`, id))
}

func (q *pgQueries) FindReportByEdge(ctx context.Context, assassinTeamID, targetTeamID int64) (*models.EliminationReport, error) {
	return scanReport(q.db.QueryRow(ctx, `
		SELECT `+reportColumns+` FROM elimination_reports
		WHERE assassin_team_id = $1 AND target_team_id = $2`, assassinTeamID, targetTeamID))
}

func (q *pgQueries) DeleteReport(ctx context.Context, id uuid.UUID) error {
	// report_votes cascade via FK
	_, err := q.db.Exec(ctx, `DELETE FROM elimination_reports WHERE id = $1`, id)
	return mapErr(err)
}

func (q *pgQueries) ListReports(ctx context.Context) ([]models.EliminationReport, error) {
	rows, err := q.db.Query(ctx, `SELECT `+reportColumns+` FROM elimination_reports ORDER BY created_at`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.EliminationReport
	for rows.Next() {
		r, err := scanReport(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

func (q *pgQueries) SaveVote(ctx context.Context, v models.ReportVote) error {
	_, err := q.db.Exec(ctx, `
		INSERT INTO report_votes (report_id, voter_id, up)
		VALUES ($1, $2, $3)
		ON CONFLICT (report_id, voter_id) DO UPDATE SET up = EXCLUDED.up`,
		v.ReportID, v.VoterID, v.Up,
	)
	return mapErr(err)
}

func (q *pgQueries) ListVotes(ctx context.Context, reportID uuid.UUID) ([]models.ReportVote, error) {
	rows, err := q.db.Query(ctx, `
		SELECT report_id, voter_id, up FROM report_votes
		WHERE report_id = $1 ORDER BY voter_id`, reportID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []models.ReportVote
	for rows.Next() {
		var v models.ReportVote
		if err := rows.Scan(&v.ReportID, &v.VoterID, &v.Up); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
