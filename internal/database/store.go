// Package database persists game entities. Store has a Postgres
// implementation (pgx) and an in-memory one; both run multi-row mutations
// through Tx so they commit or roll back as a unit.
package database

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/models"
)

var (
	// ErrNotFound is returned by Get* lookups that match no row.
	ErrNotFound = errors.New("record not found")
	// ErrDuplicate is returned when a unique constraint would be violated.
	ErrDuplicate = errors.New("duplicate record")
)

// Queries is the set of reads and writes available inside a View or Tx.
// List methods return players by registration order and teams by id.
type Queries interface {
	GetGameState(ctx context.Context) (*models.GameState, error)
	SaveGameState(ctx context.Context, st *models.GameState) error

	// CreatePlayer inserts p and fills p.Seq.
	CreatePlayer(ctx context.Context, p *models.Player) error
	GetPlayer(ctx context.Context, id string) (*models.Player, error)
	UpdatePlayer(ctx context.Context, p *models.Player) error
	ListPlayers(ctx context.Context) ([]models.Player, error)
	ListTeamMembers(ctx context.Context, teamID int64) ([]models.Player, error)

	// CreateTeam inserts t and fills t.ID.
	CreateTeam(ctx context.Context, t *models.Team) error
	GetTeam(ctx context.Context, id int64) (*models.Team, error)
	GetTeamByName(ctx context.Context, name string) (*models.Team, error)
	UpdateTeam(ctx context.Context, t *models.Team) error
	DeleteTeam(ctx context.Context, id int64) error
	ListTeams(ctx context.Context) ([]models.Team, error)

	InsertElimination(ctx context.Context, rec *models.EliminationRecord) error
	ListEliminations(ctx context.Context) ([]models.EliminationRecord, error)
	EliminationByReport(ctx context.Context, reportID uuid.UUID) (*models.EliminationRecord, error)
	// KillCounts maps team id to the number of eliminations made by its current members.
	KillCounts(ctx context.Context) (map[int64]int, error)

	CreateReport(ctx context.Context, r *models.EliminationReport) error
	GetReport(ctx context.Context, id uuid.UUID) (*models.EliminationReport, error)
	FindReportByEdge(ctx context.Context, assassinTeamID, targetTeamID int64) (*models.EliminationReport, error)
	// DeleteReport removes the report and its votes.
	DeleteReport(ctx context.Context, id uuid.UUID) error
	ListReports(ctx context.Context) ([]models.EliminationReport, error)
	SaveVote(ctx context.Context, v models.ReportVote) error
	ListVotes(ctx context.Context, reportID uuid.UUID) ([]models.ReportVote, error)

	CreateJoinRequest(ctx context.Context, jr *models.JoinRequest) error
	GetJoinRequest(ctx context.Context, id uuid.UUID) (*models.JoinRequest, error)
	DeleteJoinRequest(ctx context.Context, id uuid.UUID) error
	ListJoinRequests(ctx context.Context) ([]models.JoinRequest, error)

	CreatePendingRegistration(ctx context.Context, pr *models.PendingRegistration) error
	GetPendingRegistration(ctx context.Context, userID string) (*models.PendingRegistration, error)
	DeletePendingRegistration(ctx context.Context, userID string) error
	ListPendingRegistrations(ctx context.Context) ([]models.PendingRegistration, error)

	// CreateDispute inserts d and fills d.ID.
	CreateDispute(ctx context.Context, d *models.Dispute) error
	GetDispute(ctx context.Context, id int64) (*models.Dispute, error)
	UpdateDispute(ctx context.Context, d *models.Dispute) error
	ListDisputes(ctx context.Context) ([]models.Dispute, error)
}

// Store is the shared entity store.
type Store interface {
	// View runs read-only work. Results may be stale by the time they are used.
	View(ctx context.Context, fn func(q Queries) error) error
	// Tx runs fn atomically: every write commits, or none does if fn errors.
	Tx(ctx context.Context, fn func(q Queries) error) error
	Close()
}
