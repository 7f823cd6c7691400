package game

import (
	"context"
	"fmt"
	"sort"

	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
)

// The reads below run outside the engine lock and may trail a concurrent write.

// Leaderboard ranks teams by kills, most first, then by id.
func (e *Engine) Leaderboard(ctx context.Context) ([]models.TeamStanding, error) {
	var out []models.TeamStanding
	err := e.store.View(ctx, func(q database.Queries) error {
		teams, err := q.ListTeams(ctx)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		kills, err := q.KillCounts(ctx)
		if err != nil {
			return fmt.Errorf("count kills: %w", err)
		}
		for _, t := range teams {
			members, err := q.ListTeamMembers(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			out = append(out, models.TeamStanding{
				Team:    t,
				Kills:   kills[t.ID],
				Living:  livingCount(members),
				Members: len(members),
			})
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Kills != out[j].Kills {
			return out[i].Kills > out[j].Kills
		}
		return out[i].Team.ID < out[j].Team.ID
	})
	return out, nil
}

// Teams lists every team with its members.
func (e *Engine) Teams(ctx context.Context) ([]models.TeamRoster, error) {
	var out []models.TeamRoster
	err := e.store.View(ctx, func(q database.Queries) error {
		teams, err := q.ListTeams(ctx)
		if err != nil {
			return fmt.Errorf("list teams: %w", err)
		}
		for _, t := range teams {
			members, err := q.ListTeamMembers(ctx, t.ID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			out = append(out, models.TeamRoster{Team: t, Members: members})
		}
		return nil
	})
	return out, err
}

// State returns the current game state.
func (e *Engine) State(ctx context.Context) (*models.GameState, error) {
	var st *models.GameState
	err := e.store.View(ctx, func(q database.Queries) error {
		var err error
		st, err = loadState(ctx, q)
		return err
	})
	return st, err
}

// Player returns a registered player.
func (e *Engine) Player(ctx context.Context, id string) (*models.Player, error) {
	var p *models.Player
	err := e.store.View(ctx, func(q database.Queries) error {
		var err error
		p, err = loadPlayer(ctx, q, id)
		return err
	})
	return p, err
}

// TargetOf returns the team playerID's team is hunting, or nil when it has none.
func (e *Engine) TargetOf(ctx context.Context, playerID string) (*models.Team, error) {
	var target *models.Team
	err := e.store.View(ctx, func(q database.Queries) error {
		p, err := loadPlayer(ctx, q, playerID)
		if err != nil {
			return err
		}
		if p.TeamID == nil {
			return ErrNotOnTeam
		}
		team, err := loadTeam(ctx, q, *p.TeamID)
		if err != nil {
			return err
		}
		if team.TargetTeamID == nil {
			return nil
		}
		target, err = loadTeam(ctx, q, *team.TargetTeamID)
		return err
	})
	return target, err
}

// PendingReports lists reports awaiting a decision.
func (e *Engine) PendingReports(ctx context.Context) ([]models.EliminationReport, error) {
	var out []models.EliminationReport
	err := e.store.View(ctx, func(q database.Queries) error {
		var err error
		out, err = q.ListReports(ctx)
		return err
	})
	return out, err
}

// Disputes lists every dispute, open and resolved.
func (e *Engine) Disputes(ctx context.Context) ([]models.Dispute, error) {
	var out []models.Dispute
	err := e.store.View(ctx, func(q database.Queries) error {
		var err error
		out, err = q.ListDisputes(ctx)
		return err
	})
	return out, err
}
