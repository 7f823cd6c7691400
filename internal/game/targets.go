// internal/game/targets.go
package game

import (
	"context"
	"errors"
	"fmt"

	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/jason-s-yu/assassin/internal/targeting"
	"github.com/sirupsen/logrus"
)

func graphOf(teams []models.Team) targeting.Graph {
	g := make(targeting.Graph, len(teams))
	for _, t := range teams {
		g[t.ID] = targeting.Edge{Active: t.Active, Target: t.TargetTeamID}
	}
	return g
}

func teamIndex(teams []models.Team) map[int64]*models.Team {
	idx := make(map[int64]*models.Team, len(teams))
	for i := range teams {
		idx[teams[i].ID] = &teams[i]
	}
	return idx
}

// consistencyError turns a targeting failure into the matching engine error.
func consistencyError(err error) error {
	switch {
	case errors.Is(err, targeting.ErrWalkExceeded):
		return ErrCycleWalkExceeded.because(err)
	case errors.Is(err, targeting.ErrCycleBroken):
		return ErrCycleBroken.because(err)
	}
	return err
}

// verifyCycle re-reads the teams and checks the cycle shape. Sudden death
// pairs teams up outside the cycle, so it is skipped there.
func verifyCycle(ctx context.Context, q database.Queries, st *models.GameState) error {
	if st.SuddenDeath {
		return nil
	}
	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	if err := targeting.Verify(graphOf(teams)); err != nil {
		return consistencyError(err)
	}
	return nil
}

// initialAssign links the active teams into one shuffled cycle and tells
// every member who they are hunting.
func (e *Engine) initialAssign(ctx context.Context, q database.Queries, out *outbox, st *models.GameState) error {
	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	idx := teamIndex(teams)
	g := graphOf(teams)
	edges := targeting.Cycle(g.ActiveIDs(), e.rng)

	assigned := make(map[string]interface{}, len(edges))
	for id, target := range edges {
		t := idx[id]
		t.TargetTeamID = ptr(target)
		if err := q.UpdateTeam(ctx, t); err != nil {
			return fmt.Errorf("assign target of team %d: %w", id, err)
		}
		assigned[fmt.Sprint(id)] = target
	}
	if err := verifyCycle(ctx, q, st); err != nil {
		return err
	}

	for id, target := range edges {
		if err := e.notifyTarget(ctx, q, out, id, idx[target].Name); err != nil {
			return err
		}
	}
	e.event(out, models.EventTargetsAssigned, "", assigned)
	return nil
}

func (e *Engine) notifyTarget(ctx context.Context, q database.Queries, out *outbox, teamID int64, targetName string) error {
	members, err := q.ListTeamMembers(ctx, teamID)
	if err != nil {
		return fmt.Errorf("list members of team %d: %w", teamID, err)
	}
	for _, m := range members {
		if m.Alive {
			out.notify(m.ID, "Your target is team %s.", targetName)
		}
	}
	return nil
}

// eliminateTeam marks team inactive and hands its target to its hunter.
func (e *Engine) eliminateTeam(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, team *models.Team) error {
	team.Active = false
	if err := q.UpdateTeam(ctx, team); err != nil {
		return fmt.Errorf("deactivate team %d: %w", team.ID, err)
	}
	out.post(e.cfg.Channels.Status, fmt.Sprintf("Team %s has been eliminated.", team.Name))
	e.event(out, models.EventTeamEliminated, "", map[string]interface{}{"team_id": team.ID})

	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	reroute, ok, err := targeting.Repair(graphOf(teams), team.ID)
	if err != nil {
		e.log.WithFields(logrus.Fields{"team": team.ID, "error": err}).Error("target repair failed")
		return consistencyError(err)
	}
	if ok {
		hunter := teamIndex(teams)[reroute.Hunter]
		hunter.TargetTeamID = reroute.NewTarget
		if err := q.UpdateTeam(ctx, hunter); err != nil {
			return fmt.Errorf("retarget team %d: %w", hunter.ID, err)
		}
		payload := map[string]interface{}{"team_id": hunter.ID, "eliminated_team_id": team.ID}
		if reroute.NewTarget != nil {
			payload["target_team_id"] = *reroute.NewTarget
			target, err := loadTeam(ctx, q, *reroute.NewTarget)
			if err != nil {
				return err
			}
			if err := e.notifyTarget(ctx, q, out, hunter.ID, target.Name); err != nil {
				return err
			}
		}
		e.event(out, models.EventTargetReassigned, "", payload)
	}
	return verifyCycle(ctx, q, st)
}

// checkWin ends the game once at most one team is left in play.
func (e *Engine) checkWin(ctx context.Context, q database.Queries, out *outbox, st *models.GameState) error {
	if st.Phase != models.PhaseActive {
		return nil
	}
	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	active := 0
	for _, t := range teams {
		if t.Active {
			active++
		}
	}
	if active > 1 {
		return nil
	}
	return e.concludeGame(ctx, q, out, st, "")
}
