// internal/game/elimination.go
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/jason-s-yu/assassin/internal/targeting"
)

// SubmitReport files an elimination claim by assassinID against targetID and
// opens its adjudication.
func (e *Engine) SubmitReport(ctx context.Context, assassinID, targetID, evidence string) (*models.EliminationReport, error) {
	var report *models.EliminationReport
	err := e.mutate(ctx, "submit_report", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseActive); err != nil {
			return err
		}
		assassin, err := loadPlayer(ctx, q, assassinID)
		if err != nil {
			return err
		}
		if assassin.TeamID == nil {
			return ErrNotOnTeam
		}
		if !assassin.Alive {
			return ErrNotAlive
		}
		target, err := loadPlayer(ctx, q, targetID)
		if err != nil {
			return err
		}
		if !target.Alive {
			return ErrTargetNotAlive
		}
		team, err := loadTeam(ctx, q, *assassin.TeamID)
		if err != nil {
			return err
		}
		if !team.Active {
			return ErrNotAssignedTarget.withf("team %s is out of the game and has no target", team.Name)
		}
		if target.TeamID == nil || !team.Targets(*target.TeamID) {
			return ErrNotAssignedTarget
		}
		if _, err := q.FindReportByEdge(ctx, team.ID, *target.TeamID); err == nil {
			return ErrReportConflict
		} else if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("find report: %w", err)
		}

		now := e.Now()
		report = &models.EliminationReport{
			ID:             uuid.New(),
			ReporterID:     assassinID,
			TargetID:       targetID,
			AssassinTeamID: team.ID,
			TargetTeamID:   *target.TeamID,
			Evidence:       strings.TrimSpace(evidence),
			Mode:           e.cfg.Adjudication,
			CreatedAt:      now,
		}
		switch report.Mode {
		case models.AdjudicateVote:
			report.Deadline = ptr(now.Add(e.cfg.VotingWindow))
		case models.AdjudicateManager:
			if e.cfg.ReportTimeout > 0 {
				report.Deadline = ptr(now.Add(e.cfg.ReportTimeout))
			}
		}
		if err := q.CreateReport(ctx, report); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return ErrReportConflict
			}
			return fmt.Errorf("create report: %w", err)
		}

		content := fmt.Sprintf("%s reports eliminating %s. Evidence: %s", assassin.DisplayName, target.DisplayName, report.Evidence)
		id := report.ID.String()
		if report.Mode == models.AdjudicateVote {
			out.post(e.cfg.Channels.Assassinations, content,
				models.Action{ID: "report:" + id + ":up", Label: "Confirm"},
				models.Action{ID: "report:" + id + ":down", Label: "Dispute"},
			)
		} else {
			out.post(e.cfg.Channels.Managers, content,
				models.Action{ID: "report:" + id + ":approve", Label: "Approve"},
				models.Action{ID: "report:" + id + ":reject", Label: "Reject"},
			)
		}
		out.notify(assassinID, "Your report against %s was submitted.", target.DisplayName)
		e.event(out, models.EventReportSubmitted, assassinID, map[string]interface{}{
			"report_id": report.ID, "target_id": targetID, "mode": string(report.Mode),
		})
		submitted := *report
		out.onCommit(func() { e.armReport(submitted) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return report, nil
}

// lookupReport loads a pending report, telling unknown ids apart from ones
// that were already decided.
func (e *Engine) lookupReport(ctx context.Context, q database.Queries, id uuid.UUID) (*models.EliminationReport, error) {
	r, err := q.GetReport(ctx, id)
	if err == nil {
		return r, nil
	}
	if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load report: %w", err)
	}
	if _, seen := e.resolved[id]; seen {
		return nil, ErrAlreadyResolved.withf("report %s was already resolved", id)
	}
	if _, err := q.EliminationByReport(ctx, id); err == nil {
		return nil, ErrAlreadyResolved.withf("report %s was already approved", id)
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load elimination: %w", err)
	}
	return nil, ErrReportNotFound
}

// Approve confirms a pending report.
func (e *Engine) Approve(ctx context.Context, actor Actor, reportID uuid.UUID) error {
	if err := e.requireManager(actor); err != nil {
		return err
	}
	return e.mutate(ctx, "approve_report", func(q database.Queries, out *outbox) error {
		r, err := e.lookupReport(ctx, q, reportID)
		if err != nil {
			return err
		}
		return e.applyApproval(ctx, q, out, r, actor.UserID)
	})
}

// Reject declines a pending report.
func (e *Engine) Reject(ctx context.Context, actor Actor, reportID uuid.UUID) error {
	if err := e.requireManager(actor); err != nil {
		return err
	}
	return e.mutate(ctx, "reject_report", func(q database.Queries, out *outbox) error {
		r, err := e.lookupReport(ctx, q, reportID)
		if err != nil {
			return err
		}
		return e.dropReport(ctx, q, out, r, models.EventReportRejected, actor.UserID,
			"Your report was rejected.")
	})
}

// Expire discards a pending report whose deadline passed undecided.
func (e *Engine) Expire(ctx context.Context, reportID uuid.UUID) error {
	return e.mutate(ctx, "expire_report", func(q database.Queries, out *outbox) error {
		r, err := e.lookupReport(ctx, q, reportID)
		if err != nil {
			return err
		}
		return e.dropReport(ctx, q, out, r, models.EventReportExpired, "",
			"Your report expired without a decision.")
	})
}

// applyApproval kills the target, records the elimination and runs the
// team cascade and win check.
func (e *Engine) applyApproval(ctx context.Context, q database.Queries, out *outbox, r *models.EliminationReport, actorID string) error {
	st, err := loadState(ctx, q)
	if err != nil {
		return err
	}
	if err := requirePhase(st, models.PhaseActive); err != nil {
		return err
	}
	target, err := loadPlayer(ctx, q, r.TargetID)
	if err != nil {
		return err
	}
	if !target.Alive {
		return ErrTargetNotAlive
	}

	rec := &models.EliminationRecord{
		AssassinID: r.ReporterID,
		TargetID:   r.TargetID,
		ReportID:   ptr(r.ID),
		CreatedAt:  e.Now(),
	}
	if err := q.InsertElimination(ctx, rec); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return ErrAlreadyResolved.withf("report %s was already approved", r.ID)
		}
		return fmt.Errorf("insert elimination: %w", err)
	}
	if err := q.DeleteReport(ctx, r.ID); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	id := r.ID
	out.onCommit(func() {
		e.timers.cancel(reportKey(id))
		e.markResolved(id)
	})

	assassinName := r.ReporterID
	if assassin, err := q.GetPlayer(ctx, r.ReporterID); err == nil {
		assassinName = assassin.DisplayName
	}
	out.notify(r.ReporterID, "Your elimination of %s was confirmed.", target.DisplayName)
	out.notify(target.ID, "You were eliminated by %s.", assassinName)
	out.post(e.cfg.Channels.Status, fmt.Sprintf("%s eliminated %s.", assassinName, target.DisplayName))
	e.event(out, models.EventReportApproved, actorID, map[string]interface{}{"report_id": r.ID})

	if err := e.killPlayer(ctx, q, out, st, target, actorID); err != nil {
		return err
	}
	if st.SuddenDeath && st.Phase == models.PhaseActive {
		return e.finish(ctx, q, out, st, ptr(r.AssassinTeamID), actorID)
	}
	return nil
}

// dropReport deletes a pending report that did not go through.
func (e *Engine) dropReport(ctx context.Context, q database.Queries, out *outbox, r *models.EliminationReport, typ models.GameEventType, actorID, message string) error {
	if err := q.DeleteReport(ctx, r.ID); err != nil {
		return fmt.Errorf("delete report: %w", err)
	}
	id := r.ID
	out.onCommit(func() {
		e.timers.cancel(reportKey(id))
		e.markResolved(id)
	})
	out.notify(r.ReporterID, "%s", message)
	e.event(out, typ, actorID, map[string]interface{}{"report_id": r.ID})
	return nil
}

// discardReports drops every pending report accepted by match.
func (e *Engine) discardReports(ctx context.Context, q database.Queries, out *outbox, match func(models.EliminationReport) bool, reason string) error {
	reports, err := q.ListReports(ctx)
	if err != nil {
		return fmt.Errorf("list reports: %w", err)
	}
	for i := range reports {
		if !match(reports[i]) {
			continue
		}
		if err := e.dropReport(ctx, q, out, &reports[i], models.EventReportExpired, "",
			fmt.Sprintf("Your report was closed: %s.", reason)); err != nil {
			return err
		}
	}
	return nil
}

// killPlayer marks p dead. When that leaves p's team without a living
// member the team drops out of the cycle and the win check runs.
func (e *Engine) killPlayer(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, p *models.Player, actorID string) error {
	p.Alive = false
	if err := q.UpdatePlayer(ctx, p); err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if err := e.discardReports(ctx, q, out, func(r models.EliminationReport) bool {
		return r.ReporterID == p.ID || r.TargetID == p.ID
	}, fmt.Sprintf("%s was eliminated", p.DisplayName)); err != nil {
		return err
	}
	e.event(out, models.EventPlayerEliminated, actorID, map[string]interface{}{"player_id": p.ID})

	if p.TeamID == nil {
		return nil
	}
	team, err := loadTeam(ctx, q, *p.TeamID)
	if err != nil {
		return err
	}
	members, err := q.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	if !team.Active || livingCount(members) > 0 {
		return nil
	}
	if err := e.eliminateTeam(ctx, q, out, st, team); err != nil {
		return err
	}
	return e.checkWin(ctx, q, out, st)
}

// Eliminate marks a player dead without a report. No kill is credited.
func (e *Engine) Eliminate(ctx context.Context, actor Actor, playerID string) error {
	if err := e.requireManager(actor); err != nil {
		return err
	}
	return e.mutate(ctx, "eliminate", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseActive); err != nil {
			return err
		}
		p, err := loadPlayer(ctx, q, playerID)
		if err != nil {
			return err
		}
		if !p.Alive {
			return ErrNotAlive
		}
		out.notify(p.ID, "A game manager marked you as eliminated.")
		out.post(e.cfg.Channels.Status, fmt.Sprintf("%s was eliminated by a game manager.", p.DisplayName))
		if err := e.killPlayer(ctx, q, out, st, p, actor.UserID); err != nil {
			return err
		}
		return e.redrawPairs(ctx, q, out, st)
	})
}

// Revive brings an eliminated player back. Whether an inactive team comes
// back with them depends on the revive policy.
func (e *Engine) Revive(ctx context.Context, actor Actor, playerID string) error {
	if err := e.requireManager(actor); err != nil {
		return err
	}
	return e.mutate(ctx, "revive", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseActive); err != nil {
			return err
		}
		p, err := loadPlayer(ctx, q, playerID)
		if err != nil {
			return err
		}
		if p.Alive {
			return ErrAlreadyAlive
		}
		p.Alive = true
		if err := q.UpdatePlayer(ctx, p); err != nil {
			return fmt.Errorf("update player: %w", err)
		}
		out.notify(p.ID, "A game manager revived you.")
		e.event(out, models.EventPlayerRevived, actor.UserID, map[string]interface{}{"player_id": p.ID})

		if p.TeamID == nil || e.cfg.RevivePolicy != ReviveReactivate {
			return nil
		}
		team, err := loadTeam(ctx, q, *p.TeamID)
		if err != nil {
			return err
		}
		if team.Active {
			return nil
		}
		return e.reactivateTeam(ctx, q, out, st, team)
	})
}

// reactivateTeam puts an inactive team back into play. In the cycle it is
// spliced in front of its former target; during sudden death it waits
// without a target.
func (e *Engine) reactivateTeam(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, team *models.Team) error {
	former := team.TargetTeamID
	team.Active = true
	if st.SuddenDeath {
		team.TargetTeamID = nil
		if err := q.UpdateTeam(ctx, team); err != nil {
			return fmt.Errorf("reactivate team %d: %w", team.ID, err)
		}
		out.post(e.cfg.Channels.Status, fmt.Sprintf("Team %s is back in the game.", team.Name))
		return nil
	}
	if err := q.UpdateTeam(ctx, team); err != nil {
		return fmt.Errorf("reactivate team %d: %w", team.ID, err)
	}

	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	idx := teamIndex(teams)
	changes := targeting.Splice(graphOf(teams), team.ID, former)
	for id, target := range changes {
		t := idx[id]
		t.TargetTeamID = target
		if err := q.UpdateTeam(ctx, t); err != nil {
			return fmt.Errorf("retarget team %d: %w", id, err)
		}
	}
	if err := verifyCycle(ctx, q, st); err != nil {
		return err
	}
	for id, target := range changes {
		if target == nil {
			continue
		}
		if err := e.notifyTarget(ctx, q, out, id, idx[*target].Name); err != nil {
			return err
		}
	}
	out.post(e.cfg.Channels.Status, fmt.Sprintf("Team %s is back in the game.", team.Name))
	return nil
}
