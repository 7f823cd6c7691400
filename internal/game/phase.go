// internal/game/phase.go
package game

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/jason-s-yu/assassin/internal/targeting"
	"github.com/sirupsen/logrus"
)

// StartOptions tunes StartGame.
type StartOptions struct {
	// EndsAt overrides the configured end date.
	EndsAt *time.Time
}

// StartGame moves the game from the lobby into play and builds the target cycle.
func (e *Engine) StartGame(ctx context.Context, actor Actor, opts StartOptions) (*models.GameState, error) {
	if err := e.requireManager(actor); err != nil {
		return nil, err
	}
	var st *models.GameState
	err := e.mutate(ctx, "start_game", func(q database.Queries, out *outbox) error {
		var err error
		if st, err = loadState(ctx, q); err != nil {
			return err
		}
		if !st.Phase.CanTransitionTo(models.PhaseActive) {
			return ErrWrongPhase.withf("cannot start a game that is %s", st.Phase)
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
		if active < e.cfg.MinTeams {
			return ErrInsufficientTeams.withf("%d teams registered, %d required", active, e.cfg.MinTeams)
		}
		players, err := q.ListPlayers(ctx)
		if err != nil {
			return fmt.Errorf("list players: %w", err)
		}
		for _, p := range players {
			if p.TeamID == nil {
				return ErrPlayersWithoutTeam.withf("%s is not on a team", p.DisplayName)
			}
		}

		if err := e.discardJoinRequests(ctx, q, out, func(models.JoinRequest) bool { return true },
			"The game has started; your join request was closed."); err != nil {
			return err
		}
		regs, err := q.ListPendingRegistrations(ctx)
		if err != nil {
			return fmt.Errorf("list pending registrations: %w", err)
		}
		for _, pr := range regs {
			if err := q.DeletePendingRegistration(ctx, pr.UserID); err != nil {
				return fmt.Errorf("delete pending registration: %w", err)
			}
			out.notify(pr.UserID, "The game has started; your registration request was closed.")
			userID := pr.UserID
			out.onCommit(func() { e.timers.cancel(registrationKey(userID)) })
		}

		now := e.Now()
		st.Phase = models.PhaseActive
		st.StartedAt = ptr(now)
		st.EndsAt = opts.EndsAt
		if st.EndsAt == nil && e.cfg.GameEndDate != nil {
			st.EndsAt = ptr(*e.cfg.GameEndDate)
		}
		if err := q.SaveGameState(ctx, st); err != nil {
			return fmt.Errorf("save game state: %w", err)
		}
		if err := e.initialAssign(ctx, q, out, st); err != nil {
			return err
		}

		msg := "The game has started. Check your messages for your target."
		if st.EndsAt != nil {
			msg = fmt.Sprintf("%s It ends %s.", msg, st.EndsAt.Format(time.RFC1123))
		}
		out.post(e.cfg.Channels.Status, msg)
		e.event(out, models.EventGameStarted, actor.UserID, map[string]interface{}{"teams": active, "players": len(players)})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// EndGame ends the game now and determines the winner.
func (e *Engine) EndGame(ctx context.Context, actor Actor) (*models.GameState, error) {
	if err := e.requireManager(actor); err != nil {
		return nil, err
	}
	var st *models.GameState
	err := e.mutate(ctx, "end_game", func(q database.Queries, out *outbox) error {
		var err error
		if st, err = loadState(ctx, q); err != nil {
			return err
		}
		switch st.Phase {
		case models.PhaseEnded:
			return ErrAlreadyEnded
		case models.PhaseLobby:
			return ErrWrongPhase.withf("the game has not started")
		}
		return e.concludeGame(ctx, q, out, st, actor.UserID)
	})
	if err != nil {
		return nil, err
	}
	return st, nil
}

// Tick ends the game once its end date has passed. Sudden death runs until
// someone scores.
func (e *Engine) Tick(ctx context.Context) error {
	return e.mutate(ctx, "tick", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if st.Phase != models.PhaseActive || st.SuddenDeath || st.EndsAt == nil {
			return nil
		}
		if e.Now().Before(*st.EndsAt) {
			return nil
		}
		e.log.WithField("ends_at", st.EndsAt).Info("game end date reached")
		return e.concludeGame(ctx, q, out, st, "")
	})
}

// RunTicker calls Tick every interval until ctx is done.
func (e *Engine) RunTicker(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := e.Tick(ctx); err != nil {
				e.log.WithError(err).Warn("game tick failed")
			}
		}
	}
}

type teamScore struct {
	team   models.Team
	kills  int
	living int
}

// concludeGame decides the winner: the last active team, else the unique
// kill leader, else the only living team among the leaders. Failing all of
// those the living teams go into sudden death, or the game is a draw.
func (e *Engine) concludeGame(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, actorID string) error {
	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	kills, err := q.KillCounts(ctx)
	if err != nil {
		return fmt.Errorf("count kills: %w", err)
	}

	scores := make([]teamScore, 0, len(teams))
	var active []models.Team
	for _, t := range teams {
		members, err := q.ListTeamMembers(ctx, t.ID)
		if err != nil {
			return fmt.Errorf("list members of team %d: %w", t.ID, err)
		}
		scores = append(scores, teamScore{team: t, kills: kills[t.ID], living: livingCount(members)})
		if t.Active {
			active = append(active, t)
		}
	}

	if len(active) == 1 {
		return e.finish(ctx, q, out, st, ptr(active[0].ID), actorID)
	}
	if len(scores) == 0 {
		return e.finish(ctx, q, out, st, nil, actorID)
	}

	sort.SliceStable(scores, func(i, j int) bool { return scores[i].kills > scores[j].kills })
	var leaders []teamScore
	for _, s := range scores {
		if s.kills == scores[0].kills {
			leaders = append(leaders, s)
		}
	}
	if len(leaders) == 1 {
		return e.finish(ctx, q, out, st, ptr(leaders[0].team.ID), actorID)
	}

	var livingLeaders []teamScore
	for _, s := range leaders {
		if s.living > 0 {
			livingLeaders = append(livingLeaders, s)
		}
	}
	if len(livingLeaders) == 1 {
		return e.finish(ctx, q, out, st, ptr(livingLeaders[0].team.ID), actorID)
	}

	var contenders []int64
	for _, s := range scores {
		if s.team.Active && s.living > 0 {
			contenders = append(contenders, s.team.ID)
		}
	}
	if !st.SuddenDeath && len(contenders) >= 2 {
		return e.enterSuddenDeath(ctx, q, out, st, teams, contenders)
	}
	return e.finish(ctx, q, out, st, nil, actorID)
}

// enterSuddenDeath pairs the contending teams against each other. An odd
// team out gets no target.
func (e *Engine) enterSuddenDeath(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, teams []models.Team, contenders []int64) error {
	if err := e.discardReports(ctx, q, out, func(models.EliminationReport) bool { return true },
		"sudden death replaced all targets"); err != nil {
		return err
	}

	idx := teamIndex(teams)
	for i := range teams {
		if teams[i].TargetTeamID == nil {
			continue
		}
		teams[i].TargetTeamID = nil
		if err := q.UpdateTeam(ctx, &teams[i]); err != nil {
			return fmt.Errorf("clear target of team %d: %w", teams[i].ID, err)
		}
	}

	pairs, odd := targeting.Pairs(contenders, e.rng)
	payload := map[string]interface{}{}
	if err := e.pairTeams(ctx, q, out, idx, pairs, payload); err != nil {
		return err
	}
	if odd != nil {
		payload["bye"] = *odd
		members, err := q.ListTeamMembers(ctx, *odd)
		if err != nil {
			return fmt.Errorf("list members of team %d: %w", *odd, err)
		}
		for _, m := range members {
			if m.Alive {
				out.notify(m.ID, "Sudden death: your team has no opponent this round.")
			}
		}
	}

	st.SuddenDeath = true
	if err := q.SaveGameState(ctx, st); err != nil {
		return fmt.Errorf("save game state: %w", err)
	}
	out.post(e.cfg.Channels.Status, "The game is tied. Sudden death: the next confirmed elimination wins.")
	e.event(out, models.EventSuddenDeath, "", payload)
	e.log.WithField("teams", len(contenders)).Info("entering sudden death")
	return nil
}

// pairTeams points each pair of teams at each other and records the
// pairing in payload.
func (e *Engine) pairTeams(ctx context.Context, q database.Queries, out *outbox, idx map[int64]*models.Team, pairs [][2]int64, payload map[string]interface{}) error {
	for _, pair := range pairs {
		a, b := idx[pair[0]], idx[pair[1]]
		a.TargetTeamID = ptr(b.ID)
		b.TargetTeamID = ptr(a.ID)
		if err := q.UpdateTeam(ctx, a); err != nil {
			return fmt.Errorf("pair team %d: %w", a.ID, err)
		}
		if err := q.UpdateTeam(ctx, b); err != nil {
			return fmt.Errorf("pair team %d: %w", b.ID, err)
		}
		if err := e.notifyTarget(ctx, q, out, a.ID, b.Name); err != nil {
			return err
		}
		if err := e.notifyTarget(ctx, q, out, b.ID, a.Name); err != nil {
			return err
		}
		payload[fmt.Sprint(a.ID)] = b.ID
		payload[fmt.Sprint(b.ID)] = a.ID
	}
	return nil
}

// redrawPairs re-pairs the sudden death teams left without an active
// opponent after a team dropped out with no credited kill. With one such
// team left it sits out while the remaining pairs play on.
func (e *Engine) redrawPairs(ctx context.Context, q database.Queries, out *outbox, st *models.GameState) error {
	if st.Phase != models.PhaseActive || !st.SuddenDeath {
		return nil
	}
	teams, err := q.ListTeams(ctx)
	if err != nil {
		return fmt.Errorf("list teams: %w", err)
	}
	idx := teamIndex(teams)
	var stranded []int64
	for _, t := range teams {
		if !t.Active {
			continue
		}
		if t.TargetTeamID != nil {
			if opponent, ok := idx[*t.TargetTeamID]; ok && opponent.Active {
				continue
			}
		}
		stranded = append(stranded, t.ID)
	}
	if len(stranded) < 2 {
		return nil
	}

	pairs, odd := targeting.Pairs(stranded, e.rng)
	payload := map[string]interface{}{}
	if err := e.pairTeams(ctx, q, out, idx, pairs, payload); err != nil {
		return err
	}
	if odd != nil {
		payload["bye"] = *odd
	}
	out.post(e.cfg.Channels.Status, "Sudden death opponents were redrawn.")
	e.event(out, models.EventTargetsAssigned, "", payload)
	e.log.WithField("teams", len(stranded)).Info("sudden death pairs redrawn")
	return nil
}

// finish moves the game to ended with the given winner, nil for a draw.
func (e *Engine) finish(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, winner *int64, actorID string) error {
	if !st.Phase.CanTransitionTo(models.PhaseEnded) {
		return ErrWrongPhase.withf("cannot end a game that is %s", st.Phase)
	}
	if err := e.discardReports(ctx, q, out, func(models.EliminationReport) bool { return true },
		"the game ended"); err != nil {
		return err
	}

	st.Phase = models.PhaseEnded
	st.EndedAt = ptr(e.Now())
	st.WinnerTeamID = winner
	if err := q.SaveGameState(ctx, st); err != nil {
		return fmt.Errorf("save game state: %w", err)
	}

	payload := map[string]interface{}{}
	msg := "The game is over. It ended in a draw."
	if winner != nil {
		team, err := loadTeam(ctx, q, *winner)
		if err != nil {
			return err
		}
		payload["winner_team_id"] = *winner
		msg = fmt.Sprintf("The game is over. Team %s wins!", team.Name)
	}
	out.post(e.cfg.Channels.Status, msg)
	e.event(out, models.EventGameEnded, actorID, payload)
	e.log.WithFields(logrus.Fields{"winner": payload["winner_team_id"]}).Info("game ended")
	return nil
}
