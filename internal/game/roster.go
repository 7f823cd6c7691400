// internal/game/roster.go
package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
)

// Registration is the outcome of Register: either a Player, or a
// PendingRegistration when manager approval is required.
type Registration struct {
	Player  *models.Player
	Pending *models.PendingRegistration
}

// Register signs a user up for the game. The game must be in the lobby.
func (e *Engine) Register(ctx context.Context, userID, displayName string) (*Registration, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return nil, ErrInvalidName.withf("user id must not be blank")
	}
	displayName = strings.TrimSpace(displayName)
	if displayName == "" {
		displayName = userID
	}

	var res Registration
	err := e.mutate(ctx, "register", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby); err != nil {
			return err
		}
		if _, err := q.GetPlayer(ctx, userID); err == nil {
			return ErrAlreadyRegistered
		} else if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("load player %s: %w", userID, err)
		}

		if e.cfg.RegistrationApproval {
			pr, err := e.requestRegistration(ctx, q, out, userID, displayName)
			if err != nil {
				return err
			}
			res.Pending = pr
			return nil
		}

		p, err := e.createPlayer(ctx, q, out, userID, displayName)
		if err != nil {
			return err
		}
		res.Player = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &res, nil
}

func (e *Engine) createPlayer(ctx context.Context, q database.Queries, out *outbox, userID, displayName string) (*models.Player, error) {
	p := &models.Player{
		ID:           userID,
		DisplayName:  displayName,
		Alive:        true,
		RegisteredAt: e.Now(),
	}
	if err := q.CreatePlayer(ctx, p); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrAlreadyRegistered
		}
		return nil, fmt.Errorf("create player: %w", err)
	}
	out.notify(userID, "You are registered for the game as %s.", displayName)
	e.event(out, models.EventPlayerRegistered, userID, map[string]interface{}{"display_name": displayName})
	return p, nil
}

func (e *Engine) requestRegistration(ctx context.Context, q database.Queries, out *outbox, userID, displayName string) (*models.PendingRegistration, error) {
	if _, err := q.GetPendingRegistration(ctx, userID); err == nil {
		return nil, ErrRegistrationPending
	} else if !errors.Is(err, database.ErrNotFound) {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}

	now := e.Now()
	pr := &models.PendingRegistration{
		UserID:      userID,
		DisplayName: displayName,
		RequestedAt: now,
	}
	if e.cfg.RegistrationTimeout > 0 {
		pr.ExpiresAt = now.Add(e.cfg.RegistrationTimeout)
	}
	if err := q.CreatePendingRegistration(ctx, pr); err != nil {
		if errors.Is(err, database.ErrDuplicate) {
			return nil, ErrRegistrationPending
		}
		return nil, fmt.Errorf("create pending registration: %w", err)
	}

	out.post(e.cfg.Channels.Managers,
		fmt.Sprintf("%s (%s) wants to register.", displayName, userID),
		models.Action{ID: "registration:" + userID + ":approve", Label: "Approve"},
		models.Action{ID: "registration:" + userID + ":reject", Label: "Reject"},
	)
	out.notify(userID, "Your registration is waiting for a game manager.")
	registered := *pr
	out.onCommit(func() { e.armRegistration(registered) })
	return pr, nil
}

// ApprovePendingRegistration creates the player of a pending registration.
func (e *Engine) ApprovePendingRegistration(ctx context.Context, actor Actor, userID string) (*models.Player, error) {
	if err := e.requireManager(actor); err != nil {
		return nil, err
	}
	var p *models.Player
	err := e.mutate(ctx, "approve_registration", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		pr, err := loadPendingRegistration(ctx, q, userID)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby); err != nil {
			return err
		}
		if err := q.DeletePendingRegistration(ctx, userID); err != nil {
			return fmt.Errorf("delete pending registration: %w", err)
		}
		p, err = e.createPlayer(ctx, q, out, pr.UserID, pr.DisplayName)
		if err != nil {
			return err
		}
		out.onCommit(func() { e.timers.cancel(registrationKey(userID)) })
		return nil
	})
	return p, err
}

// RejectPendingRegistration discards a pending registration.
func (e *Engine) RejectPendingRegistration(ctx context.Context, actor Actor, userID string) error {
	if err := e.requireManager(actor); err != nil {
		return err
	}
	return e.mutate(ctx, "reject_registration", func(q database.Queries, out *outbox) error {
		if _, err := loadPendingRegistration(ctx, q, userID); err != nil {
			return err
		}
		if err := q.DeletePendingRegistration(ctx, userID); err != nil {
			return fmt.Errorf("delete pending registration: %w", err)
		}
		out.notify(userID, "Your registration was declined.")
		out.onCommit(func() { e.timers.cancel(registrationKey(userID)) })
		return nil
	})
}

func (e *Engine) expireRegistration(ctx context.Context, userID string) error {
	return e.mutate(ctx, "expire_registration", func(q database.Queries, out *outbox) error {
		_, err := q.GetPendingRegistration(ctx, userID)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := q.DeletePendingRegistration(ctx, userID); err != nil {
			return fmt.Errorf("delete pending registration: %w", err)
		}
		out.notify(userID, "Your registration request expired.")
		return nil
	})
}

func loadPendingRegistration(ctx context.Context, q database.Queries, userID string) (*models.PendingRegistration, error) {
	pr, err := q.GetPendingRegistration(ctx, userID)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrPendingRegistrationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load pending registration: %w", err)
	}
	return pr, nil
}

// CreateTeam creates a team owned by ownerID, who joins it.
func (e *Engine) CreateTeam(ctx context.Context, ownerID, name string) (*models.Team, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrInvalidName
	}
	var team *models.Team
	err := e.mutate(ctx, "create_team", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby); err != nil {
			return err
		}
		owner, err := loadPlayer(ctx, q, ownerID)
		if err != nil {
			return err
		}
		if owner.TeamID != nil {
			return ErrAlreadyOnTeam
		}
		if _, err := q.GetTeamByName(ctx, name); err == nil {
			return ErrDuplicateTeamName.withf("team %q already exists", name)
		} else if !errors.Is(err, database.ErrNotFound) {
			return fmt.Errorf("load team by name: %w", err)
		}

		team = &models.Team{
			Name:      name,
			OwnerID:   ptr(ownerID),
			Active:    true,
			CreatedAt: e.Now(),
		}
		if err := q.CreateTeam(ctx, team); err != nil {
			if errors.Is(err, database.ErrDuplicate) {
				return ErrDuplicateTeamName.withf("team %q already exists", name)
			}
			return fmt.Errorf("create team: %w", err)
		}
		owner.TeamID = ptr(team.ID)
		if err := q.UpdatePlayer(ctx, owner); err != nil {
			return fmt.Errorf("update owner: %w", err)
		}
		if err := e.discardJoinRequests(ctx, q, out, func(jr models.JoinRequest) bool {
			return jr.PlayerID == ownerID
		}, ""); err != nil {
			return err
		}

		out.post(e.cfg.Channels.Status, fmt.Sprintf("Team %s was created by %s.", name, owner.DisplayName))
		e.event(out, models.EventTeamCreated, ownerID, map[string]interface{}{"team_id": team.ID, "name": name})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return team, nil
}

// RequestJoin asks the owner of teamID to let playerID in.
func (e *Engine) RequestJoin(ctx context.Context, playerID string, teamID int64) (*models.JoinRequest, error) {
	var jr *models.JoinRequest
	err := e.mutate(ctx, "request_join", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby); err != nil {
			return err
		}
		p, err := loadPlayer(ctx, q, playerID)
		if err != nil {
			return err
		}
		team, err := loadTeam(ctx, q, teamID)
		if err != nil {
			return err
		}
		if p.TeamID != nil {
			return ErrAlreadyOnTeam
		}
		existing, err := q.ListJoinRequests(ctx)
		if err != nil {
			return fmt.Errorf("list join requests: %w", err)
		}
		for _, r := range existing {
			if r.PlayerID == playerID && r.TeamID == teamID {
				return ErrJoinRequestPending
			}
		}

		now := e.Now()
		jr = &models.JoinRequest{
			ID:        uuid.New(),
			PlayerID:  playerID,
			TeamID:    teamID,
			CreatedAt: now,
			ExpiresAt: now.Add(e.cfg.JoinRequestTimeout),
		}
		if err := q.CreateJoinRequest(ctx, jr); err != nil {
			return fmt.Errorf("create join request: %w", err)
		}
		if team.OwnerID != nil {
			out.notify(*team.OwnerID, "%s asked to join %s (request %s).", p.DisplayName, team.Name, jr.ID)
		}
		out.notify(playerID, "Your request to join %s was sent to its owner.", team.Name)
		req := *jr
		out.onCommit(func() { e.armJoinRequest(req) })
		return nil
	})
	if err != nil {
		return nil, err
	}
	return jr, nil
}

func loadJoinRequest(ctx context.Context, q database.Queries, id uuid.UUID) (*models.JoinRequest, error) {
	jr, err := q.GetJoinRequest(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrJoinRequestNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load join request: %w", err)
	}
	return jr, nil
}

// ApproveJoin lets the requesting player in. Only the team owner may decide.
func (e *Engine) ApproveJoin(ctx context.Context, ownerID string, requestID uuid.UUID) error {
	return e.mutate(ctx, "approve_join", func(q database.Queries, out *outbox) error {
		jr, err := loadJoinRequest(ctx, q, requestID)
		if err != nil {
			return err
		}
		team, err := loadTeam(ctx, q, jr.TeamID)
		if err != nil {
			return err
		}
		if !team.IsOwner(ownerID) {
			return ErrNotOwner
		}
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby); err != nil {
			return err
		}
		p, err := loadPlayer(ctx, q, jr.PlayerID)
		if err != nil {
			return err
		}
		if p.TeamID != nil {
			return ErrAlreadyOnTeam
		}
		if e.cfg.MaxTeamSize > 0 {
			members, err := q.ListTeamMembers(ctx, team.ID)
			if err != nil {
				return fmt.Errorf("list members: %w", err)
			}
			if len(members) >= e.cfg.MaxTeamSize {
				return ErrTeamFull.withf("team %s already has %d members", team.Name, len(members))
			}
		}

		p.TeamID = ptr(team.ID)
		if err := q.UpdatePlayer(ctx, p); err != nil {
			return fmt.Errorf("update player: %w", err)
		}
		// the approved request and any others the player had open
		if err := e.discardJoinRequests(ctx, q, out, func(r models.JoinRequest) bool {
			return r.PlayerID == p.ID
		}, ""); err != nil {
			return err
		}

		out.notify(p.ID, "You joined %s.", team.Name)
		out.post(e.cfg.Channels.Status, fmt.Sprintf("%s joined %s.", p.DisplayName, team.Name))
		e.event(out, models.EventTeamJoined, p.ID, map[string]interface{}{"team_id": team.ID, "approved_by": ownerID})
		return nil
	})
}

// RejectJoin declines a join request.
func (e *Engine) RejectJoin(ctx context.Context, ownerID string, requestID uuid.UUID) error {
	return e.mutate(ctx, "reject_join", func(q database.Queries, out *outbox) error {
		jr, err := loadJoinRequest(ctx, q, requestID)
		if err != nil {
			return err
		}
		team, err := loadTeam(ctx, q, jr.TeamID)
		if err != nil {
			return err
		}
		if !team.IsOwner(ownerID) {
			return ErrNotOwner
		}
		if err := q.DeleteJoinRequest(ctx, jr.ID); err != nil {
			return fmt.Errorf("delete join request: %w", err)
		}
		out.notify(jr.PlayerID, "Your request to join %s was declined.", team.Name)
		out.onCommit(func() { e.timers.cancel(joinKey(requestID)) })
		return nil
	})
}

func (e *Engine) expireJoinRequest(ctx context.Context, requestID uuid.UUID) error {
	return e.mutate(ctx, "expire_join", func(q database.Queries, out *outbox) error {
		jr, err := q.GetJoinRequest(ctx, requestID)
		if errors.Is(err, database.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		if err := q.DeleteJoinRequest(ctx, jr.ID); err != nil {
			return fmt.Errorf("delete join request: %w", err)
		}
		out.notify(jr.PlayerID, "Your join request expired.")
		return nil
	})
}

// discardJoinRequests deletes the join requests accepted by match and cancels
// their timers. A non-empty message is sent to each requester.
func (e *Engine) discardJoinRequests(ctx context.Context, q database.Queries, out *outbox, match func(models.JoinRequest) bool, message string) error {
	all, err := q.ListJoinRequests(ctx)
	if err != nil {
		return fmt.Errorf("list join requests: %w", err)
	}
	for _, jr := range all {
		if !match(jr) {
			continue
		}
		if err := q.DeleteJoinRequest(ctx, jr.ID); err != nil {
			return fmt.Errorf("delete join request: %w", err)
		}
		if message != "" {
			out.notify(jr.PlayerID, "%s", message)
		}
		id := jr.ID
		out.onCommit(func() { e.timers.cancel(joinKey(id)) })
	}
	return nil
}

// LeaveTeam removes playerID from their team.
func (e *Engine) LeaveTeam(ctx context.Context, playerID string) error {
	return e.mutate(ctx, "leave_team", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby, models.PhaseActive); err != nil {
			return err
		}
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
		if err := e.removeMember(ctx, q, out, st, team, p); err != nil {
			return err
		}
		out.notify(p.ID, "You left %s.", team.Name)
		e.event(out, models.EventTeamLeft, p.ID, map[string]interface{}{"team_id": team.ID})
		return nil
	})
}

// TransferOwnership hands fromID's team to toID.
func (e *Engine) TransferOwnership(ctx context.Context, fromID, toID string) error {
	return e.mutate(ctx, "transfer_ownership", func(q database.Queries, out *outbox) error {
		from, err := loadPlayer(ctx, q, fromID)
		if err != nil {
			return err
		}
		if from.TeamID == nil {
			return ErrNotOnTeam
		}
		team, err := loadTeam(ctx, q, *from.TeamID)
		if err != nil {
			return err
		}
		if !team.IsOwner(fromID) {
			return ErrNotOwner
		}
		to, err := q.GetPlayer(ctx, toID)
		if errors.Is(err, database.ErrNotFound) || (err == nil && !to.OnTeam(team.ID)) {
			return ErrTargetNotOnTeam
		}
		if err != nil {
			return fmt.Errorf("load player %s: %w", toID, err)
		}
		if fromID == toID {
			return nil
		}
		return e.setOwner(ctx, q, out, team, to)
	})
}

// Kick removes playerID from ownerID's team.
func (e *Engine) Kick(ctx context.Context, ownerID, playerID string) error {
	return e.mutate(ctx, "kick", func(q database.Queries, out *outbox) error {
		st, err := loadState(ctx, q)
		if err != nil {
			return err
		}
		if err := requirePhase(st, models.PhaseLobby, models.PhaseActive); err != nil {
			return err
		}
		owner, err := loadPlayer(ctx, q, ownerID)
		if err != nil {
			return err
		}
		if owner.TeamID == nil {
			return ErrNotOnTeam
		}
		team, err := loadTeam(ctx, q, *owner.TeamID)
		if err != nil {
			return err
		}
		if !team.IsOwner(ownerID) {
			return ErrNotOwner
		}
		if ownerID == playerID {
			return ErrSelfKick
		}
		p, err := q.GetPlayer(ctx, playerID)
		if errors.Is(err, database.ErrNotFound) || (err == nil && !p.OnTeam(team.ID)) {
			return ErrTargetNotOnTeam
		}
		if err != nil {
			return fmt.Errorf("load player %s: %w", playerID, err)
		}
		if err := e.removeMember(ctx, q, out, st, team, p); err != nil {
			return err
		}
		out.notify(p.ID, "You were removed from %s.", team.Name)
		e.event(out, models.EventTeamLeft, p.ID, map[string]interface{}{"team_id": team.ID, "kicked_by": ownerID})
		return nil
	})
}

func (e *Engine) setOwner(ctx context.Context, q database.Queries, out *outbox, team *models.Team, to *models.Player) error {
	team.OwnerID = ptr(to.ID)
	if err := q.UpdateTeam(ctx, team); err != nil {
		return fmt.Errorf("update team owner: %w", err)
	}
	out.notify(to.ID, "You now own %s.", team.Name)
	e.event(out, models.EventOwnershipChanged, to.ID, map[string]interface{}{"team_id": team.ID})
	return nil
}

// removeMember takes p off team. The owner role passes to the longest
// registered remaining member. An emptied team is deleted in the lobby; in an
// active game a team with nobody alive left drops out of the cycle.
func (e *Engine) removeMember(ctx context.Context, q database.Queries, out *outbox, st *models.GameState, team *models.Team, p *models.Player) error {
	p.TeamID = nil
	if err := q.UpdatePlayer(ctx, p); err != nil {
		return fmt.Errorf("update player: %w", err)
	}
	if st.Phase == models.PhaseActive {
		if err := e.discardReports(ctx, q, out, func(r models.EliminationReport) bool {
			return r.ReporterID == p.ID || r.TargetID == p.ID
		}, "the reporter or target left their team"); err != nil {
			return err
		}
	}

	members, err := q.ListTeamMembers(ctx, team.ID)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}

	if team.IsOwner(p.ID) {
		if len(members) > 0 {
			if err := e.setOwner(ctx, q, out, team, &members[0]); err != nil {
				return err
			}
		} else {
			team.OwnerID = nil
			if err := q.UpdateTeam(ctx, team); err != nil {
				return fmt.Errorf("update team: %w", err)
			}
		}
	}

	switch st.Phase {
	case models.PhaseLobby:
		if len(members) > 0 {
			return nil
		}
		if err := e.discardJoinRequests(ctx, q, out, func(jr models.JoinRequest) bool {
			return jr.TeamID == team.ID
		}, fmt.Sprintf("Team %s was disbanded.", team.Name)); err != nil {
			return err
		}
		if err := q.DeleteTeam(ctx, team.ID); err != nil {
			return fmt.Errorf("delete team: %w", err)
		}
		out.post(e.cfg.Channels.Status, fmt.Sprintf("Team %s was disbanded.", team.Name))
		e.event(out, models.EventTeamDeleted, p.ID, map[string]interface{}{"team_id": team.ID})
	case models.PhaseActive:
		if team.Active && livingCount(members) == 0 {
			if err := e.eliminateTeam(ctx, q, out, st, team); err != nil {
				return err
			}
			if err := e.checkWin(ctx, q, out, st); err != nil {
				return err
			}
			return e.redrawPairs(ctx, q, out, st)
		}
	}
	return nil
}
