package models

import (
	"time"

	"github.com/google/uuid"
)

// Team is a group of players hunting a single target team.
// TargetTeamID is the outgoing edge of the elimination cycle.
type Team struct {
	ID           int64     `json:"id"`
	Name         string    `json:"name"`
	OwnerID      *string   `json:"owner_id,omitempty"`
	Active       bool      `json:"active"`
	TargetTeamID *int64    `json:"target_team_id,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
}

// IsOwner reports whether userID currently owns the team.
func (t *Team) IsOwner(userID string) bool {
	return t.OwnerID != nil && *t.OwnerID == userID
}

// Targets reports whether the team's current target is teamID.
func (t *Team) Targets(teamID int64) bool {
	return t.TargetTeamID != nil && *t.TargetTeamID == teamID
}

// JoinRequest is a player's pending request to join a team, decided by its owner.
type JoinRequest struct {
	ID        uuid.UUID `json:"id"`
	PlayerID  string    `json:"player_id"`
	TeamID    int64     `json:"team_id"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}

// TeamStanding is one leaderboard row.
type TeamStanding struct {
	Team    Team `json:"team"`
	Kills   int  `json:"kills"`
	Living  int  `json:"living"`
	Members int  `json:"members"`
}

// TeamRoster is a team with its current members.
type TeamRoster struct {
	Team    Team     `json:"team"`
	Members []Player `json:"members"`
}
