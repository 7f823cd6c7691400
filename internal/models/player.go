package models

import "time"

// Player is a registered participant. ID is the opaque chat-platform user id.
type Player struct {
	ID           string    `json:"id"`
	DisplayName  string    `json:"display_name"`
	TeamID       *int64    `json:"team_id,omitempty"`
	Alive        bool      `json:"alive"`
	RegisteredAt time.Time `json:"registered_at"`

	// Seq is the store-assigned registration order. Lower means longer tenured.
	Seq int64 `json:"seq"`
}

// OnTeam reports whether the player belongs to the given team.
func (p *Player) OnTeam(teamID int64) bool {
	return p.TeamID != nil && *p.TeamID == teamID
}

// PendingRegistration is a registration awaiting manager approval.
type PendingRegistration struct {
	UserID      string    `json:"user_id"`
	DisplayName string    `json:"display_name"`
	RequestedAt time.Time `json:"requested_at"`
	ExpiresAt   time.Time `json:"expires_at"`
}
