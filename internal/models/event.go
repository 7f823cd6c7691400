package models

import "github.com/google/uuid"

// GameEventType names an audited engine event.
type GameEventType string

const (
	EventPlayerRegistered   GameEventType = "player_registered"
	EventTeamCreated        GameEventType = "team_created"
	EventTeamJoined         GameEventType = "team_joined"
	EventTeamLeft           GameEventType = "team_left"
	EventTeamDeleted        GameEventType = "team_deleted"
	EventOwnershipChanged   GameEventType = "ownership_changed"
	EventGameStarted        GameEventType = "game_started"
	EventTargetsAssigned    GameEventType = "targets_assigned"
	EventTargetReassigned   GameEventType = "target_reassigned"
	EventReportSubmitted    GameEventType = "report_submitted"
	EventReportApproved     GameEventType = "report_approved"
	EventReportRejected     GameEventType = "report_rejected"
	EventReportExpired      GameEventType = "report_expired"
	EventPlayerEliminated   GameEventType = "player_eliminated"
	EventPlayerRevived      GameEventType = "player_revived"
	EventTeamEliminated     GameEventType = "team_eliminated"
	EventSuddenDeath        GameEventType = "sudden_death"
	EventGameEnded          GameEventType = "game_ended"
	EventDisputeSubmitted   GameEventType = "dispute_submitted"
	EventDisputeResolved    GameEventType = "dispute_resolved"
	EventAnnouncementPosted GameEventType = "announcement_posted"
)

// GameEvent is an audit record published after a committed mutation.
type GameEvent struct {
	ID        uuid.UUID              `json:"id"`
	Type      GameEventType          `json:"type"`
	ActorID   string                 `json:"actor_id,omitempty"`
	Payload   map[string]interface{} `json:"payload,omitempty"`
	Timestamp int64                  `json:"timestamp"`
}

// Action is an interactive control attached to a channel post (button, reaction).
type Action struct {
	ID    string `json:"id"`
	Label string `json:"label"`
}
