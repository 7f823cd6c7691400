package models

import "time"

// Phase is the top-level game phase.
type Phase string

const (
	PhaseLobby  Phase = "lobby"
	PhaseActive Phase = "active"
	PhaseEnded  Phase = "ended"
)

// CanTransitionTo reports whether p may move directly to target. No phase is skipped.
func (p Phase) CanTransitionTo(target Phase) bool {
	switch p {
	case PhaseLobby:
		return target == PhaseActive
	case PhaseActive:
		return target == PhaseEnded
	}
	return false
}

// GameState is the singleton state record of a game instance.
type GameState struct {
	Phase        Phase      `json:"phase"`
	SuddenDeath  bool       `json:"sudden_death"`
	StartedAt    *time.Time `json:"started_at,omitempty"`
	EndsAt       *time.Time `json:"ends_at,omitempty"`
	EndedAt      *time.Time `json:"ended_at,omitempty"`
	WinnerTeamID *int64     `json:"winner_team_id,omitempty"`
}

// NewGameState returns the initial lobby state.
func NewGameState() *GameState {
	return &GameState{Phase: PhaseLobby}
}
