package models

import (
	"time"

	"github.com/google/uuid"
)

// AdjudicationMode decides how a pending report is resolved.
type AdjudicationMode string

const (
	AdjudicateVote    AdjudicationMode = "vote"
	AdjudicateManager AdjudicationMode = "manager"
)

// EliminationRecord is the immutable log entry of an approved elimination.
type EliminationRecord struct {
	ID         int64      `json:"id"`
	AssassinID string     `json:"assassin_id"`
	TargetID   string     `json:"target_id"`
	ReportID   *uuid.UUID `json:"report_id,omitempty"`
	CreatedAt  time.Time  `json:"created_at"`
}

// EliminationReport is a pending elimination claim. It is deleted once resolved.
type EliminationReport struct {
	ID             uuid.UUID        `json:"id"`
	ReporterID     string           `json:"reporter_id"`
	TargetID       string           `json:"target_id"`
	AssassinTeamID int64            `json:"assassin_team_id"`
	TargetTeamID   int64            `json:"target_team_id"`
	Evidence       string           `json:"evidence"`
	Mode           AdjudicationMode `json:"mode"`
	CreatedAt      time.Time        `json:"created_at"`
	Deadline       *time.Time       `json:"deadline,omitempty"`
}

// ReportVote is one community vote on a pending report.
type ReportVote struct {
	ReportID uuid.UUID `json:"report_id"`
	VoterID  string    `json:"voter_id"`
	Up       bool      `json:"up"`
}

// Tally counts up and down votes.
func Tally(votes []ReportVote) (up, down int) {
	for _, v := range votes {
		if v.Up {
			up++
		} else {
			down++
		}
	}
	return up, down
}
