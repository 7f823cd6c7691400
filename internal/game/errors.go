// internal/game/errors.go
package game

import (
	"errors"
	"fmt"
)

// Kind groups error codes by how callers should treat them.
type Kind string

const (
	// KindValidation is a rejected operation: bad phase, missing entity, wrong actor.
	KindValidation Kind = "validation"
	// KindConflict is a rejected operation that raced another one. No state changed.
	KindConflict Kind = "conflict"
	// KindConsistency means the store holds data that breaks an engine invariant.
	// The operation is aborted and rolled back.
	KindConsistency Kind = "consistency"
)

// Error is the engine's error type. Two Errors match under errors.Is when
// their codes are equal, so callers compare against the sentinels below.
type Error struct {
	Kind    Kind   `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	cause   error
}

func (e *Error) Error() string {
	if e.cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Code == e.Code
}

func (e *Error) Unwrap() error { return e.cause }

// withf returns a copy of e carrying a more specific message.
func (e *Error) withf(format string, args ...interface{}) *Error {
	c := *e
	c.Message = fmt.Sprintf(format, args...)
	return &c
}

// because returns a copy of e wrapping cause.
func (e *Error) because(cause error) *Error {
	c := *e
	c.cause = cause
	return &c
}

func newError(kind Kind, code, msg string) *Error {
	return &Error{Kind: kind, Code: code, Message: msg}
}

var (
	ErrWrongPhase                  = newError(KindValidation, "WrongPhase", "operation not allowed in the current game phase")
	ErrAlreadyRegistered           = newError(KindValidation, "AlreadyRegistered", "player is already registered")
	ErrNotRegistered               = newError(KindValidation, "NotRegistered", "player is not registered")
	ErrAlreadyOnTeam               = newError(KindValidation, "AlreadyOnTeam", "player is already on a team")
	ErrDuplicateTeamName           = newError(KindValidation, "DuplicateTeamName", "a team with that name already exists")
	ErrInvalidName                 = newError(KindValidation, "InvalidName", "name must not be blank")
	ErrTeamNotFound                = newError(KindValidation, "TeamNotFound", "team not found")
	ErrTeamFull                    = newError(KindValidation, "TeamFull", "team is full")
	ErrNotOnTeam                   = newError(KindValidation, "NotOnTeam", "player is not on a team")
	ErrNotOwner                    = newError(KindValidation, "NotOwner", "player does not own the team")
	ErrTargetNotOnTeam             = newError(KindValidation, "TargetNotOnTeam", "player is not a member of the team")
	ErrSelfKick                    = newError(KindValidation, "SelfKick", "owners cannot kick themselves")
	ErrJoinRequestNotFound         = newError(KindValidation, "JoinRequestNotFound", "join request not found")
	ErrPendingRegistrationNotFound = newError(KindValidation, "PendingRegistrationNotFound", "pending registration not found")
	ErrInsufficientTeams           = newError(KindValidation, "InsufficientTeams", "not enough teams to start")
	ErrPlayersWithoutTeam          = newError(KindValidation, "PlayersWithoutTeam", "every registered player must be on a team")
	ErrNotAlive                    = newError(KindValidation, "NotAlive", "player has been eliminated")
	ErrAlreadyAlive                = newError(KindValidation, "AlreadyAlive", "player is alive")
	ErrTargetNotAlive              = newError(KindValidation, "TargetNotAlive", "target has already been eliminated")
	ErrNotAssignedTarget           = newError(KindValidation, "NotAssignedTarget", "target is not on your assigned target team")
	ErrReportNotFound              = newError(KindValidation, "ReportNotFound", "report not found")
	ErrSelfVote                    = newError(KindValidation, "SelfVote", "reporters cannot vote on their own report")
	ErrNotVoting                   = newError(KindValidation, "NotVoting", "report is not open for voting")
	ErrNotManager                  = newError(KindValidation, "NotManager", "operation requires the game manager role")
	ErrDisputeNotFound             = newError(KindValidation, "DisputeNotFound", "dispute not found")
	ErrInvalidBody                 = newError(KindValidation, "InvalidBody", "text must not be blank")

	ErrRegistrationPending = newError(KindConflict, "RegistrationPending", "a registration request is already pending")
	ErrJoinRequestPending  = newError(KindConflict, "JoinRequestPending", "a join request for that team is already pending")
	ErrReportConflict      = newError(KindConflict, "ReportConflict", "a report for this target team is already pending")
	ErrAlreadyResolved     = newError(KindConflict, "AlreadyResolved", "already resolved")
	ErrAlreadyEnded        = newError(KindConflict, "AlreadyEnded", "game has already ended")

	ErrCycleWalkExceeded = newError(KindConsistency, "CycleWalkExceeded", "target walk exceeded the team count")
	ErrCycleBroken       = newError(KindConsistency, "CycleBroken", "target cycle invariant violated")
)

// KindOf returns the kind of err, or "" when err is not an engine error.
func KindOf(err error) Kind {
	var ge *Error
	if errors.As(err, &ge) {
		return ge.Kind
	}
	return ""
}
