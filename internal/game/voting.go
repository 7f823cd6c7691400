// internal/game/voting.go
package game

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
)

// CastVote records voterID's vote on a report open for community voting.
// Voting again replaces the earlier vote.
func (e *Engine) CastVote(ctx context.Context, reportID uuid.UUID, voterID string, up bool) error {
	if voterID == "" {
		return ErrNotRegistered.withf("voter id must not be blank")
	}
	return e.mutate(ctx, "cast_vote", func(q database.Queries, out *outbox) error {
		r, err := e.lookupReport(ctx, q, reportID)
		if err != nil {
			return err
		}
		if r.Mode != models.AdjudicateVote {
			return ErrNotVoting
		}
		if r.ReporterID == voterID {
			return ErrSelfVote
		}
		if err := q.SaveVote(ctx, models.ReportVote{ReportID: r.ID, VoterID: voterID, Up: up}); err != nil {
			return fmt.Errorf("save vote: %w", err)
		}
		return nil
	})
}

// CloseVote tallies a vote. More up than down votes approves the report,
// no votes at all lets it expire and anything else rejects it.
func (e *Engine) CloseVote(ctx context.Context, reportID uuid.UUID) error {
	return e.mutate(ctx, "close_vote", func(q database.Queries, out *outbox) error {
		r, err := e.lookupReport(ctx, q, reportID)
		if err != nil {
			return err
		}
		if r.Mode != models.AdjudicateVote {
			return ErrNotVoting
		}
		votes, err := q.ListVotes(ctx, r.ID)
		if err != nil {
			return fmt.Errorf("list votes: %w", err)
		}
		up, down := models.Tally(votes)
		e.log.WithFields(logrus.Fields{"report": r.ID, "up": up, "down": down}).Debug("vote closed")

		switch {
		case up > down:
			return e.applyApproval(ctx, q, out, r, "")
		case up == 0 && down == 0:
			return e.dropReport(ctx, q, out, r, models.EventReportExpired, "",
				"Your report expired: nobody voted on it.")
		default:
			return e.dropReport(ctx, q, out, r, models.EventReportRejected, "",
				fmt.Sprintf("Your report was rejected by vote (%d up, %d down).", up, down))
		}
	})
}
