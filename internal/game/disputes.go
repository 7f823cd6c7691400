package game

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
)

// SubmitDispute files a complaint for the game managers.
func (e *Engine) SubmitDispute(ctx context.Context, submitterID, body string) (*models.Dispute, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return nil, ErrInvalidBody
	}
	d := &models.Dispute{SubmitterID: submitterID, Body: body}
	err := e.mutate(ctx, "submit_dispute", func(q database.Queries, out *outbox) error {
		d.CreatedAt = e.Now()
		if err := q.CreateDispute(ctx, d); err != nil {
			return fmt.Errorf("create dispute: %w", err)
		}
		out.post(e.cfg.Channels.Disputes, fmt.Sprintf("Dispute #%d from %s: %s", d.ID, submitterID, body))
		out.notify(submitterID, "Your dispute #%d was submitted.", d.ID)
		e.event(out, models.EventDisputeSubmitted, submitterID, map[string]interface{}{"dispute_id": d.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// ResolveDispute posts a manager's resolution. Nothing else in the game changes.
func (e *Engine) ResolveDispute(ctx context.Context, actor Actor, disputeID int64, resolution string) (*models.Dispute, error) {
	if err := e.requireManager(actor); err != nil {
		return nil, err
	}
	resolution = strings.TrimSpace(resolution)
	if resolution == "" {
		return nil, ErrInvalidBody
	}
	var d *models.Dispute
	err := e.mutate(ctx, "resolve_dispute", func(q database.Queries, out *outbox) error {
		var err error
		d, err = q.GetDispute(ctx, disputeID)
		if errors.Is(err, database.ErrNotFound) {
			return ErrDisputeNotFound
		}
		if err != nil {
			return fmt.Errorf("load dispute: %w", err)
		}
		if d.Resolved() {
			return ErrAlreadyResolved.withf("dispute #%d was already resolved", disputeID)
		}
		d.Resolution = ptr(resolution)
		d.ResolvedAt = ptr(e.Now())
		if err := q.UpdateDispute(ctx, d); err != nil {
			return fmt.Errorf("update dispute: %w", err)
		}
		out.post(e.cfg.Channels.Disputes, fmt.Sprintf("Dispute #%d resolved: %s", d.ID, resolution))
		out.notify(d.SubmitterID, "Your dispute #%d was resolved: %s", d.ID, resolution)
		e.event(out, models.EventDisputeResolved, actor.UserID, map[string]interface{}{"dispute_id": d.ID})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

// Announce posts text to the announcements channel.
func (e *Engine) Announce(ctx context.Context, actor Actor, text string) error {
	if err := e.requireManager(actor); err != nil {
		return err
	}
	text = strings.TrimSpace(text)
	if text == "" {
		return ErrInvalidBody
	}
	out := &outbox{}
	out.post(e.cfg.Channels.Announcements, text)
	e.event(out, models.EventAnnouncementPosted, actor.UserID, map[string]interface{}{"text": text})
	e.flush(ctx, out)
	return nil
}
