package models

import "time"

// Dispute is a free-text complaint. A posted Resolution marks it resolved.
type Dispute struct {
	ID          int64      `json:"id"`
	SubmitterID string     `json:"submitter_id"`
	Body        string     `json:"body"`
	CreatedAt   time.Time  `json:"created_at"`
	Resolution  *string    `json:"resolution,omitempty"`
	ResolvedAt  *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether a resolution has been posted.
func (d *Dispute) Resolved() bool {
	return d.Resolution != nil
}
