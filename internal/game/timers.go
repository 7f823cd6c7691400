// internal/game/timers.go
package game

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
)

// scheduler owns the deadline timers of pending reports, join requests and
// registrations, keyed by entity. Fires that lose a race with a decision
// are harmless: the callbacks re-enter the engine, which finds nothing to do.
type scheduler struct {
	mu     sync.Mutex
	timers map[string]*scheduled
	seq    uint64
	closed bool
}

type scheduled struct {
	timer *time.Timer
	gen   uint64
}

func newScheduler() *scheduler {
	return &scheduler{timers: make(map[string]*scheduled)}
}

// schedule arms fn to run after d, replacing any timer under key.
func (s *scheduler) schedule(key string, d time.Duration, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return
	}
	if old, ok := s.timers[key]; ok {
		old.timer.Stop()
	}
	if d < 0 {
		d = 0
	}
	s.seq++
	gen := s.seq
	s.timers[key] = &scheduled{
		gen: gen,
		timer: time.AfterFunc(d, func() {
			s.mu.Lock()
			cur, ok := s.timers[key]
			if !ok || cur.gen != gen {
				// replaced or cancelled after the timer fired
				s.mu.Unlock()
				return
			}
			delete(s.timers, key)
			s.mu.Unlock()
			fn()
		}),
	}
}

func (s *scheduler) cancel(key string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.timers[key]; ok {
		t.timer.Stop()
		delete(s.timers, key)
	}
}

func (s *scheduler) pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.timers[key]
	return ok
}

func (s *scheduler) stopAll() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closed = true
	for key, t := range s.timers {
		t.timer.Stop()
		delete(s.timers, key)
	}
}

func reportKey(id uuid.UUID) string   { return "report:" + id.String() }
func joinKey(id uuid.UUID) string     { return "join:" + id.String() }
func registrationKey(id string) string { return "registration:" + id }

// armReport schedules the deadline of a pending report.
func (e *Engine) armReport(r models.EliminationReport) {
	if r.Deadline == nil {
		return
	}
	id := r.ID
	mode := r.Mode
	e.timers.schedule(reportKey(id), r.Deadline.Sub(e.Now()), func() {
		var err error
		if mode == models.AdjudicateVote {
			err = e.CloseVote(context.Background(), id)
		} else {
			err = e.Expire(context.Background(), id)
		}
		e.logTimer("report", id.String(), err)
	})
}

func (e *Engine) armJoinRequest(jr models.JoinRequest) {
	id := jr.ID
	e.timers.schedule(joinKey(id), jr.ExpiresAt.Sub(e.Now()), func() {
		e.logTimer("join_request", id.String(), e.expireJoinRequest(context.Background(), id))
	})
}

func (e *Engine) armRegistration(pr models.PendingRegistration) {
	if pr.ExpiresAt.IsZero() {
		return
	}
	userID := pr.UserID
	e.timers.schedule(registrationKey(userID), pr.ExpiresAt.Sub(e.Now()), func() {
		e.logTimer("registration", userID, e.expireRegistration(context.Background(), userID))
	})
}

func (e *Engine) logTimer(kind, id string, err error) {
	if err == nil || errors.Is(err, ErrAlreadyResolved) || errors.Is(err, ErrReportNotFound) {
		return
	}
	e.log.WithFields(logrus.Fields{"timer": kind, "id": id, "error": err}).Warn("deadline handler failed")
}

// Recover re-arms the deadlines of everything still pending in the store,
// for use after a restart. Overdue deadlines fire immediately.
func (e *Engine) Recover(ctx context.Context) error {
	var (
		reports []models.EliminationReport
		joins   []models.JoinRequest
		regs    []models.PendingRegistration
	)
	err := e.store.View(ctx, func(q database.Queries) error {
		var err error
		if reports, err = q.ListReports(ctx); err != nil {
			return err
		}
		if joins, err = q.ListJoinRequests(ctx); err != nil {
			return err
		}
		regs, err = q.ListPendingRegistrations(ctx)
		return err
	})
	if err != nil {
		return err
	}

	for _, r := range reports {
		e.armReport(r)
	}
	for _, jr := range joins {
		e.armJoinRequest(jr)
	}
	for _, pr := range regs {
		e.armRegistration(pr)
	}
	e.log.WithFields(logrus.Fields{
		"reports":       len(reports),
		"join_requests": len(joins),
		"registrations": len(regs),
	}).Info("recovered pending deadlines")
	return nil
}

// Close stops every pending timer. The engine must not be used afterwards.
func (e *Engine) Close() {
	e.timers.stopAll()
}
