// internal/handlers/game.go
package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/assassin/internal/game"
)

type startRequest struct {
	EndsAt *time.Time `json:"ends_at"`
	// DurationMinutes is an alternative to EndsAt, counted from now.
	DurationMinutes int `json:"duration_minutes"`
}

type reportRequest struct {
	TargetID string `json:"target_id"`
	Evidence string `json:"evidence"`
}

type voteRequest struct {
	Up bool `json:"up"`
}

func (s *Server) handleStartGame(w http.ResponseWriter, r *http.Request) {
	var req startRequest
	if !decode(w, r, &req) {
		return
	}
	opts := game.StartOptions{EndsAt: req.EndsAt}
	if opts.EndsAt == nil && req.DurationMinutes > 0 {
		end := s.engine.Now().Add(time.Duration(req.DurationMinutes) * time.Minute)
		opts.EndsAt = &end
	}
	st, err := s.engine.StartGame(r.Context(), actorFrom(r), opts)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleEndGame(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.EndGame(r.Context(), actorFrom(r))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleSubmitReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if !decode(w, r, &req) {
		return
	}
	report, err := s.engine.SubmitReport(r.Context(), actorFrom(r).UserID, req.TargetID, req.Evidence)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, report)
}

func (s *Server) handleApproveReport(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reportID")
	if !ok {
		return
	}
	if err := s.engine.Approve(r.Context(), actorFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRejectReport(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reportID")
	if !ok {
		return
	}
	if err := s.engine.Reject(r.Context(), actorFrom(r), id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleVote(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "reportID")
	if !ok {
		return
	}
	var req voteRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.CastVote(r.Context(), id, actorFrom(r).UserID, req.Up); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleEliminate(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Eliminate(r.Context(), actorFrom(r), chi.URLParam(r, "userID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRevive(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.Revive(r.Context(), actorFrom(r), chi.URLParam(r, "userID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type disputeRequest struct {
	Body string `json:"body"`
}

type resolveRequest struct {
	Resolution string `json:"resolution"`
}

type announceRequest struct {
	Text string `json:"text"`
}

func (s *Server) handleSubmitDispute(w http.ResponseWriter, r *http.Request) {
	var req disputeRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := s.engine.SubmitDispute(r.Context(), actorFrom(r).UserID, req.Body)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleResolveDispute(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseInt(chi.URLParam(r, "disputeID"), 10, 64)
	if err != nil {
		badRequest(w, "invalid dispute id")
		return
	}
	var req resolveRequest
	if !decode(w, r, &req) {
		return
	}
	d, err := s.engine.ResolveDispute(r.Context(), actorFrom(r), id, req.Resolution)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAnnounce(w http.ResponseWriter, r *http.Request) {
	var req announceRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.Announce(r.Context(), actorFrom(r), req.Text); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
