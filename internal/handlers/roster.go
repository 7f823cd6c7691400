// internal/handlers/roster.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

type registerRequest struct {
	DisplayName string `json:"display_name"`
}

type memberRequest struct {
	UserID string `json:"user_id"`
}

type createTeamRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if !decode(w, r, &req) {
		return
	}
	res, err := s.engine.Register(r.Context(), actorFrom(r).UserID, req.DisplayName)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if res.Pending != nil {
		writeJSON(w, http.StatusAccepted, res.Pending)
		return
	}
	writeJSON(w, http.StatusCreated, res.Player)
}

func (s *Server) handleApproveRegistration(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.ApprovePendingRegistration(r.Context(), actorFrom(r), chi.URLParam(r, "userID"))
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, p)
}

func (s *Server) handleRejectRegistration(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.RejectPendingRegistration(r.Context(), actorFrom(r), chi.URLParam(r, "userID")); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var req createTeamRequest
	if !decode(w, r, &req) {
		return
	}
	team, err := s.engine.CreateTeam(r.Context(), actorFrom(r).UserID, req.Name)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, team)
}

func (s *Server) handleRequestJoin(w http.ResponseWriter, r *http.Request) {
	teamID, err := strconv.ParseInt(chi.URLParam(r, "teamID"), 10, 64)
	if err != nil {
		badRequest(w, "invalid team id")
		return
	}
	jr, err := s.engine.RequestJoin(r.Context(), actorFrom(r).UserID, teamID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusAccepted, jr)
}

func uuidParam(w http.ResponseWriter, r *http.Request, param string) (uuid.UUID, bool) {
	id, err := uuid.Parse(chi.URLParam(r, param))
	if err != nil {
		badRequest(w, "invalid "+param)
		return uuid.Nil, false
	}
	return id, true
}

func (s *Server) handleApproveJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "requestID")
	if !ok {
		return
	}
	if err := s.engine.ApproveJoin(r.Context(), actorFrom(r).UserID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleRejectJoin(w http.ResponseWriter, r *http.Request) {
	id, ok := uuidParam(w, r, "requestID")
	if !ok {
		return
	}
	if err := s.engine.RejectJoin(r.Context(), actorFrom(r).UserID, id); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleLeaveTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.engine.LeaveTeam(r.Context(), actorFrom(r).UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleTransferOwnership(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.TransferOwnership(r.Context(), actorFrom(r).UserID, req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleKick(w http.ResponseWriter, r *http.Request) {
	var req memberRequest
	if !decode(w, r, &req) {
		return
	}
	if err := s.engine.Kick(r.Context(), actorFrom(r).UserID, req.UserID); err != nil {
		s.writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
