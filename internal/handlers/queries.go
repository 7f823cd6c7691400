// internal/handlers/queries.go
package handlers

import (
	"net/http"

	"github.com/jason-s-yu/assassin/internal/game"
)

func (s *Server) handleState(w http.ResponseWriter, r *http.Request) {
	st, err := s.engine.State(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, st)
}

func (s *Server) handleTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.engine.Teams(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, teams)
}

func (s *Server) handleLeaderboard(w http.ResponseWriter, r *http.Request) {
	board, err := s.engine.Leaderboard(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, board)
}

func (s *Server) handleMe(w http.ResponseWriter, r *http.Request) {
	p, err := s.engine.Player(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleMyTarget(w http.ResponseWriter, r *http.Request) {
	target, err := s.engine.TargetOf(r.Context(), actorFrom(r).UserID)
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	if target == nil {
		w.WriteHeader(http.StatusNoContent)
		return
	}
	writeJSON(w, http.StatusOK, target)
}

// Pending reports and disputes are manager views.

func (s *Server) handlePendingReports(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).Manager {
		s.writeError(w, r, game.ErrNotManager)
		return
	}
	reports, err := s.engine.PendingReports(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, reports)
}

func (s *Server) handleListDisputes(w http.ResponseWriter, r *http.Request) {
	if !actorFrom(r).Manager {
		s.writeError(w, r, game.ErrNotManager)
		return
	}
	disputes, err := s.engine.Disputes(r.Context())
	if err != nil {
		s.writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, disputes)
}
