// internal/handlers/server.go
package handlers

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/jason-s-yu/assassin/internal/game"
	"github.com/jason-s-yu/assassin/internal/middleware"
	"github.com/jason-s-yu/assassin/internal/notify"
	"github.com/sirupsen/logrus"
)

// Server exposes the engine over HTTP and the notification hub over websocket.
type Server struct {
	engine *game.Engine
	hub    *notify.Hub
	log    *logrus.Logger
}

// NewServer wires the handlers. hub may be nil, which disables the event feed.
func NewServer(engine *game.Engine, hub *notify.Hub, logger *logrus.Logger) *Server {
	return &Server{engine: engine, hub: hub, log: logger}
}

// Routes builds the router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.LogMiddleware(s.log))

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})
	if s.hub != nil {
		r.Get("/events/ws", s.EventsWSHandler)
	}

	r.Group(func(r chi.Router) {
		r.Use(requireActor)

		// read models
		r.Get("/state", s.handleState)
		r.Get("/teams", s.handleTeams)
		r.Get("/leaderboard", s.handleLeaderboard)
		r.Get("/me", s.handleMe)
		r.Get("/me/target", s.handleMyTarget)
		r.Get("/reports", s.handlePendingReports)
		r.Get("/disputes", s.handleListDisputes)

		// roster
		r.Post("/players", s.handleRegister)
		r.Post("/registrations/{userID}/approve", s.handleApproveRegistration)
		r.Post("/registrations/{userID}/reject", s.handleRejectRegistration)
		r.Post("/teams", s.handleCreateTeam)
		r.Post("/teams/{teamID}/join", s.handleRequestJoin)
		r.Post("/join-requests/{requestID}/approve", s.handleApproveJoin)
		r.Post("/join-requests/{requestID}/reject", s.handleRejectJoin)
		r.Post("/team/leave", s.handleLeaveTeam)
		r.Post("/team/transfer", s.handleTransferOwnership)
		r.Post("/team/kick", s.handleKick)

		// phase
		r.Post("/game/start", s.handleStartGame)
		r.Post("/game/end", s.handleEndGame)

		// eliminations
		r.Post("/reports", s.handleSubmitReport)
		r.Post("/reports/{reportID}/approve", s.handleApproveReport)
		r.Post("/reports/{reportID}/reject", s.handleRejectReport)
		r.Post("/reports/{reportID}/vote", s.handleVote)
		r.Post("/players/{userID}/eliminate", s.handleEliminate)
		r.Post("/players/{userID}/revive", s.handleRevive)

		// disputes and announcements
		r.Post("/disputes", s.handleSubmitDispute)
		r.Post("/disputes/{disputeID}/resolve", s.handleResolveDispute)
		r.Post("/announcements", s.handleAnnounce)
	})
	return r
}
