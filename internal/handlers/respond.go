// internal/handlers/respond.go
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/jason-s-yu/assassin/internal/game"
	"github.com/sirupsen/logrus"
)

type errorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

var notFoundCodes = map[string]bool{
	game.ErrNotRegistered.Code:               true,
	game.ErrTeamNotFound.Code:                true,
	game.ErrJoinRequestNotFound.Code:         true,
	game.ErrPendingRegistrationNotFound.Code: true,
	game.ErrReportNotFound.Code:              true,
	game.ErrDisputeNotFound.Code:             true,
}

// statusFor maps an engine error to its HTTP status.
func statusFor(err error) (int, errorBody) {
	var ge *game.Error
	if !errors.As(err, &ge) {
		return http.StatusInternalServerError, errorBody{Code: "Internal", Message: "internal error"}
	}
	body := errorBody{Code: ge.Code, Message: ge.Message}
	switch {
	case ge.Kind == game.KindConsistency:
		return http.StatusInternalServerError, body
	case ge.Kind == game.KindConflict:
		return http.StatusConflict, body
	case ge.Code == game.ErrNotManager.Code:
		return http.StatusForbidden, body
	case notFoundCodes[ge.Code]:
		return http.StatusNotFound, body
	}
	return http.StatusBadRequest, body
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	status, body := statusFor(err)
	if status == http.StatusInternalServerError {
		s.log.WithFields(logrus.Fields{"path": r.URL.Path, "error": err}).Error("request failed")
	}
	writeJSON(w, status, body)
}

func badRequest(w http.ResponseWriter, msg string) {
	writeJSON(w, http.StatusBadRequest, errorBody{Code: "BadRequest", Message: msg})
}

// decode reads a JSON body into v. An empty body leaves v untouched.
func decode(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	if r.Body == nil || r.ContentLength == 0 {
		return true
	}
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		badRequest(w, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}
