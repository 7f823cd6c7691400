// internal/handlers/events_ws.go
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/auth"
	"github.com/jason-s-yu/assassin/internal/game"
	"github.com/jason-s-yu/assassin/internal/middleware"
	"github.com/jason-s-yu/assassin/internal/notify"
	"github.com/sirupsen/logrus"
)

const feedSubprotocol = "assassin-events"

// actionMessage is sent by the bot when a user clicks an action attached to a post.
type actionMessage struct {
	Action  string `json:"action"`
	UserID  string `json:"user_id"`
	Manager bool   `json:"manager"`
}

// actionResult acknowledges an actionMessage.
type actionResult struct {
	Kind    string `json:"kind"`
	Action  string `json:"action"`
	OK      bool   `json:"ok"`
	Code    string `json:"code,omitempty"`
	Message string `json:"message,omitempty"`
}

// EventsWSHandler streams engine notifications to the bot. Only manager tokens
// may connect; the bot relays action clicks back over the same socket.
func (s *Server) EventsWSHandler(w http.ResponseWriter, r *http.Request) {
	c, err := websocket.Accept(w, r, &websocket.AcceptOptions{
		Subprotocols:   []string{feedSubprotocol},
		OriginPatterns: []string{"*"},
	})
	if err != nil {
		s.log.Warnf("websocket accept error: %v", err)
		return
	}
	defer c.Close(websocket.StatusInternalError, "handler finished")

	if c.Subprotocol() != feedSubprotocol {
		c.Close(BadSubprotocolError, "client must speak the "+feedSubprotocol+" subprotocol")
		return
	}

	token := tokenFrom(r)
	if token == "" {
		token = r.URL.Query().Get("token")
	}
	claims, err := auth.AuthenticateJWT(token)
	if err != nil {
		c.Close(InvalidAuthTokenError, "Authentication failed.")
		return
	}
	if !claims.Manager {
		c.Close(NotManagerError, "manager token required")
		return
	}

	middleware.LogWebSocketConnect(s.log, r.RemoteAddr, r.URL.Path)
	ctx, cancel := context.WithCancel(r.Context())
	defer cancel()

	sub := s.hub.Subscribe()
	go s.writePump(ctx, c, sub)

	err = s.readPump(ctx, c)
	s.hub.Unsubscribe(sub)
	middleware.LogWebSocketDisconnect(s.log, r.RemoteAddr, r.URL.Path, err)
}

// readPump handles action messages until the connection closes.
func (s *Server) readPump(ctx context.Context, c *websocket.Conn) error {
	for {
		var msg actionMessage
		if err := wsjson.Read(ctx, c, &msg); err != nil {
			status := websocket.CloseStatus(err)
			if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				return nil
			}
			return err
		}

		res := actionResult{Kind: "action_result", Action: msg.Action, OK: true}
		if err := s.dispatchAction(ctx, msg); err != nil {
			_, body := statusFor(err)
			res.OK, res.Code, res.Message = false, body.Code, body.Message
			s.log.WithFields(logrus.Fields{"action": msg.Action, "user": msg.UserID, "error": err}).Debug("action rejected")
		}
		if err := s.sendResult(ctx, c, res); err != nil {
			return err
		}
	}
}

func (s *Server) sendResult(ctx context.Context, c *websocket.Conn, res actionResult) error {
	writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	return wsjson.Write(writeCtx, c, res)
}

var errUnknownAction = errors.New("unknown action")

// dispatchAction runs the engine operation named by an action id of the form
// "<kind>:<key>:<verb>".
func (s *Server) dispatchAction(ctx context.Context, msg actionMessage) error {
	first, last := strings.Index(msg.Action, ":"), strings.LastIndex(msg.Action, ":")
	if first < 0 || first == last {
		return fmt.Errorf("%w %q", errUnknownAction, msg.Action)
	}
	kind, key, verb := msg.Action[:first], msg.Action[first+1:last], msg.Action[last+1:]
	actor := game.Actor{UserID: msg.UserID, Manager: msg.Manager}

	switch kind {
	case "report":
		id, err := uuid.Parse(key)
		if err != nil {
			return fmt.Errorf("%w: bad report id %q", errUnknownAction, key)
		}
		switch verb {
		case "up", "down":
			return s.engine.CastVote(ctx, id, msg.UserID, verb == "up")
		case "approve":
			return s.engine.Approve(ctx, actor, id)
		case "reject":
			return s.engine.Reject(ctx, actor, id)
		}
	case "registration":
		switch verb {
		case "approve":
			_, err := s.engine.ApprovePendingRegistration(ctx, actor, key)
			return err
		case "reject":
			return s.engine.RejectPendingRegistration(ctx, actor, key)
		}
	}
	return fmt.Errorf("%w %q", errUnknownAction, msg.Action)
}

// writePump forwards hub messages to the socket and keeps it alive with pings.
func (s *Server) writePump(ctx context.Context, c *websocket.Conn, sub *notify.Subscriber) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-sub.OutChan:
			if !ok {
				return
			}
			data, err := json.Marshal(msg)
			if err != nil {
				s.log.Warnf("failed to marshal feed message: %v", err)
				continue
			}

			writeCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
			err = c.Write(writeCtx, websocket.MessageText, data)
			cancel()
			if err != nil {
				s.log.Warnf("failed to write to event feed %v: %v", sub.ID, err)
				return
			}
		case <-ticker.C:
			pingCtx, cancel := context.WithTimeout(ctx, 15*time.Second)
			err := c.Ping(pingCtx)
			cancel()
			if err != nil {
				s.log.Warnf("failed to ping event feed %v: %v", sub.ID, err)
				return
			}
		}
	}
}
