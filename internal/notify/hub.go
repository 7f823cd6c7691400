// internal/notify/hub.go
package notify

import (
	"context"
	"errors"
	"sync"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
)

// ErrNoSubscribers is returned when a message is sent while no bot is connected.
var ErrNoSubscribers = errors.New("no notification subscribers connected")

// MessageKind tells the bot what to do with a Message.
type MessageKind string

const (
	KindDirect MessageKind = "dm"
	KindPost   MessageKind = "post"
)

// Message is one item of the notification feed.
type Message struct {
	Kind    MessageKind     `json:"kind"`
	UserID  string          `json:"user_id,omitempty"`
	Channel string          `json:"channel,omitempty"`
	Content string          `json:"content"`
	Actions []models.Action `json:"actions,omitempty"`
}

// Subscriber is one connected feed consumer.
type Subscriber struct {
	ID      uuid.UUID
	OutChan chan Message
}

// Hub fans engine notifications out to every connected subscriber.
// Sends never block: a subscriber whose buffer is full misses the message.
type Hub struct {
	mu     sync.Mutex
	subs   map[uuid.UUID]*Subscriber
	buffer int
	log    *logrus.Logger
}

// NewHub creates a hub whose subscribers buffer up to buffer messages.
func NewHub(buffer int, logger *logrus.Logger) *Hub {
	if buffer <= 0 {
		buffer = 64
	}
	return &Hub{
		subs:   make(map[uuid.UUID]*Subscriber),
		buffer: buffer,
		log:    logger,
	}
}

// Subscribe registers a new subscriber. Call Unsubscribe when done.
func (h *Hub) Subscribe() *Subscriber {
	s := &Subscriber{ID: uuid.New(), OutChan: make(chan Message, h.buffer)}
	h.mu.Lock()
	h.subs[s.ID] = s
	h.mu.Unlock()
	h.log.WithField("subscriber", s.ID).Info("notification subscriber connected")
	return s
}

// Unsubscribe removes s and closes its channel.
func (h *Hub) Unsubscribe(s *Subscriber) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.subs[s.ID]; !ok {
		return
	}
	delete(h.subs, s.ID)
	close(s.OutChan)
	h.log.WithField("subscriber", s.ID).Info("notification subscriber disconnected")
}

// Subscribers returns the number of connected subscribers.
func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.subs)
}

func (h *Hub) broadcast(msg Message) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	if len(h.subs) == 0 {
		return ErrNoSubscribers
	}
	for id, s := range h.subs {
		select {
		case s.OutChan <- msg:
		default:
			h.log.WithFields(logrus.Fields{"subscriber": id, "kind": msg.Kind}).Warn("subscriber buffer full, dropping message")
		}
	}
	return nil
}

// NotifyUser queues a direct message to userID.
func (h *Hub) NotifyUser(ctx context.Context, userID, text string) error {
	return h.broadcast(Message{Kind: KindDirect, UserID: userID, Content: text})
}

// PostToChannel queues a channel post.
func (h *Hub) PostToChannel(ctx context.Context, channel, content string, actions []models.Action) error {
	return h.broadcast(Message{Kind: KindPost, Channel: channel, Content: content, Actions: actions})
}
