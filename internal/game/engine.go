// internal/game/engine.go
package game

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/database"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
)

// Notifier delivers messages to players and channels. Delivery is best effort.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, text string) error
	PostToChannel(ctx context.Context, channel, content string, actions []models.Action) error
}

// Publisher ships audit events off to the historian.
type Publisher interface {
	Publish(ctx context.Context, ev models.GameEvent) error
}

// Actor is the identity invoking an operation. Manager is decided by the
// command layer and trusted as given.
type Actor struct {
	UserID  string
	Manager bool
}

// RevivePolicy decides what reviving a player does to an inactive team.
type RevivePolicy string

const (
	ReviveKeepInactive RevivePolicy = "keep_inactive"
	ReviveReactivate   RevivePolicy = "reactivate"
)

// Channels names the channel ids the engine posts to.
type Channels struct {
	Status         string
	Assassinations string
	Disputes       string
	Managers       string
	Announcements  string
}

// Config holds the game rules of one engine.
type Config struct {
	RegistrationApproval bool
	RegistrationTimeout  time.Duration
	JoinRequestTimeout   time.Duration
	// MaxTeamSize of 0 means unlimited.
	MaxTeamSize  int
	MinTeams     int
	Adjudication models.AdjudicationMode
	VotingWindow time.Duration
	// ReportTimeout expires manager-adjudicated reports. 0 disables it.
	ReportTimeout time.Duration
	GameEndDate   *time.Time
	RevivePolicy  RevivePolicy
	Channels      Channels
}

// DefaultConfig returns the rules used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		RegistrationTimeout: 24 * time.Hour,
		JoinRequestTimeout:  24 * time.Hour,
		MinTeams:            2,
		Adjudication:        models.AdjudicateVote,
		VotingWindow:        10 * time.Minute,
		RevivePolicy:        ReviveKeepInactive,
	}
}

// Engine runs one game instance. Every mutating operation holds mu and does
// its work in a single store transaction; messages and events queued during
// the transaction go out only after it commits.
type Engine struct {
	store     database.Store
	notifier  Notifier
	publisher Publisher
	cfg       Config
	log       *logrus.Logger

	// Now is the engine clock.
	Now func() time.Time

	mu       sync.Mutex
	rng      *rand.Rand
	resolved map[uuid.UUID]struct{}
	timers   *scheduler
}

// Option configures an Engine.
type Option func(*Engine)

func WithNotifier(n Notifier) Option   { return func(e *Engine) { e.notifier = n } }
func WithPublisher(p Publisher) Option { return func(e *Engine) { e.publisher = p } }
func WithLogger(l *logrus.Logger) Option {
	return func(e *Engine) { e.log = l }
}

// WithRand fixes the shuffle source, for reproducible assignments.
func WithRand(r *rand.Rand) Option { return func(e *Engine) { e.rng = r } }

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option { return func(e *Engine) { e.Now = now } }

// NewEngine builds an engine over store.
func NewEngine(store database.Store, cfg Config, opts ...Option) *Engine {
	if cfg.MinTeams < 2 {
		cfg.MinTeams = 2
	}
	if cfg.Adjudication == "" {
		cfg.Adjudication = models.AdjudicateVote
	}
	if cfg.RevivePolicy == "" {
		cfg.RevivePolicy = ReviveKeepInactive
	}
	e := &Engine{
		store:    store,
		cfg:      cfg,
		log:      logrus.StandardLogger(),
		Now:      time.Now,
		rng:      rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0x9e3779b97f4a7c15)),
		resolved: make(map[uuid.UUID]struct{}),
		timers:   newScheduler(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Config returns the rules the engine runs with.
func (e *Engine) Config() Config { return e.cfg }

// outbox collects side effects of one operation until its transaction commits.
type outbox struct {
	dms    []directMessage
	posts  []channelPost
	events []models.GameEvent
	// after runs under the engine lock once the transaction has committed.
	after []func()
}

type directMessage struct {
	userID string
	text   string
}

type channelPost struct {
	channel string
	content string
	actions []models.Action
}

func (o *outbox) notify(userID, format string, args ...interface{}) {
	o.dms = append(o.dms, directMessage{userID: userID, text: fmt.Sprintf(format, args...)})
}

func (o *outbox) post(channel, content string, actions ...models.Action) {
	o.posts = append(o.posts, channelPost{channel: channel, content: content, actions: actions})
}

func (o *outbox) onCommit(fn func()) {
	o.after = append(o.after, fn)
}

func (e *Engine) event(o *outbox, typ models.GameEventType, actorID string, payload map[string]interface{}) {
	o.events = append(o.events, models.GameEvent{
		ID:        uuid.New(),
		Type:      typ,
		ActorID:   actorID,
		Payload:   payload,
		Timestamp: e.Now().UnixMilli(),
	})
}

// mutate runs fn inside the critical section and one store transaction.
func (e *Engine) mutate(ctx context.Context, op string, fn func(q database.Queries, out *outbox) error) error {
	out := &outbox{}

	e.mu.Lock()
	err := e.store.Tx(ctx, func(q database.Queries) error {
		return fn(q, out)
	})
	if err == nil {
		for _, f := range out.after {
			f()
		}
	}
	e.mu.Unlock()

	if err != nil {
		e.logFailure(op, err)
		return err
	}
	e.flush(ctx, out)
	return nil
}

func (e *Engine) logFailure(op string, err error) {
	entry := e.log.WithFields(logrus.Fields{"op": op, "error": err})
	var ge *Error
	switch {
	case errors.As(err, &ge) && ge.Kind == KindConsistency:
		entry.WithField("code", ge.Code).Error("consistency check failed, operation rolled back")
	case errors.As(err, &ge):
		entry.WithField("code", ge.Code).Debug("operation rejected")
	case errors.Is(err, context.Canceled):
		entry.Debug("operation cancelled")
	default:
		entry.Error("operation failed")
	}
}

// flush delivers queued messages and events. Failures are logged only.
func (e *Engine) flush(ctx context.Context, out *outbox) {
	if e.notifier != nil {
		for _, m := range out.dms {
			if err := e.notifier.NotifyUser(ctx, m.userID, m.text); err != nil {
				e.log.WithFields(logrus.Fields{"user": m.userID, "error": err}).Warn("failed to notify user")
			}
		}
		for _, p := range out.posts {
			if p.channel == "" {
				continue
			}
			if err := e.notifier.PostToChannel(ctx, p.channel, p.content, p.actions); err != nil {
				e.log.WithFields(logrus.Fields{"channel": p.channel, "error": err}).Warn("failed to post to channel")
			}
		}
	}
	if e.publisher != nil {
		for _, ev := range out.events {
			if err := e.publisher.Publish(ctx, ev); err != nil {
				e.log.WithFields(logrus.Fields{"event": ev.Type, "error": err}).Warn("failed to publish event")
			}
		}
	}
}

func (e *Engine) requireManager(actor Actor) error {
	if !actor.Manager {
		return ErrNotManager
	}
	return nil
}

// markResolved remembers a discarded report id so later decisions on it
// report AlreadyResolved. Must run under mu.
func (e *Engine) markResolved(ids ...uuid.UUID) {
	for _, id := range ids {
		e.resolved[id] = struct{}{}
	}
}

func loadState(ctx context.Context, q database.Queries) (*models.GameState, error) {
	st, err := q.GetGameState(ctx)
	if err != nil {
		return nil, fmt.Errorf("load game state: %w", err)
	}
	return st, nil
}

func requirePhase(st *models.GameState, phases ...models.Phase) error {
	for _, p := range phases {
		if st.Phase == p {
			return nil
		}
	}
	return ErrWrongPhase.withf("operation not allowed while the game is %s", st.Phase)
}

func loadPlayer(ctx context.Context, q database.Queries, id string) (*models.Player, error) {
	p, err := q.GetPlayer(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrNotRegistered.withf("player %s is not registered", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load player %s: %w", id, err)
	}
	return p, nil
}

func loadTeam(ctx context.Context, q database.Queries, id int64) (*models.Team, error) {
	t, err := q.GetTeam(ctx, id)
	if errors.Is(err, database.ErrNotFound) {
		return nil, ErrTeamNotFound.withf("team %d not found", id)
	}
	if err != nil {
		return nil, fmt.Errorf("load team %d: %w", id, err)
	}
	return t, nil
}

func livingCount(members []models.Player) int {
	n := 0
	for _, m := range members {
		if m.Alive {
			n++
		}
	}
	return n
}

func ptr[T any](v T) *T { return &v }
