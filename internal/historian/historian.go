// internal/historian/historian.go pops game events from the Redis queue and
// persists them to PostgreSQL in batches.
package historian

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"time"

	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// Source is the queue the historian drains. *redis.Client satisfies it.
type Source interface {
	BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd
}

// Sink stores a batch of events. *database.PostgresStore satisfies it.
type Sink interface {
	InsertEvents(ctx context.Context, events []models.GameEvent) error
}

// Config tunes batching.
type Config struct {
	Queue      string
	BatchSize  int
	FlushDelay time.Duration
	// PopTimeout bounds each BLPop so cancellation is noticed.
	PopTimeout time.Duration
}

// Service accumulates queued events and writes them out whenever the batch
// fills up or the flush delay passes.
type Service struct {
	src  Source
	sink Sink
	cfg  Config
	log  *logrus.Logger

	batchMu sync.Mutex
	batch   []models.GameEvent
}

// New builds a historian. Zero config fields fall back to defaults.
func New(src Source, sink Sink, cfg Config, logger *logrus.Logger) *Service {
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.FlushDelay <= 0 {
		cfg.FlushDelay = 500 * time.Millisecond
	}
	if cfg.PopTimeout <= 0 {
		cfg.PopTimeout = 3 * time.Second
	}
	return &Service{
		src:   src,
		sink:  sink,
		cfg:   cfg,
		log:   logger,
		batch: make([]models.GameEvent, 0, cfg.BatchSize),
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (s *Service) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.FlushDelay)
	defer ticker.Stop()

	s.log.WithField("queue", s.cfg.Queue).Info("historian started")
	defer func() {
		s.Flush(context.Background())
		s.log.Info("historian shutting down")
	}()

	for {
		select {
		case <-ctx.Done():
			return

		case <-ticker.C:
			s.Flush(ctx)

		default:
			res, err := s.src.BLPop(ctx, s.cfg.PopTimeout, s.cfg.Queue).Result()
			if err != nil {
				if !errors.Is(err, redis.Nil) && ctx.Err() == nil {
					s.log.WithError(err).Error("BLPop failed")
				}
				continue
			}
			if len(res) < 2 {
				continue
			}
			// res[0] is the queue name and res[1] the payload.
			s.handle(res[1])
		}
	}
}

func (s *Service) handle(payload string) {
	var ev models.GameEvent
	if err := json.Unmarshal([]byte(payload), &ev); err != nil {
		s.log.WithError(err).Warn("invalid event record")
		return
	}

	s.batchMu.Lock()
	s.batch = append(s.batch, ev)
	full := len(s.batch) >= s.cfg.BatchSize
	s.batchMu.Unlock()

	if full {
		s.Flush(context.Background())
	}
}

// Flush writes the pending batch. A failed batch is put back and retried on
// the next flush.
func (s *Service) Flush(ctx context.Context) {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	if len(s.batch) == 0 {
		return
	}
	pending := make([]models.GameEvent, len(s.batch))
	copy(pending, s.batch)

	if err := s.sink.InsertEvents(ctx, pending); err != nil {
		s.log.WithFields(logrus.Fields{"events": len(pending), "error": err}).Error("failed to flush events")
		return
	}
	s.batch = s.batch[:0]
	s.log.WithField("events", len(pending)).Debug("flushed events")
}

// Pending returns the number of events waiting for a flush.
func (s *Service) Pending() int {
	s.batchMu.Lock()
	defer s.batchMu.Unlock()
	return len(s.batch)
}
