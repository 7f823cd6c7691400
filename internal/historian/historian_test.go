package historian

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// fakeQueue hands out queued payloads, then behaves like an empty list.
type fakeQueue struct {
	mu    sync.Mutex
	items []string
}

func (q *fakeQueue) push(t *testing.T, ev models.GameEvent) {
	data, err := json.Marshal(ev)
	require.NoError(t, err)
	q.mu.Lock()
	q.items = append(q.items, string(data))
	q.mu.Unlock()
}

func (q *fakeQueue) BLPop(ctx context.Context, timeout time.Duration, keys ...string) *redis.StringSliceCmd {
	q.mu.Lock()
	defer q.mu.Unlock()
	if len(q.items) == 0 {
		time.Sleep(time.Millisecond)
		return redis.NewStringSliceResult(nil, redis.Nil)
	}
	item := q.items[0]
	q.items = q.items[1:]
	return redis.NewStringSliceResult([]string{keys[0], item}, nil)
}

type recordingSink struct {
	mu      sync.Mutex
	batches [][]models.GameEvent
	fail    bool
}

func (s *recordingSink) InsertEvents(ctx context.Context, events []models.GameEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.fail {
		return errors.New("db down")
	}
	s.batches = append(s.batches, append([]models.GameEvent(nil), events...))
	return nil
}

func (s *recordingSink) total() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, b := range s.batches {
		n += len(b)
	}
	return n
}

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func event(typ models.GameEventType) models.GameEvent {
	return models.GameEvent{ID: uuid.New(), Type: typ, Timestamp: time.Now().UnixMilli()}
}

func TestHandleFlushesFullBatch(t *testing.T) {
	sink := &recordingSink{}
	s := New(&fakeQueue{}, sink, Config{Queue: "q", BatchSize: 2, FlushDelay: time.Hour}, quietLogger())

	s.handle(`{"type":"game_started"}`)
	assert.Equal(t, 1, s.Pending())
	s.handle(`not json`)
	assert.Equal(t, 1, s.Pending())
	s.handle(`{"type":"game_ended"}`)

	assert.Equal(t, 0, s.Pending())
	require.Len(t, sink.batches, 1)
	assert.Equal(t, models.EventGameStarted, sink.batches[0][0].Type)
	assert.Equal(t, models.EventGameEnded, sink.batches[0][1].Type)
}

func TestFailedFlushKeepsBatch(t *testing.T) {
	sink := &recordingSink{fail: true}
	s := New(&fakeQueue{}, sink, Config{Queue: "q", BatchSize: 10}, quietLogger())

	s.handle(`{"type":"game_started"}`)
	s.Flush(context.Background())
	assert.Equal(t, 1, s.Pending())

	sink.fail = false
	s.Flush(context.Background())
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, 1, sink.total())
}

func TestRunDrainsQueueAndFlushesOnTicker(t *testing.T) {
	q := &fakeQueue{}
	for i := 0; i < 3; i++ {
		q.push(t, event(models.EventReportSubmitted))
	}
	sink := &recordingSink{}
	s := New(q, sink, Config{Queue: "q", BatchSize: 100, FlushDelay: 10 * time.Millisecond}, quietLogger())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		s.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool { return sink.total() == 3 }, 2*time.Second, 5*time.Millisecond)

	q.push(t, event(models.EventGameEnded))
	assert.Eventually(t, func() bool { return sink.total() == 4 }, 2*time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
}
