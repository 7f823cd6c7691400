package notify

import (
	"context"
	"errors"
	"io"
	"testing"

	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func TestHubBroadcastsToSubscribers(t *testing.T) {
	h := NewHub(4, quietLogger())
	ctx := context.Background()

	assert.ErrorIs(t, h.NotifyUser(ctx, "u1", "hello"), ErrNoSubscribers)

	a, b := h.Subscribe(), h.Subscribe()
	require.Equal(t, 2, h.Subscribers())

	require.NoError(t, h.PostToChannel(ctx, "status", "game on", []models.Action{{ID: "x", Label: "X"}}))
	for _, s := range []*Subscriber{a, b} {
		msg := <-s.OutChan
		assert.Equal(t, KindPost, msg.Kind)
		assert.Equal(t, "status", msg.Channel)
		assert.Equal(t, "game on", msg.Content)
		assert.Len(t, msg.Actions, 1)
	}

	h.Unsubscribe(a)
	h.Unsubscribe(a)
	_, open := <-a.OutChan
	assert.False(t, open)

	require.NoError(t, h.NotifyUser(ctx, "u1", "hello"))
	msg := <-b.OutChan
	assert.Equal(t, Message{Kind: KindDirect, UserID: "u1", Content: "hello"}, msg)
}

func TestHubDropsWhenBufferFull(t *testing.T) {
	h := NewHub(1, quietLogger())
	ctx := context.Background()
	s := h.Subscribe()

	require.NoError(t, h.NotifyUser(ctx, "u", "first"))
	require.NoError(t, h.NotifyUser(ctx, "u", "second"))

	assert.Equal(t, "first", (<-s.OutChan).Content)
	select {
	case msg := <-s.OutChan:
		t.Fatalf("unexpected message %q", msg.Content)
	default:
	}
}

type failing struct{}

func (failing) NotifyUser(context.Context, string, string) error { return errors.New("down") }
func (failing) PostToChannel(context.Context, string, string, []models.Action) error {
	return errors.New("down")
}

func TestMultiJoinsErrors(t *testing.T) {
	h := NewHub(1, quietLogger())
	s := h.Subscribe()
	m := Multi{failing{}, h, LogNotifier{Log: quietLogger()}}

	err := m.NotifyUser(context.Background(), "u", "hi")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "down")
	assert.Equal(t, "hi", (<-s.OutChan).Content, "later notifiers still run")

	assert.NoError(t, Multi{LogNotifier{Log: quietLogger()}}.PostToChannel(context.Background(), "c", "x", nil))
}
