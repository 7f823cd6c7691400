// internal/notify/log.go
package notify

import (
	"context"
	"errors"

	"github.com/jason-s-yu/assassin/internal/models"
	"github.com/sirupsen/logrus"
)

// LogNotifier writes every message to the log. Useful without a bot attached.
type LogNotifier struct {
	Log *logrus.Logger
}

func (n LogNotifier) NotifyUser(ctx context.Context, userID, text string) error {
	n.Log.WithFields(logrus.Fields{"user": userID}).Info(text)
	return nil
}

func (n LogNotifier) PostToChannel(ctx context.Context, channel, content string, actions []models.Action) error {
	n.Log.WithFields(logrus.Fields{"channel": channel, "actions": len(actions)}).Info(content)
	return nil
}

// Notifier is the delivery interface shared by every notifier in this package.
type Notifier interface {
	NotifyUser(ctx context.Context, userID, text string) error
	PostToChannel(ctx context.Context, channel, content string, actions []models.Action) error
}

// Multi sends each message to all of its notifiers and joins their errors.
type Multi []Notifier

func (m Multi) NotifyUser(ctx context.Context, userID, text string) error {
	var errs []error
	for _, n := range m {
		if err := n.NotifyUser(ctx, userID, text); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (m Multi) PostToChannel(ctx context.Context, channel, content string, actions []models.Action) error {
	var errs []error
	for _, n := range m {
		if err := n.PostToChannel(ctx, channel, content, actions); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
