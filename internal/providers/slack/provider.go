package slack

import (
	"context"

	"go.uber.org/zap"
)

// Provider mirrors in-app notifications to a Slack channel.
type Provider interface {
	PostMessage(ctx context.Context, channelID string, text string) error
}

// Discard is used when no bot token or channel is configured.
type Discard struct {
	log *zap.Logger
}

func NewDiscard(log *zap.Logger) *Discard {
	if log == nil {
		log = zap.NewNop()
	}
	return &Discard{log: log}
}

func (d *Discard) PostMessage(_ context.Context, channelID string, text string) error {
	d.log.Debug("slack disabled; message dropped",
		zap.String("channel", channelID),
		zap.Int("length", len(text)),
	)
	return nil
}
