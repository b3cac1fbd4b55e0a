package publisher

import (
	"context"

	"queuecast/internal/models"
)

// Publisher delivers a queued message to a destination channel. Errors are
// operator-diagnosable but the scheduler treats every failure the same way:
// leave the message at the head and retry on the next tick.
type Publisher interface {
	Send(ctx context.Context, channelID, content string, files []models.LocalFile) error
}
