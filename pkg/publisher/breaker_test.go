package publisher

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"queuecast/internal/models"
	"queuecast/pkg/circuitbreaker"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingPublisher struct {
	calls int
	err   error
}

func (p *countingPublisher) Send(ctx context.Context, channelID, content string, files []models.LocalFile) error {
	p.calls++
	return p.err
}

func TestWithBreaker_PassesThrough(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	inner := &countingPublisher{}
	pub := WithBreaker(inner, circuitbreaker.New("gateway", 3, time.Minute, logger))

	require.NoError(t, pub.Send(context.Background(), "channel-1", "hello", nil))
	assert.Equal(t, 1, inner.calls)
}

func TestWithBreaker_FailsFastWhenOpen(t *testing.T) {
	logger := logrus.New()
	logger.SetOutput(io.Discard)

	inner := &countingPublisher{err: fmt.Errorf("gateway down")}
	pub := WithBreaker(inner, circuitbreaker.New("gateway", 2, time.Minute, logger))

	assert.Error(t, pub.Send(context.Background(), "channel-1", "a", nil))
	assert.Error(t, pub.Send(context.Background(), "channel-1", "b", nil))
	assert.Equal(t, 2, inner.calls)

	// Circuit is open now: the gateway is not contacted again.
	err := pub.Send(context.Background(), "channel-1", "c", nil)
	require.Error(t, err)
	assert.True(t, circuitbreaker.IsOpenError(err))
	assert.Equal(t, 2, inner.calls)
}
