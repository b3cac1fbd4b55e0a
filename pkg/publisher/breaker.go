package publisher

import (
	"context"

	"queuecast/internal/models"
	"queuecast/pkg/circuitbreaker"
)

// breakerPublisher guards a Publisher with a circuit breaker so a dead
// gateway fails fast instead of eating the publish timeout on every tick.
type breakerPublisher struct {
	inner Publisher
	cb    *circuitbreaker.CircuitBreaker
}

// WithBreaker wraps pub so every Send goes through cb.
func WithBreaker(pub Publisher, cb *circuitbreaker.CircuitBreaker) Publisher {
	return &breakerPublisher{inner: pub, cb: cb}
}

func (b *breakerPublisher) Send(ctx context.Context, channelID, content string, files []models.LocalFile) error {
	return b.cb.Execute(ctx, func(ctx context.Context) error {
		return b.inner.Send(ctx, channelID, content, files)
	})
}
