package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"queuecast/internal/constants"

	"github.com/sirupsen/logrus"
)

// PublishLoop drives the scheduler with a fixed short tick. The tick cadence
// is independent of the posting interval: the interval only gates whether a
// given tick actually publishes, and a failed publish is retried on the next
// tick with no extra backoff.
type PublishLoop struct {
	scheduler *Scheduler
	interval  time.Duration
	logger    *logrus.Logger

	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	running bool
	mu      sync.Mutex
}

func NewPublishLoop(scheduler *Scheduler, interval time.Duration, logger *logrus.Logger) *PublishLoop {
	if interval <= 0 {
		interval = time.Duration(constants.DefaultTickIntervalSec) * time.Second
	}
	return &PublishLoop{
		scheduler: scheduler,
		interval:  interval,
		logger:    logger,
	}
}

// Start begins the background tick loop.
func (pl *PublishLoop) Start(ctx context.Context) error {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if pl.running {
		return fmt.Errorf("publish loop is already running")
	}

	pl.ctx, pl.cancel = context.WithCancel(ctx)
	pl.running = true

	pl.wg.Add(1)
	go pl.loop()

	pl.logger.WithField("interval", pl.interval).Info("Publish loop started")
	return nil
}

// Stop gracefully stops the tick loop.
func (pl *PublishLoop) Stop() {
	pl.mu.Lock()
	defer pl.mu.Unlock()

	if !pl.running {
		return
	}

	pl.cancel()
	pl.wg.Wait()
	pl.running = false
	pl.logger.Info("Publish loop stopped")
}

// IsRunning returns whether the loop is currently active.
func (pl *PublishLoop) IsRunning() bool {
	pl.mu.Lock()
	defer pl.mu.Unlock()
	return pl.running
}

func (pl *PublishLoop) loop() {
	defer pl.wg.Done()

	ticker := time.NewTicker(pl.interval)
	defer ticker.Stop()

	for {
		select {
		case <-pl.ctx.Done():
			return
		case <-ticker.C:
			pl.tick()
		}
	}
}

func (pl *PublishLoop) tick() {
	ctx, cancel := context.WithTimeout(pl.ctx, time.Duration(constants.DefaultPublishTimeoutSec)*time.Second)
	defer cancel()

	pl.scheduler.Tick(ctx, time.Now().UTC())
}
