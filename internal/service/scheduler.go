package service

import (
	"context"
	"fmt"
	"sync"
	"time"

	"queuecast/internal/constants"
	"queuecast/internal/errors"
	"queuecast/internal/metrics"
	"queuecast/internal/models"
	"queuecast/internal/tracing"
	"queuecast/pkg/publisher"

	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel/attribute"
)

// PersistentStore loads and saves the queue and config documents. Loads
// never fail (missing or corrupt documents fall back to defaults); saves
// report errors so callers can log them.
type PersistentStore interface {
	LoadQueue() *models.QueueDocument
	LoadConfig() *models.SchedulerConfig
	SaveQueue(*models.QueueDocument) error
	SaveConfig(*models.SchedulerConfig) error
}

// AttachmentResolver resolves attachment refs to openable local files.
type AttachmentResolver interface {
	Materialize(refs []models.AttachmentRef) []models.LocalFile
}

// PublishRecorder appends to the publish audit log.
type PublishRecorder interface {
	RecordPublish(ctx context.Context, rec *models.PublishRecord) error
}

// Scheduler owns the message queue and scheduler configuration. Every
// operation that touches either runs under one mutex: the tick dequeuing the
// head can never interleave with a concurrent delete, clear, or import.
type Scheduler struct {
	mu            sync.Mutex
	queue         []models.QueuedMessage
	config        models.SchedulerConfig
	nextMessageID int64

	store   PersistentStore
	media   AttachmentResolver
	pub     publisher.Publisher
	history PublishRecorder

	logger *logrus.Logger
	nowFn  func() time.Time
}

// NewScheduler restores persisted state and returns a ready scheduler.
// history may be nil when auditing is disabled.
func NewScheduler(store PersistentStore, media AttachmentResolver, pub publisher.Publisher, history PublishRecorder, logger *logrus.Logger) *Scheduler {
	doc := store.LoadQueue()
	cfg := store.LoadConfig()

	// The id counter must stay ahead of every persisted id, even if the
	// counter and the queue somehow desynchronized on disk.
	next := doc.NextID
	for _, msg := range doc.Queue {
		if msg.ID >= next {
			next = msg.ID + 1
		}
	}

	s := &Scheduler{
		queue:         doc.Queue,
		config:        *cfg,
		nextMessageID: next,
		store:         store,
		media:         media,
		pub:           pub,
		history:       history,
		logger:        logger,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}

	logger.WithFields(logrus.Fields{
		"queued":  len(s.queue),
		"next_id": s.nextMessageID,
		"paused":  s.config.IsPaused,
	}).Info("Scheduler state restored")

	return s
}

// AddMessage appends a message to the tail of the queue and returns its id.
// Enqueueing into an empty queue arms the interval from now so the first
// post is not published instantly.
func (s *Scheduler) AddMessage(content string, attachments []models.AttachmentRef, authorID string) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.nowFn()
	if len(s.queue) == 0 {
		s.config.LastPostTime = &now
	}

	id := s.nextMessageID
	s.nextMessageID++

	s.queue = append(s.queue, models.QueuedMessage{
		ID:          id,
		Content:     content,
		Attachments: attachments,
		AuthorID:    authorID,
		AddedAt:     now,
		Status:      models.StatusPending,
	})
	s.persistLocked()

	metrics.IncrementCounter("queue_messages_enqueued_total", "Messages added to the queue")
	metrics.SetGauge("queue_size", float64(len(s.queue)), "Current number of pending messages")

	s.logger.WithField("message_id", id).Info("Added message to queue")
	return id
}

// NextMessage returns a copy of the head of the queue, or nil when empty.
func (s *Scheduler) NextMessage() *models.QueuedMessage {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.queue) == 0 {
		return nil
	}
	msg := s.queue[0]
	return &msg
}

// RemoveMessage deletes a message by id. Returns false when the id is not in
// the queue; an unknown id is a normal outcome, not an error.
func (s *Scheduler) RemoveMessage(id int64) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, msg := range s.queue {
		if msg.ID == id {
			s.queue = append(s.queue[:i], s.queue[i+1:]...)
			s.persistLocked()
			metrics.SetGauge("queue_size", float64(len(s.queue)), "Current number of pending messages")
			s.logger.WithField("message_id", id).Info("Removed message from queue")
			return true
		}
	}
	return false
}

// ClearQueue removes every pending message. Irreversible; any confirmation
// step belongs to the caller.
func (s *Scheduler) ClearQueue() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.queue = nil
	s.persistLocked()
	metrics.SetGauge("queue_size", 0, "Current number of pending messages")
	s.logger.Info("Queue cleared")
}

// Pause stops publications. An in-flight publish attempt is not cancelled;
// only the next tick is prevented from starting one.
func (s *Scheduler) Pause() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.IsPaused = true
	s.persistConfigLocked()
	s.logger.Info("Publishing paused")
}

// Resume re-enables publications.
func (s *Scheduler) Resume() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.IsPaused = false
	s.persistConfigLocked()
	s.logger.Info("Publishing resumed")
}

// SetChannel sets the destination channel for publications.
func (s *Scheduler) SetChannel(channelID string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.ChannelID = channelID
	s.persistConfigLocked()
	s.logger.WithField("channel_id", channelID).Info("Publishing channel set")
}

// SetInterval sets the publication interval in minutes.
func (s *Scheduler) SetInterval(minutes int) error {
	if minutes < 1 {
		return errors.NewValidationError("interval", "must be at least 1 minute")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.config.IntervalMinutes = minutes
	s.persistConfigLocked()
	s.logger.WithField("interval_minutes", minutes).Info("Publishing interval updated")
	return nil
}

// ShouldPostNow reports whether a publication is due at now.
func (s *Scheduler) ShouldPostNow(now time.Time) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dueLocked(now)
}

// NextPostTime computes the advisory time of the next publication: nil when
// paused or empty, now when nothing was ever published, otherwise the
// watermark plus the interval.
func (s *Scheduler) NextPostTime(now time.Time) *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextPostTimeLocked(now)
}

// QueueInfo returns a read-only snapshot of the queue and configuration,
// with at most limit head messages.
func (s *Scheduler) QueueInfo(limit int) models.QueueInfo {
	s.mu.Lock()
	defer s.mu.Unlock()

	if limit <= 0 {
		limit = constants.DefaultQueuePreviewLimit
	}
	if limit > len(s.queue) {
		limit = len(s.queue)
	}

	head := make([]models.QueuedMessage, limit)
	copy(head, s.queue[:limit])

	return models.QueueInfo{
		TotalMessages:   len(s.queue),
		NextMessages:    head,
		NextPostTime:    s.nextPostTimeLocked(s.nowFn()),
		IsPaused:        s.config.IsPaused,
		ChannelID:       s.config.ChannelID,
		IntervalMinutes: s.config.IntervalMinutes,
	}
}

// Export bundles the current queue and configuration into a self-describing
// backup document.
func (s *Scheduler) Export() models.ExportDocument {
	s.mu.Lock()
	defer s.mu.Unlock()

	queue := make([]models.QueuedMessage, len(s.queue))
	copy(queue, s.queue)

	return models.ExportDocument{
		Queue:      queue,
		Config:     s.config,
		ExportTime: s.nowFn(),
	}
}

// Import merges the document's messages into the live queue. Every imported
// message gets a fresh id from the current counter; ids from the source
// document are discarded. The document's config is ignored.
func (s *Scheduler) Import(doc models.ExportDocument) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, msg := range doc.Queue {
		msg.ID = s.nextMessageID
		s.nextMessageID++
		msg.Status = models.StatusPending
		s.queue = append(s.queue, msg)
	}
	s.persistLocked()

	count := len(doc.Queue)
	metrics.AddToCounter("queue_messages_imported_total", float64(count), "Messages merged from import documents")
	metrics.SetGauge("queue_size", float64(len(s.queue)), "Current number of pending messages")
	s.logger.WithField("count", count).Info("Queue imported")
	return count
}

// Tick publishes the head of the queue if a publication is due. On success
// the message is removed and the watermark advances; on failure both stay
// untouched and the next tick retries. The whole decide-publish-remove
// sequence holds the queue lock so no mutator can interleave.
func (s *Scheduler) Tick(ctx context.Context, now time.Time) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.dueLocked(now) {
		return
	}
	if s.config.ChannelID == "" {
		s.logger.Warn("No channel set for publishing")
		return
	}

	msg := s.queue[0]
	files := s.media.Materialize(msg.Attachments)
	if msg.Content == "" && len(files) == 0 {
		s.logger.WithField("message_id", msg.ID).
			Error("Message has no content and no remaining attachments; delete it to unblock the queue")
		return
	}

	ctx, span := tracing.StartSpan(ctx, "scheduler.publish",
		attribute.Int64("message.id", msg.ID),
		attribute.String("channel.id", s.config.ChannelID),
	)
	defer span.End()

	start := time.Now()
	err := s.pub.Send(ctx, s.config.ChannelID, msg.Content, files)
	metrics.RecordTimer("publish_duration", time.Since(start))

	if err != nil {
		tracing.RecordError(ctx, err)
		metrics.IncrementCounter("queue_publish_failures_total", "Failed publish attempts")
		s.logger.WithError(err).WithFields(logrus.Fields{
			"message_id": msg.ID,
			"channel_id": s.config.ChannelID,
		}).Error("Failed to publish message, will retry on next tick")
		return
	}

	s.queue = s.queue[1:]
	s.config.LastPostTime = &now
	s.persistLocked()

	metrics.IncrementCounter("queue_messages_published_total", "Successfully published messages")
	metrics.SetGauge("queue_size", float64(len(s.queue)), "Current number of pending messages")

	if s.history != nil {
		if err := s.history.RecordPublish(ctx, &models.PublishRecord{
			MessageID:       msg.ID,
			ChannelID:       s.config.ChannelID,
			ContentPreview:  preview(msg.Content),
			AttachmentCount: len(msg.Attachments),
			PostedAt:        now,
		}); err != nil {
			s.logger.WithError(err).Warn("Failed to record publish history")
		}
	}

	s.logger.WithFields(logrus.Fields{
		"message_id": msg.ID,
		"channel_id": s.config.ChannelID,
		"files":      len(files),
	}).Info("Published message")
}

func (s *Scheduler) dueLocked(now time.Time) bool {
	if s.config.IsPaused || len(s.queue) == 0 {
		return false
	}
	if s.config.LastPostTime == nil {
		// Never posted: first publish fires on the first armed tick
		return true
	}
	interval := time.Duration(s.config.IntervalMinutes) * time.Minute
	return now.Sub(*s.config.LastPostTime) >= interval
}

func (s *Scheduler) nextPostTimeLocked(now time.Time) *time.Time {
	if s.config.IsPaused || len(s.queue) == 0 {
		return nil
	}
	if s.config.LastPostTime == nil {
		return &now
	}
	next := s.config.LastPostTime.Add(time.Duration(s.config.IntervalMinutes) * time.Minute)
	return &next
}

// persistLocked snapshots both documents. Failures are logged, not
// propagated: the next mutating operation will try again.
func (s *Scheduler) persistLocked() {
	if err := s.store.SaveQueue(&models.QueueDocument{Queue: s.queue, NextID: s.nextMessageID}); err != nil {
		s.logger.WithError(err).Error("Failed to persist queue document")
	}
	s.persistConfigLocked()
}

func (s *Scheduler) persistConfigLocked() {
	if err := s.store.SaveConfig(&s.config); err != nil {
		s.logger.WithError(err).Error("Failed to persist config document")
	}
}

func preview(content string) string {
	if len(content) <= constants.ContentPreviewLength {
		return content
	}
	return fmt.Sprintf("%s...", content[:constants.ContentPreviewLength])
}
