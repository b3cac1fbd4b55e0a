package service

import (
	"context"
	"io"
	"time"

	"queuecast/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/mock"
)

// memStore is an in-memory PersistentStore for scheduler tests.
type memStore struct {
	queueDoc  *models.QueueDocument
	configDoc *models.SchedulerConfig

	saveQueueErr  error
	saveConfigErr error
	queueSaves    int
	configSaves   int
}

func newMemStore() *memStore {
	return &memStore{}
}

func (m *memStore) LoadQueue() *models.QueueDocument {
	if m.queueDoc == nil {
		return &models.QueueDocument{NextID: 1}
	}
	doc := *m.queueDoc
	doc.Queue = append([]models.QueuedMessage(nil), m.queueDoc.Queue...)
	return &doc
}

func (m *memStore) LoadConfig() *models.SchedulerConfig {
	if m.configDoc == nil {
		return &models.SchedulerConfig{IntervalMinutes: 120}
	}
	cfg := *m.configDoc
	return &cfg
}

func (m *memStore) SaveQueue(doc *models.QueueDocument) error {
	m.queueSaves++
	if m.saveQueueErr != nil {
		return m.saveQueueErr
	}
	saved := *doc
	saved.Queue = append([]models.QueuedMessage(nil), doc.Queue...)
	m.queueDoc = &saved
	return nil
}

func (m *memStore) SaveConfig(cfg *models.SchedulerConfig) error {
	m.configSaves++
	if m.saveConfigErr != nil {
		return m.saveConfigErr
	}
	saved := *cfg
	m.configDoc = &saved
	return nil
}

// stubMedia materializes every ref unless dropAll is set, mimicking the cache
// either having or having lost the files.
type stubMedia struct {
	dropAll bool
}

func (s *stubMedia) Materialize(refs []models.AttachmentRef) []models.LocalFile {
	if s.dropAll {
		return nil
	}
	files := make([]models.LocalFile, 0, len(refs))
	for _, ref := range refs {
		files = append(files, models.LocalFile{Filename: ref.Filename, Path: ref.LocalPath})
	}
	return files
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Send(ctx context.Context, channelID, content string, files []models.LocalFile) error {
	args := m.Called(ctx, channelID, content, files)
	return args.Error(0)
}

type mockHistory struct {
	mock.Mock
}

func (m *mockHistory) RecordPublish(ctx context.Context, rec *models.PublishRecord) error {
	args := m.Called(ctx, rec)
	return args.Error(0)
}

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

// fixedNow pins the scheduler clock for deterministic interval math.
func fixedNow(s *Scheduler, t time.Time) {
	s.nowFn = func() time.Time { return t }
}
