package store

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"queuecast/internal/constants"
	"queuecast/internal/models"

	"github.com/sirupsen/logrus"
)

const (
	queueFileName  = "message_queue.json"
	configFileName = "scheduler_config.json"
)

// Store persists the queue and scheduler configuration as whole-document
// JSON snapshots. Writes go through a temp file and rename so a crash
// mid-write never leaves a truncated document behind.
type Store struct {
	dataDir   string
	encryptor *encryptor
	logger    *logrus.Logger
}

func New(dataDir string, logger *logrus.Logger) (*Store, error) {
	if dataDir == "" {
		return nil, fmt.Errorf("data directory cannot be empty")
	}
	if err := os.MkdirAll(dataDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}

	enc, err := newEncryptor()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize encryptor: %w", err)
	}

	return &Store{
		dataDir:   dataDir,
		encryptor: enc,
		logger:    logger,
	}, nil
}

// LoadQueue reads the queue document. A missing document yields an empty
// queue; an unreadable or corrupt one is logged and also yields an empty
// queue, trading silent data loss for availability on startup.
func (s *Store) LoadQueue() *models.QueueDocument {
	doc := &models.QueueDocument{NextID: 1}

	data, ok := s.readDocument(queueFileName)
	if !ok {
		return doc
	}
	if err := json.Unmarshal(data, doc); err != nil {
		s.logger.WithError(err).WithField("document", queueFileName).
			Warn("Corrupt queue document, starting with an empty queue")
		return &models.QueueDocument{NextID: 1}
	}
	if doc.NextID < 1 {
		doc.NextID = 1
	}
	return doc
}

// LoadConfig reads the config document, falling back to defaults when it is
// missing or corrupt.
func (s *Store) LoadConfig() *models.SchedulerConfig {
	cfg := &models.SchedulerConfig{IntervalMinutes: constants.DefaultIntervalMinutes}

	data, ok := s.readDocument(configFileName)
	if !ok {
		return cfg
	}
	if err := json.Unmarshal(data, cfg); err != nil {
		s.logger.WithError(err).WithField("document", configFileName).
			Warn("Corrupt config document, starting with defaults")
		return &models.SchedulerConfig{IntervalMinutes: constants.DefaultIntervalMinutes}
	}
	if cfg.IntervalMinutes < 1 {
		cfg.IntervalMinutes = constants.DefaultIntervalMinutes
	}
	return cfg
}

// SaveQueue writes the queue document snapshot.
func (s *Store) SaveQueue(doc *models.QueueDocument) error {
	return s.writeDocument(queueFileName, doc)
}

// SaveConfig writes the config document snapshot.
func (s *Store) SaveConfig(cfg *models.SchedulerConfig) error {
	return s.writeDocument(configFileName, cfg)
}

func (s *Store) readDocument(name string) ([]byte, bool) {
	path := filepath.Join(s.dataDir, name)
	data, err := os.ReadFile(path) // #nosec G304 - path is store-owned, not caller input
	if err != nil {
		if !os.IsNotExist(err) {
			s.logger.WithError(err).WithField("document", name).Warn("Failed to read persisted document")
		}
		return nil, false
	}
	if len(data) == 0 {
		return nil, false
	}

	plaintext, err := s.encryptor.decryptIfEnabled(data)
	if err != nil {
		s.logger.WithError(err).WithField("document", name).Warn("Failed to decrypt persisted document")
		return nil, false
	}
	return plaintext, true
}

func (s *Store) writeDocument(name string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal %s: %w", name, err)
	}

	payload, err := s.encryptor.encryptIfEnabled(data)
	if err != nil {
		return fmt.Errorf("failed to encrypt %s: %w", name, err)
	}

	tmp, err := os.CreateTemp(s.dataDir, name+".tmp")
	if err != nil {
		return fmt.Errorf("failed to create temp file for %s: %w", name, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(payload); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("failed to write %s: %w", name, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to close temp file for %s: %w", name, err)
	}

	if err := os.Rename(tmpName, filepath.Join(s.dataDir, name)); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("failed to replace %s: %w", name, err)
	}
	return nil
}
