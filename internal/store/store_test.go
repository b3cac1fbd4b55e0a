package store

import (
	"io"
	"os"
	"path/filepath"
	"testing"
	"time"

	"queuecast/internal/constants"
	"queuecast/internal/models"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetOutput(io.Discard)
	return logger
}

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := New(t.TempDir(), testLogger())
	require.NoError(t, err)
	return s
}

func TestNew_RequiresDataDir(t *testing.T) {
	_, err := New("", testLogger())
	assert.Error(t, err)
}

func TestNew_CreatesDataDir(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "nested", "data")
	_, err := New(dir, testLogger())
	require.NoError(t, err)

	info, err := os.Stat(dir)
	require.NoError(t, err)
	assert.True(t, info.IsDir())
}

func TestQueueDocument_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	added := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	doc := &models.QueueDocument{
		Queue: []models.QueuedMessage{
			{
				ID:      7,
				Content: "hello",
				Attachments: []models.AttachmentRef{
					{Filename: "pic.png", LocalPath: "/cache/pic.png", ContentType: "image/png", Size: 512},
				},
				AuthorID: "author-1",
				AddedAt:  added,
				Status:   models.StatusPending,
			},
		},
		NextID: 8,
	}
	require.NoError(t, s.SaveQueue(doc))

	loaded := s.LoadQueue()
	require.Len(t, loaded.Queue, 1)
	assert.Equal(t, int64(7), loaded.Queue[0].ID)
	assert.Equal(t, "hello", loaded.Queue[0].Content)
	assert.Equal(t, "pic.png", loaded.Queue[0].Attachments[0].Filename)
	assert.True(t, loaded.Queue[0].AddedAt.Equal(added))
	assert.Equal(t, int64(8), loaded.NextID)
}

func TestConfigDocument_RoundTrip(t *testing.T) {
	s := newTestStore(t)

	last := time.Date(2026, 3, 1, 9, 30, 0, 0, time.UTC)
	require.NoError(t, s.SaveConfig(&models.SchedulerConfig{
		ChannelID:       "channel-1",
		IntervalMinutes: 45,
		LastPostTime:    &last,
		IsPaused:        true,
	}))

	cfg := s.LoadConfig()
	assert.Equal(t, "channel-1", cfg.ChannelID)
	assert.Equal(t, 45, cfg.IntervalMinutes)
	require.NotNil(t, cfg.LastPostTime)
	assert.True(t, cfg.LastPostTime.Equal(last))
	assert.True(t, cfg.IsPaused)
}

func TestLoadQueue_MissingFile(t *testing.T) {
	s := newTestStore(t)

	doc := s.LoadQueue()
	assert.Empty(t, doc.Queue)
	assert.Equal(t, int64(1), doc.NextID)
}

func TestLoadQueue_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, queueFileName), []byte("{not json"), 0600))

	doc := s.LoadQueue()
	assert.Empty(t, doc.Queue)
	assert.Equal(t, int64(1), doc.NextID)
}

func TestLoadQueue_NormalizesNextID(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, queueFileName),
		[]byte(`{"queue": [], "next_id": 0}`), 0600))

	assert.Equal(t, int64(1), s.LoadQueue().NextID)
}

func TestLoadConfig_MissingFile(t *testing.T) {
	s := newTestStore(t)

	cfg := s.LoadConfig()
	assert.Equal(t, constants.DefaultIntervalMinutes, cfg.IntervalMinutes)
	assert.Nil(t, cfg.LastPostTime)
	assert.False(t, cfg.IsPaused)
}

func TestLoadConfig_CorruptFile(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(filepath.Join(dir, configFileName), []byte("garbage"), 0600))

	cfg := s.LoadConfig()
	assert.Equal(t, constants.DefaultIntervalMinutes, cfg.IntervalMinutes)
}

func TestSaveQueue_ReplacesAtomically(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.SaveQueue(&models.QueueDocument{NextID: 1}))
	require.NoError(t, s.SaveQueue(&models.QueueDocument{
		Queue:  []models.QueuedMessage{{ID: 1, Content: "second write"}},
		NextID: 2,
	}))

	// No temp files may survive a completed write.
	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, queueFileName, entries[0].Name())

	loaded := s.LoadQueue()
	require.Len(t, loaded.Queue, 1)
	assert.Equal(t, "second write", loaded.Queue[0].Content)
}

func TestStableFieldNames(t *testing.T) {
	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)

	now := time.Now().UTC()
	require.NoError(t, s.SaveQueue(&models.QueueDocument{
		Queue:  []models.QueuedMessage{{ID: 1, AddedAt: now}},
		NextID: 2,
	}))
	require.NoError(t, s.SaveConfig(&models.SchedulerConfig{
		ChannelID: "c", IntervalMinutes: 5, LastPostTime: &now,
	}))

	queueRaw, err := os.ReadFile(filepath.Join(dir, queueFileName))
	require.NoError(t, err)
	assert.Contains(t, string(queueRaw), `"next_id"`)
	assert.Contains(t, string(queueRaw), `"added_time"`)

	cfgRaw, err := os.ReadFile(filepath.Join(dir, configFileName))
	require.NoError(t, err)
	assert.Contains(t, string(cfgRaw), `"channel_id"`)
	assert.Contains(t, string(cfgRaw), `"interval_minutes"`)
	assert.Contains(t, string(cfgRaw), `"last_post_time"`)
	assert.Contains(t, string(cfgRaw), `"is_paused"`)
}

func TestEncryption_RoundTrip(t *testing.T) {
	t.Setenv(envEnableEncryption, "true")
	t.Setenv(envEncryptionSecret, "this-is-a-test-secret-of-32-chars!")

	dir := t.TempDir()
	s, err := New(dir, testLogger())
	require.NoError(t, err)

	require.NoError(t, s.SaveQueue(&models.QueueDocument{
		Queue:  []models.QueuedMessage{{ID: 1, Content: "secret payload"}},
		NextID: 2,
	}))

	raw, err := os.ReadFile(filepath.Join(dir, queueFileName))
	require.NoError(t, err)
	assert.NotContains(t, string(raw), "secret payload")

	loaded := s.LoadQueue()
	require.Len(t, loaded.Queue, 1)
	assert.Equal(t, "secret payload", loaded.Queue[0].Content)
}

func TestEncryption_RequiresSecret(t *testing.T) {
	t.Setenv(envEnableEncryption, "true")
	t.Setenv(envEncryptionSecret, "")

	_, err := New(t.TempDir(), testLogger())
	assert.Error(t, err)
}

func TestEncryption_RejectsShortSecret(t *testing.T) {
	t.Setenv(envEnableEncryption, "true")
	t.Setenv(envEncryptionSecret, "too short")

	_, err := New(t.TempDir(), testLogger())
	assert.Error(t, err)
}

func TestEncryption_WrongKeyFallsBackToDefaults(t *testing.T) {
	dir := t.TempDir()

	t.Setenv(envEnableEncryption, "true")
	t.Setenv(envEncryptionSecret, "this-is-a-test-secret-of-32-chars!")
	s1, err := New(dir, testLogger())
	require.NoError(t, err)
	require.NoError(t, s1.SaveQueue(&models.QueueDocument{
		Queue:  []models.QueuedMessage{{ID: 1, Content: "locked away"}},
		NextID: 2,
	}))

	t.Setenv(envEncryptionSecret, "a-completely-different-32-char-key!!")
	s2, err := New(dir, testLogger())
	require.NoError(t, err)

	doc := s2.LoadQueue()
	assert.Empty(t, doc.Queue)
	assert.Equal(t, int64(1), doc.NextID)
}
