package models

import "time"

// MessageStatus describes the lifecycle state of a queued message. Messages
// only ever carry StatusPending while in the queue; a successful publish
// removes them instead of transitioning them.
type MessageStatus string

const (
	StatusPending MessageStatus = "pending"
)

// RemoteAttachment describes an attachment that still lives on the wire.
// It is what callers hand to the attachment store before enqueueing.
type RemoteAttachment struct {
	URL         string `json:"url"`
	Filename    string `json:"filename"`
	ContentType string `json:"content_type,omitempty"`
	Size        int64  `json:"size"`
}

// AttachmentRef points at attachment bytes already downloaded to local
// storage. The local file is owned by the attachment store; the queue only
// references it.
type AttachmentRef struct {
	Filename     string    `json:"filename"`
	LocalPath    string    `json:"path"`
	ContentType  string    `json:"content_type,omitempty"`
	Size         int64     `json:"size"`
	DownloadedAt time.Time `json:"download_time"`
}

// LocalFile is an attachment resolved to an openable path, ready to hand to
// the publisher.
type LocalFile struct {
	Filename string
	Path     string
}

// QueuedMessage is one pending publication.
type QueuedMessage struct {
	ID          int64           `json:"id"`
	Content     string          `json:"content"`
	Attachments []AttachmentRef `json:"attachments"`
	AuthorID    string          `json:"author_id"`
	AddedAt     time.Time       `json:"added_time"`
	Status      MessageStatus   `json:"status"`
}

// SchedulerConfig is the persisted scheduler state. An empty ChannelID means
// no destination is configured; a nil LastPostTime means nothing has ever
// been published.
type SchedulerConfig struct {
	ChannelID       string     `json:"channel_id"`
	IntervalMinutes int        `json:"interval_minutes"`
	LastPostTime    *time.Time `json:"last_post_time"`
	IsPaused        bool       `json:"is_paused"`
}

// QueueDocument is the persisted queue snapshot.
type QueueDocument struct {
	Queue  []QueuedMessage `json:"queue"`
	NextID int64           `json:"next_id"`
}

// ExportDocument bundles the queue and configuration for backup. Import only
// reads the queue part; the embedded config is informational.
type ExportDocument struct {
	Queue      []QueuedMessage `json:"queue"`
	Config     SchedulerConfig `json:"config"`
	ExportTime time.Time       `json:"export_time"`
}

// QueueInfo is the read-only composite view returned by status operations.
type QueueInfo struct {
	TotalMessages   int             `json:"total_messages"`
	NextMessages    []QueuedMessage `json:"next_messages"`
	NextPostTime    *time.Time      `json:"next_post_time,omitempty"`
	IsPaused        bool            `json:"is_paused"`
	ChannelID       string          `json:"channel_id"`
	IntervalMinutes int             `json:"interval_minutes"`
}
