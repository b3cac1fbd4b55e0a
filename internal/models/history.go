package models

import "time"

// PublishRecord is one row of the publish audit log.
type PublishRecord struct {
	ID              int64     `db:"id"`
	MessageID       int64     `db:"message_id"`
	ChannelID       string    `db:"channel_id"`
	ContentPreview  string    `db:"content_preview"`
	AttachmentCount int       `db:"attachment_count"`
	PostedAt        time.Time `db:"posted_at"`
}
