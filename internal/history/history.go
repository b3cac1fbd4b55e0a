package history

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"queuecast/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

const schema = `
CREATE TABLE IF NOT EXISTS publish_history (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	message_id INTEGER NOT NULL,
	channel_id TEXT NOT NULL,
	content_preview TEXT NOT NULL DEFAULT '',
	attachment_count INTEGER NOT NULL DEFAULT 0,
	posted_at TIMESTAMP NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_publish_history_posted_at ON publish_history(posted_at);
`

// Store is the publish audit log. Every successful publication is recorded
// here; the queue documents themselves never retain published messages.
type Store struct {
	db *sql.DB
}

func New(dbPath string) (*Store, error) {
	if dbPath == "" {
		return nil, fmt.Errorf("history database path cannot be empty")
	}

	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open history database: %w", err)
	}

	if err := db.Ping(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to ping history database: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to ping history database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, fmt.Errorf("failed to initialize schema: %w (close error: %v)", err, closeErr)
		}
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// RecordPublish inserts one audit row for a successful publication.
func (s *Store) RecordPublish(ctx context.Context, rec *models.PublishRecord) error {
	query := `
		INSERT INTO publish_history (
			message_id, channel_id, content_preview, attachment_count, posted_at
		) VALUES (?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		rec.MessageID,
		rec.ChannelID,
		rec.ContentPreview,
		rec.AttachmentCount,
		rec.PostedAt.UTC(),
	)
	if err != nil {
		return fmt.Errorf("failed to record publish: %w", err)
	}
	return nil
}

// RecentPublishes returns up to limit audit rows, newest first.
func (s *Store) RecentPublishes(ctx context.Context, limit int) ([]models.PublishRecord, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, message_id, channel_id, content_preview, attachment_count, posted_at
		FROM publish_history
		ORDER BY posted_at DESC, id DESC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query publish history: %w", err)
	}
	defer rows.Close()

	var records []models.PublishRecord
	for rows.Next() {
		var rec models.PublishRecord
		if err := rows.Scan(&rec.ID, &rec.MessageID, &rec.ChannelID, &rec.ContentPreview, &rec.AttachmentCount, &rec.PostedAt); err != nil {
			return nil, fmt.Errorf("failed to scan publish record: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate publish history: %w", err)
	}
	return records, nil
}

// PruneOlderThan deletes audit rows posted before cutoff and returns the
// number of rows removed.
func (s *Store) PruneOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM publish_history WHERE posted_at < ?`, cutoff.UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to prune publish history: %w", err)
	}

	removed, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to count pruned rows: %w", err)
	}
	return removed, nil
}
