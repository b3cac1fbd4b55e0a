package media

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"queuecast/internal/errors"
	"queuecast/internal/models"
	"queuecast/internal/security"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// Store downloads remote attachments into a local cache directory, resolves
// them for publishing, and reclaims files past the retention window.
type Store struct {
	cacheDir    string
	maxFileSize int64
	httpClient  *http.Client
	logger      *logrus.Logger
}

func NewStore(cacheDir string, maxSizeMB int, downloadTimeout time.Duration, logger *logrus.Logger) (*Store, error) {
	if err := os.MkdirAll(cacheDir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}

	return &Store{
		cacheDir:    cacheDir,
		maxFileSize: int64(maxSizeMB) * 1024 * 1024,
		httpClient:  &http.Client{Timeout: downloadTimeout},
		logger:      logger,
	}, nil
}

// Fetch streams a remote attachment into the cache and returns a reference
// to the local copy. Oversized attachments are rejected before the transfer
// starts; the source file is skipped, never stored.
func (s *Store) Fetch(ctx context.Context, remote models.RemoteAttachment) (*models.AttachmentRef, error) {
	if remote.Size > s.maxFileSize {
		return nil, errors.NewValidationError("attachment",
			fmt.Sprintf("file %q too large: %d > %d bytes", remote.Filename, remote.Size, s.maxFileSize))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, remote.URL, nil)
	if err != nil {
		return nil, errors.NewDownloadError(remote.Filename, err)
	}

	resp, err := s.httpClient.Do(req)
	if err != nil {
		return nil, errors.NewDownloadError(remote.Filename, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, errors.NewDownloadError(remote.Filename,
			fmt.Errorf("download failed with status: %d", resp.StatusCode))
	}

	localPath := s.uniqueLocalPath(remote.Filename)
	out, err := os.Create(localPath) // #nosec G304 - path is built from a sanitized base name inside cacheDir
	if err != nil {
		return nil, errors.NewDownloadError(remote.Filename, err)
	}

	// The remote-reported size is advisory; cap the actual transfer too.
	written, err := io.Copy(out, io.LimitReader(resp.Body, s.maxFileSize+1))
	if closeErr := out.Close(); closeErr != nil && err == nil {
		err = closeErr
	}
	if err != nil {
		// Partial file stays behind; the retention sweep reclaims it.
		return nil, errors.NewDownloadError(remote.Filename, err)
	}
	if written > s.maxFileSize {
		if err := os.Remove(localPath); err != nil {
			s.logger.WithError(err).WithField("path", localPath).Warn("Failed to remove oversized download")
		}
		return nil, errors.NewValidationError("attachment",
			fmt.Sprintf("file %q exceeded the configured maximum of %d bytes", remote.Filename, s.maxFileSize))
	}

	contentType := remote.ContentType
	if contentType == "" {
		contentType = resp.Header.Get("Content-Type")
	}

	s.logger.WithFields(logrus.Fields{
		"filename": remote.Filename,
		"size":     written,
	}).Info("Downloaded attachment")

	return &models.AttachmentRef{
		Filename:     remote.Filename,
		LocalPath:    localPath,
		ContentType:  contentType,
		Size:         written,
		DownloadedAt: time.Now().UTC(),
	}, nil
}

// Materialize resolves attachment refs to openable local files. Refs whose
// local copy no longer exists are skipped and logged, not treated as fatal;
// publishing proceeds with whatever subset is still available.
func (s *Store) Materialize(refs []models.AttachmentRef) []models.LocalFile {
	files := make([]models.LocalFile, 0, len(refs))
	for _, ref := range refs {
		if err := security.ValidateWithinBase(ref.LocalPath, s.cacheDir); err != nil {
			s.logger.WithError(err).WithField("path", ref.LocalPath).Warn("Skipping attachment outside cache directory")
			continue
		}
		if _, err := os.Stat(ref.LocalPath); err != nil {
			s.logger.WithFields(logrus.Fields{
				"filename": ref.Filename,
				"path":     ref.LocalPath,
			}).Warn("Attachment file missing, skipping")
			continue
		}
		files = append(files, models.LocalFile{Filename: ref.Filename, Path: ref.LocalPath})
	}
	return files
}

// CleanupOldFiles deletes cached files whose modification time is older than
// maxAge and returns the number removed. The sweep is purely time-based and
// does not consult the live queue, so attachments of long-parked messages
// can be reclaimed before they publish.
func (s *Store) CleanupOldFiles(maxAge time.Duration) (int, error) {
	entries, err := os.ReadDir(s.cacheDir)
	if err != nil {
		return 0, fmt.Errorf("failed to read cache directory: %w", err)
	}

	removed := 0
	cutoff := time.Now().Add(-maxAge)
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		info, err := entry.Info()
		if err != nil {
			s.logger.WithError(err).WithField("file", entry.Name()).Warn("Failed to stat cached file")
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}

		path := filepath.Join(s.cacheDir, entry.Name())
		if err := os.Remove(path); err != nil {
			s.logger.WithError(err).WithField("file", entry.Name()).Warn("Failed to remove old file")
			continue
		}
		removed++
		s.logger.WithField("file", entry.Name()).Info("Cleaned up old attachment")
	}
	return removed, nil
}

// uniqueLocalPath builds a collision-free cache path for a download. The
// name keeps the sanitized original filename so operators can recognize
// files on disk.
func (s *Store) uniqueLocalPath(filename string) string {
	base := security.SanitizeFilename(filename)
	nonce := strings.Split(uuid.NewString(), "-")[0]
	return filepath.Join(s.cacheDir, fmt.Sprintf("%d_%s_%s", time.Now().UnixNano(), nonce, base))
}
