package publisher

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	qerrors "queuecast/internal/errors"
	"queuecast/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(baseURL string) *GatewayClient {
	return NewClient(ClientConfig{
		BaseURL: baseURL,
		APIKey:  "test-key",
		Timeout: 5 * time.Second,
	})
}

func TestSend_TextOnly(t *testing.T) {
	var gotPath, gotAPIKey string
	var gotBody map[string]interface{}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotAPIKey = r.Header.Get("X-Api-Key")
		require.NoError(t, json.NewDecoder(r.Body).Decode(&gotBody))
		_ = json.NewEncoder(w).Encode(map[string]string{"messageId": "m1", "status": "sent"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Send(context.Background(), "channel-1", "hello world", nil)
	require.NoError(t, err)

	assert.Equal(t, "/api/sendText", gotPath)
	assert.Equal(t, "test-key", gotAPIKey)
	assert.Equal(t, "channel-1", gotBody["channelId"])
	assert.Equal(t, "hello world", gotBody["text"])
}

func TestSend_WithFilesUsesMultipart(t *testing.T) {
	dir := t.TempDir()
	fileA := filepath.Join(dir, "a.png")
	fileB := filepath.Join(dir, "b.txt")
	require.NoError(t, os.WriteFile(fileA, []byte("png data"), 0600))
	require.NoError(t, os.WriteFile(fileB, []byte("text data"), 0600))

	var gotPath, gotChannel, gotCaption string
	var gotFiles []string

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		require.NoError(t, r.ParseMultipartForm(1<<20))
		gotChannel = r.FormValue("channelId")
		gotCaption = r.FormValue("caption")
		for _, fh := range r.MultipartForm.File["files"] {
			f, err := fh.Open()
			require.NoError(t, err)
			data, err := io.ReadAll(f)
			require.NoError(t, err)
			f.Close()
			gotFiles = append(gotFiles, fh.Filename+":"+string(data))
		}
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Send(context.Background(), "channel-1", "caption text", []models.LocalFile{
		{Filename: "a.png", Path: fileA},
		{Filename: "b.txt", Path: fileB},
	})
	require.NoError(t, err)

	assert.Equal(t, "/api/sendMedia", gotPath)
	assert.Equal(t, "channel-1", gotChannel)
	assert.Equal(t, "caption text", gotCaption)
	assert.Equal(t, []string{"a.png:png data", "b.txt:text data"}, gotFiles)
}

func TestSend_FilesWithoutCaptionOmitsField(t *testing.T) {
	dir := t.TempDir()
	file := filepath.Join(dir, "only.png")
	require.NoError(t, os.WriteFile(file, []byte("x"), 0600))

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(t, r.ParseMultipartForm(1<<20))
		_, hasCaption := r.MultipartForm.Value["caption"]
		assert.False(t, hasCaption)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Send(context.Background(), "channel-1", "", []models.LocalFile{
		{Filename: "only.png", Path: file},
	})
	require.NoError(t, err)
}

func TestSend_ChannelNotFound(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_ = json.NewEncoder(w).Encode(map[string]string{"error": "channel does not exist"})
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Send(context.Background(), "bogus", "hello", nil)

	require.Error(t, err)
	assert.Equal(t, qerrors.ErrCodeChannelNotFound, qerrors.GetCode(err))
}

func TestSend_ServerErrorIsRetryable(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL)
	err := client.Send(context.Background(), "channel-1", "hello", nil)

	require.Error(t, err)
	assert.Equal(t, qerrors.ErrCodePublishFailed, qerrors.GetCode(err))
	assert.True(t, qerrors.IsRetryable(err))
}

func TestSend_TransportErrorIsRetryable(t *testing.T) {
	client := newTestClient("http://127.0.0.1:1")
	err := client.Send(context.Background(), "channel-1", "hello", nil)

	require.Error(t, err)
	assert.True(t, qerrors.IsRetryable(err))
}

func TestSend_MissingAttachmentFile(t *testing.T) {
	client := newTestClient("http://unused.invalid")
	err := client.Send(context.Background(), "channel-1", "", []models.LocalFile{
		{Filename: "ghost.png", Path: "/nonexistent/ghost.png"},
	})
	assert.Error(t, err)
}

func TestSend_NoAPIKeyHeaderWhenUnset(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, present := r.Header["X-Api-Key"]
		assert.False(t, present)
		_ = json.NewEncoder(w).Encode(map[string]string{"status": "sent"})
	}))
	defer server.Close()

	client := NewClient(ClientConfig{BaseURL: server.URL, Timeout: time.Second})
	require.NoError(t, client.Send(context.Background(), "channel-1", "hi", nil))
}
