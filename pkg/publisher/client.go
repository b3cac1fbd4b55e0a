package publisher

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"time"

	qerrors "queuecast/internal/errors"
	"queuecast/internal/models"
)

// ClientConfig configures the chat-gateway HTTP client.
type ClientConfig struct {
	BaseURL string
	APIKey  string
	Timeout time.Duration
}

// GatewayClient publishes messages through a chat-gateway HTTP API.
type GatewayClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

type sendResponse struct {
	MessageID string `json:"messageId"`
	Status    string `json:"status"`
	Error     string `json:"error,omitempty"`
}

func NewClient(cfg ClientConfig) *GatewayClient {
	return &GatewayClient{
		baseURL: cfg.BaseURL,
		apiKey:  cfg.APIKey,
		client:  &http.Client{Timeout: cfg.Timeout},
	}
}

// Send publishes content and files to a channel. Text-only messages go as
// JSON; anything with files goes as a single multipart request so the
// gateway posts them as one message.
func (c *GatewayClient) Send(ctx context.Context, channelID, content string, files []models.LocalFile) error {
	if len(files) == 0 {
		return c.sendText(ctx, channelID, content)
	}
	return c.sendMedia(ctx, channelID, content, files)
}

func (c *GatewayClient) sendText(ctx context.Context, channelID, content string) error {
	payload := map[string]interface{}{
		"channelId": channelID,
		"text":      content,
	}

	jsonData, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendText", bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	c.setAuth(req)

	return c.do(req, channelID)
}

func (c *GatewayClient) sendMedia(ctx context.Context, channelID, content string, files []models.LocalFile) error {
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)

	for _, f := range files {
		file, err := os.Open(f.Path)
		if err != nil {
			return fmt.Errorf("failed to open attachment %q: %w", f.Filename, err)
		}

		part, err := writer.CreateFormFile("files", f.Filename)
		if err != nil {
			file.Close()
			return fmt.Errorf("failed to create form file: %w", err)
		}
		if _, err := io.Copy(part, file); err != nil {
			file.Close()
			return fmt.Errorf("failed to copy attachment content: %w", err)
		}
		file.Close()
	}

	if err := writer.WriteField("channelId", channelID); err != nil {
		return fmt.Errorf("failed to write channelId field: %w", err)
	}
	if content != "" {
		if err := writer.WriteField("caption", content); err != nil {
			return fmt.Errorf("failed to write caption field: %w", err)
		}
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/api/sendMedia", body)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	c.setAuth(req)

	return c.do(req, channelID)
}

func (c *GatewayClient) do(req *http.Request, channelID string) error {
	resp, err := c.client.Do(req)
	if err != nil {
		return qerrors.WrapRetryable(err, qerrors.ErrCodePublishFailed, "gateway request failed")
	}
	defer resp.Body.Close()

	var result sendResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil && resp.StatusCode == http.StatusOK {
		return fmt.Errorf("failed to decode gateway response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		cause := fmt.Errorf("gateway returned status %d: %s", resp.StatusCode, result.Error)
		return qerrors.NewPublishError(channelID, resp.StatusCode, cause)
	}
	return nil
}

func (c *GatewayClient) setAuth(req *http.Request) {
	if c.apiKey != "" {
		req.Header.Set("X-Api-Key", c.apiKey)
	}
}
