package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"time"

	"github.com/smazurov/streamgate/internal/logging"
)

// HTTPClient polls a JSON metadata endpoint. The endpoint is expected to
// expose GET {base}/channels/{name} returning a ChannelStatus document.
type HTTPClient struct {
	baseURL    string
	httpClient *http.Client
	logger     *slog.Logger
}

// NewHTTPClient creates a client for the given metadata service base URL.
func NewHTTPClient(baseURL string) *HTTPClient {
	return &HTTPClient{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: 5 * time.Second},
		logger:     logging.GetLogger("provider"),
	}
}

// ChannelStatus implements Provider.
func (c *HTTPClient) ChannelStatus(ctx context.Context, channel string) (*ChannelStatus, error) {
	endpoint := fmt.Sprintf("%s/channels/%s", c.baseURL, url.PathEscape(channel))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build status request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("query channel status: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		c.logger.Warn("Provider returned non-OK status",
			"channel", channel, "status", resp.StatusCode, "body", string(body))
		return nil, fmt.Errorf("provider status %d for channel %s", resp.StatusCode, channel)
	}

	var status ChannelStatus
	if err := json.NewDecoder(resp.Body).Decode(&status); err != nil {
		return nil, fmt.Errorf("decode channel status: %w", err)
	}
	if status.Channel == "" {
		status.Channel = channel
	}

	return &status, nil
}
