// Package integrations calls the upstream message gateway that owns inbox
// ingestion for all channels.
package integrations

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/mailroomhq/triage/internal/platform/requestctx"
	"github.com/mailroomhq/triage/internal/platform/timeouts"
)

// ErrMessageNotFound indicates the gateway has no message with the given id.
var ErrMessageNotFound = errors.New("message not found")

// Message is one inbox message as the gateway returns it.
type Message struct {
	ID         string    `json:"id"`
	Channel    string    `json:"channel"`
	Sender     string    `json:"sender"`
	Subject    string    `json:"subject"`
	Snippet    string    `json:"snippet"`
	ReceivedAt time.Time `json:"received_at"`
}

// ListRequest describes one message listing call.
type ListRequest struct {
	Limit   int
	Channel string
}

// Config configures the gateway base URL and HTTP behavior.
type Config struct {
	BaseURL    string
	HTTPClient *http.Client
}

// Client fetches messages from the gateway. The caller's bearer token is
// forwarded unchanged so the gateway applies its own authorization.
type Client struct {
	cfg Config
}

// New builds a gateway client.
func New(cfg Config) (*Client, error) {
	cfg.BaseURL = strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("integrations base url is required")
	}
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = &http.Client{Timeout: timeouts.UpstreamRequest}
	}
	return &Client{cfg: cfg}, nil
}

// GetMessage fetches one message by id.
func (c *Client) GetMessage(ctx context.Context, id string) (Message, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return Message{}, fmt.Errorf("message id is required")
	}

	var message Message
	endpoint := c.cfg.BaseURL + "/messages/" + url.PathEscape(id)
	if err := c.getJSON(ctx, endpoint, &message); err != nil {
		return Message{}, err
	}
	return message, nil
}

// ListMessages fetches recent messages, optionally scoped to one channel.
func (c *Client) ListMessages(ctx context.Context, req ListRequest) ([]Message, error) {
	query := url.Values{}
	if req.Limit > 0 {
		query.Set("limit", strconv.Itoa(req.Limit))
	}
	if channel := strings.TrimSpace(req.Channel); channel != "" {
		query.Set("channel", channel)
	}
	endpoint := c.cfg.BaseURL + "/messages"
	if encoded := query.Encode(); encoded != "" {
		endpoint += "?" + encoded
	}

	var messages []Message
	if err := c.getJSON(ctx, endpoint, &messages); err != nil {
		return nil, err
	}
	return messages, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("build gateway request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if token := requestctx.BearerTokenFromContext(ctx); token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("gateway request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return ErrMessageNotFound
	}
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return fmt.Errorf("read gateway error body: %w", err)
		}
		return fmt.Errorf("gateway request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(res.Body).Decode(out); err != nil {
		return fmt.Errorf("decode gateway response: %w", err)
	}
	return nil
}
