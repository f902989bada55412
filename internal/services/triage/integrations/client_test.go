package integrations

import (
	"context"
	"errors"
	"io"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/mailroomhq/triage/internal/platform/requestctx"
)

type roundTripFunc func(req *http.Request) (*http.Response, error)

func (f roundTripFunc) RoundTrip(req *http.Request) (*http.Response, error) {
	return f(req)
}

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Header:     make(http.Header),
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestNewRequiresBaseURL(t *testing.T) {
	t.Parallel()

	if _, err := New(Config{}); err == nil {
		t.Fatal("expected base url error")
	}
}

func TestNewTrimsBaseURL(t *testing.T) {
	t.Parallel()

	client, err := New(Config{BaseURL: " https://integrations.example.com/ "})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}
	if client.cfg.BaseURL != "https://integrations.example.com" {
		t.Fatalf("base url = %q", client.cfg.BaseURL)
	}
	if client.cfg.HTTPClient == nil {
		t.Fatal("expected default HTTP client")
	}
}

func TestGetMessageForwardsBearerToken(t *testing.T) {
	t.Parallel()

	client, err := New(Config{
		BaseURL: "https://integrations.example.com",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				if req.URL.Path != "/messages/msg-1" {
					t.Fatalf("path = %q", req.URL.Path)
				}
				if req.Header.Get("Authorization") != "Bearer caller-token" {
					t.Fatalf("authorization = %q", req.Header.Get("Authorization"))
				}
				return response(http.StatusOK, `{
					"id": "msg-1",
					"channel": "email",
					"sender": "ceo@example.com",
					"subject": "Board deck",
					"snippet": "Need the final numbers today.",
					"received_at": "2026-03-02T09:30:00Z"
				}`), nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	ctx := requestctx.WithBearerToken(context.Background(), "caller-token")
	got, err := client.GetMessage(ctx, "msg-1")
	if err != nil {
		t.Fatalf("get message: %v", err)
	}
	if got.ID != "msg-1" || got.Channel != "email" || got.Sender != "ceo@example.com" {
		t.Fatalf("unexpected message: %+v", got)
	}
	want := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	if !got.ReceivedAt.Equal(want) {
		t.Fatalf("received_at = %v, want %v", got.ReceivedAt, want)
	}
}

func TestGetMessageOmitsAuthorizationWithoutToken(t *testing.T) {
	t.Parallel()

	client, err := New(Config{
		BaseURL: "https://integrations.example.com",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				if req.Header.Get("Authorization") != "" {
					t.Fatalf("authorization = %q, want empty", req.Header.Get("Authorization"))
				}
				return response(http.StatusOK, `{"id":"msg-1","channel":"email","sender":"a@example.com","snippet":"hi"}`), nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.GetMessage(context.Background(), "msg-1"); err != nil {
		t.Fatalf("get message: %v", err)
	}
}

func TestGetMessageNotFound(t *testing.T) {
	t.Parallel()

	client, err := New(Config{
		BaseURL: "https://integrations.example.com",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return response(http.StatusNotFound, `{"detail":"Message not found"}`), nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	if _, err := client.GetMessage(context.Background(), "msg-missing"); !errors.Is(err, ErrMessageNotFound) {
		t.Fatalf("expected message not found, got %v", err)
	}
}

func TestGetMessageUpstreamError(t *testing.T) {
	t.Parallel()

	client, err := New(Config{
		BaseURL: "https://integrations.example.com",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				return response(http.StatusBadGateway, "gateway overloaded"), nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	_, err = client.GetMessage(context.Background(), "msg-1")
	if err == nil || !strings.Contains(err.Error(), "status 502") {
		t.Fatalf("error = %v, want status 502", err)
	}
}

func TestListMessagesBuildsQuery(t *testing.T) {
	t.Parallel()

	client, err := New(Config{
		BaseURL: "https://integrations.example.com",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				if req.URL.Path != "/messages" {
					t.Fatalf("path = %q", req.URL.Path)
				}
				if got := req.URL.Query().Get("limit"); got != "25" {
					t.Fatalf("limit = %q, want 25", got)
				}
				if got := req.URL.Query().Get("channel"); got != "slack" {
					t.Fatalf("channel = %q, want slack", got)
				}
				return response(http.StatusOK, `[
					{"id":"msg-1","channel":"slack","sender":"lead","snippet":"standup moved"},
					{"id":"msg-2","channel":"slack","sender":"bot","snippet":"build failed"}
				]`), nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	messages, err := client.ListMessages(context.Background(), ListRequest{Limit: 25, Channel: "slack"})
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 2 {
		t.Fatalf("message count = %d, want 2", len(messages))
	}
	if messages[0].ID != "msg-1" || messages[1].ID != "msg-2" {
		t.Fatalf("unexpected messages: %+v", messages)
	}
}

func TestListMessagesOmitsEmptyParams(t *testing.T) {
	t.Parallel()

	client, err := New(Config{
		BaseURL: "https://integrations.example.com",
		HTTPClient: &http.Client{
			Transport: roundTripFunc(func(req *http.Request) (*http.Response, error) {
				if req.URL.RawQuery != "" {
					t.Fatalf("query = %q, want empty", req.URL.RawQuery)
				}
				return response(http.StatusOK, `[]`), nil
			}),
		},
	})
	if err != nil {
		t.Fatalf("new client: %v", err)
	}

	messages, err := client.ListMessages(context.Background(), ListRequest{})
	if err != nil {
		t.Fatalf("list messages: %v", err)
	}
	if len(messages) != 0 {
		t.Fatalf("message count = %d, want 0", len(messages))
	}
}
