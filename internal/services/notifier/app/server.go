// Package app assembles and runs the notifier process.
package app

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net"
	"net/http"
	"strings"
	"sync"

	"cloud.google.com/go/pubsub"
	"go.opentelemetry.io/contrib/instrumentation/google.golang.org/grpc/otelgrpc"
	"google.golang.org/api/option"
	"google.golang.org/grpc"

	"github.com/mailroomhq/triage/internal/platform/httpx"
	"github.com/mailroomhq/triage/internal/platform/timeouts"
	"github.com/mailroomhq/triage/internal/services/notifier/domain"
)

// DefaultSubscriptionID is the subscription the notifier drains when none
// is configured.
const DefaultSubscriptionID = "classification-events-sub"

// RuntimeConfig carries the assembled runtime settings for the notifier.
type RuntimeConfig struct {
	// HealthAddr is the health endpoint listen address.
	HealthAddr string
	// ProjectID is the Pub/Sub project. Required.
	ProjectID string
	// SubscriptionID overrides the default event subscription.
	SubscriptionID string
	// ClientOptions lets tests point the client at a fake server.
	ClientOptions []option.ClientOption
}

// Server drains classification events and serves a health endpoint.
type Server struct {
	listener     net.Listener
	health       *http.Server
	client       *pubsub.Client
	subscription *pubsub.Subscription
	handler      *domain.Handler
	closeOnce    sync.Once
}

// New creates a configured notifier bound to its subscription.
func New(ctx context.Context, cfg RuntimeConfig) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	projectID := strings.TrimSpace(cfg.ProjectID)
	if projectID == "" {
		return nil, errors.New("pubsub project id is required")
	}
	subscriptionID := strings.TrimSpace(cfg.SubscriptionID)
	if subscriptionID == "" {
		subscriptionID = DefaultSubscriptionID
	}
	addr := strings.TrimSpace(cfg.HealthAddr)
	if addr == "" {
		addr = ":8081"
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	opts := append([]option.ClientOption{
		option.WithGRPCDialOption(grpc.WithStatsHandler(otelgrpc.NewClientHandler())),
	}, cfg.ClientOptions...)
	client, err := pubsub.NewClient(ctx, projectID, opts...)
	if err != nil {
		_ = listener.Close()
		return nil, fmt.Errorf("create pubsub client: %w", err)
	}

	subscription := client.Subscription(subscriptionID)
	exists, err := subscription.Exists(ctx)
	if err != nil {
		_ = listener.Close()
		client.Close()
		return nil, fmt.Errorf("check subscription %s: %w", subscriptionID, err)
	}
	if !exists {
		_ = listener.Close()
		client.Close()
		return nil, fmt.Errorf("subscription %s does not exist in project %s", subscriptionID, projectID)
	}

	mux := http.NewServeMux()
	mux.HandleFunc(http.MethodGet+" /healthz", func(w http.ResponseWriter, r *http.Request) {
		httpx.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	return &Server{
		listener: listener,
		health: &http.Server{
			Handler:           mux,
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		client:       client,
		subscription: subscription,
		handler:      domain.NewHandler(),
	}, nil
}

// Addr returns the health listener address.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a notifier until the context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve drains the subscription until the context ends. Every delivery is
// acked: the handler counts and drops malformed payloads instead of
// letting them redeliver forever.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	go func() {
		// Health endpoint failures are logged, never fatal.
		if err := s.health.Serve(s.listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Printf("serve notifier health: %v", err)
		}
	}()
	log.Printf("notifier health listening at %v", s.listener.Addr())
	log.Printf("notifier receiving on subscription %s", s.subscription.ID())

	err := s.subscription.Receive(ctx, func(_ context.Context, msg *pubsub.Message) {
		s.handler.Handle(msg.Data)
		msg.Ack()
	})
	stats := s.handler.Stats()
	log.Printf("notifier stopped: received=%d urgent=%d malformed=%d",
		stats.Received, stats.Urgent, stats.Malformed)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("receive events: %w", err)
	}
	return nil
}

// Close releases notifier resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.health != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
			defer cancel()
			if err := s.health.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("shutdown notifier health: %v", err)
			}
		}
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Printf("close notifier listener: %v", err)
			}
		}
		if s.client != nil {
			if err := s.client.Close(); err != nil {
				log.Printf("close pubsub client: %v", err)
			}
		}
	})
}
