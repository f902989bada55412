// Package app assembles and runs the triage API server.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/mailroomhq/triage/internal/platform/timeouts"
	triageapi "github.com/mailroomhq/triage/internal/services/triage/api/http/triage"
	"github.com/mailroomhq/triage/internal/services/triage/auth"
	"github.com/mailroomhq/triage/internal/services/triage/classifier"
	"github.com/mailroomhq/triage/internal/services/triage/domain"
	"github.com/mailroomhq/triage/internal/services/triage/events"
	"github.com/mailroomhq/triage/internal/services/triage/integrations"
	"github.com/mailroomhq/triage/internal/services/triage/storage/sqlite"
)

// RuntimeConfig carries the assembled runtime settings for the triage
// server.
type RuntimeConfig struct {
	// Addr is the listen address, for example ":8080".
	Addr string
	// DBPath locates the SQLite database file. Parent directories are
	// created when missing.
	DBPath string
	// JWTSecret verifies API bearer tokens. Required; the server refuses
	// to start without it.
	JWTSecret string
	// IntegrationsURL is the base URL of the message gateway. Optional;
	// recent-message pulls and task generation fail without it.
	IntegrationsURL string
	// OpenAIAPIKey enables the model classifier. Empty selects the
	// keyword classifier.
	OpenAIAPIKey string
	// OpenAIModel overrides the default model name.
	OpenAIModel string
	// PubSubProjectID enables event publishing to Pub/Sub. Empty selects
	// the log publisher.
	PubSubProjectID string
	// PubSubTopicID overrides the default event topic.
	PubSubTopicID string
}

// Server hosts the triage REST API.
type Server struct {
	listener  net.Listener
	server    *http.Server
	store     *sqlite.Store
	publisher io.Closer
	closeOnce sync.Once
}

// New creates a configured triage server listening on cfg.Addr.
func New(ctx context.Context, cfg RuntimeConfig) (*Server, error) {
	if ctx == nil {
		ctx = context.Background()
	}
	addr := strings.TrimSpace(cfg.Addr)
	if addr == "" {
		addr = ":8080"
	}

	verifier, err := auth.NewVerifier(auth.Config{Secret: cfg.JWTSecret})
	if err != nil {
		return nil, fmt.Errorf("build token verifier: %w", err)
	}

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("listen on %s: %w", addr, err)
	}

	store, err := openStore(cfg.DBPath)
	if err != nil {
		_ = listener.Close()
		return nil, err
	}

	var gateway domain.MessageGateway
	if baseURL := strings.TrimSpace(cfg.IntegrationsURL); baseURL != "" {
		client, err := integrations.New(integrations.Config{BaseURL: baseURL})
		if err != nil {
			_ = listener.Close()
			_ = store.Close()
			return nil, fmt.Errorf("build integrations client: %w", err)
		}
		gateway = client
	}

	var domainCfg domain.Config
	if apiKey := strings.TrimSpace(cfg.OpenAIAPIKey); apiKey != "" {
		domainCfg.Classifier = classifier.NewOpenAI(classifier.OpenAIConfig{
			APIKey: apiKey,
			Model:  strings.TrimSpace(cfg.OpenAIModel),
		})
	}

	var publisherCloser io.Closer
	if projectID := strings.TrimSpace(cfg.PubSubProjectID); projectID != "" {
		publisher, err := events.NewPubSubPublisher(ctx, events.PubSubConfig{
			ProjectID: projectID,
			TopicID:   strings.TrimSpace(cfg.PubSubTopicID),
		})
		if err != nil {
			_ = listener.Close()
			_ = store.Close()
			return nil, fmt.Errorf("build event publisher: %w", err)
		}
		domainCfg.Publisher = publisher
		publisherCloser = publisher
	}

	service := domain.NewService(store, gateway, domainCfg)
	handler := triageapi.Routes(service, triageapi.Config{Verifier: verifier})

	return &Server{
		listener: listener,
		server: &http.Server{
			Handler:           otelhttp.NewHandler(handler, "triage.api"),
			ReadHeaderTimeout: timeouts.ReadHeader,
		},
		store:     store,
		publisher: publisherCloser,
	}, nil
}

// Addr returns the listener address for the triage server.
func (s *Server) Addr() string {
	if s == nil || s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

// Run creates and serves a triage server until the context ends.
func Run(ctx context.Context, cfg RuntimeConfig) error {
	server, err := New(ctx, cfg)
	if err != nil {
		return err
	}
	return server.Serve(ctx)
}

// Serve starts the triage server and blocks until it stops or the context
// ends.
func (s *Server) Serve(ctx context.Context) error {
	if s == nil {
		return errors.New("server is nil")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	defer s.Close()

	log.Printf("triage server listening at %v", s.listener.Addr())
	serveErr := make(chan error, 1)
	go func() {
		serveErr <- s.server.Serve(s.listener)
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), timeouts.Shutdown)
		defer cancel()
		if err := s.server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown triage server: %v", err)
		}
		err := <-serveErr
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	case err := <-serveErr:
		if err == nil || errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("serve http: %w", err)
	}
}

// Close releases server resources.
func (s *Server) Close() {
	if s == nil {
		return
	}
	s.closeOnce.Do(func() {
		if s.server != nil {
			if err := s.server.Close(); err != nil && !errors.Is(err, http.ErrServerClosed) {
				log.Printf("close triage http server: %v", err)
			}
		}
		if s.listener != nil {
			if err := s.listener.Close(); err != nil && !errors.Is(err, net.ErrClosed) {
				log.Printf("close triage listener: %v", err)
			}
		}
		if s.publisher != nil {
			if err := s.publisher.Close(); err != nil {
				log.Printf("close event publisher: %v", err)
			}
		}
		if s.store != nil {
			if err := s.store.Close(); err != nil {
				log.Printf("close triage store: %v", err)
			}
		}
	})
}

func openStore(path string) (*sqlite.Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		path = filepath.Join("data", "triage.db")
	}
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create data dir %s: %w", dir, err)
		}
	}
	store, err := sqlite.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store at %s: %w", path, err)
	}
	return store, nil
}
