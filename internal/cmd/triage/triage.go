// Package triage parses triage command flags and launches the API server.
package triage

import (
	"context"
	"flag"

	entrypoint "github.com/mailroomhq/triage/internal/platform/cmd"
	"github.com/mailroomhq/triage/internal/services/triage/app"
)

// Config holds triage command configuration. Secrets are env-only so they
// never appear in process listings.
type Config struct {
	Addr            string `env:"TRIAGE_ADDR" envDefault:":8080"`
	DBPath          string `env:"TRIAGE_DB_PATH" envDefault:"data/triage.db"`
	JWTSecret       string `env:"TRIAGE_JWT_SECRET"`
	IntegrationsURL string `env:"TRIAGE_INTEGRATIONS_URL"`
	OpenAIAPIKey    string `env:"TRIAGE_OPENAI_API_KEY"`
	OpenAIModel     string `env:"TRIAGE_OPENAI_MODEL"`
	PubSubProjectID string `env:"TRIAGE_PUBSUB_PROJECT_ID"`
	PubSubTopicID   string `env:"TRIAGE_PUBSUB_TOPIC_ID"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.Addr, "addr", cfg.Addr, "The API listen address")
	fs.StringVar(&cfg.DBPath, "db-path", cfg.DBPath, "The SQLite database path")
	fs.StringVar(&cfg.IntegrationsURL, "integrations-url", cfg.IntegrationsURL, "The Integrations service base URL")
	fs.StringVar(&cfg.OpenAIModel, "openai-model", cfg.OpenAIModel, "The OpenAI model name override")
	fs.StringVar(&cfg.PubSubProjectID, "pubsub-project-id", cfg.PubSubProjectID, "The Pub/Sub project for classification events")
	fs.StringVar(&cfg.PubSubTopicID, "pubsub-topic-id", cfg.PubSubTopicID, "The Pub/Sub topic for classification events")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the triage API runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceTriage, func(ctx context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			Addr:            cfg.Addr,
			DBPath:          cfg.DBPath,
			JWTSecret:       cfg.JWTSecret,
			IntegrationsURL: cfg.IntegrationsURL,
			OpenAIAPIKey:    cfg.OpenAIAPIKey,
			OpenAIModel:     cfg.OpenAIModel,
			PubSubProjectID: cfg.PubSubProjectID,
			PubSubTopicID:   cfg.PubSubTopicID,
		})
	})
}
