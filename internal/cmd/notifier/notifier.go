// Package notifier parses notifier command flags and launches the event
// consumer.
package notifier

import (
	"context"
	"flag"

	entrypoint "github.com/mailroomhq/triage/internal/platform/cmd"
	"github.com/mailroomhq/triage/internal/services/notifier/app"
)

// Config holds notifier command configuration.
type Config struct {
	HealthAddr     string `env:"TRIAGE_NOTIFIER_HEALTH_ADDR" envDefault:":8081"`
	ProjectID      string `env:"TRIAGE_NOTIFIER_PUBSUB_PROJECT_ID"`
	SubscriptionID string `env:"TRIAGE_NOTIFIER_SUBSCRIPTION_ID" envDefault:"classification-events-sub"`
}

// ParseConfig parses environment and flags into Config.
func ParseConfig(fs *flag.FlagSet, args []string) (Config, error) {
	var cfg Config
	if err := entrypoint.ParseConfig(&cfg); err != nil {
		return Config{}, err
	}

	fs.StringVar(&cfg.HealthAddr, "health-addr", cfg.HealthAddr, "The health endpoint listen address")
	fs.StringVar(&cfg.ProjectID, "pubsub-project-id", cfg.ProjectID, "The Pub/Sub project for classification events")
	fs.StringVar(&cfg.SubscriptionID, "subscription-id", cfg.SubscriptionID, "The Pub/Sub subscription to drain")

	if err := entrypoint.ParseArgs(fs, args); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Run starts the notifier runtime.
func Run(ctx context.Context, cfg Config) error {
	return entrypoint.RunWithTelemetry(ctx, entrypoint.ServiceNotifier, func(ctx context.Context) error {
		return app.Run(ctx, app.RuntimeConfig{
			HealthAddr:     cfg.HealthAddr,
			ProjectID:      cfg.ProjectID,
			SubscriptionID: cfg.SubscriptionID,
		})
	})
}
