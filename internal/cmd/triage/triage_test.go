package triage

import (
	"flag"
	"testing"
)

func TestParseConfigDefaults(t *testing.T) {
	fs := flag.NewFlagSet("triage", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, nil)
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":8080" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, ":8080")
	}
	if cfg.DBPath != "data/triage.db" {
		t.Fatalf("db_path = %q, want %q", cfg.DBPath, "data/triage.db")
	}
	if cfg.JWTSecret != "" {
		t.Fatalf("jwt_secret = %q, want empty default", cfg.JWTSecret)
	}
	if cfg.PubSubTopicID != "" {
		t.Fatalf("pubsub_topic_id = %q, want empty default", cfg.PubSubTopicID)
	}
}

func TestParseConfigOverrides(t *testing.T) {
	t.Setenv("TRIAGE_ADDR", ":9999")
	t.Setenv("TRIAGE_JWT_SECRET", "env-secret")
	t.Setenv("TRIAGE_OPENAI_API_KEY", "env-key")

	fs := flag.NewFlagSet("triage", flag.ContinueOnError)
	cfg, err := ParseConfig(fs, []string{
		"-addr", ":7000",
		"-db-path", "/tmp/custom.db",
		"-integrations-url", "http://integrations:8081",
		"-openai-model", "gpt-4o",
		"-pubsub-project-id", "mailroom-dev",
		"-pubsub-topic-id", "custom-events",
	})
	if err != nil {
		t.Fatalf("parse config: %v", err)
	}
	if cfg.Addr != ":7000" {
		t.Fatalf("addr = %q, want %q", cfg.Addr, ":7000")
	}
	if cfg.DBPath != "/tmp/custom.db" {
		t.Fatalf("db_path = %q, want %q", cfg.DBPath, "/tmp/custom.db")
	}
	if cfg.JWTSecret != "env-secret" {
		t.Fatalf("jwt_secret = %q, want env value", cfg.JWTSecret)
	}
	if cfg.OpenAIAPIKey != "env-key" {
		t.Fatalf("openai_api_key = %q, want env value", cfg.OpenAIAPIKey)
	}
	if cfg.IntegrationsURL != "http://integrations:8081" {
		t.Fatalf("integrations_url = %q, want flag value", cfg.IntegrationsURL)
	}
	if cfg.OpenAIModel != "gpt-4o" {
		t.Fatalf("openai_model = %q, want flag value", cfg.OpenAIModel)
	}
	if cfg.PubSubProjectID != "mailroom-dev" {
		t.Fatalf("pubsub_project_id = %q, want flag value", cfg.PubSubProjectID)
	}
	if cfg.PubSubTopicID != "custom-events" {
		t.Fatalf("pubsub_topic_id = %q, want flag value", cfg.PubSubTopicID)
	}
}
