package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/mailroomhq/triage/internal/services/triage/storage"
)

// DefaultModel is the model used when no model is configured.
const DefaultModel = "gpt-4o-mini"

// OpenAIConfig configures the OpenAI responses endpoint and HTTP behavior.
type OpenAIConfig struct {
	ResponsesURL string
	APIKey       string
	Model        string
	HTTPClient   *http.Client
}

type openAIClassifier struct {
	cfg OpenAIConfig
}

// NewOpenAI builds a classifier backed by the OpenAI responses API.
func NewOpenAI(cfg OpenAIConfig) Classifier {
	if cfg.HTTPClient == nil {
		cfg.HTTPClient = http.DefaultClient
	}
	if strings.TrimSpace(cfg.ResponsesURL) == "" {
		cfg.ResponsesURL = "https://api.openai.com/v1/responses"
	}
	if strings.TrimSpace(cfg.Model) == "" {
		cfg.Model = DefaultModel
	}
	return &openAIClassifier{cfg: cfg}
}

func (c *openAIClassifier) Classify(ctx context.Context, msg Message) (Result, error) {
	responsesURL := strings.TrimSpace(c.cfg.ResponsesURL)
	apiKey := strings.TrimSpace(c.cfg.APIKey)
	model := strings.TrimSpace(c.cfg.Model)
	if responsesURL == "" {
		return Result{}, fmt.Errorf("responses url is required")
	}
	if apiKey == "" {
		return Result{}, fmt.Errorf("api key is required")
	}
	if model == "" {
		return Result{}, fmt.Errorf("model is required")
	}
	if strings.TrimSpace(msg.Subject) == "" && strings.TrimSpace(msg.Snippet) == "" {
		return Result{}, fmt.Errorf("message content is required")
	}

	requestBody, err := json.Marshal(map[string]any{
		"model": model,
		"input": classifyPrompt(msg),
	})
	if err != nil {
		return Result{}, fmt.Errorf("marshal classify request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, responsesURL, bytes.NewReader(requestBody))
	if err != nil {
		return Result{}, fmt.Errorf("build classify request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	// Credential material is sent only as an Authorization header and is never
	// echoed in errors or response payloads.
	req.Header.Set("Authorization", "Bearer "+apiKey)

	res, err := c.cfg.HTTPClient.Do(req)
	if err != nil {
		return Result{}, fmt.Errorf("classify request failed: %w", err)
	}
	defer res.Body.Close()
	if res.StatusCode < 200 || res.StatusCode >= 300 {
		body, err := io.ReadAll(io.LimitReader(res.Body, 4096))
		if err != nil {
			return Result{}, fmt.Errorf("read classify error body: %w", err)
		}
		return Result{}, fmt.Errorf("classify request status %d: %s", res.StatusCode, strings.TrimSpace(string(body)))
	}

	var payload struct {
		OutputText string `json:"output_text"`
		Output     []struct {
			Content []struct {
				Type string `json:"type"`
				Text string `json:"text"`
			} `json:"content"`
		} `json:"output"`
	}
	if err := json.NewDecoder(res.Body).Decode(&payload); err != nil {
		return Result{}, fmt.Errorf("decode classify response: %w", err)
	}
	outputText := strings.TrimSpace(payload.OutputText)
	if outputText == "" {
		for _, item := range payload.Output {
			for _, content := range item.Content {
				if strings.TrimSpace(content.Text) != "" {
					outputText = strings.TrimSpace(content.Text)
					break
				}
			}
			if outputText != "" {
				break
			}
		}
	}
	if outputText == "" {
		return Result{}, fmt.Errorf("classify response missing output text")
	}
	return parseModelOutput(outputText, msg)
}

func classifyPrompt(msg Message) string {
	var b strings.Builder
	b.WriteString("Classify this inbox message for a triage assistant.\n")
	b.WriteString("Labels: todo (needs direct action), followup (revisit later), noise (no attention needed).\n")
	b.WriteString("Priority: integer 1 (ignorable) to 10 (drop everything).\n")
	b.WriteString("Respond with only a JSON object: {\"label\": \"...\", \"priority\": N, \"summary\": \"one sentence\"}.\n\n")
	fmt.Fprintf(&b, "Channel: %s\n", strings.TrimSpace(msg.Channel))
	fmt.Fprintf(&b, "Sender: %s\n", strings.TrimSpace(msg.Sender))
	fmt.Fprintf(&b, "Subject: %s\n", strings.TrimSpace(msg.Subject))
	fmt.Fprintf(&b, "Body: %s\n", strings.TrimSpace(msg.Snippet))
	return b.String()
}

func parseModelOutput(outputText string, msg Message) (Result, error) {
	var decoded struct {
		Label    string `json:"label"`
		Priority int    `json:"priority"`
		Summary  string `json:"summary"`
	}
	if err := json.Unmarshal([]byte(outputText), &decoded); err != nil {
		return Result{}, fmt.Errorf("decode classification output: %w", err)
	}
	label, err := storage.ParseLabel(decoded.Label)
	if err != nil {
		return Result{}, fmt.Errorf("classification output: %w", err)
	}
	summary := strings.TrimSpace(decoded.Summary)
	if summary == "" {
		summary = summarize(msg)
	}
	return Result{
		Label:    label,
		Priority: clampPriority(decoded.Priority),
		Summary:  summary,
		Source:   storage.SourceOpenAI,
	}, nil
}
