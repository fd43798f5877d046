package ollama

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/kirillkom/chemdoc-processor/internal/infrastructure/resilience"
)

type Client struct {
	baseURL    string
	model      string
	httpClient *http.Client
}

func New(baseURL, model string) *Client {
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		model:      model,
		httpClient: &http.Client{Timeout: 120 * time.Second},
	}
}

// Classifier answers zero-shot label questions through an Ollama model.
type Classifier struct {
	client *Client
	exec   *resilience.Executor
}

func NewClassifier(client *Client, exec *resilience.Executor) *Classifier {
	if exec == nil {
		exec = resilience.NewExecutor(resilience.DefaultConfig(), nil)
	}
	return &Classifier{client: client, exec: exec}
}

func (c *Classifier) Classify(ctx context.Context, text string, labels []string) (string, float64, error) {
	if len(labels) == 0 {
		return "", 0, fmt.Errorf("zero-shot classify: no candidate labels")
	}

	var label string
	var score float64
	err := c.exec.Execute(ctx, "zero_shot_classify", func(ctx context.Context) error {
		respText, err := c.client.generateJSON(ctx, buildZeroShotPrompt(text, labels))
		if err != nil {
			return err
		}
		parsedLabel, parsedScore, err := parseZeroShotResponse(respText, labels)
		if err != nil {
			return err
		}
		label, score = parsedLabel, parsedScore
		return nil
	}, classifyOllamaError)
	if err != nil {
		return "", 0, wrapTemporaryIfNeeded("zero_shot_classify", err)
	}
	return label, score, nil
}

func buildZeroShotPrompt(text string, labels []string) string {
	const maxSnippet = 4000
	snippet := text
	if len(snippet) > maxSnippet {
		snippet = snippet[:maxSnippet]
	}

	return fmt.Sprintf(`You are a document classifier for chemical industry paperwork.
Pick the single best matching label for the document below.
Candidate labels: %s
Return strict JSON object with keys:
label (one of the candidate labels, verbatim), score (number from 0 to 1).
No markdown, no extra keys.

Document:
%s`, strings.Join(labels, ", "), snippet)
}

func parseZeroShotResponse(raw string, labels []string) (string, float64, error) {
	var result struct {
		Label string  `json:"label"`
		Score float64 `json:"score"`
	}
	if err := json.Unmarshal([]byte(extractJSONObject(raw)), &result); err != nil {
		return "", 0, fmt.Errorf("parse zero-shot json: %w", err)
	}

	for _, candidate := range labels {
		if strings.EqualFold(strings.TrimSpace(result.Label), candidate) {
			return candidate, clampScore(result.Score), nil
		}
	}
	return "", 0, fmt.Errorf("zero-shot returned unknown label %q", result.Label)
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 1 {
		return 1
	}
	return score
}

func (c *Client) generateJSON(ctx context.Context, prompt string) (string, error) {
	reqBody := map[string]any{
		"model":  c.model,
		"prompt": prompt,
		"stream": false,
		"format": "json",
	}

	var response struct {
		Response string `json:"response"`
	}
	if err := c.postJSON(ctx, "/api/generate", reqBody, &response, "generate"); err != nil {
		return "", err
	}
	return strings.TrimSpace(response.Response), nil
}

func extractJSONObject(raw string) string {
	start := strings.Index(raw, "{")
	end := strings.LastIndex(raw, "}")
	if start >= 0 && end > start {
		return raw[start : end+1]
	}
	return raw
}
