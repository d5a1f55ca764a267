// Package query answers natural-language questions about the log by handing
// recent entries to the Anthropic messages API.
package query

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"

	"github.com/pbaille/healthlog/internal/store"
)

const anthropicAPI = "https://api.anthropic.com/v1/messages"

// How many recent entries go into the prompt.
const contextEntries = 200

// Querier answers questions about stored entries via the Anthropic API
type Querier struct {
	store   *store.Store
	apiKey  string
	model   string
	baseURL string
	client  *http.Client
}

// Option adjusts a Querier, mainly for tests.
type Option func(*Querier)

// WithBaseURL points the querier at a different API endpoint.
func WithBaseURL(url string) Option {
	return func(q *Querier) { q.baseURL = url }
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(q *Querier) { q.client = c }
}

// New creates a new Querier
func New(s *store.Store, opts ...Option) (*Querier, error) {
	apiKey := os.Getenv("ANTHROPIC_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable not set")
	}

	q := &Querier{
		store:   s,
		apiKey:  apiKey,
		model:   "claude-sonnet-4-20250514",
		baseURL: anthropicAPI,
		client:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q, nil
}

// Ask answers a free-form question about the log
func (q *Querier) Ask(question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", fmt.Errorf("empty question")
	}

	entries, err := q.store.ListEntries("", contextEntries, 0)
	if err != nil {
		return "", fmt.Errorf("load entries: %w", err)
	}
	tags, err := q.store.AllTags()
	if err != nil {
		return "", fmt.Errorf("load tags: %w", err)
	}

	resp, err := q.callAPI(buildPrompt(question, entries, tags))
	if err != nil {
		return "", fmt.Errorf("api call: %w", err)
	}
	return strings.TrimSpace(resp), nil
}

func buildPrompt(question string, entries []store.Entry, tags []store.TagInfo) string {
	var sb strings.Builder

	sb.WriteString("You are a health tracker assistant. The user has asked: ")
	fmt.Fprintf(&sb, "%q\n\n", question)

	sb.WriteString(`Entries are listed below, newest first, one JSON object per line.
Every object has a "type" field: exercise, hr, hrv, temp, weight, or cp.

The "conditions" field holds comma-separated values from these dimensions:
- activity: waking, resting, active, post-workout
- time_of_day: morning, evening
- metabolic: postprandial, fasted
- emotional: stressed, relaxed
- technique (temp only): oral, underarm, forehead_ir, ear

Readings taken under different conditions are not comparable; group by
conditions when computing trends or averages.

`)

	if len(tags) > 0 {
		sb.WriteString("Tags in use: ")
		parts := make([]string, len(tags))
		for i, t := range tags {
			parts[i] = fmt.Sprintf("@%s (%d)", t.Tag, t.UseCount)
		}
		sb.WriteString(strings.Join(parts, ", "))
		sb.WriteString("\n\n")
	}

	sb.WriteString("Entries:\n")
	for _, e := range entries {
		sb.WriteString(e.Parsed)
		sb.WriteString("\n")
	}

	sb.WriteString("\nAnswer the question concisely, in plain text.")
	return sb.String()
}

type apiRequest struct {
	Model     string       `json:"model"`
	MaxTokens int          `json:"max_tokens"`
	Messages  []apiMessage `json:"messages"`
}

type apiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type apiResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
	Error *struct {
		Message string `json:"message"`
	} `json:"error,omitempty"`
}

func (q *Querier) callAPI(prompt string) (string, error) {
	reqBody := apiRequest{
		Model:     q.model,
		MaxTokens: 1024,
		Messages: []apiMessage{
			{Role: "user", Content: prompt},
		},
	}

	jsonBody, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	req, err := http.NewRequest("POST", q.baseURL, bytes.NewReader(jsonBody))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-api-key", q.apiKey)
	req.Header.Set("anthropic-version", "2023-06-01")

	resp, err := q.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("api error (status %d): %s", resp.StatusCode, string(body))
	}

	var apiResp apiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	if apiResp.Error != nil {
		return "", fmt.Errorf("api error: %s", apiResp.Error.Message)
	}

	if len(apiResp.Content) == 0 {
		return "", fmt.Errorf("empty response")
	}

	return apiResp.Content[0].Text, nil
}
