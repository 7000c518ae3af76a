package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"
)

// Default client configuration values
const (
	DefaultTimeout = 30 * time.Second
	DefaultModel   = "deepseek-v3-250324"
	DefaultBaseURL = "https://ark.cn-beijing.volces.com/api/v3"
)

// Client recognizes intents through an OpenAI-compatible
// chat-completions API. Any failure (transport, non-2xx status,
// malformed response) is logged and answered by the Local matcher
// instead, so Recognize never returns an error to the caller.
type Client struct {
	apiKey     string
	baseURL    string
	model      string
	httpClient *http.Client
	fallback   Local
}

// Option configures the client.
type Option func(*Client)

// WithAPIKey sets the API key.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		c.apiKey = key
	}
}

// WithBaseURL sets the API base URL.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimSuffix(url, "/")
	}
}

// WithModel sets the model name.
func WithModel(model string) Option {
	return func(c *Client) {
		c.model = model
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(client *http.Client) Option {
	return func(c *Client) {
		c.httpClient = client
	}
}

// NewClient creates a chat-completions recognizer. The API key
// defaults to the ARK_API_KEY environment variable.
func NewClient(opts ...Option) *Client {
	c := &Client{
		apiKey:  os.Getenv("ARK_API_KEY"),
		baseURL: DefaultBaseURL,
		model:   DefaultModel,
		httpClient: &http.Client{
			Timeout: DefaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

const systemPrompt = `You are an intent recognition assistant for a customer service bot. Analyze the user input and identify its intent.

Return the result in this JSON format:
` + "```json" + `
{
    "intent": "intent name",
    "confidence": 0.95,
    "entities": {"entity name": "entity value"},
    "reasoning": "brief explanation"
}
` + "```" + `

Rules:
1. intent must be one of the listed intents, or "unknown" if none match
2. confidence is a score between 0 and 1
3. entities holds key facts extracted from the input (order numbers, phone numbers, amounts)
4. Return only the JSON, nothing else`

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	Temperature float64       `json:"temperature"`
	MaxTokens   int           `json:"max_tokens"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Recognize asks the model to classify the utterance. On any failure
// it logs a warning and degrades to the Local matcher.
func (c *Client) Recognize(ctx context.Context, utterance string, intents []Intent, dialogue *Context) (*Result, error) {
	names := make([]string, len(intents))
	for i, intent := range intents {
		names[i] = intent.Name
	}

	content, err := c.complete(ctx, c.buildPrompt(utterance, intents, dialogue))
	if err != nil {
		slog.Warn("intent recognition failed, using local matcher", "error", err)
		return c.fallback.Recognize(ctx, utterance, intents, dialogue)
	}

	result := parseIntentResponse(content, names)
	if len(result.Entities) == 0 {
		result.Entities = ExtractEntities(utterance, []string{"order_id", "phone", "amount"})
	}
	return result, nil
}

func (c *Client) buildPrompt(utterance string, intents []Intent, dialogue *Context) string {
	var sb strings.Builder
	sb.WriteString("Available intents:\n")
	for _, intent := range intents {
		fmt.Fprintf(&sb, "- **%s**: %s\n", intent.Name, intent.Description)
		if len(intent.Patterns) > 0 {
			fmt.Fprintf(&sb, "  keywords: %s\n", strings.Join(intent.Patterns, ", "))
		}
		if len(intent.Examples) > 0 {
			examples := intent.Examples
			if len(examples) > 3 {
				examples = examples[:3]
			}
			fmt.Fprintf(&sb, "  examples: %s\n", strings.Join(examples, ", "))
		}
	}

	if dialogue != nil {
		snapshot, err := json.MarshalIndent(map[string]any{
			"current_state": dialogue.CurrentState,
			"variables":     dialogue.Variables,
		}, "", "  ")
		if err == nil {
			fmt.Fprintf(&sb, "\nCurrent context:\n```json\n%s\n```\n", snapshot)
		}
	}

	fmt.Fprintf(&sb, "\nUser input: %q\n\nIdentify the user's intent.", utterance)
	return sb.String()
}

func (c *Client) complete(ctx context.Context, userPrompt string) (string, error) {
	req := chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		Temperature: 0.3,
		MaxTokens:   200,
	}

	resp, err := c.doRequest(ctx, &req)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("empty completion response")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) doRequest(ctx context.Context, req *chatRequest) (*chatResponse, error) {
	const maxRetries = 3

	for attempt := 0; attempt <= maxRetries; attempt++ {
		httpReq, err := c.createHTTPRequest(ctx, req)
		if err != nil {
			return nil, err
		}

		httpResp, err := c.httpClient.Do(httpReq)
		if err != nil {
			return nil, fmt.Errorf("http request: %w", err)
		}

		body, err := io.ReadAll(httpResp.Body)
		httpResp.Body.Close()
		if err != nil {
			return nil, fmt.Errorf("read response: %w", err)
		}

		if httpResp.StatusCode == http.StatusOK {
			var resp chatResponse
			if err := json.Unmarshal(body, &resp); err != nil {
				return nil, fmt.Errorf("unmarshal response: %w", err)
			}
			return &resp, nil
		}

		if httpResp.StatusCode == http.StatusTooManyRequests && attempt < maxRetries {
			wait := retryAfterDelay(httpResp, attempt)
			slog.Warn("API rate limited, retrying", "status", httpResp.StatusCode, "attempt", attempt+1, "wait", wait)
			select {
			case <-time.After(wait):
				continue
			case <-ctx.Done():
				return nil, ctx.Err()
			}
		}

		return nil, fmt.Errorf("API error %d: %s", httpResp.StatusCode, string(body))
	}

	return nil, fmt.Errorf("max retries exceeded")
}

func (c *Client) createHTTPRequest(ctx context.Context, req *chatRequest) (*http.Request, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, "POST", c.baseURL+"/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}

	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	return httpReq, nil
}

// retryAfterDelay returns how long to wait before retrying a rate-limited
// request. It respects the retry-after header if present, otherwise uses
// exponential backoff.
func retryAfterDelay(resp *http.Response, attempt int) time.Duration {
	if ra := resp.Header.Get("retry-after"); ra != "" {
		if secs, err := strconv.Atoi(ra); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	wait := time.Duration(2<<uint(attempt)) * time.Second
	if wait > 30*time.Second {
		wait = 30 * time.Second
	}
	return wait
}

// parseIntentResponse extracts the model's JSON verdict. Markdown code
// fences are stripped and the outermost {...} is taken, since models
// often wrap or pad the JSON. An intent name not on the candidate list
// is fuzzily matched by case-insensitive substring, else "unknown".
func parseIntentResponse(text string, validIntents []string) *Result {
	text = stripFences(strings.TrimSpace(text))

	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start >= 0 && end > start {
		text = text[start : end+1]
	}

	var raw struct {
		Intent     string         `json:"intent"`
		Confidence float64        `json:"confidence"`
		Entities   map[string]any `json:"entities"`
		Reasoning  string         `json:"reasoning"`
	}
	raw.Confidence = 0.5
	if err := json.Unmarshal([]byte(text), &raw); err != nil {
		reason := text
		if len(reason) > 100 {
			reason = reason[:100]
		}
		return &Result{
			Intent:    IntentUnknown,
			Entities:  map[string]string{},
			Reasoning: "failed to parse response: " + reason,
		}
	}

	intent := raw.Intent
	if intent == "" {
		intent = IntentUnknown
	}
	if intent != IntentUnknown && !contains(validIntents, intent) {
		intent = fuzzyIntent(intent, validIntents)
	}

	entities := make(map[string]string, len(raw.Entities))
	for k, v := range raw.Entities {
		entities[k] = fmt.Sprint(v)
	}

	return &Result{
		Intent:     intent,
		Confidence: raw.Confidence,
		Entities:   entities,
		Reasoning:  raw.Reasoning,
	}
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	lines := strings.Split(text, "\n")
	lines = lines[1:]
	if len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "```" {
		lines = lines[:len(lines)-1]
	}
	return strings.Join(lines, "\n")
}

func contains(list []string, s string) bool {
	for _, item := range list {
		if item == s {
			return true
		}
	}
	return false
}

func fuzzyIntent(name string, validIntents []string) string {
	lower := strings.ToLower(name)
	for _, valid := range validIntents {
		validLower := strings.ToLower(valid)
		if strings.Contains(validLower, lower) || strings.Contains(lower, validLower) {
			return valid
		}
	}
	return IntentUnknown
}
