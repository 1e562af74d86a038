package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strconv"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.deepseek.com/chat/completions"
	defaultModel   = "deepseek-chat"
	defaultTimeout = 15 * time.Second

	defaultAttempts    = 3
	defaultBackoffBase = time.Second
	defaultBackoffMax  = 10 * time.Second

	// maxResponseBytes bounds how much of a completion body is read. Title
	// and metadata answers are a few hundred bytes; anything near the limit
	// is garbage.
	maxResponseBytes = 1 << 20
)

// Config captures the runtime settings required to talk to the LLM.
type Config struct {
	APIKey         string
	BaseURL        string
	Model          string
	Referer        string
	Title          string
	TimeoutSeconds int
}

// Client wraps an OpenAI-compatible chat completion API. The default
// configuration targets DeepSeek; any endpoint speaking the same schema
// (OpenRouter, a local gateway) works by overriding BaseURL and Model.
type Client struct {
	apiKey  string
	baseURL string
	model   string
	referer string
	title   string
	http    *http.Client

	attempts    int
	backoffBase time.Duration
	backoffMax  time.Duration
	sleep       func(time.Duration)
}

// Option customizes the client.
type Option func(*Client)

// WithRetryMaxAttempts caps how many times a completion is attempted.
func WithRetryMaxAttempts(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.attempts = n
		}
	}
}

// WithRetryBackoff sets the initial and maximum delay between attempts.
func WithRetryBackoff(base, max time.Duration) Option {
	return func(c *Client) {
		c.backoffBase = base
		c.backoffMax = max
	}
}

// WithSleeper replaces the blocking sleep between attempts (tests).
func WithSleeper(fn func(time.Duration)) Option {
	return func(c *Client) {
		if fn != nil {
			c.sleep = fn
		}
	}
}

// NewClient constructs an LLM client from the supplied configuration.
func NewClient(cfg Config, opts ...Option) *Client {
	timeout := defaultTimeout
	if cfg.TimeoutSeconds > 0 {
		timeout = time.Duration(cfg.TimeoutSeconds) * time.Second
	}
	c := &Client{
		apiKey:      strings.TrimSpace(cfg.APIKey),
		baseURL:     strings.TrimSpace(cfg.BaseURL),
		model:       strings.TrimSpace(cfg.Model),
		referer:     strings.TrimSpace(cfg.Referer),
		title:       strings.TrimSpace(cfg.Title),
		http:        &http.Client{Timeout: timeout},
		attempts:    defaultAttempts,
		backoffBase: defaultBackoffBase,
		backoffMax:  defaultBackoffMax,
	}
	if c.baseURL == "" {
		c.baseURL = defaultBaseURL
	}
	if c.model == "" {
		c.model = defaultModel
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Configured reports whether the client has an API key and can issue
// requests.
func (c *Client) Configured() bool {
	return c != nil && c.apiKey != ""
}

// Model returns the configured model identifier.
func (c *Client) Model() string {
	if c == nil {
		return ""
	}
	return c.model
}

// CompleteJSON asks the model for a JSON-only answer to the prompts and
// returns the raw JSON text.
func (c *Client) CompleteJSON(ctx context.Context, systemPrompt, userPrompt string) (string, error) {
	if !c.Configured() {
		return "", errors.New("llm: api key required")
	}
	systemPrompt = strings.TrimSpace(systemPrompt)
	userPrompt = strings.TrimSpace(userPrompt)
	if systemPrompt == "" || userPrompt == "" {
		return "", errors.New("llm: system and user prompts are required")
	}
	return c.complete(ctx, "completion", systemPrompt, userPrompt)
}

// HealthCheck verifies the API key and model with a minimal round trip.
func (c *Client) HealthCheck(ctx context.Context) error {
	if !c.Configured() {
		return errors.New("llm: api key required")
	}
	content, err := c.complete(ctx, "health check",
		"You must respond with JSON only.",
		`Respond with {"ok":true}`,
	)
	if err != nil {
		return err
	}
	var answer struct {
		OK bool `json:"ok"`
	}
	if err := DecodeLLMJSON(content, &answer); err != nil {
		return fmt.Errorf("llm: health check answer: %w", err)
	}
	if !answer.OK {
		return errors.New("llm: health check got an unexpected answer")
	}
	return nil
}

// complete runs the chat request, retrying recoverable failures until
// content arrives or the attempts are spent.
func (c *Client) complete(ctx context.Context, op, systemPrompt, userPrompt string) (string, error) {
	body, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: userPrompt},
		},
		ResponseFormat: responseFormat{Type: "json_object"},
	})
	if err != nil {
		return "", fmt.Errorf("llm: encode %s request: %w", op, err)
	}

	backoff := c.backoffBase
	var lastErr error
	for attempt := 1; attempt <= c.attempts; attempt++ {
		content, err := c.send(ctx, body)
		if err == nil {
			return content, nil
		}
		lastErr = err
		if ctx.Err() != nil || attempt == c.attempts || !retriable(err) {
			break
		}
		if sleepErr := c.pause(ctx, delayFor(err, backoff, c.backoffMax)); sleepErr != nil {
			return "", sleepErr
		}
		backoff = doubleDelay(backoff, c.backoffMax)
	}
	return "", fmt.Errorf("llm: %s failed: %w", op, lastErr)
}

// send performs one chat request and extracts the completion text.
func (c *Client) send(ctx context.Context, body []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("llm: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")
	if c.referer != "" {
		// OpenRouter attribution headers; other providers ignore them.
		req.Header.Set("HTTP-Referer", c.referer)
		req.Header.Set("Referer", c.referer)
	}
	if c.title != "" {
		req.Header.Set("X-Title", c.title)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("llm: request: %w", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", fmt.Errorf("llm: read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return "", &statusError{
			Code:       resp.StatusCode,
			Body:       strings.TrimSpace(string(raw)),
			RetryAfter: retryAfter(resp.Header),
		}
	}

	var parsed chatResponse
	if err := json.Unmarshal(raw, &parsed); err != nil {
		return "", fmt.Errorf("llm: decode response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("llm: api error: %s", strings.TrimSpace(parsed.Error.Message))
	}
	for _, choice := range parsed.Choices {
		if content := choice.payload(); content != "" {
			return content, nil
		}
	}
	return "", &emptyContentError{
		FinishReason: parsed.finishReason(),
		Refusal:      parsed.refusal(),
		Snippet:      snippet(string(raw)),
	}
}

// pause sleeps between attempts, bailing out when the context ends.
func (c *Client) pause(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	if c.sleep != nil {
		c.sleep(d)
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

type statusError struct {
	Code       int
	Body       string
	RetryAfter time.Duration
}

func (e *statusError) Error() string {
	return fmt.Sprintf("llm: http %d: %s", e.Code, e.Body)
}

type emptyContentError struct {
	FinishReason string
	Refusal      string
	Snippet      string
}

func (e *emptyContentError) Error() string {
	return fmt.Sprintf("llm: empty content (finish_reason=%q, refusal=%q, response_snippet=%s)",
		e.FinishReason, e.Refusal, e.Snippet)
}

// retriable reports whether another attempt can help: rate limits, server
// trouble, per-request timeouts, and completions that came back empty.
// Cancellation is final.
func retriable(err error) bool {
	var status *statusError
	if errors.As(err, &status) {
		return status.Code == http.StatusTooManyRequests ||
			status.Code == http.StatusRequestTimeout ||
			status.Code >= http.StatusInternalServerError
	}
	var empty *emptyContentError
	if errors.As(err, &empty) {
		return true
	}
	if errors.Is(err, context.Canceled) {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr) && netErr.Timeout()
}

// delayFor picks the pause before the next attempt, preferring the server's
// Retry-After over the local backoff.
func delayFor(err error, backoff, max time.Duration) time.Duration {
	var status *statusError
	if errors.As(err, &status) && status.RetryAfter > 0 {
		if max > 0 && status.RetryAfter > max {
			return max
		}
		return status.RetryAfter
	}
	return backoff
}

// doubleDelay grows the backoff up to the cap.
func doubleDelay(current, max time.Duration) time.Duration {
	if current <= 0 {
		return current
	}
	if next := current * 2; max <= 0 || next < max {
		return next
	}
	return max
}

// retryAfter reads a Retry-After header, accepting both the seconds form
// and the HTTP-date form.
func retryAfter(h http.Header) time.Duration {
	value := strings.TrimSpace(h.Get("Retry-After"))
	if value == "" {
		return 0
	}
	if secs, err := strconv.Atoi(value); err == nil {
		if secs > 0 {
			return time.Duration(secs) * time.Second
		}
		return 0
	}
	if when, err := http.ParseTime(value); err == nil {
		if d := time.Until(when); d > 0 {
			return d
		}
	}
	return 0
}

type chatRequest struct {
	Model          string         `json:"model"`
	Messages       []chatMessage  `json:"messages"`
	Temperature    float64        `json:"temperature"`
	ResponseFormat responseFormat `json:"response_format"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type responseFormat struct {
	Type string `json:"type"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Error   *struct {
		Message string `json:"message"`
	} `json:"error"`
}

type chatChoice struct {
	Message      chatOutput `json:"message"`
	Delta        chatOutput `json:"delta"`
	Text         string     `json:"text"`
	FinishReason string     `json:"finish_reason"`
}

type chatOutput struct {
	Content   string `json:"content"`
	Refusal   string `json:"refusal"`
	ToolCalls []struct {
		Function struct {
			Arguments string `json:"arguments"`
		} `json:"function"`
	} `json:"tool_calls"`
}

// payload returns the first usable answer text in the choice. Some
// providers answer with the streaming shape (delta) or the legacy text
// field even when streaming is off, and JSON-mode answers occasionally
// arrive as tool call arguments, so all of those count.
func (ch chatChoice) payload() string {
	for _, out := range [2]chatOutput{ch.Message, ch.Delta} {
		if s := strings.TrimSpace(out.Content); s != "" {
			return s
		}
		for _, call := range out.ToolCalls {
			if s := strings.TrimSpace(call.Function.Arguments); s != "" {
				return s
			}
		}
	}
	return strings.TrimSpace(ch.Text)
}

func (r chatResponse) finishReason() string {
	for _, choice := range r.Choices {
		if s := strings.TrimSpace(choice.FinishReason); s != "" {
			return s
		}
	}
	return ""
}

func (r chatResponse) refusal() string {
	for _, choice := range r.Choices {
		if s := strings.TrimSpace(choice.Message.Refusal); s != "" {
			return s
		}
		if s := strings.TrimSpace(choice.Delta.Refusal); s != "" {
			return s
		}
	}
	return ""
}

// DecodeLLMJSON unmarshals a model answer into target, tolerating the
// wrappers models add around JSON: code fences, leading prose, trailing
// commentary.
func DecodeLLMJSON(content string, target any) error {
	content = strings.TrimSpace(content)
	if content == "" {
		return errors.New("empty payload")
	}
	if err := json.Unmarshal([]byte(content), target); err == nil {
		return nil
	}
	extracted := extractJSON(content)
	if extracted == "" {
		return fmt.Errorf("no JSON found in %s", snippet(content))
	}
	if err := json.Unmarshal([]byte(extracted), target); err != nil {
		return fmt.Errorf("decode model answer %s: %w", snippet(extracted), err)
	}
	return nil
}

// extractJSON slices the outermost JSON object or array out of text.
func extractJSON(text string) string {
	text = strings.TrimSpace(trimFences(text))
	for _, pair := range [2][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start >= 0 && end > start {
			return strings.TrimSpace(text[start : end+1])
		}
	}
	return ""
}

// trimFences strips a surrounding markdown code fence, with or without the
// json language tag.
func trimFences(text string) string {
	text = strings.TrimSpace(text)
	rest, ok := strings.CutPrefix(text, "```")
	if !ok {
		return text
	}
	rest = strings.TrimSpace(rest)
	if tail, tagged := strings.CutPrefix(rest, "json"); tagged {
		rest = tail
	}
	if end := strings.LastIndex(rest, "```"); end >= 0 {
		rest = rest[:end]
	}
	return strings.TrimSpace(rest)
}

// snippet renders content for error messages on one line, truncated.
func snippet(content string) string {
	flat := strings.Join(strings.Fields(content), " ")
	if flat == "" {
		return `""`
	}
	const limit = 160
	if runes := []rune(flat); len(runes) > limit {
		flat = string(runes[:limit]) + "..."
	}
	return strconv.Quote(flat)
}
