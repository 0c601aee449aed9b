package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"strings"
	"time"
)

const (
	defaultBaseURL = "https://api.openai.com/v1"
	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
)

// Compile-time check that OpenAI implements Client.
var _ Client = (*OpenAI)(nil)

// OpenAI talks to an OpenAI-compatible HTTP API for chat completions and
// embeddings. Each request carries a timeout; a timeout surfaces as an error
// and callers treat it like any other backend failure.
type OpenAI struct {
	apiKey     string
	baseURL    string
	chatModel  string
	embedModel string
	httpClient *http.Client
}

// NewOpenAI creates a client for the given models. An empty baseURL selects
// the public OpenAI endpoint; tests point it at a local server.
func NewOpenAI(apiKey, baseURL, chatModel, embedModel string) *OpenAI {
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	return &OpenAI{
		apiKey:     apiKey,
		baseURL:    strings.TrimRight(baseURL, "/"),
		chatModel:  chatModel,
		embedModel: embedModel,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
}

// wireMessage is a chat message in the OpenAI API format.
type wireMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// wireRole maps internal history roles to OpenAI chat roles.
func wireRole(r Role) string {
	switch r {
	case RoleAsker:
		return "user"
	case RoleResponder:
		return "assistant"
	default:
		return string(r)
	}
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []wireMessage `json:"messages"`
	Temperature float64       `json:"temperature,omitempty"`
	MaxTokens   int           `json:"max_tokens,omitempty"`
}

type chatResponse struct {
	Choices []struct {
		Message wireMessage `json:"message"`
	} `json:"choices"`
}

// Chat sends the system prompt and history to the chat completions endpoint
// and returns the assistant's reply. Rate-limited requests are retried with
// exponential backoff.
func (c *OpenAI) Chat(ctx context.Context, systemPrompt string, history []Message, opts Options) (string, error) {
	msgs := make([]wireMessage, 0, len(history)+1)
	msgs = append(msgs, wireMessage{Role: "system", Content: systemPrompt})
	for _, m := range history {
		msgs = append(msgs, wireMessage{Role: wireRole(m.Role), Content: m.Content})
	}

	body, err := json.Marshal(chatRequest{
		Model:       c.chatModel,
		Messages:    msgs,
		Temperature: opts.Temperature,
		MaxTokens:   opts.MaxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshaling chat request: %w", err)
	}

	respBody, err := c.post(ctx, "/chat/completions", body)
	if err != nil {
		return "", err
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return "", fmt.Errorf("decoding chat response: %w", err)
	}
	if len(result.Choices) == 0 {
		return "", fmt.Errorf("chat: empty choices array")
	}
	return strings.TrimSpace(result.Choices[0].Message.Content), nil
}

type embedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type embedResponse struct {
	Data []struct {
		Embedding []float64 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for the given text.
func (c *OpenAI) Embed(ctx context.Context, text string) ([]float64, error) {
	body, err := json.Marshal(embedRequest{Model: c.embedModel, Input: text})
	if err != nil {
		return nil, fmt.Errorf("marshaling embed request: %w", err)
	}

	respBody, err := c.post(ctx, "/embeddings", body)
	if err != nil {
		return nil, err
	}

	var result embedResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, fmt.Errorf("decoding embed response: %w", err)
	}
	if len(result.Data) == 0 || len(result.Data[0].Embedding) == 0 {
		return nil, fmt.Errorf("embed: empty embedding in response")
	}
	return result.Data[0].Embedding, nil
}

// rateLimitError is returned on HTTP 429.
type rateLimitError struct {
	status int
}

func (e *rateLimitError) Error() string {
	return fmt.Sprintf("rate limited (HTTP %d)", e.status)
}

func isRateLimit(err error) bool {
	_, ok := err.(*rateLimitError)
	return ok
}

// post executes a JSON POST against the backend, retrying on rate limits.
func (c *OpenAI) post(ctx context.Context, path string, body []byte) ([]byte, error) {
	var lastErr error
	for attempt := range maxRetries {
		respBody, err := c.doPost(ctx, path, body)
		if err == nil {
			return respBody, nil
		}
		if !isRateLimit(err) {
			return nil, err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(initialBackoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return nil, fmt.Errorf("rate limited after %d retries: %w", maxRetries, lastErr)
}

func (c *OpenAI) doPost(ctx context.Context, path string, body []byte) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("executing request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusTooManyRequests {
		return nil, &rateLimitError{status: resp.StatusCode}
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("unexpected status %d: %s", resp.StatusCode, string(respBody))
	}

	return io.ReadAll(resp.Body)
}
