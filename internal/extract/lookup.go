package extract

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"mintsniper/internal/domain"
)

// Lookup is the external text-to-address fallback. Responses are untrusted:
// the model may hallucinate strings that look like addresses, so callers must
// re-validate against the live index before accepting anything.
type Lookup interface {
	// FindAddress returns at most one candidate address for the given text,
	// or "" when the service finds none.
	FindAddress(ctx context.Context, text string) (string, error)
}

const lookupPrompt = "Extract the Solana token mint address from the following " +
	"message. Reply with the address only, or NONE if there is no address.\n\n"

// HTTPLookupConfig configures the chat-completions lookup client.
type HTTPLookupConfig struct {
	Endpoint string
	APIKey   string
	Model    string
	Timeout  time.Duration
}

// HTTPLookup implements Lookup against an OpenAI-compatible chat completions
// endpoint.
type HTTPLookup struct {
	cfg    HTTPLookupConfig
	client *http.Client
}

// NewHTTPLookup creates a new HTTP lookup client.
func NewHTTPLookup(cfg HTTPLookupConfig) *HTTPLookup {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}
	return &HTTPLookup{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
	}
}

// Compile-time interface check.
var _ Lookup = (*HTTPLookup)(nil)

type completionRequest struct {
	Model    string              `json:"model"`
	Messages []completionMessage `json:"messages"`
}

type completionMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type completionResponse struct {
	Choices []struct {
		Message completionMessage `json:"message"`
	} `json:"choices"`
}

// FindAddress submits the text and scans the reply for the first
// address-shaped base58 run.
func (l *HTTPLookup) FindAddress(ctx context.Context, text string) (string, error) {
	reqBody := completionRequest{
		Model: l.cfg.Model,
		Messages: []completionMessage{
			{Role: "user", Content: lookupPrompt + text},
		},
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		return "", fmt.Errorf("marshal lookup request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, l.cfg.Endpoint, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build lookup request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if l.cfg.APIKey != "" {
		req.Header.Set("Authorization", "Bearer "+l.cfg.APIKey)
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("lookup request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return "", fmt.Errorf("lookup status %d: %s", resp.StatusCode, string(body))
	}

	var parsed completionResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode lookup response: %w", err)
	}
	if len(parsed.Choices) == 0 {
		return "", nil
	}

	return firstAddressShaped(parsed.Choices[0].Message.Content), nil
}

// firstAddressShaped returns the first address-shaped base58 run in s, or "".
func firstAddressShaped(s string) string {
	i := 0
	for i < len(s) {
		if !domain.IsBase58Byte(s[i]) {
			i++
			continue
		}
		start := i
		for i < len(s) && domain.IsBase58Byte(s[i]) {
			i++
		}
		run := s[start:i]
		if domain.IsAddressShaped(run) {
			return run
		}
	}
	return ""
}
