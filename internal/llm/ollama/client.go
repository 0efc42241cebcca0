// Package ollama implements the classify.Provider interface against a local
// Ollama-compatible generative endpoint.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/linnemanlabs/sift/internal/classify"
)

// Client talks to an Ollama-compatible /api/generate endpoint.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the endpoint at baseURL, e.g.
// "http://localhost:11434". Local models can be slow on long prompts, so the
// timeout is generous.
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 120 * time.Second,
		},
	}
}

// request is the payload sent to /api/generate. Streaming is always disabled;
// callers want one complete reply.
type request struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options options `json:"options"`
}

type options struct {
	Temperature float64 `json:"temperature"`
	TopP        float64 `json:"top_p"`
	NumPredict  int     `json:"num_predict"`
	NumCtx      int     `json:"num_ctx"`
}

// response is the payload received from /api/generate.
type response struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Generate sends one prompt and returns the model's raw text reply.
func (c *Client) Generate(ctx context.Context, req *classify.GenerateRequest) (string, error) {
	body, err := json.Marshal(&request{
		Model:  req.Model,
		Prompt: req.Prompt,
		Stream: false,
		Options: options{
			Temperature: req.Temperature,
			TopP:        req.TopP,
			NumPredict:  req.MaxTokens,
			NumCtx:      req.ContextWindow,
		},
	})
	if err != nil {
		return "", fmt.Errorf("marshal request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost,
		c.baseURL+"/api/generate", bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return "", fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("ollama api error %d: %s", resp.StatusCode, string(respBody))
	}

	var out response
	if err := json.Unmarshal(respBody, &out); err != nil {
		return "", fmt.Errorf("unmarshal response: %w", err)
	}

	return out.Response, nil
}
