package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/dreamlog/backend/internal/config"
)

// ErrUnavailable indicates the AI service could not produce a result
// (timeout, upstream error, malformed response). The adapter never
// silently returns the unmodified input.
var ErrUnavailable = errors.New("ai service unavailable")

// Client calls a DashScope-compatible text generation endpoint.
type Client struct {
	apiKey     string
	apiURL     string
	model      string
	httpClient *http.Client
}

func NewClient(cfg *config.Config) *Client {
	timeout := time.Duration(cfg.AITimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		apiKey: cfg.AIAPIKey,
		apiURL: cfg.AIAPIURL,
		model:  cfg.AIModel,
		httpClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// Model returns the configured model identifier, recorded on polished versions.
func (c *Client) Model() string {
	return c.model
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []chatMessage `json:"messages"`
	} `json:"input"`
	Parameters struct {
		ResultFormat string  `json:"result_format"`
		Temperature  float64 `json:"temperature"`
		MaxTokens    int     `json:"max_tokens"`
	} `json:"parameters"`
}

type chatResponse struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
		Text string `json:"text"`
	} `json:"output"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Chat sends a prompt to the AI service and returns the assistant text.
func (c *Client) Chat(ctx context.Context, prompt string) (string, error) {
	if c.apiKey == "" {
		return "", fmt.Errorf("%w: AI_API_KEY not configured", ErrUnavailable)
	}

	reqBody := chatRequest{Model: c.model}
	reqBody.Input.Messages = []chatMessage{
		{Role: "system", Content: "你是一个专业的梦境解析师，擅长心理学和传统解梦文化。"},
		{Role: "user", Content: prompt},
	}
	reqBody.Parameters.ResultFormat = "message"
	reqBody.Parameters.Temperature = 0.7
	reqBody.Parameters.MaxTokens = 1500

	b, err := json.Marshal(reqBody)
	if err != nil {
		return "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.apiURL, bytes.NewReader(b))
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("%w: status %d: %s", ErrUnavailable, resp.StatusCode, string(body))
	}

	var parsed chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("%w: %v", ErrUnavailable, err)
	}

	if len(parsed.Output.Choices) > 0 {
		if content := strings.TrimSpace(parsed.Output.Choices[0].Message.Content); content != "" {
			return content, nil
		}
	}
	if text := strings.TrimSpace(parsed.Output.Text); text != "" {
		return text, nil
	}

	return "", fmt.Errorf("%w: empty response from model", ErrUnavailable)
}
