package summary

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/DjordjeVuckovic/news-digest/internal/apperr"
)

const (
	defaultTimeout = 120 * time.Second
	// maxContentRunes bounds the article text sent to the model.
	maxContentRunes = 6000
	systemPrompt    = "Return JSON only. Be concise. Use the keys one_liner (string) and bullets (array of exactly 3 strings)."
)

type OllamaOption func(client *OllamaSummarizer)

// OllamaSummarizer calls the Ollama chat API with JSON output.
type OllamaSummarizer struct {
	base  url.URL
	model string
	http  *http.Client
}

func NewOllamaSummarizer(baseURL, model string, opts ...OllamaOption) (*OllamaSummarizer, error) {
	base, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("invalid ollama base url: %w", err)
	}
	if model == "" {
		return nil, apperr.NewValidation("missing summary model name")
	}

	s := &OllamaSummarizer{
		base:  *base,
		model: model,
		http: &http.Client{
			Timeout: defaultTimeout,
		},
	}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

func WithHttpClient(httpClient *http.Client) OllamaOption {
	return func(s *OllamaSummarizer) {
		s.http = httpClient
	}
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model    string         `json:"model"`
	Messages []chatMessage  `json:"messages"`
	Format   string         `json:"format"`
	Stream   bool           `json:"stream"`
	Options  map[string]any `json:"options,omitempty"`
}

type chatResponse struct {
	Message chatMessage `json:"message"`
	Done    bool        `json:"done"`
}

func (s *OllamaSummarizer) Summarize(ctx context.Context, title, text string) (*Summary, error) {
	if text == "" {
		return nil, apperr.NewValidation("missing text to summarize")
	}

	req := chatRequest{
		Model: s.model,
		Messages: []chatMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: fmt.Sprintf("Title: %s\n\nArticle:\n%s\n\nSummarize into 1 one-liner + 3 bullets.", title, truncateRunes(text, maxContentRunes))},
		},
		Format:  "json",
		Stream:  false,
		Options: map[string]any{"temperature": 0},
	}

	var resp chatResponse
	if err := s.do(ctx, http.MethodPost, "/api/chat", req, &resp); err != nil {
		return nil, err
	}

	var sum Summary
	if err := json.Unmarshal([]byte(resp.Message.Content), &sum); err != nil {
		return nil, fmt.Errorf("failed to decode summary json: %w", err)
	}
	if err := sum.Validate(); err != nil {
		return nil, err
	}
	return &sum, nil
}

func (s *OllamaSummarizer) do(ctx context.Context, method, path string, reqData, respData any) error {
	reqDataBytes, err := json.Marshal(reqData)
	if err != nil {
		return err
	}

	reqURL := s.base.JoinPath(path)
	request, err := http.NewRequestWithContext(ctx, method, reqURL.String(), bytes.NewReader(reqDataBytes))
	if err != nil {
		return err
	}

	request.Header.Set("Content-Type", "application/json")
	request.Header.Set("Accept", "application/json")

	resp, err := s.http.Do(request)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status code: %d, body: %s", resp.StatusCode, string(respBody))
	}

	if err := json.Unmarshal(respBody, respData); err != nil {
		return fmt.Errorf("unmarshal response: %w", err)
	}

	return nil
}

func truncateRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
