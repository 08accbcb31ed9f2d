package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

const defaultTextModel = "haven-relay-1"

// TextModelProvider is the secondary backend: a plain text-completion API
// that takes a single concatenated prompt. The instruction and recent
// history are folded into the prompt because the endpoint has no notion of
// roles.
type TextModelProvider struct {
	apiKey     string
	apiBase    string
	opts       Options
	httpClient *http.Client
}

func NewTextModelProvider(apiKey, apiBase, proxy string, opts Options) *TextModelProvider {
	client := &http.Client{Timeout: 120 * time.Second}

	if proxy != "" {
		proxyURL, err := url.Parse(proxy)
		if err == nil {
			client.Transport = &http.Transport{Proxy: http.ProxyURL(proxyURL)}
		}
	}

	if opts.Model == "" {
		opts.Model = defaultTextModel
	}

	return &TextModelProvider{
		apiKey:     apiKey,
		apiBase:    strings.TrimRight(apiBase, "/"),
		opts:       opts,
		httpClient: client,
	}
}

func (p *TextModelProvider) Name() string { return "text-model" }

func (p *TextModelProvider) Generate(ctx context.Context, instruction string, history []Message, userMessage string) (string, error) {
	if p.apiBase == "" {
		return "", fmt.Errorf("text model API base not configured")
	}

	requestBody := map[string]interface{}{
		"model":  p.opts.Model,
		"prompt": buildPrompt(instruction, history, userMessage),
	}
	if p.opts.MaxTokens > 0 {
		requestBody["max_tokens"] = p.opts.MaxTokens
	}
	if p.opts.Temperature > 0 {
		requestBody["temperature"] = p.opts.Temperature
	}

	jsonData, err := json.Marshal(requestBody)
	if err != nil {
		return "", fmt.Errorf("failed to marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.apiBase+"/completions", bytes.NewReader(jsonData))
	if err != nil {
		return "", fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("text model request failed:\n  Status: %d\n  Body:   %s", resp.StatusCode, string(body))
	}

	return parseCompletion(body)
}

func buildPrompt(instruction string, history []Message, userMessage string) string {
	var b strings.Builder
	b.WriteString(instruction)
	b.WriteString("\n\nConversation so far:\n")
	for _, m := range history {
		speaker := "Them"
		if m.Role == RoleAssistant {
			speaker = "You"
		}
		fmt.Fprintf(&b, "%s: %s\n", speaker, m.Content)
	}
	fmt.Fprintf(&b, "Them: %s\nYou:", userMessage)
	return b.String()
}

func parseCompletion(body []byte) (string, error) {
	var apiResponse struct {
		Choices []struct {
			Text string `json:"text"`
		} `json:"choices"`
	}

	if err := json.Unmarshal(body, &apiResponse); err != nil {
		return "", fmt.Errorf("failed to unmarshal response: %w", err)
	}

	if len(apiResponse.Choices) == 0 {
		return "", nil
	}
	return strings.TrimSpace(apiResponse.Choices[0].Text), nil
}
