package gemini

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sirupsen/logrus"
)

// DefaultPrompt is used when no system prompt is configured.
const DefaultPrompt = "你是一个视频内容分析专家。请分析这段视频音频内容，提供一个简洁扼要的总结（包含核心内容、关键点），并推荐3-5个吸引人的视频标题。请用中文回答。"

// resultPlaceholder stands in when the provider returns a success shape
// without the expected text field.
const resultPlaceholder = "分析失败，请稍后重试。"

const audioMIMEType = "audio/mpeg"

// Generation parameters are fixed, not user-configurable.
const (
	generationTemperature     = 0.7
	generationMaxOutputTokens = 1024
)

const defaultTimeout = 120 * time.Second

// ErrMissingConfig reports absent required provider configuration. It is
// returned before any outbound call is attempted.
var ErrMissingConfig = errors.New("missing API key, base URL or model name")

// Config holds the provider settings, sourced from the environment.
type Config struct {
	APIKey  string
	Prompt  string
	BaseURL string
	Model   string
	Timeout time.Duration
}

// Validate fails fast on missing required fields. The prompt is optional.
func (c Config) Validate() error {
	if c.APIKey == "" || c.BaseURL == "" || c.Model == "" {
		return ErrMissingConfig
	}
	return nil
}

func (c Config) promptText() string {
	if c.Prompt != "" {
		return c.Prompt
	}
	return DefaultPrompt
}

// Client brokers summarization requests to the generative endpoint.
type Client struct {
	cfg  Config
	http *http.Client
}

// NewClient creates a provider client with a bounded call timeout.
func NewClient(cfg Config) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		cfg:  cfg,
		http: &http.Client{Timeout: timeout},
	}
}

// Summarize submits the audio bytes inline and returns the model's answer
// text. Configuration errors surface before any network I/O.
func (c *Client) Summarize(ctx context.Context, audio []byte) (string, error) {
	if err := c.cfg.Validate(); err != nil {
		return "", err
	}

	payload := request{
		Contents: []content{{
			Parts: []part{
				{Text: c.cfg.promptText()},
				{InlineData: &inlineData{
					MIMEType: audioMIMEType,
					Data:     EncodeChunked(audio, DefaultChunkSize),
				}},
			},
		}},
		GenerationConfig: generationConfig{
			Temperature:     generationTemperature,
			MaxOutputTokens: generationMaxOutputTokens,
		},
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return "", fmt.Errorf("encode provider request: %w", err)
	}

	endpoint := EndpointURL(c.cfg.BaseURL, c.cfg.Model)
	mode := ModeForKey(c.cfg.APIKey)

	// The key rides in exactly one place per request. Logs only ever see
	// the bare endpoint.
	requestURL := endpoint
	if mode == AuthQueryKey {
		requestURL = endpoint + "?key=" + url.QueryEscape(c.cfg.APIKey)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("build provider request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if mode == AuthBearer {
		req.Header.Set("Authorization", "Bearer "+c.cfg.APIKey)
	}

	logrus.WithFields(logrus.Fields{
		"url":          endpoint,
		"model":        c.cfg.Model,
		"authMode":     mode,
		"payloadBytes": len(body),
	}).Info("Requesting provider")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("provider call: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read provider response: %w", err)
	}

	var pr response
	if err := json.Unmarshal(raw, &pr); err != nil {
		if resp.StatusCode != http.StatusOK {
			return "", fmt.Errorf("API error (status %d)", resp.StatusCode)
		}
		return "", fmt.Errorf("decode provider response: %w", err)
	}

	// Some relays return HTTP 200 with an error body. Either signal fails.
	if resp.StatusCode != http.StatusOK || pr.Error != nil {
		logrus.WithFields(logrus.Fields{
			"status": resp.StatusCode,
			"error":  pr.Message,
		}).Error("Provider error")
		return "", errors.New(errorMessage(&pr, resp.StatusCode))
	}

	text := pr.text()
	if text == "" {
		text = resultPlaceholder
	}
	return text, nil
}

// errorMessage extracts the most specific failure message available.
func errorMessage(pr *response, status int) string {
	if pr.Error != nil && pr.Error.Message != "" {
		return pr.Error.Message
	}
	if pr.Message != "" {
		return pr.Message
	}
	return fmt.Sprintf("API error (status %d)", status)
}
