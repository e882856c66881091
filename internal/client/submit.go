package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

const defaultTimeout = 150 * time.Second

// Submitter posts extracted audio to the summary proxy endpoint and
// interprets its JSON envelope.
type Submitter struct {
	endpoint string
	http     *http.Client
}

// NewSubmitter creates a submitter against the given summary endpoint.
func NewSubmitter(endpoint string, timeout time.Duration) *Submitter {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Submitter{
		endpoint: endpoint,
		http:     &http.Client{Timeout: timeout},
	}
}

// envelope is the proxy's response: exactly one of result or error is set.
type envelope struct {
	Result string `json:"result"`
	Error  string `json:"error"`
}

// Submit sends the audio as a raw binary body and returns the model's raw
// answer text. A non-2xx status or an error field both count as failure,
// surfacing the most specific message available.
func (s *Submitter) Submit(ctx context.Context, audio []byte) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.endpoint, bytes.NewReader(audio))
	if err != nil {
		return "", fmt.Errorf("build submission: %w", err)
	}
	req.Header.Set("Content-Type", "audio/mpeg")

	resp, err := s.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("submit audio: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("read submission response: %w", err)
	}

	var env envelope
	// A malformed body on an error status still yields the status message.
	_ = json.Unmarshal(body, &env)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 || env.Error != "" {
		if env.Error != "" {
			return "", fmt.Errorf("分析失败: %s", env.Error)
		}
		return "", fmt.Errorf("分析失败 (status %d)", resp.StatusCode)
	}
	return env.Result, nil
}
