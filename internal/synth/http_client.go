package synth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"
)

// HTTPClient calls a TTS sidecar that accepts a JSON request and answers with
// a WAV body.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{
		url:    url,
		client: &http.Client{Timeout: timeout},
	}
}

type synthesizeRequest struct {
	Text  string  `json:"text"`
	Voice string  `json:"voice"`
	Speed float64 `json:"speed"`
}

func (c *HTTPClient) Synthesize(ctx context.Context, text, voice string, speed float64) (*Result, error) {
	body, err := json.Marshal(synthesizeRequest{Text: text, Voice: voice, Speed: speed})
	if err != nil {
		return nil, fmt.Errorf("synth: marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("synth: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "audio/wav")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("synth: engine unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, fmt.Errorf("synth: engine status=%d body=%s", resp.StatusCode, string(b))
	}

	samples, rate, err := DecodeWAV(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("synth: decode response: %w", err)
	}
	return &Result{Samples: samples, SampleRate: rate}, nil
}

// Healthy probes the sidecar with a HEAD request.
func (c *HTTPClient) Healthy(ctx context.Context) bool {
	req, err := http.NewRequestWithContext(ctx, http.MethodHead, c.url, nil)
	if err != nil {
		return false
	}
	resp, err := c.client.Do(req)
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode < 500
}
