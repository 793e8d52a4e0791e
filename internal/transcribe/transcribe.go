// Package transcribe is the boundary to the speech-recognition collaborator.
// Audio uploads are validated here; the model invocation itself lives in an
// external sidecar.
package transcribe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"path/filepath"
	"strings"
	"time"
)

// Transcriber converts an uploaded audio file into text.
type Transcriber interface {
	Transcribe(ctx context.Context, filename string, r io.Reader) (string, error)
}

var supportedExtensions = map[string]bool{
	".webm": true,
	".ogg":  true,
	".wav":  true,
	".mp3":  true,
	".m4a":  true,
	".flac": true,
	".aac":  true,
}

// SupportedExtension reports whether the upload's file extension is one the
// recognizer accepts.
func SupportedExtension(filename string) bool {
	return supportedExtensions[strings.ToLower(filepath.Ext(filename))]
}

// HTTPClient posts the audio to a transcription sidecar as a multipart upload
// and reads back {"transcription": "..."}.
type HTTPClient struct {
	url    string
	client *http.Client
}

func NewHTTPClient(url string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &HTTPClient{url: url, client: &http.Client{Timeout: timeout}}
}

func (c *HTTPClient) Transcribe(ctx context.Context, filename string, r io.Reader) (string, error) {
	pr, pw := io.Pipe()
	mw := multipart.NewWriter(pw)
	go func() {
		part, err := mw.CreateFormFile("audio_file", filename)
		if err != nil {
			pw.CloseWithError(err)
			return
		}
		if _, err := io.Copy(part, r); err != nil {
			pw.CloseWithError(err)
			return
		}
		pw.CloseWithError(mw.Close())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, pr)
	if err != nil {
		return "", fmt.Errorf("transcribe: build request: %w", err)
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcribe: recognizer unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("transcribe: recognizer status=%d body=%s", resp.StatusCode, string(b))
	}

	var out struct {
		Transcription string `json:"transcription"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("transcribe: decode response: %w", err)
	}
	return out.Transcription, nil
}
