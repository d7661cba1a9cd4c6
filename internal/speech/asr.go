// Package speech provides the speech-to-text and text-to-speech clients
// used by channels that accept voice turns.
package speech

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"time"
)

// Recognizer converts recorded audio into turn text.
type Recognizer interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error)
}

// ASRConfig configures the Whisper-compatible speech recognition client.
type ASRConfig struct {
	APIBase string // e.g. "https://api.openai.com/v1"
	APIKey  string
	Model   string // e.g. "whisper-1"
	Logger  *slog.Logger
}

// ASRClient transcribes audio through an OpenAI-compatible transcription
// endpoint.
type ASRClient struct {
	apiBase string
	apiKey  string
	model   string
	client  *http.Client
	logger  *slog.Logger
}

// NewASRClient creates a speech recognition client.
func NewASRClient(cfg ASRConfig) *ASRClient {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "whisper-1"
	}
	return &ASRClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		client:  &http.Client{Timeout: 120 * time.Second},
		logger:  cfg.Logger,
	}
}

// Transcribe implements Recognizer.
func (a *ASRClient) Transcribe(ctx context.Context, audio io.Reader, filename string) (string, error) {
	var body bytes.Buffer
	writer := multipart.NewWriter(&body)

	part, err := writer.CreateFormFile("file", filename)
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, audio); err != nil {
		return "", fmt.Errorf("copy audio data: %w", err)
	}
	writer.WriteField("model", a.model)
	writer.WriteField("response_format", "json")
	writer.Close()

	url := a.apiBase + "/audio/transcriptions"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, &body)
	if err != nil {
		return "", fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+a.apiKey)

	resp, err := a.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("transcription error (status %d): %s", resp.StatusCode, string(respBody))
	}

	var result struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	a.logger.Info("transcription complete", "text_len", len(result.Text))
	return result.Text, nil
}
