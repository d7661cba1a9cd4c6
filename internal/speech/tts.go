package speech

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
)

// Synthesizer converts response text into spoken audio.
type Synthesizer interface {
	Synthesize(ctx context.Context, text string) (io.ReadCloser, error)
}

// TTSConfig configures the text-to-speech client.
type TTSConfig struct {
	APIBase string
	APIKey  string
	Model   string // e.g. "tts-1"
	Voice   string // e.g. "alloy"
	Logger  *slog.Logger
}

// TTSClient synthesizes speech through an OpenAI-compatible endpoint and
// returns MP3 audio.
type TTSClient struct {
	apiBase string
	apiKey  string
	model   string
	voice   string
	client  *http.Client
	logger  *slog.Logger
}

// NewTTSClient creates a text-to-speech client.
func NewTTSClient(cfg TTSConfig) *TTSClient {
	if cfg.APIBase == "" {
		cfg.APIBase = "https://api.openai.com/v1"
	}
	if cfg.Model == "" {
		cfg.Model = "tts-1"
	}
	if cfg.Voice == "" {
		cfg.Voice = "alloy"
	}
	return &TTSClient{
		apiBase: cfg.APIBase,
		apiKey:  cfg.APIKey,
		model:   cfg.Model,
		voice:   cfg.Voice,
		client:  &http.Client{Timeout: 60 * time.Second},
		logger:  cfg.Logger,
	}
}

// Synthesize implements Synthesizer. The caller owns the returned reader.
func (t *TTSClient) Synthesize(ctx context.Context, text string) (io.ReadCloser, error) {
	body := fmt.Sprintf(`{"model":%q,"input":%q,"voice":%q}`, t.model, text, t.voice)

	url := t.apiBase + "/audio/speech"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, strings.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+t.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("tts request: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		respBody, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("tts error (status %d): %s", resp.StatusCode, string(respBody))
	}
	return resp.Body, nil
}
