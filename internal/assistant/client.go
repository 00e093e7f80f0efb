package assistant

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"
	"sync"
	"time"

	"github.com/openai/openai-go/v3"
	"github.com/openai/openai-go/v3/option"
)

// Config contains assistant client configuration
type Config struct {
	BaseURL            string
	APIKey             string
	TranscriptionModel string
	TTSModel           string
	TTSVoice           string
	TTSFormat          string
	Language           string
	SystemPrompt       string
	MaxTokens          int
	Temperature        float64
	RequestTimeout     time.Duration
	MaxRetries         int
}

// Client provides speech-to-text, chat completion and text-to-speech against
// a single OpenAI-compatible endpoint
type Client struct {
	api    openai.Client
	config Config

	// Statistics
	totalRequests   uint64
	successRequests uint64
	failedRequests  uint64

	mu sync.RWMutex
}

// Stats represents client statistics
type Stats struct {
	TotalRequests   uint64  `json:"total_requests"`
	SuccessRequests uint64  `json:"success_requests"`
	FailedRequests  uint64  `json:"failed_requests"`
	SuccessRate     float64 `json:"success_rate"`
}

// NewClient creates an assistant client. An empty API key is an error; the
// caller is expected to skip construction and run in degraded mode instead.
func NewClient(cfg Config) (*Client, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("API key is required")
	}

	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base URL is required")
	}

	api := openai.NewClient(
		option.WithAPIKey(cfg.APIKey),
		option.WithBaseURL(strings.TrimRight(cfg.BaseURL, "/")),
		option.WithRequestTimeout(cfg.RequestTimeout),
		option.WithMaxRetries(cfg.MaxRetries),
	)

	return &Client{
		api:    api,
		config: cfg,
	}, nil
}

// Transcribe sends audio bytes to the speech-to-text API and returns the
// recognized text. The filename carries the container hint the API uses to
// pick a decoder.
func (c *Client) Transcribe(ctx context.Context, audio []byte, filename string) (string, error) {
	if len(audio) == 0 {
		return "", fmt.Errorf("no audio data to transcribe")
	}

	params := openai.AudioTranscriptionNewParams{
		File:  openai.File(bytes.NewReader(audio), filename, "application/octet-stream"),
		Model: openai.AudioModel(c.config.TranscriptionModel),
	}
	if c.config.Language != "" {
		params.Language = openai.String(c.config.Language)
	}

	resp, err := c.api.Audio.Transcriptions.New(ctx, params)
	if err != nil {
		c.recordResult(false)
		return "", fmt.Errorf("transcription request failed: %w", err)
	}
	c.recordResult(true)

	return strings.TrimSpace(resp.Text), nil
}

// Complete sends the user text to the chat completion API under the
// configured system prompt and returns the assistant reply.
func (c *Client) Complete(ctx context.Context, model, userText string) (string, error) {
	if userText == "" {
		return "", fmt.Errorf("no user text to complete")
	}

	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(c.config.SystemPrompt),
			openai.UserMessage(userText),
		},
		MaxTokens:   openai.Int(int64(c.config.MaxTokens)),
		Temperature: openai.Float(c.config.Temperature),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.recordResult(false)
		return "", fmt.Errorf("chat completion request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.recordResult(false)
		return "", fmt.Errorf("chat completion returned no choices")
	}
	c.recordResult(true)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

// Synthesize converts the reply text to encoded audio via the text-to-speech
// API. The returned bytes are in the configured response format (MP3 by
// default) and still need decoding and resampling before device playback.
func (c *Client) Synthesize(ctx context.Context, text string) ([]byte, error) {
	if text == "" {
		return nil, fmt.Errorf("no text to synthesize")
	}

	params := openai.AudioSpeechNewParams{
		Model:          openai.SpeechModel(c.config.TTSModel),
		Input:          text,
		Voice:          openai.AudioSpeechNewParamsVoice(c.config.TTSVoice),
		ResponseFormat: openai.AudioSpeechNewParamsResponseFormat(c.config.TTSFormat),
	}

	resp, err := c.api.Audio.Speech.New(ctx, params)
	if err != nil {
		c.recordResult(false)
		return nil, fmt.Errorf("speech synthesis request failed: %w", err)
	}
	defer resp.Body.Close()

	audio, err := io.ReadAll(resp.Body)
	if err != nil {
		c.recordResult(false)
		return nil, fmt.Errorf("failed to read synthesized audio: %w", err)
	}

	if len(audio) == 0 {
		c.recordResult(false)
		return nil, fmt.Errorf("speech synthesis returned no audio")
	}
	c.recordResult(true)

	return audio, nil
}

// Probe runs a minimal chat round-trip against the fast model to verify the
// API is reachable and the credential works.
func (c *Client) Probe(ctx context.Context, model string) (string, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.UserMessage("Say OK."),
		},
		MaxTokens: openai.Int(10),
	}

	resp, err := c.api.Chat.Completions.New(ctx, params)
	if err != nil {
		c.recordResult(false)
		return "", fmt.Errorf("probe request failed: %w", err)
	}

	if len(resp.Choices) == 0 {
		c.recordResult(false)
		return "", fmt.Errorf("probe returned no choices")
	}
	c.recordResult(true)

	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) recordResult(success bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++
	if success {
		c.successRequests++
	} else {
		c.failedRequests++
	}
}

// GetStats returns current client statistics
func (c *Client) GetStats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	successRate := float64(0)
	if c.totalRequests > 0 {
		successRate = float64(c.successRequests) / float64(c.totalRequests) * 100
	}

	return Stats{
		TotalRequests:   c.totalRequests,
		SuccessRequests: c.successRequests,
		FailedRequests:  c.failedRequests,
		SuccessRate:     successRate,
	}
}
