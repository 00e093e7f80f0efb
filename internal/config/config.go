package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config represents the complete service configuration
type Config struct {
	Server    ServerConfig    `yaml:"server"`
	Assistant AssistantConfig `yaml:"assistant"`
	Audio     AudioConfig     `yaml:"audio"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Port            int    `yaml:"port"`
	BindAddress     string `yaml:"bind_address"`
	MaxUploadBytes  int64  `yaml:"max_upload_bytes"`
	ReadTimeout     int    `yaml:"read_timeout"`     // seconds
	WriteTimeout    int    `yaml:"write_timeout"`    // seconds
	ShutdownTimeout int    `yaml:"shutdown_timeout"` // seconds
}

// AssistantConfig contains the OpenAI-compatible assistant API configuration.
// The API key is normally supplied through the GROQ_API_KEY or OPENAI_API_KEY
// environment variable rather than the config file; an empty key leaves the
// upload pipeline disabled but the server running.
type AssistantConfig struct {
	BaseURL            string  `yaml:"base_url"`
	APIKey             string  `yaml:"api_key"`
	TranscriptionModel string  `yaml:"transcription_model"`
	FastModel          string  `yaml:"fast_model"`
	StrongModel        string  `yaml:"strong_model"`
	TTSModel           string  `yaml:"tts_model"`
	TTSVoice           string  `yaml:"tts_voice"`
	TTSFormat          string  `yaml:"tts_format"`
	Language           string  `yaml:"language"`
	SystemPrompt       string  `yaml:"system_prompt"`
	MaxTokens          int     `yaml:"max_tokens"`
	Temperature        float64 `yaml:"temperature"`
	RequestTimeout     int     `yaml:"request_timeout"` // seconds
	MaxRetries         int     `yaml:"max_retries"`
}

// AudioConfig contains audio output parameters
type AudioConfig struct {
	TargetSampleRate int `yaml:"target_sample_rate"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Default returns the built-in configuration. It matches the deployment the
// ESP32 firmware expects, so the service runs without a config file at all.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            10000,
			BindAddress:     "0.0.0.0",
			MaxUploadBytes:  10 * 1024 * 1024,
			ReadTimeout:     30,
			WriteTimeout:    60,
			ShutdownTimeout: 5,
		},
		Assistant: AssistantConfig{
			BaseURL:            "https://api.groq.com/openai/v1",
			TranscriptionModel: "whisper-large-v3",
			FastModel:          "llama-3.1-8b-instant",
			StrongModel:        "openai/gpt-oss-120b",
			TTSModel:           "playai-tts-arabic",
			TTSVoice:           "Amira-PlayAI",
			TTSFormat:          "mp3",
			Language:           "ar",
			SystemPrompt:       "أنت مساعد صوتي ذكي تتحدث العربية والانجليزيه فقط. أجب باختصار شديد.",
			MaxTokens:          150,
			Temperature:        0.7,
			RequestTimeout:     30,
			MaxRetries:         1,
		},
		Audio: AudioConfig{
			TargetSampleRate: 16000,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stdout",
		},
	}
}

// Load reads the configuration file, applies environment overrides and
// validates the result. A missing file is not an error: the built-in defaults
// are used so the binary can run with nothing but an API key in the
// environment. A .env file in the working directory is loaded first, if
// present.
func Load(path string) (*Config, error) {
	_ = godotenv.Load()

	config := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else {
		if err := yaml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	if err := config.applyEnvOverrides(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// applyEnvOverrides applies the environment contract the ESP32 deployment
// relies on: PORT for the listen port and GROQ_API_KEY / OPENAI_API_KEY for
// the assistant credential.
func (c *Config) applyEnvOverrides() error {
	if v := os.Getenv("PORT"); v != "" {
		port, err := strconv.Atoi(v)
		if err != nil {
			return fmt.Errorf("invalid PORT environment value %q: %w", v, err)
		}
		c.Server.Port = port
	}

	if key := os.Getenv("GROQ_API_KEY"); key != "" {
		c.Assistant.APIKey = key
	} else if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.Assistant.APIKey = key
	}

	return nil
}

// Validate performs comprehensive validation of the configuration
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}

	if err := c.Assistant.Validate(); err != nil {
		return fmt.Errorf("assistant config: %w", err)
	}

	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}

	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}

	return nil
}

// Validate validates server configuration
func (s *ServerConfig) Validate() error {
	if s.Port < 1 || s.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", s.Port)
	}

	if s.BindAddress == "" {
		return fmt.Errorf("bind_address cannot be empty")
	}

	if s.MaxUploadBytes < 1024 {
		return fmt.Errorf("max_upload_bytes must be at least 1024, got %d", s.MaxUploadBytes)
	}

	if s.ReadTimeout < 1 {
		return fmt.Errorf("read_timeout must be at least 1 second, got %d", s.ReadTimeout)
	}

	if s.WriteTimeout < 1 {
		return fmt.Errorf("write_timeout must be at least 1 second, got %d", s.WriteTimeout)
	}

	if s.ShutdownTimeout < 1 {
		return fmt.Errorf("shutdown_timeout must be at least 1 second, got %d", s.ShutdownTimeout)
	}

	return nil
}

// Validate validates assistant configuration
func (a *AssistantConfig) Validate() error {
	if a.BaseURL == "" {
		return fmt.Errorf("base_url cannot be empty")
	}

	if a.TranscriptionModel == "" {
		return fmt.Errorf("transcription_model cannot be empty")
	}

	if a.FastModel == "" {
		return fmt.Errorf("fast_model cannot be empty")
	}

	if a.StrongModel == "" {
		return fmt.Errorf("strong_model cannot be empty")
	}

	if a.TTSModel == "" {
		return fmt.Errorf("tts_model cannot be empty")
	}

	if a.TTSVoice == "" {
		return fmt.Errorf("tts_voice cannot be empty")
	}

	validFormats := map[string]bool{"mp3": true, "wav": true}
	if !validFormats[a.TTSFormat] {
		return fmt.Errorf("tts_format must be 'mp3' or 'wav', got '%s'", a.TTSFormat)
	}

	if a.Language == "" {
		return fmt.Errorf("language cannot be empty")
	}

	if a.SystemPrompt == "" {
		return fmt.Errorf("system_prompt cannot be empty")
	}

	if a.MaxTokens < 1 {
		return fmt.Errorf("max_tokens must be at least 1, got %d", a.MaxTokens)
	}

	if a.Temperature < 0 || a.Temperature > 2 {
		return fmt.Errorf("temperature must be between 0 and 2, got %f", a.Temperature)
	}

	if a.RequestTimeout < 1 {
		return fmt.Errorf("request_timeout must be at least 1 second, got %d", a.RequestTimeout)
	}

	if a.MaxRetries < 0 {
		return fmt.Errorf("max_retries cannot be negative, got %d", a.MaxRetries)
	}

	return nil
}

// Validate validates audio configuration
func (a *AudioConfig) Validate() error {
	if a.TargetSampleRate != 16000 {
		return fmt.Errorf("target_sample_rate must be 16000 Hz for ESP32 playback, got %d", a.TargetSampleRate)
	}

	return nil
}

// Validate validates logging configuration
func (l *LoggingConfig) Validate() error {
	validLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLevels[l.Level] {
		return fmt.Errorf("level must be one of [debug, info, warn, error], got '%s'", l.Level)
	}

	validFormats := map[string]bool{"json": true, "text": true}
	if !validFormats[l.Format] {
		return fmt.Errorf("format must be 'json' or 'text', got '%s'", l.Format)
	}

	return nil
}

// HasCredential reports whether an assistant API key is configured
func (a *AssistantConfig) HasCredential() bool {
	return a.APIKey != ""
}

// GetRequestTimeout returns the assistant request timeout as a time.Duration
func (a *AssistantConfig) GetRequestTimeout() time.Duration {
	return time.Duration(a.RequestTimeout) * time.Second
}

// GetReadTimeout returns the HTTP read timeout as a time.Duration
func (s *ServerConfig) GetReadTimeout() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// GetWriteTimeout returns the HTTP write timeout as a time.Duration
func (s *ServerConfig) GetWriteTimeout() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// GetShutdownTimeout returns the graceful shutdown timeout as a time.Duration
func (s *ServerConfig) GetShutdownTimeout() time.Duration {
	return time.Duration(s.ShutdownTimeout) * time.Second
}
