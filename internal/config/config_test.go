package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func validConfig() Config {
	return Config{
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
			SystemPrompt:       "You are a concise voice assistant.",
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
			Format: "json",
			Output: "stdout",
		},
	}
}

func TestConfigValidation(t *testing.T) {
	tests := []struct {
		name        string
		mutate      func(*Config)
		expectError bool
		errorMsg    string
	}{
		{
			name:        "valid configuration",
			mutate:      func(c *Config) {},
			expectError: false,
		},
		{
			name: "invalid server port",
			mutate: func(c *Config) {
				c.Server.Port = 70000
			},
			expectError: true,
			errorMsg:    "port must be between 1 and 65535",
		},
		{
			name: "empty bind address",
			mutate: func(c *Config) {
				c.Server.BindAddress = ""
			},
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
		{
			name: "upload limit too small",
			mutate: func(c *Config) {
				c.Server.MaxUploadBytes = 100
			},
			expectError: true,
			errorMsg:    "max_upload_bytes must be at least 1024",
		},
		{
			name: "wrong target sample rate",
			mutate: func(c *Config) {
				c.Audio.TargetSampleRate = 8000
			},
			expectError: true,
			errorMsg:    "target_sample_rate must be 16000 Hz",
		},
		{
			name: "empty base url",
			mutate: func(c *Config) {
				c.Assistant.BaseURL = ""
			},
			expectError: true,
			errorMsg:    "base_url cannot be empty",
		},
		{
			name: "temperature out of range",
			mutate: func(c *Config) {
				c.Assistant.Temperature = 3.5
			},
			expectError: true,
			errorMsg:    "temperature must be between 0 and 2",
		},
		{
			name: "invalid tts format",
			mutate: func(c *Config) {
				c.Assistant.TTSFormat = "ogg"
			},
			expectError: true,
			errorMsg:    "tts_format must be 'mp3' or 'wav'",
		},
		{
			name: "negative max retries",
			mutate: func(c *Config) {
				c.Assistant.MaxRetries = -1
			},
			expectError: true,
			errorMsg:    "max_retries cannot be negative",
		},
		{
			name: "invalid log level",
			mutate: func(c *Config) {
				c.Logging.Level = "trace"
			},
			expectError: true,
			errorMsg:    "level must be one of [debug, info, warn, error]",
		},
		{
			name: "invalid log format",
			mutate: func(c *Config) {
				c.Logging.Format = "xml"
			},
			expectError: true,
			errorMsg:    "format must be 'json' or 'text'",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := validConfig()
			tt.mutate(&config)

			err := config.Validate()
			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				}
			}
		})
	}
}

func TestConfigLoad(t *testing.T) {
	tempDir := t.TempDir()

	// Keep the environment out of file-driven cases
	t.Setenv("PORT", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	tests := []struct {
		name        string
		configYAML  string
		expectError bool
		errorMsg    string
		check       func(*testing.T, *Config)
	}{
		{
			name: "valid config file",
			configYAML: `
server:
  port: 9000
  bind_address: "127.0.0.1"
assistant:
  language: "en"
logging:
  level: "debug"
`,
			expectError: false,
			check: func(t *testing.T, c *Config) {
				if c.Server.Port != 9000 {
					t.Errorf("Expected port 9000, got %d", c.Server.Port)
				}
				if c.Assistant.Language != "en" {
					t.Errorf("Expected language 'en', got '%s'", c.Assistant.Language)
				}
				// Untouched sections keep their defaults
				if c.Assistant.TranscriptionModel != "whisper-large-v3" {
					t.Errorf("Expected default transcription model, got '%s'", c.Assistant.TranscriptionModel)
				}
				if c.Audio.TargetSampleRate != 16000 {
					t.Errorf("Expected default target rate 16000, got %d", c.Audio.TargetSampleRate)
				}
			},
		},
		{
			name: "invalid YAML syntax",
			configYAML: `
server:
  port: not_a_number
`,
			expectError: true,
			errorMsg:    "failed to parse",
		},
		{
			name: "explicitly empty bind address",
			configYAML: `
server:
  bind_address: ""
`,
			expectError: true,
			errorMsg:    "bind_address cannot be empty",
		},
		{
			name: "wrong sample rate in file",
			configYAML: `
audio:
  target_sample_rate: 44100
`,
			expectError: true,
			errorMsg:    "target_sample_rate must be 16000 Hz",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			configPath := filepath.Join(tempDir, "config.yaml")
			err := os.WriteFile(configPath, []byte(tt.configYAML), 0644)
			if err != nil {
				t.Fatalf("Failed to create test config file: %v", err)
			}

			config, err := Load(configPath)

			if tt.expectError {
				if err == nil {
					t.Errorf("Expected error but got none")
				} else if tt.errorMsg != "" && !contains(err.Error(), tt.errorMsg) {
					t.Errorf("Expected error to contain '%s', got '%s'", tt.errorMsg, err.Error())
				}
			} else {
				if err != nil {
					t.Errorf("Expected no error but got: %v", err)
				} else if config == nil {
					t.Errorf("Expected config to be loaded but got nil")
				} else if tt.check != nil {
					tt.check(t, config)
				}
			}
		})
	}
}

func TestConfigLoadMissingFile(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("GROQ_API_KEY", "")
	t.Setenv("OPENAI_API_KEY", "")

	// The ESP32 deployment runs with no config file at all
	config, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err != nil {
		t.Fatalf("Expected defaults for missing file, got error: %v", err)
	}

	if config.Server.Port != 10000 {
		t.Errorf("Expected default port 10000, got %d", config.Server.Port)
	}
	if config.Assistant.BaseURL != "https://api.groq.com/openai/v1" {
		t.Errorf("Expected default base URL, got '%s'", config.Assistant.BaseURL)
	}
	if config.Assistant.HasCredential() {
		t.Errorf("Expected no credential by default")
	}
}

func TestEnvOverrides(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope.yaml")

	t.Run("PORT override", func(t *testing.T) {
		t.Setenv("PORT", "8080")
		t.Setenv("GROQ_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "")

		config, err := Load(missing)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if config.Server.Port != 8080 {
			t.Errorf("Expected port 8080 from environment, got %d", config.Server.Port)
		}
	})

	t.Run("invalid PORT", func(t *testing.T) {
		t.Setenv("PORT", "eighty")

		_, err := Load(missing)
		if err == nil {
			t.Errorf("Expected error for invalid PORT but got none")
		}
	})

	t.Run("GROQ_API_KEY wins over OPENAI_API_KEY", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("GROQ_API_KEY", "gsk-test")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		config, err := Load(missing)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if config.Assistant.APIKey != "gsk-test" {
			t.Errorf("Expected GROQ_API_KEY to take precedence, got '%s'", config.Assistant.APIKey)
		}
	})

	t.Run("OPENAI_API_KEY fallback", func(t *testing.T) {
		t.Setenv("PORT", "")
		t.Setenv("GROQ_API_KEY", "")
		t.Setenv("OPENAI_API_KEY", "sk-test")

		config, err := Load(missing)
		if err != nil {
			t.Fatalf("Expected no error, got: %v", err)
		}
		if config.Assistant.APIKey != "sk-test" {
			t.Errorf("Expected OPENAI_API_KEY fallback, got '%s'", config.Assistant.APIKey)
		}
		if !config.Assistant.HasCredential() {
			t.Errorf("Expected HasCredential to be true")
		}
	})
}

func TestDurationHelpers(t *testing.T) {
	server := ServerConfig{
		ReadTimeout:     30,
		WriteTimeout:    60,
		ShutdownTimeout: 5,
	}

	if server.GetReadTimeout() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", server.GetReadTimeout())
	}

	if server.GetWriteTimeout() != 60*time.Second {
		t.Errorf("Expected 60 seconds, got %v", server.GetWriteTimeout())
	}

	if server.GetShutdownTimeout() != 5*time.Second {
		t.Errorf("Expected 5 seconds, got %v", server.GetShutdownTimeout())
	}

	assistant := AssistantConfig{
		RequestTimeout: 30,
	}

	if assistant.GetRequestTimeout() != 30*time.Second {
		t.Errorf("Expected 30 seconds, got %v", assistant.GetRequestTimeout())
	}
}

// Helper function to check if a string contains a substring
func contains(s, substr string) bool {
	return len(s) >= len(substr) && (s == substr || len(substr) == 0 ||
		(len(s) > len(substr) && findSubstring(s, substr)))
}

func findSubstring(s, substr string) bool {
	for i := 0; i <= len(s)-len(substr); i++ {
		if s[i:i+len(substr)] == substr {
			return true
		}
	}
	return false
}
