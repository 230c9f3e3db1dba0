package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// Config represents the complete engine configuration.
type Config struct {
	Server  ServerConfig  `yaml:"server"`
	Backend BackendConfig `yaml:"backend"`
	Storage StorageConfig `yaml:"storage"`
	Audio   AudioConfig   `yaml:"audio"`
	Logging LoggingConfig `yaml:"logging"`
}

// ServerConfig contains HTTP API server configuration.
type ServerConfig struct {
	Port    int    `yaml:"port"`
	Address string `yaml:"address"`
}

// BackendConfig selects and configures the generative backend.
type BackendConfig struct {
	Provider     string `yaml:"provider"` // "genai" or "mock"
	GCPProject   string `yaml:"gcp_project"`
	GCPLocation  string `yaml:"gcp_location"`
	ChatModel    string `yaml:"chat_model"`
	ImageModel   string `yaml:"image_model"`
	SpeechModel  string `yaml:"speech_model"`
	Language     string `yaml:"language"`
}

// StorageConfig selects the durable history backend.
type StorageConfig struct {
	Backend   string `yaml:"backend"` // "memory", "file" or "firestore"
	Namespace string `yaml:"namespace"`
	FilePath  string `yaml:"file_path"`
}

// AudioConfig contains playback and capture parameters.
type AudioConfig struct {
	SampleRate int `yaml:"sample_rate"` // Hz, synthesized voice clips
	Channels   int `yaml:"channels"`
	BitDepth   int `yaml:"bit_depth"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads and parses the configuration file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return config, nil
}

// Default returns a configuration with working local defaults.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:    8080,
			Address: "0.0.0.0",
		},
		Backend: BackendConfig{
			Provider:    "mock",
			GCPLocation: "us-central1",
			ChatModel:   "gemini-2.5-flash",
			ImageModel:  "gemini-2.5-flash-image",
			SpeechModel: "gemini-2.5-flash-preview-tts",
			Language:    "es",
		},
		Storage: StorageConfig{
			Backend:   "memory",
			Namespace: "chronos_history_v1",
			FilePath:  "data",
		},
		Audio: AudioConfig{
			SampleRate: 24000,
			Channels:   1,
			BitDepth:   16,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// Validate performs validation of the configuration.
func (c *Config) Validate() error {
	if err := c.Server.Validate(); err != nil {
		return fmt.Errorf("server config: %w", err)
	}
	if err := c.Backend.Validate(); err != nil {
		return fmt.Errorf("backend config: %w", err)
	}
	if err := c.Storage.Validate(); err != nil {
		return fmt.Errorf("storage config: %w", err)
	}
	if err := c.Audio.Validate(); err != nil {
		return fmt.Errorf("audio config: %w", err)
	}
	if err := c.Logging.Validate(); err != nil {
		return fmt.Errorf("logging config: %w", err)
	}
	return nil
}

func (c *ServerConfig) Validate() error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("port must be between 1 and 65535, got %d", c.Port)
	}
	if c.Address == "" {
		return fmt.Errorf("address must not be empty")
	}
	return nil
}

func (c *BackendConfig) Validate() error {
	switch c.Provider {
	case "genai":
		if c.GCPProject == "" {
			return fmt.Errorf("gcp_project is required for the genai provider")
		}
	case "mock":
	default:
		return fmt.Errorf("provider must be 'genai' or 'mock', got %q", c.Provider)
	}
	switch c.Language {
	case "es", "en", "fr", "de", "ja":
	default:
		return fmt.Errorf("unsupported language %q", c.Language)
	}
	return nil
}

func (c *StorageConfig) Validate() error {
	switch c.Backend {
	case "memory", "firestore":
	case "file":
		if c.FilePath == "" {
			return fmt.Errorf("file_path is required for the file backend")
		}
	default:
		return fmt.Errorf("backend must be 'memory', 'file' or 'firestore', got %q", c.Backend)
	}
	if c.Namespace == "" {
		return fmt.Errorf("namespace must not be empty")
	}
	return nil
}

func (c *AudioConfig) Validate() error {
	if c.SampleRate <= 0 {
		return fmt.Errorf("sample_rate must be positive, got %d", c.SampleRate)
	}
	if c.Channels != 1 {
		return fmt.Errorf("only mono audio is supported, got %d channels", c.Channels)
	}
	if c.BitDepth != 16 {
		return fmt.Errorf("only 16-bit PCM is supported, got %d", c.BitDepth)
	}
	return nil
}

func (c *LoggingConfig) Validate() error {
	switch c.Level {
	case "debug", "info", "warn", "error":
		return nil
	default:
		return fmt.Errorf("level must be one of debug/info/warn/error, got %q", c.Level)
	}
}
