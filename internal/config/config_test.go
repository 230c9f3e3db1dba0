package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestDefaultIsValid(t *testing.T) {
	if err := Default().Validate(); err != nil {
		t.Fatalf("default config must validate: %v", err)
	}
}

func TestLoadMergesOverDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
server:
  port: 9090
storage:
  backend: file
  file_path: /var/lib/chronos
logging:
  level: debug
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Errorf("port = %d, want 9090", cfg.Server.Port)
	}
	if cfg.Storage.Backend != "file" || cfg.Storage.FilePath != "/var/lib/chronos" {
		t.Errorf("storage not overridden: %+v", cfg.Storage)
	}
	// Untouched sections keep their defaults.
	if cfg.Storage.Namespace != "chronos_history_v1" {
		t.Errorf("namespace default lost: %q", cfg.Storage.Namespace)
	}
	if cfg.Audio.SampleRate != 24000 {
		t.Errorf("sample rate default lost: %d", cfg.Audio.SampleRate)
	}
	if cfg.Backend.Provider != "mock" {
		t.Errorf("provider default lost: %q", cfg.Backend.Provider)
	}
}

func TestLoadMissingFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestLoadRejectsInvalidConfig(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 0\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "port") {
		t.Errorf("error does not name the offending field: %v", err)
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{
			name:   "valid defaults",
			mutate: func(_ *Config) {},
		},
		{
			name:    "port out of range",
			mutate:  func(c *Config) { c.Server.Port = 70000 },
			wantErr: "port",
		},
		{
			name:    "empty address",
			mutate:  func(c *Config) { c.Server.Address = "" },
			wantErr: "address",
		},
		{
			name:    "unknown provider",
			mutate:  func(c *Config) { c.Backend.Provider = "llama" },
			wantErr: "provider",
		},
		{
			name:    "genai without project",
			mutate:  func(c *Config) { c.Backend.Provider = "genai" },
			wantErr: "gcp_project",
		},
		{
			name: "genai with project",
			mutate: func(c *Config) {
				c.Backend.Provider = "genai"
				c.Backend.GCPProject = "my-project"
			},
		},
		{
			name:    "unsupported language",
			mutate:  func(c *Config) { c.Backend.Language = "pt" },
			wantErr: "language",
		},
		{
			name:    "unknown storage backend",
			mutate:  func(c *Config) { c.Storage.Backend = "redis" },
			wantErr: "backend",
		},
		{
			name: "file backend without path",
			mutate: func(c *Config) {
				c.Storage.Backend = "file"
				c.Storage.FilePath = ""
			},
			wantErr: "file_path",
		},
		{
			name:    "empty namespace",
			mutate:  func(c *Config) { c.Storage.Namespace = "" },
			wantErr: "namespace",
		},
		{
			name:    "zero sample rate",
			mutate:  func(c *Config) { c.Audio.SampleRate = 0 },
			wantErr: "sample_rate",
		},
		{
			name:    "stereo capture",
			mutate:  func(c *Config) { c.Audio.Channels = 2 },
			wantErr: "mono",
		},
		{
			name:    "unsupported bit depth",
			mutate:  func(c *Config) { c.Audio.BitDepth = 24 },
			wantErr: "16-bit",
		},
		{
			name:    "unknown log level",
			mutate:  func(c *Config) { c.Logging.Level = "verbose" },
			wantErr: "level",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatal("expected error, got nil")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}
