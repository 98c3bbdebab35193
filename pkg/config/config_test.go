package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 8081\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Server.Port != 8081 {
		t.Errorf("port = %d, want 8081", cfg.Server.Port)
	}
	if cfg.Model.Backend != "onnx" {
		t.Errorf("backend = %q, want onnx", cfg.Model.Backend)
	}
	if cfg.Model.Device != "auto" {
		t.Errorf("device = %q, want auto", cfg.Model.Device)
	}
	if cfg.Database.Driver != "sqlite" {
		t.Errorf("driver = %q, want sqlite", cfg.Database.Driver)
	}
	if cfg.Artifacts.VocabPath == "" || cfg.Artifacts.LabelsPath == "" {
		t.Error("artifact paths should default")
	}
	if cfg.Server.MaxTextLength != 5000 {
		t.Errorf("maxTextLength = %d, want 5000", cfg.Server.MaxTextLength)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := writeConfig(t, "logging:\n  level: info\n")
	t.Setenv("INTENT_API_LOGGING_LEVEL", "debug")
	t.Setenv("INTENT_API_REDIS_ENABLED", "true")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("level = %q, want debug", cfg.Logging.Level)
	}
	if !cfg.Redis.Enabled {
		t.Error("redis should be enabled from env")
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	if err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		yaml    string
		wantErr string
	}{
		{
			name:    "unknown backend",
			yaml:    "model:\n  backend: tensorflow\n",
			wantErr: "unknown model backend",
		},
		{
			name:    "remote without url",
			yaml:    "model:\n  backend: remote\n",
			wantErr: "remoteURL",
		},
		{
			name:    "unknown device",
			yaml:    "model:\n  device: tpu\n",
			wantErr: "unknown model device",
		},
		{
			name:    "unknown driver",
			yaml:    "database:\n  driver: mysql\n",
			wantErr: "unknown database driver",
		},
		{
			name:    "postgres without credentials",
			yaml:    "database:\n  driver: postgres\n",
			wantErr: "postgres host, user and dbname",
		},
		{
			name: "postgres complete",
			yaml: "database:\n  driver: postgres\n  postgres:\n    host: db\n    user: svc\n    dbname: intents\n",
		},
		{
			name: "remote complete",
			yaml: "model:\n  backend: remote\n  remoteURL: http://models:8000\n",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Load(writeConfig(t, tt.yaml))
			if tt.wantErr == "" {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if err == nil || !strings.Contains(err.Error(), tt.wantErr) {
				t.Fatalf("error = %v, want substring %q", err, tt.wantErr)
			}
		})
	}
}
