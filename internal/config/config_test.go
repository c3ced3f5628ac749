package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"plexdigest/internal/config"
)

func writeConfig(t *testing.T, contents string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadConfigAppliesDefaults(t *testing.T) {
	path := writeConfig(t, `
tautulli:
  url: http://localhost:8181
  apikey: abc123
summary:
  days_back: 7
run_once: true
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tautulli.TimeoutSeconds != 10 || cfg.Tautulli.RetryCount != 3 || cfg.Tautulli.RetryBaseSeconds != 1 {
		t.Fatalf("tautulli defaults: %+v", cfg.Tautulli)
	}
	if cfg.Discord.TimeoutSeconds != 15 || cfg.Discord.RetryCount != 3 {
		t.Fatalf("discord defaults: %+v", cfg.Discord)
	}
	if cfg.Plex.URL != "https://app.plex.tv" {
		t.Fatalf("plex url default: %q", cfg.Plex.URL)
	}
}

func TestLoadConfigExpandsEnvironmentVariables(t *testing.T) {
	t.Setenv("TEST_TAUTULLI_KEY", "key-from-env")

	path := writeConfig(t, `
tautulli:
  url: http://localhost:8181
  apikey: ${TEST_TAUTULLI_KEY}
summary:
  days_back: 7
run_once: true
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Tautulli.APIKey != "key-from-env" {
		t.Fatalf("apikey = %q", cfg.Tautulli.APIKey)
	}
}

func TestLoadConfigResolvesSecretFiles(t *testing.T) {
	secretPath := filepath.Join(t.TempDir(), "webhook_url")
	if err := os.WriteFile(secretPath, []byte("https://discord.com/api/webhooks/x/y\n"), 0o600); err != nil {
		t.Fatalf("write secret: %v", err)
	}

	path := writeConfig(t, `
tautulli:
  url: http://localhost:8181
  apikey: abc123
discord:
  webhook_url: `+secretPath+`
summary:
  days_back: 7
run_once: true
`)

	cfg, err := config.LoadConfig(path)
	if err != nil {
		t.Fatalf("LoadConfig: %v", err)
	}
	if cfg.Discord.WebhookURL != "https://discord.com/api/webhooks/x/y" {
		t.Fatalf("webhook url = %q", cfg.Discord.WebhookURL)
	}
}

func TestLoadConfigValidation(t *testing.T) {
	cases := []struct {
		name     string
		contents string
		wantErr  string
	}{
		{
			name: "missing apikey",
			contents: `
tautulli:
  url: http://localhost:8181
summary:
  days_back: 7
run_once: true
`,
			wantErr: "tautulli.apikey",
		},
		{
			name: "missing days_back",
			contents: `
tautulli:
  url: http://localhost:8181
  apikey: abc123
run_once: true
`,
			wantErr: "days_back",
		},
		{
			name: "missing cron spec in scheduled mode",
			contents: `
tautulli:
  url: http://localhost:8181
  apikey: abc123
summary:
  days_back: 7
`,
			wantErr: "cron_spec",
		},
		{
			name: "batch size override out of range",
			contents: `
tautulli:
  url: http://localhost:8181
  apikey: abc123
summary:
  days_back: 7
  initial_batch_size: 20000
run_once: true
`,
			wantErr: "initial_batch_size",
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			path := writeConfig(t, c.contents)
			_, err := config.LoadConfig(path)
			if err == nil || !strings.Contains(err.Error(), c.wantErr) {
				t.Fatalf("expected error mentioning %q, got %v", c.wantErr, err)
			}
		})
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := config.LoadConfig(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}
