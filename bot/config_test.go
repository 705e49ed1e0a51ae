package bot

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
telegram:
  token: "123:abc"
  run_mode: longpoll
`

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Bot.FollowUpDelaySeconds != 3 {
		t.Fatalf("follow_up_delay_seconds = %d, expected default 3", cfg.Bot.FollowUpDelaySeconds)
	}
	if cfg.Bot.FollowUpDelay() != 3*time.Second {
		t.Fatalf("FollowUpDelay = %v", cfg.Bot.FollowUpDelay())
	}
	if cfg.Bot.SuppressStaleFollowUps {
		t.Fatal("suppress_stale_follow_ups should default to false")
	}
	if cfg.Bot.ContactsFile != "data/contacts.json" {
		t.Fatalf("contacts_file = %q", cfg.Bot.ContactsFile)
	}
	if cfg.Bot.ChatIDsFile != "data/chat_ids.json" {
		t.Fatalf("chat_ids_file = %q", cfg.Bot.ChatIDsFile)
	}
	if cfg.Bot.MediaDir != "media" {
		t.Fatalf("media_dir = %q", cfg.Bot.MediaDir)
	}
	if cfg.HTTP.Addr() != "0.0.0.0:8080" {
		t.Fatalf("http addr = %q", cfg.HTTP.Addr())
	}
}

func TestLoadConfigOverrides(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig+`
bot:
  follow_up_delay_seconds: 7
  suppress_stale_follow_ups: true
  media_dir: assets
http:
  listen: 127.0.0.1
  port: 9090
`))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Bot.FollowUpDelay() != 7*time.Second {
		t.Fatalf("FollowUpDelay = %v", cfg.Bot.FollowUpDelay())
	}
	if !cfg.Bot.SuppressStaleFollowUps {
		t.Fatal("suppress_stale_follow_ups override lost")
	}
	if cfg.Bot.MediaDir != "assets" {
		t.Fatalf("media_dir = %q", cfg.Bot.MediaDir)
	}
	if cfg.HTTP.Addr() != "127.0.0.1:9090" {
		t.Fatalf("http addr = %q", cfg.HTTP.Addr())
	}
}

func TestLoadConfigRejectsNegativeDelay(t *testing.T) {
	_, err := LoadConfig(writeConfig(t, minimalConfig+`
bot:
  follow_up_delay_seconds: -1
`))
	if err == nil {
		t.Fatal("expected error for negative delay")
	}
}

func TestLoadConfigMissingFile(t *testing.T) {
	if _, err := LoadConfig(filepath.Join(t.TempDir(), "nope.yml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestCoreConfigCarrier(t *testing.T) {
	cfg, err := LoadConfig(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	core := cfg.CoreConfig()
	if core == nil || core.Telegram.Token != "123:abc" {
		t.Fatalf("unexpected core config: %+v", core)
	}
}
