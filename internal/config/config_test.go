package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing-on-purpose.toml"))
	if err == nil {
		t.Fatal("Load on a missing explicit path returned nil error")
	}

	cfg, err = Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Dispatch.DedupWindow != 15*time.Minute {
		t.Fatalf("dedup window = %v, want 15m", cfg.Dispatch.DedupWindow)
	}
	if cfg.Feed.IndexMaxAge != 24*time.Hour {
		t.Fatalf("index max age = %v, want 24h", cfg.Feed.IndexMaxAge)
	}
	if cfg.Chat.QueueCapacity != 1024 {
		t.Fatalf("queue capacity = %d, want 1024", cfg.Chat.QueueCapacity)
	}
	if cfg.Dispatch.Workers != 4 {
		t.Fatalf("workers = %d, want 4", cfg.Dispatch.Workers)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate defaults: %v", err)
	}
}

func TestLoadFileOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "mintsniper.toml")
	content := `
[dispatch]
dedup_window = "30m"
workers = 8

[extract]
blacklist = ["rug", "scam"]

[[chat.sessions]]
platform = "TELEGRAM"
label = "tg-main"
url = "wss://gateway.example/ws"
auth_token = "tok"
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Dispatch.DedupWindow != 30*time.Minute {
		t.Fatalf("dedup window = %v, want 30m", cfg.Dispatch.DedupWindow)
	}
	if cfg.Dispatch.Workers != 8 {
		t.Fatalf("workers = %d, want 8", cfg.Dispatch.Workers)
	}
	if len(cfg.Extract.Blacklist) != 2 {
		t.Fatalf("blacklist = %v, want two words", cfg.Extract.Blacklist)
	}
	if len(cfg.Chat.Sessions) != 1 || cfg.Chat.Sessions[0].Label != "tg-main" {
		t.Fatalf("sessions = %+v, want the declared session", cfg.Chat.Sessions)
	}
	if err := Validate(cfg); err != nil {
		t.Fatalf("Validate: %v", err)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("MINTSNIPER_DISPATCH_WORKERS", "16")
	t.Setenv("MINTSNIPER_LOG_LEVEL", "debug")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dispatch.Workers != 16 {
		t.Fatalf("workers = %d, want env override 16", cfg.Dispatch.Workers)
	}
	if cfg.Log.Level != "debug" {
		t.Fatalf("log level = %q, want debug", cfg.Log.Level)
	}
}

func TestValidateRejectsBadSessions(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	cfg.Chat.Sessions = []SessionConfig{{Platform: "IRC", URL: "wss://x"}}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate accepted unknown platform")
	}

	cfg.Chat.Sessions = []SessionConfig{{Platform: "TELEGRAM"}}
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate accepted session without url")
	}
}

func TestValidateRaydiumTokenRequired(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	cfg.Feed.RaydiumURL = "wss://raydium.example/ws"
	if err := Validate(cfg); err == nil {
		t.Fatal("Validate accepted raydium url without token")
	}
}
