package config

import (
	"strings"
	"testing"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"TWITCH_CHANNEL", "TWITCH_BOT_USERNAME", "TWITCH_OAUTH_TOKEN",
		"TWITCH_CLIENT_ID", "TWITCH_CLIENT_SECRET", "BROADCASTER_ALIASES",
		"QUOTE_STORE_LOCATION", "QUOTE_STORE_BACKEND", "DATA_DIR", "DB_DSN",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QuoteStoreLocation != "quotes" {
		t.Errorf("QuoteStoreLocation = %q", cfg.QuoteStoreLocation)
	}
	if cfg.QuoteStoreBackend != "postgres" {
		t.Errorf("QuoteStoreBackend = %q", cfg.QuoteStoreBackend)
	}
	if cfg.DataDir != "data" {
		t.Errorf("DataDir = %q", cfg.DataDir)
	}
	if !strings.Contains(cfg.DBDsn, "postgres://") {
		t.Errorf("DBDsn = %q", cfg.DBDsn)
	}
	if len(cfg.BroadcasterAliases) != 0 {
		t.Errorf("BroadcasterAliases = %v, want empty without a channel", cfg.BroadcasterAliases)
	}
}

func TestLoadAliases(t *testing.T) {
	clearEnv(t)
	t.Setenv("BROADCASTER_ALIASES", " chief , boss ,,")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.BroadcasterAliases) != 2 || cfg.BroadcasterAliases[0] != "chief" || cfg.BroadcasterAliases[1] != "boss" {
		t.Errorf("BroadcasterAliases = %v", cfg.BroadcasterAliases)
	}
}

func TestLoadAliasesDefaultToChannel(t *testing.T) {
	clearEnv(t)
	t.Setenv("TWITCH_CHANNEL", "streamer")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if len(cfg.BroadcasterAliases) != 1 || cfg.BroadcasterAliases[0] != "streamer" {
		t.Errorf("BroadcasterAliases = %v, want channel name", cfg.BroadcasterAliases)
	}
}

func TestLoadBackendValidation(t *testing.T) {
	clearEnv(t)
	t.Setenv("QUOTE_STORE_BACKEND", "file")
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.QuoteStoreBackend != "file" {
		t.Errorf("QuoteStoreBackend = %q", cfg.QuoteStoreBackend)
	}

	t.Setenv("QUOTE_STORE_BACKEND", "mongodb")
	if _, err := Load(); err == nil {
		t.Error("invalid backend accepted")
	}
}

func TestValidateChatReady(t *testing.T) {
	cfg := &Config{}
	if err := cfg.ValidateChatReady(); err == nil {
		t.Error("empty config accepted")
	}
	cfg.TwitchChannel = "streamer"
	if err := cfg.ValidateChatReady(); err == nil {
		t.Error("missing bot username accepted")
	}
	cfg.TwitchBotUsername = "quotebot"
	if err := cfg.ValidateChatReady(); err != nil {
		t.Errorf("ValidateChatReady: %v", err)
	}
}
