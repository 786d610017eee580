package main

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("CONFIG_PATH", filepath.Join(t.TempDir(), "missing.yaml"))
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-test")
	t.Setenv("SLACK_APP_TOKEN", "xapp-test")
	t.Setenv("LLM_PROVIDER", "anthropic")
	t.Setenv("LLM_MODEL", "")
	t.Setenv("ANTHROPIC_API_KEY", "sk-ant-test")
	t.Setenv("OPENAI_API_KEY", "")
	t.Setenv("DB_PATH", "")
	t.Setenv("INTAKE_CHANNEL_ID", "")
	t.Setenv("PRODUCTION_NAME", "")
	t.Setenv("REMINDER_SCHEDULE", "")
	t.Setenv("DRAFT_TTL_HOURS", "")
	t.Setenv("TIMEZONE", "")
}

func TestLoadConfigDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg := LoadConfig()
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("default provider = %q", cfg.LLMProvider)
	}
	if cfg.DBPath != "./binderbot.db" {
		t.Fatalf("default db path = %q", cfg.DBPath)
	}
	if cfg.ProductionName != "Broadcast Ops" {
		t.Fatalf("default production name = %q", cfg.ProductionName)
	}
	if cfg.DraftTTLHours != 72 {
		t.Fatalf("default ttl = %d", cfg.DraftTTLHours)
	}
	if cfg.Location == nil {
		t.Fatal("location should be resolved")
	}
	if cfg.DraftTTL() != 72*time.Hour {
		t.Fatalf("DraftTTL = %s", cfg.DraftTTL())
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	setBaseEnv(t)

	yaml := `
slack_bot_token: xoxb-yaml
slack_app_token: xapp-yaml
anthropic_api_key: sk-ant-yaml
production_name: Hockey Night
intake_channel_id: C12345
reminder_schedule: "0 9 * * *"
draft_ttl_hours: 24
timezone: America/New_York
`
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("CONFIG_PATH", path)
	// Env still overrides YAML for the bot token; the app token env is
	// cleared so the YAML value shows through (empty env never overrides).
	t.Setenv("SLACK_BOT_TOKEN", "xoxb-env")
	t.Setenv("SLACK_APP_TOKEN", "")
	t.Setenv("ANTHROPIC_API_KEY", "")

	cfg := LoadConfig()
	if cfg.SlackBotToken != "xoxb-env" {
		t.Fatalf("env should override yaml, got %q", cfg.SlackBotToken)
	}
	if cfg.SlackAppToken != "xapp-yaml" {
		t.Fatalf("app token = %q", cfg.SlackAppToken)
	}
	if cfg.ProductionName != "Hockey Night" {
		t.Fatalf("production name = %q", cfg.ProductionName)
	}
	if cfg.IntakeChannelID != "C12345" {
		t.Fatalf("intake channel = %q", cfg.IntakeChannelID)
	}
	if cfg.ReminderSchedule != "0 9 * * *" {
		t.Fatalf("schedule = %q", cfg.ReminderSchedule)
	}
	if cfg.DraftTTLHours != 24 {
		t.Fatalf("ttl = %d", cfg.DraftTTLHours)
	}
	if cfg.Location == nil || cfg.Location.String() != "America/New_York" {
		t.Fatalf("location = %v", cfg.Location)
	}
}

func TestLoadConfigEnvInt(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("DRAFT_TTL_HOURS", "12")

	cfg := LoadConfig()
	if cfg.DraftTTLHours != 12 {
		t.Fatalf("ttl override = %d", cfg.DraftTTLHours)
	}
}
