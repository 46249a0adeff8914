package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: 9000\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}
	if cfg.Server.WindowDays != 14 {
		t.Errorf("expected default window of 14 days, got %d", cfg.Server.WindowDays)
	}
	if cfg.Business.StartHour != 9 || cfg.Business.EndHour != 18 {
		t.Errorf("expected default business hours 9-18, got %d-%d", cfg.Business.StartHour, cfg.Business.EndHour)
	}
	if cfg.Business.Capacity != 1 {
		t.Errorf("expected default capacity 1, got %d", cfg.Business.Capacity)
	}
	if cfg.Business.Timezone != "America/Mexico_City" {
		t.Errorf("unexpected default timezone %q", cfg.Business.Timezone)
	}
	if cfg.Google.SheetName != "Citas" {
		t.Errorf("unexpected default sheet name %q", cfg.Google.SheetName)
	}
	if cfg.EventDuration() != 2*time.Hour {
		t.Errorf("expected 2h event duration, got %s", cfg.EventDuration())
	}
	if cfg.GatewayTimeout() != 10*time.Second {
		t.Errorf("expected 10s gateway timeout, got %s", cfg.GatewayTimeout())
	}
	if cfg.Booking.EnforceCapacity {
		t.Error("capacity enforcement must be off unless explicitly enabled")
	}
}

func TestLoadEnvExpansion(t *testing.T) {
	t.Setenv("TEST_SHEET_ID", "sheet-123")

	path := writeConfig(t, "google:\n  sheet_id: ${TEST_SHEET_ID}\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.Google.SheetID != "sheet-123" {
		t.Errorf("expected env-expanded sheet id, got %q", cfg.Google.SheetID)
	}
}

func TestLoadRejectsEmptyWindow(t *testing.T) {
	path := writeConfig(t, "business:\n  start_hour: 18\n  end_hour: 9\n")

	if _, err := Load(path); err == nil {
		t.Fatal("expected error for inverted business hours")
	}
}

func TestWindow(t *testing.T) {
	path := writeConfig(t, "business:\n  start_hour: 10\n  end_hour: 14\n")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	w := cfg.Window()
	if len(w.Hours()) != 4 {
		t.Errorf("expected 4 hours in window, got %d", len(w.Hours()))
	}
}
