package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestNewConfigCreatesResourceDir(t *testing.T) {
	home := filepath.Join(t.TempDir(), "teal-home")
	t.Setenv(HomeEnvVar, home)
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.ResourceDir != home {
		t.Fatalf("resource dir = %q, want %q", cfg.ResourceDir, home)
	}
	for _, p := range []string{filepath.Dir(cfg.LogPath()), cfg.SchemasDir(), cfg.SettingsPath()} {
		if _, err := os.Stat(p); err != nil {
			t.Fatalf("expected %s to exist: %v", p, err)
		}
	}
	if cfg.Settings != DefaultSettings() {
		t.Fatalf("expected default settings, got %+v", cfg.Settings)
	}
}

func TestLoadSettingsParsesYamlAndEnv(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnvVar, home)
	payload := strings.TrimSpace(`
save_and_close_on_exec: false
frame_color: "#112233"
entries_color: ""
`)
	if err := os.WriteFile(filepath.Join(home, settingsFile), []byte(payload), 0o644); err != nil {
		t.Fatal(err)
	}
	t.Setenv("TEAL_TASK_BOX_COLOR", "#abc")
	cfg, err := NewConfig()
	if err != nil {
		t.Fatalf("NewConfig returned error: %v", err)
	}
	if cfg.Settings.SaveAndCloseOnExec {
		t.Fatalf("file value should override the default")
	}
	if cfg.Settings.FrameColor != "#112233" || cfg.Settings.EntriesColor != "" {
		t.Fatalf("colors not parsed: %+v", cfg.Settings)
	}
	if cfg.Settings.TaskBoxColor != "#abc" {
		t.Fatalf("environment should override, got %q", cfg.Settings.TaskBoxColor)
	}
}

func TestLoadSettingsValidation(t *testing.T) {
	home := t.TempDir()
	t.Setenv(HomeEnvVar, home)
	if err := os.WriteFile(filepath.Join(home, settingsFile), []byte("frame_color: teal\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := NewConfig(); err == nil || !strings.Contains(err.Error(), "frame_color") {
		t.Fatalf("expected frame_color validation error, got %v", err)
	}
}

func TestSaveRoundTrip(t *testing.T) {
	home := t.TempDir()
	cfg := &Config{ResourceDir: home, Settings: DefaultSettings()}
	cfg.Settings.ShowHelpInBrowser = true
	cfg.Settings.FrameColor = " #000 "
	if err := cfg.Save(); err != nil {
		t.Fatalf("save: %v", err)
	}
	reloaded := &Config{ResourceDir: home}
	if err := reloaded.loadSettings(); err != nil {
		t.Fatalf("reload: %v", err)
	}
	if !reloaded.Settings.ShowHelpInBrowser || reloaded.Settings.FrameColor != "#000" {
		t.Fatalf("settings not persisted: %+v", reloaded.Settings)
	}
	cfg.Settings.EntriesColor = "blue"
	if err := cfg.Save(); err == nil {
		t.Fatalf("expected invalid color to be rejected")
	}
}
