package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsDefault(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	want := Default()
	if cfg != want {
		t.Errorf("Load() = %+v, want default %+v", cfg, want)
	}
}

func TestSaveLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ember.toml")
	original := Config{
		DataDir:               "/var/lib/ember",
		CorruptAlertThreshold: 0.25,
		TimestampData:         false,
		WatchExternalWrites:   true,
	}
	if err := Save(path, original); err != nil {
		t.Fatalf("Save: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded != original {
		t.Errorf("Load() = %+v, want %+v", loaded, original)
	}
}

func TestLoadPartialFileFillsRemainingDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "partial.toml")
	if err := os.WriteFile(path, []byte("data_dir = \"/custom/dir\"\n"), 0o644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if loaded.DataDir != "/custom/dir" {
		t.Errorf("DataDir = %q, want /custom/dir", loaded.DataDir)
	}
	want := Default()
	if loaded.CorruptAlertThreshold != want.CorruptAlertThreshold {
		t.Errorf("CorruptAlertThreshold = %v, want default %v", loaded.CorruptAlertThreshold, want.CorruptAlertThreshold)
	}
	if loaded.TimestampData != want.TimestampData {
		t.Errorf("TimestampData = %v, want default %v", loaded.TimestampData, want.TimestampData)
	}
}
