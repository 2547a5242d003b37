package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoadMissingFileReturnsNil(t *testing.T) {
	cfg, err := Load(t.TempDir())
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg != nil {
		t.Fatalf("Load = %#v, want nil for missing file", cfg)
	}
}

func TestLoadParsesOptions(t *testing.T) {
	dir := t.TempDir()
	content := "no_error: true\nupdate: true\nlanguage: ru\n"
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte(content), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	cfg, err := Load(dir)
	if err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if cfg == nil {
		t.Fatal("Load returned nil for existing file")
	}
	if !cfg.NoError || !cfg.Update || cfg.Language != "ru" {
		t.Fatalf("Load = %+v, want all options set", cfg)
	}
}

func TestLoadRejectsInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, FileName), []byte("no_error: [\n"), 0644); err != nil {
		t.Fatalf("os.WriteFile() error: %v", err)
	}

	if _, err := Load(dir); err == nil {
		t.Fatal("invalid YAML should be an error")
	}
}
