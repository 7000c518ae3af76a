package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadMissingDefaultIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	orig, _ := os.Getwd()
	os.Chdir(dir)
	defer os.Chdir(orig)

	cfg, err := Load(DefaultPath)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Recognizer.Timeout != Duration(30*time.Second) {
		t.Errorf("default timeout = %v", cfg.Recognizer.Timeout)
	}
}

func TestLoadMissingExplicitPathFails(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestLoadParsesYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "botscript.yaml")
	content := `
recognizer:
  api_key: secret
  base_url: https://example.com/api/v3
  model: test-model
  timeout: 10s
transcript:
  path: transcripts.db
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Recognizer.APIKey != "secret" {
		t.Errorf("api_key = %q", cfg.Recognizer.APIKey)
	}
	if cfg.Recognizer.Model != "test-model" {
		t.Errorf("model = %q", cfg.Recognizer.Model)
	}
	if cfg.Recognizer.Timeout != Duration(10*time.Second) {
		t.Errorf("timeout = %v", cfg.Recognizer.Timeout)
	}
	if cfg.Transcript.Path != "transcripts.db" {
		t.Errorf("transcript path = %q", cfg.Transcript.Path)
	}
}

func TestLoadRejectsMalformedYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	os.WriteFile(path, []byte("recognizer: [not a mapping"), 0o644)

	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}
