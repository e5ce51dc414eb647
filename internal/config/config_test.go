package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	cfg := Load()

	if cfg.Port != "8000" {
		t.Errorf("Expected default port 8000, got %s", cfg.Port)
	}
	if cfg.MaxToolIterations != 6 {
		t.Errorf("Expected default max iterations 6, got %d", cfg.MaxToolIterations)
	}
	if cfg.DatabaseURL != "./data/taskmate.db" {
		t.Errorf("Expected default sqlite path, got %s", cfg.DatabaseURL)
	}
	if cfg.IsProduction() {
		t.Error("Expected development mode by default")
	}
	if cfg.ModelHealthInterval != 5*time.Minute {
		t.Errorf("Expected default health interval 5m, got %v", cfg.ModelHealthInterval)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("MAX_TOOL_ITERATIONS", "3")
	t.Setenv("ENVIRONMENT", "production")
	t.Setenv("MODEL_HEALTH_INTERVAL", "30s")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Expected port 9090, got %s", cfg.Port)
	}
	if cfg.MaxToolIterations != 3 {
		t.Errorf("Expected max iterations 3, got %d", cfg.MaxToolIterations)
	}
	if !cfg.IsProduction() {
		t.Error("Expected production mode")
	}
	if cfg.ModelHealthInterval != 30*time.Second {
		t.Errorf("Expected health interval 30s, got %v", cfg.ModelHealthInterval)
	}
}

func TestLoadInvalidIntFallsBack(t *testing.T) {
	t.Setenv("MAX_TOOL_ITERATIONS", "not-a-number")

	cfg := Load()

	if cfg.MaxToolIterations != 6 {
		t.Errorf("Expected fallback to 6, got %d", cfg.MaxToolIterations)
	}
}

func TestLoadConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "port: \"7777\"\nopenai_model: test-model\nmax_tool_iterations: 4\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)

	cfg := Load()

	if cfg.Port != "7777" {
		t.Errorf("Expected port 7777 from file, got %s", cfg.Port)
	}
	if cfg.OpenAIModel != "test-model" {
		t.Errorf("Expected model test-model from file, got %s", cfg.OpenAIModel)
	}
	if cfg.MaxToolIterations != 4 {
		t.Errorf("Expected max iterations 4 from file, got %d", cfg.MaxToolIterations)
	}
}

func TestEnvBeatsConfigFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("port: \"7777\"\n"), 0o644); err != nil {
		t.Fatalf("Failed to write config file: %v", err)
	}

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("PORT", "6666")

	cfg := Load()

	if cfg.Port != "6666" {
		t.Errorf("Expected env to override file, got %s", cfg.Port)
	}
}
