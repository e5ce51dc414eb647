package preflight

import (
	"os"
	"testing"

	"taskmate/internal/config"
	"taskmate/internal/database"
)

func setupPreflightTest(t *testing.T) (*database.DB, *config.Config, func()) {
	tmpDB := "test_preflight.db"

	db, err := database.New(tmpDB)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	if err := db.Initialize(); err != nil {
		t.Fatalf("Failed to initialize test database: %v", err)
	}

	cfg := &config.Config{
		OpenAIBaseURL: "https://api.openai.com/v1",
		OpenAIAPIKey:  "test-key",
		OpenAIModel:   "gpt-4o-mini",
	}

	cleanup := func() {
		db.Close()
		os.Remove(tmpDB)
	}

	return db, cfg, cleanup
}

func TestNewChecker(t *testing.T) {
	db, cfg, cleanup := setupPreflightTest(t)
	defer cleanup()

	checker := NewChecker(db, cfg)
	if checker == nil {
		t.Fatal("Expected non-nil checker")
	}

	if checker.db != db {
		t.Error("Checker database not set correctly")
	}
}

func TestCheckDatabaseConnection_Success(t *testing.T) {
	db, cfg, cleanup := setupPreflightTest(t)
	defer cleanup()

	checker := NewChecker(db, cfg)
	result := checker.checkDatabaseConnection()

	if result.Status != "pass" {
		t.Errorf("Expected status 'pass', got '%s'", result.Status)
	}

	if result.Name != "Database Connection" {
		t.Errorf("Expected name 'Database Connection', got '%s'", result.Name)
	}
}

func TestCheckDatabaseConnection_Failure(t *testing.T) {
	db, cfg, cleanup := setupPreflightTest(t)
	cleanup() // Close database immediately to simulate failure

	checker := NewChecker(db, cfg)
	result := checker.checkDatabaseConnection()

	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}

	if result.Error == nil {
		t.Error("Expected error to be set")
	}
}

func TestCheckDatabaseSchema_Success(t *testing.T) {
	db, cfg, cleanup := setupPreflightTest(t)
	defer cleanup()

	checker := NewChecker(db, cfg)
	result := checker.checkDatabaseSchema()

	if result.Status != "pass" {
		t.Errorf("Expected status 'pass', got '%s': %s", result.Status, result.Message)
	}
}

func TestCheckDatabaseSchema_MissingTable(t *testing.T) {
	tmpDB := "test_preflight_incomplete.db"

	db, err := database.New(tmpDB)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}
	defer func() {
		db.Close()
		os.Remove(tmpDB)
	}()

	// Don't initialize - tables won't exist

	checker := NewChecker(db, &config.Config{OpenAIBaseURL: "https://api.test.com/v1"})
	result := checker.checkDatabaseSchema()

	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}
}

func TestCheckProviderConfig_Pass(t *testing.T) {
	db, cfg, cleanup := setupPreflightTest(t)
	defer cleanup()

	checker := NewChecker(db, cfg)
	result := checker.checkProviderConfig()

	if result.Status != "pass" {
		t.Errorf("Expected status 'pass', got '%s': %s", result.Status, result.Message)
	}
}

func TestCheckProviderConfig_MissingBaseURL(t *testing.T) {
	db, _, cleanup := setupPreflightTest(t)
	defer cleanup()

	checker := NewChecker(db, &config.Config{OpenAIBaseURL: "  "})
	result := checker.checkProviderConfig()

	if result.Status != "fail" {
		t.Errorf("Expected status 'fail', got '%s'", result.Status)
	}
}

func TestCheckProviderConfig_MissingAPIKey(t *testing.T) {
	db, _, cleanup := setupPreflightTest(t)
	defer cleanup()

	// Missing API key should be a warning, not a failure
	checker := NewChecker(db, &config.Config{OpenAIBaseURL: "http://localhost:11434/v1"})
	result := checker.checkProviderConfig()

	if result.Status != "warning" {
		t.Errorf("Expected status 'warning', got '%s'", result.Status)
	}
}

func TestRunAll(t *testing.T) {
	db, cfg, cleanup := setupPreflightTest(t)
	defer cleanup()

	checker := NewChecker(db, cfg)
	results := checker.RunAll()

	if len(results) == 0 {
		t.Error("Expected results, got empty slice")
	}

	// Verify all expected checks ran
	expectedChecks := map[string]bool{
		"Database Connection": false,
		"Database Schema":     false,
		"Model Provider":      false,
	}

	for _, result := range results {
		if _, exists := expectedChecks[result.Name]; exists {
			expectedChecks[result.Name] = true
		}
	}

	for checkName, ran := range expectedChecks {
		if !ran {
			t.Errorf("Expected check '%s' to run", checkName)
		}
	}
}

func TestHasFailures(t *testing.T) {
	// Test with no failures
	results := []CheckResult{
		{Status: "pass"},
		{Status: "pass"},
		{Status: "warning"},
	}

	if HasFailures(results) {
		t.Error("Expected no failures")
	}

	// Test with failures
	results = append(results, CheckResult{Status: "fail"})

	if !HasFailures(results) {
		t.Error("Expected failures to be detected")
	}
}
