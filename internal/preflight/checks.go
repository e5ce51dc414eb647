package preflight

import (
	"fmt"
	"log"
	"strings"

	"taskmate/internal/config"
	"taskmate/internal/database"
)

// CheckResult represents the result of a preflight check
type CheckResult struct {
	Name    string
	Status  string // "pass", "fail", "warning"
	Message string
	Error   error
}

// Checker performs pre-flight checks before the server starts
type Checker struct {
	db  *database.DB
	cfg *config.Config
}

// NewChecker creates a new preflight checker
func NewChecker(db *database.DB, cfg *config.Config) *Checker {
	return &Checker{db: db, cfg: cfg}
}

// RunAll runs all preflight checks and returns results
func (c *Checker) RunAll() []CheckResult {
	log.Println("🔍 Running pre-flight checks...")

	results := []CheckResult{
		c.checkDatabaseConnection(),
		c.checkDatabaseSchema(),
		c.checkProviderConfig(),
	}

	// Print summary
	passed := 0
	failed := 0
	warnings := 0

	for _, result := range results {
		switch result.Status {
		case "pass":
			log.Printf("   ✅ %s: %s", result.Name, result.Message)
			passed++
		case "fail":
			log.Printf("   ❌ %s: %s", result.Name, result.Message)
			if result.Error != nil {
				log.Printf("      Error: %v", result.Error)
			}
			failed++
		case "warning":
			log.Printf("   ⚠️  %s: %s", result.Name, result.Message)
			warnings++
		}
	}

	log.Printf("\n📊 Pre-flight summary: %d passed, %d failed, %d warnings\n", passed, failed, warnings)

	return results
}

// HasFailures returns true if any check failed
func HasFailures(results []CheckResult) bool {
	for _, result := range results {
		if result.Status == "fail" {
			return true
		}
	}
	return false
}

// checkDatabaseConnection verifies database connectivity
func (c *Checker) checkDatabaseConnection() CheckResult {
	if err := c.db.Ping(); err != nil {
		return CheckResult{
			Name:    "Database Connection",
			Status:  "fail",
			Message: "Cannot connect to database",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Database Connection",
		Status:  "pass",
		Message: "Database connection successful",
	}
}

// checkDatabaseSchema verifies the tasks table exists
func (c *Checker) checkDatabaseSchema() CheckResult {
	var query string
	switch c.db.Dialect() {
	case database.DialectMySQL:
		query = "SELECT COUNT(*) FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_SCHEMA = DATABASE() AND TABLE_NAME = ?"
	case database.DialectPostgres:
		query = c.db.Rebind("SELECT COUNT(*) FROM information_schema.tables WHERE table_schema = 'public' AND table_name = ?")
	default:
		query = "SELECT COUNT(*) FROM sqlite_master WHERE type = 'table' AND name = ?"
	}

	var count int
	err := c.db.QueryRow(query, "tasks").Scan(&count)
	if err != nil || count == 0 {
		return CheckResult{
			Name:    "Database Schema",
			Status:  "fail",
			Message: "Required table 'tasks' not found",
			Error:   err,
		}
	}

	return CheckResult{
		Name:    "Database Schema",
		Status:  "pass",
		Message: "All required tables exist",
	}
}

// checkProviderConfig verifies the model provider settings look usable
func (c *Checker) checkProviderConfig() CheckResult {
	baseURL := strings.TrimSpace(c.cfg.OpenAIBaseURL)
	if baseURL == "" {
		return CheckResult{
			Name:    "Model Provider",
			Status:  "fail",
			Message: "OPENAI_BASE_URL is not configured",
		}
	}

	if c.cfg.OpenAIAPIKey == "" {
		return CheckResult{
			Name:    "Model Provider",
			Status:  "warning",
			Message: "OPENAI_API_KEY not set (fine for local providers, hosted ones will reject requests)",
		}
	}

	return CheckResult{
		Name:    "Model Provider",
		Status:  "pass",
		Message: fmt.Sprintf("Model provider configured (%s, model %s)", baseURL, c.cfg.OpenAIModel),
	}
}
