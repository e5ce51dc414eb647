package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"taskmate/internal/models"
	"taskmate/internal/services"
)

func getHealth(t *testing.T, app *fiber.App) map[string]interface{} {
	t.Helper()

	req := httptest.NewRequest("GET", "/health", nil)
	resp, err := app.Test(req)
	if err != nil {
		t.Fatalf("Failed to send request: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != fiber.StatusOK {
		t.Errorf("Expected status 200, got %d", resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("Failed to read response: %v", err)
	}

	var result map[string]interface{}
	if err := json.Unmarshal(body, &result); err != nil {
		t.Fatalf("Failed to parse JSON: %v", err)
	}

	return result
}

// TestHealthHandler tests the health check endpoint
func TestHealthHandler(t *testing.T) {
	app := fiber.New()
	connManager := services.NewConnectionManager()
	handler := NewHealthHandler(connManager, nil)

	app.Get("/health", handler.Handle)

	result := getHealth(t, app)

	if result["status"] != "healthy" {
		t.Errorf("Expected status 'healthy', got %v", result["status"])
	}

	if result["model_provider"] != services.ProviderStatusUnknown {
		t.Errorf("Expected model_provider 'unknown' without a monitor, got %v", result["model_provider"])
	}

	if result["timestamp"] == nil {
		t.Error("Expected 'timestamp' field in response")
	}
}

// TestHealthHandler_WithConnections tests the connection count in the payload
func TestHealthHandler_WithConnections(t *testing.T) {
	app := fiber.New()
	connManager := services.NewConnectionManager()
	handler := NewHealthHandler(connManager, nil)

	app.Get("/health", handler.Handle)

	connManager.Register(&models.UserConnection{
		ConnID:    "health-conn-1",
		CreatedAt: time.Now(),
		WriteChan: make(chan models.ServerMessage, 10),
		StopChan:  make(chan bool, 1),
	})

	result := getHealth(t, app)

	connections, ok := result["connections"].(float64)
	if !ok {
		t.Fatal("Expected 'connections' to be a number")
	}

	if int(connections) != 1 {
		t.Errorf("Expected 1 connection, got %d", int(connections))
	}
}

// TestHealthHandler_WithMonitor tests that the provider probe result shows up
func TestHealthHandler_WithMonitor(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"object":"list","data":[]}`))
	}))
	defer server.Close()

	monitor, err := services.NewProviderMonitor(server.URL, "", time.Minute)
	if err != nil {
		t.Fatalf("Failed to create monitor: %v", err)
	}
	monitor.Probe()

	app := fiber.New()
	handler := NewHealthHandler(services.NewConnectionManager(), monitor)

	app.Get("/health", handler.Handle)

	result := getHealth(t, app)

	if result["model_provider"] != services.ProviderStatusOK {
		t.Errorf("Expected model_provider 'ok', got %v", result["model_provider"])
	}
}
