package services

import (
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/go-co-op/gocron/v2"
)

// Provider probe states reported on /health
const (
	ProviderStatusUnknown     = "unknown"
	ProviderStatusOK          = "ok"
	ProviderStatusUnreachable = "unreachable"
	ProviderStatusError       = "error"
)

// ProviderMonitor periodically probes the model provider's /models endpoint
// so /health can report whether chat turns are likely to succeed. A failed
// probe only changes the reported status, it never blocks request handling.
type ProviderMonitor struct {
	baseURL   string
	apiKey    string
	interval  time.Duration
	client    *http.Client
	scheduler gocron.Scheduler

	mu        sync.RWMutex
	status    string
	checkedAt time.Time
}

// NewProviderMonitor creates a monitor for the given provider base URL
func NewProviderMonitor(baseURL, apiKey string, interval time.Duration) (*ProviderMonitor, error) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}

	scheduler, err := gocron.NewScheduler(gocron.WithLocation(time.UTC))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}

	return &ProviderMonitor{
		baseURL:   strings.TrimRight(baseURL, "/"),
		apiKey:    apiKey,
		interval:  interval,
		client:    &http.Client{Timeout: 10 * time.Second},
		scheduler: scheduler,
		status:    ProviderStatusUnknown,
	}, nil
}

// Start schedules the probe and runs the first one immediately
func (m *ProviderMonitor) Start() error {
	_, err := m.scheduler.NewJob(
		gocron.DurationJob(m.interval),
		gocron.NewTask(m.Probe),
		gocron.WithName("provider-health-probe"),
		gocron.WithStartAt(gocron.WithStartImmediately()),
	)
	if err != nil {
		return fmt.Errorf("failed to create probe job: %w", err)
	}

	m.scheduler.Start()
	log.Printf("⏰ Provider health probe every %s (%s)", m.interval, m.baseURL)
	return nil
}

// Stop shuts down the probe scheduler
func (m *ProviderMonitor) Stop() error {
	return m.scheduler.Shutdown()
}

// Probe checks the provider once and records the outcome
func (m *ProviderMonitor) Probe() {
	req, err := http.NewRequest("GET", m.baseURL+"/models", nil)
	if err != nil {
		m.setStatus(ProviderStatusError)
		return
	}

	req.Header.Set("Content-Type", "application/json")
	if m.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+m.apiKey)
	}

	resp, err := m.client.Do(req)
	if err != nil {
		log.Printf("⚠️  [HEALTH] Provider probe failed: %v", err)
		m.setStatus(ProviderStatusUnreachable)
		return
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		log.Printf("⚠️  [HEALTH] Provider probe got status %d: %s", resp.StatusCode, string(body))
		m.setStatus(ProviderStatusError)
		return
	}
	io.Copy(io.Discard, resp.Body)

	if m.Status() != ProviderStatusOK {
		log.Printf("✅ [HEALTH] Model provider reachable at %s", m.baseURL)
	}
	m.setStatus(ProviderStatusOK)
}

// Status returns the outcome of the most recent probe
func (m *ProviderMonitor) Status() string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// LastChecked returns when the provider was last probed, zero if never
func (m *ProviderMonitor) LastChecked() time.Time {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.checkedAt
}

func (m *ProviderMonitor) setStatus(status string) {
	m.mu.Lock()
	m.status = status
	m.checkedAt = time.Now()
	m.mu.Unlock()
}
