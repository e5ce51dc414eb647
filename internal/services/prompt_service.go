package services

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

const defaultSystemPrompt = `You are TaskMate, a friendly task management assistant. You help users
manage a shared task list through natural conversation.

When creating tasks:
- Write a short title (about 4-6 words) that captures the goal and move
  specifics into the description (1-2 sentences).
- Convert natural-language dates ("tomorrow", "next Monday", "EOD") into
  ISO format (YYYY-MM-DDTHH:MM:SS). When the user gives no time of day,
  use 23:59:59.
- When the user gives no due date at all, leave it unset.
- Infer priority from urgency cues: "urgent" or "ASAP" mean high, "when
  you can" or "sometime" mean low. Otherwise default to medium.
- A single message can contain several tasks. Create each one, grouping
  closely related items into one task with the details in the description.

When updating or deleting:
- Users never provide task ids. Call list_tasks first, match on title and
  description, and use the matching task's id.
- If several tasks match, list them and ask which one the user means.
- Before creating a task that looks like an existing one, mention the
  existing task and ask whether to update it instead.

Never show internal task ids to the user. Keep replies short and confirm
what you did.`

// PromptService builds the per-turn system prompt. An optional override
// file replaces the built-in prompt and is hot-reloaded on change.
type PromptService struct {
	mutex    sync.RWMutex
	override string
	watcher  *fsnotify.Watcher
}

// NewPromptService creates a prompt service using the built-in prompt
func NewPromptService() *PromptService {
	return &PromptService{}
}

// SystemPrompt returns the active prompt with the current date appended
// so the model can resolve relative dates
func (s *PromptService) SystemPrompt(now time.Time) string {
	s.mutex.RLock()
	prompt := s.override
	s.mutex.RUnlock()

	if prompt == "" {
		prompt = defaultSystemPrompt
	}
	return fmt.Sprintf("%s\n\nCurrent date: %s", prompt, now.Format("Monday, 2006-01-02"))
}

// LoadOverride reads a prompt override from disk, replacing the built-in
// prompt. An empty file falls back to the built-in prompt.
func (s *PromptService) LoadOverride(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read prompt file: %w", err)
	}

	s.mutex.Lock()
	s.override = strings.TrimSpace(string(data))
	s.mutex.Unlock()

	log.Printf("✅ [PROMPT] Loaded system prompt from %s (%d bytes)", path, len(data))
	return nil
}

// Watch hot-reloads the override file whenever it changes
func (s *PromptService) Watch(path string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}

	absPath, err := filepath.Abs(path)
	if err != nil {
		watcher.Close()
		return fmt.Errorf("failed to resolve %s: %w", path, err)
	}

	// Watch the directory containing the file (more reliable than watching
	// the file directly)
	dir := filepath.Dir(absPath)
	filename := filepath.Base(absPath)

	if err := watcher.Add(dir); err != nil {
		watcher.Close()
		return fmt.Errorf("failed to watch directory %s: %w", dir, err)
	}

	s.watcher = watcher
	log.Printf("👁️  [PROMPT] Watching %s for changes (hot-reload enabled)", path)

	go func() {
		// Debounce timer to avoid multiple reloads for rapid file changes
		var debounceTimer *time.Timer
		debounceDuration := 500 * time.Millisecond

		for {
			select {
			case event, ok := <-watcher.Events:
				if !ok {
					return
				}

				if filepath.Base(event.Name) != filename {
					continue
				}

				if event.Op&fsnotify.Write == fsnotify.Write || event.Op&fsnotify.Create == fsnotify.Create {
					if debounceTimer != nil {
						debounceTimer.Stop()
					}

					debounceTimer = time.AfterFunc(debounceDuration, func() {
						if err := s.LoadOverride(absPath); err != nil {
							log.Printf("❌ [PROMPT] Failed to reload prompt after file change: %v", err)
						}
					})
				}

			case err, ok := <-watcher.Errors:
				if !ok {
					return
				}
				log.Printf("⚠️  [PROMPT] File watcher error: %v", err)
			}
		}
	}()

	return nil
}

// Close stops the file watcher if one is running
func (s *PromptService) Close() {
	if s.watcher != nil {
		s.watcher.Close()
	}
}
