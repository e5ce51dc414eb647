package services

import (
	"time"

	gocache "github.com/patrickmn/go-cache"

	"taskmate/internal/models"
)

const (
	historyTTL         = 30 * time.Minute
	historyCleanup     = 10 * time.Minute
	historyMaxMessages = 20
)

// ConversationCache keeps a short, TTL-evicted message history per connection
// so follow-up messages can refer back to earlier ones. Text only, never
// persisted, discarded on disconnect or after the TTL.
type ConversationCache struct {
	cache *gocache.Cache
}

// NewConversationCache creates an empty per-connection history cache
func NewConversationCache() *ConversationCache {
	return &ConversationCache{
		cache: gocache.New(historyTTL, historyCleanup),
	}
}

// History returns a copy of the remembered exchanges for a connection,
// oldest first
func (c *ConversationCache) History(connID string) []models.ChatMessage {
	v, found := c.cache.Get(connID)
	if !found {
		return nil
	}
	stored, ok := v.([]models.ChatMessage)
	if !ok {
		return nil
	}
	history := make([]models.ChatMessage, len(stored))
	copy(history, stored)
	return history
}

// Append records messages for a connection, dropping the oldest entries
// beyond the cap. Each append refreshes the TTL.
func (c *ConversationCache) Append(connID string, msgs ...models.ChatMessage) {
	history := append(c.History(connID), msgs...)
	if len(history) > historyMaxMessages {
		history = history[len(history)-historyMaxMessages:]
	}
	c.cache.Set(connID, history, gocache.DefaultExpiration)
}

// Forget drops the history for a disconnected session
func (c *ConversationCache) Forget(connID string) {
	c.cache.Delete(connID)
}
